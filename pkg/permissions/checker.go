// Package permissions implements the capability check used at the service
// boundary. Each role maps to a set of permission strings:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "orders.*")
//   - "resource.action" - Specific action (e.g., "quotations.read")
package permissions

import (
	"strings"
)

// Actions
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Resources
const (
	ResourceProducts       = "products"
	ResourceLots           = "lots"
	ResourceSuppliers      = "suppliers"
	ResourceCategories     = "categories"
	ResourceAlerts         = "alerts"
	ResourceOrders         = "orders"
	ResourceEntries        = "entries"
	ResourceExits          = "exits"
	ResourcePhysicalCounts = "physical_counts"
	ResourceQuotations     = "quotations"
	ResourcePriceHistory   = "price_history"
	ResourceKits           = "kits"
	ResourceAudit          = "audit"
	ResourceNotifications  = "notifications"
	ResourceUsers          = "users"
)

// Roles
const (
	RoleAdmin      = "ADMIN"
	RoleInventario = "INVENTARIO"
	RoleComprador  = "COMPRADOR"
	RoleLogistica  = "LOGISTICA"
	RoleProduccion = "PRODUCCION"
	RoleAuditor    = "AUDITOR"
	RoleProyectos  = "PROYECTOS"
	RolePlanta     = "PLANTA"
)

// Roles lists every valid role, in display order.
var Roles = []string{
	RoleAdmin, RoleInventario, RoleComprador, RoleLogistica,
	RoleProduccion, RoleAuditor, RoleProyectos, RolePlanta,
}

// catalogRead is granted to every authenticated role.
var catalogRead = []string{
	"products.read",
	"lots.read",
	"suppliers.read",
	"categories.read",
	"kits.read",
	"price_history.read",
	"notifications.read",
	"notifications.update",
}

var inventoryManager = []string{
	"products.*",
	"lots.*",
	"suppliers.*",
	"categories.*",
	"alerts.*",
	"orders.*",
	"entries.*",
	"exits.*",
	"physical_counts.*",
	"quotations.*",
	"price_history.*",
	"kits.*",
	"notifications.*",
	"users.read",
}

// RolePermissions is the policy table behind Can.
var RolePermissions = map[string][]string{
	RoleAdmin:      {"*"},
	RoleInventario: inventoryManager,
	RoleComprador:  MergePermissions(catalogRead, []string{"quotations.read", "orders.read"}),
	RoleLogistica:  MergePermissions(catalogRead, []string{"entries.read", "exits.read"}),
	RoleProduccion: MergePermissions(catalogRead, []string{"exits.read"}),
	RoleAuditor:    MergePermissions(catalogRead, []string{"entries.read", "exits.read", "physical_counts.read", "orders.read"}),
	RoleProyectos:  catalogRead,
	RolePlanta:     catalogRead,
}

// Can reports whether role may perform action on resource.
func Can(role, action, resource string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	return HasPermission(perms, resource+"."+action)
}

// IsValidRole reports whether role is one of Roles.
func IsValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// HasPermission checks if the permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "orders.*" matches "orders.read", "orders.update", etc.
//   - Exact match for specific permissions
func HasPermission(perms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range perms {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// MergePermissions merges multiple permission sets, removing duplicates.
func MergePermissions(sets ...[]string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, set := range sets {
		for _, p := range set {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}

	return result
}
