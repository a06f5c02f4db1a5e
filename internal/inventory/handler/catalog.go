package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/internal/inventory/service"
	"github.com/maestranza/maestranza-backend/pkg/httputil"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// CatalogHandler handles product, lot, supplier and category endpoints
type CatalogHandler struct {
	catalog *service.CatalogService
	stock   *service.StockService
	logger  *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *service.CatalogService, stock *service.StockService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		stock:   stock,
		logger:  log,
	}
}

// ProductRoutes mounts /products
func (h *CatalogHandler) ProductRoutes(r chi.Router) {
	r.With(can(permissions.ActionRead, permissions.ResourceProducts)).Get("/scan/{code}", h.LookupByCode)
	crud(r, permissions.ResourceProducts, h.ListProducts, h.CreateProduct, h.GetProduct, h.UpdateProduct, h.DeleteProduct)
	r.With(can(permissions.ActionRead, permissions.ResourceProducts)).Get("/{id}/consumption", h.Consumption)
}

// LotRoutes mounts /lots
func (h *CatalogHandler) LotRoutes(r chi.Router) {
	crud(r, permissions.ResourceLots, h.ListLots, h.CreateLot, h.GetLot, h.UpdateLot, h.DeleteLot)
}

// SupplierRoutes mounts /suppliers
func (h *CatalogHandler) SupplierRoutes(r chi.Router) {
	crud(r, permissions.ResourceSuppliers, h.ListSuppliers, h.CreateSupplier, h.GetSupplier, h.UpdateSupplier, h.DeleteSupplier)
}

// CategoryRoutes mounts /categories
func (h *CatalogHandler) CategoryRoutes(r chi.Router) {
	crud(r, permissions.ResourceCategories, h.ListCategories, h.CreateCategory, h.GetCategory, h.UpdateCategory, h.DeleteCategory)
}

// ListProducts lists products. Supports search, lot_id and low_stock=true.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)
	q := r.URL.Query()
	f := repository.ProductFilter{
		Search:   q.Get("search"),
		LotID:    q.Get("lot_id"),
		LowStock: q.Get("low_stock") == "true",
	}

	products, total, err := h.catalog.ListProducts(r.Context(), f, pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, products, httputil.NewMeta(page, perPage, total))
}

// CreateProduct creates a product
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req)
	respondCreated(w, product, err)
}

// GetProduct gets a product by ID
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	respond(w, product, err)
}

// UpdateProduct changes product attributes
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductUpdate
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, product, err)
}

// DeleteProduct deletes a product with no stock left
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")))
}

type consumptionResponse struct {
	ProductID    string          `json:"product_id"`
	Days         int             `json:"days"`
	AverageDaily decimal.Decimal `json:"average_daily"`
}

// Consumption returns the average daily exit quantity over ?days=
func (h *CatalogHandler) Consumption(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", service.DefaultConsumptionWindow)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	avg, err := h.stock.AverageDailyConsumption(r.Context(), id, days)
	respond(w, consumptionResponse{ProductID: id, Days: days, AverageDaily: avg}, err)
}

// ListLots lists lots, optionally for one supplier_id
func (h *CatalogHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)

	lots, total, err := h.catalog.ListLots(r.Context(), r.URL.Query().Get("supplier_id"), pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, lots, httputil.NewMeta(page, perPage, total))
}

// CreateLot creates a lot
func (h *CatalogHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req service.LotInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	lot, err := h.catalog.CreateLot(r.Context(), req)
	respondCreated(w, lot, err)
}

// GetLot gets a lot by ID
func (h *CatalogHandler) GetLot(w http.ResponseWriter, r *http.Request) {
	lot, err := h.catalog.GetLot(r.Context(), chi.URLParam(r, "id"))
	respond(w, lot, err)
}

// UpdateLot replaces a lot
func (h *CatalogHandler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	var req service.LotInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	lot, err := h.catalog.UpdateLot(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, lot, err)
}

// DeleteLot deletes a lot no product belongs to
func (h *CatalogHandler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.catalog.DeleteLot(r.Context(), chi.URLParam(r, "id")))
}

// ListSuppliers lists suppliers matching ?search=
func (h *CatalogHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)

	suppliers, total, err := h.catalog.ListSuppliers(r.Context(), r.URL.Query().Get("search"), pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, suppliers, httputil.NewMeta(page, perPage, total))
}

// CreateSupplier creates a supplier
func (h *CatalogHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req service.SupplierInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	supplier, err := h.catalog.CreateSupplier(r.Context(), req)
	respondCreated(w, supplier, err)
}

// GetSupplier gets a supplier by ID
func (h *CatalogHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.catalog.GetSupplier(r.Context(), chi.URLParam(r, "id"))
	respond(w, supplier, err)
}

// UpdateSupplier replaces a supplier
func (h *CatalogHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var req service.SupplierInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	supplier, err := h.catalog.UpdateSupplier(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, supplier, err)
}

// DeleteSupplier deletes an unreferenced supplier
func (h *CatalogHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.catalog.DeleteSupplier(r.Context(), chi.URLParam(r, "id")))
}

// ListCategories lists categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	pg, page, perPage := pageOf(r)

	categories, total, err := h.catalog.ListCategories(r.Context(), pg)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, categories, httputil.NewMeta(page, perPage, total))
}

// CreateCategory creates a category
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), req)
	respondCreated(w, category, err)
}

// GetCategory gets a category by ID
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.GetCategory(r.Context(), chi.URLParam(r, "id"))
	respond(w, category, err)
}

// UpdateCategory replaces a category
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req)
	respond(w, category, err)
}

// DeleteCategory deletes a category no lot uses
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, h.catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")))
}

// ListComunas lists the comunas a supplier address can reference
func (h *CatalogHandler) ListComunas(w http.ResponseWriter, r *http.Request) {
	if err := httputil.Authorize(r.Context(), permissions.ActionRead, permissions.ResourceSuppliers); err != nil {
		httputil.Error(w, err)
		return
	}

	comunas, err := h.catalog.ListComunas(r.Context())
	respond(w, comunas, err)
}
