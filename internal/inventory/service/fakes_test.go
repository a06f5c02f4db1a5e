package service

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/events"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
	"github.com/maestranza/maestranza-backend/pkg/testutil"
	"github.com/shopspring/decimal"
)

// memDB is an in-memory stand-in for the inventory schema. Rows are
// stored by value so a snapshot is a copy of the maps.
type memDB struct {
	products      map[string]domain.Product
	lots          map[string]domain.Lot
	suppliers     map[string]domain.Supplier
	categories    map[string]domain.Category
	alerts        map[string]domain.Alert
	orders        map[string]domain.Order
	orderItems    map[string]domain.OrderItem
	entries       map[string]domain.Entry
	exits         map[string]domain.Exit
	counts        map[string]domain.PhysicalCount
	quotations    map[string]domain.Quotation
	kits          map[string]domain.Kit
	kitItems      map[string]domain.KitItem
	notifications map[string]domain.Notification
	prices        []domain.PriceHistory
	audit         []domain.AuditEntry
	userRoles     map[string]string

	seq       int
	clock     time.Time
	failAudit bool
	// locks records row locks in the order they were taken, as "table:id"
	locks []string
}

func newMemDB() *memDB {
	return &memDB{
		products:      map[string]domain.Product{},
		lots:          map[string]domain.Lot{},
		suppliers:     map[string]domain.Supplier{},
		categories:    map[string]domain.Category{},
		alerts:        map[string]domain.Alert{},
		orders:        map[string]domain.Order{},
		orderItems:    map[string]domain.OrderItem{},
		entries:       map[string]domain.Entry{},
		exits:         map[string]domain.Exit{},
		counts:        map[string]domain.PhysicalCount{},
		quotations:    map[string]domain.Quotation{},
		kits:          map[string]domain.Kit{},
		kitItems:      map[string]domain.KitItem{},
		notifications: map[string]domain.Notification{},
		userRoles:     map[string]string{},
		clock:         time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func (db *memDB) snapshot() *memDB {
	c := *db
	c.products = maps.Clone(db.products)
	c.lots = maps.Clone(db.lots)
	c.suppliers = maps.Clone(db.suppliers)
	c.categories = maps.Clone(db.categories)
	c.alerts = maps.Clone(db.alerts)
	c.orders = maps.Clone(db.orders)
	c.orderItems = maps.Clone(db.orderItems)
	c.entries = maps.Clone(db.entries)
	c.exits = maps.Clone(db.exits)
	c.counts = maps.Clone(db.counts)
	c.quotations = maps.Clone(db.quotations)
	c.kits = maps.Clone(db.kits)
	c.kitItems = maps.Clone(db.kitItems)
	c.notifications = maps.Clone(db.notifications)
	c.prices = append([]domain.PriceHistory(nil), db.prices...)
	c.audit = append([]domain.AuditEntry(nil), db.audit...)
	c.userRoles = maps.Clone(db.userRoles)
	return &c
}

func (db *memDB) restore(snap *memDB) {
	seq, clock, locks := db.seq, db.clock, db.locks
	*db = *snap
	db.seq, db.clock, db.locks = seq, clock, locks
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

// tick advances the fake clock so rows get distinct, ordered timestamps
func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

type txKey struct{}

// memTx snapshots the database on the outermost WithTx and restores it
// when fn fails. Nested calls join the outer transaction.
type memTx struct {
	db        *memDB
	commits   int
	rollbacks int
}

func (t *memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	snap := t.db.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.db.restore(snap)
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

func notFound(resource string) error { return errors.NotFound(resource) }

func all[T any](m map[string]T, keep func(T) bool) []*T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := []*T{}
	for _, k := range keys {
		v := m[k]
		if keep == nil || keep(v) {
			out = append(out, &v)
		}
	}
	return out
}

// products

type memProducts struct{ db *memDB }

func (s memProducts) view(p domain.Product) *domain.Product {
	if l, ok := s.db.lots[p.LotID]; ok {
		p.LotCode = l.Code
		p.SupplierID = l.SupplierID
		if l.SupplierID != nil {
			if sup, ok := s.db.suppliers[*l.SupplierID]; ok {
				name := sup.Name
				p.SupplierName = &name
			}
		}
	}
	return &p
}

func (s memProducts) Create(_ context.Context, p *domain.Product) error {
	for _, other := range s.db.products {
		if other.SKU == p.SKU {
			return errors.Duplicate("a product with this SKU already exists")
		}
	}
	if p.ID == "" {
		p.ID = s.db.nextID("product")
	}
	p.CreatedAt = s.db.tick()
	p.UpdatedAt = p.CreatedAt
	s.db.products[p.ID] = *p
	return nil
}

func (s memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.db.products[id]
	if !ok {
		return nil, notFound("product")
	}
	return s.view(p), nil
}

func (s memProducts) GetByCode(_ context.Context, code string) (*domain.Product, error) {
	for _, p := range s.db.products {
		if p.Barcode == code || strings.EqualFold(p.SKU, code) {
			return s.view(p), nil
		}
	}
	return nil, notFound("product")
}

func (s memProducts) LockForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	s.db.locks = append(s.db.locks, "products:"+id)
	p, ok := s.db.products[id]
	if !ok {
		return nil, notFound("product")
	}
	return &p, nil
}

func (s memProducts) List(_ context.Context, f repository.ProductFilter, _ repository.Page) ([]*domain.Product, int64, error) {
	out := all(s.db.products, func(p domain.Product) bool {
		return (!f.LowStock || p.IsLowStock()) && (f.LotID == "" || p.LotID == f.LotID)
	})
	return out, int64(len(out)), nil
}

func (s memProducts) ListEnabled(context.Context) ([]*domain.Product, error) {
	return all(s.db.products, func(p domain.Product) bool { return p.Enabled }), nil
}

func (s memProducts) Update(_ context.Context, p *domain.Product) error {
	cur, ok := s.db.products[p.ID]
	if !ok {
		return notFound("product")
	}
	stock := cur.Stock
	cur = *p
	cur.Stock = stock
	cur.LotCode, cur.SupplierID, cur.SupplierName = "", nil, nil
	s.db.products[p.ID] = cur
	return nil
}

func (s memProducts) SetStock(_ context.Context, id string, stock int) error {
	p, ok := s.db.products[id]
	if !ok {
		return notFound("product")
	}
	if stock < 0 {
		return errors.ValidationField("stock", "must not be negative")
	}
	p.Stock = stock
	s.db.products[id] = p
	return nil
}

func (s memProducts) Delete(_ context.Context, id string) error {
	if _, ok := s.db.products[id]; !ok {
		return notFound("product")
	}
	delete(s.db.products, id)
	return nil
}

// lots, suppliers, categories

type memLots struct{ db *memDB }

func (s memLots) Create(_ context.Context, l *domain.Lot) error {
	if l.ID == "" {
		l.ID = s.db.nextID("lot")
	}
	l.CreatedAt = s.db.tick()
	s.db.lots[l.ID] = *l
	return nil
}

func (s memLots) GetByID(_ context.Context, id string) (*domain.Lot, error) {
	l, ok := s.db.lots[id]
	if !ok {
		return nil, notFound("lot")
	}
	return &l, nil
}

func (s memLots) List(_ context.Context, supplierID string, _ repository.Page) ([]*domain.Lot, int64, error) {
	out := all(s.db.lots, func(l domain.Lot) bool {
		return supplierID == "" || (l.SupplierID != nil && *l.SupplierID == supplierID)
	})
	return out, int64(len(out)), nil
}

func (s memLots) Update(_ context.Context, l *domain.Lot) error {
	if _, ok := s.db.lots[l.ID]; !ok {
		return notFound("lot")
	}
	s.db.lots[l.ID] = *l
	return nil
}

func (s memLots) Delete(_ context.Context, id string) error {
	delete(s.db.lots, id)
	return nil
}

func (s memLots) CountProducts(_ context.Context, id string) (int, error) {
	return len(all(s.db.products, func(p domain.Product) bool { return p.LotID == id })), nil
}

type memSuppliers struct{ db *memDB }

func (s memSuppliers) Create(_ context.Context, sup *domain.Supplier) error {
	if sup.ID == "" {
		sup.ID = s.db.nextID("supplier")
	}
	sup.CreatedAt = s.db.tick()
	s.db.suppliers[sup.ID] = *sup
	return nil
}

func (s memSuppliers) GetByID(_ context.Context, id string) (*domain.Supplier, error) {
	sup, ok := s.db.suppliers[id]
	if !ok {
		return nil, notFound("supplier")
	}
	return &sup, nil
}

func (s memSuppliers) List(context.Context, string, repository.Page) ([]*domain.Supplier, int64, error) {
	out := all(s.db.suppliers, nil)
	return out, int64(len(out)), nil
}

func (s memSuppliers) Update(_ context.Context, sup *domain.Supplier) error {
	s.db.suppliers[sup.ID] = *sup
	return nil
}

func (s memSuppliers) Delete(_ context.Context, id string) error {
	delete(s.db.suppliers, id)
	return nil
}

func (s memSuppliers) CountReferences(_ context.Context, id string) (int, error) {
	n := len(all(s.db.lots, func(l domain.Lot) bool { return l.SupplierID != nil && *l.SupplierID == id }))
	n += len(all(s.db.orders, func(o domain.Order) bool { return o.SupplierID == id }))
	n += len(all(s.db.entries, func(e domain.Entry) bool { return e.SupplierID != nil && *e.SupplierID == id }))
	return n, nil
}

type memCategories struct{ db *memDB }

func (s memCategories) Create(_ context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = s.db.nextID("category")
	}
	s.db.categories[c.ID] = *c
	return nil
}

func (s memCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := s.db.categories[id]
	if !ok {
		return nil, notFound("category")
	}
	return &c, nil
}

func (s memCategories) List(context.Context, repository.Page) ([]*domain.Category, int64, error) {
	out := all(s.db.categories, nil)
	return out, int64(len(out)), nil
}

func (s memCategories) Update(_ context.Context, c *domain.Category) error {
	s.db.categories[c.ID] = *c
	return nil
}

func (s memCategories) Delete(_ context.Context, id string) error {
	delete(s.db.categories, id)
	return nil
}

func (s memCategories) CountLots(_ context.Context, id string) (int, error) {
	return len(all(s.db.lots, func(l domain.Lot) bool { return l.CategoryID != nil && *l.CategoryID == id })), nil
}

type memGeography struct{}

func (memGeography) ListComunas(context.Context) ([]*domain.Comuna, error) {
	return []*domain.Comuna{{ID: 1, Name: "Santiago", City: "Santiago", Region: "Metropolitana", Country: "Chile"}}, nil
}

// alerts

type memAlerts struct{ db *memDB }

func (s memAlerts) Create(_ context.Context, a *domain.Alert) error {
	if a.IsOpen() {
		for _, other := range s.db.alerts {
			if other.ProductID == a.ProductID && other.IsOpen() {
				return errors.Duplicate("product already has an open alert")
			}
		}
	}
	if a.ID == "" {
		a.ID = s.db.nextID("alert")
	}
	a.CreatedAt = s.db.tick()
	a.UpdatedAt = a.CreatedAt
	s.db.alerts[a.ID] = *a
	return nil
}

func (s memAlerts) GetByID(_ context.Context, id string) (*domain.Alert, error) {
	a, ok := s.db.alerts[id]
	if !ok {
		return nil, notFound("alert")
	}
	if p, ok := s.db.products[a.ProductID]; ok {
		a.ProductName, a.SKU = p.Name, p.SKU
	}
	return &a, nil
}

func (s memAlerts) LockForUpdate(_ context.Context, id string) (*domain.Alert, error) {
	a, ok := s.db.alerts[id]
	if !ok {
		return nil, notFound("alert")
	}
	return &a, nil
}

func (s memAlerts) HasOpen(_ context.Context, productID string) (bool, error) {
	for _, a := range s.db.alerts {
		if a.ProductID == productID && a.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (s memAlerts) List(_ context.Context, f repository.AlertFilter, _ repository.Page) ([]*domain.Alert, int64, error) {
	out := all(s.db.alerts, func(a domain.Alert) bool {
		return (f.State == "" || a.State == f.State) && (f.ProductID == "" || a.ProductID == f.ProductID)
	})
	return out, int64(len(out)), nil
}

func (s memAlerts) ListUnprocessed(context.Context) ([]*domain.Alert, error) {
	return all(s.db.alerts, func(a domain.Alert) bool { return a.CanSpawnOrder() }), nil
}

func (s memAlerts) ListStale(_ context.Context, before time.Time) ([]*domain.Alert, error) {
	out := all(s.db.alerts, func(a domain.Alert) bool { return a.CanSpawnOrder() && a.CreatedAt.Before(before) })
	for _, a := range out {
		if p, ok := s.db.products[a.ProductID]; ok {
			a.ProductName, a.SKU = p.Name, p.SKU
		}
	}
	return out, nil
}

func (s memAlerts) Update(_ context.Context, a *domain.Alert) error {
	if _, ok := s.db.alerts[a.ID]; !ok {
		return notFound("alert")
	}
	a.UpdatedAt = s.db.tick()
	s.db.alerts[a.ID] = *a
	return nil
}

func (s memAlerts) Delete(_ context.Context, id string) error {
	delete(s.db.alerts, id)
	return nil
}

// orders

type memOrders struct{ db *memDB }

func (s memOrders) Create(_ context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = s.db.nextID("order")
	}
	o.CreatedAt = s.db.tick()
	o.UpdatedAt = o.CreatedAt
	s.db.orders[o.ID] = *o
	return nil
}

func (s memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.db.orders[id]
	if !ok {
		return nil, notFound("order")
	}
	return &o, nil
}

func (s memOrders) LockForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	s.db.locks = append(s.db.locks, "orders:"+id)
	return s.GetByID(ctx, id)
}

func (s memOrders) List(_ context.Context, f repository.OrderFilter, _ repository.Page) ([]*domain.Order, int64, error) {
	out := all(s.db.orders, func(o domain.Order) bool {
		return (f.State == "" || o.State == f.State) && (f.ProductID == "" || o.ProductID == f.ProductID)
	})
	return out, int64(len(out)), nil
}

func (s memOrders) Update(_ context.Context, o *domain.Order) error {
	if _, ok := s.db.orders[o.ID]; !ok {
		return notFound("order")
	}
	s.db.orders[o.ID] = *o
	return nil
}

func (s memOrders) CreateItem(_ context.Context, item *domain.OrderItem) error {
	if item.ID == "" {
		item.ID = s.db.nextID("item")
	}
	s.db.orderItems[item.ID] = *item
	return nil
}

func (s memOrders) GetItem(_ context.Context, id string) (*domain.OrderItem, error) {
	item, ok := s.db.orderItems[id]
	if !ok {
		return nil, notFound("order item")
	}
	return &item, nil
}

func (s memOrders) ListItems(_ context.Context, orderID string) ([]*domain.OrderItem, error) {
	return all(s.db.orderItems, func(i domain.OrderItem) bool { return i.OrderID == orderID }), nil
}

func (s memOrders) UpdateItem(_ context.Context, item *domain.OrderItem) error {
	s.db.orderItems[item.ID] = *item
	return nil
}

func (s memOrders) DeleteItem(_ context.Context, id string) error {
	delete(s.db.orderItems, id)
	return nil
}

// stock records

type memEntries struct{ db *memDB }

func (s memEntries) Create(_ context.Context, e *domain.Entry) error {
	if e.OrderID != nil {
		for _, other := range s.db.entries {
			if other.OrderID != nil && *other.OrderID == *e.OrderID {
				return errors.Duplicate("order already generated an entry")
			}
		}
	}
	if e.ID == "" {
		e.ID = s.db.nextID("entry")
	}
	e.CreatedAt = s.db.tick()
	s.db.entries[e.ID] = *e
	return nil
}

func (s memEntries) GetByID(_ context.Context, id string) (*domain.Entry, error) {
	e, ok := s.db.entries[id]
	if !ok {
		return nil, notFound("entry")
	}
	return &e, nil
}

func (s memEntries) ExistsForOrder(_ context.Context, orderID string) (bool, error) {
	return len(all(s.db.entries, func(e domain.Entry) bool { return e.OrderID != nil && *e.OrderID == orderID })) > 0, nil
}

func (s memEntries) List(_ context.Context, f repository.StockFilter, _ repository.Page) ([]*domain.Entry, int64, error) {
	out := all(s.db.entries, func(e domain.Entry) bool { return f.ProductID == "" || e.ProductID == f.ProductID })
	return out, int64(len(out)), nil
}

func (s memEntries) Update(_ context.Context, e *domain.Entry) error {
	s.db.entries[e.ID] = *e
	return nil
}

func (s memEntries) Delete(_ context.Context, id string) error {
	delete(s.db.entries, id)
	return nil
}

type memExits struct{ db *memDB }

func (s memExits) Create(_ context.Context, x *domain.Exit) error {
	if x.ID == "" {
		x.ID = s.db.nextID("exit")
	}
	x.CreatedAt = s.db.tick()
	s.db.exits[x.ID] = *x
	return nil
}

func (s memExits) GetByID(_ context.Context, id string) (*domain.Exit, error) {
	x, ok := s.db.exits[id]
	if !ok {
		return nil, notFound("exit")
	}
	return &x, nil
}

func (s memExits) List(_ context.Context, f repository.StockFilter, _ repository.Page) ([]*domain.Exit, int64, error) {
	out := all(s.db.exits, func(x domain.Exit) bool { return f.ProductID == "" || x.ProductID == f.ProductID })
	return out, int64(len(out)), nil
}

func (s memExits) SumSince(_ context.Context, productID string, since time.Time) (int, error) {
	total := 0
	for _, x := range s.db.exits {
		if x.ProductID == productID && !x.CreatedAt.Before(since) {
			total += x.Quantity
		}
	}
	return total, nil
}

func (s memExits) Delete(_ context.Context, id string) error {
	delete(s.db.exits, id)
	return nil
}

type memCounts struct{ db *memDB }

func (s memCounts) Create(_ context.Context, c *domain.PhysicalCount) error {
	if c.ID == "" {
		c.ID = s.db.nextID("count")
	}
	c.CountedAt = s.db.tick()
	s.db.counts[c.ID] = *c
	return nil
}

func (s memCounts) GetByID(_ context.Context, id string) (*domain.PhysicalCount, error) {
	c, ok := s.db.counts[id]
	if !ok {
		return nil, notFound("physical count")
	}
	return &c, nil
}

func (s memCounts) List(context.Context, repository.StockFilter, repository.Page) ([]*domain.PhysicalCount, int64, error) {
	out := all(s.db.counts, nil)
	return out, int64(len(out)), nil
}

func (s memCounts) MarkReconciled(_ context.Context, id string) error {
	c, ok := s.db.counts[id]
	if !ok {
		return notFound("physical count")
	}
	c.Reconciled = true
	s.db.counts[id] = c
	return nil
}

// quotations and prices

type memQuotations struct{ db *memDB }

func (s memQuotations) Create(_ context.Context, q *domain.Quotation) error {
	if q.ID == "" {
		q.ID = s.db.nextID("quotation")
	}
	q.CreatedAt = s.db.tick()
	s.db.quotations[q.ID] = *q
	return nil
}

func (s memQuotations) GetByID(_ context.Context, id string) (*domain.Quotation, error) {
	q, ok := s.db.quotations[id]
	if !ok {
		return nil, notFound("quotation")
	}
	return &q, nil
}

func (s memQuotations) LockForUpdate(ctx context.Context, id string) (*domain.Quotation, error) {
	s.db.locks = append(s.db.locks, "quotations:"+id)
	return s.GetByID(ctx, id)
}

func (s memQuotations) GetByOrder(_ context.Context, orderID string) (*domain.Quotation, error) {
	var found *domain.Quotation
	for _, q := range all(s.db.quotations, func(q domain.Quotation) bool { return q.OrderID == orderID }) {
		if found == nil || q.CreatedAt.Before(found.CreatedAt) {
			found = q
		}
	}
	if found == nil {
		return nil, notFound("quotation")
	}
	return found, nil
}

func (s memQuotations) List(_ context.Context, f repository.QuotationFilter, _ repository.Page) ([]*domain.Quotation, int64, error) {
	out := all(s.db.quotations, func(q domain.Quotation) bool { return f.OrderID == "" || q.OrderID == f.OrderID })
	return out, int64(len(out)), nil
}

func (s memQuotations) Update(_ context.Context, q *domain.Quotation) error {
	s.db.quotations[q.ID] = *q
	return nil
}

func (s memQuotations) Delete(_ context.Context, id string) error {
	delete(s.db.quotations, id)
	return nil
}

type memPrices struct{ db *memDB }

func (s memPrices) Create(_ context.Context, h *domain.PriceHistory) error {
	h.ID = s.db.nextID("price")
	h.RecordedAt = s.db.tick()
	s.db.prices = append(s.db.prices, *h)
	return nil
}

func (s memPrices) Latest(_ context.Context, productID, supplierID string) (*domain.PriceHistory, error) {
	for i := len(s.db.prices) - 1; i >= 0; i-- {
		h := s.db.prices[i]
		if h.ProductID == productID && h.SupplierID == supplierID {
			return &h, nil
		}
	}
	return nil, notFound("price history")
}

func (s memPrices) List(context.Context, repository.PriceHistoryFilter, repository.Page) ([]*domain.PriceHistory, int64, error) {
	out := []*domain.PriceHistory{}
	for i := range s.db.prices {
		h := s.db.prices[i]
		out = append(out, &h)
	}
	return out, int64(len(out)), nil
}

// kits

type memKits struct{ db *memDB }

func (s memKits) Create(_ context.Context, k *domain.Kit) error {
	for _, other := range s.db.kits {
		if strings.EqualFold(other.Name, k.Name) {
			return errors.Duplicate("a kit with this name already exists")
		}
	}
	if k.ID == "" {
		k.ID = s.db.nextID("kit")
	}
	k.CreatedAt = s.db.tick()
	stored := *k
	stored.Items = nil
	s.db.kits[k.ID] = stored
	return nil
}

func (s memKits) GetByID(ctx context.Context, id string) (*domain.Kit, error) {
	k, ok := s.db.kits[id]
	if !ok {
		return nil, notFound("kit")
	}
	k.Items, _ = s.ListItems(ctx, id)
	return &k, nil
}

func (s memKits) List(context.Context, repository.Page) ([]*domain.Kit, int64, error) {
	out := all(s.db.kits, nil)
	return out, int64(len(out)), nil
}

func (s memKits) Delete(_ context.Context, id string) error {
	delete(s.db.kits, id)
	for itemID, item := range s.db.kitItems {
		if item.KitID == id {
			delete(s.db.kitItems, itemID)
		}
	}
	return nil
}

func (s memKits) CreateItem(_ context.Context, item *domain.KitItem) error {
	if _, ok := s.db.products[item.ProductID]; !ok {
		return errors.ValidationField("product_id", "referenced record does not exist")
	}
	for _, other := range s.db.kitItems {
		if other.KitID == item.KitID && other.ProductID == item.ProductID {
			return errors.Duplicate("product is already in the kit")
		}
	}
	if item.ID == "" {
		item.ID = s.db.nextID("kititem")
	}
	s.db.kitItems[item.ID] = *item
	return nil
}

func (s memKits) GetItem(_ context.Context, id string) (*domain.KitItem, error) {
	item, ok := s.db.kitItems[id]
	if !ok {
		return nil, notFound("kit item")
	}
	return &item, nil
}

func (s memKits) ListItems(_ context.Context, kitID string) ([]*domain.KitItem, error) {
	return all(s.db.kitItems, func(i domain.KitItem) bool { return i.KitID == kitID }), nil
}

func (s memKits) UpdateItem(_ context.Context, item *domain.KitItem) error {
	s.db.kitItems[item.ID] = *item
	return nil
}

func (s memKits) DeleteItem(_ context.Context, id string) error {
	delete(s.db.kitItems, id)
	return nil
}

// audit and notifications

type memAudit struct{ db *memDB }

func (s memAudit) Create(_ context.Context, e *domain.AuditEntry) error {
	if s.db.failAudit {
		return errors.Internal("audit store unavailable")
	}
	e.ID = s.db.nextID("audit")
	e.CreatedAt = s.db.tick()
	s.db.audit = append(s.db.audit, *e)
	return nil
}

func (s memAudit) GetByID(_ context.Context, id string) (*domain.AuditEntry, error) {
	for _, e := range s.db.audit {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, notFound("audit entry")
}

func (s memAudit) List(_ context.Context, f repository.AuditFilter, _ repository.Page) ([]*domain.AuditEntry, int64, error) {
	out := []*domain.AuditEntry{}
	for i := range s.db.audit {
		e := s.db.audit[i]
		if (f.Model == "" || e.Model == f.Model) && (f.ObjectID == "" || e.ObjectID == f.ObjectID) {
			out = append(out, &e)
		}
	}
	return out, int64(len(out)), nil
}

type memNotifications struct{ db *memDB }

func (s memNotifications) Create(_ context.Context, n *domain.Notification) error {
	n.ID = s.db.nextID("notification")
	n.CreatedAt = s.db.tick()
	s.db.notifications[n.ID] = *n
	return nil
}

func (s memNotifications) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	n, ok := s.db.notifications[id]
	if !ok {
		return nil, notFound("notification")
	}
	return &n, nil
}

func (s memNotifications) ListForUser(_ context.Context, userID string, unreadOnly bool, _ repository.Page) ([]*domain.Notification, int64, error) {
	out := all(s.db.notifications, func(n domain.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.Read)
	})
	return out, int64(len(out)), nil
}

func (s memNotifications) MarkRead(_ context.Context, id string) error {
	n := s.db.notifications[id]
	n.Read = true
	s.db.notifications[id] = n
	return nil
}

type memDirectory struct{ db *memDB }

func (s memDirectory) IDsByRoles(_ context.Context, roles ...string) ([]string, error) {
	ids := []string{}
	for id, role := range s.db.userRoles {
		for _, r := range roles {
			if role == r {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memStorage struct {
	files map[string][]byte
}

func (s *memStorage) Store(_ context.Context, name string, data []byte) (string, error) {
	s.files[name] = data
	return "https://files.test/" + name, nil
}

// testEnv wires every service over one memDB

type testEnv struct {
	db     *memDB
	tx     *memTx
	events *testutil.MockPublisher
	mailer *testutil.MockMailer
	files  *memStorage

	audit         *AuditService
	notifications *NotificationService
	prices        *PriceHistoryService
	stock         *StockService
	alerts        *AlertService
	orders        *OrderService
	quotations    *QuotationService
	kits          *KitService
	catalog       *CatalogService
}

// newTestEnv builds the services. publisher defaults to a recording mock;
// pass a LocalBus to exercise consumers.
func newTestEnv(t *testing.T, publisher messaging.EventPublisher) *testEnv {
	t.Helper()
	log := logger.NewNop()
	db := newMemDB()
	env := &testEnv{
		db:     db,
		tx:     &memTx{db: db},
		events: testutil.NewMockPublisher(),
		mailer: &testutil.MockMailer{},
		files:  &memStorage{files: map[string][]byte{}},
	}
	if publisher == nil {
		publisher = env.events
	}
	pub := events.NewInventoryEventPublisher(publisher, log)
	now := func() time.Time { return db.clock }

	env.audit = NewAuditService(memAudit{db}, log)
	env.notifications = NewNotificationService(memNotifications{db}, memDirectory{db}, env.mailer, log)
	env.prices = NewPriceHistoryService(memPrices{db}, log)
	env.alerts = NewAlertService(env.tx, memProducts{db}, memAlerts{db}, env.audit, env.notifications, pub, log)
	env.alerts.now = now
	env.stock = NewStockService(env.tx, memProducts{db}, memEntries{db}, memExits{db}, memCounts{db}, memOrders{db},
		env.audit, env.prices, env.alerts, pub, log)
	env.stock.now = now
	env.orders = NewOrderService(env.tx, memOrders{db}, memAlerts{db}, memProducts{db}, memEntries{db}, memQuotations{db},
		env.stock, env.audit, env.notifications, pub, log)
	env.alerts.SetOrderGenerator(env.orders)
	env.quotations = NewQuotationService(env.tx, memQuotations{db}, memOrders{db}, memProducts{db}, memSuppliers{db},
		env.audit, env.files, log)
	env.quotations.now = now
	env.kits = NewKitService(env.tx, memKits{db}, env.audit, log)
	env.catalog = NewCatalogService(env.tx, memProducts{db}, memLots{db}, memSuppliers{db}, memCategories{db}, memGeography{}, env.audit, log)
	env.catalog.now = now
	return env
}

// seedProduct stores a supplier, a lot and an enabled product priced at
// 1990 and returns the product id
func (e *testEnv) seedProduct(stock, minimum int) string {
	supplier := domain.Supplier{ID: e.db.nextID("supplier"), Name: "Ferretería Sur", RUT: "76.123.456-0", Email: "ventas@ferresur.cl"}
	e.db.suppliers[supplier.ID] = supplier
	lot := domain.Lot{ID: e.db.nextID("lot"), Code: "LOT-" + supplier.ID, SupplierID: &supplier.ID}
	e.db.lots[lot.ID] = lot
	p := domain.Product{
		ID:           e.db.nextID("product"),
		Name:         "Perno M8",
		SKU:          "PER-M8-" + lot.ID,
		Barcode:      "78000001",
		Price:        decimal.NewFromInt(1990),
		Stock:        stock,
		StockMinimum: minimum,
		LotID:        lot.ID,
		Enabled:      true,
	}
	e.db.products[p.ID] = p
	return p.ID
}

func (e *testEnv) supplierOf(productID string) string {
	return *e.db.lots[e.db.products[productID].LotID].SupplierID
}

func (e *testEnv) stockOf(productID string) int {
	return e.db.products[productID].Stock
}

func (e *testEnv) auditActions(model string) []string {
	var actions []string
	for _, a := range e.db.audit {
		if a.Model == model {
			actions = append(actions, a.Action)
		}
	}
	return actions
}

func (e *testEnv) openAlerts(productID string) []domain.Alert {
	var out []domain.Alert
	for _, a := range e.db.alerts {
		if a.ProductID == productID && a.IsOpen() {
			out = append(out, a)
		}
	}
	return out
}
