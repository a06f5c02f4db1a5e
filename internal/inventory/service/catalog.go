package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/validation"
	"github.com/shopspring/decimal"
)

// ProductInput creates a product
type ProductInput struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description"`
	Barcode      string          `json:"barcode" validate:"required,barcode"`
	SKU          string          `json:"sku" validate:"required,sku"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock" validate:"gte=0"`
	StockMinimum *int            `json:"stock_minimum,omitempty" validate:"omitempty,gte=0"`
	LotID        string          `json:"lot_id" validate:"required"`
	Enabled      *bool           `json:"enabled,omitempty"`
}

// ProductUpdate changes product attributes. Stock only moves through
// entries, exits and reconciliation.
type ProductUpdate struct {
	Name         *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description  *string          `json:"description,omitempty"`
	Barcode      *string          `json:"barcode,omitempty" validate:"omitempty,barcode"`
	SKU          *string          `json:"sku,omitempty" validate:"omitempty,sku"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	StockMinimum *int             `json:"stock_minimum,omitempty" validate:"omitempty,gte=0"`
	LotID        *string          `json:"lot_id,omitempty"`
	Enabled      *bool            `json:"enabled,omitempty"`
}

// LotInput creates or replaces a lot
type LotInput struct {
	Code            string     `json:"code" validate:"required,max=100"`
	SupplierID      *string    `json:"supplier_id,omitempty"`
	CategoryID      *string    `json:"category_id,omitempty"`
	ManufactureDate *time.Time `json:"manufacture_date,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	Notes           string     `json:"notes"`
}

// SupplierInput creates or replaces a supplier
type SupplierInput struct {
	Name     string  `json:"name" validate:"required,max=200"`
	RUT      string  `json:"rut" validate:"required,rut"`
	Email    string  `json:"email" validate:"required,email"`
	Address  string  `json:"address"`
	ComunaID *int    `json:"comuna_id,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// CategoryInput creates or replaces a category
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

// CatalogService manages products, lots, suppliers and categories
type CatalogService struct {
	tx         Transactor
	products   ProductStore
	lots       LotStore
	suppliers  SupplierStore
	categories CategoryStore
	geography  GeographyStore
	audit      *AuditService
	logger     *logger.Logger
	now        func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	tx Transactor,
	products ProductStore,
	lots LotStore,
	suppliers SupplierStore,
	categories CategoryStore,
	geography GeographyStore,
	audit *AuditService,
	log *logger.Logger,
) *CatalogService {
	return &CatalogService{
		tx:         tx,
		products:   products,
		lots:       lots,
		suppliers:  suppliers,
		categories: categories,
		geography:  geography,
		audit:      audit,
		logger:     log.WithComponent("catalog"),
		now:        time.Now,
	}
}

// CreateProduct creates a product. The minimum defaults to 20 and may
// not exceed the initial stock.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	details := map[string]string{}
	p := &domain.Product{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Price:        in.Price,
		Stock:        in.Stock,
		StockMinimum: domain.DefaultStockMinimum,
		LotID:        in.LotID,
		Enabled:      true,
	}
	if in.StockMinimum != nil {
		p.StockMinimum = *in.StockMinimum
	}
	if in.Enabled != nil {
		p.Enabled = *in.Enabled
	}

	if p.Name == "" {
		details["name"] = "is required"
	}
	if res := validation.ValidateBarcode(in.Barcode); !res.Valid {
		details["barcode"] = res.Message
	} else {
		p.Barcode = res.Formatted
	}
	if res := validation.ValidateSKU(in.SKU); !res.Valid {
		details["sku"] = res.Message
	} else {
		p.SKU = res.Formatted
	}
	if res := validation.ValidatePrice(p.Price); !res.Valid {
		details["price"] = res.Message
	}
	if res := validation.ValidateStock(p.Stock); !res.Valid {
		details["stock"] = res.Message
	}
	if p.StockMinimum < 0 {
		details["stock_minimum"] = "must not be negative"
	} else if p.StockMinimum > p.Stock {
		details["stock_minimum"] = "must not exceed the initial stock"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.lots.GetByID(ctx, p.LotID); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.ValidationField("lot_id", "lot does not exist")
			}
			return err
		}
		if err := s.products.Create(ctx, p); err != nil {
			return err
		}
		return s.audit.RecordCreate(ctx, domain.ModelProduct, p.ID, fmt.Sprintf("product %s (%s) created with stock %d", p.Name, p.SKU, p.Stock))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("product_id", p.ID).Str("sku", p.SKU).Msg("product created")
	return p, nil
}

// UpdateProduct applies the given changes to a product
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (*domain.Product, error) {
	var p *domain.Product
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.products.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}

		details := map[string]string{}
		if in.Name != nil {
			if name := strings.TrimSpace(*in.Name); name == "" {
				details["name"] = "is required"
			} else {
				p.Name = name
			}
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.Barcode != nil {
			if res := validation.ValidateBarcode(*in.Barcode); !res.Valid {
				details["barcode"] = res.Message
			} else {
				p.Barcode = res.Formatted
			}
		}
		if in.SKU != nil {
			if res := validation.ValidateSKU(*in.SKU); !res.Valid {
				details["sku"] = res.Message
			} else {
				p.SKU = res.Formatted
			}
		}
		if in.Price != nil {
			if res := validation.ValidatePrice(*in.Price); !res.Valid {
				details["price"] = res.Message
			} else {
				p.Price = *in.Price
			}
		}
		if in.StockMinimum != nil {
			if *in.StockMinimum < 0 {
				details["stock_minimum"] = "must not be negative"
			} else {
				p.StockMinimum = *in.StockMinimum
			}
		}
		if in.LotID != nil {
			p.LotID = *in.LotID
		}
		if in.Enabled != nil {
			p.Enabled = *in.Enabled
		}
		if len(details) > 0 {
			return errors.Validation(details)
		}

		if err := s.products.Update(ctx, p); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelProduct, p.ID, "product "+p.Name+" updated")
	})
	if err != nil {
		return nil, err
	}
	return s.products.GetByID(ctx, id)
}

// DeleteProduct deletes a product without stock
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.products.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Stock > 0 {
			return errors.StateConflict("a product with stock cannot be deleted")
		}
		if err := s.products.Delete(ctx, p.ID); err != nil {
			return err
		}
		return s.audit.RecordDelete(ctx, domain.ModelProduct, p.ID, fmt.Sprintf("product %s (%s) deleted", p.Name, p.SKU))
	})
}

// GetProduct returns a single product
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// LookupProduct finds a product by scanned barcode or SKU
func (s *CatalogService) LookupProduct(ctx context.Context, code string) (*domain.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.BadRequest("code is required")
	}
	if len(code) > 64 {
		return nil, errors.BadRequest("code too long")
	}
	return s.products.GetByCode(ctx, code)
}

// ListProducts lists products by name
func (s *CatalogService) ListProducts(ctx context.Context, f repository.ProductFilter, page repository.Page) ([]*domain.Product, int64, error) {
	return s.products.List(ctx, f, page)
}

// CreateLot creates a lot
func (s *CatalogService) CreateLot(ctx context.Context, in LotInput) (*domain.Lot, error) {
	l := &domain.Lot{}
	if err := s.applyLot(l, in); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lots.Create(ctx, l); err != nil {
			return err
		}
		return s.audit.RecordCreate(ctx, domain.ModelLot, l.ID, "lot "+l.Code+" created")
	})
	if err != nil {
		return nil, err
	}
	return s.lots.GetByID(ctx, l.ID)
}

// UpdateLot replaces a lot's attributes
func (s *CatalogService) UpdateLot(ctx context.Context, id string, in LotInput) (*domain.Lot, error) {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		l, err := s.lots.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.applyLot(l, in); err != nil {
			return err
		}
		if err := s.lots.Update(ctx, l); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelLot, l.ID, "lot "+l.Code+" updated")
	})
	if err != nil {
		return nil, err
	}
	return s.lots.GetByID(ctx, id)
}

func (s *CatalogService) applyLot(l *domain.Lot, in LotInput) error {
	details := validation.ValidateLotDates(in.ManufactureDate, in.ExpiryDate, s.now())
	if details == nil {
		details = map[string]string{}
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		details["code"] = "is required"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	l.Code = code
	l.SupplierID = in.SupplierID
	l.CategoryID = in.CategoryID
	l.ManufactureDate = in.ManufactureDate
	l.ExpiryDate = in.ExpiryDate
	l.Notes = in.Notes
	return nil
}

// DeleteLot deletes a lot no product belongs to
func (s *CatalogService) DeleteLot(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		l, err := s.lots.GetByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.lots.CountProducts(ctx, l.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return errors.StateConflict(fmt.Sprintf("lot has %d products and cannot be deleted", n))
		}
		if err := s.lots.Delete(ctx, l.ID); err != nil {
			return err
		}
		return s.audit.RecordDelete(ctx, domain.ModelLot, l.ID, "lot "+l.Code+" deleted")
	})
}

// GetLot returns a single lot
func (s *CatalogService) GetLot(ctx context.Context, id string) (*domain.Lot, error) {
	return s.lots.GetByID(ctx, id)
}

// ListLots lists lots, optionally of one supplier
func (s *CatalogService) ListLots(ctx context.Context, supplierID string, page repository.Page) ([]*domain.Lot, int64, error) {
	return s.lots.List(ctx, supplierID, page)
}

// CreateSupplier creates a supplier with a formatted RUT
func (s *CatalogService) CreateSupplier(ctx context.Context, in SupplierInput) (*domain.Supplier, error) {
	sup := &domain.Supplier{}
	if err := applySupplier(sup, in); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.suppliers.Create(ctx, sup); err != nil {
			return err
		}
		return s.audit.RecordCreate(ctx, domain.ModelSupplier, sup.ID, fmt.Sprintf("supplier %s (%s) created", sup.Name, sup.RUT))
	})
	if err != nil {
		return nil, err
	}
	return sup, nil
}

// UpdateSupplier replaces a supplier's attributes
func (s *CatalogService) UpdateSupplier(ctx context.Context, id string, in SupplierInput) (*domain.Supplier, error) {
	var sup *domain.Supplier
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		sup, err = s.suppliers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := applySupplier(sup, in); err != nil {
			return err
		}
		if err := s.suppliers.Update(ctx, sup); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelSupplier, sup.ID, "supplier "+sup.Name+" updated")
	})
	if err != nil {
		return nil, err
	}
	return sup, nil
}

func applySupplier(sup *domain.Supplier, in SupplierInput) error {
	details := map[string]string{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		details["name"] = "is required"
	}
	rut := validation.ValidateRUT(in.RUT)
	if !rut.Valid {
		details["rut"] = rut.Message
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		details["email"] = "is required"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}

	sup.Name = name
	sup.RUT = rut.Formatted
	sup.Email = email
	sup.Address = in.Address
	sup.ComunaID = in.ComunaID
	sup.Phone = nil
	if in.Phone != nil && strings.TrimSpace(*in.Phone) != "" {
		phone := validation.NormalizePhone(*in.Phone)
		sup.Phone = &phone
	}
	return nil
}

// DeleteSupplier deletes a supplier nothing references
func (s *CatalogService) DeleteSupplier(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		sup, err := s.suppliers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.suppliers.CountReferences(ctx, sup.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return errors.StateConflict("supplier is referenced by lots, entries or orders and cannot be deleted")
		}
		if err := s.suppliers.Delete(ctx, sup.ID); err != nil {
			return err
		}
		return s.audit.RecordDelete(ctx, domain.ModelSupplier, sup.ID, "supplier "+sup.Name+" deleted")
	})
}

// GetSupplier returns a single supplier
func (s *CatalogService) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	return s.suppliers.GetByID(ctx, id)
}

// ListSuppliers lists suppliers by name
func (s *CatalogService) ListSuppliers(ctx context.Context, search string, page repository.Page) ([]*domain.Supplier, int64, error) {
	return s.suppliers.List(ctx, search, page)
}

// CreateCategory creates a category
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.ValidationField("name", "is required")
	}
	c := &domain.Category{Name: name, Description: in.Description}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.categories.Create(ctx, c); err != nil {
			return err
		}
		return s.audit.RecordCreate(ctx, domain.ModelCategory, c.ID, "category "+c.Name+" created")
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory replaces a category's attributes
func (s *CatalogService) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.ValidationField("name", "is required")
	}

	var c *domain.Category
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.categories.GetByID(ctx, id)
		if err != nil {
			return err
		}
		c.Name = name
		c.Description = in.Description
		if err := s.categories.Update(ctx, c); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelCategory, c.ID, "category "+c.Name+" updated")
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory deletes a category no lot uses
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.categories.GetByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.categories.CountLots(ctx, c.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return errors.StateConflict(fmt.Sprintf("category is used by %d lots and cannot be deleted", n))
		}
		if err := s.categories.Delete(ctx, c.ID); err != nil {
			return err
		}
		return s.audit.RecordDelete(ctx, domain.ModelCategory, c.ID, "category "+c.Name+" deleted")
	})
}

// GetCategory returns a single category
func (s *CatalogService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// ListCategories lists categories by name
func (s *CatalogService) ListCategories(ctx context.Context, page repository.Page) ([]*domain.Category, int64, error) {
	return s.categories.List(ctx, page)
}

// ListComunas lists the comunas with their city, region and country
func (s *CatalogService) ListComunas(ctx context.Context) ([]*domain.Comuna, error) {
	return s.geography.ListComunas(ctx)
}
