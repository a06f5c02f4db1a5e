package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
)

// KitItemInput is one product line of a kit
type KitItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// KitInput creates a kit with its items
type KitInput struct {
	Name        string         `json:"name" validate:"required,max=150"`
	Description string         `json:"description"`
	Items       []KitItemInput `json:"items" validate:"dive"`
}

// KitService assembles kits. A product appears at most once per kit.
type KitService struct {
	tx     Transactor
	kits   KitStore
	audit  *AuditService
	logger *logger.Logger
}

// NewKitService creates a new kit service
func NewKitService(tx Transactor, kits KitStore, audit *AuditService, log *logger.Logger) *KitService {
	return &KitService{
		tx:     tx,
		kits:   kits,
		audit:  audit,
		logger: log.WithComponent("kits"),
	}
}

// CreateKit creates the kit and all its items in one transaction.
// Duplicate products are rejected before anything is written.
func (s *KitService) CreateKit(ctx context.Context, in KitInput) (*domain.Kit, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.ValidationField("name", "is required")
	}
	seen := make(map[string]bool, len(in.Items))
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, errors.ValidationField(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
		if seen[item.ProductID] {
			return nil, errors.Duplicate(fmt.Sprintf("product %s appears more than once in the kit", item.ProductID))
		}
		seen[item.ProductID] = true
	}

	var kit *domain.Kit
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		k := &domain.Kit{Name: name, Description: in.Description}
		if err := s.kits.Create(ctx, k); err != nil {
			return err
		}
		for _, item := range in.Items {
			if err := s.kits.CreateItem(ctx, &domain.KitItem{KitID: k.ID, ProductID: item.ProductID, Quantity: item.Quantity}); err != nil {
				return err
			}
		}
		if err := s.audit.RecordCreate(ctx, domain.ModelKit, k.ID, fmt.Sprintf("kit %s created with %d items", name, len(in.Items))); err != nil {
			return err
		}

		var err error
		kit, err = s.kits.GetByID(ctx, k.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("kit_id", kit.ID).Int("items", len(kit.Items)).Msg("kit created")
	return kit, nil
}

// AddItem adds a product to a kit
func (s *KitService) AddItem(ctx context.Context, kitID string, in KitItemInput) (*domain.KitItem, error) {
	if in.Quantity <= 0 {
		return nil, errors.ValidationField("quantity", "must be greater than zero")
	}

	var item *domain.KitItem
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		kit, err := s.kits.GetByID(ctx, kitID)
		if err != nil {
			return err
		}
		if err := checkKitDuplicate(kit, in.ProductID, ""); err != nil {
			return err
		}

		item = &domain.KitItem{KitID: kit.ID, ProductID: in.ProductID, Quantity: in.Quantity}
		if err := s.kits.CreateItem(ctx, item); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelKit, kit.ID, fmt.Sprintf("added %d of product %s", in.Quantity, in.ProductID))
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem changes the product or quantity of a kit line
func (s *KitService) UpdateItem(ctx context.Context, itemID string, in KitItemInput) (*domain.KitItem, error) {
	if in.Quantity <= 0 {
		return nil, errors.ValidationField("quantity", "must be greater than zero")
	}

	var item *domain.KitItem
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.kits.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		kit, err := s.kits.GetByID(ctx, item.KitID)
		if err != nil {
			return err
		}
		if err := checkKitDuplicate(kit, in.ProductID, item.ID); err != nil {
			return err
		}

		item.ProductID = in.ProductID
		item.Quantity = in.Quantity
		if err := s.kits.UpdateItem(ctx, item); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelKit, kit.ID, fmt.Sprintf("item %s set to %d of product %s", item.ID, in.Quantity, in.ProductID))
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func checkKitDuplicate(kit *domain.Kit, productID, exceptItemID string) error {
	for _, existing := range kit.Items {
		if existing.ProductID == productID && existing.ID != exceptItemID {
			return errors.Duplicate(fmt.Sprintf("product %s is already in the kit", productID))
		}
	}
	return nil
}

// RemoveItem removes a line from a kit
func (s *KitService) RemoveItem(ctx context.Context, itemID string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		item, err := s.kits.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if err := s.kits.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		return s.audit.RecordUpdate(ctx, domain.ModelKit, item.KitID, "removed product "+item.ProductID)
	})
}

// Delete removes a kit and its items
func (s *KitService) Delete(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		kit, err := s.kits.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.kits.Delete(ctx, kit.ID); err != nil {
			return err
		}
		return s.audit.RecordDelete(ctx, domain.ModelKit, kit.ID, "kit "+kit.Name+" deleted")
	})
}

// Get returns a kit with its items
func (s *KitService) Get(ctx context.Context, id string) (*domain.Kit, error) {
	return s.kits.GetByID(ctx, id)
}

// List lists kits by name
func (s *KitService) List(ctx context.Context, page repository.Page) ([]*domain.Kit, int64, error) {
	return s.kits.List(ctx, page)
}
