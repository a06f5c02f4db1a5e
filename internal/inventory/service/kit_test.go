package service

import (
	"context"
	"testing"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateKit(t *testing.T) {
	env := newTestEnv(t, nil)
	bolt := env.seedProduct(10, 2)
	nut := env.seedProduct(10, 2)

	kit, err := env.kits.CreateKit(context.Background(), KitInput{
		Name:  "  Kit anclaje ",
		Items: []KitItemInput{{ProductID: bolt, Quantity: 4}, {ProductID: nut, Quantity: 8}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Kit anclaje", kit.Name)
	assert.Len(t, kit.Items, 2)
	assert.Equal(t, []string{domain.AuditCreate}, env.auditActions(domain.ModelKit))
}

func TestCreateKit_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	bolt := env.seedProduct(10, 2)

	tests := []struct {
		name string
		in   KitInput
		want error
	}{
		{"blank name", KitInput{Name: "  "}, errors.ErrValidation},
		{"zero quantity", KitInput{Name: "K", Items: []KitItemInput{{ProductID: bolt, Quantity: 0}}}, errors.ErrValidation},
		{"unknown product", KitInput{Name: "K", Items: []KitItemInput{{ProductID: "missing", Quantity: 1}}}, errors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.kits.CreateKit(context.Background(), tt.in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, env.db.kits)
			assert.Empty(t, env.db.kitItems)
		})
	}
}

func TestCreateKit_NameIsUnique(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.kits.CreateKit(context.Background(), KitInput{Name: "Kit soldadura"})
	require.NoError(t, err)
	_, err = env.kits.CreateKit(context.Background(), KitInput{Name: "KIT SOLDADURA"})
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
}

func TestKitItems(t *testing.T) {
	env := newTestEnv(t, nil)
	bolt := env.seedProduct(10, 2)
	nut := env.seedProduct(10, 2)
	washer := env.seedProduct(10, 2)

	kit, err := env.kits.CreateKit(context.Background(), KitInput{Name: "Kit", Items: []KitItemInput{{ProductID: bolt, Quantity: 1}}})
	require.NoError(t, err)

	_, err = env.kits.AddItem(context.Background(), kit.ID, KitItemInput{ProductID: bolt, Quantity: 2})
	assert.True(t, errors.Is(err, errors.ErrDuplicate))

	nutItem, err := env.kits.AddItem(context.Background(), kit.ID, KitItemInput{ProductID: nut, Quantity: 2})
	require.NoError(t, err)

	_, err = env.kits.UpdateItem(context.Background(), nutItem.ID, KitItemInput{ProductID: bolt, Quantity: 2})
	assert.True(t, errors.Is(err, errors.ErrDuplicate))

	updated, err := env.kits.UpdateItem(context.Background(), nutItem.ID, KitItemInput{ProductID: nut, Quantity: 6})
	require.NoError(t, err, "keeping the same product is not a duplicate")
	assert.Equal(t, 6, updated.Quantity)

	_, err = env.kits.UpdateItem(context.Background(), nutItem.ID, KitItemInput{ProductID: washer, Quantity: 6})
	require.NoError(t, err)

	require.NoError(t, env.kits.RemoveItem(context.Background(), nutItem.ID))
	got, err := env.kits.Get(context.Background(), kit.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	require.NoError(t, env.kits.Delete(context.Background(), kit.ID))
	assert.Empty(t, env.db.kits)
	assert.Empty(t, env.db.kitItems)
}
