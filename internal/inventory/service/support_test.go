package service

import (
	"context"
	"testing"

	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/repository"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/permissions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecord_AttributesActor(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.audit.RecordUpdate(userCtx("u9"), domain.ModelLot, "lot-1", "lot renamed"))
	require.NoError(t, env.audit.RecordDelete(context.Background(), domain.ModelLot, "lot-1", "lot deleted"))

	entries, total, err := env.audit.List(context.Background(), repository.AuditFilter{Model: domain.ModelLot}, repository.Page{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, "u9", *entries[0].UserID)
	assert.Equal(t, domain.AuditUpdate, entries[0].Action)
	assert.Nil(t, entries[1].UserID, "system actions have no user")

	got, err := env.audit.Get(context.Background(), entries[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "lot deleted", got.Description)
}

func TestAuditRecord_WrapsStoreError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.db.failAudit = true

	err := env.audit.RecordCreate(context.Background(), domain.ModelKit, "kit-1", "created")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit create kit kit-1")
	assert.True(t, errors.Is(err, errors.ErrInternal))
}

func TestPriceHistory_SkipsUnchangedPrice(t *testing.T) {
	env := newTestEnv(t, nil)

	first, added, err := env.prices.Record(context.Background(), "p1", "s1", decimal.RequireFromString("1500.00"))
	require.NoError(t, err)
	assert.True(t, added)

	same, added, err := env.prices.Record(context.Background(), "p1", "s1", decimal.NewFromInt(1500))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, first.ID, same.ID)

	_, added, err = env.prices.Record(context.Background(), "p1", "s2", decimal.NewFromInt(1500))
	require.NoError(t, err)
	assert.True(t, added, "another supplier has its own history")

	_, added, err = env.prices.Record(context.Background(), "p1", "s1", decimal.NewFromInt(1600))
	require.NoError(t, err)
	assert.True(t, added)
	_, added, err = env.prices.Record(context.Background(), "p1", "s1", decimal.NewFromInt(1500))
	require.NoError(t, err)
	assert.True(t, added, "returning to an older price is a change")

	assert.Len(t, env.db.prices, 4)
}

func TestPriceHistory_RejectsNonPositive(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.prices.Record(context.Background(), "p1", "s1", decimal.Zero)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Empty(t, env.db.prices)
}

func TestNotifyRoles(t *testing.T) {
	env := newTestEnv(t, nil)
	env.db.userRoles["a"] = permissions.RoleAdmin
	env.db.userRoles["b"] = permissions.RoleLogistica
	env.db.userRoles["c"] = permissions.RoleInventario

	n, err := env.notifications.NotifyRoles(context.Background(), "hello", permissions.RoleAdmin, permissions.RoleInventario)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, total, err := env.notifications.ListForUser(context.Background(), "b", false, repository.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestMarkRead_OnlyOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.notifications.Notify(context.Background(), "owner", "stock low"))
	var id string
	for k := range env.db.notifications {
		id = k
	}

	_, err := env.notifications.MarkRead(context.Background(), id, "intruder")
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	assert.False(t, env.db.notifications[id].Read)

	n, err := env.notifications.MarkRead(context.Background(), id, "owner")
	require.NoError(t, err)
	assert.True(t, n.Read)

	n, err = env.notifications.MarkRead(context.Background(), id, "owner")
	require.NoError(t, err)
	assert.True(t, n.Read)

	unread, _, err := env.notifications.ListForUser(context.Background(), "owner", true, repository.Page{})
	require.NoError(t, err)
	assert.Empty(t, unread)
}
