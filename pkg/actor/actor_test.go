package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	a := &Actor{ID: "u-1", Username: "jperez", Role: "INVENTARIO"}
	ctx := WithActor(context.Background(), a)
	assert.Equal(t, a, FromContext(ctx))
	assert.Equal(t, a, FromContextOrSystem(ctx))
}

func TestSystemActor(t *testing.T) {
	sys := FromContextOrSystem(context.Background())

	assert.True(t, sys.IsSystem())
	assert.Nil(t, sys.UserID())
	assert.Equal(t, "system", sys.String())

	var nilActor *Actor
	assert.True(t, nilActor.IsSystem())
}

func TestUserID(t *testing.T) {
	a := &Actor{ID: "u-1", Username: "jperez", Role: "ADMIN"}
	if assert.NotNil(t, a.UserID()) {
		assert.Equal(t, "u-1", *a.UserID())
	}
	assert.Equal(t, "jperez (ADMIN)", a.String())
}
