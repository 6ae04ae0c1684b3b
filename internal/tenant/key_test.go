package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	k, err := NewKey(" t1 ", "app")
	require.NoError(t, err)
	assert.Equal(t, "t1", k.TenantID)

	_, err = NewKey("t1", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKeyPath(t *testing.T) {
	k := Key{TenantID: "t1", AppID: "a1"}
	assert.Equal(t, "t1/a1/notifications_tokens/admin/tokens/u1", k.Path("notifications_tokens", "admin", "tokens", "u1"))
	assert.Equal(t, "t1/a1/subscriptions/u9", k.Path("subscriptions", "u9"))
	assert.Equal(t, "t1/a1", k.String())
}
