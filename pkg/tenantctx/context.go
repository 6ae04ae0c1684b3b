package tenantctx

import (
	"context"

	"github.com/smallbiznis/ticketflow/internal/tenant"
)

type keyType string

const (
	TenantKey keyType = "tenant_key"
)

// WithKey stores the tenant partition key on the context.
func WithKey(ctx context.Context, key tenant.Key) context.Context {
	return context.WithValue(ctx, TenantKey, key)
}

func Key(ctx context.Context) (tenant.Key, bool) {
	if ctx == nil {
		return tenant.Key{}, false
	}
	key, ok := ctx.Value(TenantKey).(tenant.Key)
	return key, ok
}
