// Package tenant holds the two-level (tenant, app) partition key every
// persisted entity is scoped under.
package tenant

import (
	"errors"
	"strings"
)

var ErrInvalidKey = errors.New("tenant: tenant id and app id are required")

// Key identifies one application instance of one tenant.
type Key struct {
	TenantID string `json:"tenantId"`
	AppID    string `json:"appId"`
}

func NewKey(tenantID, appID string) (Key, error) {
	k := Key{TenantID: strings.TrimSpace(tenantID), AppID: strings.TrimSpace(appID)}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

func (k Key) Validate() error {
	if k.TenantID == "" || k.AppID == "" {
		return ErrInvalidKey
	}
	return nil
}

// Path renders the logical document path {tenantId}/{appId}/<segments...>.
func (k Key) Path(segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, k.TenantID, k.AppID)
	parts = append(parts, segments...)
	return strings.Join(parts, "/")
}

func (k Key) String() string {
	return k.TenantID + "/" + k.AppID
}
