package tenantAuth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/store"
)

// CreateTenant registers a new tenant. The slug is lowercased and must be
// unused; it can never change afterwards.
func (e *Engine) CreateTenant(ctx context.Context, name, slug string) (info *TenantInfo, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("create_tenant", started, err) }()

	name = strings.TrimSpace(name)
	slug = model.NormalizeSlug(slug)
	if name == "" || slug == "" {
		return nil, ErrInvalidRequest
	}

	exists, err := e.repos.Tenants.TenantExistsBySlug(ctx, slug)
	if err != nil {
		return nil, unavailable(err)
	}
	if exists {
		return nil, ErrTenantAlreadyExists
	}

	t := model.NewTenant(name, slug, e.now())
	if err := e.repos.Tenants.CreateTenant(ctx, t); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrTenantAlreadyExists
		}
		return nil, unavailable(err)
	}

	e.emitAudit(ctx, auditEntry{
		eventType:  auditEventTenantCreated,
		tenantID:   t.ID,
		tenantSlug: t.Slug,
	})
	return tenantInfoOf(t), nil
}

// GetTenant looks a tenant up by slug.
func (e *Engine) GetTenant(ctx context.Context, slug string) (*TenantInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	t, err := e.findTenant(ctx, slug)
	if err != nil {
		return nil, err
	}
	return tenantInfoOf(t), nil
}

// SetTenantEnabled enables or disables a tenant. Users of a disabled tenant
// cannot log in or register.
func (e *Engine) SetTenantEnabled(ctx context.Context, slug string, enabled bool) (info *TenantInfo, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("set_tenant_enabled", started, err) }()

	t, err := e.findTenant(ctx, slug)
	if err != nil {
		return nil, err
	}
	if t.Enabled == enabled {
		return tenantInfoOf(t), nil
	}
	if enabled {
		t.Enable()
	} else {
		t.Disable()
	}
	if err := e.repos.Tenants.UpdateTenant(ctx, t); err != nil {
		return nil, unavailable(err)
	}

	e.emitAudit(ctx, auditEntry{
		eventType:  auditEventTenantStatusChange,
		tenantID:   t.ID,
		tenantSlug: t.Slug,
		metadata:   map[string]string{"enabled": strconv.FormatBool(enabled)},
	})
	return tenantInfoOf(t), nil
}

func (e *Engine) findTenant(ctx context.Context, slug string) (*model.Tenant, error) {
	slug = model.NormalizeSlug(slug)
	if slug == "" {
		return nil, ErrTenantNotFound
	}
	t, ok, err := e.repos.Tenants.FindTenantBySlug(ctx, slug)
	if err != nil {
		return nil, unavailable(err)
	}
	if !ok {
		return nil, ErrTenantNotFound
	}
	return t, nil
}
