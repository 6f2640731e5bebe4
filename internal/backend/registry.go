package backend

import (
	"context"
	"time"

	"github.com/nao1215/safarnama/internal/model"
)

const (
	// RateLimitCooldown is applied when an instance answers with HTTP 429.
	RateLimitCooldown = 60 * time.Second

	// FailureCooldown is applied when a health probe fails for any other
	// reason.
	FailureCooldown = 24 * time.Hour
)

// Store persists backend instances. *database.CrawlDB implements it.
type Store interface {
	UpsertInstance(ctx context.Context, inst *model.BackendInstance) error
	GetInstance(ctx context.Context, rawURL string) (*model.BackendInstance, error)
	ListInstances(ctx context.Context) ([]model.BackendInstance, error)
	ListAvailable(ctx context.Context, now time.Time) ([]model.BackendInstance, error)
	RefreshPriorities(ctx context.Context) error
	SetSleepUntil(ctx context.Context, rawURL string, t time.Time) error
	ClearSleep(ctx context.Context, rawURL string) error
	ClearAllSleep(ctx context.Context) (int64, error)
}

// Registry is the only writer of instance priority and cooldown.
type Registry struct {
	store Store
	now   func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock replaces time.Now, which lets tests move time forward.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a Registry over store.
func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the registry clock.
func (r *Registry) Now() time.Time {
	return r.now()
}

// RefreshPriorities recomputes every priority as 100 - uptime.
func (r *Registry) RefreshPriorities(ctx context.Context) error {
	return r.store.RefreshPriorities(ctx)
}

// ListAvailable returns the instances out of cooldown, most preferred first.
func (r *Registry) ListAvailable(ctx context.Context) ([]model.BackendInstance, error) {
	return r.store.ListAvailable(ctx, r.now())
}

// List returns every instance, most preferred first.
func (r *Registry) List(ctx context.Context) ([]model.BackendInstance, error) {
	return r.store.ListInstances(ctx)
}

// Get returns the instance stored under rawURL, or nil.
func (r *Registry) Get(ctx context.Context, rawURL string) (*model.BackendInstance, error) {
	return r.store.GetInstance(ctx, rawURL)
}

// SetCooldown excludes the instance from selection for d.
func (r *Registry) SetCooldown(ctx context.Context, rawURL string, d time.Duration) error {
	return r.store.SetSleepUntil(ctx, rawURL, r.now().Add(d))
}

// ClearCooldown makes the instance available again.
func (r *Registry) ClearCooldown(ctx context.Context, rawURL string) error {
	return r.store.ClearSleep(ctx, rawURL)
}

// ResetCooldowns clears every cooldown and returns how many were set.
func (r *Registry) ResetCooldowns(ctx context.Context) (int64, error) {
	return r.store.ClearAllSleep(ctx)
}

// Upsert inserts inst or refreshes its metadata.
func (r *Registry) Upsert(ctx context.Context, inst *model.BackendInstance) error {
	return r.store.UpsertInstance(ctx, inst)
}

// Add registers an instance known only by URL. An existing instance is
// left untouched and false is returned.
func (r *Registry) Add(ctx context.Context, rawURL string) (bool, error) {
	if rawURL == "" {
		return false, ErrEmptyInstanceURL
	}
	existing, err := r.store.GetInstance(ctx, rawURL)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if err := r.store.UpsertInstance(ctx, &model.BackendInstance{URL: rawURL}); err != nil {
		return false, err
	}
	return true, nil
}
