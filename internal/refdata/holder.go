package refdata

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/countsheet/internal/core"
	"github.com/JonMunkholm/countsheet/internal/logging"
)

// Loader produces a fresh Reference from its source.
type Loader interface {
	Load(ctx context.Context) (*core.Reference, error)
}

// Holder keeps the current Reference. Readers never block; a reload builds a
// new Reference and swaps it in whole, so a run that already picked up the
// old one keeps using it.
type Holder struct {
	loader  Loader
	current atomic.Pointer[core.Reference]
	reload  sync.Mutex
}

// NewHolder creates a Holder. Call Reload to populate it.
func NewHolder(loader Loader) *Holder {
	return &Holder{loader: loader}
}

// Current returns the loaded Reference, or nil before the first successful
// load.
func (h *Holder) Current() *core.Reference {
	return h.current.Load()
}

// Reload loads the reference data again. On failure the previous data stays
// in place.
func (h *Holder) Reload(ctx context.Context) (*core.Reference, error) {
	h.reload.Lock()
	defer h.reload.Unlock()

	start := time.Now()
	ref, err := h.loader.Load(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("reference reload failed", "error", err)
		return nil, err
	}
	h.current.Store(ref)

	s := StatsOf(ref)
	logging.FromContext(ctx).Info("reference data loaded",
		"source", s.Source,
		"products", s.Products,
		"stores", s.Stores,
		"brand_column", s.HasBrand,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ref, nil
}

// Stats summarizes a Reference for health output.
type Stats struct {
	Loaded   bool      `json:"loaded"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
	Products int       `json:"products"`
	Stores   int       `json:"stores"`
	HasBrand bool      `json:"brand_column"`
	HasNames bool      `json:"store_names"`
}

// StatsOf returns the Stats of ref, which may be nil.
func StatsOf(ref *core.Reference) Stats {
	if ref == nil {
		return Stats{}
	}
	return Stats{
		Loaded:   true,
		Source:   ref.Source,
		LoadedAt: ref.LoadedAt,
		Products: ref.Catalog.Len(),
		Stores:   ref.Stores.Len(),
		HasBrand: ref.Catalog.HasBrand(),
		HasNames: ref.Stores.HasName(),
	}
}
