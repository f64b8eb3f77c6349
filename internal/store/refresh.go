package store

import (
	"context"
	"sync"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
)

// Refresher serialises browse refreshes for one view. Starting a refresh
// cancels the one still in flight; a superseded refresh returns a Canceled
// error and its rows are never handed back.
type Refresher struct {
	store *Store

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewRefresher returns a Refresher selecting through s.
func NewRefresher(s *Store) *Refresher {
	return &Refresher{store: s}
}

// Refresh runs Select for params, superseding any earlier Refresh.
func (r *Refresher) Refresh(ctx context.Context, params model.QueryParameters) (*model.ResultSet, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	r.cancel = cancel
	r.mu.Unlock()

	rs, err := r.store.Select(ctx, params)

	r.mu.Lock()
	current := gen == r.gen
	if current {
		r.cancel = nil
	}
	r.mu.Unlock()

	if !current {
		return nil, errs.New(errs.ErrKindCanceled, "refresh superseded by a newer request")
	}
	return rs, err
}

// Cancel aborts the refresh in flight, if any.
func (r *Refresher) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
}
