// Package productlist keeps a locally cached product list in the
// stale-while-revalidate manner: readers get the cached rows at once, fetches
// are deduplicated, and deletions are applied optimistically and rolled back
// when the backend refuses them.
package productlist

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
	"github.com/dmitrijs2005/foamyadmin/internal/logging"
)

const (
	DefaultDedupeInterval     = 5 * time.Second
	DefaultRevalidateInterval = 30 * time.Second
)

// Source is the backend side of the list.
type Source interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Option func(*List)

func WithLogger(l logging.Logger) Option {
	return func(pl *List) { pl.log = l }
}

// WithDedupeInterval sets how long a successful fetch satisfies Load.
func WithDedupeInterval(d time.Duration) Option {
	return func(pl *List) { pl.dedupe = d }
}

// WithActive makes the periodic revalidation skip ticks while active
// reports false, e.g. while nobody is logged in.
func WithActive(active func(ctx context.Context) bool) Option {
	return func(pl *List) { pl.active = active }
}

func withClock(now func() time.Time) Option {
	return func(pl *List) { pl.now = now }
}

type List struct {
	source Source
	log    logging.Logger
	dedupe time.Duration
	now    func() time.Time
	active func(ctx context.Context) bool

	mu        sync.Mutex
	items     []models.Product
	loaded    bool
	fetchedAt time.Time
}

func New(source Source, opts ...Option) *List {
	pl := &List{
		source: source,
		log:    logging.Nop(),
		dedupe: DefaultDedupeInterval,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Items returns a copy of the cached rows.
func (pl *List) Items() []models.Product {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return slices.Clone(pl.items)
}

// Load returns the cached rows when the last successful fetch is younger
// than the dedupe interval, and fetches otherwise.
func (pl *List) Load(ctx context.Context) ([]models.Product, error) {
	pl.mu.Lock()
	fresh := pl.loaded && pl.now().Sub(pl.fetchedAt) < pl.dedupe
	items := slices.Clone(pl.items)
	pl.mu.Unlock()

	if fresh {
		return items, nil
	}
	return pl.Revalidate(ctx)
}

// Revalidate fetches the list. On failure the cached rows stay in place and
// are returned together with the error.
func (pl *List) Revalidate(ctx context.Context) ([]models.Product, error) {
	items, err := pl.source.ListProducts(ctx)
	if err != nil {
		pl.log.Warn(ctx, "product list fetch failed", "error", err)
		return pl.Items(), err
	}
	if items == nil {
		items = []models.Product{}
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.items = slices.Clone(items)
	pl.loaded = true
	pl.fetchedAt = pl.now()
	return slices.Clone(pl.items), nil
}

// Delete removes the row at once and then asks the backend. After a refusal
// the list is fetched again to restore the row; when that fetch fails too,
// the rows from before the deletion are put back. The backend error is
// returned either way.
func (pl *List) Delete(ctx context.Context, id int64) error {
	pl.mu.Lock()
	snapshot := slices.Clone(pl.items)
	pl.items = slices.DeleteFunc(slices.Clone(pl.items), func(p models.Product) bool { return p.ID == id })
	pl.mu.Unlock()

	if err := pl.source.DeleteProduct(ctx, id); err != nil {
		pl.log.Warn(ctx, "delete rejected, restoring product list", "id", id, "error", err)
		if _, fetchErr := pl.Revalidate(ctx); fetchErr != nil {
			pl.mu.Lock()
			pl.items = snapshot
			pl.mu.Unlock()
		}
		return err
	}

	if _, err := pl.Revalidate(ctx); err != nil {
		pl.log.Warn(ctx, "revalidation after delete failed", "id", id, "error", err)
	}
	return nil
}

// Replace swaps in the edited version of a cached row.
func (pl *List) Replace(p models.Product) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for i := range pl.items {
		if pl.items[i].ID == p.ID {
			pl.items[i] = p
			return
		}
	}
}

// Insert appends a newly created product unless it is cached already.
func (pl *List) Insert(p models.Product) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if slices.ContainsFunc(pl.items, func(x models.Product) bool { return x.ID == p.ID }) {
		return
	}
	pl.items = append(pl.items, p)
}

// StartRevalidation re-fetches every interval until ctx is done. It blocks;
// run it in its own goroutine.
func (pl *List) StartRevalidation(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRevalidateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if pl.active != nil && !pl.active(ctx) {
				continue
			}
			_, _ = pl.Revalidate(ctx)
		case <-ctx.Done():
			return
		}
	}
}
