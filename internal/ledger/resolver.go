package ledger

import (
	"context"
	"log"
	"sync"
)

// lookup is the point-read half of the ledger, split out so the resolver can
// be tested without DynamoDB.
type lookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Resolver classifies candidate finding IDs as new or already known, one
// concurrent point lookup per ID.
//
// The asymmetry is deliberate: a lookup that errors or finds nothing always
// resolves to "new". A duplicate import attempt is idempotent by ID; routing
// a first-time finding to the update path would silently drop it.
type Resolver struct {
	store lookup
	cache *Cache
}

func NewResolver(store *Store, cache *Cache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve returns the subset of ids that are already ledgered.
func (r *Resolver) Resolve(ctx context.Context, ids []string) map[string]struct{} {
	existing := make(map[string]struct{})

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()

			if r.cache.Seen(ctx, id) {
				mu.Lock()
				existing[id] = struct{}{}
				mu.Unlock()
				return
			}

			found, err := r.store.Exists(ctx, id)
			if err != nil {
				log.Printf("[warn] operation=resolve id=%q error=%v (treating as new)", id, err)
				return
			}
			if !found {
				return
			}

			r.cache.Mark(ctx, id)
			mu.Lock()
			existing[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return existing
}
