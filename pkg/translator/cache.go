package translator

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"

	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

type cacheKey struct {
	fingerprint uint64
	flags       uint8
}

type cacheEntry struct {
	kernel      *ir.Kernel
	diagnostics []Diagnostic
}

// Cache reuses translations of identical kernels. Kernels returned from a
// cache are shared and must not be modified. It is safe for concurrent use.
type Cache struct {
	entries *lru.ARCCache
}

func NewCache(size int) (*Cache, error) {
	entries, err := lru.NewARC(size)
	if err != nil { return nil, fmt.Errorf("creating translation cache: %w", err) }
	return &Cache{entries: entries}, nil
}

// Translate returns the cached translation of k under the same options, or
// translates it and stores the result. The diagnostics of the original
// translation are replayed on a hit. The second result reports a hit.
func (c *Cache) Translate(k *ptx.Kernel, opts ...Option) (*ir.Kernel, bool, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	key := cacheKey{fingerprint: k.Fingerprint(), flags: o.flags()}
	if v, ok := c.entries.Get(key); ok {
		e := v.(*cacheEntry)
		if o.diagnostics != nil {
			for _, d := range e.diagnostics {
				o.diagnostics(d)
			}
		}
		return e.kernel, true, nil
	}

	g, err := buildGraph(k)
	if err != nil { return nil, false, err }
	entry := &cacheEntry{}
	forward := o.diagnostics
	o.diagnostics = func(d Diagnostic) {
		entry.diagnostics = append(entry.diagnostics, d)
		if forward != nil { forward(d) }
	}
	out, err := translate(k.Name, g, o)
	if err != nil { return nil, false, err }
	entry.kernel = out
	c.entries.Add(key, entry)
	return out, false, nil
}

func (c *Cache) Len() int { return c.entries.Len() }

// TranslateAll translates kernels concurrently, at most limit at a time.
// Results are in the order of kernels. The first failure cancels the rest.
// cache may be nil.
func TranslateAll(ctx context.Context, kernels []*ptx.Kernel, limit int, cache *Cache, opts ...Option) ([]*ir.Kernel, error) {
	out := make([]*ir.Kernel, len(kernels))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 { g.SetLimit(limit) }
	for i, k := range kernels {
		i, k := i, k
		g.Go(func() error {
			if err := gctx.Err(); err != nil { return err }
			var (
				res *ir.Kernel
				err error
			)
			if cache != nil {
				res, _, err = cache.Translate(k, opts...)
			} else {
				res, err = Translate(k, opts...)
			}
			if err != nil { return err }
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil { return nil, err }
	return out, nil
}
