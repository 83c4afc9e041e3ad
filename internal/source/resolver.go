package source

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// Bucket type strings as reported by ActivityWatch-compatible sources. The
// web type is a prefix: browsers report variants like "web.tab.current".
const (
	bucketTypeWindow    = "currentwindow"
	bucketTypeAFK       = "afkstatus"
	bucketTypeWebPrefix = "web.tab.current"
)

// Resolver picks the active bucket per event category. When several hosts
// report to one source, the bucket with the newest LastUpdated wins. The
// winning mapping is cached and only re-resolved after it ages out of the
// cache; staleness over minutes is acceptable here.
type Resolver struct {
	source Source
	cache  *gocache.Cache
}

// NewResolver creates a resolver over the given source.
func NewResolver(src Source) *Resolver {
	return &Resolver{
		source: src,
		cache:  gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// Active returns the most recently updated bucket for a category, or nil when
// the source exposes none. Absence is not an error: callers treat it as the
// feature being unavailable on this host.
func (r *Resolver) Active(ctx context.Context, cat types.EventCategory) *types.Bucket {
	if cached, ok := r.cache.Get(string(cat)); ok {
		b := cached.(types.Bucket)
		return &b
	}

	buckets, err := r.source.Buckets(ctx)
	if err != nil {
		log.Warnf("list buckets: %v", err)
		return nil
	}

	var best *types.Bucket
	for i := range buckets {
		b := buckets[i]
		if !categoryMatches(cat, b.Category) {
			continue
		}
		if best == nil || b.LastUpdated.After(best.LastUpdated) {
			best = &b
		}
	}
	if best == nil {
		return nil
	}

	r.cache.SetDefault(string(cat), *best)
	log.Debugf("resolved %s bucket: %s (host %s)", cat, best.ID, best.Hostname)
	return best
}

// Invalidate drops the cached mapping for a category, forcing re-resolution
// on the next poll.
func (r *Resolver) Invalidate(cat types.EventCategory) {
	r.cache.Delete(string(cat))
}

func categoryMatches(cat types.EventCategory, bucketType string) bool {
	switch cat {
	case types.CategoryWindow:
		return bucketType == bucketTypeWindow
	case types.CategoryIdle:
		return bucketType == bucketTypeAFK
	case types.CategoryWeb:
		return strings.HasPrefix(bucketType, bucketTypeWebPrefix)
	}
	return false
}
