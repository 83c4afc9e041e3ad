package source

import (
	"context"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/logging"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

var log = logging.For("source")

// Source is an event-source collaborator: something that exposes buckets of
// timestamped events, like ActivityWatch or the built-in native sampler.
// Implementations must treat unreachable backends as recoverable: callers see
// an error and skip the cycle, never crash.
type Source interface {
	// CheckConnection verifies the backend is reachable.
	CheckConnection(ctx context.Context) error
	// Buckets lists every event stream the backend currently exposes.
	Buckets(ctx context.Context) ([]types.Bucket, error)
	// Events returns the events of one bucket within [start, end).
	Events(ctx context.Context, bucketID string, start, end time.Time) ([]types.RawEvent, error)
}

// Batch is one poll's worth of raw events, grouped by category.
type Batch struct {
	Window []types.RawEvent
	Idle   []types.RawEvent
	Web    []types.RawEvent
}

// Total returns the number of events across all categories.
func (b Batch) Total() int {
	return len(b.Window) + len(b.Idle) + len(b.Web)
}

// Adapter pairs a Source with a bucket Resolver and produces per-category
// event batches for a time range. A missing bucket for a category means that
// feature is unavailable on this host; the batch simply has no events for it.
type Adapter struct {
	source   Source
	resolver *Resolver
}

// NewAdapter creates an adapter over the given source.
func NewAdapter(src Source) *Adapter {
	return &Adapter{source: src, resolver: NewResolver(src)}
}

// Resolver exposes the adapter's bucket resolver, mainly for diagnostics.
func (a *Adapter) Resolver() *Resolver { return a.resolver }

// CheckConnection proxies to the underlying source.
func (a *Adapter) CheckConnection(ctx context.Context) error {
	return a.source.CheckConnection(ctx)
}

// Fetch collects window, idle, and web events for [start, end). Source
// failures for a single category degrade to an empty slice; only a totally
// unreachable source returns an error so the caller can skip the cycle.
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) (Batch, error) {
	if err := a.source.CheckConnection(ctx); err != nil {
		return Batch{}, err
	}

	var batch Batch
	for _, cat := range []types.EventCategory{types.CategoryWindow, types.CategoryIdle, types.CategoryWeb} {
		bucket := a.resolver.Active(ctx, cat)
		if bucket == nil {
			log.Debugf("no %s bucket available", cat)
			continue
		}
		events, err := a.source.Events(ctx, bucket.ID, start, end)
		if err != nil {
			log.Warnf("fetch %s events from %s: %v", cat, bucket.ID, err)
			continue
		}
		for i := range events {
			events[i].Category = cat
		}
		switch cat {
		case types.CategoryWindow:
			batch.Window = events
		case types.CategoryIdle:
			batch.Idle = events
		case types.CategoryWeb:
			batch.Web = events
		}
	}
	return batch, nil
}
