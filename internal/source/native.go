package source

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// Native is a fallback event source for hosts without an external tracker.
// It approximates the foreground application by sampling the busiest user
// process at poll time, so its granularity equals the poll interval. It
// exposes a single window bucket; idle and web categories are absent, which
// downstream code treats as feature-unavailable.
type Native struct {
	hostname string
}

// NewNative creates the native sampler source.
func NewNative() *Native {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Native{hostname: host}
}

// CheckConnection always succeeds: the sampler runs in-process.
func (n *Native) CheckConnection(ctx context.Context) error {
	return nil
}

// Buckets exposes the single native window bucket.
func (n *Native) Buckets(ctx context.Context) ([]types.Bucket, error) {
	return []types.Bucket{{
		ID:          fmt.Sprintf("native-sampler_%s", n.hostname),
		Category:    bucketTypeWindow,
		Hostname:    n.hostname,
		LastUpdated: time.Now().UTC(),
	}}, nil
}

// Events samples the busiest process and reports one window event spanning
// the requested range.
func (n *Native) Events(ctx context.Context, bucketID string, start, end time.Time) ([]types.RawEvent, error) {
	app, err := n.busiestProcess(ctx)
	if err != nil {
		return nil, err
	}
	if app == "" {
		return nil, nil
	}
	return []types.RawEvent{{
		Timestamp: start,
		Duration:  end.Sub(start),
		Attributes: types.EventAttributes{
			App:   app,
			Title: app,
		},
	}}, nil
}

// busiestProcess returns the name of the user process with the highest CPU
// share, skipping kernel threads and this process itself.
func (n *Native) busiestProcess(ctx context.Context) (string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("list processes: %w", err)
	}

	self := int32(os.Getpid())
	var bestName string
	var bestCPU float64
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		if strings.HasPrefix(name, "k") && strings.Contains(name, "worker") {
			continue
		}
		cpu, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		if cpu > bestCPU {
			bestCPU = cpu
			bestName = name
		}
	}
	return bestName, nil
}
