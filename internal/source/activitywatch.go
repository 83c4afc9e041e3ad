package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// ActivityWatch is a client for the ActivityWatch REST API (or anything
// speaking the same protocol). All requests carry a bounded timeout; a dead
// tracker costs one skipped cycle, never a hang.
type ActivityWatch struct {
	baseURL    string
	httpClient *http.Client
}

// NewActivityWatch creates a client for the tracker at baseURL, e.g.
// "http://localhost:5600".
func NewActivityWatch(baseURL string) *ActivityWatch {
	return &ActivityWatch{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// awBucket is the wire shape of one bucket entry.
type awBucket struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Hostname    string    `json:"hostname"`
	LastUpdated time.Time `json:"last_updated"`
}

// awEvent is the wire shape of one event. Duration is in seconds.
type awEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Duration  float64        `json:"duration"`
	Data      map[string]any `json:"data"`
}

// CheckConnection verifies the tracker responds to a bucket listing.
func (c *ActivityWatch) CheckConnection(ctx context.Context) error {
	_, err := c.fetchBuckets(ctx)
	return err
}

// Buckets lists all buckets the tracker exposes.
func (c *ActivityWatch) Buckets(ctx context.Context) ([]types.Bucket, error) {
	raw, err := c.fetchBuckets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Bucket, 0, len(raw))
	for id, b := range raw {
		if b.ID == "" {
			b.ID = id
		}
		out = append(out, types.Bucket{
			ID:          b.ID,
			Category:    b.Type,
			Hostname:    b.Hostname,
			LastUpdated: b.LastUpdated,
		})
	}
	return out, nil
}

// Events returns the events of one bucket within [start, end).
func (c *ActivityWatch) Events(ctx context.Context, bucketID string, start, end time.Time) ([]types.RawEvent, error) {
	endpoint := fmt.Sprintf("%s/api/0/buckets/%s/events?start=%s&end=%s",
		c.baseURL,
		url.PathEscape(bucketID),
		url.QueryEscape(start.UTC().Format(time.RFC3339)),
		url.QueryEscape(end.UTC().Format(time.RFC3339)),
	)

	var raw []awEvent
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	events := make([]types.RawEvent, 0, len(raw))
	for _, e := range raw {
		events = append(events, types.RawEvent{
			Timestamp:  e.Timestamp,
			Duration:   time.Duration(e.Duration * float64(time.Second)),
			Attributes: parseAttributes(e.Data),
		})
	}
	return events, nil
}

func (c *ActivityWatch) fetchBuckets(ctx context.Context) (map[string]awBucket, error) {
	var raw map[string]awBucket
	if err := c.getJSON(ctx, c.baseURL+"/api/0/buckets/", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *ActivityWatch) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tracker unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tracker returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseAttributes lifts the source's loose data map into the known attribute
// fields, keeping unrecognized string values in the Extra bag.
func parseAttributes(data map[string]any) types.EventAttributes {
	var attrs types.EventAttributes
	for k, v := range data {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "app":
			attrs.App = s
		case "title":
			attrs.Title = s
		case "url":
			attrs.URL = s
		case "status":
			attrs.Status = s
		default:
			if attrs.Extra == nil {
				attrs.Extra = make(map[string]string)
			}
			attrs.Extra[k] = s
		}
	}
	return attrs
}
