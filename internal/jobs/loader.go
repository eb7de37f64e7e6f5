package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dot-hub/internal/metrics"
)

// Loader refreshes the cache from the jobs API and mirrors each load into the
// sqlite store.
type Loader struct {
	baseURL string
	client  *http.Client
	cache   *Cache
	store   *Store
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewLoader(baseURL string, client *http.Client, cache *Cache, store *Store, m *metrics.Metrics, log zerolog.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cache:   cache,
		store:   store,
		metrics: m,
		log:     log,
	}
}

// Warm fills the cache from the last persisted load. An empty store is not an
// error.
func (l *Loader) Warm(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm job cache: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	l.cache.Replace(records)
	l.metrics.JobsCached(l.cache.Len())
	l.log.Debug().Int("jobs", len(records)).Msg("job cache warmed from store")
	return len(records), nil
}

// Refresh fetches every job and swaps the cache. On failure the previous
// snapshot stays in place.
func (l *Loader) Refresh(ctx context.Context) (int, error) {
	records, err := l.fetch(ctx)
	if err != nil {
		l.metrics.JobRefresh("error")
		return 0, err
	}

	l.cache.Replace(records)
	l.metrics.JobsCached(l.cache.Len())
	l.metrics.JobRefresh("ok")

	if l.store != nil {
		if err := l.store.ReplaceAll(ctx, records); err != nil {
			l.log.Warn().Err(err).Msg("persist job load")
		}
	}
	l.log.Debug().Int("jobs", len(records)).Msg("job cache refreshed")
	return len(records), nil
}

func (l *Loader) fetch(ctx context.Context) ([]Record, error) {
	if l.baseURL == "" {
		return nil, fmt.Errorf("fetch jobs: no api url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/jobs/all", nil)
	if err != nil {
		return nil, fmt.Errorf("build jobs request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch jobs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return records, nil
}
