// Package jobs owns the local job cache: the in-memory snapshot the resolver
// reads, its sqlite persistence, and the loader that refreshes it.
package jobs

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("job not found")

// Cache is the in-memory job snapshot. Replace swaps the whole set, so readers
// always see one consistent load.
type Cache struct {
	mu     sync.RWMutex
	all    []Record
	byKey  map[string]Record
	loaded bool
}

func NewCache() *Cache {
	return &Cache{byKey: map[string]Record{}}
}

func (c *Cache) Replace(records []Record) {
	byKey := make(map[string]Record, len(records))
	all := make([]Record, 0, len(records))
	for _, r := range records {
		key := r.Key()
		if key == "" {
			continue
		}
		if _, dup := byKey[key]; dup {
			continue
		}
		byKey[key] = r
		all = append(all, r)
	}

	c.mu.Lock()
	c.all = all
	c.byKey = byKey
	c.loaded = true
	c.mu.Unlock()
}

func (c *Cache) Lookup(number string) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byKey[Normalize(number)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (c *Cache) Snapshot() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Record(nil), c.all...)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.all)
}

func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Clients lists the distinct client codes in the snapshot, sorted.
func (c *Cache) Clients() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, r := range c.all {
		if code := r.Client(); code != "" {
			seen[code] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Access describes which jobs a signed-in user may see.
type Access struct {
	Level  string
	Client string
}

const (
	LevelFull      = "Full"
	LevelClientWIP = "Client WIP"
)

// ClientFilter returns the client a user is restricted to, or "".
func (a Access) ClientFilter() string {
	client := strings.ToUpper(strings.TrimSpace(a.Client))
	if a.Level == LevelFull || client == "" || client == "ALL" {
		return ""
	}
	return client
}

// Filter keeps only the records visible at this access level.
func (a Access) Filter(records []Record) []Record {
	client := a.ClientFilter()
	if client == "" {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Client() == client {
			out = append(out, r)
		}
	}
	return out
}

// WIPFilter applies the access filter, then the view's client selection
// unless the user is already restricted to a single client.
func WIPFilter(records []Record, access Access, viewClient string) []Record {
	out := access.Filter(records)
	viewClient = strings.ToUpper(strings.TrimSpace(viewClient))
	if access.ClientFilter() != "" || viewClient == "" || viewClient == "ALL" {
		return out
	}
	filtered := make([]Record, 0, len(out))
	for _, r := range out {
		if r.Client() == viewClient {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
