// Package cache holds the page cache backing the issue list and a TTL cache
// for workspace metadata.
package cache

import (
	"github.com/lindash/lindash/internal/linearapi"
)

// FetchStatus is the lifecycle state of a cached page.
type FetchStatus int

const (
	// StatusPending marks a page whose fetch is in flight.
	StatusPending FetchStatus = iota
	// StatusReady marks a page whose rows arrived.
	StatusReady
	// StatusFailed marks a page whose fetch failed; a retry replaces it.
	StatusFailed
)

func (s FetchStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PageKey addresses one page of results under one filter fingerprint.
type PageKey struct {
	Fingerprint string
	Page        int
}

// PageEntry is one cached page. Generation records the refresh generation
// the entry was requested under; completions from older generations never
// overwrite it.
type PageEntry struct {
	Status     FetchStatus
	Generation int64
	Issues     []linearapi.IssueSummary
	EndCursor  string
	HasMore    bool
	FailReason error
}

// PageCache maps (fingerprint, page) to fetch state. It is owned by the
// event loop goroutine and needs no locking.
type PageCache struct {
	entries map[PageKey]*PageEntry
	// cursors[fingerprint][n] is the end cursor of page n, needed to
	// request page n+1.
	cursors map[string]map[int]string
}

// NewPageCache creates an empty page cache.
func NewPageCache() *PageCache {
	return &PageCache{
		entries: make(map[PageKey]*PageEntry),
		cursors: make(map[string]map[int]string),
	}
}

// Lookup returns the entry for key, or nil when the page was never requested
// under the current contents.
func (c *PageCache) Lookup(key PageKey) *PageEntry {
	return c.entries[key]
}

// MarkPending records an in-flight fetch for key under gen. It reports false
// when a pending or ready entry already exists, in which case no new fetch
// should be issued. A failed entry is replaced; rows carried by the previous
// entry stay visible while the fetch runs.
func (c *PageCache) MarkPending(key PageKey, gen int64) bool {
	prev, ok := c.entries[key]
	if ok && prev.Status != StatusFailed {
		return false
	}
	next := &PageEntry{Status: StatusPending, Generation: gen}
	if prev != nil {
		next.Issues = prev.Issues
		next.EndCursor = prev.EndCursor
		next.HasMore = prev.HasMore
	}
	c.entries[key] = next
	return true
}

// Store resolves a pending fetch with the fetched page. Stale completions
// must be filtered out by the caller before storing.
func (c *PageCache) Store(key PageKey, gen int64, page linearapi.IssuePage) {
	c.entries[key] = &PageEntry{
		Status:     StatusReady,
		Generation: gen,
		Issues:     page.Issues,
		EndCursor:  page.EndCursor,
		HasMore:    page.HasNextPage,
	}
	byPage, ok := c.cursors[key.Fingerprint]
	if !ok {
		byPage = make(map[int]string)
		c.cursors[key.Fingerprint] = byPage
	}
	byPage[key.Page] = page.EndCursor
}

// StoreFailure resolves a pending fetch with an error. The entry stays in the
// cache so the failure is visible until a retry replaces it; rows from the
// previous result, if any, are kept so the view does not go blank.
func (c *PageCache) StoreFailure(key PageKey, gen int64, reason error) {
	next := &PageEntry{Status: StatusFailed, Generation: gen, FailReason: reason}
	if prev, ok := c.entries[key]; ok {
		next.Issues = prev.Issues
		next.EndCursor = prev.EndCursor
		next.HasMore = prev.HasMore
	}
	c.entries[key] = next
}

// CursorFor returns the cursor needed to fetch page n: the end cursor of
// page n-1. Page 0 needs no cursor. The second result reports whether the
// cursor chain reaches page n.
func (c *PageCache) CursorFor(fingerprint string, page int) (string, bool) {
	if page <= 0 {
		return "", true
	}
	byPage, ok := c.cursors[fingerprint]
	if !ok {
		return "", false
	}
	cursor, ok := byPage[page-1]
	return cursor, ok
}

// Invalidate drops one page and truncates the cursor chain at it, since the
// refetched page may end on a different cursor.
func (c *PageCache) Invalidate(key PageKey) {
	delete(c.entries, key)
	if byPage, ok := c.cursors[key.Fingerprint]; ok {
		for n := range byPage {
			if n >= key.Page {
				delete(byPage, n)
			}
		}
	}
}

// InvalidateAll empties the cache. Used on reload.
func (c *PageCache) InvalidateAll() {
	c.entries = make(map[PageKey]*PageEntry)
	c.cursors = make(map[string]map[int]string)
}

// Len returns the number of cached entries.
func (c *PageCache) Len() int {
	return len(c.entries)
}
