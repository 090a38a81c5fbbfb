package amocrm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// maxPageLimit is the largest per-page limit the provider accepts.
	maxPageLimit = 250

	// DefaultPageLimit is the per-page limit used when a caller passes none.
	DefaultPageLimit = 100

	// defaultMaxPages bounds a walk whose caller did not pick a cap.
	defaultMaxPages = 50
)

// PageOptions bounds one paginated walk.
type PageOptions struct {
	// Limit is the per-page limit, clamped to the provider maximum of 250.
	Limit int
	// MaxPages is a hard circuit breaker: the walk never requests more pages
	// than this, no matter how long the upstream claims the listing is.
	MaxPages int
	// Resource overrides the _embedded key to read. Empty means resolve it
	// from the path via the resource-key table.
	Resource string
}

// resourceKeys maps the trailing path segment of a listing endpoint to the
// _embedded key its pages carry. Unknown endpoints fall back to the first
// list-valued member of _embedded, which is logged because it usually means
// this table needs a new row.
var resourceKeys = map[string]string{
	"leads":        "leads",
	"users":        "users",
	"pipelines":    "pipelines",
	"loss_reasons": "loss_reasons",
	"tasks":        "tasks",
	"events":       "events",
	"notes":        "notes",
}

// pageEnvelope is the HAL shape every amo listing answers with: one or more
// named collections under _embedded plus pagination links.
type pageEnvelope struct {
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
	Embedded map[string]json.RawMessage `json:"_embedded"`
}

// items extracts the page's records under key, falling back to the first
// list-valued member when the key is absent.
func (p *pageEnvelope) items(key string) ([]json.RawMessage, error) {
	raw, ok := p.Embedded[key]
	if !ok || !isJSONArray(raw) {
		raw, ok = p.firstList()
		if ok {
			log.Printf("[AMO]: resource key %q missing from _embedded, using first list member", key)
		}
	}
	if !ok {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode _embedded collection: %w", err)
	}
	return items, nil
}

// firstList returns the first list-valued _embedded member in key order.
func (p *pageEnvelope) firstList() (json.RawMessage, bool) {
	keys := make([]string, 0, len(p.Embedded))
	for k := range p.Embedded {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if isJSONArray(p.Embedded[k]) {
			return p.Embedded[k], true
		}
	}
	return nil, false
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := strings.TrimLeft(string(raw), " \t\r\n")
	return strings.HasPrefix(trimmed, "[")
}

// embeddedKey resolves the resource key for a path from its trailing segment,
// so nested listings like /api/v4/leads/{id}/notes resolve to "notes".
func embeddedKey(path string) string {
	seg := path[strings.LastIndex(path, "/")+1:]
	return resourceKeys[seg]
}

// CollectPages walks a paged listing and returns the flattened records.
//
// The walk requests page 1, 2, ... until the response carries no next link,
// a page comes back empty, or MaxPages is reached. Caller query params are
// copied; page and limit belong to the walk. Upstream failures abort the walk
// without retrying, as the caller has to treat the collection as incomplete
// anyway.
func (c *Client) CollectPages(ctx context.Context, subdomain, path string, query url.Values, opts PageOptions) ([]json.RawMessage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	limit = min(limit, maxPageLimit)

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	key := opts.Resource
	if key == "" {
		key = embeddedKey(path)
	}

	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("limit", strconv.Itoa(limit))

	var out []json.RawMessage
	for page := 1; page <= maxPages; page++ {
		q.Set("page", strconv.Itoa(page))

		var env pageEnvelope
		if err := c.Do(ctx, subdomain, http.MethodGet, path, q, nil, &env); err != nil {
			return nil, err
		}

		items, err := env.items(key)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}
		out = append(out, items...)

		if env.Links.Next == nil {
			break
		}
	}
	return out, nil
}

// collect walks a listing and decodes every record into T.
func collect[T any](ctx context.Context, c *Client, subdomain, path string, query url.Values, opts PageOptions) ([]T, error) {
	raw, err := c.CollectPages(ctx, subdomain, path, query, opts)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Leads lists deals matching the filter query.
func (c *Client) Leads(ctx context.Context, subdomain string, query url.Values, opts PageOptions) ([]Lead, error) {
	return collect[Lead](ctx, c, subdomain, "/api/v4/leads", query, opts)
}

// Users lists the account's members.
func (c *Client) Users(ctx context.Context, subdomain string, query url.Values, opts PageOptions) ([]User, error) {
	return collect[User](ctx, c, subdomain, "/api/v4/users", query, opts)
}

// LossReasons lists the account's configured loss reasons.
func (c *Client) LossReasons(ctx context.Context, subdomain string, query url.Values, opts PageOptions) ([]LossReason, error) {
	return collect[LossReason](ctx, c, subdomain, "/api/v4/leads/loss_reasons", query, opts)
}

// Tasks lists tasks matching the filter query.
func (c *Client) Tasks(ctx context.Context, subdomain string, query url.Values, opts PageOptions) ([]Task, error) {
	return collect[Task](ctx, c, subdomain, "/api/v4/tasks", query, opts)
}

// Events lists timeline events matching the filter query.
func (c *Client) Events(ctx context.Context, subdomain string, query url.Values, opts PageOptions) ([]Event, error) {
	return collect[Event](ctx, c, subdomain, "/api/v4/events", query, opts)
}

// LeadNotes lists one lead's notes.
func (c *Client) LeadNotes(ctx context.Context, subdomain string, leadID int64, query url.Values, opts PageOptions) ([]Note, error) {
	path := fmt.Sprintf("/api/v4/leads/%d/notes", leadID)
	return collect[Note](ctx, c, subdomain, path, query, opts)
}
