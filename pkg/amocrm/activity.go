package amocrm

import (
	"context"
	"net/url"
	"strconv"
)

const (
	// taskBatchSize is how many entity ids one tasks query accepts.
	taskBatchSize = 200

	// eventBatchSize is how many entity ids one events query accepts.
	eventBatchSize = 10

	// lookupPageLimit sizes the single page a per-deal lookup reads. The
	// newest record of a source is expected to be on page 1.
	lookupPageLimit = 250

	// defaultLookupPages bounds pagination of one batched lookup.
	defaultLookupPages = 20
)

// DefaultActivityEventTypes is the timeline event allow-list that counts as
// real operator activity: calls, chat and SMS messages, notes, tag, field and
// status changes, and robot replies. Passive system noise (visits, NPS,
// recalculations) deliberately stays out, so automation alone never keeps a
// deal looking alive.
var DefaultActivityEventTypes = []string{
	"incoming_call",
	"outgoing_call",
	"incoming_chat_message",
	"outgoing_chat_message",
	"incoming_sms",
	"outgoing_sms",
	"common_note_added",
	"entity_tag_added",
	"custom_field_value_changed",
	"lead_status_changed",
	"robot_replied",
}

// Resolver answers per-deal activity questions by cross-referencing the three
// provider subsystems that hold activity evidence: tasks, notes and timeline
// events. No single endpoint can answer "is this deal stale", so the resolver
// issues batched lookups where the API allows them and per-deal lookups where
// it does not.
type Resolver struct {
	client      *Client
	eventTypes  []string
	lookupPages int
}

// NewResolver builds a resolver. A nil eventTypes keeps the default activity
// allow-list; lookupPages of 0 keeps the default pagination bound on batched
// lookups.
func NewResolver(client *Client, eventTypes []string, lookupPages int) *Resolver {
	if len(eventTypes) == 0 {
		eventTypes = DefaultActivityEventTypes
	}
	if lookupPages <= 0 {
		lookupPages = defaultLookupPages
	}
	return &Resolver{client: client, eventTypes: eventTypes, lookupPages: lookupPages}
}

// OpenTaskLeads returns which of the given leads have at least one incomplete
// task. Presence wins over recency: an unresolved task is pending work, so
// the deal is not stale no matter how far past complete_till is.
func (r *Resolver) OpenTaskLeads(ctx context.Context, subdomain string, leadIDs []int64) (map[int64]bool, error) {
	open := make(map[int64]bool)

	for _, chunk := range chunks(leadIDs, taskBatchSize) {
		q := url.Values{}
		q.Set("filter[entity_type]", "leads")
		q.Set("filter[is_completed]", "0")
		for _, id := range chunk {
			q.Add("filter[entity_id][]", strconv.FormatInt(id, 10))
		}

		tasks, err := r.client.Tasks(ctx, subdomain, q, PageOptions{Limit: lookupPageLimit, MaxPages: r.lookupPages})
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			if t.EntityID != 0 {
				open[t.EntityID] = true
			}
		}
	}
	return open, nil
}

// HasOpenTask reports whether one lead has an incomplete task.
func (r *Resolver) HasOpenTask(ctx context.Context, subdomain string, leadID int64) (bool, error) {
	open, err := r.OpenTaskLeads(ctx, subdomain, []int64{leadID})
	if err != nil {
		return false, err
	}
	return open[leadID], nil
}

// LeadsWithEventsSince returns, for each given lead with at least one
// allow-listed event at or after since, the newest such event timestamp.
// Leads without a qualifying event are absent from the map.
func (r *Resolver) LeadsWithEventsSince(ctx context.Context, subdomain string, leadIDs []int64, since int64) (map[int64]int64, error) {
	latest := make(map[int64]int64)

	for _, chunk := range chunks(leadIDs, eventBatchSize) {
		q := url.Values{}
		q.Set("filter[entity]", "lead")
		q.Set("filter[created_at][from]", strconv.FormatInt(since, 10))
		for _, id := range chunk {
			q.Add("filter[entity_id][]", strconv.FormatInt(id, 10))
		}
		for _, typ := range r.eventTypes {
			q.Add("filter[type][]", typ)
		}

		events, err := r.client.Events(ctx, subdomain, q, PageOptions{Limit: lookupPageLimit, MaxPages: r.lookupPages})
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			if ev.EntityID == 0 {
				continue
			}
			if ev.CreatedAt > latest[ev.EntityID] {
				latest[ev.EntityID] = ev.CreatedAt
			}
		}
	}
	return latest, nil
}

// LastActivityAt resolves a deal's most recent activity evidence: the maximum
// of its own updated_at, its newest task (completed or not), its newest note
// and its newest allow-listed timeline event. Returns 0 only when the lead is
// nil. Lookup failures propagate; callers decide what a missing answer means.
func (r *Resolver) LastActivityAt(ctx context.Context, subdomain string, lead *Lead) (int64, error) {
	if lead == nil {
		return 0, nil
	}
	last := lead.UpdatedAt

	ts, err := r.latestTaskAt(ctx, subdomain, lead.ID)
	if err != nil {
		return 0, err
	}
	last = max(last, ts)

	ts, err = r.latestNoteAt(ctx, subdomain, lead.ID)
	if err != nil {
		return 0, err
	}
	last = max(last, ts)

	ts, err = r.latestEventAt(ctx, subdomain, lead.ID)
	if err != nil {
		return 0, err
	}
	last = max(last, ts)

	return last, nil
}

// latestTaskAt reads the newest task touching the lead, completed or not.
// One ordered page is enough; the max over it guards against upstreams that
// ignore the order param.
func (r *Resolver) latestTaskAt(ctx context.Context, subdomain string, leadID int64) (int64, error) {
	q := url.Values{}
	q.Set("filter[entity_type]", "leads")
	q.Add("filter[entity_id][]", strconv.FormatInt(leadID, 10))
	q.Set("order[updated_at]", "desc")

	tasks, err := r.client.Tasks(ctx, subdomain, q, PageOptions{Limit: lookupPageLimit, MaxPages: 1})
	if err != nil {
		return 0, err
	}

	var last int64
	for _, t := range tasks {
		last = max(last, t.UpdatedAt)
	}
	return last, nil
}

func (r *Resolver) latestNoteAt(ctx context.Context, subdomain string, leadID int64) (int64, error) {
	q := url.Values{}
	q.Set("order[updated_at]", "desc")

	notes, err := r.client.LeadNotes(ctx, subdomain, leadID, q, PageOptions{Limit: lookupPageLimit, MaxPages: 1})
	if err != nil {
		return 0, err
	}

	var last int64
	for _, n := range notes {
		last = max(last, n.UpdatedAt, n.CreatedAt)
	}
	return last, nil
}

func (r *Resolver) latestEventAt(ctx context.Context, subdomain string, leadID int64) (int64, error) {
	q := url.Values{}
	q.Set("filter[entity]", "lead")
	q.Add("filter[entity_id][]", strconv.FormatInt(leadID, 10))
	for _, typ := range r.eventTypes {
		q.Add("filter[type][]", typ)
	}

	// events arrive newest first
	events, err := r.client.Events(ctx, subdomain, q, PageOptions{Limit: lookupPageLimit, MaxPages: 1})
	if err != nil {
		return 0, err
	}

	var last int64
	for _, ev := range events {
		last = max(last, ev.CreatedAt)
	}
	return last, nil
}

// chunks splits list into runs of at most size elements.
func chunks[T any](list []T, size int) [][]T {
	if size <= 0 || len(list) == 0 {
		return nil
	}

	out := make([][]T, 0, (len(list)+size-1)/size)
	for len(list) > 0 {
		n := min(size, len(list))
		out = append(out, list[:n])
		list = list[n:]
	}
	return out
}
