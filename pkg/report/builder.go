package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/watereef7/loss-control-backend/pkg/amocrm"
)

// ErrMissingSubdomain means the request named no account to report on.
var ErrMissingSubdomain = errors.New("missing_subdomain")

const (
	// noReasonName labels the loss-reason bucket for deals closed without a
	// recorded reason.
	noReasonName = "Без причины"

	// noReasonDisplay is the per-deal stand-in when a lost deal has no
	// resolvable reason name.
	noReasonDisplay = "—"
)

// Builder produces loss-control reports for one CRM account at a time. It is
// stateless between calls and safe for concurrent use.
type Builder struct {
	client   *amocrm.Client
	resolver *amocrm.Resolver
	settings Settings

	// now is the clock, swapped in tests to pin cutoff arithmetic.
	now func() int64
}

// NewBuilder wires a builder over an API client.
func NewBuilder(client *amocrm.Client, settings Settings) *Builder {
	settings = settings.withDefaults()
	return &Builder{
		client:   client,
		resolver: amocrm.NewResolver(client, settings.EventTypes, settings.LookupPages),
		settings: settings,
		now:      func() int64 { return time.Now().Unix() },
	}
}

// Settings returns the builder's effective tuning.
func (b *Builder) Settings() Settings {
	return b.settings
}

// Build assembles the full report for one account and window. Every deal in
// scope lands in exactly one of won, lost or stale; deals that are open but
// show recent activity are left out entirely. Any upstream failure aborts the
// build, a partial report is never returned.
func (b *Builder) Build(ctx context.Context, p Params) (*Report, error) {
	if p.Subdomain == "" {
		return nil, ErrMissingSubdomain
	}

	staleDays := p.StaleDays
	if staleDays <= 0 {
		staleDays = b.settings.StaleDays
	}
	now := b.now()
	cutoff := now - int64(staleDays)*86400

	dir, err := b.directories(ctx, p.Subdomain)
	if err != nil {
		return nil, err
	}

	won, lost, err := b.closedLeads(ctx, p, parseDate(p.DateFrom, false), parseDate(p.DateTo, true))
	if err != nil {
		return nil, err
	}

	stale, staleAt, warnings, err := b.staleLeads(ctx, p, cutoff)
	if err != nil {
		return nil, err
	}

	rep := b.assemble(p.Subdomain, dir, won, lost, stale, staleAt, warnings, now)
	log.Printf("[REPORT]: Built report for %s, %d managers, %d won, %d lost, %d stale",
		p.Subdomain, len(rep.Managers), rep.Totals.WonCount, rep.Totals.LostCount, rep.Totals.StaleCount)
	return rep, nil
}

/** ---- COLLECTION ---- */

// directories holds the id-to-name lookups the report renders with.
type directories struct {
	users   map[int64]string
	reasons map[int64]string
}

func (d directories) userOrID(id int64) string {
	if name := d.users[id]; name != "" {
		return name
	}
	return strconv.FormatInt(id, 10)
}

func (d directories) reasonOrDefault(id int64, def string) string {
	if name := d.reasons[id]; name != "" {
		return name
	}
	return def
}

func (b *Builder) directories(ctx context.Context, subdomain string) (directories, error) {
	opts := amocrm.PageOptions{Limit: b.settings.PageLimit, MaxPages: b.settings.DirectoryPages}

	users, err := b.client.Users(ctx, subdomain, nil, opts)
	if err != nil {
		return directories{}, err
	}
	reasons, err := b.client.LossReasons(ctx, subdomain, nil, opts)
	if err != nil {
		return directories{}, err
	}

	dir := directories{
		users:   make(map[int64]string, len(users)),
		reasons: make(map[int64]string, len(reasons)),
	}
	for _, u := range users {
		if u.ID != 0 {
			dir.users[u.ID] = u.Name
		}
	}
	for _, r := range reasons {
		if r.ID != 0 {
			dir.reasons[r.ID] = r.Name
		}
	}
	return dir, nil
}

// closedLeads pulls deals closed inside the window and splits them by
// outcome status. Deals in any other status slip through the closed_at filter
// only if the upstream misbehaves; they are dropped.
func (b *Builder) closedLeads(ctx context.Context, p Params, tsFrom, tsTo int64) (won, lost []amocrm.Lead, err error) {
	q := url.Values{}
	if tsFrom > 0 {
		q.Set("filter[closed_at][from]", strconv.FormatInt(tsFrom, 10))
	}
	if tsTo > 0 {
		q.Set("filter[closed_at][to]", strconv.FormatInt(tsTo, 10))
	}

	closed, err := b.client.Leads(ctx, p.Subdomain, q, b.leadPageOptions())
	if err != nil {
		return nil, nil, err
	}

	for _, l := range closed {
		if skipLead(p, &l) {
			continue
		}
		switch l.StatusID {
		case amocrm.StatusLost:
			lost = append(lost, l)
		case amocrm.StatusWon:
			won = append(won, l)
		}
	}
	return won, lost, nil
}

// staleLeads runs the two-phase staleness pass. Phase one is one cheap
// paginated query for open deals whose own updated_at already sits past the
// cutoff. Phase two clears candidates through progressively more expensive
// checks: an open task clears a deal outright, then a batched event scan
// clears deals with recent allow-listed activity, and only the remainder gets
// a full per-deal resolution. Returns the stale deals, their resolved
// last-activity timestamps, and any truncation warnings.
func (b *Builder) staleLeads(ctx context.Context, p Params, cutoff int64) ([]amocrm.Lead, map[int64]int64, []string, error) {
	q := url.Values{}
	q.Set("filter[updated_at][to]", strconv.FormatInt(cutoff, 10))

	candidates, err := b.client.Leads(ctx, p.Subdomain, q, b.leadPageOptions())
	if err != nil {
		return nil, nil, nil, err
	}

	open := make([]amocrm.Lead, 0, len(candidates))
	for _, l := range candidates {
		if l.StatusID == amocrm.StatusWon || l.StatusID == amocrm.StatusLost {
			continue
		}
		if skipLead(p, &l) {
			continue
		}
		open = append(open, l)
	}

	var warnings []string
	checked := open
	if limit := b.settings.DeepCheckCap; len(open) > limit {
		checked = open[:limit]
		warnings = append(warnings, fmt.Sprintf(
			"activity check capped at %d of %d candidate deals, %d deals were not classified",
			limit, len(open), len(open)-limit))
		log.Printf("[REPORT]: Warning, %d stale candidates for %s exceed the deep check cap of %d",
			len(open), p.Subdomain, limit)
	}

	ids := make([]int64, 0, len(checked))
	for _, l := range checked {
		ids = append(ids, l.ID)
	}

	withTask, err := b.resolver.OpenTaskLeads(ctx, p.Subdomain, ids)
	if err != nil {
		return nil, nil, nil, err
	}

	noTask := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !withTask[id] {
			noTask = append(noTask, id)
		}
	}

	recent, err := b.resolver.LeadsWithEventsSince(ctx, p.Subdomain, noTask, cutoff)
	if err != nil {
		return nil, nil, nil, err
	}

	deep := make([]amocrm.Lead, 0, len(checked))
	for _, l := range checked {
		if withTask[l.ID] {
			continue
		}
		if _, ok := recent[l.ID]; ok {
			continue
		}
		deep = append(deep, l)
	}

	lastAt := make([]int64, len(deep))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.settings.Workers)
	for i := range deep {
		g.Go(func() error {
			ts, err := b.resolver.LastActivityAt(gctx, p.Subdomain, &deep[i])
			if err != nil {
				return err
			}
			lastAt[i] = ts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	stale := make([]amocrm.Lead, 0, len(deep))
	staleAt := make(map[int64]int64, len(deep))
	for i, l := range deep {
		if lastAt[i] > cutoff {
			continue
		}
		stale = append(stale, l)
		staleAt[l.ID] = lastAt[i]
	}
	return stale, staleAt, warnings, nil
}

func (b *Builder) leadPageOptions() amocrm.PageOptions {
	return amocrm.PageOptions{Limit: b.settings.PageLimit, MaxPages: b.settings.LeadPages}
}

func skipLead(p Params, l *amocrm.Lead) bool {
	if p.ManagerID != 0 && l.ResponsibleUserID != p.ManagerID {
		return true
	}
	if p.PipelineID != 0 && l.PipelineID != p.PipelineID {
		return true
	}
	return false
}

/** ---- AGGREGATION ---- */

// assemble groups the classified deals by responsible manager and renders the
// payload in its deterministic order.
func (b *Builder) assemble(subdomain string, dir directories, won, lost, stale []amocrm.Lead, staleAt map[int64]int64, warnings []string, now int64) *Report {
	base := b.client.Tokens().BaseFor(subdomain)

	rows := make(map[int64]*ManagerRow)
	buckets := make(map[int64]map[string]*ReasonBucket)

	row := func(uid int64) *ManagerRow {
		if r, ok := rows[uid]; ok {
			return r
		}
		r := &ManagerRow{
			ManagerID:    uid,
			ManagerName:  dir.userOrID(uid),
			WonLeads:     []LeadSummary{},
			LostByReason: []ReasonBucket{},
			LostLeads:    []LeadSummary{},
			StaleLeads:   []LeadSummary{},
		}
		rows[uid] = r
		buckets[uid] = make(map[string]*ReasonBucket)
		return r
	}

	for _, l := range lost {
		r := row(l.ResponsibleUserID)
		r.LostCount++
		r.LostSum += l.Price

		reason := dir.reasonOrDefault(l.LossReasonID, noReasonName)
		bk := buckets[l.ResponsibleUserID][reason]
		if bk == nil {
			bk = &ReasonBucket{Reason: reason}
			buckets[l.ResponsibleUserID][reason] = bk
		}
		bk.Count++
		bk.Sum += l.Price

		r.LostLeads = append(r.LostLeads, packLead(&l, dir, base, true, now, 0))
	}

	for _, l := range won {
		r := row(l.ResponsibleUserID)
		r.WonCount++
		r.WonSum += l.Price
		r.WonLeads = append(r.WonLeads, packLead(&l, dir, base, false, now, 0))
	}

	for _, l := range stale {
		r := row(l.ResponsibleUserID)
		r.StaleCount++
		r.StaleSum += l.Price
		r.StaleLeads = append(r.StaleLeads, packLead(&l, dir, base, false, now, staleAt[l.ID]))
	}

	managers := make([]ManagerRow, 0, len(rows))
	for uid, r := range rows {
		bks := buckets[uid]
		reasons := make([]ReasonBucket, 0, len(bks))
		for _, bk := range bks {
			reasons = append(reasons, *bk)
		}
		sort.Slice(reasons, func(i, j int) bool {
			x, y := reasons[i], reasons[j]
			if x.Sum != y.Sum {
				return x.Sum > y.Sum
			}
			if x.Count != y.Count {
				return x.Count > y.Count
			}
			return x.Reason < y.Reason
		})
		r.LostByReason = reasons

		sort.Slice(r.WonLeads, byPriceThenID(r.WonLeads))
		sort.Slice(r.LostLeads, byPriceThenID(r.LostLeads))
		sort.Slice(r.StaleLeads, func(i, j int) bool {
			x, y := r.StaleLeads[i], r.StaleLeads[j]
			if x.Price != y.Price {
				return x.Price > y.Price
			}
			if x.DaysNoActivity != y.DaysNoActivity {
				return x.DaysNoActivity > y.DaysNoActivity
			}
			return x.ID < y.ID
		})

		managers = append(managers, *r)
	}

	// managers ranked by money at risk, then deal count, then name; the id
	// tiebreak pins a total order so identical inputs render identical bytes
	sort.Slice(managers, func(i, j int) bool {
		x, y := managers[i], managers[j]
		xr, yr := x.LostSum+x.StaleSum, y.LostSum+y.StaleSum
		if xr != yr {
			return xr > yr
		}
		xc, yc := x.LostCount+x.StaleCount, y.LostCount+y.StaleCount
		if xc != yc {
			return xc > yc
		}
		if x.ManagerName != y.ManagerName {
			return x.ManagerName < y.ManagerName
		}
		return x.ManagerID < y.ManagerID
	})

	t := Totals{}
	for _, m := range managers {
		t.WonCount += m.WonCount
		t.WonSum += m.WonSum
		t.LostCount += m.LostCount
		t.LostSum += m.LostSum
		t.StaleCount += m.StaleCount
		t.StaleSum += m.StaleSum
	}
	t.TotalRiskSum = t.LostSum + t.StaleSum
	t.RiskOpenStaleSum = t.StaleSum

	return &Report{Totals: t, Managers: managers, Warnings: warnings}
}

// packLead renders one deal row. lastActivity of 0 means no resolved
// timestamp, inactivity then counts from the deal's own updated_at.
func packLead(l *amocrm.Lead, dir directories, base string, lost bool, now, lastActivity int64) LeadSummary {
	name := l.Name
	if name == "" {
		name = fmt.Sprintf("Сделка #%d", l.ID)
	}

	s := LeadSummary{
		ID:                l.ID,
		Name:              name,
		Price:             l.Price,
		ResponsibleUserID: l.ResponsibleUserID,
		ResponsibleName:   dir.userOrID(l.ResponsibleUserID),
		StatusID:          l.StatusID,
		PipelineID:        l.PipelineID,
		UpdatedAt:         l.UpdatedAt,
		URL:               fmt.Sprintf("%s/leads/detail/%d", base, l.ID),
	}
	if l.LossReasonID != 0 {
		id := l.LossReasonID
		s.LossReasonID = &id
	}
	if lost {
		reason := dir.reasonOrDefault(l.LossReasonID, noReasonDisplay)
		s.LossReason = &reason
	}

	ts := l.UpdatedAt
	if lastActivity > 0 {
		ts = lastActivity
	}
	s.DaysNoActivity = daysSince(ts, now)
	return s
}

func byPriceThenID(list []LeadSummary) func(i, j int) bool {
	return func(i, j int) bool {
		if list[i].Price != list[j].Price {
			return list[i].Price > list[j].Price
		}
		return list[i].ID < list[j].ID
	}
}

// parseDate turns yyyy-mm-dd into a unix timestamp in server local time, the
// end-of-day variant lands on the last second of that day. Unparseable input
// means an open boundary and comes back 0.
func parseDate(s string, endOfDay bool) int64 {
	if s == "" {
		return 0
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return 0
	}
	ts := t.Unix()
	if endOfDay {
		ts += 24*3600 - 1
	}
	return ts
}

func daysSince(ts, now int64) int64 {
	if ts <= 0 {
		return 0
	}
	return max(0, (now-ts)/86400)
}
