package gamealert

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/coregx/gamealert/model"
	"github.com/coregx/gamealert/retry"
)

// memSubscriptions is an in-memory SubscriptionRepository.
type memSubscriptions struct {
	mu     sync.Mutex
	nextID int64
	rows   []model.Subscription

	deleteErr error
}

func newMemSubscriptions(subs ...model.Subscription) *memSubscriptions {
	m := &memSubscriptions{}
	for _, s := range subs {
		_, _ = m.Save(context.Background(), s)
	}
	return m
}

func (m *memSubscriptions) Save(_ context.Context, sub model.Subscription) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sub.ID = m.nextID
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	m.rows = append(m.rows, sub)
	return sub, nil
}

func (m *memSubscriptions) ListByServer(_ context.Context, serverID string) ([]model.Subscription, error) {
	return m.filter(func(s model.Subscription) bool { return s.ServerID == serverID }), nil
}

func (m *memSubscriptions) ListByKind(_ context.Context, kind model.Kind) ([]model.Subscription, error) {
	return m.filter(func(s model.Subscription) bool { return s.Kind == kind }), nil
}

func (m *memSubscriptions) CountByServer(_ context.Context, serverID string, kinds ...model.Kind) (int, error) {
	wanted := make(map[model.Kind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}
	return len(m.filter(func(s model.Subscription) bool {
		return s.ServerID == serverID && (len(kinds) == 0 || wanted[s.Kind])
	})), nil
}

func (m *memSubscriptions) DeleteMatching(_ context.Context, serverID string, kind model.Kind, f DeleteFilter) (int, error) {
	return m.remove(func(s model.Subscription) bool {
		return s.ServerID == serverID && s.Kind == kind && f.Matches(s)
	}), nil
}

func (m *memSubscriptions) DeleteByChannel(_ context.Context, channelID string) (int, error) {
	return m.remove(func(s model.Subscription) bool { return s.ChannelID == channelID }), nil
}

func (m *memSubscriptions) Delete(_ context.Context, kind model.Kind, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.remove(func(s model.Subscription) bool { return s.Kind == kind && s.ID == id }) == 0 {
		return ErrNoData
	}
	return nil
}

func (m *memSubscriptions) CountChannels(_ context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	channels := make(map[string]bool)
	servers := make(map[string]bool)
	for _, s := range m.rows {
		channels[s.ChannelID] = true
		servers[s.ServerID] = true
	}
	return len(channels), len(servers), nil
}

func (m *memSubscriptions) all() []model.Subscription {
	return m.filter(func(model.Subscription) bool { return true })
}

func (m *memSubscriptions) filter(keep func(model.Subscription) bool) []model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, 0)
	for _, s := range m.rows {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func (m *memSubscriptions) remove(match func(model.Subscription) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	removed := 0
	for _, s := range m.rows {
		if match(s) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.rows = kept
	return removed
}

// staticCandidate renders a fixed announcement.
type staticCandidate struct {
	id        string
	renderErr error
}

func (c staticCandidate) CandidateID() string { return c.id }

func (c staticCandidate) Render(_ context.Context) (*model.Announcement, error) {
	if c.renderErr != nil {
		return nil, c.renderErr
	}
	return model.NewAnnouncement("Candidate " + c.id), nil
}

// memCandidates is an in-memory event-source table.
type memCandidates struct {
	mu        sync.Mutex
	rows      []staticCandidate
	announced map[string]int
}

func newMemCandidates(ids ...string) *memCandidates {
	m := &memCandidates{announced: make(map[string]int)}
	for _, id := range ids {
		m.rows = append(m.rows, staticCandidate{id: id})
	}
	return m
}

func (m *memCandidates) FindUnannounced(_ context.Context) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Candidate, 0)
	for _, r := range m.rows {
		if m.announced[r.id] == 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memCandidates) MarkAnnounced(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announced[id]++
	return nil
}

func (m *memCandidates) markCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.announced[id]
}

// fakePlatform records sends and fails configured destinations.
type fakePlatform struct {
	mu         sync.Mutex
	sent       map[string][]*model.Announcement // by channel or user id
	missing    map[string]bool                  // FetchChannel / GetOrFetchUser fails
	forbidden  map[string]bool                  // Send fails
	stuck      map[string]bool                  // Send blocks until its context ends
	fetchCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		sent:      make(map[string][]*model.Announcement),
		missing:   make(map[string]bool),
		forbidden: make(map[string]bool),
		stuck:     make(map[string]bool),
	}
}

func (p *fakePlatform) FetchChannel(_ context.Context, id string) (Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls++
	if p.missing[id] {
		return nil, ErrChannelNotFound
	}
	return &fakeTarget{id: id, platform: p}, nil
}

func (p *fakePlatform) GetOrFetchUser(_ context.Context, id string) (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.missing[id] {
		return nil, ErrUserNotFound
	}
	return &fakeTarget{id: id, platform: p}, nil
}

func (p *fakePlatform) sentTo(id string) []*model.Announcement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent[id]
}

func (p *fakePlatform) totalSent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.sent {
		n += len(s)
	}
	return n
}

type fakeTarget struct {
	id       string
	platform *fakePlatform
}

func (t *fakeTarget) ID() string { return t.id }

func (t *fakeTarget) Send(ctx context.Context, a *model.Announcement) error {
	t.platform.mu.Lock()
	stuck := t.platform.stuck[t.id]
	t.platform.mu.Unlock()
	if stuck {
		<-ctx.Done()
		return ctx.Err()
	}

	t.platform.mu.Lock()
	defer t.platform.mu.Unlock()
	if t.platform.forbidden[t.id] {
		return ErrForbidden
	}
	t.platform.sent[t.id] = append(t.platform.sent[t.id], a)
	return nil
}

// fakeReputation serves a fixed voter list.
type fakeReputation struct {
	voters  []string
	err     error
	checked []string
}

func (r *fakeReputation) QualifyingVoters(_ context.Context) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.voters, nil
}

func (r *fakeReputation) HasQualifyingStatus(_ context.Context, userID string) (bool, error) {
	r.checked = append(r.checked, userID)
	if r.err != nil {
		return false, r.err
	}
	for _, v := range r.voters {
		if v == userID {
			return true, nil
		}
	}
	return false, nil
}

// fakePriceProvider serves fixed overviews and records batches.
type fakePriceProvider struct {
	mu        sync.Mutex
	overviews map[string]model.PriceOverview
	failFor   map[string]bool
	rejectFor map[string]bool // fails without retry
	batches   [][]string
}

func (p *fakePriceProvider) FetchOverview(_ context.Context, keys []string) (map[string]model.PriceOverview, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, append([]string(nil), keys...))
	out := make(map[string]model.PriceOverview)
	for _, k := range keys {
		if p.rejectFor[k] {
			return nil, retry.Permanent(errors.New("invalid api key"))
		}
		if p.failFor[k] {
			return nil, errors.New("provider unavailable")
		}
		if ov, ok := p.overviews[k]; ok {
			out[k] = ov
		}
	}
	return out, nil
}

// fakeCatalog serves app details.
type fakeCatalog struct {
	details map[int64]model.AppDetails
	err     error
}

func (c *fakeCatalog) AppDetails(_ context.Context, appID int64) (model.AppDetails, error) {
	if c.err != nil {
		return model.AppDetails{}, c.err
	}
	d, ok := c.details[appID]
	if !ok {
		return model.AppDetails{}, ErrNoData
	}
	return d, nil
}

// memLocalGiveaways is an in-memory LocalGiveawayRepository.
type memLocalGiveaways struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.LocalGiveaway
}

func newMemLocalGiveaways() *memLocalGiveaways {
	return &memLocalGiveaways{rows: make(map[int64]*model.LocalGiveaway)}
}

func (m *memLocalGiveaways) Save(_ context.Context, g model.LocalGiveaway) (model.LocalGiveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	g.ID = m.nextID
	row := g
	m.rows[g.ID] = &row
	return g, nil
}

func (m *memLocalGiveaways) FindUnannounced(_ context.Context) ([]model.LocalGiveaway, error) {
	return m.sorted(func(g *model.LocalGiveaway) bool { return !g.Announced }), nil
}

func (m *memLocalGiveaways) MarkAnnounced(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return ErrNoData
	}
	g.Announced = true
	return nil
}

func (m *memLocalGiveaways) FindPendingDraws(_ context.Context, now time.Time) ([]model.LocalGiveaway, error) {
	return m.sorted(func(g *model.LocalGiveaway) bool { return g.IsPendingDraw(now) }), nil
}

func (m *memLocalGiveaways) SetWinner(_ context.Context, id int64, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok || g.HasWinner() {
		return ErrNoData
	}
	g.SetWinner(userID)
	return nil
}

func (m *memLocalGiveaways) get(id int64) model.LocalGiveaway {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memLocalGiveaways) sorted(keep func(*model.LocalGiveaway) bool) []model.LocalGiveaway {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.LocalGiveaway, 0)
	for _, g := range m.rows {
		if keep(g) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndTime.Equal(out[j].EndTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndTime.Before(out[j].EndTime)
	})
	return out
}

// recordingDiagnostics captures every report.
type recordingDiagnostics struct {
	mu               sync.Mutex
	deliveryFailures []string
	prunedChannels   []string
	drawFailures     []int64
	jobFailures      []string
	jobTraces        []string
	commands         []CommandUsage
}

func (d *recordingDiagnostics) ReportDeliveryFailure(_ context.Context, channelID, _ string, _ error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveryFailures = append(d.deliveryFailures, channelID)
	return nil
}

func (d *recordingDiagnostics) ReportChannelPruned(_ context.Context, channelID string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prunedChannels = append(d.prunedChannels, channelID)
	return nil
}

func (d *recordingDiagnostics) ReportDrawFailure(_ context.Context, giveawayID int64, _ error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drawFailures = append(d.drawFailures, giveawayID)
	return nil
}

func (d *recordingDiagnostics) ReportJobFailure(_ context.Context, job, _ string, _ error, trace string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobFailures = append(d.jobFailures, job)
	d.jobTraces = append(d.jobTraces, trace)
	return nil
}

func (d *recordingDiagnostics) ReportCommandUsage(_ context.Context, usage CommandUsage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, usage)
	return nil
}

func (d *recordingDiagnostics) failedJobs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.jobFailures...)
}
