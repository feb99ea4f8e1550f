package service

import (
	"context"
	"sync"
	"time"

	"github.com/coldpipe/coldpipe/internal/domain"
	"github.com/coldpipe/coldpipe/pkg/mailer"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// memRuntimeRepo implements the atomic reserve contract in memory, guarded
// by a mutex the way the store's findAndModify serializes callers.
type memRuntimeRepo struct {
	mu     sync.Mutex
	states map[string]*domain.RuntimeState
}

func newMemRuntimeRepo() *memRuntimeRepo {
	return &memRuntimeRepo{states: make(map[string]*domain.RuntimeState)}
}

func runtimeKey(emailID, dateKey string) string { return emailID + "|" + dateKey }

func copyState(s *domain.RuntimeState) *domain.RuntimeState {
	clone := *s
	if s.LockedUntil != nil {
		lu := *s.LockedUntil
		clone.LockedUntil = &lu
	}
	return &clone
}

func (m *memRuntimeRepo) AtomicReserve(_ context.Context, emailID, dateKey string, nowUTC time.Time, dailyLimit int, lockUntil time.Time) (*domain.RuntimeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[runtimeKey(emailID, dateKey)]
	if !ok {
		startOfDay, _ := time.ParseInLocation("2006-01-02", dateKey, time.UTC)
		lu := lockUntil
		state = &domain.RuntimeState{
			EmailID:         emailID,
			DateKey:         dateKey,
			SentCount:       0,
			NextAvailableAt: startOfDay,
			LockedUntil:     &lu,
		}
		m.states[runtimeKey(emailID, dateKey)] = state
		return copyState(state), nil
	}

	if state.SentCount >= dailyLimit {
		return nil, nil
	}
	if state.LockedUntil != nil && state.LockedUntil.After(nowUTC) {
		return nil, nil
	}
	if state.NextAvailableAt.After(nowUTC) {
		return nil, nil
	}

	lu := lockUntil
	state.LockedUntil = &lu
	return copyState(state), nil
}

func (m *memRuntimeRepo) CommitSend(_ context.Context, emailID, dateKey string, nextAvailableAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[runtimeKey(emailID, dateKey)]; ok {
		state.SentCount++
		state.NextAvailableAt = nextAvailableAt
		state.LockedUntil = nil
	}
	return nil
}

func (m *memRuntimeRepo) RollbackReservation(_ context.Context, emailID, dateKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[runtimeKey(emailID, dateKey)]; ok {
		state.LockedUntil = nil
	}
	return nil
}

func (m *memRuntimeRepo) GetState(_ context.Context, emailID, dateKey string) (*domain.RuntimeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[runtimeKey(emailID, dateKey)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyState(state), nil
}

func (m *memRuntimeRepo) ListStates(_ context.Context) ([]*domain.RuntimeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make([]*domain.RuntimeState, 0, len(m.states))
	for _, state := range m.states {
		states = append(states, copyState(state))
	}
	return states, nil
}

func (m *memRuntimeRepo) Recount(_ context.Context, emailID, dateKey string) (int, error) {
	return 0, nil
}

func (m *memRuntimeRepo) FixStale(_ context.Context, nowUTC time.Time) (int64, error) {
	return 0, nil
}

type memCampaignRepo struct {
	queue     []*domain.QueueEntry
	campaigns map[string]*domain.Campaign
	options   map[string]*domain.CampaignOptions
	schedules map[string]*domain.CampaignSchedule
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{
		campaigns: make(map[string]*domain.Campaign),
		options:   make(map[string]*domain.CampaignOptions),
		schedules: make(map[string]*domain.CampaignSchedule),
	}
}

func (m *memCampaignRepo) GetQueue(_ context.Context) ([]*domain.QueueEntry, error) {
	return m.queue, nil
}

func (m *memCampaignRepo) GetCampaign(_ context.Context, campaignID string) (*domain.Campaign, error) {
	if c, ok := m.campaigns[campaignID]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCampaignRepo) ListCampaigns(_ context.Context) ([]*domain.Campaign, error) {
	campaigns := make([]*domain.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

func (m *memCampaignRepo) GetOptions(_ context.Context, campaignID string) (*domain.CampaignOptions, error) {
	if o, ok := m.options[campaignID]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCampaignRepo) GetSchedule(_ context.Context, campaignID string) (*domain.CampaignSchedule, error) {
	if s, ok := m.schedules[campaignID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

type memLeadRepo struct {
	leads []*domain.Lead
}

func (m *memLeadRepo) GetDueLeads(_ context.Context, campaignID string, nowUTC time.Time, limit int) ([]*domain.Lead, error) {
	var due []*domain.Lead
	for _, lead := range m.leads {
		if lead.CampaignID.String() != campaignID {
			continue
		}
		p := lead.Progress
		if p != nil {
			if p.Stopped {
				continue
			}
			dueNow := p.NextDueAt != nil && !p.NextDueAt.After(nowUTC)
			if !dueNow && p.LastSentAt != nil {
				continue
			}
		}
		due = append(due, lead)
		if len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (m *memLeadRepo) ListLeads(_ context.Context, campaignID string) ([]*domain.Lead, error) {
	var leads []*domain.Lead
	for _, lead := range m.leads {
		if lead.CampaignID.String() == campaignID {
			leads = append(leads, lead)
		}
	}
	return leads, nil
}

func (m *memLeadRepo) GetLead(_ context.Context, leadID string) (*domain.Lead, error) {
	for _, lead := range m.leads {
		if lead.ID.String() == leadID {
			return lead, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLeadRepo) UpdateProgress(_ context.Context, leadID string, progress *domain.Progress) error {
	for _, lead := range m.leads {
		if lead.ID.String() == leadID {
			lead.Progress = progress
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memLeadRepo) BackfillProgress(_ context.Context, campaignID string) (int64, error) {
	return 0, nil
}

func (m *memLeadRepo) MarkRecipientStatuses(_ context.Context, campaignID, status string) (int64, error) {
	return 0, nil
}

type memSequenceRepo struct {
	sequences map[string]*domain.Sequence
	steps     map[string]*domain.SequenceStep
}

func (m *memSequenceRepo) GetSequence(_ context.Context, campaignID string) (*domain.Sequence, error) {
	if s, ok := m.sequences[campaignID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memSequenceRepo) GetStep(_ context.Context, stepID string) (*domain.SequenceStep, error) {
	if s, ok := m.steps[stepID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

type memTemplateRepo struct {
	templates map[string]*domain.Template
}

func (m *memTemplateRepo) GetTemplate(_ context.Context, templateID string) (*domain.Template, error) {
	if t, ok := m.templates[templateID]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

type memAccountRepo struct {
	accounts map[string]*domain.EmailAccount
	settings map[string]*domain.AccountCampaignSettings
	general  map[string]*domain.AccountGeneralSettings
}

func (m *memAccountRepo) GetAccount(_ context.Context, emailID string) (*domain.EmailAccount, error) {
	if a, ok := m.accounts[emailID]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) ListActiveAccounts(_ context.Context) ([]*domain.EmailAccount, error) {
	accounts := make([]*domain.EmailAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (m *memAccountRepo) GetCampaignSettings(_ context.Context, emailID string) (*domain.AccountCampaignSettings, error) {
	if s, ok := m.settings[emailID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) GetGeneralSettings(_ context.Context, emailID string) (*domain.AccountGeneralSettings, error) {
	if s, ok := m.general[emailID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

type memActivityRepo struct {
	activities []*domain.Activity
}

func (m *memActivityRepo) Insert(_ context.Context, activity *domain.Activity) error {
	m.activities = append(m.activities, activity)
	return nil
}

func (m *memActivityRepo) CountSentSince(_ context.Context, campaignID string, since time.Time) (int64, error) {
	var count int64
	for _, a := range m.activities {
		if a.CampaignID == campaignID && a.Type == domain.ActivityTypeSent && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memActivityRepo) ofType(activityType string) []*domain.Activity {
	var out []*domain.Activity
	for _, a := range m.activities {
		if a.Type == activityType {
			out = append(out, a)
		}
	}
	return out
}

type sentMessage struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type fakeMailer struct {
	sent     []sentMessage
	failWith error
}

func (f *fakeMailer) Send(_ context.Context, account mailer.Account, to, subject, html string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.sent = append(f.sent, sentMessage{From: account.Email, To: to, Subject: subject, HTML: html})
	return nil
}

type workerCall struct {
	CampaignID string
	BatchSize  int
}

type fakeWorker struct {
	calls    []workerCall
	failWith error
}

func (f *fakeWorker) RunOnce(_ context.Context, campaignID string, batchSize int, dryRun bool, since *time.Time) (int, error) {
	f.calls = append(f.calls, workerCall{CampaignID: campaignID, BatchSize: batchSize})
	if f.failWith != nil {
		return 0, f.failWith
	}
	return batchSize, nil
}
