package store

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

var ErrRevisePending = errors.New("a rate revision is already pending for this job")

// Category is a group of state fields refreshed by one kind of async request.
type Category string

const (
	CategoryJobs         Category = "jobs"
	CategoryMarketplace  Category = "marketplace"
	CategoryMerchantJobs Category = "merchantJobs"
	CategoryProvider     Category = "provider"
	CategoryAllowance    Category = "allowance"
)

var allCategories = []Category{CategoryJobs, CategoryMarketplace, CategoryMerchantJobs, CategoryProvider, CategoryAllowance}

// Token is handed out by Begin before an async request starts. The result of the
// request is applied only while the token is the newest one of its category.
type Token struct {
	Category Category
	Seq      uint64
}

// Observer is notified about applied and dropped updates.
type Observer interface {
	Applied(category Category)
	StaleDropped(category Category)
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.clock = now
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// WithRateScalingFactor sets the factor between contract rates and their down scaled
// display value.
func WithRateScalingFactor(factor *big.Int) Option {
	return func(s *Store) {
		s.scalingFactor = factor
	}
}

// WithRateReviseWaitingTime sets the seconds a revision waits before it is finalizable.
func WithRateReviseWaitingTime(seconds int64) Option {
	return func(s *Store) {
		s.waitingTime = seconds
	}
}

// WithJournal keeps the rate revisions of the owner jobs in j.
func WithJournal(j Journal) Option {
	return func(s *Store) {
		s.journal = j
	}
}

// Store is the in-memory oyster state. Every change goes through a Reducer under the
// store lock and publishes a new snapshot to the subscribers.
type Store struct {
	lock  sync.Mutex
	state models.State

	issued      map[Category]uint64
	subscribers map[string]chan models.State

	clock         func() time.Time
	observer      Observer
	scalingFactor *big.Int
	waitingTime   int64
	journal       Journal
}

func New(initial models.State, opts ...Option) *Store {
	factor, _ := new(big.Int).SetString(constants.OysterRateScalingFactor, 10)
	s := &Store{
		state:         normalize(initial),
		issued:        make(map[Category]uint64),
		subscribers:   make(map[string]chan models.State),
		clock:         time.Now,
		scalingFactor: factor,
		waitingTime:   constants.OysterRateMetadata.RateReviseWaitingTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalize(state models.State) models.State {
	if state.JobsData == nil {
		state.JobsData = []models.Job{}
	}
	if state.MerchantJobsData == nil {
		state.MerchantJobsData = []models.Job{}
	}
	if state.AllMarketplaceData == nil {
		state.AllMarketplaceData = []models.MarketplaceListing{}
	}
	if state.Allowance == nil {
		state.Allowance = big.NewInt(0)
	}
	if state.LocalOnly == nil {
		state.LocalOnly = map[string]struct{}{}
	}
	return state
}

// Snapshot returns the current state. Published states are never modified, so the
// value can be read without holding the lock.
func (s *Store) Snapshot() models.State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

func (s *Store) Now() int64 {
	return s.clock().Unix()
}

func (s *Store) RateScalingFactor() *big.Int {
	return s.scalingFactor
}

func (s *Store) RateReviseWaitingTime() int64 {
	return s.waitingTime
}

// Update applies fn and returns the new state.
func (s *Store) Update(fn Reducer) models.State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.applyLocked(fn)
}

func (s *Store) applyLocked(fn Reducer) models.State {
	s.state = normalize(fn(s.state))
	s.publishLocked()
	return s.state
}

// Begin issues a new token for category. Tokens issued earlier for the same category
// become stale.
func (s *Store) Begin(category Category) Token {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.issued[category]++
	return Token{Category: category, Seq: s.issued[category]}
}

// UpdateIfCurrent applies fn only when no newer token of the same category has been
// issued since t. It reports whether the update was applied.
func (s *Store) UpdateIfCurrent(t Token, fn Reducer) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.issued[t.Category] != t.Seq {
		logs.GetLogger().WithFields(logrus.Fields{
			"category": t.Category,
			"token":    t.Seq,
			"current":  s.issued[t.Category],
		}).Debug("dropped stale store update")
		if s.observer != nil {
			s.observer.StaleDropped(t.Category)
		}
		return false
	}
	s.applyLocked(fn)
	if s.observer != nil {
		s.observer.Applied(t.Category)
	}
	return true
}

// mutate applies a local change and invalidates any request of the touched categories
// still in flight, so an older indexer result cannot overwrite it.
func (s *Store) mutate(fn Reducer, categories ...Category) models.State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.mutateLocked(fn, categories...)
}

func (s *Store) mutateLocked(fn Reducer, categories ...Category) models.State {
	for _, c := range categories {
		s.issued[c]++
	}
	state := s.applyLocked(fn)
	if s.observer != nil {
		for _, c := range categories {
			s.observer.Applied(c)
		}
	}
	return state
}

// Subscribe returns a channel receiving the newest snapshot after every change, and a
// function to stop the subscription. Slow readers only see the latest state.
func (s *Store) Subscribe() (<-chan models.State, func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := uuid.NewString()
	ch := make(chan models.State, 1)
	ch <- s.state
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.lock.Lock()
			defer s.lock.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *Store) publishLocked() {
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}

func (s *Store) InitializeInventory(jobs []models.Job) models.State {
	return s.mutate(InitializeInventory(jobs), CategoryJobs)
}

func (s *Store) InitializeOysterStore(provider *models.ProviderData, allowance *big.Int, jobs []models.Job) models.State {
	return s.mutate(InitializeOysterStore(provider, allowance, jobs), CategoryJobs, CategoryProvider, CategoryAllowance)
}

func (s *Store) ApplyJobDelta(id string, fn func(models.Job) models.Job) models.State {
	return s.mutate(ApplyJobDelta(id, fn), CategoryJobs)
}

func (s *Store) AddFundsToJob(id string, tx models.Transaction, amount *big.Int, duration int64) models.State {
	return s.mutate(AddFundsToJob(id, tx, amount, duration, s.Now()), CategoryJobs, CategoryAllowance)
}

func (s *Store) WithdrawFundsFromJob(id string, tx models.Transaction, amount *big.Int, duration int64) models.State {
	return s.mutate(WithdrawFundsFromJob(id, tx, amount, duration, s.Now()), CategoryJobs)
}

// InitiateRateRevise returns ErrRevisePending when the job already has a revision.
// Unknown jobs are ignored.
func (s *Store) InitiateRateRevise(id string, newRate *big.Int) error {
	s.lock.Lock()
	if job, ok := s.state.FindJob(id); ok && job.ReviseRate != nil {
		s.lock.Unlock()
		return ErrRevisePending
	}
	state := s.mutateLocked(InitiateRateRevise(id, newRate, s.waitingTime, s.Now()), CategoryJobs)
	s.lock.Unlock()

	s.recordRevision(state, id)
	return nil
}

func (s *Store) CancelRateRevise(id string) models.State {
	state := s.mutate(CancelRateRevise(id), CategoryJobs)
	s.recordRevision(state, id)
	return state
}

func (s *Store) FinalizeRateRevise(id string, newRate *big.Int) models.State {
	state := s.mutate(FinalizeRateRevise(id, newRate, s.scalingFactor), CategoryJobs)
	s.recordRevision(state, id)
	return state
}

func (s *Store) UpdateJobStatusOnTimerEnd(id string) models.State {
	state := s.mutate(UpdateJobStatusOnTimerEnd(id, s.Now()), CategoryJobs)
	s.recordRevision(state, id)
	return state
}

func (s *Store) StopJob(id string, tx models.Transaction) models.State {
	state := s.mutate(StopJob(id, tx, s.Now()), CategoryJobs)
	s.recordRevision(state, id)
	return state
}

// RestoreRevisions puts the journaled revisions back on the inventory and forgets the
// ones whose job has moved on.
func (s *Store) RestoreRevisions() models.State {
	if s.journal == nil {
		return s.Snapshot()
	}
	entries, err := s.journal.Load()
	if err != nil {
		logs.GetLogger().Errorf("failed load rate revisions, error: %+v", err)
		return s.Snapshot()
	}
	if len(entries) == 0 {
		return s.Snapshot()
	}
	state := s.mutate(RestoreRevisions(entries), CategoryJobs)
	for id, entry := range entries {
		job, ok := state.FindJob(id)
		if ok && !SameRevisionBase(entry.job(id), job) {
			s.forgetRevision(id)
		}
	}
	return state
}

// recordRevision writes the revision of job id in state to the journal, or removes it
// when the job has none.
func (s *Store) recordRevision(state models.State, id string) {
	if s.journal == nil {
		return
	}
	job, ok := state.FindJob(id)
	if !ok {
		return
	}
	if job.ReviseRate == nil {
		s.forgetRevision(id)
		return
	}
	entry := JournalEntry{Rate: job.Rate, Live: job.Live, Revise: job.ReviseRate}
	if err := s.journal.Save(id, entry); err != nil {
		logs.GetLogger().Errorf("failed save rate revision of job %s, error: %+v", id, err)
	}
}

func (s *Store) forgetRevision(id string) {
	if err := s.journal.Delete(id); err != nil {
		logs.GetLogger().Errorf("failed delete rate revision of job %s, error: %+v", id, err)
	}
}

func (s *Store) CreateNewJob(job models.Job) models.State {
	return s.mutate(CreateNewJob(job), CategoryJobs, CategoryAllowance)
}

func (s *Store) UpdateJobIP(id string, ip string) models.State {
	return s.Update(UpdateJobIP(id, ip))
}

func (s *Store) UpdateApprovedFunds(amount *big.Int) models.State {
	return s.mutate(UpdateApprovedFunds(amount), CategoryAllowance)
}

func (s *Store) SetAllowance(amount *big.Int) models.State {
	return s.mutate(SetAllowance(amount), CategoryAllowance)
}

func (s *Store) UpdateMerchantJobs(jobs []models.Job) models.State {
	return s.mutate(UpdateMerchantJobs(jobs), CategoryMerchantJobs)
}

func (s *Store) UpdateAmountToBeSettled(id string, amount *big.Int) models.State {
	return s.mutate(UpdateAmountToBeSettled(id, amount), CategoryMerchantJobs)
}

func (s *Store) UpdateMarketplaceData(listings []models.MarketplaceListing) models.State {
	return s.mutate(UpdateMarketplaceData(listings), CategoryMarketplace)
}

func (s *Store) InitializeProviderData(data models.ProviderData) models.State {
	return s.mutate(InitializeProviderData(data), CategoryProvider)
}

func (s *Store) UpdateProvider(cpURL string, walletAddress string) models.State {
	return s.mutate(UpdateProvider(cpURL, walletAddress), CategoryProvider)
}

func (s *Store) RemoveProvider() models.State {
	return s.mutate(RemoveProvider(), CategoryProvider)
}

// Reset clears the wallet scoped state, for a wallet or network switch. Requests in
// flight for the previous wallet are invalidated.
func (s *Store) Reset() models.State {
	return s.mutate(Reset(), allCategories...)
}
