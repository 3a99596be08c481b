package syncer

import (
	"context"
	"math/big"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/store"
)

// Indexer is the part of the subgraph client the syncer reads. Failed queries return
// an error so the loaded state is kept.
type Indexer interface {
	FetchOysterJobs(ctx context.Context, owner string, now int64) ([]models.Job, error)
	FetchMerchantJobs(ctx context.Context, provider string, now int64) ([]models.Job, error)
	FetchProviderDetails(ctx context.Context, address string) (*models.ProviderData, error)
	FetchAllowance(ctx context.Context, owner, spender string) (*big.Int, error)
}

// Market is the part of the operator api fetcher the syncer reads.
type Market interface {
	FetchMarketplace(ctx context.Context) ([]models.MarketplaceListing, error)
	JobStatus(ctx context.Context, jobID string) string
}

// SnapshotCache stores the last good marketplace listings.
type SnapshotCache interface {
	Save(listings []models.MarketplaceListing, now int64) error
	Load() ([]models.MarketplaceListing, int64, bool, error)
}

// Syncer periodically reconciles the store with the indexer and the operator api.
// Results are applied with version tokens taken at the start of a round, so a round
// that overlaps a newer round or a local change is dropped.
type Syncer struct {
	store    *store.Store
	indexer  Indexer
	market   Market
	cache    SnapshotCache
	owner    string
	spender  string
	workers  int
	interval time.Duration
	onRound  func(time.Duration)
	failures func(query string)
}

type Option func(*Syncer)

// WithOwner scopes jobs, allowance and provider data to the wallet address. spender
// is the market contract the allowance is given to.
func WithOwner(owner, spender string) Option {
	return func(s *Syncer) {
		s.owner = owner
		s.spender = spender
	}
}

func WithSnapshotCache(c SnapshotCache) Option {
	return func(s *Syncer) {
		s.cache = c
	}
}

func WithStatusWorkers(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithRoundHook(hook func(time.Duration)) Option {
	return func(s *Syncer) {
		s.onRound = hook
	}
}

// WithFailureHook is called with the query name every time an indexer query fails.
func WithFailureHook(hook func(query string)) Option {
	return func(s *Syncer) {
		s.failures = hook
	}
}

func New(st *store.Store, indexer Indexer, market Market, opts ...Option) *Syncer {
	s := &Syncer{
		store:    st,
		indexer:  indexer,
		market:   market,
		workers:  4,
		interval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run refreshes right away and then on every tick until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	s.RefreshOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logs.GetLogger().Info("oyster syncer stopped")
			return
		case <-ticker.C:
			s.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce runs one reconciliation round.
func (s *Syncer) RefreshOnce(ctx context.Context) {
	start := time.Now()
	logger := logs.GetLogger().WithFields(logrus.Fields{"round": uuid.NewString()})

	s.refreshMarketplace(ctx, logger)
	if s.owner != "" {
		s.refreshWallet(ctx, logger)
	}

	elapsed := time.Since(start)
	if s.onRound != nil {
		s.onRound(elapsed)
	}
	logger.Debugf("oyster sync round finished in %s", elapsed)
}

func (s *Syncer) refreshMarketplace(ctx context.Context, logger *logrus.Entry) {
	token := s.store.Begin(store.CategoryMarketplace)
	listings, err := s.market.FetchMarketplace(ctx)
	if err != nil {
		if s.cache == nil {
			return
		}
		cached, savedAt, found, cacheErr := s.cache.Load()
		if cacheErr != nil {
			logger.Errorf("failed load marketplace snapshot, error: %+v", cacheErr)
			return
		}
		if !found {
			return
		}
		logger.Warnf("operator api unavailable, using marketplace snapshot saved at %d", savedAt)
		listings = cached
	} else if s.cache != nil {
		if err := s.cache.Save(listings, s.store.Now()); err != nil {
			logger.Errorf("failed save marketplace snapshot, error: %+v", err)
		}
	}
	s.store.UpdateIfCurrent(token, store.UpdateMarketplaceData(listings))
}

func (s *Syncer) refreshWallet(ctx context.Context, logger *logrus.Entry) {
	jobsToken := s.store.Begin(store.CategoryJobs)
	providerToken := s.store.Begin(store.CategoryProvider)
	allowanceToken := s.store.Begin(store.CategoryAllowance)
	merchantToken := s.store.Begin(store.CategoryMerchantJobs)
	now := s.store.Now()

	provider, providerErr := s.indexer.FetchProviderDetails(ctx, s.owner)
	if providerErr != nil {
		s.failed(logger, "ProviderDetails", providerErr)
	} else {
		s.store.UpdateIfCurrent(providerToken, store.SetProviderData(provider))
	}

	if allowance, err := s.indexer.FetchAllowance(ctx, s.owner, s.spender); err != nil {
		s.failed(logger, "Allowance", err)
	} else {
		s.store.UpdateIfCurrent(allowanceToken, store.SetAllowance(allowance))
	}

	if jobs, err := s.indexer.FetchOysterJobs(ctx, s.owner, now); err != nil {
		s.failed(logger, "OysterJobs", err)
	} else {
		s.fillIPs(ctx, jobs)
		if s.store.UpdateIfCurrent(jobsToken, store.Compose(store.InitializeInventory(jobs), store.MarkOysterStoreLoaded())) {
			s.store.RestoreRevisions()
			logger.Debugf("inventory refreshed, jobs: %d", len(jobs))
		}
	}
	s.completeStops(logger)

	if providerErr != nil || provider == nil {
		return
	}
	if merchantJobs, err := s.indexer.FetchMerchantJobs(ctx, s.owner, now); err != nil {
		s.failed(logger, "MerchantJobs", err)
	} else {
		s.store.UpdateIfCurrent(merchantToken, store.UpdateMerchantJobs(merchantJobs))
	}
}

// failed reports an indexer query whose result is not applied this round.
func (s *Syncer) failed(logger *logrus.Entry, query string, err error) {
	logger.WithField("query", query).Errorf("indexer query failed, keeping loaded data, error: %+v", err)
	if s.failures != nil {
		s.failures(query)
	}
}

// completeStops marks the stop requests whose waiting time has passed as completed.
func (s *Syncer) completeStops(logger *logrus.Entry) {
	now := s.store.Now()
	for _, job := range s.store.Snapshot().JobsData {
		r := job.ReviseRate
		if r != nil && r.StopStatus == constants.StopStatusPending && now >= r.UpdatesAt {
			s.store.UpdateJobStatusOnTimerEnd(job.ID)
			logger.Infof("stop request of job %s can be executed", job.ID)
		}
	}
}

// fillIPs asks the operator api for the ip of every live job.
func (s *Syncer) fillIPs(ctx context.Context, jobs []models.Job) {
	wp := workerpool.New(s.workers)
	for i := range jobs {
		if !jobs[i].Live {
			continue
		}
		job := &jobs[i]
		wp.Submit(func() {
			if ip := s.market.JobStatus(ctx, job.ID); ip != "" {
				job.IP = ip
			}
		})
	}
	wp.StopWait()
}
