package syncer

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulSpaurgen/interface-v2/conf"
	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/store"
	"github.com/PaulSpaurgen/interface-v2/internal/subgraph"
)

type fakeIndexer struct {
	jobs      []models.Job
	provider  *models.ProviderData
	allowance *big.Int
	merchant  []models.Job
	onJobs    func()
	err       error
}

func (f *fakeIndexer) FetchOysterJobs(ctx context.Context, owner string, now int64) ([]models.Job, error) {
	if f.onJobs != nil {
		f.onJobs()
	}
	if f.err != nil {
		return nil, f.err
	}
	jobs := make([]models.Job, len(f.jobs))
	copy(jobs, f.jobs)
	return jobs, nil
}

func (f *fakeIndexer) FetchMerchantJobs(ctx context.Context, provider string, now int64) ([]models.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.merchant, nil
}

func (f *fakeIndexer) FetchProviderDetails(ctx context.Context, address string) (*models.ProviderData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

func (f *fakeIndexer) FetchAllowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.allowance, nil
}

type fakeMarket struct {
	lock     sync.Mutex
	listings []models.MarketplaceListing
	err      error
	ips      map[string]string
	asked    []string
}

func (f *fakeMarket) FetchMarketplace(ctx context.Context) ([]models.MarketplaceListing, error) {
	if f.err != nil {
		return []models.MarketplaceListing{}, f.err
	}
	return f.listings, nil
}

func (f *fakeMarket) JobStatus(ctx context.Context, jobID string) string {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.asked = append(f.asked, jobID)
	return f.ips[jobID]
}

type memCache struct {
	listings []models.MarketplaceListing
	savedAt  int64
	saved    int
}

func (c *memCache) Save(listings []models.MarketplaceListing, now int64) error {
	c.listings, c.savedAt = listings, now
	c.saved++
	return nil
}

func (c *memCache) Load() ([]models.MarketplaceListing, int64, bool, error) {
	return c.listings, c.savedAt, c.listings != nil, nil
}

func fixtures() (*fakeIndexer, *fakeMarket) {
	indexer := &fakeIndexer{
		jobs: []models.Job{
			{ID: "0x1", Live: true, Balance: big.NewInt(10)},
			{ID: "0x2", Live: false, Balance: big.NewInt(0)},
		},
		provider:  &models.ProviderData{CP: "http://cp", ID: "0xme", Live: true},
		allowance: big.NewInt(500),
		merchant:  []models.Job{{ID: "0x9", AmountToBeSettled: big.NewInt(3)}},
	}
	market := &fakeMarket{
		listings: []models.MarketplaceListing{{ID: "0xp-us-east-1-c6a.xlarge", Rate: big.NewInt(7)}},
		ips:      map[string]string{"0x1": "10.0.0.1"},
	}
	return indexer, market
}

func newStore() *store.Store {
	return store.New(models.DefaultState(), store.WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
}

func TestRefreshOnce(t *testing.T) {
	indexer, market := fixtures()
	c := &memCache{}
	st := newStore()
	rounds := 0
	s := New(st, indexer, market,
		WithOwner("0xme", "0xmarket"),
		WithSnapshotCache(c),
		WithStatusWorkers(2),
		WithRoundHook(func(time.Duration) { rounds++ }),
	)

	s.RefreshOnce(context.Background())
	state := st.Snapshot()

	assert.True(t, state.OysterStoreLoaded)
	assert.True(t, state.MarketplaceLoaded)
	assert.True(t, state.MerchantJobsLoaded)
	assert.True(t, state.ProviderData.Registered)
	assert.Equal(t, "500", state.Allowance.String())
	require.Len(t, state.JobsData, 2)
	assert.Equal(t, "10.0.0.1", state.JobsData[0].IP)
	assert.Equal(t, "", state.JobsData[1].IP)
	assert.Equal(t, []string{"0x1"}, market.asked)
	assert.Len(t, state.AllMarketplaceData, 1)
	assert.Len(t, state.MerchantJobsData, 1)
	assert.Equal(t, 1, c.saved)
	assert.Equal(t, int64(1700000000), c.savedAt)
	assert.Equal(t, 1, rounds)
}

func TestMarketplaceFallsBackToSnapshot(t *testing.T) {
	indexer, market := fixtures()
	c := &memCache{listings: []models.MarketplaceListing{{ID: "cached", Rate: big.NewInt(1)}}, savedAt: 1}
	market.err = errors.New("connection refused")
	st := newStore()

	New(st, indexer, market, WithSnapshotCache(c)).RefreshOnce(context.Background())

	state := st.Snapshot()
	require.Len(t, state.AllMarketplaceData, 1)
	assert.Equal(t, "cached", state.AllMarketplaceData[0].ID)
	assert.False(t, state.OysterStoreLoaded)
	assert.Equal(t, 0, c.saved)
}

func TestMarketplaceFailureWithoutSnapshotKeepsState(t *testing.T) {
	indexer, market := fixtures()
	st := newStore()
	st.UpdateMarketplaceData([]models.MarketplaceListing{{ID: "old", Rate: big.NewInt(1)}})
	market.err = errors.New("timeout")

	New(st, indexer, market).RefreshOnce(context.Background())
	assert.Equal(t, "old", st.Snapshot().AllMarketplaceData[0].ID)
}

func TestLocalChangeDuringRoundWins(t *testing.T) {
	indexer, market := fixtures()
	st := newStore()
	st.InitializeInventory([]models.Job{{ID: "0x1", Live: true, Balance: big.NewInt(10)}})

	indexer.onJobs = func() {
		st.AddFundsToJob("0x1", models.Transaction{ID: "0xtx", Hash: "0xtx"}, big.NewInt(5), 10)
	}
	New(st, indexer, market, WithOwner("0xme", "0xmarket")).RefreshOnce(context.Background())

	state := st.Snapshot()
	require.Len(t, state.JobsData, 1)
	assert.Equal(t, "15", state.JobsData[0].Balance.String())
	assert.False(t, state.OysterStoreLoaded)
}

func TestRunStopsWithContext(t *testing.T) {
	indexer, market := fixtures()
	st := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(st, indexer, market, WithInterval(10*time.Millisecond)).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return st.Snapshot().MarketplaceLoaded }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("syncer did not stop")
	}
}

func TestRefreshCompletesElapsedStopRequests(t *testing.T) {
	indexer, market := fixtures()
	st := newStore()
	s := New(st, indexer, market, WithOwner("0xme", "0xmarket"))
	s.RefreshOnce(context.Background())

	st.Update(store.Compose(
		store.InitiateRateRevise("0x1", big.NewInt(0), 300, 1700000000-600),
		store.InitiateRateRevise("0x2", big.NewInt(0), 300, 1700000000-60),
	))
	s.RefreshOnce(context.Background())

	state := st.Snapshot()
	elapsed, _ := state.FindJob("0x1")
	waiting, _ := state.FindJob("0x2")
	assert.Equal(t, constants.StopStatusCompleted, elapsed.ReviseRate.StopStatus)
	assert.Equal(t, constants.StopStatusPending, waiting.ReviseRate.StopStatus)
}

func TestRevisionSurvivesRefresh(t *testing.T) {
	indexer, market := fixtures()
	st := newStore()
	s := New(st, indexer, market, WithOwner("0xme", "0xmarket"))
	s.RefreshOnce(context.Background())

	require.NoError(t, st.InitiateRateRevise("0x1", big.NewInt(0)))
	s.RefreshOnce(context.Background())

	job, _ := st.Snapshot().FindJob("0x1")
	require.NotNil(t, job.ReviseRate)
	assert.Equal(t, constants.StopStatusPending, job.ReviseRate.StopStatus)
	assert.Equal(t, int64(1700000300), job.ReviseRate.UpdatesAt)

	// the indexer shows the job stopped
	indexer.jobs[0].Live = false
	s.RefreshOnce(context.Background())
	job, _ = st.Snapshot().FindJob("0x1")
	assert.Nil(t, job.ReviseRate)
}

func TestIndexerFailureKeepsLoadedState(t *testing.T) {
	indexer, market := fixtures()
	st := newStore()
	var failed []string
	s := New(st, indexer, market,
		WithOwner("0xme", "0xmarket"),
		WithFailureHook(func(query string) { failed = append(failed, query) }))
	s.RefreshOnce(context.Background())

	indexer.err = errors.New("indexer returned status 500")
	s.RefreshOnce(context.Background())

	state := st.Snapshot()
	assert.Len(t, state.JobsData, 2)
	assert.Equal(t, "500", state.Allowance.String())
	assert.True(t, state.ProviderData.Registered)
	assert.Len(t, state.MerchantJobsData, 1)
	assert.ElementsMatch(t, []string{"ProviderDetails", "Allowance", "OysterJobs"}, failed)
}

func TestSubgraphOutageKeepsLoadedState(t *testing.T) {
	indexer, market := fixtures()
	st := newStore()
	New(st, indexer, market, WithOwner("0xme", "0xmarket")).RefreshOnce(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	down := subgraph.NewClient(conf.SubgraphUrls{Oyster: srv.URL})
	New(st, down, market, WithOwner("0xme", "0xmarket")).RefreshOnce(context.Background())

	state := st.Snapshot()
	assert.Len(t, state.JobsData, 2)
	assert.Equal(t, "500", state.Allowance.String())
	assert.True(t, state.ProviderData.Registered)
}
