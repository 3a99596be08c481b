package store

import (
	"math/big"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

// Reducer returns the next state for a snapshot. Reducers must not modify the snapshot
// they receive: slices and maps are rebuilt before they are changed.
type Reducer func(models.State) models.State

var zero = big.NewInt(0)

func intOrZero(v *big.Int) *big.Int {
	if v == nil {
		return zero
	}
	return v
}

func add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(intOrZero(a), intOrZero(b))
}

func sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(intOrZero(a), intOrZero(b))
}

func clampZero(v *big.Int) *big.Int {
	if v == nil || v.Sign() < 0 {
		return big.NewInt(0)
	}
	return v
}

func copyLocalOnly(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for id := range src {
		dst[id] = struct{}{}
	}
	return dst
}

// replaceJob rebuilds jobs with fn applied to the job with the given id. The order of
// the list is kept.
func replaceJob(jobs []models.Job, id string, fn func(models.Job) models.Job) ([]models.Job, bool) {
	idx := -1
	for i := range jobs {
		if jobs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return jobs, false
	}
	next := make([]models.Job, len(jobs))
	copy(next, jobs)
	next[idx] = fn(jobs[idx].Clone())
	return next, true
}

func prependDeposit(history []models.DepositHistoryEntry, entry models.DepositHistoryEntry) []models.DepositHistoryEntry {
	next := make([]models.DepositHistoryEntry, 0, len(history)+1)
	next = append(next, entry)
	return append(next, history...)
}

// InitializeInventory replaces the owner inventory with remote, deduplicated by job
// id. Jobs created locally that remote does not include yet are kept in front. The
// indexer does not track rate revisions, so a local revision stays on its job until
// the indexed rate or live status of the job changes.
func InitializeInventory(remote []models.Job) Reducer {
	return func(state models.State) models.State {
		remoteIdx := make(map[string]int, len(remote))
		jobs := make([]models.Job, 0, len(remote))
		for _, job := range remote {
			if i, ok := remoteIdx[job.ID]; ok {
				jobs[i] = job
				continue
			}
			remoteIdx[job.ID] = len(jobs)
			jobs = append(jobs, job)
		}
		for _, local := range state.JobsData {
			i, ok := remoteIdx[local.ID]
			if !ok || jobs[i].ReviseRate != nil || !SameRevisionBase(local, jobs[i]) {
				continue
			}
			jobs[i].ReviseRate = local.ReviseRate.Clone()
		}

		localOnly := make(map[string]struct{})
		pending := make([]models.Job, 0, len(state.LocalOnly)+len(jobs))
		for _, job := range state.JobsData {
			if _, local := state.LocalOnly[job.ID]; !local {
				continue
			}
			if _, ok := remoteIdx[job.ID]; ok {
				continue
			}
			if _, dup := localOnly[job.ID]; dup {
				continue
			}
			localOnly[job.ID] = struct{}{}
			pending = append(pending, job)
		}

		state.JobsData = append(pending, jobs...)
		state.LocalOnly = localOnly
		return state
	}
}

// SameRevisionBase reports whether a revision recorded on prev still applies to next:
// prev has one and the rate and live status it was made against are unchanged.
func SameRevisionBase(prev, next models.Job) bool {
	return prev.ReviseRate != nil &&
		prev.Live == next.Live &&
		intOrZero(prev.Rate).Cmp(intOrZero(next.Rate)) == 0
}

// Compose applies fns in order.
func Compose(fns ...Reducer) Reducer {
	return func(state models.State) models.State {
		for _, fn := range fns {
			state = fn(state)
		}
		return state
	}
}

// MarkOysterStoreLoaded flags the wallet scoped data as loaded.
func MarkOysterStoreLoaded() Reducer {
	return func(state models.State) models.State {
		state.OysterStoreLoaded = true
		return state
	}
}

// InitializeOysterStore loads the wallet scoped data in one step.
func InitializeOysterStore(provider *models.ProviderData, allowance *big.Int, jobs []models.Job) Reducer {
	return func(state models.State) models.State {
		state = InitializeInventory(jobs)(state)
		state.ProviderData = models.ProviderState{Registered: provider != nil, Data: provider}
		state.Allowance = clampZero(allowance)
		state.OysterStoreLoaded = true
		return state
	}
}

// ApplyJobDelta applies fn to a copy of the job with the given id. An unknown id leaves
// the state untouched.
func ApplyJobDelta(id string, fn func(models.Job) models.Job) Reducer {
	return func(state models.State) models.State {
		jobs, ok := replaceJob(state.JobsData, id, fn)
		if !ok {
			return state
		}
		state.JobsData = jobs
		return state
	}
}

func AddFundsToJob(id string, tx models.Transaction, amount *big.Int, duration int64, now int64) Reducer {
	return func(state models.State) models.State {
		jobs, ok := replaceJob(state.JobsData, id, func(job models.Job) models.Job {
			job.TotalDeposit = add(job.TotalDeposit, amount)
			job.Balance = add(job.Balance, amount)
			job.DurationLeft += duration
			job.EndEpochTime += duration
			job.DepositHistory = prependDeposit(job.DepositHistory, models.DepositHistoryEntry{
				Amount:            new(big.Int).Set(intOrZero(amount)),
				ID:                tx.ID,
				TxHash:            tx.Hash,
				Timestamp:         now,
				IsWithdrawal:      false,
				TransactionStatus: constants.TxStatusDeposit,
			})
			return job
		})
		if !ok {
			return state
		}
		state.JobsData = jobs
		state.Allowance = clampZero(sub(state.Allowance, amount))
		return state
	}
}

func WithdrawFundsFromJob(id string, tx models.Transaction, amount *big.Int, duration int64, now int64) Reducer {
	return ApplyJobDelta(id, func(job models.Job) models.Job {
		job.TotalDeposit = sub(job.TotalDeposit, amount)
		job.Balance = sub(job.Balance, amount)
		job.DurationLeft -= duration
		job.EndEpochTime -= duration
		job.DepositHistory = prependDeposit(job.DepositHistory, models.DepositHistoryEntry{
			Amount:            new(big.Int).Set(intOrZero(amount)),
			ID:                tx.ID,
			TxHash:            tx.Hash,
			Timestamp:         now,
			IsWithdrawal:      true,
			TransactionStatus: constants.TxStatusWithdrawal,
		})
		return job
	})
}

// InitiateRateRevise records a pending revision finalizable at now+waitingTime. It is a
// no-op when the job already carries a revision.
func InitiateRateRevise(id string, newRate *big.Int, waitingTime int64, now int64) Reducer {
	return func(state models.State) models.State {
		if job, ok := state.FindJob(id); !ok || job.ReviseRate != nil {
			return state
		}
		return ApplyJobDelta(id, func(job models.Job) models.Job {
			job.ReviseRate = NewRateRevise(newRate, waitingTime, now)
			return job
		})(state)
	}
}

// NewRateRevise builds the pending revision record. A zero rate is a stop request and
// may be used to stop the job right away, so its stop status is pending.
func NewRateRevise(newRate *big.Int, waitingTime int64, now int64) *models.RateRevise {
	rate := new(big.Int).Set(intOrZero(newRate))
	stopStatus := constants.StopStatusPending
	if rate.Sign() > 0 {
		stopStatus = constants.StopStatusDisabled
	}
	return &models.RateRevise{
		NewRate:    rate,
		RateStatus: constants.RateStatusPending,
		StopStatus: stopStatus,
		UpdatesAt:  now + waitingTime,
	}
}

func CancelRateRevise(id string) Reducer {
	return ApplyJobDelta(id, func(job models.Job) models.Job {
		job.ReviseRate = nil
		return job
	})
}

// FinalizeRateRevise applies newRate and clears the revision. scalingFactor is used to
// refresh the down scaled rate; nil keeps the rate as is.
func FinalizeRateRevise(id string, newRate *big.Int, scalingFactor *big.Int) Reducer {
	return ApplyJobDelta(id, func(job models.Job) models.Job {
		job.Rate = new(big.Int).Set(intOrZero(newRate))
		job.DownScaledRate = downScale(job.Rate, scalingFactor)
		job.ReviseRate = nil
		return job
	})
}

func downScale(rate, factor *big.Int) *big.Int {
	if factor == nil || factor.Sign() == 0 {
		return new(big.Int).Set(rate)
	}
	return new(big.Int).Quo(rate, factor)
}

// UpdateJobStatusOnTimerEnd marks the revision stop as completed, whatever state the
// revision was in.
func UpdateJobStatusOnTimerEnd(id string, now int64) Reducer {
	return ApplyJobDelta(id, func(job models.Job) models.Job {
		job.ReviseRate = &models.RateRevise{
			NewRate:    big.NewInt(0),
			RateStatus: constants.RateStatusPending,
			StopStatus: constants.StopStatusCompleted,
			UpdatesAt:  now,
		}
		return job
	})
}

func StopJob(id string, tx models.Transaction, now int64) Reducer {
	return ApplyJobDelta(id, func(job models.Job) models.Job {
		balance := new(big.Int).Set(intOrZero(job.Balance))
		job.Live = false
		job.Refund = balance
		job.Balance = big.NewInt(0)
		job.Status = constants.StatusStopped
		job.Rate = big.NewInt(0)
		job.DownScaledRate = big.NewInt(0)
		job.ReviseRate = nil
		job.EndEpochTime = now
		job.DepositHistory = prependDeposit(job.DepositHistory, models.DepositHistoryEntry{
			Amount:            new(big.Int).Set(balance),
			ID:                tx.ID,
			TxHash:            tx.Hash,
			Timestamp:         now,
			IsWithdrawal:      true,
			TransactionStatus: constants.TxStatusStopped,
		})
		return job
	})
}

// CreateNewJob prepends a job opened by this client and keeps it until the indexer
// returns it.
func CreateNewJob(job models.Job) Reducer {
	return func(state models.State) models.State {
		jobs := make([]models.Job, 0, len(state.JobsData)+1)
		jobs = append(jobs, job)
		for _, j := range state.JobsData {
			if j.ID != job.ID {
				jobs = append(jobs, j)
			}
		}
		state.JobsData = jobs
		state.LocalOnly = copyLocalOnly(state.LocalOnly)
		state.LocalOnly[job.ID] = struct{}{}
		state.Allowance = clampZero(sub(state.Allowance, job.Balance))
		return state
	}
}

func UpdateJobIP(id string, ip string) Reducer {
	return ApplyJobDelta(id, func(job models.Job) models.Job {
		job.IP = ip
		return job
	})
}

// UpdateApprovedFunds raises the allowance to amount. A smaller amount is ignored.
func UpdateApprovedFunds(amount *big.Int) Reducer {
	return func(state models.State) models.State {
		if amount != nil && intOrZero(state.Allowance).Cmp(amount) < 0 {
			state.Allowance = new(big.Int).Set(amount)
		}
		return state
	}
}

func SetAllowance(amount *big.Int) Reducer {
	return func(state models.State) models.State {
		state.Allowance = clampZero(amount)
		return state
	}
}

func UpdateMerchantJobs(jobs []models.Job) Reducer {
	return func(state models.State) models.State {
		if jobs == nil {
			jobs = []models.Job{}
		}
		state.MerchantJobsData = jobs
		state.MerchantJobsLoaded = true
		return state
	}
}

func UpdateAmountToBeSettled(id string, amount *big.Int) Reducer {
	return func(state models.State) models.State {
		jobs, ok := replaceJob(state.MerchantJobsData, id, func(job models.Job) models.Job {
			job.AmountToBeSettled = new(big.Int).Set(intOrZero(amount))
			return job
		})
		if ok {
			state.MerchantJobsData = jobs
		}
		return state
	}
}

func UpdateMarketplaceData(listings []models.MarketplaceListing) Reducer {
	return func(state models.State) models.State {
		if listings == nil {
			listings = []models.MarketplaceListing{}
		}
		state.AllMarketplaceData = listings
		state.MarketplaceLoaded = true
		return state
	}
}

// SetProviderData records the indexer view of the wallet as provider. nil means the
// wallet is not registered.
func SetProviderData(data *models.ProviderData) Reducer {
	if data != nil {
		return InitializeProviderData(*data)
	}
	return func(state models.State) models.State {
		state.ProviderData = models.ProviderState{Registered: false}
		state.ProviderDetailsLoaded = true
		return state
	}
}

func InitializeProviderData(data models.ProviderData) Reducer {
	return func(state models.State) models.State {
		state.ProviderData = models.ProviderState{Registered: true, Data: &data}
		state.ProviderDetailsLoaded = true
		return state
	}
}

// UpdateProvider marks the wallet as a live provider served from cpURL.
func UpdateProvider(cpURL string, walletAddress string) Reducer {
	return func(state models.State) models.State {
		state.ProviderData = models.ProviderState{
			Registered: true,
			Data:       &models.ProviderData{CP: cpURL, ID: walletAddress, Live: true},
		}
		return state
	}
}

func RemoveProvider() Reducer {
	return func(state models.State) models.State {
		next := models.ProviderState{Registered: false}
		if state.ProviderData.Data != nil {
			next.Data = &models.ProviderData{}
		}
		state.ProviderData = next
		return state
	}
}

// Reset drops everything bound to the wallet. Marketplace listings do not depend on
// the wallet and are kept.
func Reset() Reducer {
	return func(state models.State) models.State {
		next := models.DefaultState()
		next.AllMarketplaceData = state.AllMarketplaceData
		next.MarketplaceLoaded = state.MarketplaceLoaded
		return next
	}
}
