package services

import (
	"context"
	"math/big"
	"strings"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/contract"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
	"github.com/PaulSpaurgen/interface-v2/internal/store"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrListingNotFound = errors.New("the provider does not offer this instance in this region")
)

// OysterService runs oyster actions: the contract call first, then the optimistic
// store update built from the arguments of the call. A failed call leaves the store
// untouched.
type OysterService struct {
	store    *store.Store
	contract contract.Controller
}

func NewOysterService(s *store.Store, c contract.Controller) *OysterService {
	return &OysterService{store: s, contract: c}
}

func logAction(action, jobID string) *logrus.Entry {
	return logs.GetLogger().WithFields(logrus.Fields{"action": action, "job": jobID})
}

func (s *OysterService) job(id string) (models.Job, error) {
	job, ok := s.store.Snapshot().FindJob(id)
	if !ok {
		return models.Job{}, errors.Wrapf(ErrJobNotFound, "id: %s", id)
	}
	return job, nil
}

// CreateJobRequest describes a new job. Duration is the seconds the balance pays for.
type CreateJobRequest struct {
	Metadata     string
	Provider     models.Provider
	Rate         *big.Int
	Balance      *big.Int
	DurationSecs int64
}

// ListingJobRequest builds the request opening a job on the listing of provider for
// instance and region. The balance pays for durationSecs at the listed rate.
func ListingJobRequest(listings []models.MarketplaceListing, provider, instance, region, enclaveURL string,
	durationSecs int64, scalingFactor *big.Int) (CreateJobRequest, error) {
	if durationSecs <= 0 {
		return CreateJobRequest{}, errors.Errorf("invalid duration: %d", durationSecs)
	}
	var listing *models.MarketplaceListing
	for i := range listings {
		item := listings[i]
		if strings.EqualFold(item.Provider.Address, provider) && item.Instance == instance && item.Region == region {
			listing = &listings[i]
			break
		}
	}
	if listing == nil || listing.Rate == nil {
		return CreateJobRequest{}, errors.Wrapf(ErrListingNotFound, "provider: %s", provider)
	}

	metadata, err := oyster.EncodeMetadata(oyster.Metadata{
		EnclaveURL: enclaveURL,
		Instance:   listing.Instance,
		Region:     listing.Region,
		Vcpu:       listing.Vcpu,
		Memory:     listing.Memory,
	})
	if err != nil {
		return CreateJobRequest{}, errors.Wrap(err, "encode metadata")
	}
	return CreateJobRequest{
		Metadata:     metadata,
		Provider:     listing.Provider,
		Rate:         oyster.UpScaleRate(listing.Rate, scalingFactor),
		Balance:      oyster.ComputeCost(durationSecs, listing.Rate),
		DurationSecs: durationSecs,
	}, nil
}

func (s *OysterService) CreateJob(ctx context.Context, req CreateJobRequest) (models.Job, error) {
	owner := s.contract.Address()
	rate := new(big.Int).Set(req.Rate)
	balance := new(big.Int).Set(req.Balance)

	result, err := s.contract.CreateJob(ctx, req.Metadata, req.Provider.Address, rate, balance)
	if err != nil {
		return models.Job{}, errors.Wrap(err, "create job")
	}
	now := s.store.Now()
	job := NewLocalJob(result, owner, req, s.store.RateScalingFactor(), now)
	s.store.CreateNewJob(job)
	logAction("create", job.ID).Infof("job created, tx: %s", result.Tx.Hash)
	return job, nil
}

// NewLocalJob is the inventory entry of a job this client just opened, used until the
// indexer returns the job.
func NewLocalJob(result contract.JobOpenResult, owner string, req CreateJobRequest, scalingFactor *big.Int, now int64) models.Job {
	md := oyster.ParseMetadata(req.Metadata)
	return models.Job{
		ID:                result.JobID,
		Owner:             owner,
		Provider:          req.Provider,
		Metadata:          req.Metadata,
		EnclaveURL:        md.EnclaveURL,
		Instance:          md.Instance,
		Region:            md.Region,
		Vcpu:              md.Vcpu,
		Memory:            md.Memory,
		AmountUsed:        big.NewInt(0),
		Refund:            big.NewInt(0),
		Rate:              new(big.Int).Set(req.Rate),
		DownScaledRate:    oyster.DownScaleRate(req.Rate, scalingFactor),
		Balance:           new(big.Int).Set(req.Balance),
		TotalDeposit:      new(big.Int).Set(req.Balance),
		AmountToBeSettled: big.NewInt(0),
		Live:              true,
		LastSettled:       now,
		CreatedAt:         now,
		EndEpochTime:      now + req.DurationSecs,
		DurationLeft:      req.DurationSecs,
		Status:            constants.StatusRunning,
		DepositHistory: []models.DepositHistoryEntry{{
			Amount:            new(big.Int).Set(req.Balance),
			ID:                result.Tx.Hash,
			TxHash:            result.Tx.Hash,
			Timestamp:         now,
			TransactionStatus: constants.TxStatusDeposit,
		}},
		SettlementHistory: []models.SettlementHistoryEntry{},
	}
}

func (s *OysterService) AddFunds(ctx context.Context, jobID string, amount *big.Int, duration int64) error {
	if _, err := s.job(jobID); err != nil {
		return err
	}
	amount = new(big.Int).Set(amount)
	tx, err := s.contract.AddFunds(ctx, jobID, amount)
	if err != nil {
		return errors.Wrapf(err, "add funds to job %s", jobID)
	}
	s.store.AddFundsToJob(jobID, tx, amount, duration)
	logAction("deposit", jobID).Infof("funds added, amount: %s", amount)
	return nil
}

func (s *OysterService) WithdrawFunds(ctx context.Context, jobID string, amount *big.Int, duration int64) error {
	if _, err := s.job(jobID); err != nil {
		return err
	}
	amount = new(big.Int).Set(amount)
	tx, err := s.contract.WithdrawFunds(ctx, jobID, amount)
	if err != nil {
		return errors.Wrapf(err, "withdraw funds from job %s", jobID)
	}
	s.store.WithdrawFundsFromJob(jobID, tx, amount, duration)
	logAction("withdraw", jobID).Infof("funds withdrawn, amount: %s", amount)
	return nil
}

func (s *OysterService) InitiateRateRevise(ctx context.Context, jobID string, newRate *big.Int) error {
	job, err := s.job(jobID)
	if err != nil {
		return err
	}
	if job.ReviseRate != nil {
		return store.ErrRevisePending
	}
	newRate = new(big.Int).Set(newRate)
	if _, err := s.contract.InitiateRateRevise(ctx, jobID, newRate); err != nil {
		return errors.Wrapf(err, "initiate rate revise of job %s", jobID)
	}
	if err := s.store.InitiateRateRevise(jobID, newRate); err != nil {
		// a revision recorded while the transaction was pending is kept
		logAction("revise", jobID).Warnf("rate revise not recorded: %v", err)
	}
	return nil
}

func (s *OysterService) CancelRateRevise(ctx context.Context, jobID string) error {
	if _, err := s.job(jobID); err != nil {
		return err
	}
	if _, err := s.contract.CancelRateRevise(ctx, jobID); err != nil {
		return errors.Wrapf(err, "cancel rate revise of job %s", jobID)
	}
	s.store.CancelRateRevise(jobID)
	return nil
}

// FinalizeRateRevise applies the pending rate. The contract rejects the call before
// the waiting time has passed.
func (s *OysterService) FinalizeRateRevise(ctx context.Context, jobID string) error {
	job, err := s.job(jobID)
	if err != nil {
		return err
	}
	if job.ReviseRate == nil {
		return errors.Errorf("job %s has no pending rate revise", jobID)
	}
	newRate := new(big.Int).Set(job.ReviseRate.NewRate)
	if _, err := s.contract.FinalizeRateRevise(ctx, jobID); err != nil {
		return errors.Wrapf(err, "finalize rate revise of job %s", jobID)
	}
	s.store.FinalizeRateRevise(jobID, newRate)
	return nil
}

// MarkRevisionTimerEnded records that the stop request of a zero rate revision has
// become effective.
func (s *OysterService) MarkRevisionTimerEnded(jobID string) error {
	if _, err := s.job(jobID); err != nil {
		return err
	}
	s.store.UpdateJobStatusOnTimerEnd(jobID)
	return nil
}

func (s *OysterService) StopJob(ctx context.Context, jobID string) error {
	if _, err := s.job(jobID); err != nil {
		return err
	}
	tx, err := s.contract.StopJob(ctx, jobID)
	if err != nil {
		return errors.Wrapf(err, "stop job %s", jobID)
	}
	s.store.StopJob(jobID, tx)
	logAction("stop", jobID).Info("job stopped")
	return nil
}

// ApproveFunds approves amount for the market. The allowance becomes amount.
func (s *OysterService) ApproveFunds(ctx context.Context, amount *big.Int) error {
	amount = new(big.Int).Set(amount)
	if _, err := s.contract.ApproveFunds(ctx, amount); err != nil {
		return errors.Wrap(err, "approve funds")
	}
	s.store.SetAllowance(amount)
	return nil
}

// ClaimAmount settles a job served by this wallet as provider.
func (s *OysterService) ClaimAmount(ctx context.Context, jobID string) error {
	if _, ok := s.store.Snapshot().FindMerchantJob(jobID); !ok {
		return errors.Wrapf(ErrJobNotFound, "id: %s", jobID)
	}
	if _, err := s.contract.SettleJob(ctx, jobID); err != nil {
		return errors.Wrapf(err, "settle job %s", jobID)
	}
	s.store.UpdateAmountToBeSettled(jobID, big.NewInt(0))
	return nil
}

func (s *OysterService) RegisterProvider(ctx context.Context, cpURL string) error {
	if _, err := s.contract.RegisterProvider(ctx, cpURL); err != nil {
		return errors.Wrap(err, "register provider")
	}
	s.store.UpdateProvider(cpURL, s.contract.Address())
	return nil
}

func (s *OysterService) UpdateProvider(ctx context.Context, cpURL string) error {
	if _, err := s.contract.UpdateProvider(ctx, cpURL); err != nil {
		return errors.Wrap(err, "update provider")
	}
	s.store.UpdateProvider(cpURL, s.contract.Address())
	return nil
}

func (s *OysterService) UnregisterProvider(ctx context.Context) error {
	if _, err := s.contract.UnregisterProvider(ctx); err != nil {
		return errors.Wrap(err, "unregister provider")
	}
	s.store.RemoveProvider()
	return nil
}
