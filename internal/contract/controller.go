package contract

import (
	"context"
	"math/big"

	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

// JobOpenResult is a confirmed job open with the id the market assigned to the job.
type JobOpenResult struct {
	Tx    models.Transaction
	JobID string
}

// Controller sends oyster market transactions. Every method returns once the
// transaction receipt is known, with an error when it was reverted.
type Controller interface {
	Address() string

	ApproveFunds(ctx context.Context, amount *big.Int) (models.Transaction, error)
	Allowance(ctx context.Context, owner string) (*big.Int, error)
	TokenBalance(ctx context.Context, owner string) (*big.Int, error)

	CreateJob(ctx context.Context, metadata string, provider string, rate *big.Int, balance *big.Int) (JobOpenResult, error)
	AddFunds(ctx context.Context, jobID string, amount *big.Int) (models.Transaction, error)
	WithdrawFunds(ctx context.Context, jobID string, amount *big.Int) (models.Transaction, error)
	InitiateRateRevise(ctx context.Context, jobID string, newRate *big.Int) (models.Transaction, error)
	CancelRateRevise(ctx context.Context, jobID string) (models.Transaction, error)
	FinalizeRateRevise(ctx context.Context, jobID string) (models.Transaction, error)
	StopJob(ctx context.Context, jobID string) (models.Transaction, error)
	SettleJob(ctx context.Context, jobID string) (models.Transaction, error)

	RegisterProvider(ctx context.Context, cpURL string) (models.Transaction, error)
	UpdateProvider(ctx context.Context, cpURL string) (models.Transaction, error)
	UnregisterProvider(ctx context.Context) (models.Transaction, error)
}
