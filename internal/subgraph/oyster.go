package subgraph

import (
	"context"
	"math/big"
	"strings"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
)

type depositRow struct {
	ID           string `json:"id"`
	Amount       string `json:"amount"`
	Timestamp    string `json:"timestamp"`
	IsWithdrawal bool   `json:"isWithdrawal"`
	TxHash       string `json:"txHash"`
}

type settlementRow struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
	TxHash    string `json:"txHash"`
}

// JobRow is a job as returned by the oyster indexer.
type JobRow struct {
	ID                string          `json:"id"`
	Owner             string          `json:"owner"`
	Provider          string          `json:"provider"`
	Metadata          string          `json:"metadata"`
	Rate              string          `json:"rate"`
	Balance           string          `json:"balance"`
	TotalDeposit      string          `json:"totalDeposit"`
	Refund            string          `json:"refund"`
	LastSettled       string          `json:"lastSettled"`
	CreatedAt         string          `json:"createdAt"`
	DepositHistory    []depositRow    `json:"depositHistory"`
	SettlementHistory []settlementRow `json:"settlementHistory"`
}

type jobsData struct {
	Jobs []JobRow `json:"jobs"`
}

// GetOysterJobs returns the jobs owned by owner, or an empty list when the indexer
// cannot be reached.
func (c *Client) GetOysterJobs(ctx context.Context, owner string, now int64) []models.Job {
	jobs, err := c.FetchOysterJobs(ctx, owner, now)
	if err != nil {
		c.logFailure("OysterJobs", c.urls.Oyster, err)
		return []models.Job{}
	}
	return jobs
}

// GetMerchantJobs returns the jobs served by provider.
func (c *Client) GetMerchantJobs(ctx context.Context, provider string, now int64) []models.Job {
	jobs, err := c.FetchMerchantJobs(ctx, provider, now)
	if err != nil {
		c.logFailure("MerchantJobs", c.urls.Oyster, err)
		return []models.Job{}
	}
	return jobs
}

// FetchOysterJobs is GetOysterJobs reporting indexer failures to the caller.
func (c *Client) FetchOysterJobs(ctx context.Context, owner string, now int64) ([]models.Job, error) {
	return c.fetchJobs(ctx, queryOysterJobs, map[string]interface{}{"owner": strings.ToLower(owner)}, now)
}

func (c *Client) FetchMerchantJobs(ctx context.Context, provider string, now int64) ([]models.Job, error) {
	return c.fetchJobs(ctx, queryMerchantJobs, map[string]interface{}{"provider": strings.ToLower(provider)}, now)
}

func (c *Client) fetchJobs(ctx context.Context, query string, variables map[string]interface{}, now int64) ([]models.Job, error) {
	var data jobsData
	if err := c.Query(ctx, c.urls.Oyster, query, variables, &data); err != nil {
		return nil, err
	}
	jobs := make([]models.Job, 0, len(data.Jobs))
	for _, row := range data.Jobs {
		if row.ID == "" {
			continue
		}
		jobs = append(jobs, TransformJob(row, c.scalingFactor, now))
	}
	return jobs, nil
}

// TransformJob builds the inventory view of an indexer job at unix time now. The
// balance accrued by the provider since the last settlement is taken off the indexed
// balance before the durations are derived.
func TransformJob(row JobRow, scalingFactor *big.Int, now int64) models.Job {
	md := oyster.ParseMetadata(row.Metadata)
	rate := parseBigInt(row.Rate)
	downScaled := oyster.DownScaleRate(rate, scalingFactor)
	balance := parseBigInt(row.Balance)
	totalDeposit := parseBigInt(row.TotalDeposit)
	refund := parseBigInt(row.Refund)
	lastSettled := parseInt64(row.LastSettled)
	createdAt := parseInt64(row.CreatedAt)

	job := models.Job{
		ID:                row.ID,
		Owner:             row.Owner,
		Provider:          models.Provider{Address: row.Provider},
		Metadata:          row.Metadata,
		EnclaveURL:        md.EnclaveURL,
		Instance:          md.Instance,
		Region:            md.Region,
		Vcpu:              md.Vcpu,
		Memory:            md.Memory,
		Rate:              rate,
		DownScaledRate:    downScaled,
		TotalDeposit:      totalDeposit,
		Refund:            refund,
		LastSettled:       lastSettled,
		CreatedAt:         createdAt,
		AmountToBeSettled: big.NewInt(0),
		DepositHistory:    []models.DepositHistoryEntry{},
		SettlementHistory: []models.SettlementHistoryEntry{},
	}

	current := new(big.Int).Set(balance)
	if downScaled.Sign() > 0 && now > lastSettled {
		accrued := new(big.Int).Mul(downScaled, big.NewInt(now-lastSettled))
		if accrued.Cmp(current) > 0 {
			accrued.Set(current)
		}
		job.AmountToBeSettled = accrued
		current.Sub(current, accrued)
	}
	job.Balance = current

	switch {
	case downScaled.Sign() == 0:
		job.Status = constants.StatusStopped
		job.EndEpochTime = lastSettled
	case current.Sign() == 0:
		job.Status = constants.StatusCompleted
		job.EndEpochTime = oyster.AddSeconds(lastSettled, oyster.DurationForAmount(balance, downScaled))
	default:
		job.Status = constants.StatusRunning
		job.DurationLeft = oyster.DurationForAmount(current, downScaled)
		job.EndEpochTime = oyster.AddSeconds(now, job.DurationLeft)
	}
	job.Live = job.Status == constants.StatusRunning

	end := now
	if !job.Live && job.EndEpochTime < now {
		end = job.EndEpochTime
	}
	if end > createdAt {
		job.DurationRun = end - createdAt
	}

	used := new(big.Int).Sub(totalDeposit, current)
	used.Sub(used, refund)
	if used.Sign() < 0 {
		used.SetInt64(0)
	}
	job.AmountUsed = used

	for _, d := range row.DepositHistory {
		status := constants.TxStatusDeposit
		if d.IsWithdrawal {
			status = constants.TxStatusWithdrawal
		}
		job.DepositHistory = append(job.DepositHistory, models.DepositHistoryEntry{
			Amount:            parseBigInt(d.Amount),
			ID:                d.ID,
			TxHash:            d.TxHash,
			Timestamp:         parseInt64(d.Timestamp),
			IsWithdrawal:      d.IsWithdrawal,
			TransactionStatus: status,
		})
	}
	for _, s := range row.SettlementHistory {
		job.SettlementHistory = append(job.SettlementHistory, models.SettlementHistoryEntry{
			Amount:    parseBigInt(s.Amount),
			ID:        s.ID,
			TxHash:    s.TxHash,
			Timestamp: parseInt64(s.Timestamp),
		})
	}
	return job
}

// GetProviderDetails returns the registration of address, or nil when it is not a
// provider or the indexer cannot be reached.
func (c *Client) GetProviderDetails(ctx context.Context, address string) *models.ProviderData {
	provider, err := c.FetchProviderDetails(ctx, address)
	if err != nil {
		c.logFailure("ProviderDetails", c.urls.Oyster, err)
		return nil
	}
	return provider
}

// FetchProviderDetails returns nil without error when address is not a provider.
func (c *Client) FetchProviderDetails(ctx context.Context, address string) (*models.ProviderData, error) {
	var data struct {
		Providers []struct {
			ID   string `json:"id"`
			CP   string `json:"cp"`
			Live bool   `json:"live"`
		} `json:"providers"`
	}
	err := c.Query(ctx, c.urls.Oyster, queryProviderDetails, map[string]interface{}{"id": strings.ToLower(address)}, &data)
	if err != nil {
		return nil, err
	}
	if len(data.Providers) == 0 || data.Providers[0].ID == "" {
		return nil, nil
	}
	p := data.Providers[0]
	return &models.ProviderData{CP: p.CP, ID: p.ID, Live: p.Live}, nil
}

// GetAllowance returns what owner approved spender to use, zero by default.
func (c *Client) GetAllowance(ctx context.Context, owner, spender string) *big.Int {
	allowance, err := c.FetchAllowance(ctx, owner, spender)
	if err != nil {
		c.logFailure("Allowance", c.urls.Oyster, err)
		return big.NewInt(0)
	}
	return allowance
}

func (c *Client) FetchAllowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	var data struct {
		Allowances []struct {
			Amount string `json:"amount"`
		} `json:"allowances"`
	}
	variables := map[string]interface{}{
		"owner":   strings.ToLower(owner),
		"spender": strings.ToLower(spender),
	}
	if err := c.Query(ctx, c.urls.Oyster, queryAllowance, variables, &data); err != nil {
		return nil, err
	}
	if len(data.Allowances) == 0 {
		return big.NewInt(0), nil
	}
	return parseBigInt(data.Allowances[0].Amount), nil
}

func (c *Client) GetPondBalance(ctx context.Context, address string) *big.Int {
	var data struct {
		Users []struct {
			Balance string `json:"balance"`
		} `json:"users"`
	}
	err := c.Query(ctx, c.urls.Pond, queryPondBalance, map[string]interface{}{"address": strings.ToLower(address)}, &data)
	if err != nil {
		c.logFailure("PondBalance", c.urls.Pond, err)
		return big.NewInt(0)
	}
	if len(data.Users) == 0 {
		return big.NewInt(0)
	}
	return parseBigInt(data.Users[0].Balance)
}

func (c *Client) GetMpondBalance(ctx context.Context, address string) *big.Int {
	var data struct {
		Balances []struct {
			Amount string `json:"amount"`
		} `json:"balances"`
	}
	err := c.Query(ctx, c.urls.MPond, queryMpondBalance, map[string]interface{}{"id": strings.ToLower(address)}, &data)
	if err != nil {
		c.logFailure("MpondBalance", c.urls.MPond, err)
		return big.NewInt(0)
	}
	if len(data.Balances) == 0 {
		return big.NewInt(0)
	}
	return parseBigInt(data.Balances[0].Amount)
}
