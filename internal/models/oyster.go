package models

import "math/big"

type Provider struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// DisplayName is the provider name, or its address when no name is known.
func (p Provider) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Address
}

type DepositHistoryEntry struct {
	Amount            *big.Int `json:"amount"`
	ID                string   `json:"id"`
	TxHash            string   `json:"tx_hash"`
	Timestamp         int64    `json:"timestamp"`
	IsWithdrawal      bool     `json:"is_withdrawal"`
	TransactionStatus string   `json:"transaction_status"`
}

type SettlementHistoryEntry struct {
	Amount    *big.Int `json:"amount"`
	ID        string   `json:"id"`
	TxHash    string   `json:"tx_hash"`
	Timestamp int64    `json:"timestamp"`
}

// RateRevise is a pending change of a job rate. UpdatesAt is the unix time after which
// the revision may be finalized.
type RateRevise struct {
	NewRate    *big.Int `json:"new_rate"`
	RateStatus string   `json:"rate_status"`
	StopStatus string   `json:"stop_status"`
	UpdatesAt  int64    `json:"updates_at"`
}

func (r *RateRevise) Clone() *RateRevise {
	if r == nil {
		return nil
	}
	c := *r
	c.NewRate = cloneInt(r.NewRate)
	return &c
}

// Job is a leased enclave instance as seen by its owner or its provider.
type Job struct {
	ID       string   `json:"id"`
	Owner    string   `json:"owner"`
	Provider Provider `json:"provider"`
	Metadata string   `json:"metadata"`

	EnclaveURL string `json:"enclave_url"`
	Instance   string `json:"instance"`
	Region     string `json:"region"`
	Vcpu       *int64 `json:"vcpu,omitempty"`
	Memory     *int64 `json:"memory,omitempty"`
	IP         string `json:"ip"`

	AmountUsed        *big.Int `json:"amount_used"`
	Refund            *big.Int `json:"refund"`
	Rate              *big.Int `json:"rate"`
	DownScaledRate    *big.Int `json:"down_scaled_rate"`
	Balance           *big.Int `json:"balance"`
	TotalDeposit      *big.Int `json:"total_deposit"`
	AmountToBeSettled *big.Int `json:"amount_to_be_settled"`

	Live         bool   `json:"live"`
	LastSettled  int64  `json:"last_settled"`
	CreatedAt    int64  `json:"created_at"`
	EndEpochTime int64  `json:"end_epoch_time"`
	DurationLeft int64  `json:"duration_left"`
	DurationRun  int64  `json:"duration_run"`
	Status       string `json:"status"`

	DepositHistory    []DepositHistoryEntry    `json:"deposit_history"`
	SettlementHistory []SettlementHistoryEntry `json:"settlement_history"`
	ReviseRate        *RateRevise              `json:"revise_rate,omitempty"`
}

// Clone deep copies the job so a reducer can modify the copy without touching the
// snapshot other readers hold.
func (j Job) Clone() Job {
	c := j
	c.Vcpu = cloneInt64(j.Vcpu)
	c.Memory = cloneInt64(j.Memory)
	c.AmountUsed = cloneInt(j.AmountUsed)
	c.Refund = cloneInt(j.Refund)
	c.Rate = cloneInt(j.Rate)
	c.DownScaledRate = cloneInt(j.DownScaledRate)
	c.Balance = cloneInt(j.Balance)
	c.TotalDeposit = cloneInt(j.TotalDeposit)
	c.AmountToBeSettled = cloneInt(j.AmountToBeSettled)
	if j.DepositHistory != nil {
		c.DepositHistory = make([]DepositHistoryEntry, len(j.DepositHistory))
		for i, e := range j.DepositHistory {
			e.Amount = cloneInt(e.Amount)
			c.DepositHistory[i] = e
		}
	}
	if j.SettlementHistory != nil {
		c.SettlementHistory = make([]SettlementHistoryEntry, len(j.SettlementHistory))
		for i, e := range j.SettlementHistory {
			e.Amount = cloneInt(e.Amount)
			c.SettlementHistory[i] = e
		}
	}
	c.ReviseRate = j.ReviseRate.Clone()
	return c
}

type MarketplaceListing struct {
	ID         string   `json:"id"`
	Provider   Provider `json:"provider"`
	Instance   string   `json:"instance"`
	Region     string   `json:"region"`
	RegionName string   `json:"region_name"`
	Rate       *big.Int `json:"rate"`
	Vcpu       *int64   `json:"vcpu,omitempty"`
	Memory     *int64   `json:"memory,omitempty"`
}

// ProviderData is the registration of the current wallet as an oyster provider.
type ProviderData struct {
	CP   string `json:"cp"`
	ID   string `json:"id"`
	Live bool   `json:"live"`
}

type ProviderState struct {
	Registered bool          `json:"registered"`
	Data       *ProviderData `json:"data,omitempty"`
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Int64 returns a pointer to v, for the optional vcpu and memory fields.
func Int64(v int64) *int64 {
	return &v
}

// Transaction identifies a confirmed contract transaction.
type Transaction struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}
