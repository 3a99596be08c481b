package models

import "math/big"

// State is the aggregate snapshot kept by the oyster store. A State value is never
// modified after it has been published; reducers build a new one.
type State struct {
	JobsData           []Job                `json:"jobs_data"`
	MerchantJobsData   []Job                `json:"merchant_jobs_data"`
	AllMarketplaceData []MarketplaceListing `json:"all_marketplace_data"`
	ProviderData       ProviderState        `json:"provider_data"`
	Allowance          *big.Int             `json:"allowance"`

	// ids of jobs created by this client which the indexer has not returned yet
	LocalOnly map[string]struct{} `json:"-"`

	OysterStoreLoaded     bool `json:"oyster_store_loaded"`
	MarketplaceLoaded     bool `json:"marketplace_loaded"`
	MerchantJobsLoaded    bool `json:"merchant_jobs_loaded"`
	ProviderDetailsLoaded bool `json:"provider_details_loaded"`
}

func DefaultState() State {
	return State{
		JobsData:           []Job{},
		MerchantJobsData:   []Job{},
		AllMarketplaceData: []MarketplaceListing{},
		Allowance:          big.NewInt(0),
		LocalOnly:          map[string]struct{}{},
	}
}

// FindJob returns the job with the given id from the owner inventory.
func (s State) FindJob(id string) (Job, bool) {
	for _, job := range s.JobsData {
		if job.ID == id {
			return job, true
		}
	}
	return Job{}, false
}

func (s State) FindMerchantJob(id string) (Job, bool) {
	for _, job := range s.MerchantJobsData {
		if job.ID == id {
			return job, true
		}
	}
	return Job{}, false
}
