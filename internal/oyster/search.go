package oyster

import (
	"strings"

	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

func containsFold(field, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(field), lowerNeedle)
}

// SearchInventory keeps the jobs whose instance, region or provider name or address
// contains the search input, ignoring case.
func SearchInventory(search string, jobs []models.Job) []models.Job {
	if jobs == nil {
		return []models.Job{}
	}
	if search == "" {
		return jobs
	}
	needle := strings.ToLower(search)
	result := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if containsFold(job.Instance, needle) ||
			containsFold(job.Region, needle) ||
			containsFold(job.Provider.Name, needle) ||
			containsFold(job.Provider.Address, needle) {
			result = append(result, job)
		}
	}
	return result
}

// SearchOysterJobs is the provider side search over instance, region and owner.
func SearchOysterJobs(search string, jobs []models.Job) []models.Job {
	if jobs == nil {
		return []models.Job{}
	}
	if search == "" {
		return jobs
	}
	needle := strings.ToLower(search)
	result := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if containsFold(job.Instance, needle) ||
			containsFold(job.Region, needle) ||
			containsFold(job.Owner, needle) {
			result = append(result, job)
		}
	}
	return result
}

func SearchMarketplace(search string, listings []models.MarketplaceListing) []models.MarketplaceListing {
	if listings == nil {
		return []models.MarketplaceListing{}
	}
	if search == "" {
		return listings
	}
	needle := strings.ToLower(search)
	result := make([]models.MarketplaceListing, 0, len(listings))
	for _, item := range listings {
		if containsFold(item.Instance, needle) ||
			containsFold(item.Region, needle) ||
			containsFold(item.Provider.Name, needle) ||
			containsFold(item.Provider.Address, needle) {
			result = append(result, item)
		}
	}
	return result
}
