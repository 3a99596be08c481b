package oyster

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

// Filter selects marketplace listings. Empty strings and zero values are ignored.
type Filter struct {
	Provider string   `json:"provider" form:"provider"`
	Region   string   `json:"region" form:"region"`
	Instance string   `json:"instance" form:"instance"`
	Memory   int64    `json:"memory" form:"memory"`
	Vcpu     int64    `json:"vcpu" form:"vcpu"`
	Rate     *big.Int `json:"rate,omitempty" form:"-"`
}

func optionalString(v *int64) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.FormatInt(*v, 10), true
}

func match(field, value string, exact bool) bool {
	if exact {
		return field == value
	}
	return strings.Contains(field, value)
}

func matchNumber(field *int64, value int64, exact bool) bool {
	s, ok := optionalString(field)
	if !ok {
		return false
	}
	return match(s, strconv.FormatInt(value, 10), exact)
}

// FilterMarketplace applies f to listings, comparing lower cased values. With
// exactMatch unset a filter value only has to be a substring of the field. Provider
// matches on address or name and region on code or display name.
func FilterMarketplace(listings []models.MarketplaceListing, f Filter, exactMatch bool) []models.MarketplaceListing {
	result := make([]models.MarketplaceListing, 0, len(listings))
	provider := strings.ToLower(f.Provider)
	region := strings.ToLower(f.Region)
	instance := strings.ToLower(f.Instance)

	for _, item := range listings {
		if provider != "" &&
			!match(strings.ToLower(item.Provider.Address), provider, exactMatch) &&
			!match(strings.ToLower(item.Provider.Name), provider, exactMatch) {
			continue
		}
		if region != "" &&
			!match(strings.ToLower(item.Region), region, exactMatch) &&
			!match(strings.ToLower(item.RegionName), region, exactMatch) {
			continue
		}
		if f.Memory != 0 && !matchNumber(item.Memory, f.Memory, exactMatch) {
			continue
		}
		if f.Vcpu != 0 && !matchNumber(item.Vcpu, f.Vcpu, exactMatch) {
			continue
		}
		if instance != "" && !match(strings.ToLower(item.Instance), instance, exactMatch) {
			continue
		}
		result = append(result, item)
	}
	return result
}

// FilterMarketplaceStrict compares raw field values and also filters on rate. Provider
// is still a substring match on address or name.
func FilterMarketplaceStrict(listings []models.MarketplaceListing, f Filter) []models.MarketplaceListing {
	result := make([]models.MarketplaceListing, 0, len(listings))
	provider := strings.ToLower(f.Provider)
	for _, item := range listings {
		if provider != "" &&
			!strings.Contains(item.Provider.Address, provider) &&
			!strings.Contains(item.Provider.Name, provider) {
			continue
		}
		if f.Region != "" && item.Region != f.Region {
			continue
		}
		if f.Memory != 0 && (item.Memory == nil || *item.Memory != f.Memory) {
			continue
		}
		if f.Vcpu != 0 && (item.Vcpu == nil || *item.Vcpu != f.Vcpu) {
			continue
		}
		if f.Instance != "" && item.Instance != f.Instance {
			continue
		}
		if f.Rate != nil && f.Rate.Sign() != 0 && (item.Rate == nil || item.Rate.Cmp(f.Rate) != 0) {
			continue
		}
		result = append(result, item)
	}
	return result
}

type FilterID string

const (
	FilterProvider FilterID = "provider"
	FilterInstance FilterID = "instance"
	FilterRegion   FilterID = "region"
	FilterVcpu     FilterID = "vcpu"
	FilterMemory   FilterID = "memory"
)

type RegionOption struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Filters holds the candidate values of every filterable dimension.
type Filters struct {
	Providers []string       `json:"provider"`
	Instances []string       `json:"instance"`
	Regions   []RegionOption `json:"region"`
	Vcpus     []string       `json:"vcpu"`
	Memories  []string       `json:"memory"`
}

func uniqueStrings(values []string, addAll bool) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values)+1)
	if addAll && len(values) > 0 {
		result = append(result, constants.FilterAllOption)
	}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

func sortedNumbers(values []int64, addAll bool) []string {
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	s := make([]string, 0, len(values))
	for _, v := range values {
		s = append(s, strconv.FormatInt(v, 10))
	}
	return uniqueStrings(s, addAll)
}

// DeriveFilters collects the values present in listings. Numbers are sorted ascending
// and zero or missing ones are skipped. With addAll set, every non-empty list starts
// with the "All" option.
func DeriveFilters(listings []models.MarketplaceListing, addAll bool) Filters {
	var providers, instances []string
	var vcpus, memories []int64
	regions := make([]RegionOption, 0, len(listings)+1)
	seenRegion := make(map[string]struct{})

	for _, item := range listings {
		providers = append(providers, item.Provider.DisplayName())
		instances = append(instances, item.Instance)
		if _, ok := seenRegion[item.Region]; !ok {
			seenRegion[item.Region] = struct{}{}
			regions = append(regions, RegionOption{Name: item.RegionName, Code: item.Region})
		}
		if item.Vcpu != nil && *item.Vcpu != 0 {
			vcpus = append(vcpus, *item.Vcpu)
		}
		if item.Memory != nil && *item.Memory != 0 {
			memories = append(memories, *item.Memory)
		}
	}
	if addAll && len(regions) > 0 {
		regions = append([]RegionOption{{Name: constants.FilterAllOption, Code: constants.FilterAllOption}}, regions...)
	}

	return Filters{
		Providers: uniqueStrings(providers, addAll),
		Instances: uniqueStrings(instances, addAll),
		Regions:   regions,
		Vcpus:     sortedNumbers(vcpus, addAll),
		Memories:  sortedNumbers(memories, addAll),
	}
}

// UpdatedFilters returns current with the lists named in keep taken from previous, so
// the dimension a user is editing does not shrink to its own selection.
func UpdatedFilters(previous, current Filters, keep []FilterID) Filters {
	next := current
	for _, id := range keep {
		switch id {
		case FilterProvider:
			next.Providers = previous.Providers
		case FilterInstance:
			next.Instances = previous.Instances
		case FilterRegion:
			next.Regions = previous.Regions
		case FilterVcpu:
			next.Vcpus = previous.Vcpus
		case FilterMemory:
			next.Memories = previous.Memories
		}
	}
	return next
}

func ParseFilterID(s string) (FilterID, bool) {
	switch id := FilterID(s); id {
	case FilterProvider, FilterInstance, FilterRegion, FilterVcpu, FilterMemory:
		return id, true
	}
	return "", false
}

// RateForProviderAndFilters returns the advertised rate of the provider for instance
// and region, or nil when there is none.
func RateForProviderAndFilters(providerAddress, instance, region string, listings []models.MarketplaceListing) *big.Int {
	if providerAddress == "" || instance == "" || region == "" {
		return nil
	}
	for _, item := range listings {
		if item.Provider.Address == providerAddress && item.Instance == instance && item.Region == region {
			return item.Rate
		}
	}
	return nil
}

type InstanceRegionFilters struct {
	Instances []string       `json:"instance"`
	Regions   []RegionOption `json:"region"`
}

// CreateOrderInstanceRegionFilters lists the instances and regions offered by one
// provider, without the "All" option.
func CreateOrderInstanceRegionFilters(providerAddress string, listings []models.MarketplaceListing) InstanceRegionFilters {
	if providerAddress == "" || len(listings) == 0 {
		return InstanceRegionFilters{}
	}
	var offered []models.MarketplaceListing
	for _, item := range listings {
		if item.Provider.Address == providerAddress {
			offered = append(offered, item)
		}
	}
	filters := DeriveFilters(offered, false)
	return InstanceRegionFilters{Instances: filters.Instances, Regions: filters.Regions}
}

// AddRegionNames sets the display name of every listing whose region is in mapping.
func AddRegionNames(listings []models.MarketplaceListing, mapping map[string]string) []models.MarketplaceListing {
	result := make([]models.MarketplaceListing, len(listings))
	for i, item := range listings {
		if name, ok := mapping[item.Region]; ok && name != "" {
			item.RegionName = name
		}
		result[i] = item
	}
	return result
}
