package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/PaulSpaurgen/interface-v2/conf"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/oyster"
)

const providerNamesKey = "provider_names"

type rateCard struct {
	Instance string      `json:"instance"`
	MinRate  json.Number `json:"min_rate"`
	Cpu      *int64      `json:"cpu"`
	Memory   *int64      `json:"memory"`
}

type regionRates struct {
	Region    string     `json:"region"`
	RateCards []rateCard `json:"rate_cards"`
}

// ProviderSpec is one provider entry of the operator instances endpoint.
type ProviderSpec struct {
	ID       string        `json:"id"`
	MinRates []regionRates `json:"min_rates"`
}

// Fetcher reads marketplace listings and job status from the oyster operator API.
type Fetcher struct {
	httpClient  *http.Client
	urls        conf.OysterUrls
	names       *cache.Cache
	regionNames map[string]string
	failures    func(endpoint string)
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

func WithFailureHook(hook func(endpoint string)) Option {
	return func(f *Fetcher) {
		f.failures = hook
	}
}

// NewFetcher keeps provider names for namesTTL. regionNames maps region codes to the
// display names attached to listings.
func NewFetcher(urls conf.OysterUrls, namesTTL time.Duration, regionNames map[string]string, opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		urls:        urls,
		names:       cache.New(namesTTL, 2*namesTTL),
		regionNames: regionNames,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request, error: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed send a request, error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed read response, error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("operator api returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed parse response, error: %w", err)
	}
	return nil
}

func (f *Fetcher) logFailure(endpoint, url string, err error) {
	logs.GetLogger().WithFields(logrus.Fields{
		"endpoint": endpoint,
		"url":      url,
	}).Errorf("operator api request failed, using default, error: %+v", err)
	if f.failures != nil {
		f.failures(endpoint)
	}
}

// ProviderNames returns provider address to name, keyed by lower cased address. A
// failed request is not cached.
func (f *Fetcher) ProviderNames(ctx context.Context) map[string]string {
	if value, found := f.names.Get(providerNamesKey); found {
		return value.(map[string]string)
	}
	var raw map[string]string
	if err := f.getJSON(ctx, f.urls.ProviderNamesUrl, &raw); err != nil {
		f.logFailure("provider_names", f.urls.ProviderNamesUrl, err)
		return map[string]string{}
	}
	names := make(map[string]string, len(raw))
	for address, name := range raw {
		names[strings.ToLower(address)] = name
	}
	f.names.Set(providerNamesKey, names, cache.DefaultExpiration)
	return names
}

// FetchMarketplace returns every rate card of every provider as a listing. On failure
// the list is empty and the error is returned, so callers can fall back to a stored
// snapshot.
func (f *Fetcher) FetchMarketplace(ctx context.Context) ([]models.MarketplaceListing, error) {
	var specs []ProviderSpec
	if err := f.getJSON(ctx, f.urls.ProviderInstancesUrl, &specs); err != nil {
		f.logFailure("provider_instances", f.urls.ProviderInstancesUrl, err)
		return []models.MarketplaceListing{}, err
	}
	listings := FlattenSpecs(specs, f.ProviderNames(ctx))
	return oyster.AddRegionNames(listings, f.regionNames), nil
}

// FlattenSpecs turns provider specs into listings. Rate cards without an instance or
// with an unreadable rate are skipped.
func FlattenSpecs(specs []ProviderSpec, names map[string]string) []models.MarketplaceListing {
	listings := make([]models.MarketplaceListing, 0)
	for _, spec := range specs {
		if spec.ID == "" {
			continue
		}
		provider := models.Provider{Address: spec.ID, Name: names[strings.ToLower(spec.ID)]}
		for _, region := range spec.MinRates {
			for _, card := range region.RateCards {
				rate, ok := new(big.Int).SetString(card.MinRate.String(), 10)
				if card.Instance == "" || !ok {
					continue
				}
				listings = append(listings, models.MarketplaceListing{
					ID:       fmt.Sprintf("%s-%s-%s", strings.ToLower(spec.ID), region.Region, card.Instance),
					Provider: provider,
					Instance: card.Instance,
					Region:   region.Region,
					Rate:     rate,
					Vcpu:     card.Cpu,
					Memory:   card.Memory,
				})
			}
		}
	}
	return listings
}

// JobStatus returns the ip of the enclave running jobID, or "" when it is unknown.
func (f *Fetcher) JobStatus(ctx context.Context, jobID string) string {
	var status struct {
		IP string `json:"ip"`
	}
	url := f.urls.JobStatusUrl + jobID
	if err := f.getJSON(ctx, url, &status); err != nil {
		f.logFailure("job_status", url, err)
		return ""
	}
	return status.IP
}
