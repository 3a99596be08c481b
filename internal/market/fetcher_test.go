package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulSpaurgen/interface-v2/conf"
)

const specsBody = `[
  {"id":"0xAAA","min_rates":[
    {"region":"ap-south-1","rate_cards":[
      {"instance":"c6a.xlarge","min_rate":"1200","cpu":4,"memory":8192},
      {"instance":"","min_rate":"1"},
      {"instance":"bad","min_rate":"1.5"}
    ]},
    {"region":"us-east-1","rate_cards":[{"instance":"m5.large","min_rate":900,"cpu":2,"memory":4096}]}
  ]},
  {"id":"","min_rates":[]}
]`

func newOperator(t *testing.T, namesCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/spec", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(specsBody))
	})
	mux.HandleFunc("/names", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(namesCalls, 1)
		_, _ = w.Write([]byte(`{"0xaaa":"Marlin"}`))
	})
	mux.HandleFunc("/jobs/0x01", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"13.1.1.1"}`))
	})
	mux.HandleFunc("/jobs/0x02", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func urls(srv *httptest.Server) conf.OysterUrls {
	return conf.OysterUrls{
		ProviderInstancesUrl: srv.URL + "/spec",
		ProviderNamesUrl:     srv.URL + "/names",
		JobStatusUrl:         srv.URL + "/jobs/",
	}
}

func TestMarketplace(t *testing.T) {
	var calls int32
	srv := newOperator(t, &calls)
	f := NewFetcher(urls(srv), time.Minute, map[string]string{"ap-south-1": "Asia Pacific (Mumbai)"})

	listings, err := f.FetchMarketplace(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Marlin", listings[0].Provider.Name)
	assert.Equal(t, "0xAAA", listings[0].Provider.Address)
	assert.Equal(t, "Asia Pacific (Mumbai)", listings[0].RegionName)
	assert.Equal(t, "1200", listings[0].Rate.String())
	assert.Equal(t, int64(4), *listings[0].Vcpu)
	assert.Equal(t, "0xaaa-us-east-1-m5.large", listings[1].ID)
	assert.Equal(t, "", listings[1].RegionName)

	_, err = f.FetchMarketplace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "provider names are cached")
}

func TestJobStatus(t *testing.T) {
	var calls int32
	srv := newOperator(t, &calls)
	failed := 0
	f := NewFetcher(urls(srv), time.Minute, nil, WithFailureHook(func(string) { failed++ }))
	assert.Equal(t, "13.1.1.1", f.JobStatus(context.Background(), "0x01"))
	assert.Equal(t, "", f.JobStatus(context.Background(), "0x02"))
	assert.Equal(t, 1, failed)
}

func TestFailuresReturnDefaults(t *testing.T) {
	f := NewFetcher(conf.OysterUrls{
		ProviderInstancesUrl: "http://127.0.0.1:1/spec",
		ProviderNamesUrl:     "http://127.0.0.1:1/names",
	}, time.Minute, nil)
	listings, err := f.FetchMarketplace(context.Background())
	assert.Error(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
	assert.Empty(t, f.ProviderNames(context.Background()))
}
