package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/sirupsen/logrus"

	"github.com/PaulSpaurgen/interface-v2/conf"
)

// Client queries the indexers of one network.
type Client struct {
	httpClient    *http.Client
	urls          conf.SubgraphUrls
	scalingFactor *big.Int
	failures      func(query string)
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

func WithRateScalingFactor(factor *big.Int) Option {
	return func(client *Client) {
		client.scalingFactor = factor
	}
}

// WithFailureHook is called with the query name every time a getter falls back to its
// default value.
func WithFailureHook(hook func(query string)) Option {
	return func(client *Client) {
		client.failures = hook
	}
}

func NewClient(urls conf.SubgraphUrls, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		urls:          urls,
		scalingFactor: big.NewInt(1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query posts query with variables to url and decodes the data field of the response
// into out.
func (c *Client) Query(ctx context.Context, url string, query string, variables map[string]interface{}, out interface{}) error {
	if variables == nil {
		variables = map[string]interface{}{}
	}
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed convert to json, error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("error creating request, error: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed send a request, error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed read response, error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, string(body))
	}

	var result graphQLResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed parse response, error: %w", err)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("indexer error: %s", result.Errors[0].Message)
	}
	if len(result.Data) == 0 || string(result.Data) == "null" {
		return fmt.Errorf("indexer response has no data")
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed parse data, error: %w", err)
	}
	return nil
}

func (c *Client) logFailure(name, url string, err error) {
	logs.GetLogger().WithFields(logrus.Fields{
		"query": name,
		"url":   url,
	}).Errorf("indexer query failed, using default, error: %+v", err)
	if c.failures != nil {
		c.failures(name)
	}
}

// parseBigInt reads an indexer BigInt. Malformed values count as zero.
func parseBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

func parseInt64(s string) int64 {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}
