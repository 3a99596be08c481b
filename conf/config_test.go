package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644))
	return dir
}

func TestInitConfigAppliesDefaults(t *testing.T) {
	dir := writeConfig(t, `
[API]
RedisUrl = "127.0.0.1:6379"

[CHAIN]
ChainId = "0xa4b1"
Rpc = "https://arb1.arbitrum.io/rpc"
`)
	require.NoError(t, InitConfig(dir))
	c := GetConfig()
	assert.Equal(t, 8086, c.API.Port)
	assert.Equal(t, "*", c.API.AllowOrigins)
	assert.Equal(t, 30*time.Second, c.RefreshInterval())
	assert.Equal(t, 4, c.SYNC.StatusWorkers)
	assert.Equal(t, 10*time.Minute, c.MarketplaceCacheTTL())
	assert.Equal(t, 3*time.Minute, c.ReceiptTimeout())
}

func TestLoadConfigRequiresChain(t *testing.T) {
	dir := writeConfig(t, `
[API]
Port = 9000

[CHAIN]
Rpc = "https://arb1.arbitrum.io/rpc"
`)
	_, err := LoadConfig(filepath.Join(dir, "config.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ChainId")
}

func TestChainConfigOverrides(t *testing.T) {
	c := &OysterNode{CHAIN: CHAIN{
		ChainId:        "0xA4B1",
		OysterContract: "0x0000000000000000000000000000000000000001",
		OperatorApiUrl: "http://localhost:8080/",
	}}
	chain, err := c.ChainConfig()
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", chain.ContractAddresses.Oyster)
	assert.Equal(t, "http://localhost:8080/jobs/", chain.OysterUrls.JobStatusUrl)
	assert.Equal(t, "http://localhost:8080/spec", chain.OysterUrls.ProviderInstancesUrl)

	// the static table is untouched
	original, err := GetChainConfig(ArbOneChainId)
	require.NoError(t, err)
	assert.NotEqual(t, chain.ContractAddresses.Oyster, original.ContractAddresses.Oyster)

	md := chain.OysterTokenMetadata()
	assert.Equal(t, 6, md.Decimals)
	assert.Equal(t, "USDC", md.Symbol)
}

func TestGetChainConfigUnsupported(t *testing.T) {
	_, err := GetChainConfig("0x1")
	assert.Error(t, err)
	assert.Contains(t, SupportedChainIds(), ArbOneChainId)
}

func TestRegionNames(t *testing.T) {
	names, err := RegionNames()
	require.NoError(t, err)
	assert.Equal(t, "US East (N. Virginia)", names["us-east-1"])
	assert.Equal(t, "Asia Pacific (Mumbai)", names["ap-south-1"])

	_, err = ParseRegionNames([]byte("a: [b"))
	assert.Error(t, err)
}
