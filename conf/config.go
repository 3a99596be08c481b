package conf

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

var config *OysterNode

// OysterNode is the oyster client node config
type OysterNode struct {
	API    API
	CHAIN  CHAIN
	SYNC   SYNC
	WALLET WALLET
}

type API struct {
	Port          int
	RedisUrl      string
	RedisPassword string
	AllowOrigins  string
}

type CHAIN struct {
	ChainId string
	Rpc     string
	// optional overrides of the static chain table
	OysterContract string
	TokenContract  string
	OysterSubgraph string
	OperatorApiUrl string
}

type SYNC struct {
	RefreshInterval     int
	StatusWorkers       int
	MarketplaceCacheTTL int
	ReceiptTimeout      int
}

type WALLET struct {
	Address string
}

func InitConfig(repoPath string) error {
	c, err := LoadConfig(filepath.Join(repoPath, "config.toml"))
	if err != nil {
		return err
	}
	config = c
	return nil
}

func LoadConfig(configFile string) (*OysterNode, error) {
	var node OysterNode
	metaData, err := toml.DecodeFile(configFile, &node)
	if err != nil {
		return nil, fmt.Errorf("failed load config file, path: %s, error: %w", configFile, err)
	}
	if err := requiredFieldsAreGiven(metaData); err != nil {
		return nil, err
	}
	node.applyDefaults()
	return &node, nil
}

func GetConfig() *OysterNode {
	return config
}

// SetConfig replaces the process-wide config, used by commands that build it in memory.
func SetConfig(c *OysterNode) {
	config = c
}

func (c *OysterNode) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8086
	}
	if c.API.AllowOrigins == "" {
		c.API.AllowOrigins = "*"
	}
	if c.SYNC.RefreshInterval <= 0 {
		c.SYNC.RefreshInterval = 30
	}
	if c.SYNC.StatusWorkers <= 0 {
		c.SYNC.StatusWorkers = 4
	}
	if c.SYNC.MarketplaceCacheTTL <= 0 {
		c.SYNC.MarketplaceCacheTTL = 600
	}
	if c.SYNC.ReceiptTimeout <= 0 {
		c.SYNC.ReceiptTimeout = 180
	}
}

func (c *OysterNode) RefreshInterval() time.Duration {
	return time.Duration(c.SYNC.RefreshInterval) * time.Second
}

func (c *OysterNode) MarketplaceCacheTTL() time.Duration {
	return time.Duration(c.SYNC.MarketplaceCacheTTL) * time.Second
}

func (c *OysterNode) ReceiptTimeout() time.Duration {
	return time.Duration(c.SYNC.ReceiptTimeout) * time.Second
}

// ChainConfig resolves the static chain table entry for the configured chain id and
// applies the overrides given in config.toml.
func (c *OysterNode) ChainConfig() (*ChainConfig, error) {
	chain, err := GetChainConfig(c.CHAIN.ChainId)
	if err != nil {
		return nil, err
	}
	if c.CHAIN.OysterContract != "" {
		chain.ContractAddresses.Oyster = c.CHAIN.OysterContract
	}
	if c.CHAIN.TokenContract != "" {
		chain.ContractAddresses.USDC = c.CHAIN.TokenContract
	}
	if c.CHAIN.OysterSubgraph != "" {
		chain.SubgraphUrls.Oyster = c.CHAIN.OysterSubgraph
	}
	if c.CHAIN.OperatorApiUrl != "" {
		chain.OysterUrls = operatorUrls(c.CHAIN.OperatorApiUrl)
	}
	return chain, nil
}

func requiredFieldsAreGiven(metaData toml.MetaData) error {
	requiredFields := [][]string{
		{"API"},
		{"CHAIN"},

		{"CHAIN", "ChainId"},
		{"CHAIN", "Rpc"},
	}

	for _, v := range requiredFields {
		if !metaData.IsDefined(v...) {
			return fmt.Errorf("required fields not given: %v", v)
		}
	}
	return nil
}
