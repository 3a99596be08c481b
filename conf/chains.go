package conf

import (
	"fmt"
	"strings"
)

type ContractAddresses struct {
	Bridge           string
	ClusterRegistry  string
	ClusterRewards   string
	ReceiverStaking  string
	RewardDelegators string
	StakeManager     string
	Oyster           string
	OysterCredit     string
	Pond             string
	MPond            string
	USDC             string
}

type SubgraphUrls struct {
	ReceiverStaking string
	Bridge          string
	Oyster          string
	Pond            string
	MPond           string
}

type OysterUrls struct {
	InstancesUsingCpUrl           string
	InstancesUsingOperatorAddress string
	ProviderNamesUrl              string
	ProviderInstancesUrl          string
	JobStatusUrl                  string
	JobRefreshUrl                 string
}

type TokenMetadata struct {
	Decimals  int
	Precision int
	Symbol    string
}

// ChainConfig is the static per-network record of contract addresses, indexer urls and
// token metadata.
type ChainConfig struct {
	ChainId                     string
	ChainName                   string
	BlockExplorerUrl            string
	ContractDetailsUrl          string
	BridgeContractDetailsUrl    string
	ContractAddresses           ContractAddresses
	SubgraphUrls                SubgraphUrls
	OysterUrls                  OysterUrls
	OysterToken                 string
	Tokens                      map[string]TokenMetadata
	OysterRateScalingFactor     int64
	OysterRateReviseWaitingTime int64
}

const ArbOneChainId = "0xa4b1"

var chains = map[string]ChainConfig{
	ArbOneChainId: {
		ChainId:                  ArbOneChainId,
		ChainName:                "Arbitrum One",
		BlockExplorerUrl:         "https://arbiscan.io",
		ContractDetailsUrl:       "https://sk.arb1.marlin.org/getcontractdetails",
		BridgeContractDetailsUrl: "https://sk.arb1.marlin.org/getBridgeDetails",
		ContractAddresses: ContractAddresses{
			Bridge:           "0x7cf89b836d1c647ef31a5eeb152b7addcf002a08",
			ClusterRegistry:  "0x1f3Fe1E2a752cF6732C8be849a424482639EffC9",
			ClusterRewards:   "0xc2033B3Ea8C226461ac7408BA948806F09148788",
			ReceiverStaking:  "0x298222e9f54396e70ee1eb2fb58aad4e7da1f878",
			RewardDelegators: "0xfB1F3fFa0d9819Da45D4E91967D46fAF025aa1c3",
			StakeManager:     "0xf90490186F370f324DEF2871F077668455f65253",
			Oyster:           "0x9d95D61eA056721E358BC49fE995caBF3B86A34B",
			Pond:             "0xdA0a57B710768ae17941a9Fa33f8B720c8bD9ddD",
			MPond:            "0xC606157CdBEb8e0BDB273E40D6Ee96e151083194",
			USDC:             "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8",
		},
		SubgraphUrls: SubgraphUrls{
			ReceiverStaking: "https://api.thegraph.com/subgraphs/name/marlinprotocol/staking-arb1",
			Bridge:          "https://api.thegraph.com/subgraphs/name/marlinprotocol/bridge",
			Oyster:          "https://api.thegraph.com/subgraphs/name/marlin-staging/oyster-arb1",
			Pond:            "https://api.thegraph.com/subgraphs/name/marlinprotocol/pond-arb1",
			MPond:           "https://api.thegraph.com/subgraphs/name/marlinprotocol/governance-arb1",
		},
		OysterUrls:  operatorUrls("https://sk.arb1.marlin.org/operators"),
		OysterToken: "USDC",
		Tokens: map[string]TokenMetadata{
			"POND":  {Decimals: 18, Precision: 2, Symbol: "POND"},
			"MPOND": {Decimals: 18, Precision: 6, Symbol: "MPOND"},
			"USDC":  {Decimals: 6, Precision: 6, Symbol: "USDC"},
		},
		OysterRateScalingFactor:     1_000_000_000_000,
		OysterRateReviseWaitingTime: 5 * 60,
	},
}

func operatorUrls(base string) OysterUrls {
	base = strings.TrimSuffix(base, "/")
	return OysterUrls{
		InstancesUsingCpUrl:           base + "/spec/cp/",
		InstancesUsingOperatorAddress: base + "/spec/",
		ProviderNamesUrl:              base + "/names",
		ProviderInstancesUrl:          base + "/spec",
		JobStatusUrl:                  base + "/jobs/",
		JobRefreshUrl:                 base + "/jobs/refresh/",
	}
}

// GetChainConfig returns a copy of the chain table entry so callers can apply overrides.
func GetChainConfig(chainId string) (*ChainConfig, error) {
	chain, ok := chains[strings.ToLower(chainId)]
	if !ok {
		return nil, fmt.Errorf("unsupported chain id: %s", chainId)
	}
	tokens := make(map[string]TokenMetadata, len(chain.Tokens))
	for k, v := range chain.Tokens {
		tokens[k] = v
	}
	chain.Tokens = tokens
	return &chain, nil
}

func SupportedChainIds() []string {
	ids := make([]string, 0, len(chains))
	for id := range chains {
		ids = append(ids, id)
	}
	return ids
}

// OysterTokenMetadata returns the metadata of the token oyster jobs are paid in.
func (c *ChainConfig) OysterTokenMetadata() TokenMetadata {
	if md, ok := c.Tokens[c.OysterToken]; ok {
		return md
	}
	return TokenMetadata{Decimals: 18, Precision: 2, Symbol: c.OysterToken}
}
