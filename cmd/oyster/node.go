package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/filswan/go-swan-lib/logs"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"

	"github.com/PaulSpaurgen/interface-v2/conf"
	"github.com/PaulSpaurgen/interface-v2/internal/cache"
	"github.com/PaulSpaurgen/interface-v2/internal/contract"
	"github.com/PaulSpaurgen/interface-v2/internal/market"
	"github.com/PaulSpaurgen/interface-v2/internal/metrics"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
	"github.com/PaulSpaurgen/interface-v2/internal/services"
	"github.com/PaulSpaurgen/interface-v2/internal/store"
	"github.com/PaulSpaurgen/interface-v2/internal/subgraph"
	"github.com/PaulSpaurgen/interface-v2/internal/syncer"
	"github.com/PaulSpaurgen/interface-v2/util"
	"github.com/PaulSpaurgen/interface-v2/wallet"
)

// node wires the components every command needs from the repo config.
type node struct {
	cfg     *conf.OysterNode
	chain   *conf.ChainConfig
	metrics *metrics.Metrics
	store   *store.Store
	indexer *subgraph.Client
	market  *market.Fetcher
	journal *store.DiskJournal
}

// repoPath expands the --repo flag and exports it as OYSTER_PATH for the wallet.
func repoPath(cctx *cli.Context) (string, error) {
	repo, err := homedir.Expand(cctx.String(FlagRepo))
	if err != nil {
		return "", fmt.Errorf("failed to expand repo path %s, error: %+v", cctx.String(FlagRepo), err)
	}
	if err := os.Setenv("OYSTER_PATH", repo); err != nil {
		return "", err
	}
	return repo, nil
}

func loadNode(cctx *cli.Context) (*node, error) {
	repo, err := repoPath(cctx)
	if err != nil {
		return nil, err
	}
	if err := conf.InitConfig(repo); err != nil {
		return nil, fmt.Errorf("load config file failed, error: %+v", err)
	}
	cfg := conf.GetConfig()
	chain, err := cfg.ChainConfig()
	if err != nil {
		return nil, err
	}
	regionNames, err := conf.RegionNames()
	if err != nil {
		return nil, err
	}

	m := metrics.New("oyster", nil)
	scalingFactor := big.NewInt(chain.OysterRateScalingFactor)
	storeOpts := []store.Option{
		store.WithObserver(m),
		store.WithRateScalingFactor(scalingFactor),
		store.WithRateReviseWaitingTime(chain.OysterRateReviseWaitingTime),
	}
	// the journal directory is locked while another oyster process holds it open
	journal, err := store.OpenOrInitJournal(filepath.Join(repo, "revisions"))
	if err != nil {
		logs.GetLogger().Warnf("rate revisions are not kept across commands, error: %+v", err)
	} else {
		storeOpts = append(storeOpts, store.WithJournal(journal))
	}

	n := &node{
		cfg:     cfg,
		chain:   chain,
		metrics: m,
		journal: journal,
		store:   store.New(models.DefaultState(), storeOpts...),
		indexer: subgraph.NewClient(chain.SubgraphUrls,
			subgraph.WithRateScalingFactor(scalingFactor),
			subgraph.WithFailureHook(m.IndexerFailure)),
		market: market.NewFetcher(chain.OysterUrls, cfg.MarketplaceCacheTTL(), regionNames,
			market.WithFailureHook(m.OperatorFailure)),
	}
	return n, nil
}

func (n *node) close() {
	if n.journal == nil {
		return
	}
	if err := n.journal.Close(); err != nil {
		logs.GetLogger().Errorf("failed close rate revision journal, error: %+v", err)
	}
}

func (n *node) owner() string {
	return strings.TrimSpace(n.cfg.WALLET.Address)
}

// syncer builds the refresh loop. The redis snapshot cache is used when configured.
func (n *node) syncer() *syncer.Syncer {
	opts := []syncer.Option{
		syncer.WithStatusWorkers(n.cfg.SYNC.StatusWorkers),
		syncer.WithInterval(n.cfg.RefreshInterval()),
		syncer.WithRoundHook(n.metrics.ObserveRound),
		syncer.WithFailureHook(n.metrics.IndexerFailure),
	}
	if owner := n.owner(); owner != "" {
		opts = append(opts, syncer.WithOwner(owner, n.chain.ContractAddresses.Oyster))
	}
	if n.cfg.API.RedisUrl != "" {
		pool := cache.NewRedisPool(n.cfg.API.RedisUrl, n.cfg.API.RedisPassword)
		opts = append(opts, syncer.WithSnapshotCache(cache.NewMarketplaceCache(pool, n.chain.ChainId, n.cfg.MarketplaceCacheTTL())))
	}
	return syncer.New(n.store, n.indexer, n.market, opts...)
}

// refresh loads the store once, for the commands that print it.
func (n *node) refresh(ctx context.Context) models.State {
	n.syncer().RefreshOnce(ctx)
	return n.store.Snapshot()
}

// stub signs with the key of the configured wallet address.
func (n *node) stub(ctx context.Context) (*contract.OysterStub, error) {
	owner := n.owner()
	if owner == "" {
		return nil, fmt.Errorf("no wallet configured, set [WALLET] Address in config.toml")
	}
	localWallet, err := wallet.SetupWallet(wallet.WalletRepo)
	if err != nil {
		return nil, err
	}
	pk, err := localWallet.PrivateKey(owner)
	if err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, n.cfg.CHAIN.Rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s, error: %+v", n.cfg.CHAIN.Rpc, err)
	}
	return contract.NewOysterStub(client, n.chain.ContractAddresses.Oyster, n.chain.ContractAddresses.USDC,
		contract.WithPrivateKey(pk),
		contract.WithReceiptTimeout(n.cfg.ReceiptTimeout()))
}

func (n *node) service(ctx context.Context) (*services.OysterService, error) {
	stub, err := n.stub(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewOysterService(n.store, stub), nil
}

func (n *node) token() conf.TokenMetadata {
	return n.chain.OysterTokenMetadata()
}

func reqContext(cctx *cli.Context) context.Context {
	return util.ReqContext(cctx.Context)
}
