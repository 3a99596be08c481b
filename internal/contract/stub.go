package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/filswan/go-swan-lib/logs"
	"github.com/pkg/errors"

	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

var (
	ErrJobOpenedEventMissing = errors.New("JobOpened event not found in receipt")
	ErrTxFailed              = errors.New("transaction reverted")
	ErrTxTimeout             = errors.New("timed out waiting for transaction receipt")
)

// Backend is the part of an ethereum client the stub needs. *ethclient.Client
// implements it.
type Backend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// OysterStub signs and sends oyster market and token transactions with a local key.
type OysterStub struct {
	client         Backend
	market         *bind.BoundContract
	token          *bind.BoundContract
	marketAbi      abi.ABI
	marketAddress  common.Address
	tokenAddress   common.Address
	privateK       string
	receiptTimeout time.Duration
	pollInterval   time.Duration
}

var _ Controller = (*OysterStub)(nil)

type Option func(*OysterStub)

func WithPrivateKey(pk string) Option {
	return func(obj *OysterStub) {
		obj.privateK = strings.TrimPrefix(pk, "0x")
	}
}

func WithReceiptTimeout(timeout time.Duration) Option {
	return func(obj *OysterStub) {
		obj.receiptTimeout = timeout
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(obj *OysterStub) {
		obj.pollInterval = interval
	}
}

func NewOysterStub(client Backend, marketAddr, tokenAddr string, options ...Option) (*OysterStub, error) {
	stub := &OysterStub{
		client:         client,
		receiptTimeout: 3 * time.Minute,
		pollInterval:   2 * time.Second,
	}
	for _, option := range options {
		option(stub)
	}

	if !common.IsHexAddress(marketAddr) {
		return nil, fmt.Errorf("invalid oyster market contract address: %s", marketAddr)
	}
	if !common.IsHexAddress(tokenAddr) {
		return nil, fmt.Errorf("invalid token contract address: %s", tokenAddr)
	}

	marketAbi, err := abi.JSON(strings.NewReader(OysterMarketABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse oyster market abi")
	}
	tokenAbi, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse token abi")
	}

	stub.marketAbi = marketAbi
	stub.marketAddress = common.HexToAddress(marketAddr)
	stub.tokenAddress = common.HexToAddress(tokenAddr)
	stub.market = bind.NewBoundContract(stub.marketAddress, marketAbi, client, client, client)
	stub.token = bind.NewBoundContract(stub.tokenAddress, tokenAbi, client, client, client)
	return stub, nil
}

func (s *OysterStub) Address() string {
	address, err := s.privateKeyToPublicKey()
	if err != nil {
		return ""
	}
	return address.Hex()
}

func (s *OysterStub) ApproveFunds(ctx context.Context, amount *big.Int) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.token, "approve", s.marketAddress, amount)
	return tx, err
}

func (s *OysterStub) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	var out []interface{}
	err := s.token.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", common.HexToAddress(owner), s.marketAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "address: %s, read token allowance", owner)
	}
	return firstBigInt(out)
}

func (s *OysterStub) TokenBalance(ctx context.Context, owner string) (*big.Int, error) {
	var out []interface{}
	err := s.token.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, errors.Wrapf(err, "address: %s, read token balance", owner)
	}
	return firstBigInt(out)
}

func firstBigInt(out []interface{}) (*big.Int, error) {
	if len(out) == 0 {
		return nil, errors.New("empty contract call result")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected contract call result type %T", out[0])
	}
	return v, nil
}

func (s *OysterStub) CreateJob(ctx context.Context, metadata string, provider string, rate *big.Int, balance *big.Int) (JobOpenResult, error) {
	if !common.IsHexAddress(provider) {
		return JobOpenResult{}, fmt.Errorf("invalid provider address: %s", provider)
	}
	receipt, tx, err := s.send(ctx, s.market, "jobOpen", metadata, common.HexToAddress(provider), rate, balance)
	if err != nil {
		return JobOpenResult{}, err
	}
	jobID, err := s.JobIDFromReceipt(receipt)
	if err != nil {
		return JobOpenResult{}, errors.Wrapf(err, "tx: %s", tx.Hash)
	}
	return JobOpenResult{Tx: tx, JobID: jobID}, nil
}

// JobIDFromReceipt returns the id of the job opened in receipt.
func (s *OysterStub) JobIDFromReceipt(receipt *types.Receipt) (string, error) {
	event := s.marketAbi.Events["JobOpened"]
	for _, log := range receipt.Logs {
		if log == nil || log.Address != s.marketAddress {
			continue
		}
		if len(log.Topics) < 2 || log.Topics[0] != event.ID {
			continue
		}
		return log.Topics[1].Hex(), nil
	}
	return "", ErrJobOpenedEventMissing
}

func (s *OysterStub) AddFunds(ctx context.Context, jobID string, amount *big.Int) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "jobDeposit", common.HexToHash(jobID), amount)
	return tx, err
}

func (s *OysterStub) WithdrawFunds(ctx context.Context, jobID string, amount *big.Int) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "jobWithdraw", common.HexToHash(jobID), amount)
	return tx, err
}

func (s *OysterStub) InitiateRateRevise(ctx context.Context, jobID string, newRate *big.Int) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "jobReviseRateInitiate", common.HexToHash(jobID), newRate)
	return tx, err
}

func (s *OysterStub) CancelRateRevise(ctx context.Context, jobID string) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "jobReviseRateCancel", common.HexToHash(jobID))
	return tx, err
}

func (s *OysterStub) FinalizeRateRevise(ctx context.Context, jobID string) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "jobReviseRateFinalize", common.HexToHash(jobID))
	return tx, err
}

func (s *OysterStub) StopJob(ctx context.Context, jobID string) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "jobClose", common.HexToHash(jobID))
	return tx, err
}

func (s *OysterStub) SettleJob(ctx context.Context, jobID string) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "jobSettle", common.HexToHash(jobID))
	return tx, err
}

func (s *OysterStub) RegisterProvider(ctx context.Context, cpURL string) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "providerAdd", cpURL)
	return tx, err
}

func (s *OysterStub) UpdateProvider(ctx context.Context, cpURL string) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "providerUpdateWithCp", cpURL)
	return tx, err
}

func (s *OysterStub) UnregisterProvider(ctx context.Context) (models.Transaction, error) {
	_, tx, err := s.send(ctx, s.market, "providerRemove")
	return tx, err
}

func (s *OysterStub) send(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) (*types.Receipt, models.Transaction, error) {
	publicAddress, err := s.privateKeyToPublicKey()
	if err != nil {
		return nil, models.Transaction{}, err
	}
	txOptions, err := s.createTransactOpts(ctx)
	if err != nil {
		return nil, models.Transaction{}, err
	}

	transaction, err := contract.Transact(txOptions, method, params...)
	if err != nil {
		return nil, models.Transaction{}, errors.Wrapf(err, "address: %s, %s", publicAddress, method)
	}
	hash := transaction.Hash()
	logs.GetLogger().Infof("%s transaction sent, hash: %s", method, hash.Hex())

	receipt, err := s.waitReceipt(ctx, hash)
	tx := models.Transaction{ID: hash.Hex(), Hash: hash.Hex()}
	if err != nil {
		return nil, tx, errors.Wrapf(err, "%s tx: %s", method, hash.Hex())
	}
	return receipt, tx, nil
}

// waitReceipt polls for the receipt of hash until it is mined or the receipt timeout
// passes.
func (s *OysterStub) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(s.receiptTimeout)
	defer timeout.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, ErrTxFailed
			}
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			logs.GetLogger().Warnf("get receipt of %s failed, error: %+v", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, ErrTxTimeout
		case <-ticker.C:
		}
	}
}

func (s *OysterStub) privateKeyToPublicKey() (common.Address, error) {
	if len(strings.TrimSpace(s.privateK)) == 0 {
		return common.Address{}, fmt.Errorf("wallet address private key must be not empty")
	}

	privateKey, err := crypto.HexToECDSA(s.privateK)
	if err != nil {
		return common.Address{}, fmt.Errorf("parses private key error: %+v", err)
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, fmt.Errorf("cannot assert type: publicKey is not of type *ecdsa.PublicKey")
	}
	return crypto.PubkeyToAddress(*publicKeyECDSA), nil
}

func (s *OysterStub) createTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	publicAddress, err := s.privateKeyToPublicKey()
	if err != nil {
		return nil, err
	}

	nonce, err := s.client.PendingNonceAt(ctx, publicAddress)
	if err != nil {
		return nil, fmt.Errorf("address: %s, oyster client get nonce error: %+v", publicAddress, err)
	}

	suggestGasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("address: %s, oyster client retrieves the currently suggested gas price, error: %+v", publicAddress, err)
	}

	chainId, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("address: %s, oyster client get networkId, error: %+v", publicAddress, err)
	}

	privateKey, err := crypto.HexToECDSA(s.privateK)
	if err != nil {
		return nil, fmt.Errorf("parses private key error: %+v", err)
	}

	txOptions, err := bind.NewKeyedTransactorWithChainID(privateKey, chainId)
	if err != nil {
		return nil, fmt.Errorf("address: %s, oyster client create transaction, error: %+v", publicAddress, err)
	}
	txOptions.Nonce = big.NewInt(int64(nonce))
	suggestGasPrice = suggestGasPrice.Mul(suggestGasPrice, big.NewInt(3))
	suggestGasPrice = suggestGasPrice.Div(suggestGasPrice, big.NewInt(2))
	txOptions.GasFeeCap = suggestGasPrice
	txOptions.Context = ctx
	return txOptions, nil
}
