package wallet

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/filswan/go-swan-lib/logs"
	"golang.org/x/xerrors"
)

const (
	WalletRepo  = "keystore"
	KNamePrefix = "wallet-"
)

var (
	ErrKeyInfoNotFound = fmt.Errorf("key info not found")
	ErrKeyExists       = fmt.Errorf("key already exists")
)

var reAddress = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// SetupWallet opens the keystore under the oyster repo given by OYSTER_PATH.
func SetupWallet(dir string) (*LocalWallet, error) {
	repo, exist := os.LookupEnv("OYSTER_PATH")
	if !exist {
		return nil, fmt.Errorf("missing OYSTER_PATH env, please set export OYSTER_PATH=xxx")
	}

	kstore, err := OpenOrInitKeystore(filepath.Join(repo, dir))
	if err != nil {
		return nil, err
	}
	return NewWallet(kstore)
}

type LocalWallet struct {
	keys     map[string]*KeyInfo
	keystore KeyStore

	lk sync.Mutex
}

func NewWallet(keystore KeyStore) (*LocalWallet, error) {
	w := &LocalWallet{
		keys:     make(map[string]*KeyInfo),
		keystore: keystore,
	}
	return w, nil
}

// normalize returns the checksummed form of addr, the form keys are stored under.
func normalize(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !reAddress.MatchString(addr) {
		return "", xerrors.Errorf("invalid address: %s", addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

func (w *LocalWallet) WalletSign(ctx context.Context, addr string, msg []byte) (string, error) {
	ki, err := w.findKey(addr)
	if err != nil {
		return "", err
	}
	if ki == nil {
		return "", xerrors.Errorf("signing using private key '%s': %w", addr, ErrKeyInfoNotFound)
	}
	signByte, err := Sign(ki.PrivateKey, msg)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(signByte), nil
}

// WalletVerify reports whether sig was made by addr over data.
func (w *LocalWallet) WalletVerify(ctx context.Context, addr string, sig []byte, data string) (bool, error) {
	address, err := normalize(addr)
	if err != nil {
		return false, err
	}
	signer, err := RecoverAddress(sig, []byte(data))
	if err != nil {
		return false, xerrors.Errorf("recovering signer: %w", err)
	}
	return signer.Hex() == address, nil
}

func (w *LocalWallet) findKey(addr string) (*KeyInfo, error) {
	address, err := normalize(addr)
	if err != nil {
		return nil, err
	}

	w.lk.Lock()
	defer w.lk.Unlock()

	if k, ok := w.keys[address]; ok {
		return k, nil
	}
	if w.keystore == nil {
		logs.GetLogger().Warn("findKey didn't find the key in in-memory wallet")
		return nil, nil
	}

	ki, err := w.keystore.Get(KNamePrefix + address)
	if err != nil {
		if xerrors.Is(err, ErrKeyInfoNotFound) {
			return nil, nil
		}
		return nil, xerrors.Errorf("getting from keystore: %w", err)
	}

	w.keys[address] = &ki
	return &ki, nil
}

// PrivateKey returns the hex private key of addr, used to sign oyster transactions.
func (w *LocalWallet) PrivateKey(addr string) (string, error) {
	ki, err := w.findKey(addr)
	if err != nil {
		return "", err
	}
	if ki == nil {
		return "", xerrors.Errorf("the address: %s, private key %w", addr, ErrKeyInfoNotFound)
	}
	return ki.PrivateKey, nil
}

func (w *LocalWallet) WalletExport(ctx context.Context, addr string) (*KeyInfo, error) {
	k, err := w.findKey(addr)
	if err != nil {
		return nil, xerrors.Errorf("failed to find key to export: %w", err)
	}
	if k == nil {
		return nil, xerrors.Errorf("private key not found for %s", addr)
	}
	return k, nil
}

// WalletImport stores ki and returns its address.
func (w *LocalWallet) WalletImport(ctx context.Context, ki *KeyInfo) (string, error) {
	if ki == nil || len(strings.TrimSpace(ki.PrivateKey)) == 0 {
		return "", fmt.Errorf("not found private key")
	}
	privateKey := strings.TrimPrefix(strings.TrimSpace(ki.PrivateKey), "0x")

	_, publicKeyECDSA, err := ToPublic(privateKey)
	if err != nil {
		return "", err
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA).Hex()

	existing, err := w.findKey(address)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", xerrors.Errorf("importing %s: %w", address, ErrKeyExists)
	}

	stored := KeyInfo{PrivateKey: privateKey}
	if err := w.keystore.Put(KNamePrefix+address, stored); err != nil {
		return "", xerrors.Errorf("saving to keystore: %w", err)
	}

	w.lk.Lock()
	w.keys[address] = &stored
	w.lk.Unlock()
	return address, nil
}

func (w *LocalWallet) WalletNew(ctx context.Context) (string, error) {
	privateK, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	privateKey := hexutil.Encode(crypto.FromECDSA(privateK))[2:]
	address := crypto.PubkeyToAddress(privateK.PublicKey).Hex()

	w.lk.Lock()
	defer w.lk.Unlock()

	keyInfo := KeyInfo{PrivateKey: privateKey}
	if err := w.keystore.Put(KNamePrefix+address, keyInfo); err != nil {
		return "", xerrors.Errorf("saving to keystore: %w", err)
	}
	w.keys[address] = &keyInfo
	return address, nil
}

func (w *LocalWallet) WalletDelete(ctx context.Context, addr string) error {
	k, err := w.findKey(addr)
	if err != nil {
		return xerrors.Errorf("wallet delete: failed to delete key %s : %w", addr, err)
	}
	if k == nil {
		return nil // already not there
	}
	address, _ := normalize(addr)

	w.lk.Lock()
	defer w.lk.Unlock()

	if err := w.keystore.Delete(KNamePrefix + address); err != nil {
		return xerrors.Errorf("wallet delete: failed to delete key %s: %w", addr, err)
	}
	delete(w.keys, address)
	return nil
}

func (w *LocalWallet) AddressList(ctx context.Context) ([]string, error) {
	all, err := w.keystore.List()
	if err != nil {
		return nil, xerrors.Errorf("listing keystore: %w", err)
	}

	addressList := make([]string, 0, len(all))
	for _, a := range all {
		if strings.HasPrefix(a, KNamePrefix) {
			addressList = append(addressList, strings.TrimPrefix(a, KNamePrefix))
		}
	}
	return addressList, nil
}

// ChainReader reads account state. *ethclient.Client satisfies it.
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// TokenReader reads the balance of the token oyster jobs are paid in.
type TokenReader interface {
	TokenBalance(ctx context.Context, owner string) (*big.Int, error)
}

type AccountInfo struct {
	Address      string
	Balance      *big.Int
	TokenBalance *big.Int
	Nonce        uint64
	Error        string
}

// WalletList returns every stored address with its chain state. A failed read is
// reported in Error instead of failing the whole list. token may be nil.
func (w *LocalWallet) WalletList(ctx context.Context, chain ChainReader, token TokenReader) ([]AccountInfo, error) {
	addressList, err := w.AddressList(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]AccountInfo, 0, len(addressList))
	for _, addr := range addressList {
		info := AccountInfo{Address: addr}
		var errs []string

		account := common.HexToAddress(addr)
		if info.Balance, err = chain.BalanceAt(ctx, account, nil); err != nil {
			errs = append(errs, err.Error())
		}
		if info.Nonce, err = chain.PendingNonceAt(ctx, account); err != nil {
			errs = append(errs, err.Error())
		}
		if token != nil {
			if info.TokenBalance, err = token.TokenBalance(ctx, addr); err != nil {
				errs = append(errs, err.Error())
			}
		}
		info.Error = strings.Join(errs, "; ")
		accounts = append(accounts, info)
	}
	return accounts, nil
}
