package wallet

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func newTestWallet(t *testing.T) *LocalWallet {
	t.Helper()
	ks, err := OpenOrInitKeystore(filepath.Join(t.TempDir(), WalletRepo))
	require.NoError(t, err)
	t.Cleanup(func() { ks.Close() })
	w, err := NewWallet(ks)
	require.NoError(t, err)
	return w
}

// well known test key, address 0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf
const testKey = "0000000000000000000000000000000000000000000000000000000000000001"

func TestWalletNewExportDelete(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t)

	addr, err := w.WalletNew(ctx)
	require.NoError(t, err)
	assert.True(t, reAddress.MatchString(addr))

	list, err := w.AddressList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{addr}, list)

	ki, err := w.WalletExport(ctx, strings.ToLower(addr))
	require.NoError(t, err)
	assert.Len(t, ki.PrivateKey, 64)

	require.NoError(t, w.WalletDelete(ctx, addr))
	_, err = w.WalletExport(ctx, addr)
	assert.Error(t, err)
	require.NoError(t, w.WalletDelete(ctx, addr))
}

func TestWalletImport(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t)

	addr, err := w.WalletImport(ctx, &KeyInfo{PrivateKey: "0x" + testKey + "\n"})
	require.NoError(t, err)
	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", addr)

	pk, err := w.PrivateKey("0x7e5f4552091a69125d5dfcb7b8c2659029395bdf")
	require.NoError(t, err)
	assert.Equal(t, testKey, pk)

	_, err = w.WalletImport(ctx, &KeyInfo{PrivateKey: testKey})
	assert.True(t, xerrors.Is(err, ErrKeyExists))

	_, err = w.WalletImport(ctx, &KeyInfo{PrivateKey: " "})
	assert.Error(t, err)

	_, err = w.PrivateKey("0x0000000000000000000000000000000000000001")
	assert.True(t, xerrors.Is(err, ErrKeyInfoNotFound))
	_, err = w.PrivateKey("not-an-address")
	assert.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t)
	addr, err := w.WalletImport(ctx, &KeyInfo{PrivateKey: testKey})
	require.NoError(t, err)

	sig, err := w.WalletSign(ctx, addr, []byte("oyster"))
	require.NoError(t, err)
	sigBytes, err := hexutil.Decode(sig)
	require.NoError(t, err)

	ok, err := w.WalletVerify(ctx, addr, sigBytes, "oyster")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.WalletVerify(ctx, addr, sigBytes, "tampered")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = w.WalletVerify(ctx, addr, sigBytes[:10], "oyster")
	assert.Error(t, err)
}

type fakeChain struct{}

func (fakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

type failingToken struct{}

func (failingToken) TokenBalance(ctx context.Context, owner string) (*big.Int, error) {
	return nil, errors.New("execution reverted")
}

func TestWalletList(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t)
	_, err := w.WalletImport(ctx, &KeyInfo{PrivateKey: testKey})
	require.NoError(t, err)

	accounts, err := w.WalletList(ctx, fakeChain{}, failingToken{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "42", accounts[0].Balance.String())
	assert.Equal(t, uint64(7), accounts[0].Nonce)
	assert.Nil(t, accounts[0].TokenBalance)
	assert.Equal(t, "execution reverted", accounts[0].Error)
}
