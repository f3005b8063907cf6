package wallet

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/pkg/secretstore"
)

func openStore(t *testing.T) *secretstore.Store {
	t.Helper()
	store, err := secretstore.Open(secretstore.OpenOptions{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLocalWalletWithoutKeyIsDisconnected(t *testing.T) {
	w, err := NewLocalWallet(Options{
		RPCURL:  "http://127.0.0.1:1", // 不会被访问
		Secrets: openStore(t),
	})
	require.NoError(t, err)

	_, ok := w.PublicKey()
	assert.False(t, ok)

	_, err = w.SignAndSend(context.Background(), &solana.Transaction{})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = w.CreateMint(context.Background(), domain.TokenParams{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestLocalWalletLoadsKeypair(t *testing.T) {
	store := openStore(t)
	kp := solana.NewWallet()
	require.NoError(t, store.Set(secretstore.KeyOperatorSecret, kp.PrivateKey.String()))

	w, err := NewLocalWallet(Options{RPCURL: "http://127.0.0.1:1", Secrets: store})
	require.NoError(t, err)

	pub, ok := w.PublicKey()
	require.True(t, ok)
	assert.Equal(t, kp.PublicKey(), pub)
}

func TestLocalWalletRejectsMalformedKey(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Set(secretstore.KeyOperatorSecret, "not-a-base58-key!!"))

	_, err := NewLocalWallet(Options{RPCURL: "http://127.0.0.1:1", Secrets: store})
	assert.Error(t, err)
}

func TestCreateMintRejectsOverflowSupplyBeforeRPC(t *testing.T) {
	store := openStore(t)
	kp := solana.NewWallet()
	require.NoError(t, store.Set(secretstore.KeyOperatorSecret, kp.PrivateKey.String()))

	// RPC 地址不可达：换算溢出必须在任何网络调用之前被拦下
	w, err := NewLocalWallet(Options{RPCURL: "http://127.0.0.1:1", Secrets: store})
	require.NoError(t, err)

	_, err = w.CreateMint(context.Background(), domain.TokenParams{
		Name: "Frog Coin", Symbol: "FROG",
		Supply: 10_000_000_000_000, Decimals: 9,
		LogoPath: "logo.png",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "最小单位")
}

func TestApproverDeclineStopsSigning(t *testing.T) {
	store := openStore(t)
	kp := solana.NewWallet()
	require.NoError(t, store.Set(secretstore.KeyOperatorSecret, kp.PrivateKey.String()))

	asked := 0
	w, err := NewLocalWallet(Options{
		RPCURL:  "http://127.0.0.1:1",
		Secrets: store,
		Approve: func(*solana.Transaction) bool {
			asked++
			return false
		},
	})
	require.NoError(t, err)

	// 拒绝发生在签名和广播之前，RPC 不会被触达
	_, err = w.SignAndSend(context.Background(), &solana.Transaction{})
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, 1, asked)
}
