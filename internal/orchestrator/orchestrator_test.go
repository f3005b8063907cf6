package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/internal/journal"
	"github.com/simfleet/gopanel/internal/wallet"
	"github.com/simfleet/gopanel/pkg/sdk/api"
)

// unsignedTx 构造一笔可被解码的未签名交易字节串
func unsignedTx(t *testing.T) []byte {
	t.Helper()
	payer := solana.NewWallet()
	inst := system.NewTransferInstruction(1, payer.PublicKey(), solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func buyRequest() domain.TradeRequest {
	return domain.TradeRequest{
		Side:        domain.SideBuy,
		MintAddress: "So11111111111111111111111111111111111111112",
		Quantity:    decimal.NewFromFloat(1.5),
	}
}

func tokenParams() domain.TokenParams {
	return domain.TokenParams{
		Name: "Frog Coin", Symbol: "FROG", Supply: 1_000_000, Decimals: 6,
		LogoPath: "testdata/frog.png",
	}
}

func TestSwapWithoutWalletMakesNoBackendCalls(t *testing.T) {
	backend := api.NewMockBackend()
	bridge := wallet.NewMockBridge()
	bridge.Connected = false

	a := New(backend, bridge, nil, nil).Swap(context.Background(), buyRequest())

	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, FailurePrecondition, a.Failure)
	assert.ErrorIs(t, a.Err, wallet.ErrNotConnected)
	assert.Zero(t, backend.TotalCalls())
}

func TestInvalidRequestFailsBeforeAnySideEffect(t *testing.T) {
	backend := api.NewMockBackend()
	bridge := wallet.NewMockBridge()

	a := New(backend, bridge, nil, nil).Swap(context.Background(), domain.TradeRequest{
		Side:        domain.SideBuy,
		MintAddress: "So11111111111111111111111111111111111111112",
		// 缺少数量
	})

	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, FailurePrecondition, a.Failure)
	assert.Zero(t, backend.TotalCalls())
	assert.Zero(t, bridge.TotalCalls())
}

func TestSwapSettlesThroughAllStages(t *testing.T) {
	backend := api.NewMockBackend()
	backend.SwapTransaction = unsignedTx(t)
	bridge := wallet.NewMockBridge()

	var seen []State
	o := New(backend, bridge, nil, func(a Action) { seen = append(seen, a.State) })
	a := o.Swap(context.Background(), buyRequest())

	require.Equal(t, StateSettled, a.State)
	assert.Equal(t, bridge.SendSignature, a.Signature)
	assert.Equal(t, []State{
		StateRequestingUnsigned,
		StateAwaitingSignature,
		StateSubmitting,
		StateConfirming,
		StateSettled,
	}, seen)
}

func TestWalletDeclineIssuesNoSubmission(t *testing.T) {
	backend := api.NewMockBackend()
	backend.SwapTransaction = unsignedTx(t)
	bridge := wallet.NewMockBridge()
	bridge.ErrorOnNext["SignAndSend"] = wallet.ErrDeclined

	a := New(backend, bridge, nil, nil).Swap(context.Background(), buyRequest())

	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, FailureWallet, a.Failure)
	assert.ErrorIs(t, a.Err, wallet.ErrDeclined)
	assert.Equal(t, 1, backend.CallCount("RequestSwap"))
	assert.Zero(t, bridge.CallCount("Confirm"))
}

func TestMalformedUnsignedPayloadIsTransportFailure(t *testing.T) {
	backend := api.NewMockBackend() // 缺省载荷无法解码为交易
	bridge := wallet.NewMockBridge()

	a := New(backend, bridge, nil, nil).Swap(context.Background(), buyRequest())

	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, FailureTransport, a.Failure)
	assert.Zero(t, bridge.TotalCalls())
}

func TestConfirmTimeoutIsTerminal(t *testing.T) {
	backend := api.NewMockBackend()
	backend.SwapTransaction = unsignedTx(t)
	bridge := wallet.NewMockBridge()
	bridge.ErrorOnNext["Confirm"] = wallet.ErrConfirmTimeout

	a := New(backend, bridge, nil, nil).Swap(context.Background(), buyRequest())

	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, FailureConfirmation, a.Failure)
	// 交易已广播，签名要保留给操作员核对
	assert.Equal(t, bridge.SendSignature, a.Signature)
}

func TestSellAllReachesRequestingUnsigned(t *testing.T) {
	backend := api.NewMockBackend()
	backend.SwapTransaction = unsignedTx(t)
	bridge := wallet.NewMockBridge()

	a := New(backend, bridge, nil, nil).Swap(context.Background(), domain.TradeRequest{
		Side:        domain.SideSellAll,
		MintAddress: "So11111111111111111111111111111111111111112",
		// 数量留空：sell-all 不做数量校验
	})

	assert.Equal(t, StateSettled, a.State)
	assert.Equal(t, 1, backend.CallCount("RequestSwap"))
}

// orderingBackend 在注册时刻捕捉链上确认次数
type orderingBackend struct {
	*api.MockBackend
	bridge             *wallet.MockBridge
	confirmsAtRegister int
}

func (b *orderingBackend) RegisterToken(ctx context.Context, secretKey string, params domain.TokenParams) (string, error) {
	b.confirmsAtRegister = b.bridge.CallCount("Confirm")
	return b.MockBackend.RegisterToken(ctx, secretKey, params)
}

func TestCreateTokenRegistersOnlyAfterConfirmation(t *testing.T) {
	bridge := wallet.NewMockBridge()
	backend := &orderingBackend{MockBackend: api.NewMockBackend(), bridge: bridge}
	backend.MintAddress = "FrogMint111111111111111111111111111111111111"

	a := New(backend, bridge, nil, nil).CreateToken(context.Background(), tokenParams())

	require.Equal(t, StateSettled, a.State)
	assert.Equal(t, "FrogMint111111111111111111111111111111111111", a.Mint)
	// 注册发生时链上确认已经完成
	assert.Equal(t, 1, backend.confirmsAtRegister)
	assert.Equal(t, []string{"CreateMint", "Confirm"}, bridge.CallOrder)
}

func TestCreateTokenConfirmFailureSkipsRegistration(t *testing.T) {
	backend := api.NewMockBackend()
	bridge := wallet.NewMockBridge()
	bridge.ErrorOnNext["Confirm"] = wallet.ErrConfirmTimeout

	a := New(backend, bridge, nil, nil).CreateToken(context.Background(), tokenParams())

	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, FailureConfirmation, a.Failure)
	assert.Zero(t, backend.CallCount("RegisterToken"))
}

func TestCreateTokenOverflowSupplyIsPrecondition(t *testing.T) {
	backend := api.NewMockBackend()
	bridge := wallet.NewMockBridge()

	params := tokenParams()
	params.Supply = 10_000_000_000_000
	params.Decimals = 9
	a := New(backend, bridge, nil, nil).CreateToken(context.Background(), params)

	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, FailurePrecondition, a.Failure)
	assert.Zero(t, backend.TotalCalls())
	assert.Zero(t, bridge.TotalCalls())
}

func TestCreateTokenDeclineIsWalletFailure(t *testing.T) {
	backend := api.NewMockBackend()
	bridge := wallet.NewMockBridge()
	bridge.ErrorOnNext["CreateMint"] = wallet.ErrDeclined

	a := New(backend, bridge, nil, nil).CreateToken(context.Background(), tokenParams())

	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, FailureWallet, a.Failure)
	assert.Zero(t, backend.TotalCalls())
}

func TestTerminalStatesAreJournaled(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	backend := api.NewMockBackend()
	backend.SwapTransaction = unsignedTx(t)
	bridge := wallet.NewMockBridge()

	o := New(backend, bridge, store, nil)
	settled := o.Swap(context.Background(), buyRequest())
	require.Equal(t, StateSettled, settled.State)

	bridge.ErrorOnNext["Confirm"] = wallet.ErrConfirmTimeout
	failed := o.Swap(context.Background(), buyRequest())
	require.Equal(t, StateFailed, failed.State)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, failed.ID, entries[0].ID)
	assert.Equal(t, "failed", entries[0].State)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, settled.ID, entries[1].ID)
	assert.Equal(t, "buy", entries[1].Side)
	assert.Equal(t, "1.5", entries[1].Quantity)
}
