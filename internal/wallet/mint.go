package wallet

import (
	"context"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/pkg/logger"
)

// SPL mint 账户的固定大小（字节）
const mintAccountSize = 82

// MintResult 铸币交易的产物
// SecretKey 是 mint 账户的 base58 私钥，注册到后端时需要
type MintResult struct {
	Mint      solana.PublicKey
	SecretKey string
	Signature solana.Signature
}

// CreateMint 在链上创建并初始化一个 SPL mint，把初始供应量铸给操作员
// 交易内容：create-account + initialize-mint + create-ATA + mint-to
// 调用方负责随后 Confirm
func (w *LocalWallet) CreateMint(ctx context.Context, params domain.TokenParams) (*MintResult, error) {
	if !w.connected {
		return nil, ErrNotConnected
	}
	// 初始供应量以最小单位计；超出 uint64 在触达网络之前拦下
	supply, err := params.BaseUnits()
	if err != nil {
		return nil, err
	}

	mint := solana.NewWallet()

	rent, err := w.rpc.GetMinimumBalanceForRentExemption(ctx, mintAccountSize, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, errors.Wrap(err, "查询租金豁免额失败")
	}
	recent, err := w.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, errors.Wrap(err, "获取最新区块哈希失败")
	}

	ata, _, err := solana.FindAssociatedTokenAddress(w.pub, mint.PublicKey())
	if err != nil {
		return nil, errors.Wrap(err, "推导关联代币账户失败")
	}

	instructions := []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent,
			mintAccountSize,
			token.ProgramID,
			w.pub,
			mint.PublicKey(),
		).Build(),
		token.NewInitializeMintInstruction(
			params.Decimals,
			w.pub,
			solana.PublicKey{}, // 不设置冻结权限
			mint.PublicKey(),
			solana.SysVarRentPubkey,
		).Build(),
		associatedtokenaccount.NewCreateInstruction(
			w.pub,
			w.pub,
			mint.PublicKey(),
		).Build(),
		token.NewMintToInstruction(
			supply,
			mint.PublicKey(),
			ata,
			w.pub,
			nil,
		).Build(),
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(w.pub))
	if err != nil {
		return nil, errors.Wrap(err, "构建铸币交易失败")
	}

	if w.approve != nil && !w.approve(tx) {
		return nil, ErrDeclined
	}

	// 付款人和 mint 账户都要签名
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(w.pub):
			return &w.key
		case key.Equals(mint.PublicKey()):
			return &mint.PrivateKey
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "铸币交易签名失败")
	}

	sig, err := w.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, errors.Wrap(err, "铸币交易广播失败")
	}

	logger.Infof("[钱包] 已创建 mint %s (%s), tx=%s", mint.PublicKey(), params.Symbol, sig)
	return &MintResult{
		Mint:      mint.PublicKey(),
		SecretKey: base58.Encode(mint.PrivateKey),
		Signature: sig,
	}, nil
}
