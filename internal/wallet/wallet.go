// Package wallet 提供面板侧的签名与广播能力
// 上层只依赖 Bridge 接口；LocalWallet 是基于本地密钥对的实现
package wallet

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/simfleet/gopanel/pkg/logger"
	"github.com/simfleet/gopanel/pkg/secretstore"
)

var (
	// ErrNotConnected 未加载密钥对时的签名请求
	ErrNotConnected = errors.New("wallet: 未连接钱包")
	// ErrDeclined 操作员拒绝了签名请求
	ErrDeclined = errors.New("wallet: 签名被拒绝")
	// ErrConfirmTimeout 在截止时间内未观察到确认
	ErrConfirmTimeout = errors.New("wallet: 等待确认超时")
)

// ApproveFunc 在签名之前询问操作员
// 返回 false 表示拒绝本次签名
type ApproveFunc func(tx *solana.Transaction) bool

// Bridge 是交易编排器依赖的钱包契约
type Bridge interface {
	// PublicKey 返回当前密钥对的公钥；未连接时第二个返回值为 false
	PublicKey() (solana.PublicKey, bool)
	// SignAndSend 签名并广播交易，返回签名
	SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// Confirm 轮询直到交易确认、失败或 ctx 到期
	Confirm(ctx context.Context, sig solana.Signature) error
}

const (
	defaultPollInterval = 2 * time.Second

	// RPC 限速：每秒补充一个令牌，突发 5 个（公共节点的保守值）
	rpcRatePerSecond = 1
	rpcRateBurst     = 5
)

// LocalWallet 用 secretstore 中的密钥对实现 Bridge
type LocalWallet struct {
	rpc          *rpc.Client
	key          solana.PrivateKey
	pub          solana.PublicKey
	connected    bool
	approve      ApproveFunc
	pollInterval time.Duration
}

// Options 控制 LocalWallet 的构建
type Options struct {
	RPCURL       string
	Secrets      *secretstore.Store
	Approve      ApproveFunc   // 为 nil 时不询问，直接签名
	PollInterval time.Duration // 确认轮询间隔，默认 2s
}

// NewLocalWallet 构建钱包
// secretstore 中没有密钥时返回未连接的钱包（查询仍可用，签名会报 ErrNotConnected）
func NewLocalWallet(opts Options) (*LocalWallet, error) {
	client := rpc.NewWithCustomRPCClient(rpc.NewWithLimiter(
		opts.RPCURL,
		rate.Every(time.Second/rpcRatePerSecond),
		rpcRateBurst,
	))

	w := &LocalWallet{
		rpc:          client,
		approve:      opts.Approve,
		pollInterval: opts.PollInterval,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}

	if opts.Secrets != nil {
		encoded, ok, err := opts.Secrets.Get(secretstore.KeyOperatorSecret)
		if err != nil {
			return nil, errors.Wrap(err, "读取操作员密钥失败")
		}
		if ok {
			key, err := solana.PrivateKeyFromBase58(encoded)
			if err != nil {
				return nil, errors.Wrap(err, "操作员密钥不是合法的 base58 私钥")
			}
			w.key = key
			w.pub = key.PublicKey()
			w.connected = true
			logger.Infof("[钱包] 已加载操作员密钥对: %s", w.pub)
		}
	}
	if !w.connected {
		logger.Warnf("[钱包] 未找到操作员密钥，签名操作不可用")
	}
	return w, nil
}

// PublicKey 实现 Bridge
func (w *LocalWallet) PublicKey() (solana.PublicKey, bool) {
	if !w.connected {
		return solana.PublicKey{}, false
	}
	return w.pub, true
}

// SignAndSend 实现 Bridge
// 先经 approve 回调（如有）确认，再签名并广播
func (w *LocalWallet) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if !w.connected {
		return solana.Signature{}, ErrNotConnected
	}
	if w.approve != nil && !w.approve(tx) {
		return solana.Signature{}, ErrDeclined
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.key
		}
		return nil
	}); err != nil {
		return solana.Signature{}, errors.Wrap(err, "交易签名失败")
	}

	sig, err := w.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "交易广播失败")
	}
	logger.Infof("[钱包] 已广播交易: %s", sig)
	return sig, nil
}

// Confirm 实现 Bridge
// 接受 confirmed 或 finalized；链上执行失败立即返回错误
func (w *LocalWallet) Confirm(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		out, err := w.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			logger.Warnf("[钱包] 查询签名状态失败: %v", err)
		} else if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return errors.Errorf("交易执行失败: %v", status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				logger.Infof("[钱包] 交易已确认: %s (%s)", sig, status.ConfirmationStatus)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ErrConfirmTimeout, sig.String())
		case <-ticker.C:
		}
	}
}
