// Package orchestrator 驱动多阶段交易流程的状态机
// 每个动作独立推进：取未签名交易 → 钱包签名广播 → 等待确认 → 出结果
package orchestrator

import (
	"context"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/simfleet/gopanel/internal/domain"
	"github.com/simfleet/gopanel/internal/journal"
	"github.com/simfleet/gopanel/internal/wallet"
	"github.com/simfleet/gopanel/pkg/logger"
)

// State 动作状态
type State string

const (
	StateIdle               State = "idle"
	StateRequestingUnsigned State = "requesting_unsigned"
	StateAwaitingSignature  State = "awaiting_signature"
	StateSubmitting         State = "submitting"
	StateConfirming         State = "confirming"
	StateRegistering        State = "registering" // 仅铸币流程：链上确认后向后端注册
	StateSettled            State = "settled"
	StateFailed             State = "failed"
)

// FailureKind 失败分类，UI 据此区分"你拒绝了"和"网络失败了"
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailurePrecondition FailureKind = "precondition" // 前置条件不满足，未产生任何副作用
	FailureTransport    FailureKind = "transport"    // 后端或网络错误
	FailureWallet       FailureKind = "wallet"       // 拒签或签名错误
	FailureConfirmation FailureKind = "confirmation" // 确认被拒或超时
)

// ActionKind 动作类型
type ActionKind string

const (
	KindSwap        ActionKind = "swap"
	KindCreateToken ActionKind = "create_token"
)

// Action 一次动作实例及其终态
// Failed 是终态：重试由用户从 Idle 重新发起，绝不自动重试
type Action struct {
	ID        string
	Kind      ActionKind
	Request   domain.TradeRequest // swap 动作的请求
	Params    domain.TokenParams  // create_token 动作的参数
	State     State
	Failure   FailureKind
	Err       error
	Signature solana.Signature
	Mint      string // 铸币动作产生的 mint 地址
	StartedAt time.Time
	EndedAt   time.Time
}

// Settled 动作是否成功结束
func (a *Action) Settled() bool { return a.State == StateSettled }

// Backend 编排器需要的后端调用（由 pkg/sdk/api 实现）
type Backend interface {
	RequestSwap(ctx context.Context, req domain.TradeRequest) ([]byte, error)
	RegisterToken(ctx context.Context, secretKey string, params domain.TokenParams) (string, error)
}

// Wallet 编排器需要的钱包能力
type Wallet interface {
	wallet.Bridge
	CreateMint(ctx context.Context, params domain.TokenParams) (*wallet.MintResult, error)
}

// Recorder 终态落盘（由 internal/journal 实现）；为 nil 时不记录
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Notify 每次状态迁移时回调（携带动作快照），可为 nil
type Notify func(Action)

// Orchestrator 动作编排器
// 并发动作之间互不排序，各自独立推进
type Orchestrator struct {
	backend  Backend
	wallet   Wallet
	recorder Recorder
	notify   Notify
}

// New 创建编排器
func New(backend Backend, w Wallet, recorder Recorder, notify Notify) *Orchestrator {
	return &Orchestrator{backend: backend, wallet: w, recorder: recorder, notify: notify}
}

func (o *Orchestrator) newAction(kind ActionKind) *Action {
	return &Action{
		ID:        uuid.NewString(),
		Kind:      kind,
		State:     StateIdle,
		StartedAt: time.Now(),
	}
}

func (o *Orchestrator) transition(a *Action, next State) {
	logger.Debugf("[编排] %s %s: %s -> %s", a.Kind, a.ID, a.State, next)
	a.State = next
	if o.notify != nil {
		o.notify(*a)
	}
}

// fail 进入终态 Failed 并落盘
func (o *Orchestrator) fail(ctx context.Context, a *Action, kind FailureKind, err error) *Action {
	a.Failure = kind
	a.Err = err
	a.EndedAt = time.Now()
	o.transition(a, StateFailed)
	logger.Warnf("[编排] %s %s 失败(%s): %v", a.Kind, a.ID, kind, err)
	o.record(ctx, a)
	return a
}

// settle 进入终态 Settled 并落盘
func (o *Orchestrator) settle(ctx context.Context, a *Action) *Action {
	a.EndedAt = time.Now()
	o.transition(a, StateSettled)
	logger.Infof("[编排] %s %s 完成, 签名=%s", a.Kind, a.ID, a.Signature)
	o.record(ctx, a)
	return a
}

func (o *Orchestrator) record(ctx context.Context, a *Action) {
	if o.recorder == nil {
		return
	}
	e := journal.Entry{
		ID:    a.ID,
		Kind:  string(a.Kind),
		State: string(a.State),
	}
	switch a.Kind {
	case KindSwap:
		e.Side = string(a.Request.Side)
		e.Mint = a.Request.MintAddress
		if a.Request.Side != domain.SideSellAll {
			e.Quantity = a.Request.Quantity.String()
		}
	case KindCreateToken:
		e.Mint = a.Mint
	}
	if !a.Signature.IsZero() {
		e.Signature = a.Signature.String()
	}
	if a.Err != nil {
		e.Error = a.Err.Error()
	}
	if err := o.recorder.Record(ctx, e); err != nil {
		logger.Errorf("[编排] 动作 %s 落盘失败: %v", a.ID, err)
	}
}

// Swap 执行一次换币动作，同步推进到终态
// 前置条件（请求合法、钱包已连接）不满足时立即失败，不触达后端
func (o *Orchestrator) Swap(ctx context.Context, req domain.TradeRequest) *Action {
	a := o.newAction(KindSwap)
	a.Request = req

	if err := req.Validate(); err != nil {
		return o.fail(ctx, a, FailurePrecondition, err)
	}
	if _, ok := o.wallet.PublicKey(); !ok {
		return o.fail(ctx, a, FailurePrecondition, wallet.ErrNotConnected)
	}

	o.transition(a, StateRequestingUnsigned)
	raw, err := o.backend.RequestSwap(ctx, req)
	if err != nil {
		return o.fail(ctx, a, FailureTransport, err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return o.fail(ctx, a, FailureTransport, errors.Wrap(err, "未签名交易解码失败"))
	}

	o.transition(a, StateAwaitingSignature)
	sig, err := o.wallet.SignAndSend(ctx, tx)
	if err != nil {
		if errors.Is(err, wallet.ErrDeclined) || errors.Is(err, wallet.ErrNotConnected) {
			return o.fail(ctx, a, FailureWallet, err)
		}
		return o.fail(ctx, a, FailureTransport, err)
	}
	a.Signature = sig
	o.transition(a, StateSubmitting)

	// 签名已返回即提交已被接受；此后动作不可取消
	o.transition(a, StateConfirming)
	if err := o.wallet.Confirm(ctx, sig); err != nil {
		return o.fail(ctx, a, FailureConfirmation, err)
	}
	return o.settle(ctx, a)
}

// CreateToken 铸币并注册代币元数据
// 顺序是硬约束：链上 mint 创建并确认之后，才允许调用后端注册
func (o *Orchestrator) CreateToken(ctx context.Context, params domain.TokenParams) *Action {
	a := o.newAction(KindCreateToken)
	a.Params = params

	if err := params.Validate(); err != nil {
		return o.fail(ctx, a, FailurePrecondition, err)
	}
	if _, ok := o.wallet.PublicKey(); !ok {
		return o.fail(ctx, a, FailurePrecondition, wallet.ErrNotConnected)
	}

	o.transition(a, StateAwaitingSignature)
	res, err := o.wallet.CreateMint(ctx, params)
	if err != nil {
		if errors.Is(err, wallet.ErrDeclined) || errors.Is(err, wallet.ErrNotConnected) {
			return o.fail(ctx, a, FailureWallet, err)
		}
		return o.fail(ctx, a, FailureTransport, err)
	}
	a.Signature = res.Signature
	a.Mint = res.Mint.String()
	o.transition(a, StateSubmitting)

	o.transition(a, StateConfirming)
	if err := o.wallet.Confirm(ctx, res.Signature); err != nil {
		return o.fail(ctx, a, FailureConfirmation, err)
	}

	o.transition(a, StateRegistering)
	mint, err := o.backend.RegisterToken(ctx, res.SecretKey, params)
	if err != nil {
		return o.fail(ctx, a, FailureTransport, err)
	}
	if mint != "" {
		a.Mint = mint
	}
	return o.settle(ctx, a)
}
