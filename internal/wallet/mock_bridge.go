package wallet

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/simfleet/gopanel/internal/domain"
)

// MockBridge is a call-tracking test double for the Bridge contract.
type MockBridge struct {
	mu sync.Mutex

	// Connection state
	Connected bool
	Pub       solana.PublicKey

	// Response data
	SendSignature solana.Signature
	MintResult    *MintResult

	// Call tracking
	Calls     map[string]int
	CallOrder []string

	// Error injection
	ErrorOnNext map[string]error
}

// NewMockBridge creates a connected mock bridge with a random public key.
func NewMockBridge() *MockBridge {
	kp := solana.NewWallet()
	var sig solana.Signature
	copy(sig[:], kp.PublicKey().Bytes())
	return &MockBridge{
		Connected:     true,
		Pub:           kp.PublicKey(),
		SendSignature: sig,
		Calls:         make(map[string]int),
		ErrorOnNext:   make(map[string]error),
	}
}

func (m *MockBridge) trackCall(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
	m.CallOrder = append(m.CallOrder, name)
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	return nil
}

// CallCount returns how many times the named method was hit.
func (m *MockBridge) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[name]
}

// TotalCalls returns the number of tracked calls across all methods.
func (m *MockBridge) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CallOrder)
}

// PublicKey implements Bridge.
func (m *MockBridge) PublicKey() (solana.PublicKey, bool) {
	if !m.Connected {
		return solana.PublicKey{}, false
	}
	return m.Pub, true
}

// SignAndSend implements Bridge.
func (m *MockBridge) SignAndSend(_ context.Context, _ *solana.Transaction) (solana.Signature, error) {
	if err := m.trackCall("SignAndSend"); err != nil {
		return solana.Signature{}, err
	}
	if !m.Connected {
		return solana.Signature{}, ErrNotConnected
	}
	return m.SendSignature, nil
}

// Confirm implements Bridge.
func (m *MockBridge) Confirm(_ context.Context, _ solana.Signature) error {
	return m.trackCall("Confirm")
}

// CreateMint mirrors LocalWallet.CreateMint for token-creation flows.
func (m *MockBridge) CreateMint(_ context.Context, _ domain.TokenParams) (*MintResult, error) {
	if err := m.trackCall("CreateMint"); err != nil {
		return nil, err
	}
	if !m.Connected {
		return nil, ErrNotConnected
	}
	if m.MintResult != nil {
		return m.MintResult, nil
	}
	mint := solana.NewWallet()
	return &MintResult{
		Mint:      mint.PublicKey(),
		SecretKey: mint.PrivateKey.String(),
		Signature: m.SendSignature,
	}, nil
}
