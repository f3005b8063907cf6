package api

import (
	"context"
	"sync"

	"github.com/simfleet/gopanel/internal/domain"
)

// MockBackend is a call-tracking test double for the trade endpoints.
type MockBackend struct {
	mu sync.Mutex

	// Response data
	SwapTransaction []byte
	MintAddress     string

	// Call tracking
	Calls     map[string]int
	CallOrder []string

	// Error injection
	ErrorOnNext map[string]error
}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

func (m *MockBackend) trackCall(name string) error {
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

// CallCount returns how many times the named endpoint was hit.
func (m *MockBackend) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[name]
}

// TotalCalls returns the number of backend invocations of any kind.
func (m *MockBackend) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CallOrder)
}

// RequestSwap records the call and returns the canned unsigned transaction.
func (m *MockBackend) RequestSwap(_ context.Context, _ domain.TradeRequest) ([]byte, error) {
	if err := m.trackCall("RequestSwap"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SwapTransaction != nil {
		return m.SwapTransaction, nil
	}
	return []byte{0x01, 0x02, 0x03}, nil
}

// RegisterToken records the call and returns the canned mint address.
func (m *MockBackend) RegisterToken(_ context.Context, _ string, params domain.TokenParams) (string, error) {
	if err := m.trackCall("RegisterToken"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MintAddress != "" {
		return m.MintAddress, nil
	}
	return "MockMint1111111111111111111111111111111111", nil
}
