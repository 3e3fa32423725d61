package keys

import (
	"sync"

	"github.com/dep2p/go-blekeys/pkg/types"
)

// MockPersister 记录所有持久化请求的 Persister
type MockPersister struct {
	mu      sync.Mutex
	Saved   []Record
	Deleted []Record

	// 可覆盖的方法
	SaveFunc   func(rec Record) error
	DeleteFunc func(rec Record) error
}

// NewMockPersister 创建 MockPersister
func NewMockPersister() *MockPersister {
	return &MockPersister{}
}

// Save 实现 Persister
func (m *MockPersister) Save(rec Record) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, rec)
	return nil
}

// Delete 实现 Persister
func (m *MockPersister) Delete(rec Record) error {
	if m.DeleteFunc != nil {
		if err := m.DeleteFunc(rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, rec)
	return nil
}

// DeletedAddrs 返回已删除记录的地址
func (m *MockPersister) DeletedAddrs() []types.AddrLE {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.AddrLE, len(m.Deleted))
	for i := range m.Deleted {
		out[i] = m.Deleted[i].Addr
	}
	return out
}

// MockRegistrar 在记录上维护 StateIDAdded 的 IdentityRegistrar
type MockRegistrar struct {
	Registered   []types.AddrLE
	Unregistered []types.AddrLE

	// 可覆盖的方法
	RegisterFunc   func(rec *Record) error
	UnregisterFunc func(rec *Record) error
}

// NewMockRegistrar 创建 MockRegistrar
func NewMockRegistrar() *MockRegistrar {
	return &MockRegistrar{}
}

// Register 实现 IdentityRegistrar
func (m *MockRegistrar) Register(rec *Record) error {
	if m.RegisterFunc != nil {
		if err := m.RegisterFunc(rec); err != nil {
			return err
		}
	}
	rec.State |= StateIDAdded
	m.Registered = append(m.Registered, rec.Addr)
	return nil
}

// Unregister 实现 IdentityRegistrar
func (m *MockRegistrar) Unregister(rec *Record) error {
	if m.UnregisterFunc != nil {
		if err := m.UnregisterFunc(rec); err != nil {
			return err
		}
	}
	rec.State &^= StateIDAdded
	m.Unregistered = append(m.Unregistered, rec.Addr)
	return nil
}
