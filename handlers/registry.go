package handlers

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Conn - 라우터가 쓰는 WebSocket 연결 (쓰기 전용)
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ConnectionRegistry - 연결 ID → 연결
type ConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewConnectionRegistry creates an empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[string]Conn),
	}
}

// NewConnectionID - 새 연결 ID (uuid)
func NewConnectionID() string {
	return uuid.New().String()
}

// Add - 연결 등록
func (r *ConnectionRegistry) Add(id string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = conn
}

// Remove - 연결 해제 (등록되어 있었으면 연결을 돌려준다)
func (r *ConnectionRegistry) Remove(id string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	return conn, ok
}

// Get - ID로 연결 조회
func (r *ConnectionRegistry) Get(id string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// IDs - 등록된 연결 ID (정렬됨)
func (r *ConnectionRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count - 연결 수
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
