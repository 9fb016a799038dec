package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemory keeps turns in process memory.
type InMemory struct {
	mu    sync.RWMutex
	k     int
	turns map[string][]Turn
}

// NewInMemory returns a store whose window holds k turns. k <= 0 selects
// DefaultWindow.
func NewInMemory(k int) *InMemory {
	return &InMemory{k: windowSize(k), turns: make(map[string][]Turn)}
}

func (m *InMemory) Window() int { return m.k }

func (m *InMemory) Append(ctx context.Context, conversationID string, turn Turn) error {
	if err := validate(turn); err != nil {
		return err
	}
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	id := Identity(conversationID)
	m.mu.Lock()
	m.turns[id] = append(m.turns[id], turn)
	m.mu.Unlock()
	return nil
}

func (m *InMemory) RecentWindow(ctx context.Context, conversationID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.turns[Identity(conversationID)]
	if len(all) > m.k {
		all = all[len(all)-m.k:]
	}
	return append([]Turn{}, all...), nil
}

func (m *InMemory) History(ctx context.Context, conversationID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Turn{}, m.turns[Identity(conversationID)]...), nil
}

// Conversations lists known conversation identities in name order.
func (m *InMemory) Conversations(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.turns))
	for id := range m.turns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
