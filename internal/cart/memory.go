package cart

import (
	"context"
	"slices"
	"sync"
)

type MemoryPersistence struct {
	mu       sync.Mutex
	carts    map[string][]Item
	watchers map[int]func(string, []Item)
	nextID   int
	saves    int
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		carts:    map[string][]Item{},
		watchers: map[int]func(string, []Item){},
	}
}

func (m *MemoryPersistence) Load(c context.Context, key string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.carts[key]), nil
}

func (m *MemoryPersistence) Save(c context.Context, key string, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[key] = slices.Clone(items)
	m.saves++
	return nil
}

// Put writes lines as another writer would and notifies watchers.
func (m *MemoryPersistence) Put(key string, items []Item) {
	m.mu.Lock()
	m.carts[key] = slices.Clone(items)
	fns := make([]func(string, []Item), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(key, slices.Clone(items))
	}
}

func (m *MemoryPersistence) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Watchers reports how many Watch calls are running.
func (m *MemoryPersistence) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

func (m *MemoryPersistence) Watch(c context.Context, fn func(key string, items []Item)) error {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	m.mu.Unlock()

	<-c.Done()

	m.mu.Lock()
	delete(m.watchers, id)
	m.mu.Unlock()
	return nil
}
