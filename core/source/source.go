package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"FreeFM/model"
)

// Adapter 是单个外部内容源的采集契约
//
// Fetch 接收上一轮持久化的游标（首轮为 nil），返回本轮采集结果和推进后的
// 游标。单条数据的失败只允许记入 SourceResult.Errors，不允许中断采集；
// 只有适配器自身完全无法工作时才返回 error。
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, cursor json.RawMessage) (*model.SourceResult, json.RawMessage, error)
}

// Registry maps source names to their Adapter implementations.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter to the registry, keyed by its Name().
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := adapter.Name()
	if _, ok := r.adapters[name]; !ok {
		r.order = append(r.order, name)
	}
	r.adapters[name] = adapter
}

// Get returns the adapter for the given name, or an error if not found.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", name)
	}
	return adapter, nil
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]Adapter, 0, len(r.adapters))
	for _, name := range r.order {
		adapters = append(adapters, r.adapters[name])
	}
	return adapters
}
