package conflict

import (
	"fmt"
	"sort"
	"sync"
)

// MergeFunc merges a local payload with the remote one for a single
// operation kind.
type MergeFunc func(local, remote any) any

// Resolver selects a merge strategy by operation. Operations without a
// registered strategy use MergePayloads.
type Resolver struct {
	mu         sync.RWMutex
	strategies map[string]MergeFunc
}

// NewResolver creates a Resolver with no per-operation strategies.
func NewResolver() *Resolver {
	return &Resolver{strategies: make(map[string]MergeFunc)}
}

// Register installs fn for operation, replacing any previous strategy.
// A nil fn removes it.
func (r *Resolver) Register(operation string, fn MergeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.strategies, operation)
		return
	}
	r.strategies[operation] = fn
}

// Merge merges local and remote payloads of operation.
func (r *Resolver) Merge(operation string, local, remote any) any {
	if r == nil {
		return MergePayloads(local, remote)
	}
	r.mu.RLock()
	fn, ok := r.strategies[operation]
	r.mu.RUnlock()
	if !ok {
		return MergePayloads(local, remote)
	}
	return fn(local, remote)
}

// Operations returns the operations with a registered strategy, sorted.
func (r *Resolver) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]string, 0, len(r.strategies))
	for op := range r.strategies {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Strategy names accepted by StrategyByName.
const (
	StrategyMerge        = "merge"
	StrategyPreferRemote = "prefer_remote"
	StrategyPreferLocal  = "prefer_local"
)

// StrategyByName returns the MergeFunc for a configured strategy name.
func StrategyByName(name string) (MergeFunc, error) {
	switch name {
	case StrategyMerge:
		return MergePayloads, nil
	case StrategyPreferRemote:
		return PreferRemote, nil
	case StrategyPreferLocal:
		return PreferLocal, nil
	default:
		return nil, fmt.Errorf("unknown conflict strategy %q", name)
	}
}

// Configure registers the named strategy of every operation in
// strategies.
func (r *Resolver) Configure(strategies map[string]string) error {
	for op, name := range strategies {
		fn, err := StrategyByName(name)
		if err != nil {
			return fmt.Errorf("conflict strategy for %s: %w", op, err)
		}
		r.Register(op, fn)
	}
	return nil
}

// PreferRemote is a MergeFunc for operations where the server copy is
// authoritative.
func PreferRemote(_, remote any) any {
	return remote
}

// PreferLocal is a MergeFunc for operations where the device copy is
// authoritative.
func PreferLocal(local, _ any) any {
	return local
}
