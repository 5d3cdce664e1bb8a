package ledger

import "sync"

// Manager wraps one asset's durable store with an in-memory mirror and a
// side-index of trades awaiting manual approval. The cache never contains a
// trade absent from the store: writes go store-first.
type Manager struct {
	asset AssetID
	name  string
	store TradeStore

	mu       sync.RWMutex
	cache    map[string]Trade
	approval map[string]struct{}
}

// NewManager builds a manager over the given store.
func NewManager(asset AssetID, name string, store TradeStore) *Manager {
	return &Manager{
		asset:    asset,
		name:     name,
		store:    store,
		cache:    make(map[string]Trade),
		approval: make(map[string]struct{}),
	}
}

// Contains checks the cache, the fast path for creation idempotency.
func (m *Manager) Contains(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[id]
	return ok
}

// Trade returns a copy of the cached trade, if present.
func (m *Manager) Trade(id string) (Trade, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.cache[id]
	if !ok {
		return Trade{}, false
	}
	return t.Clone(), true
}

// Insert writes to the store first; only an accepted durable write becomes
// visible in the cache.
func (m *Manager) Insert(id string, trade Trade) (bool, error) {
	ok, err := m.store.Insert(id, &trade)
	if err != nil || !ok {
		return false, err
	}
	m.mu.Lock()
	m.cache[id] = trade
	if trade.Status == StatusApproving {
		m.approval[id] = struct{}{}
	}
	m.mu.Unlock()
	return true, nil
}

// Update delegates to the store's atomic update and mirrors an accepted change
// onto the cache. When the trade's status leaves Approving it is dropped from
// the approval index. A rejected transform touches nothing.
func (m *Manager) Update(id string, transform func(Trade) (Trade, bool)) (*Trade, error) {
	next, err := m.store.Update(id, transform)
	if err != nil || next == nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[id] = next.Clone()
	if next.Status != StatusApproving {
		delete(m.approval, id)
	}
	m.mu.Unlock()
	return next, nil
}

// AddCached inserts into the cache without the store-first rule. Replay and
// import only: the store must already hold this exact record.
func (m *Manager) AddCached(id string, trade Trade) {
	m.mu.Lock()
	m.cache[id] = trade
	if trade.Status == StatusApproving {
		m.approval[id] = struct{}{}
	}
	m.mu.Unlock()
}

// ConfirmBroadcast moves a deposit from WaitBroadcast to Pending once a
// watcher reports it reached the chain.
func (m *Manager) ConfirmBroadcast(id string, now int64) bool {
	next, err := m.Update(id, func(t Trade) (Trade, bool) {
		if t.Broadcasted(now) {
			return t, true
		}
		return t, false
	})
	return err == nil && next != nil
}

// Approve releases a trade held for manual review into its normal lifecycle.
func (m *Manager) Approve(id string, now int64) bool {
	next, err := m.Update(id, func(t Trade) (Trade, bool) {
		if t.Approve(now) {
			return t, true
		}
		return t, false
	})
	return err == nil && next != nil
}

// PendingApproval lists the trade ids currently awaiting manual review.
func (m *Manager) PendingApproval() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.approval))
	for id := range m.approval {
		ids = append(ids, id)
	}
	return ids
}
