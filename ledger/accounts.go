package ledger

import (
	"hash/fnv"
	"sync"
)

const accountShards = 64

// Accounts is the process-wide account table: a sharded map giving each key an
// exclusive, all-or-nothing update closure while unrelated keys proceed in
// parallel.
type Accounts struct {
	shards [accountShards]accountShard
}

type accountShard struct {
	mu sync.RWMutex
	m  map[string]*Account
}

// NewAccounts builds an empty account table.
func NewAccounts() *Accounts {
	a := &Accounts{}
	for i := range a.shards {
		a.shards[i].m = make(map[string]*Account)
	}
	return a
}

func (a *Accounts) shard(id string) *accountShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &a.shards[h.Sum32()%accountShards]
}

// Update runs fn with exclusive access to an existing account and reports its
// result. A missing account yields false without creating one: only credit
// targets are created lazily, via Upsert.
func (a *Accounts) Update(id string, fn func(*Account) bool) bool {
	s := a.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.m[id]
	if !ok {
		return false
	}
	return fn(acct)
}

// Upsert runs fn with exclusive access to the account, creating it first when
// absent.
func (a *Accounts) Upsert(id string, fn func(*Account)) {
	s := a.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.m[id]
	if !ok {
		acct = &Account{}
		s.m[id] = acct
	}
	fn(acct)
}

// Get returns a deep copy of the account, if present.
func (a *Accounts) Get(id string) (Account, bool) {
	s := a.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.m[id]
	if !ok {
		return Account{}, false
	}
	return acct.clone(), true
}

// Warning flags an account whose replayed history would have driven an
// available balance negative.
type Warning struct {
	Asset   AssetID
	Account string
}

type warningSet struct {
	mu    sync.Mutex
	seen  map[Warning]struct{}
	order []Warning
}

func newWarningSet() *warningSet {
	return &warningSet{seen: make(map[Warning]struct{})}
}

func (w *warningSet) add(asset AssetID, account string) {
	key := Warning{Asset: asset, Account: account}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[key]; ok {
		return
	}
	w.seen[key] = struct{}{}
	w.order = append(w.order, key)
}

func (w *warningSet) list() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Warning(nil), w.order...)
}
