package ledger

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"walletd/storage"
)

const (
	tradeKeyFormat      = "ledger/trades/%s/%s"
	tradeIndexKeyFormat = "ledger/trades/%s/index"
	storeShards         = 64
)

// TradeStore is the durable per-asset backend holding canonical trade records.
// Stores for different assets are fully independent.
type TradeStore interface {
	// Contains reports whether the id is already persisted.
	Contains(id string) bool
	// Insert persists a new trade. It returns false without writing when the
	// id is already present; there is no overwrite.
	Insert(id string, trade *Trade) (bool, error)
	// Update loads the current value and applies transform with exclusive
	// access to the id. When transform reports no change the stored value is
	// left untouched and nil is returned; otherwise the new value is persisted
	// and returned.
	Update(id string, transform func(Trade) (Trade, bool)) (*Trade, error)
	// Get returns the persisted trade, if any.
	Get(id string) (*Trade, bool, error)
	// LoadAll enumerates all persisted (id, trade) pairs in append order.
	LoadAll(visit func(id string, trade Trade)) error
}

// storedTrade is the RLP wire form of a trade record.
type storedTrade struct {
	Type      uint8
	Status    uint8
	CreatedAt uint64
	UpdatedAt uint64
	Amount    uint64
	Gas       []storedGas
	From      string
	To        string
	Hash      string
	FromNode  string
	ToNode    string
	Channel   string
}

type storedGas struct {
	Asset  uint32
	Amount uint64
	To     string
}

func encodeTrade(t *Trade) ([]byte, error) {
	gas := make([]storedGas, len(t.Gas))
	for i, g := range t.Gas {
		gas[i] = storedGas{Asset: uint32(g.Asset), Amount: g.Amount, To: g.To}
	}
	return rlp.EncodeToBytes(storedTrade{
		Type:      uint8(t.Type),
		Status:    uint8(t.Status),
		CreatedAt: uint64(t.CreatedAt),
		UpdatedAt: uint64(t.UpdatedAt),
		Amount:    t.Amount,
		Gas:       gas,
		From:      t.From,
		To:        t.To,
		Hash:      t.Hash,
		FromNode:  t.FromNode,
		ToNode:    t.ToNode,
		Channel:   t.Channel,
	})
}

func decodeTrade(data []byte) (Trade, error) {
	var stored storedTrade
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return Trade{}, err
	}
	trade := Trade{
		Type:      TransferType(stored.Type),
		Status:    TransferStatus(stored.Status),
		CreatedAt: int64(stored.CreatedAt),
		UpdatedAt: int64(stored.UpdatedAt),
		Amount:    stored.Amount,
		From:      stored.From,
		To:        stored.To,
		Hash:      stored.Hash,
		FromNode:  stored.FromNode,
		ToNode:    stored.ToNode,
		Channel:   stored.Channel,
	}
	if len(stored.Gas) > 0 {
		trade.Gas = make([]GasInfo, len(stored.Gas))
		for i, g := range stored.Gas {
			trade.Gas[i] = GasInfo{Asset: AssetID(g.Asset), Amount: g.Amount, To: g.To}
		}
	}
	return trade, nil
}

// KVStore persists one asset's trades in a key-value database. Records live
// under per-id keys; a separate index key keeps the ids in append order so
// replay sees the store's native insertion order regardless of the backend's
// own iteration order.
type KVStore struct {
	name    string
	db      storage.Database
	indexMu sync.Mutex
	locks   [storeShards]sync.Mutex
}

// NewKVStore wraps the database with a store for the named asset.
func NewKVStore(db storage.Database, name string) *KVStore {
	return &KVStore{name: name, db: db}
}

func (s *KVStore) entryKey(id string) []byte {
	return []byte(fmt.Sprintf(tradeKeyFormat, s.name, id))
}

func (s *KVStore) indexKey() []byte {
	return []byte(fmt.Sprintf(tradeIndexKeyFormat, s.name))
}

// shard returns the lock guarding read-modify-write cycles for the id. Ids in
// the same shard serialize; different shards proceed in parallel.
func (s *KVStore) shard(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%storeShards]
}

func (s *KVStore) Contains(id string) bool {
	ok, err := s.db.Has(s.entryKey(id))
	return err == nil && ok
}

func (s *KVStore) Insert(id string, trade *Trade) (bool, error) {
	mu := s.shard(id)
	mu.Lock()
	defer mu.Unlock()
	if ok, err := s.db.Has(s.entryKey(id)); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}
	encoded, err := encodeTrade(trade)
	if err != nil {
		return false, err
	}
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	index, err := s.loadIndex()
	if err != nil {
		return false, err
	}
	index = append(index, id)
	encodedIndex, err := rlp.EncodeToBytes(index)
	if err != nil {
		return false, err
	}
	// Record and index land in one atomic write: a trade can never become
	// durable yet stay invisible to replay.
	err = s.db.PutBatch([]storage.BatchWrite{
		{Key: s.entryKey(id), Value: encoded},
		{Key: s.indexKey(), Value: encodedIndex},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *KVStore) loadIndex() ([]string, error) {
	data, err := s.db.Get(s.indexKey())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var index []string
	if err := rlp.DecodeBytes(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *KVStore) Update(id string, transform func(Trade) (Trade, bool)) (*Trade, error) {
	mu := s.shard(id)
	mu.Lock()
	defer mu.Unlock()
	data, err := s.db.Get(s.entryKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	current, err := decodeTrade(data)
	if err != nil {
		return nil, err
	}
	next, changed := transform(current)
	if !changed {
		return nil, nil
	}
	encoded, err := encodeTrade(&next)
	if err != nil {
		return nil, err
	}
	if err := s.db.Put(s.entryKey(id), encoded); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *KVStore) Get(id string) (*Trade, bool, error) {
	data, err := s.db.Get(s.entryKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	trade, err := decodeTrade(data)
	if err != nil {
		return nil, false, err
	}
	return &trade, true, nil
}

func (s *KVStore) LoadAll(visit func(id string, trade Trade)) error {
	s.indexMu.Lock()
	index, err := s.loadIndex()
	s.indexMu.Unlock()
	if err != nil {
		return err
	}
	for _, id := range index {
		// Record and index are written atomically, so an indexed id must
		// resolve; anything else is a storage failure.
		data, err := s.db.Get(s.entryKey(id))
		if err != nil {
			return fmt.Errorf("ledger: load trade %s/%s: %w", s.name, id, err)
		}
		trade, err := decodeTrade(data)
		if err != nil {
			return fmt.Errorf("ledger: decode trade %s/%s: %w", s.name, id, err)
		}
		visit(id, trade)
	}
	return nil
}
