package ledger

import (
	"testing"

	"walletd/storage"
)

func newTestManager() *Manager {
	return NewManager(0, "btc", NewKVStore(storage.NewMemDB(), "btc"))
}

func TestManagerInsertMirrorsStoreAcceptance(t *testing.T) {
	m := newTestManager()
	trade := NewPay("alice", "bob", 10, nil, "", 1)

	ok, err := m.Insert("t1", trade)
	if err != nil || !ok {
		t.Fatalf("insert: ok=%v err=%v", ok, err)
	}
	if !m.Contains("t1") {
		t.Fatalf("accepted insert not visible in cache")
	}
	if !m.store.Contains("t1") {
		t.Fatalf("cache entry without a durable record")
	}

	ok, err = m.Insert("t1", NewPay("mallory", "bob", 99, nil, "", 2))
	if err != nil || ok {
		t.Fatalf("duplicate insert: ok=%v err=%v", ok, err)
	}
	cached, _ := m.Trade("t1")
	if cached.From != "alice" {
		t.Fatalf("cache mutated by rejected insert: %+v", cached)
	}
}

func TestManagerUpdateMirrorsAcceptedChange(t *testing.T) {
	m := newTestManager()
	if ok, _ := m.Insert("t1", NewPay("alice", "bob", 10, nil, "", 1)); !ok {
		t.Fatalf("insert failed")
	}

	next, err := m.Update("t1", func(tr Trade) (Trade, bool) {
		if tr.Finalize(true, 5) {
			return tr, true
		}
		return tr, false
	})
	if err != nil || next == nil {
		t.Fatalf("update: next=%v err=%v", next, err)
	}
	cached, _ := m.Trade("t1")
	if cached.Status != StatusSucceeded {
		t.Fatalf("cache not mirrored: %+v", cached)
	}

	// Terminal trade: a second finalize is rejected and nothing moves.
	next, err = m.Update("t1", func(tr Trade) (Trade, bool) {
		if tr.Finalize(false, 6) {
			return tr, true
		}
		return tr, false
	})
	if err != nil || next != nil {
		t.Fatalf("rejected transform: next=%v err=%v", next, err)
	}
	cached, _ = m.Trade("t1")
	if cached.Status != StatusSucceeded || cached.UpdatedAt != 5 {
		t.Fatalf("rejected transform touched the cache: %+v", cached)
	}
}

func TestManagerApprovalIndex(t *testing.T) {
	m := newTestManager()
	held := NewPay("alice", "bob", 10, nil, "", 1)
	held.Status = StatusApproving
	if ok, _ := m.Insert("t1", held); !ok {
		t.Fatalf("insert failed")
	}
	if ids := m.PendingApproval(); len(ids) != 1 || ids[0] != "t1" {
		t.Fatalf("approval index = %v", ids)
	}

	if !m.Approve("t1", 2) {
		t.Fatalf("approve failed")
	}
	if ids := m.PendingApproval(); len(ids) != 0 {
		t.Fatalf("approved trade still indexed: %v", ids)
	}
	cached, _ := m.Trade("t1")
	if cached.Status != StatusPending {
		t.Fatalf("approved pay should be pending, got %v", cached.Status)
	}
}

func TestManagerConfirmBroadcast(t *testing.T) {
	m := newTestManager()
	if ok, _ := m.Insert("t1", NewFund("ext", "alice", 10, "", 1)); !ok {
		t.Fatalf("insert failed")
	}
	if !m.ConfirmBroadcast("t1", 2) {
		t.Fatalf("broadcast confirmation failed")
	}
	cached, _ := m.Trade("t1")
	if cached.Status != StatusPending {
		t.Fatalf("status = %v", cached.Status)
	}
	if m.ConfirmBroadcast("t1", 3) {
		t.Fatalf("second broadcast confirmation should be rejected")
	}
}

func TestManagerAddCachedBypassesStore(t *testing.T) {
	m := newTestManager()
	m.AddCached("t1", NewAirDrop("carol", 500, 1))
	if !m.Contains("t1") {
		t.Fatalf("cached trade missing")
	}
	if m.store.Contains("t1") {
		t.Fatalf("AddCached must not write the store")
	}
}
