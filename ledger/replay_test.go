package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"walletd/storage"
)

// rebuild replays the same database into a fresh ledger.
func rebuild(t *testing.T, db storage.Database) *Ledger {
	t.Helper()
	fresh := New(db, MustRegistry(DefaultAssets), discardLogger())
	_, err := fresh.LoadAll()
	require.NoError(t, err)
	return fresh
}

func TestReplayReproducesTerminalBalances(t *testing.T) {
	l, db := newTestLedger(t)
	fund(t, l, assetBTC, "alice", 500)

	// Gas stays on the principal's asset: assets replay on independent
	// workers, so only same-asset history has a deterministic order.
	gas := []GasInfo{{Asset: assetBTC, Amount: 20, To: "gasguy"}}
	require.NoError(t, l.AddPay(assetBTC, "p1", "alice", "bob", 100, gas, ""))
	require.True(t, l.CompletePay(assetBTC, "p1", true))
	require.NoError(t, l.AddWithdraw(assetBTC, "w1", "alice", "dest", 60, nil, ""))
	require.True(t, l.CompleteWithdraw(assetBTC, "w1", false))

	fresh := rebuild(t, db)
	for _, account := range []string{"alice", "bob", "gasguy", "dest"} {
		want, okWant := l.GetAmount(account)
		got, okGot := fresh.GetAmount(account)
		require.Equal(t, okWant, okGot, "account %s presence", account)
		require.Equal(t, want, got, "account %s balances", account)
	}
	require.Empty(t, fresh.Warnings())
}

func TestReplayReproducesTradeRecords(t *testing.T) {
	l, db := newTestLedger(t)
	fund(t, l, assetBTC, "alice", 200)
	require.NoError(t, l.AddPay(assetBTC, "p1", "alice", "bob", 150, nil, "h"))
	require.True(t, l.CompletePay(assetBTC, "p1", true))

	fresh := rebuild(t, db)
	want := l.GetTrades(assetBTC, "bob")
	got := fresh.GetTrades(assetBTC, "bob")
	require.Equal(t, want, got)
}

func TestReplayRelocksInFlightTrades(t *testing.T) {
	l, db := newTestLedger(t)
	fund(t, l, assetBTC, "alice", 150)
	require.NoError(t, l.AddWithdraw(assetBTC, "w1", "alice", "dest", 100, nil, ""))
	// Shutdown before completion.

	fresh := rebuild(t, db)
	require.Equal(t, Balance{Available: 50, Locked: 100}, balance(t, fresh, "alice", assetBTC))

	// The reservation stays live: the trade can still settle.
	require.True(t, fresh.CompleteWithdraw(assetBTC, "w1", true))
	require.Equal(t, Balance{Available: 50}, balance(t, fresh, "alice", assetBTC))
}

func TestReplayIgnoresFailedTrades(t *testing.T) {
	l, db := newTestLedger(t)
	fund(t, l, assetBTC, "alice", 150)
	require.NoError(t, l.AddPay(assetBTC, "p1", "alice", "bob", 100, nil, ""))
	require.True(t, l.CompletePay(assetBTC, "p1", false))

	fresh := rebuild(t, db)
	require.Equal(t, Balance{Available: 150}, balance(t, fresh, "alice", assetBTC))
	// Bob participated but was never credited.
	require.Len(t, fresh.GetTrades(assetBTC, "bob"), 1)
	require.Equal(t, Balance{}, balance(t, fresh, "bob", assetBTC))
}

func TestReplayUnconfirmedFundCreditsNothing(t *testing.T) {
	l, db := newTestLedger(t)
	require.NoError(t, l.AddFund(assetBTC, "f1", "ext", "alice", 100, ""))

	fresh := rebuild(t, db)
	require.Equal(t, Balance{}, balance(t, fresh, "alice", assetBTC))
	require.Len(t, fresh.GetTrades(assetBTC, "alice"), 1)
}

func TestReplayUnderflowWarnsAndContinues(t *testing.T) {
	// A succeeded pay whose sender history cannot cover it: persisted by a
	// previous deployment whose deposits are not in this store.
	db := storage.NewMemDB()
	store := NewKVStore(db, DefaultAssets[assetBTC])
	trade := NewPay("ghost", "bob", 100, nil, "", 1)
	trade.Status = StatusSucceeded
	ok, err := store.Insert("p1", &trade)
	require.NoError(t, err)
	require.True(t, ok)

	fresh := rebuild(t, db)
	require.Equal(t, []Warning{{Asset: assetBTC, Account: "ghost"}}, fresh.Warnings())
	// The receiver is still credited; the ghost account is flagged, not drained.
	require.Equal(t, Balance{Available: 100}, balance(t, fresh, "bob", assetBTC))
	require.Equal(t, Balance{}, balance(t, fresh, "ghost", assetBTC))
}

func TestReplayRelockShortfallWarns(t *testing.T) {
	// An in-flight withdraw whose sender history cannot cover the reservation.
	db := storage.NewMemDB()
	store := NewKVStore(db, DefaultAssets[assetBTC])
	trade := NewWithdraw("ghost", "ext", 100, nil, "", 1)
	ok, err := store.Insert("w1", &trade)
	require.NoError(t, err)
	require.True(t, ok)

	fresh := rebuild(t, db)
	require.Equal(t, []Warning{{Asset: assetBTC, Account: "ghost"}}, fresh.Warnings())
	require.Equal(t, Balance{}, balance(t, fresh, "ghost", assetBTC))
}

func TestReplayAppliesAirDrops(t *testing.T) {
	l, db := newTestLedger(t)
	ok, err := l.ImportAirDrop(assetRNA, "air_drop_rna-1", "carol", 500)
	require.NoError(t, err)
	require.True(t, ok)

	fresh := rebuild(t, db)
	require.Equal(t, Balance{Available: 500}, balance(t, fresh, "carol", assetRNA))
}
