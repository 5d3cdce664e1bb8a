package ledger

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"walletd/observability/metrics"
)

// LoadAll rebuilds the trade caches and account balances from the durable
// stores on cold start. Each asset replays on its own worker so the asset's
// append order is respected; assets proceed in parallel. Cold-start only: the
// replay path applies terminal balance effects directly, outside the
// lock/confirm/rollback protocol, and must never run against a warm ledger.
func (l *Ledger) LoadAll() (time.Duration, error) {
	start := time.Now()
	errs := make([]error, len(l.managers))
	var wg sync.WaitGroup
	for i := range l.managers {
		wg.Add(1)
		go func(asset AssetID, m *Manager) {
			defer wg.Done()
			errs[asset] = m.store.LoadAll(func(id string, trade Trade) {
				m.AddCached(id, trade)
				l.applyReplayed(asset, id, &trade)
				metrics.Ledger().TradeReplayed(m.name)
			})
		}(AssetID(i), l.managers[i])
	}
	wg.Wait()
	elapsed := time.Since(start)
	metrics.Ledger().ObserveReplay(elapsed.Seconds())
	return elapsed, errors.Join(errs...)
}

// applyReplayed derives one persisted trade's balance effect. Terminal trades
// are applied directly; a Pay or Withdraw still in flight at shutdown
// re-acquires its lock so the funds stay reserved pending operator resolution.
func (l *Ledger) applyReplayed(asset AssetID, id string, t *Trade) {
	switch t.Type {
	case TypeFund:
		l.registerParticipant(t.To, asset, id)
		if t.Status == StatusSucceeded {
			l.accounts.Update(t.To, func(a *Account) bool {
				return a.Income(asset, t.Amount)
			})
		}
	case TypePay, TypeWithdraw:
		l.registerParticipant(t.From, asset, id)
		l.registerParticipant(t.To, asset, id)
		switch {
		case t.Status == StatusSucceeded:
			l.settleSuccess(asset, t, false)
		case t.Status != StatusFailed:
			relocked := l.accounts.Update(t.From, func(a *Account) bool {
				return a.Lock(asset, t)
			})
			if !relocked {
				l.log.Error("replay re-lock failed",
					slog.String("asset", l.registry.Name(asset)),
					slog.String("account", t.From),
					slog.Uint64("amount", t.Amount))
				l.warnings.add(asset, t.From)
			}
		}
		// Failed: the rollback already happened historically.
	case TypeAirDrop:
		l.registerParticipantCredit(t.To, asset, id, t.Amount)
	default:
		// Reserved types carry no balance semantics.
	}
}
