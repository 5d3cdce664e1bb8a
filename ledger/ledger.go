// Package ledger is the accounting core of the wallet platform. It records
// every value movement as a durable trade and maintains a derived, in-memory
// account balance projection with strict available/locked semantics. Balances
// can always be rebuilt from the persisted trades via LoadAll.
package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"walletd/observability/metrics"
	"walletd/storage"
)

// Ledger owns the per-asset trade managers and the account table. All
// operations go through it; no global state is involved, so isolated ledgers
// can run side by side.
type Ledger struct {
	registry *Registry
	managers []*Manager
	accounts *Accounts
	warnings *warningSet
	log      *slog.Logger
	nowFn    func() int64
}

// New builds a ledger over the database. Each registered asset gets its own
// independent durable store.
func New(db storage.Database, registry *Registry, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	managers := make([]*Manager, registry.Len())
	for _, asset := range registry.Assets() {
		managers[asset.ID] = NewManager(asset.ID, asset.Name, NewKVStore(db, asset.Name))
	}
	return &Ledger{
		registry: registry,
		managers: managers,
		accounts: NewAccounts(),
		warnings: newWarningSet(),
		log:      logger,
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source. Primarily for deterministic tests.
func (l *Ledger) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

func (l *Ledger) now() int64 { return l.nowFn() }

// Registry returns the asset registry the ledger was built with.
func (l *Ledger) Registry() *Registry { return l.registry }

// Manager returns the per-asset trade manager, mainly for broadcast and
// approval transitions driven by external watchers.
func (l *Ledger) Manager(asset AssetID) (*Manager, error) {
	if !l.registry.Valid(asset) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownAsset, asset)
	}
	return l.managers[asset], nil
}

// registerParticipant appends the trade to the account's participation list,
// creating the account when absent.
func (l *Ledger) registerParticipant(account string, asset AssetID, tradeID string) {
	l.accounts.Upsert(account, func(a *Account) {
		a.Trades = append(a.Trades, TradeRef{Asset: asset, TradeID: tradeID})
	})
}

// registerParticipantCredit is registerParticipant plus an immediate available
// credit. Air-drop grants only.
func (l *Ledger) registerParticipantCredit(account string, asset AssetID, tradeID string, amount uint64) {
	l.accounts.Upsert(account, func(a *Account) {
		a.Trades = append(a.Trades, TradeRef{Asset: asset, TradeID: tradeID})
		a.Income(asset, amount)
	})
}

// lockSender reserves the trade's funds on the sender. The sender must
// already exist: an account that has never been credited cannot cover
// anything.
func (l *Ledger) lockSender(asset AssetID, t *Trade) bool {
	return l.accounts.Update(t.From, func(a *Account) bool {
		return a.Lock(asset, t)
	})
}

// settleSuccess applies the sender-side debit of a successful trade and then
// credits the gas recipients and the receiver. With withLock the sender's
// reservation is confirmed; without it (replay of terminal history) the
// amounts are debited directly, and a shortfall lands in the warning scan
// instead of stopping replay.
func (l *Ledger) settleSuccess(asset AssetID, t *Trade, withLock bool) bool {
	debited := l.accounts.Update(t.From, func(a *Account) bool {
		if withLock {
			return a.Confirm(asset, t)
		}
		if !a.Decrease(asset, t) {
			l.log.Error("replay debit underflow",
				slog.String("asset", l.registry.Name(asset)),
				slog.String("account", t.From),
				slog.Uint64("amount", t.Amount))
			l.warnings.add(asset, t.From)
		}
		return true
	})
	if !debited {
		return false
	}
	for _, g := range t.Gas {
		gas := g
		l.accounts.Upsert(gas.To, func(a *Account) {
			a.Income(gas.Asset, gas.Amount)
		})
	}
	l.accounts.Upsert(t.To, func(a *Account) {
		a.Income(asset, t.Amount)
	})
	return true
}

// AddFund records an external deposit awaiting broadcast confirmation. The
// receiver is registered as a participant but nothing is credited: a deposit
// is not economically real until externally confirmed.
func (l *Ledger) AddFund(asset AssetID, tradeID, from, to string, amount uint64, hash string) error {
	m, err := l.Manager(asset)
	if err != nil {
		return err
	}
	if m.Contains(tradeID) {
		return fmt.Errorf("%w: %s", ErrTradeExists, tradeID)
	}
	trade := NewFund(from, to, amount, hash, l.now())
	ok, err := m.Insert(tradeID, trade)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTradeExists, tradeID)
	}
	l.registerParticipant(to, asset, tradeID)
	metrics.Ledger().TradeCreated(m.name, trade.Type.String())
	l.log.Info("fund recorded", slog.String("asset", m.name), slog.String("trade", tradeID), slog.Uint64("amount", amount))
	return nil
}

// CompleteFund finalizes a deposit. On success the receiver's available
// balance grows by the amount; on failure there is no balance effect.
func (l *Ledger) CompleteFund(asset AssetID, tradeID string, success bool) bool {
	m, err := l.Manager(asset)
	if err != nil {
		return false
	}
	now := l.now()
	next, err := m.Update(tradeID, func(t Trade) (Trade, bool) {
		if t.Type != TypeFund {
			return t, false
		}
		if t.Finalize(success, now) {
			return t, true
		}
		return t, false
	})
	if err != nil || next == nil {
		return false
	}
	if success {
		l.accounts.Upsert(next.To, func(a *Account) {
			a.Income(asset, next.Amount)
		})
	}
	metrics.Ledger().TradeCompleted(m.name, next.Type.String(), outcome(success))
	l.log.Info("fund completed", slog.String("asset", m.name), slog.String("trade", tradeID), slog.Bool("success", success))
	return true
}

// AddPay records an internal transfer, synchronously locking the sender for
// the principal plus all gas before the trade is durably inserted. If the
// lock fails no trade is created.
func (l *Ledger) AddPay(asset AssetID, tradeID, from, to string, amount uint64, gas []GasInfo, hash string) error {
	return l.addOutgoing(asset, tradeID, from, to, amount, gas, hash, TypePay)
}

// AddWithdraw records an exit to an external destination with the same
// lock-first guarantee as AddPay.
func (l *Ledger) AddWithdraw(asset AssetID, tradeID, from, to string, amount uint64, gas []GasInfo, hash string) error {
	return l.addOutgoing(asset, tradeID, from, to, amount, gas, hash, TypeWithdraw)
}

func (l *Ledger) addOutgoing(asset AssetID, tradeID, from, to string, amount uint64, gas []GasInfo, hash string, typ TransferType) error {
	m, err := l.Manager(asset)
	if err != nil {
		return err
	}
	for _, g := range gas {
		if !l.registry.Valid(g.Asset) {
			return fmt.Errorf("%w: gas asset index %d", ErrUnknownAsset, g.Asset)
		}
	}
	if m.Contains(tradeID) {
		return fmt.Errorf("%w: %s", ErrTradeExists, tradeID)
	}
	var trade Trade
	if typ == TypePay {
		trade = NewPay(from, to, amount, gas, hash, l.now())
	} else {
		trade = NewWithdraw(from, to, amount, gas, hash, l.now())
	}
	if !l.lockSender(asset, &trade) {
		metrics.Ledger().CreationRejected(m.name, "insufficient_funds")
		return fmt.Errorf("%w: account %s", ErrInsufficientFunds, from)
	}
	ok, err := m.Insert(tradeID, trade)
	if err != nil || !ok {
		// The durable write never happened, so the reservation must not
		// outlive this call.
		l.accounts.Update(from, func(a *Account) bool {
			return a.Rollback(asset, &trade)
		})
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrTradeExists, tradeID)
	}
	// Participation is recorded only for trades that durably exist.
	l.registerParticipant(from, asset, tradeID)
	l.registerParticipant(to, asset, tradeID)
	metrics.Ledger().TradeCreated(m.name, trade.Type.String())
	l.log.Info("trade recorded", slog.String("asset", m.name), slog.String("type", trade.Type.String()),
		slog.String("trade", tradeID), slog.Uint64("amount", amount))
	return nil
}

// CompletePay finalizes an internal transfer: on success the sender's lock is
// confirmed and the receiver plus every gas recipient are credited; on failure
// the full reservation rolls back and nothing is credited.
func (l *Ledger) CompletePay(asset AssetID, tradeID string, success bool) bool {
	return l.completeOutgoing(asset, tradeID, success, TypePay)
}

// CompleteWithdraw finalizes a withdrawal with the same settlement shape as
// CompletePay. The destination row is credited like any account, keeping an
// audit trail of value that left the platform.
func (l *Ledger) CompleteWithdraw(asset AssetID, tradeID string, success bool) bool {
	return l.completeOutgoing(asset, tradeID, success, TypeWithdraw)
}

func (l *Ledger) completeOutgoing(asset AssetID, tradeID string, success bool, typ TransferType) bool {
	m, err := l.Manager(asset)
	if err != nil {
		return false
	}
	now := l.now()
	next, err := m.Update(tradeID, func(t Trade) (Trade, bool) {
		if t.Type != typ {
			return t, false
		}
		if t.Finalize(success, now) {
			return t, true
		}
		return t, false
	})
	if err != nil || next == nil {
		return false
	}
	settled := true
	if success {
		settled = l.settleSuccess(asset, next, true)
		if !settled {
			// The terminal status is already durable; surface the unmoved
			// funds instead of pretending settlement happened.
			l.warnings.add(asset, next.From)
			l.log.Error("settlement moved no funds",
				slog.String("asset", m.name),
				slog.String("trade", tradeID),
				slog.String("account", next.From))
		}
	} else {
		l.accounts.Update(next.From, func(a *Account) bool {
			return a.Rollback(asset, next)
		})
	}
	metrics.Ledger().TradeCompleted(m.name, next.Type.String(), outcome(success))
	l.log.Info("trade completed", slog.String("asset", m.name), slog.String("type", next.Type.String()),
		slog.String("trade", tradeID), slog.Bool("success", success))
	return settled
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// GetAmount returns the account's per-asset (available, locked) table.
func (l *Ledger) GetAmount(account string) ([AssetCount]Balance, bool) {
	acct, ok := l.accounts.Get(account)
	if !ok {
		return [AssetCount]Balance{}, false
	}
	return acct.Amounts, true
}

// TradeEntry pairs a trade id with its current record.
type TradeEntry struct {
	ID    string
	Trade Trade
}

// GetTrades lists the account's trades for one asset, in participation order.
func (l *Ledger) GetTrades(asset AssetID, account string) []TradeEntry {
	m, err := l.Manager(asset)
	if err != nil {
		return nil
	}
	acct, ok := l.accounts.Get(account)
	if !ok {
		return nil
	}
	entries := make([]TradeEntry, 0, len(acct.Trades))
	for _, ref := range acct.Trades {
		if ref.Asset != asset {
			continue
		}
		if t, ok := m.Trade(ref.TradeID); ok {
			entries = append(entries, TradeEntry{ID: ref.TradeID, Trade: t})
		}
	}
	return entries
}

// PendingApproval lists the asset's trades awaiting manual review.
func (l *Ledger) PendingApproval(asset AssetID) []string {
	m, err := l.Manager(asset)
	if err != nil {
		return nil
	}
	return m.PendingApproval()
}

// Warnings lists the (asset, account) pairs flagged during replay with a
// balance underflow.
func (l *Ledger) Warnings() []Warning {
	return l.warnings.list()
}
