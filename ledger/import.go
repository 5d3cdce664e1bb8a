package ledger

import (
	"fmt"
	"time"
)

// importTimeLayout is the timestamp format the legacy relational source uses.
const importTimeLayout = "2006-01-02 15:04:05"

var statusNames = []struct {
	name   string
	status TransferStatus
}{
	{"Approving", StatusApproving},
	{"WaitBroadcast", StatusWaitBroadcast},
	{"Pending", StatusPending},
	{"Succeeded", StatusSucceeded},
	{"Failed", StatusFailed},
}

var typeNames = []struct {
	name string
	typ  TransferType
}{
	{"NodeFund", TypeNodeFund},
	{"Fund", TypeFund},
	{"Withdraw", TypeWithdraw},
	{"NodeWithdraw", TypeNodeWithdraw},
	{"Pay", TypePay},
	{"Gas", TypeGas},
}

// StatusByName maps an external status name onto the lifecycle enum.
func StatusByName(name string) (TransferStatus, bool) {
	for _, entry := range statusNames {
		if entry.name == name {
			return entry.status, true
		}
	}
	return 0, false
}

// TypeByName maps an external transfer-type name onto the type enum.
func TypeByName(name string) (TransferType, bool) {
	for _, entry := range typeNames {
		if entry.name == name {
			return entry.typ, true
		}
	}
	return 0, false
}

// ImportRecord is one externally sourced trade row, names still in their
// source vocabulary.
type ImportRecord struct {
	TradeID   string
	Asset     string
	Type      string
	Status    string
	Amount    uint64
	From      string
	To        string
	Hash      string
	CreatedAt string
	UpdatedAt string
}

// parseImportTime accepts an empty value (the source rarely backfills
// update times) and rejects anything else that does not parse.
func parseImportTime(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	ts, err := time.Parse(importTimeLayout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, value)
	}
	return ts.UTC().Unix(), nil
}

// ImportTrade maps one externally sourced record, inserts it as a possibly
// already-terminal trade and applies the same balance derivation as replay.
// It returns false when the trade id is already present. An unmapped asset,
// status or timestamp rejects just this record; a transfer type with no live
// lifecycle returns ErrUnknownType, which bulk importers must treat as fatal
// for the run rather than silently dropping financial records.
func (l *Ledger) ImportTrade(rec ImportRecord) (bool, error) {
	asset, err := l.registry.Lookup(rec.Asset)
	if err != nil {
		return false, err
	}
	typ, ok := TypeByName(rec.Type)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownType, rec.Type)
	}
	status, ok := StatusByName(rec.Status)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownStatus, rec.Status)
	}
	created, err := parseImportTime(rec.CreatedAt)
	if err != nil {
		return false, err
	}
	updated, err := parseImportTime(rec.UpdatedAt)
	if err != nil {
		return false, err
	}

	var trade Trade
	switch typ {
	case TypeFund:
		trade = NewFund(rec.From, rec.To, rec.Amount, rec.Hash, created)
	case TypePay:
		trade = NewPay(rec.From, rec.To, rec.Amount, nil, rec.Hash, created)
	case TypeGas:
		// Historical standalone gas rows settle like plain pays.
		trade = NewPay(rec.From, rec.To, rec.Amount, nil, rec.Hash, created)
	case TypeWithdraw:
		trade = NewWithdraw(rec.From, rec.To, rec.Amount, nil, rec.Hash, created)
	default:
		return false, fmt.Errorf("%w: %q has no import path", ErrUnknownType, rec.Type)
	}
	trade.Status = status
	trade.UpdatedAt = updated

	m, err := l.Manager(asset)
	if err != nil {
		return false, err
	}
	inserted, err := m.Insert(rec.TradeID, trade)
	if err != nil || !inserted {
		return false, err
	}
	l.applyReplayed(asset, rec.TradeID, &trade)
	return true, nil
}

// ImportAirDrop records a historical grant. The trade is terminal by
// construction and the recipient is credited immediately; there is no live
// creation entry point for air drops.
func (l *Ledger) ImportAirDrop(asset AssetID, tradeID, to string, amount uint64) (bool, error) {
	m, err := l.Manager(asset)
	if err != nil {
		return false, err
	}
	trade := NewAirDrop(to, amount, l.now())
	inserted, err := m.Insert(tradeID, trade)
	if err != nil || !inserted {
		return false, err
	}
	l.applyReplayed(asset, tradeID, &trade)
	return true, nil
}
