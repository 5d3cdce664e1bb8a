package ledger

import "github.com/google/uuid"

// TransferType identifies what kind of value movement a trade records.
type TransferType uint8

const (
	// TypeNodeFund is reserved for node-routed funding. Persisted data may
	// reference it, but no creation or completion path exists.
	TypeNodeFund TransferType = iota
	// TypeFund is an external deposit awaiting broadcast confirmation.
	TypeFund
	// TypeWithdraw is an exit to an external destination.
	TypeWithdraw
	// TypeNodeWithdraw is reserved for node-routed withdrawal.
	TypeNodeWithdraw
	// TypePay is an internal transfer between accounts.
	TypePay
	// TypeGas is reserved for standalone gas trades.
	TypeGas
	// TypeAirDrop is an unconditional historical grant, import-only.
	TypeAirDrop
)

// Valid reports whether the type value is within the persisted range.
func (t TransferType) Valid() bool { return t <= TypeAirDrop }

func (t TransferType) String() string {
	switch t {
	case TypeNodeFund:
		return "NodeFund"
	case TypeFund:
		return "Fund"
	case TypeWithdraw:
		return "Withdraw"
	case TypeNodeWithdraw:
		return "NodeWithdraw"
	case TypePay:
		return "Pay"
	case TypeGas:
		return "Gas"
	case TypeAirDrop:
		return "AirDrop"
	default:
		return "Unknown"
	}
}

// TransferStatus is a trade's position in its lifecycle:
// Approving → WaitBroadcast → Pending → {Succeeded | Failed}.
// Not every type visits every status.
type TransferStatus uint8

const (
	// StatusApproving denotes pending manual review.
	StatusApproving TransferStatus = iota
	// StatusWaitBroadcast denotes a deposit awaiting on-chain broadcast.
	StatusWaitBroadcast
	// StatusPending denotes an in-flight trade with funds locked.
	StatusPending
	// StatusSucceeded is terminal.
	StatusSucceeded
	// StatusFailed is terminal.
	StatusFailed
)

// Valid reports whether the status value is within the persisted range.
func (s TransferStatus) Valid() bool { return s <= StatusFailed }

// Terminal reports whether the status permits no further transition.
func (s TransferStatus) Terminal() bool { return s == StatusSucceeded || s == StatusFailed }

func (s TransferStatus) String() string {
	switch s {
	case StatusApproving:
		return "Approving"
	case StatusWaitBroadcast:
		return "WaitBroadcast"
	case StatusPending:
		return "Pending"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// GasInfo is a side-payment bundled with a trade, settled atomically with the
// principal but against its own asset pool and its own recipient.
type GasInfo struct {
	Asset  AssetID
	Amount uint64
	To     string
}

// Trade is a durable record of one value movement. (asset, trade id) is
// globally unique; trades are append-only and a terminal trade is never
// mutated again.
type Trade struct {
	Type      TransferType
	Status    TransferStatus
	CreatedAt int64
	UpdatedAt int64
	Amount    uint64
	Gas       []GasInfo
	From      string
	To        string
	Hash      string
	FromNode  string
	ToNode    string
	Channel   string
}

// Clone returns a deep copy so callers can mutate it without affecting the
// cached instance.
func (t *Trade) Clone() Trade {
	clone := *t
	if t.Gas != nil {
		clone.Gas = append([]GasInfo(nil), t.Gas...)
	}
	return clone
}

// NewFund builds a deposit trade awaiting broadcast confirmation.
func NewFund(from, to string, amount uint64, hash string, now int64) Trade {
	return Trade{Type: TypeFund, Status: StatusWaitBroadcast, CreatedAt: now, Amount: amount, From: from, To: to, Hash: hash}
}

// NewPay builds an internal transfer with funds already due to be locked.
func NewPay(from, to string, amount uint64, gas []GasInfo, hash string, now int64) Trade {
	return Trade{Type: TypePay, Status: StatusPending, CreatedAt: now, Amount: amount, Gas: gas, From: from, To: to, Hash: hash}
}

// NewWithdraw builds an exit to an external destination.
func NewWithdraw(from, to string, amount uint64, gas []GasInfo, hash string, now int64) Trade {
	return Trade{Type: TypeWithdraw, Status: StatusPending, CreatedAt: now, Amount: amount, Gas: gas, From: from, To: to, Hash: hash}
}

// NewAirDrop builds a historical grant, terminal by construction.
func NewAirDrop(to string, amount uint64, now int64) Trade {
	return Trade{Type: TypeAirDrop, Status: StatusSucceeded, CreatedAt: now, Amount: amount, To: to}
}

// CanFinalize reports whether the trade is in a valid precursor status for a
// terminal transition. Funds may finalize from WaitBroadcast as well as
// Pending: deposit confirmations arrive from watchers that do not always
// report the broadcast step separately.
func (t *Trade) CanFinalize() bool {
	switch t.Type {
	case TypeFund:
		return t.Status == StatusWaitBroadcast || t.Status == StatusPending
	case TypePay, TypeWithdraw:
		return t.Status == StatusPending
	default:
		return false
	}
}

// Finalize moves the trade to Succeeded or Failed. It refuses any transition
// not listed in CanFinalize and leaves the trade untouched.
func (t *Trade) Finalize(success bool, now int64) bool {
	if !t.CanFinalize() {
		return false
	}
	if success {
		t.Status = StatusSucceeded
	} else {
		t.Status = StatusFailed
	}
	t.UpdatedAt = now
	return true
}

// Broadcasted records that a deposit reached the chain: WaitBroadcast → Pending.
func (t *Trade) Broadcasted(now int64) bool {
	if t.Type != TypeFund || t.Status != StatusWaitBroadcast {
		return false
	}
	t.Status = StatusPending
	t.UpdatedAt = now
	return true
}

// Approve releases a trade from manual review into its normal lifecycle.
func (t *Trade) Approve(now int64) bool {
	if t.Status != StatusApproving {
		return false
	}
	if t.Type == TypeFund {
		t.Status = StatusWaitBroadcast
	} else {
		t.Status = StatusPending
	}
	t.UpdatedAt = now
	return true
}

// NewTradeID mints a fresh trade identifier for callers that do not carry
// their own upstream ids.
func NewTradeID() string { return uuid.NewString() }
