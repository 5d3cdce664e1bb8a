package ledger

// Balance is one asset's (available, locked) pair. Both stay non-negative for
// every account at all times; every mutator below either applies completely or
// leaves the account unchanged.
type Balance struct {
	Available uint64
	Locked    uint64
}

// TradeRef records an account's participation in a trade, as sender or
// receiver, in first-seen order.
type TradeRef struct {
	Asset   AssetID
	TradeID string
}

// Account holds per-asset balances and the trades the account has taken part
// in. Accounts are created lazily on first reference and never deleted.
type Account struct {
	Amounts [AssetCount]Balance
	Trades  []TradeRef
}

// required sums the principal and gas amounts per asset pool. Gas sharing the
// principal's pool is checked jointly with it, never independently.
func required(asset AssetID, t *Trade) ([AssetCount]uint64, bool) {
	var need [AssetCount]uint64
	if int(asset) >= AssetCount {
		return need, false
	}
	need[asset] += t.Amount
	for _, g := range t.Gas {
		if int(g.Asset) >= AssetCount {
			return need, false
		}
		need[g.Asset] += g.Amount
	}
	return need, true
}

// Lock reserves the trade's principal plus all gas amounts, each against its
// own asset pool. All-or-nothing: if any pool is short, nothing moves.
func (a *Account) Lock(asset AssetID, t *Trade) bool {
	need, ok := required(asset, t)
	if !ok {
		return false
	}
	for i, n := range need {
		if n > a.Amounts[i].Available {
			return false
		}
	}
	for i, n := range need {
		a.Amounts[i].Available -= n
		a.Amounts[i].Locked += n
	}
	return true
}

// Confirm releases the locked principal and gas without crediting anyone: the
// sender-side half of a successful settlement.
func (a *Account) Confirm(asset AssetID, t *Trade) bool {
	need, ok := required(asset, t)
	if !ok {
		return false
	}
	for i, n := range need {
		if n > a.Amounts[i].Locked {
			return false
		}
	}
	for i, n := range need {
		a.Amounts[i].Locked -= n
	}
	return true
}

// Rollback is the inverse of Lock: the reserved amounts return to available.
func (a *Account) Rollback(asset AssetID, t *Trade) bool {
	need, ok := required(asset, t)
	if !ok {
		return false
	}
	for i, n := range need {
		if n > a.Amounts[i].Locked {
			return false
		}
	}
	for i, n := range need {
		a.Amounts[i].Locked -= n
		a.Amounts[i].Available += n
	}
	return true
}

// Income adds to available unconditionally: deposit credit and receiver or
// gas-recipient credit.
func (a *Account) Income(asset AssetID, amount uint64) bool {
	if int(asset) >= AssetCount {
		return false
	}
	a.Amounts[asset].Available += amount
	return true
}

// Decrease subtracts the trade's principal and gas from available without
// touching locked. Replay only: it applies an already-terminal historical
// trade to an account that was never locked in this process's lifetime. A
// would-be underflow refuses without changing anything.
func (a *Account) Decrease(asset AssetID, t *Trade) bool {
	need, ok := required(asset, t)
	if !ok {
		return false
	}
	for i, n := range need {
		if n > a.Amounts[i].Available {
			return false
		}
	}
	for i, n := range need {
		a.Amounts[i].Available -= n
	}
	return true
}

// clone deep-copies the account for read-only callers.
func (a *Account) clone() Account {
	out := Account{Amounts: a.Amounts}
	if a.Trades != nil {
		out.Trades = append([]TradeRef(nil), a.Trades...)
	}
	return out
}
