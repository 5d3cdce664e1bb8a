package ledger

import "errors"

var (
	// ErrTradeExists rejects creation when the trade id is already present for
	// the asset. Nothing is written.
	ErrTradeExists = errors.New("ledger: trade already exists")
	// ErrInsufficientFunds rejects creation when the sender cannot cover the
	// principal plus gas. No trade is persisted.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrUnknownAsset flags an asset index or name outside the registry.
	ErrUnknownAsset = errors.New("ledger: unknown asset")
	// ErrUnknownType flags an import row whose transfer type has no live
	// lifecycle. Importers must treat it as fatal for the run.
	ErrUnknownType = errors.New("ledger: unknown transfer type")
	// ErrUnknownStatus flags an import row with an unmapped status name.
	ErrUnknownStatus = errors.New("ledger: unknown transfer status")
	// ErrBadTimestamp flags an import row with an unparseable timestamp.
	ErrBadTimestamp = errors.New("ledger: malformed timestamp")
)
