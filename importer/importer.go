// Package importer bulk-loads trade history from the legacy relational wallet
// database into the ledger. Rows flow through the ledger's import surface one
// by one: a bad row is rejected and logged, but an unrecognized transfer type
// aborts the whole run.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"walletd/ledger"
)

// TransferRow mirrors the legacy t_ln_transfer table.
type TransferRow struct {
	ID              uint64  `gorm:"column:id;primaryKey"`
	TransferID      string  `gorm:"column:transfer_id"`
	FromAddress     string  `gorm:"column:from_address"`
	ToAddress       string  `gorm:"column:to_address"`
	TransferAssetID string  `gorm:"column:transfer_asset_id"`
	TransferAmount  uint64  `gorm:"column:transfer_amount"`
	TransferHash    *string `gorm:"column:transfer_hash"`
	TransferStatus  string  `gorm:"column:transfer_status"`
	TransferType    string  `gorm:"column:transfer_type"`
	CreatedAt       string  `gorm:"column:created_at"`
	UpdatedAt       string  `gorm:"column:updated_at"`
}

// TableName pins the legacy table name.
func (TransferRow) TableName() string { return "t_ln_transfer" }

// AirDropRow mirrors the legacy historical grant table. Each row fans out into
// two grants: the principal drop and its gas drop, on separate assets.
type AirDropRow struct {
	ID            uint64 `gorm:"column:id;primaryKey"`
	Address       string `gorm:"column:address"`
	DropNumber    uint64 `gorm:"column:had_drop_number"`
	DropGasNumber uint64 `gorm:"column:had_drop_gas_number"`
}

// TableName pins the legacy table name.
func (AirDropRow) TableName() string { return "t_air_drop" }

// Stats summarises one import run.
type Stats struct {
	Imported int
	Skipped  int
	Rejected int
}

// Importer reads legacy rows and feeds them through the ledger's import
// surface.
type Importer struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	log    *slog.Logger
}

// Open dials the legacy database.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// New builds an importer over an open connection.
func New(db *gorm.DB, l *ledger.Ledger, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: db, ledger: l, log: logger}
}

// mapRow translates one legacy transfer row into an import record. Fund rows
// carry the receiving wallet in from_address, so sender and receiver swap.
func mapRow(row TransferRow) ledger.ImportRecord {
	rec := ledger.ImportRecord{
		TradeID:   row.TransferID,
		Asset:     row.TransferAssetID,
		Type:      row.TransferType,
		Status:    row.TransferStatus,
		Amount:    row.TransferAmount,
		From:      row.FromAddress,
		To:        row.ToAddress,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.TransferHash != nil {
		rec.Hash = *row.TransferHash
	}
	if row.TransferType == "Fund" {
		rec.From, rec.To = rec.To, rec.From
	}
	return rec
}

// Run imports transfer rows created in [since, until). It returns the stats
// accumulated so far alongside any fatal error.
func (im *Importer) Run(ctx context.Context, since, until string) (Stats, error) {
	var stats Stats
	var rows []TransferRow
	tx := im.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", since, until).
		Order("id").
		Find(&rows)
	if tx.Error != nil {
		return stats, fmt.Errorf("importer: query transfers: %w", tx.Error)
	}
	im.log.Info("transfer rows fetched", slog.Int("count", len(rows)))
	for _, row := range rows {
		ok, err := im.ledger.ImportTrade(mapRow(row))
		switch {
		case errors.Is(err, ledger.ErrUnknownType):
			// Bad source data on a financial record: fail the run fast.
			return stats, fmt.Errorf("importer: row %d: %w", row.ID, err)
		case err != nil:
			stats.Rejected++
			im.log.Warn("transfer row rejected", slog.Uint64("row", row.ID), slog.Any("error", err))
		case ok:
			stats.Imported++
		default:
			stats.Skipped++
		}
	}
	return stats, nil
}

// RunAirDrops imports the historical grant table, crediting each address's
// principal and gas drops onto the given assets.
func (im *Importer) RunAirDrops(ctx context.Context, principal, gas ledger.AssetID) (Stats, error) {
	var stats Stats
	principalName := im.ledger.Registry().Name(principal)
	gasName := im.ledger.Registry().Name(gas)
	if principalName == "" || gasName == "" {
		return stats, fmt.Errorf("importer: %w: air-drop assets %d/%d", ledger.ErrUnknownAsset, principal, gas)
	}
	var rows []AirDropRow
	tx := im.db.WithContext(ctx).Order("id").Find(&rows)
	if tx.Error != nil {
		return stats, fmt.Errorf("importer: query air drops: %w", tx.Error)
	}
	im.log.Info("air-drop rows fetched", slog.Int("count", len(rows)))
	for _, row := range rows {
		grants := []struct {
			asset  ledger.AssetID
			id     string
			amount uint64
		}{
			{principal, fmt.Sprintf("air_drop_%s-%d", principalName, row.ID), row.DropNumber},
			{gas, fmt.Sprintf("air_drop_%s-%d", gasName, row.ID), row.DropGasNumber},
		}
		for _, grant := range grants {
			ok, err := im.ledger.ImportAirDrop(grant.asset, grant.id, row.Address, grant.amount)
			switch {
			case err != nil:
				stats.Rejected++
				im.log.Warn("air-drop rejected", slog.Uint64("row", row.ID), slog.Any("error", err))
			case ok:
				stats.Imported++
			default:
				stats.Skipped++
			}
		}
	}
	return stats, nil
}
