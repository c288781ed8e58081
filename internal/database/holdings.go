package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

var (
	// ErrHoldingNotFound is returned when no owned stock has the requested id
	ErrHoldingNotFound = errors.New("holding not found")
	// ErrMalformedHolding marks a stored row whose figures cannot be parsed
	ErrMalformedHolding = errors.New("malformed holding")
)

const holdingColumns = `
		SELECT os.id, s.symbol, s.name, os.quantity, os.total_value,
		       s.current_price, s.updated_at
		FROM owned_stocks os
		JOIN stocks s ON s.id = os.stock_id
		JOIN user_profiles u ON u.id = os.user_profile_id
`

// GetHoldingsForUser loads every owned stock of username, ordered by symbol.
// The invested amount is the stored total value of the purchase lots.
func (db *DB) GetHoldingsForUser(ctx context.Context, username string) ([]*models.Holding, error) {
	query := holdingColumns + `
		WHERE u.username = $1
		ORDER BY s.symbol, os.id
	`
	rows, err := db.conn.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if errors.Is(err, ErrMalformedHolding) {
			log.Warn().Err(err).Str("username", username).Msg("Skipping malformed holding")
			continue
		}
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	return holdings, nil
}

// GetHoldingByID loads one owned stock of username
func (db *DB) GetHoldingByID(ctx context.Context, username, id string) (*models.Holding, error) {
	query := holdingColumns + `
		WHERE u.username = $1 AND os.id = $2
	`
	ownedID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrHoldingNotFound, id)
	}

	h, err := scanHolding(db.conn.QueryRowContext(ctx, query, username, ownedID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrHoldingNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (*models.Holding, error) {
	var h models.Holding
	var id int64
	var name, currentPrice sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(&id, &h.Symbol, &name, &h.Quantity, &h.InvestedAmount, &currentPrice, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}

	h.ID = strconv.FormatInt(id, 10)
	if name.Valid {
		h.Name = name.String
	}
	if currentPrice.Valid {
		price, err := decimal.NewFromString(currentPrice.String)
		if err != nil {
			return nil, fmt.Errorf("%w: id %s: current price %q", ErrMalformedHolding, h.ID, currentPrice.String)
		}
		h.CurrentPrice = price
	}
	if updatedAt.Valid {
		h.UpdatedAt = updatedAt.Time
	}
	h.Trend = models.TrendUnchanged
	return &h, nil
}
