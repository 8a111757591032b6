package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/infrastructure/persistence/sqlite"
)

// ErrNoRates is returned when the rate tables carry no usable rows.
var ErrNoRates = errors.New("postal rate table is empty")

// PostalRateRepository implements port.PostalRateRepository. The table is
// seeded by migration and read-only at runtime.
type PostalRateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostalRateRepository creates a new postal rate repository
func NewPostalRateRepository(db *sql.DB, logger *zap.Logger) port.PostalRateRepository {
	return &PostalRateRepository{
		db:     db,
		logger: logger,
	}
}

// Get loads the full rate table
func (r *PostalRateRepository) Get(ctx context.Context) (*entity.PostalRateTable, error) {
	table := &entity.PostalRateTable{}

	query := `SELECT postal_max_weight, postal_fee FROM postal_settings WHERE id = 1`
	err := r.getExecutor(ctx).QueryRowContext(ctx, query).Scan(&table.PostalMaxWeight, &table.PostalFee)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoRates
		}
		r.logger.Error("Failed to load postal settings", zap.Error(err))
		return nil, fmt.Errorf("load postal settings: %w", err)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx,
		`SELECT certificate_id, fee, weight FROM certificate_rates ORDER BY certificate_id`)
	if err != nil {
		r.logger.Error("Failed to load certificate rates", zap.Error(err))
		return nil, fmt.Errorf("load certificate rates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rate entity.CertificateRate
		if err := rows.Scan(&rate.CertificateID, &rate.Fee, &rate.Weight); err != nil {
			return nil, fmt.Errorf("scan certificate rate: %w", err)
		}
		table.CertificateRates = append(table.CertificateRates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(table.CertificateRates) == 0 {
		return nil, ErrNoRates
	}
	return table, nil
}

func (r *PostalRateRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}
