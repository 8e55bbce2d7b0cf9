package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"timed-quiz-service/internal/domain"
)

// BankLoader loads the question bank JSONB from Postgres.
type BankLoader struct {
	pool   *pgxpool.Pool
	bankID string
}

func NewBankLoader(pool *pgxpool.Pool, bankID string) *BankLoader {
	return &BankLoader{pool: pool, bankID: bankID}
}

func (l *BankLoader) LoadBank(ctx context.Context) (domain.Bank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE id=$1`, l.bankID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: bank %q", domain.ErrBankNotFound, l.bankID)
	}
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	var bank domain.Bank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBankFormat, err)
	}
	if err := domain.ValidateBank(bank); err != nil {
		return nil, err
	}
	return bank, nil
}
