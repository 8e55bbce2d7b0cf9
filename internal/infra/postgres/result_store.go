package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/uptrace/bun"

	"timed-quiz-service/internal/domain"
)

// attemptRow is the bun model for one persisted attempt. Question data is
// denormalized into a JSONB column so rows survive bank changes.
type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	ID         int64     `bun:"id,pk,autoincrement"`
	Usuario    string    `bun:"usuario,notnull"`
	Fecha      time.Time `bun:"fecha,notnull"`
	Puntaje    int       `bun:"puntaje,notnull"`
	TiempoUsed string    `bun:"tiempo_usado,notnull"`
	Nivel      string    `bun:"nivel,notnull"`
	Respuestas []byte    `bun:"respuestas,type:jsonb"`
}

// ResultStore appends attempts to Postgres via bun. Insert order is preserved
// by the serial primary key.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Append(ctx context.Context, record domain.AttemptRecord) error {
	answers, err := json.Marshal(record.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	row := &attemptRow{
		Usuario:    record.User,
		Fecha:      record.Timestamp,
		Puntaje:    record.Score,
		TiempoUsed: record.TimeUsed,
		Nivel:      string(record.Tier),
		Respuestas: answers,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *ResultStore) QueryAll(ctx context.Context) ([]domain.AttemptRecord, error) {
	var rows []attemptRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select attempts: %w", err)
	}
	return toRecords(rows), nil
}

func (s *ResultStore) QueryByUser(ctx context.Context, user string) ([]domain.AttemptRecord, error) {
	var rows []attemptRow
	err := s.db.NewSelect().Model(&rows).Where("usuario = ?", user).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select attempts by user: %w", err)
	}
	return toRecords(rows), nil
}

func toRecords(rows []attemptRow) []domain.AttemptRecord {
	records := make([]domain.AttemptRecord, 0, len(rows))
	for _, row := range rows {
		record := domain.AttemptRecord{
			User:      row.Usuario,
			Timestamp: row.Fecha,
			Score:     row.Puntaje,
			TimeUsed:  row.TiempoUsed,
			Tier:      domain.Tier(row.Nivel),
		}
		if len(row.Respuestas) > 0 {
			if err := json.Unmarshal(row.Respuestas, &record.Answers); err != nil {
				// malformed row: skip, keep the rest readable
				log.Printf("skipping attempt %d: bad answers payload: %v", row.ID, err)
				continue
			}
		}
		records = append(records, record)
	}
	return records
}
