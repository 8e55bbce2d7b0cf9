package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS question_banks (
					id   TEXT PRIMARY KEY,
					data JSONB NOT NULL
				)`); err != nil {
				return err
			}
			_, err := db.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS attempts (
					id           BIGSERIAL PRIMARY KEY,
					usuario      TEXT NOT NULL,
					fecha        TIMESTAMPTZ NOT NULL,
					puntaje      INTEGER NOT NULL,
					tiempo_usado TEXT NOT NULL,
					nivel        TEXT NOT NULL,
					respuestas   JSONB
				)`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS attempts`); err != nil {
				return err
			}
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS question_banks`)
			return err
		},
	)
}
