package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"plazadatos/internal/models"
)

// ActiveSettings returns the active configuration, storing the defaults on first use.
func (r *Repo) ActiveSettings(ctx context.Context) (models.Settings, error) {
	var raw []byte
	err := r.db.GetContext(ctx, &raw, `SELECT datos FROM configuraciones WHERE activa = TRUE ORDER BY id_configuracion DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		def := models.DefaultSettings()
		if err := r.SaveSettings(ctx, def); err != nil {
			return def, err
		}
		return def, nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	s := models.DefaultSettings()
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// SaveSettings deactivates the current configuration and stores s as the active one.
func (r *Repo) SaveSettings(ctx context.Context, s models.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE configuraciones SET activa = FALSE WHERE activa = TRUE`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO configuraciones (datos, activa) VALUES ($1::jsonb, TRUE)`, string(raw)); err != nil {
		return err
	}
	return tx.Commit()
}
