package database

import (
	"context"
	"database/sql"
	"errors"

	"plazadatos/internal/models"
)

const prizeColumns = `p.id_premio, p.nombre, p.descripcion, p.imagen_url, p.costo_puntos, p.stock_disponible, p.stock_original,
	p.tipo, p.categoria, p.estado, p.activo, p.requiere_aprobacion, p.instrucciones_canje, p.terminos_condiciones,
	p.fecha_creacion, p.fecha_actualizacion,
	(SELECT COUNT(*) FROM canjes c WHERE c.id_premio = p.id_premio) AS total_canjes`

func (r *Repo) ListPrizes(ctx context.Context, onlyActive bool) ([]models.Prize, error) {
	res := []models.Prize{}
	err := r.db.SelectContext(ctx, &res, `SELECT `+prizeColumns+` FROM premios p WHERE ($1 = FALSE OR p.activo = TRUE) ORDER BY p.costo_puntos, p.id_premio`, onlyActive)
	return res, err
}

func (r *Repo) GetPrize(ctx context.Context, id int) (models.Prize, error) {
	var p models.Prize
	err := r.db.GetContext(ctx, &p, `SELECT `+prizeColumns+` FROM premios p WHERE p.id_premio = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (r *Repo) CreatePrize(ctx context.Context, p models.Prize) (int, error) {
	if p.Status == "" {
		p.Status = models.PrizeAvailable
	}
	if p.Stock != nil && *p.Stock == 0 {
		p.Status = models.PrizeSoldOut
	}
	var id int
	q := `INSERT INTO premios (nombre, descripcion, imagen_url, costo_puntos, stock_disponible, stock_original, tipo, categoria, estado, activo, requiere_aprobacion, instrucciones_canje, terminos_condiciones)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8, TRUE, $9, $10, $11) RETURNING id_premio`
	err := r.db.QueryRowContext(ctx, q, p.Name, p.Description, p.ImageURL, p.Cost, p.Stock, p.Type, p.Category, p.Status, p.NeedsApproval, p.Instructions, p.Terms).Scan(&id)
	return id, err
}

// UpdatePrize applies the non-nil fields of p. Restocking a sold-out prize makes it available again.
func (r *Repo) UpdatePrize(ctx context.Context, id int, p PrizePatch) (models.Prize, error) {
	q := `UPDATE premios SET
			nombre = COALESCE($2, nombre),
			descripcion = COALESCE($3, descripcion),
			imagen_url = COALESCE($4, imagen_url),
			costo_puntos = COALESCE($5, costo_puntos),
			stock_disponible = COALESCE($6, stock_disponible),
			stock_original = CASE WHEN $6::int IS NOT NULL AND (stock_original IS NULL OR $6::int > stock_original) THEN $6::int ELSE stock_original END,
			tipo = COALESCE($7, tipo),
			categoria = COALESCE($8, categoria),
			requiere_aprobacion = COALESCE($9, requiere_aprobacion),
			instrucciones_canje = COALESCE($10, instrucciones_canje),
			terminos_condiciones = COALESCE($11, terminos_condiciones),
			estado = CASE
				WHEN $6::int = 0 AND estado = 'disponible' THEN 'agotado'
				WHEN $6::int > 0 AND estado = 'agotado' THEN 'disponible'
				ELSE estado END,
			fecha_actualizacion = now()
		WHERE id_premio = $1`
	res, err := r.db.ExecContext(ctx, q, id, p.Name, p.Description, p.ImageURL, p.Cost, p.Stock, p.Type, p.Category, p.NeedsApproval, p.Instructions, p.Terms)
	if err != nil {
		return models.Prize{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Prize{}, ErrNotFound
	}
	return r.GetPrize(ctx, id)
}

func (r *Repo) SetPrizeStatus(ctx context.Context, id int, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE premios SET estado = $2, fecha_actualizacion = now() WHERE id_premio = $1`, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePrize hides the prize; existing redemptions keep referencing it.
func (r *Repo) DeletePrize(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE premios SET activo = FALSE, fecha_actualizacion = now() WHERE id_premio = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
