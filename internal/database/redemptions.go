package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"plazadatos/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const redemptionColumns = `c.id_canje, c.id_usuario, c.id_premio, c.puntos_utilizados, c.estado, c.fecha_solicitud,
	c.fecha_aprobacion, c.fecha_entrega, c.direccion_entrega, c.telefono_contacto, c.observaciones_usuario,
	c.observaciones_admin, c.id_admin_aprobador, c.codigo_seguimiento, c.requiere_recogida, c.idempotency_key,
	p.nombre AS premio_nombre, (u.nombre || ' ' || u.apellido) AS usuario_nombre`

const redemptionFrom = ` FROM canjes c JOIN premios p ON p.id_premio = c.id_premio JOIN usuarios u ON u.id_usuario = c.id_usuario`

func trackingCode() string {
	return "PLZ-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func getRedemption(ctx context.Context, q sqlx.QueryerContext, where string, args ...interface{}) (models.Redemption, error) {
	var c models.Redemption
	err := sqlx.GetContext(ctx, q, &c, `SELECT `+redemptionColumns+redemptionFrom+` WHERE `+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func (r *Repo) GetRedemption(ctx context.Context, id int) (models.Redemption, error) {
	return getRedemption(ctx, r.db, "c.id_canje = $1", id)
}

const byIdempotencyKey = "c.idempotency_key = $1 AND c.id_usuario = $2"

// Redeem exchanges the user's available points for one unit of the prize.
// A key the same user already sent returns the original redemption with created=false.
func (r *Repo) Redeem(ctx context.Context, userID int, req RedeemRequest, idempotencyKey string) (models.Redemption, bool, error) {
	if idempotencyKey != "" {
		existing, err := getRedemption(ctx, r.db, byIdempotencyKey, idempotencyKey, userID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.Redemption{}, false, err
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Redemption{}, false, err
	}
	defer tx.Rollback()

	var available int
	if err := tx.GetContext(ctx, &available, `SELECT puntos_disponibles FROM usuarios WHERE id_usuario = $1 FOR UPDATE`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Redemption{}, false, ErrNotFound
		}
		return models.Redemption{}, false, err
	}
	var prize models.Prize
	if err := tx.GetContext(ctx, &prize, `SELECT id_premio, nombre, costo_puntos, stock_disponible, estado, activo, requiere_aprobacion, tipo FROM premios WHERE id_premio = $1 FOR UPDATE`, req.PrizeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Redemption{}, false, ErrNotFound
		}
		return models.Redemption{}, false, err
	}
	if !prize.Active || prize.Status != models.PrizeAvailable {
		if prize.Status == models.PrizeSoldOut {
			return models.Redemption{}, false, ErrOutOfStock
		}
		return models.Redemption{}, false, ErrPrizeUnavailable
	}
	if prize.Stock != nil && *prize.Stock <= 0 {
		return models.Redemption{}, false, ErrOutOfStock
	}
	if available < prize.Cost {
		return models.Redemption{}, false, &InsufficientPointsError{Need: prize.Cost, Have: available}
	}

	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}
	var id int
	q := `INSERT INTO canjes (id_usuario, id_premio, puntos_utilizados, estado, direccion_entrega, telefono_contacto, observaciones_usuario, codigo_seguimiento, requiere_recogida, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id_canje`
	err = tx.QueryRowContext(ctx, q, userID, prize.ID, prize.Cost, models.RedemptionRequested, req.Address, req.Phone, req.Notes, trackingCode(), prize.Type == models.PrizePhysical, key).Scan(&id)
	if err != nil {
		if _, ok := uniqueViolation(err); ok && key != nil {
			tx.Rollback()
			existing, gerr := getRedemption(ctx, r.db, byIdempotencyKey, idempotencyKey, userID)
			if gerr == nil {
				return existing, false, nil
			}
		}
		return models.Redemption{}, false, err
	}

	if prize.Stock != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE premios SET stock_disponible = stock_disponible - 1,
				estado = CASE WHEN stock_disponible - 1 <= 0 THEN 'agotado' ELSE estado END,
				fecha_actualizacion = now()
			WHERE id_premio = $1`, prize.ID); err != nil {
			return models.Redemption{}, false, err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE usuarios SET puntos_disponibles = puntos_disponibles - $1, puntos_canjeados = puntos_canjeados + $1 WHERE id_usuario = $2`, prize.Cost, userID); err != nil {
		return models.Redemption{}, false, err
	}
	if err := addLedger(ctx, tx, userID, models.LedgerRedemption, -prize.Cost, &id, prize.Name); err != nil {
		return models.Redemption{}, false, err
	}

	c, err := getRedemption(ctx, tx, "c.id_canje = $1", id)
	if err != nil {
		return models.Redemption{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return models.Redemption{}, false, err
	}
	r.log.Infof("user %d redeemed prize %d for %d points (canje %d)", userID, prize.ID, prize.Cost, id)
	return c, true, nil
}

func (r *Repo) ListUserRedemptions(ctx context.Context, userID int) ([]models.Redemption, error) {
	res := []models.Redemption{}
	err := r.db.SelectContext(ctx, &res, `SELECT `+redemptionColumns+redemptionFrom+` WHERE c.id_usuario = $1 ORDER BY c.fecha_solicitud DESC`, userID)
	return res, err
}

// ListRedemptions returns every redemption, optionally restricted to one status.
func (r *Repo) ListRedemptions(ctx context.Context, status string) ([]models.Redemption, error) {
	res := []models.Redemption{}
	err := r.db.SelectContext(ctx, &res, `SELECT `+redemptionColumns+redemptionFrom+` WHERE ($1::text = '' OR c.estado = $1::text) ORDER BY c.fecha_solicitud DESC`, status)
	return res, err
}

// UpdateRedemptionStatus moves a redemption along its lifecycle. Rejected and
// cancelled redemptions give the points and the stock unit back.
func (r *Repo) UpdateRedemptionStatus(ctx context.Context, id int, to string, adminID int, notes *string) (models.Redemption, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Redemption{}, err
	}
	defer tx.Rollback()

	var cur struct {
		Status  string `db:"estado"`
		UserID  int    `db:"id_usuario"`
		PrizeID int    `db:"id_premio"`
		Points  int    `db:"puntos_utilizados"`
	}
	if err := tx.GetContext(ctx, &cur, `SELECT estado, id_usuario, id_premio, puntos_utilizados FROM canjes WHERE id_canje = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Redemption{}, ErrNotFound
		}
		return models.Redemption{}, err
	}
	if !models.CanTransition(cur.Status, to) {
		return models.Redemption{}, ErrInvalidTransition
	}

	q := `UPDATE canjes SET estado = $2,
			observaciones_admin = COALESCE($3, observaciones_admin),
			id_admin_aprobador = $4,
			fecha_aprobacion = CASE WHEN $5 THEN now() ELSE fecha_aprobacion END,
			fecha_entrega = CASE WHEN $6 THEN now() ELSE fecha_entrega END
		WHERE id_canje = $1`
	if _, err := tx.ExecContext(ctx, q, id, to, notes, adminID, to == models.RedemptionApproved, to == models.RedemptionDelivered); err != nil {
		return models.Redemption{}, err
	}

	if models.Refunds(to) {
		if _, err := tx.ExecContext(ctx, `UPDATE usuarios SET puntos_disponibles = puntos_disponibles + $1, puntos_canjeados = puntos_canjeados - $1 WHERE id_usuario = $2`, cur.Points, cur.UserID); err != nil {
			return models.Redemption{}, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE premios SET stock_disponible = stock_disponible + 1,
				estado = CASE WHEN estado = 'agotado' THEN 'disponible' ELSE estado END,
				fecha_actualizacion = now()
			WHERE id_premio = $1 AND stock_disponible IS NOT NULL`, cur.PrizeID); err != nil {
			return models.Redemption{}, err
		}
		if err := addLedger(ctx, tx, cur.UserID, models.LedgerRedemptionBack, cur.Points, &id, "Devolución por canje "+to); err != nil {
			return models.Redemption{}, err
		}
	}

	c, err := getRedemption(ctx, tx, "c.id_canje = $1", id)
	if err != nil {
		return models.Redemption{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Redemption{}, err
	}
	r.log.Infof("redemption %d moved %s -> %s by admin %d", id, cur.Status, to, adminID)
	return c, nil
}
