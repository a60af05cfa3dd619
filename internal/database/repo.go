package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"plazadatos/migrations"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateDocument   = errors.New("document already registered")
	ErrAlreadyParticipated = errors.New("survey already answered")
	ErrSurveyClosed        = errors.New("survey is not accepting answers")
	ErrSurveyHasResponses  = errors.New("survey already has responses")
	ErrInvalidAnswer       = errors.New("invalid answer")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrPrizeUnavailable    = errors.New("prize unavailable")
	ErrOutOfStock          = errors.New("prize out of stock")
	ErrInvalidTransition   = errors.New("invalid redemption transition")
	ErrProfileComplete     = errors.New("profile already complete")
)

// InsufficientPointsError carries the balance that blocked a redemption.
type InsufficientPointsError struct {
	Need int
	Have int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: need %d, have %d", e.Need, e.Have)
}

func (e *InsufficientPointsError) Is(target error) bool { return target == ErrInsufficientPoints }

// AnswerError explains why a submitted answer set was rejected.
type AnswerError struct {
	Msg string
}

func (e *AnswerError) Error() string { return e.Msg }

func (e *AnswerError) Is(target error) bool { return target == ErrInvalidAnswer }

type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log}
}

// Connect opens a pooled postgres handle and verifies it answers.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// EnsureSchema applies the embedded migrations in name order.
// Every statement is idempotent so this runs on each start.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	names, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := migrations.FS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		r.log.Debugf("applied migration %s", name)
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func uniqueViolation(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr, true
	}
	return nil, false
}

func addLedger(ctx context.Context, tx *sqlx.Tx, userID int, kind string, points int, ref *int, desc string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO movimientos_puntos (id_usuario, tipo, puntos, referencia, descripcion) VALUES ($1, $2, $3, $4, $5)`, userID, kind, points, ref, desc)
	return err
}

func creditPoints(ctx context.Context, tx *sqlx.Tx, userID, points int) (int, error) {
	var total int
	err := tx.QueryRowContext(ctx, `UPDATE usuarios SET puntos_totales = puntos_totales + $1, puntos_disponibles = puntos_disponibles + $1 WHERE id_usuario = $2 RETURNING puntos_totales`, points, userID).Scan(&total)
	return total, err
}
