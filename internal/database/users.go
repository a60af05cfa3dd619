package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"plazadatos/internal/models"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id_usuario, nombre, apellido, documento_numero, celular_numero, email, metodo_registro, estado, rol_id,
	fecha_registro, google_id, avatar_url, proveedor_auth, puntos_totales, puntos_disponibles, puntos_canjeados,
	fecha_nacimiento, sexo, localizacion, fecha_perfil_completo`

type userRow struct {
	models.User
	Hash sql.NullString `db:"password_hash"`
}

// GoogleProfile is the identity asserted by a verified Google credential.
type GoogleProfile struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
	Picture   string
}

func mapUserConflict(err error) error {
	pqErr, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	if strings.Contains(pqErr.Constraint, "documento") {
		return ErrDuplicateDocument
	}
	return ErrDuplicateEmail
}

// CreateUser inserts a local account and credits the registration bonus.
func (r *Repo) CreateUser(ctx context.Context, u models.User, hash string, bonus int) (int, error) {
	if u.RoleID == 0 {
		u.RoleID = models.RoleGeneral
	}
	if u.RegistrationKind == "" {
		u.RegistrationKind = "local"
	}
	if u.AuthProvider == "" {
		u.AuthProvider = u.RegistrationKind
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int
	q := `INSERT INTO usuarios (nombre, apellido, documento_numero, celular_numero, email, password_hash, metodo_registro, rol_id, google_id, avatar_url, proveedor_auth)
		VALUES ($1, $2, $3, $4, lower($5), NULLIF($6, ''), $7, $8, $9, $10, $11) RETURNING id_usuario`
	if err := tx.QueryRowContext(ctx, q, u.FirstName, u.LastName, u.Document, u.Phone, u.Email, hash, u.RegistrationKind, u.RoleID, u.GoogleID, u.AvatarURL, u.AuthProvider).Scan(&id); err != nil {
		return 0, mapUserConflict(err)
	}
	if bonus > 0 {
		if _, err := creditPoints(ctx, tx, id, bonus); err != nil {
			return 0, err
		}
		if err := addLedger(ctx, tx, id, models.LedgerRegistration, bonus, nil, "Puntos de bienvenida"); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repo) getUser(ctx context.Context, where string, arg interface{}) (userRow, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+`, password_hash FROM usuarios WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return row, ErrNotFound
	}
	return row, err
}

func (r *Repo) GetUserByID(ctx context.Context, id int) (models.User, error) {
	row, err := r.getUser(ctx, "id_usuario = $1", id)
	return row.User, err
}

// GetUserByEmail also returns the password hash, empty for Google-only accounts.
func (r *Repo) GetUserByEmail(ctx context.Context, email string) (models.User, string, error) {
	row, err := r.getUser(ctx, "email = lower($1)", strings.TrimSpace(email))
	return row.User, row.Hash.String, err
}

func (r *Repo) GetUserByGoogleID(ctx context.Context, googleID string) (models.User, error) {
	row, err := r.getUser(ctx, "google_id = $1", googleID)
	return row.User, err
}

// UpsertGoogleUser returns the account linked to p, linking by email or creating one.
func (r *Repo) UpsertGoogleUser(ctx context.Context, p GoogleProfile, bonus int) (models.User, bool, error) {
	if u, err := r.GetUserByGoogleID(ctx, p.Subject); err == nil {
		return u, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, false, err
	}

	avatar := nullable(p.Picture)
	res, err := r.db.ExecContext(ctx, `UPDATE usuarios SET google_id = $1, avatar_url = COALESCE(avatar_url, $2), proveedor_auth = 'google' WHERE email = lower($3) AND google_id IS NULL`, p.Subject, avatar, p.Email)
	if err != nil {
		return models.User{}, false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		u, err := r.GetUserByGoogleID(ctx, p.Subject)
		return u, false, err
	}

	sub := p.Subject
	u := models.User{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Document:         truncate("GOOGLE-"+sub, 50),
		Email:            p.Email,
		RegistrationKind: "google",
		AuthProvider:     "google",
		RoleID:           models.RoleGeneral,
		GoogleID:         &sub,
		AvatarURL:        avatar,
	}
	id, err := r.CreateUser(ctx, u, "", bonus)
	if err != nil {
		return models.User{}, false, err
	}
	created, err := r.GetUserByID(ctx, id)
	return created, true, err
}

func (r *Repo) UpdateUserContact(ctx context.Context, id int, p UserPatch) (models.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE usuarios SET nombre = COALESCE($2, nombre), apellido = COALESCE($3, apellido), celular_numero = COALESCE($4, celular_numero) WHERE id_usuario = $1`, id, p.FirstName, p.LastName, p.Phone)
	if err != nil {
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}

func (r *Repo) UpdatePassword(ctx context.Context, id int, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE usuarios SET password_hash = $2 WHERE id_usuario = $1`, id, hash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile rewrites the demographic fields without awarding points.
func (r *Repo) UpdateProfile(ctx context.Context, id int, f ProfileFields) (models.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE usuarios SET fecha_nacimiento = $2, sexo = $3, localizacion = $4 WHERE id_usuario = $1`, id, f.BirthDate, strings.TrimSpace(f.Sex), strings.TrimSpace(f.Location))
	if err != nil {
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}

// CompleteProfile stores the demographic fields and, the first time only,
// credits points and records a participation in the profile survey.
func (r *Repo) CompleteProfile(ctx context.Context, userID int, f ProfileFields, points int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var u models.User
	if err := tx.GetContext(ctx, &u, `SELECT `+userColumns+` FROM usuarios WHERE id_usuario = $1 FOR UPDATE`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if len(u.ProfileMissing()) == 0 {
		return 0, ErrProfileComplete
	}
	firstTime := u.ProfileDoneAt == nil

	if _, err := tx.ExecContext(ctx, `UPDATE usuarios SET fecha_nacimiento = $2, sexo = $3, localizacion = $4, fecha_perfil_completo = COALESCE(fecha_perfil_completo, now()) WHERE id_usuario = $1`, userID, f.BirthDate, strings.TrimSpace(f.Sex), strings.TrimSpace(f.Location)); err != nil {
		return 0, err
	}
	if !firstTime || points <= 0 {
		return 0, tx.Commit()
	}

	surveyID, err := profileSurveyID(ctx, tx, points)
	if err != nil {
		return 0, err
	}
	var participationID int
	err = tx.QueryRowContext(ctx, `INSERT INTO participaciones (id_usuario, id_encuesta, puntaje_obtenido) VALUES ($1, $2, $3)
		ON CONFLICT (id_usuario, id_encuesta) DO NOTHING RETURNING id_participacion`, userID, surveyID, points).Scan(&participationID)
	if errors.Is(err, sql.ErrNoRows) {
		// profile points were paid before; keep the fields, skip the credit
		return 0, tx.Commit()
	}
	if err != nil {
		return 0, err
	}
	if _, err := creditPoints(ctx, tx, userID, points); err != nil {
		return 0, err
	}
	if err := addLedger(ctx, tx, userID, models.LedgerProfile, points, &participationID, "Perfil completado"); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	r.log.Infof("user %d completed profile, credited %d points", userID, points)
	return points, nil
}

// profileSurveyID finds or creates the hidden survey that anchors profile participations.
func profileSurveyID(ctx context.Context, tx *sqlx.Tx, points int) (int, error) {
	var id int
	err := tx.GetContext(ctx, &id, `SELECT id_encuesta FROM encuestas WHERE titulo = $1 ORDER BY id_encuesta LIMIT 1`, models.ProfileSurveyTitle)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	err = tx.QueryRowContext(ctx, `INSERT INTO encuestas (titulo, descripcion, puntos_otorga, estado, visible_para, tiempo_estimado)
		VALUES ($1, 'Complete su perfil para obtener puntos de bienvenida', $2, FALSE, $3, '1 minuto') RETURNING id_encuesta`,
		models.ProfileSurveyTitle, points, models.VisibleRegistered).Scan(&id)
	return id, err
}

func (r *Repo) PointsLedger(ctx context.Context, userID int) ([]models.LedgerEntry, error) {
	res := []models.LedgerEntry{}
	err := r.db.SelectContext(ctx, &res, `SELECT id_movimiento, id_usuario, tipo, puntos, referencia, descripcion, fecha FROM movimientos_puntos WHERE id_usuario = $1 ORDER BY fecha DESC, id_movimiento DESC`, userID)
	return res, err
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
