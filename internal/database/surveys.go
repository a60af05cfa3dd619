package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plazadatos/internal/models"

	"github.com/jmoiron/sqlx"
)

const surveyColumns = `e.id_encuesta, e.titulo, e.descripcion, e.fecha_inicio, e.fecha_fin, e.puntos_otorga, e.estado,
	e.visible_para, e.imagen, e.tiempo_estimado, e.id_usuario_creador, e.fecha_creacion`

// ListActiveSurveys returns the open surveys with the caller's participation flag.
func (r *Repo) ListActiveSurveys(ctx context.Context, userID int, f SurveyFilter) ([]models.SurveyListing, error) {
	f = f.normalized()
	q := `SELECT ` + surveyColumns + `,
			(SELECT COUNT(*) FROM preguntas p WHERE p.id_encuesta = e.id_encuesta) AS total_preguntas,
			EXISTS (SELECT 1 FROM participaciones pa WHERE pa.id_encuesta = e.id_encuesta AND pa.id_usuario = $1) AS ya_participada
		FROM encuestas e
		WHERE e.estado = TRUE
			AND (e.fecha_inicio IS NULL OR e.fecha_inicio <= $6::date)
			AND (e.fecha_fin IS NULL OR e.fecha_fin >= $6::date)
			AND ($2::text = '' OR e.visible_para = $2::text)
			AND (NOT $5::boolean OR e.visible_para <> '` + models.VisiblePremium + `')
		ORDER BY ` + surveyOrderColumns[f.OrderBy] + ` ` + f.Direction + `, e.id_encuesta
		LIMIT $3 OFFSET $4`
	now := time.Now()
	res := []models.SurveyListing{}
	if err := r.db.SelectContext(ctx, &res, q, userID, f.Visibility, f.Limit, f.Skip, f.HidePremium, models.NewDate(now)); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].CanParticipate = !res[i].AlreadyAnswered && res[i].IsOpen(now)
	}
	return res, nil
}

// GetSurvey loads a survey with its questions in display order.
func (r *Repo) GetSurvey(ctx context.Context, id int) (models.Survey, error) {
	return getSurvey(ctx, r.db, id)
}

func getSurvey(ctx context.Context, q sqlx.QueryerContext, id int) (models.Survey, error) {
	var s models.Survey
	if err := sqlx.GetContext(ctx, q, &s, `SELECT `+surveyColumns+` FROM encuestas e WHERE e.id_encuesta = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, ErrNotFound
		}
		return s, err
	}
	questions := []models.Question{}
	if err := sqlx.SelectContext(ctx, q, &questions, `SELECT id_pregunta, id_encuesta, texto, tipo, orden FROM preguntas WHERE id_encuesta = $1 ORDER BY orden, id_pregunta`, id); err != nil {
		return s, err
	}
	options := []models.Option{}
	if err := sqlx.SelectContext(ctx, q, &options, `SELECT o.id_opcion, o.id_pregunta, o.texto_opcion FROM opciones o JOIN preguntas p ON p.id_pregunta = o.id_pregunta WHERE p.id_encuesta = $1 ORDER BY o.id_opcion`, id); err != nil {
		return s, err
	}
	byQuestion := map[int][]models.Option{}
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	for i := range questions {
		if t, ok := models.NormalizeQuestionType(questions[i].Type); ok {
			questions[i].Type = t
		}
		questions[i].Options = byQuestion[questions[i].ID]
		if questions[i].Options == nil {
			questions[i].Options = []models.Option{}
		}
	}
	s.Questions = questions
	return s, nil
}

func insertQuestions(ctx context.Context, tx *sqlx.Tx, surveyID int, questions []models.Question) error {
	for _, q := range questions {
		var qid int
		if err := tx.QueryRowContext(ctx, `INSERT INTO preguntas (id_encuesta, texto, tipo, orden) VALUES ($1, $2, $3, $4) RETURNING id_pregunta`, surveyID, q.Text, q.Type, q.Order).Scan(&qid); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		for _, o := range q.Options {
			if _, err := tx.ExecContext(ctx, `INSERT INTO opciones (id_pregunta, texto_opcion) VALUES ($1, $2)`, qid, o.Text); err != nil {
				return fmt.Errorf("insert option: %w", err)
			}
		}
	}
	return nil
}

// CreateSurvey stores s with its questions and options in one transaction.
// s must already be normalized.
func (r *Repo) CreateSurvey(ctx context.Context, s models.Survey, creatorID int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int
	q := `INSERT INTO encuestas (titulo, descripcion, fecha_inicio, fecha_fin, puntos_otorga, estado, visible_para, imagen, tiempo_estimado, id_usuario_creador)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10::int, 0)) RETURNING id_encuesta`
	if err := tx.QueryRowContext(ctx, q, s.Title, s.Description, s.StartDate, s.EndDate, s.Points, s.Active, s.Visibility, s.ImageURL, s.EstimatedTime, creatorID).Scan(&id); err != nil {
		return 0, err
	}
	if err := insertQuestions(ctx, tx, id, s.Questions); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	r.log.Infof("survey %d created by user %d with %d questions", id, creatorID, len(s.Questions))
	return id, nil
}

// UpdateSurvey applies the non-nil fields of p. Questions are replaced only
// while the survey has no participations.
func (r *Repo) UpdateSurvey(ctx context.Context, id int, p SurveyPatch) (models.Survey, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Survey{}, err
	}
	defer tx.Rollback()

	q := `UPDATE encuestas SET
			titulo = COALESCE($2, titulo),
			descripcion = COALESCE($3, descripcion),
			fecha_inicio = COALESCE($4, fecha_inicio),
			fecha_fin = COALESCE($5, fecha_fin),
			puntos_otorga = COALESCE($6, puntos_otorga),
			estado = COALESCE($7, estado),
			visible_para = COALESCE($8, visible_para),
			imagen = COALESCE($9, imagen),
			tiempo_estimado = COALESCE($10, tiempo_estimado)
		WHERE id_encuesta = $1`
	res, err := tx.ExecContext(ctx, q, id, p.Title, p.Description, p.StartDate, p.EndDate, p.Points, p.Active, p.Visibility, p.ImageURL, p.EstimatedTime)
	if err != nil {
		return models.Survey{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Survey{}, ErrNotFound
	}

	if p.Questions != nil {
		var answered bool
		if err := tx.GetContext(ctx, &answered, `SELECT EXISTS (SELECT 1 FROM participaciones WHERE id_encuesta = $1)`, id); err != nil {
			return models.Survey{}, err
		}
		if answered {
			return models.Survey{}, ErrSurveyHasResponses
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM preguntas WHERE id_encuesta = $1`, id); err != nil {
			return models.Survey{}, err
		}
		if err := insertQuestions(ctx, tx, id, *p.Questions); err != nil {
			return models.Survey{}, err
		}
	}

	s, err := getSurvey(ctx, tx, id)
	if err != nil {
		return models.Survey{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Survey{}, err
	}
	return s, nil
}

// DeleteSurvey deactivates the survey; answers stay for reporting.
func (r *Repo) DeleteSurvey(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE encuestas SET estado = FALSE WHERE id_encuesta = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SurveyCounts(ctx context.Context) (SurveyCounts, error) {
	var c SurveyCounts
	err := r.db.GetContext(ctx, &c, `SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE estado) AS activas,
			COUNT(*) FILTER (WHERE NOT estado) AS inactivas
		FROM encuestas`)
	return c, err
}

// CloseExpiredSurveys deactivates surveys whose end date is before now's date.
func (r *Repo) CloseExpiredSurveys(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE encuestas SET estado = FALSE WHERE estado = TRUE AND fecha_fin IS NOT NULL AND fecha_fin < $1`, models.NewDate(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
