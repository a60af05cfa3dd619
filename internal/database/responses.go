package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plazadatos/internal/models"

	"github.com/sirupsen/logrus"
)

// validateAnswers checks answers against the questions of s. Every question
// must be answered; only multiple choice questions take more than one answer.
func validateAnswers(s models.Survey, answers []models.Answer) error {
	if len(answers) == 0 {
		return &AnswerError{Msg: "Debes responder al menos una pregunta"}
	}
	seen := map[int]int{}
	picked := map[[2]int]bool{}
	for _, a := range answers {
		q, ok := s.Question(a.QuestionID)
		if !ok {
			return &AnswerError{Msg: fmt.Sprintf("La pregunta %d no pertenece a esta encuesta", a.QuestionID)}
		}
		seen[q.ID]++
		if seen[q.ID] > 1 && q.Type != models.QuestionMultiple {
			return &AnswerError{Msg: fmt.Sprintf("La pregunta %d admite una sola respuesta", q.ID)}
		}
		if !q.IsChoice() {
			if a.TextValue() == "" {
				return &AnswerError{Msg: fmt.Sprintf("La pregunta %d requiere una respuesta de texto", q.ID)}
			}
			continue
		}
		if a.OptionID == nil {
			return &AnswerError{Msg: fmt.Sprintf("La pregunta %d requiere seleccionar una opción", q.ID)}
		}
		if !q.HasOption(*a.OptionID) {
			return &AnswerError{Msg: fmt.Sprintf("La opción %d no pertenece a la pregunta %d", *a.OptionID, q.ID)}
		}
		key := [2]int{q.ID, *a.OptionID}
		if picked[key] {
			return &AnswerError{Msg: fmt.Sprintf("La opción %d está repetida", *a.OptionID)}
		}
		picked[key] = true
	}
	missing := 0
	for _, q := range s.Questions {
		if seen[q.ID] == 0 {
			missing++
		}
	}
	if missing > 0 {
		return &AnswerError{Msg: fmt.Sprintf("Faltan respuestas para %d preguntas", missing)}
	}
	return nil
}

// SubmitResponses records one participation with its answers and credits
// the survey's points, all in one transaction.
func (r *Repo) SubmitResponses(ctx context.Context, userID int, req SubmitRequest) (SubmitResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return SubmitResult{}, err
	}
	defer tx.Rollback()

	s, err := getSurvey(ctx, tx, req.SurveyID)
	if err != nil {
		return SubmitResult{}, err
	}
	if !s.IsOpen(time.Now()) {
		return SubmitResult{}, ErrSurveyClosed
	}
	var answered bool
	if err := tx.GetContext(ctx, &answered, `SELECT EXISTS (SELECT 1 FROM participaciones WHERE id_usuario = $1 AND id_encuesta = $2)`, userID, s.ID); err != nil {
		return SubmitResult{}, err
	}
	if answered {
		return SubmitResult{}, ErrAlreadyParticipated
	}
	if err := validateAnswers(s, req.Answers); err != nil {
		return SubmitResult{}, err
	}

	seconds := 0
	if req.TotalSeconds != nil && *req.TotalSeconds > 0 {
		seconds = *req.TotalSeconds
	}
	var participationID int
	if err := tx.QueryRowContext(ctx, `INSERT INTO participaciones (id_usuario, id_encuesta, puntaje_obtenido, tiempo_respuesta_segundos) VALUES ($1, $2, $3, $4) RETURNING id_participacion`, userID, s.ID, s.Points, seconds).Scan(&participationID); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return SubmitResult{}, ErrAlreadyParticipated
		}
		return SubmitResult{}, err
	}
	for _, a := range req.Answers {
		var text *string
		if v := a.TextValue(); v != "" {
			text = &v
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO respuestas (id_participacion, id_usuario, id_pregunta, id_opcion, respuesta_texto) VALUES ($1, $2, $3, $4, $5)`, participationID, userID, a.QuestionID, a.OptionID, text); err != nil {
			return SubmitResult{}, fmt.Errorf("insert answer: %w", err)
		}
	}

	total, err := creditPoints(ctx, tx, userID, s.Points)
	if err != nil {
		return SubmitResult{}, err
	}
	if s.Points > 0 {
		if err := addLedger(ctx, tx, userID, models.LedgerSurvey, s.Points, &participationID, s.Title); err != nil {
			return SubmitResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return SubmitResult{}, err
	}
	r.log.WithFields(logrus.Fields{"user": userID, "survey": s.ID, "points": s.Points}).Info("responses recorded")
	return SubmitResult{ParticipationID: participationID, PointsEarned: s.Points, PointsTotal: total}, nil
}

func (r *Repo) HasParticipated(ctx context.Context, userID, surveyID int) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM participaciones WHERE id_usuario = $1 AND id_encuesta = $2)`, userID, surveyID)
	return ok, err
}

// ParticipationHistory groups a user's answers per survey, latest first.
func (r *Repo) ParticipationHistory(ctx context.Context, userID int) ([]HistoryEntry, error) {
	res := []HistoryEntry{}
	err := r.db.SelectContext(ctx, &res, `SELECT e.id_encuesta, e.titulo, MIN(re.fecha_respuesta) AS fecha_respuesta, COUNT(re.id_respuesta) AS cantidad_respuestas
		FROM respuestas re
		JOIN preguntas p ON p.id_pregunta = re.id_pregunta
		JOIN encuestas e ON e.id_encuesta = p.id_encuesta
		WHERE re.id_usuario = $1
		GROUP BY e.id_encuesta, e.titulo
		ORDER BY MIN(re.fecha_respuesta) DESC`, userID)
	return res, err
}

const participationColumns = `pa.id_participacion, pa.id_usuario, pa.id_encuesta, e.titulo AS titulo_encuesta,
	pa.fecha_participacion, pa.puntaje_obtenido, pa.tiempo_respuesta_segundos`

func (r *Repo) UserParticipations(ctx context.Context, userID int) ([]models.Participation, error) {
	res := []models.Participation{}
	err := r.db.SelectContext(ctx, &res, `SELECT `+participationColumns+`
		FROM participaciones pa JOIN encuestas e ON e.id_encuesta = pa.id_encuesta
		WHERE pa.id_usuario = $1
		ORDER BY pa.fecha_participacion DESC`, userID)
	return res, err
}

// ParticipationDetail returns one participation with every question and the answers given.
func (r *Repo) ParticipationDetail(ctx context.Context, id int) (ParticipationDetail, error) {
	var d ParticipationDetail
	err := r.db.GetContext(ctx, &d.Participation, `SELECT `+participationColumns+`
		FROM participaciones pa JOIN encuestas e ON e.id_encuesta = pa.id_encuesta
		WHERE pa.id_participacion = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	s, err := r.GetSurvey(ctx, d.Participation.SurveyID)
	if err != nil {
		return d, err
	}
	d.Survey = SurveyHeader{ID: s.ID, Title: s.Title, Description: s.Description}

	type answerRow struct {
		QuestionID int            `db:"id_pregunta"`
		Option     sql.NullString `db:"texto_opcion"`
		Text       sql.NullString `db:"respuesta_texto"`
	}
	rows := []answerRow{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT re.id_pregunta, o.texto_opcion, re.respuesta_texto
		FROM respuestas re LEFT JOIN opciones o ON o.id_opcion = re.id_opcion
		WHERE re.id_participacion = $1 ORDER BY re.id_respuesta`, id); err != nil {
		return d, err
	}
	given := map[int][]string{}
	for _, row := range rows {
		switch {
		case row.Option.Valid:
			given[row.QuestionID] = append(given[row.QuestionID], row.Option.String)
		case row.Text.Valid:
			given[row.QuestionID] = append(given[row.QuestionID], row.Text.String)
		}
	}
	d.Questions = make([]AnsweredQuestion, 0, len(s.Questions))
	for _, q := range s.Questions {
		answers := given[q.ID]
		if answers == nil {
			answers = []string{}
		}
		d.Questions = append(d.Questions, AnsweredQuestion{QuestionID: q.ID, Text: q.Text, Type: q.Type, Answers: answers})
	}
	return d, nil
}
