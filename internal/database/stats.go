package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"plazadatos/internal/models"

	"github.com/shopspring/decimal"
)

var weekdayLabels = [...]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

var ageBuckets = []struct {
	name     string
	min, max int
}{
	{"18-24 años", 18, 24},
	{"25-34 años", 25, 34},
	{"35-44 años", 35, 44},
	{"45-54 años", 45, 54},
	{"55+ años", 55, 200},
}

func (r *Repo) DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error) {
	var st DashboardStats
	if err := r.db.GetContext(ctx, &st.TotalResponses, `SELECT COUNT(*) FROM respuestas`); err != nil {
		return st, err
	}
	if err := r.db.GetContext(ctx, &st.ActiveUsers, `SELECT COUNT(DISTINCT id_usuario) FROM participaciones WHERE fecha_participacion >= $1`, now.AddDate(0, 0, -30)); err != nil {
		return st, err
	}
	st.TopSurveys = []SurveyCount{}
	if err := r.db.SelectContext(ctx, &st.TopSurveys, `SELECT e.titulo, COUNT(pa.id_participacion) AS respuestas
		FROM encuestas e JOIN participaciones pa ON pa.id_encuesta = e.id_encuesta
		GROUP BY e.id_encuesta, e.titulo ORDER BY respuestas DESC, e.id_encuesta LIMIT 3`); err != nil {
		return st, err
	}
	var avgSeconds sql.NullString
	if err := r.db.GetContext(ctx, &avgSeconds, `SELECT AVG(tiempo_respuesta_segundos)::text FROM participaciones WHERE tiempo_respuesta_segundos > 0`); err != nil {
		return st, err
	}
	st.AvgMinutes = averageMinutes(avgSeconds)
	return st, nil
}

func averageMinutes(avgSeconds sql.NullString) decimal.Decimal {
	if !avgSeconds.Valid {
		return decimal.Zero
	}
	secs, err := decimal.NewFromString(avgSeconds.String)
	if err != nil {
		return decimal.Zero
	}
	return secs.Div(decimal.NewFromInt(60)).Round(1)
}

func (r *Repo) DashboardCharts(ctx context.Context, now time.Time) (DashboardCharts, error) {
	var ch DashboardCharts
	ch.PerSurvey = []SurveyResponses{}
	if err := r.db.SelectContext(ctx, &ch.PerSurvey, `SELECT e.titulo AS encuesta, COUNT(pa.id_participacion) AS respuestas
		FROM encuestas e JOIN participaciones pa ON pa.id_encuesta = e.id_encuesta
		GROUP BY e.id_encuesta, e.titulo ORDER BY respuestas DESC, e.id_encuesta LIMIT 5`); err != nil {
		return ch, err
	}

	births := []time.Time{}
	if err := r.db.SelectContext(ctx, &births, `SELECT u.fecha_nacimiento FROM usuarios u
		WHERE u.fecha_nacimiento IS NOT NULL AND EXISTS (SELECT 1 FROM participaciones pa WHERE pa.id_usuario = u.id_usuario)`); err != nil {
		return ch, err
	}
	ch.Demographics = bucketAges(births, now)

	// days are bucketed here in now's location so they line up with lastSevenDays
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -6)
	stamps := []time.Time{}
	if err := r.db.SelectContext(ctx, &stamps, `SELECT fecha_participacion FROM participaciones WHERE fecha_participacion >= $1`, start); err != nil {
		return ch, err
	}
	counts := dayCounts(stamps, now.Location())
	ch.PerDay = lastSevenDays(now, counts)
	return ch, nil
}

func bucketAges(births []time.Time, now time.Time) []NameValue {
	res := make([]NameValue, len(ageBuckets))
	for i, b := range ageBuckets {
		res[i].Name = b.name
	}
	for _, birth := range births {
		age := models.AgeAt(birth, now)
		for i, b := range ageBuckets {
			if age >= b.min && age <= b.max {
				res[i].Value++
				break
			}
		}
	}
	return res
}

func dayCounts(stamps []time.Time, loc *time.Location) map[string]int {
	counts := map[string]int{}
	for _, t := range stamps {
		counts[t.In(loc).Format("2006-01-02")]++
	}
	return counts
}

// lastSevenDays lists the six previous days and today, oldest first.
func lastSevenDays(now time.Time, counts map[string]int) []DayCount {
	res := make([]DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		res = append(res, DayCount{Day: weekdayLabels[d.Weekday()], Responses: counts[d.Format("2006-01-02")]})
	}
	return res
}

func (r *Repo) RecentParticipations(ctx context.Context, limit int) ([]RecentParticipation, error) {
	type row struct {
		ID        int       `db:"id_participacion"`
		FirstName string    `db:"nombre"`
		LastName  string    `db:"apellido"`
		Survey    string    `db:"titulo"`
		At        time.Time `db:"fecha_participacion"`
		Seconds   int       `db:"tiempo_respuesta_segundos"`
	}
	rows := []row{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT pa.id_participacion, u.nombre, u.apellido, e.titulo, pa.fecha_participacion, pa.tiempo_respuesta_segundos
		FROM participaciones pa
		JOIN usuarios u ON u.id_usuario = pa.id_usuario
		JOIN encuestas e ON e.id_encuesta = pa.id_encuesta
		ORDER BY pa.fecha_participacion DESC LIMIT $1`, limit); err != nil {
		return nil, err
	}
	res := make([]RecentParticipation, 0, len(rows))
	for _, p := range rows {
		res = append(res, RecentParticipation{
			ID:       p.ID,
			User:     strings.TrimSpace(p.FirstName + " " + p.LastName),
			Survey:   p.Survey,
			Date:     p.At.Format("2006-01-02 15:04"),
			Duration: (p.Seconds + 30) / 60,
		})
	}
	return res, nil
}

type optionCount struct {
	QuestionID int    `db:"id_pregunta"`
	Option     string `db:"texto_opcion"`
	Count      int    `db:"cantidad"`
}

type textAnswer struct {
	QuestionID int    `db:"id_pregunta"`
	Text       string `db:"respuesta_texto"`
}

// SurveyStatistics aggregates option counts per choice question and collects open answers.
func (r *Repo) SurveyStatistics(ctx context.Context, id int) (SurveyStatistics, error) {
	s, err := r.GetSurvey(ctx, id)
	if err != nil {
		return SurveyStatistics{}, err
	}
	counts := []optionCount{}
	if err := r.db.SelectContext(ctx, &counts, `SELECT o.id_pregunta, o.texto_opcion, COUNT(re.id_respuesta) AS cantidad
		FROM opciones o
		JOIN preguntas p ON p.id_pregunta = o.id_pregunta
		LEFT JOIN respuestas re ON re.id_opcion = o.id_opcion
		WHERE p.id_encuesta = $1
		GROUP BY o.id_opcion, o.id_pregunta, o.texto_opcion`, id); err != nil {
		return SurveyStatistics{}, err
	}
	texts := []textAnswer{}
	if err := r.db.SelectContext(ctx, &texts, `SELECT re.id_pregunta, re.respuesta_texto
		FROM respuestas re JOIN preguntas p ON p.id_pregunta = re.id_pregunta
		WHERE p.id_encuesta = $1 AND re.respuesta_texto IS NOT NULL
		ORDER BY re.id_respuesta`, id); err != nil {
		return SurveyStatistics{}, err
	}
	return buildStatistics(s, counts, texts), nil
}

func buildStatistics(s models.Survey, counts []optionCount, texts []textAnswer) SurveyStatistics {
	byQuestion := map[int]map[string]int{}
	for _, c := range counts {
		if byQuestion[c.QuestionID] == nil {
			byQuestion[c.QuestionID] = map[string]int{}
		}
		byQuestion[c.QuestionID][c.Option] += c.Count
	}
	textsByQuestion := map[int][]string{}
	for _, t := range texts {
		textsByQuestion[t.QuestionID] = append(textsByQuestion[t.QuestionID], t.Text)
	}
	res := SurveyStatistics{Survey: SurveyHeader{ID: s.ID, Title: s.Title}, Questions: []QuestionStatistics{}}
	for _, q := range s.Questions {
		qs := QuestionStatistics{ID: q.ID, Type: q.Type, Text: q.Text}
		if q.IsChoice() {
			qs.Counts = byQuestion[q.ID]
			if qs.Counts == nil {
				qs.Counts = map[string]int{}
			}
			for _, o := range q.Options {
				if _, ok := qs.Counts[o.Text]; !ok {
					qs.Counts[o.Text] = 0
				}
			}
		} else {
			qs.Texts = textsByQuestion[q.ID]
		}
		res.Questions = append(res.Questions, qs)
	}
	return res
}

type detailRow struct {
	ParticipationID int            `db:"id_participacion"`
	At              time.Time      `db:"fecha_participacion"`
	BirthDate       *models.Date   `db:"fecha_nacimiento"`
	Sex             sql.NullString `db:"sexo"`
	Location        sql.NullString `db:"localizacion"`
}

type detailAnswer struct {
	ParticipationID int            `db:"id_participacion"`
	QuestionID      int            `db:"id_pregunta"`
	Option          sql.NullString `db:"texto_opcion"`
	Text            sql.NullString `db:"respuesta_texto"`
}

// DetailedResponses returns one anonymized row per participation, newest first.
func (r *Repo) DetailedResponses(ctx context.Context, id int) ([]DetailedResponse, error) {
	s, err := r.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	rows := []detailRow{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT pa.id_participacion, pa.fecha_participacion, u.fecha_nacimiento, u.sexo, u.localizacion
		FROM participaciones pa JOIN usuarios u ON u.id_usuario = pa.id_usuario
		WHERE pa.id_encuesta = $1 ORDER BY pa.fecha_participacion DESC`, id); err != nil {
		return nil, err
	}
	answers := []detailAnswer{}
	if err := r.db.SelectContext(ctx, &answers, `SELECT re.id_participacion, re.id_pregunta, o.texto_opcion, re.respuesta_texto
		FROM respuestas re
		JOIN participaciones pa ON pa.id_participacion = re.id_participacion
		LEFT JOIN opciones o ON o.id_opcion = re.id_opcion
		WHERE pa.id_encuesta = $1 ORDER BY re.id_respuesta`, id); err != nil {
		return nil, err
	}
	return buildDetailed(s, rows, answers, time.Now()), nil
}

func buildDetailed(s models.Survey, rows []detailRow, answers []detailAnswer, now time.Time) []DetailedResponse {
	type key struct{ participation, question int }
	given := map[key][]string{}
	for _, a := range answers {
		k := key{a.ParticipationID, a.QuestionID}
		switch {
		case a.Option.Valid:
			given[k] = append(given[k], a.Option.String)
		case a.Text.Valid && strings.TrimSpace(a.Text.String) != "":
			given[k] = append(given[k], a.Text.String)
		}
	}
	res := make([]DetailedResponse, 0, len(rows))
	for _, row := range rows {
		d := DetailedResponse{
			ParticipantID: models.AnonymousParticipantID(row.ParticipationID),
			Age:           "No especificada",
			Sex:           orDefault(row.Sex, "No especificado"),
			Location:      orDefault(row.Location, "No especificada"),
			Date:          row.At.Format("2006-01-02 15:04"),
			SurveyID:      s.ID,
			SurveyName:    s.Title,
			Answers:       make(map[string]string, len(s.Questions)),
			Items:         make([]AnswerItem, 0, len(s.Questions)),
		}
		if row.BirthDate != nil && !row.BirthDate.IsZero() {
			d.Age = models.AgeAt(row.BirthDate.Time, now)
		}
		for _, q := range s.Questions {
			answer := "Sin respuesta"
			if vals := given[key{row.ParticipationID, q.ID}]; len(vals) > 0 {
				answer = strings.Join(vals, ", ")
			}
			d.Answers[q.Text] = answer
			d.Items = append(d.Items, AnswerItem{QuestionID: q.ID, Order: q.Order, Question: q.Text, Answer: answer})
		}
		res = append(res, d)
	}
	return res
}

func orDefault(v sql.NullString, def string) string {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return def
	}
	return v.String
}

func (r *Repo) SurveysSummary(ctx context.Context) ([]SurveySummary, error) {
	res := []SurveySummary{}
	err := r.db.SelectContext(ctx, &res, `SELECT e.id_encuesta, e.titulo, e.fecha_inicio, e.fecha_fin, COUNT(DISTINCT pa.id_participacion) AS total_participaciones
		FROM encuestas e LEFT JOIN participaciones pa ON pa.id_encuesta = e.id_encuesta
		GROUP BY e.id_encuesta
		ORDER BY e.fecha_creacion DESC`)
	return res, err
}

// SurveyTitle is used by exports to name files.
func (r *Repo) SurveyTitle(ctx context.Context, id int) (string, error) {
	var title string
	err := r.db.GetContext(ctx, &title, `SELECT titulo FROM encuestas WHERE id_encuesta = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return title, err
}
