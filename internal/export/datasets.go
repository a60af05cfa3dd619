package export

import (
	"sort"
	"strconv"

	"plazadatos/internal/database"
	"plazadatos/internal/models"
)

// ParticipationsTable shapes the dashboard participation list.
func ParticipationsTable(rows []database.RecentParticipation) Table {
	t := Table{Title: "Participaciones", Headers: []string{"ID", "Usuario", "Encuesta", "Fecha", "Duración (min)"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{strconv.Itoa(r.ID), r.User, r.Survey, r.Date, strconv.Itoa(r.Duration)})
	}
	return t
}

func dateOrEmpty(d *models.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.String()
}

func SurveysTable(rows []database.SurveySummary) Table {
	t := Table{Title: "Encuestas", Headers: []string{"ID", "Título", "Fecha inicio", "Fecha fin", "Participaciones"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{strconv.Itoa(r.ID), r.Title, dateOrEmpty(r.StartDate), dateOrEmpty(r.EndDate), strconv.Itoa(r.TotalParticipation)})
	}
	return t
}

func RedemptionsTable(rows []models.Redemption) Table {
	t := Table{Title: "Canjes", Headers: []string{"ID", "Usuario", "Premio", "Puntos", "Estado", "Fecha solicitud", "Código"}}
	for _, r := range rows {
		code := ""
		if r.TrackingCode != nil {
			code = *r.TrackingCode
		}
		t.Rows = append(t.Rows, []string{strconv.Itoa(r.ID), r.UserName, r.PrizeName, strconv.Itoa(r.Points), r.Status, r.RequestedAt.Format("2006-01-02 15:04"), code})
	}
	return t
}

// ResponsesTable puts one question per column after the demographic fields,
// in survey order. Columns are keyed by question id so repeated texts stay apart.
func ResponsesTable(title string, rows []database.DetailedResponse) Table {
	columns := []database.AnswerItem{}
	seen := map[int]bool{}
	for _, r := range rows {
		for _, it := range r.Items {
			if !seen[it.QuestionID] {
				seen[it.QuestionID] = true
				columns = append(columns, it)
			}
		}
	}
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i].Order != columns[j].Order {
			return columns[i].Order < columns[j].Order
		}
		return columns[i].QuestionID < columns[j].QuestionID
	})

	keys := []string{"participante_id", "edad", "sexo", "localizacion", "fecha"}
	headers := []string{"Participante", "Edad", "Sexo", "Localización", "Fecha"}
	for _, q := range columns {
		keys = append(keys, "q:"+strconv.Itoa(q.QuestionID))
		headers = append(headers, q.Question)
	}
	objs := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		o := map[string]any{"participante_id": r.ParticipantID, "edad": r.Age, "sexo": r.Sex, "localizacion": r.Location, "fecha": r.Date}
		for _, it := range r.Items {
			o["q:"+strconv.Itoa(it.QuestionID)] = it.Answer
		}
		objs = append(objs, o)
	}
	return ObjectsToTable("Respuestas - "+title, objs, keys, headers)
}
