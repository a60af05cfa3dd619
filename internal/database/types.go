package database

import (
	"time"

	"plazadatos/internal/models"

	"github.com/shopspring/decimal"
)

type UserPatch struct {
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Phone     *string `json:"celular_numero"`
}

type ProfileFields struct {
	BirthDate models.Date `json:"fecha_nacimiento" binding:"required"`
	Sex       string      `json:"sexo" binding:"required"`
	Location  string      `json:"localizacion" binding:"required"`
}

type SurveyFilter struct {
	Skip       int
	Limit      int
	OrderBy    string
	Direction  string
	Visibility string
	// HidePremium leaves out premium surveys before paging.
	HidePremium bool
}

var surveyOrderColumns = map[string]string{
	"fecha_creacion": "e.fecha_creacion",
	"puntos_otorga":  "e.puntos_otorga",
	"titulo":         "e.titulo",
}

func (f SurveyFilter) normalized() SurveyFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if _, ok := surveyOrderColumns[f.OrderBy]; !ok {
		f.OrderBy = "fecha_creacion"
	}
	if f.Direction != "asc" {
		f.Direction = "desc"
	}
	return f
}

type SurveyPatch struct {
	Title         *string            `json:"titulo"`
	Description   *string            `json:"descripcion"`
	StartDate     *models.Date       `json:"fecha_inicio"`
	EndDate       *models.Date       `json:"fecha_fin"`
	Points        *int               `json:"puntos_otorga"`
	Active        *bool              `json:"estado"`
	Visibility    *string            `json:"visible_para"`
	ImageURL      *string            `json:"imagen_url"`
	EstimatedTime *string            `json:"tiempo_estimado"`
	Questions     *[]models.Question `json:"preguntas"`
}

type SurveyCounts struct {
	Total    int `db:"total" json:"total_encuestas"`
	Active   int `db:"activas" json:"encuestas_activas"`
	Inactive int `db:"inactivas" json:"encuestas_inactivas"`
}

type SubmitRequest struct {
	SurveyID     int             `json:"id_encuesta" binding:"required"`
	TotalSeconds *int            `json:"tiempo_total"`
	Answers      []models.Answer `json:"respuestas" binding:"required"`
}

type SubmitResult struct {
	ParticipationID int `json:"id_participacion"`
	PointsEarned    int `json:"puntos_obtenidos"`
	PointsTotal     int `json:"puntos_totales"`
}

type HistoryEntry struct {
	SurveyID        int       `db:"id_encuesta" json:"id_encuesta"`
	Title           string    `db:"titulo" json:"titulo"`
	FirstAnsweredAt time.Time `db:"fecha_respuesta" json:"fecha_respuesta"`
	AnswerCount     int       `db:"cantidad_respuestas" json:"cantidad_respuestas"`
}

type AnsweredQuestion struct {
	QuestionID int      `json:"id_pregunta"`
	Text       string   `json:"texto"`
	Type       string   `json:"tipo"`
	Answers    []string `json:"respuestas"`
}

type ParticipationDetail struct {
	Participation models.Participation `json:"participacion"`
	Survey        SurveyHeader         `json:"encuesta"`
	Questions     []AnsweredQuestion   `json:"preguntas"`
}

type SurveyHeader struct {
	ID          int     `json:"id"`
	Title       string  `json:"titulo"`
	Description *string `json:"descripcion,omitempty"`
}

type PrizePatch struct {
	Name          *string `json:"nombre"`
	Description   *string `json:"descripcion"`
	ImageURL      *string `json:"imagen_url"`
	Cost          *int    `json:"costo_puntos"`
	Stock         *int    `json:"stock_disponible"`
	Type          *string `json:"tipo"`
	Category      *string `json:"categoria"`
	NeedsApproval *bool   `json:"requiere_aprobacion"`
	Instructions  *string `json:"instrucciones_canje"`
	Terms         *string `json:"terminos_condiciones"`
}

type RedeemRequest struct {
	PrizeID int     `json:"id_premio" binding:"required"`
	Address *string `json:"direccion_entrega"`
	Phone   *string `json:"telefono_contacto"`
	Notes   *string `json:"observaciones_usuario"`
}

type SurveyCount struct {
	Title     string `db:"titulo" json:"titulo"`
	Responses int    `db:"respuestas" json:"respuestas"`
}

type DashboardStats struct {
	TotalResponses int             `json:"totalRespuestas"`
	ActiveUsers    int             `json:"usuariosActivos"`
	TopSurveys     []SurveyCount   `json:"encuestasMasRespondidas"`
	AvgMinutes     decimal.Decimal `json:"tiempoPromedioRespuesta"`
}

type SurveyResponses struct {
	Survey    string `db:"encuesta" json:"encuesta"`
	Responses int    `db:"respuestas" json:"respuestas"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type DayCount struct {
	Day       string `json:"fecha"`
	Responses int    `json:"respuestas"`
}

type DashboardCharts struct {
	PerSurvey    []SurveyResponses `json:"respuestasPorEncuesta"`
	Demographics []NameValue       `json:"distribucionDemografica"`
	PerDay       []DayCount        `json:"respuestasPorDia"`
}

type RecentParticipation struct {
	ID       int    `json:"id"`
	User     string `json:"usuario"`
	Survey   string `json:"encuesta"`
	Date     string `json:"fecha"`
	Duration int    `json:"duracion"`
}

type QuestionStatistics struct {
	ID     int            `json:"id"`
	Type   string         `json:"tipo"`
	Text   string         `json:"pregunta"`
	Counts map[string]int `json:"estadisticas,omitempty"`
	Texts  []string       `json:"respuestas_texto,omitempty"`
}

type SurveyStatistics struct {
	Survey    SurveyHeader         `json:"encuesta"`
	Questions []QuestionStatistics `json:"preguntas"`
}

type DetailedResponse struct {
	ParticipantID string            `json:"participante_id"`
	Age           interface{}       `json:"edad"`
	Sex           string            `json:"sexo"`
	Location      string            `json:"localizacion"`
	Date          string            `json:"fecha"`
	SurveyID      int               `json:"encuesta_id"`
	SurveyName    string            `json:"encuesta_nom"`
	Answers       map[string]string `json:"respuestas"`
	Items         []AnswerItem      `json:"detalle"`
}

// AnswerItem is one question's answer inside a DetailedResponse, in survey order.
type AnswerItem struct {
	QuestionID int    `json:"id_pregunta"`
	Order      int    `json:"orden"`
	Question   string `json:"pregunta"`
	Answer     string `json:"respuesta"`
}

type SurveySummary struct {
	ID                 int          `db:"id_encuesta" json:"id"`
	Title              string       `db:"titulo" json:"titulo"`
	StartDate          *models.Date `db:"fecha_inicio" json:"fecha_inicio"`
	EndDate            *models.Date `db:"fecha_fin" json:"fecha_fin"`
	TotalParticipation int          `db:"total_participaciones" json:"total_participaciones"`
}
