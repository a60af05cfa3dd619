package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	QuestionMultiple = "multiple"
	QuestionOpen     = "abierta"
	QuestionScale    = "escala"
	QuestionYesNo    = "si_no"
)

const (
	VisibleAll        = "todos"
	VisibleRegistered = "registrados"
	VisiblePremium    = "premium"
)

// ProfileSurveyTitle names the synthetic survey that records profile completion.
const ProfileSurveyTitle = "Encuesta de Perfil Inicial"

// NormalizeQuestionType maps legacy type names onto the current set.
// The boolean is false for unknown types.
func NormalizeQuestionType(t string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case QuestionMultiple, "opcion_multiple":
		return QuestionMultiple, true
	case QuestionOpen, "texto_libre", "texto":
		return QuestionOpen, true
	case QuestionScale:
		return QuestionScale, true
	case QuestionYesNo:
		return QuestionYesNo, true
	}
	return "", false
}

func ValidVisibility(v string) bool {
	switch v {
	case VisibleAll, VisibleRegistered, VisiblePremium:
		return true
	}
	return false
}

type Option struct {
	ID         int    `db:"id_opcion" json:"id_opcion"`
	QuestionID int    `db:"id_pregunta" json:"-"`
	Text       string `db:"texto_opcion" json:"texto_opcion"`
}

type Question struct {
	ID       int      `db:"id_pregunta" json:"id_pregunta"`
	SurveyID int      `db:"id_encuesta" json:"-"`
	Text     string   `db:"texto" json:"texto"`
	Type     string   `db:"tipo" json:"tipo"`
	Order    int      `db:"orden" json:"orden"`
	Options  []Option `db:"-" json:"opciones"`
}

func (q Question) IsChoice() bool {
	t, _ := NormalizeQuestionType(q.Type)
	return t != QuestionOpen
}

func (q Question) HasOption(id int) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

type Survey struct {
	ID            int        `db:"id_encuesta" json:"id_encuesta"`
	Title         string     `db:"titulo" json:"titulo"`
	Description   *string    `db:"descripcion" json:"descripcion"`
	StartDate     *Date      `db:"fecha_inicio" json:"fecha_inicio"`
	EndDate       *Date      `db:"fecha_fin" json:"fecha_fin"`
	Points        int        `db:"puntos_otorga" json:"puntos_otorga"`
	Active        bool       `db:"estado" json:"estado"`
	Visibility    string     `db:"visible_para" json:"visible_para"`
	ImageURL      *string    `db:"imagen" json:"imagen_url"`
	EstimatedTime *string    `db:"tiempo_estimado" json:"tiempo_estimado"`
	CreatorID     *int       `db:"id_usuario_creador" json:"id_usuario_creador"`
	CreatedAt     time.Time  `db:"fecha_creacion" json:"fecha_creacion"`
	Questions     []Question `db:"-" json:"preguntas,omitempty"`
}

// IsOpen reports whether answers are accepted on the calendar day of now.
func (s Survey) IsOpen(now time.Time) bool {
	if !s.Active {
		return false
	}
	today := NewDate(now)
	if s.StartDate != nil && !s.StartDate.IsZero() && today.Before(s.StartDate.Time) {
		return false
	}
	if s.EndDate != nil && !s.EndDate.IsZero() && today.After(s.EndDate.Time) {
		return false
	}
	return true
}

func (s Survey) Question(id int) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// SurveyListing is a survey row as seen by a particular user.
type SurveyListing struct {
	Survey
	TotalQuestions  int  `db:"total_preguntas" json:"total_preguntas"`
	AlreadyAnswered bool `db:"ya_participada" json:"ya_participada"`
	CanParticipate  bool `db:"-" json:"puede_participar"`
}

type Participation struct {
	ID           int       `db:"id_participacion" json:"id_participacion"`
	UserID       int       `db:"id_usuario" json:"id_usuario"`
	SurveyID     int       `db:"id_encuesta" json:"id_encuesta"`
	SurveyTitle  string    `db:"titulo_encuesta" json:"titulo_encuesta"`
	AnsweredAt   time.Time `db:"fecha_participacion" json:"fecha_participacion"`
	PointsEarned int       `db:"puntaje_obtenido" json:"puntaje_obtenido"`
	Seconds      int       `db:"tiempo_respuesta_segundos" json:"tiempo_respuesta_segundos"`
}

type Answer struct {
	QuestionID int     `json:"id_pregunta" binding:"required"`
	OptionID   *int    `json:"id_opcion"`
	Text       *string `json:"respuesta_texto"`
	// older clients send texto_respuesta
	LegacyText *string `json:"texto_respuesta,omitempty"`
}

func (a Answer) TextValue() string {
	if a.Text != nil {
		return strings.TrimSpace(*a.Text)
	}
	if a.LegacyText != nil {
		return strings.TrimSpace(*a.LegacyText)
	}
	return ""
}

// DefaultOptions returns the options a question type gets when none are supplied.
func DefaultOptions(questionType string) []string {
	switch questionType {
	case QuestionYesNo:
		return []string{"Sí", "No"}
	case QuestionScale:
		opts := make([]string, 0, 5)
		for i := 1; i <= 5; i++ {
			opts = append(opts, strconv.Itoa(i))
		}
		return opts
	}
	return nil
}

// Normalize fills question order, canonical types and default options.
func (s *Survey) Normalize() error {
	for i := range s.Questions {
		q := &s.Questions[i]
		t, ok := NormalizeQuestionType(q.Type)
		if !ok {
			return fmt.Errorf("pregunta %d: tipo %q no soportado", i+1, q.Type)
		}
		q.Type = t
		if q.Order == 0 {
			q.Order = i + 1
		}
		if t == QuestionOpen {
			q.Options = nil
			continue
		}
		if len(q.Options) == 0 {
			for _, text := range DefaultOptions(t) {
				q.Options = append(q.Options, Option{Text: text})
			}
		}
	}
	if s.Visibility == "" {
		s.Visibility = VisibleAll
	}
	return nil
}

func (s Survey) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("El título es obligatorio")
	}
	if s.Points < 0 {
		return errors.New("Los puntos no pueden ser negativos")
	}
	if !ValidVisibility(s.Visibility) {
		return fmt.Errorf("visible_para inválido: %s", s.Visibility)
	}
	if s.StartDate != nil && s.EndDate != nil && !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate.Time) {
		return errors.New("La fecha de fin no puede ser anterior a la fecha de inicio")
	}
	for i, q := range s.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("pregunta %d: el texto es obligatorio", i+1)
		}
		if q.Type == QuestionMultiple && len(q.Options) < 2 {
			return fmt.Errorf("pregunta %d: se requieren al menos dos opciones", i+1)
		}
		for _, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				return fmt.Errorf("pregunta %d: las opciones no pueden estar vacías", i+1)
			}
		}
	}
	return nil
}
