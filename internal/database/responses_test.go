package database

import (
	"testing"

	"plazadatos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSurvey() models.Survey {
	return models.Survey{
		ID:     7,
		Title:  "Hábitos",
		Active: true,
		Questions: []models.Question{
			{ID: 1, Text: "Colores", Type: models.QuestionMultiple, Options: []models.Option{{ID: 10, Text: "Rojo"}, {ID: 11, Text: "Azul"}}},
			{ID: 2, Text: "¿Fumas?", Type: models.QuestionYesNo, Options: []models.Option{{ID: 20, Text: "Sí"}, {ID: 21, Text: "No"}}},
			{ID: 3, Text: "Opinión", Type: models.QuestionOpen, Options: []models.Option{}},
		},
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestValidateAnswers(t *testing.T) {
	s := sampleSurvey()
	valid := []models.Answer{
		{QuestionID: 1, OptionID: intPtr(10)},
		{QuestionID: 1, OptionID: intPtr(11)},
		{QuestionID: 2, OptionID: intPtr(21)},
		{QuestionID: 3, Text: strPtr("ok")},
	}
	require.NoError(t, validateAnswers(s, valid))

	cases := map[string][]models.Answer{
		"empty":          {},
		"unknown":        append(append([]models.Answer{}, valid...), models.Answer{QuestionID: 99, OptionID: intPtr(1)}),
		"foreign option": {{QuestionID: 1, OptionID: intPtr(20)}, {QuestionID: 2, OptionID: intPtr(21)}, {QuestionID: 3, Text: strPtr("x")}},
		"two for yes/no": {{QuestionID: 1, OptionID: intPtr(10)}, {QuestionID: 2, OptionID: intPtr(20)}, {QuestionID: 2, OptionID: intPtr(21)}, {QuestionID: 3, Text: strPtr("x")}},
		"repeated":       {{QuestionID: 1, OptionID: intPtr(10)}, {QuestionID: 1, OptionID: intPtr(10)}, {QuestionID: 2, OptionID: intPtr(20)}, {QuestionID: 3, Text: strPtr("x")}},
		"blank text":     {{QuestionID: 1, OptionID: intPtr(10)}, {QuestionID: 2, OptionID: intPtr(20)}, {QuestionID: 3, Text: strPtr("  ")}},
		"no option":      {{QuestionID: 1}, {QuestionID: 2, OptionID: intPtr(20)}, {QuestionID: 3, Text: strPtr("x")}},
		"missing":        {{QuestionID: 1, OptionID: intPtr(10)}, {QuestionID: 3, Text: strPtr("x")}},
	}
	for name, answers := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, validateAnswers(s, answers), ErrInvalidAnswer)
		})
	}
}

func TestValidateAnswers_LegacyTextField(t *testing.T) {
	s := models.Survey{Questions: []models.Question{{ID: 3, Text: "Opinión", Type: models.QuestionOpen}}}
	assert.NoError(t, validateAnswers(s, []models.Answer{{QuestionID: 3, LegacyText: strPtr("bien")}}))
}

func TestSurveyFilterNormalized(t *testing.T) {
	f := SurveyFilter{Skip: -3, Limit: 500, OrderBy: "1; DROP TABLE encuestas", Direction: "sideways"}.normalized()
	assert.Equal(t, 0, f.Skip)
	assert.Equal(t, 100, f.Limit)
	assert.Equal(t, "fecha_creacion", f.OrderBy)
	assert.Equal(t, "desc", f.Direction)

	f = SurveyFilter{OrderBy: "titulo", Direction: "asc"}.normalized()
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, "titulo", f.OrderBy)
	assert.Equal(t, "asc", f.Direction)
}
