package database

import (
	"database/sql"
	"testing"
	"time"

	"plazadatos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketAges(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	births := []time.Time{
		time.Date(2004, 6, 16, 0, 0, 0, 0, time.UTC), // 19
		time.Date(1999, 6, 15, 0, 0, 0, 0, time.UTC), // 25
		time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),  // 64
		time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),  // 14, outside every bucket
	}
	got := bucketAges(births, now)
	require.Len(t, got, 5)
	assert.Equal(t, NameValue{Name: "18-24 años", Value: 1}, got[0])
	assert.Equal(t, NameValue{Name: "25-34 años", Value: 1}, got[1])
	assert.Equal(t, 0, got[2].Value)
	assert.Equal(t, NameValue{Name: "55+ años", Value: 1}, got[4])
}

func TestDayCounts(t *testing.T) {
	santiago := time.FixedZone("CLT", -4*3600)
	stamps := []time.Time{
		time.Date(2024, 6, 16, 2, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 16, 15, 0, 0, 0, time.UTC),
	}
	got := dayCounts(stamps, santiago)
	assert.Equal(t, map[string]int{"2024-06-15": 1, "2024-06-16": 1}, got)

	now := time.Date(2024, 6, 16, 12, 0, 0, 0, santiago)
	days := lastSevenDays(now, got)
	assert.Equal(t, 1, days[5].Responses)
	assert.Equal(t, 1, days[6].Responses)
}

func TestLastSevenDays(t *testing.T) {
	// 2024-06-16 is a Sunday
	now := time.Date(2024, 6, 16, 9, 0, 0, 0, time.UTC)
	got := lastSevenDays(now, map[string]int{"2024-06-16": 4, "2024-06-10": 2, "2024-06-01": 99})
	require.Len(t, got, 7)
	assert.Equal(t, DayCount{Day: "Lun", Responses: 2}, got[0])
	assert.Equal(t, DayCount{Day: "Dom", Responses: 4}, got[6])
	total := 0
	for _, d := range got {
		total += d.Responses
	}
	assert.Equal(t, 6, total)
}

func TestAverageMinutes(t *testing.T) {
	assert.Equal(t, "0", averageMinutes(sql.NullString{}).String())
	assert.Equal(t, "5.2", averageMinutes(sql.NullString{String: "312.0000", Valid: true}).String())
	assert.Equal(t, "0", averageMinutes(sql.NullString{String: "abc", Valid: true}).String())
}

func TestBuildStatistics_IncludesZeroCounts(t *testing.T) {
	s := sampleSurvey()
	counts := []optionCount{{QuestionID: 1, Option: "Rojo", Count: 3}, {QuestionID: 2, Option: "Sí", Count: 1}}
	texts := []textAnswer{{QuestionID: 3, Text: "muy bien"}, {QuestionID: 3, Text: "regular"}}

	st := buildStatistics(s, counts, texts)
	require.Len(t, st.Questions, 3)
	assert.Equal(t, map[string]int{"Rojo": 3, "Azul": 0}, st.Questions[0].Counts)
	assert.Equal(t, map[string]int{"Sí": 1, "No": 0}, st.Questions[1].Counts)
	assert.Nil(t, st.Questions[2].Counts)
	assert.Equal(t, []string{"muy bien", "regular"}, st.Questions[2].Texts)
	assert.Equal(t, "Hábitos", st.Survey.Title)
}

func TestBuildDetailed_Anonymized(t *testing.T) {
	s := sampleSurvey()
	birth := models.NewDate(time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC))
	at := time.Date(2024, 5, 2, 14, 30, 0, 0, time.UTC)
	rows := []detailRow{
		{ParticipationID: 42, At: at, BirthDate: &birth, Sex: sql.NullString{String: "F", Valid: true}},
		{ParticipationID: 43, At: at},
	}
	answers := []detailAnswer{
		{ParticipationID: 42, QuestionID: 1, Option: sql.NullString{String: "Rojo", Valid: true}},
		{ParticipationID: 42, QuestionID: 1, Option: sql.NullString{String: "Azul", Valid: true}},
		{ParticipationID: 42, QuestionID: 3, Text: sql.NullString{String: "bien", Valid: true}},
	}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	got := buildDetailed(s, rows, answers, now)
	require.Len(t, got, 2)
	assert.Equal(t, "P000042", got[0].ParticipantID)
	assert.Equal(t, 34, got[0].Age)
	assert.Equal(t, "F", got[0].Sex)
	assert.Equal(t, "No especificada", got[0].Location)
	assert.Equal(t, "2024-05-02 14:30", got[0].Date)
	assert.Equal(t, "Rojo, Azul", got[0].Answers["Colores"])
	assert.Equal(t, "Sin respuesta", got[0].Answers["¿Fumas?"])
	assert.Equal(t, "bien", got[0].Answers["Opinión"])
	require.Len(t, got[0].Items, 3)
	assert.Equal(t, AnswerItem{QuestionID: 1, Question: "Colores", Answer: "Rojo, Azul"}, got[0].Items[0])
	assert.Equal(t, 3, got[0].Items[2].QuestionID)

	assert.Equal(t, "No especificada", got[1].Age)
	assert.Equal(t, "No especificado", got[1].Sex)
}
