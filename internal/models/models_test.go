package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{RedemptionRequested, RedemptionApproved, true},
		{RedemptionRequested, RedemptionRejected, true},
		{RedemptionRequested, RedemptionCancelled, true},
		{RedemptionRequested, RedemptionDelivered, false},
		{RedemptionApproved, RedemptionDelivered, true},
		{RedemptionApproved, RedemptionCancelled, true},
		{RedemptionApproved, RedemptionRejected, false},
		{RedemptionDelivered, RedemptionCancelled, false},
		{RedemptionRejected, RedemptionApproved, false},
		{RedemptionCancelled, RedemptionRequested, false},
		{"desconocido", RedemptionApproved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, Refunds(RedemptionRejected))
	assert.True(t, Refunds(RedemptionCancelled))
	assert.False(t, Refunds(RedemptionApproved))
	assert.False(t, Refunds(RedemptionDelivered))
}

func TestPrizeIsAvailable(t *testing.T) {
	base := Prize{Active: true, Status: PrizeAvailable}
	assert.True(t, base.IsAvailable(), "unlimited stock")

	p := base
	p.Stock = ptr(3)
	assert.True(t, p.IsAvailable())
	p.Stock = ptr(0)
	assert.False(t, p.IsAvailable())

	p = base
	p.Active = false
	assert.False(t, p.IsAvailable())

	for _, st := range []string{PrizeSoldOut, PrizeSuspended, PrizeDiscontinued} {
		p = base
		p.Status = st
		assert.False(t, p.IsAvailable(), st)
	}
}

func TestPrizeValidate(t *testing.T) {
	ok := Prize{Name: "Gift card", Cost: 50, Type: PrizeDigital}
	assert.NoError(t, ok.Validate())

	bad := []Prize{
		{Name: "ab", Cost: 50, Type: PrizeDigital},
		{Name: "Gift card", Cost: 0, Type: PrizeDigital},
		{Name: "Gift card", Cost: 50, Type: PrizeDigital, Stock: ptr(-1)},
		{Name: "Gift card", Cost: 50, Type: "regalo"},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate(), "%+v", p)
	}
}

func TestUserCanRedeem(t *testing.T) {
	u := User{PointsAvailable: 20}
	assert.True(t, u.CanRedeem(20))
	assert.True(t, u.CanRedeem(5))
	assert.False(t, u.CanRedeem(21))
}

func TestProfileMissing(t *testing.T) {
	assert.Equal(t, []string{"fecha_nacimiento", "sexo", "localizacion"}, User{}.ProfileMissing())

	u := User{BirthDate: &Date{time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)}, Sex: ptr("F"), Location: ptr("  ")}
	assert.Equal(t, []string{"localizacion"}, u.ProfileMissing())

	u.Location = ptr("Santiago")
	assert.Empty(t, u.ProfileMissing())
	assert.NotNil(t, u.ProfileMissing())
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 33, AgeAt(birth, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 34, AgeAt(birth, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 33, AgeAt(birth, time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, -1, User{}.Age(time.Now()))
	assert.Equal(t, 34, User{BirthDate: &Date{birth}}.Age(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNormalizeQuestionType(t *testing.T) {
	cases := map[string]string{
		"multiple":        QuestionMultiple,
		"opcion_multiple": QuestionMultiple,
		" Texto_Libre ":   QuestionOpen,
		"texto":           QuestionOpen,
		"abierta":         QuestionOpen,
		"escala":          QuestionScale,
		"si_no":           QuestionYesNo,
	}
	for in, want := range cases {
		got, ok := NormalizeQuestionType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := NormalizeQuestionType("ranking")
	assert.False(t, ok)
}

func TestSurveyNormalize(t *testing.T) {
	s := Survey{Title: "Hábitos", Questions: []Question{
		{Text: "¿Fumas?", Type: "si_no"},
		{Text: "Satisfacción", Type: "escala"},
		{Text: "Comentarios", Type: "texto_libre", Options: []Option{{Text: "sobra"}}},
		{Text: "Color", Type: "opcion_multiple", Order: 9, Options: []Option{{Text: "Rojo"}, {Text: "Azul"}}},
	}}
	require.NoError(t, s.Normalize())

	assert.Equal(t, VisibleAll, s.Visibility)
	q := s.Questions
	assert.Equal(t, []Option{{Text: "Sí"}, {Text: "No"}}, q[0].Options)
	require.Len(t, q[1].Options, 5)
	assert.Equal(t, "1", q[1].Options[0].Text)
	assert.Equal(t, "5", q[1].Options[4].Text)
	assert.Equal(t, QuestionOpen, q[2].Type)
	assert.Nil(t, q[2].Options)
	assert.Equal(t, QuestionMultiple, q[3].Type)
	assert.Len(t, q[3].Options, 2)
	assert.Equal(t, []int{1, 2, 3, 9}, []int{q[0].Order, q[1].Order, q[2].Order, q[3].Order})
	assert.NoError(t, s.Validate())

	bad := Survey{Title: "x", Questions: []Question{{Text: "y", Type: "ranking"}}}
	assert.Error(t, bad.Normalize())
}

func TestSurveyValidate_Dates(t *testing.T) {
	start, _ := ParseDate("2024-03-10")
	end, _ := ParseDate("2024-03-01")
	s := Survey{Title: "Fechas", Visibility: VisibleAll, StartDate: &start, EndDate: &end}
	assert.Error(t, s.Validate())

	s.EndDate = &start
	assert.NoError(t, s.Validate())
}

func TestSurveyIsOpen(t *testing.T) {
	start, _ := ParseDate("2024-03-10")
	end, _ := ParseDate("2024-03-20")
	s := Survey{Active: true, StartDate: &start, EndDate: &end}

	assert.False(t, s.IsOpen(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)))
	assert.True(t, s.IsOpen(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)))
	assert.True(t, s.IsOpen(time.Date(2024, 3, 20, 23, 59, 0, 0, time.UTC)))
	assert.False(t, s.IsOpen(time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)))

	s.Active = false
	assert.False(t, s.IsOpen(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.ActiveFields = ActiveFields{}
	assert.EqualError(t, s.Validate(), "Debe haber al menos un campo activo")

	s = DefaultSettings()
	s.ProfilePoints = -1
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.RegistrationBonus = -5
	assert.Error(t, s.Validate())
}

func TestDateUnmarshalJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-02"`), &d))
	assert.Equal(t, "2024-01-02", d.String())

	for _, in := range []string{`null`, `""`} {
		d = Date{time.Now()}
		require.NoError(t, json.Unmarshal([]byte(in), &d), in)
		assert.True(t, d.IsZero(), in)
	}

	for _, in := range []string{`"2024-01-02x"`, `"2024-01-02T10:00:00Z"`, `"02/01/2024"`, `"2024-13-01"`, `20240102`} {
		assert.Error(t, json.Unmarshal([]byte(in), &d), in)
	}

	var body struct {
		Birth *Date `json:"fecha_nacimiento"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"fecha_nacimiento":"1990-06-15"}`), &body))
	require.NotNil(t, body.Birth)
	b, err := json.Marshal(body.Birth)
	require.NoError(t, err)
	assert.JSONEq(t, `"1990-06-15"`, string(b))
}
