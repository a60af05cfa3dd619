package database

import (
	"context"
	"os"
	"testing"
	"time"

	"plazadatos/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sqlx.DB {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL is not set; skipping integration tests")
	}
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	b, err := os.ReadFile("../../migrations/0001_init.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(string(b)); err != nil {
		t.Fatalf("exec migration: %v", err)
	}
	return db
}

func newTestUser(t *testing.T, r *Repo, bonus int) models.User {
	t.Helper()
	tag := uuid.NewString()[:8]
	id, err := r.CreateUser(context.Background(), models.User{
		FirstName: "Prueba",
		LastName:  tag,
		Document:  "DOC-" + tag,
		Email:     "prueba-" + tag + "@example.com",
	}, "$2a$10$invalidhashfortestsonly", bonus)
	require.NoError(t, err)
	u, err := r.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func newTestSurvey(t *testing.T, r *Repo, points int) models.Survey {
	t.Helper()
	start := models.NewDate(time.Now().AddDate(0, 0, -1))
	s := models.Survey{
		Title:      "Encuesta de prueba " + uuid.NewString()[:8],
		StartDate:  &start,
		Points:     points,
		Active:     true,
		Visibility: models.VisibleAll,
		Questions: []models.Question{
			{Text: "¿Te gusta el café?", Type: models.QuestionYesNo},
			{Text: "Comentarios", Type: "texto_libre"},
		},
	}
	require.NoError(t, s.Normalize())
	id, err := r.CreateSurvey(context.Background(), s, 0)
	require.NoError(t, err)
	created, err := r.GetSurvey(context.Background(), id)
	require.NoError(t, err)
	return created
}

func fullAnswers(s models.Survey) []models.Answer {
	answers := []models.Answer{}
	for _, q := range s.Questions {
		if q.IsChoice() {
			opt := q.Options[0].ID
			answers = append(answers, models.Answer{QuestionID: q.ID, OptionID: &opt})
			continue
		}
		text := "todo bien"
		answers = append(answers, models.Answer{QuestionID: q.ID, Text: &text})
	}
	return answers
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	u := newTestUser(t, r, 0)

	_, err := r.CreateUser(context.Background(), models.User{
		FirstName: "Otro",
		LastName:  "Usuario",
		Document:  "DOC-" + uuid.NewString()[:8],
		Email:     u.Email,
	}, "hash", 0)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSubmitResponses_CreditsOnce(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()

	u := newTestUser(t, r, 0)
	s := newTestSurvey(t, r, 15)
	req := SubmitRequest{SurveyID: s.ID, Answers: fullAnswers(s)}

	res, err := r.SubmitResponses(ctx, u.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 15, res.PointsEarned)
	assert.Equal(t, 15, res.PointsTotal)

	_, err = r.SubmitResponses(ctx, u.ID, req)
	assert.ErrorIs(t, err, ErrAlreadyParticipated)

	after, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, after.PointsTotal)
	assert.Equal(t, 15, after.PointsAvailable)

	ok, err := r.HasParticipated(ctx, u.ID, s.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ledger, err := r.PointsLedger(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, models.LedgerSurvey, ledger[0].Kind)
}

func TestSubmitResponses_MissingAnswer(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()

	u := newTestUser(t, r, 0)
	s := newTestSurvey(t, r, 10)
	_, err := r.SubmitResponses(ctx, u.ID, SubmitRequest{SurveyID: s.ID, Answers: fullAnswers(s)[:1]})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	after, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, after.PointsTotal)
}

func TestRedeem_Idempotency(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()

	u := newTestUser(t, r, 100)
	stock := 5
	prizeID, err := r.CreatePrize(ctx, models.Prize{Name: "Taza Plaza", Cost: 30, Stock: &stock, Type: models.PrizePhysical})
	require.NoError(t, err)

	key := "test-redeem-" + uuid.NewString()
	c1, created, err := r.Redeem(ctx, u.ID, RedeemRequest{PrizeID: prizeID}, key)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, models.RedemptionRequested, c1.Status)
	require.NotNil(t, c1.TrackingCode)
	assert.True(t, c1.NeedsPickup)

	c2, created2, err := r.Redeem(ctx, u.ID, RedeemRequest{PrizeID: prizeID}, key)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, c1.ID, c2.ID)

	after, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, after.PointsAvailable)
	assert.Equal(t, 30, after.PointsRedeemed)

	p, err := r.GetPrize(ctx, prizeID)
	require.NoError(t, err)
	require.NotNil(t, p.Stock)
	assert.Equal(t, 4, *p.Stock)
}

func TestRedeem_IdempotencyKeyScopedToUser(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()

	a := newTestUser(t, r, 100)
	b := newTestUser(t, r, 100)
	prizeID, err := r.CreatePrize(ctx, models.Prize{Name: "Libreta Plaza", Cost: 20, Type: models.PrizePhysical})
	require.NoError(t, err)

	key := "shared-" + uuid.NewString()
	addr := "Calle Falsa 123"
	ca, created, err := r.Redeem(ctx, a.ID, RedeemRequest{PrizeID: prizeID, Address: &addr}, key)
	require.NoError(t, err)
	require.True(t, created)

	cb, created, err := r.Redeem(ctx, b.ID, RedeemRequest{PrizeID: prizeID}, key)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, ca.ID, cb.ID)
	assert.Equal(t, b.ID, cb.UserID)
	assert.Nil(t, cb.Address)

	afterB, err := r.GetUserByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, afterB.PointsAvailable)
}

func TestRedeem_InsufficientPoints(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()

	u := newTestUser(t, r, 10)
	prizeID, err := r.CreatePrize(ctx, models.Prize{Name: "Audífonos", Cost: 500, Type: models.PrizePhysical})
	require.NoError(t, err)

	_, _, err = r.Redeem(ctx, u.ID, RedeemRequest{PrizeID: prizeID}, "")
	require.ErrorIs(t, err, ErrInsufficientPoints)
	var ipe *InsufficientPointsError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, 500, ipe.Need)
	assert.Equal(t, 10, ipe.Have)
}
