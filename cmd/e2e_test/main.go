package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"plazadatos/internal/client"
	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/google/uuid"
)

func baseURL() string {
	if v := os.Getenv("PLAZA_API_URL"); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)
	ctx := context.Background()
	c := client.New(baseURL())
	session := client.NewSession(c)

	// 1. Health Check
	step("GET /health", c.Do(ctx, http.MethodGet, "/health", nil, nil))

	// 2. Register and log in
	suffix := uuid.NewString()[:8]
	email := fmt.Sprintf("e2e-%s@plaza.test", suffix)
	password := "E2eClave123"
	reg := map[string]string{
		"nombre": "E2E", "apellido": "Tester", "documento_numero": "E2E-" + suffix,
		"email": email, "password": password,
	}
	step("POST /auth/registro", c.Do(ctx, http.MethodPost, "/auth/registro", reg, nil))
	_, err := session.Login(ctx, email, password)
	step("POST /auth/login", err)

	// 3. List surveys and answer the first open one
	surveys, err := c.ActiveSurveys(ctx, client.SurveyQuery{})
	step("GET /encuestas/", err)
	for _, s := range surveys {
		if !s.CanParticipate {
			continue
		}
		full, err := c.Survey(ctx, s.ID)
		step(fmt.Sprintf("GET /encuestas/%d", s.ID), err)
		res, err := c.SubmitResponses(ctx, database.SubmitRequest{SurveyID: s.ID, Answers: answersFor(full)})
		step("POST /respuestas/", err)
		fmt.Printf("Earned %d points, total %d\n", res.PointsEarned, res.PointsTotal)

		_, err = c.SubmitResponses(ctx, database.SubmitRequest{SurveyID: s.ID, Answers: answersFor(full)})
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
			log.Fatalf("Expected 400 on second submission, got %v", err)
		}
		fmt.Println("Second submission rejected as expected")
		break
	}

	// 4. Prizes and redemption check
	prizes, err := c.Prizes(ctx)
	step("GET /premios/", err)
	for _, p := range prizes {
		var check map[string]interface{}
		step(fmt.Sprintf("GET /premios/verificar-disponibilidad/%d", p.ID),
			c.Do(ctx, http.MethodGet, fmt.Sprintf("/premios/verificar-disponibilidad/%d", p.ID), nil, &check))
		fmt.Printf("Prize %d: %v\n", p.ID, check)
		break
	}

	pts, err := c.Points(ctx)
	step("GET /usuario/me/puntos", err)
	fmt.Printf("Points: %+v\n", pts)

	fmt.Println("ALL TESTS PASSED")
}

func step(name string, err error) {
	fmt.Printf("Testing %s...\n", name)
	if err != nil {
		log.Fatalf("%s failed: %v", name, err)
	}
}

func answersFor(s models.Survey) []models.Answer {
	answers := make([]models.Answer, 0, len(s.Questions))
	for _, q := range s.Questions {
		a := models.Answer{QuestionID: q.ID}
		if q.IsChoice() && len(q.Options) > 0 {
			id := q.Options[0].ID
			a.OptionID = &id
		} else {
			text := "respuesta e2e"
			a.Text = &text
		}
		answers = append(answers, a)
	}
	return answers
}
