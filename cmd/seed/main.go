package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"plazadatos/internal/auth"
	"plazadatos/internal/config"
	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/sirupsen/logrus"
)

func strp(s string) *string { return &s }

func intp(n int) *int { return &n }

func choice(text string, opts ...string) models.Question {
	q := models.Question{Text: text, Type: models.QuestionMultiple}
	for _, o := range opts {
		q.Options = append(q.Options, models.Option{Text: o})
	}
	return q
}

func sampleSurveys(today time.Time) []models.Survey {
	start := models.NewDate(today)
	end := models.NewDate(today.AddDate(0, 3, 0))
	base := func(title, desc string, points int, minutes string, qs ...models.Question) models.Survey {
		return models.Survey{
			Title: title, Description: strp(desc), Points: points, Active: true,
			StartDate: &start, EndDate: &end, EstimatedTime: strp(minutes),
			Visibility: models.VisibleAll, Questions: qs,
		}
	}
	return []models.Survey{
		base("Satisfacción del Servicio al Cliente", "Cuéntanos cómo fue tu última atención.", 50, "5 minutos",
			choice("¿Cómo calificarías la atención recibida?", "Excelente", "Buena", "Regular", "Mala"),
			models.Question{Text: "¿Qué mejorarías de nuestro servicio?", Type: models.QuestionOpen},
			choice("¿Recomendarías nuestros servicios?", "Definitivamente sí", "Probablemente sí", "No estoy seguro", "Probablemente no"),
		),
		base("Hábitos de Consumo Digital", "Uso de plataformas y dispositivos.", 75, "7 minutos",
			choice("¿Cuántas horas al día usas el celular?", "Menos de 2", "Entre 2 y 4", "Entre 4 y 6", "Más de 6"),
			models.Question{Text: "¿Compras en línea al menos una vez al mes?", Type: models.QuestionYesNo},
		),
		base("Preferencias de Alimentación Saludable", "Tus hábitos de alimentación.", 100, "6 minutos",
			models.Question{Text: "¿Qué tan saludable consideras tu dieta?", Type: models.QuestionScale},
			models.Question{Text: "¿Qué alimento te gustaría incorporar?", Type: models.QuestionOpen},
		),
	}
}

func samplePrizes() []models.Prize {
	return []models.Prize{
		{Name: "Tarjeta Regalo Amazon $10", Cost: 100, Stock: intp(50), Type: models.PrizeDigital, Category: strp("Tarjetas Regalo")},
		{Name: "Auriculares Bluetooth", Cost: 500, Stock: intp(10), Type: models.PrizePhysical, Category: strp("Tecnología"), NeedsApproval: true},
		{Name: "Descuento 20% en Restaurantes", Cost: 75, Type: models.PrizeDiscount, Category: strp("Gastronomía")},
		{Name: "Consulta Nutricional Online", Cost: 200, Stock: intp(20), Type: models.PrizeService, Category: strp("Salud y Bienestar")},
		{Name: "Curso Online de Programación", Cost: 800, Stock: intp(100), Type: models.PrizeDigital, Category: strp("Educación")},
	}
}

func main() {
	email := flag.String("admin-email", "admin@encuestas.com", "administrator email")
	password := flag.String("admin-password", "Admin1234", "administrator password")
	withSamples := flag.Bool("samples", true, "create sample surveys and prizes")
	flag.Parse()

	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	repo := database.New(db, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	adminID, err := seedAdmin(ctx, repo, *email, *password)
	if err != nil {
		logger.Fatalf("seed admin: %v", err)
	}
	if *withSamples {
		if err := seedSurveys(ctx, repo, adminID, logger); err != nil {
			logger.Fatalf("seed surveys: %v", err)
		}
		if err := seedPrizes(ctx, repo, logger); err != nil {
			logger.Fatalf("seed prizes: %v", err)
		}
	}
	fmt.Printf("Admin: %s / %s\n", *email, *password)
}

func seedAdmin(ctx context.Context, repo *database.Repo, email, password string) (int, error) {
	if u, _, err := repo.GetUserByEmail(ctx, email); err == nil {
		fmt.Printf("Admin %s already exists (id %d)\n", email, u.ID)
		return u.ID, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return 0, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, err
	}
	return repo.CreateUser(ctx, models.User{
		FirstName:        "Administrador",
		LastName:         "Sistema",
		Document:         "00000000",
		Email:            email,
		RegistrationKind: "local",
		AuthProvider:     "local",
		Active:           true,
		RoleID:           models.RoleAdmin,
	}, hash, 0)
}

func seedSurveys(ctx context.Context, repo *database.Repo, adminID int, logger *logrus.Logger) error {
	existing, err := repo.SurveysSummary(ctx)
	if err != nil {
		return err
	}
	have := map[string]bool{}
	for _, s := range existing {
		have[s.Title] = true
	}
	for _, s := range sampleSurveys(time.Now()) {
		if have[s.Title] {
			logger.Infof("survey %q exists, skipping", s.Title)
			continue
		}
		if err := s.Normalize(); err != nil {
			return err
		}
		if _, err := repo.CreateSurvey(ctx, s, adminID); err != nil {
			return fmt.Errorf("%s: %w", s.Title, err)
		}
	}
	return nil
}

func seedPrizes(ctx context.Context, repo *database.Repo, logger *logrus.Logger) error {
	existing, err := repo.ListPrizes(ctx, false)
	if err != nil {
		return err
	}
	have := map[string]bool{}
	for _, p := range existing {
		have[p.Name] = true
	}
	for _, p := range samplePrizes() {
		if have[p.Name] {
			logger.Infof("prize %q exists, skipping", p.Name)
			continue
		}
		if _, err := repo.CreatePrize(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return nil
}
