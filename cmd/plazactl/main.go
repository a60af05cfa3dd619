// Command plazactl talks to a Plaza de Datos server from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"plazadatos/internal/client"
	"plazadatos/internal/database"
	"plazadatos/internal/export"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const usage = `usage: plazactl [-api URL] [-session FILE] <command> [flags]

commands:
  login -email E -password P   start a session
  logout                       forget the stored session
  whoami                       show the logged-in user and points
  encuestas                    list active surveys
  premios                      list prizes
  canjear -premio ID           redeem a prize
  exportar -dataset D -format F -out FILE [-encuesta ID]
                               export admin data (participaciones, encuestas, canjes, respuestas)
`

type app struct {
	client  *client.Client
	session *client.Session
	out     io.Writer
	log     *logrus.Logger
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "plazadatos", "session.json")
}

func main() {
	_ = godotenv.Load()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	global := flag.NewFlagSet("plazactl", flag.ExitOnError)
	apiURL := global.String("api", envOr("PLAZA_API_URL", "http://localhost:8000"), "API base URL")
	sessionFile := global.String("session", defaultSessionPath(), "session file")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	c := client.New(*apiURL,
		client.WithTokenStore(client.NewFileStore(*sessionFile)),
		client.WithLogger(logger),
		client.WithNotifier(func(msg string) { fmt.Fprintln(os.Stderr, msg) }),
	)
	a := &app{client: c, session: client.NewSession(c), out: os.Stdout, log: logger}
	if _, err := a.session.Restore(); err != nil {
		logger.Warnf("restore session: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := a.run(ctx, global.Arg(0), global.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.session.Logout()
	case "whoami":
		return a.whoami(ctx)
	case "encuestas":
		return a.surveys(ctx)
	case "premios":
		return a.prizes(ctx)
	case "canjear":
		return a.redeem(ctx, args)
	case "exportar":
		return a.export(ctx, args)
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func (a *app) requireSession() error {
	if !a.session.IsAuthenticated() {
		return errors.New("no hay sesión activa; ejecuta plazactl login")
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("PLAZA_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("-email y -password son obligatorios")
	}
	u, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sesión iniciada como %s (%s)\n", u.FullName(), u.Email)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	u, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	claims, _ := a.session.Claims()
	fmt.Fprintf(a.out, "%s <%s>\npuntos disponibles: %d\nrol: %d\nexpira: %s\n",
		u.FullName(), u.Email, u.PointsAvailable, u.RoleID, claims.ExpiresAt.Time.Format(time.RFC3339))
	return nil
}

func (a *app) surveys(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	list, err := a.client.ActiveSurveys(ctx, client.SurveyQuery{Limit: 100})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTÍTULO\tPUNTOS\tPREGUNTAS\tESTADO")
	for _, s := range list {
		state := "disponible"
		if s.AlreadyAnswered {
			state = "respondida"
		} else if !s.CanParticipate {
			state = "cerrada"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", s.ID, s.Title, s.Points, s.TotalQuestions, state)
	}
	return w.Flush()
}

func (a *app) prizes(ctx context.Context) error {
	list, err := a.client.Prizes(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tCOSTO\tSTOCK\tDISPONIBLE")
	for _, p := range list {
		stock := "ilimitado"
		if p.Stock != nil {
			stock = fmt.Sprint(*p.Stock)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%t\n", p.ID, p.Name, p.Cost, stock, p.Available)
	}
	return w.Flush()
}

func (a *app) redeem(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("canjear", flag.ContinueOnError)
	prize := fs.Int("premio", 0, "prize id")
	address := fs.String("direccion", "", "delivery address")
	phone := fs.String("telefono", "", "contact phone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prize <= 0 {
		return errors.New("-premio es obligatorio")
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	req := database.RedeemRequest{PrizeID: *prize}
	if *address != "" {
		req.Address = address
	}
	if *phone != "" {
		req.Phone = phone
	}
	res, err := a.client.Redeem(ctx, req, uuid.NewString())
	if err != nil {
		return err
	}
	code := ""
	if res.Redemption.TrackingCode != nil {
		code = *res.Redemption.TrackingCode
	}
	fmt.Fprintf(a.out, "%s. Canje %d (%s) código %s\n", res.Message, res.Redemption.ID, res.Redemption.Status, code)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("exportar", flag.ContinueOnError)
	dataset := fs.String("dataset", "participaciones", "participaciones, encuestas, canjes or respuestas")
	format := fs.String("format", "csv", "pdf, xlsx, csv or json")
	out := fs.String("out", "", "output file (default derived from dataset)")
	survey := fs.Int("encuesta", 0, "survey id for respuestas")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	if !a.session.IsAdmin() {
		return errors.New("exportar requiere una cuenta de administrador")
	}

	table, raw, base, err := a.fetch(ctx, *dataset, *survey)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = export.Filename(base, f, time.Now())
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(file, f, table, raw); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d filas exportadas a %s\n", len(table.Rows), path)
	return nil
}

func (a *app) fetch(ctx context.Context, dataset string, surveyID int) (export.Table, interface{}, string, error) {
	switch strings.ToLower(dataset) {
	case "participaciones":
		rows, err := a.client.RecentParticipations(ctx, 100)
		return export.ParticipationsTable(rows), rows, "participaciones", err
	case "encuestas":
		rows, err := a.client.SurveysSummary(ctx)
		return export.SurveysTable(rows), rows, "encuestas", err
	case "canjes":
		rows, err := a.client.AdminRedemptions(ctx, "")
		return export.RedemptionsTable(rows), rows, "canjes", err
	case "respuestas":
		if surveyID <= 0 {
			return export.Table{}, nil, "", errors.New("-encuesta es obligatorio para respuestas")
		}
		s, err := a.client.Survey(ctx, surveyID)
		if err != nil {
			return export.Table{}, nil, "", err
		}
		rows, err := a.client.DetailedResponses(ctx, surveyID)
		return export.ResponsesTable(s.Title, rows), rows, "respuestas_" + s.Title, err
	}
	return export.Table{}, nil, "", fmt.Errorf("dataset desconocido: %s", dataset)
}
