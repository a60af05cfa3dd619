package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	RoleAdmin    = 1
	RoleSurveyor = 2
	RoleGeneral  = 3
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts null, "" or exactly YYYY-MM-DD.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("invalid date %s: expected a string", b)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	*d = Date{t}
	return nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
	case []byte:
		p, err := ParseDate(string(v)[:min(len(v), len(dateLayout))])
		if err != nil {
			return err
		}
		*d = p
	case string:
		p, err := ParseDate(v[:min(len(v), len(dateLayout))])
		if err != nil {
			return err
		}
		*d = p
	case nil:
		*d = Date{}
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Format(dateLayout), nil
}

type User struct {
	ID                int        `db:"id_usuario" json:"id_usuario"`
	FirstName         string     `db:"nombre" json:"nombre"`
	LastName          string     `db:"apellido" json:"apellido"`
	Document          string     `db:"documento_numero" json:"documento_numero"`
	Phone             *string    `db:"celular_numero" json:"celular_numero"`
	Email             string     `db:"email" json:"email"`
	RegistrationKind  string     `db:"metodo_registro" json:"metodo_registro"`
	Active            bool       `db:"estado" json:"estado"`
	RoleID            int        `db:"rol_id" json:"rol_id"`
	RegisteredAt      time.Time  `db:"fecha_registro" json:"fecha_registro"`
	GoogleID          *string    `db:"google_id" json:"-"`
	AvatarURL         *string    `db:"avatar_url" json:"avatar_url"`
	AuthProvider      string     `db:"proveedor_auth" json:"proveedor_auth"`
	PointsTotal       int        `db:"puntos_totales" json:"puntos_totales"`
	PointsAvailable   int        `db:"puntos_disponibles" json:"puntos_disponibles"`
	PointsRedeemed    int        `db:"puntos_canjeados" json:"puntos_canjeados"`
	BirthDate         *Date      `db:"fecha_nacimiento" json:"fecha_nacimiento"`
	Sex               *string    `db:"sexo" json:"sexo"`
	Location          *string    `db:"localizacion" json:"localizacion"`
	ProfileDoneAt     *time.Time `db:"fecha_perfil_completo" json:"-"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) IsAdmin() bool { return u.RoleID == RoleAdmin }

func (u User) CanRedeem(cost int) bool {
	return u.PointsAvailable >= cost
}

// ProfileMissing lists the demographic fields still empty.
func (u User) ProfileMissing() []string {
	missing := []string{}
	if u.BirthDate == nil || u.BirthDate.IsZero() {
		missing = append(missing, "fecha_nacimiento")
	}
	if u.Sex == nil || strings.TrimSpace(*u.Sex) == "" {
		missing = append(missing, "sexo")
	}
	if u.Location == nil || strings.TrimSpace(*u.Location) == "" {
		missing = append(missing, "localizacion")
	}
	return missing
}

// Age returns whole years at now, or -1 without a birth date.
func (u User) Age(now time.Time) int {
	if u.BirthDate == nil || u.BirthDate.IsZero() {
		return -1
	}
	return AgeAt(u.BirthDate.Time, now)
}

func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

func AnonymousParticipantID(participationID int) string {
	return fmt.Sprintf("P%06d", participationID)
}

type PointsSummary struct {
	Total     int `db:"puntos_totales" json:"puntos_totales"`
	Available int `db:"puntos_disponibles" json:"puntos_disponibles"`
	Redeemed  int `db:"puntos_canjeados" json:"puntos_canjeados"`
}

const (
	LedgerRegistration   = "registration_bonus"
	LedgerProfile        = "profile_completed"
	LedgerSurvey         = "survey_completed"
	LedgerRedemption     = "redemption"
	LedgerRedemptionBack = "redemption_refund"
)

type LedgerEntry struct {
	ID          int       `db:"id_movimiento" json:"id_movimiento"`
	UserID      int       `db:"id_usuario" json:"id_usuario"`
	Kind        string    `db:"tipo" json:"tipo"`
	Points      int       `db:"puntos" json:"puntos"`
	Reference   *int      `db:"referencia" json:"referencia"`
	Description string    `db:"descripcion" json:"descripcion"`
	CreatedAt   time.Time `db:"fecha" json:"fecha"`
}
