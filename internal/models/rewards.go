package models

import (
	"errors"
	"time"
)

const (
	PrizePhysical = "fisico"
	PrizeDigital  = "digital"
	PrizeDiscount = "descuento"
	PrizeService  = "servicio"
)

const (
	PrizeAvailable    = "disponible"
	PrizeSoldOut      = "agotado"
	PrizeSuspended    = "suspendido"
	PrizeDiscontinued = "descontinuado"
)

const (
	RedemptionRequested = "solicitado"
	RedemptionApproved  = "aprobado"
	RedemptionDelivered = "entregado"
	RedemptionRejected  = "rechazado"
	RedemptionCancelled = "cancelado"
)

func ValidPrizeType(t string) bool {
	switch t {
	case PrizePhysical, PrizeDigital, PrizeDiscount, PrizeService:
		return true
	}
	return false
}

func ValidPrizeStatus(s string) bool {
	switch s {
	case PrizeAvailable, PrizeSoldOut, PrizeSuspended, PrizeDiscontinued:
		return true
	}
	return false
}

type Prize struct {
	ID               int        `db:"id_premio" json:"id_premio"`
	Name             string     `db:"nombre" json:"nombre"`
	Description      *string    `db:"descripcion" json:"descripcion"`
	ImageURL         *string    `db:"imagen_url" json:"imagen_url"`
	Cost             int        `db:"costo_puntos" json:"costo_puntos"`
	Stock            *int       `db:"stock_disponible" json:"stock_disponible"`
	StockOriginal    *int       `db:"stock_original" json:"stock_original"`
	Type             string     `db:"tipo" json:"tipo"`
	Category         *string    `db:"categoria" json:"categoria"`
	Status           string     `db:"estado" json:"estado"`
	Active           bool       `db:"activo" json:"activo"`
	NeedsApproval    bool       `db:"requiere_aprobacion" json:"requiere_aprobacion"`
	Instructions     *string    `db:"instrucciones_canje" json:"instrucciones_canje"`
	Terms            *string    `db:"terminos_condiciones" json:"terminos_condiciones"`
	CreatedAt        time.Time  `db:"fecha_creacion" json:"fecha_creacion"`
	UpdatedAt        *time.Time `db:"fecha_actualizacion" json:"fecha_actualizacion"`
	TotalRedemptions int        `db:"total_canjes" json:"total_canjes"`
}

// IsAvailable reports whether the prize can be redeemed right now.
func (p Prize) IsAvailable() bool {
	if !p.Active || p.Status != PrizeAvailable {
		return false
	}
	return p.Stock == nil || *p.Stock > 0
}

func (p Prize) Validate() error {
	if len([]rune(p.Name)) < 3 || len([]rune(p.Name)) > 255 {
		return errors.New("el nombre debe tener entre 3 y 255 caracteres")
	}
	if p.Cost < 1 {
		return errors.New("el costo en puntos debe ser al menos 1")
	}
	if p.Stock != nil && *p.Stock < 0 {
		return errors.New("el stock no puede ser negativo")
	}
	if !ValidPrizeType(p.Type) {
		return errors.New("tipo de premio inválido")
	}
	if p.Category != nil && len([]rune(*p.Category)) > 100 {
		return errors.New("la categoría no puede superar 100 caracteres")
	}
	return nil
}

type Redemption struct {
	ID            int        `db:"id_canje" json:"id_canje"`
	UserID        int        `db:"id_usuario" json:"id_usuario"`
	PrizeID       int        `db:"id_premio" json:"id_premio"`
	Points        int        `db:"puntos_utilizados" json:"puntos_utilizados"`
	Status        string     `db:"estado" json:"estado"`
	RequestedAt   time.Time  `db:"fecha_solicitud" json:"fecha_solicitud"`
	ApprovedAt    *time.Time `db:"fecha_aprobacion" json:"fecha_aprobacion"`
	DeliveredAt   *time.Time `db:"fecha_entrega" json:"fecha_entrega"`
	Address       *string    `db:"direccion_entrega" json:"direccion_entrega"`
	Phone         *string    `db:"telefono_contacto" json:"telefono_contacto"`
	UserNotes     *string    `db:"observaciones_usuario" json:"observaciones_usuario"`
	AdminNotes    *string    `db:"observaciones_admin" json:"observaciones_admin"`
	ApproverID    *int       `db:"id_admin_aprobador" json:"id_admin_aprobador"`
	TrackingCode  *string    `db:"codigo_seguimiento" json:"codigo_seguimiento"`
	NeedsPickup   bool       `db:"requiere_recogida" json:"requiere_recogida"`
	PrizeName     string     `db:"premio_nombre" json:"premio_nombre"`
	UserName      string     `db:"usuario_nombre" json:"usuario_nombre"`
	IdempotencyID *string    `db:"idempotency_key" json:"-"`
}

var redemptionTransitions = map[string][]string{
	RedemptionRequested: {RedemptionApproved, RedemptionRejected, RedemptionCancelled},
	RedemptionApproved:  {RedemptionDelivered, RedemptionCancelled},
}

func CanTransition(from, to string) bool {
	for _, next := range redemptionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Refunds reports whether moving a redemption into status returns its points and stock.
func Refunds(status string) bool {
	return status == RedemptionRejected || status == RedemptionCancelled
}

type ActiveFields struct {
	BirthDate bool `json:"fecha_nacimiento"`
	Sex       bool `json:"sexo"`
	Location  bool `json:"localizacion"`
}

type DefaultValues struct {
	SexOptions []string `json:"opciones_sexo"`
}

type Settings struct {
	ActiveFields      ActiveFields  `json:"campos_activos"`
	ProfilePoints     int           `json:"puntos_completar_perfil"`
	RegistrationBonus int           `json:"puntos_registro_inicial"`
	Defaults          DefaultValues `json:"valores_defecto"`
}

func DefaultSettings() Settings {
	return Settings{
		ActiveFields:      ActiveFields{BirthDate: true, Sex: true, Location: true},
		ProfilePoints:     5,
		RegistrationBonus: 0,
		Defaults:          DefaultValues{SexOptions: []string{"M", "F", "Otro", "Prefiero no decir"}},
	}
}

func (s Settings) Validate() error {
	f := s.ActiveFields
	if !(f.BirthDate || f.Sex || f.Location) {
		return errors.New("Debe haber al menos un campo activo")
	}
	if s.ProfilePoints < 0 {
		return errors.New("Los puntos por completar perfil no pueden ser negativos")
	}
	if s.RegistrationBonus < 0 {
		return errors.New("Los puntos de registro inicial no pueden ser negativos")
	}
	return nil
}
