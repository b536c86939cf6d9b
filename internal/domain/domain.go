package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document estados. The sweep only ever advances along
// en-proceso -> pendiente -> omitido; everything else is set explicitly.
const (
	DocumentInProgress = "en-proceso"
	DocumentPending    = "pendiente"
	DocumentOmitted    = "omitido"
	DocumentSigned     = "firmado"
	DocumentRejected   = "rechazado"
)

// Tray names used when hiding a document from a user's view.
const (
	TrayInbox = "inbox"
	TraySent  = "sent"
)

type Document struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           *uuid.UUID `json:"tenant_id,omitempty"`
	Titulo             string     `json:"titulo"`
	Correlativo        string     `json:"correlativo"`
	TipoDocumento      string     `json:"tipo_documento"`
	Estado             string     `json:"estado" enum:"en-proceso,pendiente,omitido,firmado,rechazado"`
	Prioridad          string     `json:"prioridad"`
	RemitenteID        *uuid.UUID `json:"remitente_id,omitempty"`
	RemitenteNombre    string     `json:"remitente_nombre,omitempty"`
	ReceptorID         *uuid.UUID `json:"receptor_id,omitempty"`
	ReceptorNombre     string     `json:"receptor_nombre,omitempty"`
	ReceptorGerenciaID *int64     `json:"receptor_gerencia_id,omitempty"`
	GerenciaNombre     string     `json:"gerencia_nombre,omitempty"`
	URLArchivo         *string    `json:"url_archivo,omitempty"`
	Archivos           []string   `json:"archivos"`
	Contenido          *string    `json:"contenido,omitempty"`
	Leido              bool       `json:"leido"`
	FechaCreacion      time.Time  `json:"fecha_creacion" format:"date-time"`
	FechaCaducidad     time.Time  `json:"fecha_caducidad" format:"date-time"`
	UltimaActividad    time.Time  `json:"fecha_ultima_actividad" format:"date-time"`
}

type Profile struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Nombre         string     `json:"nombre"`
	Apellido       string     `json:"apellido"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	RolID          int64      `json:"rol_id"`
	RolNombre      string     `json:"role"`
	GerenciaID     *int64     `json:"gerencia_id,omitempty"`
	GerenciaNombre string     `json:"gerencia_depto,omitempty"`
	Estado         bool       `json:"estado"`
	TenantID       *uuid.UUID `json:"tenant_id,omitempty"`
}

type Gerencia struct {
	ID        int64  `json:"id"`
	Nombre    string `json:"nombre"`
	Siglas    string `json:"siglas"`
	Categoria string `json:"categoria"`
}

type Ticket struct {
	ID                int64      `json:"id"`
	Titulo            string     `json:"title"`
	Descripcion       string     `json:"description"`
	Area              string     `json:"area"`
	Prioridad         string     `json:"priority"`
	Estado            string     `json:"status"`
	Observaciones     *string    `json:"observations,omitempty"`
	SolicitanteID     *uuid.UUID `json:"solicitante_id,omitempty"`
	SolicitanteNombre string     `json:"solicitante_nombre,omitempty"`
	TecnicoID         *uuid.UUID `json:"tecnico_id,omitempty"`
	FechaCreacion     time.Time  `json:"fecha_creacion" format:"date-time"`
}

type SecurityLog struct {
	ID        int64      `json:"id"`
	UsuarioID *uuid.UUID `json:"usuario_id,omitempty"`
	Username  string     `json:"username"`
	Evento    string     `json:"evento"`
	Nivel     string     `json:"nivel"`
	IPOrigen  string     `json:"ip_address"`
	Fecha     time.Time  `json:"fecha_hora" format:"date-time"`
}

type Announcement struct {
	Badge       string `json:"badge"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Urgency     string `json:"urgency"`
}

// Membership links a user to an organization (tenant) with a role.
type Membership struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Role           string    `json:"role"`
}
