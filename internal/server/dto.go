package server

import (
	"time"

	"github.com/google/uuid"

	"corpdesk/internal/domain"
)

// DocumentResponse mirrors the field names the frontend consumes;
// they predate this service and are kept verbatim.
type DocumentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	IDDoc              string     `json:"idDoc"`
	Category           string     `json:"category"`
	SignatureStatus    string     `json:"signatureStatus"`
	Prioridad          string     `json:"prioridad"`
	RemitenteID        *uuid.UUID `json:"remitente_id,omitempty"`
	UploadedBy         string     `json:"uploadedBy"`
	RemitenteNombre    string     `json:"remitente_nombre"`
	ReceptorID         *uuid.UUID `json:"receptor_id,omitempty"`
	ReceptorGerenciaID *int64     `json:"receptor_gerencia_id,omitempty"`
	ReceptorNombre     string     `json:"receptor_nombre"`
	TargetDepartment   string     `json:"targetDepartment"`
	FileURL            *string    `json:"fileUrl,omitempty"`
	Archivos           []string   `json:"archivos"`
	FechaCreacion      time.Time  `json:"fecha_creacion" format:"date-time"`
	UploadDate         string     `json:"uploadDate"`
	UploadTime         string     `json:"uploadTime"`
	FechaCaducidad     time.Time  `json:"fecha_caducidad" format:"date-time"`
	TenantID           *uuid.UUID `json:"tenant_id,omitempty"`
	Contenido          *string    `json:"contenido,omitempty"`
	Leido              bool       `json:"leido"`
}

func documentResponse(d domain.Document) DocumentResponse {
	archivos := d.Archivos
	if archivos == nil {
		archivos = []string{}
	}
	return DocumentResponse{
		ID:                 d.ID,
		Name:               d.Titulo,
		IDDoc:              d.Correlativo,
		Category:           d.TipoDocumento,
		SignatureStatus:    d.Estado,
		Prioridad:          d.Prioridad,
		RemitenteID:        d.RemitenteID,
		UploadedBy:         d.RemitenteNombre,
		RemitenteNombre:    d.RemitenteNombre,
		ReceptorID:         d.ReceptorID,
		ReceptorGerenciaID: d.ReceptorGerenciaID,
		ReceptorNombre:     d.ReceptorNombre,
		TargetDepartment:   d.GerenciaNombre,
		FileURL:            d.URLArchivo,
		Archivos:           archivos,
		FechaCreacion:      d.FechaCreacion,
		UploadDate:         d.FechaCreacion.Format("02/01/2006"),
		UploadTime:         d.FechaCreacion.Format("15:04"),
		FechaCaducidad:     d.FechaCaducidad,
		TenantID:           d.TenantID,
		Contenido:          d.Contenido,
		Leido:              d.Leido,
	}
}

func mapDocuments(docs []domain.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse(d))
	}
	return out
}

// AttachmentUpload carries one file of a document creation; content
// travels base64-encoded.
type AttachmentUpload struct {
	Filename string `json:"filename" minLength:"1"`
	Content  []byte `json:"content"`
}

type CreateDocumentRequest struct {
	Titulo             string             `json:"titulo" minLength:"1"`
	Correlativo        string             `json:"correlativo,omitempty"`
	TipoDocumento      string             `json:"tipo_documento" minLength:"1"`
	Prioridad          string             `json:"prioridad,omitempty"`
	ReceptorID         *uuid.UUID         `json:"receptor_id,omitempty"`
	ReceptorGerenciaID *int64             `json:"receptor_gerencia_id,omitempty"`
	Contenido          *string            `json:"contenido,omitempty"`
	Archivos           []AttachmentUpload `json:"archivos,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username" minLength:"3"`
	Nombre   string `json:"nombre" minLength:"1"`
	Apellido string `json:"apellido,omitempty"`
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"8"`
	Gerencia string `json:"gerencia,omitempty"`
}

type LoginRequest struct {
	Login    string `json:"login" minLength:"1"`
	Password string `json:"password" minLength:"1"`
}

type TokenResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	User        domain.Profile `json:"user"`
}

type CreateTicketRequest struct {
	Titulo        string  `json:"title" minLength:"1"`
	Descripcion   string  `json:"description"`
	Area          string  `json:"area,omitempty"`
	Prioridad     string  `json:"priority,omitempty"`
	Observaciones *string `json:"observations,omitempty"`
}

type UpdateTicketRequest struct {
	Titulo        *string    `json:"title,omitempty"`
	Descripcion   *string    `json:"description,omitempty"`
	Estado        *string    `json:"status,omitempty"`
	Prioridad     *string    `json:"priority,omitempty"`
	Observaciones *string    `json:"observations,omitempty"`
	TecnicoID     *uuid.UUID `json:"tecnico_id,omitempty"`
}

type CreateSecurityLogRequest struct {
	UsuarioID uuid.UUID `json:"usuario_id"`
	Evento    string    `json:"evento,omitempty"`
	Nivel     string    `json:"nivel,omitempty"`
	IPOrigen  string    `json:"ip_origen,omitempty"`
}

type CreateGerenciaRequest struct {
	Nombre    string `json:"nombre" minLength:"1"`
	Siglas    string `json:"siglas" minLength:"1"`
	Categoria string `json:"categoria,omitempty"`
}

type UpdateGerenciaRequest struct {
	Nombre    *string `json:"nombre,omitempty"`
	Siglas    *string `json:"siglas,omitempty"`
	Categoria *string `json:"categoria,omitempty"`
}
