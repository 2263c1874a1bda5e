package models

import "time"

// DefaultDocumentType is used when an employee is registered without one.
const DefaultDocumentType = "CC"

// Employee represents a person submitting self-reports
type Employee struct {
	DocumentID   string     `json:"documento_Identidad"`
	DocumentType string     `json:"tipo_Documento"`
	FullName     string     `json:"nombre_Completo"`
	Gender       *string    `json:"genero,omitempty"`
	Company      *string    `json:"empresa,omitempty"`
	Position     *string    `json:"cargo,omitempty"`
	BirthDate    *time.Time `json:"fecha_Nacimiento,omitempty"`
	Age          *int       `json:"edad,omitempty"`
	Email        *string    `json:"correo,omitempty"`
	Hobby        *string    `json:"hobby,omitempty"`
}

// Report is a single self-report submitted by an employee
type Report struct {
	ID                int64     `json:"id_Reporte"`
	EmployeeID        string    `json:"documento_Identidad"`
	EnergyLevel       *int      `json:"nivel_Energia,omitempty"`
	AverageSleepHours *float64  `json:"horas_Sueno_Promedio,omitempty"`
	Feeling           *string   `json:"como_Se_Siente,omitempty"`
	Photo             *string   `json:"foto,omitempty"`
	Description       *string   `json:"descripcion,omitempty"`
	RegisteredAt      time.Time `json:"fecha_Registro"`
}

// Result is the stored classification of a report. A report has at most one.
type Result struct {
	ID               int64  `json:"id_Resultado"`
	ReportID         int64  `json:"id_Reporte"`
	PrimaryEmotion   string `json:"emocion_Principal"`
	SecondaryEmotion string `json:"emocion_Secundaria"`
	Summary          string `json:"descripcion_General"`
	Model            string `json:"ia_Utilizada"`
}
