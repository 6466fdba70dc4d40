package records

import (
	"errors"
	"time"
)

var (
	ErrDuplicate = errors.New("records: duplicate identifier")
	ErrNotFound  = errors.New("records: not found")
)

// StatusScheduled is the status every new appointment starts with.
const StatusScheduled = "Programada"

type Doctor struct {
	ID        int64  `json:"id"`
	Name      string `json:"nombre"`
	Specialty string `json:"especialidad"`
	Available bool   `json:"disponible"`
	Phone     string `json:"telefono,omitempty"`
	Email     string `json:"email,omitempty"`
}

type Patient struct {
	ID           string    `json:"id"`
	Name         string    `json:"nombre"`
	Age          int       `json:"edad"`
	Phone        string    `json:"telefono,omitempty"`
	Email        string    `json:"email,omitempty"`
	Symptoms     string    `json:"sintomas,omitempty"`
	Urgency      string    `json:"urgencia,omitempty"`
	RegisteredAt time.Time `json:"fecha_registro"`
}

// NewAppointment carries the fields needed to book an appointment.
// Date is YYYY-MM-DD and Time is HH:MM.
type NewAppointment struct {
	PatientID string
	DoctorID  int64
	Date      string
	Time      string
	Reason    string
	Urgency   string
}

type Appointment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"paciente_id"`
	DoctorID  int64     `json:"doctor_id"`
	Date      string    `json:"fecha"`
	Time      string    `json:"hora"`
	Reason    string    `json:"motivo"`
	Urgency   string    `json:"urgencia,omitempty"`
	Status    string    `json:"estado"`
	CreatedAt time.Time `json:"fecha_creacion"`

	// Filled on reads that join the related rows.
	PatientName     string `json:"paciente_nombre,omitempty"`
	DoctorName      string `json:"doctor_nombre,omitempty"`
	DoctorSpecialty string `json:"doctor_especialidad,omitempty"`
}

// Slot is a bookable date/time pair for one doctor.
type Slot struct {
	DoctorID int64  `json:"doctor_id"`
	Date     string `json:"fecha"`
	Time     string `json:"hora"`
}

type Stats struct {
	TotalPatients     int            `json:"total_pacientes"`
	TotalAppointments int            `json:"total_citas"`
	AvailableDoctors  int            `json:"doctores_disponibles"`
	PatientsByUrgency map[string]int `json:"pacientes_por_urgencia"`
}
