// Package agent runs intake tasks against the two assistant roles. A Runner
// executes a list of tasks sequentially; each task after the first sees the
// outputs of the ones before it.
package agent

import "context"

// Kind names what a task asks for, independent of the prose in its
// description.
type Kind string

const (
	KindTriage       Kind = "triage"
	KindDoctorLookup Kind = "doctor_lookup"
	KindNearestSlot  Kind = "nearest_slot"
	KindConfirm      Kind = "confirm"
	KindNegotiate    Kind = "negotiate"
)

// Param keys shared by task templates and the offline crew. They match the
// conversation context keys.
const (
	ParamName        = "nombre"
	ParamAge         = "edad"
	ParamSymptoms    = "sintomas"
	ParamPhone       = "telefono"
	ParamSpecialty   = "especialidad"
	ParamUrgency     = "urgencia"
	ParamDoctorID    = "doctor_id"
	ParamDoctorName  = "doctor_nombre"
	ParamDate        = "fecha"
	ParamTime        = "hora"
	ParamDesiredDate = "fecha_deseada"
	ParamDesiredTime = "hora_deseada"
	ParamPatientID   = "paciente_id"
	ParamAppointment = "cita_id"
)

type Task struct {
	Stage          string
	Kind           Kind
	Role           Role
	Description    string
	ExpectedOutput string
	Params         map[string]any
}

// ToolCall records one persistence tool invocation made while running a task.
type ToolCall struct {
	Name      string         `json:"nombre"`
	Arguments map[string]any `json:"argumentos,omitempty"`
	Result    string         `json:"resultado"`
}

// TaskOutput is the envelope a role returns for one task. Structured is nil
// unless the runner produced typed fields alongside the prose.
type TaskOutput struct {
	Role        Role
	Description string
	Raw         string
	Structured  map[string]any
	ToolCalls   []ToolCall
}

type CrewOutput struct {
	Raw   string
	Tasks []TaskOutput
}

type Runner interface {
	Run(ctx context.Context, tasks []Task) (*CrewOutput, error)
}
