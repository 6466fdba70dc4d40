package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"medintake/internal/records"
)

const (
	ToolFindDoctors       = "consultar_doctores"
	ToolAvailability      = "consultar_disponibilidad"
	ToolRegisterPatient   = "registrar_paciente"
	ToolCreateAppointment = "crear_cita"
	ToolStats             = "obtener_estadisticas"

	// ToolDelegate is the only tool of the triage role. It runs a sub-task
	// on the records role and returns its answer.
	ToolDelegate = "delegar_a_registros"
)

// ToolSpec describes a tool to the model. Parameters is a JSON schema.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

var toolSpecs = map[string]ToolSpec{
	ToolFindDoctors: {
		Name:        ToolFindDoctors,
		Description: "Consulta doctores disponibles por especialidad. Sin especialidad devuelve todos los doctores disponibles.",
		Parameters: object(map[string]any{
			"especialidad": str("Especialidad médica a buscar"),
		}),
	},
	ToolAvailability: {
		Name: ToolAvailability,
		Description: "Sin fecha ni hora sugiere la cita más próxima del doctor según la urgencia. " +
			"Con fecha (YYYY-MM-DD) y hora (HH:MM) verifica ese horario y sugiere el siguiente si está ocupado.",
		Parameters: object(map[string]any{
			"doctor_id": integer("ID del doctor"),
			"urgencia":  str("Nivel de urgencia (ALTA, MEDIA, BAJA)"),
			"fecha":     str("Fecha deseada YYYY-MM-DD"),
			"hora":      str("Hora deseada HH:MM"),
		}, "doctor_id"),
	},
	ToolRegisterPatient: {
		Name:        ToolRegisterPatient,
		Description: "Registra un nuevo paciente con su información médica y personal.",
		Parameters: object(map[string]any{
			"id_paciente": str("ID único del paciente"),
			"nombre":      str("Nombre completo del paciente"),
			"edad":        integer("Edad del paciente"),
			"sintomas":    str("Síntomas reportados"),
			"urgencia":    str("Nivel de urgencia (ALTA, MEDIA, BAJA)"),
			"telefono":    str("Teléfono del paciente"),
			"email":       str("Email del paciente"),
		}, "id_paciente", "nombre", "edad"),
	},
	ToolCreateAppointment: {
		Name:        ToolCreateAppointment,
		Description: "Crea una cita médica entre un paciente registrado y un doctor disponible.",
		Parameters: object(map[string]any{
			"paciente_id": str("ID del paciente"),
			"doctor_id":   integer("ID del doctor"),
			"fecha":       str("Fecha de la cita (YYYY-MM-DD)"),
			"hora":        str("Hora de la cita (HH:MM)"),
			"motivo":      str("Motivo de la consulta"),
			"urgencia":    str("Nivel de urgencia"),
		}, "paciente_id", "doctor_id", "fecha", "hora"),
	},
	ToolStats: {
		Name:        ToolStats,
		Description: "Obtiene estadísticas actuales del sistema médico.",
		Parameters:  object(map[string]any{}),
	},
	ToolDelegate: {
		Name:        ToolDelegate,
		Description: "Delega una consulta al Administrador de Base de Datos Médica y devuelve su respuesta.",
		Parameters: object(map[string]any{
			"tarea": str("Instrucción completa para el administrador de base de datos"),
		}, "tarea"),
	},
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

// SpecsFor returns the tool specs a profile may use, sorted by name.
func SpecsFor(p Profile) []ToolSpec {
	names := append([]string(nil), p.Tools...)
	if p.CanDelegate {
		names = append(names, ToolDelegate)
	}
	sort.Strings(names)
	out := make([]ToolSpec, 0, len(names))
	for _, n := range names {
		out = append(out, toolSpecs[n])
	}
	return out
}

// Toolbox exposes the persistence gateway as the records role's tools.
// Failures are rendered into the result string, never returned as errors.
type Toolbox struct {
	gw records.Gateway
}

func NewToolbox(gw records.Gateway) *Toolbox {
	return &Toolbox{gw: gw}
}

var errUnknownTool = errors.New("unknown tool")

// Call dispatches a tool by name with model-style arguments.
func (t *Toolbox) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolFindDoctors:
		return t.FindDoctors(ctx, getString(args, "especialidad")), nil
	case ToolAvailability:
		return t.Availability(ctx, getInt64(args, "doctor_id"), getString(args, "urgencia"),
			getString(args, "fecha"), getString(args, "hora")), nil
	case ToolRegisterPatient:
		id := getString(args, "id_paciente")
		if id == "" {
			id = getString(args, "paciente_id")
		}
		return t.RegisterPatient(ctx, records.Patient{
			ID:       id,
			Name:     getString(args, "nombre"),
			Age:      int(getInt64(args, "edad")),
			Symptoms: getString(args, "sintomas"),
			Urgency:  getString(args, "urgencia"),
			Phone:    getString(args, "telefono"),
			Email:    getString(args, "email"),
		}), nil
	case ToolCreateAppointment:
		return t.CreateAppointment(ctx, records.NewAppointment{
			PatientID: getString(args, "paciente_id"),
			DoctorID:  getInt64(args, "doctor_id"),
			Date:      getString(args, "fecha"),
			Time:      getString(args, "hora"),
			Reason:    getString(args, "motivo"),
			Urgency:   getString(args, "urgencia"),
		}), nil
	case ToolStats:
		return t.Stats(ctx), nil
	default:
		return "", fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

func (t *Toolbox) FindDoctors(ctx context.Context, specialty string) string {
	docs, err := t.gw.FindDoctors(ctx, specialty)
	if err != nil {
		return fmt.Sprintf("❌ Error al consultar doctores: %v", err)
	}
	if len(docs) == 0 {
		msg := "No se encontraron doctores disponibles"
		if specialty != "" {
			msg += " para la especialidad " + specialty
		}
		return msg
	}
	b, _ := json.MarshalIndent(docs, "", "  ")
	return string(b)
}

// Availability suggests the nearest slot, or checks a requested one when
// both date and hour are given.
func (t *Toolbox) Availability(ctx context.Context, doctorID int64, urgency, date, hour string) string {
	doc, err := t.gw.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return fmt.Sprintf("❌ Error: Doctor con ID %d no existe o no está disponible", doctorID)
		}
		return fmt.Sprintf("❌ Error al consultar disponibilidad: %v", err)
	}
	name := WithArticle(doc.Name)

	if date != "" && hour != "" {
		free, err := t.gw.IsSlotFree(ctx, doctorID, date, hour)
		if err != nil {
			return fmt.Sprintf("❌ Error al consultar disponibilidad: %v", err)
		}
		if free {
			return fmt.Sprintf("Sí, %s está disponible el %s a las %s. ¿Deseas confirmar la cita?", name, date, hour)
		}
		slot, err := t.gw.NextAvailableSlot(ctx, doctorID, urgency)
		if err != nil {
			return fmt.Sprintf("El horario solicitado (%s %s) no está disponible y no hay horarios libres próximos con %s.", date, hour, name)
		}
		return fmt.Sprintf("El horario solicitado (%s %s) no está disponible. La siguiente cita disponible con %s es el %s a las %s. ¿Te gustaría agendarla?",
			date, hour, name, slot.Date, slot.Time)
	}

	slot, err := t.gw.NextAvailableSlot(ctx, doctorID, urgency)
	if err != nil {
		return fmt.Sprintf("No hay horarios disponibles próximos con %s.", name)
	}
	return fmt.Sprintf("La cita más próxima disponible con %s es el %s a las %s. ¿Te gustaría agendarla?", name, slot.Date, slot.Time)
}

func (t *Toolbox) RegisterPatient(ctx context.Context, p records.Patient) string {
	id, err := t.gw.RegisterPatient(ctx, p)
	if errors.Is(err, records.ErrDuplicate) {
		return fmt.Sprintf("❌ Error: Ya existe un paciente con ID %s", p.ID)
	}
	if err != nil {
		return fmt.Sprintf("❌ Error al registrar paciente: %v", err)
	}
	return fmt.Sprintf("✅ Paciente %s registrado exitosamente con ID: %s", p.Name, id)
}

func (t *Toolbox) CreateAppointment(ctx context.Context, a records.NewAppointment) string {
	appt, err := t.gw.CreateAppointment(ctx, a)
	if errors.Is(err, records.ErrNotFound) {
		return fmt.Sprintf("❌ Error: No existe el paciente %s o el doctor con ID %d no está disponible", a.PatientID, a.DoctorID)
	}
	if errors.Is(err, records.ErrDuplicate) {
		return "❌ Error: Ya existe una cita con ese ID"
	}
	if err != nil {
		return fmt.Sprintf("❌ Error al crear cita: %v", err)
	}
	return fmt.Sprintf("✅ Cita creada exitosamente:\n- ID Cita: %s\n- Paciente: %s\n- Doctor: %s (%s)\n- Fecha: %s a las %s\n- Motivo: %s",
		appt.ID, appt.PatientName, appt.DoctorName, appt.DoctorSpecialty, appt.Date, appt.Time, appt.Reason)
}

func (t *Toolbox) Stats(ctx context.Context) string {
	st, err := t.gw.Stats(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Error al obtener estadísticas: %v", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 ESTADÍSTICAS DEL SISTEMA:\n- Total de pacientes: %d\n- Total de citas: %d\n- Doctores disponibles: %d\n\nPacientes por urgencia:",
		st.TotalPatients, st.TotalAppointments, st.AvailableDoctors)
	keys := make([]string, 0, len(st.PatientsByUrgency))
	for k := range st.PatientsByUrgency {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s: %d", k, st.PatientsByUrgency[k])
	}
	return b.String()
}

// WithArticle prefixes a doctor's display name with the Spanish article
// matching its title: "la Dra. López", "el Dr. García".
func WithArticle(name string) string {
	if strings.HasPrefix(name, "Dra.") {
		return "la " + name
	}
	return "el " + name
}

// --- internal helpers --- //

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// getInt64 accepts the shapes a number takes after JSON decoding or when
// copied from a conversation context.
func getInt64(m map[string]any, key string) int64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	}
	return 0
}
