package agent

import (
	"context"
	"fmt"
	"strings"

	"medintake/internal/observability"
)

// OfflineCrew answers tasks without a model: keyword triage and direct tool
// calls. It reads the typed task params, falling back to the structured
// fields of earlier outputs, and writes prose in the same shape the model is
// asked for so the same extraction applies.
type OfflineCrew struct {
	tools *Toolbox
}

func NewOfflineCrew(tools *Toolbox) *OfflineCrew {
	return &OfflineCrew{tools: tools}
}

func (c *OfflineCrew) Run(ctx context.Context, tasks []Task) (*CrewOutput, error) {
	out := &CrewOutput{}
	for i, t := range tasks {
		to, err := c.runTask(ctx, t, out.Tasks)
		if err != nil {
			return nil, fmt.Errorf("task %d (%s): %w", i+1, t.Kind, err)
		}
		observability.LoggerFromContext(ctx).Info("offline task", "index", i+1, "kind", t.Kind, "tool_calls", len(to.ToolCalls))
		out.Tasks = append(out.Tasks, to)
	}
	if n := len(out.Tasks); n > 0 {
		out.Raw = out.Tasks[n-1].Raw
	}
	return out, nil
}

func (c *OfflineCrew) runTask(ctx context.Context, t Task, prior []TaskOutput) (TaskOutput, error) {
	params := withPrior(t.Params, prior)
	to := TaskOutput{Role: t.Role, Description: t.Description}

	switch t.Kind {
	case KindTriage:
		urgency, specialty, reason := Classify(getString(params, ParamSymptoms), int(getInt64(params, ParamAge)))
		to.Raw = fmt.Sprintf("Según los síntomas que describes, tu nivel de urgencia es %s y te recomiendo acudir a la especialidad de %s. %s",
			urgency, specialty, reason)
		to.Structured = map[string]any{ParamUrgency: urgency, ParamSpecialty: specialty}

	case KindDoctorLookup:
		specialty := getString(params, ParamSpecialty)
		call := c.call(ctx, ToolFindDoctors, map[string]any{"especialidad": specialty})
		to.ToolCalls = append(to.ToolCalls, call)

		docs, err := c.tools.gw.FindDoctors(ctx, specialty)
		if err != nil || len(docs) == 0 {
			to.Raw = call.Result
			break
		}
		d := docs[0]
		pronoun := "él"
		if strings.HasPrefix(d.Name, "Dra.") {
			pronoun = "ella"
		}
		to.Raw = fmt.Sprintf("El doctor disponible es %s. ¿Te gustaría agendar una cita con %s?", WithArticle(d.Name), pronoun)
		to.Structured = map[string]any{ParamDoctorID: d.ID, ParamDoctorName: d.Name, ParamSpecialty: d.Specialty}

	case KindNearestSlot:
		call := c.call(ctx, ToolAvailability, map[string]any{
			"doctor_id": getInt64(params, ParamDoctorID),
			"urgencia":  getString(params, ParamUrgency),
		})
		to.ToolCalls = append(to.ToolCalls, call)
		to.Raw = call.Result

	case KindNegotiate:
		call := c.call(ctx, ToolAvailability, map[string]any{
			"doctor_id": getInt64(params, ParamDoctorID),
			"urgencia":  getString(params, ParamUrgency),
			"fecha":     getString(params, ParamDesiredDate),
			"hora":      getString(params, ParamDesiredTime),
		})
		to.ToolCalls = append(to.ToolCalls, call)
		to.Raw = call.Result

	case KindConfirm:
		// Registration may report a duplicate for a returning patient; the
		// appointment is still booked against the existing record.
		reg := c.call(ctx, ToolRegisterPatient, map[string]any{
			"id_paciente": getString(params, ParamPatientID),
			"nombre":      getString(params, ParamName),
			"edad":        getInt64(params, ParamAge),
			"sintomas":    getString(params, ParamSymptoms),
			"urgencia":    getString(params, ParamUrgency),
			"telefono":    getString(params, ParamPhone),
		})
		appt := c.call(ctx, ToolCreateAppointment, map[string]any{
			"paciente_id": getString(params, ParamPatientID),
			"doctor_id":   getInt64(params, ParamDoctorID),
			"fecha":       getString(params, ParamDate),
			"hora":        getString(params, ParamTime),
			"motivo":      getString(params, ParamSymptoms),
			"urgencia":    getString(params, ParamUrgency),
		})
		to.ToolCalls = append(to.ToolCalls, reg, appt)
		to.Raw = appt.Result

	default:
		return TaskOutput{}, fmt.Errorf("unsupported task kind %q", t.Kind)
	}
	return to, nil
}

func (c *OfflineCrew) call(ctx context.Context, name string, args map[string]any) ToolCall {
	result, err := c.tools.Call(ctx, name, args)
	if err != nil {
		result = fmt.Sprintf("❌ Error: %v", err)
	}
	return ToolCall{Name: name, Arguments: args, Result: result}
}

// withPrior layers params over the structured fields of earlier outputs.
func withPrior(params map[string]any, prior []TaskOutput) map[string]any {
	merged := map[string]any{}
	for _, p := range prior {
		for k, v := range p.Structured {
			merged[k] = v
		}
	}
	for k, v := range params {
		if v == nil || v == "" {
			continue
		}
		merged[k] = v
	}
	return merged
}

type triageRule struct {
	keywords []string
	value    string
}

var specialtyRules = []triageRule{
	{[]string{"pecho", "corazón", "corazon", "palpitacion", "arritmia", "presión alta", "presion alta", "hipertensión", "hipertension"}, "Cardiología"},
	{[]string{"cabeza", "migraña", "migrana", "mareo", "convulsi", "desmayo", "hormigueo", "entumecimiento"}, "Neurología"},
}

var urgencyRules = []triageRule{
	{[]string{"dolor en el pecho", "dolor de pecho", "dolor en pecho", "dificultad para respirar", "no puedo respirar",
		"pérdida de conciencia", "perdida de conciencia", "desmayo", "convulsi", "sangrado abundante"}, "ALTA"},
	{[]string{"fiebre", "dolor", "vómito", "vomito", "mareo", "diarrea", "infección", "infeccion"}, "MEDIA"},
}

// Classify is the keyword triage used offline. Patients under 18 always go
// to pediatrics.
func Classify(symptoms string, age int) (urgency, specialty, reason string) {
	s := strings.ToLower(symptoms)

	urgency = "BAJA"
	for _, r := range urgencyRules {
		if containsAny(s, r.keywords) {
			urgency = r.value
			break
		}
	}

	specialty = "Medicina General"
	reason = "Tus síntomas son generales y conviene una primera valoración clínica."
	if age > 0 && age < 18 {
		return urgency, "Pediatría", "Por tu edad corresponde atención pediátrica."
	}
	for _, r := range specialtyRules {
		if containsAny(s, r.keywords) {
			specialty = r.value
			reason = "Tus síntomas están relacionados con esta especialidad."
			break
		}
	}
	return urgency, specialty, reason
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
