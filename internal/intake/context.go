package intake

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Context is the accumulated-facts map the caller carries between turns.
// Keys the controller does not know are passed through untouched.
type Context map[string]any

const (
	KeySpecialty        = "especialidad"
	KeyDoctorName       = "doctor_nombre"
	KeyDoctorID         = "doctor_id"
	KeyDoctorTitle      = "doctor_titulo"
	KeyUrgency          = "urgencia"
	KeyDate             = "fecha"
	KeyTime             = "hora"
	KeyDesiredDate      = "fecha_deseada"
	KeyDesiredTime      = "hora_deseada"
	KeySymptoms         = "sintomas_originales"
	KeyPatientID        = "paciente_id"
	KeyAppointmentID    = "cita_id"
	KeyNegotiationRound = "rondas_negociacion"
)

// Merge copies old and overwrites every key of partial whose value is
// neither nil nor the empty string. Neither argument is modified.
func Merge(old Context, partial map[string]any) Context {
	out := make(Context, len(old)+len(partial))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range partial {
		if isEmpty(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy; a nil context becomes empty.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// String renders the value at key, including numbers decoded from JSON.
func (c Context) String(key string) string {
	switch v := c[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// Int64 reads an integer stored as any JSON-compatible shape.
func (c Context) Int64(key string) (int64, bool) {
	switch v := c[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Missing returns the keys that are absent or empty, in argument order.
func (c Context) Missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if c.String(k) == "" {
			out = append(out, k)
		}
	}
	return out
}
