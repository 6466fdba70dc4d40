package intake

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"medintake/internal/agent"
	"medintake/internal/records"
)

// Facts are the fields an extraction found. A nil field was not found,
// which is different from a match that captured an empty string.
// DoctorTitle is "Dr." or "Dra.", as written before the name.
type Facts struct {
	Specialty     *string
	DoctorName    *string
	DoctorTitle   *string
	DoctorID      *int64
	Urgency       *string
	Date          *string
	Time          *string
	AppointmentID *string
}

// Partial returns the found facts among keys as a map ready for Merge.
func (f Facts) Partial(keys ...string) map[string]any {
	out := map[string]any{}
	for _, k := range keys {
		var v any
		switch k {
		case KeySpecialty:
			v = deref(f.Specialty)
		case KeyDoctorName:
			v = deref(f.DoctorName)
		case KeyDoctorTitle:
			v = deref(f.DoctorTitle)
		case KeyUrgency:
			v = deref(f.Urgency)
		case KeyDate:
			v = deref(f.Date)
		case KeyTime:
			v = deref(f.Time)
		case KeyAppointmentID:
			v = deref(f.AppointmentID)
		case KeyDoctorID:
			if f.DoctorID != nil {
				v = *f.DoctorID
			}
		}
		if v != nil {
			out[k] = v
		}
	}
	return out
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Extractor turns role outputs into facts. A miss is not an error.
type Extractor interface {
	Extract(ctx context.Context, outputs []agent.TaskOutput) (Facts, error)
}

// DoctorFinder resolves an extracted doctor name to a record.
type DoctorFinder interface {
	FindDoctorByName(ctx context.Context, name, specialty string) (*records.Doctor, error)
}

var (
	reSpecialty     = regexp.MustCompile(`(?i)especialidad de ([^.]+)`)
	reDoctor        = regexp.MustCompile(`(?i)(?:el|la)?\s*Dr\.\s*([A-Za-zÁÉÍÓÚáéíóúñÑ ]+?)(?:\.| es|,|\?|$)|(?:el|la)?\s*Dra\.\s*([A-Za-zÁÉÍÓÚáéíóúñÑ ]+?)(?:\.| es|,|\?|$)`)
	reUrgency       = regexp.MustCompile(`(?i)nivel de urgencia es ([A-ZÁÉÍÓÚ]+)`)
	reISODate       = regexp.MustCompile(`el (\d{4}-\d{2}-\d{2})`)
	reLongDate      = regexp.MustCompile(`el (\d{1,2} de \w+ de \d{4})`)
	reTime          = regexp.MustCompile(`a las (\d{1,2}:\d{2})`)
	reAppointmentID = regexp.MustCompile(`ID Cita: (\S+)`)
)

// PatternExtractor matches the phrasings the task templates ask the roles
// to use. The doctor id is looked up by name when a finder is set.
type PatternExtractor struct {
	doctors DoctorFinder
}

func NewPatternExtractor(doctors DoctorFinder) *PatternExtractor {
	return &PatternExtractor{doctors: doctors}
}

func (e *PatternExtractor) Extract(ctx context.Context, outputs []agent.TaskOutput) (Facts, error) {
	raws := make([]string, 0, len(outputs))
	for _, o := range outputs {
		raws = append(raws, o.Raw)
	}
	return e.ExtractText(ctx, strings.Join(raws, "\n"))
}

func (e *PatternExtractor) ExtractText(ctx context.Context, text string) (Facts, error) {
	var f Facts

	if m := reSpecialty.FindStringSubmatch(text); m != nil {
		f.Specialty = ptr(strings.TrimSpace(m[1]))
	}
	if m := reDoctor.FindStringSubmatch(text); m != nil {
		name, title := m[1], "Dr."
		if name == "" {
			name, title = m[2], "Dra."
		}
		f.DoctorName = ptr(strings.TrimSpace(name))
		f.DoctorTitle = ptr(title)
	}
	if m := reUrgency.FindStringSubmatch(text); m != nil {
		f.Urgency = ptr(strings.ToUpper(strings.TrimSpace(m[1])))
	}
	m := reISODate.FindStringSubmatch(text)
	if m == nil {
		m = reLongDate.FindStringSubmatch(text)
	}
	if m != nil {
		f.Date = ptr(strings.TrimSpace(m[1]))
	}
	if m := reTime.FindStringSubmatch(text); m != nil {
		t := m[1]
		if len(t) == 4 {
			t = "0" + t
		}
		f.Time = ptr(t)
	}
	if m := reAppointmentID.FindStringSubmatch(text); m != nil {
		f.AppointmentID = ptr(m[1])
	}

	if f.DoctorName != nil && *f.DoctorName != "" && e.doctors != nil {
		specialty := ""
		if f.Specialty != nil {
			specialty = *f.Specialty
		}
		doc, err := e.doctors.FindDoctorByName(ctx, *f.DoctorName, specialty)
		switch {
		case errors.Is(err, records.ErrNotFound):
		case err != nil:
			return Facts{}, fmt.Errorf("resolve doctor %q: %w", *f.DoctorName, err)
		default:
			f.DoctorID = &doc.ID
			if strings.HasPrefix(doc.Name, "Dra.") {
				f.DoctorTitle = ptr("Dra.")
			} else if strings.HasPrefix(doc.Name, "Dr.") {
				f.DoctorTitle = ptr("Dr.")
			}
		}
	}
	return f, nil
}

func ptr(s string) *string { return &s }
