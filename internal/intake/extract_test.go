package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"medintake/internal/agent"
	"medintake/internal/records"
)

type fakeFinder struct {
	doctors []records.Doctor
	err     error
	calls   int
}

func (f *fakeFinder) FindDoctorByName(_ context.Context, name, specialty string) (*records.Doctor, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, d := range f.doctors {
		if strings.Contains(d.Name, name) && (specialty == "" || strings.Contains(d.Specialty, specialty)) {
			return &d, nil
		}
	}
	return nil, records.ErrNotFound
}

var seedDoctors = []records.Doctor{
	{ID: 1, Name: "Dr. García", Specialty: "Medicina General", Available: true},
	{ID: 2, Name: "Dra. López", Specialty: "Cardiología", Available: true},
	{ID: 3, Name: "Dr. Martínez", Specialty: "Neurología", Available: true},
}

func TestExtractSpecialtyAndUrgency(t *testing.T) {
	e := NewPatternExtractor(nil)
	f, err := e.ExtractText(context.Background(),
		"Según lo que cuentas te recomiendo la especialidad de Cardiología. Tu nivel de urgencia es ALTA y debes acudir pronto")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if f.Specialty == nil || *f.Specialty != "Cardiología" {
		t.Errorf("specialty = %v", f.Specialty)
	}
	if f.Urgency == nil || *f.Urgency != "ALTA" {
		t.Errorf("urgency = %v", f.Urgency)
	}
	if f.DoctorName != nil || f.Date != nil || f.Time != nil || f.DoctorID != nil {
		t.Errorf("expected doctor, date and time absent, got %+v", f)
	}
}

func TestExtractDoctorDateTime(t *testing.T) {
	e := NewPatternExtractor(nil)
	f, _ := e.ExtractText(context.Background(),
		"Te atenderá el Dr. Miguel Martínez. La cita sería el 2025-07-24 y te esperamos a las 10:00 en consulta")

	if f.DoctorName == nil || *f.DoctorName != "Miguel Martínez" {
		t.Errorf("doctor = %v", f.DoctorName)
	}
	if f.Date == nil || *f.Date != "2025-07-24" {
		t.Errorf("date = %v", f.Date)
	}
	if f.Time == nil || *f.Time != "10:00" {
		t.Errorf("time = %v", f.Time)
	}
}

func TestExtractVariants(t *testing.T) {
	e := NewPatternExtractor(nil)
	ctx := context.Background()

	f, _ := e.ExtractText(ctx, "El doctor disponible es la Dra. López, ¿quieres la cita?")
	if f.DoctorName == nil || *f.DoctorName != "López" {
		t.Errorf("Dra. form: doctor = %v", f.DoctorName)
	}

	if f.DoctorTitle == nil || *f.DoctorTitle != "Dra." {
		t.Errorf("Dra. form: title = %v", f.DoctorTitle)
	}

	f, _ = e.ExtractText(ctx, "Sí, el Dr. García está disponible el 2025-03-10 a las 9:00.")
	if f.Time == nil || *f.Time != "09:00" {
		t.Errorf("single-digit hour should be padded, got %v", f.Time)
	}

	f, _ = e.ExtractText(ctx, "Puedo ofrecerte el 10 de junio de 2025 a las 09:00.")
	if f.Date == nil || *f.Date != "10 de junio de 2025" {
		t.Errorf("long date = %v", f.Date)
	}

	f, _ = e.ExtractText(ctx, "tu nivel de urgencia es media")
	if f.Urgency == nil || *f.Urgency != "MEDIA" {
		t.Errorf("urgency should be uppercased, got %v", f.Urgency)
	}

	f, _ = e.ExtractText(ctx, "✅ Cita creada exitosamente:\n- ID Cita: 01JNM6Z0\n- Paciente: Ana")
	if f.AppointmentID == nil || *f.AppointmentID != "01JNM6Z0" {
		t.Errorf("appointment id = %v", f.AppointmentID)
	}
}

func TestExtractResolvesDoctorID(t *testing.T) {
	finder := &fakeFinder{doctors: seedDoctors}
	e := NewPatternExtractor(finder)

	f, err := e.Extract(context.Background(), []agent.TaskOutput{
		{Raw: "tu nivel de urgencia es BAJA y te recomiendo acudir a la especialidad de Neurología."},
		{Raw: "El doctor disponible es el Dr. Martínez. ¿Te gustaría agendar una cita con él?"},
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if f.DoctorID == nil || *f.DoctorID != 3 {
		t.Errorf("doctor id = %v", f.DoctorID)
	}

	// Title comes from the record once the doctor is resolved.
	f, _ = e.ExtractText(context.Background(), "especialidad de Cardiología. Te atiende el Dr. López.")
	if f.DoctorID == nil || *f.DoctorID != 2 || f.DoctorTitle == nil || *f.DoctorTitle != "Dra." {
		t.Errorf("expected Dra. López (2), got id %v title %v", f.DoctorID, f.DoctorTitle)
	}

	// Name and specialty disagree: no id.
	f, _ = e.ExtractText(context.Background(), "especialidad de Pediatría. Te atiende el Dr. García.")
	if f.DoctorID != nil {
		t.Errorf("expected no id, got %d", *f.DoctorID)
	}

	finder.err = errors.New("db down")
	if _, err := e.ExtractText(context.Background(), "el Dr. García."); err == nil {
		t.Error("expected lookup failure to surface")
	}
}

func TestFactsPartial(t *testing.T) {
	id := int64(9)
	f := Facts{Date: ptr("2025-07-24"), DoctorID: &id, Specialty: ptr("")}
	p := f.Partial(KeyDate, KeyTime, KeyDoctorID, KeySpecialty)

	if p[KeyDate] != "2025-07-24" || p[KeyDoctorID] != int64(9) {
		t.Errorf("unexpected partial %v", p)
	}
	if _, ok := p[KeyTime]; ok {
		t.Error("absent time must not appear")
	}
	if v, ok := p[KeySpecialty]; !ok || v != "" {
		t.Error("matched empty specialty must appear")
	}
}
