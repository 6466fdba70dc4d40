package agent

import (
	"context"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		symptoms      string
		age           int
		wantUrgency   string
		wantSpecialty string
	}{
		{"dolor abdominal, fiebre leve", 20, "MEDIA", "Medicina General"},
		{"Dolor en el pecho y palpitaciones", 55, "ALTA", "Cardiología"},
		{"migraña frecuente", 30, "BAJA", "Neurología"},
		{"tos y fiebre", 8, "MEDIA", "Pediatría"},
		{"chequeo anual", 40, "BAJA", "Medicina General"},
	}
	for _, tt := range tests {
		urgency, specialty, _ := Classify(tt.symptoms, tt.age)
		if urgency != tt.wantUrgency || specialty != tt.wantSpecialty {
			t.Errorf("Classify(%q, %d) = %s/%s, want %s/%s",
				tt.symptoms, tt.age, urgency, specialty, tt.wantUrgency, tt.wantSpecialty)
		}
	}
}

func TestOfflineTriageAndLookup(t *testing.T) {
	tb, _ := newTestToolbox(t)
	crew := NewOfflineCrew(tb)

	out, err := crew.Run(context.Background(), []Task{
		{Kind: KindTriage, Role: RoleTriage, Params: map[string]any{ParamSymptoms: "dolor de pecho", ParamAge: 60}},
		{Kind: KindDoctorLookup, Role: RoleRecords},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.Tasks[0].Raw, "nivel de urgencia es ALTA") {
		t.Errorf("unexpected triage output %q", out.Tasks[0].Raw)
	}
	lookup := out.Tasks[1]
	if lookup.Structured[ParamDoctorName] != "Dra. López" {
		t.Errorf("expected Dra. López from prior specialty, got %v", lookup.Structured)
	}
	if !strings.Contains(out.Raw, "la Dra. López") {
		t.Errorf("unexpected lookup output %q", out.Raw)
	}
}

func TestOfflineConfirmBooksAppointment(t *testing.T) {
	tb, s := newTestToolbox(t)
	crew := NewOfflineCrew(tb)

	params := map[string]any{
		ParamPatientID: "p-1", ParamName: "Joseph Hidalgo", ParamAge: 20, ParamSymptoms: "fiebre",
		ParamUrgency: "MEDIA", ParamDoctorID: int64(1), ParamDate: "2025-03-06", ParamTime: "09:00",
	}
	out, err := crew.Run(context.Background(), []Task{{Kind: KindConfirm, Role: RoleRecords, Params: params}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.Raw, "ID Cita:") {
		t.Fatalf("expected booking confirmation, got %q", out.Raw)
	}

	// A returning patient gets a duplicate notice but is still booked.
	params[ParamTime] = "10:00"
	out, err = crew.Run(context.Background(), []Task{{Kind: KindConfirm, Role: RoleRecords, Params: params}})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(out.Tasks[0].ToolCalls[0].Result, "Ya existe un paciente") {
		t.Errorf("expected duplicate notice, got %q", out.Tasks[0].ToolCalls[0].Result)
	}
	st, _ := s.Stats(context.Background())
	if st.TotalAppointments != 2 {
		t.Errorf("expected 2 appointments, got %d", st.TotalAppointments)
	}
}

func TestOfflineUnknownKind(t *testing.T) {
	tb, _ := newTestToolbox(t)
	if _, err := NewOfflineCrew(tb).Run(context.Background(), []Task{{Kind: "x"}}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
