package records

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// Wednesday 2025-03-05 10:30 UTC.
var pinnedNow = time.Date(2025, time.March, 5, 10, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenSQLite(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.SetClock(func() time.Time { return pinnedNow })
	t.Cleanup(func() { s.Close() })
	return s
}

func registerTestPatient(t *testing.T, s *SQLStore, id string) {
	t.Helper()
	if _, err := s.RegisterPatient(context.Background(), Patient{ID: id, Name: "Joseph Hidalgo", Age: 30, Urgency: "MEDIA"}); err != nil {
		t.Fatalf("register patient: %v", err)
	}
}

func TestSeededDoctors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	all, err := s.FindDoctors(ctx, "")
	if err != nil {
		t.Fatalf("find doctors: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 seeded doctors, got %d", len(all))
	}

	cardio, err := s.FindDoctors(ctx, "cardio")
	if err != nil {
		t.Fatalf("find doctors: %v", err)
	}
	if len(cardio) != 1 || cardio[0].Name != "Dra. López" {
		t.Errorf("expected only Dra. López, got %+v", cardio)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s1, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	all, _ := s2.FindDoctors(context.Background(), "")
	if len(all) != 4 {
		t.Errorf("expected seed to apply once, got %d doctors", len(all))
	}
}

func TestFindDoctorByName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	d, err := s.FindDoctorByName(ctx, "García", "Medicina General")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if d.ID != 1 {
		t.Errorf("expected doctor 1, got %d", d.ID)
	}

	if _, err := s.FindDoctorByName(ctx, "García", "Pediatría"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for mismatched specialty, got %v", err)
	}
	if _, err := s.FindDoctorByName(ctx, "House", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown name, got %v", err)
	}
}

func TestRegisterPatientDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	registerTestPatient(t, s, "p-1")
	_, err := s.RegisterPatient(ctx, Patient{ID: "p-1", Name: "Otro", Age: 40})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateAndGetAppointment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	registerTestPatient(t, s, "p-1")

	appt, err := s.CreateAppointment(ctx, NewAppointment{
		PatientID: "p-1", DoctorID: 2, Date: "2025-03-06", Time: "10:00", Reason: "dolor de pecho", Urgency: "ALTA",
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if appt.ID == "" || appt.Status != StatusScheduled {
		t.Errorf("unexpected appointment %+v", appt)
	}

	got, err := s.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.DoctorName != "Dra. López" || got.PatientName != "Joseph Hidalgo" {
		t.Errorf("expected joined names, got %q / %q", got.DoctorName, got.PatientName)
	}
	if !got.CreatedAt.Equal(pinnedNow) {
		t.Errorf("expected created at %v, got %v", pinnedNow, got.CreatedAt)
	}

	list, err := s.ListAppointments(ctx, 10)
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 appointment, got %d", len(list))
	}

	free, err := s.IsSlotFree(ctx, 2, "2025-03-06", "10:00")
	if err != nil {
		t.Fatalf("is slot free: %v", err)
	}
	if free {
		t.Error("expected booked slot to be reported busy")
	}
}

func TestCreateAppointmentUnknownRefs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateAppointment(ctx, NewAppointment{PatientID: "ghost", DoctorID: 1, Date: "2025-03-06", Time: "09:00"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown patient, got %v", err)
	}

	registerTestPatient(t, s, "p-1")
	_, err = s.CreateAppointment(ctx, NewAppointment{PatientID: "p-1", DoctorID: 99, Date: "2025-03-06", Time: "09:00"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown doctor, got %v", err)
	}
}

func TestNextAvailableSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tests := []struct {
		urgency  string
		wantDate string
		wantTime string
	}{
		{"ALTA", "2025-03-05", "11:00"},
		{"MEDIA", "2025-03-06", "09:00"},
		{"", "2025-03-06", "09:00"},
		// three days ahead lands on Saturday, so Monday is suggested.
		{"BAJA", "2025-03-10", "09:00"},
	}
	for _, tt := range tests {
		slot, err := s.NextAvailableSlot(ctx, 1, tt.urgency)
		if err != nil {
			t.Fatalf("next slot %q: %v", tt.urgency, err)
		}
		if slot.Date != tt.wantDate || slot.Time != tt.wantTime {
			t.Errorf("urgency %q: expected %s %s, got %s %s", tt.urgency, tt.wantDate, tt.wantTime, slot.Date, slot.Time)
		}
		if slot.DoctorID != 1 {
			t.Errorf("expected doctor 1, got %d", slot.DoctorID)
		}
	}
}

func TestNextAvailableSlotSkipsBooked(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	registerTestPatient(t, s, "p-1")

	for _, h := range []string{"09:00", "10:00"} {
		if _, err := s.CreateAppointment(ctx, NewAppointment{PatientID: "p-1", DoctorID: 3, Date: "2025-03-06", Time: h}); err != nil {
			t.Fatalf("book %s: %v", h, err)
		}
	}

	slot, err := s.NextAvailableSlot(ctx, 3, "MEDIA")
	if err != nil {
		t.Fatalf("next slot: %v", err)
	}
	if slot.Date != "2025-03-06" || slot.Time != "11:00" {
		t.Errorf("expected 2025-03-06 11:00, got %s %s", slot.Date, slot.Time)
	}

	if _, err := s.NextAvailableSlot(ctx, 42, "MEDIA"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown doctor, got %v", err)
	}
}

func TestIsSlotFreeRejectsOutsideClinicHours(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tests := []struct {
		date, hour string
		want       bool
	}{
		{"2025-03-06", "10:00", true},
		{"2025-03-05", "11:00", true},
		// already started today
		{"2025-03-05", "10:00", false},
		{"2020-01-01", "10:00", false},
		// Sunday
		{"2025-03-09", "10:00", false},
		{"2025-03-06", "03:00", false},
		{"2025-03-06", "13:00", false},
		{"2025-03-06", "9:00", false},
		{"06/03/2025", "10:00", false},
	}
	for _, tt := range tests {
		free, err := s.IsSlotFree(ctx, 1, tt.date, tt.hour)
		if err != nil {
			t.Fatalf("is slot free %s %s: %v", tt.date, tt.hour, err)
		}
		if free != tt.want {
			t.Errorf("IsSlotFree(%s %s) = %v, want %v", tt.date, tt.hour, free, tt.want)
		}
	}
}

func TestFirstFreeSlotSkipsLunch(t *testing.T) {
	now := time.Date(2025, time.March, 5, 12, 15, 0, 0, time.UTC)
	slot, ok := firstFreeSlot(now, now, nil)
	if !ok {
		t.Fatal("expected a slot")
	}
	if slot.Time != "14:00" {
		t.Errorf("expected 14:00 after lunch, got %s", slot.Time)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	registerTestPatient(t, s, "p-1")
	if _, err := s.RegisterPatient(ctx, Patient{ID: "p-2", Name: "Ana", Age: 8}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.CreateAppointment(ctx, NewAppointment{PatientID: "p-1", DoctorID: 1, Date: "2025-03-06", Time: "09:00"}); err != nil {
		t.Fatalf("book: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalPatients != 2 || st.TotalAppointments != 1 || st.AvailableDoctors != 4 {
		t.Errorf("unexpected totals %+v", st)
	}
	if st.PatientsByUrgency["MEDIA"] != 1 || st.PatientsByUrgency["SIN_CLASIFICAR"] != 1 {
		t.Errorf("unexpected urgency breakdown %v", st.PatientsByUrgency)
	}
}
