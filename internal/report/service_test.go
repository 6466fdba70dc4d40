package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"medintake/internal/records"
)

type fakeTelegram struct {
	messages []string
	docs     map[string][]byte
	captions []string
	err      error
}

func (f *fakeTelegram) SendMessage(_ context.Context, _ int64, text string) error {
	f.messages = append(f.messages, text)
	return f.err
}

func (f *fakeTelegram) SendDocument(_ context.Context, _ int64, data []byte, name, caption string) error {
	if f.docs == nil {
		f.docs = map[string][]byte{}
	}
	f.docs[name] = data
	f.captions = append(f.captions, caption)
	return f.err
}

type fakeAppointments map[string]*records.Appointment

func (f fakeAppointments) GetAppointment(_ context.Context, id string) (*records.Appointment, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, records.ErrNotFound
}

var booked = &records.Appointment{
	ID: "C-1", PatientID: "p-1", PatientName: "Joseph Hidalgo",
	DoctorID: 1, DoctorName: "Dr. García", DoctorSpecialty: "Medicina General",
	Date: "2025-03-06", Time: "09:00", Reason: "dolor abdominal, fiebre leve", Urgency: "MEDIA",
	Status: records.StatusScheduled,
}

func TestNotifyFallsBackToText(t *testing.T) {
	tg := &fakeTelegram{}
	s := NewService(tg, 99, fakeAppointments{"C-1": booked}, "")
	s.fontPaths = []string{"/nonexistent/font.ttf"}

	if err := s.NotifyAppointment(context.Background(), "C-1"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(tg.docs) != 0 || len(tg.messages) != 1 {
		t.Fatalf("expected one text message, got %d messages and %d documents", len(tg.messages), len(tg.docs))
	}
	if !strings.Contains(tg.messages[0], "Dr. García (Medicina General)") || !strings.Contains(tg.messages[0], "2025-03-06 a las 09:00") {
		t.Errorf("unexpected summary %q", tg.messages[0])
	}
}

func TestNotifyUnknownAppointment(t *testing.T) {
	tg := &fakeTelegram{}
	s := NewService(tg, 99, fakeAppointments{}, "")

	err := s.NotifyAppointment(context.Background(), "missing")
	if !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(tg.messages)+len(tg.docs) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestNotifySendsPDF(t *testing.T) {
	var font string
	for _, p := range defaultFontPaths {
		if _, err := os.Stat(p); err == nil {
			font = p
			break
		}
	}
	if font == "" {
		t.Skip("DejaVuSans not installed")
	}

	tg := &fakeTelegram{}
	s := NewService(tg, 99, fakeAppointments{"C-1": booked}, font)
	s.now = func() time.Time { return time.Date(2025, time.March, 5, 10, 30, 0, 0, time.UTC) }

	if err := s.NotifyAppointment(context.Background(), "C-1"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	data, ok := tg.docs["cita_C-1.pdf"]
	if !ok {
		t.Fatalf("expected cita_C-1.pdf, got %v", tg.docs)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("document is not a PDF")
	}
	if tg.captions[0] != "Nueva cita: Joseph Hidalgo, 2025-03-06 a las 09:00" {
		t.Errorf("unexpected caption %q", tg.captions[0])
	}
}
