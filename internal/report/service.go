// Package report sends the assigned doctor a PDF summary of every
// appointment booked through the assistant.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signintech/gopdf"

	"medintake/internal/observability"
	"medintake/internal/records"
)

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName, caption string) error
}

// AppointmentReader is the slice of the records gateway the report needs.
type AppointmentReader interface {
	GetAppointment(ctx context.Context, id string) (*records.Appointment, error)
}

var errNoFont = errors.New("no usable font")

// Common DejaVu locations on Debian and Alpine images.
var defaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
}

type Service struct {
	tgClient     TelegramClient
	doctorChatID int64
	appointments AppointmentReader
	fontPaths    []string
	now          func() time.Time
}

// NewService builds the notifier. fontPath, when set, is tried before the
// default locations.
func NewService(tg TelegramClient, doctorChatID int64, appointments AppointmentReader, fontPath string) *Service {
	paths := defaultFontPaths
	if fontPath != "" {
		paths = append([]string{fontPath}, defaultFontPaths...)
	}
	return &Service{
		tgClient:     tg,
		doctorChatID: doctorChatID,
		appointments: appointments,
		fontPaths:    paths,
		now:          time.Now,
	}
}

// NotifyAppointment sends the PDF for a booked appointment. Without a font
// the summary goes out as a plain message instead.
func (s *Service) NotifyAppointment(ctx context.Context, appointmentID string) error {
	log := observability.LoggerFromContext(ctx).With("cita_id", appointmentID)

	appt, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}

	pdfData, err := s.Render(appt)
	if errors.Is(err, errNoFont) {
		log.Warn("pdf font unavailable, sending text summary", "error", err)
		return s.tgClient.SendMessage(ctx, s.doctorChatID, Summary(appt))
	}
	if err != nil {
		return err
	}

	fileName := fmt.Sprintf("cita_%s.pdf", appt.ID)
	caption := fmt.Sprintf("Nueva cita: %s, %s a las %s", appt.PatientName, appt.Date, appt.Time)
	if err := s.tgClient.SendDocument(ctx, s.doctorChatID, pdfData, fileName, caption); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	log.Info("appointment report sent", "chat_id", s.doctorChatID)
	return nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", errNoFont, lastErr)
}

// Render lays out the appointment sheet on one A4 page.
func (s *Service) Render(appt *records.Appointment) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := s.loadFont(&pdf); err != nil {
		return nil, err
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Nueva cita médica")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	lines := []string{
		fmt.Sprintf("Generado: %s", s.now().Format("02/01/2006 15:04")),
		fmt.Sprintf("ID Cita: %s", appt.ID),
		fmt.Sprintf("Paciente: %s (ID %s)", appt.PatientName, appt.PatientID),
		fmt.Sprintf("Doctor: %s (%s)", appt.DoctorName, appt.DoctorSpecialty),
		fmt.Sprintf("Fecha: %s a las %s", appt.Date, appt.Time),
		fmt.Sprintf("Urgencia: %s", orDash(appt.Urgency)),
		fmt.Sprintf("Estado: %s", appt.Status),
	}
	for _, l := range lines {
		pdf.Cell(nil, l)
		pdf.Br(16)
	}
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Motivo de consulta:")
	pdf.Br(18)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	reason, _ := pdf.SplitText(orDash(appt.Reason), 500)
	for _, l := range reason {
		pdf.Cell(nil, l)
		pdf.Br(13)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary is the plain-text form of the report.
func Summary(appt *records.Appointment) string {
	return fmt.Sprintf("Nueva cita médica\nID Cita: %s\nPaciente: %s\nDoctor: %s (%s)\nFecha: %s a las %s\nUrgencia: %s\nMotivo: %s",
		appt.ID, appt.PatientName, appt.DoctorName, appt.DoctorSpecialty, appt.Date, appt.Time,
		orDash(appt.Urgency), orDash(appt.Reason))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
