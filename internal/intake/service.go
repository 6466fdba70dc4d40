// Package intake is the conversation controller of the assistant. It is
// stateless: every turn receives the stage and context the previous turn
// returned and produces the next ones.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medintake/internal/agent"
	"medintake/internal/observability"
)

// Notifier is told about every appointment booked through a conversation.
type Notifier interface {
	NotifyAppointment(ctx context.Context, appointmentID string) error
}

var ErrSpeechUnavailable = errors.New("speech service not configured")

type Service interface {
	Advance(ctx context.Context, in TurnInput) (*TurnResult, error)
	TranscribeAudio(ctx context.Context, audio []byte, fileName string) (string, error)
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

const DefaultMaxNegotiationRounds = 3

const (
	dateLayout = "2006-01-02"
	hourLayout = "15:04"
)

type Option func(*service)

func WithNotifier(n Notifier) Option {
	return func(s *service) { s.notifier = n }
}

// WithMaxNegotiationRounds caps how many times a patient may ask for a
// different date before the conversation is closed.
func WithMaxNegotiationRounds(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// WithSpeech enables the voice endpoints.
func WithSpeech(stt agent.STTClient, tts agent.TTSClient) Option {
	return func(s *service) {
		s.sttClient = stt
		s.ttsClient = tts
	}
}

type service struct {
	runner    agent.Runner
	extractor Extractor
	notifier  Notifier
	sttClient agent.STTClient
	ttsClient agent.TTSClient
	maxRounds int
	newID     func() string
}

func NewService(runner agent.Runner, extractor Extractor, opts ...Option) Service {
	s := &service{
		runner:    runner,
		extractor: extractor,
		maxRounds: DefaultMaxNegotiationRounds,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) TranscribeAudio(ctx context.Context, audio []byte, fileName string) (string, error) {
	if s.sttClient == nil {
		return "", ErrSpeechUnavailable
	}
	return s.sttClient.Transcribe(ctx, audio, fileName)
}

func (s *service) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	if s.ttsClient == nil {
		return nil, ErrSpeechUnavailable
	}
	return s.ttsClient.Synthesize(ctx, text, "")
}

// Advance runs one conversational turn.
func (s *service) Advance(ctx context.Context, in TurnInput) (*TurnResult, error) {
	if err := validatePatient(in); err != nil {
		return nil, err
	}
	c := in.Context.Clone()

	log := observability.LoggerFromContext(ctx).With("stage", in.Stage)
	start := time.Now()
	defer func() {
		log.Info("turn done", "elapsed_ms", time.Since(start).Milliseconds())
	}()

	switch in.Stage {
	case StageTriage:
		return s.triage(ctx, in, c)
	case StageSuggest:
		return s.suggest(ctx, in, c)
	case StageConfirm:
		return s.confirm(ctx, in, c)
	case StageNegotiate:
		return s.negotiate(ctx, in, c)
	case StageFinalized:
		return &TurnResult{Stage: StageFinalized, Context: c, Message: msgFinished}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, in.Stage)
	}
}

func validatePatient(in TurnInput) error {
	var missing []string
	if strings.TrimSpace(in.Patient.Name) == "" {
		missing = append(missing, "nombre")
	}
	if in.Patient.Age <= 0 {
		missing = append(missing, "edad")
	}
	if in.Stage == StageTriage && strings.TrimSpace(in.Patient.Symptoms) == "" {
		missing = append(missing, "sintomas")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: faltan datos obligatorios: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func (s *service) triage(ctx context.Context, in TurnInput, c Context) (*TurnResult, error) {
	out, facts, err := s.run(ctx, triageTasks(in.Patient))
	if err != nil {
		return nil, err
	}
	partial := facts.Partial(KeyUrgency, KeySpecialty, KeyDoctorName, KeyDoctorTitle, KeyDoctorID)
	partial[KeySymptoms] = in.Patient.Symptoms
	return &TurnResult{Stage: StageSuggest, Context: Merge(c, partial), Output: out}, nil
}

func (s *service) suggest(ctx context.Context, in TurnInput, c Context) (*TurnResult, error) {
	if !IsAffirmative(in.Reply, in.Voice) {
		return &TurnResult{Stage: StageFinalized, Context: c, Message: msgNoAppointment}, nil
	}
	if missing := c.Missing(KeyDoctorID, KeyDoctorName); len(missing) > 0 {
		return nil, &PreconditionError{Stage: StageSuggest, Missing: missing}
	}

	out, facts, err := s.run(ctx, suggestTasks(c))
	if err != nil {
		return nil, err
	}
	return &TurnResult{Stage: StageConfirm, Context: Merge(c, facts.Partial(KeyDate, KeyTime)), Output: out}, nil
}

func (s *service) confirm(ctx context.Context, in TurnInput, c Context) (*TurnResult, error) {
	if missing := c.Missing(KeyDoctorID, KeyDoctorName, KeyDate, KeyTime); len(missing) > 0 {
		return nil, &PreconditionError{Stage: StageConfirm, Missing: missing}
	}

	if IsAffirmative(in.Reply, in.Voice) {
		if c.String(KeyPatientID) == "" {
			c[KeyPatientID] = s.newID()
		}
		out, facts, err := s.run(ctx, confirmTasks(in.Patient, c))
		if err != nil {
			return nil, err
		}
		c = Merge(c, facts.Partial(KeyAppointmentID))
		if id := c.String(KeyAppointmentID); id != "" {
			s.notify(ctx, id)
		}
		return &TurnResult{Stage: StageFinalized, Context: c, Output: out}, nil
	}

	date, hour, err := desiredSlot(in.DesiredDate, in.DesiredTime)
	if err != nil {
		return nil, err
	}
	switch {
	case date != "" && hour != "":
		c = Merge(c, map[string]any{KeyDesiredDate: date, KeyDesiredTime: hour})
		return s.renegotiate(ctx, c)
	case date != "":
		return nil, fmt.Errorf("%w: falta %s para cambiar la cita", ErrInvalidInput, KeyDesiredTime)
	case hour != "":
		return nil, fmt.Errorf("%w: falta %s para cambiar la cita", ErrInvalidInput, KeyDesiredDate)
	default:
		return &TurnResult{Stage: StageFinalized, Context: c, Message: msgCancelled}, nil
	}
}

func (s *service) negotiate(ctx context.Context, in TurnInput, c Context) (*TurnResult, error) {
	date, hour, err := desiredSlot(in.DesiredDate, in.DesiredTime)
	if err != nil {
		return nil, err
	}
	c = Merge(c, map[string]any{KeyDesiredDate: date, KeyDesiredTime: hour})
	if missing := c.Missing(KeyDoctorID, KeyDoctorName, KeyDesiredDate, KeyDesiredTime); len(missing) > 0 {
		return nil, &PreconditionError{Stage: StageNegotiate, Missing: missing}
	}
	return s.renegotiate(ctx, c)
}

// desiredSlot normalizes a requested date to YYYY-MM-DD and time to HH:MM.
// Empty values are returned empty.
func desiredSlot(date, hour string) (string, string, error) {
	date, hour = strings.TrimSpace(date), strings.TrimSpace(hour)
	if date != "" {
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s %q no tiene el formato AAAA-MM-DD", ErrInvalidInput, KeyDesiredDate, date)
		}
		date = d.Format(dateLayout)
	}
	if hour != "" {
		h, err := time.Parse(hourLayout, hour)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s %q no tiene el formato HH:MM", ErrInvalidInput, KeyDesiredTime, hour)
		}
		hour = h.Format(hourLayout)
	}
	return date, hour, nil
}

// renegotiate checks the desired slot and returns to confirmation with the
// date and time the records role settled on.
func (s *service) renegotiate(ctx context.Context, c Context) (*TurnResult, error) {
	rounds, _ := c.Int64(KeyNegotiationRound)
	if int(rounds) >= s.maxRounds {
		return &TurnResult{Stage: StageFinalized, Context: c, Message: msgRoundLimit}, nil
	}

	out, facts, err := s.run(ctx, negotiateTasks(c))
	if err != nil {
		return nil, err
	}
	// Date and time are only replaced together.
	partial := map[string]any{}
	if facts.Date != nil && facts.Time != nil {
		partial = facts.Partial(KeyDate, KeyTime)
	}
	partial[KeyNegotiationRound] = rounds + 1
	return &TurnResult{Stage: StageConfirm, Context: Merge(c, partial), Output: out}, nil
}

func (s *service) run(ctx context.Context, tasks []agent.Task) (*agent.CrewOutput, Facts, error) {
	out, err := s.runner.Run(ctx, tasks)
	if err != nil {
		return nil, Facts{}, fmt.Errorf("run tasks: %w", err)
	}
	facts, err := s.extractor.Extract(ctx, out.Tasks)
	if err != nil {
		return nil, Facts{}, fmt.Errorf("extract facts: %w", err)
	}
	return out, facts, nil
}

// notify runs detached from the request; a failure is only logged.
func (s *service) notify(ctx context.Context, appointmentID string) {
	if s.notifier == nil {
		return
	}
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.NotifyAppointment(bgCtx, appointmentID); err != nil {
			observability.LoggerFromContext(bgCtx).Error("appointment notification failed",
				"cita_id", appointmentID, "error", err)
		}
	}()
}
