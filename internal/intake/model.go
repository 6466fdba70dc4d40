package intake

import (
	"errors"
	"fmt"
	"strings"

	"medintake/internal/agent"
)

type Stage string

const (
	StageTriage    Stage = "triage"
	StageSuggest   Stage = "suggest_appointment"
	StageConfirm   Stage = "confirm_appointment"
	StageNegotiate Stage = "negotiate_date"
	StageFinalized Stage = "finalized"
)

// Spanish names used by existing web clients.
var stageAliases = map[string]Stage{
	"triaje":         StageTriage,
	"sugerir_cita":   StageSuggest,
	"confirmar_cita": StageConfirm,
	"negociar_fecha": StageNegotiate,
	"finalizado":     StageFinalized,
}

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidStage = errors.New("invalid stage")
	ErrPrecondition = errors.New("missing context")
)

// ParseStage accepts canonical and Spanish stage names. An empty name is the
// initial stage.
func ParseStage(s string) (Stage, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StageTriage, nil
	}
	switch st := Stage(s); st {
	case StageTriage, StageSuggest, StageConfirm, StageNegotiate, StageFinalized:
		return st, nil
	}
	if st, ok := stageAliases[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
}

// PreconditionError names the context keys a stage needed but did not get.
type PreconditionError struct {
	Stage   Stage
	Missing []string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: faltan datos en el contexto: %s", e.Stage, strings.Join(e.Missing, ", "))
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

type PatientIntake struct {
	Name     string
	Age      int
	Symptoms string
	Phone    string
}

type TurnInput struct {
	Stage       Stage
	Patient     PatientIntake
	Reply       string
	Context     Context
	DesiredDate string
	DesiredTime string
	// Voice widens the affirmative vocabulary to spoken phrases.
	Voice bool
}

type TurnResult struct {
	Stage   Stage
	Context Context
	// Output is nil when the turn ran no task.
	Output  *agent.CrewOutput
	Message string
}

const (
	msgNoAppointment = "Entendido, no se ha agendado ninguna cita. Si necesitas ayuda más adelante, aquí estaré."
	msgCancelled     = "De acuerdo, la cita no fue agendada. Puedes iniciar una nueva consulta cuando lo desees."
	msgFinished      = "La conversación ha finalizado. Inicia una nueva consulta si necesitas otra cita."
	msgRoundLimit    = "Se alcanzó el número máximo de intentos para cambiar la fecha. La cita no fue agendada; " +
		"inicia una nueva consulta o comunícate con la clínica."
)
