package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medintake/internal/agent"
	"medintake/internal/observability"
	"medintake/internal/records"
)

const maxUploadBytes = 10 << 20

var allowedAudioTypes = map[string]bool{
	"audio/wav":  true,
	"audio/mpeg": true,
	"audio/mp4":  true,
	"audio/webm": true,
}

type Handler struct {
	svc     Service
	records records.Gateway
}

func NewHandler(svc Service, gw records.Gateway) *Handler {
	return &Handler{svc: svc, records: gw}
}

// flexInt accepts a JSON number or a numeric string; web forms send both.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}

type TurnRequest struct {
	Stage            string  `json:"stage"`
	Nombre           string  `json:"nombre"`
	Edad             flexInt `json:"edad"`
	Sintomas         string  `json:"sintomas"`
	Telefono         string  `json:"telefono"`
	RespuestaUsuario string  `json:"respuesta_usuario"`
	Contexto         Context `json:"contexto"`
	FechaDeseada     string  `json:"fecha_deseada"`
	HoraDeseada      string  `json:"hora_deseada"`
}

type TaskView struct {
	NumeroTarea    int              `json:"numero_tarea"`
	Descripcion    string           `json:"descripcion"`
	Agente         string           `json:"agente"`
	TipoAgente     string           `json:"tipo_agente"`
	OutputCompleto string           `json:"output_completo"`
	Herramientas   []agent.ToolCall `json:"herramientas,omitempty"`
}

type ResultView struct {
	RespuestaCompleta string     `json:"respuesta_completa"`
	Tareas            []TaskView `json:"tareas"`
	TotalTareas       int        `json:"total_tareas"`
	Timestamp         string     `json:"timestamp"`
}

type TurnResponse struct {
	Success       bool        `json:"success"`
	Stage         Stage       `json:"stage"`
	Contexto      Context     `json:"contexto"`
	Resultado     *ResultView `json:"resultado"`
	Transcription string      `json:"transcription,omitempty"`
}

type TranscriptionResponse struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
}

type FailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, FailResponse{Success: false, Message: msg})
}

// writeTurnError maps controller errors to client and server failures.
func (h *Handler) writeTurnError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStage), errors.Is(err, ErrPrecondition):
		writeFail(w, http.StatusBadRequest, err.Error())
	default:
		observability.LoggerFromContext(r.Context()).Error("turn failed", "error", err)
		writeFail(w, http.StatusInternalServerError, "Error en el asistente médico. Intenta nuevamente.")
	}
}

func turnResponse(res *TurnResult) TurnResponse {
	c := res.Context
	if c == nil {
		c = Context{}
	}
	return TurnResponse{Success: true, Stage: res.Stage, Contexto: c, Resultado: resultView(res)}
}

func resultView(res *TurnResult) *ResultView {
	v := &ResultView{Tareas: []TaskView{}, Timestamp: time.Now().Format(time.RFC3339)}
	if res.Output == nil {
		v.RespuestaCompleta = res.Message
		return v
	}
	v.RespuestaCompleta = res.Output.Raw
	for i, t := range res.Output.Tasks {
		profile, _ := agent.ProfileFor(t.Role)
		v.Tareas = append(v.Tareas, TaskView{
			NumeroTarea:    i + 1,
			Descripcion:    t.Description,
			Agente:         profile.Title,
			TipoAgente:     string(t.Role),
			OutputCompleto: t.Raw,
			Herramientas:   t.ToolCalls,
		})
	}
	v.TotalTareas = len(v.Tareas)
	return v
}

func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "Error: El cuerpo de la petición no es un JSON válido.")
		return
	}

	stage, err := ParseStage(req.Stage)
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}

	res, err := h.svc.Advance(r.Context(), TurnInput{
		Stage:       stage,
		Patient:     PatientIntake{Name: req.Nombre, Age: int(req.Edad), Symptoms: req.Sintomas, Phone: req.Telefono},
		Reply:       req.RespuestaUsuario,
		Context:     req.Contexto,
		DesiredDate: req.FechaDeseada,
		DesiredTime: req.HoraDeseada,
	})
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse(res))
}

// readAudio reads the "audio" part of a multipart upload. On failure it
// returns the message for the client.
func readAudio(r *http.Request) (data []byte, fileName string, problem string) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", "Formulario multipart inválido"
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, "", "No se encontró archivo de audio"
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || !allowedAudioTypes[mt] {
			return nil, "", "Tipo de archivo no soportado: " + ct
		}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return nil, "", "No se pudo leer el archivo de audio"
	}
	return buf.Bytes(), header.Filename, ""
}

func (h *Handler) writeSpeechError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrSpeechUnavailable) {
		writeFail(w, http.StatusServiceUnavailable, "El servicio de voz no está configurado.")
		return
	}
	observability.LoggerFromContext(r.Context()).Error("speech failed", "error", err)
	writeFail(w, http.StatusInternalServerError, "Error en el servicio de voz.")
}

func (h *Handler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, name, problem := readAudio(r)
	if problem != "" {
		writeFail(w, http.StatusBadRequest, problem)
		return
	}
	text, err := h.svc.TranscribeAudio(r.Context(), audio, name)
	if err != nil {
		h.writeSpeechError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TranscriptionResponse{Success: true, Transcription: text})
}

// HandleVoiceTurn transcribes the upload and runs it as a turn in voice
// mode: the transcript is the symptoms at triage and the reply afterwards.
func (h *Handler) HandleVoiceTurn(w http.ResponseWriter, r *http.Request) {
	audio, name, problem := readAudio(r)
	if problem != "" {
		writeFail(w, http.StatusBadRequest, problem)
		return
	}

	stage, err := ParseStage(r.FormValue("stage"))
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}
	age, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("edad")))
	var c Context
	if raw := r.FormValue("contexto"); raw != "" {
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&c); err != nil {
			writeFail(w, http.StatusBadRequest, "Error: el contexto no es un JSON válido.")
			return
		}
	}
	if strings.TrimSpace(r.FormValue("nombre")) == "" || age <= 0 {
		writeFail(w, http.StatusBadRequest, "Faltan datos obligatorios: nombre o edad")
		return
	}

	text, err := h.svc.TranscribeAudio(r.Context(), audio, name)
	if err != nil {
		h.writeSpeechError(w, r, err)
		return
	}

	in := TurnInput{
		Stage:       stage,
		Patient:     PatientIntake{Name: r.FormValue("nombre"), Age: age, Symptoms: r.FormValue("sintomas"), Phone: r.FormValue("telefono")},
		Context:     c,
		DesiredDate: r.FormValue("fecha_deseada"),
		DesiredTime: r.FormValue("hora_deseada"),
		Voice:       true,
	}
	if stage == StageTriage {
		in.Patient.Symptoms = text
	} else {
		in.Reply = text
	}

	res, err := h.svc.Advance(r.Context(), in)
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}
	resp := turnResponse(res)
	resp.Transcription = text
	writeJSON(w, http.StatusOK, resp)
}

type SpeechRequest struct {
	Texto string `json:"texto"`
}

func (h *Handler) HandleSpeech(w http.ResponseWriter, r *http.Request) {
	var req SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "Error: El cuerpo de la petición no es un JSON válido.")
		return
	}
	if strings.TrimSpace(req.Texto) == "" {
		writeFail(w, http.StatusBadRequest, "No se proporcionó texto para convertir")
		return
	}

	audioData, err := h.svc.SynthesizeSpeech(r.Context(), req.Texto)
	if err != nil {
		h.writeSpeechError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="respuesta.mp3"`)
	w.Write(audioData)
}

func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	docs, err := h.records.FindDoctors(r.Context(), r.URL.Query().Get("especialidad"))
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("list doctors", "error", err)
		writeFail(w, http.StatusInternalServerError, "Error al consultar doctores")
		return
	}
	if docs == nil {
		docs = []records.Doctor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "doctores": docs})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.records.Stats(r.Context())
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("stats", "error", err)
		writeFail(w, http.StatusInternalServerError, "Error al obtener estadísticas")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "estadisticas": st})
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	appts, err := h.records.ListAppointments(r.Context(), limit)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("list appointments", "error", err)
		writeFail(w, http.StatusInternalServerError, "Error al consultar citas")
		return
	}
	if appts == nil {
		appts = []records.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "citas": appts})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/asistente/atender/", h.HandleTurn)
	r.Post("/procesar-consulta-voz/", h.HandleVoiceTurn)
	r.Post("/transcribir-audio/", h.HandleTranscribe)
	r.Post("/generar-audio/", h.HandleSpeech)

	r.Route("/api", func(r chi.Router) {
		r.Get("/doctores", h.ListDoctors)
		r.Get("/estadisticas", h.Stats)
		r.Get("/citas", h.ListAppointments)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
