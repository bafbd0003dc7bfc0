// Package httpapi is the long-poll gateway: a JSON HTTP surface over
// the orchestrator plus the two speech collaborators and the embedded
// web client.
package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sirco-web/ttls/errors"
	"github.com/Sirco-web/ttls/observability"
	"github.com/Sirco-web/ttls/runtime"
	"github.com/Sirco-web/ttls/speech"
)

//go:embed web
var staticFS embed.FS

// Server wires the HTTP routes to the orchestrator and the speech
// collaborators.
type Server struct {
	log         *slog.Logger
	orch        *runtime.Orchestrator
	monitor     *observability.Monitor
	transcriber *speech.Transcriber
	synthesizer *speech.Synthesizer
	validate    *validator.Validate

	// staticDir overrides the embedded UI when set.
	staticDir     string
	maxAudioBytes int64
}

func NewServer(log *slog.Logger, orch *runtime.Orchestrator, monitor *observability.Monitor,
	transcriber *speech.Transcriber, synthesizer *speech.Synthesizer,
	staticDir string, maxAudioBytes int64) *Server {
	return &Server{
		log:           log,
		orch:          orch,
		monitor:       monitor,
		transcriber:   transcriber,
		synthesizer:   synthesizer,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		staticDir:     staticDir,
		maxAudioBytes: maxAudioBytes,
	}
}

// Handler builds the route table. The caller owns the http.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/create", s.handleCreate)
	mux.HandleFunc("POST /api/join", s.handleJoin)
	mux.HandleFunc("POST /api/leave", s.handleLeave)
	mux.HandleFunc("POST /api/send", s.handleSend)
	mux.HandleFunc("GET /api/poll", s.handlePoll)
	mux.HandleFunc("POST /api/voice", s.handleVoice)
	mux.HandleFunc("POST /api/tts", s.handleTTS)
	mux.HandleFunc("GET /api/rooms", s.handleRooms)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", http.FileServer(s.staticRoot()))

	return mux
}

func (s *Server) staticRoot() http.FileSystem {
	if s.staticDir != "" {
		return http.Dir(s.staticDir)
	}
	sub, err := fs.Sub(staticFS, "web")
	if err != nil {
		// The embed is part of the binary; a bad sub path is a build
		// defect, not a runtime condition.
		panic(err)
	}
	return http.FS(sub)
}

type createRequest struct {
	Name string `json:"name" validate:"required"`
	Room string `json:"room" validate:"omitempty,len=5,numeric"`
}

type joinRequest struct {
	Room string `json:"room" validate:"required,len=5,numeric"`
	Name string `json:"name" validate:"required"`
}

type clientRequest struct {
	ClientID string `json:"clientId" validate:"required"`
}

type sendRequest struct {
	ClientID string `json:"clientId" validate:"required"`
	Text     string `json:"text"`
}

type ttsRequest struct {
	Text string `json:"text" validate:"required"`
	Lang string `json:"lang"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type eventsResponse struct {
	Events any `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.orch.Create(req.Name, req.Room)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.orch.Join(req.Room, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// handleLeave always succeeds: leaving twice, or with a token the
// server no longer knows, is not an error.
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.orch.Leave(req.ClientID)
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.orch.Send(req.ClientID, req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handlePoll blocks until events arrive or the poll timeout elapses; a
// timeout yields an empty list, which the client answers with an
// immediate re-poll. A dropped connection cancels the parked wait via
// the request context.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "clientId is required"})
		return
	}

	events, err := s.orch.Poll(r.Context(), clientID)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return
		}
		s.writeError(w, err)
		return
	}
	if events == nil {
		s.writeJSON(w, http.StatusOK, eventsResponse{Events: []struct{}{}})
		return
	}
	s.writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

// handleVoice accepts a recorded audio blob, answers immediately, and
// finishes the transcription in the background: the transcript arrives
// in the room as an ordinary message, a failure as an error event on
// the uploader's queue.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if !s.transcriber.Available() {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "voice input is not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxAudioBytes)
	if err := r.ParseMultipartForm(s.maxAudioBytes); err != nil {
		s.writeError(w, errors.ErrAudioTooLarge)
		return
	}

	clientID := r.FormValue("clientId")
	if clientID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "clientId is required"})
		return
	}
	lang := r.FormValue("lang")

	file, _, err := r.FormFile("audio")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "audio file is required"})
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, errors.ErrAudioTooLarge)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		text, err := s.transcriber.Transcribe(ctx, blob, lang)
		if err != nil {
			s.log.Warn("voice transcription failed", "client", clientID, "err", err)
			s.orch.NotifyError(clientID, "voice transcription failed")
			return
		}
		if err := s.orch.Send(clientID, text); err != nil {
			s.log.Debug("voice sender no longer in a room", "client", clientID)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !s.decode(w, r, &req) {
		return
	}

	audio, err := s.synthesizer.Synthesize(r.Context(), req.Text, req.Lang)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.orch.RoomList()
	if rooms == nil {
		rooms = []runtime.RoomInfo{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitor.Latest())
}

// decode reads the JSON body into dst and validates it. A false return
// means the response was already written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: requestProblem(err)})
		return false
	}
	return true
}

// requestProblem flattens the first validation failure into the short
// client-facing message format. Internals never leak.
func requestProblem(err error) string {
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		f := fieldErrs[0]
		switch f.Tag() {
		case "required":
			return f.Field() + " is required"
		case "len", "numeric":
			return "room code must be exactly 5 digits"
		}
	}
	return "invalid request"
}

// writeError maps domain sentinels to HTTP statuses. Unmapped errors
// become an opaque 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case stderrors.Is(err, errors.ErrInvalidRoomCode),
		stderrors.Is(err, errors.ErrRoomCodeTaken),
		stderrors.Is(err, errors.ErrEmptyName),
		stderrors.Is(err, errors.ErrEmptyMessage),
		stderrors.Is(err, errors.ErrTextTooLong),
		stderrors.Is(err, errors.ErrClientNotFound),
		stderrors.Is(err, errors.ErrClientNotInRoom),
		stderrors.Is(err, errors.ErrUnsupportedAudio):
		status = http.StatusBadRequest
		message = err.Error()
	case stderrors.Is(err, errors.ErrAudioTooLarge):
		status = http.StatusRequestEntityTooLarge
		message = err.Error()
	case stderrors.Is(err, errors.ErrRoomNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case stderrors.Is(err, errors.ErrSynthesizerUnavailable):
		status = http.StatusServiceUnavailable
		message = err.Error()
	case stderrors.Is(err, errors.ErrRoomAllocationExhausted),
		stderrors.Is(err, errors.ErrTranscriptionFailed):
		status = http.StatusInternalServerError
		message = err.Error()
	default:
		s.log.Error("unmapped error", "err", err)
	}

	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Debug("failed to write response", "err", err)
	}
}
