package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ytclip/internal/api"
	"ytclip/internal/artifact"
	"ytclip/internal/config"
	"ytclip/internal/eventstream"
	"ytclip/internal/logging"
	"ytclip/internal/media"
	"ytclip/internal/pipeline"
	"ytclip/internal/services"
)

const (
	maxSubmissionBytes = 16 << 10
	defaultRunsLimit   = 50
	maxRunsLimit       = 500
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	detach  bool
	handler http.Handler

	// baseCtx bounds detached runs. It is replaced by Start.
	baseCtx context.Context

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logging.NewComponentLogger(logger, "api"),
		daemon:  d,
		detach:  !cfg.Server.CancelOnDisconnect,
		baseCtx: context.Background(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/download", srv.handleDownload)
	mux.HandleFunc("/api/file/", srv.handleFile)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/runs", srv.handleRuns)
	mux.HandleFunc("/api/info", srv.handleInfo)

	srv.handler = corsMiddleware(cfg.Server.AllowedOrigins, authMiddleware(cfg.Paths.APIToken, mux))
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Event streams and file downloads clear their own write deadline.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, nil, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var sub pipeline.Submission
	body := http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	if err := json.NewDecoder(body).Decode(&sub); err != nil {
		message := "Invalid request body"
		if errors.Is(err, io.EOF) {
			message = services.MessageMissingParams
		}
		writeError(w, nil, http.StatusBadRequest, message)
		return
	}
	req, err := pipeline.ParseSubmission(sub)
	if err != nil {
		writeError(w, nil, http.StatusBadRequest, services.ClientMessage(err))
		return
	}

	release, message, ok := s.daemon.admission.acquire()
	if !ok {
		s.logger.Info("submission refused",
			logging.String(logging.FieldEventType, "admission_refused"),
			logging.String("reason", message),
		)
		writeError(w, nil, http.StatusTooManyRequests, message)
		return
	}
	defer release()

	ctx := services.WithRequestID(r.Context(), uuid.NewString())
	if s.detach {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(s.baseCtx, cancel)
		defer stop()
	}

	stream := eventstream.New(w)
	result := s.daemon.orchestrator.Run(ctx, req, stream)
	s.logger.Debug("download request finished",
		logging.String(logging.FieldRunID, result.RunID),
		logging.String("state", result.State.String()),
	)
}

func (s *apiServer) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, nil, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rawFormat := strings.TrimPrefix(r.URL.Path, "/api/file/")
	format, err := media.ParseFormat(rawFormat)
	if err != nil || strings.Contains(rawFormat, "/") {
		writeError(w, nil, http.StatusNotFound, services.MessageFileNotFound)
		return
	}
	runID := r.URL.Query().Get("run")
	if !artifact.ValidRunID(runID) {
		writeError(w, nil, http.StatusNotFound, services.MessageFileNotFound)
		return
	}

	delivery, err := s.daemon.workspace.Claim(runID, format)
	switch {
	case errors.Is(err, artifact.ErrBusy):
		writeError(w, nil, http.StatusConflict, "File is already being downloaded")
		return
	case err != nil:
		if !errors.Is(err, services.ErrNotFound) {
			logging.WarnWithContext(s.logger, "artifact claim failed", "delivery_claim_failed",
				logging.String(logging.FieldRunID, runID),
				logging.Error(err),
			)
		}
		writeError(w, nil, http.StatusNotFound, services.MessageFileNotFound)
		return
	}
	defer delivery.Finish()

	header := w.Header()
	header.Set("Content-Type", delivery.ContentType())
	header.Set("Content-Disposition", "attachment; filename="+delivery.FileName())
	header.Set("Content-Length", strconv.FormatInt(delivery.Size(), 10))
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	w.WriteHeader(http.StatusOK)

	written, err := delivery.ServeTo(w)
	if err != nil {
		logging.WarnWithContext(s.logger, "artifact delivery interrupted", "delivery_failed",
			logging.String(logging.FieldRunID, runID),
			logging.Int64("bytes_written", written),
			logging.Error(err),
		)
		return
	}
	delivery.Finish()
	s.logger.Info("artifact delivered",
		logging.String(logging.FieldEventType, "artifact_delivered"),
		logging.String(logging.FieldRunID, runID),
		logging.Int64("bytes", written),
	)
	if store := s.daemon.store; store != nil {
		if err := store.MarkDelivered(context.WithoutCancel(r.Context()), runID); err != nil {
			s.logger.Warn("failed to record delivery", logging.String(logging.FieldRunID, runID), logging.Error(err))
		}
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, nil, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, s.logger, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, nil, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := defaultRunsLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, nil, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxRunsLimit)
	}
	store := s.daemon.store
	if store == nil {
		writeJSON(w, s.logger, http.StatusOK, api.RunListResponse{Runs: []api.RunView{}})
		return
	}
	records, err := store.List(r.Context(), limit)
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, services.MessageInternal)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, api.RunListResponse{Runs: api.FromRecords(records)})
}

func (s *apiServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, nil, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeError(w, nil, http.StatusBadRequest, services.MessageMissingParams)
		return
	}
	info, err := s.daemon.videos.Lookup(r.Context(), raw)
	switch {
	case err == nil:
		writeJSON(w, s.logger, http.StatusOK, api.FromInfo(info))
	case errors.Is(err, services.ErrValidation):
		writeError(w, nil, http.StatusBadRequest, "Invalid video URL")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, nil, http.StatusNotFound, "Video not found")
	case errors.Is(err, services.ErrTimeout):
		writeError(w, s.logger, http.StatusGatewayTimeout, services.MessageTimeout)
	case errors.Is(err, services.ErrCancelled):
		return
	default:
		s.logger.Warn("metadata lookup failed", logging.Error(err))
		writeError(w, nil, http.StatusBadGateway, "Metadata lookup failed")
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil && logger != nil {
		logger.Warn("failed to encode response", logging.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	if logger != nil && status >= http.StatusInternalServerError {
		logger.Warn("api request failed",
			logging.Int("status", status),
			logging.String("message", message),
		)
	}
	writeJSON(w, logger, status, api.ErrorResponse{Error: message})
}
