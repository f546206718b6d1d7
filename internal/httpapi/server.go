package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type Dependencies struct {
	Logger         *zap.Logger
	Addr           string
	Roster         *service.RosterService
	Registration   *service.RegistrationService
	RFID           *service.RFIDService
	Metrics        *Metrics
	AllowedOrigins []string

	// Console is mounted at /console when set.
	Console http.Handler
}

type Server struct {
	httpServer   *http.Server
	logger       *zap.Logger
	router       chi.Router
	roster       *service.RosterService
	registration *service.RegistrationService
	rfid         *service.RFIDService
	metrics      *Metrics
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = NewMetrics("labconsole")
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	s := &Server{
		logger:       logger,
		router:       r,
		roster:       d.Roster,
		registration: d.Registration,
		rfid:         d.RFID,
		metrics:      metrics,
	}

	r.Use(chimw.Recoverer)
	r.Use(loggingMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))

		r.Get("/users", s.handleListUsers)
		r.Get("/users/{id}", s.handleGetUser)
		r.Put("/users/{id}", s.handleUpdateUser)
		r.Delete("/users/{id}", s.handleDeleteUser)

		r.Post("/register/{modality}", s.handleRegister)
		r.Get("/registration", s.handleRegistrationStatus)

		r.Post("/rfid/uid", s.handleGenerateUID)
		r.Get("/rfid/users", s.handleListCredentials)
		r.Post("/rfid/users", s.handleRegisterCredential)
		r.Get("/rfid/logs", s.handleListAccessLogs)
	})

	r.Post("/v1/rfid/tap", s.handleTap)

	if d.Console != nil {
		r.Mount("/console", d.Console)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/console", http.StatusFound)
		})
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeServiceError maps service and store errors onto HTTP responses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields", err.Error())
	case errors.Is(err, service.ErrInvalidUID):
		writeError(w, http.StatusBadRequest, "invalid_uid", err.Error())
	case errors.Is(err, service.ErrRegistrationInProgress):
		writeError(w, http.StatusConflict, "registration_in_progress", err.Error())
	case errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, service.ErrStore):
		s.metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
		writeError(w, http.StatusBadGateway, "store_error", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; nothing useful to write.
		s.logger.Debug("request abandoned", zap.String("op", op), zap.String("request_id", RequestID(r.Context())))
	default:
		s.logger.Error("request failed",
			zap.String("op", op),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

// ── Roster ──────────────────────────────────────────────────────────────────

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.roster.Filter(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, "list_users", err)
		return
	}
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.roster.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, "get_user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var u types.User
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	u.ID = chi.URLParam(r, "id")
	if err := u.NormalizeMethods(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_modality", err.Error())
		return
	}

	saved, err := s.roster.Replace(r.Context(), u)
	if err != nil {
		s.writeServiceError(w, r, "update_user", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.roster.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, "delete_user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Registration ────────────────────────────────────────────────────────────

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	m, err := types.ParseModality(chi.URLParam(r, "modality"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_modality", err.Error())
		return
	}

	var form types.RegistrationForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	res, err := s.registration.Register(r.Context(), m, form)
	if err != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(string(m), "error").Inc()
		s.writeServiceError(w, r, "register", err)
		return
	}

	result := "merged"
	if res.Created {
		result = "created"
	}
	s.metrics.RegistrationsTotal.WithLabelValues(string(m), result).Inc()
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleRegistrationStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]types.Modality{"inFlight": s.registration.InFlight()})
}

// ── RFID ────────────────────────────────────────────────────────────────────

func (s *Server) handleGenerateUID(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"uid": s.rfid.GenerateUID()})
}

func (s *Server) handleRegisterCredential(w http.ResponseWriter, r *http.Request) {
	var id types.RFIDIdentity
	if err := decodeJSON(r, &id); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	uid, err := s.rfid.RegisterCredential(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "put_credential", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"uid": uid})
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.rfid.ListCredentials(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list_credentials", err)
		return
	}
	if creds == nil {
		creds = []types.RFIDCredential{}
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) handleListAccessLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.rfid.ListAccessLogs(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list_access_logs", err)
		return
	}
	if logs == nil {
		logs = []types.AccessLogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleTap is the reader-facing endpoint.  It accepts JSON or protobuf and
// answers in the same encoding.
func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	useProto := isProtobuf(r)

	var req types.TapRequest
	if useProto {
		body, err := readBody(r)
		if err == nil {
			req, err = decodeTapRequest(body)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	e, err := s.rfid.RecordTap(r.Context(), req.UID)
	if err != nil {
		s.writeServiceError(w, r, "put_access_log", err)
		return
	}
	s.metrics.TapsTotal.WithLabelValues(boolLabel(knownTap(e))).Inc()

	if useProto {
		writeProto(w, http.StatusOK, encodeTapResponse(e))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
