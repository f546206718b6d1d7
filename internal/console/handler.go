package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	gomponents "maragu.dev/gomponents"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
)

// Handler renders the operator console.  It is mounted under /console.
type Handler struct {
	Roster       *service.RosterService
	Registration *service.RegistrationService
	RFID         *service.RFIDService
	Logger       *zap.Logger
}

func NewHandler(roster *service.RosterService, reg *service.RegistrationService, rfid *service.RFIDService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Roster: roster, Registration: reg, RFID: rfid, Logger: logger}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/static/app.css", serveStylesheet)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/console/register/face", http.StatusFound)
	})
	r.Get("/register/{modality}", h.RegisterPage)
	r.Post("/register/{modality}", h.RegisterSubmit)

	r.Get("/users", h.UsersList)
	r.Get("/users/{id}/edit", h.EditPage)
	r.Post("/users/{id}/edit", h.EditSubmit)
	r.Post("/users/{id}/delete", h.DeleteSubmit)

	r.Post("/rfid/tap", h.TapSubmit)

	return r
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}
