package console

import (
	"errors"
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	m, err := types.ParseModality(chi.URLParam(r, "modality"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	v := registerView{Modality: m, OK: r.URL.Query().Get("ok")}
	h.renderRegister(w, r, http.StatusOK, v)
}

// RegisterSubmit runs the scan while the browser waits.  If the browser
// gives up the scan still completes.
func (h *Handler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	m, err := types.ParseModality(chi.URLParam(r, "modality"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := types.RegistrationForm{
		FullName: r.PostFormValue("fullName"),
		IDNumber: r.PostFormValue("idNumber"),
		Role:     r.PostFormValue("role"),
	}

	res, err := h.Registration.Register(r.Context(), m, form)
	if err != nil {
		v := registerView{Modality: m, Form: form, Error: err.Error()}
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrMissingFields):
			status = http.StatusBadRequest
			v.Alert = true
		case errors.Is(err, service.ErrRegistrationInProgress):
			status = http.StatusConflict
		case errors.Is(err, service.ErrStore):
			status = http.StatusBadGateway
			v.Error = "Could not save the card: " + err.Error()
		default:
			if r.Context().Err() != nil {
				return
			}
			h.Logger.Error("console registration failed", zap.String("modality", string(m)), zap.Error(err))
		}
		h.renderRegister(w, r, status, v)
		return
	}

	msg := res.User.FullName + " registered with " + m.Label() + " (user " + res.User.ID + ")"
	if !res.Created {
		msg = m.Label() + " added to " + res.User.FullName + " (user " + res.User.ID + ")"
	}
	if res.RFIDUID != "" {
		msg += ", card UID " + res.RFIDUID
	}
	http.Redirect(w, r, "/console/register/"+string(m)+"?ok="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, status int, v registerView) {
	v.InFlight = h.Registration.InFlight()
	if v.Modality == types.ModalityRFID {
		creds, err := h.RFID.ListCredentials(r.Context())
		if err != nil {
			v.RFIDError = err.Error()
		}
		logs, err := h.RFID.ListAccessLogs(r.Context())
		if err != nil {
			v.RFIDError = err.Error()
		}
		v.Credentials = creds
		v.AccessLog = logs
	}
	renderHTML(w, status, registerPage(v))
}

func (h *Handler) UsersList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	users, err := h.Roster.Filter(r.Context(), q)
	if err != nil {
		h.Logger.Error("console list users failed", zap.Error(err))
		http.Error(w, "could not load users", http.StatusInternalServerError)
		return
	}
	renderHTML(w, http.StatusOK, usersPage(users, q, h.Registration.InFlight(), r.URL.Query().Get("ok")))
}

func (h *Handler) EditPage(w http.ResponseWriter, r *http.Request) {
	u, err := h.Roster.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderUserError(w, r, err)
		return
	}
	renderHTML(w, http.StatusOK, editPage(u, h.Registration.InFlight()))
}

// EditSubmit replays the modal form onto an edit session and saves it.
func (h *Handler) EditSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	sess, err := h.Roster.BeginEdit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderUserError(w, r, err)
		return
	}
	buf, err := sess.Buffer()
	if err != nil {
		h.renderUserError(w, r, err)
		return
	}

	_ = sess.SetFullName(r.PostFormValue("fullName"))
	_ = sess.SetIDNumber(r.PostFormValue("idNumber"))
	_ = sess.SetRole(r.PostFormValue("role"))
	if st := types.Status(r.PostFormValue("status")); st == types.StatusActive || st == types.StatusInactive {
		_ = sess.SetStatus(st)
	}
	checked := r.PostForm["method"]
	for _, m := range types.Modalities {
		if slices.Contains(checked, string(m)) != buf.HasMethod(m) {
			_ = sess.ToggleMethod(m)
		}
	}

	saved, err := sess.Save(r.Context())
	if err != nil {
		_ = sess.Cancel()
		h.renderUserError(w, r, err)
		return
	}
	http.Redirect(w, r, "/console/users?ok="+url.QueryEscape("Saved user "+saved.ID), http.StatusSeeOther)
}

func (h *Handler) DeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Roster.Delete(r.Context(), id); err != nil {
		h.renderUserError(w, r, err)
		return
	}
	http.Redirect(w, r, "/console/users?ok="+url.QueryEscape("Deleted user "+id), http.StatusSeeOther)
}

func (h *Handler) TapSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	e, err := h.RFID.RecordTap(r.Context(), r.PostFormValue("uid"))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, service.ErrInvalidUID) {
			status = http.StatusBadRequest
		}
		h.renderRegister(w, r, status, registerView{Modality: types.ModalityRFID, RFIDError: err.Error()})
		return
	}

	who := e.FullName
	if who == "" {
		who = "unregistered card"
	}
	msg := "Tap " + e.UID + " at " + e.WaktuReadable + ": " + who
	http.Redirect(w, r, "/console/register/rfid?ok="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (h *Handler) renderUserError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Something went wrong."
	if errors.Is(err, store.ErrUserNotFound) {
		status = http.StatusNotFound
		msg = "That user no longer exists."
	} else {
		h.Logger.Error("console user action failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	renderHTML(w, status, consolePage("Registered Users", "users", h.Registration.InFlight(), false,
		notice("error", msg),
	))
}
