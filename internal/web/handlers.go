package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"stolik/internal/form"
	"stolik/internal/metrics"
	"stolik/internal/models"
	"stolik/internal/site"
	"stolik/internal/validation"
)

type pageData struct {
	Site      *site.Content
	Values    map[string]string
	Errors    map[string]string
	Confirmed *models.Confirmation
	Rules     validation.Rules
}

// Value and Error let templates look up form state without index juggling.
func (d pageData) Value(field string) string { return d.Values[field] }
func (d pageData) Error(field string) string { return d.Errors[field] }

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session, err := s.form.Session(r.Context(), sessionID(r))
	if err != nil {
		s.logger.Error().Err(err).Msg("load form session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.IncPageView()
	s.renderPage(w, http.StatusOK, pageData{
		Site:      s.content,
		Values:    session.Values,
		Errors:    session.Errors,
		Confirmed: session.Confirmed,
		Rules:     s.form.Schema().Rules(),
	})
}

// handleReserve is the classic form post. Validation failures re-render the
// page with inline errors and the entered values kept; success redirects
// back to the page, which then shows the confirmation from session state.
func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}

	confirmation, errs, err := s.form.Submit(r.Context(), sessionID(r), r.PostForm)
	if errors.Is(err, form.ErrTooManySubmits) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("submit reservation")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if confirmation != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	session, err := s.form.Session(r.Context(), sessionID(r))
	if err != nil {
		s.logger.Error().Err(err).Msg("load form session")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.renderPage(w, http.StatusUnprocessableEntity, pageData{
		Site:      s.content,
		Values:    session.Values,
		Errors:    errs,
		Confirmed: session.Confirmed,
		Rules:     s.form.Schema().Rules(),
	})
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error().Err(err).Msg("render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// reservationRequest is the JSON submit body. Guests is deliberately loose:
// numbers and strings are both accepted, anything else fails the numeric
// rule instead of returning a decode error.
type reservationRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Guests   any    `json:"guests"`
	Notes    string `json:"notes"`
}

func guestsString(v any) string {
	switch g := v.(type) {
	case nil:
		return ""
	case string:
		return g
	case float64:
		if g == float64(int(g)) {
			return strconv.Itoa(int(g))
		}
		return fmt.Sprintf("%v", g)
	default:
		return fmt.Sprintf("%v", g)
	}
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	values := url.Values{}
	values.Set(models.FieldFullName, req.FullName)
	values.Set(models.FieldEmail, req.Email)
	values.Set(models.FieldPhone, req.Phone)
	values.Set(models.FieldDate, req.Date)
	values.Set(models.FieldTime, req.Time)
	values.Set(models.FieldGuests, guestsString(req.Guests))
	values.Set(models.FieldNotes, req.Notes)

	confirmation, errs, err := s.form.Submit(r.Context(), sessionID(r), values)
	if errors.Is(err, form.ErrTooManySubmits) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("submit reservation")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if confirmation == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Booking confirmed",
		"summary": confirmation.Summary(),
		"booking": confirmation.Booking,
	})
}

type validateFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// handleValidateField backs the page's blur validation: one field's rule is
// re-run and only that field's error state changes.
func (s *Server) handleValidateField(w http.ResponseWriter, r *http.Request) {
	var req validateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	msg, known, err := s.form.ValidateField(r.Context(), sessionID(r), req.Field, req.Value)
	if err != nil {
		s.logger.Error().Err(err).Msg("validate field")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !known {
		writeError(w, http.StatusBadRequest, "unknown field")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"field":   req.Field,
		"valid":   msg == "",
		"message": msg,
	})
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"restaurant": s.content.Restaurant.Name,
		"menu":       s.content.Menu,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
