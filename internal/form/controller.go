package form

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"time"

	"stolik/internal/domain"
	"stolik/internal/events"
	"stolik/internal/models"
	"stolik/internal/validation"

	"github.com/rs/zerolog"
)

// ErrTooManySubmits is returned by Submit when a session exhausts its
// submit attempts for the current window.
var ErrTooManySubmits = errors.New("too many submit attempts")

// SubmitThrottle bounds submit attempts per session. The counter lives in
// the state repository, so the bound holds across redis failover. Zero
// values fall back to the model defaults.
type SubmitThrottle struct {
	Limit  int
	Window time.Duration
}

// Controller owns the reservation form lifecycle: binding raw input,
// per-field blur validation and the submit/reset behavior. All state lives
// in the session repository; the controller itself is stateless.
type Controller struct {
	schema        *validation.Schema
	states        domain.StateRepository
	eventBus      domain.EventPublisher
	defaultGuests int
	throttle      SubmitThrottle
	logger        *zerolog.Logger
}

func NewController(schema *validation.Schema, states domain.StateRepository, eventBus domain.EventPublisher, defaultGuests int, throttle SubmitThrottle, logger *zerolog.Logger) *Controller {
	if defaultGuests <= 0 {
		defaultGuests = models.DefaultGuests
	}
	if throttle.Limit <= 0 {
		throttle.Limit = models.RateLimitRequests
	}
	if throttle.Window <= 0 {
		throttle.Window = models.RateLimitWindow * time.Second
	}
	return &Controller{
		schema:        schema,
		states:        states,
		eventBus:      eventBus,
		defaultGuests: defaultGuests,
		throttle:      throttle,
		logger:        logger,
	}
}

// Schema exposes the schema the controller validates against.
func (c *Controller) Schema() *validation.Schema {
	return c.schema
}

// InitialValues are the form defaults: every text field empty, guest count
// preset to the configured default.
func (c *Controller) InitialValues() map[string]string {
	return map[string]string{
		models.FieldFullName: "",
		models.FieldEmail:    "",
		models.FieldPhone:    "",
		models.FieldDate:     "",
		models.FieldTime:     "",
		models.FieldGuests:   strconv.Itoa(c.defaultGuests),
		models.FieldNotes:    "",
	}
}

// Session loads the visitor's form state, creating a fresh one with default
// values when none exists yet.
func (c *Controller) Session(ctx context.Context, sessionID string) (*models.FormSession, error) {
	session, err := c.states.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &models.FormSession{
			SessionID: sessionID,
			Values:    c.InitialValues(),
		}
	}
	return session, nil
}

// Bind maps raw form values onto a validation candidate. Guest count stays
// textual here; the schema coerces it so non-numeric input fails the rule
// instead of breaking the binding.
func (c *Controller) Bind(values url.Values) validation.Candidate {
	return validation.Candidate{
		FullName: values.Get(models.FieldFullName),
		Email:    values.Get(models.FieldEmail),
		Phone:    values.Get(models.FieldPhone),
		Date:     values.Get(models.FieldDate),
		Time:     values.Get(models.FieldTime),
		Guests:   values.Get(models.FieldGuests),
		Notes:    values.Get(models.FieldNotes),
	}
}

func candidateFromSession(session *models.FormSession) validation.Candidate {
	return validation.Candidate{
		FullName: session.Value(models.FieldFullName),
		Email:    session.Value(models.FieldEmail),
		Phone:    session.Value(models.FieldPhone),
		Date:     session.Value(models.FieldDate),
		Time:     session.Value(models.FieldTime),
		Guests:   session.Value(models.FieldGuests),
		Notes:    session.Value(models.FieldNotes),
	}
}

// ValidateField re-runs a single field's rule when an input loses focus.
// The field's stored value and error state are updated independently of the
// other fields. The bool result is false for an unknown field name.
func (c *Controller) ValidateField(ctx context.Context, sessionID, field, value string) (string, bool, error) {
	session, err := c.Session(ctx, sessionID)
	if err != nil {
		return "", false, err
	}

	if session.Values == nil {
		session.Values = c.InitialValues()
	}
	session.Values[field] = value

	msg, known := c.schema.ValidateField(candidateFromSession(session), field)
	if !known {
		return "", false, nil
	}

	if msg == "" {
		delete(session.Errors, field)
	} else {
		if session.Errors == nil {
			session.Errors = make(map[string]string)
		}
		session.Errors[field] = msg
	}

	if err := c.states.SetSession(ctx, session); err != nil {
		return "", false, err
	}
	return msg, true, nil
}

// Submit runs full-schema validation. On failure every failing field's
// message is recorded and the entered values are kept as-is, so the visitor
// corrects and resubmits without retyping. On success the record is promoted
// to the session's "last confirmed booking" slot and the form resets to its
// defaults.
func (c *Controller) Submit(ctx context.Context, sessionID string, values url.Values) (*models.Confirmation, validation.FieldErrors, error) {
	allowed, err := c.states.CheckRateLimit(ctx, "submit:"+sessionID, c.throttle.Limit, c.throttle.Window)
	if err != nil {
		// Недоступное хранилище не должно блокировать бронирование.
		c.logger.Warn().Err(err).Msg("submit rate limit check error")
	} else if !allowed {
		return nil, nil, ErrTooManySubmits
	}

	session, err := c.Session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	candidate := c.Bind(values)
	record, errs := c.schema.Record(candidate)
	if !errs.Valid() {
		session.Values = map[string]string{
			models.FieldFullName: candidate.FullName,
			models.FieldEmail:    candidate.Email,
			models.FieldPhone:    candidate.Phone,
			models.FieldDate:     candidate.Date,
			models.FieldTime:     candidate.Time,
			models.FieldGuests:   candidate.Guests,
			models.FieldNotes:    candidate.Notes,
		}
		session.Errors = errs
		if err := c.states.SetSession(ctx, session); err != nil {
			return nil, nil, err
		}
		c.publishRejected(sessionID, errs)
		return nil, errs, nil
	}

	confirmation := &models.Confirmation{
		Booking:     record,
		ConfirmedAt: time.Now(),
	}

	session.Values = c.InitialValues()
	session.Errors = nil
	session.Confirmed = confirmation
	if err := c.states.SetSession(ctx, session); err != nil {
		return nil, nil, err
	}

	c.publishConfirmed(sessionID, record)
	return confirmation, nil, nil
}

// ClearSession drops the visitor's form state entirely.
func (c *Controller) ClearSession(ctx context.Context, sessionID string) error {
	return c.states.ClearSession(ctx, sessionID)
}

func (c *Controller) publishConfirmed(sessionID string, booking models.BookingRequest) {
	if c.eventBus == nil {
		return
	}
	payload := events.ReservationEventPayload{
		SessionID: sessionID,
		Booking:   booking,
	}
	if err := c.eventBus.PublishJSON(events.EventReservationConfirmed, payload); err != nil {
		c.logger.Error().Err(err).Msg("publish confirmed event error")
	}
}

func (c *Controller) publishRejected(sessionID string, errs validation.FieldErrors) {
	if c.eventBus == nil {
		return
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	payload := events.ReservationEventPayload{
		SessionID: sessionID,
		Fields:    fields,
	}
	if err := c.eventBus.PublishJSON(events.EventReservationRejected, payload); err != nil {
		c.logger.Error().Err(err).Msg("publish rejected event error")
	}
}
