package models

import (
	"fmt"
	"time"
)

// BookingRequest — заявка на бронирование столика. Живет только в памяти:
// создается при отправке формы и либо отбрасывается, либо становится
// подтверждением в состоянии сессии. Никуда не сохраняется.
type BookingRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Guests   int    `json:"guests"`
	Notes    string `json:"notes,omitempty"`
}

// Confirmation is the transient "last confirmed booking" slot of a session.
type Confirmation struct {
	Booking     BookingRequest `json:"booking"`
	ConfirmedAt time.Time      `json:"confirmed_at"`
}

// Summary renders the announced line, e.g. "2 guests on 2025-09-10 at 19:00".
func (c *Confirmation) Summary() string {
	return fmt.Sprintf("%d guests on %s at %s", c.Booking.Guests, c.Booking.Date, c.Booking.Time)
}

// FormSession holds the reservation form's view state for one visitor:
// the raw entered values, per-field error messages and the last confirmed
// booking. Only the session's own requests mutate it.
type FormSession struct {
	SessionID string            `json:"session_id"`
	Values    map[string]string `json:"values"`
	Errors    map[string]string `json:"errors,omitempty"`
	Confirmed *Confirmation     `json:"confirmed,omitempty"`
}

// Value returns the raw entered value for a field, "" when unset.
func (s *FormSession) Value(field string) string {
	if s == nil || s.Values == nil {
		return ""
	}
	return s.Values[field]
}

// Error returns the current error message for a field, "" when the field
// has no error.
func (s *FormSession) Error(field string) string {
	if s == nil || s.Errors == nil {
		return ""
	}
	return s.Errors[field]
}
