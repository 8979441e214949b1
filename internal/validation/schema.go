package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"stolik/internal/models"
)

// Candidate carries the raw textual form input before validation. Guests is
// kept as entered; coercion to a number happens inside the guests rule so
// garbage input fails validation instead of crashing the binding.
type Candidate struct {
	FullName string
	Email    string
	Phone    string
	Date     string
	Time     string
	Guests   string
	Notes    string
}

// FieldErrors maps a field name to its human-readable error message.
// An empty map means the candidate passed every rule.
type FieldErrors map[string]string

func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

// Rules are the tunable limits of the schema. Zero values fall back to the
// defaults from models.
type Rules struct {
	MinGuests   int
	MaxGuests   int
	NotesMaxLen int
}

func DefaultRules() Rules {
	return Rules{
		MinGuests:   models.MinGuests,
		MaxGuests:   models.MaxGuests,
		NotesMaxLen: models.NotesMaxLen,
	}
}

var (
	// Стандартная проверка адреса: что-то@что-то.домен, без пробелов.
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Телефон: ведущий "+" или цифра, дальше минимум 6 цифр/пробелов/дефисов.
	phoneRe = regexp.MustCompile(`^[+0-9][0-9 \-]{6,}$`)
)

const (
	MsgFullName     = "Enter your full name (at least 2 characters)"
	MsgEmail        = "Enter a valid email address"
	MsgPhone        = "Enter a valid phone number"
	MsgDate         = "Choose a date"
	MsgTime         = "Choose a time"
	MsgGuestsNumber = "Guest count must be a number"
	MsgNotes        = "Notes must be %d characters or fewer"
	MsgGuestsRange  = "Guest count must be between %d and %d"
)

// Schema holds the declarative per-field rules of the reservation form.
type Schema struct {
	rules  Rules
	checks map[string]func(Candidate) string
}

// NewSchema builds the booking schema with the given limits.
func NewSchema(rules Rules) *Schema {
	def := DefaultRules()
	if rules.MinGuests <= 0 {
		rules.MinGuests = def.MinGuests
	}
	if rules.MaxGuests <= 0 {
		rules.MaxGuests = def.MaxGuests
	}
	if rules.NotesMaxLen <= 0 {
		rules.NotesMaxLen = def.NotesMaxLen
	}

	s := &Schema{rules: rules}
	s.checks = map[string]func(Candidate) string{
		models.FieldFullName: s.checkFullName,
		models.FieldEmail:    s.checkEmail,
		models.FieldPhone:    s.checkPhone,
		models.FieldDate:     s.checkDate,
		models.FieldTime:     s.checkTime,
		models.FieldGuests:   s.checkGuests,
		models.FieldNotes:    s.checkNotes,
	}
	return s
}

// Rules returns the limits the schema was built with.
func (s *Schema) Rules() Rules {
	return s.rules
}

// Validate runs every field rule and reports all failing fields together.
func (s *Schema) Validate(c Candidate) FieldErrors {
	errs := make(FieldErrors)
	for field, check := range s.checks {
		if msg := check(c); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

// ValidateField re-runs a single field's rule, independently of the other
// fields. The second return value is false for an unknown field name.
func (s *Schema) ValidateField(c Candidate, field string) (string, bool) {
	check, ok := s.checks[field]
	if !ok {
		return "", false
	}
	return check(c), true
}

// Record validates the candidate and, if every rule passes, promotes it to a
// BookingRequest. On failure the errors map carries all failing fields.
func (s *Schema) Record(c Candidate) (models.BookingRequest, FieldErrors) {
	errs := s.Validate(c)
	if !errs.Valid() {
		return models.BookingRequest{}, errs
	}

	guests, _ := strconv.Atoi(strings.TrimSpace(c.Guests))
	return models.BookingRequest{
		FullName: strings.TrimSpace(c.FullName),
		Email:    strings.TrimSpace(c.Email),
		Phone:    strings.TrimSpace(c.Phone),
		Date:     strings.TrimSpace(c.Date),
		Time:     strings.TrimSpace(c.Time),
		Guests:   guests,
		Notes:    c.Notes,
	}, nil
}

func (s *Schema) checkFullName(c Candidate) string {
	if utf8.RuneCountInString(strings.TrimSpace(c.FullName)) < models.MinNameLen {
		return MsgFullName
	}
	return ""
}

func (s *Schema) checkEmail(c Candidate) string {
	if !emailRe.MatchString(strings.TrimSpace(c.Email)) {
		return MsgEmail
	}
	return ""
}

func (s *Schema) checkPhone(c Candidate) string {
	phone := strings.TrimSpace(c.Phone)
	if len(phone) < models.MinPhoneLen || !phoneRe.MatchString(phone) {
		return MsgPhone
	}
	return ""
}

func (s *Schema) checkDate(c Candidate) string {
	if strings.TrimSpace(c.Date) == "" {
		return MsgDate
	}
	return ""
}

func (s *Schema) checkTime(c Candidate) string {
	if strings.TrimSpace(c.Time) == "" {
		return MsgTime
	}
	return ""
}

func (s *Schema) checkGuests(c Candidate) string {
	raw := strings.TrimSpace(c.Guests)
	guests, err := strconv.Atoi(raw)
	if raw == "" || err != nil {
		return MsgGuestsNumber
	}
	if guests < s.rules.MinGuests || guests > s.rules.MaxGuests {
		return fmt.Sprintf(MsgGuestsRange, s.rules.MinGuests, s.rules.MaxGuests)
	}
	return ""
}

func (s *Schema) checkNotes(c Candidate) string {
	if utf8.RuneCountInString(c.Notes) > s.rules.NotesMaxLen {
		return fmt.Sprintf(MsgNotes, s.rules.NotesMaxLen)
	}
	return ""
}
