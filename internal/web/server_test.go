package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"stolik/internal/config"
	"stolik/internal/events"
	"stolik/internal/form"
	"stolik/internal/models"
	"stolik/internal/repository"
	"stolik/internal/site"
	"stolik/internal/validation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "stolik", Environment: "test"},
		Site: config.SiteConfig{
			TemplatesDir: "../../web/templates",
			StaticDir:    "../../web/static",
		},
		Booking: config.BookingConfig{
			MinGuests:     models.MinGuests,
			MaxGuests:     models.MaxGuests,
			DefaultGuests: models.DefaultGuests,
			NotesMaxLen:   models.NotesMaxLen,
		},
		Session:   config.SessionConfig{CookieName: "stolik_session", TTLSeconds: 3600},
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000, SubmitLimit: 1000, SubmitWindowSec: 60},
		Server:    config.ServerConfig{Port: 0, ReadHeaderTimeoutSec: 5, WriteTimeoutSec: 15},
	}
}

func testContent() *site.Content {
	return &site.Content{
		Restaurant: site.Restaurant{Name: "Stolik", Tagline: "Modern European kitchen"},
		Hero:       site.Hero{Heading: "A table worth keeping", CTALabel: "Reserve a table"},
		About:      site.About{Heading: "About us", Body: "Cooking what the market brings."},
		Menu: []site.MenuSection{
			{
				Title: "Mains",
				Items: []site.MenuItem{
					{Name: "Braised lamb shoulder", Description: "Polenta, gremolata", Price: 24.50},
				},
			},
		},
		Footer: site.Footer{Address: "14 Garden Lane"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger := zerolog.New(io.Discard)

	schema := validation.NewSchema(validation.Rules{
		MinGuests:   cfg.Booking.MinGuests,
		MaxGuests:   cfg.Booking.MaxGuests,
		NotesMaxLen: cfg.Booking.NotesMaxLen,
	})
	states := repository.NewMemoryStateRepository(time.Hour)
	throttle := form.SubmitThrottle{
		Limit:  cfg.RateLimit.SubmitLimit,
		Window: time.Duration(cfg.RateLimit.SubmitWindowSec) * time.Second,
	}
	controller := form.NewController(schema, states, events.NewEventBus(), cfg.Booking.DefaultGuests, throttle, &logger)

	server, err := NewServer(cfg, testContent(), controller, logger)
	require.NoError(t, err)
	return server
}

func newTestClient(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	server := newTestServer(t, testConfig())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}
}

func validReservationForm() url.Values {
	return url.Values{
		"full_name": {"Test User"},
		"email":     {"test@example.com"},
		"phone":     {"+9701234567"},
		"date":      {"2025-09-10"},
		"time":      {"19:00"},
		"guests":    {"2"},
		"notes":     {""},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestIndexRendersPage(t *testing.T) {
	ts, client := newTestClient(t)

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Hero, menu and about from site content
	assert.Contains(t, body, "A table worth keeping")
	assert.Contains(t, body, "Braised lamb shoulder")
	assert.Contains(t, body, "Cooking what the market brings.")

	// Labeled inputs for every booking field
	for _, field := range []string{"full_name", "email", "phone", "date", "time", "guests", "notes"} {
		assert.Contains(t, body, `<label for="`+field+`"`, "missing label for %s", field)
	}

	// Submit control and guest default
	assert.Contains(t, body, ">Reserve</button>")
	assert.Contains(t, body, `name="guests"`)
	assert.Contains(t, body, `value="2"`)
	assert.NotContains(t, body, "Booking confirmed")
}

func TestReserveEmptyFormShowsErrors(t *testing.T) {
	ts, client := newTestClient(t)

	resp, err := client.PostForm(ts.URL+"/reserve", url.Values{})
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, validation.MsgFullName)
	assert.Contains(t, body, validation.MsgEmail)
	assert.Contains(t, body, `role="alert"`)
}

func TestReserveInvalidKeepsEnteredValues(t *testing.T) {
	ts, client := newTestClient(t)

	values := validReservationForm()
	values.Set("email", "not-an-email")

	resp, err := client.PostForm(ts.URL+"/reserve", values)
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, `value="Test User"`)
	assert.Contains(t, body, `value="not-an-email"`)
	assert.Contains(t, body, validation.MsgEmail)
	assert.NotContains(t, body, validation.MsgFullName)
}

func TestReserveSuccessConfirmsAndResets(t *testing.T) {
	ts, client := newTestClient(t)

	// Первый визит, чтобы получить cookie сессии
	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = client.PostForm(ts.URL+"/reserve", validReservationForm())
	require.NoError(t, err)
	body := readBody(t, resp)

	// PRG: клиент проследовал за редиректом на страницу
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Booking confirmed")
	assert.Contains(t, body, "2 guests on 2025-09-10 at 19:00")
	assert.Contains(t, body, "Test User")
	assert.Contains(t, body, "test@example.com")
	assert.Contains(t, body, `role="status"`)

	// Форма очищена до значений по умолчанию
	assert.Contains(t, body, `name="full_name" value=""`)
	assert.NotContains(t, body, `value="+9701234567"`)
}

func TestAPICreateReservation(t *testing.T) {
	ts, client := newTestClient(t)

	payload := map[string]any{
		"full_name": "Test User",
		"email":     "test@example.com",
		"phone":     "+9701234567",
		"date":      "2025-09-10",
		"time":      "19:00",
		"guests":    2,
		"notes":     "",
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := client.Post(ts.URL+"/api/v1/reservations", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Message string                `json:"message"`
		Summary string                `json:"summary"`
		Booking models.BookingRequest `json:"booking"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	assert.Equal(t, "Booking confirmed", result.Message)
	assert.Equal(t, "2 guests on 2025-09-10 at 19:00", result.Summary)
	assert.Equal(t, "Test User", result.Booking.FullName)
	assert.Equal(t, 2, result.Booking.Guests)
}

func TestAPICreateReservationGuestsAsString(t *testing.T) {
	ts, client := newTestClient(t)

	data := []byte(`{"full_name":"Test User","email":"test@example.com","phone":"+9701234567","date":"2025-09-10","time":"19:00","guests":"12"}`)
	resp, err := client.Post(ts.URL+"/api/v1/reservations", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPICreateReservationValidation(t *testing.T) {
	ts, client := newTestClient(t)

	tests := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{
			name:      "EmptyBody",
			body:      `{}`,
			wantField: models.FieldFullName,
			wantMsg:   validation.MsgFullName,
		},
		{
			name:      "NonNumericGuests",
			body:      `{"full_name":"Test User","email":"test@example.com","phone":"+9701234567","date":"2025-09-10","time":"19:00","guests":"many"}`,
			wantField: models.FieldGuests,
			wantMsg:   validation.MsgGuestsNumber,
		},
		{
			name:      "GuestsOutOfRange",
			body:      `{"full_name":"Test User","email":"test@example.com","phone":"+9701234567","date":"2025-09-10","time":"19:00","guests":13}`,
			wantField: models.FieldGuests,
			wantMsg:   "between 1 and 12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Post(ts.URL+"/api/v1/reservations", "application/json", bytes.NewReader([]byte(tt.body)))
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

			var result struct {
				Errors map[string]string `json:"errors"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
			assert.Contains(t, result.Errors[tt.wantField], tt.wantMsg)
		})
	}
}

func TestAPIValidateField(t *testing.T) {
	ts, client := newTestClient(t)

	post := func(body string) *http.Response {
		resp, err := client.Post(ts.URL+"/api/v1/reservations/validate", "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		return resp
	}

	t.Run("InvalidValue", func(t *testing.T) {
		resp := post(`{"field":"email","value":"broken"}`)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Field   string `json:"field"`
			Valid   bool   `json:"valid"`
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "email", result.Field)
		assert.False(t, result.Valid)
		assert.Equal(t, validation.MsgEmail, result.Message)
	})

	t.Run("ValidValue", func(t *testing.T) {
		resp := post(`{"field":"email","value":"test@example.com"}`)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Valid   bool   `json:"valid"`
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.True(t, result.Valid)
		assert.Empty(t, result.Message)
	})

	t.Run("UnknownField", func(t *testing.T) {
		resp := post(`{"field":"favorite_color","value":"red"}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPIMenu(t *testing.T) {
	ts, client := newTestClient(t)

	resp, err := client.Get(ts.URL + "/api/v1/menu")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Restaurant string             `json:"restaurant"`
		Menu       []site.MenuSection `json:"menu"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "Stolik", result.Restaurant)
	require.Len(t, result.Menu, 1)
	assert.Equal(t, "Braised lamb shoulder", result.Menu[0].Items[0].Name)
}

func TestHealthz(t *testing.T) {
	ts, client := newTestClient(t)

	resp, err := client.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReserveRejectsGet(t *testing.T) {
	ts, client := newTestClient(t)

	resp, err := client.Get(ts.URL + "/reserve")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}

	server := newTestServer(t, cfg)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	// Первый запрос считается по IP (cookie еще нет), дальше — по сессии.
	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		resp, err := client.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Equal(t, http.StatusTooManyRequests, statuses[4])
}

func TestSubmitThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.SubmitLimit = 2

	server := newTestServer(t, cfg)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	// Cookie выдаётся на первом запросе, дальше все сабмиты одной сессии.
	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	for i := 0; i < 2; i++ {
		resp, err = client.PostForm(ts.URL+"/reserve", validReservationForm())
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "submit %d should pass the throttle", i+1)
	}

	resp, err = client.PostForm(ts.URL+"/reserve", validReservationForm())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Тот же лимит действует и для JSON API
	body, err := json.Marshal(map[string]any{"full_name": "Test User"})
	require.NoError(t, err)
	resp, err = client.Post(ts.URL+"/api/v1/reservations", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
