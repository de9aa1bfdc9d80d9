package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/md-rashed-zaman/slotdesk/libs/auth"
	"github.com/md-rashed-zaman/slotdesk/libs/httpx"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/service"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/storage"
)

var testNow = time.Date(2030, 1, 6, 10, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	router *mux.Router
	tokens *auth.Issuer
	svc    *service.Service
}

func newTestServer(t *testing.T, limit httpx.Middleware) *testServer {
	t.Helper()
	store, err := storage.NewMemoryStore(context.Background(), &storage.MemorySnapshot[storage.State]{})
	require.NoError(t, err)
	hasher := accounts.NewBcryptVerifier(bcrypt.MinCost)
	adminHash, err := hasher.Hash("admin-password")
	require.NoError(t, err)
	authn, err := accounts.NewAuthenticator(hasher, "admin@slotdesk.test", adminHash)
	require.NoError(t, err)
	tokens, err := auth.NewIssuer("handler-test-secret-123", "slotdesk", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := service.New(store, authn, hasher, tokens, logger, service.Options{
		Now: func() time.Time { return testNow },
	})
	h := New(svc, logger)
	h.now = func() time.Time { return testNow }

	r := mux.NewRouter()
	h.Routes(r, tokens, limit)
	return &testServer{t: t, router: r, tokens: tokens, svc: svc}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var sess service.Session
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess.Token
}

// seedProvider onboards a provider through the admin API and opens Monday 09:00-10:00.
func (s *testServer) seedProvider(slug string) (id, token string) {
	s.t.Helper()
	admin := s.login("admin@slotdesk.test", "admin-password")
	rec := s.do(http.MethodPost, "/api/v1/admin/providers", admin, map[string]string{
		"name":          "Dr. Lee",
		"business_name": "City Clinic",
		"business_type": "medical",
		"email":         slug + "@clinic.test",
		"password":      "provider-password",
		"slug":          slug,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotContains(s.t, created, "password_hash")

	token = s.login(slug+"@clinic.test", "provider-password")
	rec = s.do(http.MethodPut, "/api/v1/provider/settings", token, map[string]any{
		"availability": []map[string]any{{"day_of_week": 1, "start": "09:00", "end": "10:00"}},
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return created["id"].(string), token
}

func decodeItems[T any](t *testing.T, rec *httptest.ResponseRecorder) []T {
	t.Helper()
	var body struct {
		Items []T `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Items
}

func TestPublicBookingFlow(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.seedProvider("city-clinic")

	rec := s.do(http.MethodGet, "/api/v1/public/providers/CITY-CLINIC", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_availability":true`)

	rec = s.do(http.MethodGet, "/api/v1/public/providers/city-clinic/slots?date=2030-01-07", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2030-01-07","has_availability":true,"open":true,"slots":[{"time":"09:00","available":true},{"time":"09:30","available":true}]}`, rec.Body.String())

	book := map[string]string{"date": "2030-01-07", "time": "09:00", "client_name": "Ana", "client_phone": "555-0100"}
	rec = s.do(http.MethodPost, "/api/v1/public/providers/city-clinic/appointments", "", book)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var appt model.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &appt))
	assert.Equal(t, model.StatusPending, appt.Status)

	rec = s.do(http.MethodPost, "/api/v1/public/providers/city-clinic/appointments", "", book)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/public/providers/city-clinic/appointments?phone=555-0100", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeItems[model.Appointment](t, rec), 1)

	rec = s.do(http.MethodPost, "/api/v1/provider/appointments/"+appt.ID+"/status", token, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)

	rec = s.do(http.MethodPost, "/api/v1/provider/appointments/"+appt.ID+"/status", token, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/provider/appointments/"+appt.ID+"/reminder", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sent":true`)

	rec = s.do(http.MethodGet, "/api/v1/provider/appointments?status=confirmed&q=ana", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeItems[model.Appointment](t, rec), 1)

	rec = s.do(http.MethodGet, "/api/v1/provider/clients", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	clients := decodeItems[model.Client](t, rec)
	require.Len(t, clients, 1)
	assert.Equal(t, 1, clients[0].Visits)

	rec = s.do(http.MethodGet, "/api/v1/provider/clients/555-0100/appointments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeItems[model.Appointment](t, rec), 1)
}

func TestPublicValidation(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedProvider("clinic")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown slug", http.MethodGet, "/api/v1/public/providers/nobody", nil, http.StatusNotFound},
		{"bad date", http.MethodGet, "/api/v1/public/providers/clinic/slots?date=01-07-2030", nil, http.StatusUnprocessableEntity},
		{"past date", http.MethodGet, "/api/v1/public/providers/clinic/slots?date=2030-01-01", nil, http.StatusUnprocessableEntity},
		{"missing phone", http.MethodGet, "/api/v1/public/providers/clinic/appointments", nil, http.StatusUnprocessableEntity},
		{"missing fields", http.MethodPost, "/api/v1/public/providers/clinic/appointments", map[string]string{"date": "2030-01-07"}, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, "/api/v1/public/providers/clinic/appointments", map[string]string{"foo": "bar"}, http.StatusBadRequest},
		{"time not offered", http.MethodPost, "/api/v1/public/providers/clinic/appointments",
			map[string]string{"date": "2030-01-07", "time": "13:00", "client_name": "A", "client_phone": "1"}, http.StatusUnprocessableEntity},
		{"wrong method", http.MethodDelete, "/api/v1/public/providers/clinic", nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, "", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthBoundaries(t *testing.T) {
	s := newTestServer(t, nil)
	_, providerToken := s.seedProvider("clinic")

	rec := s.do(http.MethodGet, "/api/v1/provider/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/admin/providers", providerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "clinic@clinic.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ghost@clinic.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSettingsAndAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	clinicID, token := s.seedProvider("clinic")
	s.seedProvider("gym")
	admin := s.login("admin@slotdesk.test", "admin-password")

	rec := s.do(http.MethodPut, "/api/v1/provider/settings", token, map[string]any{"slug": "GYM"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/provider/settings", token, map[string]any{
		"availability": []map[string]any{{"day_of_week": 1, "start": "10:00", "end": "09:00"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "availability[0]")

	rec = s.do(http.MethodPut, "/api/v1/provider/settings", token, map[string]any{"header_color": "red"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/provider/settings", token, map[string]any{"business_name": "Downtown Clinic", "header_color": "#00aa00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"business_name":"Downtown Clinic"`)

	rec = s.do(http.MethodGet, "/api/v1/admin/providers?q=downtown", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decodeItems[map[string]any](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, clinicID, found[0]["id"])
	assert.EqualValues(t, 30, found[0]["trial_days_left"])

	rec = s.do(http.MethodGet, "/api/v1/admin/providers/trials", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"expiring_soon":[],"expired":[]}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/admin/providers/"+clinicID+"/activation", admin, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = s.do(http.MethodPost, "/api/v1/admin/providers/"+clinicID+"/activation", admin, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/public/providers/clinic", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "clinic@clinic.test", "password": "provider-password"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/provider/settings", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMyBookingsInternationalPhone(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedProvider("clinic")

	book := map[string]string{"date": "2030-01-07", "time": "09:30", "client_name": "Ana", "client_phone": "+15551234"}
	rec := s.do(http.MethodPost, "/api/v1/public/providers/clinic/appointments", "", book)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/public/providers/clinic/appointments?phone=%2B15551234", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeItems[model.Appointment](t, rec), 1)

	// an unencoded plus is a space in a query string
	rec = s.do(http.MethodGet, "/api/v1/public/providers/clinic/appointments?phone=+15551234", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeItems[model.Appointment](t, rec))
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	limiter := httpx.NewMemoryLimiter(2, time.Minute)
	s := newTestServer(t, httpx.RateLimit(limiter, slog.New(slog.NewJSONHandler(io.Discard, nil)), true))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, s.do(http.MethodGet, "/api/v1/public/providers/nobody", "", nil).Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)
}
