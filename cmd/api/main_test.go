package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aripzuan/BackEndAPI/pkg/bookings"
	"github.com/aripzuan/BackEndAPI/pkg/circuitbreaker"
	"github.com/aripzuan/BackEndAPI/pkg/courts"
	"github.com/aripzuan/BackEndAPI/pkg/database"
	"github.com/aripzuan/BackEndAPI/pkg/logger"
	"github.com/aripzuan/BackEndAPI/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testAPI struct {
	db      *gorm.DB
	handler http.Handler
}

func setupTestAPI(t *testing.T, cb *circuitbreaker.CircuitBreaker) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, registerValidators())

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver:         database.DriverSQLite,
		DSN:            ":memory:",
		ConnectRetries: 1,
		Log:            zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, zerolog.Nop()))
	t.Cleanup(func() { _ = database.Close(db) })

	router := newRouter(db, courts.NewRegistry(db, cb), bookings.NewLedger(db, cb), zerolog.Nop())
	return &testAPI{db: db, handler: withCORS([]string{"*"}, router)}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func tennisCourt() map[string]interface{} {
	return map[string]interface{}{"court_type": "tennis", "court_number": 1, "price_per_hour": 20}
}

func booking(userID int, date string, start, end interface{}) map[string]interface{} {
	return map[string]interface{}{
		"user_id":      userID,
		"court_type":   "tennis",
		"court_number": 1,
		"date":         date,
		"time_start":   start,
		"time_end":     end,
		"description":  "friendly",
	}
}

func TestOverlappingBookingRejected(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "POST", "/api/courts", tennisCourt())
	assert.Equal(t, http.StatusCreated, w.Code)
	var court map[string]interface{}
	decode(t, w, &court)
	assert.NotZero(t, court["id"])

	w = api.do(t, "POST", "/api/bookings", booking(1, "2024-06-01", "10:00", "11:00"))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, "POST", "/api/bookings", booking(2, "2024-06-01", "10:30", "11:30"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "Court already booked for this time.", resp["error"])

	var count int64
	require.NoError(t, api.db.Model(&models.Booking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBackToBackBookingAccepted(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "POST", "/api/bookings", booking(1, "2024-06-01", "10:00", "11:00"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, "POST", "/api/bookings", booking(2, "2024-06-01", "11:00", "12:00"))
	assert.Equal(t, http.StatusCreated, w.Code)

	var created map[string]interface{}
	decode(t, w, &created)
	assert.Equal(t, "2024-06-01", created["date"])
	assert.Equal(t, "11:00", created["time_start"])
	assert.Equal(t, "12:00", created["time_end"])
	assert.Equal(t, "friendly", created["description"])
}

func TestListBookingsForUser(t *testing.T) {
	api := setupTestAPI(t, nil)

	for _, b := range []map[string]interface{}{
		booking(42, "2024-06-01", "15:00", "16:00"),
		booking(42, "2024-06-03", "09:00", "10:00"),
		booking(7, "2024-06-02", "09:00", "10:00"),
		booking(42, "2024-06-01", "08:00", "09:00"),
	} {
		w := api.do(t, "POST", "/api/bookings", b)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := api.do(t, "GET", "/api/bookings?user_id=42", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var list []map[string]interface{}
	decode(t, w, &list)
	require.Len(t, list, 3)
	var got []string
	for _, b := range list {
		assert.Equal(t, float64(42), b["user_id"])
		got = append(got, fmt.Sprintf("%s %s", b["date"], b["time_start"]))
	}
	assert.Equal(t, []string{"2024-06-03 09:00", "2024-06-01 08:00", "2024-06-01 15:00"}, got)

	w = api.do(t, "GET", "/api/bookings", nil)
	decode(t, w, &list)
	assert.Len(t, list, 4)
}

func TestListBookingsInvalidUserID(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "GET", "/api/bookings?user_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateMissingCourt(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "POST", "/api/courts", tennisCourt())
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, "PUT", "/api/courts/999", map[string]interface{}{
		"court_type": "padel", "court_number": 2, "status": "unavailable", "price_per_hour": 5,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "Court not found", resp["error"])

	w = api.do(t, "GET", "/api/courts", nil)
	var list []map[string]interface{}
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "tennis", list[0]["court_type"])
	assert.Equal(t, float64(20), list[0]["price_per_hour"])
}

func TestCourtRoundTrip(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "POST", "/api/courts", map[string]interface{}{
		"court_type": "badminton", "court_number": 3, "status": "unavailable", "price_per_hour": 12.5,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Court
	decode(t, w, &created)

	w = api.do(t, "GET", fmt.Sprintf("/api/courts/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var got models.Court
	decode(t, w, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "badminton", got.CourtType)
	assert.Equal(t, 3, got.CourtNumber)
	assert.Equal(t, models.CourtUnavailable, got.Status)
	assert.Equal(t, 12.5, got.PricePerHour)
}

func TestCourtPriceInCents(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "POST", "/api/courts", map[string]interface{}{
		"court_type": "tennis", "court_number": 1, "price_per_hour": 12.35,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Court
	decode(t, w, &created)
	assert.Equal(t, 12.35, created.PricePerHour)

	w = api.do(t, "PUT", fmt.Sprintf("/api/courts/%d", created.ID), map[string]interface{}{
		"court_type": "tennis", "court_number": 1, "status": "available", "price_per_hour": 0.125,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, "GET", fmt.Sprintf("/api/courts/%d", created.ID), nil)
	var got models.Court
	decode(t, w, &got)
	assert.Equal(t, 12.35, got.PricePerHour)
}

func TestCreateCourtDefaultsStatus(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "POST", "/api/courts", tennisCourt())
	require.Equal(t, http.StatusCreated, w.Code)
	var court map[string]interface{}
	decode(t, w, &court)
	assert.Equal(t, "available", court["status"])
}

func TestUpdateCourt(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "POST", "/api/courts", tennisCourt())
	var created models.Court
	decode(t, w, &created)

	w = api.do(t, "PUT", fmt.Sprintf("/api/courts/%d", created.ID), map[string]interface{}{
		"court_type": "tennis", "court_number": 1, "status": "unavailable", "price_per_hour": 25,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var updated models.Court
	decode(t, w, &updated)
	assert.Equal(t, models.CourtUnavailable, updated.Status)
	assert.Equal(t, 25.0, updated.PricePerHour)
}

func TestCreateDuplicateCourt(t *testing.T) {
	api := setupTestAPI(t, nil)

	require.Equal(t, http.StatusCreated, api.do(t, "POST", "/api/courts", tennisCourt()).Code)
	w := api.do(t, "POST", "/api/courts", tennisCourt())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteCourt(t *testing.T) {
	api := setupTestAPI(t, nil)

	var c1, c2 models.Court
	decode(t, api.do(t, "POST", "/api/courts", tennisCourt()), &c1)
	second := tennisCourt()
	second["court_number"] = 2
	decode(t, api.do(t, "POST", "/api/courts", second), &c2)

	w := api.do(t, "DELETE", fmt.Sprintf("/api/courts/%d", c1.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, true, resp["success"])

	assert.Equal(t, http.StatusNotFound, api.do(t, "GET", fmt.Sprintf("/api/courts/%d", c1.ID), nil).Code)
	assert.Equal(t, http.StatusOK, api.do(t, "GET", fmt.Sprintf("/api/courts/%d", c2.ID), nil).Code)

	w = api.do(t, "DELETE", fmt.Sprintf("/api/courts/%d", c1.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteBookingTwice(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "POST", "/api/bookings", booking(1, "2024-06-01", "10:00", "11:00"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Booking
	decode(t, w, &created)

	path := fmt.Sprintf("/api/bookings/%d", created.ID)
	w = api.do(t, "DELETE", path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool           `json:"success"`
		Booking models.Booking `json:"booking"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, created.ID, resp.Booking.ID)

	w = api.do(t, "DELETE", path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var notFound map[string]interface{}
	decode(t, w, &notFound)
	assert.Equal(t, "Booking not found", notFound["error"])
}

func TestUpdateBooking(t *testing.T) {
	api := setupTestAPI(t, nil)

	var first, second models.Booking
	decode(t, api.do(t, "POST", "/api/bookings", booking(1, "2024-06-01", "10:00", "11:00")), &first)
	decode(t, api.do(t, "POST", "/api/bookings", booking(2, "2024-06-01", "12:00", "13:00")), &second)

	w := api.do(t, "PUT", fmt.Sprintf("/api/bookings/%d", second.ID), map[string]interface{}{
		"time_start": "11:00", "description": "moved",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated map[string]interface{}
	decode(t, w, &updated)
	assert.Equal(t, "11:00", updated["time_start"])
	assert.Equal(t, "13:00", updated["time_end"])
	assert.Equal(t, "moved", updated["description"])

	w = api.do(t, "PUT", fmt.Sprintf("/api/bookings/%d", second.ID), map[string]interface{}{
		"time_start": "10:30",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "Court already booked for this time.", resp["error"])

	w = api.do(t, "PUT", "/api/bookings/999", map[string]interface{}{"description": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidationErrors(t *testing.T) {
	api := setupTestAPI(t, nil)

	tests := []struct {
		name  string
		path  string
		body  map[string]interface{}
		field string
	}{
		{
			name:  "court missing type",
			path:  "/api/courts",
			body:  map[string]interface{}{"court_number": 1, "price_per_hour": 20},
			field: "court_type",
		},
		{
			name:  "court zero number",
			path:  "/api/courts",
			body:  map[string]interface{}{"court_type": "tennis", "court_number": 0, "price_per_hour": 20},
			field: "court_number",
		},
		{
			name:  "court negative price",
			path:  "/api/courts",
			body:  map[string]interface{}{"court_type": "tennis", "court_number": 1, "price_per_hour": -1},
			field: "price_per_hour",
		},
		{
			name:  "court price below a cent",
			path:  "/api/courts",
			body:  map[string]interface{}{"court_type": "tennis", "court_number": 1, "price_per_hour": 12.345},
			field: "price_per_hour",
		},
		{
			name:  "court unknown status",
			path:  "/api/courts",
			body:  map[string]interface{}{"court_type": "tennis", "court_number": 1, "price_per_hour": 1, "status": "closed"},
			field: "status",
		},
		{
			name:  "booking missing date",
			path:  "/api/bookings",
			body:  map[string]interface{}{"user_id": 1, "court_type": "tennis", "court_number": 1, "time_start": "10:00", "time_end": "11:00"},
			field: "date",
		},
		{
			name:  "booking bad date",
			path:  "/api/bookings",
			body:  booking(1, "01/06/2024", "10:00", "11:00"),
			field: "date",
		},
		{
			name:  "booking end before start",
			path:  "/api/bookings",
			body:  booking(1, "2024-06-01", "11:00", "10:00"),
			field: "time_end",
		},
		{
			name:  "booking empty range",
			path:  "/api/bookings",
			body:  booking(1, "2024-06-01", "10:00", "10:00"),
			field: "time_end",
		},
		{
			name:  "booking missing user",
			path:  "/api/bookings",
			body:  map[string]interface{}{"court_type": "tennis", "court_number": 1, "date": "2024-06-01", "time_start": "10:00", "time_end": "11:00"},
			field: "user_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, "POST", tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Error   string       `json:"error"`
				Details []fieldError `json:"details"`
			}
			decode(t, w, &resp)
			assert.Equal(t, "invalid request", resp.Error)
			var fields []string
			for _, d := range resp.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestInvalidClockNamesField(t *testing.T) {
	api := setupTestAPI(t, nil)

	var created models.Booking
	w := api.do(t, "POST", "/api/bookings", booking(1, "2024-06-01", "10:00", "11:00"))
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &created)
	updatePath := fmt.Sprintf("/api/bookings/%d", created.ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   map[string]interface{}
		field  string
	}{
		{"start out of range", "POST", "/api/bookings", booking(1, "2024-06-02", "25:00", "26:00"), "time_start"},
		{"start with sign", "POST", "/api/bookings", booking(1, "2024-06-02", "+9:00", "10:00"), "time_start"},
		{"end with sign", "POST", "/api/bookings", booking(1, "2024-06-02", "09:00", "10:+5"), "time_end"},
		{"end not a string", "POST", "/api/bookings", booking(1, "2024-06-02", "09:00", 10), "time_end"},
		{"update end", "PUT", updatePath, map[string]interface{}{"time_end": "11:75"}, "time_end"},
		{"update start", "PUT", updatePath, map[string]interface{}{"time_start": "ten"}, "time_start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Details []fieldError `json:"details"`
			}
			decode(t, w, &resp)
			require.Len(t, resp.Details, 1)
			assert.Equal(t, tt.field, resp.Details[0].Field)
		})
	}
}

func TestInvalidID(t *testing.T) {
	api := setupTestAPI(t, nil)

	assert.Equal(t, http.StatusBadRequest, api.do(t, "GET", "/api/courts/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, "DELETE", "/api/bookings/-1", nil).Code)
}

func TestHealthCheck(t *testing.T) {
	api := setupTestAPI(t, nil)

	w := api.do(t, "GET", "/manage/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "UP", resp["status"])

	require.NoError(t, database.Close(api.db))
	w = api.do(t, "GET", "/manage/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "DOWN", resp["status"])
}

func TestCORSAndRequestID(t *testing.T) {
	api := setupTestAPI(t, nil)

	req := httptest.NewRequest("GET", "/api/courts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))

	preflight := httptest.NewRequest("OPTIONS", "/api/bookings", nil)
	preflight.Header.Set("Origin", "http://localhost:3000")
	preflight.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	api.handler.ServeHTTP(w, preflight)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStorageFailuresOpenBreaker(t *testing.T) {
	cb := circuitbreaker.NewCircuitBreaker(2, time.Minute)
	cb.Ignore = isExpectedOutcome
	api := setupTestAPI(t, cb)

	assert.Equal(t, http.StatusNotFound, api.do(t, "GET", "/api/courts/1", nil).Code)
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState())

	require.NoError(t, api.db.Migrator().DropTable(&models.Court{}))

	for i := 0; i < 2; i++ {
		w := api.do(t, "GET", "/api/courts", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var resp map[string]interface{}
		decode(t, w, &resp)
		assert.Equal(t, "internal server error", resp["error"])
	}

	w := api.do(t, "GET", "/api/courts", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestIsExpectedOutcome(t *testing.T) {
	assert.True(t, isExpectedOutcome(courts.ErrNotFound))
	assert.True(t, isExpectedOutcome(fmt.Errorf("create: %w", bookings.ErrOverlap)))
	assert.True(t, isExpectedOutcome(context.Canceled))
	assert.False(t, isExpectedOutcome(errors.New("connection refused")))
}
