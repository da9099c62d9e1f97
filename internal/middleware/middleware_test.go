package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func runAuth(t *testing.T, header string) (*httptest.ResponseRecorder, models.Principal, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got models.Principal
	err := JWTAuth(testSecret)(func(c echo.Context) error {
		got = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, got, err
}

func TestJWTAuth_Valid(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", "admin"))

	rec, p, err := runAuth(t, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Principal{ID: "user-1", Role: models.RoleAdmin}, p)
}

func TestJWTAuth_DefaultRole(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", ""))

	_, p, err := runAuth(t, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, p.Role)
}

func TestJWTAuth_Rejects(t *testing.T) {
	expired := validClaims("user-1", "user")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("user-1", "user"))},
		{"wrong alg", "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("user-1", "user"))},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"no subject", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("", "user"))},
		{"unknown role", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", "root"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runAuth(t, tt.header)
			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}

func TestPrincipalFrom_Missing(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, models.Principal{}, PrincipalFrom(c))
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"http error", echo.NewHTTPError(http.StatusConflict, "room already booked"), http.StatusConflict, "room already booked"},
		{"plain error hides detail", errors.New("pq: connection reset"), http.StatusInternalServerError, "Internal Server Error"},
		{"not found route", echo.ErrNotFound, http.StatusNotFound, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}
}

type sampleRequest struct {
	RoomID  uint   `json:"room_id" validate:"required"`
	CheckIn string `json:"check_in_date" validate:"required,datetime=2006-01-02"`
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&sampleRequest{RoomID: 1, CheckIn: "2024-06-01"}))

	err := v.Validate(&sampleRequest{CheckIn: "06/01/2024"})
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Contains(t, he.Message, "room_id is required")
	assert.Contains(t, he.Message, "check_in_date must be a date in 2006-01-02 format")
}
