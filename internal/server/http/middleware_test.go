package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/orgdesk/internal/errs"
)

func TestRequestLogger_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodGet, "/ping/42?secret=x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get(requestIDHeader)
	require.NotEmpty(t, id)

	entries := logs.FilterMessage("http").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/ping/:id", fields["route"])
	require.Equal(t, int64(http.StatusTeapot), fields["status"])
	require.Equal(t, id, fields["request_id"])
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)

	req = httptest.NewRequest(http.MethodGet, "/ping/1", nil)
	req.Header.Set(requestIDHeader, "given-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "given-id", w.Header().Get(requestIDHeader))
}

func TestRecover_CatchesPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Recover(zaptest.NewLogger(t)))
	r.GET("/boom", func(*gin.Context) { panic("oh no") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	requireStatus(t, w, http.StatusInternalServerError)
	require.Equal(t, "internal", decodeError(t, w).Error)
}

func TestRouter_PanicStillLogsRequest(t *testing.T) {
	e := newEnv(t)
	e.auth.authPanic = true

	w := e.do(http.MethodGet, "/user/me", memberToken, nil, "")
	requireStatus(t, w, http.StatusInternalServerError)
	require.NotEmpty(t, w.Header().Get(requestIDHeader))

	require.Equal(t, 1, e.logs.FilterMessage("panic").Len())
	entries := e.logs.FilterMessage("http").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, int64(http.StatusInternalServerError), fields["status"])
	require.Equal(t, "/user/:id", fields["route"])
	require.Equal(t, w.Header().Get(requestIDHeader), fields["request_id"])
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestRecover_NoPanicPassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Recover(zaptest.NewLogger(t)))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "fine") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	requireStatus(t, w, http.StatusOK)
	require.Equal(t, "fine", w.Body.String())
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{errs.New(errs.ErrBadRequest, "x"), http.StatusBadRequest, "bad_request"},
		{errs.ErrTokenExpired, http.StatusUnauthorized, "unauthorized"},
		{errs.New(errs.ErrForbidden, "x"), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("wrap: %w", errs.ErrNotFound), http.StatusNotFound, "not_found"},
		{errs.New(errs.ErrAlreadyExists, "x"), http.StatusConflict, "conflict"},
		{errs.New(errs.ErrRateLimited, "x"), http.StatusTooManyRequests, "rate_limited"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := statusOf(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.Equal(t, tc.code, code, tc.err.Error())
	}
}
