package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Allow to use a function as the access logger
type loggerFunc func(string, ...any)

func (f loggerFunc) Info(msg string, v ...any) { f(msg, v...) }

func TestLoggerMiddleware(t *testing.T) {
	newRecorder := func() (loggerFunc, *int, *string, *[]any) {
		called := new(int)
		msg := new(string)
		args := new([]any)
		return loggerFunc(func(m string, v ...any) {
			*called++
			*msg = m
			*args = v
		}), called, msg, args
	}

	t.Run("logs status and size the handler wrote", func(t *testing.T) {
		logger, called, msg, args := newRecorder()

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, err := w.Write([]byte("hi"))
			require.NoError(t, err, "should write response")
		})

		srv := httptest.NewServer(LoggerMiddleware(logger)(h))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusTeapot, resp.StatusCode, "not expected code. Body: %s", string(body))
		require.Equal(t, "hi", string(body))

		require.Equal(t, 1, *called, "logger should be called once")
		require.Equal(t, "http request handled", *msg)
		require.Len(t, *args, 10, "logger should log 10 fields")
		require.Equal(t, []any{"method", "GET", "uri", "/test"}, (*args)[:4])
		require.Equal(t, "duration", (*args)[4])
		require.NotEmpty(t, (*args)[5], "duration should not be empty")
		require.Equal(t, []any{"status", http.StatusTeapot, "size", 2}, (*args)[6:])
	})

	t.Run("status defaults to 200 without WriteHeader", func(t *testing.T) {
		logger, _, _, args := newRecorder()

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := w.Write([]byte("implicit ok"))
			require.NoError(t, err)
		})

		srv := httptest.NewServer(LoggerMiddleware(logger)(h))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, []any{"status", http.StatusOK}, (*args)[6:8])
	})
}
