package engine

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPage(t *testing.T) {
	Init(Config{FetchTimeout: 5 * time.Second})

	t.Run("plain", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("<html>ok</html>"))
		}))
		defer srv.Close()

		body, err := FetchPage(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "<html>ok</html>", string(body))
	})

	t.Run("gzip", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			_, _ = gz.Write([]byte("zipped"))
			_ = gz.Close()
		}))
		defer srv.Close()

		body, err := FetchPage(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "zipped", string(body))
	})

	t.Run("retries transient status", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("second"))
		}))
		defer srv.Close()

		body, err := FetchPage(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "second", string(body))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("permanent status", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := FetchPage(context.Background(), srv.URL)
		var serr *StatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, http.StatusNotFound, serr.Code)
		assert.Equal(t, int32(1), calls.Load(), "permanent status is not retried")
	})
}
