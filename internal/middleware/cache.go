// Package middleware contains http middlewares of the service.
package middleware

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/sharehub/internal/cache"
	"github.com/Decentr-net/sharehub/internal/metrics"
)

var log = logrus.WithField("layer", "http").WithField("package", "middleware")

// Cached serves successful responses of handler from cache for ttl.
// Cache failures are logged and the request is served by handler.
func Cached(c cache.Cache, ttl time.Duration, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.RequestURI

		content, ok, err := c.Get(r.Context(), key)
		if err != nil {
			log.WithError(err).Warn("failed to get cached response")
		}
		metrics.RecordCacheLookup(ok)

		if ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(content)
			return
		}

		rec := httptest.NewRecorder()
		handler(rec, r)

		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		content = rec.Body.Bytes()

		if rec.Code == http.StatusOK {
			if err := c.Set(r.Context(), key, content, ttl); err != nil {
				log.WithError(err).Warn("failed to cache response")
			}
		}

		_, _ = w.Write(content)
	}
}

// Invalidates drops cached responses under prefixes after handler succeeded.
func Invalidates(c cache.Cache, handler http.HandlerFunc, prefixes ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := &statusWriter{ResponseWriter: w}
		handler(ww, r)

		if ww.status >= http.StatusBadRequest {
			return
		}

		for _, p := range prefixes {
			if err := c.Invalidate(r.Context(), p); err != nil {
				log.WithError(err).WithField("prefix", p).Error("failed to invalidate cache")
			}
		}
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}
