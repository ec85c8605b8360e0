// Package health contains code for health checks.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Decentr-net/sharehub/internal/api"
)

var log = logrus.WithField("layer", "http").WithField("package", "health")

// nolint:gochecknoglobals
var (
	version = "dev"
	commit  = "undefined"
)

// GetVersion returns service's version and commit.
func GetVersion() string {
	return fmt.Sprintf("%s-%s", version, commit)
}

// Pinger pings external service.
type Pinger interface {
	Ping(ctx context.Context) error
	// Name returns name of pinger
	Name() string
}

type subjectPinger struct {
	f func(ctx context.Context) error
	s string
}

func (p subjectPinger) Ping(ctx context.Context) error {
	return p.f(ctx)
}

func (p subjectPinger) Name() string {
	return p.s
}

// SubjectPinger wraps ping function, e.g. (*sql.DB).PingContext, with a name.
func SubjectPinger(s string, f func(ctx context.Context) error) Pinger {
	return subjectPinger{
		f: f,
		s: s,
	}
}

// Response ...
type Response struct {
	Version string            `json:"version"`
	Commit  string            `json:"commit"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Handler pings all dependencies concurrently and responds 503 if any of them failed.
func Handler(timeout time.Duration, p ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			gr   errgroup.Group
			mu   sync.Mutex
			resp = Response{Version: version, Commit: commit}
		)

		for i := range p {
			v := p[i]
			gr.Go(func() error {
				if err := v.Ping(ctx); err != nil {
					log.WithError(err).WithField("subject", v.Name()).Error("health check failed")

					mu.Lock()
					if resp.Errors == nil {
						resp.Errors = map[string]string{}
					}
					resp.Errors[v.Name()] = err.Error()
					mu.Unlock()

					return err
				}
				return nil
			})
		}

		if err := gr.Wait(); err != nil {
			api.WriteOK(w, http.StatusServiceUnavailable, resp)
			return
		}

		api.WriteOK(w, http.StatusOK, resp)
	}
}
