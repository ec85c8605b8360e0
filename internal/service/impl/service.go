// Package impl is implementation of service interface.
package impl

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/sharehub/internal/ledger"
	"github.com/Decentr-net/sharehub/internal/service"
	"github.com/Decentr-net/sharehub/internal/storage"
	"github.com/Decentr-net/sharehub/internal/token"
	"github.com/Decentr-net/sharehub/internal/wallet"
)

var log = logrus.WithField("layer", "service").WithField("package", "impl")

// DefaultLedgerTimeout ...
const DefaultLedgerTimeout = 30 * time.Second

// Deps are collaborators of the service.
type Deps struct {
	Storage       storage.Storage
	Ledger        ledger.Writer
	Verifier      wallet.Verifier
	Tokens        *token.Issuer
	LedgerTimeout time.Duration
}

type srv struct {
	s             storage.Storage
	ledger        ledger.Writer
	verifier      wallet.Verifier
	tokens        *token.Issuer
	ledgerTimeout time.Duration
	policy        *bluemonday.Policy
}

// New creates new instance of service.
func New(d Deps) service.Service {
	timeout := d.LedgerTimeout
	if timeout <= 0 {
		timeout = DefaultLedgerTimeout
	}

	return &srv{
		s:             d.Storage,
		ledger:        d.Ledger,
		verifier:      d.Verifier,
		tokens:        d.Tokens,
		ledgerTimeout: timeout,
		policy:        bluemonday.UGCPolicy(),
	}
}

// sanitize strips unsafe html and surrounding whitespace.
// Policy output is entity-escaped, so it is unescaped back to the text the user wrote.
func (s *srv) sanitize(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(strings.TrimSpace(v))))
}

// wrapGet converts storage.ErrNotFound to service.ErrNotFound and wraps anything else.
func wrapGet(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", service.ErrNotFound, what)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
