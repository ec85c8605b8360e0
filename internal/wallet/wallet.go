// Package wallet verifies wallet ownership proofs.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/sharehub/internal/sui"
)

//go:generate mockgen -destination=./mock/wallet.go -package=mock -source=wallet.go

var log = logrus.WithField("layer", "wallet").WithField("package", "wallet")

// ErrInvalidSignature is returned when signature does not prove address ownership.
var ErrInvalidSignature = errors.New("invalid signature")

// Mode ...
type Mode string

const (
	// Ed25519Mode verifies Sui personal message signatures.
	Ed25519Mode Mode = "ed25519"
	// NoneMode accepts any signature.
	NoneMode Mode = "none"
)

// Verifier checks that signature of message was made by address owner.
type Verifier interface {
	Verify(ctx context.Context, address, message, signature string) error
}

// New returns Verifier for the mode.
func New(mode Mode) (Verifier, error) {
	switch mode {
	case Ed25519Mode, "":
		return ed25519Verifier{}, nil
	case NoneMode:
		log.Warn("wallet signature verification is disabled, any signature will be accepted")
		return noneVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown verification mode %q", mode)
	}
}

type ed25519Verifier struct{}

func (ed25519Verifier) Verify(_ context.Context, address, message, signature string) error {
	if address == "" || message == "" || signature == "" {
		return fmt.Errorf("%w: empty proof", ErrInvalidSignature)
	}

	if err := sui.VerifyPersonalMessage(address, []byte(message), signature); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return nil
}

type noneVerifier struct{}

func (noneVerifier) Verify(_ context.Context, address, _, _ string) error {
	if address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidSignature)
	}
	return nil
}
