// Package ledger records shares on the Sui ledger.
package ledger

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=./mock/ledger.go -package=mock -source=ledger.go

const (
	// MinBalance is the minimal signer balance in MIST required to attempt a write.
	MinBalance uint64 = 1_000_000
	// MaxTitleSize is the maximal size of title in bytes.
	MaxTitleSize = 1000
	// MaxContentSize is the maximal size of content in bytes.
	MaxContentSize = 10000
)

var (
	// ErrInsufficientFunds is returned when signer can not pay for gas.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrEncoding is returned when title or content can not be encoded for the ledger.
	ErrEncoding = errors.New("invalid encoding")
	// ErrValidation is returned when title or content is empty or too large.
	ErrValidation = errors.New("invalid share")
	// ErrLedgerWriteFailed is returned on any other ledger failure.
	ErrLedgerWriteFailed = errors.New("ledger write failed")
)

// Writer records shares on the ledger.
type Writer interface {
	// RecordShare writes share and returns the transaction digest.
	RecordShare(ctx context.Context, title, content string) (string, error)
}
