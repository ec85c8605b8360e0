package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Ed25519Flag is the signature scheme flag of ed25519 keys.
const Ed25519Flag byte = 0x00

// IntentScope ...
type IntentScope byte

const (
	// TransactionDataIntent is used for signing transactions.
	TransactionDataIntent IntentScope = 0
	// PersonalMessageIntent is used for signing arbitrary messages.
	PersonalMessageIntent IntentScope = 3
)

// signature flag || 64 bytes signature || 32 bytes public key
const serializedSignatureSize = 1 + ed25519.SignatureSize + ed25519.PublicKeySize

var (
	// ErrInvalidKey is returned when private key can not be decoded.
	ErrInvalidKey = errors.New("invalid private key")
	// ErrInvalidSignature is returned when signature is malformed or does not match.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUnsupportedScheme is returned for non ed25519 keys and signatures.
	ErrUnsupportedScheme = errors.New("unsupported signature scheme")
)

// Keypair is an ed25519 Sui keypair.
type Keypair struct {
	priv ed25519.PrivateKey
}

// KeypairFromBase64 decodes base64 key in Sui keystore format: scheme flag followed by 32 bytes seed.
// Bare 32 bytes seed is accepted as well.
func KeypairFromBase64(s string) (*Keypair, error) {
	b, err := decodeBase64(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	switch len(b) {
	case ed25519.SeedSize:
	case ed25519.SeedSize + 1:
		if b[0] != Ed25519Flag {
			return nil, fmt.Errorf("%w: flag %#x", ErrUnsupportedScheme, b[0])
		}
		b = b[1:]
	default:
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidKey, len(b))
	}

	return &Keypair{priv: ed25519.NewKeyFromSeed(b)}, nil
}

// PublicKey ...
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// Address returns Sui address of the keypair.
func (k *Keypair) Address() string {
	return AddressFromPublicKey(k.PublicKey())
}

// Sign signs message with intent and returns serialized base64 signature.
func (k *Keypair) Sign(scope IntentScope, msg []byte) string {
	digest := MessageDigest(scope, msg)
	sig := ed25519.Sign(k.priv, digest[:])

	out := make([]byte, 0, serializedSignatureSize)
	out = append(out, Ed25519Flag)
	out = append(out, sig...)
	out = append(out, k.PublicKey()...)

	return encodeBase64(out)
}

// SignTransaction signs transaction bytes.
func (k *Keypair) SignTransaction(txBytes []byte) string {
	return k.Sign(TransactionDataIntent, txBytes)
}

// SignPersonalMessage signs an arbitrary message the way wallets do.
func (k *Keypair) SignPersonalMessage(msg []byte) string {
	return k.Sign(PersonalMessageIntent, EncodeBytes(msg))
}

// MessageDigest returns blake2b-256 of intent prefixed message.
func MessageDigest(scope IntentScope, msg []byte) [32]byte {
	b := make([]byte, 0, 3+len(msg))
	b = append(b, byte(scope), 0, 0)
	b = append(b, msg...)
	return blake2b.Sum256(b)
}

// EncodeBytes returns BCS encoding of vector<u8>: ULEB128 length followed by bytes.
func EncodeBytes(b []byte) []byte {
	return append(uleb128(uint64(len(b))), b...)
}

func uleb128(n uint64) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// AddressFromPublicKey derives Sui address from ed25519 public key.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	b := make([]byte, 0, 1+len(pub))
	b = append(b, Ed25519Flag)
	b = append(b, pub...)
	sum := blake2b.Sum256(b)
	return "0x" + hex.EncodeToString(sum[:])
}

// NormalizeAddress lower-cases address and pads it to 32 bytes.
func NormalizeAddress(addr string) string {
	a := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
	if len(a) < 64 {
		a = strings.Repeat("0", 64-len(a)) + a
	}
	return "0x" + a
}

// VerifyPersonalMessage checks serialized signature of msg and that it was made by address.
func VerifyPersonalMessage(address string, msg []byte, signature string) error {
	b, err := decodeBase64(strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if len(b) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSignature)
	}

	if b[0] != Ed25519Flag {
		return fmt.Errorf("%w: flag %#x", ErrUnsupportedScheme, b[0])
	}

	if len(b) != serializedSignatureSize {
		return fmt.Errorf("%w: unexpected length %d", ErrInvalidSignature, len(b))
	}

	sig := b[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(b[1+ed25519.SignatureSize:])

	if AddressFromPublicKey(pub) != NormalizeAddress(address) {
		return fmt.Errorf("%w: signer does not match address", ErrInvalidSignature)
	}

	digest := MessageDigest(PersonalMessageIntent, EncodeBytes(msg))
	if !ed25519.Verify(pub, digest[:], sig) {
		return ErrInvalidSignature
	}

	return nil
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
