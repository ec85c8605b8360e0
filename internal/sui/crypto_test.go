package sui

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeypair(t *testing.T) *Keypair {
	seed := bytes.Repeat([]byte{1}, ed25519.SeedSize)
	k, err := KeypairFromBase64(base64.StdEncoding.EncodeToString(append([]byte{Ed25519Flag}, seed...)))
	require.NoError(t, err)
	return k
}

func TestKeypairFromBase64(t *testing.T) {
	seed := bytes.Repeat([]byte{1}, ed25519.SeedSize)

	tt := []struct {
		name string
		key  string
		err  error
	}{
		{name: "flagged", key: base64.StdEncoding.EncodeToString(append([]byte{0}, seed...))},
		{name: "bare seed", key: base64.StdEncoding.EncodeToString(seed)},
		{name: "secp256k1", key: base64.StdEncoding.EncodeToString(append([]byte{1}, seed...)), err: ErrUnsupportedScheme},
		{name: "short", key: base64.StdEncoding.EncodeToString(seed[:10]), err: ErrInvalidKey},
		{name: "not base64", key: "%%%", err: ErrInvalidKey},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			k, err := KeypairFromBase64(tc.key)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ed25519.NewKeyFromSeed(seed).Public(), k.PublicKey())
		})
	}
}

func TestAddress(t *testing.T) {
	k := testKeypair(t)

	addr := k.Address()
	assert.True(t, strings.HasPrefix(addr, "0x"))
	assert.Len(t, addr, 66)
	assert.Equal(t, addr, NormalizeAddress(strings.ToUpper(addr[2:])))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0x"+strings.Repeat("0", 63)+"6", NormalizeAddress("0x6"))
	assert.Equal(t, "0x"+strings.Repeat("a", 64), NormalizeAddress(" 0x"+strings.Repeat("A", 64)+" "))
}

func TestEncodeBytes(t *testing.T) {
	tt := []struct {
		len    int
		prefix []byte
	}{
		{len: 0, prefix: []byte{0x00}},
		{len: 5, prefix: []byte{0x05}},
		{len: 127, prefix: []byte{0x7f}},
		{len: 128, prefix: []byte{0x80, 0x01}},
		{len: 300, prefix: []byte{0xac, 0x02}},
		{len: 10000, prefix: []byte{0x90, 0x4e}},
	}

	for _, tc := range tt {
		b := EncodeBytes(make([]byte, tc.len))
		assert.Equal(t, tc.prefix, b[:len(tc.prefix)], tc.len)
		assert.Len(t, b, len(tc.prefix)+tc.len)
	}
}

func TestVerifyPersonalMessage(t *testing.T) {
	k := testKeypair(t)
	other, err := KeypairFromBase64(base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{2}, 32)))
	require.NoError(t, err)

	msg := []byte("Sign in to sharehub")
	sig := k.SignPersonalMessage(msg)

	require.NoError(t, VerifyPersonalMessage(k.Address(), msg, sig))
	require.NoError(t, VerifyPersonalMessage(strings.ToUpper(k.Address()[2:]), msg, sig))

	require.ErrorIs(t, VerifyPersonalMessage(other.Address(), msg, sig), ErrInvalidSignature)
	require.ErrorIs(t, VerifyPersonalMessage(k.Address(), []byte("other"), sig), ErrInvalidSignature)
	require.ErrorIs(t, VerifyPersonalMessage(k.Address(), msg, "not-base64"), ErrInvalidSignature)
	require.ErrorIs(t, VerifyPersonalMessage(k.Address(), msg, ""), ErrInvalidSignature)

	// transaction intent must not be accepted as personal message
	txSig := k.SignTransaction(EncodeBytes(msg))
	require.ErrorIs(t, VerifyPersonalMessage(k.Address(), msg, txSig), ErrInvalidSignature)

	raw, _ := base64.StdEncoding.DecodeString(sig)
	raw[0] = 0x01
	require.ErrorIs(t, VerifyPersonalMessage(k.Address(), msg, base64.StdEncoding.EncodeToString(raw)), ErrUnsupportedScheme)
}

func TestSign_Layout(t *testing.T) {
	k := testKeypair(t)
	tx := []byte{1, 2, 3}

	raw, err := base64.StdEncoding.DecodeString(k.SignTransaction(tx))
	require.NoError(t, err)
	require.Len(t, raw, serializedSignatureSize)

	assert.Equal(t, Ed25519Flag, raw[0])
	assert.Equal(t, []byte(k.PublicKey()), raw[1+ed25519.SignatureSize:])

	digest := MessageDigest(TransactionDataIntent, tx)
	assert.True(t, ed25519.Verify(k.PublicKey(), digest[:], raw[1:1+ed25519.SignatureSize]))
}
