package vault

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	template   = []byte{0x03, 0x03, 0x5a, 0x1e, 0x00, 0x00, 0xff, 0xfe, 0x81, 0x42, 0x10, 0x07}
	passphrase = []byte("correct horse battery staple")
)

// Low cost so the tests stay fast; the format does not depend on it.
var fast = WithIterations(1000)

func TestSealOpenBlob(t *testing.T) {
	blob, err := Seal(template, passphrase, fast)
	require.NoError(t, err)
	assert.Len(t, blob, HeaderSize+len(template)+TagSize)

	opened, err := OpenBlob(blob, passphrase, fast)
	require.NoError(t, err)
	assert.Equal(t, template, opened)
}

func TestSealOpenBlob_Empty(t *testing.T) {
	blob, err := Seal(nil, passphrase, fast)
	require.NoError(t, err)
	assert.Len(t, blob, HeaderSize+TagSize)

	opened, err := OpenBlob(blob, passphrase, fast)
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestOpenBlob_WrongPassphrase(t *testing.T) {
	blob, err := Seal(template, passphrase, fast)
	require.NoError(t, err)

	opened, err := OpenBlob(blob, []byte("Tr0ub4dor&3"), fast)
	assert.Nil(t, opened)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestOpenBlob_WrongIterations(t *testing.T) {
	blob, err := Seal(template, passphrase, fast)
	require.NoError(t, err)

	_, err = OpenBlob(blob, passphrase, WithIterations(1001))
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestSeal_FreshSaltAndNonce(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	first, err := Seal(template, passphrase, fast, WithRand(r))
	require.NoError(t, err)
	second, err := Seal(template, passphrase, fast, WithRand(r))
	require.NoError(t, err)

	assert.NotEqual(t, first[:SaltSize], second[:SaltSize])
	assert.NotEqual(t, first[SaltSize:HeaderSize], second[SaltSize:HeaderSize])
	assert.NotEqual(t, first[HeaderSize:], second[HeaderSize:])
}

func TestSeal_HeaderComesFromRand(t *testing.T) {
	header := bytes.Repeat([]byte{0xab}, HeaderSize)

	blob, err := Seal(template, passphrase, fast, WithRand(bytes.NewReader(header)))
	require.NoError(t, err)
	assert.Equal(t, header, blob[:HeaderSize])

	// The reader is exhausted; a second seal must not silently reuse anything.
	_, err = Seal(template, passphrase, fast, WithRand(bytes.NewReader(nil)))
	require.Error(t, err)
}

func TestOpenBlob_Tampered(t *testing.T) {
	blob, err := Seal(template, passphrase, fast)
	require.NoError(t, err)

	for i := range blob {
		tampered := bytes.Clone(blob)
		tampered[i] ^= 0x01

		opened, err := OpenBlob(tampered, passphrase, fast)
		assert.Nil(t, opened, "byte %d", i)
		assert.ErrorIs(t, err, ErrIntegrity, "byte %d", i)
	}
}

func TestOpenBlob_Truncated(t *testing.T) {
	blob, err := Seal(template, passphrase, fast)
	require.NoError(t, err)

	for _, n := range []int{0, SaltSize, HeaderSize, HeaderSize + TagSize - 1, len(blob) - 1} {
		_, err := OpenBlob(blob[:n], passphrase, fast)
		assert.ErrorIs(t, err, ErrIntegrity, "length %d", n)
	}
}

func TestSeal_BadArguments(t *testing.T) {
	_, err := Seal(template, nil, fast)
	require.ErrorIs(t, err, ErrNoPassphrase)

	_, err = Seal(template, passphrase, WithIterations(0))
	require.ErrorIs(t, err, ErrBadIterations)

	_, err = OpenBlob(make([]byte, 64), nil)
	require.ErrorIs(t, err, ErrNoPassphrase)
}
