package vault

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSealProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("open(seal(T, P), P) == T", prop.ForAll(
		func(tpl []byte, pass string) bool {
			blob, err := Seal(tpl, []byte(pass), fast)
			if err != nil {
				return false
			}
			opened, err := OpenBlob(blob, []byte(pass), fast)
			return err == nil && bytes.Equal(opened, tpl)
		},
		gen.SliceOf(gen.UInt8()),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.Property("a different passphrase fails closed", prop.ForAll(
		func(tpl []byte, pass, other string) bool {
			if pass == other {
				return true
			}
			blob, err := Seal(tpl, []byte(pass), fast)
			if err != nil {
				return false
			}
			opened, err := OpenBlob(blob, []byte(other), fast)
			return opened == nil && errors.Is(err, ErrIntegrity)
		},
		gen.SliceOfN(64, gen.UInt8()),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.Property("ciphertext length is plaintext plus overhead", prop.ForAll(
		func(tpl []byte) bool {
			blob, err := Seal(tpl, passphrase, fast)
			return err == nil && len(blob) == len(tpl)+HeaderSize+TagSize
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
