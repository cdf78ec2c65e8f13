/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"testing"

	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/require"
)

func TestDisclosureRoundTrip(t *testing.T) {
	t.Run("object field", func(t *testing.T) {
		disclosure, err := NewDisclosure("age", 42)
		require.NoError(t, err)
		require.Equal(t, "age", disclosure.ClaimName)
		require.Equal(t, disclosure.Disclosure, disclosure.String())

		parsed, err := ParseDisclosure(disclosure.Disclosure)
		require.NoError(t, err)
		require.Equal(t, "age", parsed.ClaimName)
		require.Equal(t, float64(42), parsed.ClaimValue)
	})

	t.Run("array element", func(t *testing.T) {
		disclosure, err := NewDisclosure("", "US")
		require.NoError(t, err)
		require.Empty(t, disclosure.ClaimName)

		parsed, err := ParseDisclosure(disclosure.Disclosure)
		require.NoError(t, err)
		require.Empty(t, parsed.ClaimName)
		require.Equal(t, "US", parsed.ClaimValue)
	})
}

func TestParseDisclosureErrors(t *testing.T) {
	_, err := ParseDisclosure("\x00not multibase")
	require.ErrorIs(t, err, ErrInvalidDisclosure)

	encode := func(t *testing.T, raw string) string {
		t.Helper()

		encoded, err := multibase.Encode(multibase.Base64url, []byte(raw))
		require.NoError(t, err)

		return encoded
	}

	_, err = ParseDisclosure(encode(t, `{"not":"an array"}`))
	require.ErrorIs(t, err, ErrInvalidDisclosure)

	_, err = ParseDisclosure(encode(t, `[]`))
	require.ErrorIs(t, err, ErrInvalidDisclosure)

	_, err = ParseDisclosure(encode(t, `["a", "b", "c"]`))
	require.ErrorIs(t, err, ErrInvalidDisclosure)

	_, err = ParseDisclosure(encode(t, `[42, "value"]`))
	require.ErrorIs(t, err, ErrInvalidDisclosure)
}
