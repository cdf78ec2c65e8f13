/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/common"
	"github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/issuer"
)

func testEnvelope(t *testing.T, claims map[string]interface{}, conceal ...string) map[string]interface{} {
	t.Helper()

	encoder := issuer.NewEncoderFromMap(claims)

	for _, path := range conceal {
		_, err := encoder.Conceal(path)
		require.NoError(t, err)
	}

	envelope, err := encoder.Finalize()
	require.NoError(t, err)

	return envelope
}

func TestParse(t *testing.T) {
	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: privKey},
		(&jose.SignerOptions{}).WithType(common.HeaderTyp))
	require.NoError(t, err)

	encoder := issuer.NewEncoderFromMap(map[string]interface{}{
		"given_name": "Albert",
		"last_name":  "Smith",
		"age":        42,
	}, issuer.WithIssuer("https://issuer.example.com"))

	_, err = encoder.Conceal("/age")
	require.NoError(t, err)

	presentation, err := encoder.Sign(signer)
	require.NoError(t, err)

	t.Run("with signature verification", func(t *testing.T) {
		claims, err := Parse(presentation, WithVerificationKey(&privKey.PublicKey))
		require.NoError(t, err)
		require.Equal(t, "Albert", claims["given_name"])
		require.Equal(t, "Smith", claims["last_name"])
		require.Equal(t, "https://issuer.example.com", claims["iss"])
		require.NotContains(t, claims, "age")
	})

	t.Run("without signature verification", func(t *testing.T) {
		claims, err := Parse(presentation)
		require.NoError(t, err)
		require.Equal(t, "Albert", claims["given_name"])
	})

	t.Run("wrong verification key", func(t *testing.T) {
		otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		_, err = Parse(presentation, WithVerificationKey(&otherKey.PublicKey))
		require.Error(t, err)
		require.Contains(t, err.Error(), "verify issuer signature")
	})

	t.Run("malformed presentation", func(t *testing.T) {
		_, err := Parse("no-separator")
		require.ErrorIs(t, err, common.ErrInvalidPresentation)

		_, err = Parse("not.a.jwt~")
		require.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	decoded, err := Decode(map[string]interface{}{
		"scalar": "value",
		"nested": map[string]interface{}{"inner": float64(1)},
	})
	require.NoError(t, err)
	require.Equal(t, "value", decoded["scalar"])
	require.Equal(t, map[string]interface{}{"inner": float64(1)}, decoded["nested"])

	_, err = Decode(map[string]interface{}{
		"list": []interface{}{"a", "b"},
	})
	require.ErrorIs(t, err, ErrArrayNotSupported)

	// arrays nested below an object are rejected too
	_, err = Decode(map[string]interface{}{
		"nested": map[string]interface{}{"list": []interface{}{"a"}},
	})
	require.ErrorIs(t, err, ErrArrayNotSupported)
}

func TestValidateObject(t *testing.T) {
	envelope := testEnvelope(t, map[string]interface{}{
		"a": "1",
		"b": "2",
		"c": "3",
	}, "/b")

	require.NoError(t, ValidateObject(envelope))
	require.NoError(t, ValidateObject(envelope, WithWorkerCount(1)))
}

func TestValidateObject_CorruptedWitness(t *testing.T) {
	envelope := testEnvelope(t, map[string]interface{}{
		"a": "1",
		"b": "2",
		"c": "3",
	})

	// swap two witnesses so both fail membership but still decode
	envelope[`a::"1"`], envelope[`c::"3"`] = envelope[`c::"3"`], envelope[`a::"1"`]

	err := ValidateObject(envelope)
	require.Error(t, err)

	aggErr := &AggregateError{}
	require.ErrorAs(t, err, &aggErr)
	require.Equal(t, []string{`a::"1"`, `c::"3"`}, aggErr.ClaimKeys)
	require.Contains(t, err.Error(), `a::"1"`)
}

func TestValidateObject_TamperedClaimValue(t *testing.T) {
	envelope := testEnvelope(t, map[string]interface{}{
		"role": "user",
	})

	// rename the claim string, keeping its witness
	envelope[`role::"admin"`] = envelope[`role::"user"`]
	delete(envelope, `role::"user"`)

	err := ValidateObject(envelope)

	aggErr := &AggregateError{}
	require.ErrorAs(t, err, &aggErr)
	require.Equal(t, []string{`role::"admin"`}, aggErr.ClaimKeys)
}

func TestValidateObject_Errors(t *testing.T) {
	valid := func() map[string]interface{} {
		return testEnvelope(t, map[string]interface{}{"a": "1"})
	}

	t.Run("missing control field", func(t *testing.T) {
		envelope := valid()
		delete(envelope, common.AccumulatorKey)

		require.ErrorIs(t, ValidateObject(envelope), common.ErrInvalidEnvelope)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		envelope := valid()
		envelope[common.SDAlgorithmKey] = "sha-256"

		err := ValidateObject(envelope)
		require.ErrorIs(t, err, common.ErrInvalidEnvelope)
		require.Contains(t, err.Error(), "not supported")
	})

	t.Run("malformed param seed", func(t *testing.T) {
		envelope := valid()
		envelope[common.ParamSeedKey] = "not a number"

		require.ErrorIs(t, ValidateObject(envelope), common.ErrInvalidEnvelope)
	})

	t.Run("undecodable accumulator", func(t *testing.T) {
		envelope := valid()
		envelope[common.AccumulatorKey] = "!!! not base64 !!!"

		require.Error(t, ValidateObject(envelope))
	})

	t.Run("undecodable witness", func(t *testing.T) {
		envelope := valid()
		envelope[`a::"1"`] = "!!! not base64 !!!"

		err := ValidateObject(envelope)
		require.Error(t, err)
		require.Contains(t, err.Error(), `a::"1"`)
	})
}

func TestRestoreClaims(t *testing.T) {
	restored, err := RestoreClaims(map[string]interface{}{
		common.AccumulatorKey: "acc",
		common.PublicKeyKey:   "pk",
		common.ParamSeedKey:   "1",
		common.SDAlgorithmKey: common.SDAlgAccumulator,
		"iss":                 "https://issuer.example.com",
		`name::"Albert"`:      "witness-1",
		`age::42`:             "witness-2",
	})
	require.NoError(t, err)
	require.Len(t, restored, 3)
	require.Equal(t, "https://issuer.example.com", restored["iss"])
	require.Equal(t, "Albert", restored["name"])
	require.Equal(t, float64(42), restored["age"])

	_, err = RestoreClaims(map[string]interface{}{
		"not a claim string": "witness",
	})
	require.ErrorIs(t, err, common.ErrDataTypeMismatch)

	// two claim strings that collapse to the same name
	_, err = RestoreClaims(map[string]interface{}{
		`name::"Albert"`: "witness-1",
		`name::"Berta"`:  "witness-2",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}
