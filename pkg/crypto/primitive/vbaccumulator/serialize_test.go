/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vbaccumulator_test

import (
	"encoding/base64"
	"testing"

	bls12381 "github.com/kilic/bls12-381"
	"github.com/stretchr/testify/require"

	"github.com/csdjwt/csdjwt-go/pkg/crypto/primitive/vbaccumulator"
)

func TestSerializeRoundTrip(t *testing.T) {
	params, keypair, accumulator, state, err := vbaccumulator.Initialize(0, 1)
	require.NoError(t, err)

	element := vbaccumulator.FrFromString("a::\"1\"")

	accumulator, err = accumulator.Add(element, keypair.SecretKey, state)
	require.NoError(t, err)

	witness, err := accumulator.Witness(element, keypair.SecretKey, state)
	require.NoError(t, err)

	accSerialized := accumulator.Serialize()
	accDecoded, err := vbaccumulator.DeserializeAccumulator(accSerialized)
	require.NoError(t, err)
	require.Equal(t, accSerialized, accDecoded.Serialize())
	require.True(t, accumulator.Equal(accDecoded))

	pkSerialized := keypair.PublicKey.Serialize()
	pkDecoded, err := vbaccumulator.DeserializePublicKey(pkSerialized)
	require.NoError(t, err)
	require.Equal(t, pkSerialized, pkDecoded.Serialize())

	witSerialized := witness.Serialize()
	witDecoded, err := vbaccumulator.DeserializeWitness(witSerialized)
	require.NoError(t, err)
	require.Equal(t, witSerialized, witDecoded.Serialize())

	// the deserialized values still verify
	require.True(t, accDecoded.VerifyMembership(element, witDecoded, pkDecoded, params))
}

func TestDeserializeInvalidBase64(t *testing.T) {
	_, err := vbaccumulator.DeserializeAccumulator("not-base64!!")
	require.ErrorIs(t, err, vbaccumulator.ErrInvalidEncoding)

	_, err = vbaccumulator.DeserializeWitness("not-base64!!")
	require.ErrorIs(t, err, vbaccumulator.ErrInvalidEncoding)

	_, err = vbaccumulator.DeserializePublicKey("not-base64!!")
	require.ErrorIs(t, err, vbaccumulator.ErrInvalidEncoding)
}

func TestDeserializeInvalidFormat(t *testing.T) {
	// valid base64 of garbage bytes with a correct-looking length
	garbage := make([]byte, 4+48)
	garbage[3] = 48

	for i := 4; i < len(garbage); i++ {
		garbage[i] = 0xFF
	}

	_, err := vbaccumulator.DeserializeAccumulator(base64.StdEncoding.EncodeToString(garbage))
	require.ErrorIs(t, err, vbaccumulator.ErrInvalidFormat)

	// truncated payload
	_, err = vbaccumulator.DeserializeAccumulator(base64.StdEncoding.EncodeToString(garbage[:20]))
	require.ErrorIs(t, err, vbaccumulator.ErrInvalidFormat)

	// G1-sized payload is not a valid public key
	_, keypair, accumulator, state, err := vbaccumulator.Initialize(0, 1)
	require.NoError(t, err)

	accumulator, err = accumulator.Add(vbaccumulator.FrFromString("a::\"1\""), keypair.SecretKey, state)
	require.NoError(t, err)

	_, err = vbaccumulator.DeserializePublicKey(accumulator.Serialize())
	require.ErrorIs(t, err, vbaccumulator.ErrInvalidFormat)

	// wrong length prefix
	framed, err := base64.StdEncoding.DecodeString(accumulator.Serialize())
	require.NoError(t, err)

	framed[3] = 47

	_, err = vbaccumulator.DeserializeAccumulator(base64.StdEncoding.EncodeToString(framed))
	require.ErrorIs(t, err, vbaccumulator.ErrInvalidFormat)
}

func TestWitnessTamperDetection(t *testing.T) {
	params, keypair, accumulator, state, err := vbaccumulator.Initialize(0, 1)
	require.NoError(t, err)

	element := vbaccumulator.FrFromString("a::\"1\"")

	accumulator, err = accumulator.AddBatch([]*bls12381.Fr{
		element,
		vbaccumulator.FrFromString("b::\"2\""),
	}, keypair.SecretKey, state)
	require.NoError(t, err)

	witness, err := accumulator.Witness(element, keypair.SecretKey, state)
	require.NoError(t, err)

	witnessBytes, err := base64.StdEncoding.DecodeString(witness.Serialize())
	require.NoError(t, err)

	// flipping any payload byte either fails decoding or fails verification,
	// never crashes and never verifies
	for i := 4; i < len(witnessBytes); i++ {
		tampered := make([]byte, len(witnessBytes))
		copy(tampered, witnessBytes)
		tampered[i] ^= 0x01

		decoded, err := vbaccumulator.DeserializeWitness(base64.StdEncoding.EncodeToString(tampered))
		if err != nil {
			continue
		}

		require.False(t, accumulator.VerifyMembership(element, decoded, keypair.PublicKey, params))
	}
}
