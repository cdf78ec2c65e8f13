/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vbaccumulator

import (
	bls12381 "github.com/kilic/bls12-381"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// FrFromString maps a claim string to an element of the scalar field by
// hashing its UTF-8 bytes with SHA3-256 and reducing the 256-bit digest
// modulo the group order (big-endian). The mapping is deterministic and
// accepts any string; two claims with equal concatenated string forms
// produce the same scalar.
func FrFromString(value string) *bls12381.Fr {
	digest := sha3.Sum256([]byte(value))

	return bls12381.NewFr().FromBytes(digest[:])
}

// f2192 is the field element 2^192, the radix recombining the two halves of
// a 48-byte OKM.
func f2192() *bls12381.Fr {
	return &bls12381.Fr{0, 0, 0, 1}
}

// frFromOKM derives a scalar from seed key material: the input is widened to
// 48 bytes with blake2b-384 and the two 24-byte halves are reduced
// separately, then recombined as high*2^192 + low. Splitting keeps each
// FromBytes input within 32 bytes while the full 384-bit digest still feeds
// the scalar.
func frFromOKM(message []byte) *bls12381.Fr {
	const halfLen = 24

	// keyless blake2b cannot fail
	h, _ := blake2b.New384(nil) //nolint:errcheck
	_, _ = h.Write(message)
	okm := h.Sum(nil)

	pad := make([]byte, 8)

	high := bls12381.NewFr().FromBytes(append(pad, okm[:halfLen]...))
	high.Mul(high, f2192())

	low := bls12381.NewFr().FromBytes(append(pad, okm[halfLen:]...))
	high.Add(high, low)

	return high
}

// frToRepr converts a scalar to the internal representation MulScalar
// expects. Multiplying by one performs the conversion without changing the
// value.
func frToRepr(fr *bls12381.Fr) *bls12381.Fr {
	frRepr := bls12381.NewFr()
	frRepr.Mul(fr, &bls12381.Fr{1})

	return frRepr
}

// frKey is the canonical byte representation of a scalar, used to index the
// membership registry.
func frKey(fr *bls12381.Fr) string {
	return string(fr.ToBytes())
}
