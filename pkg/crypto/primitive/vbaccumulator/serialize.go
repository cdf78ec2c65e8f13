/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vbaccumulator

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	bls12381 "github.com/kilic/bls12-381"
)

const (
	// Number of bytes in G1 X coordinate.
	g1CompressedSize = 48

	// Number of bytes in G2 X(a, b) coordinates.
	g2CompressedSize = 96

	lenPrefixSize = 4
)

var (
	// ErrInvalidEncoding is returned when a serialized value is not valid
	// base64.
	ErrInvalidEncoding = errors.New("invalid base64 encoding")

	// ErrInvalidFormat is returned when decoded bytes do not frame a valid
	// curve point of the expected group.
	ErrInvalidFormat = errors.New("invalid point format")
)

// Serialize encodes the accumulator value as a length-prefixed compressed G1
// point in standard base64.
func (a *Accumulator) Serialize() string {
	return encodePoint(g1.ToCompressed(a.PointG1))
}

// DeserializeAccumulator decodes an accumulator value produced by Serialize.
// Curve membership and subgroup checks are performed on the decoded point;
// malformed input is always rejected.
func DeserializeAccumulator(serialized string) (*Accumulator, error) {
	point, err := decodePointG1(serialized)
	if err != nil {
		return nil, fmt.Errorf("deserialize accumulator: %w", err)
	}

	return &Accumulator{PointG1: point}, nil
}

// Serialize encodes the witness as a length-prefixed compressed G1 point in
// standard base64.
func (w *MembershipWitness) Serialize() string {
	return encodePoint(g1.ToCompressed(w.PointG1))
}

// DeserializeWitness decodes a membership witness produced by Serialize.
func DeserializeWitness(serialized string) (*MembershipWitness, error) {
	point, err := decodePointG1(serialized)
	if err != nil {
		return nil, fmt.Errorf("deserialize witness: %w", err)
	}

	return &MembershipWitness{PointG1: point}, nil
}

// Serialize encodes the public key as a length-prefixed compressed G2 point
// in standard base64.
func (pk *PublicKey) Serialize() string {
	return encodePoint(g2.ToCompressed(pk.PointG2))
}

// DeserializePublicKey decodes a public key produced by Serialize.
func DeserializePublicKey(serialized string) (*PublicKey, error) {
	framed, err := decodeFrame(serialized, g2CompressedSize)
	if err != nil {
		return nil, fmt.Errorf("deserialize public key: %w", err)
	}

	point, err := g2.FromCompressed(framed)
	if err != nil {
		return nil, fmt.Errorf("deserialize public key: %w: %v", ErrInvalidFormat, err)
	}

	return &PublicKey{PointG2: point}, nil
}

func encodePoint(compressed []byte) string {
	framed := make([]byte, lenPrefixSize+len(compressed))
	binary.BigEndian.PutUint32(framed, uint32(len(compressed)))
	copy(framed[lenPrefixSize:], compressed)

	return base64.StdEncoding.EncodeToString(framed)
}

func decodePointG1(serialized string) (*bls12381.PointG1, error) {
	framed, err := decodeFrame(serialized, g1CompressedSize)
	if err != nil {
		return nil, err
	}

	point, err := g1.FromCompressed(framed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return point, nil
}

func decodeFrame(serialized string, pointSize int) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	if len(decoded) != lenPrefixSize+pointSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFormat, lenPrefixSize+pointSize, len(decoded))
	}

	if binary.BigEndian.Uint32(decoded) != uint32(pointSize) {
		return nil, fmt.Errorf("%w: length prefix mismatch", ErrInvalidFormat)
	}

	return decoded[lenPrefixSize:], nil
}
