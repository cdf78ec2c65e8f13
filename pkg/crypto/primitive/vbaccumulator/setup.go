/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vbaccumulator

import (
	"encoding/binary"
	"fmt"
	"io"

	bls12381 "github.com/kilic/bls12-381"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

const (
	generateParamsG1Salt = "VB-ACC-PARAM-GEN-G1-SALT-"
	generateParamsG2Salt = "VB-ACC-PARAM-GEN-G2-SALT-"
	generateKeySalt      = "VB-ACC-KEYGEN-SALT-"
)

// SetupParams holds the public curve parameters of the accumulator: a G1
// generator P used as the initial accumulator value and a G2 generator
// PTilde against which membership pairing checks run. Parameters are a pure
// function of the seed: the same seed always yields byte-identical
// parameters.
type SetupParams struct {
	P      *bls12381.PointG1
	PTilde *bls12381.PointG2
}

// GenerateSetupParams deterministically derives setup parameters from a
// 64-bit seed.
func GenerateSetupParams(paramSeed uint64) (*SetupParams, error) {
	seed := seedBytes(paramSeed)

	okmG1, err := expandSeed(seed, generateParamsG1Salt)
	if err != nil {
		return nil, fmt.Errorf("expand param seed: %w", err)
	}

	p := g1.New()
	g1.MulScalar(p, g1.One(), frToRepr(frFromOKM(okmG1)))

	okmG2, err := expandSeed(seed, generateParamsG2Salt)
	if err != nil {
		return nil, fmt.Errorf("expand param seed: %w", err)
	}

	pTilde := g2.New()
	g2.MulScalar(pTilde, g2.One(), frToRepr(frFromOKM(okmG2)))

	return &SetupParams{P: p, PTilde: pTilde}, nil
}

// IsValid reports whether the parameters are usable: both generators must be
// non-identity points.
func (sp *SetupParams) IsValid() bool {
	return sp != nil && sp.P != nil && sp.PTilde != nil &&
		!g1.IsZero(sp.P) && !g2.IsZero(sp.PTilde)
}

// SecretKey is the accumulator manager's secret scalar. It is owned by the
// issuing process, has no serialized form and never leaves it.
type SecretKey struct {
	fr *bls12381.Fr
}

// PublicKey is the G2 point corresponding to a secret key under given setup
// parameters.
type PublicKey struct {
	PointG2 *bls12381.PointG2
}

// IsValid reports whether the public key is a usable non-identity point.
func (pk *PublicKey) IsValid() bool {
	return pk != nil && pk.PointG2 != nil && !g2.IsZero(pk.PointG2)
}

// Keypair holds the accumulator manager's secret scalar and the
// corresponding public key.
type Keypair struct {
	SecretKey *SecretKey
	PublicKey *PublicKey
}

// GenerateKeypair deterministically derives a keypair from a 64-bit seed and
// setup parameters. The public key is secret*PTilde.
func GenerateKeypair(keySeed uint64, params *SetupParams) (*Keypair, error) {
	if !params.IsValid() {
		return nil, errInvalidParams
	}

	okm, err := expandSeed(seedBytes(keySeed), generateKeySalt)
	if err != nil {
		return nil, fmt.Errorf("expand key seed: %w", err)
	}

	secret := frFromOKM(okm)

	pub := g2.New()
	g2.MulScalar(pub, params.PTilde, frToRepr(secret))

	return &Keypair{
		SecretKey: &SecretKey{fr: secret},
		PublicKey: &PublicKey{PointG2: pub},
	}, nil
}

func seedBytes(seed uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seed)

	return b
}

func expandSeed(ikm []byte, salt string) ([]byte, error) {
	const okmLen = 48

	reader := hkdf.New(sha3.New256, append(ikm, 0), []byte(salt), make([]byte, 2))
	okm := make([]byte, okmLen)

	_, err := io.ReadFull(reader, okm)
	if err != nil {
		return nil, err
	}

	return okm, nil
}
