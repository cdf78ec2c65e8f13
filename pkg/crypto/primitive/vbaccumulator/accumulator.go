/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vbaccumulator implements a positive, additive cryptographic
// accumulator over the BLS12-381 pairing curve, with membership witnesses
// (https://eprint.iacr.org/2020/777.pdf, dynamic positive accumulator).
//
// The accumulator value is a single G1 point committing to a set of scalar
// field elements. The manager holding the secret key can add and remove
// elements and issue membership witnesses; anyone holding the public key and
// setup parameters can verify a witness with a pairing check.
package vbaccumulator

import (
	"errors"
	"fmt"

	bls12381 "github.com/kilic/bls12-381"
)

// nolint:gochecknoglobals
var (
	g1 = bls12381.NewG1()
	g2 = bls12381.NewG2()
)

var (
	// ErrElementPresent is returned when adding an element that is already
	// accumulated. The accumulator update is not injective over duplicates,
	// so duplicate insertion is rejected.
	ErrElementPresent = errors.New("element is already a member of the accumulator")

	// ErrElementAbsent is returned when removing, or generating a witness
	// for, an element that is not currently accumulated.
	ErrElementAbsent = errors.New("element is not a member of the accumulator")

	errInvalidParams = errors.New("invalid setup params")
)

// Accumulator is a single G1 point representing the committed set. Mutations
// return a new value and never modify the receiver; a serialized accumulator
// is a frozen snapshot.
type Accumulator struct {
	PointG1 *bls12381.PointG1
}

// MembershipWitness proves that one scalar element belongs to one specific
// accumulator value. It is valid only against the accumulator value, public
// key and params under which it was generated.
type MembershipWitness struct {
	PointG1 *bls12381.PointG1
}

// Initialize derives setup parameters and a keypair from the given 64-bit
// seeds and returns the identity accumulator together with an empty
// membership registry.
func Initialize(keySeed, paramSeed uint64) (*SetupParams, *Keypair, *Accumulator, *InMemoryState, error) {
	params, err := GenerateSetupParams(paramSeed)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("generate setup params: %w", err)
	}

	if !params.IsValid() {
		return nil, nil, nil, nil, errInvalidParams
	}

	keypair, err := GenerateKeypair(keySeed, params)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("generate keypair: %w", err)
	}

	accumulator := &Accumulator{PointG1: g1.New().Set(params.P)}

	return params, keypair, accumulator, NewInMemoryState(), nil
}

// Add accumulates element and returns the new accumulator value
// (element+secret)*V. Fails with ErrElementPresent for a duplicate.
func (a *Accumulator) Add(element *bls12381.Fr, sk *SecretKey, state MemberState) (*Accumulator, error) {
	if state.Has(element) {
		return nil, fmt.Errorf("add element: %w", ErrElementPresent)
	}

	next := a.mulFactor(addFactor(element, sk))

	state.Add(element)

	return next, nil
}

// AddBatch accumulates all elements transactionally: a duplicate within the
// batch or against the current state aborts the whole batch and leaves both
// the accumulator value and the registry untouched.
func (a *Accumulator) AddBatch(elements []*bls12381.Fr, sk *SecretKey, state MemberState) (*Accumulator, error) {
	seen := make(map[string]struct{}, len(elements))

	for _, element := range elements {
		key := frKey(element)

		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("add batch: duplicate element in batch: %w", ErrElementPresent)
		}

		if state.Has(element) {
			return nil, fmt.Errorf("add batch: %w", ErrElementPresent)
		}

		seen[key] = struct{}{}
	}

	factor := bls12381.NewFr().One()
	for _, element := range elements {
		factor.Mul(factor, addFactor(element, sk))
	}

	next := a.mulFactor(factor)

	for _, element := range elements {
		state.Add(element)
	}

	return next, nil
}

// Remove deletes element from the committed set and returns the new
// accumulator value V/(element+secret). Fails with ErrElementAbsent if the
// element is not currently a member.
func (a *Accumulator) Remove(element *bls12381.Fr, sk *SecretKey, state MemberState) (*Accumulator, error) {
	if !state.Has(element) {
		return nil, fmt.Errorf("remove element: %w", ErrElementAbsent)
	}

	inv := addFactor(element, sk)
	inv.Inverse(inv)

	next := a.mulFactor(inv)

	state.Remove(element)

	return next, nil
}

// Witness generates a membership witness V/(element+secret) for element
// against the current accumulator value. Fails with ErrElementAbsent for a
// non-member.
func (a *Accumulator) Witness(element *bls12381.Fr, sk *SecretKey, state MemberState) (*MembershipWitness, error) {
	if !state.Has(element) {
		return nil, fmt.Errorf("get witness: %w", ErrElementAbsent)
	}

	inv := addFactor(element, sk)
	inv.Inverse(inv)

	return &MembershipWitness{PointG1: a.mulFactor(inv).PointG1}, nil
}

// WitnessBatch generates one witness per element, in input order. A single
// non-member element aborts the whole batch.
func (a *Accumulator) WitnessBatch(elements []*bls12381.Fr, sk *SecretKey, state MemberState) ([]*MembershipWitness, error) { // nolint:lll
	for _, element := range elements {
		if !state.Has(element) {
			return nil, fmt.Errorf("get witness batch: %w", ErrElementAbsent)
		}
	}

	witnesses := make([]*MembershipWitness, len(elements))

	for i, element := range elements {
		witness, err := a.Witness(element, sk, state)
		if err != nil {
			return nil, err
		}

		witnesses[i] = witness
	}

	return witnesses, nil
}

// VerifyMembership checks e(witness, element*PTilde + publicKey) against
// e(accumulator, PTilde). The check is pure and side-effect free: any
// invalid combination of inputs yields false, never an error, so a forged
// witness, a wrong accumulator value and a wrong public key are
// indistinguishable to the verifier.
func (a *Accumulator) VerifyMembership(element *bls12381.Fr, witness *MembershipWitness,
	publicKey *PublicKey, params *SetupParams) bool {
	if a == nil || a.PointG1 == nil || element == nil ||
		witness == nil || witness.PointG1 == nil ||
		!publicKey.IsValid() || !params.IsValid() {
		return false
	}

	q := g2.New()
	g2.MulScalar(q, params.PTilde, frToRepr(element))
	g2.Add(q, q, publicKey.PointG2)

	v := g1.New()
	g1.Neg(v, a.PointG1)

	return compareTwoPairings(witness.PointG1, q, v, params.PTilde)
}

// compareTwoPairings checks e(p1, q1) * e(p2, q2) == 1.
func compareTwoPairings(p1 *bls12381.PointG1, q1 *bls12381.PointG2,
	p2 *bls12381.PointG1, q2 *bls12381.PointG2) bool {
	engine := bls12381.NewEngine()

	engine.AddPair(p1, q1)
	engine.AddPair(p2, q2)

	return engine.Check()
}

// Equal reports whether two accumulator values commit to the same point.
func (a *Accumulator) Equal(other *Accumulator) bool {
	return other != nil && g1.Equal(a.PointG1, other.PointG1)
}

func (a *Accumulator) mulFactor(factor *bls12381.Fr) *Accumulator {
	next := g1.New()
	g1.MulScalar(next, a.PointG1, frToRepr(factor))

	return &Accumulator{PointG1: next}
}

// addFactor computes element+secret, the exponent applied on add.
func addFactor(element *bls12381.Fr, sk *SecretKey) *bls12381.Fr {
	factor := bls12381.NewFr().Set(element)
	factor.Add(factor, sk.fr)

	return factor
}
