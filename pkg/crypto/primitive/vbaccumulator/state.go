/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vbaccumulator

import (
	bls12381 "github.com/kilic/bls12-381"
)

// MemberState is the accumulator manager's registry of currently accumulated
// elements. It is consulted on every mutation to enforce the
// duplicate-add/missing-remove rules and is owned by whichever party holds
// the secret key.
type MemberState interface {
	Add(element *bls12381.Fr)
	Remove(element *bls12381.Fr)
	Has(element *bls12381.Fr) bool
	Size() int
}

// InMemoryState is a MemberState backed by a plain map. It is not safe for
// concurrent mutation; issuance mutates it sequentially.
type InMemoryState struct {
	elements map[string]struct{}
}

// NewInMemoryState returns an empty membership registry.
func NewInMemoryState() *InMemoryState {
	return &InMemoryState{elements: make(map[string]struct{})}
}

// Add records element as a current member.
func (s *InMemoryState) Add(element *bls12381.Fr) {
	s.elements[frKey(element)] = struct{}{}
}

// Remove forgets element.
func (s *InMemoryState) Remove(element *bls12381.Fr) {
	delete(s.elements, frKey(element))
}

// Has reports whether element is a current member.
func (s *InMemoryState) Has(element *bls12381.Fr) bool {
	_, ok := s.elements[frKey(element)]

	return ok
}

// Size returns the number of current members.
func (s *InMemoryState) Size() int {
	return len(s.elements)
}
