/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package csdjwt implements creating JSON Web Token (JWT) documents whose
// claims are protected by a cryptographic accumulator (CSD-JWT).
//
// In a CSD-JWT, every disclosed claim is committed into a single constant-size
// accumulator value and accompanied by a membership witness. The Verifier
// checks each witness against the accumulator with a pairing equation, so
// disclosed claims are cryptographically protected against undetected
// modification while the credential itself stays compact.
//
// Claims the Issuer conceals before finalization are removed from the claim
// set entirely: they are not committed into the accumulator, carry no witness
// and are handed back as standalone disclosure records.
//
// This implementation supports:
//
//   - concealing claims in flat data structures as well as nested objects and
//     arrays, addressed by JSON pointers
//
//   - combining accumulator-committed claims with registered JWT claims that
//     are always carried in clear text (e.g. iss, jti, or iat)
//
//   - deterministic, seed-derived accumulator setup parameters, so the
//     Verifier regenerates them from the seed published in the credential
//
//   - concurrent membership verification bounded by a configurable worker
//     count
//
// The issuer sub-package creates CSD-JWTs, the verifier sub-package parses
// and validates them, and the common sub-package holds the envelope format
// shared by both.
package csdjwt
