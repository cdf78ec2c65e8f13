/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package csdjwt enables Go developers to issue and verify CSD-JWT
// credentials: JSON Web Tokens whose claims are committed into a
// cryptographic accumulator for compact selective disclosure.
//
// Packages for end developer usage
//
// pkg/doc/csdjwt/issuer: Creates CSD-JWT credentials. Claims can be concealed
// by JSON pointer before the remaining claim set is committed into a freshly
// initialized accumulator and signed.
// Reference: https://pkg.go.dev/github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/issuer
//
// pkg/doc/csdjwt/verifier: Parses a presentation, verifies the issuer
// signature and checks every disclosed claim's membership witness against the
// embedded accumulator.
// Reference: https://pkg.go.dev/github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/verifier
//
// pkg/crypto/primitive/vbaccumulator: The underlying positive accumulator
// over BLS12-381, exposed for callers that need the primitive directly.
// Reference: https://pkg.go.dev/github.com/csdjwt/csdjwt-go/pkg/crypto/primitive/vbaccumulator
//
// Basic workflow
//
//	1) Create an Encoder from your claims document.
//	2) Conceal the claims that must not appear in the credential.
//	3) Sign the encoder's envelope into a presentation string.
//	4) On the verifier side, Parse the presentation with the issuer's
//	   public key to recover the validated plaintext claims.
package csdjwt
