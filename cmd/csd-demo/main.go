/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main provides a demo driver for CSD-JWT issuance and verification.
//
// For each claim-set size in the configured range it issues a credential,
// conceals a number of claims, signs the envelope into a JWT and then parses
// and verifies the presentation, printing the verification time per size.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/common"
	"github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/issuer"
	"github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/verifier"
)

var logger = log.New("csd-demo") // nolint:gochecknoglobals

func main() {
	maxClaims := flag.Int("max-claims", 100, "largest claim-set size to exercise")
	conceals := flag.Int("conceals", 1, "number of claims to conceal per credential")
	workers := flag.Int("workers", 0, "membership verification workers (0 = number of CPUs)")
	flag.Parse()

	if err := run(*maxClaims, *conceals, *workers); err != nil {
		logger.Errorf("demo failed: %v", err)
		os.Exit(1)
	}
}

func run(maxClaims, conceals, workers int) error {
	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate signing key: %w", err)
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: privKey},
		(&jose.SignerOptions{}).WithType(common.HeaderTyp))
	if err != nil {
		return fmt.Errorf("create signer: %w", err)
	}

	fmt.Println("Parallel Verification Time in microseconds")
	fmt.Println("Claims\tVerification Time")

	for claimCount := 1; claimCount <= maxClaims; claimCount++ {
		elapsed, err := issueAndVerify(signer, &privKey.PublicKey, claimCount, conceals, workers)
		if err != nil {
			return fmt.Errorf("claim-set size %d: %w", claimCount, err)
		}

		fmt.Printf("%d\t%d\n", claimCount, elapsed.Microseconds())
	}

	return nil
}

func issueAndVerify(signer jose.Signer, verificationKey *ecdsa.PublicKey,
	claimCount, conceals, workers int) (time.Duration, error) {
	claims := make(map[string]interface{}, claimCount)
	for i := 0; i < claimCount; i++ {
		claims[fmt.Sprintf("Claim Key %d", i)] = fmt.Sprintf("Claim Value %d", i)
	}

	encoder := issuer.NewEncoderFromMap(claims, issuer.WithIssuer("https://issuer.example.com"))

	for i := 0; i < conceals && i < claimCount; i++ {
		if _, err := encoder.Conceal(fmt.Sprintf("/Claim Key %d", i)); err != nil {
			return 0, fmt.Errorf("conceal claim %d: %w", i, err)
		}
	}

	presentation, err := encoder.Sign(signer)
	if err != nil {
		return 0, fmt.Errorf("sign credential: %w", err)
	}

	start := time.Now()

	if _, err := verifier.Parse(presentation,
		verifier.WithVerificationKey(verificationKey),
		verifier.WithWorkerCount(workers)); err != nil {
		return 0, fmt.Errorf("verify presentation: %w", err)
	}

	return time.Since(start), nil
}
