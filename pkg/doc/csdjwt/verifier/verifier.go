/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package verifier enables the Verifier: an entity that checks a presented
CSD-JWT and extracts its disclosed claims.

At a high level, the Verifier:
  - receives the presentation from the Holder and verifies the signature of
    the CSD-JWT using the Issuer's public key,
  - regenerates the accumulator setup parameters from the published seed,
  - verifies, for every disclosed claim, that its membership witness proves
    inclusion in the embedded accumulator value.

The Verifier learns nothing about claims concealed at issuance: they are not
committed into the accumulator and no witness for them exists in the
envelope.
*/
package verifier

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/hyperledger/aries-framework-go/component/log"
	bls12381 "github.com/kilic/bls12-381"
	"github.com/pkg/errors"

	"github.com/csdjwt/csdjwt-go/pkg/crypto/primitive/vbaccumulator"
	"github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/common"
)

var logger = log.New("csdjwt/verifier") // nolint:gochecknoglobals

// ErrArrayNotSupported is returned when a presented claim set contains an
// array value. Array disclosure is rejected explicitly, not silently
// dropped.
var ErrArrayNotSupported = errors.New("array disclosure is not supported yet")

// AggregateError reports the claims whose membership witnesses failed
// verification. All claims are checked before the error is built; a single
// corrupted witness fails the whole presentation.
type AggregateError struct {
	ClaimKeys []string
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("membership verification failed for %d claim(s): %s",
		len(e.ClaimKeys), strings.Join(e.ClaimKeys, ", "))
}

// parseOpts holds options for parsing a presentation.
type parseOpts struct {
	verificationKey interface{}
	workerCount     int
}

// ParseOpt is the CSD-JWT Parse option.
type ParseOpt func(opts *parseOpts)

// WithVerificationKey sets the issuer public key verifying the outer JWT
// signature. Without it the claim set is extracted unverified, for callers
// that have already authenticated the token.
func WithVerificationKey(key interface{}) ParseOpt {
	return func(opts *parseOpts) {
		opts.verificationKey = key
	}
}

// WithWorkerCount bounds the number of goroutines running concurrent
// membership checks. Defaults to the number of CPUs.
func WithWorkerCount(count int) ParseOpt {
	return func(opts *parseOpts) {
		opts.workerCount = count
	}
}

// Parse parses a presentation string, verifies the outer signature when a
// verification key is supplied, validates every disclosed claim's witness
// against the embedded accumulator and returns the plaintext claim map. No
// claims are returned unless every check passes.
func Parse(presentation string, opts ...ParseOpt) (map[string]interface{}, error) {
	cfp, err := common.ParseCombinedFormatForPresentation(presentation)
	if err != nil {
		return nil, err
	}

	pOpts := newParseOpts(opts)

	token, err := jwt.ParseSigned(cfp.SDJWT)
	if err != nil {
		return nil, fmt.Errorf("parse issuer-signed JWT: %w", err)
	}

	claims := make(map[string]interface{})

	if pOpts.verificationKey != nil {
		if err := token.Claims(pOpts.verificationKey, &claims); err != nil {
			return nil, fmt.Errorf("verify issuer signature: %w", err)
		}
	} else if err := token.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}

	decoded, err := Decode(claims)
	if err != nil {
		return nil, err
	}

	if err := ValidateObject(decoded, opts...); err != nil {
		return nil, err
	}

	return RestoreClaims(decoded)
}

// Decode walks a received claims object recursively, decoding nested
// objects and rejecting arrays. Scalars pass through unchanged.
func Decode(object map[string]interface{}) (map[string]interface{}, error) {
	output := make(map[string]interface{}, len(object))

	for key, value := range object {
		switch typed := value.(type) {
		case map[string]interface{}:
			decoded, err := Decode(typed)
			if err != nil {
				return nil, err
			}

			output[key] = decoded
		case []interface{}:
			return nil, errors.Wrapf(ErrArrayNotSupported, "claim %q", key)
		default:
			output[key] = value
		}
	}

	return output, nil
}

// ValidateObject extracts the envelope control fields from the claim set
// and verifies every disclosed claim's membership witness. Control-field
// and decoding errors fail fast before any membership check runs; witness
// failures are collected across all claims and reported together as an
// AggregateError.
func ValidateObject(object map[string]interface{}, opts ...ParseOpt) error {
	pOpts := newParseOpts(opts)

	envelope, err := common.ParseEnvelope(object)
	if err != nil {
		return err
	}

	if envelope.SDAlg != common.SDAlgAccumulator {
		return errors.Wrapf(common.ErrInvalidEnvelope, "%s %q not supported", common.SDAlgorithmKey, envelope.SDAlg)
	}

	seed, err := envelope.ParamSeedUint()
	if err != nil {
		return err
	}

	params, err := vbaccumulator.GenerateSetupParams(seed)
	if err != nil {
		return fmt.Errorf("regenerate setup params: %w", err)
	}

	if !params.IsValid() {
		return errors.Wrapf(common.ErrInvalidEnvelope, "setup params from seed %d are invalid", seed)
	}

	accumulator, err := vbaccumulator.DeserializeAccumulator(envelope.Accumulator)
	if err != nil {
		return err
	}

	publicKey, err := vbaccumulator.DeserializePublicKey(envelope.PublicKey)
	if err != nil {
		return err
	}

	checks := make([]membershipCheck, 0, len(envelope.Claims))

	for claim, serialized := range envelope.Claims {
		witness, err := vbaccumulator.DeserializeWitness(serialized)
		if err != nil {
			return fmt.Errorf("claim %q: %w", claim, err)
		}

		checks = append(checks, membershipCheck{
			claim:   claim,
			element: vbaccumulator.FrFromString(claim),
			witness: witness,
		})
	}

	failed := verifyConcurrently(checks, accumulator, publicKey, params, pOpts.workerCount)
	if len(failed) > 0 {
		return &AggregateError{ClaimKeys: failed}
	}

	logger.Debugf("validated %d disclosed claims", len(checks))

	return nil
}

// RestoreClaims turns a validated claim set back into a plaintext map:
// control fields are dropped, registered JWT claims pass through, and each
// disclosed claim string is split back into its key and JSON value.
func RestoreClaims(object map[string]interface{}) (map[string]interface{}, error) {
	plaintext := make(map[string]interface{})

	for key, value := range object {
		switch {
		case key == common.AccumulatorKey, key == common.PublicKeyKey,
			key == common.ParamSeedKey, key == common.SDAlgorithmKey:
		case common.IsRegisteredClaim(key):
			plaintext[key] = value
		default:
			claimKey, claimValue, err := common.SplitClaimString(key)
			if err != nil {
				return nil, err
			}

			if _, exists := plaintext[claimKey]; exists {
				return nil, fmt.Errorf("claim name %q already exists at the same level", claimKey)
			}

			plaintext[claimKey] = claimValue
		}
	}

	return plaintext, nil
}

type membershipCheck struct {
	claim   string
	element *bls12381.Fr
	witness *vbaccumulator.MembershipWitness
}

// verifyConcurrently fans the pairing checks out over a bounded worker
// pool. All inputs are immutable and shared read-only; every check runs to
// completion and failing claims are returned sorted.
func verifyConcurrently(checks []membershipCheck, accumulator *vbaccumulator.Accumulator,
	publicKey *vbaccumulator.PublicKey, params *vbaccumulator.SetupParams, workerCount int) []string {
	if len(checks) == 0 {
		return nil
	}

	workers := workerCount
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	if workers > len(checks) {
		workers = len(checks)
	}

	jobs := make(chan membershipCheck)
	failures := make(chan string, len(checks))

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for check := range jobs {
				if !accumulator.VerifyMembership(check.element, check.witness, publicKey, params) {
					failures <- check.claim
				}
			}
		}()
	}

	for _, check := range checks {
		jobs <- check
	}

	close(jobs)
	wg.Wait()
	close(failures)

	var failed []string
	for claim := range failures {
		failed = append(failed, claim)
	}

	sort.Strings(failed)

	return failed
}

func newParseOpts(opts []ParseOpt) *parseOpts {
	pOpts := &parseOpts{}

	for _, opt := range opts {
		opt(pOpts)
	}

	return pOpts
}
