/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package common holds the wire-level pieces shared by the CSD-JWT issuer
// and verifier: envelope field names, claim string normalization and the
// combined format for presentation.
package common

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	// CombinedFormatSeparator separates the issuer-signed JWT from the
	// optional key binding JWT in a presentation.
	CombinedFormatSeparator = "~"

	// SDAlgorithmKey is the envelope field carrying the selective
	// disclosure algorithm tag.
	SDAlgorithmKey = "_sd_alg"

	// AccumulatorKey is the envelope field carrying the serialized
	// accumulator value.
	AccumulatorKey = "accumulator"

	// PublicKeyKey is the envelope field carrying the serialized
	// accumulator public key.
	PublicKeyKey = "pk"

	// ParamSeedKey is the envelope field carrying the setup parameter seed.
	ParamSeedKey = "param_seed"

	// SDAlgAccumulator identifies the accumulator-based disclosure scheme.
	SDAlgAccumulator = "VB-ACC-BLS12381G1-SHA3-256"

	// HeaderTyp is the JOSE token type for CSD-JWT.
	HeaderTyp = "csd-jwt"

	claimSeparator = "::"
)

// registeredClaimNames are JWT claims carried clear-text next to the
// envelope by the outer signing layer. They are not committed into the
// accumulator and carry no witness.
// nolint:gochecknoglobals
var registeredClaimNames = map[string]bool{
	"iss": true,
	"sub": true,
	"aud": true,
	"jti": true,
	"exp": true,
	"nbf": true,
	"iat": true,
	"cnf": true,
}

// IsRegisteredClaim reports whether name is a clear-text registered JWT
// claim rather than a disclosed accumulator claim.
func IsRegisteredClaim(name string) bool {
	return registeredClaimNames[name]
}

var (
	// ErrDataTypeMismatch is returned when a JSON value does not have the
	// expected type.
	ErrDataTypeMismatch = errors.New("data type mismatch")

	// ErrInvalidEnvelope is returned when an envelope control field is
	// missing or malformed.
	ErrInvalidEnvelope = errors.New("invalid credential envelope")

	// ErrInvalidPresentation is returned for a presentation string with a
	// malformed segment count.
	ErrInvalidPresentation = errors.New("invalid presentation format")
)

// ClaimString normalizes a claim to its canonical "{key}::{json(value)}"
// string form, the input of the scalar mapping.
func ClaimString(key string, value interface{}) (string, error) {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return "", errors.Wrapf(ErrDataTypeMismatch, "marshal claim %q value: %s", key, err.Error())
	}

	return key + claimSeparator + string(valueJSON), nil
}

// SplitClaimString recovers the claim key and plaintext value from a
// canonical claim string. Claim keys may themselves contain the separator,
// so every split position is tried until the remainder parses as JSON.
func SplitClaimString(claim string) (string, interface{}, error) {
	for at := strings.Index(claim, claimSeparator); at != -1; {
		var value interface{}

		if err := json.Unmarshal([]byte(claim[at+len(claimSeparator):]), &value); err == nil {
			return claim[:at], value, nil
		}

		next := strings.Index(claim[at+1:], claimSeparator)
		if next == -1 {
			break
		}

		at += 1 + next
	}

	return "", nil, errors.Wrapf(ErrDataTypeMismatch, "claim %q is not in key::value form", claim)
}

// Envelope is the wire record carried inside the signed token's claim set:
// the serialized accumulator, the public key, the parameter seed, the
// algorithm tag, plus one witness per disclosed claim.
type Envelope struct {
	Accumulator string `json:"accumulator" mapstructure:"accumulator"`
	PublicKey   string `json:"pk" mapstructure:"pk"`
	ParamSeed   string `json:"param_seed" mapstructure:"param_seed"`
	SDAlg       string `json:"_sd_alg" mapstructure:"_sd_alg"`

	// Claims maps each disclosed claim string to its serialized witness.
	Claims map[string]string `json:"-" mapstructure:"-"`
}

// ParseEnvelope extracts the envelope from a claims map. All four control
// fields must be present strings; every remaining entry must be a
// claim-string to witness-string pair. Malformed control fields are fatal
// before any cryptographic processing.
func ParseEnvelope(claims map[string]interface{}) (*Envelope, error) {
	envelope := &Envelope{}
	md := &mapstructure.Metadata{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      envelope,
		Metadata:    md,
		ErrorUnused: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create envelope decoder: %w", err)
	}

	if err := decoder.Decode(claims); err != nil {
		return nil, errors.Wrapf(ErrInvalidEnvelope, "decode control fields: %s", err.Error())
	}

	for field, value := range map[string]string{
		AccumulatorKey: envelope.Accumulator,
		PublicKeyKey:   envelope.PublicKey,
		ParamSeedKey:   envelope.ParamSeed,
		SDAlgorithmKey: envelope.SDAlg,
	} {
		if value == "" {
			return nil, errors.Wrapf(ErrInvalidEnvelope, "missing %s", field)
		}
	}

	envelope.Claims = make(map[string]string, len(md.Unused))

	for _, key := range md.Unused {
		if IsRegisteredClaim(key) {
			continue
		}

		witness, ok := claims[key].(string)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidEnvelope, "witness for claim %q is not a string", key)
		}

		envelope.Claims[key] = witness
	}

	return envelope, nil
}

// ParamSeedUint parses the string-encoded parameter seed.
func (e *Envelope) ParamSeedUint() (uint64, error) {
	seed, err := strconv.ParseUint(e.ParamSeed, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidEnvelope, "%s is not an unsigned integer: %s", ParamSeedKey, err.Error())
	}

	return seed, nil
}

// CopyMap performs a deep copy of a claims map: nested maps and arrays are
// copied down to their scalar leaves, so mutating the copy never touches the
// original.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	cm := make(map[string]interface{}, len(m))

	for k, v := range m {
		cm[k] = copyValue(v)
	}

	return cm
}

func copyValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return CopyMap(typed)
	case []interface{}:
		cs := make([]interface{}, len(typed))

		for i, element := range typed {
			cs[i] = copyValue(element)
		}

		return cs
	default:
		return v
	}
}

// CombinedFormatForPresentation holds the issuer-signed CSD-JWT and the
// optional key binding JWT of a presentation.
type CombinedFormatForPresentation struct {
	SDJWT         string
	KeyBindingJWT string
}

// Serialize assembles the presentation string. The separator is always
// emitted so that the output stays parseable: "jwt~" without key binding,
// "jwt~~kb" with it.
func (cf *CombinedFormatForPresentation) Serialize() string {
	presentation := cf.SDJWT + CombinedFormatSeparator

	if cf.KeyBindingJWT != "" {
		presentation += CombinedFormatSeparator + cf.KeyBindingJWT
	}

	return presentation
}

// ParseCombinedFormatForPresentation parses a presentation string. At least
// two separator-delimited segments are required; a presentation that does
// not end with the separator carries a key binding JWT in its last segment
// and then requires at least three segments.
func ParseCombinedFormatForPresentation(presentation string) (*CombinedFormatForPresentation, error) {
	parts := strings.Split(presentation, CombinedFormatSeparator)
	if len(parts) < 2 {
		return nil, errors.Wrap(ErrInvalidPresentation, "less than 2 segments")
	}

	includesKeyBinding := !strings.HasSuffix(presentation, CombinedFormatSeparator)
	if includesKeyBinding && len(parts) < 3 {
		return nil, errors.Wrap(ErrInvalidPresentation, "less than 3 segments with key binding jwt")
	}

	cf := &CombinedFormatForPresentation{SDJWT: parts[0]}

	if includesKeyBinding {
		cf.KeyBindingJWT = parts[len(parts)-1]
	}

	return cf, nil
}
