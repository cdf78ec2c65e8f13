/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package issuer enables the Issuer: an entity that creates CSD-JWTs.

A CSD-JWT is a digitally signed document whose claim set carries a
cryptographic accumulator committing to every disclosed claim, plus one
membership witness per claim:

	CSD-JWT-DOC = (ACCUMULATOR, PK, PARAM-SEED, ALG, CLAIM -> WITNESS ...)
	CSD-JWT = CSD-JWT-DOC | SIG(CSD-JWT-DOC, ISSUER-PRIV-KEY)

Claims concealed before finalization are removed from the working object,
excluded from the accumulator and handed back as standalone Disclosure
records; they receive no witness and cannot later be proven against the
issued credential.
*/
package issuer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	bls12381 "github.com/kilic/bls12-381"
	"github.com/pkg/errors"

	"github.com/csdjwt/csdjwt-go/pkg/crypto/primitive/vbaccumulator"
	"github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/common"
)

const (
	defaultKeySeed   = uint64(0)
	defaultParamSeed = uint64(1)
)

var logger = log.New("csdjwt/issuer") // nolint:gochecknoglobals

// ErrInvalidPath is returned when a conceal pointer does not resolve to an
// existing object field or array index.
var ErrInvalidPath = errors.New("invalid path")

// newOpts holds options for creating a new CSD-JWT.
type newOpts struct {
	keySeed   uint64
	paramSeed uint64

	issuerID string
	jti      string
}

// NewOpt is the CSD-JWT Encoder option.
type NewOpt func(opts *newOpts)

// WithKeySeed sets the seed the issuance keypair is derived from.
func WithKeySeed(seed uint64) NewOpt {
	return func(opts *newOpts) {
		opts.keySeed = seed
	}
}

// WithParamSeed sets the seed the setup parameters are derived from. The
// seed is published in the envelope so the verifier can regenerate the
// parameters.
func WithParamSeed(seed uint64) NewOpt {
	return func(opts *newOpts) {
		opts.paramSeed = seed
	}
}

// WithIssuer sets the iss claim of the signed token.
func WithIssuer(issuerID string) NewOpt {
	return func(opts *newOpts) {
		opts.issuerID = issuerID
	}
}

// WithJTI sets the jti claim of the signed token. A random UUID is used when
// not provided.
func WithJTI(jti string) NewOpt {
	return func(opts *newOpts) {
		opts.jti = jti
	}
}

// Encoder turns a claims object into a CSD-JWT claim set: conceal removes
// fields from the working object, finalize commits whatever remains into a
// fresh accumulator.
type Encoder struct {
	object map[string]interface{}
	opts   *newOpts
}

// NewEncoder creates an Encoder from a JSON document. The document must be a
// JSON object.
func NewEncoder(doc []byte, opts ...NewOpt) (*Encoder, error) {
	var parsed interface{}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, errors.Wrapf(common.ErrDataTypeMismatch, "parse document: %s", err.Error())
	}

	object, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, errors.Wrap(common.ErrDataTypeMismatch, "expected object")
	}

	return newEncoder(object, opts...), nil
}

// NewEncoderFromMap creates an Encoder from a claims map. The map is copied;
// the caller's value is not mutated by conceal operations.
func NewEncoderFromMap(claims map[string]interface{}, opts ...NewOpt) *Encoder {
	return newEncoder(common.CopyMap(claims), opts...)
}

func newEncoder(object map[string]interface{}, opts ...NewOpt) *Encoder {
	nOpts := &newOpts{
		keySeed:   defaultKeySeed,
		paramSeed: defaultParamSeed,
	}

	for _, opt := range opts {
		opt(nOpts)
	}

	return &Encoder{object: object, opts: nOpts}
}

// Conceal removes the field addressed by a JSON pointer (RFC 6901) from the
// working object and returns its disclosure record. The pointer must
// resolve to an existing object field or array index.
func (e *Encoder) Conceal(path string) (*Disclosure, error) {
	tokens, err := parsePointer(path)
	if err != nil {
		return nil, err
	}

	name, value, updated, err := removeByPointer(e.object, tokens)
	if err != nil {
		return nil, err
	}

	e.object = updated.(map[string]interface{})

	return NewDisclosure(name, value)
}

// Object returns the residual plaintext view: the working object after all
// conceal operations.
func (e *Encoder) Object() map[string]interface{} {
	return e.object
}

// Finalize commits every remaining top-level claim into a freshly
// initialized accumulator and returns the envelope claim set: the four
// control fields plus one claim-string to witness entry per retained claim.
// The issuance secret key lives only for the duration of this call.
func (e *Encoder) Finalize() (map[string]interface{}, error) {
	_, keypair, accumulator, state, err := vbaccumulator.Initialize(e.opts.keySeed, e.opts.paramSeed)
	if err != nil {
		return nil, fmt.Errorf("initialize accumulator: %w", err)
	}

	keys := make([]string, 0, len(e.object))
	for key := range e.object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	claims := make([]string, len(keys))
	scalars := make([]*bls12381.Fr, len(keys))

	for i, key := range keys {
		claim, err := common.ClaimString(key, e.object[key])
		if err != nil {
			return nil, err
		}

		claims[i] = claim
		scalars[i] = vbaccumulator.FrFromString(claim)
	}

	accumulator, err = accumulator.AddBatch(scalars, keypair.SecretKey, state)
	if err != nil {
		return nil, fmt.Errorf("add claims batch: %w", err)
	}

	witnesses, err := accumulator.WitnessBatch(scalars, keypair.SecretKey, state)
	if err != nil {
		return nil, fmt.Errorf("generate witness batch: %w", err)
	}

	envelope := map[string]interface{}{
		common.AccumulatorKey: accumulator.Serialize(),
		common.PublicKeyKey:   keypair.PublicKey.Serialize(),
		common.ParamSeedKey:   strconv.FormatUint(e.opts.paramSeed, 10),
		common.SDAlgorithmKey: common.SDAlgAccumulator,
	}

	for i, claim := range claims {
		envelope[claim] = witnesses[i].Serialize()
	}

	logger.Debugf("finalized envelope with %d disclosed claims", len(claims))

	return envelope, nil
}

// Sign finalizes the envelope, signs it into a JWT with the provided signer
// and returns the serialized presentation string.
func (e *Encoder) Sign(signer jose.Signer) (string, error) {
	envelope, err := e.Finalize()
	if err != nil {
		return "", err
	}

	jti := e.opts.jti
	if jti == "" {
		jti = uuid.NewString()
	}

	raw, err := jwt.Signed(signer).
		Claims(jwt.Claims{
			Issuer:   e.opts.issuerID,
			ID:       jti,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		}).
		Claims(envelope).
		CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("sign claim set: %w", err)
	}

	cf := common.CombinedFormatForPresentation{SDJWT: raw}

	return cf.Serialize(), nil
}

func parsePointer(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, errors.Wrapf(ErrInvalidPath, "pointer %q must start with /", path)
	}

	tokens := strings.Split(path[1:], "/")
	for i, token := range tokens {
		tokens[i] = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
	}

	return tokens, nil
}

// removeByPointer walks container along tokens, removes the addressed
// element and returns its name (empty for array elements), its value and
// the updated container.
func removeByPointer(container interface{}, tokens []string) (string, interface{}, interface{}, error) {
	token := tokens[0]

	if len(tokens) == 1 {
		return removeChild(container, token)
	}

	switch parent := container.(type) {
	case map[string]interface{}:
		child, ok := parent[token]
		if !ok {
			return "", nil, nil, errors.Wrapf(ErrInvalidPath, "%q does not exist", token)
		}

		name, value, updated, err := removeByPointer(child, tokens[1:])
		if err != nil {
			return "", nil, nil, err
		}

		parent[token] = updated

		return name, value, parent, nil
	case []interface{}:
		index, err := arrayIndex(token, len(parent))
		if err != nil {
			return "", nil, nil, err
		}

		name, value, updated, err := removeByPointer(parent[index], tokens[1:])
		if err != nil {
			return "", nil, nil, err
		}

		parent[index] = updated

		return name, value, parent, nil
	default:
		return "", nil, nil, errors.Wrapf(ErrInvalidPath, "%q is not an object or an array", token)
	}
}

func removeChild(container interface{}, token string) (string, interface{}, interface{}, error) {
	switch parent := container.(type) {
	case map[string]interface{}:
		value, ok := parent[token]
		if !ok {
			return "", nil, nil, errors.Wrapf(ErrInvalidPath, "%q does not exist", token)
		}

		delete(parent, token)

		return token, value, parent, nil
	case []interface{}:
		index, err := arrayIndex(token, len(parent))
		if err != nil {
			return "", nil, nil, err
		}

		value := parent[index]
		updated := append(parent[:index], parent[index+1:]...)

		return "", value, updated, nil
	default:
		return "", nil, nil, errors.Wrap(ErrInvalidPath, "parent of element must be an object or an array")
	}
}

func arrayIndex(token string, length int) (int, error) {
	index, err := strconv.Atoi(token)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidPath, "array index %q: %s", token, err.Error())
	}

	if index < 0 || index >= length {
		return 0, errors.Wrapf(ErrInvalidPath, "array index %d out of range", index)
	}

	return index, nil
}
