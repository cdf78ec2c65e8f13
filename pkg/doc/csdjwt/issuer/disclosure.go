/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"encoding/json"

	"github.com/multiformats/go-multibase"
	"github.com/pkg/errors"

	"github.com/csdjwt/csdjwt-go/pkg/doc/csdjwt/common"
)

// ErrInvalidDisclosure is returned when an encoded disclosure record cannot
// be parsed.
var ErrInvalidDisclosure = errors.New("invalid disclosure")

// Disclosure is the standalone record handed back for a concealed claim: the
// claim name (empty for array elements), the plaintext value, and a
// multibase base64url encoding of both. A concealed claim receives no
// witness and is permanently excluded from the issued credential; this
// record is the holder's only artifact of it.
type Disclosure struct {
	ClaimName  string
	ClaimValue interface{}
	Disclosure string
}

// NewDisclosure builds the disclosure record for a concealed claim. The
// encoded form is the JSON array [name, value] for object fields and
// [value] for array elements.
func NewDisclosure(claimName string, claimValue interface{}) (*Disclosure, error) {
	entry := []interface{}{claimValue}
	if claimName != "" {
		entry = []interface{}{claimName, claimValue}
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, errors.Wrapf(common.ErrDataTypeMismatch, "marshal disclosure: %s", err.Error())
	}

	encoded, err := multibase.Encode(multibase.Base64url, entryJSON)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDisclosure, "encode disclosure: %s", err.Error())
	}

	return &Disclosure{
		ClaimName:  claimName,
		ClaimValue: claimValue,
		Disclosure: encoded,
	}, nil
}

// ParseDisclosure decodes a disclosure record produced by NewDisclosure.
func ParseDisclosure(encoded string) (*Disclosure, error) {
	_, decoded, err := multibase.Decode(encoded)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDisclosure, "decode disclosure: %s", err.Error())
	}

	var entry []interface{}
	if err := json.Unmarshal(decoded, &entry); err != nil {
		return nil, errors.Wrapf(ErrInvalidDisclosure, "disclosure is not a JSON array: %s", err.Error())
	}

	disclosure := &Disclosure{Disclosure: encoded}

	switch len(entry) {
	case 1:
		disclosure.ClaimValue = entry[0]
	case 2:
		name, ok := entry[0].(string)
		if !ok {
			return nil, errors.Wrap(ErrInvalidDisclosure, "claim name is not a string")
		}

		disclosure.ClaimName = name
		disclosure.ClaimValue = entry[1]
	default:
		return nil, errors.Wrapf(ErrInvalidDisclosure, "disclosure array has invalid length %d", len(entry))
	}

	return disclosure, nil
}

func (d *Disclosure) String() string {
	return d.Disclosure
}
