// Package identifier encodes wifi MAC addresses and cell tower keys into the
// fixed-width binary forms used as storage lookup keys.
package identifier

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidIdentifier is returned for malformed MAC addresses and cell keys.
var ErrInvalidIdentifier = eris.New("invalid identifier")

// Radio is the radio network type of a cell.
type Radio uint8

// Radio types. The numeric values are part of the encoded cell key.
const (
	GSM   Radio = 0
	CDMA  Radio = 1
	WCDMA Radio = 2
	LTE   Radio = 3
)

var radioNames = [...]string{"gsm", "cdma", "wcdma", "lte"}

// Valid reports whether r is a known radio type.
func (r Radio) Valid() bool {
	return int(r) < len(radioNames)
}

func (r Radio) String() string {
	if !r.Valid() {
		return "unknown"
	}
	return radioNames[r]
}

// ParseRadio parses a radio name. "umts" is accepted as an alias for wcdma.
func ParseRadio(s string) (Radio, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gsm":
		return GSM, nil
	case "cdma":
		return CDMA, nil
	case "wcdma", "umts":
		return WCDMA, nil
	case "lte":
		return LTE, nil
	}
	return 0, eris.Wrapf(ErrInvalidIdentifier, "identifier: unknown radio %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Radio) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, eris.Wrapf(ErrInvalidIdentifier, "identifier: radio %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Radio) UnmarshalText(text []byte) error {
	parsed, err := ParseRadio(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
