package identifier

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/rotisserie/eris"
)

// Codec selects the external form of an encoded MAC address.
type Codec int

const (
	// Raw is the 6 byte binary form.
	Raw Codec = iota
	// Base64 is the URL-safe base64 form of the 6 raw bytes.
	Base64
)

const (
	macHexLen = 12
	macLen    = 6
)

var macEncoding = base64.URLEncoding

// EncodeMAC encodes a 12 hex digit MAC address.
func EncodeMAC(mac string, codec Codec) ([]byte, error) {
	if len(mac) != macHexLen {
		return nil, eris.Wrapf(ErrInvalidIdentifier, "identifier: mac %q has %d characters", mac, len(mac))
	}
	raw, err := hex.DecodeString(mac)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidIdentifier, "identifier: mac %q is not hex", mac)
	}
	switch codec {
	case Raw:
		return raw, nil
	case Base64:
		out := make([]byte, macEncoding.EncodedLen(len(raw)))
		macEncoding.Encode(out, raw)
		return out, nil
	}
	return nil, eris.Wrapf(ErrInvalidIdentifier, "identifier: unknown codec %d", codec)
}

// DecodeMAC is the inverse of EncodeMAC and returns lower-case hex.
func DecodeMAC(value []byte, codec Codec) (string, error) {
	raw := value
	if codec == Base64 {
		if len(value) != macEncoding.EncodedLen(macLen) || bytes.ContainsAny(value, "\r\n") {
			return "", eris.Wrapf(ErrInvalidIdentifier, "identifier: mac %q is not base64", value)
		}
		raw = make([]byte, macEncoding.DecodedLen(len(value)))
		n, err := macEncoding.Decode(raw, value)
		if err != nil {
			return "", eris.Wrapf(ErrInvalidIdentifier, "identifier: mac %q is not base64", value)
		}
		raw = raw[:n]
	} else if codec != Raw {
		return "", eris.Wrapf(ErrInvalidIdentifier, "identifier: unknown codec %d", codec)
	}
	if len(raw) != macLen {
		return "", eris.Wrapf(ErrInvalidIdentifier, "identifier: mac has %d bytes", len(raw))
	}
	return hex.EncodeToString(raw), nil
}

// NormalizeMAC strips ":" and "-" separators and lower-cases the address.
// The result is validated the same way EncodeMAC validates its input.
func NormalizeMAC(mac string) (string, error) {
	mac = strings.ToLower(strings.TrimSpace(mac))
	mac = strings.NewReplacer(":", "", "-", "").Replace(mac)
	if _, err := EncodeMAC(mac, Raw); err != nil {
		return "", err
	}
	return mac, nil
}
