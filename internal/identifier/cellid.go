package identifier

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/rotisserie/eris"
)

// Valid ranges for the components of a cell key.
const (
	MinMCC = 1
	MaxMCC = 999
	MinMNC = 0
	MaxMNC = 999
	MinLAC = 1
	MaxLAC = 65533
	MinCID = 1
	MaxCID = 268435455
)

const (
	cellAreaIDLen = 7
	cellIDLen     = 11
)

// CellAreaID is the 7 byte big-endian key radio(1) mcc(2) mnc(2) lac(2).
// Byte order equals the order of the component tuple.
type CellAreaID [cellAreaIDLen]byte

// CellID is the 11 byte big-endian key radio(1) mcc(2) mnc(2) lac(2) cid(4).
// Its first 7 bytes are the CellAreaID of the cell.
type CellID [cellIDLen]byte

// EncodeCellAreaID packs an area key, validating every component.
func EncodeCellAreaID(radio Radio, mcc, mnc, lac int) (CellAreaID, error) {
	var id CellAreaID
	if err := checkArea(radio, mcc, mnc, lac); err != nil {
		return id, err
	}
	putArea(id[:], radio, mcc, mnc, lac)
	return id, nil
}

// EncodeCellID packs a cell key, validating every component.
func EncodeCellID(radio Radio, mcc, mnc, lac, cid int) (CellID, error) {
	var id CellID
	if err := checkArea(radio, mcc, mnc, lac); err != nil {
		return id, err
	}
	if cid < MinCID || cid > MaxCID {
		return id, eris.Wrapf(ErrInvalidIdentifier, "identifier: cid %d out of range", cid)
	}
	putArea(id[:], radio, mcc, mnc, lac)
	binary.BigEndian.PutUint32(id[7:], uint32(cid))
	return id, nil
}

func checkArea(radio Radio, mcc, mnc, lac int) error {
	switch {
	case !radio.Valid():
		return eris.Wrapf(ErrInvalidIdentifier, "identifier: radio %d", uint8(radio))
	case mcc < MinMCC || mcc > MaxMCC:
		return eris.Wrapf(ErrInvalidIdentifier, "identifier: mcc %d out of range", mcc)
	case mnc < MinMNC || mnc > MaxMNC:
		return eris.Wrapf(ErrInvalidIdentifier, "identifier: mnc %d out of range", mnc)
	case lac < MinLAC || lac > MaxLAC:
		return eris.Wrapf(ErrInvalidIdentifier, "identifier: lac %d out of range", lac)
	}
	return nil
}

func putArea(b []byte, radio Radio, mcc, mnc, lac int) {
	b[0] = byte(radio)
	binary.BigEndian.PutUint16(b[1:], uint16(mcc))
	binary.BigEndian.PutUint16(b[3:], uint16(mnc))
	binary.BigEndian.PutUint16(b[5:], uint16(lac))
}

func getArea(b []byte) (Radio, int, int, int) {
	return Radio(b[0]),
		int(binary.BigEndian.Uint16(b[1:])),
		int(binary.BigEndian.Uint16(b[3:])),
		int(binary.BigEndian.Uint16(b[5:]))
}

// DecodeCellAreaID parses a 7 byte area key and validates its components.
func DecodeCellAreaID(b []byte) (CellAreaID, error) {
	var id CellAreaID
	if len(b) != cellAreaIDLen {
		return id, eris.Wrapf(ErrInvalidIdentifier, "identifier: area id has %d bytes", len(b))
	}
	copy(id[:], b)
	radio, mcc, mnc, lac := id.Components()
	if err := checkArea(radio, mcc, mnc, lac); err != nil {
		return CellAreaID{}, err
	}
	return id, nil
}

// DecodeCellID parses an 11 byte cell key and validates its components.
func DecodeCellID(b []byte) (CellID, error) {
	var id CellID
	if len(b) != cellIDLen {
		return id, eris.Wrapf(ErrInvalidIdentifier, "identifier: cell id has %d bytes", len(b))
	}
	copy(id[:], b)
	radio, mcc, mnc, lac, cid := id.Components()
	if _, err := EncodeCellID(radio, mcc, mnc, lac, cid); err != nil {
		return CellID{}, err
	}
	return id, nil
}

// ParseCellID parses the hex or base64 text form of a cell key.
func ParseCellID(s string) (CellID, error) {
	raw, err := decodeText(s, cellIDLen)
	if err != nil {
		return CellID{}, err
	}
	return DecodeCellID(raw)
}

// ParseCellAreaID parses the hex or base64 text form of an area key.
func ParseCellAreaID(s string) (CellAreaID, error) {
	raw, err := decodeText(s, cellAreaIDLen)
	if err != nil {
		return CellAreaID{}, err
	}
	return DecodeCellAreaID(raw)
}

func decodeText(s string, n int) ([]byte, error) {
	if len(s) == hex.EncodedLen(n) {
		if raw, err := hex.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidIdentifier, "identifier: %q is neither hex nor base64", s)
	}
	return raw, nil
}

// Components returns the decoded key tuple.
func (id CellAreaID) Components() (radio Radio, mcc, mnc, lac int) {
	return getArea(id[:])
}

// Bytes returns a copy of the binary key.
func (id CellAreaID) Bytes() []byte { return append([]byte(nil), id[:]...) }

// Compare orders area keys by their component tuple.
func (id CellAreaID) Compare(other CellAreaID) int { return bytes.Compare(id[:], other[:]) }

// Hex returns the lower-case hex form.
func (id CellAreaID) Hex() string { return hex.EncodeToString(id[:]) }

// Base64 returns the URL-safe base64 form.
func (id CellAreaID) Base64() string { return base64.URLEncoding.EncodeToString(id[:]) }

func (id CellAreaID) String() string {
	radio, mcc, mnc, lac := id.Components()
	return fmt.Sprintf("%s:%d:%d:%d", radio, mcc, mnc, lac)
}

// Components returns the decoded key tuple.
func (id CellID) Components() (radio Radio, mcc, mnc, lac, cid int) {
	radio, mcc, mnc, lac = getArea(id[:])
	return radio, mcc, mnc, lac, int(binary.BigEndian.Uint32(id[7:]))
}

// Area returns the key of the area containing the cell.
func (id CellID) Area() CellAreaID {
	var area CellAreaID
	copy(area[:], id[:cellAreaIDLen])
	return area
}

// Bytes returns a copy of the binary key.
func (id CellID) Bytes() []byte { return append([]byte(nil), id[:]...) }

// Compare orders cell keys by their component tuple.
func (id CellID) Compare(other CellID) int { return bytes.Compare(id[:], other[:]) }

// Hex returns the lower-case hex form.
func (id CellID) Hex() string { return hex.EncodeToString(id[:]) }

// Base64 returns the URL-safe base64 form.
func (id CellID) Base64() string { return base64.URLEncoding.EncodeToString(id[:]) }

func (id CellID) String() string {
	radio, mcc, mnc, lac, cid := id.Components()
	return fmt.Sprintf("%s:%d:%d:%d:%d", radio, mcc, mnc, lac, cid)
}
