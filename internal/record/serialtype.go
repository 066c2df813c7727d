package record

import "fmt"

// SerialType is the per-column type tag that prefixes each value in a
// record, per the SQLite file format's record header.
type SerialType uint64

const (
	TypeNull   SerialType = 0
	TypeInt8   SerialType = 1
	TypeInt16  SerialType = 2
	TypeInt24  SerialType = 3
	TypeInt32  SerialType = 4
	TypeInt48  SerialType = 5
	TypeInt64  SerialType = 6
	TypeFloat  SerialType = 7
	TypeZero   SerialType = 8
	TypeOne    SerialType = 9
	typeRsvd10 SerialType = 10
	typeRsvd11 SerialType = 11
)

// Size returns the number of payload bytes a column of this serial type
// occupies in the record body.
func (t SerialType) Size() int {
	switch t {
	case TypeNull, TypeZero, TypeOne:
		return 0
	case TypeInt8:
		return 1
	case TypeInt16:
		return 2
	case TypeInt24:
		return 3
	case TypeInt32:
		return 4
	case TypeInt48:
		return 6
	case TypeInt64, TypeFloat:
		return 8
	default:
		n := uint64(t)
		if n >= 12 && n%2 == 0 {
			return int((n - 12) / 2)
		}
		if n >= 13 && n%2 == 1 {
			return int((n - 13) / 2)
		}
		return 0
	}
}

// IsBlob reports whether this serial type encodes a BLOB column.
func (t SerialType) IsBlob() bool {
	n := uint64(t)
	return n >= 12 && n%2 == 0
}

// IsText reports whether this serial type encodes a UTF-8 TEXT column.
func (t SerialType) IsText() bool {
	n := uint64(t)
	return n >= 13 && n%2 == 1
}

// Valid reports whether t is one of the defined serial types (tags 10 and
// 11 are reserved and never appear in a well-formed record).
func (t SerialType) Valid() bool {
	switch t {
	case typeRsvd10, typeRsvd11:
		return false
	}
	return true
}

func (t SerialType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInt8, TypeInt16, TypeInt24, TypeInt32, TypeInt48, TypeInt64:
		return "int"
	case TypeFloat:
		return "float"
	case TypeZero, TypeOne:
		return "bool"
	default:
		if t.IsBlob() {
			return "blob"
		}
		if t.IsText() {
			return "text"
		}
		return fmt.Sprintf("reserved(%d)", uint64(t))
	}
}
