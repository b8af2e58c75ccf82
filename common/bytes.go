package common

import (
	"encoding/hex"
	"errors"
)

// ErrOddLength is returned by FromHex for inputs with an odd number of digits.
var ErrOddLength = errors.New("hex string of odd length")

// FromHex returns the bytes represented by the hexadecimal string s.
// s may be prefixed with "0x".
func FromHex(s string) ([]byte, error) {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		return nil, ErrOddLength
	}
	return hex.DecodeString(s)
}

// Bytes2Hex returns the hexadecimal encoding of d without prefix.
func Bytes2Hex(d []byte) string {
	return hex.EncodeToString(d)
}

// CopyBytes returns an exact copy of the provided bytes.
func CopyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)
	return
}

func has0xPrefix(str string) bool {
	return len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X')
}
