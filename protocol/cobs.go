package protocol

import "errors"

var (
	// ErrInvalidEncoding is returned when a code byte of zero is found
	ErrInvalidEncoding = errors.New("cobs: zero code byte")
	// ErrTruncated is returned when a block claims more bytes than remain
	ErrTruncated = errors.New("cobs: truncated block")
)

// cobsMaxCode closes a block of 254 data bytes without an implied zero
const cobsMaxCode = 0xFF

// EncodedMaxLen returns the worst-case encoded length of n input bytes
func EncodedMaxLen(n int) int {
	return n + n/254 + 1
}

// Encode COBS-encodes src into dst and returns the number of bytes written.
// dst must hold at least EncodedMaxLen(len(src)) bytes. The output never
// contains a zero byte.
func Encode(dst, src []byte) int {
	codePos := 0
	out := 1
	code := byte(1)

	for _, b := range src {
		if b == 0 {
			dst[codePos] = code
			codePos = out
			out++
			code = 1
			continue
		}
		dst[out] = b
		out++
		code++
		if code == cobsMaxCode {
			dst[codePos] = code
			codePos = out
			out++
			code = 1
		}
	}
	dst[codePos] = code
	return out
}

// AppendEncode appends the encoding of src to dst
func AppendEncode(dst, src []byte) []byte {
	start := len(dst)
	need := EncodedMaxLen(len(src))
	if cap(dst)-start < need {
		grown := make([]byte, start, start+need)
		copy(grown, dst)
		dst = grown
	}
	n := Encode(dst[start:start+need], src)
	return dst[:start+n]
}

// Decode reverses Encode, writing into dst and returning the decoded length.
// dst must hold at least len(src) bytes. Nothing is reported on failure:
// the returned length is 0 whenever err is non-nil.
func Decode(dst, src []byte) (int, error) {
	out := 0
	i := 0

	for i < len(src) {
		code := src[i]
		i++
		if code == 0 {
			return 0, ErrInvalidEncoding
		}

		n := int(code) - 1
		if len(src)-i < n {
			return 0, ErrTruncated
		}
		out += copy(dst[out:], src[i:i+n])
		i += n

		if code < cobsMaxCode && i < len(src) {
			dst[out] = 0
			out++
		}
	}
	return out, nil
}
