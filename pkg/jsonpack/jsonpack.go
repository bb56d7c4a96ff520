// Package jsonpack provides the wire encoding for byte-array and
// boolean-array fields shared by every MWA method: payloads, signatures,
// and validity/commitment vectors are all packed the same way.
package jsonpack

import (
	"encoding/base64"
	"fmt"
)

var encoding = base64.URLEncoding.WithPadding(base64.NoPadding)

// MalformedEncoding is returned by UnpackBytes/UnpackBools when an element
// of the wire array is not the expected JSON type.
type MalformedEncoding struct {
	Index  int
	Reason string
}

func (e *MalformedEncoding) Error() string {
	return fmt.Sprintf("malformed encoding at index %d: %s", e.Index, e.Reason)
}

// PackBytes encodes each byte slice as an unpadded base64url string.
func PackBytes(payloads [][]byte) []string {
	out := make([]string, len(payloads))
	for i, p := range payloads {
		out[i] = encoding.EncodeToString(p)
	}
	return out
}

// UnpackBytes decodes a JSON array of base64url strings back into byte
// slices. It fails closed: any element that is not a string, or not valid
// base64url, yields a MalformedEncoding naming the offending index.
func UnpackBytes(wire []interface{}) ([][]byte, error) {
	out := make([][]byte, len(wire))
	for i, v := range wire {
		s, ok := v.(string)
		if !ok {
			return nil, &MalformedEncoding{Index: i, Reason: "element is not a string"}
		}
		b, err := encoding.DecodeString(s)
		if err != nil {
			return nil, &MalformedEncoding{Index: i, Reason: "not valid base64url: " + err.Error()}
		}
		out[i] = b
	}
	return out, nil
}

// UnpackBytesStrings is a convenience variant for callers that already
// decoded the wire array as []string (e.g. via encoding/json into a typed
// struct field).
func UnpackBytesStrings(wire []string) ([][]byte, error) {
	out := make([][]byte, len(wire))
	for i, s := range wire {
		b, err := encoding.DecodeString(s)
		if err != nil {
			return nil, &MalformedEncoding{Index: i, Reason: "not valid base64url: " + err.Error()}
		}
		out[i] = b
	}
	return out, nil
}

// PackBools encodes a boolean vector as-is; JSON booleans already are the
// wire representation, but this mirrors PackBytes so callers treat both
// vector kinds uniformly.
func PackBools(bits []bool) []bool {
	out := make([]bool, len(bits))
	copy(out, bits)
	return out
}

// UnpackBools validates that every element of the wire array is a JSON
// boolean, rejecting truthy coercions (1, "true", etc.) with an explicit
// MalformedEncoding instead of a generic decode failure.
func UnpackBools(wire []interface{}) ([]bool, error) {
	out := make([]bool, len(wire))
	for i, v := range wire {
		b, ok := v.(bool)
		if !ok {
			return nil, &MalformedEncoding{Index: i, Reason: "element is not a boolean"}
		}
		out[i] = b
	}
	return out, nil
}
