// Package codec maps opaque catalog identifiers to the compact numeric
// stream ids Xtream clients expect.
//
// The mapping is a one-way truncation: the first 8 hex characters of the
// catalog id (separators stripped) parsed as a base-16 integer. 8 hex chars
// is 32 bits truncated from a 128-bit identifier, so collisions are possible
// in principle. This is a known, accepted limitation for realistically sized
// catalogs; the id MUST NOT be widened, deployed Xtream clients cache these
// numeric ids and any format change breaks them.
package codec

import (
	"fmt"
	"strconv"
	"strings"
)

const hexDigits = 8

// Encode derives the numeric stream id for a catalog identifier.
// It is deterministic and pure. Returns an error when the identifier does
// not carry at least 8 leading hex characters after separator stripping.
func Encode(catalogID string) (int64, error) {
	hex := strings.ToLower(strings.NewReplacer("-", "", "{", "", "}", "").Replace(catalogID))
	if len(hex) < hexDigits {
		return 0, fmt.Errorf("identifier %q is too short for a stream id", catalogID)
	}
	hex = hex[:hexDigits]
	id, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}

// Decode resolves a numeric stream id back to a catalog identifier by
// re-encoding every entry in the supplied catalog snapshot and returning the
// first exact match. The scan is linear on purpose: the catalog is small
// (hundreds to low thousands of entries) and no reverse index is kept.
//
// The second return value is false when no entry matches; callers must treat
// that as "stream does not exist", not as a retryable error.
func Decode(streamID int64, catalogIDs []string) (string, bool) {
	for _, id := range catalogIDs {
		enc, err := Encode(id)
		if err != nil {
			continue
		}
		if enc == streamID {
			return id, true
		}
	}
	return "", false
}
