package pipeline

import (
	"strconv"
	"strings"
)

// sdqIndexOffset is where the two-digit positional index starts inside a
// segment key ("SDQ03" -> "03").
const sdqIndexOffset = 3

// DecodeResult carries the raw reconstructed allocations for one line item
// plus counters for the anomalies the decoder tolerated.
type DecodeResult struct {
	Allocations    []RawAllocation
	DanglingStores int
	DroppedPairs   int
}

type RawAllocation struct {
	OwnerKey    string
	StoreNumber string
	Qty         int
}

// DecodeSDQ reconstructs (store, quantity) pairs from positionally indexed
// SDQ segment keys. Indices 01 and 02 are reserved (unit of measure and
// location qualifier) and skipped. From index 03 on, an odd index carries a
// store number and the following even index its quantity. Pairing never
// crosses a segment boundary and is always scoped to ownerKey, so two
// segments for the same line can never have their indices interleaved.
//
// A store index with no paired quantity is dropped silently; that mirrors
// what upstream feeds actually do and is deliberately not "fixed" here.
// Quantities that fail to parse drop the pair the same way. Zero and
// negative quantities are reported as-is; filtering them is the caller's
// business rule, not the decoder's.
func DecodeSDQ(segments []map[string]any, ownerKey string) DecodeResult {
	result := DecodeResult{}

	for _, segment := range segments {
		values := segmentValues(segment)

		for idx := 3; idx <= 99; idx += 2 {
			store, ok := values[idx]
			if !ok {
				continue
			}
			store = strings.TrimSpace(store)
			if store == "" {
				continue
			}

			qtyRaw, ok := values[idx+1]
			if !ok {
				result.DanglingStores++
				continue
			}
			qty, err := strconv.Atoi(strings.TrimSpace(qtyRaw))
			if err != nil {
				result.DroppedPairs++
				continue
			}

			result.Allocations = append(result.Allocations, RawAllocation{
				OwnerKey:    ownerKey,
				StoreNumber: store,
				Qty:         qty,
			})
		}
	}

	return result
}

// segmentValues maps the numeric index of each SDQ<NN> key to its string
// value. Keys that are not SDQ-prefixed or whose index is not two digits
// are ignored.
func segmentValues(segment map[string]any) map[int]string {
	out := make(map[int]string, len(segment))
	for key, raw := range segment {
		if len(key) < sdqIndexOffset+2 {
			continue
		}
		if !strings.EqualFold(key[:sdqIndexOffset], "SDQ") {
			continue
		}
		idx, err := strconv.Atoi(key[sdqIndexOffset : sdqIndexOffset+2])
		if err != nil {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		out[idx] = value
	}
	return out
}
