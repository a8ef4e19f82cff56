package seriesexec

import (
	"crypto/sha256"
	"sort"

	"github.com/certen/state-computer/pkg/types"
)

// receiptHash derives a deterministic leaf for the receipt accumulator
// from a receipt's outcome and fee summary, since the receipt's own
// serialization format belongs to the (out-of-scope) wire codec.
func receiptHash(r types.Receipt) types.Hash32 {
	h := sha256.New()
	h.Write([]byte{byte(r.Outcome)})
	var buf [16]byte
	putUint64(buf[0:8], r.Fee.ExecutionCostUnitsConsumed)
	putUint64(buf[8:16], r.Fee.TotalFeePaid)
	h.Write(buf[:])
	var out types.Hash32
	copy(out[:], h.Sum(nil))
	return out
}

// stateDeltaHash derives a deterministic leaf for the state accumulator
// from a state update delta, sorting keys so the hash does not depend on
// map iteration order.
func stateDeltaHash(d types.StateUpdateDelta) types.Hash32 {
	keys := make([]string, 0, len(d.Writes))
	for k := range d.Writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write(d.Writes[k])
	}
	var out types.Hash32
	copy(out[:], h.Sum(nil))
	return out
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}
