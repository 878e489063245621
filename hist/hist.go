// Package hist implements order-0/1/2 byte-frequency histogram accumulation
// (§4.2), shared by the Huffman and rANS entropy coders. Counting is 4-way
// interleaved to hide load-store latency, and normalise() proportionally
// rescales a histogram to an exact target total for rANS table construction.
package hist

import "math"

// Histogram accumulates order-0/1/2 byte frequencies over a stream of
// records. Order1/Order2 contexts are only populated up to the configured
// Order; O1/O2 backing storage is allocated lazily so an order-0 histogram
// never pays the (256*256 or 256^3) memory cost of higher orders.
type Histogram struct {
	Order  int // 0, 1, or 2
	MinLen int
	MaxLen int

	O0Size uint64
	O0     [256]uint64

	O1Size [256]uint64 // indexed by prior byte
	o1     []uint64    // flattened [256][256], lazily allocated when Order>=1

	o2Size []uint64 // flattened [256][256], lazily allocated when Order>=2
	o2     []uint64 // flattened [256][256][256], lazily allocated when Order>=2

	// FirstSym/FirstTotal track the distribution of each qualifying record's
	// leading byte. This is the 257th "first-symbol" context (indexed 256)
	// that order-1 Huffman tables use in addition to the 256 regular
	// prior-byte contexts (§3 Huffman code table); it has no counterpart in
	// the plain order-1 histogram, which only ever sees a real prior byte.
	FirstSym   [256]uint64
	FirstTotal uint64

	// four interleaved shard accumulators, merged by Finish
	shard [4]shardState
}

type shardState struct {
	o0Size uint64
	o0     [256]uint64
	o1Size [256]uint64
	o1     []uint64
	o2Size []uint64
	o2     []uint64
}

// New creates a Histogram that only counts records whose length is within
// [minLen, maxLen] (inclusive), accumulating contexts up to order (0, 1, 2).
func New(order, minLen, maxLen int) *Histogram {
	h := &Histogram{Order: order, MinLen: minLen, MaxLen: maxLen}
	if order >= 1 {
		h.o1 = make([]uint64, 256*256)
		for s := range h.shard {
			h.shard[s].o1 = make([]uint64, 256*256)
		}
	}
	if order >= 2 {
		h.o2Size = make([]uint64, 256*256)
		h.o2 = make([]uint64, 256*256*256)
		for s := range h.shard {
			h.shard[s].o2Size = make([]uint64, 256*256)
			h.shard[s].o2 = make([]uint64, 256*256*256)
		}
	}

	return h
}

// O1 returns the order-1 count for context a, symbol c.
func (h *Histogram) O1(a, c int) uint64 { return h.o1[a*256+c] }

// O2Size returns the order-2 context occurrence count for prefix (a,b).
func (h *Histogram) O2Size(a, b int) uint64 { return h.o2Size[a*256+b] }

// O2 returns the order-2 count for context (a,b), symbol c.
func (h *Histogram) O2(a, b, c int) uint64 { return h.o2[(a*256+b)*256+c] }

// AddRecord folds one record's bytes into the four interleaved shards.
// Records outside [MinLen, MaxLen] are ignored entirely (§4.2).
func (h *Histogram) AddRecord(data []byte) {
	n := len(data)
	if n < h.MinLen || n > h.MaxLen {
		return
	}
	if n == 0 {
		return
	}

	h.FirstSym[data[0]]++
	h.FirstTotal++

	quarter := (n + 3) / 4
	for s := 0; s < 4; s++ {
		start := s * quarter
		if start >= n {
			break
		}
		end := start + quarter
		if end > n {
			end = n
		}
		h.addShard(&h.shard[s], data, start, end)
	}
}

// addShard counts data[start:end], initializing order-1/2 prior-byte state
// from the byte immediately preceding the slice in the full record (or 256,
// the synthetic "first symbol" context, when start==0).
func (h *Histogram) addShard(s *shardState, data []byte, start, end int) {
	const none = 256
	prev1 := none
	prev2a, prev2b := none, none
	if start > 0 {
		prev1 = int(data[start-1])
		prev2a = prev1
		if start > 1 {
			prev2b = int(data[start-2])
		}
	}

	for i := start; i < end; i++ {
		c := int(data[i])
		s.o0[c]++
		s.o0Size++

		if h.Order >= 1 {
			if prev1 != none {
				s.o1[prev1*256+c]++
				s.o1Size[prev1]++
			}
			prev1 = c
		}

		if h.Order >= 2 {
			if prev2a != none && prev2b != none {
				idx := prev2b*256 + prev2a
				s.o2[idx*256+c]++
				s.o2Size[idx]++
			}
			prev2b = prev2a
			prev2a = c
		}
	}
}

// Finish sums the four shards into the public O0/O1/O2 accumulators. It may
// be called multiple times; each call recomputes from the shards.
func (h *Histogram) Finish() {
	h.O0Size = 0
	h.O0 = [256]uint64{}
	h.O1Size = [256]uint64{}
	for i := range h.o1 {
		h.o1[i] = 0
	}
	for i := range h.o2Size {
		h.o2Size[i] = 0
	}
	for i := range h.o2 {
		h.o2[i] = 0
	}

	for s := 0; s < 4; s++ {
		sh := &h.shard[s]
		h.O0Size += sh.o0Size
		for c := 0; c < 256; c++ {
			h.O0[c] += sh.o0[c]
		}
		if h.Order >= 1 {
			for a := 0; a < 256; a++ {
				h.O1Size[a] += sh.o1Size[a]
			}
			for i := range h.o1 {
				h.o1[i] += sh.o1[i]
			}
		}
		if h.Order >= 2 {
			for i := range h.o2Size {
				h.o2Size[i] += sh.o2Size[i]
			}
			for i := range h.o2 {
				h.o2[i] += sh.o2[i]
			}
		}
	}
}

// EstimateSize returns floor(entropy * o0Size / 8), the estimated number of
// bytes an order-0 entropy coding of this histogram would need.
func (h *Histogram) EstimateSize() uint64 {
	return estimateOrder0(h.O0[:], h.O0Size)
}

// EstimateSizeOrder1 returns the estimated byte size of an order-1 entropy
// coding, summing the conditional entropy of each context weighted by its
// occurrence count.
func (h *Histogram) EstimateSizeOrder1() uint64 {
	var bits float64
	for a := 0; a < 256; a++ {
		if h.O1Size[a] == 0 {
			continue
		}
		bits += entropyBits(h.o1[a*256:a*256+256], h.O1Size[a]) * float64(h.O1Size[a])
	}

	return uint64(bits / 8)
}

func estimateOrder0(counts []uint64, total uint64) uint64 {
	if total == 0 {
		return 0
	}

	return uint64(entropyBits(counts, total) * float64(total) / 8)
}

func entropyBits(counts []uint64, total uint64) float64 {
	if total == 0 {
		return 0
	}
	var bits float64
	ft := float64(total)
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / ft
		bits -= p * math.Log2(p)
	}

	return bits
}

// Normalise scales h in place by target/sum(h), then adjusts by +-1 per
// symbol (cyclically, over nonzero symbols) until the total is exactly
// target. Every originally-nonzero symbol remains >=1 afterward (§4.2,
// §8 property 6).
func Normalise(h []uint32, target uint32) {
	var sum uint64
	for _, v := range h {
		sum += uint64(v)
	}
	if sum == 0 || target == 0 {
		return
	}

	nonzero := make([]int, 0, len(h))
	for i, v := range h {
		if v == 0 {
			continue
		}
		nonzero = append(nonzero, i)
		scaled := uint64(v) * uint64(target) / sum
		if scaled == 0 {
			scaled = 1
		}
		h[i] = uint32(scaled)
	}

	var cur uint64
	for _, v := range h {
		cur += uint64(v)
	}

	if cur < uint64(target) {
		// deficit path: bump the most-frequent nonzero symbols, cyclically
		order := sortByCountDesc(h, nonzero)
		i := 0
		for cur < uint64(target) {
			idx := order[i%len(order)]
			h[idx]++
			cur++
			i++
		}
	} else if cur > uint64(target) {
		// surplus path: decrement least-frequent symbols with h[i]>=2,
		// cyclically. A pass that changes nothing means every symbol is
		// already at 1 and the target is infeasible; stop rather than spin.
		order := sortByCountAsc(h, nonzero)
		for cur > uint64(target) {
			changed := false
			for _, idx := range order {
				if cur == uint64(target) {
					break
				}
				if h[idx] >= 2 {
					h[idx]--
					cur--
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}
}

func sortByCountDesc(h []uint32, idx []int) []int {
	out := append([]int(nil), idx...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && h[out[j]] > h[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}

	return out
}

func sortByCountAsc(h []uint32, idx []int) []int {
	out := append([]int(nil), idx...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && h[out[j]] < h[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}

	return out
}
