// Package huff implements the canonical Huffman codec (§4.3): order-0/1
// table construction with bounded code length (<=12 bits), and ×1/2/4/8
// interleaved encode/decode.
package huff

import (
	"sort"

	"github.com/arloliu/blobkit/bitio"
	"github.com/arloliu/blobkit/errs"
	"github.com/arloliu/blobkit/hist"
)

const (
	// MaxBits is BLOCK_BITS: the maximum canonical Huffman code length.
	MaxBits = 12
	// HeaderBlockBits is 64-BLOCK_BITS, the header-phase preamble width.
	HeaderBlockBits = 64 - MaxBits
	// FirstSymContext is the synthetic 257th order-1 context for the first
	// byte of a record, which has no real preceding byte.
	FirstSymContext = 256
)

// context holds one context's canonical code table plus its decode lookup.
type context struct {
	length [256]uint8
	code   [256]uint16
	// decode lookup: 2^MaxBits entries, each holding the symbol whose code is
	// a prefix of the window and that symbol's bit length (0 if unused).
	decSym [1 << MaxBits]uint8
	decLen [1 << MaxBits]uint8
}

// Table is a complete order-0 (1 context) or order-1 (257 contexts) canonical
// Huffman code table.
type Table struct {
	Order int // 0 or 1
	ctx   []context
}

// numContexts returns how many contexts a table of the given order holds.
func numContexts(order int) int {
	if order == 0 {
		return 1
	}

	return 257
}

// BuildOrder0 builds a single-context table from order-0 counts.
func BuildOrder0(counts *[256]uint64) (*Table, error) {
	t := &Table{Order: 0, ctx: make([]context, 1)}
	if err := buildContext(&t.ctx[0], counts[:]); err != nil {
		return nil, err
	}

	return t, nil
}

// BuildOrder1 builds a 257-context table from an order>=1 histogram: 256
// contexts indexed by the preceding byte, plus context 256 for each
// record's first byte (h.FirstSym).
func BuildOrder1(h *hist.Histogram) (*Table, error) {
	t := &Table{Order: 1, ctx: make([]context, 257)}
	for a := 0; a < 256; a++ {
		counts := make([]uint64, 256)
		for c := 0; c < 256; c++ {
			counts[c] = h.O1(a, c)
		}
		if err := buildContext(&t.ctx[a], counts); err != nil {
			return nil, err
		}
	}

	firstCounts := make([]uint64, 256)
	copy(firstCounts, h.FirstSym[:])
	if err := buildContext(&t.ctx[FirstSymContext], firstCounts); err != nil {
		return nil, err
	}

	return t, nil
}

// buildContext builds one context's canonical table from raw symbol counts.
// A context with zero total occurrences is left empty (all lengths 0); the
// encoder must never be asked to encode through it.
func buildContext(c *context, counts []uint64) error {
	present := make([]int, 0, 256)
	var total uint64
	for i, v := range counts {
		if v > 0 {
			present = append(present, i)
			total += v
		}
	}
	if len(present) == 0 {
		return nil
	}

	// perturb count-of-1 symbols so a single-symbol alphabet still gets
	// length >= 1 rather than collapsing to a zero-length "free" code.
	weights := make([]uint64, 256)
	copy(weights, counts)
	if len(present) == 1 {
		weights[present[0]] = 2
	}

	lengths := buildHuffmanLengths(weights, present)
	enforceMaxLength(weights, present, lengths, MaxBits)
	assignCanonicalCodes(present, lengths, c)
	buildDecodeTable(c)

	return nil
}

// treeNode is one of up to 511 nodes (256 leaves + 255 internal) in the
// Huffman tree built over present symbols.
type treeNode struct {
	weight      uint64
	left, right int // -1 if leaf
	symbol      int // valid only if left==-1 && right==-1
}

// buildHuffmanLengths builds an unbounded-length Huffman tree over the
// present symbols (by weight) and returns each symbol's code length (0 for
// absent symbols).
func buildHuffmanLengths(weights []uint64, present []int) []int {
	lengths := make([]int, 256)
	if len(present) == 1 {
		lengths[present[0]] = 1

		return lengths
	}

	nodes := make([]treeNode, 0, 2*len(present))
	active := make([]int, 0, len(present))
	for _, sym := range present {
		nodes = append(nodes, treeNode{weight: weights[sym], left: -1, right: -1, symbol: sym})
		active = append(active, len(nodes)-1)
	}

	for len(active) > 1 {
		sort.Slice(active, func(i, j int) bool { return nodes[active[i]].weight < nodes[active[j]].weight })
		a, b := active[0], active[1]
		parent := treeNode{weight: nodes[a].weight + nodes[b].weight, left: a, right: b, symbol: -1}
		nodes = append(nodes, parent)
		active = append(active[2:], len(nodes)-1)
	}

	root := active[0]
	var walk func(idx, depth int)
	walk = func(idx, depth int) {
		n := &nodes[idx]
		if n.left == -1 && n.right == -1 {
			d := depth
			if d == 0 {
				d = 1
			}
			lengths[n.symbol] = d

			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(root, 0)

	return lengths
}

// enforceMaxLength clamps any length > maxBits down to maxBits, then repairs
// the resulting Kraft-inequality over-subscription by repeatedly lengthening
// the least-frequent symbol that still has headroom. This always terminates
// because the alphabet (<=256 symbols) is far smaller than 2^maxBits.
func enforceMaxLength(weights []uint64, present []int, lengths []int, maxBits int) {
	for _, i := range present {
		if lengths[i] > maxBits {
			lengths[i] = maxBits
		}
	}

	target := int64(1) << uint(maxBits)
	var kraft int64
	for _, i := range present {
		kraft += int64(1) << uint(maxBits-lengths[i])
	}

	for kraft > target {
		best := -1
		for _, i := range present {
			if lengths[i] >= maxBits {
				continue
			}
			if best == -1 || weights[i] < weights[best] {
				best = i
			}
		}
		if best == -1 {
			break
		}
		kraft -= int64(1) << uint(maxBits-lengths[best]-1)
		lengths[best]++
	}
}

// assignCanonicalCodes assigns canonical codes: symbols sorted by (bit
// length, original byte value) ascending, code words assigned in increasing
// order at each length (§4.3).
func assignCanonicalCodes(present []int, lengths []int, c *context) {
	sorted := append([]int(nil), present...)
	sort.Slice(sorted, func(i, j int) bool {
		li, lj := lengths[sorted[i]], lengths[sorted[j]]
		if li != lj {
			return li < lj
		}

		return sorted[i] < sorted[j]
	})

	code := 0
	prevLen := 0
	for _, sym := range sorted {
		l := lengths[sym]
		code <<= uint(l - prevLen)
		c.length[sym] = uint8(l)
		c.code[sym] = uint16(code)
		code++
		prevLen = l
	}
}

// buildDecodeTable fills the 2^MaxBits lookup table: every window whose top
// `length` bits equal a symbol's canonical code maps to that symbol.
func buildDecodeTable(c *context) {
	for sym := 0; sym < 256; sym++ {
		l := c.length[sym]
		if l == 0 {
			continue
		}
		code := c.code[sym]
		shift := uint(MaxBits) - uint(l)
		base := uint32(code) << shift
		count := uint32(1) << shift
		for w := base; w < base+count; w++ {
			c.decSym[w] = uint8(sym)
			c.decLen[w] = l
		}
	}
}

// Context returns the context index for order-1 tables (previous byte, or
// FirstSymContext), ignored for order-0 tables.
func (t *Table) context(ctxIdx int) *context {
	if t.Order == 0 {
		return &t.ctx[0]
	}

	return &t.ctx[ctxIdx]
}

// Empty reports whether a context has no symbols (total count was zero).
func (t *Table) Empty(ctxIdx int) bool {
	c := t.context(ctxIdx)
	for _, l := range c.length {
		if l != 0 {
			return false
		}
	}

	return true
}

// CodeFor returns (bit length, code) for symbol b in context ctxIdx, the
// single-symbol primitive entropy-zip needs to track per-record bit offsets
// (huff's own Encode×N works a whole record at a time instead).
func (t *Table) CodeFor(ctxIdx int, b byte) (uint8, uint16) {
	c := t.context(ctxIdx)

	return c.length[b], c.code[b]
}

// DecodeOne looks up the symbol whose canonical code is a prefix of window
// (the top MaxBits bits at the current read position) in context ctxIdx,
// returning (symbol, bit length, ok). ok is false on a corrupt/empty code.
func (t *Table) DecodeOne(ctxIdx int, window uint64) (byte, uint8, bool) {
	c := t.context(ctxIdx)
	sym := c.decSym[window]
	length := c.decLen[window]
	if length == 0 {
		return 0, 0, false
	}

	return sym, length, true
}

// Bytes serializes the table as a leading order byte followed by each
// context's 256 per-symbol code lengths, in symbol order (§4.3 "Store
// lengths in symbol order"). LoadTable is the inverse: canonical codes and
// the decode lookup table are rebuilt deterministically from lengths alone,
// since canonical assignment only depends on (length, symbol value).
func (t *Table) Bytes() []byte {
	numCtx := numContexts(t.Order)
	out := make([]byte, 1+numCtx*256)
	out[0] = byte(t.Order)
	for i := 0; i < numCtx; i++ {
		for sym := 0; sym < 256; sym++ {
			out[1+i*256+sym] = t.ctx[i].length[sym]
		}
	}

	return out
}

// nestedFlag marks a serialized table whose body is itself order-0 Huffman
// compressed (§4.3 "a leading byte 255 indicates the nested encoding"). It
// can never collide with the order byte, which is 0 or 1.
const nestedFlag = 255

// CompressedBytes serializes the table like Bytes, then order-0 Huffman
// compresses that serialization through a freshly built inner table. The
// nested form is kept only when strictly smaller than the raw form.
func (t *Table) CompressedBytes() []byte {
	raw := t.Bytes()

	var counts [256]uint64
	for _, b := range raw {
		counts[b]++
	}
	inner, err := BuildOrder0(&counts)
	if err != nil {
		return raw
	}
	bits := Encode1(inner, [][]byte{raw})
	innerRaw := inner.Bytes()

	nested := make([]byte, 0, 1+len(innerRaw)+8+len(bits.Data))
	nested = append(nested, nestedFlag)
	nested = append(nested, innerRaw...)
	nested = appendUint32(nested, uint32(len(raw)))
	nested = appendUint32(nested, uint32(bits.SizeInBits))
	nested = append(nested, bits.Data...)
	if len(nested) < len(raw) {
		return nested
	}

	return raw
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func readUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// LoadTable rebuilds a Table from bytes produced by Bytes or CompressedBytes.
func LoadTable(data []byte) (*Table, error) {
	if len(data) < 1 {
		return nil, errs.ErrShortRead
	}
	if data[0] == nestedFlag {
		pos := 1
		innerLen := 1 + 256
		if len(data) < pos+innerLen+8 {
			return nil, errs.ErrShortRead
		}
		inner, err := LoadTable(data[pos : pos+innerLen])
		if err != nil {
			return nil, err
		}
		pos += innerLen
		rawLen := int(readUint32(data[pos:]))
		bitLen := uint64(readUint32(data[pos+4:]))
		pos += 8
		stream := bitio.EntropyBits{Data: data[pos:], SizeInBits: bitLen}
		recs, err := Decode1(inner, stream, []int{rawLen})
		if err != nil {
			return nil, err
		}

		return LoadTable(recs[0])
	}
	order := int(data[0])
	numCtx := numContexts(order)
	need := 1 + numCtx*256
	if len(data) < need {
		return nil, errs.ErrShortRead
	}

	t := &Table{Order: order, ctx: make([]context, numCtx)}
	for i := 0; i < numCtx; i++ {
		present := make([]int, 0, 256)
		lengths := make([]int, 256)
		base := 1 + i*256
		for sym := 0; sym < 256; sym++ {
			l := data[base+sym]
			if l > MaxBits {
				return nil, errs.ErrHuffmanOverrun
			}
			if l > 0 {
				present = append(present, sym)
				lengths[sym] = int(l)
			}
		}
		if len(present) > 0 {
			assignCanonicalCodes(present, lengths, &t.ctx[i])
			buildDecodeTable(&t.ctx[i])
		}
	}

	return t, nil
}

// Validate reports an error if building produced an invalid table (should
// never happen for non-degenerate input, guarded defensively).
func (t *Table) Validate() error {
	for i := range t.ctx {
		for _, l := range t.ctx[i].length {
			if l > MaxBits {
				return errs.ErrHuffmanOverrun
			}
		}
	}

	return nil
}
