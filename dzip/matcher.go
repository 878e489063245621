package dzip

const (
	minMatchLen     = 5 // Global token minimum, §4.7 vocabulary table
	maxLiteralRun   = 32
	defaultMaxProbe = 32
)

// HashMatcher is a 4-byte rolling-hash table with a chained predecessor
// list per bucket, bounded by maxProbe (§4.7 "Hash matcher").
type HashMatcher struct {
	data     []byte
	head     map[uint32]int
	prev     []int32
	maxProbe int
}

// NewHashMatcher indexes data incrementally as positions are inserted via
// Insert; Find only considers positions already inserted (so callers can
// match against "everything before the current position").
func NewHashMatcher(data []byte, maxProbe int) *HashMatcher {
	if maxProbe <= 0 {
		maxProbe = defaultMaxProbe
	}

	return &HashMatcher{
		data:     data,
		head:     make(map[uint32]int),
		prev:     make([]int32, len(data)),
		maxProbe: maxProbe,
	}
}

func hash4(data []byte, pos int) uint32 {
	if pos+4 > len(data) {
		return 0
	}
	v := uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16 | uint32(data[pos+3])<<24

	return v * 2654435761
}

// Insert registers position pos for future matching.
func (m *HashMatcher) Insert(pos int) {
	if pos+4 > len(m.data) {
		return
	}
	h := hash4(m.data, pos)
	prevHead, ok := m.head[h]
	if ok {
		m.prev[pos] = int32(prevHead)
	} else {
		m.prev[pos] = -1
	}
	m.head[h] = pos
}

// Find returns the best (distance, length) local match whose source starts
// before pos (it may run past pos), or (0,0) if none qualifies.
func (m *HashMatcher) Find(pos int) (distance, length int) {
	if pos+4 > len(m.data) {
		return 0, 0
	}
	h := hash4(m.data, pos)
	cand, ok := m.head[h]
	if !ok {
		return 0, 0
	}

	bestLen := 0
	bestPos := -1
	for probes := 0; cand >= 0 && probes < m.maxProbe; probes++ {
		l := matchLen(m.data, cand, pos)
		if l > bestLen {
			bestLen = l
			bestPos = cand
		}
		cand = int(m.prev[cand])
	}
	if bestPos < 0 {
		return 0, 0
	}

	return pos - bestPos, bestLen
}

// matchLen measures the common run starting at a and b, allowing the match
// to extend past b itself: a local back-reference with distance < length is
// a legitimate overlapping copy-forward (e.g. RLE), not an error.
func matchLen(data []byte, a, b int) int {
	n := len(data)
	l := 0
	for b+l < n && data[a+l] == data[b+l] {
		l++
	}

	return l
}

// GlobalMatcher resolves matches against the shared dictionary via its
// suffix array and BFS-limited trie cache (§4.7 "suffix-array descent").
type GlobalMatcher struct {
	dict *SuffixArray
	trie *TrieNode
}

// NewGlobalMatcher wraps a prebuilt dictionary suffix array and its cached
// interval trie. trie may be nil, in which case only the suffix-array
// binary search runs.
func NewGlobalMatcher(dict *SuffixArray, trie *TrieNode) *GlobalMatcher {
	return &GlobalMatcher{dict: dict, trie: trie}
}

// Find returns the best (dictOffset, length) match for needle within the
// dictionary, or (0,0) if shorter than minMatchLen. When a trie is present
// both the trie descent and a full suffix-array binary search run on every
// call, and the longer of the two matches is returned; the binary search
// does not start from the trie's interval.
func (g *GlobalMatcher) Find(needle []byte) (dictOff, length int) {
	bestOff, bestLen := 0, 0
	if g.trie != nil {
		if off, l := g.trieMatch(needle); l > bestLen {
			bestOff, bestLen = off, l
		}
	}
	if off, l := g.dict.LongestMatch(needle); l > bestLen {
		bestOff, bestLen = off, l
	}
	if bestLen < minMatchLen {
		return 0, 0
	}

	return bestOff, bestLen
}

// trieMatch descends the cached interval trie byte by byte, then extends the
// deepest cached interval's first suffix directly against the needle.
func (g *GlobalMatcher) trieMatch(needle []byte) (dictOff, length int) {
	node := g.trie
	depth := 0
	for depth < len(needle) {
		child, ok := node.Children[needle[depth]]
		if !ok {
			break
		}
		node = child
		depth++
	}
	if depth == 0 {
		return 0, 0
	}

	pos := int(g.dict.At(int(node.SuffixLow)))
	l := commonPrefixLen(g.dict.data[pos:], needle)

	return pos, l
}
