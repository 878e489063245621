package dzip

// localFinder abstracts the two local-matcher strategies §4.7 names: a
// hash-chain matcher and a per-record suffix-array matcher.
type localFinder interface {
	Find(pos int) (distance, length int)
	Insert(pos int)
}

// saLocalFinder adapts a per-record SuffixArray to the localFinder
// contract used by encodeRecord. Find makes one LongestMatch lookup for
// the suffix at pos and keeps the result only if its source starts before
// pos; it does not walk neighbouring ranks, and maxMatchProbe is not used.
// Since the suffix at pos is itself in the index and matches the needle in
// full, a lookup that returns pos reports no match.
type saLocalFinder struct {
	rec  []byte
	sa   *SuffixArray
	seen int // not set or read by any method
}

func newSALocalFinder(rec []byte) *saLocalFinder {
	return &saLocalFinder{rec: rec, sa: BuildSuffixArray(rec)}
}

func (f *saLocalFinder) Find(pos int) (int, int) {
	if pos == 0 {
		return 0, 0
	}
	off, l := f.sa.LongestMatch(f.rec[pos:])
	if off >= pos || l < 2 {
		// only a match entirely within already-emitted bytes is usable as
		// a back-reference; the suffix array has no notion of "not yet
		// emitted", so positions past pos are rejected here.
		return 0, 0
	}

	return pos - off, l
}

func (f *saLocalFinder) Insert(pos int) {}

// encodeRecord greedily tokenizes one record against its own already-output
// bytes (local matcher) and the shared dictionary (global matcher),
// choosing whichever candidate yields the largest net savings over a
// literal at each position (§4.7 "emits the token with the largest net
// savings").
func encodeRecord(rec []byte, global *GlobalMatcher, maxProbe int, useSuffixArray bool) []Token {
	var local localFinder
	if useSuffixArray {
		local = newSALocalFinder(rec)
	} else {
		local = NewHashMatcher(rec, maxProbe)
	}
	var tokens []Token
	var literalRun []byte

	flushLiteral := func() {
		for len(literalRun) > 0 {
			n := len(literalRun)
			if n > maxLiteralRun {
				n = maxLiteralRun
			}
			tokens = append(tokens, Token{Tag: TagLiteral, Literal: literalRun[:n]})
			literalRun = literalRun[n:]
		}
	}

	i := 0
	for i < len(rec) {
		localDist, localLen := local.Find(i)
		var globalOff, globalLen int
		if global != nil {
			end := i + 64 // bounded lookahead window keeps dictionary descent cheap
			if end > len(rec) {
				end = len(rec)
			}
			globalOff, globalLen = global.Find(rec[i:end])
		}

		localCost := tokenCost(classifyLocal(localDist, localLen))
		globalCost := 3
		localSavings := localLen - localCost
		globalSavings := globalLen - globalCost

		switch {
		case localLen >= 2 && localSavings >= globalSavings && localSavings > 0:
			flushLiteral()
			tag := classifyLocal(localDist, localLen)
			tokens = append(tokens, Token{Tag: tag, Distance: localDist, Len: localLen})
			for k := 0; k < localLen; k++ {
				local.Insert(i + k)
			}
			i += localLen
		case globalLen >= minMatchLen && globalSavings > 0:
			flushLiteral()
			tokens = append(tokens, Token{Tag: TagGlobal, DictOff: globalOff, Len: globalLen})
			for k := 0; k < globalLen; k++ {
				local.Insert(i + k)
			}
			i += globalLen
		default:
			literalRun = append(literalRun, rec[i])
			local.Insert(i)
			i++
		}
	}
	flushLiteral()

	return tokens
}

// tokenCost approximates the encoded byte cost of a local-match tag, used
// only to compare candidates during greedy selection.
func tokenCost(tag TokenTag) int {
	switch tag {
	case TagRLE, TagNearShort:
		return 1
	case TagFar1Short:
		return 2
	case TagFar2Short:
		return 3
	default:
		return 4
	}
}

// decodeRecord runs the LZ-like inflate described in §4.7 "Decode": switch
// on tag, copy literals, copy-forward for local self-references, memcpy
// from the dictionary for Global.
func decodeRecord(tokens []Token, dict []byte) []byte {
	var out []byte
	for _, tok := range tokens {
		switch tok.Tag {
		case TagLiteral:
			out = append(out, tok.Literal...)
		case TagGlobal:
			end := tok.DictOff + tok.Len
			if end > len(dict) {
				end = len(dict)
			}
			out = append(out, dict[tok.DictOff:end]...)
		default:
			// local back-reference: copy-forward byte by byte so
			// overlapping runs (distance < length) replicate correctly.
			start := len(out) - tok.Distance
			for k := 0; k < tok.Len; k++ {
				out = append(out, out[start+k])
			}
		}
	}

	return out
}

// EncodeTokens serializes a token list using the wire encoding in token.go.
func EncodeTokens(tokens []Token) []byte {
	var buf []byte
	for _, t := range tokens {
		buf = EncodeToken(buf, t)
	}

	return buf
}

// DecodeTokens parses every token in buf.
func DecodeTokens(buf []byte) ([]Token, error) {
	var tokens []Token
	pos := 0
	for pos < len(buf) {
		tok, next, err := DecodeToken(buf, pos)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		pos = next
	}

	return tokens, nil
}
