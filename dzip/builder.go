package dzip

import (
	"os"
	"runtime"
	"strconv"

	"github.com/arloliu/blobkit/bitio"
	"github.com/arloliu/blobkit/compress"
	"github.com/arloliu/blobkit/format"
	"github.com/arloliu/blobkit/hist"
	"github.com/arloliu/blobkit/huff"
	"github.com/arloliu/blobkit/internal/checksum"
	"github.com/arloliu/blobkit/uintvec"
	"golang.org/x/sync/errgroup"
)

// BuilderOptions configures a dictionary-zip build (§4.7 "Build pipeline").
type BuilderOptions struct {
	SortMode          SortMode
	MinFreq           int // suffix cache: min interval size to cache, default 15 (31 for dict >= 1GiB)
	MaxBFSDepth       int // default 64
	MaxMatchProbe     int
	Workers           int // default min(cpuCount, 8)
	EnableEntropy     bool
	EntropyOrder      format.EntropyOrder
	Checksum          format.ChecksumType
	EmbedDict         bool
	EmbeddedDictCodec format.CompressionType // compressor for the embedded dict block when EmbedDict is set
	UseSuffixArray    bool                   // local matcher strategy: suffix array vs hash table
}

// envInt reads a non-semantic tuning variable (§6 "Environment variables
// consumed"), falling back to def when unset or unparsable.
func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func (o *BuilderOptions) setDefaults(dictSize int) {
	if o.MinFreq == 0 {
		o.MinFreq = 15
		if dictSize >= 1<<30 {
			o.MinFreq = 31
		}
	}
	if o.MaxBFSDepth == 0 {
		o.MaxBFSDepth = 64
	}
	if o.MaxMatchProbe == 0 {
		o.MaxMatchProbe = envInt("DictZipBlobStore_MAX_PROBE", defaultMaxProbe)
	}
	if o.Workers == 0 {
		if v, ok := os.LookupEnv("DictZipBlobStore_zipThreads"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				// 0 selects the single-thread builder
				o.Workers = n
				if o.Workers < 1 {
					o.Workers = 1
				}
			}
		}
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
		if o.Workers > 8 {
			o.Workers = 8
		}
	}
	if o.EmbedDict && o.EmbeddedDictCodec == 0 {
		o.EmbeddedDictCodec = format.CompressionZstd
	}
}

// Builder drives the dictionary-zip build pipeline: sample -> dictionary,
// suffix array + trie cache, per-record worker-pool tokenization, optional
// entropy second pass, then a single-writer finalize stage.
type Builder struct {
	opts BuilderOptions
	dict []byte
	sa   *SuffixArray
	trie *TrieNode
}

// NewBuilder builds the dictionary and its suffix-array cache from samples
// (§4.7 steps 1-2).
func NewBuilder(samples [][]byte, opts BuilderOptions) (*Builder, error) {
	dict, err := BuildDictionary(samples, opts.SortMode)
	if err != nil {
		return nil, err
	}
	opts.setDefaults(len(dict))

	var sa *SuffixArray
	var trie *TrieNode
	if len(dict) > 0 {
		sa = BuildSuffixArray(dict)
		trie = BuildSuffixCache(sa, opts.MinFreq, opts.MaxBFSDepth)
	}

	return &Builder{opts: opts, dict: dict, sa: sa, trie: trie}, nil
}

// encodedRecord is one record's pipeline-stage output, carrying enough
// state for the single-writer finalize stage to commit it in submission
// order even though workers race ahead independently (§5 "Ordering
// guarantees").
type encodedRecord struct {
	index      int
	tokenBytes []byte
	crc        uint32
}

// Build runs the multi-threaded tokenization pipeline (§4.7 "Multi-threaded
// build") over records and produces a finalized Store.
func (b *Builder) Build(records [][]byte) (*Store, error) {
	global := (*GlobalMatcher)(nil)
	if b.sa != nil {
		global = NewGlobalMatcher(b.sa, b.trie)
	}

	results := make([]encodedRecord, len(records))

	g := new(errgroup.Group)
	g.SetLimit(b.opts.Workers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			tokens := encodeRecord(rec, global, b.opts.MaxMatchProbe, b.opts.UseSuffixArray)
			encoded := EncodeTokens(tokens)
			var crc uint32
			if b.opts.Checksum == format.ChecksumCRC32C {
				crc = checksum.CRC32C(rec)
			}
			results[i] = encodedRecord{index: i, tokenBytes: encoded, crc: crc}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entropyTable *huff.Table
	entropyBitmap := make([]bool, len(records))
	if b.opts.EnableEntropy {
		// the histogram must see record boundaries: each record is entropy
		// coded independently, so its first byte draws from the first-symbol
		// context and its transitions never cross into the next record
		h := hist.New(1, 0, 1<<32-1)
		for _, r := range results {
			h.AddRecord(r.tokenBytes)
		}
		h.Finish()
		table, err := huff.BuildOrder1(h)
		if err != nil {
			return nil, err
		}
		entropyTable = table

		for i := range results {
			entropyEncoded := huffEncodeBytes(entropyTable, results[i].tokenBytes)
			if len(entropyEncoded) < len(results[i].tokenBytes) {
				results[i].tokenBytes = entropyEncoded
				entropyBitmap[i] = true
			}
		}
	}

	// single-writer finalize: commit in submission order (results is
	// already index-ordered since each worker wrote its own slot).
	offsetVals := make([]uint64, len(records)+1)
	var payload []byte
	var total uint64
	for i, r := range results {
		offsetVals[i] = total
		body := r.tokenBytes
		if b.opts.Checksum == format.ChecksumCRC32C {
			body = append(append([]byte(nil), body...), byte(r.crc), byte(r.crc>>8), byte(r.crc>>16), byte(r.crc>>24))
		}
		payload = append(payload, body...)
		total += uint64(len(body))
	}
	offsetVals[len(records)] = total

	offsets, err := uintvec.BuildSorted(offsetVals)
	if err != nil {
		return nil, err
	}

	var dictBlock []byte
	embeddedDictCodec := format.CompressionNone
	if b.opts.EmbedDict {
		embeddedDictCodec = b.opts.EmbeddedDictCodec
		codec, err := compress.GetCodec(embeddedDictCodec)
		if err != nil {
			return nil, err
		}
		dictBlock, err = codec.Compress(b.dict)
		if err != nil {
			return nil, err
		}
	}

	var unzipSize uint64
	for _, rec := range records {
		unzipSize += uint64(len(rec))
	}

	return &Store{
		dict:              b.dict,
		embeddedDict:      dictBlock,
		embeddedDictCodec: embeddedDictCodec,
		payload:           payload,
		offsets:           offsets,
		unzipSize:         unzipSize,
		entropyTable:      entropyTable,
		entropyBitmap:     entropyBitmap,
		checksumType:      b.opts.Checksum,
		records:           len(records),
	}, nil
}

// huffEncodeBytes Huffman-encodes an arbitrary byte slice through a single
// stream, prefixing it with a varint of the original byte length (needed
// since huff.Decode1 requires the record length up front) and wrapping the
// bitstream into a self-describing byte range via bitio.BitsToBytes.
func huffEncodeBytes(t *huff.Table, data []byte) []byte {
	stream := huff.Encode1(t, [][]byte{data})
	wrapped := bitio.BitsToBytes(stream)

	out := writeVarint(nil, uint64(len(data)))

	return append(out, wrapped...)
}

// huffDecodeBytes is the inverse of huffEncodeBytes.
func huffDecodeBytes(t *huff.Table, data []byte) ([]byte, error) {
	n, pos, err := readVarint(data, 0)
	if err != nil {
		return nil, err
	}
	stream := bitio.BytesToBits(data[pos:])
	decoded, err := huff.Decode1(t, stream, []int{int(n)})
	if err != nil {
		return nil, err
	}

	return decoded[0], nil
}
