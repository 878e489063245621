package dzip

import (
	"github.com/arloliu/blobkit/format"
	"github.com/arloliu/blobkit/internal/options"
)

// BuilderOption configures a Builder via the shared functional-option helper
// (internal/options), the same pattern used across the module's builders.
type BuilderOption = options.Option[*BuilderOptions]

// WithSortMode selects how sample substrings are ordered before dictionary
// concatenation.
func WithSortMode(mode SortMode) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.SortMode = mode
	})
}

// WithMinFreq overrides the suffix-cache minimum interval size (default 15,
// or 31 for dictionaries >= 1GiB).
func WithMinFreq(n int) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.MinFreq = n
	})
}

// WithMaxBFSDepth overrides the suffix-cache trie's BFS depth limit.
func WithMaxBFSDepth(n int) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.MaxBFSDepth = n
	})
}

// WithMaxMatchProbe bounds the hash matcher's chain-walk length.
func WithMaxMatchProbe(n int) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.MaxMatchProbe = n
	})
}

// WithWorkers overrides the tokenization worker pool size.
func WithWorkers(n int) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.Workers = n
	})
}

// WithEntropyPass enables the optional second-pass Huffman coding over the
// concatenated first-pass token stream.
func WithEntropyPass(order format.EntropyOrder) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.EnableEntropy = true
		o.EntropyOrder = order
	})
}

// WithChecksum sets the per-record trailer checksum.
func WithChecksum(ct format.ChecksumType) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.Checksum = ct
	})
}

// WithEmbeddedDict stores the dictionary bytes inside the output file
// instead of requiring the caller to supply them out-of-band at read time.
// The embedded block is compressed in place (§4.7 "Finalize") using codec;
// CompressionNone stores it raw.
func WithEmbeddedDict(enabled bool, codec format.CompressionType) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.EmbedDict = enabled
		o.EmbeddedDictCodec = codec
	})
}

// WithSuffixArrayMatcher selects the suffix-array local matcher instead of
// the default hash-table matcher (§4.7 "Encode stage").
func WithSuffixArrayMatcher(enabled bool) BuilderOption {
	return options.NoError(func(o *BuilderOptions) {
		o.UseSuffixArray = enabled
	})
}

// NewBuilderWithOptions is the options-based constructor; NewBuilder remains
// available for callers holding a pre-built BuilderOptions value.
func NewBuilderWithOptions(samples [][]byte, opts ...BuilderOption) (*Builder, error) {
	cfg := &BuilderOptions{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return NewBuilder(samples, *cfg)
}
