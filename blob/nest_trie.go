package blob

import (
	"context"

	"github.com/arloliu/blobkit/errs"
)

// TrieCollaborator is the interface an external nest-louds-trie
// implementation must satisfy to back a NestLoudsTrieStore (§2 "the
// nest-louds-trie itself (interface only)" is a deliberately out-of-scope
// collaborator; only the contract the store needs is specified here).
type TrieCollaborator interface {
	// Lookup returns the rank of key if present, or (-1, false).
	Lookup(key []byte) (rank int, ok bool)
	// RestoreKey reconstructs the key for a given rank.
	RestoreKey(rank int) []byte
	NumKeys() int
}

// NestLoudsTrieStore stores each record's key in an external succinct trie
// and its value payload indexed by the trie's rank (§4.6 "Nest-louds-trie").
// The trie itself is a deliberately out-of-scope collaborator; this type
// only wires the Store contract through to it plus a value PlainStore.
type NestLoudsTrieStore struct {
	trie   TrieCollaborator
	values *PlainStore
}

// NewNestLoudsTrieStore pairs an already-built trie with its per-rank
// values, assumed to be in the trie's rank order.
func NewNestLoudsTrieStore(trie TrieCollaborator, values [][]byte) *NestLoudsTrieStore {
	return &NestLoudsTrieStore{trie: trie, values: BuildPlainStore(values)}
}

func (s *NestLoudsTrieStore) NumRecords() int       { return s.values.NumRecords() }
func (s *NestLoudsTrieStore) TotalDataSize() uint64 { return s.values.TotalDataSize() }
func (s *NestLoudsTrieStore) MemSize() uint64       { return s.values.MemSize() }

func (s *NestLoudsTrieStore) GetRecord(id int) ([]byte, error) { return s.values.GetRecord(id) }

func (s *NestLoudsTrieStore) GetRecordAppend(id int, dst []byte, cache *OffsetCache) ([]byte, error) {
	return s.values.GetRecordAppend(id, dst, cache)
}

func (s *NestLoudsTrieStore) PreadRecord(ctx context.Context, reader RecordReader, baseOffset int64, id int) ([]byte, error) {
	return s.values.PreadRecord(ctx, reader, baseOffset, id)
}

// Lookup resolves a key to its record bytes via the trie, the access
// pattern this store exists for (keyed lookup rather than id lookup).
func (s *NestLoudsTrieStore) Lookup(key []byte) ([]byte, bool, error) {
	rank, ok := s.trie.Lookup(key)
	if !ok {
		return nil, false, nil
	}
	rec, err := s.values.GetRecord(rank)

	return rec, true, err
}

// Reorder and Purge are not supported: the trie is an external collaborator
// this store does not own, so rewriting record order would desynchronize
// trie ranks from the value store without also rebuilding the trie, which
// is outside this store's responsibility (§2 nest-louds-trie is
// interface-only).
func (s *NestLoudsTrieStore) Reorder(perm []int) (Store, error) {
	return nil, errs.ErrRewriteNotSupported
}

func (s *NestLoudsTrieStore) Purge(deleted []bool) (Store, error) {
	return nil, errs.ErrRewriteNotSupported
}

func (s *NestLoudsTrieStore) Metadata() []MetadataView {
	return s.values.Metadata()
}
