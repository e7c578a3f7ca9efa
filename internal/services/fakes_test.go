package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dochub/backend-go/internal/knowledge"
)

type fakeTokenizer struct {
	words []string
	index map[string]int
}

func newFakeTokenizer() *fakeTokenizer {
	return &fakeTokenizer{index: make(map[string]int)}
}

func (t *fakeTokenizer) Encode(text string) []int {
	var ids []int
	for _, word := range strings.Fields(text) {
		id, ok := t.index[word]
		if !ok {
			id = len(t.words)
			t.words = append(t.words, word)
			t.index[word] = id
		}
		ids = append(ids, id)
	}
	return ids
}

func (t *fakeTokenizer) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, id := range tokens {
		words[i] = t.words[id]
	}
	return strings.Join(words, " ")
}

// fakeEmbedder 返回固定维度向量，可配置整体失败或单条失败
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5}, nil
}

func (f *fakeEmbedder) Dimensions() int { return 1 }
func (f *fakeEmbedder) Ready() bool     { return true }

// fakeStore 内存向量库
type fakeStore struct {
	collections map[string][]knowledge.EmbeddedChunk
	upsertErr   error
	deleted     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string][]knowledge.EmbeddedChunk)}
}

func (s *fakeStore) CreateCollection(ctx context.Context, name, description string) (bool, error) {
	if _, ok := s.collections[name]; ok {
		return false, nil
	}
	s.collections[name] = nil
	return true, nil
}

func (s *fakeStore) DropCollection(ctx context.Context, name string) (bool, error) {
	if _, ok := s.collections[name]; !ok {
		return false, nil
	}
	delete(s.collections, name)
	return true, nil
}

func (s *fakeStore) ListCollections(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names, nil
}

func (s *fakeStore) DescribeCollection(ctx context.Context, name string) (*knowledge.CollectionInfo, error) {
	chunks, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	return &knowledge.CollectionInfo{Name: name, RowCount: int64(len(chunks))}, nil
}

func (s *fakeStore) Count(ctx context.Context, name string) (int64, error) {
	return int64(len(s.collections[name])), nil
}

func (s *fakeStore) Upsert(ctx context.Context, collection string, chunks []knowledge.EmbeddedChunk) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.collections[collection] = append(s.collections[collection], chunks...)
	return nil
}

func (s *fakeStore) Search(ctx context.Context, collection string, vector []float32, filterExpr string, limit int) ([]knowledge.SearchResult, error) {
	var results []knowledge.SearchResult
	for _, chunk := range s.collections[collection] {
		results = append(results, knowledge.SearchResult{
			Text:       chunk.Text,
			Metadata:   chunk.Metadata,
			Relevance:  0.9,
			Collection: collection,
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *fakeStore) ListChunks(ctx context.Context, collection string, offset, limit int) ([]knowledge.StoredChunk, error) {
	all := s.collections[collection]
	var chunks []knowledge.StoredChunk
	for i, chunk := range all {
		if i < offset {
			continue
		}
		if len(chunks) >= limit {
			break
		}
		chunks = append(chunks, knowledge.StoredChunk{
			DocumentID: knowledge.DocumentID(chunk.Metadata),
			Text:       chunk.Text,
			Index:      chunk.Index,
			Total:      chunk.Total,
			Metadata:   chunk.Metadata,
		})
	}
	return chunks, nil
}

func (s *fakeStore) DeleteDocument(ctx context.Context, collection, documentID string) (bool, error) {
	remaining := s.collections[collection][:0]
	found := false
	for _, chunk := range s.collections[collection] {
		if knowledge.DocumentID(chunk.Metadata) == documentID {
			found = true
			continue
		}
		remaining = append(remaining, chunk)
	}
	if found {
		s.collections[collection] = remaining
		s.deleted = append(s.deleted, documentID)
	}
	return found, nil
}

func (s *fakeStore) Ready() bool { return true }

// fakeCompletion 固定回答
type fakeCompletion struct {
	answer string
	err    error
}

func (f *fakeCompletion) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeCompletion) Ready() bool { return true }

var errUpstream = errors.New("upstream failure")
