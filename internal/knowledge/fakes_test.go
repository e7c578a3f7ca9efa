package knowledge

import (
	"context"
	"errors"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// fakeTokenizer 以空白分隔的词作为token，Decode还原为空格连接的文本
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

// fakeEmbeddingAPI 对包含poison的批次返回错误，其余文本返回由文本决定的向量
type fakeEmbeddingAPI struct {
	mu     sync.Mutex
	poison string
	calls  [][]string
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	texts := req.Convert().Input.([]string)

	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	f.mu.Unlock()

	data := make([]openai.Embedding, len(texts))
	for i, text := range texts {
		if f.poison != "" && text == f.poison {
			return openai.EmbeddingResponse{}, errors.New("upstream rejected input")
		}
		data[i] = openai.Embedding{Embedding: []float32{float32(len(text)), float32(i)}}
	}
	return openai.EmbeddingResponse{Data: data}, nil
}

func (f *fakeEmbeddingAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeVectorStore 内存实现，不执行expr过滤，用于验证客户端兜底过滤
type fakeVectorStore struct {
	mu          sync.Mutex
	collections map[string][]SearchResult
	searchErr   map[string]error
	searched    []string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		collections: make(map[string][]SearchResult),
		searchErr:   make(map[string]error),
	}
}

func (s *fakeVectorStore) CreateCollection(ctx context.Context, name, description string) (bool, error) {
	if _, ok := s.collections[name]; ok {
		return false, nil
	}
	s.collections[name] = nil
	return true, nil
}

func (s *fakeVectorStore) DropCollection(ctx context.Context, name string) (bool, error) {
	if _, ok := s.collections[name]; !ok {
		return false, nil
	}
	delete(s.collections, name)
	return true, nil
}

func (s *fakeVectorStore) ListCollections(ctx context.Context) ([]string, error) {
	// map遍历无序，测试用固定顺序
	names := make([]string, 0, len(s.collections))
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if _, ok := s.collections[name]; ok {
			names = append(names, name)
		}
	}
	for name := range s.collections {
		found := false
		for _, existing := range names {
			if existing == name {
				found = true
			}
		}
		if !found {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *fakeVectorStore) DescribeCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	results, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	return &CollectionInfo{Name: name, RowCount: int64(len(results))}, nil
}

func (s *fakeVectorStore) Count(ctx context.Context, name string) (int64, error) {
	return int64(len(s.collections[name])), nil
}

func (s *fakeVectorStore) Upsert(ctx context.Context, collection string, chunks []EmbeddedChunk) error {
	for _, chunk := range chunks {
		s.collections[collection] = append(s.collections[collection], SearchResult{
			Text:       chunk.Text,
			Metadata:   chunk.Metadata,
			Collection: collection,
		})
	}
	return nil
}

func (s *fakeVectorStore) Search(ctx context.Context, collection string, vector []float32, filterExpr string, limit int) ([]SearchResult, error) {
	s.mu.Lock()
	s.searched = append(s.searched, collection)
	s.mu.Unlock()

	if err := s.searchErr[collection]; err != nil {
		return nil, err
	}
	results := s.collections[collection]
	if len(results) > limit {
		results = results[:limit]
	}
	return append([]SearchResult(nil), results...), nil
}

func (s *fakeVectorStore) ListChunks(ctx context.Context, collection string, offset, limit int) ([]StoredChunk, error) {
	results := s.collections[collection]
	chunks := make([]StoredChunk, 0, len(results))
	for i, result := range results {
		if i < offset {
			continue
		}
		if len(chunks) >= limit {
			break
		}
		chunks = append(chunks, StoredChunk{Text: result.Text, Metadata: result.Metadata, Index: i})
	}
	return chunks, nil
}

func (s *fakeVectorStore) DeleteDocument(ctx context.Context, collection, documentID string) (bool, error) {
	return false, nil
}

func (s *fakeVectorStore) Ready() bool {
	return true
}

// fakeCompletion 记录提示词并返回预设回答
type fakeCompletion struct {
	answer       string
	err          error
	calls        int
	lastSystem   string
	lastUserText string
}

func (f *fakeCompletion) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUserText = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeCompletion) Ready() bool {
	return true
}
