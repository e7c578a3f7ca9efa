package knowledge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(api *fakeEmbeddingAPI, batchSize int) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:     api,
		model:      "text-embedding-ada-002",
		dimensions: 1536,
		batchSize:  batchSize,
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	api := &fakeEmbeddingAPI{}
	embedder := newTestEmbedder(api, 50)

	texts := []string{"a", "bb", "ccc", "dddd"}
	vectors, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 4)
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
	assert.Equal(t, 1, api.callCount())
}

func TestEmbedBatchSplitsIntoBatches(t *testing.T) {
	api := &fakeEmbeddingAPI{}
	embedder := newTestEmbedder(api, 50)

	texts := make([]string, 120)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}
	vectors, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 120)
	assert.Equal(t, 3, api.callCount())
}

func TestEmbedBatchBisectsToPoisonedText(t *testing.T) {
	api := &fakeEmbeddingAPI{poison: "text-7"}
	embedder := newTestEmbedder(api, 50)

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	_, err := embedder.EmbedBatch(context.Background(), texts)
	require.Error(t, err)
	assert.True(t, IsEmbeddingError(err))

	// 二分定位：10 -> [5..9] -> [5..7] -> [7] ，调用次数远小于逐条重试
	var singles int
	for _, call := range api.calls {
		if len(call) == 1 {
			singles++
		}
	}
	assert.Equal(t, 1, singles, "exactly the poisoned text is retried alone")
	assert.LessOrEqual(t, api.callCount(), 7)
}

func TestEmbedBatchHealthyHalfSucceedsBeforeFailure(t *testing.T) {
	api := &fakeEmbeddingAPI{poison: "zzz"}
	embedder := newTestEmbedder(api, 50)

	_, err := embedder.EmbedBatch(context.Background(), []string{"good-1", "good-2", "zzz", "good-3"})
	require.Error(t, err)
	assert.True(t, IsEmbeddingError(err))
}

func TestEmbedOne(t *testing.T) {
	api := &fakeEmbeddingAPI{}
	embedder := newTestEmbedder(api, 50)

	vector, err := embedder.EmbedOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, float32(5), vector[0])

	_, err = embedder.EmbedOne(context.Background(), "   ")
	assert.Error(t, err)
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	embedder := newTestEmbedder(&fakeEmbeddingAPI{}, 50)
	_, err := embedder.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestEmbeddingErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := &EmbeddingError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsEmbeddingError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsEmbeddingError(cause))
}
