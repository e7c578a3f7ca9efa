package knowledge

import (
	"testing"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentIDDeterministic(t *testing.T) {
	uploaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	meta := DocumentMetadata{Filename: "report.pdf", UploadTime: uploaded}

	assert.Equal(t, DocumentID(meta), DocumentID(meta))

	// 不同上传时间是不同的文档版本
	later := meta
	later.UploadTime = uploaded.Add(time.Minute)
	assert.NotEqual(t, DocumentID(meta), DocumentID(later))

	other := meta
	other.Filename = "other.pdf"
	assert.NotEqual(t, DocumentID(meta), DocumentID(other))
}

func TestChunkPrimaryKeyIdempotent(t *testing.T) {
	uploaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	meta := DocumentMetadata{Filename: "report.pdf", UploadTime: uploaded}

	// 同一文档版本的同一分块总是同一个主键，重复写入覆盖而非重复
	assert.Equal(t, chunkPrimaryKey(meta, 3), chunkPrimaryKey(meta, 3))
	assert.NotEqual(t, chunkPrimaryKey(meta, 3), chunkPrimaryKey(meta, 4))
	assert.GreaterOrEqual(t, chunkPrimaryKey(meta, 3), int64(0))
}

func TestVectorIndexFallbackAssignable(t *testing.T) {
	// HNSW与IVF_FLAT必须能赋给同一个索引变量，降级路径才成立
	var index entity.Index
	var err error

	index, err = entity.NewIndexHNSW(entity.COSINE, 8, 64)
	require.NoError(t, err)
	assert.Equal(t, entity.HNSW, index.IndexType())

	index, err = entity.NewIndexIvfFlat(entity.COSINE, 128)
	require.NoError(t, err)
	assert.Equal(t, entity.IvfFlat, index.IndexType())
}

func TestFormatMilvusDistance(t *testing.T) {
	assert.Equal(t, "COSINE", formatMilvusDistance(""))
	assert.Equal(t, "COSINE", formatMilvusDistance("cosine"))
	assert.Equal(t, "IP", formatMilvusDistance("dot"))
	assert.Equal(t, "L2", formatMilvusDistance("euclidean"))
}
