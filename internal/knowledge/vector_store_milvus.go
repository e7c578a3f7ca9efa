package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/dochub/backend-go/internal/logger"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Database   string
	VectorSize int
	Distance   string
	UseTLS     bool
	Timeout    time.Duration
}

type milvusVectorStore struct {
	milvusClient client.Client
	vectorSize   int
	distance     string
}

// milvusRecord metadata JSON字段的存储结构
type milvusRecord struct {
	DocumentMetadata
	ChunkIndex  int `json:"chunk_index"`
	TotalChunks int `json:"total_chunks"`
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient: milvusClient,
		vectorSize:   opts.VectorSize,
		distance:     formatMilvusDistance(opts.Distance),
	}, nil
}

func formatMilvusDistance(value string) string {
	switch value {
	case "dot", "ip", "DOT", "IP", "INNER_PRODUCT":
		return "IP"
	case "l2", "L2", "euclidean", "EUCLIDEAN":
		return "L2"
	default:
		return "COSINE"
	}
}

func (s *milvusVectorStore) CreateCollection(ctx context.Context, name, description string) (bool, error) {
	has, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return false, nil
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    description,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "metadata",
				DataType: entity.FieldTypeJSON,
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(s.vectorSize),
				},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return false, fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createVectorIndex(ctx, name); err != nil {
		return false, err
	}

	// 加载到内存，失败时延迟到首次检索
	if err := s.milvusClient.LoadCollection(ctx, name, true); err != nil {
		logger.Warn("failed to load collection after create", zap.String("collection", name), zap.Error(err))
	}

	return true, nil
}

// createVectorIndex HNSW优先，失败时降级IVF_FLAT
func (s *milvusVectorStore) createVectorIndex(ctx context.Context, name string) error {
	metric := entity.MetricType(s.distance)

	var index entity.Index
	var err error
	index, err = entity.NewIndexHNSW(metric, 8, 64)
	if err != nil {
		index, err = entity.NewIndexIvfFlat(metric, 128)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
	}

	if err := s.milvusClient.CreateIndex(ctx, name, "vector", index, false); err != nil {
		logger.Warn("failed to create vector index", zap.String("collection", name), zap.Error(err))
	}
	return nil
}

func (s *milvusVectorStore) DropCollection(ctx context.Context, name string) (bool, error) {
	has, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		return false, nil
	}
	if err := s.milvusClient.DropCollection(ctx, name); err != nil {
		return false, fmt.Errorf("failed to drop collection: %w", err)
	}
	return true, nil
}

func (s *milvusVectorStore) ListCollections(ctx context.Context) ([]string, error) {
	collections, err := s.milvusClient.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	names := make([]string, 0, len(collections))
	for _, collection := range collections {
		names = append(names, collection.Name)
	}
	return names, nil
}

func (s *milvusVectorStore) DescribeCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	has, err := s.milvusClient.HasCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		return nil, nil
	}

	collection, err := s.milvusClient.DescribeCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe collection: %w", err)
	}

	count, err := s.Count(ctx, name)
	if err != nil {
		count = 0
	}

	info := &CollectionInfo{
		Name:     name,
		RowCount: count,
	}
	if collection.Schema != nil {
		info.Description = collection.Schema.Description
	}
	return info, nil
}

func (s *milvusVectorStore) Count(ctx context.Context, name string) (int64, error) {
	stats, err := s.milvusClient.GetCollectionStatistics(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}
	count, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, nil
	}
	return count, nil
}

func (s *milvusVectorStore) Upsert(ctx context.Context, collection string, chunks []EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]int64, len(chunks))
	documentIDs := make([]string, len(chunks))
	chunkIndexes := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	metadataRows := make([][]byte, len(chunks))
	vectors := make([][]float32, len(chunks))

	for i, chunk := range chunks {
		if len(chunk.Vector) != s.vectorSize {
			return fmt.Errorf("vector dimension mismatch: got %d, collection expects %d", len(chunk.Vector), s.vectorSize)
		}

		record := milvusRecord{
			DocumentMetadata: chunk.Metadata,
			ChunkIndex:       chunk.Index,
			TotalChunks:      chunk.Total,
		}
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}

		ids[i] = chunkPrimaryKey(chunk.Metadata, chunk.Index)
		documentIDs[i] = DocumentID(chunk.Metadata)
		chunkIndexes[i] = int64(chunk.Index)
		texts[i] = chunk.Text
		metadataRows[i] = raw
		vectors[i] = chunk.Vector
	}

	columns := []entity.Column{
		entity.NewColumnInt64("id", ids),
		entity.NewColumnVarChar("document_id", documentIDs),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnJSONBytes("metadata", metadataRows),
		entity.NewColumnFloatVector("vector", s.vectorSize, vectors),
	}

	if _, err := s.milvusClient.Upsert(ctx, collection, "", columns...); err != nil {
		return fmt.Errorf("milvus upsert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, collection, false); err != nil {
		logger.Warn("failed to flush collection", zap.String("collection", collection), zap.Error(err))
	}
	return nil
}

func (s *milvusVectorStore) Search(ctx context.Context, collection string, vector []float32, filterExpr string, limit int) ([]SearchResult, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.milvusClient.Search(
		ctx,
		collection,
		[]string{},
		filterExpr,
		[]string{"document_id", "text", "metadata"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.MetricType(s.distance),
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(searchResults) == 0 {
		return nil, nil
	}

	result := searchResults[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", result.Err)
	}
	if result.ResultCount == 0 {
		return nil, nil
	}

	var texts []string
	var metadataRows [][]byte
	for _, field := range result.Fields {
		switch field.Name() {
		case "text":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				texts = col.Data()
			}
		case "metadata":
			if col, ok := field.(*entity.ColumnJSONBytes); ok {
				metadataRows = col.Data()
			}
		}
	}

	results := make([]SearchResult, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		item := SearchResult{Collection: collection}
		if i < len(texts) {
			item.Text = texts[i]
		}
		if i < len(metadataRows) {
			var record milvusRecord
			if err := json.Unmarshal(metadataRows[i], &record); err != nil {
				logger.Warn("failed to decode chunk metadata", zap.String("collection", collection), zap.Error(err))
				continue
			}
			item.Metadata = record.DocumentMetadata
		}
		if i < len(result.Scores) {
			item.Relevance = float64(result.Scores[i])
		}
		results = append(results, item)
	}
	return results, nil
}

func (s *milvusVectorStore) ListChunks(ctx context.Context, collection string, offset, limit int) ([]StoredChunk, error) {
	if limit <= 0 {
		limit = 100
	}

	resultSet, err := s.milvusClient.Query(
		ctx,
		collection,
		[]string{},
		"chunk_index >= 0",
		[]string{"id", "document_id", "chunk_index", "text", "metadata"},
		client.WithOffset(int64(offset)),
		client.WithLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("milvus query failed: %w", err)
	}

	var (
		ids          []int64
		documentIDs  []string
		chunkIndexes []int64
		texts        []string
		metadataRows [][]byte
	)
	for _, column := range resultSet {
		switch column.Name() {
		case "id":
			if col, ok := column.(*entity.ColumnInt64); ok {
				ids = col.Data()
			}
		case "document_id":
			if col, ok := column.(*entity.ColumnVarChar); ok {
				documentIDs = col.Data()
			}
		case "chunk_index":
			if col, ok := column.(*entity.ColumnInt64); ok {
				chunkIndexes = col.Data()
			}
		case "text":
			if col, ok := column.(*entity.ColumnVarChar); ok {
				texts = col.Data()
			}
		case "metadata":
			if col, ok := column.(*entity.ColumnJSONBytes); ok {
				metadataRows = col.Data()
			}
		}
	}

	chunks := make([]StoredChunk, 0, len(ids))
	for i := range ids {
		chunk := StoredChunk{ID: ids[i]}
		if i < len(documentIDs) {
			chunk.DocumentID = documentIDs[i]
		}
		if i < len(chunkIndexes) {
			chunk.Index = int(chunkIndexes[i])
		}
		if i < len(texts) {
			chunk.Text = texts[i]
		}
		if i < len(metadataRows) {
			var record milvusRecord
			if err := json.Unmarshal(metadataRows[i], &record); err != nil {
				continue
			}
			chunk.Metadata = record.DocumentMetadata
			chunk.Total = record.TotalChunks
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (s *milvusVectorStore) DeleteDocument(ctx context.Context, collection, documentID string) (bool, error) {
	expr := fmt.Sprintf("document_id == %s", jsonQuote(documentID))

	// 先确认文档存在，使删除结果可以区分"已删除"与"未找到"
	resultSet, err := s.milvusClient.Query(
		ctx,
		collection,
		[]string{},
		expr,
		[]string{"id"},
		client.WithLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("milvus query failed: %w", err)
	}
	found := false
	for _, column := range resultSet {
		if column.Name() == "id" && column.Len() > 0 {
			found = true
		}
	}
	if !found {
		return false, nil
	}

	if err := s.milvusClient.Delete(ctx, collection, "", expr); err != nil {
		return false, fmt.Errorf("milvus delete failed: %w", err)
	}
	if err := s.milvusClient.Flush(ctx, collection, false); err != nil {
		logger.Warn("failed to flush after delete", zap.String("collection", collection), zap.Error(err))
	}
	return true, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

// DocumentID 由(文件名, 上传时间)派生的文档标识，同一文档的所有chunk共享
func DocumentID(meta DocumentMetadata) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", meta.Filename, meta.UploadTime.UTC().Format(time.RFC3339Nano))
	return fmt.Sprintf("%016x", h.Sum64())
}

// chunkPrimaryKey 幂等写入主键：同一文档版本的同一分块总是映射到同一主键
func chunkPrimaryKey(meta DocumentMetadata, index int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", meta.Filename, meta.UploadTime.UTC().Format(time.RFC3339Nano), index)
	return int64(h.Sum64() & 0x7fffffffffffffff)
}
