package knowledge

import "context"

// StoredChunk 从向量库读出的分块记录（不含向量）
type StoredChunk struct {
	ID         int64
	DocumentID string
	Text       string
	Index      int
	Total      int
	Metadata   DocumentMetadata
}

// CollectionInfo 集合描述信息
type CollectionInfo struct {
	Name        string
	Description string
	RowCount    int64
}

// VectorStore 向量存储抽象
// 实现必须可被并发调用，不持有每请求状态
type VectorStore interface {
	// CreateCollection 创建集合，已存在时返回false
	CreateCollection(ctx context.Context, name, description string) (bool, error)
	// DropCollection 删除集合及其全部数据，不存在时返回false
	DropCollection(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	DescribeCollection(ctx context.Context, name string) (*CollectionInfo, error)
	// Count 集合中的记录数，用于在相似度查询前跳过空集合
	Count(ctx context.Context, name string) (int64, error)
	// Upsert 幂等写入：主键由(文件名, 上传时间, 分块序号)决定，
	// 重复上传同一文档版本覆盖而非重复
	Upsert(ctx context.Context, collection string, chunks []EmbeddedChunk) error
	// Search 带过滤表达式的近邻检索，filterExpr为空表示不过滤
	Search(ctx context.Context, collection string, vector []float32, filterExpr string, limit int) ([]SearchResult, error)
	// ListChunks 分页读取集合中的分块记录（文档列表用）
	ListChunks(ctx context.Context, collection string, offset, limit int) ([]StoredChunk, error)
	// DeleteDocument 级联删除文档的全部分块，文档不存在时返回false
	DeleteDocument(ctx context.Context, collection, documentID string) (bool, error)
	Ready() bool
}
