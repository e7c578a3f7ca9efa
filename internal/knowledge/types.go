package knowledge

import (
	"errors"
	"strings"
	"time"
)

// 领域级哨兵错误，由services层映射为AppError
var (
	// ErrEmptyInput 提取出的文本去除空白后为空
	ErrEmptyInput = errors.New("document text is empty")
	// ErrUnsupportedFormat 文件格式无法解析
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoCollections 向量库中不存在任何集合
	ErrNoCollections = errors.New("no collections exist")
	// ErrCollectionNotFound 指定检索的集合不存在
	ErrCollectionNotFound = errors.New("collection not found")
)

// DocumentMetadata 文档访问控制元数据，随文档的每个chunk整体复制存储
type DocumentMetadata struct {
	Owner             string    `json:"owner"`
	AllowedCategories []string  `json:"allowed_categories"`
	AllowedUsers      []string  `json:"allowed_users"`
	Filename          string    `json:"filename"`
	UploadTime        time.Time `json:"upload_time"`
	Size              int64     `json:"size"`
}

// Chunk 分块后的文本片段，产生后不可变
// Index 从0开始且在同一文档内连续，Total 为该文档的分块总数
type Chunk struct {
	Text     string
	Index    int
	Total    int
	Metadata DocumentMetadata
}

// EmbeddedChunk 带向量的分块，向量维度必须与写入集合一致
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}

// SearchResult 单条检索结果，Relevance仅用于排序，不跨查询比较
type SearchResult struct {
	Text       string           `json:"text"`
	Metadata   DocumentMetadata `json:"metadata"`
	Relevance  float64          `json:"relevance"`
	Collection string           `json:"collection"`
}

// Actor 发起请求的认证身份
type Actor struct {
	Username         string   `json:"username"`
	Roles            []string `json:"roles"`
	AccessCategories []string `json:"access_categories"`
}

// IsAdmin admin角色（大小写不敏感）拥有全局可见性
func (a Actor) IsAdmin() bool {
	for _, role := range a.Roles {
		if strings.EqualFold(role, "admin") {
			return true
		}
	}
	return false
}
