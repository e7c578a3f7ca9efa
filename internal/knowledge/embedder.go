package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingError embedding服务对单条文本的最终失败
// 二分重试收敛到单条后仍失败时产生，不再继续重试
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding service failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// IsEmbeddingError 检查错误是否为embedding服务失败
func IsEmbeddingError(err error) bool {
	var embErr *EmbeddingError
	return errors.As(err, &embErr)
}

// Embedder 文本向量化网关
// 实现必须无状态且可被并发调用
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Ready() bool
}

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// embeddingAPI 便于测试替换远端调用，*openai.Client天然满足
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder 使用OpenAI Embedding API，按固定批次提交
// 批次失败时二分重试：一半一半地递归重试，定位到不可embedding的单条文本为止，
// 最坏情况额外调用量为O(log n)
type OpenAIEmbedder struct {
	client     embeddingAPI
	model      string
	dimensions int
	batchSize  int
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器，baseURL为空时使用官方endpoint
func NewOpenAIEmbedder(apiKey, baseURL, model string, batchSize int) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-ada-002"
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	var client *openai.Client
	if strings.TrimSpace(apiKey) != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		client = openai.NewClientWithConfig(cfg)
	}

	dims, ok := embeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	e := &OpenAIEmbedder{
		model:      model,
		dimensions: dims,
		batchSize:  batchSize,
	}
	if client != nil {
		e.client = client
	}
	return e
}

// EmbedBatch 批量向量化，结果与输入顺序一致
// 任意一条文本最终失败则整体失败，调用方不应索引半个文档
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("texts is empty")
	}
	if e.client == nil {
		return nil, errors.New("openai client not initialized")
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedWithBisect(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// EmbedOne 向量化单条文本（查询用）
func (e *OpenAIEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	if e.client == nil {
		return nil, errors.New("openai client not initialized")
	}
	vectors, err := e.embedWithBisect(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedWithBisect 提交一个子批次，失败时二分递归重试
// 单条失败立即以EmbeddingError上浮，不做无限重试
func (e *OpenAIEmbedder) embedWithBisect(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.call(ctx, texts)
	if err == nil {
		return vectors, nil
	}
	if len(texts) == 1 {
		return nil, &EmbeddingError{Err: err}
	}

	half := len(texts) / 2
	left, err := e.embedWithBisect(ctx, texts[:half])
	if err != nil {
		return nil, err
	}
	right, err := e.embedWithBisect(ctx, texts[half:])
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

func (e *OpenAIEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vector := make([]float32, len(item.Embedding))
		copy(vector, item.Embedding)
		vectors[i] = vector
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
