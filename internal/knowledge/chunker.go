package knowledge

import (
	"strings"
)

// Chunker 按token窗口切分文本
type Chunker struct {
	tokenizer    Tokenizer
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器，overlap必须小于chunkSize
func NewChunker(tokenizer Tokenizer, chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Chunker{
		tokenizer:    tokenizer,
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// Split 将文本切分为带重叠的token窗口
// 相邻chunk共享overlap个token；末尾不足一个窗口的片段照常产出，
// 即使解码后为空串也不丢弃，保证文档尾部不丢失
func (c *Chunker) Split(text string, meta DocumentMetadata) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	tokens := c.tokenizer.Encode(text)
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = c.chunkSize
	}

	var texts []string
	for start := 0; start < len(tokens); start += step {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		texts = append(texts, c.tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}

	chunks := make([]Chunk, len(texts))
	for i, chunkText := range texts {
		chunks[i] = Chunk{
			Text:     chunkText,
			Index:    i,
			Total:    len(texts),
			Metadata: meta,
		}
	}
	return chunks, nil
}

// ChunkSize 返回窗口大小（token数）
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap 返回相邻窗口的重叠token数
func (c *Chunker) Overlap() int {
	return c.chunkOverlap
}
