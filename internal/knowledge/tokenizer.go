package knowledge

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer 子词分词器接口
// 分块必须以token为单位，保证chunk大小与embedding模型的计数方式一致
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// TiktokenTokenizer 基于BPE的分词器，与OpenAI embedding模型对齐
type TiktokenTokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenTokenizer 创建cl100k_base分词器
func NewTiktokenTokenizer() (*TiktokenTokenizer, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &TiktokenTokenizer{encoding: encoding}, nil
}

func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.encoding.Decode(tokens)
}
