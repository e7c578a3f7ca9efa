package knowledge

import (
	"context"
	"fmt"
	"strings"
)

const assemblerSystemPrompt = `You are a knowledge base assistant. Answer the user's question strictly based on the context provided below. If the context does not contain the answer, say you do not know.

When you use information from a context block, cite it by appending the block's superscript number (such as ¹ or ²) right after the sentence that uses it. Do not invent citations for blocks you did not use.`

const emptyContextAnswer = "No relevant documents found in the knowledge base.\n" +
	"Please try rephrasing the question, or upload the related documents first."

// Answer 最终回答与其引用来源
type Answer struct {
	Answer  string         `json:"answer"`
	Sources []SearchResult `json:"sources"`
}

// sourceGroup 同一文件的检索结果分组，ordinal为提示词中的上下文编号
type sourceGroup struct {
	ordinal int
	best    SearchResult
	texts   []string
}

// Assembler 将检索结果组装为带引用的回答
// 来源列表只保留模型实际引用、且相关度达到下限的文件
type Assembler struct {
	completion     CompletionClient
	parser         CitationParser
	relevanceFloor float64
}

// NewAssembler 创建回答组装器
func NewAssembler(completion CompletionClient, parser CitationParser, relevanceFloor float64) *Assembler {
	if parser == nil {
		parser = SuperscriptParser{}
	}
	if relevanceFloor <= 0 {
		relevanceFloor = 0.85
	}
	return &Assembler{
		completion:     completion,
		parser:         parser,
		relevanceFloor: relevanceFloor,
	}
}

// Assemble 生成回答
// 检索结果为空时不调用模型，直接返回中性答案；
// 同一文件的多个分块合并为一个编号的上下文块
func (a *Assembler) Assemble(ctx context.Context, question string, results []SearchResult) (*Answer, error) {
	if len(results) == 0 {
		return &Answer{Answer: emptyContextAnswer, Sources: []SearchResult{}}, nil
	}

	groups := groupByFile(results)

	text, err := a.completion.Complete(ctx, assemblerSystemPrompt, buildUserPrompt(question, groups))
	if err != nil {
		return nil, err
	}

	return &Answer{
		Answer:  text,
		Sources: a.selectSources(text, groups),
	}, nil
}

// groupByFile 按文件名分组，编号遵循首次出现顺序
func groupByFile(results []SearchResult) []*sourceGroup {
	index := make(map[string]*sourceGroup)
	var groups []*sourceGroup
	for _, result := range results {
		group, ok := index[result.Metadata.Filename]
		if !ok {
			group = &sourceGroup{ordinal: len(groups) + 1, best: result}
			index[result.Metadata.Filename] = group
			groups = append(groups, group)
		}
		if result.Relevance > group.best.Relevance {
			group.best = result
		}
		group.texts = append(group.texts, result.Text)
	}
	return groups
}

func buildUserPrompt(question string, groups []*sourceGroup) string {
	var b strings.Builder
	for _, group := range groups {
		fmt.Fprintf(&b, "Context %d (%s):\n%s\n\n",
			group.ordinal, group.best.Metadata.Filename, strings.Join(group.texts, "\n"))
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

// selectSources 被引用且相关度达标的来源，每个文件取最相关的分块
// 回答中无任何可识别引用标记时回退采用相关度最高的达标来源
func (a *Assembler) selectSources(answer string, groups []*sourceGroup) []SearchResult {
	cited := make(map[int]bool)
	for _, ordinal := range a.parser.Parse(answer) {
		cited[ordinal] = true
	}

	var qualified []*sourceGroup
	for _, group := range groups {
		if group.best.Relevance >= a.relevanceFloor {
			qualified = append(qualified, group)
		}
	}

	sources := make([]SearchResult, 0, len(qualified))
	if len(cited) == 0 {
		if len(qualified) > 0 {
			top := qualified[0]
			for _, group := range qualified[1:] {
				if group.best.Relevance > top.best.Relevance {
					top = group
				}
			}
			sources = append(sources, top.best)
		}
		return sources
	}

	for _, group := range qualified {
		if cited[group.ordinal] {
			sources = append(sources, group.best)
		}
	}
	return sources
}
