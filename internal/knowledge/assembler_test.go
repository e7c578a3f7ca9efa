package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperscriptParser(t *testing.T) {
	parser := SuperscriptParser{}

	assert.Equal(t, []int{1, 3}, parser.Parse("first point¹ and third point³"))
	assert.Equal(t, []int{2}, parser.Parse("repeated² again² and again²"))
	assert.Empty(t, parser.Parse("no markers here, not even 1 or 2"))
	assert.Equal(t, []int{1, 2, 9}, parser.Parse("⁹ out of order ² then ¹"))
}

func resultFor(filename string, relevance float64, text string) SearchResult {
	return SearchResult{
		Text:      text,
		Relevance: relevance,
		Metadata:  DocumentMetadata{Filename: filename},
	}
}

func TestAssembleGroupsByFileAndSelectsCited(t *testing.T) {
	completion := &fakeCompletion{answer: "The policy allows it¹"}
	assembler := NewAssembler(completion, SuperscriptParser{}, 0.85)

	results := []SearchResult{
		resultFor("a.pdf", 0.92, "chunk a1"),
		resultFor("b.pdf", 0.90, "chunk b1"),
		resultFor("a.pdf", 0.88, "chunk a2"),
	}

	answer, err := assembler.Assemble(context.Background(), "is it allowed?", results)
	require.NoError(t, err)

	// a.pdf与b.pdf各占一个上下文编号，只有被引用的a.pdf进入来源
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "a.pdf", answer.Sources[0].Metadata.Filename)
	assert.Equal(t, 0.92, answer.Sources[0].Relevance)

	assert.Contains(t, completion.lastUserText, "Context 1 (a.pdf):")
	assert.Contains(t, completion.lastUserText, "Context 2 (b.pdf):")
	assert.Contains(t, completion.lastUserText, "chunk a1\nchunk a2")
	assert.Contains(t, completion.lastUserText, "Question: is it allowed?")
}

func TestAssembleRelevanceFloorExcludesWeakSources(t *testing.T) {
	completion := &fakeCompletion{answer: "combined answer¹²"}
	assembler := NewAssembler(completion, SuperscriptParser{}, 0.85)

	results := []SearchResult{
		resultFor("strong.pdf", 0.90, "strong chunk"),
		resultFor("weak.pdf", 0.80, "weak chunk"),
	}

	answer, err := assembler.Assemble(context.Background(), "q", results)
	require.NoError(t, err)

	// weak.pdf被引用但低于相关度下限，不进入来源
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "strong.pdf", answer.Sources[0].Metadata.Filename)
}

func TestAssembleFallbackForUnmarkedAnswer(t *testing.T) {
	completion := &fakeCompletion{answer: "an answer without any markers"}
	assembler := NewAssembler(completion, SuperscriptParser{}, 0.85)

	// 达标来源唯一：回退采用
	answer, err := assembler.Assemble(context.Background(), "q", []SearchResult{
		resultFor("only.pdf", 0.9, "chunk"),
		resultFor("weak.pdf", 0.5, "chunk"),
	})
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "only.pdf", answer.Sources[0].Metadata.Filename)

	// 达标来源多个：回退到相关度最高的那个，与出现顺序无关
	answer, err = assembler.Assemble(context.Background(), "q", []SearchResult{
		resultFor("second.pdf", 0.90, "chunk"),
		resultFor("top.pdf", 0.95, "chunk"),
	})
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "top.pdf", answer.Sources[0].Metadata.Filename)

	// 无达标来源：不给来源
	answer, err = assembler.Assemble(context.Background(), "q", []SearchResult{
		resultFor("weak.pdf", 0.5, "chunk"),
	})
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
}

func TestAssembleEmptyResults(t *testing.T) {
	completion := &fakeCompletion{answer: "should not be called"}
	assembler := NewAssembler(completion, SuperscriptParser{}, 0.85)

	answer, err := assembler.Assemble(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, completion.calls)
	assert.Contains(t, answer.Answer, "No relevant documents found")
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
}

func TestAssembleCompletionFailure(t *testing.T) {
	completion := &fakeCompletion{err: assert.AnError}
	assembler := NewAssembler(completion, SuperscriptParser{}, 0.85)

	_, err := assembler.Assemble(context.Background(), "q", []SearchResult{
		resultFor("a.pdf", 0.9, "chunk"),
	})
	assert.ErrorIs(t, err, assert.AnError)
}
