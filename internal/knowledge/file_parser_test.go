package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextPlain(t *testing.T) {
	text, err := ExtractText("notes.txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	text, err = ExtractText("README.md", []byte("# title"))
	require.NoError(t, err)
	assert.Equal(t, "# title", text)
}

func TestExtractTextSniffsUnknownExtension(t *testing.T) {
	// 扩展名未知但内容是纯文本时回退到嗅探
	text, err := ExtractText("notes.data", []byte("plain text content without magic bytes"))
	require.NoError(t, err)
	assert.Equal(t, "plain text content without magic bytes", text)
}

func TestExtractTextUnsupportedFormat(t *testing.T) {
	// PNG魔数，既无已知扩展名也不是文本
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00}
	_, err := ExtractText("image.bin", payload)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractTextMalformedPDF(t *testing.T) {
	_, err := ExtractText("broken.pdf", []byte("not a pdf at all"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}
