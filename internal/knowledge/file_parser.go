package knowledge

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unipdf/v3/extractor"
	pdf "github.com/unidoc/unipdf/v3/model"
)

// FileParser 从原始文件内容提取纯文本
type FileParser interface {
	Extract(data []byte) (string, error)
}

// ExtractText 按扩展名选择解析器，扩展名不可靠时回退到内容嗅探
// 不支持的格式返回ErrUnsupportedFormat
func ExtractText(filename string, data []byte) (string, error) {
	parser := parserForExtension(strings.ToLower(filepath.Ext(filename)))
	if parser == nil {
		parser = parserForMime(mimetype.Detect(data))
	}
	if parser == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	return parser.Extract(data)
}

func parserForExtension(ext string) FileParser {
	switch ext {
	case ".txt", ".md", ".markdown", ".csv", ".log":
		return plainTextParser{}
	case ".pdf":
		return pdfParser{}
	case ".docx":
		return wordParser{}
	case ".xlsx":
		return excelParser{}
	default:
		return nil
	}
}

func parserForMime(mime *mimetype.MIME) FileParser {
	switch {
	case mime.Is("application/pdf"):
		return pdfParser{}
	case mime.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return wordParser{}
	case mime.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return excelParser{}
	default:
		for m := mime; m != nil; m = m.Parent() {
			if m.Is("text/plain") {
				return plainTextParser{}
			}
		}
		return nil
	}
}

type plainTextParser struct{}

func (plainTextParser) Extract(data []byte) (string, error) {
	return string(data), nil
}

type pdfParser struct{}

func (pdfParser) Extract(data []byte) (string, error) {
	reader, err := pdf.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf pages: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("failed to extract pdf page %d: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("failed to extract pdf page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

type wordParser struct{}

func (wordParser) Extract(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			b.WriteString(run.Text())
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

type excelParser struct{}

func (excelParser) Extract(data []byte) (string, error) {
	wb, err := spreadsheet.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer wb.Close()

	var b strings.Builder
	for _, sheet := range wb.Sheets() {
		b.WriteString(sheet.Name())
		b.WriteString("\n")
		for _, row := range sheet.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				cells = append(cells, cell.GetString())
			}
			b.WriteString(strings.Join(cells, "\t"))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
