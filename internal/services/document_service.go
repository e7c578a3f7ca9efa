package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/dochub/backend-go/internal/errors"
	"github.com/dochub/backend-go/internal/knowledge"
	"github.com/dochub/backend-go/internal/logger"
	"github.com/dochub/backend-go/internal/metrics"
	"github.com/dochub/backend-go/internal/storage"
)

const listChunksPageSize = 1000

// UploadRequest 文档上传请求
type UploadRequest struct {
	Collection        string
	Filename          string
	Data              []byte
	ContentType       string
	AllowedCategories []string
	AllowedUsers      []string
}

// UploadResult 上传结果
type UploadResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
}

// DocumentInfo 文档列表条目，由同一文档的分块聚合而来
type DocumentInfo struct {
	DocumentID        string    `json:"document_id"`
	Filename          string    `json:"filename"`
	Owner             string    `json:"owner"`
	UploadTime        time.Time `json:"upload_time"`
	Size              int64     `json:"size"`
	Chunks            int       `json:"chunks"`
	AllowedCategories []string  `json:"allowed_categories"`
	AllowedUsers      []string  `json:"allowed_users"`
}

// DocumentService 文档生命周期：上传入库、列表、删除
type DocumentService struct {
	store    knowledge.VectorStore
	chunker  *knowledge.Chunker
	embedder knowledge.Embedder
	archive  storage.ObjectStore
}

// NewDocumentService 创建文档服务，archive可为nil（不归档原始文件）
func NewDocumentService(store knowledge.VectorStore, chunker *knowledge.Chunker, embedder knowledge.Embedder, archive storage.ObjectStore) *DocumentService {
	return &DocumentService{
		store:    store,
		chunker:  chunker,
		embedder: embedder,
		archive:  archive,
	}
}

// ProcessUpload 同步处理文档上传：提取文本、分块、向量化、写入
// 任一阶段失败则整体失败，不会留下半个文档的索引；
// 重复上传同一文件产生新的UploadTime，旧版本保留为独立文档
func (s *DocumentService) ProcessUpload(ctx context.Context, actor knowledge.Actor, req UploadRequest) (*UploadResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewAccessDeniedError("only administrators can upload documents")
	}
	if req.Collection == "" || req.Filename == "" {
		return nil, apperrors.NewInputError(apperrors.ErrCodeInvalidInput, "collection and filename are required")
	}
	if len(req.AllowedCategories) == 0 && len(req.AllowedUsers) == 0 {
		return nil, apperrors.NewInputError(apperrors.ErrCodeInvalidAccessSpec,
			"access spec must grant at least one category or user")
	}

	text, err := knowledge.ExtractText(req.Filename, req.Data)
	if err != nil {
		metrics.DocumentUploads.WithLabelValues("failed").Inc()
		if errors.Is(err, knowledge.ErrUnsupportedFormat) {
			return nil, apperrors.NewInputError(apperrors.ErrCodeUnsupportedFormat,
				fmt.Sprintf("unsupported file format: %s", req.Filename))
		}
		return nil, apperrors.NewInputError(apperrors.ErrCodeInvalidInput, "failed to parse file").WithCause(err)
	}

	meta := knowledge.DocumentMetadata{
		Owner:             actor.Username,
		AllowedCategories: req.AllowedCategories,
		AllowedUsers:      req.AllowedUsers,
		Filename:          req.Filename,
		UploadTime:        time.Now().UTC(),
		Size:              int64(len(req.Data)),
	}

	chunks, err := s.chunker.Split(text, meta)
	if err != nil {
		metrics.DocumentUploads.WithLabelValues("failed").Inc()
		if errors.Is(err, knowledge.ErrEmptyInput) {
			return nil, apperrors.NewInputError(apperrors.ErrCodeEmptyDocument, "document contains no extractable text")
		}
		return nil, apperrors.GetAppError(err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		metrics.DocumentUploads.WithLabelValues("failed").Inc()
		if knowledge.IsEmbeddingError(err) {
			return nil, apperrors.NewUpstreamError(apperrors.ErrCodeEmbeddingFailed,
				"embedding service rejected part of the document").WithCause(err)
		}
		return nil, apperrors.NewUpstreamError(apperrors.ErrCodeEmbeddingFailed, "embedding service unavailable").WithCause(err)
	}

	embedded := make([]knowledge.EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		embedded[i] = knowledge.EmbeddedChunk{Chunk: chunk, Vector: vectors[i]}
	}

	if _, err := s.store.CreateCollection(ctx, req.Collection, ""); err != nil {
		metrics.DocumentUploads.WithLabelValues("failed").Inc()
		return nil, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to prepare collection").WithCause(err)
	}
	if err := s.store.Upsert(ctx, req.Collection, embedded); err != nil {
		metrics.DocumentUploads.WithLabelValues("failed").Inc()
		return nil, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to write chunks").WithCause(err)
	}

	documentID := knowledge.DocumentID(meta)

	// 原始文件归档尽力而为，失败不影响入库结果
	if s.archive != nil {
		objectName := fmt.Sprintf("%s/%s/%s", req.Collection, documentID, req.Filename)
		if err := s.archive.Put(ctx, objectName, req.Data, req.ContentType); err != nil {
			logger.Warn("failed to archive raw file",
				zap.String("object", objectName), zap.Error(err))
		}
	}

	metrics.DocumentUploads.WithLabelValues("success").Inc()
	metrics.ChunksIndexed.Add(float64(len(chunks)))
	logger.Info("document indexed",
		zap.String("collection", req.Collection),
		zap.String("filename", req.Filename),
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)))

	return &UploadResult{
		DocumentID: documentID,
		Filename:   req.Filename,
		Chunks:     len(chunks),
	}, nil
}

// ListDocuments 分页列出集合中actor可见的文档，返回当前页与可见总数
// 向量库按分块存储，这里按document_id聚合还原文档粒度后再分页
func (s *DocumentService) ListDocuments(ctx context.Context, actor knowledge.Actor, collection string, page, limit int) ([]DocumentInfo, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	info, err := s.store.DescribeCollection(ctx, collection)
	if err != nil {
		return nil, 0, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to read collection").WithCause(err)
	}
	if info == nil {
		return nil, 0, apperrors.NewNotFoundError("collection")
	}

	grouped := make(map[string]*DocumentInfo)
	for offset := 0; ; offset += listChunksPageSize {
		chunks, err := s.store.ListChunks(ctx, collection, offset, listChunksPageSize)
		if err != nil {
			return nil, 0, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to list chunks").WithCause(err)
		}
		for _, chunk := range chunks {
			if !knowledge.IsVisible(actor, chunk.Metadata) {
				continue
			}
			doc, ok := grouped[chunk.DocumentID]
			if !ok {
				doc = &DocumentInfo{
					DocumentID:        chunk.DocumentID,
					Filename:          chunk.Metadata.Filename,
					Owner:             chunk.Metadata.Owner,
					UploadTime:        chunk.Metadata.UploadTime,
					Size:              chunk.Metadata.Size,
					AllowedCategories: chunk.Metadata.AllowedCategories,
					AllowedUsers:      chunk.Metadata.AllowedUsers,
				}
				grouped[chunk.DocumentID] = doc
			}
			doc.Chunks++
		}
		if len(chunks) < listChunksPageSize {
			break
		}
	}

	documents := make([]DocumentInfo, 0, len(grouped))
	for _, doc := range grouped {
		documents = append(documents, *doc)
	}
	sort.Slice(documents, func(a, b int) bool {
		if documents[a].UploadTime.Equal(documents[b].UploadTime) {
			return documents[a].Filename < documents[b].Filename
		}
		return documents[a].UploadTime.After(documents[b].UploadTime)
	})

	total := len(documents)
	start := (page - 1) * limit
	if start >= total {
		return []DocumentInfo{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return documents[start:end], total, nil
}

// DeleteDocument 级联删除文档的全部分块
func (s *DocumentService) DeleteDocument(ctx context.Context, actor knowledge.Actor, collection, documentID string) error {
	if !actor.IsAdmin() {
		return apperrors.NewAccessDeniedError("only administrators can delete documents")
	}

	deleted, err := s.store.DeleteDocument(ctx, collection, documentID)
	if err != nil {
		return apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to delete document").WithCause(err)
	}
	if !deleted {
		return apperrors.NewNotFoundError("document")
	}

	logger.Info("document deleted",
		zap.String("collection", collection),
		zap.String("document_id", documentID))
	return nil
}
