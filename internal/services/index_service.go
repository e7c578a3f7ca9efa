package services

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	apperrors "github.com/dochub/backend-go/internal/errors"
	"github.com/dochub/backend-go/internal/knowledge"
	"github.com/dochub/backend-go/internal/logger"
)

// Milvus集合命名约束：字母或下划线开头，限字母数字下划线
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,254}$`)

// IndexService 集合（知识库索引）管理
type IndexService struct {
	store knowledge.VectorStore
}

// NewIndexService 创建索引管理服务
func NewIndexService(store knowledge.VectorStore) *IndexService {
	return &IndexService{store: store}
}

// CreateIndex 创建集合，返回是否新建（已存在返回false且不报错）
func (s *IndexService) CreateIndex(ctx context.Context, actor knowledge.Actor, name, description string) (bool, error) {
	if !actor.IsAdmin() {
		return false, apperrors.NewAccessDeniedError("only administrators can create indexes")
	}
	if !collectionNamePattern.MatchString(name) {
		return false, apperrors.NewInputError(apperrors.ErrCodeInvalidInput,
			"index name must start with a letter or underscore and contain only letters, digits and underscores")
	}

	created, err := s.store.CreateCollection(ctx, name, description)
	if err != nil {
		return false, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to create index").WithCause(err)
	}
	if created {
		logger.Info("index created", zap.String("index", name))
	}
	return created, nil
}

// DeleteIndex 删除集合及其全部文档
func (s *IndexService) DeleteIndex(ctx context.Context, actor knowledge.Actor, name string) error {
	if !actor.IsAdmin() {
		return apperrors.NewAccessDeniedError("only administrators can delete indexes")
	}

	dropped, err := s.store.DropCollection(ctx, name)
	if err != nil {
		return apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to delete index").WithCause(err)
	}
	if !dropped {
		return apperrors.NewNotFoundError("index")
	}
	logger.Info("index deleted", zap.String("index", name))
	return nil
}

// ListIndexes 列出集合
// admin看到全部；普通用户只看到包含至少一个可见文档的集合
func (s *IndexService) ListIndexes(ctx context.Context, actor knowledge.Actor) ([]knowledge.CollectionInfo, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to list indexes").WithCause(err)
	}

	infos := make([]knowledge.CollectionInfo, 0, len(names))
	for _, name := range names {
		if !actor.IsAdmin() {
			visible, err := s.hasVisibleDocument(ctx, actor, name)
			if err != nil || !visible {
				continue
			}
		}
		info, err := s.store.DescribeCollection(ctx, name)
		if err != nil || info == nil {
			continue
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// IndexInfo 集合详情，普通用户只能查看对其可见的集合
func (s *IndexService) IndexInfo(ctx context.Context, actor knowledge.Actor, name string) (*knowledge.CollectionInfo, error) {
	info, err := s.store.DescribeCollection(ctx, name)
	if err != nil {
		return nil, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to describe index").WithCause(err)
	}
	if info == nil {
		return nil, apperrors.NewNotFoundError("index")
	}
	if !actor.IsAdmin() {
		visible, err := s.hasVisibleDocument(ctx, actor, name)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, apperrors.NewNotFoundError("index")
		}
	}
	return info, nil
}

func (s *IndexService) hasVisibleDocument(ctx context.Context, actor knowledge.Actor, collection string) (bool, error) {
	for offset := 0; ; offset += listChunksPageSize {
		chunks, err := s.store.ListChunks(ctx, collection, offset, listChunksPageSize)
		if err != nil {
			return false, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "failed to scan index").WithCause(err)
		}
		for _, chunk := range chunks {
			if knowledge.IsVisible(actor, chunk.Metadata) {
				return true, nil
			}
		}
		if len(chunks) < listChunksPageSize {
			return false, nil
		}
	}
}
