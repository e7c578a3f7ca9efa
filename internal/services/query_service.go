package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/dochub/backend-go/internal/errors"
	"github.com/dochub/backend-go/internal/knowledge"
	"github.com/dochub/backend-go/internal/logger"
	"github.com/dochub/backend-go/internal/metrics"
)

// QueryService 问答管线：查询向量化、跨集合检索、回答组装
type QueryService struct {
	embedder  knowledge.Embedder
	retriever *knowledge.Retriever
	assembler *knowledge.Assembler
	cache     *redis.Client
	cacheTTL  time.Duration
	timeout   time.Duration
}

// NewQueryService 创建问答服务，cache可为nil（不做答案缓存）
func NewQueryService(embedder knowledge.Embedder, retriever *knowledge.Retriever, assembler *knowledge.Assembler,
	cache *redis.Client, cacheTTL, timeout time.Duration) *QueryService {
	return &QueryService{
		embedder:  embedder,
		retriever: retriever,
		assembler: assembler,
		cache:     cache,
		cacheTTL:  cacheTTL,
		timeout:   timeout,
	}
}

// AnswerQuery 端到端回答一个问题
// collection非空时只在该集合内检索，为空时跨全部集合。
// 结果只包含actor可见的文档内容；相同(身份, 集合, 问题)在TTL内命中缓存
func (s *QueryService) AnswerQuery(ctx context.Context, actor knowledge.Actor, question, collection string) (*knowledge.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewInputError(apperrors.ErrCodeInvalidInput, "question is required")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	cacheKey := s.cacheKey(actor, question, collection)
	if answer := s.cacheGet(ctx, cacheKey); answer != nil {
		metrics.QueryCacheHits.Inc()
		metrics.Queries.WithLabelValues("success").Inc()
		return answer, nil
	}

	vector, err := s.embedder.EmbedOne(ctx, question)
	if err != nil {
		metrics.Queries.WithLabelValues("failed").Inc()
		return nil, apperrors.NewUpstreamError(apperrors.ErrCodeEmbeddingFailed, "failed to embed question").WithCause(err)
	}

	results, err := s.retriever.Search(ctx, actor, vector, collection)
	if err != nil {
		metrics.Queries.WithLabelValues("failed").Inc()
		if errors.Is(err, knowledge.ErrNoCollections) {
			return nil, apperrors.NewNoCollectionsError()
		}
		if errors.Is(err, knowledge.ErrCollectionNotFound) {
			return nil, apperrors.NewNotFoundError("collection")
		}
		return nil, apperrors.NewUpstreamError(apperrors.ErrCodeVectorStore, "vector search failed").WithCause(err)
	}

	answer, err := s.assembler.Assemble(ctx, question, results)
	if err != nil {
		metrics.Queries.WithLabelValues("failed").Inc()
		return nil, apperrors.NewUpstreamError(apperrors.ErrCodeCompletionFailed, "failed to generate answer").WithCause(err)
	}

	s.cacheSet(ctx, cacheKey, answer)
	metrics.Queries.WithLabelValues("success").Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	logger.Info("query answered",
		zap.String("username", actor.Username),
		zap.Int("results", len(results)),
		zap.Int("sources", len(answer.Sources)),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}

// cacheKey 缓存键包含完整可见性身份与检索范围，避免跨用户泄露缓存答案
func (s *QueryService) cacheKey(actor knowledge.Actor, question, collection string) string {
	categories := append([]string(nil), actor.AccessCategories...)
	sort.Strings(categories)
	roles := append([]string(nil), actor.Roles...)
	sort.Strings(roles)

	h := sha256.New()
	h.Write([]byte(actor.Username))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(roles, ",")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(categories, ",")))
	h.Write([]byte{0})
	h.Write([]byte(collection))
	h.Write([]byte{0})
	h.Write([]byte(question))
	return "rag:answer:" + hex.EncodeToString(h.Sum(nil))
}

func (s *QueryService) cacheGet(ctx context.Context, key string) *knowledge.Answer {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("answer cache read failed", zap.Error(err))
		}
		return nil
	}
	var answer knowledge.Answer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil
	}
	return &answer
}

func (s *QueryService) cacheSet(ctx context.Context, key string, answer *knowledge.Answer) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		logger.Warn("answer cache write failed", zap.Error(err))
	}
}
