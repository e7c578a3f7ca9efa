package knowledge

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dochub/backend-go/internal/logger"
)

// Retriever 跨集合并发检索协调器
type Retriever struct {
	store VectorStore
	limit int
}

// NewRetriever 创建检索协调器，limit为合并后返回的最大结果数
func NewRetriever(store VectorStore, limit int) *Retriever {
	if limit <= 0 {
		limit = 10
	}
	return &Retriever{store: store, limit: limit}
}

// Search 执行相似度检索并合并结果
// collection非空时只查询该集合，不存在返回ErrCollectionNotFound；
// 为空时对全部集合并发扇出。空集合跳过；单个集合失败只记日志
// 不中断其余集合；无任何集合时返回ErrNoCollections。
// 结果按相关度降序，同分时保持集合枚举顺序（稳定排序），超出limit截断
func (r *Retriever) Search(ctx context.Context, actor Actor, vector []float32, collection string) ([]SearchResult, error) {
	collections, err := r.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		return nil, ErrNoCollections
	}
	if collection != "" {
		known := false
		for _, name := range collections {
			if name == collection {
				known = true
				break
			}
		}
		if !known {
			return nil, ErrCollectionNotFound
		}
		collections = []string{collection}
	}

	filterExpr := VisibilityExpr(actor)

	// 每个集合写入自己的槽位，合并顺序与集合枚举顺序一致
	slots := make([][]SearchResult, len(collections))
	var wg sync.WaitGroup
	for i, collection := range collections {
		wg.Add(1)
		go func(i int, collection string) {
			defer wg.Done()

			count, err := r.store.Count(ctx, collection)
			if err != nil {
				logger.Warn("failed to count collection, skipping",
					zap.String("collection", collection), zap.Error(err))
				return
			}
			if count == 0 {
				return
			}

			results, err := r.store.Search(ctx, collection, vector, filterExpr, r.limit)
			if err != nil {
				logger.Warn("collection search failed, skipping",
					zap.String("collection", collection), zap.Error(err))
				return
			}
			slots[i] = results
		}(i, collection)
	}
	wg.Wait()

	var merged []SearchResult
	for _, results := range slots {
		merged = append(merged, results...)
	}

	// 表达式下推之外的客户端兜底过滤
	merged = FilterVisible(actor, merged)

	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Relevance > merged[b].Relevance
	})
	if len(merged) > r.limit {
		merged = merged[:r.limit]
	}
	return merged, nil
}

// Limit 返回合并结果上限
func (r *Retriever) Limit() int {
	return r.limit
}
