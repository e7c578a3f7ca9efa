package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentUploads 文档上传计数，label区分成功与失败
	DocumentUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dochub_document_uploads_total",
		Help: "Total number of document upload requests.",
	}, []string{"status"})

	// ChunksIndexed 已写入向量库的分块总数
	ChunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dochub_chunks_indexed_total",
		Help: "Total number of chunks written to the vector store.",
	})

	// Queries 问答请求计数，label区分成功与失败
	Queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dochub_queries_total",
		Help: "Total number of answer queries.",
	}, []string{"status"})

	// QueryDuration 问答端到端耗时
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dochub_query_duration_seconds",
		Help:    "End to end latency of answer queries.",
		Buckets: prometheus.DefBuckets,
	})

	// QueryCacheHits 问答缓存命中计数
	QueryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dochub_query_cache_hits_total",
		Help: "Total number of answer cache hits.",
	})
)
