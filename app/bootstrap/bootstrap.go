package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dochub/backend-go/app/controllers"
	"github.com/dochub/backend-go/internal/auth"
	"github.com/dochub/backend-go/internal/config"
	"github.com/dochub/backend-go/internal/knowledge"
	"github.com/dochub/backend-go/internal/logger"
	"github.com/dochub/backend-go/internal/services"
	"github.com/dochub/backend-go/internal/storage"
)

// App 持有需要在退出时释放的资源
type App struct {
	redisClient *redis.Client
}

// Init 装配整个应用：配置、日志、认证、知识库管线与服务单例
func Init() (*App, error) {
	// .env可选，容器环境通常直接注入环境变量
	_ = godotenv.Load()

	if err := config.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.AppConfig

	if err := logger.InitLogger(); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 认证
	userRepo, err := auth.NewMemoryUserRepository(userSeeds(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer,
		time.Duration(cfg.JWT.ExpiresMinutes)*time.Minute)
	auth.Configure(jwtService, userRepo)

	// 知识库管线
	tokenizer, err := knowledge.NewTiktokenTokenizer()
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	chunker := knowledge.NewChunker(tokenizer, cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)

	embedder := knowledge.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL,
		cfg.OpenAI.EmbeddingModel, cfg.Knowledge.EmbedBatchSize)
	completion := knowledge.NewOpenAICompletion(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL,
		cfg.OpenAI.ChatModel, float32(cfg.OpenAI.Temperature), cfg.OpenAI.MaxTokens)

	store, err := knowledge.NewMilvusVectorStore(knowledge.MilvusOptions{
		Address:    cfg.Milvus.Address,
		Username:   cfg.Milvus.Username,
		Password:   cfg.Milvus.Password,
		Database:   cfg.Milvus.Database,
		VectorSize: cfg.Milvus.VectorSize,
		Distance:   cfg.Milvus.Distance,
		UseTLS:     cfg.Milvus.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect milvus: %w", err)
	}

	retriever := knowledge.NewRetriever(store, cfg.Knowledge.SearchLimit)
	assembler := knowledge.NewAssembler(completion, knowledge.SuperscriptParser{}, cfg.Knowledge.RelevanceFloor)

	app := &App{}

	// 答案缓存可选
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, answer cache disabled", zap.Error(err))
			redisClient = nil
		}
		cancel()
		app.redisClient = redisClient
	}

	// 原始文件归档可选
	var archive storage.ObjectStore
	if cfg.Storage.Enabled {
		minioStore, err := storage.NewMinIOStore(storage.MinIOOptions{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Warn("minio unreachable, raw file archive disabled", zap.Error(err))
		} else {
			archive = minioStore
		}
	}

	services.Configure(
		services.NewDocumentService(store, chunker, embedder, archive),
		services.NewQueryService(embedder, retriever, assembler, redisClient,
			time.Duration(cfg.Redis.TTL)*time.Second,
			time.Duration(cfg.Knowledge.QueryTimeout)*time.Second),
		services.NewIndexService(store),
	)

	controllers.RegisterHealthProbe("milvus", store.Ready)
	controllers.RegisterHealthProbe("embedding", embedder.Ready)
	controllers.RegisterHealthProbe("completion", completion.Ready)

	logger.Info("application bootstrapped",
		zap.String("env", cfg.Server.Env),
		zap.String("milvus", cfg.Milvus.Address),
		zap.Bool("cache", redisClient != nil),
		zap.Bool("archive", archive != nil))
	return app, nil
}

// Shutdown 释放连接资源
func (a *App) Shutdown() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	logger.Sync()
}

func userSeeds(cfg *config.Config) []auth.UserSeed {
	seeds := make([]auth.UserSeed, 0, len(cfg.Users))
	for _, user := range cfg.Users {
		seeds = append(seeds, auth.UserSeed{
			Username:   user.Username,
			Password:   user.Password,
			Roles:      user.Roles,
			Categories: user.Categories,
		})
	}
	return seeds
}
