package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	OpenAI    OpenAIConfig
	Milvus    MilvusConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Knowledge KnowledgeConfig
	Users     []UserSeed
}

type ServerConfig struct {
	Port string
	Env  string
}

type JWTConfig struct {
	Secret         string
	Issuer         string
	ExpiresMinutes int
}

// OpenAIConfig OpenAI兼容服务配置（Azure部署时BaseURL指向Azure endpoint）
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	MaxTokens      int
	Temperature    float64
}

type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Database   string
	TLS        bool
	VectorSize int
	Distance   string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      int // 查询答案缓存TTL（秒）
}

// StorageConfig 原始文件归档存储（MinIO）
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type KnowledgeConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	SearchLimit    int
	RelevanceFloor float64
	QueryTimeout   int // 整个查询管线的超时（秒），0表示不限制
}

// UserSeed 内置用户（演示用，生产环境应替换为真实身份源）
type UserSeed struct {
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	Roles      []string `mapstructure:"roles"`
	Categories []string `mapstructure:"categories"`
}

var AppConfig *Config

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.issuer", "dochub-rag")
	viper.SetDefault("jwt.expires_minutes", 30)

	viper.SetDefault("openai.base_url", "")
	viper.SetDefault("openai.embedding_model", "text-embedding-ada-002")
	viper.SetDefault("openai.chat_model", "gpt-4")
	viper.SetDefault("openai.max_tokens", 500)
	viper.SetDefault("openai.temperature", 0.7)

	viper.SetDefault("milvus.address", "localhost:19530")
	viper.SetDefault("milvus.database", "default")
	viper.SetDefault("milvus.tls", false)
	viper.SetDefault("milvus.vector_size", 1536)
	viper.SetDefault("milvus.distance", "cosine")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", 300)

	viper.SetDefault("storage.enabled", false)
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.bucket", "rag-documents")
	viper.SetDefault("storage.use_ssl", false)

	viper.SetDefault("knowledge.chunk_size", 500)
	viper.SetDefault("knowledge.chunk_overlap", 50)
	viper.SetDefault("knowledge.embed_batch_size", 50)
	viper.SetDefault("knowledge.search_limit", 10)
	viper.SetDefault("knowledge.relevance_floor", 0.85)
	viper.SetDefault("knowledge.query_timeout", 60)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./conf")
	if err := viper.ReadInConfig(); err != nil {
		// 配置文件可选，环境变量足以启动
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 环境变量覆盖
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if env := os.Getenv("ENV"); env != "" {
		viper.Set("server.env", env)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		viper.Set("jwt.secret", secret)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		viper.Set("openai.api_key", key)
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		viper.Set("openai.base_url", baseURL)
	}
	if model := os.Getenv("OPENAI_EMBEDDING_MODEL"); model != "" {
		viper.Set("openai.embedding_model", model)
	}
	if model := os.Getenv("OPENAI_CHAT_MODEL"); model != "" {
		viper.Set("openai.chat_model", model)
	}
	if addr := os.Getenv("MILVUS_ADDRESS"); addr != "" {
		viper.Set("milvus.address", addr)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		viper.Set("redis.addr", addr)
		viper.Set("redis.enabled", true)
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		viper.Set("storage.endpoint", endpoint)
		viper.Set("storage.enabled", true)
	}
	if key := os.Getenv("MINIO_ACCESS_KEY"); key != "" {
		viper.Set("storage.access_key", key)
	}
	if key := os.Getenv("MINIO_SECRET_KEY"); key != "" {
		viper.Set("storage.secret_key", key)
	}
	if size := os.Getenv("CHUNK_SIZE"); size != "" {
		if v, err := strconv.Atoi(size); err == nil {
			viper.Set("knowledge.chunk_size", v)
		}
	}

	var users []UserSeed
	if err := viper.UnmarshalKey("users", &users); err != nil {
		return fmt.Errorf("failed to parse users seed: %w", err)
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		JWT: JWTConfig{
			Secret:         viper.GetString("jwt.secret"),
			Issuer:         viper.GetString("jwt.issuer"),
			ExpiresMinutes: viper.GetInt("jwt.expires_minutes"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         viper.GetString("openai.api_key"),
			BaseURL:        viper.GetString("openai.base_url"),
			EmbeddingModel: viper.GetString("openai.embedding_model"),
			ChatModel:      viper.GetString("openai.chat_model"),
			MaxTokens:      viper.GetInt("openai.max_tokens"),
			Temperature:    viper.GetFloat64("openai.temperature"),
		},
		Milvus: MilvusConfig{
			Address:    viper.GetString("milvus.address"),
			Username:   viper.GetString("milvus.username"),
			Password:   viper.GetString("milvus.password"),
			Database:   viper.GetString("milvus.database"),
			TLS:        viper.GetBool("milvus.tls"),
			VectorSize: viper.GetInt("milvus.vector_size"),
			Distance:   viper.GetString("milvus.distance"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			TTL:      viper.GetInt("redis.ttl"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("storage.enabled"),
			Endpoint:  viper.GetString("storage.endpoint"),
			AccessKey: viper.GetString("storage.access_key"),
			SecretKey: viper.GetString("storage.secret_key"),
			Bucket:    viper.GetString("storage.bucket"),
			UseSSL:    viper.GetBool("storage.use_ssl"),
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:      viper.GetInt("knowledge.chunk_size"),
			ChunkOverlap:   viper.GetInt("knowledge.chunk_overlap"),
			EmbedBatchSize: viper.GetInt("knowledge.embed_batch_size"),
			SearchLimit:    viper.GetInt("knowledge.search_limit"),
			RelevanceFloor: viper.GetFloat64("knowledge.relevance_floor"),
			QueryTimeout:   viper.GetInt("knowledge.query_timeout"),
		},
		Users: users,
	}

	return nil
}
