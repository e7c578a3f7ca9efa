package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore 原始文件归档
// 只保存上传的原始内容，检索链路不依赖它
type ObjectStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) error
	Ready() bool
}

// MinIOOptions MinIO连接配置
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore 基于MinIO的对象存储归档
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore 创建MinIO归档存储，桶不存在时自动创建
func NewMinIOStore(opts MinIOOptions) (*MinIOStore, error) {
	if opts.Bucket == "" {
		opts.Bucket = "documents"
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := &MinIOStore{client: client, bucket: opts.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return store, nil
}

func (s *MinIOStore) Put(ctx context.Context, objectName string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (s *MinIOStore) Ready() bool {
	if s.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err == nil
}
