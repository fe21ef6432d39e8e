package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"FreeFM/config"
	"FreeFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client 封装了 MinIO 客户端和媒体对象的公网地址构造
type Client struct {
	client        *minio.Client
	bucketName    string
	publicBaseURL string
}

var defaultClient *Client

// InitMinio 初始化 MinIO 客户端并确保存储桶存在
func InitMinio(cfg *config.Config) error {
	logger.Info("正在连接 MinIO 服务器",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 检查存储桶是否存在，不存在则创建
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("成功创建存储桶", logger.String("bucket", cfg.MinioBucket))
	}

	defaultClient = &Client{
		client:        client,
		bucketName:    cfg.MinioBucket,
		publicBaseURL: PublicBaseURL(cfg),
	}
	logger.Info("MinIO 客户端初始化成功")
	return nil
}

// GetClient 获取全局 MinIO 客户端实例
func GetClient() *Client {
	return defaultClient
}

// PublicBaseURL 计算媒体对象的公网地址前缀
// 未显式配置时由 endpoint 和 bucket 推导
func PublicBaseURL(cfg *config.Config) string {
	if cfg.MinioPublicBaseURL != "" {
		return cfg.MinioPublicBaseURL
	}
	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
}

// Upload 上传一个对象并返回稳定的公网URL
func (c *Client) Upload(ctx context.Context, objectName string, data []byte, contentType string, metadata map[string]string) (string, error) {
	_, err := c.client.PutObject(ctx, c.bucketName, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: metadata,
		})
	if err != nil {
		return "", fmt.Errorf("上传对象失败 %s: %w", objectName, err)
	}

	return c.PublicURL(objectName), nil
}

// PublicURL 构造对象的公网访问地址
func (c *Client) PublicURL(objectName string) string {
	return fmt.Sprintf("%s/%s", c.publicBaseURL, objectName)
}

// Exists 检查对象是否已存在
func (c *Client) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("检查对象失败 %s: %w", objectName, err)
	}
	return true, nil
}
