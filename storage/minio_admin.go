package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ListObjects 列出指定前缀下的所有对象
func (c *Client) ListObjects(prefix string) error {
	ctx := context.Background()

	fmt.Printf("存储桶: %s, 前缀: %q\n", c.bucketName, prefix)

	objectCh := c.client.ListObjects(ctx, c.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var count int64
	for object := range objectCh {
		if object.Err != nil {
			log.Printf("列出对象时出错: %v", object.Err)
			continue
		}
		fmt.Printf("文件名: %s, 大小: %.2f MB, 最后修改时间: %s\n",
			object.Key, float64(object.Size)/1024/1024, object.LastModified.Format(time.RFC3339))
		count++
	}

	fmt.Printf("共 %d 个对象\n", count)
	return nil
}

// GetBucketStats 统计指定前缀下的对象数量与总大小
func (c *Client) GetBucketStats(prefix string) (*BucketStats, error) {
	ctx := context.Background()

	stats := &BucketStats{}
	objectCh := c.client.ListObjects(ctx, c.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("统计对象失败: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
	}

	return stats, nil
}

// PrintBucketStats 打印存储桶统计信息
func (c *Client) PrintBucketStats(prefix string) error {
	stats, err := c.GetBucketStats(prefix)
	if err != nil {
		return err
	}

	fmt.Printf("存储桶信息:\n")
	fmt.Printf("名称: %s\n", c.bucketName)
	fmt.Printf("对象数量: %d\n", stats.TotalObjects)
	fmt.Printf("总大小: %.2f MB\n", float64(stats.TotalSize)/1024/1024)
	if !stats.LastModified.IsZero() {
		fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
	}
	return nil
}

// DeletePrefix 删除指定前缀下的所有对象，用于清理导入失败残留的媒体文件
func (c *Client) DeletePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("删除操作必须指定前缀")
	}

	ctx := context.Background()
	objectCh := c.client.ListObjects(ctx, c.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var deleted int64
	for object := range objectCh {
		if object.Err != nil {
			log.Printf("列出对象时出错: %v", object.Err)
			continue
		}
		if err := c.client.RemoveObject(ctx, c.bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("删除对象失败 %s: %v", object.Key, err)
			continue
		}
		deleted++
	}

	fmt.Printf("共删除 %d 个对象 (前缀: %s)\n", deleted, prefix)
	return nil
}
