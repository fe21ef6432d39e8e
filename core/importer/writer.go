package importer

import (
	"context"
	"fmt"

	"FreeFM/logger"
	"FreeFM/model"

	"gorm.io/gorm"
)

// WriteChunkSize 单次原子批量写入的记录数上限
const WriteChunkSize = 500

// ChunkCommitter 把一个分块作为整体原子提交到目录库
type ChunkCommitter interface {
	CommitChunk(ctx context.Context, tracks []model.TrackRecord) error
}

// BatchWriter 把校验、去重、媒体迁移后的记录分块写入目录库
//
// 一致性边界是分块级：单块内全有或全无，块间无全局回滚——某块失败时
// 已提交的块保持不变，本轮运行中止
type BatchWriter struct {
	committer ChunkCommitter
	chunkSize int
}

// NewBatchWriter 创建批量写入器
func NewBatchWriter(committer ChunkCommitter) *BatchWriter {
	return &BatchWriter{committer: committer, chunkSize: WriteChunkSize}
}

// WriteNew 分块提交全部新记录并逐块汇报进度
func (w *BatchWriter) WriteNew(ctx context.Context, tracks []model.TrackRecord) error {
	total := len(tracks)
	if total == 0 {
		return nil
	}

	written := 0
	for start := 0; start < total; start += w.chunkSize {
		end := start + w.chunkSize
		if end > total {
			end = total
		}

		if err := w.committer.CommitChunk(ctx, tracks[start:end]); err != nil {
			return fmt.Errorf("批量写入失败 (已提交 %d/%d): %w", written, total, err)
		}

		written = end
		logger.Info("批量写入进度",
			logger.Int("written", written),
			logger.Int("total", total))
	}

	return nil
}

// gormCommitter 用GORM事务实现分块原子提交，created_at由数据库赋值
type gormCommitter struct {
	db *gorm.DB
}

// NewGormCommitter 创建基于GORM的分块提交器
func NewGormCommitter(db *gorm.DB) ChunkCommitter {
	return &gormCommitter{db: db}
}

func (c *gormCommitter) CommitChunk(ctx context.Context, tracks []model.TrackRecord) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tracks).Error
	})
}
