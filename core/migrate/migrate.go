package migrate

import (
	"context"
	"strings"
	"time"

	"FreeFM/core/importer"
	"FreeFM/logger"
	"FreeFM/model"
	"FreeFM/repository"
)

// scanPageSize 每次从目录库取出的待扫描记录数
const scanPageSize = 200

// Report 一次迁移扫描的汇总
// FailedIDs 供运维后续跟进；ResumeCursor 是最后扫描到的记录ID，
// 下次运行通过 START_AFTER 从这里继续
type Report struct {
	Scanned           int
	Migrated          int
	SkippedMigrated   int
	SkippedIneligible int
	FailedIDs         []string
	ResumeCursor      string
	Elapsed           time.Duration
}

// Pass 对既有目录做一遍存量媒体迁移：把仍指向第三方URL的音频/封面
// 搬进自有对象存储并回写记录
//
// 单条记录的状态流转：未扫描 → 跳过（已迁移或不符合条件）/ 迁移中 →
// 已迁移 / 失败。失败不阻塞后续记录，整个过程可通过游标续跑
type Pass struct {
	repo repository.TrackRepository
	// engine 总是执行被要求的迁移；是否跳过由本驱动判断
	engine       *importer.TransferEngine
	ownMediaBase string // 自有对象存储的公网地址前缀，用于识别已在自家的媒体
	limit        int    // 0 表示不限量
	startAfter   string
	dryRun       bool
}

// NewPass 创建迁移扫描
func NewPass(repo repository.TrackRepository, engine *importer.TransferEngine, ownMediaBase string, limit int, startAfter string, dryRun bool) *Pass {
	return &Pass{
		repo:         repo,
		engine:       engine,
		ownMediaBase: ownMediaBase,
		limit:        limit,
		startAfter:   startAfter,
		dryRun:       dryRun,
	}
}

// Run 执行迁移扫描
func (p *Pass) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{ResumeCursor: p.startAfter}

	logger.Info("存量媒体迁移开始",
		logger.String("startAfter", p.startAfter),
		logger.Int("limit", p.limit),
		logger.Bool("dryRun", p.dryRun))

	cursor := p.startAfter
	for {
		pageSize := scanPageSize
		if p.limit > 0 {
			left := p.limit - report.Scanned
			if left <= 0 {
				break
			}
			if left < pageSize {
				pageSize = left
			}
		}

		tracks, err := p.repo.ListTracksAfter(ctx, cursor, pageSize)
		if err != nil {
			return report, err
		}
		if len(tracks) == 0 {
			break
		}

		for _, track := range tracks {
			report.Scanned++
			report.ResumeCursor = track.ID
			p.processTrack(ctx, track, report)
		}
		cursor = tracks[len(tracks)-1].ID
	}

	report.Elapsed = time.Since(started)
	logger.Info("存量媒体迁移结束",
		logger.Int("scanned", report.Scanned),
		logger.Int("migrated", report.Migrated),
		logger.Int("skippedMigrated", report.SkippedMigrated),
		logger.Int("skippedIneligible", report.SkippedIneligible),
		logger.Int("failed", len(report.FailedIDs)),
		logger.String("resumeCursor", report.ResumeCursor),
		logger.Duration("elapsed", report.Elapsed))
	if len(report.FailedIDs) > 0 {
		logger.Warn("以下记录迁移失败，需要运维跟进",
			logger.Strings("failedIds", report.FailedIDs))
	}

	return report, nil
}

// processTrack 对单条记录走一遍状态机
func (p *Pass) processTrack(ctx context.Context, track *model.TrackRecord, report *Report) {
	// 已迁移的记录绝不重复搬运，保证迁移幂等
	if track.Migrated() {
		report.SkippedMigrated++
		return
	}
	if !p.eligible(track) {
		report.SkippedIneligible++
		return
	}

	if p.dryRun {
		logger.Info("干跑：将迁移媒体",
			logger.String("id", track.ID),
			logger.String("audioUrl", track.AudioURL))
		report.Migrated++
		return
	}

	transfer, err := p.engine.TransferTrackMedia(ctx, track.ID, track.AudioURL, track.Artwork)
	if err != nil {
		logger.Error("媒体迁移失败",
			logger.String("id", track.ID),
			logger.ErrorField(err))
		report.FailedIDs = append(report.FailedIDs, track.ID)
		return
	}

	err = p.repo.UpdateTrackMedia(ctx, track.ID,
		transfer.AudioURL, transfer.Artwork,
		transfer.OriginalAudioURL, transfer.OriginalArtwork)
	if err != nil {
		logger.Error("迁移结果回写失败",
			logger.String("id", track.ID),
			logger.ErrorField(err))
		report.FailedIDs = append(report.FailedIDs, track.ID)
		return
	}

	report.Migrated++
}

// eligible 判断记录是否需要迁移
func (p *Pass) eligible(track *model.TrackRecord) bool {
	if track.IsLocal {
		return false
	}
	if track.AudioURL == "" || !strings.HasPrefix(track.AudioURL, "http") {
		return false
	}
	// 音频已经在自有存储上的不再搬运
	if p.ownMediaBase != "" && strings.HasPrefix(track.AudioURL, p.ownMediaBase) {
		return false
	}
	return true
}
