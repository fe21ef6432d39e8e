package importer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"FreeFM/core/source"
	"FreeFM/logger"
	"FreeFM/model"
	"FreeFM/repository"

	"github.com/google/uuid"
)

// Orchestrator 串起一轮完整导入：并发采集 → 规范化校验 → 去重 →
// 媒体迁移 → 批量写入 → 汇总报告
type Orchestrator struct {
	registry *source.Registry
	cursors  repository.CursorRepository
	dedup    *DedupChecker
	media    *TransferEngine
	writer   *BatchWriter
	dryRun   bool
}

// NewOrchestrator 创建导入编排器
func NewOrchestrator(
	registry *source.Registry,
	cursors repository.CursorRepository,
	dedup *DedupChecker,
	media *TransferEngine,
	writer *BatchWriter,
	dryRun bool,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		cursors:  cursors,
		dedup:    dedup,
		media:    media,
		writer:   writer,
		dryRun:   dryRun,
	}
}

// sourceOutcome 单个源的采集结果与推进后的游标
type sourceOutcome struct {
	adapter    source.Adapter
	result     *model.SourceResult
	nextCursor json.RawMessage
	fetchErr   error
}

// Run 执行一轮导入，返回每个源的统计信息
func (o *Orchestrator) Run(ctx context.Context) ([]model.ImportStats, error) {
	runID := uuid.NewString()
	started := time.Now()
	logger.Info("导入开始",
		logger.String("runId", runID),
		logger.Bool("dryRun", o.dryRun))

	// (a) 并发采集全部源，单个源失败不影响其他源
	outcomes := o.fetchAll(ctx)

	// (b) 规范化 + 校验，(c) 全池去重
	statsList := make([]model.ImportStats, len(outcomes))
	type sourced struct {
		record model.TrackRecord
		stats  *model.ImportStats
	}
	candidates := make([]sourced, 0)

	for i := range outcomes {
		oc := &outcomes[i]
		sp := &statsList[i]
		sp.Source = oc.adapter.Name()

		if oc.fetchErr != nil {
			// 源级失败与带错采集同样处理：记录并继续
			logger.Error("源采集失败",
				logger.String("runId", runID),
				logger.String("source", oc.adapter.Name()),
				logger.ErrorField(oc.fetchErr))
			sp.Errors++
			continue
		}

		sp.Fetched = len(oc.result.Tracks)
		sp.Errors = len(oc.result.Errors)
		if len(oc.result.Errors) > 0 {
			logger.Warn("源采集伴随非致命错误",
				logger.String("runId", runID),
				logger.String("source", oc.adapter.Name()),
				logger.Strings("errors", oc.result.Errors))
		}

		for _, raw := range oc.result.Tracks {
			rec := Sanitize(raw)
			if !Validate(rec) {
				sp.Errors++
				continue
			}
			candidates = append(candidates, sourced{record: rec, stats: sp})
		}
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.record.ID)
	}

	existing, err := o.dedup.ExistingIDs(ctx, ids)
	if err != nil {
		// 去重失败属于运行级失败：无法区分新旧，宁可中止也不重复写入
		return statsList, err
	}

	newRecords := make([]model.TrackRecord, 0, len(candidates))
	newStats := make([]*model.ImportStats, 0, len(candidates))
	writtenIDs := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := existing[c.record.ID]; dup {
			c.stats.Duplicates++
			continue
		}
		// 同轮运行内多个源撞出同一ID时只保留第一条
		if _, dup := writtenIDs[c.record.ID]; dup {
			c.stats.Duplicates++
			continue
		}
		writtenIDs[c.record.ID] = struct{}{}
		c.stats.New++
		newRecords = append(newRecords, c.record)
		newStats = append(newStats, c.stats)
	}

	if o.dryRun {
		// 干跑：只报告将要发生的动作，不迁移媒体、不写库、不动游标
		for i := range newRecords {
			logger.Info("干跑：将写入新记录",
				logger.String("runId", runID),
				logger.String("id", newRecords[i].ID),
				logger.String("title", newRecords[i].Title),
				logger.String("source", newStats[i].Source))
		}
		o.logSummary(runID, statsList, time.Since(started))
		return statsList, nil
	}

	// (d) 媒体迁移：未迁移的新记录在并发上限内搬运，失败保留原地址照常入库
	toMigrate := make([]*model.TrackRecord, 0, len(newRecords))
	for i := range newRecords {
		if !newRecords[i].Migrated() {
			toMigrate = append(toMigrate, &newRecords[i])
		}
	}
	migrated, failed := o.media.TransferBatch(ctx, toMigrate)
	if len(failed) > 0 {
		logger.Warn("部分媒体迁移失败，相关记录保留原始地址",
			logger.String("runId", runID),
			logger.Int("migrated", migrated),
			logger.Strings("failedIds", failed))
	}

	// (e) 批量写入
	if err := o.writer.WriteNew(ctx, newRecords); err != nil {
		return statsList, err
	}

	// 游标落盘：保存失败只告警，下一轮从旧游标重来最多重复抓取
	for i := range outcomes {
		oc := &outcomes[i]
		if oc.fetchErr != nil || len(oc.nextCursor) == 0 {
			continue
		}
		if err := o.cursors.Save(oc.adapter.Name(), string(oc.nextCursor)); err != nil {
			logger.Warn("游标保存失败，下一轮将从旧游标继续",
				logger.String("runId", runID),
				logger.String("source", oc.adapter.Name()),
				logger.ErrorField(err))
		}
	}

	// (f) 汇总
	o.logSummary(runID, statsList, time.Since(started))
	return statsList, nil
}

// fetchAll 并发调用全部源适配器，各自加载游标、互不影响
func (o *Orchestrator) fetchAll(ctx context.Context) []sourceOutcome {
	adapters := o.registry.All()
	outcomes := make([]sourceOutcome, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var cursor json.RawMessage
			payload, found, err := o.cursors.Load(adapter.Name())
			if err != nil {
				// 游标加载失败回退到初始游标，不让本源失败
				logger.Warn("游标加载失败，从初始游标开始",
					logger.String("source", adapter.Name()),
					logger.ErrorField(err))
			} else if found {
				cursor = json.RawMessage(payload)
			}

			result, next, err := adapter.Fetch(ctx, cursor)
			outcomes[i] = sourceOutcome{
				adapter:    adapter,
				result:     result,
				nextCursor: next,
				fetchErr:   err,
			}
		}()
	}
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) logSummary(runID string, statsList []model.ImportStats, elapsed time.Duration) {
	for _, s := range statsList {
		logger.Info("源导入汇总",
			logger.String("runId", runID),
			logger.String("source", s.Source),
			logger.Int("fetched", s.Fetched),
			logger.Int("new", s.New),
			logger.Int("duplicates", s.Duplicates),
			logger.Int("errors", s.Errors))
	}
	logger.Info("导入结束",
		logger.String("runId", runID),
		logger.Duration("elapsed", elapsed))
}
