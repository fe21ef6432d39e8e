package importer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// DedupChunkSize 是单次存在性查询的键数上限，受后端单查询条数限制约束
const DedupChunkSize = 100

// existsTTL 正向缓存保留时长；目录记录一经写入永不删除，正向命中永远安全
const existsTTL = 24 * time.Hour

// ExistenceLookup 是去重检查对目录库的最小依赖
type ExistenceLookup interface {
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// DedupChecker 判定候选ID集合中哪些已存在于目录库
// cache 可以为 nil；Redis异常时静默降级为纯数据库查询
type DedupChecker struct {
	repo  ExistenceLookup
	cache *redis.Client
}

// NewDedupChecker 创建去重检查器
func NewDedupChecker(repo ExistenceLookup, cache *redis.Client) *DedupChecker {
	return &DedupChecker{repo: repo, cache: cache}
}

// ExistingIDs 返回已存在于目录库中的ID子集
// 按 DedupChunkSize 分块顺序查询并合并结果；任何一块失败即中止剩余分块，
// 由调用方保守处理（宁可错判为已存在，绝不把已存在判为新记录）
func (c *DedupChecker) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	// 去掉输入中的重复ID，保持顺序
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	// 先查正向缓存，命中的无需再查库
	remaining := unique
	if c.cache != nil {
		remaining = c.filterCached(ctx, unique, existing)
	}

	for start := 0; start < len(remaining); start += DedupChunkSize {
		end := start + DedupChunkSize
		if end > len(remaining) {
			end = len(remaining)
		}

		found, err := c.repo.ExistingIDs(ctx, remaining[start:end])
		if err != nil {
			return nil, fmt.Errorf("存在性查询失败 (分块 %d-%d): %w", start, end, err)
		}

		for _, id := range found {
			existing[id] = struct{}{}
		}
		c.cacheExisting(ctx, found)
	}

	return existing, nil
}

// filterCached 把缓存命中的ID并入结果集，返回仍需查库的ID
func (c *DedupChecker) filterCached(ctx context.Context, ids []string, existing map[string]struct{}) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = existsKey(id)
	}

	vals, err := c.cache.MGet(ctx, keys...).Result()
	if err != nil {
		// 缓存故障只降速不降级正确性
		log.Printf("[DedupChecker] 缓存查询失败，降级为纯数据库查询: %v", err)
		return ids
	}

	remaining := make([]string, 0, len(ids))
	for i, v := range vals {
		if v != nil {
			existing[ids[i]] = struct{}{}
		} else {
			remaining = append(remaining, ids[i])
		}
	}
	return remaining
}

// cacheExisting 把确认存在的ID写入正向缓存
func (c *DedupChecker) cacheExisting(ctx context.Context, ids []string) {
	if c.cache == nil || len(ids) == 0 {
		return
	}
	pipe := c.cache.Pipeline()
	for _, id := range ids {
		pipe.Set(ctx, existsKey(id), "1", existsTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[DedupChecker] 缓存写入失败: %v", err)
	}
}

func existsKey(id string) string {
	return "import:exists:" + id
}
