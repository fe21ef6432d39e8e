package importer

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"FreeFM/model"

	"golang.org/x/sync/errgroup"
)

// maxMediaBytes 单个媒体文件的内存缓冲上限
const maxMediaBytes = 256 << 20

// ObjectUploader 是媒体迁移引擎对对象存储的最小依赖
type ObjectUploader interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string, metadata map[string]string) (string, error)
}

// MediaTransfer 是一次成功迁移的产出：新地址与迁移前原始地址
// 原始地址必须随记录持久化，用于审计与安全重跑
type MediaTransfer struct {
	AudioURL         string
	Artwork          string
	OriginalAudioURL string
	OriginalArtwork  string
}

// TransferEngine 把第三方URL上的音频与封面搬运到自有对象存储
//
// 引擎本身总是执行被要求的迁移；“已迁移则跳过”的判断属于调用方
// （编排器/迁移驱动），不在这里做
type TransferEngine struct {
	httpClient     *http.Client
	store          ObjectUploader
	audioTimeout   time.Duration
	artworkTimeout time.Duration
	concurrency    int
}

// NewTransferEngine 创建媒体迁移引擎
func NewTransferEngine(store ObjectUploader, audioTimeout, artworkTimeout time.Duration, concurrency int) *TransferEngine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &TransferEngine{
		// 不设全局超时，每次下载有独立的context超时
		httpClient:     &http.Client{},
		store:          store,
		audioTimeout:   audioTimeout,
		artworkTimeout: artworkTimeout,
		concurrency:    concurrency,
	}
}

// TransferTrackMedia 迁移单条曲目的媒体
// 音频失败即整体失败；封面失败非致命，保留原封面地址并记录日志
func (e *TransferEngine) TransferTrackMedia(ctx context.Context, id, audioURL, artworkURL string) (*MediaTransfer, error) {
	// 音频：下载到内存，失败直接放弃本曲目
	audioData, err := e.download(ctx, audioURL, e.audioTimeout)
	if err != nil {
		return nil, fmt.Errorf("音频下载失败: %w", err)
	}

	audioObject := fmt.Sprintf("tracks/audio/%s.mp3", id)
	newAudioURL, err := e.store.Upload(ctx, audioObject, audioData, "audio/mpeg", map[string]string{"track-id": id})
	if err != nil {
		return nil, fmt.Errorf("音频上传失败: %w", err)
	}

	transfer := &MediaTransfer{
		AudioURL:         newAudioURL,
		Artwork:          artworkURL,
		OriginalAudioURL: audioURL,
		OriginalArtwork:  artworkURL,
	}

	// 封面：独立尝试，失败只记日志。占位封面本来就在自家静态资源上，不搬
	if artworkURL != "" && artworkURL != model.PlaceholderArtwork {
		artData, err := e.download(ctx, artworkURL, e.artworkTimeout)
		if err != nil {
			log.Printf("[TransferTrackMedia] 封面迁移失败，保留原地址 (ID: %s): %v", id, err)
			return transfer, nil
		}

		artObject := fmt.Sprintf("tracks/artwork/%s.jpg", id)
		newArtwork, err := e.store.Upload(ctx, artObject, artData, "image/jpeg", map[string]string{"track-id": id})
		if err != nil {
			log.Printf("[TransferTrackMedia] 封面上传失败，保留原地址 (ID: %s): %v", id, err)
			return transfer, nil
		}
		transfer.Artwork = newArtwork
	}

	return transfer, nil
}

// TransferBatch 在并发上限内迁移一批曲目，就地改写成功曲目的URL字段
// 迁移失败不丢弃记录：保留原始远端地址照常入库，返回失败的ID列表
func (e *TransferEngine) TransferBatch(ctx context.Context, tracks []*model.TrackRecord) (migrated int, failed []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	results := make([]bool, len(tracks))
	for i, track := range tracks {
		g.Go(func() error {
			transfer, err := e.TransferTrackMedia(gctx, track.ID, track.AudioURL, track.Artwork)
			if err != nil {
				log.Printf("[TransferBatch] 媒体迁移失败，记录保留原地址 (ID: %s): %v", track.ID, err)
				return nil // 单曲失败不中断批次
			}

			track.AudioURL = transfer.AudioURL
			track.Artwork = transfer.Artwork
			track.OriginalAudioURL = transfer.OriginalAudioURL
			track.OriginalArtwork = transfer.OriginalArtwork
			results[i] = true
			return nil
		})
	}

	// 所有任务把错误消化为日志，Wait不会返回错误
	_ = g.Wait()

	for i, ok := range results {
		if ok {
			migrated++
		} else {
			failed = append(failed, tracks[i].ID)
		}
	}
	return migrated, failed
}

// download 在独立超时内把一个URL下载到内存
func (e *TransferEngine) download(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("下载返回错误状态码: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return data, nil
}
