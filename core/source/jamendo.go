package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"FreeFM/core/genre"
	"FreeFM/model"
)

// Jamendo 查询轮换表：每轮运行只覆盖一个(标签,排序,偏移)组合，跨轮推进游标
// 反复运行后滑动覆盖远端可分页的全部内容
var (
	jamendoTags = []string{
		"rock", "pop", "electronic", "jazz", "ambient",
		"hiphop", "classical", "folk", "metal", "chillout",
	}
	jamendoOrders = []string{
		"popularity_total", "releasedate_desc", "popularity_month", "downloads_total",
	}
)

const (
	jamendoPageSize  = 20
	jamendoMaxOffset = 200 // 单个(标签,排序)组合最多翻页深度
)

// jamendoCursor 是Jamendo源的轮换游标，整体读取、整体替换，绝不原地共享修改
type jamendoCursor struct {
	TagIndex   int    `json:"tagIndex"`
	OrderIndex int    `json:"orderIndex"`
	Offset     int    `json:"offset"`
	LastRun    string `json:"lastRun,omitempty"`
}

// JamendoAdapter 对接 Jamendo v3.0 开放音乐接口
type JamendoAdapter struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
	runCap     int
	delay      time.Duration
}

// NewJamendoAdapter 创建Jamendo采集适配器
// clientID 为空时适配器注册后会在首次 Fetch 时立即短路报错
func NewJamendoAdapter(clientID string, runCap int, delay time.Duration) *JamendoAdapter {
	return &JamendoAdapter{
		clientID: clientID,
		baseURL:  "https://api.jamendo.com/v3.0",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		runCap: runCap,
		delay:  delay,
	}
}

// Name returns the source identifier used for ids, cursors and stats.
func (a *JamendoAdapter) Name() string {
	return "jamendo"
}

// SetBaseURL 设置API基础URL（测试用）
func (a *JamendoAdapter) SetBaseURL(url string) {
	a.baseURL = url
}

// Fetch 按当前游标采集一轮Jamendo曲目
func (a *JamendoAdapter) Fetch(ctx context.Context, rawCursor json.RawMessage) (*model.SourceResult, json.RawMessage, error) {
	result := &model.SourceResult{Source: a.Name()}

	// 缺少凭证时立即短路，不发出任何请求
	if a.clientID == "" {
		result.AddError("missing JAMENDO_CLIENT_ID, source skipped")
		log.Printf("[JamendoFetch] 缺少client_id，跳过本源")
		return result, rawCursor, nil
	}

	cursor := jamendoCursor{}
	if len(rawCursor) > 0 {
		if err := json.Unmarshal(rawCursor, &cursor); err != nil {
			// 游标损坏时回退到初始轮换，而不是让本轮运行失败
			log.Printf("[JamendoFetch] 游标解析失败，使用初始游标: %v", err)
			cursor = jamendoCursor{}
		}
	}
	cursor.TagIndex = cursor.TagIndex % len(jamendoTags)
	cursor.OrderIndex = cursor.OrderIndex % len(jamendoOrders)

	tag := jamendoTags[cursor.TagIndex]
	order := jamendoOrders[cursor.OrderIndex]
	log.Printf("[JamendoFetch] 开始采集 (标签: %s, 排序: %s, 偏移: %d)", tag, order, cursor.Offset)

	fetched := 0
	for fetched < a.runCap {
		tracks, err := a.fetchPage(ctx, tag, order, cursor.Offset)
		if err != nil {
			// 源级失败：记录后返回已取得的部分结果
			result.AddError(fmt.Sprintf("jamendo page fetch failed (tag=%s offset=%d): %v", tag, cursor.Offset, err))
			break
		}
		if len(tracks) == 0 {
			// 该组合已翻到尽头，提前推进轮换
			cursor.Offset = jamendoMaxOffset
			break
		}

		result.Tracks = append(result.Tracks, tracks...)
		fetched += len(tracks)
		cursor.Offset += jamendoPageSize

		if cursor.Offset >= jamendoMaxOffset || fetched >= a.runCap {
			break
		}

		// 固定间隔，礼貌对待第三方限流
		time.Sleep(a.delay)
	}

	// 推进轮换：偏移耗尽后换排序，排序耗尽后换标签
	if cursor.Offset >= jamendoMaxOffset {
		cursor.Offset = 0
		cursor.OrderIndex++
		if cursor.OrderIndex >= len(jamendoOrders) {
			cursor.OrderIndex = 0
			cursor.TagIndex = (cursor.TagIndex + 1) % len(jamendoTags)
		}
	}
	cursor.LastRun = time.Now().UTC().Format(time.RFC3339)

	nextCursor, err := json.Marshal(cursor)
	if err != nil {
		return result, rawCursor, fmt.Errorf("序列化游标失败: %w", err)
	}

	log.Printf("[JamendoFetch] 采集完成 (曲目: %d, 错误: %d)", len(result.Tracks), len(result.Errors))
	return result, nextCursor, nil
}

// fetchPage 拉取一页曲目列表并映射为规范记录
func (a *JamendoAdapter) fetchPage(ctx context.Context, tag, order string, offset int) ([]model.TrackRecord, error) {
	params := url.Values{}
	params.Set("client_id", a.clientID)
	params.Set("format", "json")
	params.Set("limit", fmt.Sprintf("%d", jamendoPageSize))
	params.Set("offset", fmt.Sprintf("%d", offset))
	params.Set("fuzzytags", tag)
	params.Set("order", order)
	params.Set("include", "musicinfo")
	params.Set("audioformat", "mp32")

	reqURL := fmt.Sprintf("%s/tracks/?%s", a.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API返回错误状态码: %d", resp.StatusCode)
	}

	// Jamendo响应结构只在本适配器内可见，不允许泄漏到管道下游
	var payload struct {
		Headers struct {
			Status  string `json:"status"`
			Code    int    `json:"code"`
			Results int    `json:"results_count"`
		} `json:"headers"`
		Results []struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			ArtistID   string `json:"artist_id"`
			ArtistName string `json:"artist_name"`
			AlbumID    string `json:"album_id"`
			AlbumName  string `json:"album_name"`
			Duration   int    `json:"duration"`
			Image      string `json:"image"`
			Audio      string `json:"audio"`
			License    string `json:"license_ccurl"`
			MusicInfo  struct {
				Tags struct {
					Genres []string `json:"genres"`
					VarTag []string `json:"vartags"`
				} `json:"tags"`
			} `json:"musicinfo"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if payload.Headers.Status != "" && payload.Headers.Status != "success" {
		return nil, fmt.Errorf("API返回错误: %s (code: %d)", payload.Headers.Status, payload.Headers.Code)
	}

	tracks := make([]model.TrackRecord, 0, len(payload.Results))
	for _, item := range payload.Results {
		// 音频地址缺失的条目静默跳过，不算错误
		if item.Audio == "" {
			continue
		}

		license := model.DefaultLicense
		if item.License != "" {
			license = item.License
		}

		tags := append([]string{}, item.MusicInfo.Tags.Genres...)
		tags = append(tags, item.MusicInfo.Tags.VarTag...)
		tags = append(tags, tag)

		tracks = append(tracks, model.TrackRecord{
			ID:       fmt.Sprintf("jamendo-%s", item.ID),
			Title:    item.Name,
			Artist:   item.ArtistName,
			ArtistID: item.ArtistID,
			Album:    item.AlbumName,
			AlbumID:  item.AlbumID,
			Duration: item.Duration,
			Artwork:  item.Image,
			AudioURL: item.Audio,
			Genre:    genre.FromTags(tags),
			License:  license,
		})
	}

	return tracks, nil
}
