package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"FreeFM/core/genre"
	"FreeFM/model"
)

// Internet Archive 轮换表：合集 × 排序，跨轮推进页码
var (
	archiveCollections = []string{"opensource_audio", "netlabels", "audio_music"}
	archiveSorts       = []string{"downloads desc", "publicdate desc", "week desc"}
)

const (
	archivePageSize    = 20
	archiveMaxPages    = 50 // 单个(合集,排序)组合最多翻页深度
	archiveMaxPerItem  = 5  // 单个条目最多收录的音频文件数
	archiveSearchPath  = "/advancedsearch.php"
	archiveMetaPath    = "/metadata/"
	archiveDownload    = "https://archive.org/download"
	archiveItemArtwork = "https://archive.org/services/img"
)

// archiveCursor 是Internet Archive源的轮换游标
type archiveCursor struct {
	CollectionIndex int    `json:"collectionIndex"`
	SortIndex       int    `json:"sortIndex"`
	Page            int    `json:"page"`
	LastRun         string `json:"lastRun,omitempty"`
}

// ArchiveAdapter 对接 Internet Archive 开放音频库，无需凭证
type ArchiveAdapter struct {
	baseURL     string
	downloadURL string
	artworkURL  string
	httpClient  *http.Client
	runCap      int
	delay       time.Duration
}

// NewArchiveAdapter 创建Internet Archive采集适配器
func NewArchiveAdapter(runCap int, delay time.Duration) *ArchiveAdapter {
	return &ArchiveAdapter{
		baseURL:     "https://archive.org",
		downloadURL: archiveDownload,
		artworkURL:  archiveItemArtwork,
		httpClient: &http.Client{
			Timeout: 45 * time.Second,
		},
		runCap: runCap,
		delay:  delay,
	}
}

// Name returns the source identifier used for ids, cursors and stats.
func (a *ArchiveAdapter) Name() string {
	return "ia"
}

// SetBaseURL 设置API基础URL（测试用），下载与封面地址一并切换
func (a *ArchiveAdapter) SetBaseURL(base string) {
	a.baseURL = base
	a.downloadURL = base + "/download"
	a.artworkURL = base + "/services/img"
}

// Fetch 按当前游标采集一轮Internet Archive条目
func (a *ArchiveAdapter) Fetch(ctx context.Context, rawCursor json.RawMessage) (*model.SourceResult, json.RawMessage, error) {
	result := &model.SourceResult{Source: a.Name()}

	cursor := archiveCursor{Page: 1}
	if len(rawCursor) > 0 {
		if err := json.Unmarshal(rawCursor, &cursor); err != nil {
			log.Printf("[ArchiveFetch] 游标解析失败，使用初始游标: %v", err)
			cursor = archiveCursor{Page: 1}
		}
	}
	cursor.CollectionIndex = cursor.CollectionIndex % len(archiveCollections)
	cursor.SortIndex = cursor.SortIndex % len(archiveSorts)
	if cursor.Page < 1 {
		cursor.Page = 1
	}

	collection := archiveCollections[cursor.CollectionIndex]
	sort := archiveSorts[cursor.SortIndex]
	log.Printf("[ArchiveFetch] 开始采集 (合集: %s, 排序: %s, 页码: %d)", collection, sort, cursor.Page)

	identifiers, err := a.searchIdentifiers(ctx, collection, sort, cursor.Page)
	if err != nil {
		// 搜索端点整体失败：本轮空手而归，游标原样保留，下轮重试同一页
		result.AddError(fmt.Sprintf("archive search failed (collection=%s page=%d): %v", collection, cursor.Page, err))
		log.Printf("[ArchiveFetch] 搜索失败: %v", err)
		return result, rawCursor, nil
	}

	fetched := 0
	for _, identifier := range identifiers {
		if fetched >= a.runCap {
			break
		}

		tracks, err := a.fetchItemTracks(ctx, identifier)
		if err != nil {
			// 单条目失败记入错误列表，继续处理后续条目
			result.AddError(fmt.Sprintf("archive item %s: %v", identifier, err))
			continue
		}
		// 条目经格式过滤后没有可用音频文件时静默跳过
		if len(tracks) == 0 {
			continue
		}

		if len(tracks) > archiveMaxPerItem {
			tracks = tracks[:archiveMaxPerItem]
		}
		result.Tracks = append(result.Tracks, tracks...)
		fetched += len(tracks)

		time.Sleep(a.delay)
	}

	// 推进轮换：页码耗尽后换排序，排序耗尽后换合集
	cursor.Page++
	if cursor.Page > archiveMaxPages || len(identifiers) == 0 {
		cursor.Page = 1
		cursor.SortIndex++
		if cursor.SortIndex >= len(archiveSorts) {
			cursor.SortIndex = 0
			cursor.CollectionIndex = (cursor.CollectionIndex + 1) % len(archiveCollections)
		}
	}
	cursor.LastRun = time.Now().UTC().Format(time.RFC3339)

	nextCursor, err := json.Marshal(cursor)
	if err != nil {
		return result, rawCursor, fmt.Errorf("序列化游标失败: %w", err)
	}

	log.Printf("[ArchiveFetch] 采集完成 (曲目: %d, 错误: %d)", len(result.Tracks), len(result.Errors))
	return result, nextCursor, nil
}

// searchIdentifiers 搜索一页音频条目的标识符
func (a *ArchiveAdapter) searchIdentifiers(ctx context.Context, collection, sort string, page int) ([]string, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("collection:(%s) AND mediatype:(audio)", collection))
	params.Add("fl[]", "identifier")
	params.Add("sort[]", sort)
	params.Set("rows", fmt.Sprintf("%d", archivePageSize))
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("output", "json")

	reqURL := fmt.Sprintf("%s%s?%s", a.baseURL, archiveSearchPath, params.Encode())

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

	var payload struct {
		Response struct {
			NumFound int `json:"numFound"`
			Docs     []struct {
				Identifier string `json:"identifier"`
			} `json:"docs"`
		} `json:"response"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	identifiers := make([]string, 0, len(payload.Response.Docs))
	for _, doc := range payload.Response.Docs {
		if doc.Identifier != "" {
			identifiers = append(identifiers, doc.Identifier)
		}
	}
	return identifiers, nil
}

// fetchItemTracks 拉取单个条目的文件清单并映射为规范记录
func (a *ArchiveAdapter) fetchItemTracks(ctx context.Context, identifier string) ([]model.TrackRecord, error) {
	reqURL := fmt.Sprintf("%s%s%s", a.baseURL, archiveMetaPath, url.PathEscape(identifier))

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

	// 条目元数据字段形态不稳定（creator/subject 可能是字符串或数组），
	// 全部在本适配器内消化
	var payload struct {
		Metadata struct {
			Title   flexString `json:"title"`
			Creator flexString `json:"creator"`
			Subject flexString `json:"subject"`
		} `json:"metadata"`
		Files []struct {
			Name   string `json:"name"`
			Format string `json:"format"`
			Title  string `json:"title"`
			Length string `json:"length"`
		} `json:"files"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	itemTitle := payload.Metadata.Title.First()
	creator := payload.Metadata.Creator.First()
	itemGenre := genre.FromTags(payload.Metadata.Subject.Values())
	artwork := fmt.Sprintf("%s/%s", a.artworkURL, url.PathEscape(identifier))

	tracks := make([]model.TrackRecord, 0)
	for _, file := range payload.Files {
		// 只收原始MP3，跳过衍生转码以外的格式
		if !strings.Contains(strings.ToUpper(file.Format), "MP3") {
			continue
		}

		title := file.Title
		if title == "" {
			title = itemTitle
		}
		if title == "" {
			title = fileStem(file.Name)
		}

		id := fmt.Sprintf("ia-%s-%s", identifier, sanitizeIDPart(fileStem(file.Name)))
		if len(id) > model.MaxTrackIDLength {
			id = id[:model.MaxTrackIDLength]
		}

		tracks = append(tracks, model.TrackRecord{
			ID:       id,
			Title:    title,
			Artist:   creator,
			Album:    itemTitle,
			AlbumID:  fmt.Sprintf("ia-%s", identifier),
			Duration: parseArchiveLength(file.Length),
			Artwork:  artwork,
			AudioURL: fmt.Sprintf("%s/%s/%s", a.downloadURL, url.PathEscape(identifier), url.PathEscape(file.Name)),
			Genre:    itemGenre,
		})
	}

	return tracks, nil
}

var idPartPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// sanitizeIDPart 把文件名压成可作为记录ID组成部分的安全形式
func sanitizeIDPart(s string) string {
	s = idPartPattern.ReplaceAllString(s, "-")
	return strings.Trim(strings.ToLower(s), "-")
}

// fileStem 去掉文件扩展名
func fileStem(name string) string {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

// parseArchiveLength 解析时长，兼容 "123.45"（秒）与 "mm:ss" 两种写法
func parseArchiveLength(length string) int {
	if length == "" {
		return 0
	}
	if strings.Contains(length, ":") {
		parts := strings.Split(length, ":")
		total := 0
		for _, part := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return 0
			}
			total = total*60 + n
		}
		return total
	}
	f, err := strconv.ParseFloat(length, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// flexString 兼容字符串或字符串数组两种JSON形态
type flexString []string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = flexString{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*f = flexString(many)
		return nil
	}
	// 其他形态（数字、对象）不视为错误，按缺失处理
	*f = nil
	return nil
}

// First 返回首个值，空时返回空串
func (f flexString) First() string {
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Values 返回全部值
func (f flexString) Values() []string {
	return []string(f)
}
