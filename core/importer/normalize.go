package importer

import (
	"strings"

	"FreeFM/core/genre"
	"FreeFM/model"
)

// Sanitize 将采集到的不完整记录补齐为规范记录
// 每个可选字段都有文档化的默认值；TitleLower 永远重新派生，绝不信任上游
func Sanitize(partial model.TrackRecord) model.TrackRecord {
	rec := partial

	if rec.Title == "" {
		rec.Title = model.UnknownTitle
	}
	if rec.Artist == "" {
		rec.Artist = model.UnknownArtist
	}
	if rec.ArtistID == "" {
		rec.ArtistID = "unknown-artist"
	}
	if rec.Album == "" {
		rec.Album = model.UnknownAlbum
	}
	if rec.AlbumID == "" {
		rec.AlbumID = "unknown-album"
	}
	if rec.Duration < 0 {
		rec.Duration = 0
	}
	if rec.Artwork == "" {
		rec.Artwork = model.PlaceholderArtwork
	}
	if rec.Genre == "" {
		rec.Genre = genre.Default
	}
	if rec.License == "" {
		rec.License = model.DefaultLicense
	}

	// 导入记录的固定归属，客户端据此识别系统导入内容
	rec.IsLocal = false
	rec.UploadedBy = model.ImportUploadedBy
	rec.UploadedByName = model.ImportUploadedByName

	rec.TitleLower = strings.ToLower(rec.Title)

	return rec
}

// Validate 校验规范记录的结构完整性
// 在 Sanitize 之后、去重之前执行；不合格的记录被丢弃计数，绝不进入下游
func Validate(rec model.TrackRecord) bool {
	if rec.ID == "" || len(rec.ID) > model.MaxTrackIDLength {
		return false
	}
	if rec.Title == "" {
		return false
	}
	if rec.AudioURL == "" || !strings.HasPrefix(rec.AudioURL, "http") {
		return false
	}
	return true
}
