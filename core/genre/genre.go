package genre

import "strings"

// 关键词到规范流派的映射表
// 外部接口返回的是自由文本标签，这里按关键词归一到客户端使用的固定流派集合
var keywordTable = []struct {
	keyword string
	genre   string
}{
	{"rock", "Rock"},
	{"metal", "Metal"},
	{"punk", "Rock"},
	{"pop", "Pop"},
	{"electro", "Electronic"},
	{"electronic", "Electronic"},
	{"techno", "Electronic"},
	{"house", "Electronic"},
	{"trance", "Electronic"},
	{"ambient", "Ambient"},
	{"chill", "Ambient"},
	{"lounge", "Ambient"},
	{"jazz", "Jazz"},
	{"blues", "Blues"},
	{"hiphop", "Hip-Hop"},
	{"hip-hop", "Hip-Hop"},
	{"hip hop", "Hip-Hop"},
	{"rap", "Hip-Hop"},
	{"classical", "Classical"},
	{"orchestra", "Classical"},
	{"piano", "Classical"},
	{"folk", "Folk"},
	{"acoustic", "Folk"},
	{"country", "Country"},
	{"reggae", "Reggae"},
	{"ska", "Reggae"},
	{"latin", "Latin"},
	{"soul", "Soul"},
	{"funk", "Soul"},
	{"soundtrack", "Soundtrack"},
	{"instrumental", "Instrumental"},
	{"experimental", "Experimental"},
	{"world", "World"},
}

// Default 未能匹配任何关键词时使用的流派
const Default = "Other"

// FromTags 将自由文本标签映射为规范流派，首个命中的关键词生效
func FromTags(tags []string) string {
	for _, tag := range tags {
		lower := strings.ToLower(strings.TrimSpace(tag))
		if lower == "" {
			continue
		}
		for _, entry := range keywordTable {
			if strings.Contains(lower, entry.keyword) {
				return entry.genre
			}
		}
	}
	return Default
}
