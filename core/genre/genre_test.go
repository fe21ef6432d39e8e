package genre

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"direct hit", []string{"rock"}, "Rock"},
		{"substring match", []string{"post-rock instrumental"}, "Rock"},
		{"case and whitespace", []string{"  ELECTRO  "}, "Electronic"},
		{"first tag wins", []string{"jazz", "rock"}, "Jazz"},
		{"skips empty tags", []string{"", "  ", "blues"}, "Blues"},
		{"hip hop variants", []string{"hip hop"}, "Hip-Hop"},
		{"no match", []string{"yodeling"}, Default},
		{"no tags", nil, Default},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromTags(tt.tags))
		})
	}
}
