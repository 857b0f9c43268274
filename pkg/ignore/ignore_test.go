package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Defaults(t *testing.T) {
	// 1. 没有 .tgignore 的情况
	matcher, err := NewMatcher(t.TempDir())
	require.NoError(t, err)

	// 2. 验证默认规则
	tests := []struct {
		path     string
		shouldIg bool
	}{
		{".tg", true},
		{".tg/objects/aa", true}, // 子路径也应该被忽略
		{".git", true},
		{".DS_Store", true},
		{"main.go", false},
		{"src/util.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_WithUserFile(t *testing.T) {
	tmpDir := t.TempDir()

	ignoreContent := `
# 这是注释
*.log
temp
!important.log
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, FileName), []byte(ignoreContent), 0644))

	matcher, err := NewMatcher(tmpDir)
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		// 默认规则依然要生效
		{".tg", true},

		// 用户规则
		{"app.log", true},
		{"logs/error.log", true},
		{"temp", true},
		{"temp/file", true},

		{"main.go", false},
		{"important.log", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_Protected(t *testing.T) {
	matcher, err := NewMatcher(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"Makefile", "pom.xml", "proj.iml", "go.mod", "go.sum", FileName} {
		assert.True(t, matcher.Protected(p), p)
	}
	for _, p := range []string{"main.go", "Makefile.bak", "notes.txt"} {
		assert.False(t, matcher.Protected(p), p)
	}
}
