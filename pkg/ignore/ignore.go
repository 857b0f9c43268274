package ignore

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义忽略规则的文件名
const FileName = ".tgignore"

// defaultRules 强制生效的忽略规则
var defaultRules = []string{
	".tg",  // 仓库元数据目录，绝对不能被扫描
	".git", // 忽略 Git 仓库数据

	".DS_Store", // macOS
	"Thumbs.db", // Windows
}

// protectedRules 是 restore 永远不会删除的项目/构建文件
var protectedRules = []string{
	"Makefile",
	"pom.xml",
	"*.iml",
	"go.mod",
	"go.sum",
	FileName,
}

// Matcher 封装了忽略逻辑
type Matcher struct {
	ignorer   *gitignore.GitIgnore
	protected *gitignore.GitIgnore
}

// NewMatcher 初始化忽略匹配器
// rootPath: 仓库根目录（用于查找 .tgignore 文件）
func NewMatcher(rootPath string) (*Matcher, error) {
	var ignorer *gitignore.GitIgnore
	var err error

	ignoreFilePath := filepath.Join(rootPath, FileName)
	if _, errStat := os.Stat(ignoreFilePath); errStat == nil {
		// 用户定义了 .tgignore，文件内容和默认规则合并编译
		ignorer, err = gitignore.CompileIgnoreFileAndLines(ignoreFilePath, defaultRules...)
	} else {
		ignorer = gitignore.CompileIgnoreLines(defaultRules...)
	}
	if err != nil {
		return nil, err
	}

	return &Matcher{
		ignorer:   ignorer,
		protected: gitignore.CompileIgnoreLines(protectedRules...),
	}, nil
}

// Matches 检查给定的路径是否匹配忽略规则
// path: 相对于仓库根目录的 slash 路径 (例如 "src/main.go")
func (m *Matcher) Matches(path string) bool {
	if m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(path)
}

// Protected 判断路径是否属于不能被 restore 删除的文件
func (m *Matcher) Protected(path string) bool {
	if m.protected == nil {
		return false
	}
	return m.protected.MatchesPath(path)
}
