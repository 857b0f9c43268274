// pkg/types/common.go
package types

import "strings"

// Hash 代表对象的唯一标识符 (SHA256 Hex String)
// 这是一个“值对象”，应当是不可变的。
type Hash string

func (h Hash) String() string { return string(h) }

func (h Hash) IsZero() bool { return h == "" }

// IsValid 要求 64 位小写十六进制
// Hash 会被拼进存储路径，不能放过 "../" 之类的输入
func (h Hash) IsValid() bool { return len(h) == 64 && isHex(string(h)) }

// Short 返回用于展示的短哈希 (前 8 位)
func (h Hash) Short() string {
	if len(h) <= 8 {
		return string(h)
	}
	return string(h[:8])
}

// HashPrefix 是用户输入的短哈希 (可能是完整 Hash)
type HashPrefix string

func (p HashPrefix) String() string { return string(p) }

// Normalize 去掉空白并转成小写，用户可能从终端粘贴大写的 Hash
func (p HashPrefix) Normalize() HashPrefix {
	return HashPrefix(strings.ToLower(strings.TrimSpace(string(p))))
}

// IsHex 判断前缀是否只包含小写十六进制字符 (先 Normalize)
func (p HashPrefix) IsHex() bool { return isHex(string(p)) }

// Matches 判断完整 Hash 是否以该前缀开头
func (p HashPrefix) Matches(h Hash) bool {
	return strings.HasPrefix(string(h), string(p))
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
