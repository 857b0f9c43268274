package core

import "tinygit/pkg/types"

// ObjectType 定义了对象库中的对象类型
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"   // 文件内容 (原始字节)
	TypeCommit ObjectType = "commit" // 版本快照
)

// Object 是所有可存入对象库的节点的通用接口
type Object interface {
	// Type 返回对象类型
	Type() ObjectType

	// ID 返回对象的哈希值
	ID() types.Hash

	// Bytes 返回对象的序列化数据 (用于存储)
	Bytes() []byte
}

// DetectType 探测一段存储数据的类型
// Blob 是原始字节，不带 CBOR 头；只有能解出 {"t": "commit"} 的才算 Commit
func DetectType(data []byte) ObjectType {
	var header struct {
		TypeVal ObjectType `cbor:"t"`
	}
	if err := DecodeObject(data, &header); err != nil {
		return TypeBlob
	}
	if header.TypeVal == TypeCommit {
		return TypeCommit
	}
	return TypeBlob
}
