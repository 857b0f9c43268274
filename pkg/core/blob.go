package core

import "tinygit/pkg/types"

// Blob 代表一个文件版本的原始内容
// 它的 ID 就是内容本身的 SHA-256，不经过 CBOR 编码
type Blob struct {
	hash types.Hash
	data []byte
}

func NewBlob(data []byte) *Blob {
	return &Blob{
		hash: CalculateBlobHash(data),
		data: data,
	}
}

func (b *Blob) Type() ObjectType { return TypeBlob }
func (b *Blob) ID() types.Hash   { return b.hash }
func (b *Blob) Bytes() []byte    { return b.data }
func (b *Blob) Size() int64      { return int64(len(b.data)) }
