package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"tinygit/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// commit 的规范编码
// 同一份 (parents, message, timestamp, tracked) 在任何机器上都必须得到同样的字节
var encOptions = cbor.EncOptions{
	// tracked 是 map，key 按 canonical 顺序写出
	Sort: cbor.SortCanonical,

	ShortestFloat: cbor.ShortestFloatNone,
	// 时间戳只以 Unix 秒出现，不带 Tag 0/1
	Time:    cbor.TimeUnix,
	TimeTag: cbor.EncTagNone,

	IndefLength: cbor.IndefLengthForbidden,

	// root commit 的 parents=nil 与 parents=[] 必须是同一个 identity
	NilContainers: cbor.NilContainerAsEmpty,

	BigIntConvert: cbor.BigIntConvertShortest,
}

var em, _ = encOptions.EncMode()

// 读 commit 时的限制
// 对象库里的任意 blob 都可能被当成 commit 解码，所以要拒绝畸形输入
var decOptions = cbor.DecOptions{
	// parents 最多 2 个；tracked 可能有很多文件
	MaxArrayElements: 16,
	MaxMapPairs:      1000000,
	MaxNestedLevels:  8,

	IndefLength: cbor.IndefLengthForbidden,

	// 同一路径出现两次的快照是损坏的
	DupMapKey: cbor.DupMapKeyEnforcedAPF,

	BignumTag: cbor.BignumTagForbidden,
	TimeTag:   cbor.DecTagIgnored,
}

var dm, _ = decOptions.DecMode()

// CalculateHash 返回 v 的规范编码和它的 SHA-256
// commit 的 identity 就是对 identity 子集调用它的结果
func CalculateHash(v any) (types.Hash, []byte, error) {
	data, err := em.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal object: %w", err)
	}

	hashBytes := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(hashBytes[:])), data, nil
}

// CalculateBlobHash 计算文件内容的 Hash，blob 不经过 CBOR
func CalculateBlobHash(data []byte) types.Hash {
	hashBytes := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(hashBytes[:]))
}

// DecodeObject 按读取限制解码
func DecodeObject(data []byte, v any) error {
	return dm.Unmarshal(data, v)
}
