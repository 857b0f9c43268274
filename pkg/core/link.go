package core

import (
	"encoding/hex"
	"fmt"

	"tinygit/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// Link 是 commit 里的一个引用：父 commit、文件内容 blob 或备份所在的 commit
// 编码为 Tag 42，内容是 0x00 加 32 字节的原始 Hash
type Link struct {
	Hash types.Hash
}

const (
	linkTagNumber = 42
	linkPrefix    = 0x00
	sha256Size    = 32
)

func NewLink(hash types.Hash) Link {
	return Link{Hash: hash}
}

func (l Link) MarshalCBOR() ([]byte, error) {
	hashBytes, err := hex.DecodeString(string(l.Hash))
	if err != nil {
		return nil, fmt.Errorf("invalid hash format in link: %w", err)
	}

	if len(hashBytes) != sha256Size {
		return nil, fmt.Errorf("invalid hash length in link: %d bytes", len(hashBytes))
	}

	return em.Marshal(cbor.Tag{
		Number:  linkTagNumber,
		Content: append([]byte{linkPrefix}, hashBytes...),
	})
}

func (l *Link) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := dm.Unmarshal(data, &tag); err != nil {
		return err
	}

	if tag.Number != linkTagNumber {
		return fmt.Errorf("expected tag 42 for Link, got %d", tag.Number)
	}

	raw, ok := tag.Content.([]byte)
	if !ok {
		return fmt.Errorf("link content must be byte string")
	}
	if len(raw) != 1+sha256Size || raw[0] != linkPrefix {
		return fmt.Errorf("invalid link: want 0x00 + %d hash bytes, got %d bytes", sha256Size, len(raw))
	}

	l.Hash = types.Hash(hex.EncodeToString(raw[1:]))
	return nil
}
