// Package errs 定义了版本控制引擎的错误分类 (Error Kind)。
//
// 引擎只返回结构化的错误值，不返回给用户看的文本。
// 文本渲染是 CLI 层的职责 (见 cmd/tg/commands/errors.go)。
package errs

import (
	"errors"
	"fmt"
)

// Kind 是一个封闭的错误枚举。
// Kind 本身实现了 error 接口，所以可以直接用 errors.Is(err, errs.UnknownBranch) 判断。
type Kind uint8

const (
	// Internal 表示基础设施错误 (IO、编解码、数据库等)，不属于业务分类
	Internal Kind = iota
	AlreadyInitialized
	NotInitialized
	FileNotFound
	NothingToRemove
	EmptyMessage
	NoChanges
	ObjectNotFound
	AmbiguousOrMissingID
	UnknownBranch
	BranchExists
	CannotDeleteCurrent
	AlreadyOnBranch
	FileNotInCommit
	UntrackedFileConflict
	UncommittedChanges
	CannotMergeSelf
	NotFound
)

var kindNames = map[Kind]string{
	Internal:              "internal error",
	AlreadyInitialized:    "already initialized",
	NotInitialized:        "not initialized",
	FileNotFound:          "file not found",
	NothingToRemove:       "nothing to remove",
	EmptyMessage:          "empty commit message",
	NoChanges:             "no changes staged",
	ObjectNotFound:        "object not found",
	AmbiguousOrMissingID:  "ambiguous or missing id",
	UnknownBranch:         "unknown branch",
	BranchExists:          "branch already exists",
	CannotDeleteCurrent:   "cannot delete current branch",
	AlreadyOnBranch:       "already on branch",
	FileNotInCommit:       "file not in commit",
	UntrackedFileConflict: "untracked file in the way",
	UncommittedChanges:    "uncommitted changes",
	CannotMergeSelf:       "cannot merge a branch with itself",
	NotFound:              "not found",
}

func (k Kind) Error() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error 是带上下文的业务错误
type Error struct {
	Kind Kind
	Op   string // 触发错误的操作，例如 "checkout"
	Arg  string // 相关的路径 / 分支名 / commit id (可选)
	Err  error  // 底层错误 (可选)
}

// E 构造一个 *Error
func E(kind Kind, op, arg string) *Error {
	return &Error{Kind: kind, Op: op, Arg: arg}
}

// Wrap 构造一个带底层原因的 *Error
func Wrap(kind Kind, op, arg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Arg: arg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Arg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Arg)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, errs.SomeKind) 按 Kind 匹配
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf 提取错误的分类。非 *Error / Kind 的错误都归为 Internal
func KindOf(err error) Kind {
	if err == nil {
		return Internal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Internal
}
