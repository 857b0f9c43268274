// Package merge 实现三路合并。
//
// 合并分两步：先用 split / head / other 三个快照为每个路径计算一个 Action (Plan)，
// 再把 Plan 应用到工作区和暂存区 (Engine.Apply)。提交由调用方完成。
package merge

import (
	"bytes"
	"maps"
	"slices"

	"tinygit/pkg/core"
)

// Action 是单个路径的合并结果
type Action uint8

const (
	Keep      Action = iota // 保持 head 的状态
	TakeOther               // 取 other 的版本并暂存
	Remove                  // 暂存删除
	Conflict                // 写入冲突标记并暂存
)

func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case TakeOther:
		return "take-other"
	case Remove:
		return "remove"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Classify 对比三个快照里同一路径的内容 Hash
func Classify(split, head, other *core.Commit, path string) Action {
	s, inSplit := split.Lookup(path)
	h, inHead := head.Lookup(path)
	o, inOther := other.Lookup(path)

	if !inSplit {
		switch {
		case !inHead && inOther:
			return TakeOther
		case inHead && inOther && h != o:
			return Conflict
		default:
			return Keep
		}
	}

	switch {
	case !inHead && !inOther:
		return Keep
	case !inHead:
		// head 删掉了，other 没动就保持删除
		if o == s {
			return Keep
		}
		return Conflict
	case !inOther:
		if h == s {
			return Remove
		}
		return Conflict
	}

	switch {
	case h == o, s == o:
		return Keep
	case s == h:
		return TakeOther
	default:
		return Conflict
	}
}

// Change 是一个需要执行的路径操作 (Keep 不记录)
type Change struct {
	Path   string
	Action Action
}

// Plan 是一次三路合并的完整计划
type Plan struct {
	Split, Head, Other *core.Commit
	Changes            []Change
}

// NewPlan 对三个快照里所有路径的并集进行分类，按路径排序
func NewPlan(split, head, other *core.Commit) *Plan {
	paths := make(map[string]struct{})
	for _, c := range []*core.Commit{split, head, other} {
		for p := range c.Tracked {
			paths[p] = struct{}{}
		}
	}

	plan := &Plan{Split: split, Head: head, Other: other}
	for _, p := range slices.Sorted(maps.Keys(paths)) {
		if a := Classify(split, head, other, p); a != Keep {
			plan.Changes = append(plan.Changes, Change{Path: p, Action: a})
		}
	}
	return plan
}

// Conflicted 判断计划里是否有冲突
func (p *Plan) Conflicted() bool {
	return slices.ContainsFunc(p.Changes, func(c Change) bool { return c.Action == Conflict })
}

const (
	markerHead  = "<<<<<<< HEAD\n"
	markerSep   = "=======\n"
	markerOther = ">>>>>>>\n"
)

// ConflictContent 生成带冲突标记的文件内容
// 缺失的一侧传 nil；非空且没有换行结尾的一侧会补一个换行
func ConflictContent(head, other []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(markerHead)
	writeSide(&buf, head)
	buf.WriteString(markerSep)
	writeSide(&buf, other)
	buf.WriteString(markerOther)
	return buf.Bytes()
}

func writeSide(buf *bytes.Buffer, side []byte) {
	if len(side) == 0 {
		return
	}
	buf.Write(side)
	if side[len(side)-1] != '\n' {
		buf.WriteByte('\n')
	}
}
