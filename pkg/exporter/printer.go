package exporter

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"tinygit/pkg/core"
)

// PrintStructure 解析并打印结构化对象 (Commit)
// 如果是原始数据 (Blob)，返回 false，由调用者决定如何展示
func PrintStructure(data []byte, w io.Writer) (bool, error) {
	if core.DetectType(data) != core.TypeCommit {
		return false, nil
	}
	return true, printCommit(data, w)
}

func printCommit(data []byte, w io.Writer) error {
	c, err := core.DecodeCommit(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Type:    Commit\n")
	fmt.Fprintf(w, "Hash:    %s\n", c.ID())
	for _, p := range c.ParentIDs() {
		fmt.Fprintf(w, "Parent:  %s\n", p)
	}
	fmt.Fprintf(w, "Time:    %s\n", time.Unix(c.Timestamp, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "\n%s\n", c.Message)

	if len(c.Tracked) == 0 {
		return nil
	}
	fmt.Fprintln(w)

	// 使用 tabwriter 对齐输出 (像 git ls-tree)
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "BLOB\tORIGIN\tPATH\n")
	for _, p := range c.Paths() {
		h, _ := c.Lookup(p)
		origin, _ := c.OriginOf(p)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Short(), origin.Short(), p)
	}
	return tw.Flush()
}

// FormatSize 把字节数格式化成人类可读的大小
func FormatSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}
