// Package logging 构造仓库使用的 zerolog.Logger。
// 日志写入 .tg/logs/tg.log (lumberjack 负责轮转)，debug 模式下同时输出到 stderr。
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const FileName = "tg.log"

// Config 日志配置
type Config struct {
	Debug      bool
	Dir        string // 为空时不写文件
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int

	// Console 是 debug 输出的目标，默认 os.Stderr
	Console io.Writer
}

func (c Config) maxSizeMB() int {
	if c.MaxSizeMB <= 0 {
		return 10
	}
	return c.MaxSizeMB
}

func (c Config) maxAgeDays() int {
	if c.MaxAgeDays <= 0 {
		return 7
	}
	return c.MaxAgeDays
}

func (c Config) maxBackups() int {
	if c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New 返回 logger 和需要在退出时关闭的文件句柄
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if cfg.Debug {
		out := cfg.Console
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		fw := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, FileName),
			MaxSize:    cfg.maxSizeMB(),
			MaxAge:     cfg.maxAgeDays(),
			MaxBackups: cfg.maxBackups(),
			LocalTime:  true,
		}
		writers = append(writers, fw)
		closer = fw
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return log, closer, nil
}
