// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"tinygit/pkg/config"
	"tinygit/pkg/errs"
	"tinygit/pkg/logging"
	"tinygit/pkg/meta"
	"tinygit/pkg/repo"
	"tinygit/pkg/storage"
	"tinygit/pkg/storage/cache"
	"tinygit/pkg/storage/disk"
	"tinygit/pkg/storage/s3"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它持有一个仓库需要的所有服务
type App struct {
	Root  string
	Store storage.Backend
	Repo  *repo.Repository
	Meta  *meta.Repository // meta.enabled = false 时为 nil
	Log   zerolog.Logger

	closers []io.Closer
}

// NewApp 打开当前配置指向的仓库
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令
func NewApp(ctx context.Context) (*App, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, err
	}
	// 先检查，避免在未初始化的目录里创建 .tg
	if !repo.IsInitialized(root) {
		return nil, errs.E(errs.NotInitialized, "open", root)
	}

	a, opts, err := assemble(ctx, root)
	if err != nil {
		return nil, err
	}

	a.Repo, err = repo.Open(root, a.Store, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Repo.EnsureProjection(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("failed to sync projection")
	}
	return a, nil
}

// InitApp 在当前配置指向的目录里创建仓库
func InitApp(ctx context.Context) (*App, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, err
	}
	if repo.IsInitialized(root) {
		return nil, errs.E(errs.AlreadyInitialized, "init", root)
	}

	a, opts, err := assemble(ctx, root)
	if err != nil {
		return nil, err
	}

	a.Repo, err = repo.Init(ctx, root, a.Store, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close 释放日志文件、Redis 连接和数据库连接
func (a *App) Close() error {
	var errList []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errList = append(errList, err)
		}
	}
	a.closers = nil
	return errors.Join(errList...)
}

func repoRoot() (string, error) {
	root := viper.GetString("repo.root")
	if root == "" {
		return "", fmt.Errorf("repo.root not set")
	}
	return filepath.Abs(root)
}

// assemble 按配置组装 logger -> 存储 -> 缓存 -> 投影
func assemble(ctx context.Context, root string) (*App, []repo.Option, error) {
	a := &App{Root: root}

	// 1. 日志
	logCfg := logging.Config{
		Debug:     viper.GetBool("log.debug"),
		MaxSizeMB: viper.GetInt("log.max_size_mb"),
	}
	if viper.GetBool("log.file") {
		logCfg.Dir = filepath.Join(root, config.MetaDir, "logs")
	}
	log, logCloser, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	a.Log = log
	a.closers = append(a.closers, logCloser)

	// 2. 存储
	store, err := initStore(ctx, root)
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// 3. 可选的 Redis 缓存
	if url := viper.GetString("cache.redis_url"); url != "" {
		cached, err := cache.NewCachedStore(store, cache.Config{
			RedisURL:  url,
			TTL:       viper.GetDuration("cache.ttl"),
			Namespace: root,
		}, log)
		if err != nil {
			a.Close()
			return nil, nil, err
		}
		a.closers = append(a.closers, cached)
		store = cached
	}
	a.Store = store

	opts := []repo.Option{repo.WithLogger(log)}

	// 4. 可选的 SQL 投影
	if viper.GetBool("meta.enabled") {
		db, err := meta.NewDB(ctx, metaConfig(root))
		if err != nil {
			a.Close()
			return nil, nil, fmt.Errorf("failed to init meta db: %w", err)
		}
		a.closers = append(a.closers, db)
		a.Meta = meta.NewRepository(db)
		opts = append(opts, repo.WithProjection(a.Meta))
	}

	log.Debug().
		Str("root", root).
		Str("storage", viper.GetString("storage.type")).
		Bool("cache", viper.GetString("cache.redis_url") != "").
		Bool("meta", a.Meta != nil).
		Msg("app assembled")
	return a, opts, nil
}

// initStore 根据 storage.type 选择后端
func initStore(ctx context.Context, root string) (storage.Backend, error) {
	switch t := viper.GetString("storage.type"); t {
	case "", "disk":
		path := viper.GetString("storage.path")
		if path == "" {
			path = filepath.Join(root, config.MetaDir)
		}
		store, err := disk.NewAdapter(path)
		if err != nil {
			return nil, err
		}
		return store, nil

	case "s3":
		store, err := s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("storage.s3.endpoint"),
			Region:          viper.GetString("storage.s3.region"),
			Bucket:          viper.GetString("storage.s3.bucket"),
			Prefix:          viper.GetString("storage.s3.prefix"),
			AccessKeyID:     viper.GetString("storage.s3.access_key"),
			SecretAccessKey: viper.GetString("storage.s3.secret_key"),
		}, zerolog.Nop())
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %q", t)
	}
}

func metaConfig(root string) meta.Config {
	cfg := meta.Config{
		Driver:   viper.GetString("meta.driver"),
		DSN:      viper.GetString("meta.dsn"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.name"),
		SSLMode:  viper.GetString("database.sslmode"),
		Debug:    viper.GetBool("log.debug"),
	}
	if cfg.DSN == "" && (cfg.Driver == "" || cfg.Driver == "sqlite") {
		cfg.DSN = filepath.Join(root, config.MetaDir, "meta.db")
	}
	return cfg
}
