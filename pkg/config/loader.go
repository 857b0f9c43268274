package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MetaDir 是仓库元数据目录名
const MetaDir = ".tg"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
// 返回实际使用的配置文件 (没有找到时为空)
func Load(cfgFile string) (string, error) {
	// 1. 设置默认值 (Defaults)
	if err := setDefaults(); err != nil {
		return "", err
	}

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 搜索顺序：当前目录 -> 当前目录下的 .tg -> 用户主目录下的 .tg
		viper.AddConfigPath(".")
		viper.AddConfigPath(MetaDir)
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, MetaDir))
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (TG_STORAGE_TYPE 等)
	viper.SetEnvPrefix("TG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		// 没找到配置文件不算错，可能全靠默认值和环境变量
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("fatal error config file: %w", err)
	}
	return viper.ConfigFileUsed(), nil
}

func setDefaults() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	// 仓库
	viper.SetDefault("repo.root", wd)

	// 存储默认值，storage.path 为空表示 <repo.root>/.tg
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", "")
	viper.SetDefault("storage.s3.region", "us-east-1")

	// Redis 缓存，redis_url 为空表示不启用
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.ttl", 24*time.Hour)

	// SQL 投影
	viper.SetDefault("meta.enabled", false)
	viper.SetDefault("meta.driver", "sqlite")
	viper.SetDefault("meta.dsn", "")

	// 数据库默认值 (meta.driver = postgres)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// 日志
	viper.SetDefault("log.debug", false)
	viper.SetDefault("log.file", true)
	viper.SetDefault("log.max_size_mb", 10)
	return nil
}
