package commands

import (
	"context"
	"fmt"
	"os"

	"tinygit/pkg/app"
	"tinygit/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// 全局应用实例，供子命令使用
	TG *app.App
)

var rootCmd = &cobra.Command{
	Use:           "tg",
	Short:         "tinygit: a minimal local version-control engine",
	SilenceErrors: true,
	SilenceUsage:  true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init 自己负责创建仓库
		if cmd.Name() == "init" {
			return nil
		}

		var err error
		TG, err = app.NewApp(cmd.Context())
		return err
	},
}

// Execute 是入口
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext 执行命令并在结束后释放 App
func ExecuteContext(ctx context.Context) error {
	defer closeApp()
	return rootCmd.ExecuteContext(ctx)
}

func closeApp() {
	if TG == nil {
		return
	}
	if err := TG.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to close:", err)
	}
	TG = nil
}

func init() {
	// 在初始化时，加载配置
	cobra.OnInitialize(initConfig)

	// 1. 定义全局参数 --config
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.tg/config.yaml or $HOME/.tg/config.yaml)")

	// 2. 其余参数绑定到 Viper，这样既可以写在 yaml 里，也可以用命令行覆盖
	rootCmd.PersistentFlags().Bool("debug", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringP("root", "C", "", "repository root (default is the working directory)")
	for key, flag := range map[string]string{
		"log.debug": "debug",
		"repo.root": "root",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Println("Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}
