package cmd

import (
	"fmt"
	"os"

	"FreeFM/config"
	"FreeFM/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "freefm_importer",
	Short: "FreeFM开放内容目录导入工具",
	Long:  `从开放内容音乐源（Jamendo、Internet Archive）采集曲目，去重后写入FreeFM目录库，并把媒体文件搬运到自有对象存储。`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfigAndLogger 所有子命令共用的启动入口：一次性解析配置并初始化日志
func loadConfigAndLogger() *config.Config {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})
	return cfg
}
