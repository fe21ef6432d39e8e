package cmd

import (
	"context"
	"fmt"
	"log"

	"FreeFM/core/importer"
	"FreeFM/core/migrate"
	"FreeFM/db"
	"FreeFM/repository"
	"FreeFM/storage"

	"github.com/spf13/cobra"
)

var (
	migrateLimit      int
	migrateStartAfter string
	migrateDryRun     bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "存量媒体迁移扫描",
	Long: `扫描目录库中仍指向第三方URL的导入曲目，把音频和封面搬运到自有
对象存储并回写记录。已迁移的记录自动跳过，失败的记录ID在结束时汇总输出。
可通过 --start-after/--limit（或 START_AFTER/LIMIT 环境变量）分批续跑。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigAndLogger()
		if migrateDryRun {
			cfg.DryRun = true
		}
		if migrateLimit > 0 {
			cfg.Limit = migrateLimit
		}
		if migrateStartAfter != "" {
			cfg.StartAfter = migrateStartAfter
		}

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("数据库连接失败: %v", err)
		}
		defer db.CloseDB()

		var uploader importer.ObjectUploader
		if !cfg.DryRun {
			if err := storage.InitMinio(cfg); err != nil {
				log.Fatalf("MinIO初始化失败: %v", err)
			}
			uploader = storage.GetClient()
		}
		ownMediaBase := storage.PublicBaseURL(cfg)

		engine := importer.NewTransferEngine(uploader, cfg.AudioTimeout, cfg.ArtworkTimeout, cfg.MediaConcurrency)
		pass := migrate.NewPass(
			repository.NewMySQLTrackRepository(),
			engine,
			ownMediaBase,
			cfg.Limit,
			cfg.StartAfter,
			cfg.DryRun,
		)

		report, err := pass.Run(context.Background())
		if err != nil {
			log.Fatalf("迁移扫描失败 (续跑游标: %s): %v", report.ResumeCursor, err)
		}

		fmt.Printf("\n迁移扫描完成:\n")
		fmt.Printf("扫描: %d, 迁移: %d, 跳过(已迁移): %d, 跳过(不符合): %d, 失败: %d\n",
			report.Scanned, report.Migrated, report.SkippedMigrated,
			report.SkippedIneligible, len(report.FailedIDs))
		if report.ResumeCursor != "" {
			fmt.Printf("续跑游标: START_AFTER=%s\n", report.ResumeCursor)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().IntVar(&migrateLimit, "limit", 0, "本次最多扫描的记录数（0为不限量，等价于 LIMIT）")
	migrateCmd.Flags().StringVar(&migrateStartAfter, "start-after", "", "从指定记录ID之后继续扫描（等价于 START_AFTER）")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "只报告将要迁移的记录，不实际搬运（等价于 DRY_RUN=1）")
}
