package cmd

import (
	"context"
	"log"

	"FreeFM/core/importer"
	"FreeFM/core/source"
	"FreeFM/db"
	"FreeFM/logger"
	"FreeFM/model"
	"FreeFM/repository"
	"FreeFM/storage"

	"github.com/spf13/cobra"
)

var (
	importDryRun  bool
	importSources []string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "执行一轮目录导入",
	Long: `并发采集全部已配置内容源，规范化、去重后把新曲目写入目录库。
媒体文件在写入前搬运到自有对象存储；搬运失败的曲目保留原始地址照常入库。
注意：导入运行之间不做互斥，同一时刻只能有一个导入进程在跑，由运维保证。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigAndLogger()
		if importDryRun {
			cfg.DryRun = true
		}

		// 凭证与连接的初始化只在这里做一次，后续组件拿到的都是现成句柄
		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("数据库连接失败: %v", err)
		}
		defer db.CloseDB()
		if err := db.InitDB(); err != nil {
			log.Fatalf("数据库初始化失败: %v", err)
		}
		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("GORM数据库连接失败: %v", err)
		}
		defer db.CloseGormDB()
		if err := db.AutoMigrateModels(&model.TrackRecord{}, &model.CursorDoc{}); err != nil {
			log.Fatalf("模型迁移失败: %v", err)
		}

		// Redis仅用于去重缓存，连不上就降级，不算致命
		if err := db.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis连接失败，去重缓存停用", logger.ErrorField(err))
		} else {
			defer db.CloseRedis()
		}

		if !cfg.DryRun {
			if err := storage.InitMinio(cfg); err != nil {
				log.Fatalf("MinIO初始化失败: %v", err)
			}
		}

		registry := source.NewRegistry()
		registry.Register(source.NewJamendoAdapter(cfg.JamendoClientID, cfg.JamendoRunCap, cfg.RequestDelay))
		registry.Register(source.NewArchiveAdapter(cfg.ArchiveRunCap, cfg.RequestDelay))
		if len(importSources) > 0 {
			filtered := source.NewRegistry()
			for _, name := range importSources {
				adapter, err := registry.Get(name)
				if err != nil {
					log.Fatalf("未知内容源: %s", name)
				}
				filtered.Register(adapter)
			}
			registry = filtered
		}

		trackRepo := repository.NewMySQLTrackRepository()
		cursorRepo := repository.NewCursorRepository()
		dedup := importer.NewDedupChecker(trackRepo, db.RedisClient)

		var uploader importer.ObjectUploader
		if !cfg.DryRun {
			uploader = storage.GetClient()
		}
		engine := importer.NewTransferEngine(uploader, cfg.AudioTimeout, cfg.ArtworkTimeout, cfg.MediaConcurrency)
		writer := importer.NewBatchWriter(importer.NewGormCommitter(db.GormDB))

		orchestrator := importer.NewOrchestrator(registry, cursorRepo, dedup, engine, writer, cfg.DryRun)
		if _, err := orchestrator.Run(context.Background()); err != nil {
			log.Fatalf("导入运行失败: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "只报告将要写入/迁移的内容，不产生任何持久化副作用（等价于 DRY_RUN=1）")
	importCmd.Flags().StringSliceVar(&importSources, "source", nil, "只运行指定内容源（可重复，默认全部）")
}
