package cmd

import (
	"log"

	"FreeFM/storage"

	"github.com/spf13/cobra"
)

var (
	storagePrefix string
	storageStats  bool
	storageDelete bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "对象存储管理",
	Long:  `查看和管理媒体对象存储，支持按前缀列出文件、查看统计信息、清理导入失败残留的媒体文件。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigAndLogger()

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("MinIO初始化失败: %v", err)
		}
		client := storage.GetClient()

		switch {
		case storageDelete:
			if storagePrefix == "" {
				log.Fatal("删除操作需要指定前缀")
			}
			if err := client.DeletePrefix(storagePrefix); err != nil {
				log.Fatalf("删除失败: %v", err)
			}
		case storageStats:
			if err := client.PrintBucketStats(storagePrefix); err != nil {
				log.Fatalf("获取统计信息失败: %v", err)
			}
		default:
			if err := client.ListObjects(storagePrefix); err != nil {
				log.Fatalf("列出文件失败: %v", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)

	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "", "按前缀过滤对象，如 tracks/audio/")
	storageCmd.Flags().BoolVarP(&storageStats, "stats", "s", false, "显示统计信息")
	storageCmd.Flags().BoolVarP(&storageDelete, "delete", "d", false, "删除指定前缀下的所有对象")

	storageCmd.Example = `  # 列出全部媒体对象
  freefm_importer storage

  # 查看音频目录统计
  freefm_importer storage -s -p "tracks/audio/"

  # 清理残留封面
  freefm_importer storage -d -p "tracks/artwork/orphan-"`
}
