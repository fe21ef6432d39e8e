package cmd

import (
	"fmt"
	"log"

	"FreeFM/db"
	"FreeFM/repository"

	"github.com/spf13/cobra"
)

var cursorReset bool

var cursorCmd = &cobra.Command{
	Use:   "cursor [source]",
	Short: "查看或重置内容源的采集游标",
	Long: `游标记录每个内容源的轮换进度（查询/排序/页偏移），由对应的源适配器
独占读写。重置游标后该源从初始轮换重新开始，最坏情况是重复抓取，
不会丢失数据。导入运行期间不要操作游标。`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigAndLogger()

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("GORM数据库连接失败: %v", err)
		}
		defer db.CloseGormDB()

		repo := repository.NewCursorRepository()

		if len(args) == 0 {
			// 无参数时列出已知源的游标
			for _, name := range []string{"jamendo", "ia"} {
				printCursor(repo, name)
			}
			return
		}

		name := args[0]
		if cursorReset {
			if err := repo.Delete(name); err != nil {
				log.Fatalf("重置游标失败: %v", err)
			}
			fmt.Printf("已重置游标: %s\n", name)
			return
		}
		printCursor(repo, name)
	},
}

func printCursor(repo repository.CursorRepository, name string) {
	payload, found, err := repo.Load(name)
	if err != nil {
		log.Fatalf("读取游标失败 (%s): %v", name, err)
	}
	if !found {
		fmt.Printf("%s: <无游标，将从初始轮换开始>\n", name)
		return
	}
	fmt.Printf("%s: %s\n", name, payload)
}

func init() {
	rootCmd.AddCommand(cursorCmd)

	cursorCmd.Flags().BoolVar(&cursorReset, "reset", false, "删除指定源的游标，使其从初始轮换重新开始")
}
