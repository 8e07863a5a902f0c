package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "marketplace",
	Short: "B2B 电子产品批发市场服务",
	Long: `marketplace 汇总各经销商的价目表，为买家提供统一目录、购物车和订单。

serve   启动 HTTP API 和定时任务
migrate 建表并执行补充 DDL
import  从本地文件为经销商导入价目表`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "config.yaml 所在目录，默认依次查找 . ./config /etc/marketplace")
}

func configPaths() []string {
	if configDir == "" {
		return nil
	}
	return []string{configDir}
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
