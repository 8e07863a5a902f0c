package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/model"
)

var (
	importUserID int64
	importFile   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "从本地文件为经销商导入价目表",
	Long: `读取本地 YAML 价目表，以指定经销商身份全量替换其店铺的报价。
不受手动导入冷却时间限制，导入记录来源为 cli。`,
	Example: "  marketplace import --user 3 --file ./data/shop1.yaml",
	RunE:    runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int64Var(&importUserID, "user", 0, "经销商用户 ID")
	importCmd.Flags().StringVar(&importFile, "file", "", "价目表文件路径")
	_ = importCmd.MarkFlagRequired("user")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("读取价目表失败: %w", err)
	}

	deps, err := loadBase()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()
	if err := initDependencies(ctx, deps); err != nil {
		return err
	}

	ctx = middleware.WithAuditInfo(ctx, importUserID, model.FeedSourceCLI)
	res, err := deps.Services.Ingest.ImportData(ctx, importUserID, filepath.Base(importFile), data)
	if err != nil {
		return err
	}

	deps.Log.Info("价目表导入完成",
		zap.String("batch_id", res.BatchID),
		zap.String("shop", res.Shop),
		zap.Int("categories", res.Categories),
		zap.Int("listings", res.Listings),
		zap.Int64("removed", res.Removed),
		zap.Int64("duration_ms", res.DurationMs))
	fmt.Fprintf(cmd.OutOrStdout(), "店铺 %s: %d 条报价, %d 个分类, 替换 %d 条旧报价\n",
		res.Shop, res.Listings, res.Categories, res.Removed)
	return nil
}
