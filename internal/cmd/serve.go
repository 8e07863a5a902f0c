package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketplace_v1_202610/internal/router"
)

var (
	serveMigrate bool
	serveDocsDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP API 和定时任务",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "启动前执行数据库迁移")
	serveCmd.Flags().StringVar(&serveDocsDir, "docs", "./docs", "swagger.json 所在目录")
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. 配置、日志、数据库
	deps, err := loadBase()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()
	if serveMigrate {
		if err := migrate(ctx, deps); err != nil {
			return err
		}
	}

	// 2. 初始化依赖
	if err := initDependencies(ctx, deps); err != nil {
		return err
	}

	// 3. 启动定时任务
	tasks := initTasks(deps)
	if err := tasks.Start(); err != nil {
		return err
	}
	defer tasks.Stop()

	// 4. 初始化路由
	cfg := deps.Config
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := router.Options{
		Metrics:   deps.Metrics,
		AuthRPS:   cfg.RateLimit.AuthRPS,
		AuthBurst: cfg.RateLimit.AuthBurst,
	}
	if cfg.Server.SwaggerEnabled {
		opts.DocsDir = serveDocsDir
	}
	r := router.New(deps.Log, deps.Controllers, opts)

	// 5. 启动服务
	return startServer(deps, r)
}

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(deps *Dependencies, handler http.Handler) error {
	cfg := deps.Config.Server
	log := deps.Log

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("正在关闭服务...", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("服务已退出")
	return nil
}
