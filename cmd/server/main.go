// Package main 是 HTTP 服务的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cogsearch-go/internal/app"
	"cogsearch-go/internal/config"
	"cogsearch-go/internal/handler"
	"cogsearch-go/pkg/log"
	"cogsearch-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 组装组件
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := app.New(rootCtx, cfg)
	if err != nil {
		log.Fatal("组件初始化失败", err)
	}
	defer a.Close()

	// 4. 启动后台 Kafka 消费者
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer, err := a.Consumer()
		if err != nil {
			log.Fatal("创建 Kafka 消费者失败", err)
		}
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(rootCtx); err != nil {
				log.Error("Kafka 消费者异常退出", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	// 5. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	h := handler.Handlers{
		Index:  handler.NewIndexHandler(a.Schema),
		Ingest: newIngestHandler(a),
		Search: handler.NewSearchHandler(a.Query, a.DefaultModel),
		Kb:     handler.NewKbHandler(a.Kb, a.DefaultModel),
	}
	r := handler.NewRouter(h, jwtManager)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止消费者，等待正在处理的任务结束
	cancel()
	select {
	case <-consumerDone:
	case <-ctx.Done():
		log.Warnf("等待 Kafka 消费者退出超时")
	}
	log.Info("服务已优雅关闭")
}

// newIngestHandler 只把已配置的依赖交给 handler，未配置的保持 nil 接口。
func newIngestHandler(a *app.App) *handler.IngestHandler {
	var (
		queue   handler.TaskQueue
		objects handler.ObjectUploader
	)
	if a.Producer != nil {
		queue = a.Producer
	}
	if a.Objects != nil {
		objects = a.Objects
	}
	return handler.NewIngestHandler(a.Processor, queue, objects, a.Runs, a.DefaultModel)
}
