// notifier 订阅订单事件并给买家发通知
//
// 与API进程共用config.yaml中的mq段，单独部署、单独扩容。
// 同一个队列可以起多个实例，RabbitMQ在它们之间轮询分发。
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/infrastructure/config"
	"github.com/xiebiao/bookmall/internal/infrastructure/messaging"
	"github.com/xiebiao/bookmall/pkg/logger"
	"github.com/xiebiao/bookmall/pkg/mq"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认查找 ./config/config.yaml")
	metricsAddr := flag.String("metrics-addr", ":9101", "Prometheus指标监听地址，为空则不暴露")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(*configPath)
	}
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if !cfg.MQ.Enabled {
		log.Fatal("mq.enabled=false，通知进程无事可做")
	}

	zl, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, cfg.MQ.Queue, []string{"order.*"}, zl)
	if err != nil {
		zl.Fatal("创建消费者失败", zap.Error(err))
	}
	defer func() { _ = consumer.Close() }()

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("指标服务异常", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	notifier := messaging.NewNotifier(consumer.QueueName(), zl)
	if err := consumer.Consume(ctx, notifier.Handle); err != nil {
		zl.Error("消费中断", zap.Error(err))
	}
	zl.Info("通知进程已退出")
}
