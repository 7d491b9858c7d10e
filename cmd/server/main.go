package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vietguibot/constants"
	"vietguibot/internal/app/server"
	"vietguibot/internal/config"
	redisdb "vietguibot/internal/db/redis"
	"vietguibot/internal/domain/asr"
	"vietguibot/internal/metrics"
	"vietguibot/logger"
)

func main() {
	// 解析命令行参数
	configFile := flag.String("c", "system.conf", "配置文件路径")
	initConfig := flag.Bool("init", false, "配置文件不存在时写入默认配置")
	listDevices := flag.Bool("list-devices", false, "列出可用的录音设备后退出")
	flag.Parse()

	if *listDevices {
		names, err := asr.ListCaptureDevices()
		if err != nil {
			fmt.Printf("list capture devices err: %+v\n", err)
			os.Exit(1)
		}
		for i, name := range names {
			fmt.Printf("%d: %s\n", i, name)
		}
		return
	}

	if *configFile == "" {
		fmt.Println("配置文件路径不能为空")
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile, *initConfig)
	if err != nil {
		fmt.Printf("load config err: %+v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Printf("init log err: %+v\n", err)
		os.Exit(1)
	}
	log := logger.Component("main")
	logStartup(log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	if cfg.Metrics.Enable {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger.Component("metrics"))
	}

	cache, err := initCache(ctx, cfg)
	if err != nil {
		log.Errorf("初始化缓存失败: %v", err)
		os.Exit(1)
	}

	chat, err := newChatService(ctx, cfg, cache, collector)
	if err != nil {
		log.Errorf("初始化问答服务失败: %v", err)
		os.Exit(1)
	}

	services := server.Services{
		Chat:        chat,
		Synthesizer: newTTSService(cfg, collector),
	}
	recognizer, closeVAD := newRecognizer(ctx, cfg, collector)
	defer closeVAD()
	if recognizer != nil {
		services.Recognizer = recognizer
	}

	appOpts := []server.AppOption{
		server.WithMetrics(collector),
		server.WithLogger(logger.Component("server")),
	}
	if cfg.Cache.Type == constants.CacheTypeRedis {
		appOpts = append(appOpts, server.WithHealthCheck("redis", redisdb.IsHealthy))
		defer closeRedis(log)
	}
	app, err := server.NewApp(cfg, services, appOpts...)
	if err != nil {
		log.Errorf("创建服务失败: %v", err)
		os.Exit(1)
	}

	log.Info("服务器已启动，按 Ctrl+C 退出")
	if err := app.Run(ctx); err != nil {
		log.Errorf("服务异常退出: %v", err)
		os.Exit(1)
	}
}
