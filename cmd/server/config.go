package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"vietguibot/constants"
	"vietguibot/internal/config"
	redisdb "vietguibot/internal/db/redis"
	"vietguibot/internal/domain/asr"
	"vietguibot/internal/domain/llm/eino_llm"
	"vietguibot/internal/domain/rag"
	"vietguibot/internal/domain/tts"
	"vietguibot/internal/domain/vad"
	"vietguibot/internal/metrics"
	"vietguibot/logger"
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// initCache 按 cache.type 创建回答缓存，none 返回 nil
func initCache(ctx context.Context, cfg *config.Config) (rag.Cache, error) {
	switch cfg.Cache.Type {
	case constants.CacheTypeRedis:
		redisConfig := redisdb.DefaultConfig()
		redisConfig.Host = cfg.Redis.Host
		redisConfig.Port = cfg.Redis.Port
		redisConfig.Password = cfg.Redis.Password
		redisConfig.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisConfig.PoolSize = cfg.Redis.PoolSize
		}
		client, err := redisdb.Init(ctx, redisConfig, logger.Component("redis"))
		if err != nil {
			return nil, err
		}
		return rag.NewRedisCache(client, cfg.Redis.KeyPrefix), nil
	case constants.CacheTypeMemory:
		return rag.NewMemoryCache(), nil
	default:
		return nil, nil
	}
}

// closeRedis 退出前记录连接池统计并关闭连接
func closeRedis(log *logrus.Entry) {
	redisdb.LogStats(logger.Component("redis"))
	if err := redisdb.Close(); err != nil {
		log.Warnf("关闭Redis失败: %v", err)
	}
}

func newTTSService(cfg *config.Config, collector *metrics.Collector) *tts.Service {
	log := logger.Component("tts")
	provider := tts.GetTTSProvider(cfg.TTS.Model, cfg.TTS, log)
	return tts.NewService(provider, cfg.TTS.OutputDir,
		tts.WithFailureHook(collector.RecordTTSFailure),
		tts.WithLogger(log),
	)
}

// newRecognizer VAD 初始化失败时返回 nil，/asr 退化为空文本
func newRecognizer(ctx context.Context, cfg *config.Config, collector *metrics.Collector) (*asr.Recognizer, func()) {
	log := logger.Component("asr")
	pool, err := vad.NewPool(ctx, vad.Config{
		Type:       cfg.ASR.VAD.Type,
		SampleRate: cfg.ASR.SampleRate,
		FrameMs:    cfg.ASR.FrameMs,
		Mode:       cfg.ASR.VAD.Mode,
		ModelPath:  cfg.ASR.VAD.ModelPath,
		Threshold:  cfg.ASR.VAD.Threshold,
		PoolSize:   cfg.ASR.VAD.PoolSize,
	}, logger.Component("vad"))
	if err != nil {
		log.Errorf("VAD初始化失败, 语音识别不可用: %v", err)
		return nil, func() {}
	}

	source := asr.NewMalgoSource(cfg.ASR.SampleRate, cfg.ASR.FrameMs, cfg.ASR.InputDevice, log)
	capturer := asr.NewCapturer(source, pool, asr.CaptureConfig{
		SampleRate: cfg.ASR.SampleRate,
		MaxSeconds: cfg.ASR.MaxSeconds,
	}, log)
	transcriber := asr.NewWhisperTranscriber(asr.WhisperConfig{
		Model:    cfg.ASR.Model,
		Language: cfg.ASR.Language,
		BaseURL:  cfg.ASR.BaseURL,
		APIKey:   cfg.ASR.APIKey,
	}, log)

	recognizer := asr.NewRecognizer(capturer, transcriber,
		asr.WithCaptureHook(collector.RecordCapture),
		asr.WithLogger(log),
	)
	return recognizer, func() { pool.Close(context.Background()) }
}

// newChatService 组装 检索 -> 提示词 -> 模型 -> 缓存
func newChatService(ctx context.Context, cfg *config.Config, cache rag.Cache, collector *metrics.Collector) (*rag.Service, error) {
	log := logger.Component("rag")

	llm, err := eino_llm.NewEinoLLMProvider(ctx, eino_llm.Config{
		Type:      cfg.LLM.Type,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Streaming: cfg.LLM.Streaming,
	}, logger.Component("llm"))
	if err != nil {
		return nil, fmt.Errorf("create llm: %w", err)
	}

	embedder := newEmbedder(cfg)
	store := newPineconeStore(cfg)
	if err := store.EnsureIndex(ctx); err != nil {
		// 索引不可用时回答会降级为致歉文本，不阻止启动
		log.Errorf("Pinecone 索引不可用: %v", err)
	}

	retriever := rag.NewRetriever(embedder, store, cfg.LLM.TopK, log)
	chain := rag.NewRetrievalChain(retriever, llm, cfg.LLM.SystemPrompt, log)

	opts := []rag.Option{
		rag.WithHooks(rag.Hooks{
			OnCache:  collector.RecordCache,
			OnAnswer: collector.RecordAnswer,
		}),
		rag.WithBufferSize(cfg.LLM.StreamBuffer),
		rag.WithLogger(log),
	}
	if cache != nil {
		opts = append(opts, rag.WithCache(cache))
	}
	return rag.NewService(chain, opts...), nil
}

func newEmbedder(cfg *config.Config) *rag.Embedder {
	return rag.NewEmbedder(rag.EmbedderConfig{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   seconds(cfg.Embedding.Timeout),
	}, logger.Component("embedding"))
}

func newPineconeStore(cfg *config.Config) *rag.PineconeStore {
	return rag.NewPineconeStore(rag.PineconeConfig{
		APIKey:        cfg.Pinecone.APIKey,
		IndexName:     cfg.Pinecone.IndexName,
		Host:          cfg.Pinecone.Host,
		Namespace:     cfg.Pinecone.Namespace,
		Cloud:         cfg.Pinecone.Cloud,
		Region:        cfg.Pinecone.Region,
		Dimension:     cfg.Pinecone.Dimension,
		Metric:        cfg.Pinecone.Metric,
		ControllerURL: cfg.Pinecone.ControllerURL,
		Timeout:       seconds(cfg.Pinecone.Timeout),
	}, logger.Component("pinecone"))
}

func logStartup(log *logrus.Entry, cfg *config.Config) {
	log.WithFields(logrus.Fields{
		"llm":   cfg.LLM.Type + "/" + cfg.LLM.Model,
		"tts":   cfg.TTS.Model,
		"vad":   cfg.ASR.VAD.Type,
		"cache": cfg.Cache.Type,
	}).Info("配置加载完成")
}
