// ingest 把本地文本切块、向量化后写入 Pinecone 索引，供检索使用
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vietguibot/internal/config"
	"vietguibot/internal/domain/rag"
	"vietguibot/internal/util/workqueue"
	"vietguibot/logger"
)

type document struct {
	ID     string
	Source string
	Text   string
}

func main() {
	configFile := flag.String("c", "system.conf", "配置文件路径")
	dir := flag.String("dir", "data", "待导入的文本目录，读取 .txt 和 .md")
	chunkSize := flag.Int("chunk-size", rag.DefaultChunkSize, "每块最大字符数")
	overlap := flag.Int("overlap", rag.DefaultChunkOverlap, "相邻块重叠字符数")
	batch := flag.Int("batch", 32, "每次向量化和写入的块数")
	workers := flag.Int("workers", 4, "并发数")
	flag.Parse()

	cfg, err := config.Load(*configFile, false)
	if err != nil {
		fmt.Printf("load config err: %+v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Printf("init log err: %+v\n", err)
		os.Exit(1)
	}
	log := logger.Component("ingest")

	zl, err := zap.NewProduction()
	if err == nil {
		defer zl.Sync()
		defer zap.ReplaceGlobals(zl)()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs, err := loadDocuments(*dir, *chunkSize, *overlap)
	if err != nil {
		log.Errorf("读取文本失败: %v", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		log.Warnf("目录 %s 中没有可导入的文本", *dir)
		return
	}
	log.Infof("共 %d 个文本块, 开始导入", len(docs))

	embedder := rag.NewEmbedder(rag.EmbedderConfig{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   time.Duration(cfg.Embedding.Timeout) * time.Second,
	}, logger.Component("embedding"))
	store := rag.NewPineconeStore(rag.PineconeConfig{
		APIKey:        cfg.Pinecone.APIKey,
		IndexName:     cfg.Pinecone.IndexName,
		Host:          cfg.Pinecone.Host,
		Namespace:     cfg.Pinecone.Namespace,
		Cloud:         cfg.Pinecone.Cloud,
		Region:        cfg.Pinecone.Region,
		Dimension:     cfg.Pinecone.Dimension,
		Metric:        cfg.Pinecone.Metric,
		ControllerURL: cfg.Pinecone.ControllerURL,
		Timeout:       time.Duration(cfg.Pinecone.Timeout) * time.Second,
	}, logger.Component("pinecone"))
	if err := store.EnsureIndex(ctx); err != nil {
		log.Errorf("Pinecone 索引不可用: %v", err)
		os.Exit(1)
	}

	var (
		upserted atomic.Int64
		errMu    sync.Mutex
		errs     []error
	)
	startTs := time.Now()
	workqueue.ParallelizeChunks(ctx, *workers, len(docs), *batch, func(start, end int) {
		n, err := ingestBatch(ctx, embedder, store, docs[start:end])
		if err != nil {
			errMu.Lock()
			errs = append(errs, fmt.Errorf("batch [%d,%d): %w", start, end, err))
			errMu.Unlock()
			return
		}
		upserted.Add(int64(n))
	})

	for _, err := range errs {
		log.Error(err)
	}
	log.Infof("导入完成, 写入 %d/%d, 失败批次 %d, 耗时 %s", upserted.Load(), len(docs), len(errs), time.Since(startTs))
	if len(errs) > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}

func ingestBatch(ctx context.Context, embedder *rag.Embedder, store *rag.PineconeStore, docs []document) (int, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := embedder.EmbedFloat32(ctx, texts)
	if err != nil {
		return 0, err
	}

	batch := make([]rag.Vector, len(docs))
	for i, d := range docs {
		batch[i] = rag.Vector{
			ID:     d.ID,
			Values: vectors[i],
			Metadata: map[string]any{
				"text":   d.Text,
				"source": d.Source,
			},
		}
	}
	return store.Upsert(ctx, batch)
}

// loadDocuments 遍历目录切块，块 ID 由来源路径和序号决定，重复导入会覆盖而不是新增
func loadDocuments(root string, size, overlap int) ([]document, error) {
	var docs []document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
		default:
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		for i, chunk := range rag.SplitText(string(data), size, overlap) {
			docs = append(docs, document{
				ID:     uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", rel, i))).String(),
				Source: rel,
				Text:   chunk,
			})
		}
		return nil
	})
	return docs, err
}
