package core

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/medqa-ai/medqa/app/core/srv"
	"github.com/medqa-ai/medqa/pkg/ai/deepseek"
	"github.com/medqa-ai/medqa/pkg/answer"
	"github.com/medqa-ai/medqa/pkg/retrieval"
	"github.com/medqa-ai/medqa/pkg/sanitize"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	generator *answer.Generator
	formatter *answer.Formatter

	httpEngine *gin.Engine
	metrics    *Metrics
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28,   //days
				Compress:   true, // disabled by default
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("medqa", "core"),
		httpEngine: gin.New(),
	}

	policy := sanitize.NewPolicy()
	if cfg.Sanitize.WordsPath != "" {
		var err error
		policy, err = sanitize.NewPolicyFromFile(cfg.Sanitize.WordsPath)
		if err != nil {
			panic(fmt.Errorf("加载敏感词文件失败: %w", err))
		}
	}
	sanitizer := sanitize.New(policy)

	driver := deepseek.New(cfg.AI.Token, cfg.AI.Endpoint, cfg.AI.Model)

	// 本地检索产物缺失属于部署错误，直接终止启动
	offline, err := retrieval.NewOfflineRetriever(cfg.Retrieval.IndexDir, cfg.Retrieval.CorpusPath, driver)
	if err != nil {
		panic(fmt.Errorf("初始化本地检索失败: %w", err))
	}
	online := retrieval.NewWebRetriever(cfg.Retrieval.WebEndpoint, cfg.Retrieval.WebAPIKey)

	core.srv = srv.SetupSrvs(
		srv.ApplyAI(driver, driver),
		srv.ApplyRetrievers(online, offline),
		srv.ApplySanitizer(sanitizer),
	)

	core.generator = answer.NewGenerator(core.srv.AI().Chat(), core.srv.OnlineRetriever(), core.srv.OfflineRetriever()).
		WithRetryHook(core.metrics.GenerateRetryInc).
		WithRetrievalHook(core.metrics.RetrievalObserve)
	core.formatter = answer.NewFormatter(core.srv.Sanitizer())

	slog.Info("core ready",
		slog.String("chat_model", cfg.AI.Model.ChatModel),
		slog.String("model_lang", core.srv.AI().Lang()))

	return core
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

func (s *Core) Generator() *answer.Generator {
	return s.generator
}

func (s *Core) Formatter() *answer.Formatter {
	return s.formatter
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}
