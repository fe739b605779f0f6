package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aiwuxian/sanguo-rpg/internal/api"
	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/combat"
	"github.com/aiwuxian/sanguo-rpg/internal/gacha"
	"github.com/aiwuxian/sanguo-rpg/internal/logger"
	"github.com/aiwuxian/sanguo-rpg/internal/metrics"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/narrative"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
	"github.com/aiwuxian/sanguo-rpg/internal/services"
	"github.com/aiwuxian/sanguo-rpg/internal/session"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

const envPrefix = "SANGUO"

func main() {
	configPath := flag.String("config", "config.yml", "配置文件路径")
	flag.Parse()

	// 加载配置
	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog, err := logger.New(config.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Sync()

	if err := run(config, zlog); err != nil {
		zlog.Fatal("服务异常退出", zap.Error(err))
	}
}

func run(config *models.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	store, err := storage.New(config.Database.Path)
	if err != nil {
		return fmt.Errorf("初始化数据库失败: %w", err)
	}
	defer store.Close()

	content, err := catalog.LoadDir(config.ContentDir)
	if err != nil {
		return fmt.Errorf("加载游戏内容失败: %w", err)
	}
	zlog.Info("📚 游戏内容已加载",
		zap.Int("openings", len(content.Openings)),
		zap.Int("events", len(content.Events)),
		zap.Int("units", len(content.Units)),
		zap.Int("challenges", len(content.Challenges)))

	game := config.Game
	src := rng.Default()
	m := metrics.New()

	// 初始化服务
	rules := services.NewRuleEngine(game.Leveling, src)
	ledger := services.NewLedgerService(store, content, rules, game.Leveling, services.NewLocks(), m, zlog)
	sessions := session.NewMemoryStore[services.AdventureSession](game.SessionTTL)

	adventureService := services.NewAdventureService(store, ledger, narrative.NewEngine(content, src), sessions, game, zlog)
	if config.LLM.Enabled {
		llm, err := services.NewLLMService(config.LLM)
		if err != nil {
			zlog.Warn("LLM 未启用", zap.Error(err))
		} else {
			adventureService.WithNarrator(llm)
			zlog.Info("🤖 LLM 说书人已启用", zap.String("model", config.LLM.Model))
		}
	}

	handler := api.NewHandler(
		services.NewActorService(store, content, ledger, game, zlog),
		adventureService,
		services.NewBattleService(store, content, ledger, combat.NewResolver(game.Combat, content.Units, src), game, zlog),
		services.NewRecruitService(store, content, ledger, gacha.NewEngine(game.Gacha, content, src), game, zlog),
		services.NewStealService(store, content, ledger, game, zlog),
		services.NewShopService(store, content, ledger, game, zlog),
		ledger,
		store,
		zlog,
	)

	if config.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(handler, m.Handler(), zlog)

	// 定期清理过期的冒险会话
	go sessions.Run(ctx, time.Minute, func(n int) {
		m.ActiveSessions.Set(float64(sessions.Len()))
		if n > 0 {
			zlog.Info("清理过期冒险", zap.Int("count", n))
		}
	})

	addr := fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("🏯 三国服务启动", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zlog.Info("正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭服务器失败: %w", err)
	}
	zlog.Info("👋 服务已关闭")
	return nil
}

// loadConfig 默认值 <- 配置文件 <- 环境变量。配置文件不存在时只用默认值和环境变量。
func loadConfig(path string) (*models.Config, error) {
	config := models.DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := envconfig.Process(envPrefix, &config); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}
	return &config, nil
}
