package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simfleet/gopanel/internal/journal"
	"github.com/simfleet/gopanel/internal/orchestrator"
	"github.com/simfleet/gopanel/internal/panel"
	"github.com/simfleet/gopanel/internal/session"
	"github.com/simfleet/gopanel/internal/wallet"
	"github.com/simfleet/gopanel/pkg/config"
	"github.com/simfleet/gopanel/pkg/logger"
	"github.com/simfleet/gopanel/pkg/sdk/api"
	transport "github.com/simfleet/gopanel/pkg/sdk/http"
	"github.com/simfleet/gopanel/pkg/secretstore"
	"github.com/simfleet/gopanel/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "", "YAML 配置文件路径（可选，环境变量优先）")
	flag.Parse()

	if *configPath != "" {
		config.SetConfigPath(*configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// TUI 接管终端，日志只进文件
	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
		Console:    cfg.LogConsole,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("面板启动, 后端=%s", cfg.BackendURL)

	if err := run(cfg); err != nil {
		logger.Errorf("面板退出: %v", err)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ctrl+c / SIGTERM 走统一的优雅退出链路
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("收到信号 %v, 开始退出", sig)
		cancel()
	}()

	manager := shutdown.NewManager()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		manager.Shutdown(shutdownCtx)
	}()

	var encryptionKey []byte
	if raw := os.Getenv("GOPANEL_SECRET_KEY"); raw != "" {
		key, err := secretstore.ParseEncryptionKey(raw)
		if err != nil {
			return err
		}
		encryptionKey = key
	}
	secrets, err := secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.SecretStorePath,
		EncryptionKey: encryptionKey,
	})
	if err != nil {
		return err
	}
	manager.OnShutdown(func(context.Context) { _ = secrets.Close() })

	store := session.NewStore()
	httpClient := transport.NewClient(cfg.BackendURL, store)
	apiClient := api.NewClient(httpClient)

	w, err := wallet.NewLocalWallet(wallet.Options{
		RPCURL:  cfg.SolanaRPCURL,
		Secrets: secrets,
	})
	if err != nil {
		return err
	}

	journalStore, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	manager.OnShutdown(func(context.Context) { _ = journalStore.Close() })

	orch := orchestrator.New(apiClient, w, journalStore, nil)

	return panel.Run(ctx, panel.Deps{
		Session:      store,
		API:          apiClient,
		Orchestrator: orch,
		NewStream:    panel.DefaultStreamFactory(cfg.PortfolioWSURL),
		Username:     cfg.Username,
		Password:     cfg.Password,
	})
}
