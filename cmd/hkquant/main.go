package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"hkquant/internal/app"
	"hkquant/internal/config"
	"hkquant/internal/logger"
)

func main() {
	var (
		cfgPath    = flag.String("config", defaultConfigPath(), "配置文件路径")
		symbol     = flag.String("symbol", "0700.HK", "回测标的代码")
		strategies = flag.String("strategies", "", "参与对比的策略 id，逗号分隔，留空为全部")
		portfolio  = flag.String("portfolio", "", "组合回测模式：对整个股票池执行该策略")
		analyze    = flag.Bool("analyze", false, "输出股票池技术面快评")
		update     = flag.Bool("update", false, "立即刷新一次股票池行情缓存")
		serve      = flag.Bool("serve", false, "启动 HTTP 服务")
		schedule   = flag.Bool("schedule", false, "启动每日定时任务")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	if cfg.App.LLMDump {
		f, err := setupLLMLogOutput(cfg.App.LLMLog)
		if err != nil {
			log.Fatalf("初始化 LLM 日志失败: %v", err)
		}
		if f != nil {
			defer f.Close()
		}
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableLLMPayloadDump(cfg.App.LLMDump)
	logger.Infof("✓ 配置加载成功（环境=%s）", cfg.App.Env)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *schedule:
		err = application.Schedule(ctx, *serve)
	case *serve:
		err = application.Serve(ctx)
	case *update:
		err = application.RunDataUpdate(ctx)
	case *analyze:
		err = application.AnalyzePool(ctx)
	case *portfolio != "":
		err = application.RunPortfolio(ctx, *portfolio)
	default:
		err = application.RunComparison(ctx, *symbol, splitList(*strategies))
	}
	if err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("HKQUANT_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupLLMLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		logger.SetLLMWriter(os.Stdout)
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetLLMWriter(file)
	return file, nil
}
