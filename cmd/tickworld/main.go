package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/l1jgo/tickworld/internal/app"
	"github.com/l1jgo/tickworld/internal/config"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/persist"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             tickworld  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        600ms tick engine · Go 伺服器      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := humanize.Comma(int64(count))
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("TICKWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if err := packet.SetCharset(cfg.Network.Charset); err != nil {
		return fmt.Errorf("charset: %w", err)
	}

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to the database and run migrations
	printSection("資料庫")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK(fmt.Sprintf("%s 連線成功", db.Driver))

	if err := persist.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("資料庫遷移完成")

	// Accounts left online by a crash.
	if n, err := persist.NewAccountRepo(db).ResetOnline(ctx); err != nil {
		return fmt.Errorf("reset online accounts: %w", err)
	} else if n > 0 {
		printStat("重設在線帳號", int(n))
	}
	fmt.Println()

	// 4. Assemble the application
	printSection("資料載入")

	a, cleanup, err := app.Build(cfg, db, log)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer cleanup()

	printStat("NPC 模板", a.Tables.Npcs.Count())
	printStat("商店", a.Tables.Shops.Count())
	spawned, err := a.Populate()
	if err != nil {
		return fmt.Errorf("spawn npcs: %w", err)
	}
	printStat("NPC 生成", spawned)
	printStat("排程任務", a.Scheduler.Len())
	fmt.Println()

	// 5. Run until signalled
	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", a.Server.Addr().String()))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s, 策略: %s)", cfg.Tick.Period, a.Update.Name()))
	fmt.Println()

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(runCtx); err != nil {
		return err
	}
	log.Info("收到關閉信號")

	// 6. Save everyone and stop
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer saveCancel()
	if err := a.Shutdown(saveCtx); err != nil {
		log.Error("關機存檔失敗", zap.Error(err))
	}
	log.Info("伺服器已停止",
		zap.String("ticks", humanize.Comma(int64(a.Driver.Ticks()))),
		zap.Uint64("overruns", a.Driver.Overruns()),
		zap.Int("evicted", a.World.Evicted()),
	)
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
