package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/hyeseon-dev/startrade/startrade"
	"github.com/hyeseon-dev/startrade/startrade/commands"
	"github.com/hyeseon-dev/startrade/startrade/directory"
	"github.com/hyeseon-dev/startrade/startrade/ledger"
	"github.com/hyeseon-dev/startrade/startrade/logger"
	"github.com/hyeseon-dev/startrade/startrade/notify"
	"github.com/hyeseon-dev/startrade/startrade/pool"
	"github.com/hyeseon-dev/startrade/startrade/trade"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := startrade.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	customHandler := logger.NewHandler(cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting StarTrade bot",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var gw ledger.Gateway
	if cfg.Trade.MemoryLedger {
		slog.Warn("Using in-memory ledger; all sheets are lost on shutdown",
			slog.String("type", "sys"))
		gw = ledger.NewMemoryGateway()
	} else {
		dbStartTime := time.Now()
		sheetDB, err := ledger.NewSheetDB(ctx, cfg.DB)
		if err != nil {
			slog.Error("Ledger store connection failed",
				slog.String("error", err.Error()),
				slog.Duration("attempted_for", time.Since(dbStartTime)))
			os.Exit(-1)
		}
		defer sheetDB.Close()

		slog.Info("Ledger store connected successfully",
			slog.String("database", cfg.DB.Database),
			slog.Duration("took", time.Since(dbStartTime)))
		gw = sheetDB
	}

	b := startrade.New(*cfg, version, commit)
	b.Gateway = gw

	dir := directory.NewSheetDirectory(gw, cfg.Sheets.Roster)
	b.Directory = dir
	b.Resolver = pool.NewSheetResolver(gw, cfg.Sheets.Pools, cfg.Sheets.Changes)

	h := handler.New()
	tradeHandler := commands.NewTradeHandler(b)
	tradeHandler.Register(h)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	// The notifier and engine need the Discord client, so they come after
	// SetupBot. Command handlers read b.Engine lazily at event time.
	notifier := notify.NewDiscordNotifier(b.Client)
	b.Engine = trade.NewEngine(gw, dir, b.Resolver, notifier, cfg.Sheets, cfg.Trade.OperatorID)

	if err = b.Engine.Recover(ctx); err != nil {
		slog.Error("Failed to recover in-flight trades",
			slog.String("type", "trade"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	if players, err := dir.All(ctx); err == nil {
		names := make([]string, 0, len(players))
		for _, p := range players {
			names = append(names, p.Name)
		}
		b.Resolver.WarmCache(ctx, names)
	} else {
		slog.Warn("Skipping pool warm-up", slog.Any("error", err))
	}

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("error_details", fmt.Sprintf("%+v", err)),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	gwCtx, gwCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gwCancel()
	if err = b.Client.OpenGateway(gwCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	scanCtx, scanCancel := context.WithCancel(context.Background())
	defer scanCancel()
	go b.Engine.Run(scanCtx, b.ScanInterval())

	logger.LogSystem("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	logger.LogSystem("Shutting down bot...")
}
