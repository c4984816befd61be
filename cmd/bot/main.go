package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"telechan/internal/channel"
	"telechan/internal/config"
	"telechan/internal/scheduler"
	"telechan/internal/session"
	"telechan/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	repo, err := channel.NewFileRepository(cfg.ChannelsFilePath)
	if err != nil {
		log.Fatalf("failed to init channels file: %v", err)
	}
	registry, err := channel.NewRegistry(repo, channel.Channel{
		ID:          cfg.DefaultChannelID,
		Author:      cfg.AdminUserID,
		Description: "Default channel",
	})
	if err != nil {
		log.Fatalf("failed to load channel registry: %v", err)
	}

	store, err := session.OpenBadger(cfg.SessionsDBPath)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close session store: %v", err)
		}
	}()

	bot, err := telegram.New(cfg.TelegramBotToken, cfg.MessageParseMode, registry, store)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	sched := scheduler.New()
	sched.SetMaintenanceFunction(func(ctx context.Context) error {
		return store.Maintain()
	})
	if err := sched.Start(); err != nil {
		log.Printf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down")
		cancel()
	}()

	bot.Start(ctx)
}
