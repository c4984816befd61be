package telegram

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telechan/internal/channel"
	"telechan/internal/membership"
	"telechan/internal/relay"
	"telechan/internal/session"
)

// command is a single bot operation dispatched by name.
type command func(msg *tgbotapi.Message, args []string)

type Bot struct {
	api        *tgbotapi.BotAPI
	s          sender
	membership *membership.Manager
	relay      *relay.Engine
	parseMode  string
	routes     map[string]command
}

func New(botToken, parseMode string, registry *channel.Registry, sessions session.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	client := &apiClient{api: api, parseMode: parseMode}
	b := &Bot{
		api:        api,
		s:          botAPISender{api: api},
		membership: membership.NewManager(registry, sessions, client),
		relay:      relay.NewEngine(sessions, registry, client),
		parseMode:  parseMode,
	}
	b.setupRoutes()
	return b, nil
}

func (b *Bot) setupRoutes() {
	b.routes = map[string]command{
		"start":           b.handleStart,
		"add_channel":     b.handleAddChannel,
		"join_channel":    b.handleJoinChannel,
		"leave_channel":   b.handleLeaveChannel,
		"delete_channel":  b.handleDeleteChannel,
		"channels":        b.handleChannels,
		"current_channel": b.handleCurrentChannel,
		"help":            b.handleHelp,
	}
}

// route returns the operation registered for a command name.
func (b *Bot) route(name string) (command, bool) {
	c, ok := b.routes[name]
	return c, ok
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	log.Printf("bot @%s is up", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleIncomingMessage(msg *tgbotapi.Message) {
	if msg.From == nil || !msg.Chat.IsPrivate() {
		// Relaying is driven from private chats only; channel and group
		// traffic is not ours to repost.
		return
	}
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}
	if msg.Text == "" {
		b.sendMessage(msg.Chat.ID, "Only text messages can be posted for now.")
		return
	}
	b.handleRelay(msg)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	log.Printf("command /%s from %d (@%s)", msg.Command(), msg.From.ID, msg.From.UserName)
	op, ok := b.route(msg.Command())
	if !ok {
		b.sendMessage(msg.Chat.ID, "Unknown command. See /help for what I can do.")
		return
	}
	op(msg, splitArgs(msg.CommandArguments()))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseMode
	msg.DisableWebPagePreview = true
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
