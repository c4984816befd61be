package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telechan/internal/membership"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type botAPISender struct{ api *tgbotapi.BotAPI }

func (s botAPISender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.api.Send(c)
}

// apiClient adapts tgbotapi for the membership manager (Resolver) and the
// relay engine (Client).
type apiClient struct {
	api       *tgbotapi.BotAPI
	parseMode string
}

func (c *apiClient) ResolveChannel(handle string) (membership.ChatInfo, error) {
	cfg := tgbotapi.ChatInfoConfig{}
	if id, err := strconv.ParseInt(handle, 10, 64); err == nil {
		cfg.ChatConfig = tgbotapi.ChatConfig{ChatID: id}
	} else {
		if !strings.HasPrefix(handle, "@") {
			handle = "@" + handle
		}
		cfg.ChatConfig = tgbotapi.ChatConfig{SuperGroupUsername: handle}
	}
	chat, err := c.api.GetChat(cfg)
	if err != nil {
		return membership.ChatInfo{}, fmt.Errorf("get chat %q: %w", handle, err)
	}
	return membership.ChatInfo{ID: chat.ID, Username: chat.UserName, Title: chat.Title}, nil
}

func (c *apiClient) BotRights(chatID int64) (bool, bool, error) {
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: c.api.Self.ID},
	})
	if err != nil {
		return false, false, fmt.Errorf("get chat member for %d: %w", chatID, err)
	}
	return member.CanPostMessages, member.CanDeleteMessages, nil
}

func (c *apiClient) ChannelUsername(chatID int64) (string, error) {
	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return "", fmt.Errorf("get chat %d: %w", chatID, err)
	}
	return chat.UserName, nil
}

func (c *apiClient) Publish(chatID int64, html string) (int, error) {
	m := tgbotapi.NewMessage(chatID, html)
	m.ParseMode = c.parseMode
	m.DisableWebPagePreview = true
	sent, err := c.api.Send(m)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *apiClient) Delete(chatID int64, messageID int) error {
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (c *apiClient) SendPrivate(userID int64, html string) error {
	m := tgbotapi.NewMessage(userID, html)
	m.ParseMode = c.parseMode
	m.DisableWebPagePreview = true
	_, err := c.api.Send(m)
	return err
}
