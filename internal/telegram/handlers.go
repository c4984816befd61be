package telegram

import (
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telechan/internal/channel"
	"telechan/internal/membership"
	"telechan/internal/relay"
)

func splitArgs(raw string) []string {
	return strings.Fields(raw)
}

func (b *Bot) handleStart(msg *tgbotapi.Message, _ []string) {
	ch, err := b.membership.Reset(msg.From.ID)
	if err != nil {
		log.Printf("start for %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"Hi! Anything you write here is posted anonymously to %s.\n"+
			"Use /join_channel to post somewhere else, /help for everything I can do.",
		channelLabel(ch)))
}

// /add_channel <handle> [password] [description...]
func (b *Bot) handleAddChannel(msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		b.sendMessage(msg.Chat.ID, "Usage: /add_channel &lt;handle&gt; [password] [description]")
		return
	}
	handle := args[0]
	var password, description string
	if len(args) > 1 {
		password = args[1]
	}
	if len(args) > 2 {
		description = strings.Join(args[2:], " ")
	}
	ch, err := b.membership.Register(msg.From.ID, handle, password, description)
	if err != nil {
		log.Printf("add_channel %q for %d: %v", handle, msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"Your channel was added to the list! You are now posting to %s.", channelLabel(ch)))
}

// /join_channel <handle> [password]
func (b *Bot) handleJoinChannel(msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		b.sendMessage(msg.Chat.ID, "Usage: /join_channel &lt;handle&gt; [password]")
		return
	}
	var password string
	if len(args) > 1 {
		password = args[1]
	}
	ch, err := b.membership.Join(msg.From.ID, args[0], password)
	if err != nil {
		log.Printf("join_channel %q for %d: %v", args[0], msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("You are now posting to %s.", channelLabel(ch)))
}

func (b *Bot) handleLeaveChannel(msg *tgbotapi.Message, _ []string) {
	ch, err := b.membership.Leave(msg.From.ID)
	if err != nil {
		log.Printf("leave_channel for %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("You are back on %s.", channelLabel(ch)))
}

// /delete_channel <handle>
func (b *Bot) handleDeleteChannel(msg *tgbotapi.Message, args []string) {
	if len(args) != 1 {
		b.sendMessage(msg.Chat.ID, "Usage: /delete_channel &lt;handle&gt;")
		return
	}
	if err := b.membership.Delete(msg.From.ID, args[0]); err != nil {
		log.Printf("delete_channel %q for %d: %v", args[0], msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	b.sendMessage(msg.Chat.ID, "The channel was removed from the list.")
}

func (b *Bot) handleChannels(msg *tgbotapi.Message, _ []string) {
	var bld strings.Builder
	bld.WriteString("Registered channels:\n")
	for i, ch := range b.membership.List() {
		bld.WriteString(fmt.Sprintf("- %s", channelLabel(ch)))
		if i == 0 {
			bld.WriteString(" (default)")
		}
		if !ch.Open() {
			bld.WriteString(" 🔒")
		}
		bld.WriteString("\n")
	}
	b.sendMessage(msg.Chat.ID, bld.String())
}

func (b *Bot) handleCurrentChannel(msg *tgbotapi.Message, _ []string) {
	ch, err := b.membership.Current(msg.From.ID)
	if err != nil {
		log.Printf("current_channel for %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("You are posting to %s.", channelLabel(ch)))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message, _ []string) {
	b.sendMessage(msg.Chat.ID,
		"Send me any text and I post it anonymously to your current channel.\n\n"+
			"/join_channel &lt;handle&gt; [password] — switch to a registered channel\n"+
			"/leave_channel — go back to the default channel\n"+
			"/add_channel &lt;handle&gt; [password] [description] — register a channel you own\n"+
			"/delete_channel &lt;handle&gt; — remove a channel you registered\n"+
			"/channels — list registered channels\n"+
			"/current_channel — show where you are posting\n"+
			"/start — reset to the default channel")
}

func (b *Bot) handleRelay(msg *tgbotapi.Message) {
	log.Printf("relaying message from %d (@%s)", msg.From.ID, msg.From.UserName)
	body := EntitiesToHTML(msg.Text, msg.Entities)
	post, err := b.relay.Relay(msg.From.ID, body)
	if err != nil {
		log.Printf("relay for %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	log.Printf("relayed message %d to channel %d", post.Index, post.ChannelID)
}

// channelLabel is the human-readable form of a channel in bot replies.
func channelLabel(ch channel.Channel) string {
	if ch.Description != "" {
		return fmt.Sprintf("%s (%d)", html.EscapeString(ch.Description), ch.ID)
	}
	return fmt.Sprintf("channel %d", ch.ID)
}

// errorText maps an operation error to the plain-language reply the user
// sees. Every failure gets feedback; nothing is swallowed.
func errorText(err error) string {
	switch {
	case errors.Is(err, membership.ErrNotFound):
		return "I couldn't find that channel. Check the handle and try again."
	case errors.Is(err, membership.ErrAlreadyRegistered):
		return "This channel is already in the list."
	case errors.Is(err, membership.ErrInsufficientPermissions):
		return "It appears the bot can't post and delete messages in that channel. Please check the bot's permissions."
	case errors.Is(err, membership.ErrUnknownChannel):
		return "That channel is not in the list. Register it with /add_channel first."
	case errors.Is(err, membership.ErrWrongPassword):
		return "Wrong password for that channel."
	case errors.Is(err, membership.ErrCannotLeaveDefault):
		return "You are on the default channel, there is nothing to leave."
	case errors.Is(err, membership.ErrCannotDeleteDefault):
		return "The default channel can't be deleted."
	case errors.Is(err, membership.ErrNotAuthor):
		return "Only the user who registered this channel can delete it."
	case errors.Is(err, relay.ErrRelayFailure):
		return "Failed to relay your message. Please try again."
	default:
		return "Sorry, something went wrong."
	}
}
