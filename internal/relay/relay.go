// Package relay republishes user text into a channel under a sequential
// per-channel index, hiding the sender's identity behind a permalink.
package relay

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"telechan/internal/channel"
	"telechan/internal/session"
)

// ErrRelayFailure covers any failed resolve/publish/notify step. A notify
// failure after a successful publish is not rolled back: the channel post
// stays up, the sender just never gets their back-link.
var ErrRelayFailure = errors.New("relay failed")

const (
	// Telegram prefixes supergroup/channel ids with -100; the t.me/c/ link
	// form wants the id without it.
	chatIDPrefix = "-100"

	bodySeparator = " | "

	// Posted and deleted once per channel to learn the platform's current
	// message-id position.
	probeText = "…"
)

// Client is the slice of the messaging platform the engine needs.
type Client interface {
	// ChannelUsername returns the channel's public username, or "" when the
	// channel has none.
	ChannelUsername(chatID int64) (string, error)
	Publish(chatID int64, html string) (messageID int, err error)
	Delete(chatID int64, messageID int) error
	SendPrivate(userID int64, html string) error
}

// Post describes a successfully relayed message.
type Post struct {
	ChannelID int64
	Index     int64
	Permalink string
}

type Engine struct {
	sessions session.Store
	registry *channel.Registry
	client   Client

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewEngine(sessions session.Store, registry *channel.Registry, client Client) *Engine {
	return &Engine{
		sessions: sessions,
		registry: registry,
		client:   client,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Relay publishes bodyHTML to the sender's current channel under the next
// sequential index and sends the sender a private back-link. Index
// assignment, publish and persist run under the channel's mutex, so indices
// are gap-free across interleaved senders.
func (e *Engine) Relay(senderID int64, bodyHTML string) (Post, error) {
	chID, err := e.currentChannel(senderID)
	if err != nil {
		return Post{}, err
	}

	username, err := e.client.ChannelUsername(chID)
	if err != nil {
		return Post{}, fmt.Errorf("%w: resolve channel %d: %v", ErrRelayFailure, chID, err)
	}

	lock := e.channelLock(chID)
	lock.Lock()
	next, err := e.nextIndex(chID)
	if err != nil {
		lock.Unlock()
		return Post{}, err
	}

	permalink := Permalink(chID, username, next)
	body := fmt.Sprintf(`<a href="%s">%d</a>%s%s`, permalink, next, bodySeparator, bodyHTML)

	postedID, err := e.client.Publish(chID, body)
	if err != nil {
		lock.Unlock()
		return Post{}, fmt.Errorf("%w: publish to %d: %v", ErrRelayFailure, chID, err)
	}
	if int64(postedID) != next {
		// Someone else posted between index assignment and publish; adopt
		// the platform's id so the next relay is consistent again.
		log.Printf("relay index drift in channel %d: expected %d, posted %d", chID, next, postedID)
		next = int64(postedID)
		permalink = Permalink(chID, username, next)
	}
	if err := e.sessions.SetLastIndex(chID, next); err != nil {
		lock.Unlock()
		return Post{}, fmt.Errorf("%w: persist index for %d: %v", ErrRelayFailure, chID, err)
	}
	lock.Unlock()

	post := Post{ChannelID: chID, Index: next, Permalink: permalink}
	reply := fmt.Sprintf(`<a href="%s">Link to your message.</a>`, permalink)
	if err := e.client.SendPrivate(senderID, reply); err != nil {
		return post, fmt.Errorf("%w: message %s is published but the sender notification failed: %v",
			ErrRelayFailure, permalink, err)
	}
	return post, nil
}

// currentChannel returns the sender's channel, creating the session on first
// contact. A session pointing at a delisted channel is reset to the default:
// deleting a channel must stop anonymous posts into it.
func (e *Engine) currentChannel(senderID int64) (int64, error) {
	chID, ok, err := e.sessions.CurrentChannel(senderID)
	if err != nil {
		return 0, fmt.Errorf("%w: load session: %v", ErrRelayFailure, err)
	}
	if ok {
		if _, registered := e.registry.Get(chID); registered {
			return chID, nil
		}
	}
	chID = e.registry.Default().ID
	if err := e.sessions.SetCurrentChannel(senderID, chID); err != nil {
		return 0, fmt.Errorf("%w: persist session: %v", ErrRelayFailure, err)
	}
	return chID, nil
}

// nextIndex returns last_index+1, bootstrapping the channel on first use.
// Telegram never exposes a chat's post count, so the bootstrap posts a
// throwaway message, reads its id and deletes it. Caller holds the channel
// lock.
func (e *Engine) nextIndex(chID int64) (int64, error) {
	last, ok, err := e.sessions.LastIndex(chID)
	if err != nil {
		return 0, fmt.Errorf("%w: load relay state for %d: %v", ErrRelayFailure, chID, err)
	}
	if !ok {
		probeID, err := e.client.Publish(chID, probeText)
		if err != nil {
			return 0, fmt.Errorf("%w: bootstrap probe for %d: %v", ErrRelayFailure, chID, err)
		}
		if err := e.client.Delete(chID, probeID); err != nil {
			// The probe stays visible; still usable as the watermark.
			log.Printf("failed to delete bootstrap probe %d in channel %d: %v", probeID, chID, err)
		}
		last = int64(probeID)
	}
	return last + 1, nil
}

func (e *Engine) channelLock(chID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[chID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[chID] = lock
	}
	return lock
}

// Permalink builds the t.me link for a post: the public username form when
// the channel has one, the t.me/c/<id> form otherwise.
func Permalink(chatID int64, username string, index int64) string {
	if username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", username, index)
	}
	short := strings.TrimPrefix(strconv.FormatInt(chatID, 10), chatIDPrefix)
	return fmt.Sprintf("https://t.me/c/%s/%d", short, index)
}
