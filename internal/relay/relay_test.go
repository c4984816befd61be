package relay

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"telechan/internal/channel"
	"telechan/internal/session"
)

type memRepo struct{ channels []channel.Channel }

func (m *memRepo) Load() ([]channel.Channel, error) {
	return append([]channel.Channel{}, m.channels...), nil
}
func (m *memRepo) Save(channels []channel.Channel) error {
	m.channels = append([]channel.Channel{}, channels...)
	return nil
}

type published struct {
	chatID int64
	html   string
	id     int
}

// fakeClient simulates Telegram's per-chat message-id sequence.
type fakeClient struct {
	mu        sync.Mutex
	usernames map[int64]string
	nextID    int
	published []published
	deleted   []int
	private   []string

	publishErr error
	notifyErr  error
}

func (f *fakeClient) ChannelUsername(chatID int64) (string, error) {
	return f.usernames[chatID], nil
}

func (f *fakeClient) Publish(chatID int64, html string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return 0, f.publishErr
	}
	f.nextID++
	f.published = append(f.published, published{chatID: chatID, html: html, id: f.nextID})
	return f.nextID, nil
}

func (f *fakeClient) Delete(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeClient) SendPrivate(userID int64, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.private = append(f.private, html)
	return nil
}

func newTestEngine(t *testing.T, client *fakeClient) (*Engine, *session.Memory) {
	t.Helper()
	registry, err := channel.NewRegistry(
		&memRepo{channels: []channel.Channel{{ID: -100500, Author: 1}}},
		channel.Channel{},
	)
	require.NoError(t, err)
	sessions := session.NewMemory()
	return NewEngine(sessions, registry, client), sessions
}

func TestRelay_BootstrapProbeOnFirstMessage(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{usernames: map[int64]string{-100500: "board"}, nextID: 40}
	e, sessions := newTestEngine(t, client)

	post, err := e.Relay(7, "hello")
	req.NoError(err)

	// probe consumed id 41 and was deleted, the real post got 42
	req.Len(client.published, 2)
	req.Equal("…", client.published[0].html)
	req.Equal([]int{41}, client.deleted)
	req.Equal(int64(42), post.Index)
	req.Equal("https://t.me/board/42", post.Permalink)
	req.Contains(client.published[1].html, `<a href="https://t.me/board/42">42</a>`)
	req.Contains(client.published[1].html, "hello")

	// relay state persisted, probe not repeated
	idx, ok, err := sessions.LastIndex(-100500)
	req.NoError(err)
	req.True(ok)
	req.Equal(int64(42), idx)

	post, err = e.Relay(8, "again")
	req.NoError(err)
	req.Equal(int64(43), post.Index)
	req.Len(client.deleted, 1)
}

func TestRelay_DefaultSessionCreatedLazily(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{usernames: map[int64]string{}}
	e, sessions := newTestEngine(t, client)

	_, err := e.Relay(7, "hi")
	req.NoError(err)

	current, ok, err := sessions.CurrentChannel(7)
	req.NoError(err)
	req.True(ok, "first relay must create the session")
	req.Equal(int64(-100500), current)
}

func TestRelay_SenderGetsBackLink(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{usernames: map[int64]string{-100500: "board"}}
	e, _ := newTestEngine(t, client)

	post, err := e.Relay(7, "hi")
	req.NoError(err)
	req.Len(client.private, 1)
	req.Equal(fmt.Sprintf(`<a href="%s">Link to your message.</a>`, post.Permalink), client.private[0])
}

func TestRelay_IndicesStrictlyIncreasingAcrossSenders(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{usernames: map[int64]string{-100500: "board"}}
	e, _ := newTestEngine(t, client)

	const n = 20
	indices := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			post, err := e.Relay(int64(i), fmt.Sprintf("msg %d", i))
			if err != nil {
				t.Errorf("relay %d: %v", i, err)
				return
			}
			indices[i] = post.Index
		}(i)
	}
	wg.Wait()

	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for i := 1; i < n; i++ {
		req.Equal(indices[i-1]+1, indices[i], "indices must be gap-free: %v", indices)
	}
}

func TestRelay_DriftResyncsToPostedID(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{usernames: map[int64]string{-100500: "board"}}
	e, sessions := newTestEngine(t, client)

	_, err := e.Relay(7, "first")
	req.NoError(err)

	// an external publisher consumes two platform ids behind our back
	client.mu.Lock()
	client.nextID += 2
	client.mu.Unlock()

	post, err := e.Relay(7, "second")
	req.NoError(err)

	idx, _, err := sessions.LastIndex(-100500)
	req.NoError(err)
	req.Equal(post.Index, idx, "last_index must adopt the platform id")

	// next relay continues from the adopted watermark with no gap
	next, err := e.Relay(7, "third")
	req.NoError(err)
	req.Equal(post.Index+1, next.Index)
}

func TestRelay_DeletedChannelFallsBackToDefault(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{usernames: map[int64]string{}}
	registry, err := channel.NewRegistry(
		&memRepo{channels: []channel.Channel{{ID: -100500, Author: 1}, {ID: -100600, Author: 2}}},
		channel.Channel{},
	)
	req.NoError(err)
	sessions := session.NewMemory()
	e := NewEngine(sessions, registry, client)

	req.NoError(sessions.SetCurrentChannel(7, -100600))
	req.NoError(registry.Remove(-100600))

	post, err := e.Relay(7, "hello")
	req.NoError(err)
	req.Equal(int64(-100500), post.ChannelID, "post must land on the default channel")
	for _, p := range client.published {
		req.Equal(int64(-100500), p.chatID, "nothing may be published to the delisted channel")
	}

	// and the stale session is repaired
	current, ok, err := sessions.CurrentChannel(7)
	req.NoError(err)
	req.True(ok)
	req.Equal(int64(-100500), current)
}

func TestRelay_PublishFailure(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{usernames: map[int64]string{}, publishErr: errors.New("boom")}
	e, sessions := newTestEngine(t, client)

	_, err := e.Relay(7, "hi")
	req.ErrorIs(err, ErrRelayFailure)

	// no state written for the failed relay
	_, ok, _ := sessions.LastIndex(-100500)
	req.False(ok)
}

func TestRelay_NotifyFailureAfterPublish(t *testing.T) {
	req := require.New(t)
	client := &fakeClient{usernames: map[int64]string{}, notifyErr: errors.New("blocked")}
	e, sessions := newTestEngine(t, client)

	post, err := e.Relay(7, "hi")
	req.ErrorIs(err, ErrRelayFailure)

	// the channel post stays up and the index is consumed
	req.Len(client.published, 2) // probe + message
	req.NotZero(post.Index)
	idx, ok, _ := sessions.LastIndex(-100500)
	req.True(ok)
	req.Equal(post.Index, idx)
}

func TestPermalink(t *testing.T) {
	req := require.New(t)
	req.Equal("https://t.me/board/7", Permalink(-1001234, "board", 7))
	// private channels link through t.me/c with the -100 prefix stripped
	req.Equal("https://t.me/c/1234/7", Permalink(-1001234, "", 7))
}
