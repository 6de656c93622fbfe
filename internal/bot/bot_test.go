package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/jobpost-bot/internal/conversation"
	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	err       error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

type fakeHandler struct {
	messages   []conversation.Inbound
	actions    []conversation.Action
	resets     []int64
	resetFound bool
	err        error
}

func (f *fakeHandler) HandleMessage(_ context.Context, in conversation.Inbound) error {
	f.messages = append(f.messages, in)
	return f.err
}

func (f *fakeHandler) HandleAction(_ context.Context, act conversation.Action) error {
	f.actions = append(f.actions, act)
	return f.err
}

func (f *fakeHandler) Reset(_ context.Context, chatID int64) (bool, error) {
	f.resets = append(f.resets, chatID)
	return f.resetFound, f.err
}

type fakeDrafts struct {
	drafts []models.Draft
	err    error
}

func (f *fakeDrafts) ListDrafts(_ context.Context) ([]models.Draft, error) {
	return f.drafts, f.err
}

func newTestBot() (*Bot, *fakeSender, *fakeHandler) {
	sender := &fakeSender{}
	handler := &fakeHandler{}
	return &Bot{
		sender:  sender,
		handler: handler,
		drafts:  &fakeDrafts{},
		queues:  newChatQueues(),
		logger:  zap.NewNop(),
	}, sender, handler
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: 42},
		From:      &tgbotapi.User{ID: 7},
	}
}

func command(name string) *tgbotapi.Message {
	msg := textMessage("/" + name)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name) + 1}}
	return msg
}

func TestMessageIsForwarded(t *testing.T) {
	b, _, h := newTestBot()

	b.handleUpdate(context.Background(), tgbotapi.Update{Message: textMessage("I need a backend developer")})

	require.Len(t, h.messages, 1)
	assert.Equal(t, conversation.Inbound{ChatID: 42, UserID: 7, Text: "I need a backend developer"}, h.messages[0])
}

func TestCaptionWinsOverText(t *testing.T) {
	b, _, h := newTestBot()
	msg := textMessage("")
	msg.Caption = "Hiring a designer"

	b.handleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	require.Len(t, h.messages, 1)
	assert.Equal(t, "Hiring a designer", h.messages[0].Text)
}

func TestIgnoredMessages(t *testing.T) {
	b, sender, h := newTestBot()

	fromBot := textMessage("hello")
	fromBot.From.IsBot = true
	anonymous := textMessage("hello")
	anonymous.From = nil

	for _, msg := range []*tgbotapi.Message{fromBot, anonymous, textMessage("")} {
		b.handleUpdate(context.Background(), tgbotapi.Update{Message: msg})
	}

	assert.Empty(t, h.messages)
	assert.Empty(t, sender.sent)
}

func TestHandlerErrorNotifiesUser(t *testing.T) {
	b, sender, h := newTestBot()
	h.err = errors.New("store down")

	b.handleUpdate(context.Background(), tgbotapi.Update{Message: textMessage("hiring")})

	require.Len(t, sender.texts(), 1)
	assert.Contains(t, sender.texts()[0], "something went wrong")
}

func TestCallbackQuery(t *testing.T) {
	b, sender, h := newTestBot()

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 7},
		Message: textMessage("offer"),
		Data:    conversation.ActionPost,
	}})

	require.Len(t, sender.requested, 1)
	answer, ok := sender.requested[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "q1", answer.CallbackQueryID)

	require.Len(t, h.actions, 1)
	assert.Equal(t, conversation.Action{ChatID: 42, UserID: 7, ActionID: conversation.ActionPost}, h.actions[0])
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name     string
		found    bool
		contains string
		resets   int
	}{
		{name: "start", contains: "Welcome to JobPost Bot"},
		{name: "help", contains: "/cancel"},
		{name: "cancel", found: true, contains: "Job posting cancelled", resets: 1},
		{name: "cancel", found: false, contains: "nothing to cancel", resets: 1},
		{name: "drafts", contains: "no saved drafts"},
		{name: "tags", contains: "Unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, sender, h := newTestBot()
			h.resetFound = tt.found

			b.handleUpdate(context.Background(), tgbotapi.Update{Message: command(tt.name)})

			require.Len(t, sender.texts(), 1)
			assert.Contains(t, sender.texts()[0], tt.contains)
			assert.Len(t, h.resets, tt.resets)
			assert.Empty(t, h.messages)
		})
	}
}

func TestSendRendersInlineKeyboard(t *testing.T) {
	b, sender, _ := newTestBot()

	err := b.Send(context.Background(), 42, models.Reply{
		Text: "We're hiring",
		Buttons: []models.Button{
			{Label: "Post Job", ActionID: "jd_post_yes", Style: "primary"},
			{Label: "Draft", ActionID: "jd_draft"},
			{Label: "No", ActionID: "jd_no", Style: "danger"},
		},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "We're hiring", msg.Text)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	row := markup.InlineKeyboard[0]
	require.Len(t, row, 3)
	assert.Equal(t, "✅ Post Job", row[0].Text)
	assert.Equal(t, "jd_post_yes", *row[0].CallbackData)
	assert.Equal(t, "Draft", row[1].Text)
	assert.Equal(t, "❌ No", row[2].Text)
}

func TestSendPlainTextHasNoKeyboard(t *testing.T) {
	b, sender, _ := newTestBot()

	require.NoError(t, b.Send(context.Background(), 42, models.Reply{Text: "What is the job title?"}))

	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Nil(t, msg.ReplyMarkup)
}

func TestSendWrapsError(t *testing.T) {
	b, sender, _ := newTestBot()
	sender.err = errors.New("blocked by user")

	err := b.Send(context.Background(), 42, models.Reply{Text: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sender.err)
}

func draft(id, title, location string, day int) models.Draft {
	var e models.Entities
	e.Set(models.AttrJobTitle, title)
	e.Set(models.AttrLocation, location)
	d := models.NewDraft(id, e)
	d.CreatedAt = time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
	return d
}

func TestDraftsCommandListsNewestFirst(t *testing.T) {
	b, sender, _ := newTestBot()
	var drafts []models.Draft
	for i := 1; i <= 7; i++ {
		drafts = append(drafts, draft(fmt.Sprintf("id-%d", i), fmt.Sprintf("Role %d", i), "Remote", i))
	}
	drafts = append(drafts, draft("id-8", "", "", 8))
	b.drafts = &fakeDrafts{drafts: drafts}

	b.handleUpdate(context.Background(), tgbotapi.Update{Message: command("drafts")})

	require.Len(t, sender.texts(), 1)
	text := sender.texts()[0]
	lines := strings.Split(text, "\n")
	require.Len(t, lines, maxListedDrafts+2)
	assert.Equal(t, "💾 Saved drafts:", lines[0])
	assert.Equal(t, "• Untitled (Job ID: id-8, 2026-01-08)", lines[1])
	assert.Equal(t, "• Role 7, Remote (Job ID: id-7, 2026-01-07)", lines[2])
	assert.Equal(t, "…and 3 more", lines[len(lines)-1])
}

func TestDraftsCommandStoreError(t *testing.T) {
	b, sender, _ := newTestBot()
	b.drafts = &fakeDrafts{err: errors.New("db down")}

	b.handleUpdate(context.Background(), tgbotapi.Update{Message: command("drafts")})

	require.Len(t, sender.texts(), 1)
	assert.Contains(t, sender.texts()[0], "couldn't load the drafts")
}

// telegramServer answers getMe and hands out one batch of updates.
type telegramServer struct {
	mu     sync.Mutex
	batch  []tgbotapi.Update
	served bool
}

func (s *telegramServer) Do(req *http.Request) (*http.Response, error) {
	var result any
	switch {
	case strings.HasSuffix(req.URL.Path, "/getMe"):
		result = tgbotapi.User{ID: 1, IsBot: true, UserName: "jobpost_bot"}
	case strings.HasSuffix(req.URL.Path, "/getUpdates"):
		s.mu.Lock()
		if s.served {
			s.mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			result = []tgbotapi.Update{}
			break
		}
		s.served = true
		result = s.batch
		s.mu.Unlock()
	default:
		result = true
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(tgbotapi.APIResponse{Ok: true, Result: raw})
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}, nil
}

type orderHandler struct {
	fakeHandler
	mu   sync.Mutex
	seen map[int64][]string
}

func (h *orderHandler) HandleMessage(_ context.Context, in conversation.Inbound) error {
	// Uneven work per message gives later updates a chance to overtake.
	if len(in.Text)%2 == 0 {
		time.Sleep(time.Millisecond)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[in.ChatID] = append(h.seen[in.ChatID], in.Text)
	return nil
}

func (h *orderHandler) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, texts := range h.seen {
		n += len(texts)
	}
	return n
}

func TestStartKeepsArrivalOrderPerChat(t *testing.T) {
	const perChat = 100

	var (
		batch []tgbotapi.Update
		want  = map[int64][]string{}
	)
	for i := 1; i <= perChat; i++ {
		for _, chatID := range []int64{42, 43} {
			text := fmt.Sprintf("message %d", i)
			batch = append(batch, tgbotapi.Update{
				UpdateID: len(batch) + 1,
				Message: &tgbotapi.Message{
					MessageID: len(batch) + 1,
					From:      &tgbotapi.User{ID: 7},
					Chat:      &tgbotapi.Chat{ID: chatID, Type: "group"},
					Text:      text,
				},
			})
			want[chatID] = append(want[chatID], text)
		}
	}

	b, err := NewWithClient("token", tgbotapi.APIEndpoint, &telegramServer{batch: batch}, nil, zap.NewNop())
	require.NoError(t, err)

	h := &orderHandler{seen: map[int64][]string{}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx, h) }()

	require.Eventually(t, func() bool { return h.total() == len(batch) }, 10*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, want[42], h.seen[42])
	assert.Equal(t, want[43], h.seen[43])
	assert.Zero(t, b.queues.size())
}
