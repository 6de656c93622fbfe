package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatQueues buffers updates per chat. A chat has a pending entry exactly
// while one worker is draining it, so updates of a chat are handled one at a
// time in arrival order while different chats proceed in parallel.
type chatQueues struct {
	mu      sync.Mutex
	pending map[int64][]tgbotapi.Update
}

func newChatQueues() *chatQueues {
	return &chatQueues{pending: make(map[int64][]tgbotapi.Update)}
}

// push enqueues u and reports whether the caller must start a worker.
func (q *chatQueues) push(chatID int64, u tgbotapi.Update) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	queued, running := q.pending[chatID]
	q.pending[chatID] = append(queued, u)
	return !running
}

// next pops the oldest update. When the chat is drained it forgets the chat
// and returns false; the worker must exit then.
func (q *chatQueues) next(chatID int64) (tgbotapi.Update, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queued := q.pending[chatID]
	if len(queued) == 0 {
		delete(q.pending, chatID)
		return tgbotapi.Update{}, false
	}
	u := queued[0]
	q.pending[chatID] = queued[1:]
	return u, true
}

func (q *chatQueues) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// updateChatID returns the chat an update belongs to, or 0 if none.
func updateChatID(u tgbotapi.Update) int64 {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil:
		return u.CallbackQuery.Message.Chat.ID
	case u.Message != nil && u.Message.Chat != nil:
		return u.Message.Chat.ID
	default:
		return 0
	}
}
