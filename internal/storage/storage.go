package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/jobpost-bot/internal/models"
)

// ErrNotFound is returned when a chat has no live conversation.
var ErrNotFound = errors.New("conversation not found")

// ErrCorrupt is returned when a stored conversation can't be decoded.
var ErrCorrupt = errors.New("conversation state is corrupt")

// CorruptError carries the undecodable record. It matches ErrCorrupt.
type CorruptError struct {
	ChatID int64
	Raw    string
	Err    error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("decode conversation %d: %v", e.ChatID, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

// ConversationStore keeps at most one live conversation per chat, plus a
// short-lived marker for chats whose conversation just completed.
type ConversationStore interface {
	GetConversation(ctx context.Context, chatID int64) (*models.Conversation, error)
	SaveConversation(ctx context.Context, conv *models.Conversation) error
	DeleteConversation(ctx context.Context, chatID int64) error
	MarkCompleted(ctx context.Context, chatID int64) error
	RecentlyCompleted(ctx context.Context, chatID int64) (bool, error)
	Close() error
}

// DraftStore is an append-only list of saved job drafts.
type DraftStore interface {
	SaveDraft(ctx context.Context, e models.Entities) (string, error)
	ListDrafts(ctx context.Context) ([]models.Draft, error)
	Close() error
}
