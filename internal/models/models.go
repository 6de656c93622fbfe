package models

import "time"

// Intent is the classifier's verdict for a conversation history.
type Intent string

const (
	IntentHiringRequest Intent = "hiring_request"
	IntentNotHiring     Intent = "not_hiring"
	IntentQuotaExceeded Intent = "quota_exceeded"
)

// Classification is the well-formed result of classifying a conversation.
type Classification struct {
	Intent   Intent   `json:"intent"`
	Entities Entities `json:"entities"`
}

// NotHiring is the degraded classification used whenever classifier output
// can't be trusted.
func NotHiring() Classification {
	return Classification{Intent: IntentNotHiring}
}

// Mode governs how an inbound message is interpreted.
type Mode string

const (
	ModeCollecting Mode = "collecting"
	ModeConfirming Mode = "confirming"
	ModeEditing    Mode = "editing"
)

// Conversation is the per-chat state of a hiring intake dialogue.
type Conversation struct {
	ChatID           int64     `json:"chat_id"`
	OwnerID          int64     `json:"owner_id"`
	History          []string  `json:"history"`
	Entities         Entities  `json:"entities"`
	FinalEntities    *Entities `json:"final_entities,omitempty"`
	OriginalEntities *Entities `json:"original_entities,omitempty"`
	Mode             Mode      `json:"mode"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewConversation starts a single-message conversation owned by ownerID.
func NewConversation(chatID, ownerID int64, first string) *Conversation {
	now := time.Now()
	return &Conversation{
		ChatID:    chatID,
		OwnerID:   ownerID,
		History:   []string{first},
		Mode:      ModeCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LastMessage returns the most recent history entry, or "" for an empty history.
func (c *Conversation) LastMessage() string {
	if len(c.History) == 0 {
		return ""
	}
	return c.History[len(c.History)-1]
}

// Clone returns a deep copy so stores never share slices or pointers with callers.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.History = append([]string(nil), c.History...)
	out.Entities = c.Entities.Clone()
	if c.FinalEntities != nil {
		fe := c.FinalEntities.Clone()
		out.FinalEntities = &fe
	}
	if c.OriginalEntities != nil {
		oe := c.OriginalEntities.Clone()
		out.OriginalEntities = &oe
	}
	return &out
}

// Button is an interactive choice attached to a reply.
type Button struct {
	Label    string
	ActionID string
	Style    string
}

// Reply is an outbound chat message.
type Reply struct {
	Text    string
	Buttons []Button
}

// Draft is a saved, unpublished job posting.
type Draft struct {
	ID string `json:"id"`
	Entities
	CreatedAt time.Time `json:"created_at"`
}

// NewDraft copies entities into a draft record.
func NewDraft(id string, e Entities) Draft {
	return Draft{ID: id, Entities: e.Clone(), CreatedAt: time.Now().UTC()}
}
