// Package conversation implements the hiring intake state machine: it
// decides, turn by turn, what to ask next, when to offer a job posting for
// confirmation, and how confirmation buttons change the conversation.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/jobpost-bot/internal/dispatch"
	"github.com/xaenox/jobpost-bot/internal/metrics"
	"github.com/xaenox/jobpost-bot/internal/models"
	"github.com/xaenox/jobpost-bot/internal/storage"
	"go.uber.org/zap"
)

// Messenger delivers replies to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, reply models.Reply) error
}

// Dispatcher executes the collaborator calls the engine decides on.
type Dispatcher interface {
	Classify(ctx context.Context, chatID int64, history string) models.Classification
	Describe(ctx context.Context, chatID int64, e models.Entities) (string, bool)
	Post(ctx context.Context, chatID int64, e models.Entities) dispatch.Outcome
	SaveDraft(ctx context.Context, chatID int64, e models.Entities) dispatch.Outcome
}

// Inbound is a chat message from a participant.
type Inbound struct {
	ChatID int64
	UserID int64
	Text   string
}

// Action is a button press on a confirmation message.
type Action struct {
	ChatID   int64
	UserID   int64
	ActionID string
}

// Engine serializes all events of a chat and applies the state machine.
type Engine struct {
	store      storage.ConversationStore
	dispatcher Dispatcher
	messenger  Messenger
	recorder   metrics.Recorder
	logger     *zap.Logger
	locks      *chatLocks
}

func NewEngine(store storage.ConversationStore, dispatcher Dispatcher, messenger Messenger, recorder metrics.Recorder, logger *zap.Logger) *Engine {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		messenger:  messenger,
		recorder:   recorder,
		logger:     logger,
		locks:      newChatLocks(),
	}
}

func (e *Engine) send(ctx context.Context, chatID int64, reply models.Reply) {
	if err := e.messenger.Send(ctx, chatID, reply); err != nil {
		e.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (e *Engine) sendText(ctx context.Context, chatID int64, text string) {
	e.send(ctx, chatID, models.Reply{Text: text})
}

// HandleMessage appends an inbound message to the chat's conversation and
// re-evaluates the whole history.
func (e *Engine) HandleMessage(ctx context.Context, in Inbound) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil
	}

	unlock := e.locks.lock(in.ChatID)
	defer unlock()

	log := e.logger.With(zap.Int64("chat_id", in.ChatID), zap.Int64("user_id", in.UserID))

	conv, err := e.store.GetConversation(ctx, in.ChatID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		done, err := e.store.RecentlyCompleted(ctx, in.ChatID)
		if err != nil {
			log.Error("Failed to check completion marker", zap.Error(err))
		}
		if done {
			log.Info("Dropping message for recently completed conversation")
			return nil
		}
		conv = e.start(in, text)
		log.Info("No existing state found. Started a new conversation")
	case errors.Is(err, storage.ErrCorrupt):
		return e.discardCorrupt(ctx, in.ChatID, err, log)
	case err != nil:
		return fmt.Errorf("load conversation %d: %w", in.ChatID, err)
	case conv.OwnerID != in.UserID:
		conv = e.start(in, text)
		log.Info("New user in chat, starting a new conversation")
	case conv.LastMessage() == text:
		log.Info("Duplicate message detected, skipping processing")
		return nil
	default:
		conv.History = append(conv.History, text)
		if conv.Mode == models.ModeConfirming {
			conv.Mode = models.ModeCollecting
			conv.FinalEntities = nil
		}
		log.Info("Appended message to existing conversation history", zap.Int("messages", len(conv.History)))
	}

	e.evaluate(ctx, conv, log)

	if err := e.store.SaveConversation(ctx, conv); err != nil {
		return fmt.Errorf("save conversation %d: %w", in.ChatID, err)
	}
	return nil
}

func (e *Engine) start(in Inbound, text string) *models.Conversation {
	e.recorder.ConversationStarted()
	return models.NewConversation(in.ChatID, in.UserID, text)
}

// evaluate classifies the full history and replies with the next step.
func (e *Engine) evaluate(ctx context.Context, conv *models.Conversation, log *zap.Logger) {
	history := strings.Join(conv.History, "\n")
	result := e.dispatcher.Classify(ctx, conv.ChatID, history)
	log.Info("Classified conversation", zap.String("intent", string(result.Intent)), zap.Any("entities", result.Entities.Values()))

	switch result.Intent {
	case models.IntentQuotaExceeded:
		e.sendText(ctx, conv.ChatID, msgQuotaExceeded)

	case models.IntentHiringRequest:
		conv.Entities = result.Entities.Clone()

		if missing, ok := conv.Entities.FirstMissing(); ok {
			e.sendText(ctx, conv.ChatID, Question(missing))
			log.Info("Asked follow-up", zap.String("attribute", string(missing)))
			return
		}

		// Set never stores blanks, so this only guards stores that bypass it.
		title, _ := conv.Entities.Get(models.AttrJobTitle)
		if strings.TrimSpace(title) == "" {
			e.sendText(ctx, conv.ChatID, msgNeedTitle)
			return
		}

		e.finalize(ctx, conv, log)

	case models.IntentNotHiring:
		e.sendText(ctx, conv.ChatID, msgNotHiring)

	default:
		e.sendText(ctx, conv.ChatID, msgUnclear)
	}
}

// finalize freezes the entities and offers the generated description with
// the confirmation buttons.
func (e *Engine) finalize(ctx context.Context, conv *models.Conversation, log *zap.Logger) {
	editing := conv.Mode == models.ModeEditing
	final := conv.Entities.Clone()
	conv.FinalEntities = &final

	var original *models.Entities
	if editing {
		original = conv.OriginalEntities
		if original == nil {
			original = &models.Entities{}
		}
	}

	if editing {
		log.Info("All entities are filled. Finalizing edited conversation", zap.Bool("changed", !final.Equal(*original)))
	} else {
		log.Info("All entities are filled. Finalizing conversation")
	}
	e.sendText(ctx, conv.ChatID, Summary(final, original))
	e.sendText(ctx, conv.ChatID, msgGenerating)

	description, fellBack := e.dispatcher.Describe(ctx, conv.ChatID, final)
	if fellBack {
		e.sendText(ctx, conv.ChatID, msgFallbackWarning)
	}
	e.send(ctx, conv.ChatID, models.Reply{Text: description, Buttons: confirmationButtons()})

	conv.Mode = models.ModeConfirming
	conv.OriginalEntities = nil
	e.recorder.Finalized(editing)
}

// HandleAction applies a confirmation button press.
func (e *Engine) HandleAction(ctx context.Context, act Action) error {
	unlock := e.locks.lock(act.ChatID)
	defer unlock()

	log := e.logger.With(
		zap.Int64("chat_id", act.ChatID),
		zap.Int64("user_id", act.UserID),
		zap.String("action", act.ActionID))

	conv, err := e.store.GetConversation(ctx, act.ChatID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn("Received button click but no active conversation found")
		return nil
	}
	if errors.Is(err, storage.ErrCorrupt) {
		return e.discardCorrupt(ctx, act.ChatID, err, log)
	}
	if err != nil {
		return fmt.Errorf("load conversation %d: %w", act.ChatID, err)
	}

	if conv.OwnerID != act.UserID {
		log.Warn("Ignoring button click from a user who does not own the conversation", zap.Int64("owner_id", conv.OwnerID))
		return nil
	}

	if conv.Mode != models.ModeConfirming {
		e.sendText(ctx, act.ChatID, msgStaleOptions)
		log.Info("Ignoring button click outside confirmation", zap.String("mode", string(conv.Mode)))
		return nil
	}

	if conv.FinalEntities == nil {
		log.Error("Conversation is confirming without final entities", zap.Strings("history", conv.History))
		e.sendText(ctx, act.ChatID, msgLostContext)
		e.recorder.Action(actionLabel(act.ActionID), "corrupt")
		return e.destroy(ctx, act.ChatID, false)
	}
	final := conv.FinalEntities.Clone()

	switch act.ActionID {
	case ActionPost:
		out := e.dispatcher.Post(ctx, act.ChatID, final)
		if !out.Success {
			e.sendText(ctx, act.ChatID, postFailedMessage(out.Reason))
			e.recorder.Action(act.ActionID, "failure")
			return e.store.SaveConversation(ctx, conv)
		}
		e.sendText(ctx, act.ChatID, postedMessage(out.Reference))
		e.sendText(ctx, act.ChatID, msgPosted)
		e.recorder.Action(act.ActionID, "success")
		log.Info("Job posted", zap.String("reference", out.Reference))
		return e.destroy(ctx, act.ChatID, true)

	case ActionDraft:
		out := e.dispatcher.SaveDraft(ctx, act.ChatID, final)
		if !out.Success {
			e.sendText(ctx, act.ChatID, msgDraftFailed)
			e.recorder.Action(act.ActionID, "failure")
			return e.store.SaveConversation(ctx, conv)
		}
		e.sendText(ctx, act.ChatID, draftSavedMessage(out.Reference))
		e.sendText(ctx, act.ChatID, msgDraftSaved)
		e.recorder.Action(act.ActionID, "success")
		log.Info("Draft saved", zap.String("job_id", out.Reference))
		return e.destroy(ctx, act.ChatID, true)

	case ActionEdit:
		original := conv.Entities.Clone()
		conv.OriginalEntities = &original
		conv.FinalEntities = nil
		conv.Mode = models.ModeEditing
		e.sendText(ctx, act.ChatID, msgEditPrompt)
		e.recorder.Action(act.ActionID, "success")
		return e.store.SaveConversation(ctx, conv)

	case ActionCancel:
		e.sendText(ctx, act.ChatID, msgCancelled)
		e.sendText(ctx, act.ChatID, msgStartFresh)
		e.recorder.Action(act.ActionID, "success")
		return e.destroy(ctx, act.ChatID, false)

	default:
		log.Error("Unrecognized action, discarding conversation")
		e.recorder.Action("unknown", "discarded")
		return e.destroy(ctx, act.ChatID, false)
	}
}

// Reset discards any live conversation in the chat and reports whether one existed.
func (e *Engine) Reset(ctx context.Context, chatID int64) (bool, error) {
	unlock := e.locks.lock(chatID)
	defer unlock()

	_, err := e.store.GetConversation(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil && !errors.Is(err, storage.ErrCorrupt) {
		return false, fmt.Errorf("load conversation %d: %w", chatID, err)
	}
	return true, e.destroy(ctx, chatID, false)
}

// discardCorrupt drops an undecodable conversation and asks the chat to
// start over. The next message begins a fresh conversation.
func (e *Engine) discardCorrupt(ctx context.Context, chatID int64, err error, log *zap.Logger) error {
	fields := []zap.Field{zap.Error(err)}
	var corrupt *storage.CorruptError
	if errors.As(err, &corrupt) {
		fields = append(fields, zap.String("raw", corrupt.Raw))
	}
	log.Error("Discarding corrupted conversation", fields...)

	if err := e.destroy(ctx, chatID, false); err != nil {
		return err
	}
	e.sendText(ctx, chatID, msgLostContext)
	return nil
}

func (e *Engine) destroy(ctx context.Context, chatID int64, completed bool) error {
	if completed {
		if err := e.store.MarkCompleted(ctx, chatID); err != nil {
			e.logger.Error("Failed to mark conversation completed", zap.Error(err), zap.Int64("chat_id", chatID))
		}
	}
	if err := e.store.DeleteConversation(ctx, chatID); err != nil {
		return fmt.Errorf("delete conversation %d: %w", chatID, err)
	}
	return nil
}
