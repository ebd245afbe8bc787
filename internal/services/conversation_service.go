package services

import (
	"context"
	"log/slog"
	"sort"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"
)

// ConversationService derives the per-counterpart conversation list and
// the thread view with its read-receipt side effect.
type ConversationService struct {
	store *postgres.Store
	uow   *postgres.UnitOfWork
	gate  *AccessGate
}

func NewConversationService(store *postgres.Store, uow *postgres.UnitOfWork, gate *AccessGate) *ConversationService {
	return &ConversationService{store: store, uow: uow, gate: gate}
}

// ListConversations returns one summary per counterpart, most recent first,
// ties broken by counterpart id.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	msgs, err := s.store.DirectMessages.ListForUser(ctx, userID)
	if err != nil {
		return nil, storeError("conversations.list", err)
	}
	return aggregate(userID, msgs), nil
}

func aggregate(userID string, msgs []models.DirectMessage) []models.ConversationSummary {
	type acc struct {
		last   *models.DirectMessage
		unread int
	}
	byCounterpart := make(map[string]*acc)
	for i := range msgs {
		m := &msgs[i]
		if m.IsDeleted() {
			continue
		}
		key := m.Counterpart(userID)
		a, ok := byCounterpart[key]
		if !ok {
			a = &acc{}
			byCounterpart[key] = a
		}
		if a.last == nil || newer(m, a.last) {
			a.last = m
		}
		if m.ReceiverID == userID && !m.IsRead {
			a.unread++
		}
	}

	out := make([]models.ConversationSummary, 0, len(byCounterpart))
	for counterpart, a := range byCounterpart {
		out = append(out, models.ConversationSummary{
			CounterpartID: counterpart,
			LastMessage:   models.NewMessageResponse(a.last),
			UnreadCount:   a.unread,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessage.SentAt, out[j].LastMessage.SentAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].CounterpartID < out[j].CounterpartID
	})
	return out
}

func newer(a, b *models.DirectMessage) bool {
	if !a.SentAt.Equal(b.SentAt) {
		return a.SentAt.After(b.SentAt)
	}
	return a.ID > b.ID
}

// GetThread returns one page of the thread between userID and otherUserID,
// oldest first within the page. Every message from otherUserID that was
// unread when the page was fetched is then marked read in a separate
// transaction; a failure there is logged and does not fail the fetch.
func (s *ConversationService) GetThread(ctx context.Context, userID, otherUserID string, page models.Page) ([]models.MessageResponse, error) {
	if _, err := s.gate.IsThreadParty(ctx, userID, otherUserID); err != nil {
		return nil, err
	}

	var (
		msgs   []models.DirectMessage
		unread []uint
	)
	err := s.uow.Do(ctx, func(tx *postgres.Store) error {
		var err error
		if unread, err = tx.DirectMessages.UnreadIDs(ctx, userID, otherUserID); err != nil {
			return err
		}
		msgs, err = tx.DirectMessages.ThreadPage(ctx, userID, otherUserID, page)
		return err
	})
	if err != nil {
		return nil, storeError("conversations.thread", err)
	}

	marked := s.markRead(ctx, userID, unread)

	out := make([]models.MessageResponse, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		if _, ok := marked[m.ID]; ok {
			m.IsRead = true
		}
		out[len(msgs)-1-i] = models.NewMessageResponse(m)
	}
	return out, nil
}

// markRead targets exactly ids, so messages that arrived after the fetch
// stay unread. It returns the ids it marked.
func (s *ConversationService) markRead(ctx context.Context, receiverID string, ids []uint) map[uint]struct{} {
	if len(ids) == 0 {
		return nil
	}
	err := s.uow.Do(ctx, func(tx *postgres.Store) error {
		_, err := tx.DirectMessages.MarkRead(ctx, receiverID, ids)
		return err
	})
	if err != nil {
		slog.Warn("Failed to mark thread read", "user_id", receiverID, "messages", len(ids), "error", err)
		return nil
	}
	marked := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		marked[id] = struct{}{}
	}
	return marked
}
