package services

import (
	"context"
	"time"

	"lan-chat/contract"
	"lan-chat/domain"
	"lan-chat/repositories"
	"lan-chat/runtime"
)

type IChatService interface {
	Join(ctx context.Context, connID domain.ConnectionID, name string, sink contract.EventSink) error
	Leave(ctx context.Context, connID domain.ConnectionID) error
	Post(ctx context.Context, connID domain.ConnectionID, author, content string) error
	AnnounceFile(ctx context.Context, connID domain.ConnectionID, uploader, filename string) error
	History(limit int) ([]domain.Message, error)
	Search(ctx context.Context, query string, limit int) ([]repositories.SearchHit, error)
}

// ChatService is the thin facade the transport talks to. All room semantics
// live behind the hub; this layer only shapes calls.
type ChatService struct {
	hub      *runtime.Hub
	messages repositories.IMessageRepository
	search   repositories.ISearchIndex
}

func NewChatService(hub *runtime.Hub, messages repositories.IMessageRepository, search repositories.ISearchIndex) *ChatService {
	return &ChatService{hub: hub, messages: messages, search: search}
}

func (s *ChatService) Join(ctx context.Context, connID domain.ConnectionID, name string, sink contract.EventSink) error {
	return s.hub.Join(ctx, connID, domain.Identity{Name: name}, sink)
}

func (s *ChatService) Leave(ctx context.Context, connID domain.ConnectionID) error {
	return s.hub.Leave(ctx, connID)
}

func (s *ChatService) Post(ctx context.Context, connID domain.ConnectionID, author, content string) error {
	return s.hub.Post(ctx, domain.PostMessageCommand{
		ConnID:    connID,
		Author:    author,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *ChatService) AnnounceFile(ctx context.Context, connID domain.ConnectionID, uploader, filename string) error {
	return s.hub.AnnounceFile(ctx, domain.AnnounceFileCommand{
		ConnID: connID,
		File: domain.FileRecord{
			Filename: filename,
			Uploader: uploader,
			At:       time.Now().UTC(),
		},
	})
}

// History reads the recent tail of the log directly; the hub is not involved
// because plain reads don't need the serialization point.
func (s *ChatService) History(limit int) ([]domain.Message, error) {
	return s.messages.ReadRecent(limit)
}

func (s *ChatService) Search(ctx context.Context, query string, limit int) ([]repositories.SearchHit, error) {
	return s.search.Search(ctx, query, limit)
}
