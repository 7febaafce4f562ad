package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/blugelabs/bluge"

	"lan-chat/domain"
	"lan-chat/errors"
)

type ISearchIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// SearchHit is one full-text match over the message log.
type SearchHit struct {
	ID      domain.MessageID
	Author  string
	Content string
}

// SearchIndex maintains a bluge full-text index next to the badger log.
// Indexing is best effort: a failed index write never blocks a durable
// append, it only narrows search results.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

func (s *SearchIndex) Index(message domain.Message) error {
	docID := strconv.FormatUint(uint64(message.ID), 10)
	doc := bluge.NewDocument(docID)
	doc.AddField(bluge.NewTextField("author", message.Author).StoreValue())
	doc.AddField(bluge.NewTextField("content", message.Content).StoreValue())

	if err := s.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrWriteFailed, err)
	}
	return nil
}

// Search runs a match query over message bodies and returns up to limit hits,
// best score first.
func (s *SearchIndex) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrReadFailed, err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Closing bluge reader failed", "err", err)
		}
	}()

	match := bluge.NewMatchQuery(query).SetField("content")
	request := bluge.NewTopNSearch(limit, match)

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrReadFailed, err)
	}

	var hits []SearchHit
	for {
		next, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrReadFailed, err)
		}
		if next == nil {
			break
		}

		var hit SearchHit
		err = next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, err := strconv.ParseUint(string(value), 10, 64); err == nil {
					hit.ID = domain.MessageID(id)
				}
			case "author":
				hit.Author = string(value)
			case "content":
				hit.Content = string(value)
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrReadFailed, err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
