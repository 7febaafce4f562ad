package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"lan-chat/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_Assigns_Increasing_Ids(t *testing.T) {
	req := require.New(t)
	repository, err := NewMessageRepository(openTestDB(t), slog.Default())
	req.NoError(err)
	defer repository.Close()

	at := time.Now().UTC()
	var lastID domain.MessageID
	for i, author := range []string{"Alice", "Bob", "Clara"} {
		persisted, err := repository.Append(domain.Message{
			Author:    author,
			Content:   "this message will self destruct in 5 seconds",
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
		if i > 0 {
			req.Greater(persisted.ID, lastID)
		}
		lastID = persisted.ID
	}
}

func Test_ReadRecent_Returns_Ascending_Order(t *testing.T) {
	req := require.New(t)
	repository, err := NewMessageRepository(openTestDB(t), slog.Default())
	req.NoError(err)
	defer repository.Close()

	at := time.Now().UTC().Truncate(time.Second)
	authors := []string{"Alice", "Bob", "Clara"}
	for i, author := range authors {
		_, err := repository.Append(domain.Message{
			Author:    author,
			Content:   "message " + author,
			Lang:      "en",
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
	}

	fetched, err := repository.ReadRecent(0)
	req.NoError(err)
	req.Len(fetched, len(authors))
	for i := 1; i < len(fetched); i++ {
		req.Greater(fetched[i].ID, fetched[i-1].ID)
	}
	req.Equal("Alice", fetched[0].Author)
	req.Equal("Clara", fetched[2].Author)
	req.Equal(at, fetched[0].CreatedAt)
}

func Test_ReadRecent_Keeps_Newest_When_Limited(t *testing.T) {
	req := require.New(t)
	repository, err := NewMessageRepository(openTestDB(t), slog.Default())
	req.NoError(err)
	defer repository.Close()

	at := time.Now().UTC()
	for _, author := range []string{"Alice", "Bob", "Clara", "Dan"} {
		_, err := repository.Append(domain.Message{Author: author, Content: "hi", CreatedAt: at})
		req.NoError(err)
	}

	fetched, err := repository.ReadRecent(2)
	req.NoError(err)
	req.Len(fetched, 2)
	// The limit drops the oldest entries, never the newest.
	req.Equal("Clara", fetched[0].Author)
	req.Equal("Dan", fetched[1].Author)
}

func Test_ReadRecent_Empty_Log(t *testing.T) {
	req := require.New(t)
	repository, err := NewMessageRepository(openTestDB(t), slog.Default())
	req.NoError(err)
	defer repository.Close()

	fetched, err := repository.ReadRecent(10)
	req.NoError(err)
	req.Empty(fetched)
}
