package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	Author    string
	Lang      string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes a read-only HTML view over the badger store on a
// side port. Only enabled when the process logs at debug level.
func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// MessageMapper decodes a stored chat message into its inspector row.
func MessageMapper(key string, val []byte) InspectRow {
	row := DefaultMapper(key, val)

	var m struct {
		ID      uint64 `json:"id"`
		Author  string `json:"author"`
		Content string `json:"content"`
		Lang    string `json:"lang"`
		At      int64  `json:"at"`
	}
	if err := json.Unmarshal(val, &m); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = "MESSAGE"
	row.Timestamp = time.Unix(0, m.At).Format("15:04:05")
	row.Author = m.Author
	row.Lang = m.Lang
	row.Detail = m.Content
	return row
}

func DefaultMapper(key string, val []byte) InspectRow {
	return InspectRow{
		Key:       key,
		Type:      "RAW",
		Timestamp: "--:--:--",
		Author:    "--------",
		Lang:      "-",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
}
