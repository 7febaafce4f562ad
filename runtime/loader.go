package runtime

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"lan-chat/errors"
)

//go:embed censored/*
var censoredFS embed.FS

// CensoredData carries the parsed word lists plus metadata for logging.
type CensoredData struct {
	Words     []string
	Languages []string
}

// CensoredLoader reads blacklisted words from an embedded filesystem, one
// dictionary file per language.
type CensoredLoader struct {
	fs embed.FS
}

func NewCensoredLoader(f embed.FS) *CensoredLoader {
	return &CensoredLoader{fs: f}
}

// LoadEmbeddedCensoredWords parses the dictionaries shipped in the binary.
func LoadEmbeddedCensoredWords() (*CensoredData, error) {
	return NewCensoredLoader(censoredFS).LoadAll("censored")
}

// LoadAll scans the directory for dictionary files and merges their lines
// into a unique word list. Filenames double as language tags ("en.txt").
func (l *CensoredLoader) LoadAll(path string) (*CensoredData, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := l.fs.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles \n and \r\n line endings alike.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}

	return &CensoredData{Words: words, Languages: languages}, nil
}
