package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lan-chat/errors"
)

func Test_Load_Embedded_Censored_Words(t *testing.T) {
	req := require.New(t)

	data, err := LoadEmbeddedCensoredWords()
	req.NoError(err)
	req.NotEmpty(data.Words)
	req.Contains(data.Languages, "en")
	req.Contains(data.Languages, "fr")

	// Merged lists stay unique even when dictionaries overlap.
	seen := make(map[string]struct{}, len(data.Words))
	for _, w := range data.Words {
		_, dup := seen[w]
		req.False(dup, "duplicate word %q", w)
		seen[w] = struct{}{}
	}
}

func Test_Loader_Rejects_Missing_Directory(t *testing.T) {
	req := require.New(t)

	_, err := NewCensoredLoader(censoredFS).LoadAll("nonexistent")
	req.Error(err)
	req.NotErrorIs(err, errors.ErrEmptyWords)
}
