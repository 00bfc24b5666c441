package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed wordlists/*.txt
var wordlistsFS embed.FS

// Wordlists carries the parsed blacklist with metadata for logging.
type Wordlists struct {
	Words     []string
	Languages []string
}

// LoadWordlists parses the embedded per-language dictionaries. Filenames
// name the language ("en.txt" -> "en"); lines starting with '#' are
// comments.
func LoadWordlists() (*Wordlists, error) {
	entries, err := fs.ReadDir(wordlistsFS, "wordlists")
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

		data, err := wordlistsFS.ReadFile("wordlists/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			uniqueWords[line] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, fmt.Errorf("no blacklisted words found")
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	return &Wordlists{Words: words, Languages: languages}, nil
}
