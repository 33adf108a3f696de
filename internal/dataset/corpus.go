package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

// maxLineSize bounds a single corpus line. Full games with press can be large.
const maxLineSize = 10 * 1024 * 1024

// Options controls corpus scanning.
type Options struct {
	// SkipMalformed logs and skips lines that fail to decode. When false a
	// malformed line stops the scan with a *MalformedLineError.
	SkipMalformed bool
	Logger        zerolog.Logger
}

// MalformedLineError reports a corpus line that is not a valid game record.
type MalformedLineError struct {
	Line int
	Err  error
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("corpus line %d: %v", e.Line, e.Err)
}

func (e *MalformedLineError) Unwrap() error { return e.Err }

// ScanStats summarises a corpus scan.
type ScanStats struct {
	Lines   int
	Games   int
	Skipped int
}

// ScanCorpus streams a JSONL corpus one line at a time and calls fn for every
// decoded game. Blank lines are ignored. An error returned by fn stops the
// scan and is returned as is.
func ScanCorpus(r io.Reader, opts Options, fn func(*diplomacy.Game) error) (ScanStats, error) {
	var stats ScanStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		stats.Lines++
		line := scanner.Bytes()
		if strings.TrimSpace(string(line)) == "" {
			continue
		}

		var game diplomacy.Game
		if err := json.Unmarshal(line, &game); err != nil {
			if !opts.SkipMalformed {
				return stats, &MalformedLineError{Line: stats.Lines, Err: err}
			}
			stats.Skipped++
			opts.Logger.Warn().Err(err).Int("line", stats.Lines).Msg("Skipping malformed corpus line")
			continue
		}

		stats.Games++
		if err := fn(&game); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read corpus: %w", err)
	}
	return stats, nil
}

// ScanFile is ScanCorpus over the file at path.
func ScanFile(path string, opts Options, fn func(*diplomacy.Game) error) (ScanStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScanStats{}, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return ScanCorpus(f, opts, fn)
}

// BuildFromFile scans a corpus file into a new Builder.
func BuildFromFile(path string, opts Options) (*Builder, error) {
	b := NewBuilder()
	stats, err := ScanFile(path, opts, func(g *diplomacy.Game) error {
		b.AddGame(g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	phases, examples := b.Stats()
	opts.Logger.Info().
		Str("path", path).
		Int("games", stats.Games).
		Int("skipped", stats.Skipped).
		Int("phases", phases).
		Int("examples", examples).
		Int("keys", len(b.Groups())).
		Msg("Corpus loaded")
	return b, nil
}
