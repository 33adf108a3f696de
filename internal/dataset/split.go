package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Part names one output file of a split and the cumulative line number it
// ends at (exclusive).
type Part struct {
	Name string
	End  int
}

// RatioParts converts cumulative ratios (e.g. 0.9, 1.0) of total into parts.
func RatioParts(total int, names []string, ratios []float64) ([]Part, error) {
	if len(names) != len(ratios) {
		return nil, fmt.Errorf("split: %d names for %d ratios", len(names), len(ratios))
	}
	parts := make([]Part, len(names))
	for i, r := range ratios {
		parts[i] = Part{Name: names[i], End: int(math.Round(r * float64(total)))}
	}
	return parts, nil
}

// Split copies the lines of r into one file per part under dir. Line n goes to
// the first part whose End is greater than n; reading stops once the last
// part is full. It returns the number of lines written to each part.
func Split(r io.Reader, dir string, parts []Part, log zerolog.Logger) ([]int, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("split: no parts")
	}
	for i := 1; i < len(parts); i++ {
		if parts[i].End < parts[i-1].End {
			return nil, fmt.Errorf("split: part %q ends before %q", parts[i].Name, parts[i-1].Name)
		}
	}

	files := make([]*os.File, len(parts))
	writers := make([]*bufio.Writer, len(parts))
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()
	for i, p := range parts {
		f, err := os.Create(filepath.Join(dir, p.Name))
		if err != nil {
			return nil, fmt.Errorf("split: create %s: %w", p.Name, err)
		}
		files[i] = f
		writers[i] = bufio.NewWriter(f)
	}

	counts := make([]int, len(parts))
	last := parts[len(parts)-1].End
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for n := 0; n < last && scanner.Scan(); n++ {
		for i, p := range parts {
			if n < p.End {
				writers[i].Write(scanner.Bytes())
				if err := writers[i].WriteByte('\n'); err != nil {
					return nil, fmt.Errorf("split: write %s: %w", p.Name, err)
				}
				counts[i]++
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("split: read: %w", err)
	}

	for i, w := range writers {
		if err := w.Flush(); err != nil {
			return nil, fmt.Errorf("split: flush %s: %w", parts[i].Name, err)
		}
		log.Info().Str("file", parts[i].Name).Int("lines", counts[i]).Msg("Split part written")
	}
	return counts, nil
}

// CountLines returns the number of lines in r, counting a final line without
// a trailing newline.
func CountLines(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for scanner.Scan() {
		n++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("count lines: %w", err)
	}
	return n, nil
}
