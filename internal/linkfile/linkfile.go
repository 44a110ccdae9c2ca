// Package linkfile reads and writes the numbered URL list shared by the
// extract and upload commands. Each line looks like "12. https://...".
package linkfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

const separator = ". "

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Item is one URL to submit.
type Item struct {
	// Position is the 1-based index among all URLs parsed from the file.
	Position int
	URL      string
	// Label is the text before the separator, usually the original number.
	Label string
}

// Link is an extracted anchor, written as one line of the file.
type Link struct {
	Text string
	URL  string
}

// ErrInvalidRange is returned by Select for impossible bounds.
var ErrInvalidRange = errors.New("invalid batch range")

// Parse reads items from r. Lines without the separator or without a URL
// after it are skipped.
func Parse(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		label, rest, ok := strings.Cut(scanner.Text(), separator)
		if !ok {
			continue
		}
		u := urlPattern.FindString(rest)
		if u == "" {
			continue
		}
		items = append(items, Item{
			Position: len(items) + 1,
			URL:      u,
			Label:    strings.TrimSpace(label),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read link list: %w", err)
	}
	return items, nil
}

// ReadFile parses the file at path.
func ReadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open link file '%s': %w", path, err)
	}
	defer f.Close()

	items, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("link file '%s': %w", path, err)
	}
	return items, nil
}

// Select applies the operator's range. start is 1-based and inclusive; end
// is inclusive and ignored when zero; limit caps the result when non-zero.
// The cap is applied after the range. A start past the end of items yields
// an empty selection.
func Select(items []Item, start, end, limit int) ([]Item, error) {
	switch {
	case start < 1:
		return nil, fmt.Errorf("%w: start %d must be 1 or greater", ErrInvalidRange, start)
	case end != 0 && end < start:
		return nil, fmt.Errorf("%w: end %d precedes start %d", ErrInvalidRange, end, start)
	case limit < 0:
		return nil, fmt.Errorf("%w: max %d must not be negative", ErrInvalidRange, limit)
	}

	if start > len(items) {
		return []Item{}, nil
	}
	stop := len(items)
	if end != 0 && end < stop {
		stop = end
	}
	selected := items[start-1 : stop]
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	return append([]Item(nil), selected...), nil
}

// Write emits links in the numbered format Parse consumes.
func Write(w io.Writer, links []Link) error {
	bw := bufio.NewWriter(w)
	for i, l := range links {
		if _, err := fmt.Fprintf(bw, "%d%s%s\n", i+1, separator, l.URL); err != nil {
			return fmt.Errorf("failed to write link %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

// WriteFile writes links to path, replacing any existing file.
func WriteFile(path string, links []Link) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create link file '%s': %w", path, err)
	}
	if err := Write(f, links); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
