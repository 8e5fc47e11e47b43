package chunker

import "strings"

const (
	DefaultMaxSize = 800
	DefaultOverlap = 100
)

type Options struct {
	MaxSize int
	Overlap int
}

func (o Options) normalized() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.MaxSize {
		o.Overlap = o.MaxSize - 1
	}
	return o
}

// Chunk splits text into windows of at most MaxSize runes. A window that does
// not reach the end of the text is cut after the last '.' or '\n' inside it
// when that boundary lies past the window's midpoint; the next window starts
// right after the boundary. Otherwise the window is cut at its edge and the
// next one starts Overlap runes earlier. Chunks are trimmed and empty ones
// dropped.
func Chunk(text string, opts Options) []string {
	opts = opts.normalized()
	r := []rune(text)
	if len(r) == 0 {
		return nil
	}

	out := make([]string, 0, len(r)/opts.MaxSize+1)
	start := 0
	for start < len(r) {
		end := start + opts.MaxSize
		next := end - opts.Overlap
		if end >= len(r) {
			end = len(r)
			next = end
		} else if b := lastBoundary(r, start, end); b >= 0 && b-start > opts.MaxSize/2 {
			end = b + 1
			next = end
		}
		if piece := strings.TrimSpace(string(r[start:end])); piece != "" {
			out = append(out, piece)
		}
		start = next
	}
	return out
}

// Default chunks with the package defaults.
func Default(text string) []string {
	return Chunk(text, Options{})
}

func lastBoundary(r []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if r[i] == '.' || r[i] == '\n' {
			return i
		}
	}
	return -1
}
