package chunker

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEmptyAndShort(t *testing.T) {
	assert.Empty(t, Default(""))
	assert.Empty(t, Default("   \n\t "))
	assert.Equal(t, []string{"React hooks are functions."}, Default("  React hooks are functions.  "))
}

func TestChunkCutsAtCleanBoundaryWithoutOverlap(t *testing.T) {
	first := strings.Repeat("a", 70) + "."
	second := strings.Repeat("b", 60)
	got := Chunk(first+second, Options{MaxSize: 100, Overlap: 10})
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestChunkForcedCutOverlaps(t *testing.T) {
	text := strings.Repeat("x", 250)
	got := Chunk(text, Options{MaxSize: 100, Overlap: 20})
	require.Len(t, got, 3)
	assert.Len(t, got[0], 100)
	assert.Len(t, got[1], 100)
	assert.Len(t, got[2], 90)
}

func TestChunkIgnoresEarlyBoundary(t *testing.T) {
	// The only period sits before the window midpoint, so the cut is forced.
	text := "Hi." + strings.Repeat("z", 200)
	got := Chunk(text, Options{MaxSize: 100, Overlap: 10})
	require.NotEmpty(t, got)
	assert.Equal(t, 100, utf8.RuneCountInString(got[0]))
}

func TestChunkBoundsAndCoverage(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 25; trial++ {
		target := 3000 + r.Intn(2000)
		var b strings.Builder
		for i := 0; b.Len() < target; i++ {
			fmt.Fprintf(&b, "w%d", i)
			switch r.Intn(6) {
			case 0:
				b.WriteString(". ")
			case 1:
				b.WriteString("\n")
			default:
				b.WriteByte(' ')
			}
		}
		text := b.String()
		opts := Options{MaxSize: 200 + r.Intn(600), Overlap: 50 + r.Intn(50)}
		chunks := Chunk(text, opts)
		require.NotEmpty(t, chunks)

		covered := make([]bool, len(text))
		from := 0
		for _, c := range chunks {
			require.LessOrEqual(t, len(c), opts.MaxSize+opts.Overlap)
			idx := strings.Index(text[from:], c)
			require.GreaterOrEqual(t, idx, 0, "chunk not found in order")
			pos := from + idx
			for i := pos; i < pos+len(c); i++ {
				covered[i] = true
			}
			from = pos + 1
		}
		for i, ch := range text {
			if !unicode.IsSpace(ch) {
				require.True(t, covered[i], "character %d lost", i)
			}
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("Hooks let you use state. ", 200)
	assert.Equal(t, Default(text), Default(text))
}

func TestChunkMultibyte(t *testing.T) {
	text := strings.Repeat("é", 250)
	for _, c := range Chunk(text, Options{MaxSize: 100, Overlap: 10}) {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
	}
}
