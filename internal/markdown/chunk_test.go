package markdown

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratoffalex/omnibot/internal/logger"
)

func TestChunkEmptyAndShort(t *testing.T) {
	c := NewChunker(MarkdownV2, DefaultMaxLength, nil)

	assert.Empty(t, c.Chunk(""))
	assert.Equal(t, []string{"  short text "}, c.Chunk("  short text "))
}

func TestChunkHardSplitWithoutBoundaries(t *testing.T) {
	c := NewChunker(MarkdownV2, DefaultMaxLength, nil)

	chunks := c.Chunk(strings.Repeat("a", 5000))

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 4096)
	assert.Len(t, chunks[1], 904)
}

func TestChunkNeverCutsInsideTag(t *testing.T) {
	c := NewChunker(HTML, DefaultMaxLength, nil)
	input := strings.Repeat("x", 4090) + "<b>" + strings.Repeat("y", 13) + "</b>" + strings.Repeat("z", 100)

	chunks := c.Chunk(input)

	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("x", 4090), chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], "<b>"+strings.Repeat("y", 13)+"</b>"))
}

func TestChunkPrefersSentenceThenNewlineThenSpace(t *testing.T) {
	c := NewChunker(Plain, 20, nil)

	assert.Equal(t,
		[]string{"First sentence.", "Second sentence", "here."},
		c.Chunk("First sentence. Second sentence here."),
	)
	assert.Equal(t,
		[]string{"line one", "line two and more"},
		c.Chunk("line one\nline two and more"),
	)
}

func TestChunkCountsUTF16Units(t *testing.T) {
	c := NewChunker(Plain, DefaultMaxLength, nil)

	chunks := c.Chunk(strings.Repeat("😀", 3000))

	require.Len(t, chunks, 2)
	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, UTF16Len(chunk), DefaultMaxLength)
		total += len([]rune(chunk))
	}
	assert.Equal(t, 3000, total)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		limit    int
		expected string
	}{
		{"short", 10, "short"},
		{"abc def", 4, "abc…"},
		{"ab cd", 4, "ab…"},
		{"😀😀😀", 4, "😀…"},
		{"abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Truncate(tt.input, tt.limit)
			assert.Equal(t, tt.expected, got)
			assert.LessOrEqual(t, UTF16Len(got), max(tt.limit, 0))
		})
	}
}

func TestChunkKeepsMarkdownV2EscapesTogether(t *testing.T) {
	c := NewChunker(MarkdownV2, 10, nil)
	input := Convert("aaaaaaaa.bbbbbbbb.cccc", MarkdownV2)

	for _, chunk := range c.Chunk(input) {
		assert.False(t, strings.HasSuffix(chunk, `\`), chunk)
		assert.LessOrEqual(t, UTF16Len(chunk), 10)
	}
}

func TestChunkDegradedSplitIsLogged(t *testing.T) {
	log := logger.NewTestLogger()
	c := NewChunker(HTML, DefaultMaxLength, log)

	chunks := c.Chunk("<b>" + strings.Repeat("a", 5000) + "</b>")

	require.Len(t, chunks, 2)
	assert.Equal(t, DefaultMaxLength, UTF16Len(chunks[0]))
	assert.True(t, log.HasEntry("warn", "No safe split point, cutting message through markup"))
}

func TestChunkReopensLongCodeBlock(t *testing.T) {
	lines := make([]string, 0, 200)
	for i := range 200 {
		lines = append(lines, fmt.Sprintf("x%d := compute(%d)", i, i))
	}
	code := strings.Join(lines, "\n")

	tests := []struct {
		dialect Dialect
		open    string
		close   string
	}{
		{MarkdownV2, "```go\n", "\n```"},
		{HTML, `<pre><code class="language-go">`, "</code></pre>"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			log := logger.NewTestLogger()
			chunks := NewChunker(tt.dialect, 500, log).Chunk(Convert("```golang\n"+code+"\n```", tt.dialect))
			require.Greater(t, len(chunks), 1)

			body := make([]string, 0, len(chunks))
			for _, chunk := range chunks {
				assert.LessOrEqual(t, UTF16Len(chunk), 500)
				require.True(t, strings.HasPrefix(chunk, tt.open), chunk)
				require.True(t, strings.HasSuffix(chunk, tt.close), chunk)
				body = append(body, strings.TrimSuffix(strings.TrimPrefix(chunk, tt.open), tt.close))
			}
			assert.Equal(t, code, strings.Join(body, "\n"))
			assert.False(t, log.HasEntry("warn", "No safe split point, cutting message through markup"))
		})
	}
}

func TestChunkReopensLongBold(t *testing.T) {
	c := NewChunker(HTML, 100, nil)
	words := strings.TrimSpace(strings.Repeat("word ", 50))

	chunks := c.Chunk("<b>" + words + "</b>")

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, UTF16Len(chunk), 100)
		assert.True(t, strings.HasPrefix(chunk, "<b>word"), chunk)
		assert.True(t, strings.HasSuffix(chunk, "word</b>"), chunk)
	}
}

func sampleDocument() string {
	var sb strings.Builder
	for i := range 120 {
		sb.WriteString("Paragraph with **bold words**, _italic_, `inline code` and a [link](https://example.com/a_b). ")
		sb.WriteString("Math like 2 < 3 & 5 > 4 stays escaped.\n")
		if i%20 == 0 {
			sb.WriteString("```go\nfunc main() {\n\tfmt.Println(\"<hi>\")\n}\n```\n")
		}
	}
	return sb.String()
}

func TestChunkProperties(t *testing.T) {
	for _, d := range []Dialect{HTML, MarkdownV2} {
		t.Run(d.Name(), func(t *testing.T) {
			converted := Convert(sampleDocument(), d)
			chunks := NewChunker(d, 500, nil).Chunk(converted)
			require.Greater(t, len(chunks), 1)

			for _, chunk := range chunks {
				assert.LessOrEqual(t, UTF16Len(chunk), 500)
				assert.NotEmpty(t, chunk)
				assert.Equal(t, strings.Count(chunk, fence)%2, 0, chunk)

				if d == HTML {
					for _, tag := range []string{"b", "i", "code", "pre", "a"} {
						opened := strings.Count(chunk, "<"+tag+">") + strings.Count(chunk, "<"+tag+" ")
						assert.Equal(t, opened, strings.Count(chunk, "</"+tag+">"), "%s in %q", tag, chunk)
					}
				}
			}

			stripped := func(s string) string {
				return strings.Join(strings.Fields(s), "")
			}
			assert.Equal(t, stripped(converted), stripped(strings.Join(chunks, "")))
		})
	}
}

func BenchmarkProcessorFormat(b *testing.B) {
	benchmarks := []struct {
		name  string
		input string
	}{
		{"small", "Hello **world**, this is `code`."},
		{"medium", strings.Repeat("Some *italic* and **bold** text with [links](https://a.b). ", 50)},
		{"large", sampleDocument()},
	}

	for _, bm := range benchmarks {
		for _, dialect := range []string{DialectHTML, DialectMarkdownV2} {
			p, err := NewProcessor(Options{Dialect: dialect}, nil)
			require.NoError(b, err)

			b.Run(bm.name+"_"+dialect, func(b *testing.B) {
				for b.Loop() {
					p.Format(bm.input)
				}
			})
		}
	}
}
