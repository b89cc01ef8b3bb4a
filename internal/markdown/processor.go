package markdown

import (
	"github.com/muratoffalex/omnibot/internal/logger"
)

type Options struct {
	Dialect        string
	MaxChunkLength int
	DetectLanguage bool
}

// Processor turns model output into ready to send Telegram messages.
type Processor struct {
	dialect   Dialect
	converter *Converter
	chunker   *Chunker
	plain     *Chunker
}

func NewProcessor(opts Options, l logger.Logger) (*Processor, error) {
	d, err := DialectByName(opts.Dialect)
	if err != nil {
		return nil, err
	}

	var detector LanguageDetector
	if opts.DetectLanguage {
		detector = NewLanguageDetector()
	}

	return &Processor{
		dialect:   d,
		converter: NewConverter(d, detector),
		chunker:   NewChunker(d, opts.MaxChunkLength, l),
		plain:     NewChunker(Plain, opts.MaxChunkLength, l),
	}, nil
}

func (p *Processor) Dialect() Dialect {
	return p.dialect
}

func (p *Processor) ParseMode() string {
	return p.dialect.ParseMode()
}

// Format converts raw text and splits it into messages.
func (p *Processor) Format(raw string) []string {
	return p.chunker.Chunk(p.converter.Convert(raw))
}

// PlainChunks is the fallback used when Telegram rejects the markup.
func (p *Processor) PlainChunks(raw string) []string {
	return p.plain.Chunk(StripMarkup(raw))
}

// Unformat strips the markup of one chunk produced by Format.
func (p *Processor) Unformat(chunk string) string {
	return Unformat(p.dialect, chunk)
}
