package markdown

// FragmentKind is the type of a slice of raw text produced by Segment.
type FragmentKind int

const (
	KindPlain FragmentKind = iota
	KindInlineCode
	KindCodeBlock
)

func (k FragmentKind) String() string {
	switch k {
	case KindInlineCode:
		return "inline_code"
	case KindCodeBlock:
		return "code_block"
	default:
		return "plain"
	}
}

// Fragment is an immutable typed slice of the input. Raw holds the exact
// source text including fences, so joining Raw of all fragments gives the
// input back unchanged.
type Fragment struct {
	Kind     FragmentKind
	Content  string
	Language string
	Raw      string
}
