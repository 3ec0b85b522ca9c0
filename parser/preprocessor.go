package parser

import (
	"os"
	"path/filepath"
)

// FileReader abstracts file loading so includes can be tested without
// touching the real filesystem.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSFileReader reads from the real filesystem.
type OSFileReader struct{}

func (OSFileReader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Preprocessor flattens `.include` directives into a single token stream,
// tracking the include chain so cycles are reported with full context.
type Preprocessor struct {
	reader       FileReader
	includeStack []string // absolute paths currently being expanded
}

// NewPreprocessor builds a preprocessor reading files through reader.
func NewPreprocessor(reader FileReader) *Preprocessor {
	if reader == nil {
		reader = OSFileReader{}
	}
	return &Preprocessor{reader: reader}
}

// ExpandFile tokenizes filename and recursively inlines every `.include`,
// returning the flattened token stream (still containing macro/eqv
// directives, which the macro expander handles next).
func (p *Preprocessor) ExpandFile(filename string) ([]Token, *Error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, &Error{Kind: KindPreprocessor, Message: "cannot resolve path " + filename + ": " + err.Error()}
	}
	return p.expand(abs)
}

func (p *Preprocessor) expand(abs string) ([]Token, *Error) {
	for _, seen := range p.includeStack {
		if seen == abs {
			return nil, p.cycleError(abs)
		}
	}

	src, err := p.reader.ReadFile(abs)
	if err != nil {
		return nil, &Error{Kind: KindPreprocessor, Message: "cannot read " + abs + ": " + err.Error()}
	}

	lex := NewLexer(abs, src)
	toks, lerr := lex.TokenizeAll()
	if lerr != nil {
		return nil, lerr
	}

	p.includeStack = append(p.includeStack, abs)
	defer func() { p.includeStack = p.includeStack[:len(p.includeStack)-1] }()

	var out []Token
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Type == TokenDirective && tok.Literal == "include" {
			if i+1 >= len(toks) || toks[i+1].Type != TokenStringLit {
				return nil, &Error{Kind: KindPreprocessor, Pos: tok.Pos, Message: "expected string path after .include"}
			}
			incPath := toks[i+1].Literal
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(filepath.Dir(abs), incPath)
			}
			nested, nerr := p.expand(incPath)
			if nerr != nil {
				nerr.Context = append([]Position{tok.Pos}, nerr.Context...)
				return nil, nerr
			}
			// nested carries its own trailing TokenEOF (the natural end of
			// that file's token stream); splicing it in verbatim would plant
			// an interior EOF that truncates everything after the .include.
			for _, nt := range nested {
				if nt.Type == TokenEOF {
					continue
				}
				out = append(out, nt)
			}
			i++ // skip the path token
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}

func (p *Preprocessor) cycleError(abs string) *Error {
	ctx := make([]Position, 0, len(p.includeStack))
	for _, f := range p.includeStack {
		ctx = append(ctx, Position{Filename: f, Line: 1, Column: 1})
	}
	return &Error{
		Kind:    KindPreprocessor,
		Pos:     Position{Filename: abs, Line: 1, Column: 1},
		Message: "circular .include detected for " + abs,
		Context: ctx,
	}
}
