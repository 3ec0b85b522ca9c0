package parser

// Section identifies which segment a symbol's offset is relative to.
type Section int

const (
	SectionText Section = iota
	SectionData
)

// SymbolTable maps each exact label name to its byte offset (text or data)
// and owning section, and remembers definition order.
type SymbolTable struct {
	offsets  map[string]uint32
	sections map[string]Section
	defined  map[string]bool
	order    []string // insertion order, returned by Names
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		offsets:  make(map[string]uint32),
		sections: make(map[string]Section),
		defined:  make(map[string]bool),
	}
}

// Define binds name to offset within sect. Redefinition is an error.
func (t *SymbolTable) Define(name string, offset uint32, sect Section) error {
	if t.defined[name] {
		return &Error{Kind: KindParser, Message: "label '" + name + "' is already defined"}
	}
	t.offsets[name] = offset
	t.sections[name] = sect
	t.defined[name] = true
	t.order = append(t.order, name)
	return nil
}

// Lookup returns the resolved offset for name and whether it is defined;
// LookupSection gives the owning section.
func (t *SymbolTable) Lookup(name string) (uint32, bool) {
	off, ok := t.offsets[name]
	return off, ok
}

// LookupSection returns the section name was defined in.
func (t *SymbolTable) LookupSection(name string) (Section, bool) {
	s, ok := t.sections[name]
	return s, ok
}

// Names returns every defined label, in definition order.
func (t *SymbolTable) Names() []string { return t.order }

// Width is the byte width of a deferred data reference slot.
type Width int

const (
	WidthByte Width = 1
	WidthHalf Width = 2
	WidthWord Width = 4
)

// DataRelocation is a deferred data reference: a symbolic value written into
// the data image at Position with byte-width Width, awaiting the symbol
// Name's resolved offset.
type DataRelocation struct {
	Position uint32
	Width    Width
	Name     string
	Pos      Position
}

// CodeRelocation is a pre-label instruction awaiting resolution: the
// instruction at index CodeIndex has an unresolved branch/jump/la target
// named Name.
type CodeRelocation struct {
	CodeIndex int
	Name      string
	Pos       Position
}
