// Package loader wires a linked program into a fresh VM: the data image, the
// instruction stream, the stack pointer, and the entry point.
package loader

import (
	"fmt"

	"github.com/fpgrars/fpgrars/parser"
	"github.com/fpgrars/fpgrars/vm"
)

// Load installs prog into m, starting execution at the symbol named entry
// (address 0 when entry is empty, matching a plain top-to-bottom program
// with no explicit entry label). An entry that is undefined or not a text
// label is an error.
func Load(m *vm.VM, prog *parser.Program, entry string) error {
	m.Memory.LoadImage(prog.Data)
	m.InitializeStack()

	entryAddr := uint32(0)
	if entry != "" {
		off, ok := prog.Symtab.Lookup(entry)
		if !ok {
			return fmt.Errorf("entry label %q not found", entry)
		}
		sect, _ := prog.Symtab.LookupSection(entry)
		if sect != parser.SectionText {
			return fmt.Errorf("entry label %q is not in the text section", entry)
		}
		entryAddr = off
	}

	m.LoadCode(prog.Code, entryAddr)
	return nil
}
