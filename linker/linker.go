// Package linker resolves the symbolic references a Program carries after
// assembly: branch/jump/la targets in the instruction stream, and symbol
// addresses embedded in the data image.
package linker

import (
	"encoding/binary"
	"sort"
	"strconv"

	"github.com/fpgrars/fpgrars/instr"
	"github.com/fpgrars/fpgrars/parser"
)

// baseAddrs gives the absolute load address of the text and data segments,
// so a resolved reference can be expressed as one flat address space.
type baseAddrs struct {
	text uint32
	data uint32
}

// Link resolves every CodeRelocation and DataRelocation in prog in place,
// given the absolute addresses its text and data segments are loaded at, and
// appends the sentinel halt instruction the executor's fetch loop relies on
// to stop instead of running off the end of the program.
func Link(prog *parser.Program, textBase, dataBase uint32) *parser.ErrorList {
	errs := &parser.ErrorList{}
	b := baseAddrs{text: textBase, data: dataBase}

	resolveCodeRelocs(prog, b, errs)
	resolveDataRelocs(prog, b, errs)

	if errs.HasErrors() {
		return errs
	}

	prog.Code = append(prog.Code, instr.Instruction{
		Op:   instr.OpHaltSentinel,
		Addr: uint32(len(prog.Code)) * 4,
	})
	return nil
}

func resolveCodeRelocs(prog *parser.Program, b baseAddrs, errs *parser.ErrorList) {
	for _, rel := range prog.CodeRelocs {
		in := &prog.Code[rel.CodeIndex]
		addr, ok := resolveSymbol(prog, b, rel.Name, b.text+in.Addr)
		if !ok {
			errs.AddError(&parser.Error{
				Kind: parser.KindLinker, Pos: rel.Pos,
				Message: "undefined label '" + rel.Name + "'",
			})
			continue
		}
		in.Imm = int32(addr)
		in.PreLabel = false
	}
}

func resolveDataRelocs(prog *parser.Program, b baseAddrs, errs *parser.ErrorList) {
	for _, rel := range prog.DataRelocs {
		addr, ok := resolveSymbol(prog, b, rel.Name, b.data+rel.Position)
		if !ok {
			errs.AddError(&parser.Error{
				Kind: parser.KindLinker, Pos: rel.Pos,
				Message: "undefined symbol '" + rel.Name + "'",
			})
			continue
		}
		writeDataRelocation(prog.Data, rel, addr)
	}
}

func writeDataRelocation(data []byte, rel parser.DataRelocation, addr uint32) {
	slot := data[rel.Position : rel.Position+uint32(rel.Width)]
	switch rel.Width {
	case parser.WidthWord:
		binary.LittleEndian.PutUint32(slot, addr)
	case parser.WidthHalf:
		binary.LittleEndian.PutUint16(slot, uint16(addr))
	case parser.WidthByte:
		slot[0] = byte(addr)
	}
}

// resolveSymbol resolves name against the ordinary symbol table first, then
// against numeric local labels ("1f"/"1b"), relative to fromAddr (the
// referencing instruction or data slot's own absolute address).
func resolveSymbol(prog *parser.Program, b baseAddrs, name string, fromAddr uint32) (uint32, bool) {
	if off, ok := prog.Symtab.Lookup(name); ok {
		sect, _ := prog.Symtab.LookupSection(name)
		if sect == parser.SectionData {
			return off + b.data, true
		}
		return off + b.text, true
	}
	return resolveNumericRef(prog, name, fromAddr, b)
}

func resolveNumericRef(prog *parser.Program, name string, fromAddr uint32, b baseAddrs) (uint32, bool) {
	if len(name) < 2 {
		return 0, false
	}
	dir := name[len(name)-1]
	digits := name[:len(name)-1]
	if dir != 'f' && dir != 'b' {
		return 0, false
	}
	if _, err := strconv.Atoi(digits); err != nil {
		return 0, false
	}

	defs, ok := prog.NumericLabels[digits]
	if !ok || len(defs) == 0 {
		return 0, false
	}

	sorted := append([]uint32(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	localFrom := fromAddr - b.text
	if dir == 'f' {
		for _, addr := range sorted {
			if addr > localFrom {
				return addr + b.text, true
			}
		}
		return 0, false
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= localFrom {
			return sorted[i] + b.text, true
		}
	}
	return 0, false
}
