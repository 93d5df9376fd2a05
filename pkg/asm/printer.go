package asm

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders a File as GNU AT&T assembly text.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// Print writes f to the printer's writer.
func (p *Printer) Print(f *File) error {
	for _, l := range f.Lines {
		switch {
		case l.Blank:
			if _, err := fmt.Fprintln(p.w); err != nil {
				return err
			}
		case l.Directive != nil:
			if _, err := fmt.Fprintf(p.w, "\t%s %s\n", l.Directive.Name, strings.Join(l.Directive.Args, ", ")); err != nil {
				return err
			}
		case l.Label != nil:
			if _, err := fmt.Fprintf(p.w, "%s:\n", l.Label.Name); err != nil {
				return err
			}
		case l.Instr != nil:
			ops := strings.Join(l.Instr.Operands, ", ")
			if ops == "" {
				if _, err := fmt.Fprintf(p.w, "\t%s\n", l.Instr.Mnemonic); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(p.w, "\t%s %s\n", l.Instr.Mnemonic, ops); err != nil {
				return err
			}
		case l.Comment != "":
			if _, err := fmt.Fprintf(p.w, "\t# %s\n", l.Comment); err != nil {
				return err
			}
		}
	}
	return nil
}
