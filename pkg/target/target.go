// Package target is the machine model for the Linux x86-64 System V
// target: type sizes, alignments, struct field layout, and the register
// file with its ABI caller/callee-saved classification.
// Everything here is a pure function over pkg/types; no IR is touched.
package target

import "github.com/bpetrakis/lacec/pkg/types"

// PointerSize is the byte width of every pointer on this target.
const PointerSize = 8

// SizeOf returns the size of t in bytes.
func SizeOf(t types.Type) uint64 {
	switch typ := types.Underlying(t).(type) {
	case types.Void:
		return 0
	case types.Bool, types.Char:
		return 1
	case types.Int:
		return uint64(typ.Width) / 8
	case types.UInt:
		return uint64(typ.Width) / 8
	case types.Float:
		return uint64(typ.Width) / 8
	case types.Pointer, types.Function:
		return PointerSize
	case types.Array:
		return uint64(typ.Length) * SizeOf(typ.Elem.Type)
	case *types.Struct:
		return sizeOfStruct(typ)
	case *types.Enum:
		if typ.Underlying != nil {
			return SizeOf(typ.Underlying)
		}
		return 8
	}
	return 0
}

// sizeOfStruct sums field sizes, rounding each field up to its own
// alignment, then rounds the total up to the struct's alignment.
func sizeOfStruct(s *types.Struct) uint64 {
	var size uint64
	for _, f := range s.Fields {
		size = alignUp(size, AlignOf(f.Type.Type))
		size += SizeOf(f.Type.Type)
	}
	return alignUp(size, alignOfStruct(s))
}

// AlignOf returns the alignment requirement of t in bytes.
func AlignOf(t types.Type) uint64 {
	switch typ := types.Underlying(t).(type) {
	case types.Void:
		return 0
	case types.Bool, types.Char:
		return 1
	case types.Int:
		return uint64(typ.Width) / 8
	case types.UInt:
		return uint64(typ.Width) / 8
	case types.Float:
		return uint64(typ.Width) / 8
	case types.Pointer, types.Function:
		return PointerSize
	case types.Array:
		return AlignOf(typ.Elem.Type)
	case *types.Struct:
		return alignOfStruct(typ)
	case *types.Enum:
		if typ.Underlying != nil {
			return AlignOf(typ.Underlying)
		}
		return 8
	}
	return 0
}

// alignOfStruct is the max field alignment, never less than 1.
func alignOfStruct(s *types.Struct) uint64 {
	var align uint64 = 1
	for _, f := range s.Fields {
		if a := AlignOf(f.Type.Type); a > align {
			align = a
		}
	}
	return align
}

// FieldOffset returns the byte offset of field i within s: the cumulative
// size of the preceding fields, each rounded up to its own alignment.
func FieldOffset(s *types.Struct, i int) uint64 {
	var off uint64
	for j := 0; j <= i && j < len(s.Fields); j++ {
		off = alignUp(off, AlignOf(s.Fields[j].Type.Type))
		if j == i {
			return off
		}
		off += SizeOf(s.Fields[j].Type.Type)
	}
	return off
}

func alignUp(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	if r := n % align; r != 0 {
		n += align - r
	}
	return n
}
