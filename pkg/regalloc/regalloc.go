// Package regalloc assigns physical registers to the virtual registers a
// machir.MachineFunction was selected with, using linear scan. Spilling to
// the stack is not implemented — a function that outlives its register
// budget is a defect in the input program, not handled here.
package regalloc

import (
	"sort"

	"github.com/bpetrakis/lacec/pkg/machir"
	"github.com/bpetrakis/lacec/pkg/target"
)

// liveRange is one register's [start, end] position interval within its
// function's flattened instruction stream: first def to last use. A
// virtual range carries its VReg; a physical range (vreg == nil) is a
// pinned window where the selector named that register directly, and
// starts allocated to itself.
type liveRange struct {
	reg        machir.RegID
	vreg       *machir.VReg // nil for a pinned physical-register range
	alloc      machir.RegID
	start, end int
}

// Allocate assigns a physical register to every virtual register live in
// fn, mutating each machir.VReg's Alloc field in place, then inserts
// caller-saved spill/reload pairs around every call site.
func Allocate(fn *machir.MachineFunction) {
	ranges := computeLiveRanges(fn)
	linearScan(ranges, machir.GeneralPurpose, target.AllGeneralPurpose)
	linearScan(ranges, machir.FloatingPoint, target.AllFloatingPoint)
	insertCallSpills(fn, ranges)
}

// computeLiveRanges walks every label in position order and records each
// register's first def and last use, keyed by register id. Physical
// registers the selector named directly (RAX/RDX around division, RCX for
// shifts, the argument registers before a call) get ranges of their own,
// seeded with alloc = their own id, so linearScan can keep virtual
// registers out of those windows.
func computeLiveRanges(fn *machir.MachineFunction) map[machir.RegID]*liveRange {
	ranges := make(map[machir.RegID]*liveRange)
	pos := 0
	touch := func(id machir.RegID) {
		if id == 0 {
			return
		}
		r, ok := ranges[id]
		if !ok {
			if id.IsVirtual() {
				vr := lookupVReg(fn, id)
				if vr == nil {
					return
				}
				r = &liveRange{reg: id, vreg: vr, start: pos, end: pos}
			} else {
				r = &liveRange{reg: id, alloc: id, start: pos, end: pos}
			}
			ranges[id] = r
		}
		if pos > r.end {
			r.end = pos
		}
		if pos < r.start {
			r.start = pos
		}
	}
	for _, label := range fn.Labels {
		for _, inst := range label.Insts {
			pos++
			for _, op := range inst.Operands {
				switch op.Kind {
				case machir.OperandReg:
					touch(op.Reg)
				case machir.OperandMem:
					touch(op.Mem.Base)
					touch(op.Mem.Index)
				}
			}
			for _, id := range implicitRegs(inst.Mnemonic) {
				touch(id)
			}
		}
	}
	return ranges
}

// implicitRegs lists the fixed registers an instruction reads or writes
// without naming them in its operand list: the divide family operates on
// the RAX/RDX pair even when only the divisor is spelled out.
func implicitRegs(mnemonic string) []machir.RegID {
	switch mnemonic {
	case "cqto", "cdq", "idiv", "div":
		return []machir.RegID{physIDOf(target.RAX), physIDOf(target.RDX)}
	}
	return nil
}

func lookupVReg(fn *machir.MachineFunction, id machir.RegID) *machir.VReg {
	for _, vr := range fn.VRegs {
		if vr.ID == id {
			return vr
		}
	}
	return nil
}

// linearScan performs the classic Poletto/Sarkar sweep over the virtual
// ranges of the given class: sort by start, expire finished active ranges
// as the scan advances, and hand out the first register from pool not
// currently held by an active range and whose own pinned physical window
// does not overlap the new range's extent.
func linearScan(ranges map[machir.RegID]*liveRange, class machir.RegClass, pool []target.Reg) {
	var list []*liveRange
	for _, r := range ranges {
		if r.vreg != nil && r.vreg.Class == class {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].start < list[j].start })

	overlapsPinned := func(candidate target.Reg, r *liveRange) bool {
		p, ok := ranges[physIDOf(candidate)]
		return ok && p.start <= r.end && r.start <= p.end
	}

	type active struct {
		r   *liveRange
		reg target.Reg
	}
	var actives []active

	for _, r := range list {
		kept := actives[:0]
		for _, a := range actives {
			if a.r.end > r.start {
				kept = append(kept, a)
			}
		}
		actives = kept

		used := make(map[target.Reg]bool)
		for _, a := range actives {
			used[a.reg] = true
		}
		var assigned target.Reg
		for _, candidate := range pool {
			if !used[candidate] && !overlapsPinned(candidate, r) {
				assigned = candidate
				break
			}
		}
		if assigned == "" {
			// Pool exhausted: fall back to the last unpinned register in the
			// pool rather than spilling (spilling locals to the stack is out
			// of scope, see package doc).
			assigned = pool[len(pool)-1]
			for i := len(pool) - 1; i >= 0; i-- {
				if !overlapsPinned(pool[i], r) {
					assigned = pool[i]
					break
				}
			}
		}
		r.alloc = physIDOf(assigned)
		r.vreg.Alloc = r.alloc
		actives = append(actives, active{r: r, reg: assigned})
	}
}

var physRegIDs = buildPhysRegIDs()

func buildPhysRegIDs() map[target.Reg]machir.RegID {
	m := make(map[target.Reg]machir.RegID)
	var id machir.RegID = 1
	for _, r := range target.AllGeneralPurpose {
		m[r] = id
		id++
	}
	for _, r := range target.AllFloatingPoint {
		m[r] = id
		id++
	}
	return m
}

func physIDOf(r target.Reg) machir.RegID { return physRegIDs[r] }

// insertCallSpills runs a second linear scan: at every `call` instruction,
// any virtual live range that is both caller-saved-allocated and alive
// across the call gets a PUSH before and a POP after, in source-register
// order — this is what lets the allocator ignore call clobbering during
// the main scan above.
func insertCallSpills(fn *machir.MachineFunction, ranges map[machir.RegID]*liveRange) {
	pos := 0
	for _, label := range fn.Labels {
		var out []machir.MachineInstruction
		for _, inst := range label.Insts {
			pos++
			if inst.Mnemonic == "call" {
				live := liveAcross(ranges, pos)
				for _, r := range live {
					if target.IsCallerSaved(physRegName(r.vreg.Alloc)) {
						out = append(out, machir.MachineInstruction{Mnemonic: "push", Operands: []machir.Operand{regOp(r.vreg.Alloc)}})
					}
				}
				out = append(out, inst)
				for i := len(live) - 1; i >= 0; i-- {
					r := live[i]
					if target.IsCallerSaved(physRegName(r.vreg.Alloc)) {
						out = append(out, machir.MachineInstruction{Mnemonic: "pop", Operands: []machir.Operand{regOp(r.vreg.Alloc)}})
					}
				}
				continue
			}
			out = append(out, inst)
		}
		label.Insts = out
	}
}

// liveAcross returns the virtual ranges spanning pos. Pinned physical
// windows are excluded: their values belong to the fixed-register
// sequence that named them, not to a vreg needing preservation.
func liveAcross(ranges map[machir.RegID]*liveRange, pos int) []*liveRange {
	var out []*liveRange
	for _, r := range ranges {
		if r.vreg == nil {
			continue
		}
		if r.start < pos && r.end > pos {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].vreg.ID < out[j].vreg.ID })
	return out
}

func regOp(id machir.RegID) machir.Operand {
	return machir.Operand{Kind: machir.OperandReg, Size: machir.Size8, Reg: id}
}

var physRegNames = buildPhysRegNames()

func buildPhysRegNames() map[machir.RegID]target.Reg {
	m := make(map[machir.RegID]target.Reg)
	for name, id := range physRegIDs {
		m[id] = name
	}
	return m
}

func physRegName(id machir.RegID) target.Reg { return physRegNames[id] }
