// Package schedule reorders each block's already-selected instructions
// for instruction-level parallelism: build the data-dependence DAG
// (RAW/WAW/WAR on SSA operands, plus a conservative total order over
// memory and call effects), compute each node's priority as its
// longest path to a DAG sink, and run list scheduling off a max-heap
// of ready nodes, breaking ties by an estimated spill cost and falling
// back to original program order.
package schedule

import (
	"nanoc/internal/container"
	"nanoc/internal/oir"
)

// Run rebuilds the data-dependence DAG and reschedules every block of
// fn in place.
func Run(fn *oir.Function) {
	for _, blk := range fn.Blocks {
		scheduleBlock(blk)
	}
}

func scheduleBlock(blk *oir.BasicBlock) {
	instrs := blk.Instructions()
	if len(instrs) <= 1 {
		return
	}
	buildDDG(instrs)
	priority := computePriority(instrs)
	order := listSchedule(instrs, priority)
	blk.Reorder(order)
}

func readOperands(in *oir.Instruction) []*oir.Variable {
	var out []*oir.Variable
	if in.Op1 != nil {
		out = append(out, in.Op1)
	}
	if in.Op2 != nil {
		out = append(out, in.Op2)
	}
	if in.AddrReg1 != nil {
		out = append(out, in.AddrReg1)
	}
	if in.AddrReg2 != nil {
		out = append(out, in.AddrReg2)
	}
	out = append(out, in.Args...)
	return out
}

func isMemoryOp(in *oir.Instruction) bool {
	switch in.Kind {
	case oir.StmtLoad, oir.StmtLoadConstOffset, oir.StmtLoadVarOffset,
		oir.StmtStore, oir.StmtStoreConstOffset, oir.StmtStoreVarOffset,
		oir.StmtCall, oir.StmtIndirectCall:
		return true
	}
	return false
}

func isLoadOp(in *oir.Instruction) bool {
	switch in.Kind {
	case oir.StmtLoad, oir.StmtLoadConstOffset, oir.StmtLoadVarOffset:
		return true
	}
	return false
}

func addEdge(pred, succ *oir.Instruction) {
	if pred == succ {
		return
	}
	for _, s := range pred.DDGSuccs {
		if s == succ {
			return
		}
	}
	pred.DDGSuccs = append(pred.DDGSuccs, succ)
	succ.DDGPreds = append(succ.DDGPreds, pred)
}

// buildDDG fills in every instruction's DDGPreds/DDGSuccs from scratch.
// Memory operations and calls are conservatively treated as aliasing
// everything: nanoc has no alias analysis,
// so any two memory effects, in either order, must keep their relative
// program order.
func buildDDG(instrs []*oir.Instruction) {
	for _, in := range instrs {
		in.DDGPreds = nil
		in.DDGSuccs = nil
	}

	lastWriter := make(map[*oir.Variable]*oir.Instruction)
	lastReaders := make(map[*oir.Variable][]*oir.Instruction)
	var lastMemoryOp *oir.Instruction
	var loadsSinceLastMemoryOp []*oir.Instruction

	for _, in := range instrs {
		for _, r := range readOperands(in) {
			if w := lastWriter[r]; w != nil {
				addEdge(w, in)
			}
		}
		if in.Assignee != nil {
			for _, rd := range lastReaders[in.Assignee] {
				addEdge(rd, in)
			}
			if w := lastWriter[in.Assignee]; w != nil {
				addEdge(w, in)
			}
			lastWriter[in.Assignee] = in
			lastReaders[in.Assignee] = nil
		}
		for _, r := range readOperands(in) {
			lastReaders[r] = append(lastReaders[r], in)
		}

		if isMemoryOp(in) {
			if lastMemoryOp != nil {
				addEdge(lastMemoryOp, in)
			}
			for _, ld := range loadsSinceLastMemoryOp {
				addEdge(ld, in)
			}
			lastMemoryOp = in
			loadsSinceLastMemoryOp = nil
			if isLoadOp(in) {
				loadsSinceLastMemoryOp = append(loadsSinceLastMemoryOp, in)
			}
		}
	}

	// The x86 state the operand analysis above cannot see still orders
	// instructions: the RDX:RAX pair the DIV/MUL expansions stage
	// through, and EFLAGS between a test/cmp and the setcc that
	// consumes it.
	var lastImplicitPair *oir.Instruction
	for _, in := range instrs {
		if usesImplicitPair(in) {
			if lastImplicitPair != nil {
				addEdge(lastImplicitPair, in)
			}
			lastImplicitPair = in
		}
	}

	hasFlagReader := false
	for _, in := range instrs {
		if in.Kind == oir.StmtSetCC {
			hasFlagReader = true
			break
		}
	}
	if hasFlagReader {
		var lastFlagWriter *oir.Instruction
		var readersSince []*oir.Instruction
		for _, in := range instrs {
			if writesFlags(in) {
				if lastFlagWriter != nil {
					addEdge(lastFlagWriter, in)
				}
				for _, r := range readersSince {
					addEdge(r, in)
				}
				readersSince = nil
				lastFlagWriter = in
			}
			if in.Kind == oir.StmtSetCC {
				if lastFlagWriter != nil {
					addEdge(lastFlagWriter, in)
				}
				readersSince = append(readersSince, in)
			}
		}
	}

	// Branch-ending instructions (conditional jumps and the trailing
	// unconditional jump/return) stay at the end, in their original
	// relative order, regardless of what the dependence analysis
	// found.
	for i, in := range instrs {
		if !in.IsBranchEnding {
			continue
		}
		for _, before := range instrs[:i] {
			addEdge(before, in)
		}
	}
}

// usesImplicitPair reports whether in's selected form names the
// RDX:RAX pair one of the DIV/MOD/MUL expansions stages values
// through; those sequences keep their program order.
func usesImplicitPair(in *oir.Instruction) bool {
	for _, r := range [...]string{in.SrcReg, in.DstReg} {
		switch r {
		case "rax", "rdx", "rdx:rax":
			return true
		}
	}
	return false
}

// writesFlags reports whether in's x86 rendering clobbers EFLAGS.
// Plain moves, loads, stores, and LEA do not; arithmetic, inc/dec,
// neg, test, and cmp do.
func writesFlags(in *oir.Instruction) bool {
	switch in.Kind {
	case oir.StmtBinaryOp, oir.StmtBinaryOpWithConst,
		oir.StmtUnaryNegate, oir.StmtBitwiseNot,
		oir.StmtInc, oir.StmtDec,
		oir.StmtTest, oir.StmtCmp:
		return true
	}
	return false
}

// loadLatencyCycles is the estimated cycle count charged to a load
// node, reflecting a possible cache miss; every other instruction
// defaults to one cycle.
const loadLatencyCycles = 4

func latencyOf(in *oir.Instruction) int {
	if isLoadOp(in) {
		return loadLatencyCycles
	}
	return 1
}

// computePriority assigns each instruction its longest latency-
// weighted path to a DAG sink, memoized since the same node can be an
// ancestor of many others.
func computePriority(instrs []*oir.Instruction) map[*oir.Instruction]int {
	memo := make(map[*oir.Instruction]int, len(instrs))
	var longest func(*oir.Instruction) int
	longest = func(in *oir.Instruction) int {
		if v, ok := memo[in]; ok {
			return v
		}
		best := 0
		for _, s := range in.DDGSuccs {
			if p := longest(s); p > best {
				best = p
			}
		}
		memo[in] = best + latencyOf(in)
		return memo[in]
	}
	for _, in := range instrs {
		longest(in)
	}
	return memo
}

// spillCostEstimate approximates how expensive it would be to leave
// this instruction's result live across the schedule: instructions
// defining a value with more uses are deprioritized relative to ones
// whose result is consumed immediately, since the allocator
// (internal/regalloc) has not run yet and cannot supply a real figure.
func spillCostEstimate(in *oir.Instruction) int {
	if in.Assignee == nil {
		return 0
	}
	return in.Assignee.UseCount
}

// listSchedule runs the classical ready-list scheduling algorithm:
// pop the highest-priority ready node, tie-broken by the lowest
// estimated spill cost and then by original program order, and
// release its successors once every one of their predecessors has
// been scheduled.
func listSchedule(instrs []*oir.Instruction, priority map[*oir.Instruction]int) []*oir.Instruction {
	programIndex := make(map[*oir.Instruction]int, len(instrs))
	for i, in := range instrs {
		programIndex[in] = i
	}
	indegree := make(map[*oir.Instruction]int, len(instrs))
	for _, in := range instrs {
		indegree[in] = len(in.DDGPreds)
	}

	ready := container.NewMaxHeap[oir.Instruction]()
	key := func(in *oir.Instruction) int {
		// Pack (priority, -spillCost, -programIndex) into one ordering
		// key: priority dominates, then prefer cheaper-to-hold results,
		// then prefer earlier original placement.
		return priority[in]*1_000_000 - spillCostEstimate(in)*1_000 - programIndex[in]
	}
	for _, in := range instrs {
		if indegree[in] == 0 {
			ready.Push(key(in), in)
		}
	}

	order := make([]*oir.Instruction, 0, len(instrs))
	for ready.Len() > 0 {
		_, in := ready.Pop()
		order = append(order, in)
		for _, succ := range in.DDGSuccs {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready.Push(key(succ), succ)
			}
		}
	}
	return order
}
