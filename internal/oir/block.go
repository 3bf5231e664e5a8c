package oir

// BasicBlock is a maximal straight-line instruction sequence with one
// entry and one exit. It carries both its instruction list
// (owned, doubly linked) and the CFG edges/dominance fields the
// builder (internal/cfg) fills in, so every graph fact
// about a block lives in one place.
type BasicBlock struct {
	ID uint64

	leader *Instruction
	tail   *Instruction

	Preds []*BasicBlock
	Succs []*BasicBlock

	DomFrontier []*BasicBlock
	IDom        *BasicBlock

	// JumpTable holds per-case target blocks when this block is a
	// switch head; non-nil only then.
	JumpTable []*BasicBlock

	// Frequency is the estimated execution frequency the CFG builder
	// derives from lexical nesting (x10 per enclosing loop, halved
	// per if); the allocator scales spill costs by it. Zero means
	// "not estimated" and reads as 1.
	Frequency uint64

	Function *Function

	// DirectSuccessor is set only by the linearizer (component H): the
	// block laid out immediately after this one in the final
	// instruction stream.
	DirectSuccessor *BasicBlock

	Visited bool
}

// NewBlock allocates an empty basic block owned by fn.
func NewBlock(id uint64, fn *Function) *BasicBlock {
	b := &BasicBlock{ID: id, Function: fn}
	if fn != nil {
		fn.Blocks = append(fn.Blocks, b)
	}
	return b
}

// Leader returns the block's first instruction, or nil if empty.
func (b *BasicBlock) Leader() *Instruction { return b.leader }

// Exit returns the block's last instruction, or nil if empty.
func (b *BasicBlock) Exit() *Instruction { return b.tail }

// IsEmpty reports whether the block has no instructions.
func (b *BasicBlock) IsEmpty() bool { return b.leader == nil }

// AddStatement appends instr at the end of the block's instruction
// list.
func (b *BasicBlock) AddStatement(instr *Instruction) {
	instr.ParentBlock = b
	instr.prev = b.tail
	instr.next = nil
	if b.tail != nil {
		b.tail.next = instr
	} else {
		b.leader = instr
	}
	b.tail = instr
}

// InsertInstructionBefore splices instr immediately before anchor,
// maintaining leader/tail.
func (b *BasicBlock) InsertInstructionBefore(anchor, instr *Instruction) {
	instr.ParentBlock = b
	instr.prev = anchor.prev
	instr.next = anchor
	if anchor.prev != nil {
		anchor.prev.next = instr
	} else {
		b.leader = instr
	}
	anchor.prev = instr
}

// InsertInstructionAfter splices instr immediately after anchor,
// maintaining leader/tail.
func (b *BasicBlock) InsertInstructionAfter(anchor, instr *Instruction) {
	instr.ParentBlock = b
	instr.next = anchor.next
	instr.prev = anchor
	if anchor.next != nil {
		anchor.next.prev = instr
	} else {
		b.tail = instr
	}
	anchor.next = instr
}

// DeleteStatement unlinks instr from the block's instruction list.
// Panics if instr does not belong to this block's list — an internal
// invariant failure.
func (b *BasicBlock) DeleteStatement(instr *Instruction) {
	if instr.ParentBlock != b {
		panic("oir: DeleteStatement called with instruction from another block")
	}
	if instr.prev != nil {
		instr.prev.next = instr.next
	} else {
		b.leader = instr.next
	}
	if instr.next != nil {
		instr.next.prev = instr.prev
	} else {
		b.tail = instr.prev
	}
	instr.prev, instr.next, instr.ParentBlock = nil, nil, nil
}

// Reorder relinks the block's instruction list to match order, which
// must contain exactly the instructions already in the block (the
// scheduler, internal/schedule, computes a new order from the
// data-dependence DAG but never adds or removes instructions).
func (b *BasicBlock) Reorder(order []*Instruction) {
	b.leader = nil
	b.tail = nil
	for _, instr := range order {
		instr.prev = nil
		instr.next = nil
		b.AddStatement(instr)
	}
}

// Instructions returns the block's instructions in program order.
func (b *BasicBlock) Instructions() []*Instruction {
	out := make([]*Instruction, 0)
	for i := b.leader; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

// Count returns the number of instructions currently in the block.
func (b *BasicBlock) Count() int {
	n := 0
	for i := b.leader; i != nil; i = i.next {
		n++
	}
	return n
}

// AddSuccessor wires b -> succ as a CFG edge in both directions.
func (b *BasicBlock) AddSuccessor(succ *BasicBlock) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}
