package ir

type (
	Func struct {
		Name string

		Blocks []*BasicBlock

		// Vals are the leaf definitions created by NewValue, values not
		// produced by an instruction. The slice also anchors them for the
		// collector, operand slots alone do not.
		Vals []*Value

		nextID ID
	}

	BasicBlock struct {
		Name string

		Instrs []*User

		Preds []*BasicBlock
	}
)

func New(name string) *Func {
	return &Func{Name: name}
}

func (f *Func) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{Name: name}
	f.Blocks = append(f.Blocks, b)

	return b
}

// NewValue creates a leaf value owned by the function.
func (f *Func) NewValue() *Value {
	v := &Value{id: f.id()}
	f.Vals = append(f.Vals, v)

	return v
}

// NewInstr appends a new instruction with nops inline operands to b.
func (f *Func) NewInstr(b *BasicBlock, op Op, nops int) *User {
	u := NewUser(op, nops)
	u.id = f.id()
	u.blk = b

	b.Instrs = append(b.Instrs, u)

	return u
}

// NewPhi appends a phi with room for npreds incoming value/block pairs.
func (f *Func) NewPhi(b *BasicBlock, npreds int) *User {
	u := NewHungoffUser(OpPhi)
	u.id = f.id()
	u.blk = b
	u.AllocHungoffUses(npreds, true)

	b.Instrs = append(b.Instrs, u)

	return u
}

func (f *Func) id() ID {
	f.nextID++
	return f.nextID
}

func (u *User) Block() *BasicBlock { return u.blk }

// RemoveInstr unlinks u from its block's instruction list without
// destroying it.
func (b *BasicBlock) RemoveInstr(u *User) {
	for i, x := range b.Instrs {
		if x == u {
			b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
			return
		}
	}
}
