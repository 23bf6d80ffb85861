package ir

import (
	"unsafe"

	"tlog.app/go/tlog/tlwire"

	"github.com/slatelang/slate/compiler/arena"
	"github.com/slatelang/slate/compiler/tp"
)

// NumUserOperandsBits bounds the operand count packed into User.bits.
const (
	NumUserOperandsBits = 27
	MaxOperands         = 1<<NumUserOperandsBits - 1

	hungOffBit      = uint64(1) << NumUserOperandsBits
	numOperandsMask = uint64(MaxOperands)
)

// User is an operation referring to values through its operand uses.
//
// The operand array is not a Go slice. It takes one of two shapes: inline
// operands are carved out of the same arena allocation as the User itself,
// hung-off operands live in a separate raw allocation reached through a slot
// placed before the User.
//
// Inline, count fixed at construction:
//
//	[Use 0][Use 1]...[Use n-1][User]
//
// Hung-off, count may grow (phis):
//
//	[*Use][User]        ->        [Use 0]...[Use n-1][*BasicBlock x n]
//
// Users are values themselves, Value is embedded first.
type User struct {
	Value

	bits uint64

	Op  Op
	Pos int32

	Typ tp.Type

	AuxInt int64

	blk *BasicBlock
}

var (
	useSize  = unsafe.Sizeof(Use{})
	userSize = unsafe.Sizeof(User{})
	ptrSize  = unsafe.Sizeof((*Use)(nil))
)

// Interned types for Typ. Users live outside collector-visible memory, so
// types stored there must stay reachable; these package vars always are.
var (
	I64 tp.Type = tp.Int{Bits: 64, Signed: true}
	U64 tp.Type = tp.Int{Bits: 64}
	Mem tp.Type = tp.Untyped{}
)

// NewUser allocates a user with nops inline operand slots, all unassigned.
func NewUser(op Op, nops int) *User {
	if nops < 0 || nops > MaxOperands {
		panic("ir: too many operands")
	}

	p := arena.Alloc(userSize + uintptr(nops)*useSize)

	u := (*User)(unsafe.Add(p, uintptr(nops)*useSize))
	*u = User{Op: op, bits: uint64(nops)}

	for i := 0; i < nops; i++ {
		q := (*Use)(unsafe.Add(p, uintptr(i)*useSize))
		*q = Use{parent: u}
	}

	return u
}

// NewHungoffUser allocates a user with zero operands and an indirection slot
// for a separately allocated operand array. See User.AllocHungoffUses.
func NewHungoffUser(op Op) *User {
	p := arena.Alloc(userSize + ptrSize)

	u := (*User)(unsafe.Add(p, ptrSize))
	*u = User{Op: op, bits: hungOffBit}

	*(**Use)(p) = nil

	return u
}

func (u *User) HasHungOffUses() bool { return u.bits&hungOffBit != 0 }

func (u *User) NumOperands() int { return int(u.bits & numOperandsMask) }

func (u *User) AsValue() *Value { return &u.Value }

func (u *User) Operand(i int) *Value { return u.opAt(i).Get() }

// SetOperand relinks the i-th operand to point at v. v may be nil.
func (u *User) SetOperand(i int, v *Value) { u.opAt(i).Set(v) }

// OperandUse returns the i-th operand edge itself.
func (u *User) OperandUse(i int) *Use { return u.opAt(i) }

// DropAllReferences clears every operand, unlinking u from all use-lists.
func (u *User) DropAllReferences() {
	for i, n := 0, u.NumOperands(); i < n; i++ {
		u.opAt(i).Set(nil)
	}
}

// ReplaceUsesOfWith rewrites every operand equal to from into to.
func (u *User) ReplaceUsesOfWith(from, to *Value) {
	if from == to {
		return
	}

	if u.Op.IsConstant() && !u.Op.IsGlobal() {
		panic("ir: cannot replace operands of a constant")
	}

	for i, n := 0, u.NumOperands(); i < n; i++ {
		if u.Operand(i) == from {
			u.SetOperand(i, to)
		}
	}
}

// AllocHungoffUses allocates n unassigned operand slots for a hung-off user
// constructed with none. With isPhi an array of n predecessor block pointers
// follows the uses. Reallocation goes through GrowHungoffUses.
func (u *User) AllocHungoffUses(n int, isPhi bool) {
	if !u.HasHungOffUses() {
		panic("ir: alloc must have hung off uses")
	}

	u.allocHungoffUses(n, isPhi)
}

func (u *User) allocHungoffUses(n int, isPhi bool) {
	if n < 0 || n > MaxOperands {
		panic("ir: too many operands")
	}

	size := uintptr(n) * useSize
	if isPhi {
		size += uintptr(n) * blkPtrSize
	}

	base := (*Use)(arena.AllocRaw(size))

	*u.hungoffSlot() = base
	u.bits = u.bits&^numOperandsMask | uint64(n)

	for i := 0; i < n; i++ {
		*useAt(base, i) = Use{parent: u}
	}
}

// GrowHungoffUses reallocates the hung-off array to nnew slots, keeping the
// first NumOperands assignments. Shrinking is not supported.
//
// Live uses are moved structurally: each one replaces itself in its value's
// use-list at the new address before the old array is released, so no list
// ever holds a stale pointer.
func (u *User) GrowHungoffUses(nnew int, isPhi bool) {
	if !u.HasHungOffUses() {
		panic("ir: realloc must have hung off uses")
	}

	nold := u.NumOperands()
	if nnew <= nold {
		panic("ir: realloc must grow num uses")
	}

	oldBase := *u.hungoffSlot()

	u.allocHungoffUses(nnew, isPhi)
	newBase := *u.hungoffSlot()

	for i := 0; i < nold; i++ {
		o := useAt(oldBase, i)
		if o.val == nil {
			continue
		}

		n := useAt(newBase, i)

		n.val = o.val
		n.next = o.next
		n.prev = o.prev

		*n.prev = n

		if n.next != nil {
			n.next.prev = &n.next
		}

		o.val = nil
	}

	if isPhi {
		for i := 0; i < nold; i++ {
			*blockSlot(newBase, nnew, i) = *blockSlot(oldBase, nold, i)
		}
	}

	if oldBase != nil {
		zap(oldBase, nold, true)
	}
}

// IncomingBlock returns the predecessor block paired with the i-th phi operand.
func (u *User) IncomingBlock(i int) *BasicBlock {
	return *u.blockSlotFor(i)
}

func (u *User) SetIncomingBlock(i int, bb *BasicBlock) {
	*u.blockSlotFor(i) = bb
}

// Destroy unlinks every operand from its use-list and returns the user's
// storage to the allocator. The user must not be touched afterwards.
func (u *User) Destroy() {
	n := u.NumOperands()

	if u.HasHungOffUses() {
		if base := *u.hungoffSlot(); base != nil {
			zap(base, n, true)
		}

		arena.Free(unsafe.Pointer(u.hungoffSlot()))

		return
	}

	base := u.opBegin()
	zap(base, n, false)
	arena.Free(unsafe.Pointer(base))
}

// DestroyN destroys an inline user whose operand count field may not have
// been written yet, taking the count the allocation was made with. It backs
// failures between allocation and full construction.
func (u *User) DestroyN(nops int) {
	base := (*Use)(unsafe.Add(unsafe.Pointer(u), -uintptr(nops)*useSize))
	zap(base, nops, false)
	arena.Free(unsafe.Pointer(base))
}

func (u *User) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)

	b = e.AppendKeyInt64(b, "id", int64(u.id))
	b = e.AppendKeyString(b, "op", u.Op.String())
	b = e.AppendKeyInt(b, "ops", u.NumOperands())

	return b
}

func (u *User) opBegin() *Use {
	if u.HasHungOffUses() {
		return *u.hungoffSlot()
	}

	return (*Use)(unsafe.Add(unsafe.Pointer(u), -uintptr(u.NumOperands())*useSize))
}

func (u *User) opAt(i int) *Use {
	if i < 0 || i >= u.NumOperands() {
		panic("ir: operand index out of range")
	}

	return useAt(u.opBegin(), i)
}

func (u *User) hungoffSlot() **Use {
	return (**Use)(unsafe.Add(unsafe.Pointer(u), -ptrSize))
}

func (u *User) blockSlotFor(i int) **BasicBlock {
	if u.Op != OpPhi {
		panic("ir: incoming blocks on a non-phi user")
	}

	if i < 0 || i >= u.NumOperands() {
		panic("ir: incoming block index out of range")
	}

	return blockSlot(*u.hungoffSlot(), u.NumOperands(), i)
}

var blkPtrSize = unsafe.Sizeof((*BasicBlock)(nil))

// blockSlot addresses the i-th entry of the predecessor array that follows
// n uses at base.
func blockSlot(base *Use, n, i int) **BasicBlock {
	p := unsafe.Add(unsafe.Pointer(base), uintptr(n)*useSize+uintptr(i)*blkPtrSize)

	return (**BasicBlock)(p)
}
