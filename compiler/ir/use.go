package ir

import (
	"unsafe"

	"github.com/slatelang/slate/compiler/arena"
)

// Use is a single def-use edge: the operand slot of a User pointing at a
// Value, and at the same time a node in that Value's use-list.
//
// prev points at whatever slot holds this use: the value's list head or the
// previous use's next field. That makes unlink O(1) from either end. val nil
// means the edge is unassigned and the links are meaningless.
type Use struct {
	val    *Value
	next   *Use
	prev   **Use
	parent *User
}

func (u *Use) Get() *Value { return u.val }

// User returns the operation owning this operand slot.
func (u *Use) User() *User { return u.parent }

// Next returns the following use of the same value, for use-list iteration.
func (u *Use) Next() *Use { return u.next }

// Set relinks the edge to point at v. Setting the current value is a no-op.
func (u *Use) Set(v *Value) {
	if u.val == v {
		return
	}

	if u.val != nil {
		u.removeFromList()
	}

	u.val = v

	if v != nil {
		v.addUse(u)
	}
}

// Swap relinks both edges so each ends up in the other's former use-list.
func (u *Use) Swap(rhs *Use) {
	if u.val == rhs.val {
		return
	}

	if u.val != nil {
		u.removeFromList()
	}

	old := u.val

	if rhs.val != nil {
		rhs.removeFromList()

		u.val = rhs.val
		u.val.addUse(u)
	} else {
		u.val = nil
	}

	if old != nil {
		rhs.val = old
		rhs.val.addUse(rhs)
	} else {
		rhs.val = nil
	}
}

// OperandNo returns the index of this use in its user's operand array.
func (u *Use) OperandNo() int {
	base := u.parent.opBegin()

	return int((uintptr(unsafe.Pointer(u)) - uintptr(unsafe.Pointer(base))) / useSize)
}

func (u *Use) addToList(head **Use) {
	u.next = *head

	if u.next != nil {
		u.next.prev = &u.next
	}

	u.prev = head
	*head = u
}

func (u *Use) removeFromList() {
	*u.prev = u.next

	if u.next != nil {
		u.next.prev = u.prev
	}
}

// zap unlinks n uses starting at start, in reverse order. With release set
// the backing storage is returned to the allocator as well; callers pass the
// correct base for the shape they destroy.
func zap(start *Use, n int, release bool) {
	for i := n - 1; i >= 0; i-- {
		u := useAt(start, i)

		if u.val != nil {
			u.removeFromList()
			u.val = nil
		}
	}

	if release {
		arena.Free(unsafe.Pointer(start))
	}
}

func useAt(base *Use, i int) *Use {
	return (*Use)(unsafe.Add(unsafe.Pointer(base), uintptr(i)*useSize))
}
