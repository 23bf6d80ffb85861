package ir

type (
	// ID is a unique identifier of values within a Func.
	ID int32

	// Value is an ssa definition, anything operands can refer to.
	// It heads the list of every Use pointing at it.
	Value struct {
		uses *Use
		id   ID
	}
)

func (v *Value) ID() ID { return v.id }

// FirstUse returns the head of the use-list, nil if the value is unused.
// Iterate with Use.Next.
func (v *Value) FirstUse() *Use { return v.uses }

func (v *Value) NumUses() (n int) {
	for u := v.uses; u != nil; u = u.next {
		n++
	}

	return n
}

func (v *Value) Used() bool { return v.uses != nil }

func (v *Value) HasOneUse() bool { return v.uses != nil && v.uses.next == nil }

// ReplaceAllUsesWith relinks every use of v to point at to.
func (v *Value) ReplaceAllUsesWith(to *Value) {
	if to == v {
		panic("ir: replacing a value with itself")
	}

	for v.uses != nil {
		v.uses.Set(to)
	}
}

func (v *Value) addUse(u *Use) {
	u.addToList(&v.uses)
}
