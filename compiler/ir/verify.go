package ir

import (
	"tlog.app/go/errors"
)

// Verify walks every use-list and operand array of the function and returns
// an error describing the first broken invariant. It is meant for tests and
// debugging passes, not for the hot path.
func (f *Func) Verify() error {
	linked := map[*Use]*Value{}

	check := func(v *Value) error {
		prev := &v.uses

		for u := v.uses; u != nil; u = u.next {
			if u.val != v {
				return errors.New("use of v%d links a different value", v.id)
			}

			if u.prev != prev {
				return errors.New("v%d use-list: prev does not address the linking slot", v.id)
			}

			if *u.prev != u {
				return errors.New("v%d use-list: *prev is not the use itself", v.id)
			}

			if _, ok := linked[u]; ok {
				return errors.New("v%d use-list: use linked twice", v.id)
			}

			linked[u] = v
			prev = &u.next
		}

		return nil
	}

	for _, v := range f.Vals {
		if err := check(v); err != nil {
			return err
		}
	}

	for _, b := range f.Blocks {
		for _, u := range b.Instrs {
			if err := check(u.AsValue()); err != nil {
				return errors.Wrap(err, "block %v", b.Name)
			}
		}
	}

	seen := map[*Use]bool{}

	for _, b := range f.Blocks {
		for _, u := range b.Instrs {
			n := u.NumOperands()
			if n > MaxOperands {
				return errors.New("block %v instr v%d: operand count out of range", b.Name, u.id)
			}

			for i := 0; i < n; i++ {
				use := u.OperandUse(i)

				if use.User() != u {
					return errors.New("block %v instr v%d operand %d: wrong parent", b.Name, u.id, i)
				}

				if use.OperandNo() != i {
					return errors.New("block %v instr v%d operand %d: operand index mismatch", b.Name, u.id, i)
				}

				if use.Get() == nil {
					continue
				}

				if linked[use] != use.Get() {
					return errors.New("block %v instr v%d operand %d: use not linked into its value's use-list", b.Name, u.id, i)
				}

				seen[use] = true
			}
		}
	}

	for u, v := range linked {
		if !seen[u] {
			return errors.New("v%d use-list holds a use outside any operand array", v.id)
		}
	}

	return nil
}
