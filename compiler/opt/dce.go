// Package opt holds transformation passes over the slate IR.
package opt

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slatelang/slate/compiler/ir"
)

// DeadCode removes instructions whose results are unused and that have no
// side effects. Operands of removed instructions are unlinked first, so
// whole dead chains fall in one run.
func DeadCode(ctx context.Context, f *ir.Func) (removed int, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "opt: dead code", "func", f.Name)
	defer tr.Finish("err", &err)

	err = f.Verify()
	if err != nil {
		return 0, errors.Wrap(err, "verify")
	}

	defs := map[*ir.Value]*ir.User{}

	for _, b := range f.Blocks {
		for _, u := range b.Instrs {
			defs[u.AsValue()] = u
		}
	}

	live := roaring.New()

	work := heap.Heap[*ir.User]{Less: userLess}

	for _, b := range f.Blocks {
		for _, u := range b.Instrs {
			if u.Op.HasSideEffects() {
				work.Push(u)
			}
		}
	}

	for work.Len() != 0 {
		u := work.Pop()

		if live.Contains(uint32(u.ID())) {
			continue
		}

		live.Add(uint32(u.ID()))

		for i, n := 0, u.NumOperands(); i < n; i++ {
			v := u.Operand(i)
			if v == nil {
				continue
			}

			if d, ok := defs[v]; ok && !live.Contains(uint32(d.ID())) {
				work.Push(d)
			}
		}
	}

	var dead []*ir.User

	for _, b := range f.Blocks {
		kept := b.Instrs[:0]

		for _, u := range b.Instrs {
			if live.Contains(uint32(u.ID())) {
				kept = append(kept, u)
				continue
			}

			tlog.V("dce_drop").Printw("drop instr", "instr", u, "from", loc.Caller(1))

			dead = append(dead, u)
		}

		b.Instrs = kept
	}

	for _, u := range dead {
		u.DropAllReferences()
	}

	for _, u := range dead {
		u.Destroy()
	}

	removed = len(dead)

	tr.Printw("swept", "removed", removed)

	return removed, nil
}

func userLess(d []*ir.User, i, j int) bool { return d[i].ID() < d[j].ID() }
