package opt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slatelang/slate/compiler/arena"
	"github.com/slatelang/slate/compiler/ir"
)

func TestSmoke(t *testing.T) {
	ctx := context.Background()

	f := ir.New("empty")

	removed, err := DeadCode(ctx, f)
	if err != nil {
		t.Errorf("dead code: %v", err)
	}

	if removed != 0 {
		t.Errorf("removed %d from an empty func", removed)
	}
}

func TestDeadChain(t *testing.T) {
	s := arena.NewScope()
	defer s.Close()

	ctx := context.Background()

	f := ir.New("f")
	b := f.NewBlock("entry")

	x := f.NewInstr(b, ir.OpParam, 0)

	sum := f.NewInstr(b, ir.OpAdd, 2)
	sum.SetOperand(0, x.AsValue())
	sum.SetOperand(1, x.AsValue())

	// dead chain: prod uses sum, nothing uses prod
	prod := f.NewInstr(b, ir.OpMul, 2)
	prod.SetOperand(0, sum.AsValue())
	prod.SetOperand(1, x.AsValue())

	ret := f.NewInstr(b, ir.OpRet, 1)
	ret.SetOperand(0, sum.AsValue())

	removed, err := DeadCode(ctx, f)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	require.Len(t, b.Instrs, 3)
	require.NoError(t, f.Verify())

	// sum stays used by ret only
	require.Equal(t, 1, sum.AsValue().NumUses())
}

func TestKeepsSideEffects(t *testing.T) {
	s := arena.NewScope()
	defer s.Close()

	ctx := context.Background()

	f := ir.New("f")
	b := f.NewBlock("entry")

	p := f.NewInstr(b, ir.OpParam, 0)

	st := f.NewInstr(b, ir.OpStore, 2)
	st.SetOperand(0, p.AsValue())
	st.SetOperand(1, p.AsValue())

	removed, err := DeadCode(ctx, f)
	require.NoError(t, err)
	require.Equal(t, 0, removed)
	require.Len(t, b.Instrs, 2)
}

func TestPhiKeptThroughRet(t *testing.T) {
	s := arena.NewScope()
	defer s.Close()

	ctx := context.Background()

	f := ir.New("f")
	entry := f.NewBlock("entry")
	merge := f.NewBlock("merge")

	x := f.NewInstr(entry, ir.OpParam, 0)

	phi := f.NewPhi(merge, 1)
	phi.SetOperand(0, x.AsValue())
	phi.SetIncomingBlock(0, entry)

	ret := f.NewInstr(merge, ir.OpRet, 1)
	ret.SetOperand(0, phi.AsValue())

	removed, err := DeadCode(ctx, f)
	require.NoError(t, err)
	require.Equal(t, 0, removed)
	require.NoError(t, f.Verify())
}
