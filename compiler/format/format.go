package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slatelang/slate/compiler/ir"
)

// Func appends a textual dump of the function to b.
func Func(ctx context.Context, b []byte, f *ir.Func) (_ []byte, err error) {
	b = hfmt.Appendf(b, "func %v {\n", f.Name)

	for _, blk := range f.Blocks {
		b, err = block(ctx, b, blk)
		if err != nil {
			return nil, errors.Wrap(err, "block %v", blk.Name)
		}
	}

	b = append(b, "}\n"...)

	return b, nil
}

func block(ctx context.Context, b []byte, blk *ir.BasicBlock) (_ []byte, err error) {
	b = hfmt.Appendf(b, "%v:\n", blk.Name)

	for _, u := range blk.Instrs {
		b, err = instr(ctx, b, u)
		if err != nil {
			return nil, errors.Wrap(err, "instr v%d", u.ID())
		}
	}

	return b, nil
}

func instr(ctx context.Context, b []byte, u *ir.User) ([]byte, error) {
	if u.Op == ir.OpInvalid {
		return nil, errors.New("unsupported op: %v", u.Op)
	}

	b = app(b, 1, "v%d = %v", u.ID(), u.Op)

	switch {
	case u.Op == ir.OpConst || u.Op == ir.OpGlobal || u.Op == ir.OpParam:
		b = app(b, 0, " [%d]", u.AuxInt)
	case u.Op == ir.OpPhi:
		for i, n := 0, u.NumOperands(); i < n; i++ {
			b = append(b, sep(i)...)
			b = appOperand(b, u.Operand(i))

			if bb := u.IncomingBlock(i); bb != nil {
				b = app(b, 0, " %v", bb.Name)
			}
		}
	default:
		for i, n := 0, u.NumOperands(); i < n; i++ {
			b = append(b, sep(i)...)
			b = appOperand(b, u.Operand(i))
		}
	}

	b = append(b, '\n')

	return b, nil
}

func appOperand(b []byte, v *ir.Value) []byte {
	if v == nil {
		return append(b, '_')
	}

	return app(b, 0, "v%d", v.ID())
}

func sep(i int) string {
	if i == 0 {
		return " "
	}

	return ", "
}

func app(b []byte, d int, f string, args ...any) []byte {
	for i := 0; i < d; i++ {
		b = append(b, '\t')
	}

	b = hfmt.Appendf(b, f, args...)

	return b
}
