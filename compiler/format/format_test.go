package format

import (
	"context"
	"strings"
	"testing"

	"github.com/slatelang/slate/compiler/ir"
)

func TestSmoke(t *testing.T) {
	ctx := context.Background()

	f := ir.New("main")
	b := f.NewBlock("entry")

	c := f.NewInstr(b, ir.OpConst, 0)
	c.AuxInt = 42

	d := f.NewInstr(b, ir.OpConst, 0)
	d.AuxInt = 1

	sum := f.NewInstr(b, ir.OpAdd, 2)
	sum.SetOperand(0, c.AsValue())
	sum.SetOperand(1, d.AsValue())

	ret := f.NewInstr(b, ir.OpRet, 1)
	ret.SetOperand(0, sum.AsValue())

	out, err := Func(ctx, nil, f)
	if err != nil {
		t.Errorf("format func: %v", err)
	}

	t.Logf("result:\n%s", out)

	for _, want := range []string{"func main {", "entry:", "add", "ret"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("dump missing %q", want)
		}
	}
}
