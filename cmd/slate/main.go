package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slatelang/slate/compiler/arena"
	"github.com/slatelang/slate/compiler/format"
	"github.com/slatelang/slate/compiler/ir"
	"github.com/slatelang/slate/compiler/opt"
)

func main() {
	demoCmd := &cli.Command{
		Name:        "demo",
		Description: "build a demo function, run dead code elimination, dump it",
		Action:      demoAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "slate",
		Description: "slate is a tool for poking at the slate ir",
		Commands: []*cli.Command{
			demoCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func demoAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	s := arena.NewScope()
	defer s.Close()

	f, err := demoFunc()
	if err != nil {
		return errors.Wrap(err, "build demo func")
	}

	removed, err := opt.DeadCode(ctx, f)
	if err != nil {
		return errors.Wrap(err, "dead code")
	}

	tlog.Printw("dead code", "removed", removed)

	b, err := format.Func(ctx, nil, f)
	if err != nil {
		return errors.Wrap(err, "format")
	}

	fmt.Printf("%s", b)

	return nil
}

func demoFunc() (*ir.Func, error) {
	f := ir.New("demo")

	entry := f.NewBlock("entry")
	exit := f.NewBlock("exit")
	exit.Preds = append(exit.Preds, entry)

	x := f.NewInstr(entry, ir.OpParam, 0)
	y := f.NewInstr(entry, ir.OpParam, 0)
	y.AuxInt = 1

	sum := f.NewInstr(entry, ir.OpAdd, 2)
	sum.Typ = ir.I64
	sum.SetOperand(0, x.AsValue())
	sum.SetOperand(1, y.AsValue())

	// unused, dead code fodder
	prod := f.NewInstr(entry, ir.OpMul, 2)
	prod.SetOperand(0, sum.AsValue())
	prod.SetOperand(1, x.AsValue())

	phi := f.NewPhi(exit, 1)
	phi.SetOperand(0, sum.AsValue())
	phi.SetIncomingBlock(0, entry)

	ret := f.NewInstr(exit, ir.OpRet, 1)
	ret.SetOperand(0, phi.AsValue())

	if err := f.Verify(); err != nil {
		return nil, errors.Wrap(err, "verify")
	}

	return f, nil
}
