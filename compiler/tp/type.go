package tp

type (
	Type interface {
		Size() int
	}

	Int struct {
		Bits   int16
		Signed bool
	}

	Untyped struct{}

	Ptr struct {
		X Type
	}
)

func (x Int) Size() int {
	return int(x.Bits) / 8
}

func (x Ptr) Size() int {
	return 8
}

func (x Untyped) Size() int {
	return 0
}
