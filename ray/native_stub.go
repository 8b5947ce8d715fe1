//go:build !rayforce

package ray

import "fmt"

// NewNative returns a placeholder engine in builds without the native
// runtime linked in. Init fails with instructions; nothing else is ever
// reached because the bridge refuses to start on a failed Init.
func NewNative() Engine {
	return unavailableEngine{}
}

type unavailableEngine struct{}

func (unavailableEngine) Init() error {
	return fmt.Errorf("built without the rayforce runtime; rebuild with -tags rayforce")
}

func (unavailableEngine) Eval(string) Value              { return nil }
func (unavailableEngine) Release(Value)                  {}
func (unavailableEngine) At(Value, int64) Value          { return nil }
func (unavailableEngine) Field(Value, string) Value      { return nil }
func (unavailableEngine) Keys(Value) Value               { return nil }
func (unavailableEngine) Vals(Value) Value               { return nil }
func (unavailableEngine) Count(Value) int64              { return 0 }
func (unavailableEngine) Int(Value) int64                { return 0 }
func (unavailableEngine) Float(Value) float64            { return 0 }
func (unavailableEngine) Text(Value) string              { return "" }
func (unavailableEngine) Ints(Value) ([]int64, bool)     { return nil, false }
func (unavailableEngine) Floats(Value) ([]float64, bool) { return nil, false }
func (unavailableEngine) Close()                         {}
