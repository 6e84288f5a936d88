package clock

import "go.uber.org/fx"

// Module provides the wall clock. Tests substitute Fixed via fx.Replace
// or by wiring services directly.
var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
