package assert

import (
	"fmt"
	"sync/atomic"
)

var initDepth int32

// NotNil panics when a value required during assembly is missing.
func NotNil(v interface{}) {
	if v == nil {
		panic("assert: unexpected nil during initialization")
	}
}

// NotCircular guards singleton constructors against re-entrant initialization.
func NotCircular() {
	if atomic.AddInt32(&initDepth, 1) > 64 {
		panic(fmt.Sprintf("assert: circular resource initialization detected (depth=%d)", initDepth))
	}
	atomic.AddInt32(&initDepth, -1)
}
