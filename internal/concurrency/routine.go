package concurrency

import (
	"log/slog"
	"runtime/debug"
)

// SafeGo runs fn in a goroutine. A panic is logged with its stack under
// name and handed to onPanic instead of crashing the process.
func SafeGo(name string, fn func(), onPanic func(interface{})) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic recovered", "goroutine", name, "panic", r, "stack", string(debug.Stack()))
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
