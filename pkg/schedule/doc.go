// Package schedule runs periodic in-process tasks on interval, hourly, or
// daily schedules.
//
// A Runner polls registered tasks on a check interval and starts any that
// are due. Runs of one task never overlap: a task still running when its
// next slot arrives skips that slot. Panics inside a task are recovered and
// logged. Start blocks until the context is canceled and then waits for
// in-flight tasks to finish.
package schedule
