// Package async provides simple, generic helpers for running computations
// asynchronously and waiting for their completion.
//
// The package is centred around the generic type Future that represents the
// eventual result of an asynchronous operation. A Future is obtained by
// calling Async, which starts the supplied function in its own goroutine and
// immediately returns. Callers wait with Await, block with a deadline using
// AwaitWithTimeout, or poll with IsComplete.
//
// WaitAll collects every result and stops at the first error; CollectAll
// collects every result and every error positionally, which suits fan-outs
// whose units of work succeed or fail independently.
package async
