// internal/browser/session/context_utils.go
package session

import (
	"context"
	"time"
)

// CombineContext derives a context from ctx1 that is also canceled when ctx2 is done.
// Values come from ctx1 only, which matters for chromedp: ctx1 carries the CDP target
// and ctx2 carries the caller's deadline. When ctx2 has the earlier deadline it is
// applied to the result as well so chromedp sees it.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	var (
		combined context.Context
		cancel   context.CancelFunc
	)
	d1, ok1 := ctx1.Deadline()
	d2, ok2 := ctx2.Deadline()
	if ok2 && (!ok1 || d2.Before(d1)) {
		combined, cancel = context.WithDeadline(ctx1, d2)
	} else {
		combined, cancel = context.WithCancel(ctx1)
	}

	stop := context.AfterFunc(ctx2, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// valueOnlyContext keeps its parent's values but drops its deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                    { return nil }
func (valueOnlyContext) Err() error                               { return nil }

// Detach returns a context with ctx's values that is never canceled by ctx. Cleanup
// that must run after the caller gave up (closing the browser on Ctrl-C) uses it.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
