package safe

import (
	"HelpLink/logger"
	"HelpLink/tools/errs"
)

// Go starts a goroutine that recovers from panic so a single bad handler
// cannot take down the whole gateway.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", errs.ErrPanic(r))
			}
		}()
		f()
	}()
}
