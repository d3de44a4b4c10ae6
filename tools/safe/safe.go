package safe

import (
	"github.com/homeproapp/realtorapp-server-sub001/logger"
)

// Go starts a goroutine that recovers from panics so a single bad session
// or job cannot take the process down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("goroutine panic recovered: %v", r)
			}
		}()
		f()
	}()
}
