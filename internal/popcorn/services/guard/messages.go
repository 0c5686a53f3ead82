package guard

import (
	"fmt"

	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/gateways/page"
)

// messageListener stops messages from blocked origins before any other
// listener sees them. A classifier failure drops the message.
func messageListener(classifier Classifier, logger log.Logger) page.Listener {
	return func(e *page.Event) {
		defer func() {
			if r := recover(); r != nil {
				e.StopImmediatePropagation()
				logListenerPanic(logger, GuardMessage, r)
			}
		}()
		v := classifier.Decide(e.Origin)
		if v.IsBlocked() {
			e.StopImmediatePropagation()
			logger.Info(v.Fields(e.Origin), "blocked cross-frame message")
		}
	}
}

func logListenerPanic(logger log.Logger, guard string, r any) {
	logger.Error(map[string]any{"guard": guard, "panic": fmt.Sprint(r)}, "guard listener failed")
}
