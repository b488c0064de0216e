package service

import (
	"context"

	"labelcast/internal/logger"
	"labelcast/internal/notify"
)

// Alert sends m on its own deadline, so it still goes out after ctx is
// cancelled. A nil notifier is skipped.
func Alert(ctx context.Context, n Notifier, log *logger.Logger, m notify.Message) {
	if n == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.Send(nctx, m); err != nil {
		log.Errorw("notify_failed", "title", m.Title, "err", err)
	}
}
