package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
)

const handlerTimeout = 10 * time.Second

// WrapWithLogging wraps a command handler with start/finish logging and a
// timeout guard.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return runLogged("cmd", name, e.User().ID.String(), e.User().Username, func() error {
			return h(e)
		})
	}
}

// WrapComponentWithLogging is WrapWithLogging for component interactions.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return runLogged("component", name, e.User().ID.String(), e.User().Username, func() error {
			return h(e)
		})
	}
}

func runLogged(kind, name, userID, userName string, fn func() error) error {
	start := time.Now()

	slog.Info("Interaction started",
		slog.String("type", "cmd"),
		slog.String("kind", kind),
		slog.String("name", name),
		slog.String("user_id", userID),
		slog.String("user_name", userName),
	)

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		duration := time.Since(start)
		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("kind", kind),
			slog.String("name", name),
			slog.String("user_id", userID),
			slog.String("user_name", userName),
			slog.Duration("took", duration),
		}

		switch {
		case err != nil:
			slog.Error("Interaction failed", append(attrs,
				slog.Any("error", err),
				slog.String("status", "failed"),
			)...)
		case duration > 2*time.Second:
			slog.Warn("Interaction ran slowly", append(attrs,
				slog.String("status", "slow"),
			)...)
		default:
			slog.Info("Interaction completed", append(attrs,
				slog.String("status", "success"),
			)...)
		}
		return err

	case <-time.After(handlerTimeout):
		slog.Error("Interaction timed out",
			slog.String("type", "cmd"),
			slog.String("kind", kind),
			slog.String("name", name),
			slog.String("user_id", userID),
			slog.String("status", "timeout"),
			slog.Duration("timeout", handlerTimeout),
		)
		return fmt.Errorf("%s %s timed out after %s", kind, name, handlerTimeout)
	}
}
