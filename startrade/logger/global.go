package logger

import (
	"log/slog"
	"time"
)

// LogTrade logs a trade-engine operation.
func LogTrade(msg string, tradeID string, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "trade"),
		slog.String("trade_id", tradeID),
	}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogLedger logs ledger gateway operations.
func LogLedger(op string, sheetRange string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "ledger"),
		slog.String("op", op),
		slog.String("range", sheetRange),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Ledger operation failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Debug("Ledger operation", attrs...)
	}
}

// LogSystem logs system events.
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events.
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
