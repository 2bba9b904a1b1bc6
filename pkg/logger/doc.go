// Package logger provides a small factory around log/slog plus attribute
// helpers shared by the rest of the module.
//
// The factory returns a *slog.Logger configured through functional options:
//
//	log := logger.New(
//	    logger.WithService("stocksync"),
//	    logger.WithLevel(slog.LevelDebug),
//	)
//
// The attribute helpers (logger.UserID, logger.ItemID, logger.Error, ...)
// keep attribute keys consistent across packages so log aggregation queries
// do not have to account for spelling drift.
package logger
