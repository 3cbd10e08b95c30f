// Package logger provides a small, thread-safe levelled logger.
//
// Every entry carries a timestamp, the level, an optional component tag
// and the formatted message:
//
//	[2024-07-03 21:40:44.123] [INFO] [worker-2] disconnected; shutting down.
//
// # Basic Usage
//
//	logger.Info("", "listening on %s", addr)
//	logger.Debug("worker-0", "got a job; executing.")
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Warn("pool", "%d queued jobs dropped", n)
//
// Levels are Debug < Info < Warn < Error. ParseLevel turns configuration
// strings such as "debug" or "warn" into a Level.
//
// All operations are guarded by a mutex and safe for concurrent use.
package logger
