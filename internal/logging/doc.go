// Package logging provides structured logging for collaboration sessions.
//
// This package wraps Go's log/slog to emit JSON lines that can be filtered
// after the fact, e.g. to reconstruct who held which edit lock when.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("session started", "code", code)
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	l := logger.WithSession("K3Q9ZX").WithParticipant("u1").WithComponent("editlock")
//	l.Debug("stale release ignored", "section", "Skills", "field", "name")
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"stale release ignored","session_code":"K3Q9ZX","participant_id":"u1","component":"editlock","section":"Skills","field":"name"}
//
// # Rotation and Reading Back
//
// [NewLogger] rolls collab.log to collab.log.1, .2, ... once it passes
// 10MB; [NewRotatingLogger] takes explicit [RotationConfig] settings.
// [ReadLogs] merges the live file and its rolled siblings, and
// [FilterEntries] and [WriteEntries] back the "logs" command.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on entries.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package logging
