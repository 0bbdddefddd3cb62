package logger

import (
	"go.uber.org/zap/zapcore"
)

// DBCore is a custom Zap Core that intercepts logs
type DBCore struct {
	zapcore.Core
	writer *DBLogWriter
}

// NewDBCore wraps an existing core (like console logger) and adds DB logging
func NewDBCore(baseCore zapcore.Core, writer *DBLogWriter) zapcore.Core {
	return &DBCore{
		Core:   baseCore,
		writer: writer,
	}
}

// Write is called for every log entry
func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// Pick up the contextual fields our services attach
	var tenantID, userID string
	for _, f := range fields {
		switch f.Key {
		case "tenant_id":
			tenantID = f.String
		case "user_id":
			userID = f.String
		}
	}

	// entry.Caller.Function is populated when Zap is configured with AddCaller()
	c.writer.AddLog(LogEntry{
		Level:    entry.Level,
		Message:  entry.Message,
		TenantID: tenantID,
		UserID:   userID,
		Caller:   entry.Caller.Function,
	})

	// Call the underlying core (so it still prints to Console/File)
	return c.Core.Write(entry, fields)
}

// Check decides if we should log this level
func (c *DBCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
