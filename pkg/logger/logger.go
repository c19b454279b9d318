package logger

type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	WithField(key string, value interface{}) Logger
}

type NullLogger struct{}

func (NullLogger) Debug(msg string) {}
func (NullLogger) Info(msg string)  {}
func (NullLogger) Warn(msg string)  {}
func (NullLogger) Error(msg string) {}
func (NullLogger) Fatal(msg string) {}
func (NullLogger) WithField(key string, value interface{}) Logger {
	return NullLogger{}
}

func NewNullLogger() Logger {
	return NullLogger{}
}

// Entry is a single captured log line.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

// RecordingLogger keeps every entry in memory. Useful when a test needs to
// assert on what was logged.
type RecordingLogger struct {
	entries *[]Entry
	fields  map[string]interface{}
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{entries: &[]Entry{}, fields: map[string]interface{}{}}
}

func (r *RecordingLogger) record(level, msg string) {
	*r.entries = append(*r.entries, Entry{Level: level, Msg: msg, Fields: r.fields})
}

func (r *RecordingLogger) Debug(msg string) { r.record("debug", msg) }
func (r *RecordingLogger) Info(msg string)  { r.record("info", msg) }
func (r *RecordingLogger) Warn(msg string)  { r.record("warn", msg) }
func (r *RecordingLogger) Error(msg string) { r.record("error", msg) }
func (r *RecordingLogger) Fatal(msg string) { r.record("fatal", msg) }
func (r *RecordingLogger) WithField(key string, value interface{}) Logger {
	fields := make(map[string]interface{}, len(r.fields)+1)
	for k, v := range r.fields {
		fields[k] = v
	}
	fields[key] = value
	return &RecordingLogger{entries: r.entries, fields: fields}
}

// Entries returns everything logged through this logger and its children.
func (r *RecordingLogger) Entries() []Entry {
	return *r.entries
}
