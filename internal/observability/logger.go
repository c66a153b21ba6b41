package observability

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Logger emits one JSON object per line so the output is ingestible by any
// log collector without configuration.
type Logger struct {
	base *log.Logger
	env  string
}

func NewLogger(env string) *Logger {
	return &Logger{base: log.New(os.Stdout, "", 0), env: env}
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.write("info", message, fields)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.write("error", message, fields)
}

// Debug is dropped outside development.
func (l *Logger) Debug(message string, fields map[string]any) {
	if l.env != "development" {
		return
	}
	l.write("debug", message, fields)
}

func (l *Logger) write(level, message string, fields map[string]any) {
	payload := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   message,
	}
	for k, v := range fields {
		payload[k] = v
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		l.base.Println(`{"level":"error","message":"failed to encode log"}`)
		return
	}

	l.base.Println(string(encoded))
}
