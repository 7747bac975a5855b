package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// write renders "[ts] [LEVEL] name: msg | k=v ..." with keys sorted. Later
// fields override earlier ones: context < persistent < call site.
func (l *Logger) write(level LogLevel, msg string, fields []LogField) {
	merged := make(map[string]interface{})
	for _, f := range contextFields(l.ctx) {
		merged[f.Key] = f.Value
	}
	for _, f := range l.fields {
		merged[f.Key] = f.Value
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s: %s", GetTimestamp(), level, l.name, msg)
	if len(merged) > 0 {
		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, merged[k])
		}
	}
	b.WriteByte('\n')

	outputMu.Lock()
	defer outputMu.Unlock()
	_, _ = output.Write([]byte(b.String()))
}

func (l *Logger) logf(level LogLevel, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.write(level, msg, nil)
}

// GetTimestamp returns the current time in RFC3339, or LOG_TIMESTAMP when set
func GetTimestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}
