package logx

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

type formatPart struct {
	literal string
	varName string
}

// AccessLogFormatter renders a compiled "$var" access-log template.
type AccessLogFormatter struct {
	parts []formatPart
}

var accessLogFormatPresets = map[string]string{
	"routegen_combined": "$time_local | $status | $latency | $client_ip | $method $path | request_id=$request_id snapshot=$snapshot routers=$routers user_agent=$user_agent",
	"routegen_minimal":  "$time_local | $status | $method $path | request_id=$request_id",
}

var allowedAccessLogVars = map[string]struct{}{
	"time_local": {},
	"status":     {},
	"latency":    {},
	"latency_ms": {},
	"client_ip":  {},
	"method":     {},
	"path":       {},
	"request_id": {},
	"snapshot":   {},
	"routers":    {},
	"user_agent": {},
}

// ResolveAccessLogFormat returns format when set, otherwise the named
// preset. Both empty means the default line format.
func ResolveAccessLogFormat(format string, preset string) (string, error) {
	if strings.TrimSpace(format) != "" || strings.TrimSpace(preset) == "" {
		return format, nil
	}
	if out, ok := accessLogFormatPresets[strings.ToLower(strings.TrimSpace(preset))]; ok {
		return out, nil
	}
	return "", fmt.Errorf("invalid access_log_format_preset: %q", preset)
}

// accessLogToken matches "$$" or "$name".
var accessLogToken = regexp.MustCompile(`\$(\$|[a-z_]*)`)

// CompileAccessLogFormat parses a template. "$$" is a literal dollar sign.
// A blank template returns a nil formatter.
func CompileAccessLogFormat(format string) (*AccessLogFormatter, error) {
	if strings.TrimSpace(format) == "" {
		return nil, nil
	}
	var (
		parts []formatPart
		lit   strings.Builder
		last  int
	)
	for _, m := range accessLogToken.FindAllStringSubmatchIndex(format, -1) {
		lit.WriteString(format[last:m[0]])
		last = m[1]
		name := format[m[2]:m[3]]
		switch {
		case name == "$":
			lit.WriteByte('$')
			continue
		case name == "":
			return nil, fmt.Errorf("invalid access_log_format: missing variable name after '$' at pos %d", m[0])
		}
		if _, ok := allowedAccessLogVars[name]; !ok {
			return nil, fmt.Errorf("invalid access_log_format: unknown variable $%s", name)
		}
		if lit.Len() > 0 {
			parts = append(parts, formatPart{literal: lit.String()})
			lit.Reset()
		}
		parts = append(parts, formatPart{varName: name})
	}
	lit.WriteString(format[last:])
	if lit.Len() > 0 {
		parts = append(parts, formatPart{literal: lit.String()})
	}
	return &AccessLogFormatter{parts: parts}, nil
}

// AccessEntry is one request as seen by the access logger.
type AccessEntry struct {
	Time     time.Time
	Status   int
	Latency  time.Duration
	ClientIP string
	Method   string
	Path     string
	Fields   map[string]any
}

func (f *AccessLogFormatter) Format(e AccessEntry, color bool) string {
	if f == nil || len(f.parts) == 0 {
		return ""
	}
	vars := entryVars(e, color)

	var b strings.Builder
	for _, p := range f.parts {
		if p.literal != "" {
			b.WriteString(p.literal)
			continue
		}
		v := strings.TrimSpace(vars[p.varName])
		if v == "" {
			b.WriteByte('-')
			continue
		}
		b.WriteString(v)
	}
	return b.String()
}

func entryVars(e AccessEntry, color bool) map[string]string {
	vars := map[string]string{
		"time_local": e.Time.Format("2006/01/02 - 15:04:05"),
		"status":     ColorizeStatusWith(e.Status, color),
		"latency":    e.Latency.String(),
		"latency_ms": fmt.Sprintf("%d", e.Latency.Milliseconds()),
		"client_ip":  strings.TrimSpace(e.ClientIP),
		"method":     strings.TrimSpace(e.Method),
		"path":       e.Path,
	}
	for k, v := range e.Fields {
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s == "" || s == "<nil>" {
			continue
		}
		vars[k] = s
	}
	return vars
}

// FormatRequestLine is the default access line: fixed columns followed by
// the non-empty fields as sorted key=value pairs.
func FormatRequestLine(e AccessEntry, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s | %13v | %15s | %-7s %s",
		e.Time.Format("2006/01/02 - 15:04:05"),
		ColorizeStatusWith(e.Status, color),
		e.Latency,
		strings.TrimSpace(e.ClientIP),
		strings.TrimSpace(e.Method),
		e.Path,
	)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sep := " | "
	for _, k := range keys {
		s := strings.TrimSpace(fmt.Sprintf("%v", e.Fields[k]))
		if s == "" || s == "<nil>" {
			continue
		}
		b.WriteString(sep)
		sep = " "
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s)
	}
	return b.String()
}

func AccessLogAllowedVars() []string {
	keys := make([]string, 0, len(allowedAccessLogVars))
	for k := range allowedAccessLogVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
