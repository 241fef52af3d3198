// Package output renders command results for a terminal or for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how a result is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// formatNames maps every accepted -o value, aliases included, to its format.
var formatNames = map[string]Format{
	"":     FormatText,
	"text": FormatText,
	"json": FormatJSON,
	"yaml": FormatYAML,
	"yml":  FormatYAML,
}

// Formats lists the canonical format names, for flag help and completion.
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML)}
}

// ParseFormat resolves an -o value, case-insensitively.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatNames[strings.ToLower(s)]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (use one of: %s)", s, strings.Join(Formats(), ", "))
}

// Writer renders results to w in one format.
type Writer struct {
	format Format
	w      io.Writer
}

// NewWriter creates a writer for format
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// Write renders v. JSON and YAML use the struct tags of v; text uses its
// String method when it has one and always ends with a newline.
func (w *Writer) Write(v interface{}) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return w.text(v)
	}
}

func (w *Writer) text(v interface{}) error {
	var s string
	if st, ok := v.(fmt.Stringer); ok {
		s = st.String()
	} else {
		s = fmt.Sprintf("%+v", v)
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w.w, s)
	return err
}
