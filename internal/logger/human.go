package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// HumanHandlerOptions configures a HumanHandler.
type HumanHandlerOptions struct {
	Level     slog.Level
	UseColors bool
}

// HumanHandler writes one line per record:
//
//	15:04:05 ✓ patients: stage completed stage_type=filter stage_index=2 row_count=2
//
// The pipeline name, when present, prefixes the message instead of being
// listed with the other attributes.
type HumanHandler struct {
	opts   HumanHandlerOptions
	w      io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
}

// NewHumanHandler returns a HumanHandler writing to w. nil options mean info
// level without colors.
func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	h := &HumanHandler{w: w, mu: &sync.Mutex{}, opts: HumanHandlerOptions{Level: slog.LevelInfo}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled implements slog.Handler.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

const maxInlineAttrs = 6

// Handle implements slog.Handler.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	var b strings.Builder
	b.WriteString(r.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(h.symbol(r.Level, r.Message))
	b.WriteByte(' ')
	for i, a := range attrs {
		if a.Key == KeyPipeline {
			b.WriteString(a.Value.String())
			b.WriteString(": ")
			attrs = append(attrs[:i:i], attrs[i+1:]...)
			break
		}
	}
	b.WriteString(r.Message)
	for i, a := range attrs {
		if i == maxInlineAttrs {
			fmt.Fprintf(&b, " (+%d more)", len(attrs)-i)
			break
		}
		b.WriteByte(' ')
		b.WriteString(formatAttr(a))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return &next
}

// WithGroup implements slog.Handler. Grouped keys are shown dotted.
func (h *HumanHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *HumanHandler) qualify(a slog.Attr) slog.Attr {
	a.Key = h.prefix + a.Key
	return a
}

// symbol marks the record level; info records announcing a completion get a
// check mark.
func (h *HumanHandler) symbol(level slog.Level, msg string) string {
	sym, color := "·", "\033[0m"
	switch {
	case level >= slog.LevelError:
		sym, color = "✗", "\033[31m"
	case level >= slog.LevelWarn:
		sym, color = "⚠", "\033[33m"
	case level >= slog.LevelInfo && strings.Contains(msg, "completed"):
		sym, color = "✓", "\033[32m"
	case level >= slog.LevelInfo:
		sym, color = "ℹ", "\033[36m"
	}
	if !h.opts.UseColors {
		return sym
	}
	return color + sym + "\033[0m"
}

func formatAttr(a slog.Attr) string {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return a.Key + "=" + FormatDuration(v.Duration())
	case slog.KindFloat64:
		return a.Key + "=" + strconv.FormatFloat(v.Float64(), 'f', 1, 64)
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\"=") {
			return a.Key + "=" + strconv.Quote(s)
		}
		return a.Key + "=" + s
	default:
		return a.Key + "=" + v.String()
	}
}

// FormatDuration renders d with a unit suited to its magnitude.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}
