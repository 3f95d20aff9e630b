// Package diag carries non-fatal compiler findings: shapes the expression
// compiler could not model precisely, skipped bindings, and similar notices.
//
// Severity levels are ordered from least to most severe:
// Info < Warning < Error
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Severity indicates how much attention a diagnostic deserves.
type Severity int

const (
	// SeverityInfo records a processing choice, e.g. an unconstrained fallback
	// for a schema that declared nothing.
	SeverityInfo Severity = iota

	// SeverityWarning records a lossy translation such as an unsupported
	// `not` form compiled to an unconstrained expression.
	SeverityWarning

	// SeverityError records a problem that will also surface as an error.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Level maps the severity onto a slog level.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Diagnostic is a single finding attached to a document location.
type Diagnostic struct {
	// Pointer is the JSON pointer of the offending node, e.g. "#/components/schemas/Pet".
	Pointer  string
	Message  string
	Severity Severity
}

// String returns a formatted representation using a severity symbol.
func (d Diagnostic) String() string {
	var symbol string
	switch d.Severity {
	case SeverityError:
		symbol = "✗"
	case SeverityWarning:
		symbol = "⚠"
	default:
		symbol = "ℹ"
	}
	if d.Pointer == "" {
		return fmt.Sprintf("%s %s", symbol, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", symbol, d.Pointer, d.Message)
}

// Collector accumulates diagnostics. The zero value is ready to use and is
// safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
	seen  map[Diagnostic]struct{}
}

// Add records a diagnostic. Identical diagnostics are recorded once.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[Diagnostic]struct{})
	}
	if _, dup := c.seen[d]; dup {
		return
	}
	c.seen[d] = struct{}{}
	c.items = append(c.items, d)
}

// Infof records an info diagnostic.
func (c *Collector) Infof(pointer, format string, args ...any) {
	c.Add(Diagnostic{Pointer: pointer, Message: fmt.Sprintf(format, args...), Severity: SeverityInfo})
}

// Warnf records a warning diagnostic.
func (c *Collector) Warnf(pointer, format string, args ...any) {
	c.Add(Diagnostic{Pointer: pointer, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Items returns the diagnostics sorted by pointer then message.
func (c *Collector) Items() []Diagnostic {
	c.mu.Lock()
	out := append([]Diagnostic(nil), c.items...)
	c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pointer != out[j].Pointer {
			return out[i].Pointer < out[j].Pointer
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// Count returns the number of diagnostics at or above the given severity.
func (c *Collector) Count(min Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Severity >= min {
			n++
		}
	}
	return n
}

// Log writes every diagnostic to logger at its severity.
func Log(ctx context.Context, logger *slog.Logger, items []Diagnostic) {
	if logger == nil {
		return
	}
	for _, d := range items {
		logger.Log(ctx, d.Severity.Level(), d.Message, "pointer", d.Pointer)
	}
}
