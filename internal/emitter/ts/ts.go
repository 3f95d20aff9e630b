// Package ts holds the small TypeScript source helpers shared by the
// expression compiler and the emitters: literals, property keys, object
// literals and import statements.
package ts

import (
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode"

	jsoniter "github.com/json-iterator/go"

	"github.com/mark3labs/honogen/internal/naming"
)

var literalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Quote renders s as a double-quoted string literal.
func Quote(s string) string {
	b, err := literalJSON.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}

// Literal renders a decoded JSON value (string, float64, bool, nil, slices
// and maps) as a JavaScript literal. Map keys are emitted in sorted order.
func Literal(v any) string {
	b, err := literalJSON.Marshal(v)
	if err != nil {
		return "undefined"
	}
	return string(b)
}

// Number renders a float without exponent or trailing zeros.
func Number(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// IsIdentifier reports whether s can be used as a bare property key or
// binding name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// Key renders a property key, quoting it when it is not an identifier.
func Key(s string) string {
	if IsIdentifier(s) {
		return s
	}
	return Quote(s)
}

// Member renders a property access on target: `a.b` or `a["x-y"]`.
func Member(target, name string) string {
	if IsIdentifier(name) && !naming.IsReserved(name) {
		return target + "." + name
	}
	return target + "[" + Quote(name) + "]"
}

// Field is one property of an object literal. Value may span lines.
type Field struct {
	Key   string
	Value string
	// Raw keeps Key verbatim instead of quoting it as needed.
	Raw bool
}

// Object is an ordered object literal.
type Object []Field

// Add appends a field.
func (o *Object) Add(key, value string) { *o = append(*o, Field{Key: key, Value: value}) }

// AddRaw appends a field whose key is emitted verbatim, e.g. a numeric
// status code.
func (o *Object) AddRaw(key, value string) {
	*o = append(*o, Field{Key: key, Value: value, Raw: true})
}

// Render prints the object one field per line. Nested multi-line values are
// indented to their depth.
func (o Object) Render() string {
	if len(o) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	for _, f := range o {
		key := f.Key
		if !f.Raw {
			key = Key(f.Key)
		}
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(Indent(f.Value, "  "))
		b.WriteString(",\n")
	}
	b.WriteString("}")
	return b.String()
}

// Inline prints the object on one line: `{ a: 1, b: 2 }`.
func (o Object) Inline() string {
	if len(o) == 0 {
		return "{}"
	}
	parts := make([]string, len(o))
	for i, f := range o {
		key := f.Key
		if !f.Raw {
			key = Key(f.Key)
		}
		parts[i] = key + ": " + f.Value
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Indent prefixes every line after the first with prefix.
func Indent(s, prefix string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}

// Import is one import statement.
type Import struct {
	From     string
	Default  string
	Names    []string
	TypeOnly bool
}

// Imports collects imports per module and renders them sorted.
type Imports struct {
	byFrom   map[string]map[string]bool
	types    map[string]map[string]bool
	defaults map[string]string
}

// AddDefault records the default binding imported from module.
func (im *Imports) AddDefault(from, name string) {
	if im.defaults == nil {
		im.defaults = map[string]string{}
	}
	im.defaults[from] = name
}

// Add records names imported from module.
func (im *Imports) Add(from string, names ...string) { im.add(false, from, names) }

// AddType records type-only names imported from module.
func (im *Imports) AddType(from string, names ...string) { im.add(true, from, names) }

func (im *Imports) add(typeOnly bool, from string, names []string) {
	if im.byFrom == nil {
		im.byFrom = map[string]map[string]bool{}
		im.types = map[string]map[string]bool{}
	}
	set := im.byFrom
	if typeOnly {
		set = im.types
	}
	if set[from] == nil {
		set[from] = map[string]bool{}
	}
	for _, n := range names {
		set[from][n] = true
	}
}

// Len returns the number of modules imported from.
func (im *Imports) Len() int { return len(im.byFrom) + len(im.types) + len(im.defaults) }

// Render prints package imports before relative ones, each group sorted.
func (im *Imports) Render() string {
	var out []Import
	for from, names := range im.byFrom {
		out = append(out, Import{From: from, Default: im.defaults[from], Names: sortedSet(names)})
	}
	for from, name := range im.defaults {
		if _, ok := im.byFrom[from]; !ok {
			out = append(out, Import{From: from, Default: name})
		}
	}
	for from, names := range im.types {
		out = append(out, Import{From: from, Names: sortedSet(names), TypeOnly: true})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := strings.HasPrefix(out[i].From, "."), strings.HasPrefix(out[j].From, ".")
		if ri != rj {
			return !ri
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return !out[i].TypeOnly && out[j].TypeOnly
	})
	var b strings.Builder
	for _, imp := range out {
		b.WriteString("import ")
		if imp.TypeOnly {
			b.WriteString("type ")
		}
		if imp.Default != "" {
			b.WriteString(imp.Default)
			if len(imp.Names) > 0 {
				b.WriteString(", ")
			}
		}
		if len(imp.Names) > 0 {
			b.WriteString("{ ")
			b.WriteString(strings.Join(imp.Names, ", "))
			b.WriteString(" }")
		}
		b.WriteString(" from ")
		b.WriteString(Quote(imp.From))
		b.WriteString("\n")
	}
	return b.String()
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RelImport returns the module specifier importing target from a file at
// from. Both are slash-separated paths relative to the output root, with
// their .ts extension. A target index.ts resolves to its directory.
func RelImport(from, target string) string {
	target = strings.TrimSuffix(target, ".ts")
	rel := relPath(path.Dir(from), target)
	if path.Base(target) == "index" {
		if dir := relPath(path.Dir(from), path.Dir(target)); dir != "." && dir != ".." && !strings.HasSuffix(dir, "/..") {
			rel = dir
		}
	}
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

func relPath(fromDir, target string) string {
	split := func(p string) []string {
		p = path.Clean(p)
		if p == "." {
			return nil
		}
		return strings.Split(p, "/")
	}
	a, b := split(fromDir), split(target)
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	var parts []string
	for range a[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, b[i:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}
