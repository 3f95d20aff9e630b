// Package naming turns raw document keys (component names, path segments,
// parameter names, operation ids) into TypeScript identifiers.
//
// A Resolver hands out one identifier per (raw key, role, casing) and never
// renames it afterwards. Reserved words are escaped on the cased base, before
// the role suffix is appended, and distinct keys that case to the same name
// receive numeric suffixes in request order.
package naming

import (
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casing selects the case of the first word.
type Casing int

const (
	Pascal Casing = iota
	Camel
)

// ParseCasing maps a config value ("pascal", "camel") onto a Casing.
func ParseCasing(s string) (Casing, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pascal", "pascalcase":
		return Pascal, true
	case "camel", "camelcase":
		return Camel, true
	}
	return Pascal, false
}

func (c Casing) String() string {
	if c == Camel {
		return "camel"
	}
	return "pascal"
}

// Role determines the suffix appended to an identifier.
type Role int

const (
	RoleSchema Role = iota
	RoleParams
	RoleRequestBody
	RoleResponse
	RoleHeader
	RoleRoute
	RoleRouteHandler
	RoleType
	RoleOperation
	RoleLocal
)

var roleSuffix = map[Role]string{
	RoleSchema:       "Schema",
	RoleParams:       "ParamsSchema",
	RoleRequestBody:  "RequestBody",
	RoleResponse:     "Response",
	RoleHeader:       "HeaderSchema",
	RoleRoute:        "Route",
	RoleRouteHandler: "RouteHandler",
}

// Suffix returns the role's identifier suffix, possibly empty.
func (r Role) Suffix() string { return roleSuffix[r] }

// Identifier is an assigned program identifier.
type Identifier struct {
	Name   string
	Raw    string
	Role   Role
	Casing Casing
}

func (id Identifier) String() string { return id.Name }

type key struct {
	raw    string
	role   Role
	casing Casing
}

// Resolver assigns identifiers within one scope. It is safe for concurrent
// use, but a run normally owns one Resolver so that naming stays a pure
// function of the document.
type Resolver struct {
	mu       sync.Mutex
	parent   *Resolver
	assigned map[key]Identifier
	taken    map[string]key
}

// NewResolver returns an empty project-level scope.
func NewResolver() *Resolver {
	return &Resolver{assigned: map[key]Identifier{}, taken: map[string]key{}}
}

// Fork returns a child scope, typically one per emitted file. The child
// sees every identifier already assigned in its ancestors and never hands
// out a name they hold. Names assigned in the child stay local to it.
func (r *Resolver) Fork() *Resolver {
	child := NewResolver()
	child.parent = r
	return child
}

// Reserve marks names as taken, e.g. imported bindings such as `z`.
func (r *Resolver) Reserve(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.taken[n] = key{raw: "\x00reserved:" + n}
	}
}

// Name returns the identifier for raw in the given role and casing,
// assigning it on first request.
func (r *Resolver) Name(raw string, role Role, casing Casing) Identifier {
	return r.assign(key{raw: raw, role: role, casing: casing}, func() string { return Base(raw, casing) })
}

// Route returns the camel-case identifier for an operation. The key is the
// method and path template, so templates that case to the same stem
// (`/todo/{id}` and `/todo/id`) still get distinct identifiers.
func (r *Resolver) Route(method, path string, role Role) Identifier {
	k := key{raw: strings.ToUpper(method) + " " + path, role: role, casing: Camel}
	return r.assign(k, func() string { return RouteBase(method, path) })
}

func (r *Resolver) assign(k key, stem func() string) Identifier {
	if id, ok := r.lookup(k); ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.assigned[k]; ok {
		return id
	}
	raw, role, casing := k.raw, k.role, k.casing
	base := stem()
	suffix := role.Suffix()
	name := base + suffix
	for n := 2; r.isTaken(name, k); n++ {
		name = base + strconv.Itoa(n) + suffix
	}
	id := Identifier{Name: name, Raw: raw, Role: role, Casing: casing}
	r.assigned[k] = id
	r.taken[name] = k
	return id
}

func (r *Resolver) lookup(k key) (Identifier, bool) {
	for s := r.parent; s != nil; s = s.parent {
		s.mu.Lock()
		id, ok := s.assigned[k]
		s.mu.Unlock()
		if ok {
			return id, true
		}
	}
	return Identifier{}, false
}

// isTaken must be called with r.mu held.
func (r *Resolver) isTaken(name string, k key) bool {
	if owner, ok := r.taken[name]; ok && owner != k {
		return true
	}
	for s := r.parent; s != nil; s = s.parent {
		s.mu.Lock()
		owner, ok := s.taken[name]
		s.mu.Unlock()
		if ok && owner != k {
			return true
		}
	}
	return false
}

// Base cases raw into an identifier stem without any role suffix. Braces
// are stripped, illegal characters collapse into word breaks, reserved words
// and leading digits get a `_` prefix.
func Base(raw string, casing Casing) string {
	words := Words(raw)
	if len(words) == 0 {
		words = []string{"value"}
	}
	title := cases.Title(language.Und, cases.NoLower)
	lower := cases.Lower(language.Und)
	var b strings.Builder
	for i, w := range words {
		if i == 0 && casing == Camel {
			b.WriteString(lowerFirstWord(w, lower))
			continue
		}
		b.WriteString(title.String(w))
	}
	name := b.String()
	if IsReserved(name) {
		return "_" + name
	}
	if r := []rune(name); unicode.IsDigit(r[0]) {
		return "_" + name
	}
	return name
}

// lowerFirstWord lowercases an all-caps word entirely ("HTTP" → "http") and
// otherwise only its first letter ("Todo" → "todo").
func lowerFirstWord(w string, lower cases.Caser) string {
	if strings.ToUpper(w) == w {
		return lower.String(w)
	}
	r := []rune(w)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Words splits raw on non-alphanumeric characters and on case boundaries:
// "getHTTPServer_v2" → [get HTTP Server v2].
func Words(raw string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(raw)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && unicode.IsUpper(r) {
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// RouteBase derives the route stem from the method and path template:
// `GET /todo` → getTodo, `GET /todo/{id}` → getTodoId, `GET /` → getIndex.
func RouteBase(method, path string) string {
	var parts []string
	parts = append(parts, strings.ToLower(method))
	segments := 0
	for _, seg := range strings.Split(path, "/") {
		seg = strings.Trim(seg, "{}:")
		if seg == "" {
			continue
		}
		parts = append(parts, seg)
		segments++
	}
	if segments == 0 {
		parts = append(parts, "index")
	}
	return Base(strings.Join(parts, "_"), Camel)
}
