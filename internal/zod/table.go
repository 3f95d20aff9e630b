package zod

import (
	"sort"

	"github.com/mark3labs/honogen/internal/naming"
	"github.com/mark3labs/honogen/internal/spec"
)

// DeclKey identifies a top-level component declaration.
type DeclKey struct {
	Kind spec.ComponentKind
	Name string
}

func (k DeclKey) String() string { return string(k.Kind) + "/" + k.Name }

// Decl is one reserved top-level declaration.
type Decl struct {
	Key DeclKey
	// Ident is the exported binding, e.g. PetSchema.
	Ident naming.Identifier
	// Type is the inferred type alias for schema components.
	Type naming.Identifier
	// Index is the position in single-file emission order.
	Index int
	// Deps lists directly referenced declarations in emission order.
	Deps []DeclKey
	// Cyclic is set when the declaration takes part in a reference cycle,
	// including a reference to itself.
	Cyclic bool

	scc int
}

// TableOptions configures identifier reservation.
type TableOptions struct {
	SchemaCasing naming.Casing
	TypeCasing   naming.Casing
	// SingleFile makes references to later declarations lazy.
	SingleFile bool
}

// Table is the forward-declaration table. Every identifier is reserved
// before any body compiles, so references only ever look names up.
type Table struct {
	decls  map[DeclKey]*Decl
	order  []*Decl
	single bool
}

// NewTable reserves an identifier for every component of doc, kind by kind
// in emission order and lexicographically within a kind, then analyses the
// reference graph for cycles.
func NewTable(doc *spec.Document, r *naming.Resolver, opts TableOptions) *Table {
	t := &Table{decls: map[DeclKey]*Decl{}, single: opts.SingleFile}
	for _, kind := range spec.ComponentKinds {
		for _, name := range doc.Keys(kind) {
			d := &Decl{
				Key:   DeclKey{Kind: kind, Name: name},
				Ident: r.Name(name, kindRole[kind], opts.SchemaCasing),
				Index: len(t.order),
			}
			t.decls[d.Key] = d
			t.order = append(t.order, d)
		}
	}
	for _, d := range t.order {
		if d.Key.Kind == spec.KindSchemas {
			d.Type = r.Name(d.Key.Name, naming.RoleType, opts.TypeCasing)
		}
	}
	for _, d := range t.order {
		d.Deps = t.sortKeys(dependencies(doc, d.Key))
	}
	t.analyse()
	return t
}

var kindRole = map[spec.ComponentKind]naming.Role{
	spec.KindSchemas:       naming.RoleSchema,
	spec.KindParameters:    naming.RoleParams,
	spec.KindHeaders:       naming.RoleHeader,
	spec.KindRequestBodies: naming.RoleRequestBody,
	spec.KindResponses:     naming.RoleResponse,
}

// Lookup returns the declaration reserved for k.
func (t *Table) Lookup(k DeclKey) (*Decl, bool) {
	d, ok := t.decls[k]
	return d, ok
}

// Decls returns every declaration in emission order.
func (t *Table) Decls() []*Decl { return t.order }

// Of returns the declarations of one kind in emission order.
func (t *Table) Of(kind spec.ComponentKind) []*Decl {
	var out []*Decl
	for _, d := range t.order {
		if d.Key.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Lazy reports whether a reference from the declaration being defined to
// target must be deferred. Outside any declaration nothing is lazy.
func (t *Table) Lazy(from, target DeclKey) bool {
	src, ok := t.decls[from]
	if !ok {
		return false
	}
	dst, ok := t.decls[target]
	if !ok {
		return false
	}
	if src == dst {
		return true
	}
	if src.scc == dst.scc && src.Cyclic {
		return true
	}
	return t.single && dst.Index > src.Index
}

func (t *Table) sortKeys(set map[DeclKey]struct{}) []DeclKey {
	out := make([]DeclKey, 0, len(set))
	for k := range set {
		if _, ok := t.decls[k]; ok {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return t.decls[out[i]].Index < t.decls[out[j]].Index })
	return out
}

// analyse runs Tarjan's algorithm over the reference graph.
func (t *Table) analyse() {
	index := 0
	indices := make(map[*Decl]int, len(t.order))
	low := make(map[*Decl]int, len(t.order))
	onStack := make(map[*Decl]bool, len(t.order))
	var stack []*Decl
	scc := 0

	var visit func(d *Decl)
	visit = func(d *Decl) {
		indices[d], low[d] = index, index
		index++
		stack = append(stack, d)
		onStack[d] = true
		for _, k := range d.Deps {
			w := t.decls[k]
			if _, seen := indices[w]; !seen {
				visit(w)
				low[d] = min(low[d], low[w])
			} else if onStack[w] {
				low[d] = min(low[d], indices[w])
			}
		}
		if low[d] != indices[d] {
			return
		}
		var members []*Decl
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			w.scc = scc
			members = append(members, w)
			if w == d {
				break
			}
		}
		if len(members) > 1 {
			for _, m := range members {
				m.Cyclic = true
			}
		} else if selfReferencing(d) {
			d.Cyclic = true
		}
		scc++
	}
	for _, d := range t.order {
		if _, seen := indices[d]; !seen {
			visit(d)
		}
	}
}

func selfReferencing(d *Decl) bool {
	for _, k := range d.Deps {
		if k == d.Key {
			return true
		}
	}
	return false
}

// dependencies collects the declarations a component references directly.
func dependencies(doc *spec.Document, k DeclKey) map[DeclKey]struct{} {
	deps := map[DeclKey]struct{}{}
	collect := func(n spec.Node) {
		spec.Walk(n, func(n spec.Node) {
			if r, ok := n.(*spec.Ref); ok {
				deps[DeclKey{Kind: r.Kind, Name: r.Name}] = struct{}{}
			}
		})
	}
	content := func(ms []spec.Media) {
		for _, m := range ms {
			collect(m.Schema)
		}
	}
	switch k.Kind {
	case spec.KindSchemas:
		collect(doc.Schemas[k.Name])
	case spec.KindParameters:
		p := doc.Parameters[k.Name]
		collect(p.Schema)
		content(p.Content)
	case spec.KindHeaders:
		collect(doc.Headers[k.Name].Schema)
	case spec.KindRequestBodies:
		content(doc.RequestBodies[k.Name].Content)
	case spec.KindResponses:
		r := doc.Responses[k.Name]
		for _, h := range r.Headers {
			if h.Ref != "" {
				deps[DeclKey{Kind: spec.KindHeaders, Name: h.Ref}] = struct{}{}
				continue
			}
			collect(h.Schema)
		}
		content(r.Content)
	}
	return deps
}
