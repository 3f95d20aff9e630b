// Package zod compiles the schema IR into Zod expressions.
//
// Compilation is two-pass: a Table reserves an identifier for every
// component up front, then declaration bodies compile on demand and are
// memoized, so each component body compiles exactly once and references
// only look names up. A Compiler belongs to one generation task and is not
// safe for concurrent use.
package zod

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/honogen/internal/diag"
	"github.com/mark3labs/honogen/internal/emitter/ts"
	"github.com/mark3labs/honogen/internal/spec"
)

// Param is the position of a parameter-level schema.
type Param struct {
	Name string
	In   spec.Location
}

// Uses records the declarations referenced while compiling.
type Uses map[DeclKey]struct{}

// Keys returns the recorded keys.
func (u Uses) Keys() []DeclKey {
	out := make([]DeclKey, 0, len(u))
	for k := range u {
		out = append(out, k)
	}
	return out
}

// Context is threaded explicitly through every compile call.
type Context struct {
	// Param is set only for the top-level schema of a parameter.
	Param *Param
	// Decl is the declaration whose body is being compiled; the zero value
	// means an inline position such as a route.
	Decl DeclKey
	// Transport marks values that travel as strings (path, query, header,
	// cookie) and therefore need coercion.
	Transport bool
	// Uses, when non-nil, collects referenced declarations.
	Uses Uses
}

// nested drops the parameter position for child schemas.
func (c Context) nested() Context {
	c.Param = nil
	return c
}

// Compiler turns nodes into expressions.
type Compiler struct {
	doc   *spec.Document
	table *Table
	diags *diag.Collector

	memo     map[DeclKey]Expr
	compiles map[DeclKey]int
}

// NewCompiler binds a compiler to a document and its declaration table.
func NewCompiler(doc *spec.Document, table *Table, diags *diag.Collector) *Compiler {
	if diags == nil {
		diags = &diag.Collector{}
	}
	return &Compiler{
		doc:      doc,
		table:    table,
		diags:    diags,
		memo:     map[DeclKey]Expr{},
		compiles: map[DeclKey]int{},
	}
}

// Table returns the declaration table.
func (c *Compiler) Table() *Table { return c.table }

// Diagnostics returns the collector findings are recorded in.
func (c *Compiler) Diagnostics() *diag.Collector { return c.diags }

// Schema returns the compiled body of a schemas component.
func (c *Compiler) Schema(name string) Expr {
	k := DeclKey{Kind: spec.KindSchemas, Name: name}
	return c.declare(k, func() Expr {
		return c.Compile(c.doc.Schemas[name], Context{Decl: k})
	})
}

// Parameter returns the compiled body of a parameters component, carrying
// its parameter position.
func (c *Compiler) Parameter(name string) Expr {
	k := DeclKey{Kind: spec.KindParameters, Name: name}
	return c.declare(k, func() Expr {
		return c.parameterExpr(c.doc.Parameters[name], Context{Decl: k})
	})
}

// Header returns the compiled body of a headers component.
func (c *Compiler) Header(name string) Expr {
	k := DeclKey{Kind: spec.KindHeaders, Name: name}
	return c.declare(k, func() Expr {
		return c.Compile(c.doc.Headers[name].Schema, Context{Decl: k, Transport: true})
	})
}

func (c *Compiler) declare(k DeclKey, body func() Expr) Expr {
	if e, ok := c.memo[k]; ok {
		return e
	}
	c.compiles[k]++
	e := body()
	c.memo[k] = e
	return e
}

// Reference renders a reference to a declaration from ctx, recording the
// use. Unknown keys degrade to z.any() with a warning.
func (c *Compiler) Reference(k DeclKey, ctx Context) Expr {
	d, ok := c.table.Lookup(k)
	if !ok {
		c.diags.Warnf(describe(k), "reference to unknown declaration")
		return zAny()
	}
	if ctx.Uses != nil && k != ctx.Decl {
		ctx.Uses[k] = struct{}{}
	}
	if c.table.Lazy(ctx.Decl, k) {
		return zLazy(d.Ident.Name)
	}
	return ref(d.Ident.Name)
}

// Compile translates one node. Every branch goes through finish exactly
// once, so nullability, default and metadata are applied uniformly.
func (c *Compiler) Compile(n spec.Node, ctx Context) Expr {
	if n == nil {
		return c.finish(zAny(), &spec.Meta{}, ctx, false)
	}
	base, nullable := c.shape(n, ctx)
	return c.finish(base, n.Attrs(), ctx, nullable)
}

func (c *Compiler) shape(n spec.Node, ctx Context) (Expr, bool) {
	switch v := n.(type) {
	case *spec.Ref:
		return c.Reference(DeclKey{Kind: v.Kind, Name: v.Name}, ctx.nested()), false
	case *spec.AllOf:
		return c.allOf(v, ctx)
	case *spec.AnyOf:
		return c.union(v.Members, ctx), false
	case *spec.OneOf:
		return c.union(v.Members, ctx), false
	case *spec.Not:
		return c.not(v), false
	case *spec.Const:
		if e, ok := zLiteral(v.Value); ok {
			return e, false
		}
		c.diags.Warnf(v.Pointer, "const of type %T is not supported; compiled to z.any()", v.Value)
		return zAny(), false
	case *spec.Enum:
		return c.enum(v)
	case *spec.Object:
		return c.object(v, ctx), false
	case *spec.Primitive:
		return c.primitive(v, ctx), false
	case *spec.Any:
		c.diags.Infof(v.Pointer, "schema declares no shape; compiled to z.any()")
		return zAny(), false
	}
	return zAny(), false
}

func (c *Compiler) allOf(v *spec.AllOf, ctx Context) (Expr, bool) {
	var members []Expr
	nullable := false
	for _, m := range v.Members {
		if spec.IsNullOnly(m) {
			nullable = true
			continue
		}
		members = append(members, c.Compile(m, ctx.nested()))
	}
	switch len(members) {
	case 0:
		return zAny(), nullable
	case 1:
		return members[0], nullable
	}
	return zIntersect(members), nullable
}

func (c *Compiler) union(nodes []spec.Node, ctx Context) Expr {
	members := make([]Expr, 0, len(nodes))
	for _, m := range nodes {
		members = append(members, c.Compile(m, ctx.nested()))
	}
	switch len(members) {
	case 0:
		return zAny()
	case 1:
		return members[0]
	}
	return zUnion(members)
}

func (c *Compiler) not(v *spec.Not) Expr {
	switch inner := v.Inner.(type) {
	case *spec.Primitive:
		if bareType(inner) {
			if pred, ok := notTypePredicate(inner.Type); ok {
				return refine(zAny(), pred, "")
			}
		}
	case *spec.Enum:
		return refine(zAny(), notInPredicate(inner.Values), "")
	case *spec.Const:
		return refine(zAny(), notInPredicate([]any{inner.Value}), "")
	}
	c.diags.Warnf(v.Pointer, "unsupported not shape; compiled to z.any()")
	return zAny()
}

// bareType reports whether p declares a type and nothing else.
func bareType(p *spec.Primitive) bool {
	return p.Format == "" && p.Pattern == "" && p.MinLength == 0 && p.MaxLength == nil &&
		p.Minimum == nil && p.Maximum == nil && p.MultipleOf == nil && p.Items == nil &&
		p.MinItems == 0 && p.MaxItems == nil && !p.UniqueItems &&
		p.Additional.Schema == nil && !p.Additional.Forbidden && p.MinProps == 0 && p.MaxProps == nil
}

func (c *Compiler) enum(v *spec.Enum) (Expr, bool) {
	nullable := false
	values := make([]any, 0, len(v.Values))
	for _, val := range v.Values {
		if val == nil {
			nullable = true
			continue
		}
		values = append(values, val)
	}
	if len(values) == 0 {
		return zNull(), false
	}
	if len(values) == 1 {
		if e, ok := zLiteral(values[0]); ok {
			return e, nullable
		}
	}
	strs := make([]string, 0, len(values))
	for _, val := range values {
		if s, ok := val.(string); ok {
			strs = append(strs, s)
		}
	}
	if len(strs) == len(values) {
		return zEnum(strs), nullable
	}
	members := make([]Expr, 0, len(values))
	for _, val := range values {
		e, ok := zLiteral(val)
		if !ok {
			c.diags.Warnf(v.Pointer, "enum value of type %T is not supported; member compiled to z.any()", val)
			e = zAny()
		}
		members = append(members, e)
	}
	if len(members) == 1 {
		return members[0], nullable
	}
	return zUnion(members), nullable
}

func (c *Compiler) object(v *spec.Object, ctx Context) Expr {
	partial := len(v.Properties) > 0 && !v.HasRequired()
	fields := make([]field, 0, len(v.Properties))
	for _, p := range v.Properties {
		e := c.Compile(p.Schema, ctx.nested())
		if !p.Required && !partial {
			e = e.Opt()
		}
		fields = append(fields, field{name: p.Name, expr: e})
	}
	out := zObject(fields)
	if partial {
		out = out.Call("partial")
	}
	out = c.additional(out, v.Additional, ctx)
	return propertyCount(out, v.MinProps, v.MaxProps)
}

func (c *Compiler) additional(e Expr, a spec.Additional, ctx Context) Expr {
	switch {
	case a.Schema != nil:
		return e.Call("catchall", c.Compile(a.Schema, ctx.nested()).Code)
	case a.Forbidden:
		return e.Call("strict")
	}
	return e
}

func propertyCount(e Expr, minProps uint64, maxProps *uint64) Expr {
	if minProps > 0 {
		n := strconv.FormatUint(minProps, 10)
		e = refine(e, "(value) => Object.keys(value).length >= "+n, "Expected at least "+n+" properties")
	}
	if maxProps != nil {
		n := strconv.FormatUint(*maxProps, 10)
		e = refine(e, "(value) => Object.keys(value).length <= "+n, "Expected at most "+n+" properties")
	}
	return e
}

func (c *Compiler) primitive(v *spec.Primitive, ctx Context) Expr {
	switch v.Type {
	case "string":
		return c.stringExpr(v)
	case "number", "integer":
		return numberExpr(v, ctx.Transport)
	case "boolean":
		return zBoolean()
	case "null":
		return zNull()
	case "date":
		return zDate(ctx.Transport)
	case "array":
		items := zAny()
		if v.Items != nil {
			items = c.Compile(v.Items, ctx.nested())
		}
		e := zArray(items)
		if v.MinItems > 0 {
			e = e.Call("min", strconv.FormatUint(v.MinItems, 10))
		}
		if v.MaxItems != nil {
			e = e.Call("max", strconv.FormatUint(*v.MaxItems, 10))
		}
		if v.UniqueItems {
			e = refine(e, "(items) => new Set(items).size === items.length", "Items must be unique")
		}
		return e
	case "object":
		var e Expr
		switch {
		case v.Additional.Schema != nil:
			e = zRecord(c.Compile(v.Additional.Schema, ctx.nested()))
		case v.Additional.Forbidden:
			e = zObject(nil).Call("strict")
		default:
			e = zRecord(zAny())
		}
		return propertyCount(e, v.MinProps, v.MaxProps)
	}
	c.diags.Infof(v.Pointer, "unknown type %q; compiled to z.any()", v.Type)
	return zAny()
}

func (c *Compiler) stringExpr(v *spec.Primitive) Expr {
	if blobFormats[v.Format] {
		return zBlob()
	}
	e := zString()
	if suffix, ok := stringFormats[v.Format]; ok {
		e = raw(e.Code + suffix)
	}
	if v.Pattern != "" {
		e = e.Call("regex", regexLiteral(v.Pattern))
	}
	switch {
	case v.MaxLength != nil && *v.MaxLength == v.MinLength && v.MinLength > 0:
		e = e.Call("length", strconv.FormatUint(v.MinLength, 10))
	default:
		if v.MinLength > 0 {
			e = e.Call("min", strconv.FormatUint(v.MinLength, 10))
		}
		if v.MaxLength != nil {
			e = e.Call("max", strconv.FormatUint(*v.MaxLength, 10))
		}
	}
	return e
}

func numberExpr(v *spec.Primitive, coerce bool) Expr {
	e := zNumber(coerce)
	if v.Type == "integer" {
		e = e.Call("int")
	}
	if v.Minimum != nil {
		switch {
		case *v.Minimum == 0 && v.ExclusiveMin:
			e = e.Call("positive")
		case *v.Minimum == 0:
			e = e.Call("nonnegative")
		case v.ExclusiveMin:
			e = e.Call("gt", ts.Number(*v.Minimum))
		default:
			e = e.Call("min", ts.Number(*v.Minimum))
		}
	}
	if v.Maximum != nil {
		switch {
		case *v.Maximum == 0 && v.ExclusiveMax:
			e = e.Call("negative")
		case *v.Maximum == 0:
			e = e.Call("nonpositive")
		case v.ExclusiveMax:
			e = e.Call("lt", ts.Number(*v.Maximum))
		default:
			e = e.Call("max", ts.Number(*v.Maximum))
		}
	}
	if v.MultipleOf != nil {
		e = e.Call("multipleOf", ts.Number(*v.MultipleOf))
	}
	return e
}

// finish applies, in order: nullability, default, then one .openapi() call
// carrying the parameter position and example.
func (c *Compiler) finish(e Expr, meta *spec.Meta, ctx Context, nullable bool) Expr {
	if (meta.Nullable || nullable) && e.Code != "z.null()" {
		e = e.OrNull()
	}
	if meta.HasDefault {
		e = e.Call("default", ts.Literal(meta.Default))
		e.HasDefault = true
	}
	if ctx.Param != nil || meta.HasExample {
		e = e.Call("openapi", openapiMeta(ctx.Param, meta.Example, meta.HasExample))
	}
	return e
}

// parameterExpr compiles a parameter's schema, or the schema of its first
// media type when it declares content instead.
func (c *Compiler) parameterExpr(p spec.Parameter, ctx Context) Expr {
	ctx.Param = &Param{Name: p.Name, In: p.In}
	if p.Schema != nil {
		ctx.Transport = true
		return c.Compile(p.Schema, ctx)
	}
	if len(p.Content) > 0 {
		return c.Compile(p.Content[0].Schema, ctx)
	}
	c.diags.Warnf("", "parameter %s has no schema", p.Key())
	return c.Compile(nil, ctx)
}

// describe renders the JSON pointer of a declaration for diagnostics.
func describe(k DeclKey) string {
	name := strings.ReplaceAll(strings.ReplaceAll(k.Name, "~", "~0"), "/", "~1")
	return fmt.Sprintf("#/components/%s/%s", k.Kind, name)
}
