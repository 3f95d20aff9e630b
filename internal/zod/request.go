package zod

import (
	"github.com/mark3labs/honogen/internal/naming"
	"github.com/mark3labs/honogen/internal/spec"
)

// MediaShape is one compiled entry of a content map.
type MediaShape struct {
	MediaType  string
	Schema     Expr
	Example    any
	HasExample bool
}

// BodyShape is a compiled request body. Ref names the requestBodies
// declaration when the body came from components.
type BodyShape struct {
	Ref         string
	Description string
	Required    bool
	Content     []MediaShape
}

// HeaderShape is one compiled response header.
type HeaderShape struct {
	Name string
	Expr Expr
}

// ResponseShape is a compiled response. Ref names the responses
// declaration when the response came from components.
type ResponseShape struct {
	Status      string
	Ref         string
	Description string
	Headers     []HeaderShape
	Content     []MediaShape
}

// ParamGroup is the object expression for one parameter location.
type ParamGroup struct {
	In spec.Location
	// Key is the createRoute request field: params, query, headers, cookies.
	Key  string
	Expr Expr
}

// Local is a file-level constant hoisted out of a route, holding an
// expression shared by several content types.
type Local struct {
	Name string
	Expr Expr
}

// RequestShape is everything a route declaration needs from one operation.
type RequestShape struct {
	Params    []ParamGroup
	Body      *BodyShape
	Responses []ResponseShape
	Locals    []Local
}

// RouteScope carries the per-route naming state for CompileRequest.
type RouteScope struct {
	// Names is the file-level scope hoisted locals are named in.
	Names *naming.Resolver
	// Base is the route stem, e.g. getTodo.
	Base string
	// Uses collects referenced declarations for imports.
	Uses Uses
}

var groupKeys = map[spec.Location]string{
	spec.InPath:   "params",
	spec.InQuery:  "query",
	spec.InHeader: "headers",
	spec.InCookie: "cookies",
}

// CompileRequest compiles an operation's parameters, body and responses.
// Each non-empty parameter location becomes one z.object; content types
// whose schemas are structurally equal compile once.
func (c *Compiler) CompileRequest(op *spec.Operation, scope RouteScope) RequestShape {
	var shape RequestShape
	ctx := Context{Uses: scope.Uses}

	for _, loc := range spec.Locations {
		params := op.Params[loc]
		if len(params) == 0 {
			continue
		}
		fields := make([]field, 0, len(params))
		for _, p := range params {
			fields = append(fields, field{name: p.Name, expr: c.paramField(p, ctx)})
		}
		shape.Params = append(shape.Params, ParamGroup{In: loc, Key: groupKeys[loc], Expr: zObject(fields)})
	}

	if op.Body != nil {
		if op.Body.Ref != "" {
			k := DeclKey{Kind: spec.KindRequestBodies, Name: op.Body.Ref}
			shape.Body = &BodyShape{Ref: c.Reference(k, ctx).Code, Required: op.Body.Required}
		} else {
			b := c.body(*op.Body, ctx, &shape, scope, "body")
			shape.Body = &b
		}
	}

	for _, r := range op.Responses {
		if r.Ref != "" {
			k := DeclKey{Kind: spec.KindResponses, Name: r.Ref}
			shape.Responses = append(shape.Responses, ResponseShape{Status: r.Status, Ref: c.Reference(k, ctx).Code})
			continue
		}
		shape.Responses = append(shape.Responses, c.response(r, ctx, &shape, scope))
	}
	return shape
}

// paramField compiles one member of a parameter group. Component
// parameters are referenced by name.
func (c *Compiler) paramField(p spec.Parameter, ctx Context) Expr {
	var e Expr
	if p.Ref != "" {
		e = c.Reference(DeclKey{Kind: spec.KindParameters, Name: p.Ref}, ctx)
	} else {
		e = c.parameterExpr(p, ctx)
	}
	if !p.Required {
		e = e.Opt()
	}
	return e
}

// RequestBody compiles a requestBodies component.
func (c *Compiler) RequestBody(name string) BodyShape {
	k := DeclKey{Kind: spec.KindRequestBodies, Name: name}
	c.compiles[k]++
	return c.body(c.doc.RequestBodies[name], Context{Decl: k}, nil, RouteScope{}, "")
}

// Response compiles a responses component.
func (c *Compiler) Response(name string) ResponseShape {
	k := DeclKey{Kind: spec.KindResponses, Name: name}
	c.compiles[k]++
	r := c.doc.Responses[name]
	return c.response(r, Context{Decl: k}, nil, RouteScope{})
}

func (c *Compiler) body(b spec.Body, ctx Context, shape *RequestShape, scope RouteScope, label string) BodyShape {
	return BodyShape{
		Description: b.Description,
		Required:    b.Required,
		Content:     c.content(b.Content, ctx, shape, scope, label),
	}
}

func (c *Compiler) response(r spec.Response, ctx Context, shape *RequestShape, scope RouteScope) ResponseShape {
	out := ResponseShape{Status: r.Status, Description: r.Description}
	for _, h := range r.Headers {
		var e Expr
		if h.Ref != "" {
			e = c.Reference(DeclKey{Kind: spec.KindHeaders, Name: h.Ref}, ctx)
		} else {
			hctx := ctx
			hctx.Transport = true
			e = c.Compile(h.Schema, hctx)
		}
		if !h.Required {
			e = e.Opt()
		}
		out.Headers = append(out.Headers, HeaderShape{Name: h.Name, Expr: e})
	}
	out.Content = c.content(r.Content, ctx, shape, scope, r.Status+" response")
	return out
}

// content compiles a media list. Entries with equal fingerprints share one
// compilation; inside a route, a shared non-reference expression is hoisted
// into a local constant that every entry references.
func (c *Compiler) content(media []spec.Media, ctx Context, shape *RequestShape, scope RouteScope, label string) []MediaShape {
	counts := map[string]int{}
	for _, m := range media {
		if m.Fingerprint != "" {
			counts[m.Fingerprint]++
		}
	}
	compiled := map[string]Expr{}
	out := make([]MediaShape, 0, len(media))
	for _, m := range media {
		ms := MediaShape{MediaType: m.MediaType, Example: m.Example, HasExample: m.Example != nil}
		if m.Fingerprint == "" {
			ms.Schema = c.Compile(m.Schema, ctx)
			out = append(out, ms)
			continue
		}
		e, ok := compiled[m.Fingerprint]
		if !ok {
			e = c.Compile(m.Schema, ctx)
			if counts[m.Fingerprint] > 1 && !e.IsRef() && shape != nil && scope.Names != nil {
				id := scope.Names.Name(scope.Base+" "+label, naming.RoleLocal, naming.Camel)
				shape.Locals = append(shape.Locals, Local{Name: id.Name, Expr: e})
				e = ref(id.Name)
			}
			compiled[m.Fingerprint] = e
		}
		ms.Schema = e
		out = append(out, ms)
	}
	return out
}
