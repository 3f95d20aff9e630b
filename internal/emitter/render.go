package emitter

import (
	"strings"

	"github.com/mark3labs/honogen/internal/emitter/ts"
	"github.com/mark3labs/honogen/internal/zod"
)

// Content renders a content map: { "application/json": { schema: X } }.
func Content(media []zod.MediaShape) string {
	var obj ts.Object
	for _, m := range media {
		var entry ts.Object
		entry.Add("schema", m.Schema.Code)
		if m.HasExample {
			entry.Add("example", ts.Literal(m.Example))
		}
		obj.Add(m.MediaType, entry.Render())
	}
	return obj.Render()
}

// Body renders a request body object, or the component it references.
func Body(b zod.BodyShape) string {
	if b.Ref != "" {
		return b.Ref
	}
	var obj ts.Object
	if b.Description != "" {
		obj.Add("description", ts.Quote(b.Description))
	}
	obj.Add("content", Content(b.Content))
	if b.Required {
		obj.Add("required", "true")
	}
	return obj.Render()
}

// Response renders a response object, or the component it references.
// Headers become one z.object keyed by header name.
func Response(r zod.ResponseShape) string {
	if r.Ref != "" {
		return r.Ref
	}
	var obj ts.Object
	obj.Add("description", ts.Quote(r.Description))
	if len(r.Headers) > 0 {
		var headers ts.Object
		for _, h := range r.Headers {
			headers.Add(h.Name, h.Expr.Code)
		}
		obj.Add("headers", "z.object("+headers.Render()+")")
	}
	if len(r.Content) > 0 {
		obj.Add("content", Content(r.Content))
	}
	return obj.Render()
}

// Responses renders the responses map of a route, keyed by status code.
func Responses(rs []zod.ResponseShape) string {
	var obj ts.Object
	for _, r := range rs {
		if numeric(r.Status) {
			obj.AddRaw(r.Status, Response(r))
			continue
		}
		obj.Add(r.Status, Response(r))
	}
	return obj.Render()
}

// numeric reports a plain status code; `default` and ranges like 2XX are
// quoted as needed instead.
func numeric(status string) bool {
	return status != "" && strings.Trim(status, "0123456789") == ""
}

// Request renders the request object of a route, or "" when empty.
func Request(shape zod.RequestShape) string {
	var obj ts.Object
	for _, g := range shape.Params {
		obj.Add(g.Key, g.Expr.Code)
	}
	if shape.Body != nil {
		obj.Add("body", Body(*shape.Body))
	}
	if len(obj) == 0 {
		return ""
	}
	return obj.Render()
}

// Locals renders hoisted route constants in order.
func Locals(locals []zod.Local) string {
	var b strings.Builder
	for _, l := range locals {
		b.WriteString("const ")
		b.WriteString(l.Name)
		b.WriteString(" = ")
		b.WriteString(l.Expr.Code)
		b.WriteString("\n\n")
	}
	return b.String()
}
