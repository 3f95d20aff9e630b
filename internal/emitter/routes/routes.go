// Package routes renders createRoute declarations and the handler
// scaffolding that registers them on an OpenAPIHono app.
package routes

import (
	"context"
	"sort"
	"strings"

	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/emitter/ts"
	"github.com/mark3labs/honogen/internal/naming"
	"github.com/mark3labs/honogen/internal/zod"
)

// Declaration is one rendered route constant.
type Declaration struct {
	Route emitter.Route
	// Code holds the hoisted locals followed by the exported constant.
	Code string
	// Uses lists the component declarations the route references.
	Uses zod.Uses
}

// Declare compiles and renders the createRoute constant for r. Hoisted
// locals are named in scope, which is the resolver of the file the
// declaration lands in.
func Declare(u *emitter.Unit, r emitter.Route, scope *naming.Resolver) Declaration {
	uses := zod.Uses{}
	shape := u.Compiler.CompileRequest(r.Op, zod.RouteScope{Names: scope, Base: r.Base.Name, Uses: uses})

	op := r.Op
	var obj ts.Object
	obj.Add("method", ts.Quote(string(op.Method)))
	obj.Add("path", ts.Quote(r.Path))
	if len(op.Tags) > 0 {
		tags := make([]string, len(op.Tags))
		for i, t := range op.Tags {
			tags[i] = ts.Quote(t)
		}
		obj.Add("tags", "["+strings.Join(tags, ", ")+"]")
	}
	if op.OperationID != "" {
		obj.Add("operationId", ts.Quote(op.OperationID))
	}
	if op.Summary != "" {
		obj.Add("summary", ts.Quote(op.Summary))
	}
	if op.Description != "" {
		obj.Add("description", ts.Quote(op.Description))
	}
	if op.Deprecated {
		obj.Add("deprecated", "true")
	}
	if op.Security != nil {
		obj.Add("security", security(op.Security))
	}
	if req := emitter.Request(shape); req != "" {
		obj.Add("request", req)
	}
	obj.Add("responses", emitter.Responses(shape.Responses))

	var b strings.Builder
	b.WriteString(emitter.Locals(shape.Locals))
	b.WriteString("export const ")
	b.WriteString(r.Ident.Name)
	b.WriteString(" = createRoute(")
	b.WriteString(obj.Render())
	b.WriteString(")\n")
	return Declaration{Route: r, Code: b.String(), Uses: uses}
}

// security renders requirement objects. An empty list clears the
// document-level requirement for the route.
func security(reqs []map[string][]string) string {
	items := make([]string, 0, len(reqs))
	for _, req := range reqs {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		var obj ts.Object
		for _, name := range names {
			scopes := req[name]
			if scopes == nil {
				scopes = []string{}
			}
			obj.Add(name, ts.Literal(scopes))
		}
		items = append(items, obj.Inline())
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// Emit renders the handler target: one stub file per first path segment,
// optional test stubs, a barrel and app.ts wiring every route.
func Emit(ctx context.Context, u *emitter.Unit) (emitter.Files, error) {
	if len(u.Routes) == 0 {
		return nil, emitter.MissingInput("document has no operations")
	}
	files := emitter.Files{}

	groups := map[string][]emitter.Route{}
	for _, r := range u.Routes {
		seg := r.Segment()
		groups[seg] = append(groups[seg], r)
	}
	segments := make([]string, 0, len(groups))
	for seg := range groups {
		segments = append(segments, seg)
	}
	sort.Strings(segments)

	var barrel strings.Builder
	barrel.WriteString(emitter.Header)
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := "handlers/" + seg + ".ts"
		files.Add(rel, handlerFile(u, rel, groups[seg]))
		if u.Opts.TestStubs {
			files.Add("handlers/"+seg+".test.ts", testStub(seg, groups[seg]))
		}
		barrel.WriteString("export * from " + ts.Quote("./"+seg) + "\n")
	}
	files.Add("handlers/index.ts", barrel.String())
	files.Add("app.ts", appFile(u))
	return files, nil
}

func handlerFile(u *emitter.Unit, rel string, group []emitter.Route) string {
	var imports ts.Imports
	imports.AddType("@hono/zod-openapi", "RouteHandler")
	from := emitter.ImportPath(rel, u.Opts.RoutesImport)
	for _, r := range group {
		imports.AddType(from, r.Ident.Name)
	}

	var b strings.Builder
	b.WriteString(emitter.Header)
	b.WriteString(imports.Render())
	for _, r := range group {
		b.WriteString("\nexport const ")
		b.WriteString(r.Handler.Name)
		b.WriteString(": RouteHandler<typeof ")
		b.WriteString(r.Ident.Name)
		b.WriteString("> = async (c) => {}\n")
	}
	return b.String()
}

func testStub(seg string, group []emitter.Route) string {
	var b strings.Builder
	b.WriteString(emitter.Header)
	b.WriteString("import { describe, it } from \"vitest\"\n\n")
	b.WriteString("describe(" + ts.Quote(seg) + ", () => {\n")
	for _, r := range group {
		b.WriteString("  it.todo(" + ts.Quote(r.Handler.Name) + ")\n")
	}
	b.WriteString("})\n")
	return b.String()
}

// appFile chains every registration so AppType carries the full route
// table for the RPC client.
func appFile(u *emitter.Unit) string {
	var imports ts.Imports
	imports.Add("@hono/zod-openapi", "OpenAPIHono")
	routesFrom := emitter.ImportPath("app.ts", u.Opts.RoutesImport)
	for _, r := range u.Routes {
		imports.Add(routesFrom, r.Ident.Name)
		imports.Add("./handlers", r.Handler.Name)
	}

	var b strings.Builder
	b.WriteString(emitter.Header)
	b.WriteString(imports.Render())
	b.WriteString("\nconst app = new OpenAPIHono()\n\n")
	b.WriteString("export const routes = app")
	for _, r := range u.Routes {
		b.WriteString("\n  .openapi(" + r.Ident.Name + ", " + r.Handler.Name + ")")
	}
	b.WriteString("\n\nexport type AppType = typeof routes\n\nexport default app\n")
	return b.String()
}
