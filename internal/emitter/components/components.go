// Package components renders the zod-openapi target: one declaration per
// component plus the route declarations, either into a single index.ts or
// split into one file per declaration with barrel indexes.
package components

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/emitter/routes"
	"github.com/mark3labs/honogen/internal/emitter/ts"
	"github.com/mark3labs/honogen/internal/spec"
	"github.com/mark3labs/honogen/internal/zod"
)

const zodOpenAPI = "@hono/zod-openapi"

// Emit renders every component and route of u.
func Emit(ctx context.Context, u *emitter.Unit) (emitter.Files, error) {
	if len(u.Table.Decls()) == 0 && len(u.Routes) == 0 {
		return nil, emitter.MissingInput("document has no components or operations")
	}
	if u.Opts.Split {
		return emitSplit(ctx, u)
	}
	return emitSingle(ctx, u)
}

func emitSingle(ctx context.Context, u *emitter.Unit) (emitter.Files, error) {
	var blocks []string
	for _, d := range u.Table.Decls() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blocks = append(blocks, declaration(u, d, u.Opts.ExportSchemas))
	}
	scope := u.Names.Fork()
	for _, r := range u.Routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blocks = append(blocks, routes.Declare(u, r, scope).Code)
	}
	body := strings.Join(trimAll(blocks), "\n\n")

	var imports ts.Imports
	addZodImports(&imports, body, len(u.Routes) > 0)

	files := emitter.Files{}
	files.Add("index.ts", assemble(imports, body))
	return files, nil
}

func emitSplit(ctx context.Context, u *emitter.Unit) (emitter.Files, error) {
	files := emitter.Files{}
	barrels := map[string][]string{}

	for _, d := range u.Table.Decls() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := declPath(d)
		body := declaration(u, d, true)

		var imports ts.Imports
		addZodImports(&imports, body, false)
		for _, dep := range d.Deps {
			if dep == d.Key {
				continue
			}
			target, _ := u.Table.Lookup(dep)
			imports.Add(ts.RelImport(rel, declPath(target)), target.Ident.Name)
		}
		files.Add(rel, assemble(imports, body))
		barrels[string(d.Key.Kind)] = append(barrels[string(d.Key.Kind)], d.Ident.Name)
	}

	for _, r := range u.Routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := "routes/" + r.Ident.Name + ".ts"
		decl := routes.Declare(u, r, u.Names.Fork())

		var imports ts.Imports
		addZodImports(&imports, decl.Code, true)
		for _, k := range sortedUses(u.Table, decl.Uses) {
			target, _ := u.Table.Lookup(k)
			imports.Add(ts.RelImport(rel, declPath(target)), target.Ident.Name)
		}
		files.Add(rel, assemble(imports, decl.Code))
		barrels["routes"] = append(barrels["routes"], r.Ident.Name)
	}

	var root strings.Builder
	root.WriteString(emitter.Header)
	dirs := make([]string, 0, len(spec.ComponentKinds)+1)
	for _, kind := range spec.ComponentKinds {
		dirs = append(dirs, string(kind))
	}
	dirs = append(dirs, "routes")
	for _, dir := range dirs {
		names := barrels[dir]
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		var b strings.Builder
		b.WriteString(emitter.Header)
		for _, n := range names {
			b.WriteString("export * from " + ts.Quote("./"+n) + "\n")
		}
		files.Add(dir+"/index.ts", b.String())
		root.WriteString("export * from " + ts.Quote("./"+dir) + "\n")
	}
	files.Add("index.ts", root.String())
	return files, nil
}

// declaration renders one component constant. Cyclic declarations carry an
// explicit type because TypeScript cannot infer a self-referential const.
func declaration(u *emitter.Unit, d *zod.Decl, export bool) string {
	var value string
	typed := false
	switch d.Key.Kind {
	case spec.KindSchemas:
		value, typed = u.Compiler.Schema(d.Key.Name).Code, d.Cyclic
	case spec.KindParameters:
		value, typed = u.Compiler.Parameter(d.Key.Name).Code, d.Cyclic
	case spec.KindHeaders:
		value, typed = u.Compiler.Header(d.Key.Name).Code, d.Cyclic
	case spec.KindRequestBodies:
		value = emitter.Body(u.Compiler.RequestBody(d.Key.Name))
	case spec.KindResponses:
		value = emitter.Response(u.Compiler.Response(d.Key.Name))
	}

	var b strings.Builder
	if export {
		b.WriteString("export ")
	}
	b.WriteString("const ")
	b.WriteString(d.Ident.Name)
	if typed {
		b.WriteString(": z.ZodTypeAny")
	}
	b.WriteString(" = ")
	b.WriteString(value)
	if d.Key.Kind == spec.KindSchemas && u.Opts.ExportTypes {
		b.WriteString("\n\nexport type ")
		b.WriteString(d.Type.Name)
		b.WriteString(" = z.infer<typeof ")
		b.WriteString(d.Ident.Name)
		b.WriteString(">")
	}
	return b.String()
}

func declPath(d *zod.Decl) string {
	return path.Join(string(d.Key.Kind), d.Ident.Name+".ts")
}

func sortedUses(t *zod.Table, uses zod.Uses) []zod.DeclKey {
	keys := uses.Keys()
	sort.Slice(keys, func(i, j int) bool {
		a, _ := t.Lookup(keys[i])
		b, _ := t.Lookup(keys[j])
		return a.Index < b.Index
	})
	return keys
}

func addZodImports(imports *ts.Imports, body string, route bool) {
	if route {
		imports.Add(zodOpenAPI, "createRoute")
	}
	if strings.Contains(body, "z.") {
		imports.Add(zodOpenAPI, "z")
	}
}

func assemble(imports ts.Imports, body string) string {
	var b strings.Builder
	b.WriteString(emitter.Header)
	if imports.Len() > 0 {
		b.WriteString(imports.Render())
	}
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}

func trimAll(blocks []string) []string {
	out := make([]string, len(blocks))
	for i, s := range blocks {
		out[i] = strings.TrimRight(s, "\n")
	}
	return out
}
