// Package clients renders the typed RPC wrapper over a Hono client and the
// data-fetching bindings built on top of it.
package clients

import (
	"context"
	"strings"

	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/emitter/ts"
)

const honoClient = "hono/client"

// clientChain returns the value and type expressions addressing a route's
// method on the Hono client: client.todo[":id"].$get and
// typeof client["todo"][":id"]["$get"].
func clientChain(r emitter.Route) (value, typ string) {
	value, typ = "client", "typeof client"
	var segs []string
	for _, seg := range strings.Split(r.Path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			seg = ":" + strings.Trim(seg, "{}")
		}
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		segs = []string{"index"}
	}
	segs = append(segs, "$"+string(r.Op.Method))
	for _, seg := range segs {
		value = ts.Member(value, seg)
		typ += "[" + ts.Quote(seg) + "]"
	}
	return value, typ
}

// EmitRPC renders rpc.ts: one async wrapper per operation taking the
// request arguments and client options.
func EmitRPC(ctx context.Context, u *emitter.Unit) (emitter.Files, error) {
	if len(u.Routes) == 0 {
		return nil, emitter.MissingInput("document has no operations")
	}
	const rel = "rpc.ts"
	var imports ts.Imports
	imports.AddType(honoClient, "ClientRequestOptions")
	imports.Add(emitter.ImportPath(rel, u.Opts.ClientImport), "client")

	var body strings.Builder
	for _, r := range u.Routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, typ := clientChain(r)
		body.WriteString("\n/**\n * ")
		body.WriteString(strings.ToUpper(string(r.Op.Method)))
		body.WriteString(" ")
		body.WriteString(r.Path)
		if r.Op.Summary != "" {
			body.WriteString("\n *\n * ")
			body.WriteString(strings.ReplaceAll(r.Op.Summary, "*/", "* /"))
		}
		if r.Op.Deprecated {
			body.WriteString("\n *\n * @deprecated")
		}
		body.WriteString("\n */\n")
		body.WriteString("export async function ")
		body.WriteString(r.Base.Name)
		if r.Op.HasArgs() {
			imports.AddType(honoClient, "InferRequestType")
			body.WriteString("(\n  args: InferRequestType<" + typ + ">,\n  options?: ClientRequestOptions,\n) {\n")
			body.WriteString("  return await " + value + "(args, options)\n}\n")
		} else {
			body.WriteString("(options?: ClientRequestOptions) {\n")
			body.WriteString("  return await " + value + "(undefined, options)\n}\n")
		}
	}

	files := emitter.Files{}
	files.Add(rel, emitter.Header+imports.Render()+body.String())
	return files, nil
}
