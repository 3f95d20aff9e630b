package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/emitter/ts"
	"github.com/mark3labs/honogen/internal/naming"
	"github.com/mark3labs/honogen/internal/spec"
)

// library describes one data-fetching package. Every library shares the
// cache key shape [path, METHOD, args].
type library struct {
	target emitter.Target
	file   string
	pkg    string
	// hook prefixes generated hook names: use or create.
	hook     string
	query    string
	mutation string
	// queryOptions is the package's typed options helper, if it has one.
	queryOptions string
}

var libraries = map[emitter.Target]library{
	emitter.TargetTanstackQuery: {
		target: emitter.TargetTanstackQuery, file: "tanstack-query.ts", pkg: "@tanstack/react-query",
		hook: "use", query: "useQuery", mutation: "useMutation", queryOptions: "queryOptions",
	},
	emitter.TargetVueQuery: {
		target: emitter.TargetVueQuery, file: "vue-query.ts", pkg: "@tanstack/vue-query",
		hook: "use", query: "useQuery", mutation: "useMutation", queryOptions: "queryOptions",
	},
	emitter.TargetSvelteQuery: {
		target: emitter.TargetSvelteQuery, file: "svelte-query.ts", pkg: "@tanstack/svelte-query",
		hook: "create", query: "createQuery", mutation: "createMutation",
	},
	emitter.TargetSWR: {
		target: emitter.TargetSWR, file: "swr.ts", pkg: "swr",
		hook: "use", query: "useSWR", mutation: "useSWRMutation",
	},
}

// binding is the per-route identifier set inside one bindings file.
type binding struct {
	route   emitter.Route
	key     string
	options string
	hook    string
	args    string
}

// EmitQuery renders the bindings file for one query library target.
func EmitQuery(ctx context.Context, u *emitter.Unit, target emitter.Target) (emitter.Files, error) {
	lib, ok := libraries[target]
	if !ok {
		return nil, fmt.Errorf("no query library for target %q", target)
	}
	if len(u.Routes) == 0 {
		return nil, emitter.MissingInput("document has no operations")
	}

	scope := u.Names.Fork()
	var imports ts.Imports
	imports.AddType(honoClient, "ClientRequestOptions")
	rpcFrom := ts.RelImport(lib.file, "rpc.ts")

	var body strings.Builder
	for _, r := range u.Routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		method := r.Op.Method
		if method != spec.GET && !method.Mutating() {
			u.Compiler.Diagnostics().Infof(operationPointer(r.Op), "no %s binding for %s operations", target, strings.ToUpper(string(method)))
			continue
		}
		b := binding{
			route: r,
			key:   scope.Name(r.Base.Name+" key", naming.RoleLocal, naming.Camel).Name,
			hook:  scope.Name(lib.hook+" "+r.Base.Name, naming.RoleLocal, naming.Camel).Name,
			args:  "Parameters<typeof " + r.Base.Name + ">[0]",
		}
		imports.Add(rpcFrom, r.Base.Name)
		body.WriteString("\n")
		if method == spec.GET {
			b.options = scope.Name(r.Base.Name+" query options", naming.RoleLocal, naming.Camel).Name
			body.WriteString(keyFunc(b, true))
			if lib.target == emitter.TargetSWR {
				body.WriteString(swrQuery(b, &imports))
			} else {
				body.WriteString(tanstackQuery(lib, b, &imports))
			}
			continue
		}
		body.WriteString(keyFunc(b, false))
		if lib.target == emitter.TargetSWR {
			body.WriteString(swrMutation(b, &imports))
		} else {
			body.WriteString(tanstackMutation(lib, b, &imports))
		}
	}

	files := emitter.Files{}
	files.Add(lib.file, emitter.Header+imports.Render()+body.String())
	return files, nil
}

// keyFunc renders the cache key. Mutation keys carry {} since their
// arguments are only known when the mutation runs.
func keyFunc(b binding, query bool) string {
	path := ts.Quote(b.route.Path)
	method := ts.Quote(strings.ToUpper(string(b.route.Op.Method)))
	if query && b.route.Op.HasArgs() {
		return fmt.Sprintf("export function %s(args: %s) {\n  return [%s, %s, args] as const\n}\n\n", b.key, b.args, path, method)
	}
	return fmt.Sprintf("export function %s() {\n  return [%s, %s, {}] as const\n}\n\n", b.key, path, method)
}

// call renders the rpc invocation and the argument list for b.
func call(b binding, args, options string) string {
	if b.route.Op.HasArgs() {
		return fmt.Sprintf("(await %s(%s, %s)).json()", b.route.Base.Name, args, options)
	}
	return fmt.Sprintf("(await %s(%s)).json()", b.route.Base.Name, options)
}

func params(b binding, options string) string {
	if b.route.Op.HasArgs() {
		return "args: " + b.args + ", options?: " + options
	}
	return "options?: " + options
}

func keyCall(b binding) string {
	if b.route.Op.HasArgs() {
		return b.key + "(args)"
	}
	return b.key + "()"
}

func tanstackQuery(lib library, b binding, imports *ts.Imports) string {
	imports.Add(lib.pkg, lib.query)
	var sb strings.Builder
	head, tail := "{", "}"
	if lib.queryOptions != "" {
		imports.Add(lib.pkg, lib.queryOptions)
		head, tail = lib.queryOptions+"({", "})"
	}
	fmt.Fprintf(&sb, "export function %s(%s) {\n", b.options, params(b, "ClientRequestOptions"))
	fmt.Fprintf(&sb, "  return %s\n", head)
	fmt.Fprintf(&sb, "    queryKey: %s,\n", keyCall(b))
	fmt.Fprintf(&sb, "    queryFn: async () => %s,\n", call(b, "args", "options"))
	fmt.Fprintf(&sb, "  %s\n}\n\n", tail)

	optionsArgs := "options"
	if b.route.Op.HasArgs() {
		optionsArgs = "args, options"
	}
	fmt.Fprintf(&sb, "export function %s(%s) {\n", b.hook, params(b, "ClientRequestOptions"))
	fmt.Fprintf(&sb, "  return %s(%s(%s))\n}\n", lib.query, b.options, optionsArgs)
	return sb.String()
}

func tanstackMutation(lib library, b binding, imports *ts.Imports) string {
	imports.Add(lib.pkg, lib.mutation)
	var sb strings.Builder
	fmt.Fprintf(&sb, "export function %s(options?: ClientRequestOptions) {\n", b.hook)
	fmt.Fprintf(&sb, "  return %s({\n", lib.mutation)
	fmt.Fprintf(&sb, "    mutationKey: %s(),\n", b.key)
	if b.route.Op.HasArgs() {
		fmt.Fprintf(&sb, "    mutationFn: async (args: %s) => %s,\n", b.args, call(b, "args", "options"))
	} else {
		fmt.Fprintf(&sb, "    mutationFn: async () => %s,\n", call(b, "", "options"))
	}
	sb.WriteString("  })\n}\n")
	return sb.String()
}

func swrQuery(b binding, imports *ts.Imports) string {
	imports.AddDefault("swr", "useSWR")
	imports.AddType("swr", "SWRConfiguration")
	const opts = "{ swr?: SWRConfiguration; client?: ClientRequestOptions }"
	var sb strings.Builder
	fmt.Fprintf(&sb, "export function %s(%s) {\n", b.hook, params(b, opts))
	fmt.Fprintf(&sb, "  return useSWR(\n    %s,\n    async () => %s,\n    options?.swr,\n  )\n}\n",
		keyCall(b), call(b, "args", "options?.client"))
	return sb.String()
}

func swrMutation(b binding, imports *ts.Imports) string {
	imports.AddDefault("swr/mutation", "useSWRMutation")
	var sb strings.Builder
	fmt.Fprintf(&sb, "export function %s(options?: ClientRequestOptions) {\n", b.hook)
	if b.route.Op.HasArgs() {
		fmt.Fprintf(&sb, "  return useSWRMutation(\n    %s(),\n    async (_: unknown, { arg }: { arg: %s }) => %s,\n  )\n}\n",
			b.key, b.args, call(b, "arg", "options"))
	} else {
		fmt.Fprintf(&sb, "  return useSWRMutation(%s(), async () => %s)\n}\n", b.key, call(b, "", "options"))
	}
	return sb.String()
}

func operationPointer(op *spec.Operation) string {
	escaped := strings.NewReplacer("~", "~0", "/", "~1").Replace(op.Path)
	return "#/paths/" + escaped + "/" + string(op.Method)
}
