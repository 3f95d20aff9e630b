// Package emitter holds what every output target shares: options, the
// compiled unit of one document, planned files, and the object-literal
// renderers for content maps, request bodies and responses.
package emitter

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/mark3labs/honogen/internal/diag"
	"github.com/mark3labs/honogen/internal/emitter/ts"
	"github.com/mark3labs/honogen/internal/naming"
	"github.com/mark3labs/honogen/internal/spec"
	"github.com/mark3labs/honogen/internal/zod"
)

// Target names one kind of generated output.
type Target string

const (
	TargetZodOpenAPI    Target = "zod-openapi"
	TargetHandlers      Target = "handlers"
	TargetRPC           Target = "rpc"
	TargetTanstackQuery Target = "tanstack-query"
	TargetVueQuery      Target = "vue-query"
	TargetSvelteQuery   Target = "svelte-query"
	TargetSWR           Target = "swr"
)

// Targets lists every target in a stable order.
var Targets = []Target{
	TargetZodOpenAPI, TargetHandlers, TargetRPC,
	TargetTanstackQuery, TargetVueQuery, TargetSvelteQuery, TargetSWR,
}

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	t := Target(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Targets {
		if t == known {
			return t, nil
		}
	}
	names := make([]string, len(Targets))
	for i, known := range Targets {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown target %q (valid: %s)", s, strings.Join(names, ", "))
}

// Options controls rendering for every target.
type Options struct {
	// Split writes one file per component with barrel indexes.
	Split bool
	// ExportSchemas exports component declarations. Split mode always
	// exports, since files import each other.
	ExportSchemas bool
	// ExportTypes adds `export type X = z.infer<typeof XSchema>`.
	ExportTypes bool
	SchemaCase  naming.Casing
	TypeCase    naming.Casing
	// BasePath is prefixed to every route path.
	BasePath string
	// TestStubs adds an empty test file next to each handler file.
	TestStubs bool
	// ClientImport is the module exporting the Hono RPC `client`.
	ClientImport string
	// RoutesImport is the module exporting the route declarations.
	RoutesImport string
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		ExportSchemas: true,
		SchemaCase:    naming.Pascal,
		TypeCase:      naming.Pascal,
		ClientImport:  "./client",
		RoutesImport:  "./index",
	}
}

// Files maps slash-separated output paths to contents.
type Files map[string][]byte

// Add stores content under rel, terminating it with one newline.
func (f Files) Add(rel, content string) {
	f[rel] = []byte(strings.TrimRight(content, "\n") + "\n")
}

// Paths returns the file paths sorted.
func (f Files) Paths() []string {
	out := make([]string, 0, len(f))
	for p := range f {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PlannedFile describes a file a target intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Plan lists files in deterministic order.
func Plan(files Files) []PlannedFile {
	planned := make([]PlannedFile, 0, len(files))
	for _, rel := range files.Paths() {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}
	return planned
}

// Route is one operation with its identifiers. Identifiers come from the
// unit's project scope, so every target names a route the same way.
type Route struct {
	Op *spec.Operation
	// Base is the operation stem, e.g. getTodo; the RPC wrapper uses it.
	Base    naming.Identifier
	Ident   naming.Identifier
	Handler naming.Identifier
	// Path is the route path with the base path applied.
	Path string
}

// Segment is the first path segment, used to group handler files. The
// root path groups under "root" and a literal index segment under
// "indexRoutes", keeping both clear of barrel files.
func (r Route) Segment() string {
	for _, seg := range strings.Split(r.Op.Path, "/") {
		if seg = strings.Trim(seg, "{}"); seg != "" {
			if name := naming.Base(seg, naming.Camel); name != "index" {
				return name
			}
			return "indexRoutes"
		}
	}
	return "root"
}

// Unit is one document compiled once and shared by every target of a task.
type Unit struct {
	Doc      *spec.Document
	Manifest *spec.Manifest
	Table    *zod.Table
	Compiler *zod.Compiler
	Names    *naming.Resolver
	Routes   []Route
	Opts     Options
}

// reservedBindings are imported or generated names no declaration may take.
var reservedBindings = []string{
	"z", "createRoute", "OpenAPIHono", "RouteHandler", "app", "routes", "client",
	"AppType", "hc", "queryOptions", "useQuery", "useMutation", "createQuery",
	"createMutation", "useSWR", "useSWRMutation", "describe", "it",
	"InferRequestType", "ClientRequestOptions",
}

// NewUnit reserves every identifier for doc: components first, in
// emission order, then routes in manifest order.
func NewUnit(doc *spec.Document, manifest *spec.Manifest, opts Options, diags *diag.Collector) *Unit {
	names := naming.NewResolver()
	names.Reserve(reservedBindings...)
	table := zod.NewTable(doc, names, zod.TableOptions{
		SchemaCasing: opts.SchemaCase,
		TypeCasing:   opts.TypeCase,
		SingleFile:   !opts.Split,
	})
	u := &Unit{
		Doc:      doc,
		Manifest: manifest,
		Table:    table,
		Compiler: zod.NewCompiler(doc, table, diags),
		Names:    names,
		Opts:     opts,
	}
	for i := range manifest.Operations {
		op := &manifest.Operations[i]
		method := string(op.Method)
		u.Routes = append(u.Routes, Route{
			Op:      op,
			Base:    names.Route(method, op.Path, naming.RoleOperation),
			Ident:   names.Route(method, op.Path, naming.RoleRoute),
			Handler: names.Route(method, op.Path, naming.RoleRouteHandler),
			Path:    JoinPath(opts.BasePath, op.Path),
		})
	}
	return u
}

// JoinPath prefixes p with base, keeping exactly one slash between them.
func JoinPath(base, p string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return p
	}
	if base[0] != '/' {
		base = "/" + base
	}
	if p == "/" {
		return base
	}
	return base + p
}

// ImportPath resolves a configured module specifier for a file at from.
// Relative specifiers are taken from the output root; package names are
// returned unchanged.
func ImportPath(from, specifier string) string {
	if !strings.HasPrefix(specifier, ".") {
		return specifier
	}
	target := path.Clean(specifier)
	if path.Base(target) == "index" || path.Ext(target) == "" {
		target += ".ts"
	}
	return ts.RelImport(from, target)
}

// MissingInput reports a document with nothing to emit for a target.
func MissingInput(format string, args ...any) error {
	return &spec.SpecError{Code: spec.MissingInput, Message: "nothing to generate: " + fmt.Sprintf(format, args...)}
}

// Header is the banner at the top of every generated file.
const Header = "// Code generated by honogen. DO NOT EDIT.\n"
