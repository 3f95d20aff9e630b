package spec

// Intermediate model shared by the compiler and every emitter.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	PUT     HttpMethod = "put"
	POST    HttpMethod = "post"
	DELETE  HttpMethod = "delete"
	OPTIONS HttpMethod = "options"
	HEAD    HttpMethod = "head"
	PATCH   HttpMethod = "patch"
	TRACE   HttpMethod = "trace"
)

// Mutating reports whether the method changes server state.
func (m HttpMethod) Mutating() bool {
	switch m {
	case POST, PUT, PATCH, DELETE:
		return true
	}
	return false
}

// Location is where a parameter travels.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InCookie Location = "cookie"
)

// Locations lists parameter locations in emission order.
var Locations = []Location{InPath, InQuery, InHeader, InCookie}

// ComponentKind names a components section that can be the target of a $ref.
type ComponentKind string

const (
	KindSchemas       ComponentKind = "schemas"
	KindParameters    ComponentKind = "parameters"
	KindRequestBodies ComponentKind = "requestBodies"
	KindResponses     ComponentKind = "responses"
	KindHeaders       ComponentKind = "headers"
)

// ComponentKinds lists component kinds in emission order.
var ComponentKinds = []ComponentKind{KindSchemas, KindParameters, KindHeaders, KindRequestBodies, KindResponses}

// Node is one schema in the closed set of shapes below. Exactly one shape is
// authoritative per node; the parser picks it by fixed precedence.
type Node interface {
	node()
	Attrs() *Meta
}

// Meta holds attributes shared by every shape.
type Meta struct {
	Nullable    bool
	Default     any
	HasDefault  bool
	Example     any
	HasExample  bool
	Description string
	// Bare is set when the source object declared nothing besides
	// `type: null` or `nullable: true`.
	Bare bool
	// Pointer locates the node in the source document for diagnostics.
	Pointer string
}

// Attrs returns the shared attributes.
func (m *Meta) Attrs() *Meta { return m }

// Ref points at a named component. References are never inlined.
type Ref struct {
	Meta
	Kind ComponentKind
	Name string
}

type AllOf struct {
	Meta
	Members []Node
}

type AnyOf struct {
	Meta
	Members []Node
}

type OneOf struct {
	Meta
	Members []Node
}

type Not struct {
	Meta
	Inner Node
}

type Const struct {
	Meta
	Value any
}

type Enum struct {
	Meta
	Values []any
}

// Property is one named member of an object.
type Property struct {
	Name     string
	Schema   Node
	Required bool
}

// Additional mirrors additionalProperties: Forbidden for `false`, Schema for
// a schema, neither for absent or `true`.
type Additional struct {
	Forbidden bool
	Schema    Node
}

type Object struct {
	Meta
	Properties []Property // sorted by name
	Additional Additional
	MinProps   uint64
	MaxProps   *uint64
}

// HasRequired reports whether any property is required.
func (o *Object) HasRequired() bool {
	for _, p := range o.Properties {
		if p.Required {
			return true
		}
	}
	return false
}

type Primitive struct {
	Meta
	Type    string
	Format  string
	Pattern string

	MinLength uint64
	MaxLength *uint64

	Minimum      *float64
	Maximum      *float64
	ExclusiveMin bool
	ExclusiveMax bool
	MultipleOf   *float64

	Items       Node
	MinItems    uint64
	MaxItems    *uint64
	UniqueItems bool

	Additional Additional
	MinProps   uint64
	MaxProps   *uint64
}

// Any is a node with no recognisable shape.
type Any struct {
	Meta
}

func (*Ref) node()       {}
func (*AllOf) node()     {}
func (*AnyOf) node()     {}
func (*OneOf) node()     {}
func (*Not) node()       {}
func (*Const) node()     {}
func (*Enum) node()      {}
func (*Object) node()    {}
func (*Primitive) node() {}
func (*Any) node()       {}

// IsNullOnly reports whether n is a bare `{type: null}` or `{nullable: true}`
// fragment that only contributes nullability.
func IsNullOnly(n Node) bool {
	if n == nil || !n.Attrs().Bare {
		return false
	}
	switch v := n.(type) {
	case *Primitive:
		return v.Type == "null"
	case *Any:
		return v.Nullable
	}
	return false
}

// Media is one entry of a content map.
type Media struct {
	MediaType string
	Schema    Node
	// Fingerprint is the canonical JSON of the source schema; equal
	// fingerprints mean structurally equal schemas.
	Fingerprint string
	Example     any
}

// Parameter is a merged operation parameter. Identity is (In, Name).
type Parameter struct {
	Name        string
	In          Location
	Required    bool
	Description string
	Schema      Node
	Content     []Media
	// Ref is set when the parameter came from #/components/parameters.
	Ref string
}

// Key returns the parameter identity.
func (p Parameter) Key() string { return string(p.In) + ":" + p.Name }

// Body is an operation or component request body.
type Body struct {
	Required    bool
	Description string
	Content     []Media
	Ref         string
}

// Header is a response header.
type Header struct {
	Name     string
	Required bool
	Schema   Node
	Ref      string
}

// Response is one entry of an operation's responses, keyed by status.
type Response struct {
	Status      string
	Description string
	Headers     []Header
	Content     []Media
	Ref         string
}

// Operation is the normalized manifest every emitter works from.
type Operation struct {
	Method      HttpMethod
	Path        string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Security    []map[string][]string
	Params      map[Location][]Parameter
	Body        *Body
	Responses   []Response
}

// HasArgs reports whether the operation takes any parameters or a body.
func (o *Operation) HasArgs() bool {
	if o.Body != nil {
		return true
	}
	for _, ps := range o.Params {
		if len(ps) > 0 {
			return true
		}
	}
	return false
}

// Manifest is the normalized view of a whole document.
type Manifest struct {
	Title      string
	Version    string
	Operations []Operation
}
