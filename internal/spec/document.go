package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	jsoniter "github.com/json-iterator/go"
)

var canonicalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is the parsed, read-only view of an OpenAPI document: every
// component converted to the schema IR, plus access to the raw paths for the
// manifest assembler. A Document is safe for concurrent readers.
type Document struct {
	Title   string
	Version string

	Schemas         map[string]Node
	Parameters      map[string]Parameter
	Headers         map[string]Header
	RequestBodies   map[string]Body
	Responses       map[string]Response
	SecuritySchemes map[string]map[string]any

	raw *openapi3.T
}

// NewDocument converts every component of doc into the IR. References between
// components stay references; they are resolved by name, never inlined.
func NewDocument(doc *openapi3.T) (*Document, error) {
	if doc == nil {
		return nil, &SpecError{Code: MalformedContent, Message: "spec: nil document"}
	}
	d := &Document{
		Schemas:         map[string]Node{},
		Parameters:      map[string]Parameter{},
		Headers:         map[string]Header{},
		RequestBodies:   map[string]Body{},
		Responses:       map[string]Response{},
		SecuritySchemes: map[string]map[string]any{},
		raw:             doc,
	}
	if doc.Info != nil {
		d.Title = safeStr(doc.Info.Title)
		d.Version = safeStr(doc.Info.Version)
	}
	p := newSchemaParser(doc.Components)
	c := doc.Components
	if c == nil {
		return d, nil
	}

	for _, name := range sortedKeys(c.Schemas) {
		pointer := "#/components/schemas/" + escapePointer(name)
		// A component that is itself a $ref to another component becomes an
		// alias reference.
		n, err := p.schema(c.Schemas[name], pointer, true)
		if err != nil {
			return nil, err
		}
		d.Schemas[name] = n
	}
	for _, name := range sortedKeys(c.Parameters) {
		pref := c.Parameters[name]
		if pref == nil || pref.Value == nil {
			return nil, unresolvable("#/components/parameters/"+escapePointer(name), refOf(pref))
		}
		param, err := p.parameter(pref.Value, "#/components/parameters/"+escapePointer(name))
		if err != nil {
			return nil, err
		}
		d.Parameters[name] = param
	}
	for _, name := range sortedKeys(c.Headers) {
		href := c.Headers[name]
		pointer := "#/components/headers/" + escapePointer(name)
		if href == nil || href.Value == nil {
			return nil, unresolvable(pointer, "")
		}
		h, err := p.header(name, href.Value, pointer)
		if err != nil {
			return nil, err
		}
		d.Headers[name] = h
	}
	for _, name := range sortedKeys(c.RequestBodies) {
		rref := c.RequestBodies[name]
		pointer := "#/components/requestBodies/" + escapePointer(name)
		if rref == nil || rref.Value == nil {
			return nil, unresolvable(pointer, "")
		}
		b, err := p.body(rref.Value, pointer)
		if err != nil {
			return nil, err
		}
		d.RequestBodies[name] = *b
	}
	for _, name := range sortedKeys(c.Responses) {
		rref := c.Responses[name]
		pointer := "#/components/responses/" + escapePointer(name)
		if rref == nil || rref.Value == nil {
			return nil, unresolvable(pointer, "")
		}
		r, err := p.response("", rref.Value, pointer)
		if err != nil {
			return nil, err
		}
		d.Responses[name] = r
	}
	for _, name := range sortedKeys(c.SecuritySchemes) {
		sref := c.SecuritySchemes[name]
		if sref == nil || sref.Value == nil {
			continue
		}
		raw, err := canonicalJSON.Marshal(sref.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal security scheme %s: %w", name, err)
		}
		var m map[string]any
		if err := canonicalJSON.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode security scheme %s: %w", name, err)
		}
		d.SecuritySchemes[name] = m
	}
	return d, nil
}

// Raw returns the underlying kin-openapi document.
func (d *Document) Raw() *openapi3.T { return d.raw }

// Keys returns the sorted component names of one kind.
func (d *Document) Keys(kind ComponentKind) []string {
	switch kind {
	case KindSchemas:
		return sortedKeys(d.Schemas)
	case KindParameters:
		return sortedKeys(d.Parameters)
	case KindHeaders:
		return sortedKeys(d.Headers)
	case KindRequestBodies:
		return sortedKeys(d.RequestBodies)
	case KindResponses:
		return sortedKeys(d.Responses)
	}
	return nil
}

// Has reports whether a component of the given kind and name exists.
func (d *Document) Has(kind ComponentKind, name string) bool {
	switch kind {
	case KindSchemas:
		_, ok := d.Schemas[name]
		return ok
	case KindParameters:
		_, ok := d.Parameters[name]
		return ok
	case KindHeaders:
		_, ok := d.Headers[name]
		return ok
	case KindRequestBodies:
		_, ok := d.RequestBodies[name]
		return ok
	case KindResponses:
		_, ok := d.Responses[name]
		return ok
	}
	return false
}

// ComponentCount returns the number of compilable components.
func (d *Document) ComponentCount() int {
	return len(d.Schemas) + len(d.Parameters) + len(d.Headers) + len(d.RequestBodies) + len(d.Responses)
}

// ParseRef splits a local component reference such as
// "#/components/schemas/Pet" into its kind and unescaped name. Deeper
// pointers and external references are not component references.
func ParseRef(ref string) (ComponentKind, string, bool) {
	const prefix = "#/components/"
	if !strings.HasPrefix(ref, prefix) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(ref, prefix), "/")
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}
	kind := ComponentKind(parts[0])
	switch kind {
	case KindSchemas, KindParameters, KindHeaders, KindRequestBodies, KindResponses:
	default:
		return "", "", false
	}
	return kind, unescapePointer(parts[1]), true
}

// Walk calls fn for n and every node nested in it, depth first. References
// are visited but not followed.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch v := n.(type) {
	case *AllOf:
		for _, m := range v.Members {
			Walk(m, fn)
		}
	case *AnyOf:
		for _, m := range v.Members {
			Walk(m, fn)
		}
	case *OneOf:
		for _, m := range v.Members {
			Walk(m, fn)
		}
	case *Not:
		Walk(v.Inner, fn)
	case *Object:
		for _, p := range v.Properties {
			Walk(p.Schema, fn)
		}
		Walk(v.Additional.Schema, fn)
	case *Primitive:
		Walk(v.Items, fn)
		Walk(v.Additional.Schema, fn)
	}
}

// schemaParser converts kin-openapi schemas into the IR.
type schemaParser struct {
	components *openapi3.Components
	// visiting guards inlined (non-component) refs against re-entry.
	visiting map[*openapi3.Schema]bool
}

func newSchemaParser(c *openapi3.Components) *schemaParser {
	return &schemaParser{components: c, visiting: map[*openapi3.Schema]bool{}}
}

func (p *schemaParser) hasComponent(kind ComponentKind, name string) bool {
	c := p.components
	if c == nil {
		return false
	}
	switch kind {
	case KindSchemas:
		_, ok := c.Schemas[name]
		return ok
	case KindParameters:
		_, ok := c.Parameters[name]
		return ok
	case KindHeaders:
		_, ok := c.Headers[name]
		return ok
	case KindRequestBodies:
		_, ok := c.RequestBodies[name]
		return ok
	case KindResponses:
		_, ok := c.Responses[name]
		return ok
	}
	return false
}

// schema converts ref. top is set for the body of a schemas component, where
// the ref itself is the component and must not become a self reference.
func (p *schemaParser) schema(ref *openapi3.SchemaRef, pointer string, top bool) (Node, error) {
	if ref == nil {
		return nil, nil
	}
	if ref.Ref != "" && !(top && isSelfRef(ref.Ref, pointer)) {
		if kind, name, ok := ParseRef(ref.Ref); ok {
			if kind != KindSchemas || !p.hasComponent(kind, name) {
				return nil, unresolvable(pointer, ref.Ref)
			}
			return &Ref{Meta: Meta{Pointer: pointer}, Kind: kind, Name: name}, nil
		}
		if strings.HasPrefix(ref.Ref, "#/") && ref.Value == nil {
			return nil, unresolvable(pointer, ref.Ref)
		}
	}
	if ref.Value == nil {
		return nil, unresolvable(pointer, ref.Ref)
	}
	s := ref.Value
	if p.visiting[s] {
		// An inlined pointer led back into itself; stay unconstrained.
		return &Any{Meta: Meta{Pointer: pointer}}, nil
	}
	p.visiting[s] = true
	defer delete(p.visiting, s)

	meta := Meta{
		Nullable:    s.Nullable,
		Description: safeStr(s.Description),
		Pointer:     pointer,
		Bare:        isBare(s),
	}
	if s.Default != nil {
		meta.Default, meta.HasDefault = s.Default, true
	}
	if s.Example != nil {
		meta.Example, meta.HasExample = s.Example, true
	}
	if s.Type == "null" {
		meta.Nullable = true
	}

	members := func(refs openapi3.SchemaRefs, key string) ([]Node, error) {
		out := make([]Node, 0, len(refs))
		for i, r := range refs {
			n, err := p.schema(r, fmt.Sprintf("%s/%s/%d", pointer, key, i), false)
			if err != nil {
				return nil, err
			}
			if n != nil {
				out = append(out, n)
			}
		}
		return out, nil
	}

	switch {
	case len(s.AllOf) > 0:
		m, err := members(s.AllOf, "allOf")
		if err != nil {
			return nil, err
		}
		return &AllOf{Meta: meta, Members: m}, nil
	case len(s.AnyOf) > 0:
		m, err := members(s.AnyOf, "anyOf")
		if err != nil {
			return nil, err
		}
		return &AnyOf{Meta: meta, Members: m}, nil
	case len(s.OneOf) > 0:
		m, err := members(s.OneOf, "oneOf")
		if err != nil {
			return nil, err
		}
		return &OneOf{Meta: meta, Members: m}, nil
	case s.Not != nil:
		inner, err := p.schema(s.Not, pointer+"/not", false)
		if err != nil {
			return nil, err
		}
		return &Not{Meta: meta, Inner: inner}, nil
	}
	if v, ok := s.Extensions["const"]; ok {
		return &Const{Meta: meta, Value: v}, nil
	}
	if len(s.Enum) > 0 {
		return &Enum{Meta: meta, Values: append([]any(nil), s.Enum...)}, nil
	}

	additional, err := p.additional(s, pointer)
	if err != nil {
		return nil, err
	}
	if len(s.Properties) > 0 {
		required := make(map[string]bool, len(s.Required))
		for _, r := range s.Required {
			required[r] = true
		}
		obj := &Object{Meta: meta, Additional: additional, MinProps: s.MinProps, MaxProps: s.MaxProps}
		for _, name := range sortedKeys(s.Properties) {
			n, err := p.schema(s.Properties[name], pointer+"/properties/"+escapePointer(name), false)
			if err != nil {
				return nil, err
			}
			if n == nil {
				n = &Any{Meta: Meta{Pointer: pointer + "/properties/" + escapePointer(name)}}
			}
			obj.Properties = append(obj.Properties, Property{Name: name, Schema: n, Required: required[name]})
		}
		return obj, nil
	}

	typ := strings.ToLower(safeStr(s.Type))
	if typ == "" {
		switch {
		case s.Items != nil:
			typ = "array"
		case additional.Schema != nil || additional.Forbidden:
			typ = "object"
		}
	}
	if typ == "" {
		return &Any{Meta: meta}, nil
	}
	prim := &Primitive{
		Meta:         meta,
		Type:         typ,
		Format:       safeStr(s.Format),
		Pattern:      s.Pattern,
		MinLength:    s.MinLength,
		MaxLength:    s.MaxLength,
		Minimum:      s.Min,
		Maximum:      s.Max,
		ExclusiveMin: s.ExclusiveMin,
		ExclusiveMax: s.ExclusiveMax,
		MultipleOf:   s.MultipleOf,
		MinItems:     s.MinItems,
		MaxItems:     s.MaxItems,
		UniqueItems:  s.UniqueItems,
		Additional:   additional,
		MinProps:     s.MinProps,
		MaxProps:     s.MaxProps,
	}
	if s.Items != nil {
		items, err := p.schema(s.Items, pointer+"/items", false)
		if err != nil {
			return nil, err
		}
		prim.Items = items
	}
	return prim, nil
}

func (p *schemaParser) additional(s *openapi3.Schema, pointer string) (Additional, error) {
	var a Additional
	if has := s.AdditionalProperties.Has; has != nil && !*has {
		a.Forbidden = true
	}
	if ap := s.AdditionalProperties.Schema; ap != nil {
		n, err := p.schema(ap, pointer+"/additionalProperties", false)
		if err != nil {
			return a, err
		}
		a.Schema = n
	}
	return a, nil
}

func (p *schemaParser) parameter(v *openapi3.Parameter, pointer string) (Parameter, error) {
	param := Parameter{
		Name:        safeStr(v.Name),
		In:          Location(strings.ToLower(safeStr(v.In))),
		Required:    v.Required,
		Description: safeStr(v.Description),
	}
	switch param.In {
	case InPath, InQuery, InHeader, InCookie:
	default:
		return param, &SpecError{Code: MalformedContent, Message: fmt.Sprintf("parameter %q has unsupported location %q", param.Name, v.In), JSONPointer: pointer}
	}
	if param.In == InPath {
		param.Required = true
	}
	switch {
	case v.Schema != nil:
		n, err := p.schema(v.Schema, pointer+"/schema", false)
		if err != nil {
			return param, err
		}
		if v.Example != nil && n != nil && !n.Attrs().HasExample {
			n = withExample(n, v.Example)
		}
		param.Schema = n
	case len(v.Content) > 0:
		content, err := p.content(v.Content, pointer+"/content")
		if err != nil {
			return param, err
		}
		param.Content = content
	default:
		return param, &SpecError{Code: MalformedContent, Message: fmt.Sprintf("parameter %q has neither schema nor content", param.Name), JSONPointer: pointer}
	}
	return param, nil
}

func (p *schemaParser) header(name string, v *openapi3.Header, pointer string) (Header, error) {
	h := Header{Name: name, Required: v.Required}
	switch {
	case v.Schema != nil:
		n, err := p.schema(v.Schema, pointer+"/schema", false)
		if err != nil {
			return h, err
		}
		h.Schema = n
	case len(v.Content) > 0:
		content, err := p.content(v.Content, pointer+"/content")
		if err != nil {
			return h, err
		}
		h.Schema = content[0].Schema
	default:
		h.Schema = &Any{Meta: Meta{Pointer: pointer}}
	}
	return h, nil
}

func (p *schemaParser) body(v *openapi3.RequestBody, pointer string) (*Body, error) {
	if v.Content == nil {
		return nil, &SpecError{Code: MalformedContent, Message: "request body has no content map", JSONPointer: pointer}
	}
	if len(v.Content) == 0 {
		return nil, &SpecError{Code: MalformedContent, Message: "request body content map is empty", JSONPointer: pointer + "/content"}
	}
	content, err := p.content(v.Content, pointer+"/content")
	if err != nil {
		return nil, err
	}
	return &Body{Required: v.Required, Description: safeStr(v.Description), Content: content}, nil
}

func (p *schemaParser) response(status string, v *openapi3.Response, pointer string) (Response, error) {
	r := Response{Status: status}
	if v.Description != nil {
		r.Description = safeStr(*v.Description)
	}
	for _, name := range sortedKeys(v.Headers) {
		href := v.Headers[name]
		hp := pointer + "/headers/" + escapePointer(name)
		if href == nil {
			continue
		}
		if href.Ref != "" {
			if kind, ref, ok := ParseRef(href.Ref); ok && kind == KindHeaders && p.hasComponent(kind, ref) {
				h := Header{Name: name, Ref: ref}
				if href.Value != nil {
					h.Required = href.Value.Required
				}
				r.Headers = append(r.Headers, h)
				continue
			}
		}
		if href.Value == nil {
			return r, unresolvable(hp, href.Ref)
		}
		h, err := p.header(name, href.Value, hp)
		if err != nil {
			return r, err
		}
		r.Headers = append(r.Headers, h)
	}
	// An empty content map means the same as an absent one: no body.
	if len(v.Content) > 0 {
		content, err := p.content(v.Content, pointer+"/content")
		if err != nil {
			return r, err
		}
		r.Content = content
	}
	return r, nil
}

// content converts a content map into media entries sorted by media type.
func (p *schemaParser) content(content openapi3.Content, pointer string) ([]Media, error) {
	if content == nil {
		return nil, &SpecError{Code: MalformedContent, Message: "content map is null", JSONPointer: pointer}
	}
	out := make([]Media, 0, len(content))
	for _, mime := range sortedKeys(content) {
		mt := content[mime]
		mp := pointer + "/" + escapePointer(mime)
		if mt == nil {
			return nil, &SpecError{Code: MalformedContent, Message: fmt.Sprintf("media type %q is null", mime), JSONPointer: mp}
		}
		m := Media{MediaType: mime, Example: mediaExample(mt)}
		if mt.Schema != nil {
			n, err := p.schema(mt.Schema, mp+"/schema", false)
			if err != nil {
				return nil, err
			}
			m.Schema = n
			fp, err := canonicalJSON.Marshal(mt.Schema)
			if err != nil {
				return nil, fmt.Errorf("fingerprint %s: %w", mp, err)
			}
			m.Fingerprint = string(fp)
		}
		out = append(out, m)
	}
	return out, nil
}

func mediaExample(mt *openapi3.MediaType) any {
	if mt.Example != nil {
		return mt.Example
	}
	if len(mt.Examples) == 0 {
		return nil
	}
	// Pick the first example value deterministically by key
	names := sortedKeys(mt.Examples)
	if ref := mt.Examples[names[0]]; ref != nil && ref.Value != nil {
		return ref.Value.Value
	}
	return nil
}

// withExample returns a copy of n carrying ex as its example.
func withExample(n Node, ex any) Node {
	switch v := n.(type) {
	case *Ref:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *AllOf:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *AnyOf:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *OneOf:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *Not:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *Const:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *Enum:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *Object:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *Primitive:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	case *Any:
		c := *v
		c.Example, c.HasExample = ex, true
		return &c
	}
	return n
}

// isBare reports whether s declares nothing besides `type: null` and/or
// `nullable: true`.
func isBare(s *openapi3.Schema) bool {
	if s.Type != "null" && !(s.Type == "" && s.Nullable) {
		return false
	}
	c := *s
	c.Type = ""
	c.Nullable = false
	return c.IsEmpty() && len(c.Extensions) == 0 && len(c.Properties) == 0 &&
		c.Default == nil && c.Example == nil && c.Description == "" && c.Title == "" &&
		c.Not == nil && c.Items == nil && c.AdditionalProperties.Has == nil && c.AdditionalProperties.Schema == nil &&
		len(c.AllOf) == 0 && len(c.AnyOf) == 0 && len(c.OneOf) == 0
}

func isSelfRef(ref, pointer string) bool { return ref == pointer }

func refOf(pref *openapi3.ParameterRef) string {
	if pref == nil {
		return ""
	}
	return pref.Ref
}

func unresolvable(pointer, ref string) error {
	msg := "unresolvable reference"
	if ref != "" {
		msg = fmt.Sprintf("unresolvable reference %q", ref)
	}
	return &SpecError{Code: UnresolvableReference, Message: msg, JSONPointer: pointer}
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func unescapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
