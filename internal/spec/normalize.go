package spec

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// BuildOption configures how the Manifest is built from a Document.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
	err         error
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.includeTags = addTags(c.includeTags, tags)
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.excludeTags = addTags(c.excludeTags, tags)
	}
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			if c.methods == nil {
				c.methods = make(map[HttpMethod]struct{}, len(methods))
			}
			c.methods[HttpMethod(strings.ToLower(string(m)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only operations whose path matches at least one of
// the provided regular expressions. An invalid pattern fails the build.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				if c.err == nil {
					c.err = &SpecError{Code: InputError, Message: fmt.Sprintf("invalid path pattern %q: %v", p, err), Cause: err}
				}
				continue
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

func (c *buildConfig) allowPath(path string) bool {
	if len(c.pathRes) == 0 {
		return true
	}
	for _, re := range c.pathRes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func (c *buildConfig) allowMethod(m HttpMethod) bool {
	if len(c.methods) == 0 {
		return true
	}
	_, ok := c.methods[m]
	return ok
}

// BuildManifest walks every path (sorted) and method (fixed order) of doc and
// normalizes each operation: parameters are merged by (in, name) with the
// operation-level entry replacing the path-level one, grouped by location and
// sorted by name; request bodies and responses become media lists.
func BuildManifest(doc *Document, opts ...BuildOption) (*Manifest, error) {
	if doc == nil || doc.raw == nil {
		return nil, &SpecError{Code: MalformedContent, Message: "spec: nil document"}
	}
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	m := &Manifest{Title: doc.Title, Version: doc.Version}
	raw := doc.raw
	b := &manifestBuilder{doc: doc, parser: newSchemaParser(raw.Components)}

	for _, path := range sortedKeys(raw.Paths) {
		item := raw.Paths[path]
		if item == nil || !cfg.allowPath(path) {
			continue
		}
		pathPointer := "#/paths/" + escapePointer(path)

		base, err := b.parameters(item.Parameters, pathPointer+"/parameters")
		if err != nil {
			return nil, err
		}

		ops := []struct {
			m HttpMethod
			o *openapi3.Operation
		}{
			{GET, item.Get},
			{PUT, item.Put},
			{POST, item.Post},
			{DELETE, item.Delete},
			{OPTIONS, item.Options},
			{HEAD, item.Head},
			{PATCH, item.Patch},
			{TRACE, item.Trace},
		}
		for _, pair := range ops {
			if pair.o == nil || !cfg.allowMethod(pair.m) {
				continue
			}
			tags := make([]string, 0, len(pair.o.Tags))
			for _, t := range pair.o.Tags {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
			if !allowByTags(tags, cfg) {
				continue
			}
			op, err := b.operation(raw, path, pair.m, pair.o, base, pathPointer+"/"+string(pair.m))
			if err != nil {
				return nil, err
			}
			op.Tags = tags
			m.Operations = append(m.Operations, op)
		}
	}
	return m, nil
}

// Tags returns the sorted set of tags used by the manifest's operations.
func (m *Manifest) Tags() []string {
	set := map[string]struct{}{}
	for _, op := range m.Operations {
		for _, t := range op.Tags {
			set[t] = struct{}{}
		}
	}
	return sortedKeys(set)
}

type manifestBuilder struct {
	doc    *Document
	parser *schemaParser
}

func (b *manifestBuilder) operation(raw *openapi3.T, path string, method HttpMethod, o *openapi3.Operation, base []Parameter, pointer string) (Operation, error) {
	op := Operation{
		Method:      method,
		Path:        path,
		OperationID: safeStr(o.OperationID),
		Summary:     safeStr(o.Summary),
		Description: safeStr(o.Description),
		Deprecated:  o.Deprecated,
	}

	own, err := b.parameters(o.Parameters, pointer+"/parameters")
	if err != nil {
		return op, err
	}
	op.Params = mergeParameters(base, own)

	if o.RequestBody != nil {
		body, err := b.requestBody(o.RequestBody, pointer+"/requestBody")
		if err != nil {
			return op, err
		}
		op.Body = body
	}

	for _, status := range sortedKeys(o.Responses) {
		rref := o.Responses[status]
		if rref == nil {
			continue
		}
		r, err := b.response(status, rref, pointer+"/responses/"+escapePointer(status))
		if err != nil {
			return op, err
		}
		op.Responses = append(op.Responses, r)
	}

	security := o.Security
	if security == nil {
		security = &raw.Security
	} else if len(*security) == 0 {
		// An explicit empty list opts the operation out of global security.
		op.Security = []map[string][]string{}
	}
	for _, req := range *security {
		entry := make(map[string][]string, len(req))
		for name, scopes := range req {
			entry[name] = append([]string{}, scopes...)
		}
		op.Security = append(op.Security, entry)
	}
	return op, nil
}

func (b *manifestBuilder) parameters(refs openapi3.Parameters, pointer string) ([]Parameter, error) {
	out := make([]Parameter, 0, len(refs))
	for i, pref := range refs {
		pp := fmt.Sprintf("%s/%d", pointer, i)
		if pref == nil {
			continue
		}
		if pref.Ref != "" {
			if kind, name, ok := ParseRef(pref.Ref); ok {
				c, found := b.doc.Parameters[name]
				if kind != KindParameters || !found {
					return nil, unresolvable(pp, pref.Ref)
				}
				c.Ref = name
				out = append(out, c)
				continue
			}
		}
		if pref.Value == nil {
			return nil, unresolvable(pp, pref.Ref)
		}
		p, err := b.parser.parameter(pref.Value, pp)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// mergeParameters layers own over base by (in, name). A replaced entry is
// dropped whole; nothing of it survives in the result.
func mergeParameters(base, own []Parameter) map[Location][]Parameter {
	merged := make(map[string]Parameter, len(base)+len(own))
	for _, p := range base {
		merged[p.Key()] = p
	}
	for _, p := range own {
		merged[p.Key()] = p
	}
	grouped := make(map[Location][]Parameter)
	for _, p := range merged {
		grouped[p.In] = append(grouped[p.In], p)
	}
	for loc := range grouped {
		ps := grouped[loc]
		sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	}
	return grouped
}

func (b *manifestBuilder) requestBody(ref *openapi3.RequestBodyRef, pointer string) (*Body, error) {
	if ref.Ref != "" {
		if kind, name, ok := ParseRef(ref.Ref); ok {
			c, found := b.doc.RequestBodies[name]
			if kind != KindRequestBodies || !found {
				return nil, unresolvable(pointer, ref.Ref)
			}
			c.Ref = name
			return &c, nil
		}
	}
	if ref.Value == nil {
		return nil, unresolvable(pointer, ref.Ref)
	}
	return b.parser.body(ref.Value, pointer)
}

func (b *manifestBuilder) response(status string, ref *openapi3.ResponseRef, pointer string) (Response, error) {
	if ref.Ref != "" {
		if kind, name, ok := ParseRef(ref.Ref); ok {
			c, found := b.doc.Responses[name]
			if kind != KindResponses || !found {
				return Response{}, unresolvable(pointer, ref.Ref)
			}
			c.Status = status
			c.Ref = name
			return c, nil
		}
	}
	if ref.Value == nil {
		return Response{}, unresolvable(pointer, ref.Ref)
	}
	return b.parser.response(status, ref.Value, pointer)
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, hit := cfg.includeTags[t]; hit {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, hit := cfg.excludeTags[t]; hit {
			return false
		}
	}
	return true
}
