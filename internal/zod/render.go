package zod

import (
	"strings"

	"github.com/mark3labs/honogen/internal/emitter/ts"
)

// Everything that spells out Zod syntax lives in this file.

func zAny() Expr     { return raw("z.any()") }
func zNull() Expr    { return raw("z.null()") }
func zBoolean() Expr { return raw("z.boolean()") }
func zBlob() Expr    { return raw("z.instanceof(Blob)") }

func zString() Expr { return raw("z.string()") }

func zNumber(coerce bool) Expr {
	if coerce {
		return raw("z.coerce.number()")
	}
	return raw("z.number()")
}

func zDate(coerce bool) Expr {
	if coerce {
		return raw("z.coerce.date()")
	}
	return raw("z.date()")
}

func zLazy(name string) Expr {
	e := raw("z.lazy(() => " + name + ")")
	e.Name = name
	return e
}

// zLiteral renders a primitive constant. ok is false for objects and arrays.
func zLiteral(v any) (Expr, bool) {
	switch v.(type) {
	case nil:
		return zNull(), true
	case string, bool, float64, float32, int, int64, uint64:
		return raw("z.literal(" + ts.Literal(v) + ")"), true
	}
	return Expr{}, false
}

func zEnum(values []string) Expr {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = ts.Quote(v)
	}
	return raw("z.enum([" + strings.Join(quoted, ", ") + "])")
}

func zUnion(members []Expr) Expr {
	return raw("z.union([" + joinCodes(members, ", ") + "])")
}

// zIntersect chains .and() so that the first member keeps its methods.
func zIntersect(members []Expr) Expr {
	out := members[0]
	for _, m := range members[1:] {
		out = out.Call("and", m.Code)
	}
	return out
}

func zArray(items Expr) Expr { return raw("z.array(" + items.Code + ")") }

func zRecord(values Expr) Expr { return raw("z.record(z.string(), " + values.Code + ")") }

// zObject renders z.object({...}) with one property per line.
func zObject(fields []field) Expr {
	var obj ts.Object
	for _, f := range fields {
		obj.Add(f.name, f.expr.Code)
	}
	return raw("z.object(" + obj.Render() + ")")
}

type field struct {
	name string
	expr Expr
}

// refine chains a predicate with an optional message.
func refine(e Expr, predicate, message string) Expr {
	if message == "" {
		return e.Call("refine", predicate)
	}
	return e.Call("refine", predicate, "{ message: "+ts.Quote(message)+" }")
}

func notTypePredicate(typ string) (string, bool) {
	switch typ {
	case "string", "boolean", "number":
		return "(value) => typeof value !== '" + typ + "'", true
	case "integer":
		return "(value) => !Number.isInteger(value)", true
	case "array":
		return "(value) => !Array.isArray(value)", true
	case "object":
		return "(value) => typeof value !== 'object' || value === null || Array.isArray(value)", true
	case "null":
		return "(value) => value !== null", true
	}
	return "", false
}

func notInPredicate(values []any) string {
	lits := make([]string, len(values))
	for i, v := range values {
		lits[i] = ts.Literal(v)
	}
	return "(value) => ![" + strings.Join(lits, ", ") + "].includes(value)"
}

// openapiMeta renders the single .openapi({...}) metadata call.
func openapiMeta(param *Param, example any, hasExample bool) string {
	var obj ts.Object
	if param != nil {
		var p ts.Object
		p.Add("name", ts.Quote(param.Name))
		p.Add("in", ts.Quote(string(param.In)))
		obj.Add("param", p.Inline())
	}
	if hasExample {
		obj.Add("example", ts.Literal(example))
	}
	return obj.Inline()
}

// regexLiteral renders a JSON Schema pattern as a JavaScript regex literal.
func regexLiteral(pattern string) string {
	var b strings.Builder
	b.WriteByte('/')
	escaped := false
	inClass := false
	for _, r := range pattern {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '[':
			inClass = true
		case r == ']':
			inClass = false
		case r == '/' && !inClass:
			b.WriteByte('\\')
		case r == '\n':
			b.WriteString(`\n`)
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('/')
	return b.String()
}

func joinCodes(es []Expr, sep string) string {
	codes := make([]string, len(es))
	for i, e := range es {
		codes[i] = e.Code
	}
	return strings.Join(codes, sep)
}
