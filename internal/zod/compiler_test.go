package zod

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/honogen/internal/diag"
	"github.com/mark3labs/honogen/internal/naming"
	"github.com/mark3labs/honogen/internal/spec"
)

func newCompiler(t *testing.T, src string, single bool) *Compiler {
	t.Helper()
	raw, err := spec.LoadData(context.Background(), []byte(src))
	require.NoError(t, err)
	doc, err := spec.NewDocument(raw)
	require.NoError(t, err)
	table := NewTable(doc, naming.NewResolver(), TableOptions{SchemaCasing: naming.Pascal, TypeCasing: naming.Pascal, SingleFile: single})
	return NewCompiler(doc, table, &diag.Collector{})
}

// schemasDoc wraps component schemas into a minimal document.
func schemasDoc(schemas string) string {
	return "openapi: 3.0.3\ninfo: {title: T, version: \"1\"}\npaths: {}\ncomponents:\n  schemas:\n" + schemas
}

func TestCompile_StringLengthBounds(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Tweet: {type: string, minLength: 1, maxLength: 140}
    Code: {type: string, minLength: 4, maxLength: 4}
`), true)
	assert.Equal(t, "z.string().min(1).max(140)", c.Schema("Tweet").Code)
	assert.Equal(t, "z.string().length(4)", c.Schema("Code").Code)
}

func TestCompile_EnumWithAndWithoutExample(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Plain: {enum: [placed, approved, delivered]}
    WithExample: {enum: [placed, approved, delivered], example: approved}
`), true)
	plain := c.Schema("Plain").Code
	assert.Equal(t, `z.enum(["placed", "approved", "delivered"])`, plain)

	ex := c.Schema("WithExample").Code
	assert.Equal(t, plain+`.openapi({ example: "approved" })`, ex)
	assert.Equal(t, 1, strings.Count(ex, ".openapi("))
}

func TestCompile_EnumVariants(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    One: {enum: [7]}
    Mixed: {enum: [1, "two", true]}
    WithNull: {enum: [a, b, null]}
`), true)
	assert.Equal(t, "z.literal(7)", c.Schema("One").Code)
	assert.Equal(t, `z.union([z.literal(1), z.literal("two"), z.literal(true)])`, c.Schema("Mixed").Code)
	assert.Equal(t, `z.enum(["a", "b"]).nullable()`, c.Schema("WithNull").Code)
}

func TestCompile_NullableAllOfFlattening(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Str: {type: string}
    RefOrNull:
      allOf:
        - {$ref: '#/components/schemas/Str'}
        - {nullable: true}
    InlineOrNull:
      allOf:
        - {type: "null"}
        - {type: integer, minimum: 1}
    OnlyNull:
      allOf:
        - {nullable: true}
    Both:
      allOf:
        - {$ref: '#/components/schemas/Str'}
        - {type: string, maxLength: 3}
`), false)
	assert.Equal(t, "StrSchema.nullable()", c.Schema("RefOrNull").Code)
	assert.Equal(t, "z.number().int().min(1).nullable()", c.Schema("InlineOrNull").Code)
	assert.NotContains(t, c.Schema("InlineOrNull").Code, "and(")
	assert.Equal(t, "z.any().nullable()", c.Schema("OnlyNull").Code)
	assert.Equal(t, "StrSchema.and(z.string().max(3))", c.Schema("Both").Code)
	assert.True(t, c.Schema("RefOrNull").Nullable)
}

func TestCompile_Unions(t *testing.T) {
	t.Parallel()
	const doc = `
    Pet: {type: object, properties: {name: {type: string}}, required: [name]}
    Either:
      oneOf:
        - {$ref: '#/components/schemas/Pet'}
        - {type: string}
    Single:
      anyOf:
        - {type: boolean}
`
	split := newCompiler(t, schemasDoc(doc), false)
	assert.Equal(t, "z.union([PetSchema, z.string()])", split.Schema("Either").Code)
	assert.Equal(t, "z.boolean()", split.Schema("Single").Code)

	// Pet is declared after Either in a single file.
	single := newCompiler(t, schemasDoc(doc), true)
	assert.Equal(t, "z.union([z.lazy(() => PetSchema), z.string()])", single.Schema("Either").Code)
}

func TestCompile_NotForms(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    NotString: {not: {type: string}}
    NotEnum: {not: {enum: [a, b]}}
    NotArray: {not: {type: array}}
    NotShape: {not: {type: object, properties: {a: {type: string}}}}
`), true)
	assert.Equal(t, "z.any().refine((value) => typeof value !== 'string')", c.Schema("NotString").Code)
	assert.Equal(t, `z.any().refine((value) => !["a","b"].includes(value))`, strings.ReplaceAll(c.Schema("NotEnum").Code, ", ", ","))
	assert.Equal(t, "z.any().refine((value) => !Array.isArray(value))", c.Schema("NotArray").Code)
	assert.Equal(t, "z.any()", c.Schema("NotShape").Code)
	assert.Equal(t, 1, c.Diagnostics().Count(diag.SeverityWarning))
}

func TestCompile_Const(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Kind: {type: string, const: dog, enum: [cat]}
`), true)
	assert.Equal(t, `z.literal("dog")`, c.Schema("Kind").Code)
}

func TestCompile_Objects(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Required:
      type: object
      required: [id]
      properties:
        id: {type: integer}
        note: {type: string}
    AllOptional:
      type: object
      properties:
        a: {type: string}
        b: {type: number}
    Closed:
      type: object
      required: [a]
      additionalProperties: false
      properties:
        a: {type: string}
    Extra:
      type: object
      required: [a]
      additionalProperties: {type: integer}
      properties:
        a: {type: string}
    Map:
      type: object
      additionalProperties: {type: string}
    Bag: {type: object}
    Sized: {type: object, minProperties: 1}
`), true)
	assert.Equal(t, "z.object({\n  id: z.number().int(),\n  note: z.string().optional(),\n})", c.Schema("Required").Code)
	assert.Equal(t, "z.object({\n  a: z.string(),\n  b: z.number(),\n}).partial()", c.Schema("AllOptional").Code)
	assert.Equal(t, "z.object({\n  a: z.string(),\n}).strict()", c.Schema("Closed").Code)
	assert.Equal(t, "z.object({\n  a: z.string(),\n}).catchall(z.number().int())", c.Schema("Extra").Code)
	assert.Equal(t, "z.record(z.string(), z.string())", c.Schema("Map").Code)
	assert.Equal(t, "z.record(z.string(), z.any())", c.Schema("Bag").Code)
	assert.Equal(t, `z.record(z.string(), z.any()).refine((value) => Object.keys(value).length >= 1, { message: "Expected at least 1 properties" })`, c.Schema("Sized").Code)
}

func TestCompile_NumericBounds(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Positive: {type: number, minimum: 0, exclusiveMinimum: true}
    NonNegative: {type: integer, minimum: 0}
    Gt: {type: number, minimum: 1.5, exclusiveMinimum: true}
    Range: {type: number, minimum: 1, maximum: 10, multipleOf: 0.5}
    Negative: {type: number, maximum: 0, exclusiveMaximum: true}
    NonPositive: {type: number, maximum: 0}
    Lt: {type: number, maximum: 100, exclusiveMaximum: true}
`), true)
	tests := map[string]string{
		"Positive":    "z.number().positive()",
		"NonNegative": "z.number().int().nonnegative()",
		"Gt":          "z.number().gt(1.5)",
		"Range":       "z.number().min(1).max(10).multipleOf(0.5)",
		"Negative":    "z.number().negative()",
		"NonPositive": "z.number().nonpositive()",
		"Lt":          "z.number().lt(100)",
	}
	for name, want := range tests {
		assert.Equal(t, want, c.Schema(name).Code, name)
	}
}

func TestCompile_StringFormatsAndPatterns(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Email: {type: string, format: email}
    When: {type: string, format: date-time}
    Addr: {type: string, format: ipv4}
    File: {type: string, format: binary}
    Unknown: {type: string, format: hostname}
    Slug: {type: string, pattern: '^[a-z/]+/x$', maxLength: 10}
`), true)
	assert.Equal(t, "z.string().email()", c.Schema("Email").Code)
	assert.Equal(t, "z.string().datetime()", c.Schema("When").Code)
	assert.Equal(t, `z.string().ip({ version: "v4" })`, c.Schema("Addr").Code)
	assert.Equal(t, "z.instanceof(Blob)", c.Schema("File").Code)
	assert.Equal(t, "z.string()", c.Schema("Unknown").Code)
	assert.Equal(t, `z.string().regex(/^[a-z/]+\/x$/).max(10)`, c.Schema("Slug").Code)
}

func TestCompile_ArraysDefaultsAndNullable(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Tags: {type: array, items: {type: string}, minItems: 1, maxItems: 5, uniqueItems: true}
    Loose: {type: array}
    Limit: {type: integer, default: 20, nullable: true, example: 10}
`), true)
	assert.Equal(t, `z.array(z.string()).min(1).max(5).refine((items) => new Set(items).size === items.length, { message: "Items must be unique" })`, c.Schema("Tags").Code)
	assert.Equal(t, "z.array(z.any())", c.Schema("Loose").Code)

	limit := c.Schema("Limit")
	assert.Equal(t, "z.number().int().nullable().default(20).openapi({ example: 10 })", limit.Code)
	assert.True(t, limit.Nullable)
	assert.True(t, limit.HasDefault)
}

func TestCompile_AnyEmitsInfoDiagnostic(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Whatever: {description: anything}
`), true)
	assert.Equal(t, "z.any()", c.Schema("Whatever").Code)
	items := c.Diagnostics().Items()
	require.Len(t, items, 1)
	assert.Equal(t, diag.SeverityInfo, items[0].Severity)
	assert.Equal(t, "#/components/schemas/Whatever", items[0].Pointer)
}

func TestCompile_CycleSafety(t *testing.T) {
	t.Parallel()
	src := schemasDoc(`
    A:
      type: object
      properties:
        b: {$ref: '#/components/schemas/B'}
    B:
      type: object
      properties:
        a: {$ref: '#/components/schemas/A'}
    Node:
      type: object
      required: [value]
      properties:
        value: {type: string}
        children: {type: array, items: {$ref: '#/components/schemas/Node'}}
    Leaf: {type: string}
`)
	for _, single := range []bool{true, false} {
		c := newCompiler(t, src, single)
		assert.Contains(t, c.Schema("A").Code, "b: z.lazy(() => BSchema)")
		assert.Contains(t, c.Schema("B").Code, "a: z.lazy(() => ASchema)")
		assert.Contains(t, c.Schema("Node").Code, "z.array(z.lazy(() => NodeSchema))")

		a, _ := c.Table().Lookup(DeclKey{Kind: spec.KindSchemas, Name: "A"})
		node, _ := c.Table().Lookup(DeclKey{Kind: spec.KindSchemas, Name: "Node"})
		leaf, _ := c.Table().Lookup(DeclKey{Kind: spec.KindSchemas, Name: "Leaf"})
		assert.True(t, a.Cyclic)
		assert.True(t, node.Cyclic)
		assert.False(t, leaf.Cyclic)
	}
}

func TestCompile_ForwardReferenceLazyOnlyInSingleFile(t *testing.T) {
	t.Parallel()
	src := schemasDoc(`
    Alpha:
      type: object
      required: [id]
      properties:
        id: {type: string}
        z: {$ref: '#/components/schemas/Zeta'}
    Zeta: {type: string}
`)
	single := newCompiler(t, src, true)
	assert.Contains(t, single.Schema("Alpha").Code, "z: z.lazy(() => ZetaSchema).optional()")

	split := newCompiler(t, src, false)
	assert.Contains(t, split.Schema("Alpha").Code, "z: ZetaSchema.optional()")
}

func TestCompile_ReferenceNonDuplication(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, schemasDoc(`
    Pet: {type: object, required: [name], properties: {name: {type: string, minLength: 2}}}
    Owner:
      type: object
      properties:
        pet: {$ref: '#/components/schemas/Pet'}
        pets: {type: array, items: {$ref: '#/components/schemas/Pet'}}
    Shop:
      oneOf:
        - {$ref: '#/components/schemas/Pet'}
        - {$ref: '#/components/schemas/Owner'}
`), false)
	for _, name := range []string{"Owner", "Shop", "Pet", "Pet"} {
		c.Schema(name)
	}
	pet := DeclKey{Kind: spec.KindSchemas, Name: "Pet"}
	assert.Equal(t, 1, c.compiles[pet])
	owner := c.Schema("Owner").Code
	assert.Equal(t, 2, strings.Count(owner, "PetSchema"))
	assert.NotContains(t, owner, "min(2)")
	assert.NotContains(t, c.Schema("Shop").Code, "min(2)")
}

const routeDoc = `openapi: 3.0.3
info: {title: Todo, version: "1"}
paths:
  /todo/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema: {type: string, minLength: 3}
      - name: trace
        in: header
        schema: {type: string}
    get:
      parameters:
        - name: id
          in: path
          required: true
          schema: {type: integer, example: 4}
        - name: limit
          in: query
          schema: {type: integer, maximum: 50}
        - $ref: '#/components/parameters/Flag'
      responses:
        "200":
          description: ok
          headers:
            X-Rate: {$ref: '#/components/headers/X-Rate'}
          content:
            application/json:
              schema: {$ref: '#/components/schemas/Todo'}
        "404":
          $ref: '#/components/responses/NotFound'
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [title]
              properties:
                title: {type: string}
          multipart/form-data:
            schema:
              type: object
              required: [title]
              properties:
                title: {type: string}
          text/plain:
            schema: {type: string}
      responses:
        "201":
          description: created
components:
  schemas:
    Todo: {type: object, required: [title], properties: {title: {type: string}}}
  parameters:
    Flag:
      name: flag
      in: cookie
      schema: {type: boolean}
  headers:
    X-Rate:
      schema: {type: integer}
  responses:
    NotFound:
      description: missing
      content:
        application/json:
          schema: {$ref: '#/components/schemas/Todo'}
`

func manifestOp(t *testing.T, c *Compiler, method spec.HttpMethod) *spec.Operation {
	t.Helper()
	m, err := spec.BuildManifest(c.doc)
	require.NoError(t, err)
	for i := range m.Operations {
		if m.Operations[i].Method == method {
			return &m.Operations[i]
		}
	}
	t.Fatalf("no %s operation", method)
	return nil
}

func TestCompileRequest_ParameterPrecedenceAndGroups(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, routeDoc, true)
	op := manifestOp(t, c, spec.GET)
	uses := Uses{}
	shape := c.CompileRequest(op, RouteScope{Names: naming.NewResolver(), Base: "getTodoId", Uses: uses})

	require.Len(t, shape.Params, 4)
	keys := []string{shape.Params[0].Key, shape.Params[1].Key, shape.Params[2].Key, shape.Params[3].Key}
	assert.Equal(t, []string{"params", "query", "headers", "cookies"}, keys)

	path := shape.Params[0].Expr.Code
	assert.Equal(t, "z.object({\n  id: z.coerce.number().int().openapi({ param: { name: \"id\", in: \"path\" }, example: 4 }),\n})", path)
	assert.NotContains(t, path, "min(3)")

	assert.Contains(t, shape.Params[1].Expr.Code, `limit: z.coerce.number().int().max(50).openapi({ param: { name: "limit", in: "query" } }).optional()`)
	assert.Contains(t, shape.Params[2].Expr.Code, `trace: z.string().openapi({ param: { name: "trace", in: "header" } }).optional()`)
	assert.Contains(t, shape.Params[3].Expr.Code, "flag: FlagParamsSchema.optional()")

	require.Len(t, shape.Responses, 2)
	assert.Equal(t, "TodoSchema", shape.Responses[0].Content[0].Schema.Code)
	require.Len(t, shape.Responses[0].Headers, 1)
	assert.Equal(t, "XRateHeaderSchema.optional()", shape.Responses[0].Headers[0].Expr.Code)
	assert.Equal(t, "NotFoundResponse", shape.Responses[1].Ref)

	assert.Contains(t, uses, DeclKey{Kind: spec.KindSchemas, Name: "Todo"})
	assert.Contains(t, uses, DeclKey{Kind: spec.KindParameters, Name: "Flag"})
	assert.Contains(t, uses, DeclKey{Kind: spec.KindHeaders, Name: "X-Rate"})
	assert.Contains(t, uses, DeclKey{Kind: spec.KindResponses, Name: "NotFound"})
}

func TestCompileRequest_SharedContentCompilesOnce(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, routeDoc, true)
	op := manifestOp(t, c, spec.POST)
	shape := c.CompileRequest(op, RouteScope{Names: naming.NewResolver(), Base: "postTodoId"})

	require.NotNil(t, shape.Body)
	assert.True(t, shape.Body.Required)
	require.Len(t, shape.Locals, 1)
	assert.Equal(t, "postTodoIdBody", shape.Locals[0].Name)
	assert.Equal(t, "z.object({\n  title: z.string(),\n})", shape.Locals[0].Expr.Code)

	require.Len(t, shape.Body.Content, 3)
	assert.Equal(t, "postTodoIdBody", shape.Body.Content[0].Schema.Code)
	assert.Equal(t, "postTodoIdBody", shape.Body.Content[1].Schema.Code)
	assert.Equal(t, "z.string()", shape.Body.Content[2].Schema.Code)

	// path-level parameters apply when the operation does not shadow them
	require.NotEmpty(t, shape.Params)
	assert.Contains(t, shape.Params[0].Expr.Code, "z.string().min(3)")
}

func TestComponents_ParameterHeaderBodyResponse(t *testing.T) {
	t.Parallel()
	c := newCompiler(t, routeDoc, true)
	assert.Equal(t, `z.boolean().openapi({ param: { name: "flag", in: "cookie" } })`, c.Parameter("Flag").Code)
	assert.Equal(t, "z.coerce.number().int()", c.Header("X-Rate").Code)

	nf := c.Response("NotFound")
	assert.Equal(t, "missing", nf.Description)
	require.Len(t, nf.Content, 1)
	assert.Equal(t, "TodoSchema", nf.Content[0].Schema.Code)
}
