package ts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyAndMember(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "title", Key("title"))
	assert.Equal(t, `"x-rate"`, Key("x-rate"))
	assert.Equal(t, `"2xx"`, Key("2xx"))
	assert.Equal(t, "client.todo", Member("client", "todo"))
	assert.Equal(t, `client[":id"]`, Member("client", ":id"))
	assert.Equal(t, `client["delete"]`, Member("client", "delete"))
	assert.Equal(t, "client.$get", Member("client", "$get"))
}

func TestLiteral(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"a\"b"`, Quote(`a"b`))
	assert.Equal(t, `{"a":1,"b":[true,null]}`, Literal(map[string]any{"b": []any{true, nil}, "a": 1.0}))
	assert.Equal(t, "0.5", Number(0.5))
	assert.Equal(t, "1000000", Number(1e6))
}

func TestObjectRender(t *testing.T) {
	t.Parallel()
	var inner Object
	inner.Add("schema", "PetSchema")
	var o Object
	o.Add("application/json", inner.Render())
	o.AddRaw("200", "true")
	assert.Equal(t, "{\n  \"application/json\": {\n    schema: PetSchema,\n  },\n  200: true,\n}", o.Render())
	assert.Equal(t, `{ "application/json": {`+"\n  schema: PetSchema,\n}"+`, 200: true }`, o.Inline())
	assert.Equal(t, "{}", Object{}.Render())
}

func TestImportsRender(t *testing.T) {
	t.Parallel()
	var im Imports
	im.Add("./rpc", "getTodo", "postTodo")
	im.AddType("hono/client", "ClientRequestOptions")
	im.Add("@hono/zod-openapi", "z", "createRoute")
	im.AddDefault("swr", "useSWR")
	im.AddType("swr", "SWRConfiguration")
	im.Add("./rpc", "getTodo")

	assert.Equal(t, 5, im.Len())
	assert.Equal(t, ""+
		"import { createRoute, z } from \"@hono/zod-openapi\"\n"+
		"import type { ClientRequestOptions } from \"hono/client\"\n"+
		"import useSWR from \"swr\"\n"+
		"import type { SWRConfiguration } from \"swr\"\n"+
		"import { getTodo, postTodo } from \"./rpc\"\n", im.Render())
}

func TestRelImport(t *testing.T) {
	t.Parallel()
	tests := []struct{ from, target, want string }{
		{"index.ts", "schemas/index.ts", "./schemas"},
		{"schemas/TodoSchema.ts", "schemas/UserSchema.ts", "./UserSchema"},
		{"routes/getTodoRoute.ts", "schemas/TodoSchema.ts", "../schemas/TodoSchema"},
		{"app.ts", "index.ts", "./index"},
		{"handlers/todo.ts", "index.ts", "../index"},
		{"tanstack-query.ts", "rpc.ts", "./rpc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelImport(tt.from, tt.target), tt.from+" -> "+tt.target)
	}
}
