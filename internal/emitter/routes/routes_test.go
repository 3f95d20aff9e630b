package routes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/emitter/emittertest"
	"github.com/mark3labs/honogen/internal/spec"
)

func TestEmit_HandlerFiles(t *testing.T) {
	t.Parallel()
	u := emittertest.Unit(t, emittertest.TodoDoc, emitter.DefaultOptions())
	files, err := Emit(context.Background(), u)
	require.NoError(t, err)

	assert.Equal(t, []string{"app.ts", "handlers/index.ts", "handlers/root.ts", "handlers/todo.ts"}, files.Paths())

	todo := string(files["handlers/todo.ts"])
	assert.Contains(t, todo, `import type { RouteHandler } from "@hono/zod-openapi"`)
	assert.Contains(t, todo, `import type { getTodoRoute, headTodoIdRoute, postTodoRoute, putTodoIdRoute } from "../index"`)
	assert.Contains(t, todo, "export const getTodoRouteHandler: RouteHandler<typeof getTodoRoute> = async (c) => {}\n")
	assert.Contains(t, todo, "export const putTodoIdRouteHandler: RouteHandler<typeof putTodoIdRoute> = async (c) => {}\n")

	assert.Equal(t, emitter.Header+"export * from \"./root\"\nexport * from \"./todo\"\n", string(files["handlers/index.ts"]))
}

func TestEmit_AppRegistersEveryRoute(t *testing.T) {
	t.Parallel()
	u := emittertest.Unit(t, emittertest.TodoDoc, emitter.DefaultOptions())
	files, err := Emit(context.Background(), u)
	require.NoError(t, err)

	app := string(files["app.ts"])
	assert.Contains(t, app, `import { OpenAPIHono } from "@hono/zod-openapi"`)
	assert.Contains(t, app, `import { getIndexRouteHandler, getTodoRouteHandler, headTodoIdRouteHandler, postTodoRouteHandler, putTodoIdRouteHandler } from "./handlers"`)
	assert.Contains(t, app, `from "./index"`)
	assert.Contains(t, app, "export const routes = app\n"+
		"  .openapi(getIndexRoute, getIndexRouteHandler)\n"+
		"  .openapi(getTodoRoute, getTodoRouteHandler)\n"+
		"  .openapi(postTodoRoute, postTodoRouteHandler)\n"+
		"  .openapi(putTodoIdRoute, putTodoIdRouteHandler)\n"+
		"  .openapi(headTodoIdRoute, headTodoIdRouteHandler)\n")
	assert.Contains(t, app, "export type AppType = typeof routes")
}

func TestEmit_TestStubsAndRoutesImport(t *testing.T) {
	t.Parallel()
	opts := emitter.DefaultOptions()
	opts.TestStubs = true
	opts.RoutesImport = "@acme/api"
	u := emittertest.Unit(t, emittertest.TodoDoc, opts)
	files, err := Emit(context.Background(), u)
	require.NoError(t, err)

	stub := string(files["handlers/todo.test.ts"])
	assert.Contains(t, stub, `import { describe, it } from "vitest"`)
	assert.Contains(t, stub, `it.todo("postTodoRouteHandler")`)
	assert.Contains(t, string(files["handlers/todo.ts"]), `from "@acme/api"`)
}

func TestEmit_NoOperations(t *testing.T) {
	t.Parallel()
	u := emittertest.Unit(t, "openapi: 3.0.3\ninfo: {title: T, version: \"1\"}\npaths: {}\ncomponents:\n  schemas:\n    A: {type: string}\n", emitter.DefaultOptions())
	_, err := Emit(context.Background(), u)
	assert.True(t, spec.IsCode(err, spec.MissingInput))
}

func TestDeclare_SecurityOptOut(t *testing.T) {
	t.Parallel()
	src := `openapi: 3.0.3
info: {title: T, version: "1"}
security: [{apiKey: []}]
paths:
  /health:
    get:
      security: []
      responses:
        "200": {description: ok}
  /me:
    get:
      responses:
        "200": {description: ok}
`
	u := emittertest.Unit(t, src, emitter.DefaultOptions())
	require.Len(t, u.Routes, 2)
	health := Declare(u, u.Routes[0], u.Names.Fork())
	me := Declare(u, u.Routes[1], u.Names.Fork())
	assert.Contains(t, health.Code, "security: [],")
	assert.Contains(t, me.Code, "security: [{ apiKey: [] }],")
}

func TestRoute_Segment(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"/":                 "root",
		"/index/{id}":       "indexRoutes",
		"/todo":             "todo",
		"/{id}/items":       "id",
		"/user-profiles/me": "userProfiles",
	}
	for path, want := range tests {
		r := emitter.Route{Op: &spec.Operation{Path: path}}
		assert.Equal(t, want, r.Segment(), path)
	}
}
