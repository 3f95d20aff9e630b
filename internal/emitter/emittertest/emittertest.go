// Package emittertest builds compiled units from inline documents for
// emitter tests.
package emittertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mark3labs/honogen/internal/diag"
	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/spec"
)

// TodoDoc covers components of every kind, a cycle, path-level
// parameters, a shared body schema and a HEAD operation.
const TodoDoc = `openapi: 3.0.3
info: {title: Todo, version: "1.0.0"}
paths:
  /:
    get:
      responses:
        "200": {description: ok}
  /todo:
    get:
      tags: [todo]
      operationId: listTodos
      summary: List todos
      parameters:
        - $ref: '#/components/parameters/Limit'
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: {type: array, items: {$ref: '#/components/schemas/Todo'}}
    post:
      tags: [todo]
      security: [{bearer: []}]
      requestBody: {$ref: '#/components/requestBodies/NewTodo'}
      responses:
        "201":
          description: created
          headers:
            X-Rate: {$ref: '#/components/headers/X-Rate'}
        default: {$ref: '#/components/responses/Error'}
  /todo/{id}:
    parameters:
      - {name: id, in: path, required: true, schema: {type: integer}}
    put:
      deprecated: true
      requestBody:
        content:
          application/json:
            schema: {type: object, required: [title], properties: {title: {type: string}}}
          application/x-www-form-urlencoded:
            schema: {type: object, required: [title], properties: {title: {type: string}}}
      responses:
        "204": {description: updated}
    head:
      responses:
        "200": {description: exists}
components:
  schemas:
    Todo:
      type: object
      required: [title]
      properties:
        title: {type: string}
        children: {type: array, items: {$ref: '#/components/schemas/Todo'}}
        owner: {$ref: '#/components/schemas/User'}
    User: {type: object, required: [name], properties: {name: {type: string}}}
  parameters:
    Limit: {name: limit, in: query, schema: {type: integer}}
  headers:
    X-Rate: {schema: {type: integer}}
  requestBodies:
    NewTodo:
      required: true
      content:
        application/json:
          schema: {$ref: '#/components/schemas/Todo'}
  responses:
    Error:
      description: failure
      content:
        application/json:
          schema: {type: object, required: [message], properties: {message: {type: string}}}
`

// Unit loads src and compiles it with opts.
func Unit(t *testing.T, src string, opts emitter.Options) *emitter.Unit {
	t.Helper()
	raw, err := spec.LoadData(context.Background(), []byte(src))
	require.NoError(t, err)
	doc, err := spec.NewDocument(raw)
	require.NoError(t, err)
	manifest, err := spec.BuildManifest(doc)
	require.NoError(t, err)
	return emitter.NewUnit(doc, manifest, opts, &diag.Collector{})
}
