// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
        "/sessions": {
            "post": {
                "tags": ["sessions"],
                "summary": "Create a session",
                "description": "Upload a CSV, JSON or XLSX file. Columns are mapped automatically and every feature is computed.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [{"type": "file", "description": "Sales dataset", "name": "file", "in": "formData", "required": true}],
                "responses": {"201": {"description": "Session created"}, "400": {"description": "Invalid upload"}}
            }
        },
        "/sessions/{id}": {
            "get": {"tags": ["sessions"], "summary": "Get session", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Session not found"}}},
            "delete": {"tags": ["sessions"], "summary": "Delete session", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "Deleted"}, "404": {"description": "Session not found"}}}
        },
        "/sessions/{id}/upload": {"post": {"tags": ["sessions"], "summary": "Replace session data", "consumes": ["multipart/form-data"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "file", "name": "file", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/mapping": {"put": {"tags": ["sessions"], "summary": "Override column mapping", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"name": "mapping", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid mapping"}}}},
        "/sessions/{id}/params": {"put": {"tags": ["sessions"], "summary": "Update analysis parameters", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"name": "params", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid parameters"}}}},
        "/sessions/{id}/metrics": {"get": {"tags": ["analytics"], "summary": "Get key metrics", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "422": {"description": "Schema unresolved or no data"}}}},
        "/sessions/{id}/forecast": {"get": {"tags": ["analytics"], "summary": "Get forecast", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "422": {"description": "Insufficient data"}, "504": {"description": "Forecast timed out"}}}},
        "/sessions/{id}/profitability": {"get": {"tags": ["analytics"], "summary": "Get profitability ranking", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/anomalies": {"get": {"tags": ["analytics"], "summary": "Get anomalies", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/analysis": {"get": {"tags": ["analytics"], "summary": "Get full analysis", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/export": {"get": {"tags": ["export"], "summary": "Download a table", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "table", "in": "query"}, {"type": "string", "name": "format", "in": "query"}], "responses": {"200": {"description": "File"}}}},
        "/sessions/{id}/export/files": {"post": {"tags": ["export"], "summary": "Export tables to files", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "table", "in": "query"}, {"type": "string", "name": "format", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/files/{name}": {"get": {"tags": ["export"], "summary": "Download an exported file", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "name", "in": "path", "required": true}], "responses": {"200": {"description": "File"}, "404": {"description": "File not found"}}}},
        "/sessions/{id}/export/db": {
            "post": {"tags": ["export"], "summary": "Export tables to the database", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "table", "in": "query"}], "responses": {"200": {"description": "OK"}, "503": {"description": "Database not configured"}}},
            "get": {"tags": ["export"], "summary": "Read an exported table", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "table", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/runs": {"get": {"tags": ["runs"], "summary": "List runs", "parameters": [{"type": "integer", "name": "limit", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/runs/{id}": {"get": {"tags": ["runs"], "summary": "Get run", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Run not found"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Sales Insights API",
	Description:      "Upload sales data, map its columns and read forecasts, profitability rankings and revenue anomalies.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
