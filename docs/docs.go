// Package docs registers the OpenAPI description served at /swagger.
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
        "/health": {
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/auth/sign-up": {
            "post": {"tags": ["auth"], "summary": "Register an operator", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/auth/sign-in": {
            "post": {"tags": ["auth"], "summary": "Sign in and get a bearer token", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentials"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/printer/state": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["printer"], "summary": "Get printer state", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PrinterState"}}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/v1/logs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["logs"], "summary": "List logs", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "string", "name": "type", "in": "query", "description": "Comma-separated event types: HEARTBEAT_OK, HEARTBEAT_FAILED, PRINTED, PRINT_FAILED, RECOVERED, FATAL, REJECTED"},
                    {"type": "string", "name": "job_id", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/jobs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["jobs"], "summary": "List archived jobs", "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "count, jobs"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/jobs/{id}/reprint": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["jobs"], "summary": "Reprint an archived job", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"202": {"description": "Accepted"}, "404": {"description": "Not Found"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/canvas/draw": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["canvas"], "summary": "Draw on the canvas", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.DrawRequest"}}],
                "responses": {"202": {"description": "Accepted"}, "400": {"description": "Bad Request"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/canvas/flush": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["canvas"], "summary": "Flush the canvas to the printer now", "produces": ["application/json"],
                "responses": {"202": {"description": "Accepted"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/canvas/preview.png": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["canvas"], "summary": "Preview the canvas", "produces": ["image/png"],
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        }
    },
    "definitions": {
        "credentials": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.DrawRequest": {
            "type": "object",
            "properties": {"text": {"type": "string", "example": "logo 10,10,2"}}
        },
        "models.PrinterState": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "session": {"type": "string"},
                "last_heartbeat": {"type": "string"},
                "consecutive_failures": {"type": "integer"},
                "jobs_printed": {"type": "integer"},
                "queued_jobs": {"type": "integer"},
                "fatal": {"type": "boolean"},
                "last_error": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "labelcast API",
	Description:      "Operator API for the chat-driven label printer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
