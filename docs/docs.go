// Package docs registra la especificación OpenAPI servida en /swagger.
// Regenerar con: swag init -g cmd/api/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {"description": "{{escape .Description}}", "title": "{{.Title}}", "contact": {}, "version": "{{.Version}}"},
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "consumes": ["application/json"],
    "produces": ["application/json"],
    "paths": {
        "/access/test": {"post": {"tags": ["access"], "summary": "Probar acceso de un usuario a una entidad", "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}, "404": {"description": "not found"}}}},
        "/audit": {"get": {"tags": ["audit"], "summary": "Audit trail de una entidad", "parameters": [
            {"type": "string", "name": "entity_type", "in": "query", "required": true},
            {"type": "string", "name": "entity_id", "in": "query", "required": true},
            {"type": "integer", "name": "limit", "in": "query"}
        ], "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}}}},
        "/entities/{entityType}": {"post": {"tags": ["entities"], "summary": "Crear entidad", "parameters": [{"$ref": "#/parameters/entityType"}], "responses": {"201": {"description": "Created"}, "400": {"description": "invalid input"}}}},
        "/entities/{entityType}/{entityID}": {"get": {"tags": ["entities"], "summary": "Ver entidad", "parameters": [{"$ref": "#/parameters/entityType"}, {"$ref": "#/parameters/entityID"}], "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}, "404": {"description": "not found"}}}},
        "/entities/lead/{entityID}/release": {"post": {"tags": ["entities"], "summary": "Liberar lead a health coaches", "parameters": [{"$ref": "#/parameters/entityID"}], "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}, "409": {"description": "not releasable"}}}},
        "/pool/available": {"get": {"tags": ["pool"], "summary": "Listar registros reclamables para el caller", "responses": {"200": {"description": "OK"}}}},
        "/pool/{entityType}/{entityID}/claim": {"post": {"tags": ["pool"], "summary": "Reclamar un registro del pool", "parameters": [{"$ref": "#/parameters/entityType"}, {"$ref": "#/parameters/entityID"}], "responses": {"200": {"description": "OK"}, "403": {"description": "not eligible"}, "404": {"description": "not found"}, "409": {"description": "already claimed"}}}},
        "/rules": {
            "get": {"tags": ["rules"], "summary": "Listar reglas", "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}}},
            "post": {"tags": ["rules"], "summary": "Crear regla", "responses": {"201": {"description": "Created"}, "400": {"description": "validation error"}}}
        },
        "/rules/fields": {"get": {"tags": ["rules"], "summary": "Campos y operadores por subject type", "responses": {"200": {"description": "OK"}}}},
        "/rules/{ruleID}": {
            "get": {"tags": ["rules"], "summary": "Ver regla", "parameters": [{"$ref": "#/parameters/ruleID"}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}},
            "patch": {"tags": ["rules"], "summary": "Actualizar regla", "parameters": [{"$ref": "#/parameters/ruleID"}], "responses": {"200": {"description": "OK"}, "400": {"description": "validation error"}}},
            "delete": {"tags": ["rules"], "summary": "Borrar o desactivar regla", "parameters": [{"$ref": "#/parameters/ruleID"}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}}
        },
        "/users": {
            "get": {"tags": ["users"], "summary": "Listar usuarios", "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}}},
            "post": {"tags": ["users"], "summary": "Crear usuario", "responses": {"201": {"description": "Created"}, "400": {"description": "invalid input"}}}
        },
        "/users/{userID}": {"get": {"tags": ["users"], "summary": "Ver usuario", "parameters": [{"type": "string", "name": "userID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}}}
    },
    "parameters": {
        "entityType": {"type": "string", "name": "entityType", "in": "path", "required": true},
        "entityID": {"type": "string", "name": "entityID", "in": "path", "required": true},
        "ruleID": {"type": "string", "name": "ruleID", "in": "path", "required": true}
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
	Title:            "CRM Access Engine API",
	Description:      "Acceso a entidades del CRM, reglas dinámicas y claim del pool.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
