package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Arsip BIAK API",
        "description": "Institutional archive catalog and BIAK letter tracker",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and session management"},
        {"name": "Archives", "description": "Archive catalog with placement taxonomy"},
        {"name": "Placement", "description": "Categories, subcategories and positions"},
        {"name": "StaticFields", "description": "Six-level physical storage hierarchy"},
        {"name": "Letters", "description": "BIAK letter tracker with status history and rekap"},
        {"name": "Education", "description": "Education levels, faculties and study programs"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/archives": {
            "get": {
                "tags": ["Archives"],
                "summary": "List archives",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "category_id", "in": "query", "type": "integer"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "subcategory_id", "in": "query", "type": "integer"},
                    {"name": "position_id", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Archives"],
                "summary": "Create archive",
                "consumes": ["multipart/form-data"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "title", "in": "formData", "required": true, "type": "string"},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "category_id", "in": "formData", "type": "integer"},
                    {"name": "category", "in": "formData", "type": "string"},
                    {"name": "subcategory_id", "in": "formData", "type": "integer"},
                    {"name": "subcategory", "in": "formData", "type": "string"},
                    {"name": "position_id", "in": "formData", "type": "integer"},
                    {"name": "date", "in": "formData", "type": "string"},
                    {"name": "location", "in": "formData", "type": "string"},
                    {"name": "image", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/archives/{id}": {
            "get": {
                "tags": ["Archives"],
                "summary": "Get archive detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Archives"],
                "summary": "Update archive",
                "consumes": ["multipart/form-data"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Archives"],
                "summary": "Delete archive",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/static-fields/{level}": {
            "get": {
                "tags": ["StaticFields"],
                "summary": "List nodes at a level",
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string"},
                    {"name": "parent_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown level"}
                }
            },
            "post": {
                "tags": ["StaticFields"],
                "summary": "Create node",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/HierarchyNodeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/letters": {
            "get": {
                "tags": ["Letters"],
                "summary": "List letters",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "letter_type", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "start_date", "in": "query", "type": "string"},
                    {"name": "end_date", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Letters"],
                "summary": "Create letter",
                "consumes": ["multipart/form-data"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "name", "in": "formData", "required": true, "type": "string"},
                    {"name": "date", "in": "formData", "required": true, "type": "string"},
                    {"name": "sender", "in": "formData", "required": true, "type": "string"},
                    {"name": "recipient", "in": "formData", "required": true, "type": "string"},
                    {"name": "subject", "in": "formData", "required": true, "type": "string"},
                    {"name": "letter_type", "in": "formData", "required": true, "type": "string"},
                    {"name": "status", "in": "formData", "type": "string"},
                    {"name": "details", "in": "formData", "type": "string"},
                    {"name": "file", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/letters/{id}/status": {
            "put": {
                "tags": ["Letters"],
                "summary": "Append letter status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateLetterStatusRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/letters/{id}/history": {
            "get": {
                "tags": ["Letters"],
                "summary": "Letter status history",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/letters/rekap/summary": {
            "get": {
                "tags": ["Letters"],
                "summary": "Aggregate letter counts per period",
                "parameters": [
                    {"name": "start_date", "in": "query", "required": true, "type": "string"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string"},
                    {"name": "group_by", "in": "query", "type": "string", "enum": ["day", "week", "month"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/letters/rekap/export": {
            "get": {
                "tags": ["Letters"],
                "summary": "Export aggregate as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "start_date", "in": "query", "required": true, "type": "string"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string"},
                    {"name": "group_by", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "HierarchyNodeRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "parent_id": {"type": "integer"}
            }
        },
        "UpdateLetterStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"},
                "note": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
