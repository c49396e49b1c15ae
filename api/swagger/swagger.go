package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Engagement API",
        "description": "Course engagement analytics over the activity event log",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Courses", "description": "Course structure lookups"},
        {"name": "Reports", "description": "Engagement reports and participant search"}
    ],
    "paths": {
        "/courses/{courseId}/activities": {
            "get": {
                "tags": ["Courses"],
                "summary": "List course activities",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/reports/activity": {
            "post": {
                "tags": ["Reports"],
                "summary": "Activity engagement report",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown activity, class or section"},
                    "422": {"description": "Selected users or groups contain no members"}
                }
            }
        },
        "/courses/{courseId}/reports/timeline": {
            "post": {
                "tags": ["Reports"],
                "summary": "Time-binned engagement report",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TimelineRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/reports/participants": {
            "post": {
                "tags": ["Reports"],
                "summary": "Search participants by criteria",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SearchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/reports/cache": {
            "delete": {
                "tags": ["Reports"],
                "summary": "Drop cached report snapshots for a course",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "DateRange": {
            "type": "object",
            "properties": {
                "from": {"type": "string", "example": "2015-03-01 00:00"},
                "to": {"type": "string", "example": "2015-03-08 00:00"}
            },
            "required": ["from", "to"]
        },
        "Criterion": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["grade", "action"]},
                "operand": {"type": "object"},
                "operator": {"type": "string", "enum": ["lt", "eq", "gt"]},
                "value": {"type": "string"}
            },
            "required": ["type", "operand", "operator", "value"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "activities": {"type": "array", "items": {"type": "string"}},
                "students": {"type": "array", "items": {"type": "string"}},
                "grade": {"$ref": "#/definitions/Criterion"},
                "date": {"$ref": "#/definitions/DateRange"},
                "actions": {"type": "array", "items": {"type": "string"}},
                "unique": {"type": "boolean"},
                "average": {"type": "string", "enum": ["all", "top15", "bottom15"]}
            }
        },
        "TimelineRequest": {
            "type": "object",
            "properties": {
                "activities": {"type": "array", "items": {"type": "string"}},
                "students": {"type": "array", "items": {"type": "string"}},
                "date": {"$ref": "#/definitions/DateRange"},
                "actions": {"type": "array", "items": {"type": "string"}},
                "unique": {"type": "boolean"},
                "bins": {"type": "integer"}
            },
            "required": ["date", "bins"]
        },
        "SearchRequest": {
            "type": "object",
            "properties": {
                "students": {"type": "array", "items": {"type": "string"}},
                "criteria": {"type": "array", "items": {"$ref": "#/definitions/Criterion"}}
            },
            "required": ["criteria"]
        },
        "ResultEntry": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "type": {"type": "string"},
                "values": {"type": "object"}
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
