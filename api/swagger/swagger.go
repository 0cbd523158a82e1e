package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Oka Transport API",
        "description": "Bus ticket reservation platform with seat assignment engine",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Buses", "description": "Fleet and seat layout management"},
        {"name": "Voyages", "description": "Scheduled trips and seat maps"},
        {"name": "Reservations", "description": "Client bookings and passengers"},
        {"name": "Assignments", "description": "Seat assignment engine"},
        {"name": "Manifests", "description": "Voyage passenger manifests"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/voyages/{id}/auto-assign": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Pack unassigned reservation groups onto seats",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AutoAssignResult"}}
                }
            }
        },
        "/voyages/{id}/assignment-proposals": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Preview recommender seat proposals for a voyage",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/voyages/{id}/assignment-proposals/apply": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Validate, filter and persist seat proposals",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyProposalsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ApplyProposalsResult"}}
                }
            }
        }
    },
    "definitions": {
        "SeatProposal": {
            "type": "object",
            "properties": {
                "voyageId": {"type": "integer"},
                "seatId": {"type": "integer"},
                "passengerId": {"type": "integer"}
            }
        },
        "ApplyProposalsRequest": {
            "type": "object",
            "properties": {
                "proposals": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SeatProposal"}
                }
            },
            "required": ["proposals"]
        },
        "AutoAssignResult": {
            "type": "object",
            "properties": {
                "assigned": {"type": "integer"},
                "total": {"type": "integer"},
                "reroutedFamilies": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ReroutedFamily"}
                }
            }
        },
        "ReroutedFamily": {
            "type": "object",
            "properties": {
                "reservationId": {"type": "integer"},
                "size": {"type": "integer"}
            }
        },
        "ApplyProposalsResult": {
            "type": "object",
            "properties": {
                "applied": {"type": "integer"},
                "total": {"type": "integer"}
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
