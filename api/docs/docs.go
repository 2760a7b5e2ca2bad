// Package docs registers the OpenAPI document served under /swagger/. It
// mirrors the swag annotations on the handlers in internal/api/http;
// go generate rebuilds it from them.
package docs

//go:generate swag init --dir ../.. --generalInfo internal/api/http/router.go --output . --outputTypes go --parseInternal

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Service banner",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/auth/change_password": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Change the current password",
                "parameters": [
                    {"description": "Old and new password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.ChangePasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/forgot_password": {
            "post": {
                "description": "Always answers the same way whether or not the address is registered.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Request a password reset email",
                "parameters": [
                    {"description": "Account email", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.ForgotPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.MessageResponse"}}
                }
            }
        },
        "/auth/google/callback": {
            "get": {
                "description": "Exchanges the authorization code, links or provisions the account and opens a session.",
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Complete google sign-in",
                "parameters": [
                    {"type": "string", "description": "Authorization code", "name": "code", "in": "query", "required": true},
                    {"type": "string", "description": "State echoed by Google", "name": "state", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.TokenResponse"}},
                    "401": {"description": "federated_auth_failure", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/google/login": {
            "get": {
                "description": "Redirects to Google's consent screen. A state cookie protects the round-trip.",
                "tags": ["Auth"],
                "summary": "Start google sign-in",
                "responses": {
                    "307": {"description": "Temporary Redirect"},
                    "503": {"description": "google login not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "description": "Revokes the session behind the refresh cookie, if any, and clears the cookie.",
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log out this device",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.MessageResponse"}}
                }
            }
        },
        "/auth/logout/all": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log out every device",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.LogoutAllResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "description": "Exchanges the refresh token for a new pair bound to the same device.\nPresenting a token that was already rotated revokes every session of the user.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Rotate refresh token",
                "parameters": [
                    {"type": "string", "description": "Refresh token when no cookie is available", "name": "refresh_token", "in": "formData"},
                    {"type": "string", "description": "Device id when no cookie is available", "name": "device_id", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.TokenResponse"}},
                    "401": {"description": "invalid_token or device_mismatch", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/reset_password": {
            "post": {
                "description": "Consumes the token, sets the new password and signs out every device.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Reset a password with an emailed token",
                "parameters": [
                    {"description": "Token and new password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.ResetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.MessageResponse"}},
                    "400": {"description": "invalid_token, token_expired or weak_password", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/sessions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "List active sessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.SessionView"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/auth/token": {
            "post": {
                "description": "Verifies email and password and opens a session for the calling device.\nThe refresh token is set as an HttpOnly cookie together with the device id.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Password login",
                "parameters": [
                    {"type": "string", "description": "Email address", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true},
                    {"type": "string", "description": "Device id for clients without cookies", "name": "X-Device-ID", "in": "header"},
                    {"type": "string", "description": "Human readable device name", "name": "X-Device-Name", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.TokenResponse"}, "headers": {"Set-Cookie": {"type": "string", "description": "refresh_token, device_id"}}},
                    "400": {"description": "invalid_credentials", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "account_not_activated", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/cvs/manual": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["CVs"],
                "summary": "Create a CV by hand",
                "parameters": [
                    {"description": "CV content", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CVDocument"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.CVResponse"}},
                    "400": {"description": "empty_cv or invalid_cv", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/cvs/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["CVs"],
                "summary": "Every CV version, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/http.CVResponse"}}}
                }
            }
        },
        "/cvs/me/latest": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["CVs"],
                "summary": "Latest CV version",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.CVResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/cvs/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Accepts a PDF or image, extracts its text and structures it.\nA new version is stored only when the document is recognised as a CV.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["CVs"],
                "summary": "Upload a CV file",
                "parameters": [
                    {"type": "file", "description": "CV (.pdf, .jpg, .jpeg, .png)", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.UploadResponse"}},
                    "400": {"description": "unsupported_file, empty_cv or invalid_cv", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "413": {"description": "file_too_large", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "enrichment_unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Always 200 while the process is serving.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Pings the database.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/http.HealthResponse"}},
                    "503": {"description": "status, uptime, version, checks - service not ready", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/users/": {
            "post": {
                "description": "Creates an inactive account and emails an activation link.\nThe response is identical when the address is already registered.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Register an account",
                "parameters": [
                    {"description": "Email, full name and password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.RegisterRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/http.MessageResponse"}},
                    "400": {"description": "invalid_email or weak_password", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/users/activate": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Activate an account",
                "parameters": [
                    {"type": "string", "description": "Activation token from the email", "name": "token", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.MessageResponse"}},
                    "400": {"description": "invalid_token or token_expired", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Users can only read their own account.",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Get an account",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.UserResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.CVDocument": {
            "type": "object",
            "properties": {
                "education": {"type": "array", "items": {"$ref": "#/definitions/domain.Education"}},
                "email": {"type": "string"},
                "experiences": {"type": "array", "items": {"$ref": "#/definitions/domain.Experience"}},
                "full_name": {"type": "string"},
                "location": {"type": "string"},
                "phone": {"type": "string"},
                "skills": {"type": "array", "items": {"type": "string"}},
                "summary": {"type": "string"}
            }
        },
        "domain.Education": {
            "type": "object",
            "properties": {
                "degree": {"type": "string"},
                "end_date": {"type": "string"},
                "school": {"type": "string"},
                "start_date": {"type": "string"}
            }
        },
        "domain.Experience": {
            "type": "object",
            "properties": {
                "company": {"type": "string"},
                "description": {"type": "string"},
                "end_date": {"type": "string"},
                "start_date": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "domain.SessionView": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "device_id": {"type": "string"},
                "device_name": {"type": "string"},
                "expires_at": {"type": "string"},
                "last_used_at": {"type": "string"}
            }
        },
        "http.CVResponse": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "data": {"$ref": "#/definitions/domain.CVDocument"},
                "id": {"type": "string"},
                "source": {"type": "string", "example": "manual"},
                "version": {"type": "integer"}
            }
        },
        "http.ChangePasswordRequest": {
            "type": "object",
            "properties": {
                "new_password": {"type": "string"},
                "old_password": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid_token"},
                "error_description": {"type": "string", "example": "refresh token is invalid or expired"}
            }
        },
        "http.ForgotPasswordRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"}
            }
        },
        "http.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {"type": "string"}
            }
        },
        "http.HealthResponse": {
            "type": "object",
            "properties": {
                "checks": {"$ref": "#/definitions/http.HealthChecks"},
                "message": {"type": "string"},
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "http.LogoutAllResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "revoked": {"type": "integer"}
            }
        },
        "http.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "http.RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "http.ResetPasswordRequest": {
            "type": "object",
            "properties": {
                "new_password": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "http.TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_in": {"type": "integer", "example": 900},
                "token_type": {"type": "string", "example": "bearer"}
            }
        },
        "http.UploadResponse": {
            "type": "object",
            "properties": {
                "cv": {"$ref": "#/definitions/http.CVResponse"},
                "is_cv": {"type": "boolean"},
                "reason": {"type": "string"}
            }
        },
        "http.UserResponse": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "google_linked": {"type": "boolean"},
                "has_password": {"type": "boolean"},
                "id": {"type": "string"},
                "is_active": {"type": "boolean"},
                "is_verified": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "JobAssist API",
	Description:      "Accounts, device-bound sessions and CV storage for JobAssist.\n\nAccess tokens are short-lived HS256 JWTs sent as bearer tokens.\nRefresh tokens live in an HttpOnly cookie and rotate on every use.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
