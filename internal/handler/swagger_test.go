package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertSwagger2(t *testing.T) {
	doc := `{
		"swagger": "2.0",
		"info": {"title": "Kitty API", "version": "1.0"},
		"securityDefinitions": {"BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}},
		"paths": {
			"/loans/{loanId}": {
				"get": {
					"parameters": [{"type": "string", "description": "Loan ID", "name": "loanId", "in": "path", "required": true}],
					"responses": {"200": {"schema": {"$ref": "#/definitions/handler.LoanDetailResponse"}}}
				}
			}
		},
		"definitions": {
			"handler.LoanDetailResponse": {
				"type": "object",
				"properties": {"loan": {"$ref": "#/definitions/handler.LoanResponse"}}
			}
		}
	}`

	spec, err := convertSwagger2(doc, []Server{{URL: "/api/v1", Description: "local"}})
	require.NoError(t, err)

	assert.Equal(t, "3.0.3", spec.OpenAPI)
	assert.Equal(t, "Kitty API", spec.Info["title"])
	require.Len(t, spec.Servers, 1)
	assert.Contains(t, spec.Components, "securitySchemes")

	get := spec.Paths["/loans/{loanId}"].(map[string]interface{})["get"].(map[string]interface{})
	param := get["parameters"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "path", param["in"])
	assert.NotContains(t, param, "type")
	assert.Equal(t, map[string]interface{}{"type": "string"}, param["schema"])

	schema := get["responses"].(map[string]interface{})["200"].(map[string]interface{})["schema"].(map[string]interface{})
	assert.Equal(t, "#/components/schemas/handler.LoanDetailResponse", schema["$ref"])

	schemas := spec.Components["schemas"].(map[string]interface{})
	loanRef := schemas["handler.LoanDetailResponse"].(map[string]interface{})["properties"].(map[string]interface{})["loan"].(map[string]interface{})
	assert.Equal(t, "#/components/schemas/handler.LoanResponse", loanRef["$ref"])
}

func TestConvertSwagger2_InvalidJSON(t *testing.T) {
	_, err := convertSwagger2("{", nil)
	assert.Error(t, err)
}

func TestOpenAPI3Handler_ServesGeneratedDoc(t *testing.T) {
	e := echo.New()
	RegisterDocs(e, []Server{{URL: "http://localhost:8080/api/v1", Description: "local"}})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	requireStatus(t, rec, http.StatusOK)
	spec := decode[OpenAPI3Spec](t, rec)
	assert.Equal(t, "3.0.3", spec.OpenAPI)
	assert.Contains(t, spec.Paths, "/periods/{periodId}/payments")
	assert.Contains(t, spec.Paths, "/loans/{loanId}/repayments")
}
