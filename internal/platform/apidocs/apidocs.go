// Package apidocs registers the OpenAPI document served under /swagger.
package apidocs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var doc string

var Spec = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api/v1",
	Schemes:          []string{"https"},
	Title:            "Verein API",
	Description:      "Association administration: members, claims, payments, bookkeeping, letters.",
	InfoInstanceName: swag.Name,
	SwaggerTemplate:  doc,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(Spec.InstanceName(), Spec)
}
