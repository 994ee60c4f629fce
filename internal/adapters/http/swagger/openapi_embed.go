package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI document for the food-waste API.
//
//go:embed openapi.yaml
var OpenAPI []byte
