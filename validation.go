package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/openchami/rack-manager/internal/inventory"
	"github.com/openchami/rack-manager/pkg/racks"
	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

// Schema loaders for the create payloads, built once from the request types.
var (
	rackRequestSchema      = mustSchemaLoader(&inventory.RackRequest{})
	equipmentRequestSchema = mustSchemaLoader(&inventory.EquipmentRequest{})
)

func mustSchemaLoader(model interface{}) gojsonschema.JSONLoader {
	schemaJSON, err := json.Marshal(newReflector().Reflect(model))
	if err != nil {
		panic(err)
	}
	return gojsonschema.NewBytesLoader(schemaJSON)
}

// decodeValidated reads the request body, checks it against schema and
// decodes it into v.
func decodeValidated(r *http.Request, schema gojsonschema.JSONLoader, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return racks.InvalidInput("reading request body: %v", err)
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return racks.InvalidInput("malformed request body: %v", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return racks.InvalidInput("%s", strings.Join(problems, "; "))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return racks.InvalidInput("decoding request body: %v", err)
	}
	return nil
}

// decodeJSON decodes a body that has no schema check.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := render.DecodeJSON(io.LimitReader(r.Body, maxBodyBytes), v); err != nil {
		return racks.InvalidInput("decoding request body: %v", err)
	}
	return nil
}

func errMalformedID(name string, err error) error {
	return racks.InvalidInput("malformed %s: %v", name, err)
}
