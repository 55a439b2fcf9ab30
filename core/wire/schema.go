package wire

import (
	"github.com/invopop/jsonschema"
)

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{DoNotReference: true}
}

// RequestSchema describes the request body.
func RequestSchema() *jsonschema.Schema {
	return reflector().Reflect(&Request{})
}

// ChunkSchema describes one JSON response line.
func ChunkSchema() *jsonschema.Schema {
	return reflector().Reflect(&Chunk{})
}
