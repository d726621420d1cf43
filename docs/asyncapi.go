package docs

import _ "embed"

// AsyncAPISpec documents the WebSocket and SSE event channels. It is served
// verbatim at /asyncapi.yaml.
//
//go:embed asyncapi.yaml
var AsyncAPISpec []byte
