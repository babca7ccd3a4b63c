// Package schemas embeds the JSON schemas for persisted documents.
package schemas

import _ "embed"

//go:embed save.schema.json
var SaveSchema string

const SaveSchemaURL = "https://coverdance.app/schemas/save.schema.json"
