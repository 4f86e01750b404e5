package report

import _ "embed"

//go:embed report.schema.json
var embeddedSchema string
