package extraction

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/agenthands/docgraph/internal/core/model"
)

// Schema returns the JSON schema of model.DocumentExtraction, indented for
// inclusion in prompts.
var Schema = sync.OnceValue(func() string {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := r.Reflect(&model.DocumentExtraction{})
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
})
