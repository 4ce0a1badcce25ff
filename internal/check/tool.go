package check

import (
	"github.com/factchecker/factcheckit/internal/llm"
	"github.com/factchecker/factcheckit/internal/models"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// reportTool is the function the model is forced to call when tools are enabled.
func reportTool() llm.ToolSpec {
	verdicts := make([]string, len(models.Verdicts))
	for i, v := range models.Verdicts {
		verdicts[i] = string(v)
	}

	return llm.ToolSpec{
		Name:        "report_fact_check",
		Description: "Report the assessment of a factual claim.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"verdict": {
					Type:        jsonschema.String,
					Enum:        verdicts,
					Description: "Overall assessment of the claim.",
				},
				"explanation": {
					Type:        jsonschema.String,
					Description: "At most three concise sentences correcting or clarifying the claim.",
				},
				"sources": {
					Type:        jsonschema.Array,
					Description: "Two or three credible sources with direct links.",
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"title": {Type: jsonschema.String},
							"url":   {Type: jsonschema.String},
						},
						Required: []string{"title", "url"},
					},
				},
			},
			Required: []string{"verdict", "explanation", "sources"},
		},
	}
}
