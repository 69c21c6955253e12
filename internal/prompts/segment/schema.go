package segment

// Schema validates the parsed segmentation output.
const Schema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"id": {"type": "string"},
			"title": {"type": "string", "minLength": 1},
			"summary": {"type": "string"}
		},
		"required": ["id", "title", "summary"]
	}
}`

// Entry is one element of the segmentation array.
type Entry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}
