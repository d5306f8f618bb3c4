package llm

import (
	"strings"
	"time"
)

// CloudSuffix marks models served remotely through the local endpoint
const CloudSuffix = ":cloud"

// ModelDetails is the details record of an installed model
type ModelDetails struct {
	ParentModel       string   `json:"parent_model"`
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// Model describes one entry of GET /api/tags
type Model struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`

	RemoteModel string `json:"remote_model,omitempty"`
	RemoteHost  string `json:"remote_host,omitempty"`
}

// IsCloud reports whether the model runs remotely
func (m Model) IsCloud() bool {
	return m.RemoteModel != "" || m.RemoteHost != "" || strings.Contains(m.Name, CloudSuffix)
}

// FilterLocal returns the models that run on this machine, in their original order
func FilterLocal(models []Model) []Model {
	local := make([]Model, 0, len(models))
	for _, m := range models {
		if !m.IsCloud() {
			local = append(local, m)
		}
	}
	return local
}

type tagsResponse struct {
	Models []Model `json:"models"`
}
