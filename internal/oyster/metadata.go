package oyster

import (
	"encoding/json"
	"strconv"
)

// Metadata is the job spec a provider reads from the job metadata string.
type Metadata struct {
	EnclaveURL string
	Instance   string
	Region     string
	Vcpu       *int64
	Memory     *int64
}

type rawMetadata struct {
	URL      string          `json:"url"`
	Instance string          `json:"instance"`
	Region   string          `json:"region"`
	Vcpu     json.RawMessage `json:"vcpu"`
	Memory   json.RawMessage `json:"memory"`
}

// ParseMetadata decodes the metadata JSON of a job. Malformed metadata yields the zero
// Metadata and missing fields stay empty.
func ParseMetadata(metadata string) Metadata {
	var raw rawMetadata
	if err := json.Unmarshal([]byte(metadata), &raw); err != nil {
		return Metadata{}
	}
	return Metadata{
		EnclaveURL: raw.URL,
		Instance:   raw.Instance,
		Region:     raw.Region,
		Vcpu:       parseCount(raw.Vcpu),
		Memory:     parseCount(raw.Memory),
	}
}

// parseCount accepts a JSON number or a numeric string.
func parseCount(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return &v
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// EncodeMetadata builds the metadata string stored with a new job.
func EncodeMetadata(m Metadata) (string, error) {
	out := map[string]interface{}{
		"url":      m.EnclaveURL,
		"instance": m.Instance,
		"region":   m.Region,
	}
	if m.Vcpu != nil {
		out["vcpu"] = *m.Vcpu
	}
	if m.Memory != nil {
		out["memory"] = *m.Memory
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
