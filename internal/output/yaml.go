package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders results as YAML using the same field names and order
// as the JSON output.
type YAMLFormatter struct{}

// Format renders value as YAML.
func (f *YAMLFormatter) Format(value any) (string, error) {
	if value == nil {
		return "", nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	// JSON is valid YAML; decoding into a node keeps key order.
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&node)

	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func blockStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		blockStyle(child)
	}
}
