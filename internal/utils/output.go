package utils

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteJSON writes data to w as indented JSON followed by a newline.
func WriteJSON(w io.Writer, data interface{}) error {
	jsonData, err := MarshalJSON(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

// WriteYAML writes data to w as YAML.
func WriteYAML(w io.Writer, data interface{}) error {
	yamlData, err := MarshalYAML(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(yamlData))
	return err
}

// MarshalJSON marshals the provided data as indented JSON.
func MarshalJSON(data interface{}) ([]byte, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return jsonData, nil
}

// MarshalYAML marshals the provided data as YAML.
func MarshalYAML(data interface{}) ([]byte, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return yamlData, nil
}
