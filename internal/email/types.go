package email

import (
	"fmt"
	"slices"
	"strings"
)

type ProviderName string

// FieldSchema describes a single provider configuration field.
type FieldSchema struct {
	Key         string   `json:"key"`
	Type        string   `json:"type"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Example     any      `json:"example,omitempty"`
	Order       int      `json:"order"`
}

type ConfigSchema struct {
	Fields []FieldSchema `json:"fields"`
}

// Check reports the first required field that is missing or blank, then any enum field
// holding a value outside its allowed set.
func (s ConfigSchema) Check(raw map[string]any) error {
	for _, f := range s.Fields {
		if !f.Required {
			continue
		}
		v, ok := raw[f.Key]
		if str, isStr := v.(string); !ok || v == nil || (isStr && strings.TrimSpace(str) == "") {
			return fmt.Errorf("%s is required", f.Key)
		}
	}
	for _, f := range s.Fields {
		if len(f.Enum) == 0 {
			continue
		}
		if str, _ := raw[f.Key].(string); str != "" && !slices.Contains(f.Enum, str) {
			return fmt.Errorf("unsupported %s: %s", f.Key, str)
		}
	}
	return nil
}

type ProviderMeta struct {
	Provider     string       `json:"provider"`
	DisplayName  string       `json:"display_name"`
	ConfigSchema ConfigSchema `json:"config_schema"`
}

// Attachment is an in-memory file attached to an outbound email.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type OutboundEmail struct {
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"-"`
}
