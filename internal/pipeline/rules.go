package pipeline

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

const RulesSchemaV1 = "tradeline.pipeline.v1"

// Rules is the deploy-time precondition configuration: which document
// kinds must be on file per entity type, and which metadata fields a
// card needs before acceptance. The pipeline graphs themselves are
// static; only the predicates' inputs are configurable.
type Rules struct {
	Schema            string              `yaml:"schema" json:"schema"`
	RequiredDocuments map[string][]string `yaml:"required_documents,omitempty" json:"required_documents,omitempty"`
	CardConfigFields  []string            `yaml:"card_config_fields,omitempty" json:"card_config_fields,omitempty"`
}

// DefaultRules returns the shipped business rules.
func DefaultRules() Rules {
	return Rules{
		Schema: RulesSchemaV1,
		RequiredDocuments: map[string][]string{
			string(domain.EntityTypeClient): {
				"drivers_license",
				"ssn_card",
				"utility_bill",
				"bank_statement",
				"credit_report",
			},
		},
		CardConfigFields: []string{"cycles", "spots", "payout"},
	}
}

// ParseRules decodes and validates a YAML rules document.
func ParseRules(input []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(input, &rules); err != nil {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// LoadRulesFile reads rules from path; an empty path yields defaults.
func LoadRulesFile(path string) (Rules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(raw)
}

func (r Rules) Validate() error {
	if strings.TrimSpace(r.Schema) != RulesSchemaV1 {
		return fmt.Errorf("rules.schema must be %q", RulesSchemaV1)
	}
	for rawType, kinds := range r.RequiredDocuments {
		if _, ok := domain.ParseEntityType(rawType); !ok {
			return fmt.Errorf("rules.required_documents: unknown entity type %q", rawType)
		}
		if len(kinds) == 0 {
			return fmt.Errorf("rules.required_documents[%s] must be non-empty", rawType)
		}
		seen := make(map[string]struct{}, len(kinds))
		for i, kind := range kinds {
			kind = strings.TrimSpace(kind)
			if kind == "" {
				return fmt.Errorf("rules.required_documents[%s][%d] is empty", rawType, i)
			}
			if _, ok := seen[kind]; ok {
				return fmt.Errorf("rules.required_documents[%s]: duplicate kind %q", rawType, kind)
			}
			seen[kind] = struct{}{}
		}
	}
	if len(r.CardConfigFields) == 0 {
		return errors.New("rules.card_config_fields must be non-empty")
	}
	for i, field := range r.CardConfigFields {
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("rules.card_config_fields[%d] is empty", i)
		}
	}
	return nil
}

// DocumentKinds returns the required document kinds for an entity type.
func (r Rules) DocumentKinds(entityType domain.EntityType) []string {
	kinds := r.RequiredDocuments[string(entityType)]
	out := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		kind = strings.TrimSpace(kind)
		if kind != "" {
			out = append(out, kind)
		}
	}
	return out
}
