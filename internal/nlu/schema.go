package nlu

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// Field names of the criteria wire object.
const (
	fieldIntent         = "intent"
	fieldSearchTypes    = "search_types"
	fieldCategory       = "category"
	fieldSubcategory    = "subcategory"
	fieldDateRange      = "date_range"
	fieldCity           = "city"
	fieldLocation       = "location"
	fieldPriceRange     = "price_range"
	fieldAgeRestriction = "age_restriction"
	fieldKeywords       = "keywords"
)

// enumFields are compared case-insensitively before validation.
var enumFields = []string{fieldCategory, fieldDateRange, fieldPriceRange, fieldAgeRestriction}

func stringSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

func enumSchema[T ~string](values []T) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = string(v)
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}

// criteriaShapeSchema checks types only. A response failing it is malformed.
func criteriaShapeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			fieldIntent:         stringSchema(),
			fieldSearchTypes:    {Type: "array", Items: stringSchema()},
			fieldCategory:       stringSchema(),
			fieldSubcategory:    stringSchema(),
			fieldDateRange:      stringSchema(),
			fieldCity:           stringSchema(),
			fieldLocation:       stringSchema(),
			fieldPriceRange:     stringSchema(),
			fieldAgeRestriction: stringSchema(),
			fieldKeywords:       {Type: "array", Items: stringSchema()},
		},
	}
}

// CriteriaSchema is the declared criteria response schema, including the
// closed enums. It is also sent to providers that support structured output.
func CriteriaSchema() *jsonschema.Schema {
	s := criteriaShapeSchema()
	s.Properties[fieldSearchTypes].Items = enumSchema(model.SearchTypes)
	s.Properties[fieldCategory] = enumSchema(model.Categories)
	s.Properties[fieldDateRange] = enumSchema(model.DateRanges)
	s.Properties[fieldPriceRange] = enumSchema(model.PriceRanges)
	s.Properties[fieldAgeRestriction] = enumSchema(model.AgeRestrictions)
	return s
}

// ReplySchema is the schema of a JSON-wrapped generative reply.
func ReplySchema() *jsonschema.Schema {
	minLen := 1
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"response"},
		Properties: map[string]*jsonschema.Schema{
			"response": {Type: "string", MinLength: &minLen},
		},
	}
}

type validators struct {
	shape    *jsonschema.Resolved
	criteria *jsonschema.Resolved
	reply    *jsonschema.Resolved
}

func newValidators() (*validators, error) {
	shape, err := criteriaShapeSchema().Resolve(nil)
	if err != nil {
		return nil, err
	}
	criteria, err := CriteriaSchema().Resolve(nil)
	if err != nil {
		return nil, err
	}
	reply, err := ReplySchema().Resolve(nil)
	if err != nil {
		return nil, err
	}
	return &validators{shape: shape, criteria: criteria, reply: reply}, nil
}
