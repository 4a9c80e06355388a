package nl2sql

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type operationKeywords struct {
	operation Operation
	keywords  []string
}

type entitySynonyms struct {
	entity   Entity
	synonyms []string
}

// Declaration order is the match priority: the first entry with any keyword
// contained in the text wins.
var operationTable = []operationKeywords{
	{OperationSelect, []string{"show", "get", "find", "list", "display", "retrieve"}},
	{OperationCount, []string{"count", "how many", "total number"}},
	{OperationSum, []string{"sum", "total", "add up"}},
	{OperationAverage, []string{"average", "avg", "mean"}},
	{OperationMax, []string{"maximum", "highest", "most expensive", "largest"}},
	{OperationMin, []string{"minimum", "lowest", "cheapest", "smallest"}},
}

var entityTable = []entitySynonyms{
	{EntityCustomers, []string{"customers", "users", "clients", "buyers"}},
	{EntityProducts, []string{"products", "items", "goods", "merchandise"}},
	{EntitySales, []string{"sales", "purchases", "transactions", "orders"}},
}

// priceTerms force the products entity ahead of the synonym table.
var priceTerms = []string{"expensive", "cheapest", "price", "cost"}

var categories = []string{"Electronics", "Clothing", "Footwear", "Home Appliances"}

var pricePattern = regexp.MustCompile(`(under|over|less than|more than|cheaper than|expensive than)\s+\$?(\d+)`)

// rule is a prioritized predicate over lowered text. When it matches, its
// fragment replaces the inferred entity and operation and fixes the ordering.
type rule struct {
	name      string
	match     func(lowered string) bool
	entity    Entity
	operation Operation
	orderBy   Ordering
	limit     int
}

const RuleStandard = "standard"

// rules are evaluated top to bottom, first match wins. Text matching no rule
// keeps the standard inference.
var rules = []rule{
	{
		name:      "most-expensive",
		match:     containsAny("most expensive", "highest price"),
		entity:    EntityProducts,
		operation: OperationMax,
		orderBy:   Ordering{Column: "price", Descending: true},
		limit:     1,
	},
	{
		name:      "cheapest",
		match:     containsAny("cheapest", "lowest price"),
		entity:    EntityProducts,
		operation: OperationMin,
		orderBy:   Ordering{Column: "price", Descending: false},
		limit:     1,
	},
}

type Classification struct {
	Entity     Entity    `json:"entity"`
	Operation  Operation `json:"operation"`
	Conditions []string  `json:"conditions"`
	Rule       string    `json:"rule"`
	OrderBy    *Ordering `json:"order_by,omitempty"`
	Limit      int       `json:"limit,omitempty"`
}

// Classify infers entity, operation and conditions from free text. now is
// the reference instant for relative periods.
func Classify(text string, now time.Time) Classification {
	lowered := strings.ToLower(text)
	result := Classification{
		Entity:    inferEntity(lowered),
		Operation: inferOperation(lowered),
		Rule:      RuleStandard,
	}
	for _, r := range rules {
		if !r.match(lowered) {
			continue
		}
		order := r.orderBy
		result.Entity = r.entity
		result.Operation = r.operation
		result.OrderBy = &order
		result.Limit = r.limit
		result.Rule = r.name
		break
	}
	result.Conditions = inferConditions(lowered, result.Entity, now)
	return result
}

func inferOperation(lowered string) Operation {
	for _, entry := range operationTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.operation
			}
		}
	}
	return OperationSelect
}

func inferEntity(lowered string) Entity {
	if containsAny(priceTerms...)(lowered) {
		return EntityProducts
	}
	for _, entry := range entityTable {
		for _, synonym := range entry.synonyms {
			if strings.Contains(lowered, synonym) {
				return entry.entity
			}
		}
	}
	return EntitySales
}

func inferConditions(lowered string, entity Entity, now time.Time) []string {
	conditions := make([]string, 0, 2)

	if entity == EntityProducts {
		for _, category := range categories {
			if strings.Contains(lowered, strings.ToLower(category)) {
				conditions = append(conditions, fmt.Sprintf("category = '%s'", category))
			}
		}
	}

	for _, match := range pricePattern.FindAllStringSubmatch(lowered, -1) {
		switch match[1] {
		case "under", "less than", "cheaper than":
			conditions = append(conditions, "price < "+match[2])
		default:
			conditions = append(conditions, "price > "+match[2])
		}
	}

	if entity == EntitySales {
		if period, ok := findPeriod(lowered); ok {
			if span, ok := ResolvePeriod(period, now); ok {
				conditions = append(conditions, fmt.Sprintf("sale_date BETWEEN '%s' AND '%s'", span.StartDate(), span.EndDate()))
			}
		}
	}
	return conditions
}

func findPeriod(lowered string) (string, bool) {
	for _, period := range periods {
		if strings.Contains(lowered, period) {
			return period, true
		}
	}
	return "", false
}

func containsAny(terms ...string) func(string) bool {
	return func(lowered string) bool {
		for _, term := range terms {
			if strings.Contains(lowered, term) {
				return true
			}
		}
		return false
	}
}
