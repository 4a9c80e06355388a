package nl2sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplainCountWithConditions(t *testing.T) {
	plan := Generate(EntityProducts, OperationCount, []string{"category = 'Electronics'"})
	got := Explain(plan)

	assert.Equal(t, "This query is looking for count data from the products table.", got.Summary)
	assert.Equal(t, []string{
		"The query will count the number of rows in the table.",
		"The query includes the following conditions:",
		"- category = 'Electronics'",
	}, got.Details)
	assert.Equal(t, plan.SQL, got.SQL)
}

func TestExplainAggregateDetails(t *testing.T) {
	tests := []struct {
		entity    Entity
		operation Operation
		want      []string
	}{
		{EntitySales, OperationSum, []string{"The query will sum up the total price of all sales."}},
		{EntityProducts, OperationSum, []string{"The query will calculate the total inventory value."}},
		{EntityProducts, OperationAverage, []string{"The query will calculate the average product price."}},
		{EntitySales, OperationMax, []string{"The query will find the highest sale price."}},
		{EntityProducts, OperationMin, []string{"The query will find the cheapest product."}},
		{EntityCustomers, OperationSelect, []string{"The query will return all columns from the table."}},
		{EntityCustomers, OperationSum, []string{}},
		{EntityCustomers, OperationMax, []string{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.operation)+"/"+string(tt.entity), func(t *testing.T) {
			assert.Equal(t, tt.want, Explain(Generate(tt.entity, tt.operation, nil)).Details)
		})
	}
}

func TestExplainUnknownVocabulary(t *testing.T) {
	got := Explain(Plan{Entity: "suppliers", Operation: "median", Conditions: []string{"id > 1"}, SQL: "SELECT 1"})
	assert.Equal(t, "This query is looking for median data from the suppliers table.", got.Summary)
	assert.Equal(t, []string{"The query includes the following conditions:", "- id > 1"}, got.Details)
	assert.Equal(t, "SELECT 1", got.SQL)
}
