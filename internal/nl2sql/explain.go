package nl2sql

import "fmt"

type Explanation struct {
	Summary string   `json:"summary"`
	Details []string `json:"details"`
	SQL     string   `json:"sql"`
}

type detailKey struct {
	operation Operation
	entity    Entity
}

var operationDetails = map[Operation]string{
	OperationSelect: "The query will return all columns from the table.",
	OperationCount:  "The query will count the number of rows in the table.",
}

// Combinations missing here are the degraded ones and get no detail line.
var aggregateDetails = map[detailKey]string{
	{OperationSum, EntitySales}:        "The query will sum up the total price of all sales.",
	{OperationSum, EntityProducts}:     "The query will calculate the total inventory value.",
	{OperationAverage, EntitySales}:    "The query will calculate the average sale price.",
	{OperationAverage, EntityProducts}: "The query will calculate the average product price.",
	{OperationMax, EntitySales}:        "The query will find the highest sale price.",
	{OperationMax, EntityProducts}:     "The query will find the most expensive product.",
	{OperationMin, EntitySales}:        "The query will find the lowest sale price.",
	{OperationMin, EntityProducts}:     "The query will find the cheapest product.",
}

// Explain describes a plan in plain language. It accepts any plan, including
// ones with unknown entity or operation values.
func Explain(plan Plan) Explanation {
	explanation := Explanation{
		Summary: fmt.Sprintf("This query is looking for %s data from the %s table.", plan.Operation, plan.Entity),
		Details: []string{},
		SQL:     plan.SQL,
	}

	if detail, ok := operationDetails[plan.Operation]; ok {
		explanation.Details = append(explanation.Details, detail)
	} else if detail, ok := aggregateDetails[detailKey{plan.Operation, plan.Entity}]; ok {
		explanation.Details = append(explanation.Details, detail)
	}

	if len(plan.Conditions) > 0 {
		explanation.Details = append(explanation.Details, "The query includes the following conditions:")
		for _, condition := range plan.Conditions {
			explanation.Details = append(explanation.Details, "- "+condition)
		}
	}
	return explanation
}
