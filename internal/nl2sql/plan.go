package nl2sql

import (
	"strconv"
	"strings"
)

type Entity string

const (
	EntityCustomers Entity = "customers"
	EntityProducts  Entity = "products"
	EntitySales     Entity = "sales"
)

type Operation string

const (
	OperationSelect  Operation = "select"
	OperationCount   Operation = "count"
	OperationSum     Operation = "sum"
	OperationAverage Operation = "average"
	OperationMax     Operation = "max"
	OperationMin     Operation = "min"
)

// Entities and Operations list the vocabulary in declaration order. The
// validator reports them in this order.
var (
	Entities   = []Entity{EntityCustomers, EntityProducts, EntitySales}
	Operations = []Operation{OperationSelect, OperationCount, OperationSum, OperationAverage, OperationMax, OperationMin}
)

const selectRowCap = 10

func (e Entity) Valid() bool {
	for _, candidate := range Entities {
		if e == candidate {
			return true
		}
	}
	return false
}

func (o Operation) Valid() bool {
	for _, candidate := range Operations {
		if o == candidate {
			return true
		}
	}
	return false
}

type Ordering struct {
	Column     string `json:"column"`
	Descending bool   `json:"descending"`
}

func (o Ordering) String() string {
	if o.Descending {
		return o.Column + " DESC"
	}
	return o.Column + " ASC"
}

// Plan is the structured form of a translated question. SQL is always
// Render(plan) for plans built by this package; plans decoded from clients
// keep whatever SQL they carried.
type Plan struct {
	Entity     Entity    `json:"entity"`
	Operation  Operation `json:"operation"`
	Conditions []string  `json:"conditions"`
	OrderBy    *Ordering `json:"order_by,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	SQL        string    `json:"sql"`
}

// Generate builds the standard plan for an entity/operation pair. Sum and
// average over an entity without a numeric column degrade to a row count;
// max and min degrade to the extreme row by id.
func Generate(entity Entity, operation Operation, conditions []string) Plan {
	plan := Plan{
		Entity:     entity,
		Operation:  operation,
		Conditions: copyConditions(conditions),
	}
	switch operation {
	case OperationSelect:
		plan.Limit = selectRowCap
	case OperationMax, OperationMin:
		if aggregateColumn(entity) == "" {
			plan.OrderBy = &Ordering{Column: "id", Descending: operation == OperationMax}
			plan.Limit = 1
		}
	}
	plan.SQL = Render(plan)
	return plan
}

// PlanFor turns a classification into a plan. Classifications decided by a
// superseding rule carry their own ordering and limit.
func PlanFor(c Classification) Plan {
	if c.OrderBy == nil {
		return Generate(c.Entity, c.Operation, c.Conditions)
	}
	order := *c.OrderBy
	plan := Plan{
		Entity:     c.Entity,
		Operation:  c.Operation,
		Conditions: copyConditions(c.Conditions),
		OrderBy:    &order,
		Limit:      c.Limit,
	}
	plan.SQL = Render(plan)
	return plan
}

// Render derives the SQL text of a plan from its entity, operation,
// conditions and ordering policy.
func Render(plan Plan) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(projection(plan))
	b.WriteString(" FROM ")
	b.WriteString(string(plan.Entity))
	if len(plan.Conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(plan.Conditions, " AND "))
	}
	if plan.OrderBy != nil {
		b.WriteString(" ORDER BY ")
		b.WriteString(plan.OrderBy.String())
	}
	if plan.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(plan.Limit))
	}
	return b.String()
}

func projection(plan Plan) string {
	if plan.OrderBy != nil {
		return "*"
	}
	column := aggregateColumn(plan.Entity)
	switch plan.Operation {
	case OperationCount:
		return "COUNT(*)"
	case OperationSum:
		switch plan.Entity {
		case EntitySales:
			return "SUM(total_price)"
		case EntityProducts:
			return "SUM(price * inventory)"
		}
		return "COUNT(*)"
	case OperationAverage:
		if column == "" {
			return "COUNT(*)"
		}
		return "AVG(" + column + ")"
	case OperationMax:
		if column != "" {
			return "MAX(" + column + ")"
		}
	case OperationMin:
		if column != "" {
			return "MIN(" + column + ")"
		}
	}
	return "*"
}

// aggregateColumn is the numeric column aggregated for an entity, empty when
// the entity has none.
func aggregateColumn(entity Entity) string {
	switch entity {
	case EntitySales:
		return "total_price"
	case EntityProducts:
		return "price"
	default:
		return ""
	}
}

func copyConditions(conditions []string) []string {
	out := make([]string, len(conditions))
	copy(out, conditions)
	return out
}
