package tour

import (
	"fmt"
	"math/rand"
)

// Stop is one step of the scripted tour.
type Stop struct {
	Name        string
	Question    string
	Description string
}

// Script is the fixed walk through the API the tour starts with.
func Script() []Stop {
	return []Stop{
		{
			Name:        "Find most expensive product",
			Question:    "What is the most expensive product in the store?",
			Description: "This query finds the product with the highest price",
		},
		{
			Name:        "Find cheapest clothing item",
			Question:    "What is the cheapest item in the Clothing category?",
			Description: "This query finds the cheapest product in a specific category",
		},
		{
			Name:        "Count electronics products",
			Question:    "How many products are in the Electronics category?",
			Description: "This query counts products in a specific category",
		},
		{
			Name:        "Average product price",
			Question:    "What is the average price of all products?",
			Description: "This query calculates the average price across all products",
		},
	}
}

var (
	subjects = map[string][]string{
		"customers": {"customers", "users", "clients"},
		"products":  {"products", "items", "goods"},
		"sales":     {"sales", "orders", "transactions"},
	}
	entityOrder = []string{"customers", "products", "sales"}
	categories  = []string{"Electronics", "Clothing", "Footwear", "Home Appliances"}
	periods     = []string{"last month", "this month", "last year", "this year"}
	thresholds  = []int{50, 100, 500, 1000}
)

// Generator produces varied questions from a seeded source so runs repeat.
type Generator struct {
	rnd      *rand.Rand
	sequence int64
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) NextQuestion() Stop {
	g.sequence++
	entity := pickOne(g.rnd, entityOrder)
	subject := pickOne(g.rnd, subjects[entity])

	var question string
	switch entity {
	case "products":
		switch g.rnd.Intn(4) {
		case 0:
			question = fmt.Sprintf("How many %s are in the %s category?", subject, pickOne(g.rnd, categories))
		case 1:
			question = fmt.Sprintf("What is the average price of %s?", subject)
		case 2:
			question = fmt.Sprintf("Show %s under %d", subject, pickInt(g.rnd, thresholds))
		default:
			question = fmt.Sprintf("What is the most expensive %s in %s?", subject, pickOne(g.rnd, categories))
		}
	case "sales":
		switch g.rnd.Intn(3) {
		case 0:
			question = fmt.Sprintf("Total %s %s", subject, pickOne(g.rnd, periods))
		case 1:
			question = fmt.Sprintf("How many %s %s?", subject, pickOne(g.rnd, periods))
		default:
			question = fmt.Sprintf("Show %s over %d", subject, pickInt(g.rnd, thresholds))
		}
	default:
		if g.rnd.Intn(2) == 0 {
			question = fmt.Sprintf("How many %s do we have?", subject)
		} else {
			question = fmt.Sprintf("List all %s", subject)
		}
	}

	return Stop{
		Name:     fmt.Sprintf("generated-%04d", g.sequence),
		Question: question,
	}
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}

func pickInt(r *rand.Rand, values []int) int {
	return values[r.Intn(len(values))]
}
