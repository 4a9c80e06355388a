// Package dataset owns the customers, products and sales tables: their
// schema, the built-in seed rows and parquet snapshots in an object store.
package dataset

const (
	TableCustomers = "customers"
	TableProducts  = "products"
	TableSales     = "sales"
)

// Tables lists the tables in load order. Sales reference the other two.
var Tables = []string{TableCustomers, TableProducts, TableSales}

// Columns lists each table's columns in schema order.
var Columns = map[string][]string{
	TableCustomers: {"id", "name", "email", "signup_date"},
	TableProducts:  {"id", "name", "category", "price", "inventory"},
	TableSales:     {"id", "customer_id", "product_id", "quantity", "sale_date", "total_price"},
}

type Customer struct {
	ID         int64  `parquet:"id" json:"id"`
	Name       string `parquet:"name" json:"name"`
	Email      string `parquet:"email" json:"email"`
	SignupDate string `parquet:"signup_date" json:"signup_date"`
}

type Product struct {
	ID        int64   `parquet:"id" json:"id"`
	Name      string  `parquet:"name" json:"name"`
	Category  string  `parquet:"category" json:"category"`
	Price     float64 `parquet:"price" json:"price"`
	Inventory int64   `parquet:"inventory" json:"inventory"`
}

type Sale struct {
	ID         int64   `parquet:"id" json:"id"`
	CustomerID int64   `parquet:"customer_id" json:"customer_id"`
	ProductID  int64   `parquet:"product_id" json:"product_id"`
	Quantity   int64   `parquet:"quantity" json:"quantity"`
	SaleDate   string  `parquet:"sale_date" json:"sale_date"`
	TotalPrice float64 `parquet:"total_price" json:"total_price"`
}

type Snapshot struct {
	Customers []Customer `json:"customers"`
	Products  []Product  `json:"products"`
	Sales     []Sale     `json:"sales"`
}

// RowCounts maps each table to its number of rows.
func (s Snapshot) RowCounts() map[string]int {
	return map[string]int{
		TableCustomers: len(s.Customers),
		TableProducts:  len(s.Products),
		TableSales:     len(s.Sales),
	}
}

// Builtin returns the demo dataset. Every call returns fresh slices.
func Builtin() Snapshot {
	return Snapshot{
		Customers: []Customer{
			{ID: 1, Name: "John Doe", Email: "john@example.com", SignupDate: "2023-01-15"},
			{ID: 2, Name: "Jane Smith", Email: "jane@example.com", SignupDate: "2023-02-20"},
			{ID: 3, Name: "Bob Johnson", Email: "bob@example.com", SignupDate: "2023-03-10"},
			{ID: 4, Name: "Alice Brown", Email: "alice@example.com", SignupDate: "2023-04-05"},
			{ID: 5, Name: "Charlie Davis", Email: "charlie@example.com", SignupDate: "2023-05-12"},
		},
		Products: []Product{
			{ID: 1, Name: "Laptop", Category: "Electronics", Price: 1200.00, Inventory: 50},
			{ID: 2, Name: "Smartphone", Category: "Electronics", Price: 800.00, Inventory: 100},
			{ID: 3, Name: "Headphones", Category: "Electronics", Price: 150.00, Inventory: 200},
			{ID: 4, Name: "T-shirt", Category: "Clothing", Price: 25.00, Inventory: 500},
			{ID: 5, Name: "Jeans", Category: "Clothing", Price: 45.00, Inventory: 300},
			{ID: 6, Name: "Sneakers", Category: "Footwear", Price: 80.00, Inventory: 150},
			{ID: 7, Name: "Coffee Maker", Category: "Home Appliances", Price: 120.00, Inventory: 75},
			{ID: 8, Name: "Blender", Category: "Home Appliances", Price: 60.00, Inventory: 100},
		},
		Sales: []Sale{
			{ID: 1, CustomerID: 1, ProductID: 1, Quantity: 1, SaleDate: "2023-06-10", TotalPrice: 1200.00},
			{ID: 2, CustomerID: 2, ProductID: 2, Quantity: 2, SaleDate: "2023-06-15", TotalPrice: 1600.00},
			{ID: 3, CustomerID: 3, ProductID: 3, Quantity: 1, SaleDate: "2023-06-20", TotalPrice: 150.00},
			{ID: 4, CustomerID: 4, ProductID: 4, Quantity: 3, SaleDate: "2023-07-05", TotalPrice: 75.00},
			{ID: 5, CustomerID: 5, ProductID: 5, Quantity: 2, SaleDate: "2023-07-10", TotalPrice: 90.00},
			{ID: 6, CustomerID: 1, ProductID: 6, Quantity: 1, SaleDate: "2023-07-15", TotalPrice: 80.00},
			{ID: 7, CustomerID: 2, ProductID: 7, Quantity: 1, SaleDate: "2023-07-20", TotalPrice: 120.00},
			{ID: 8, CustomerID: 3, ProductID: 8, Quantity: 2, SaleDate: "2023-07-25", TotalPrice: 120.00},
			{ID: 9, CustomerID: 4, ProductID: 1, Quantity: 1, SaleDate: "2023-08-01", TotalPrice: 1200.00},
			{ID: 10, CustomerID: 5, ProductID: 2, Quantity: 1, SaleDate: "2023-08-05", TotalPrice: 800.00},
		},
	}
}
