package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardStats is the admin dashboard payload.
type DashboardStats struct {
	TotalUsers     int64            `json:"total_users"`
	TotalProducts  int64            `json:"total_products"`
	TotalOrders    int64            `json:"total_orders"`
	LowStockCount  int64            `json:"low_stock_count"`
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	MonthlyRevenue []MonthlyRevenue `json:"monthly_revenue"`
	OrdersByStatus []StatusCount    `json:"orders_by_status"`
	RecentOrders   []RecentOrder    `json:"recent_orders"`
	TopProducts    []TopProduct     `json:"top_products"`
}

type MonthlyRevenue struct {
	Month   string          `json:"month"` // YYYY-MM
	Label   string          `json:"label"` // e.g. "may 2026"
	Revenue decimal.Decimal `json:"revenue"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type RecentOrder struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
}

type TopProduct struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"image_url"`
	CategoryName string          `json:"category_name"`
	QuantitySold int64           `json:"quantity_sold"`
}
