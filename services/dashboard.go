package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"refripartes-backend/dtos"
	"refripartes-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	revenueMonths     = 6
	recentOrdersLimit = 5
	topProductsLimit  = 4
)

// RevenueStatuses are the order statuses whose totals count as revenue.
var RevenueStatuses = []models.OrderStatus{models.OrderStatusPaid}

var spanishMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// DashboardService computes the read-only admin reporting figures.
type DashboardService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{DB: db, Now: time.Now}
}

func (s *DashboardService) Stats(ctx context.Context) (*dtos.DashboardStats, error) {
	db := s.DB.WithContext(ctx)
	stats := &dtos.DashboardStats{}

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	if err := db.Model(&models.Product{}).Where("stock <= ?", models.LowStockThreshold).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, fmt.Errorf("count low stock: %w", err)
	}

	var err error
	if stats.TotalRevenue, err = s.TotalRevenue(ctx); err != nil {
		return nil, err
	}
	if stats.MonthlyRevenue, err = s.MonthlyRevenue(ctx); err != nil {
		return nil, err
	}
	if stats.OrdersByStatus, err = s.OrdersByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.RecentOrders, err = s.RecentOrders(ctx); err != nil {
		return nil, err
	}
	if stats.TopProducts, err = s.TopProducts(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// TotalRevenue sums order totals over RevenueStatuses.
func (s *DashboardService) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("status IN ?", RevenueStatuses).
		Select("COALESCE(SUM(total), 0)").
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}

// MonthlyRevenue returns exactly six buckets, oldest first, ending with the current month.
// Months without orders report zero.
func (s *DashboardService) MonthlyRevenue(ctx context.Context) ([]dtos.MonthlyRevenue, error) {
	now := s.Now()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := currentMonth.AddDate(0, -(revenueMonths - 1), 0)

	var rows []struct {
		CreatedAt time.Time
		Total     decimal.Decimal
	}
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Select("created_at, total").
		Where("status IN ? AND created_at >= ?", RevenueStatuses, start).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load monthly revenue: %w", err)
	}

	buckets := make([]dtos.MonthlyRevenue, revenueMonths)
	index := make(map[string]int, revenueMonths)
	for i := range buckets {
		m := start.AddDate(0, i, 0)
		key := m.Format("2006-01")
		buckets[i] = dtos.MonthlyRevenue{
			Month:   key,
			Label:   fmt.Sprintf("%s %d", spanishMonths[m.Month()-1], m.Year()),
			Revenue: decimal.Zero,
		}
		index[key] = i
	}

	for _, row := range rows {
		key := row.CreatedAt.In(now.Location()).Format("2006-01")
		if i, ok := index[key]; ok {
			buckets[i].Revenue = buckets[i].Revenue.Add(row.Total)
		}
	}
	return buckets, nil
}

// OrdersByStatus counts orders per status; every known status is present.
func (s *DashboardService) OrdersByStatus(ctx context.Context) ([]dtos.StatusCount, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	result := make([]dtos.StatusCount, 0, len(models.OrderStatuses))
	for _, status := range models.OrderStatuses {
		result = append(result, dtos.StatusCount{Status: string(status), Count: counts[string(status)]})
	}
	return result, nil
}

func (s *DashboardService) RecentOrders(ctx context.Context) ([]dtos.RecentOrder, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).Preload("User").
		Order("created_at DESC").
		Limit(recentOrdersLimit).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("load recent orders: %w", err)
	}

	result := make([]dtos.RecentOrder, 0, len(orders))
	for _, o := range orders {
		result = append(result, dtos.RecentOrder{
			ID:            o.ID,
			OrderNumber:   o.OrderNumber,
			Status:        string(o.Status),
			Total:         o.Total,
			CreatedAt:     o.CreatedAt,
			CustomerName:  o.User.Name,
			CustomerEmail: o.User.Email,
		})
	}
	return result, nil
}

// TopProducts ranks products by quantity sold over all order items. Products deleted since
// they were ordered are left out, so fewer than four entries may come back.
func (s *DashboardService) TopProducts(ctx context.Context) ([]dtos.TopProduct, error) {
	db := s.DB.WithContext(ctx)

	var rows []struct {
		ProductID    uuid.UUID
		QuantitySold int64
	}
	if err := db.Model(&models.OrderItem{}).
		Select("product_id, SUM(quantity) AS quantity_sold").
		Group("product_id").
		Order("quantity_sold DESC, product_id ASC").
		Limit(topProductsLimit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("rank top products: %w", err)
	}
	if len(rows) == 0 {
		return []dtos.TopProduct{}, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ProductID
	}

	var products []models.Product
	if err := db.Preload("Category").Preload("Images").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load top products: %w", err)
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	result := make([]dtos.TopProduct, 0, len(rows))
	for _, row := range rows {
		p, ok := byID[row.ProductID]
		if !ok {
			log.Printf("WARNING: top product %s no longer exists, skipping", row.ProductID)
			continue
		}
		result = append(result, dtos.TopProduct{
			ProductID:    p.ID,
			Name:         p.Name,
			Price:        p.Price,
			ImageURL:     p.PrimaryImageURL(),
			CategoryName: p.Category.Name,
			QuantitySold: row.QuantitySold,
		})
	}
	return result, nil
}
