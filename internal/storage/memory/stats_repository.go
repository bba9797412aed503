package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

type statsRepository struct {
	store *Store
}

// NewStatsRepository возвращает in-memory реализацию StatsRepository.
func NewStatsRepository(store *Store) domain.StatsRepository {
	return &statsRepository{store: store}
}

func (r *statsRepository) DailySales(_ context.Context, from, to time.Time) ([]domain.DailySales, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[time.Time]decimal.Decimal)
	for _, order := range s.orders {
		day := order.CreatedAt.UTC().Truncate(24 * time.Hour)
		if day.Before(from) || day.After(to) {
			continue
		}
		byDay[day] = byDay[day].Add(order.TotalAmount)
	}

	result := make([]domain.DailySales, 0, len(byDay))
	for day, amount := range byDay {
		result = append(result, domain.DailySales{Date: day, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })

	return result, nil
}

func (r *statsRepository) MonthlySales(_ context.Context, year int) ([]domain.MonthlySales, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMonth := make(map[int]decimal.Decimal)
	for _, order := range s.orders {
		created := order.CreatedAt.UTC()
		if created.Year() != year {
			continue
		}
		month := int(created.Month())
		byMonth[month] = byMonth[month].Add(order.TotalAmount)
	}

	result := make([]domain.MonthlySales, 0, len(byMonth))
	for month, amount := range byMonth {
		result = append(result, domain.MonthlySales{Month: month, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })

	return result, nil
}

func (r *statsRepository) TopProducts(_ context.Context, limit int) ([]domain.ProductSales, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[int64]*domain.ProductSales)
	for _, order := range s.orders {
		for _, line := range order.Lines {
			agg, ok := byProduct[line.ProductID]
			if !ok {
				agg = &domain.ProductSales{ProductID: line.ProductID, Name: line.ProductName}
				byProduct[line.ProductID] = agg
			}
			agg.Quantity += int64(line.Quantity)
			agg.Revenue = agg.Revenue.Add(line.Extension())
		}
	}

	result := make([]domain.ProductSales, 0, len(byProduct))
	for _, agg := range byProduct {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Quantity != result[j].Quantity {
			return result[i].Quantity > result[j].Quantity
		}
		return result[i].ProductID < result[j].ProductID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (r *statsRepository) StatusBreakdown(_ context.Context) ([]domain.StatusCount, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStatus := make(map[domain.OrderStatus]int64)
	for _, order := range s.orders {
		byStatus[order.Status]++
	}

	result := make([]domain.StatusCount, 0, len(byStatus))
	for status, count := range byStatus {
		result = append(result, domain.StatusCount{Status: status, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Status < result[j].Status })

	return result, nil
}

var _ domain.StatsRepository = (*statsRepository)(nil)
