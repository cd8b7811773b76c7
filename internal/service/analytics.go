package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/mmynk/evensplit/internal/models"
	"github.com/mmynk/evensplit/internal/money"
	"github.com/mmynk/evensplit/internal/storage"
)

// CategorySummary aggregates a user's bills for one category.
type CategorySummary struct {
	Category models.Category
	Total    money.Amount
	Count    int
	Average  money.Amount
}

// MonthlySummary aggregates a user's bills for one calendar month.
type MonthlySummary struct {
	Month   string // YYYY-MM
	Total   money.Amount
	Count   int
	Average money.Amount
}

// trendWindow is the width of one spending-trend bucket.
const trendWindow = 30 * 24 * time.Hour

// TrendSummary compares spending in the last 30 days against the 30 days
// before that.
type TrendSummary struct {
	RecentTotal   money.Amount
	RecentCount   int
	PreviousTotal money.Amount
	PreviousCount int
}

// BillSummary is a one-line reference to a notable bill.
type BillSummary struct {
	BillID      string
	Description string
	Category    models.Category
	Amount      money.Amount
}

// Summary is the spending overview for one user.
type Summary struct {
	TotalBills    int
	TotalAmount   money.Amount
	AverageAmount money.Amount
	ByCategory    []CategorySummary // descending total
	ByMonth       []MonthlySummary  // ascending month
	MostExpensive *BillSummary      // nil when the user has no bills
	Trend         TrendSummary
}

// AnalyticsService computes spending summaries over the bill log.
type AnalyticsService struct {
	store storage.Store
}

// NewAnalyticsService creates an AnalyticsService.
func NewAnalyticsService(store storage.Store) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Summary aggregates all bills the user participates in.
func (s *AnalyticsService) Summary(ctx context.Context, userID string) (*Summary, error) {
	bills, err := s.store.ListBillsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{TotalBills: len(bills)}
	byCategory := make(map[models.Category]*CategorySummary)
	byMonth := make(map[string]*MonthlySummary)

	now := time.Now()
	recentCutoff := now.Add(-trendWindow).Unix()
	previousCutoff := now.Add(-2 * trendWindow).Unix()

	for _, bill := range bills {
		summary.TotalAmount += bill.Total

		switch {
		case bill.CreatedAt >= recentCutoff:
			summary.Trend.RecentTotal += bill.Total
			summary.Trend.RecentCount++
		case bill.CreatedAt >= previousCutoff:
			summary.Trend.PreviousTotal += bill.Total
			summary.Trend.PreviousCount++
		}

		cat, ok := byCategory[bill.Category]
		if !ok {
			cat = &CategorySummary{Category: bill.Category}
			byCategory[bill.Category] = cat
		}
		cat.Total += bill.Total
		cat.Count++

		monthKey := time.Unix(bill.CreatedAt, 0).UTC().Format("2006-01")
		month, ok := byMonth[monthKey]
		if !ok {
			month = &MonthlySummary{Month: monthKey}
			byMonth[monthKey] = month
		}
		month.Total += bill.Total
		month.Count++

		if summary.MostExpensive == nil || bill.Total > summary.MostExpensive.Amount {
			summary.MostExpensive = &BillSummary{
				BillID:      bill.ID,
				Description: bill.Description,
				Category:    bill.Category,
				Amount:      bill.Total,
			}
		}
	}

	if summary.TotalBills > 0 {
		summary.AverageAmount = average(summary.TotalAmount, summary.TotalBills)
	}
	for _, cat := range byCategory {
		cat.Average = average(cat.Total, cat.Count)
		summary.ByCategory = append(summary.ByCategory, *cat)
	}
	for _, month := range byMonth {
		month.Average = average(month.Total, month.Count)
		summary.ByMonth = append(summary.ByMonth, *month)
	}

	sort.Slice(summary.ByCategory, func(i, j int) bool {
		if summary.ByCategory[i].Total != summary.ByCategory[j].Total {
			return summary.ByCategory[i].Total > summary.ByCategory[j].Total
		}
		return summary.ByCategory[i].Category < summary.ByCategory[j].Category
	})
	sort.Slice(summary.ByMonth, func(i, j int) bool {
		return summary.ByMonth[i].Month < summary.ByMonth[j].Month
	})

	return summary, nil
}

// average rounds half-to-even to the nearest minor unit.
func average(total money.Amount, count int) money.Amount {
	return money.Amount(math.RoundToEven(float64(total) / float64(count)))
}
