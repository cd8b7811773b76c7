package api

import "github.com/mmynk/evensplit/internal/service"

type categorySummaryResponse struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
	Count    int    `json:"count"`
	Average  int64  `json:"average"`
}

type monthlySummaryResponse struct {
	Month   string `json:"month"`
	Total   int64  `json:"total"`
	Count   int    `json:"count"`
	Average int64  `json:"average"`
}

type billSummaryResponse struct {
	BillID      string `json:"bill_id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
}

type trendResponse struct {
	RecentTotal   int64 `json:"recent_total"`
	RecentCount   int   `json:"recent_count"`
	PreviousTotal int64 `json:"previous_total"`
	PreviousCount int   `json:"previous_count"`
}

type analyticsResponse struct {
	TotalBills    int                       `json:"total_bills"`
	TotalAmount   int64                     `json:"total_amount"`
	AverageAmount int64                     `json:"average_amount"`
	ByCategory    []categorySummaryResponse `json:"by_category"`
	ByMonth       []monthlySummaryResponse  `json:"by_month"`
	MostExpensive *billSummaryResponse      `json:"most_expensive,omitempty"`
	Trend         trendResponse             `json:"trend"`
}

func toAnalyticsResponse(summary *service.Summary) analyticsResponse {
	resp := analyticsResponse{
		TotalBills:    summary.TotalBills,
		TotalAmount:   int64(summary.TotalAmount),
		AverageAmount: int64(summary.AverageAmount),
		ByCategory:    make([]categorySummaryResponse, 0, len(summary.ByCategory)),
		ByMonth:       make([]monthlySummaryResponse, 0, len(summary.ByMonth)),
		Trend: trendResponse{
			RecentTotal:   int64(summary.Trend.RecentTotal),
			RecentCount:   summary.Trend.RecentCount,
			PreviousTotal: int64(summary.Trend.PreviousTotal),
			PreviousCount: summary.Trend.PreviousCount,
		},
	}
	for _, cat := range summary.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categorySummaryResponse{
			Category: string(cat.Category),
			Total:    int64(cat.Total),
			Count:    cat.Count,
			Average:  int64(cat.Average),
		})
	}
	for _, month := range summary.ByMonth {
		resp.ByMonth = append(resp.ByMonth, monthlySummaryResponse{
			Month:   month.Month,
			Total:   int64(month.Total),
			Count:   month.Count,
			Average: int64(month.Average),
		})
	}
	if summary.MostExpensive != nil {
		resp.MostExpensive = &billSummaryResponse{
			BillID:      summary.MostExpensive.BillID,
			Description: summary.MostExpensive.Description,
			Category:    string(summary.MostExpensive.Category),
			Amount:      int64(summary.MostExpensive.Amount),
		}
	}
	return resp
}
