// Package analytics stores per-booth performance records generated
// after a completed event and serves partner-facing summaries.
package analytics

import (
	"errors"
	"time"
)

var (
	// ErrAnalyticsNotFound is returned when a record does not exist.
	ErrAnalyticsNotFound = errors.New("analytics record not found")

	// ErrDuplicateAnalytics is returned when the (partner, event) pair
	// already has a record.
	ErrDuplicateAnalytics = errors.New("analytics record already exists for this event")
)

// SampleLimit caps how many foreign records are served to partners
// without data of their own.
const SampleLimit = 5

// Product is a top-performing product entry.
type Product struct {
	Name    string `json:"name"`
	Clicks  int    `json:"clicks"`
	AvgTime int    `json:"avg_time"` // seconds spent viewing
}

// Keyword is a review keyword with its occurrence count.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Record is one partner's performance at one event.
type Record struct {
	ID            string `json:"id"`
	PartnerID     string `json:"partner_id"`
	EventID       string `json:"event_id"`
	ApplicationID string `json:"application_id"`

	// Core KPIs.
	VisitorCount   int     `json:"visitor_count"`
	EstimatedSales float64 `json:"estimated_sales"`
	AverageRating  float64 `json:"average_rating"`
	ReviewCount    int     `json:"review_count"`

	// Hour of day ("10", "11", ...) to visitor count.
	HourlyVisitors map[string]int `json:"hourly_visitors,omitempty"`

	TopProducts []Product `json:"top_products,omitempty"`

	// Review sentiment analysis.
	PositiveKeywords []Keyword `json:"positive_keywords,omitempty"`
	NegativeKeywords []Keyword `json:"negative_keywords,omitempty"`
	SentimentScore   float64   `json:"sentiment_score"` // 0-100

	GeneratedAt time.Time `json:"generated_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BestEvent identifies the record with the highest visitor count.
type BestEvent struct {
	EventID      string  `json:"event_id"`
	Name         string  `json:"name"`
	VisitorCount int     `json:"visitor_count"`
	Sales        float64 `json:"sales"`
}

// Summary aggregates a partner's records. When the partner has no data
// of their own, the aggregation runs over sample records borrowed from
// other partners and IsSampleData is set.
type Summary struct {
	TotalVisitors int       `json:"total_visitors"`
	TotalSales    float64   `json:"total_sales"`
	AvgRating     float64   `json:"avg_rating"`
	TotalReviews  int       `json:"total_reviews"`
	AvgSentiment  float64   `json:"avg_sentiment"`
	TotalEvents   int       `json:"total_events"`
	IsSampleData  bool      `json:"is_sample_data"`
	BestEvent     *BestEvent `json:"best_event,omitempty"`
	RecentEvents  []*Record `json:"recent_events"`
}
