package analytics

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/festago/festago/internal/event"
	"github.com/festago/festago/internal/partner"
)

// Service serves partner-facing analytics. Partners without records of
// their own are shown a small random sample of other partners' data so
// the dashboard is never empty; every response built this way is
// flagged as sample data.
type Service struct {
	records Repository
	events  event.Repository
	reviews event.ReviewRepository
	logger  *slog.Logger
}

// NewService creates an analytics Service.
func NewService(records Repository, events event.Repository, reviews event.ReviewRepository, logger *slog.Logger) *Service {
	return &Service{
		records: records,
		events:  events,
		reviews: reviews,
		logger:  logger,
	}
}

// ForPartner returns the partner's records, or up to SampleLimit
// foreign records when they have none. The second return reports
// whether the data is borrowed sample data.
func (s *Service) ForPartner(partnerID string) ([]*Record, bool, error) {
	own, err := s.records.ListByPartner(partnerID)
	if err != nil {
		return nil, false, err
	}
	if len(own) > 0 {
		return own, false, nil
	}

	sample, err := s.records.Sample(partnerID, SampleLimit)
	if err != nil {
		return nil, false, err
	}
	for _, rec := range sample {
		redactDonor(rec)
	}
	return sample, true, nil
}

// redactDonor strips the identity of the partner whose record is being
// borrowed as sample data. The viewer gets the numbers, not the source.
func redactDonor(rec *Record) {
	rec.PartnerID = ""
	rec.ApplicationID = ""
}

// Get retrieves one record, restricted to what ForPartner would serve:
// the partner's own records always, foreign records only while the
// partner has none of their own.
func (s *Service) Get(partnerID, recordID string) (*Record, error) {
	rec, err := s.records.GetByID(recordID)
	if err != nil {
		return nil, err
	}
	if rec.PartnerID == partnerID {
		return rec, nil
	}
	own, err := s.records.ListByPartner(partnerID)
	if err != nil {
		return nil, err
	}
	if len(own) > 0 {
		return nil, ErrAnalyticsNotFound
	}
	redactDonor(rec)
	return rec, nil
}

// Summarize aggregates the partner's visible records.
func (s *Service) Summarize(partnerID string) (*Summary, error) {
	records, isSample, err := s.ForPartner(partnerID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		IsSampleData: isSample,
		TotalEvents:  len(records),
		RecentEvents: []*Record{},
	}

	var ratingSum, sentimentSum float64
	var best *Record
	for _, rec := range records {
		summary.TotalVisitors += rec.VisitorCount
		summary.TotalSales += rec.EstimatedSales
		summary.TotalReviews += rec.ReviewCount
		ratingSum += rec.AverageRating
		sentimentSum += rec.SentimentScore
		if best == nil || rec.VisitorCount > best.VisitorCount {
			best = rec
		}
	}
	if len(records) > 0 {
		summary.AvgRating = round1(ratingSum / float64(len(records)))
		summary.AvgSentiment = round1(sentimentSum / float64(len(records)))
	}

	if best != nil {
		name := ""
		if e, err := s.events.GetByID(best.EventID); err == nil {
			name = e.Name
		}
		summary.BestEvent = &BestEvent{
			EventID:      best.EventID,
			Name:         name,
			VisitorCount: best.VisitorCount,
			Sales:        best.EstimatedSales,
		}
	}

	recent := append([]*Record(nil), records...)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].GeneratedAt.After(recent[j].GeneratedAt)
	})
	if len(recent) > 3 {
		recent = recent[:3]
	}
	summary.RecentEvents = recent
	return summary, nil
}

// Generate creates the analytics record for a completed application,
// seeded with the event's current review figures. Organizer-provided
// KPIs (visitors, sales, hourly breakdown) are filled in later via the
// record update path. Repeated completion of the same application is a
// no-op.
func (s *Service) Generate(app *partner.Application) (*Record, error) {
	rec := &Record{
		PartnerID:     app.PartnerID,
		EventID:       app.EventID,
		ApplicationID: app.ID,
	}
	if ratings, err := s.reviews.Summary(app.EventID); err == nil {
		rec.AverageRating = ratings.AverageRating
		rec.ReviewCount = ratings.ReviewCount
	}

	if err := s.records.Insert(rec); err != nil {
		if errors.Is(err, ErrDuplicateAnalytics) {
			s.logger.Info("analytics record already exists",
				"partner_id", app.PartnerID,
				"event_id", app.EventID,
			)
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
