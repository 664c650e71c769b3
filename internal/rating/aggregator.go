// Package rating computes supplier ratings from delivery feedback.
package rating

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vesaa/invmon/internal/metrics"
	"github.com/vesaa/invmon/internal/models"
)

// Source reads the delivery and feedback records. Implementations never
// see writes from this package.
type Source interface {
	IndividualRatings(ctx context.Context, supplierID uint) ([]int, error)
	OverallRatings(ctx context.Context, supplierID uint) ([]int, error)
	FeedbackWithRelations(ctx context.Context) ([]models.DeliveryItem, error)
}

// FeedbackRating is one feedback row with its supplier's ratings attached.
// Supplier replaces the expanded supplier object with the supplier's name.
type FeedbackRating struct {
	models.DeliveryItem

	Supplier      string  `json:"supplier"`
	AverageRating float64 `json:"averageRating"`
	OverallRating float64 `json:"overallRating"`
}

// Aggregator computes per-supplier averages on demand.
type Aggregator struct {
	src Source
}

// New returns an aggregator reading from src.
func New(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// AverageIndividualRating is the mean individual_item_rating over the
// supplier's feedback rows, or 0 when there are none.
func (a *Aggregator) AverageIndividualRating(ctx context.Context, supplierID uint) (float64, error) {
	ratings, err := a.src.IndividualRatings(ctx, supplierID)
	if err != nil {
		metrics.RatingLookupFailuresTotal.WithLabelValues("individual").Inc()
		return 0, fmt.Errorf("individual ratings of supplier %d: %w", supplierID, err)
	}
	return mean(ratings), nil
}

// AverageOverallRating is the mean overall_rating over the supplier's
// deliveries, or 0 when there are none. A failed lookup also yields 0: the
// error is logged and counted but not returned, so callers cannot tell a
// store outage from a supplier without deliveries.
func (a *Aggregator) AverageOverallRating(ctx context.Context, supplierID uint) float64 {
	ratings, err := a.src.OverallRatings(ctx, supplierID)
	if err != nil {
		metrics.RatingLookupFailuresTotal.WithLabelValues("overall").Inc()
		log.Printf("[rating] overall rating of supplier %d defaulted to 0: %v", supplierID, err)
		return 0
	}
	return mean(ratings)
}

// ListFeedbackWithRatings returns one row per feedback record, each with
// its supplier's name and both averages. Suppliers repeat across rows; the
// averages are recomputed for every row.
func (a *Aggregator) ListFeedbackWithRatings(ctx context.Context) ([]FeedbackRating, error) {
	start := time.Now()
	defer func() { metrics.RatingListDuration.Observe(time.Since(start).Seconds()) }()

	rows, err := a.src.FeedbackWithRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading feedback: %w", err)
	}

	out := make([]FeedbackRating, 0, len(rows))
	for _, row := range rows {
		avg, err := a.AverageIndividualRating(ctx, row.SupplierID)
		if err != nil {
			return nil, err
		}
		fr := FeedbackRating{
			DeliveryItem:  row,
			AverageRating: avg,
			OverallRating: a.AverageOverallRating(ctx, row.SupplierID),
		}
		if row.Supplier != nil {
			fr.Supplier = row.Supplier.Name
		}
		out = append(out, fr)
	}
	return out, nil
}

func mean(vals []int) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum int
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}
