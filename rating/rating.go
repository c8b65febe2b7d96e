// Package rating keeps the platform rating history and its aggregates.
package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"herbtrace/kv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	KeyTotalReviews     = "platform_total_reviews"
	KeyTotalRating      = "platform_total_rating"
	KeySatisfactionRate = "platform_satisfaction_rate"
	KeyRatings          = "platformRatings"
)

// DefaultDelay is the artificial pause before a rating is recorded.
const DefaultDelay = time.Second

// SatisfiedFrom is the lowest star count that counts as satisfied.
const SatisfiedFrom = 4

// ErrInvalidRating rejects stars outside 1-5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5 stars")

// Entry is one stored rating.
type Entry struct {
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
}

// Stats are the platform-wide aggregates shown next to the form.
type Stats struct {
	TotalReviews     int     `json:"totalReviews"`
	AverageRating    float64 `json:"averageRating"`
	SatisfactionRate float64 `json:"satisfactionRate"`
}

// Rounded returns s with average and satisfaction rounded to two decimals.
func (s Stats) Rounded() Stats {
	s.AverageRating = round2(s.AverageRating)
	s.SatisfactionRate = round2(s.SatisfactionRate)
	return s
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

var labels = [...]string{"", "Poor", "Fair", "Good", "Very Good", "Excellent"}

// Label names a star value; out-of-range values have no label.
func Label(star int) string {
	if star < 1 || star > 5 {
		return ""
	}
	return labels[star]
}

// Valid reports whether star is a selectable rating.
func Valid(star int) bool { return star >= 1 && star <= 5 }

// Service reads and writes ratings through a kv.Store. Submissions do a
// read-modify-write over several keys without any locking, so two concurrent
// submits can lose one of the updates.
type Service struct {
	store  kv.Store
	delay  time.Duration
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithDelay(d time.Duration) Option { return func(s *Service) { s.delay = d } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService stores ratings in store. The submit delay defaults to DefaultDelay.
func NewService(store kv.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		delay:  DefaultDelay,
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:9] },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats loads the persisted aggregates. Missing keys read as zero.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		reviews int
		total   float64
		rate    float64
	)
	if _, err := kv.GetJSON(ctx, s.store, KeyTotalReviews, &reviews); err != nil {
		return Stats{}, err
	}
	if _, err := kv.GetJSON(ctx, s.store, KeyTotalRating, &total); err != nil {
		return Stats{}, err
	}
	if _, err := kv.GetJSON(ctx, s.store, KeySatisfactionRate, &rate); err != nil {
		return Stats{}, err
	}
	return aggregate(reviews, total, rate), nil
}

// Entries returns the full rating history in submission order.
func (s *Service) Entries(ctx context.Context) ([]Entry, error) {
	var list []Entry
	if _, err := kv.GetJSON(ctx, s.store, KeyRatings, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Submit records one rating after the configured delay and returns the
// aggregates recomputed from the whole history.
func (s *Service) Submit(ctx context.Context, star int, feedback string) (Stats, error) {
	if !Valid(star) {
		return Stats{}, ErrInvalidRating
	}
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return Stats{}, ctx.Err()
		case <-t.C:
		}
	}

	list, err := s.Entries(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load ratings: %w", err)
	}
	list = append(list, Entry{
		Rating:    star,
		Feedback:  feedback,
		Timestamp: s.now().UTC(),
		ID:        s.newID(),
	})

	var total float64
	satisfied := 0
	for _, e := range list {
		total += float64(e.Rating)
		if e.Rating >= SatisfiedFrom {
			satisfied++
		}
	}
	reviews := len(list)
	rate := float64(satisfied) / float64(reviews) * 100

	for _, kvp := range []struct {
		key string
		val any
	}{
		{KeyTotalReviews, reviews},
		{KeyTotalRating, total},
		{KeySatisfactionRate, rate},
		{KeyRatings, list},
	} {
		if err := kv.SetJSON(ctx, s.store, kvp.key, kvp.val); err != nil {
			return Stats{}, fmt.Errorf("persist ratings: %w", err)
		}
	}
	s.logger.Info("rating recorded", zap.Int("stars", star), zap.Int("totalReviews", reviews))
	return aggregate(reviews, total, rate), nil
}

func aggregate(reviews int, total, rate float64) Stats {
	st := Stats{TotalReviews: reviews, SatisfactionRate: rate}
	if reviews > 0 {
		st.AverageRating = total / float64(reviews)
	}
	return st
}
