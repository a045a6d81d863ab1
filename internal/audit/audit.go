package audit

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/sudo-init-do/servicehub/internal/review"
)

// Counters are a provider's jobs, earnings and rating as one table holds them.
type Counters struct {
	Jobs     int
	Earnings float64
	Rating   float64
}

// Snapshot is everything the audit needs to judge one provider.
type Snapshot struct {
	ProviderID string
	Name       string
	Account    Counters // users row
	Stats      Counters // provider_stats row
	Completed  int
	Earned     float64
	Reviews    []review.Review
}

// Finding is one counter that disagrees with what the source rows imply.
type Finding struct {
	ProviderID string  `json:"providerId"`
	Name       string  `json:"name"`
	Field      string  `json:"field"`
	Stored     float64 `json:"stored"`
	Derived    float64 `json:"derived"`
	Repaired   bool    `json:"repaired"`
}

func (f Finding) rating() bool {
	return f.Field == "rating" || f.Field == "stats.averageRating"
}

func hasRatingDrift(findings []Finding) bool {
	for _, f := range findings {
		if f.rating() {
			return true
		}
	}
	return false
}

func (f Finding) String() string {
	s := fmt.Sprintf("%s (%s) %s: stored %.2f, derived %.2f", f.Name, f.ProviderID, f.Field, f.Stored, f.Derived)
	if f.Repaired {
		s += " [repaired]"
	}
	return s
}

type Report struct {
	Providers int       `json:"providers"`
	Findings  []Finding `json:"findings"`
}

func (r Report) String() string {
	if len(r.Findings) == 0 {
		return fmt.Sprintf("audited %d providers, no drift", r.Providers)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "audited %d providers, %d findings:\n", r.Providers, len(r.Findings))
	for _, f := range r.Findings {
		b.WriteString("  " + f.String() + "\n")
	}
	return b.String()
}

type Repository interface {
	Snapshots(ctx context.Context) ([]Snapshot, error)
}

// Ratings rewrites a provider's rating from its reviews.
type Ratings interface {
	Recompute(ctx context.Context, providerID string) (float64, error)
}

type Alerter interface {
	AdminAlert(ctx context.Context, severity, message string) error
}

// Auditor compares stored provider counters with the reservations and
// reviews they are derived from.
type Auditor struct {
	repo    Repository
	ratings Ratings
	alerts  Alerter
}

func New(repo Repository, ratings Ratings, alerts Alerter) *Auditor {
	return &Auditor{repo: repo, ratings: ratings, alerts: alerts}
}

const (
	earningsTolerance = 0.005
	ratingTolerance   = 1e-6
)

// Check reports drift without touching anything.
func Check(s Snapshot) []Finding {
	var out []Finding
	add := func(field string, stored, derived, tol float64) {
		if math.Abs(stored-derived) > tol {
			out = append(out, Finding{ProviderID: s.ProviderID, Name: s.Name, Field: field, Stored: stored, Derived: derived})
		}
	}
	rating := review.LatestPerServiceMean(s.Reviews)

	add("jobsCompleted", float64(s.Account.Jobs), float64(s.Completed), 0)
	add("totalEarnings", s.Account.Earnings, s.Earned, earningsTolerance)
	add("rating", s.Account.Rating, rating, ratingTolerance)
	add("stats.jobsCompleted", float64(s.Stats.Jobs), float64(s.Completed), 0)
	add("stats.totalEarnings", s.Stats.Earnings, s.Earned, earningsTolerance)
	add("stats.averageRating", s.Stats.Rating, rating, ratingTolerance)
	return out
}

// Run audits every provider. Rating drift is repaired through the review
// aggregator; job and earnings drift is only reported.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	snapshots, err := a.repo.Snapshots(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Providers: len(snapshots), Findings: []Finding{}}
	for _, s := range snapshots {
		findings := Check(s)
		if hasRatingDrift(findings) {
			if _, err := a.ratings.Recompute(ctx, s.ProviderID); err != nil {
				log.Printf("[audit][ERROR] recompute rating for %s: %v", s.ProviderID, err)
			} else {
				for i := range findings {
					findings[i].Repaired = findings[i].rating()
				}
			}
		}
		for _, f := range findings {
			log.Printf("[audit] drift: %s", f)
		}
		report.Findings = append(report.Findings, findings...)
	}

	if len(report.Findings) > 0 && a.alerts != nil {
		if err := a.alerts.AdminAlert(ctx, "warning", report.String()); err != nil {
			log.Printf("[audit][ERROR] admin alert: %v", err)
		}
	}
	log.Printf("[audit] audited %d providers, %d findings", report.Providers, len(report.Findings))
	return report, nil
}

// Schedule runs the audit on spec (standard five-field cron). An empty spec
// disables the scheduler and returns nil.
func (a *Auditor) Schedule(spec string) (*cron.Cron, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := a.Run(context.Background()); err != nil {
			log.Printf("[audit][ERROR] run failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("audit schedule %q: %w", spec, err)
	}
	c.Start()
	log.Printf("[audit] scheduler started (%s)", spec)
	return c, nil
}
