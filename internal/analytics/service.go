package analytics

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	pkgerrors "github.com/riasas/ria-backend/pkg/errors"
	"github.com/riasas/ria-backend/pkg/logger"
)

// Period selects the window of a dashboard time series.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps raw query input onto a known period, defaulting to week.
func ParsePeriod(raw string) Period {
	switch Period(raw) {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(raw)
	default:
		return PeriodWeek
	}
}

// Days returns the number of daily buckets the period covers.
func (p Period) Days() int {
	switch p {
	case PeriodMonth:
		return 30
	case PeriodYear:
		return 365
	default:
		return 7
	}
}

const dayKeyFormat = "2006-01-02"

type planRepository interface {
	List(ctx context.Context) ([]models.Plan, error)
}

// Service computes the cross-tenant aggregates behind the admin dashboard.
type Service interface {
	Overview(ctx context.Context) (*OverviewDTO, error)
	Stats(ctx context.Context, period Period) (*StatsDTO, error)
}

type ServiceParams struct {
	Repo   Repository
	Plans  planRepository
	Logger *logger.Logger
}

type service struct {
	repo  Repository
	plans planRepository
	logg  *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "analytics repo required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plans repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:  params.Repo,
		plans: params.Plans,
		logg:  params.Logger,
	}, nil
}

// Overview returns the dashboard KPIs. Monthly recurring revenue counts
// active subscriptions on each paid plan at that plan's current price; churn
// compares this month's cancellations against subscriptions active when the
// month started.
func (s *service) Overview(ctx context.Context) (*OverviewDTO, error) {
	usersTotal, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	usersActive, err := s.repo.CountUsersWithStatus(ctx, enums.UserStatusActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active users")
	}

	byPlan, err := s.repo.ActiveSubscriptionCountByPlan(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count subscriptions by plan")
	}
	planList, err := s.plans.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	mrr := decimal.Zero
	for _, plan := range planList {
		if plan.Price.IsPositive() {
			mrr = mrr.Add(plan.Price.Mul(decimal.NewFromInt(byPlan[plan.Code])))
		}
	}

	trialing, err := s.repo.CountSubscriptionsWithStatus(ctx, enums.SubscriptionStatusTrialing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count trialing subscriptions")
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	activeAtStart, err := s.repo.CountActiveStartedBefore(ctx, monthStart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active at month start")
	}
	canceled, err := s.repo.CountCanceledBetween(ctx, monthStart, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count canceled this month")
	}

	pendingFeedbacks, err := s.repo.CountFeedbackWithStatuses(ctx, "new")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending feedback")
	}
	openTickets, err := s.repo.CountFeedbackWithStatuses(ctx, "new", "read")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open tickets")
	}

	return &OverviewDTO{
		Metrics: OverviewMetricsDTO{
			UsersTotal:       usersTotal,
			UsersActive:      usersActive,
			MRR:              mrr,
			ChurnRate:        churnRate(canceled, activeAtStart),
			PendingFeedbacks: pendingFeedbacks,
			OpenTickets:      openTickets,
		},
		Subscriptions: SubscriptionBreakdownDTO{
			ByPlan:   byPlan,
			Trialing: trialing,
		},
		// Not implemented: average response time and SLA breach counting
		// have no specified rules yet, so the dashboard gets explicit zeros.
		Support: SupportMetricsDTO{},
	}, nil
}

// Stats builds per-day series for user growth, paid revenue and churn over
// the requested period.
func (s *service) Stats(ctx context.Context, period Period) (*StatsDTO, error) {
	days := period.Days()
	today := dayStart(time.Now().UTC())
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1)

	usersBaseline, err := s.repo.CountUsersCreatedBefore(ctx, from)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users baseline")
	}
	userTimes, err := s.repo.UserCreationTimes(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user creation times")
	}
	paidInvoices, err := s.repo.PaidInvoicesBetween(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load paid invoices")
	}
	cancelTimes, err := s.repo.CancellationTimes(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cancellations")
	}
	activeBaseline, err := s.repo.CountActiveStartedBefore(ctx, from)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active baseline")
	}
	startTimes, err := s.repo.ActiveStartTimes(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription starts")
	}

	newUsers := bucketCounts(userTimes)
	cancels := bucketCounts(cancelTimes)
	starts := bucketCounts(startTimes)
	revenuePerDay := make(map[string]decimal.Decimal, len(paidInvoices))
	for _, inv := range paidInvoices {
		key := dayKey(inv.PaidDate)
		revenuePerDay[key] = revenuePerDay[key].Add(inv.Total)
	}

	stats := &StatsDTO{
		Users:     make([]SeriesPoint, 0, days),
		Revenue:   make([]SeriesPoint, 0, days),
		ChurnRate: make([]SeriesPoint, 0, days),
		Period:    string(period),
	}

	cumulativeUsers := usersBaseline
	cumulativeActive := activeBaseline
	for day := from; !day.After(today); day = day.AddDate(0, 0, 1) {
		key := dayKey(day)
		cumulativeUsers += newUsers[key]
		cumulativeActive += starts[key]

		stats.Users = append(stats.Users, SeriesPoint{Date: key, Value: float64(cumulativeUsers)})
		stats.Revenue = append(stats.Revenue, SeriesPoint{Date: key, Value: revenuePerDay[key].Round(2).InexactFloat64()})
		stats.ChurnRate = append(stats.ChurnRate, SeriesPoint{Date: key, Value: churnRate(cancels[key], cumulativeActive)})
	}

	return stats, nil
}

// churnRate is canceled over active-at-start as a percentage, rounded to one
// decimal. A zero denominator reports 0.
func churnRate(canceled, activeAtStart int64) float64 {
	if activeAtStart <= 0 {
		return 0
	}
	return math.Round(float64(canceled)/float64(activeAtStart)*1000) / 10
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dayKeyFormat)
}

func bucketCounts(times []time.Time) map[string]int64 {
	counts := make(map[string]int64, len(times))
	for _, t := range times {
		counts[dayKey(t)]++
	}
	return counts
}
