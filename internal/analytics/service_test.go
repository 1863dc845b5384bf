package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riasas/ria-backend/pkg/db/models"
	"github.com/riasas/ria-backend/pkg/enums"
	"github.com/riasas/ria-backend/pkg/logger"
)

type stubAnalyticsRepo struct {
	usersTotal     int64
	usersActive    int64
	usersBaseline  int64
	userTimes      []time.Time
	byPlan         map[string]int64
	trialing       int64
	activeBaseline int64
	startTimes     []time.Time
	cancelTimes    []time.Time
	canceledCount  int64
	paidInvoices   []PaidInvoice
	feedbackNew    int64
	feedbackOpen   int64
}

func (s *stubAnalyticsRepo) CountUsers(ctx context.Context) (int64, error) {
	return s.usersTotal, nil
}

func (s *stubAnalyticsRepo) CountUsersWithStatus(ctx context.Context, status enums.UserStatus) (int64, error) {
	return s.usersActive, nil
}

func (s *stubAnalyticsRepo) CountUsersCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	return s.usersBaseline, nil
}

func (s *stubAnalyticsRepo) UserCreationTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return s.userTimes, nil
}

func (s *stubAnalyticsRepo) ActiveSubscriptionCountByPlan(ctx context.Context) (map[string]int64, error) {
	return s.byPlan, nil
}

func (s *stubAnalyticsRepo) CountSubscriptionsWithStatus(ctx context.Context, status enums.SubscriptionStatus) (int64, error) {
	return s.trialing, nil
}

func (s *stubAnalyticsRepo) CountActiveStartedBefore(ctx context.Context, before time.Time) (int64, error) {
	return s.activeBaseline, nil
}

func (s *stubAnalyticsRepo) ActiveStartTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return s.startTimes, nil
}

func (s *stubAnalyticsRepo) CancellationTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return s.cancelTimes, nil
}

func (s *stubAnalyticsRepo) CountCanceledBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return s.canceledCount, nil
}

func (s *stubAnalyticsRepo) PaidInvoicesBetween(ctx context.Context, from, to time.Time) ([]PaidInvoice, error) {
	return s.paidInvoices, nil
}

func (s *stubAnalyticsRepo) CountFeedbackWithStatuses(ctx context.Context, statuses ...string) (int64, error) {
	if len(statuses) == 1 {
		return s.feedbackNew, nil
	}
	return s.feedbackOpen, nil
}

type stubPlanList struct {
	plans []models.Plan
}

func (s *stubPlanList) List(ctx context.Context) ([]models.Plan, error) {
	return s.plans, nil
}

func analyticsPlans() *stubPlanList {
	return &stubPlanList{plans: []models.Plan{
		{ID: uuid.New(), Code: "free", Price: decimal.Zero},
		{ID: uuid.New(), Code: "pro", Price: decimal.RequireFromString("9.99")},
		{ID: uuid.New(), Code: "business", Price: decimal.RequireFromString("29.99")},
	}}
}

func newAnalyticsService(t *testing.T, repo *stubAnalyticsRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Plans:  analyticsPlans(),
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestChurnRate(t *testing.T) {
	if got := churnRate(2, 10); got != 20.0 {
		t.Fatalf("expected 20.0, got %v", got)
	}
	if got := churnRate(1, 3); got != 33.3 {
		t.Fatalf("expected 33.3, got %v", got)
	}
	if got := churnRate(5, 0); got != 0 {
		t.Fatalf("zero denominator must report 0, got %v", got)
	}
}

func TestParsePeriod(t *testing.T) {
	if got := ParsePeriod("year"); got != PeriodYear {
		t.Fatalf("unexpected period %q", got)
	}
	if got := ParsePeriod("fortnight"); got != PeriodWeek {
		t.Fatalf("unknown period must default to week, got %q", got)
	}
}

func TestOverviewComputesMRRFromPaidPlans(t *testing.T) {
	repo := &stubAnalyticsRepo{
		usersTotal:  25,
		usersActive: 20,
		byPlan: map[string]int64{
			"free":     15,
			"pro":      3,
			"business": 1,
		},
		trialing:       2,
		activeBaseline: 10,
		canceledCount:  2,
		feedbackNew:    4,
		feedbackOpen:   6,
	}
	svc := newAnalyticsService(t, repo)

	overview, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	// 3 × 9.99 + 1 × 29.99; the free plan contributes nothing.
	if !overview.Metrics.MRR.Equal(decimal.RequireFromString("59.96")) {
		t.Fatalf("expected 59.96, got %s", overview.Metrics.MRR)
	}
	if overview.Metrics.ChurnRate != 20.0 {
		t.Fatalf("expected churn 20.0, got %v", overview.Metrics.ChurnRate)
	}
	if overview.Metrics.UsersTotal != 25 || overview.Metrics.UsersActive != 20 {
		t.Fatal("user counts not mirrored")
	}
	if overview.Subscriptions.ByPlan["pro"] != 3 || overview.Subscriptions.Trialing != 2 {
		t.Fatal("subscription breakdown not mirrored")
	}
	if overview.Metrics.PendingFeedbacks != 4 || overview.Metrics.OpenTickets != 6 {
		t.Fatal("feedback counts not mirrored")
	}
	if overview.Support.AvgResponseTimeHours != 0 || overview.Support.SLABreaches != 0 {
		t.Fatal("support metrics are unimplemented and must report zero")
	}
}

func TestStatsBuildsDailySeries(t *testing.T) {
	now := time.Now().UTC()
	yesterday := now.AddDate(0, 0, -1)
	repo := &stubAnalyticsRepo{
		usersBaseline: 5,
		userTimes:     []time.Time{yesterday, now, now},
		paidInvoices: []PaidInvoice{
			{PaidDate: now, Total: decimal.RequireFromString("100.50")},
			{PaidDate: now, Total: decimal.RequireFromString("49.50")},
		},
		activeBaseline: 10,
		cancelTimes:    []time.Time{now, now},
	}
	svc := newAnalyticsService(t, repo)

	stats, err := svc.Stats(context.Background(), PeriodWeek)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if len(stats.Users) != 7 || len(stats.Revenue) != 7 || len(stats.ChurnRate) != 7 {
		t.Fatalf("expected 7 points per series, got %d/%d/%d", len(stats.Users), len(stats.Revenue), len(stats.ChurnRate))
	}
	if stats.Period != "week" {
		t.Fatalf("unexpected period %q", stats.Period)
	}

	last := len(stats.Users) - 1
	if stats.Users[last].Value != 8 {
		t.Fatalf("expected cumulative 8 users today, got %v", stats.Users[last].Value)
	}
	if stats.Users[last-1].Value != 6 {
		t.Fatalf("expected cumulative 6 users yesterday, got %v", stats.Users[last-1].Value)
	}
	if stats.Revenue[last].Value != 150.0 {
		t.Fatalf("expected 150.0 revenue today, got %v", stats.Revenue[last].Value)
	}
	if stats.Revenue[0].Value != 0 {
		t.Fatalf("expected no revenue on empty day, got %v", stats.Revenue[0].Value)
	}
	if stats.ChurnRate[last].Value != 20.0 {
		t.Fatalf("expected churn 20.0 today, got %v", stats.ChurnRate[last].Value)
	}
}
