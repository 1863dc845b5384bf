package analytics

import "github.com/shopspring/decimal"

// SeriesPoint is one day of a dashboard time series.
type SeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type OverviewMetricsDTO struct {
	UsersTotal       int64           `json:"usersTotal"`
	UsersActive      int64           `json:"usersActive"`
	MRR              decimal.Decimal `json:"mrr"`
	ChurnRate        float64         `json:"churnRate"`
	PendingFeedbacks int64           `json:"pendingFeedbacks"`
	OpenTickets      int64           `json:"openTickets"`
}

type SubscriptionBreakdownDTO struct {
	ByPlan   map[string]int64 `json:"byPlan"`
	Trialing int64            `json:"trialing"`
}

// SupportMetricsDTO carries support KPIs that are not computed yet: no
// formula is specified for response times or SLA rules, so both report zero
// rather than a guessed value.
type SupportMetricsDTO struct {
	AvgResponseTimeHours float64 `json:"avgResponseTimeHours"`
	SLABreaches          int64   `json:"slaBreaches"`
}

type OverviewDTO struct {
	Metrics       OverviewMetricsDTO       `json:"metrics"`
	Subscriptions SubscriptionBreakdownDTO `json:"subscriptions"`
	Support       SupportMetricsDTO        `json:"support"`
}

type StatsDTO struct {
	Users     []SeriesPoint `json:"users"`
	Revenue   []SeriesPoint `json:"revenue"`
	ChurnRate []SeriesPoint `json:"churnRate"`
	Period    string        `json:"period"`
}
