package settings

// Section names. Each section is stored and cached as one JSON document;
// an update replaces the whole section and the most recent write wins.
const (
	SectionSecurity      = "security"
	SectionAccess        = "access"
	SectionBilling       = "billing"
	SectionNotifications = "notifications"
	SectionIntegrations  = "integrations"
	SectionSystem        = "system"
	SectionAudit         = "audit"
)

var sectionOrder = []string{
	SectionSecurity,
	SectionAccess,
	SectionBilling,
	SectionNotifications,
	SectionIntegrations,
	SectionSystem,
	SectionAudit,
}

type SecuritySettings struct {
	MFARequired       bool `json:"mfaRequired"`
	PasswordMinLength int  `json:"passwordMinLength"`
	TokenTTLMinutes   int  `json:"tokenTtlMinutes"`
}

type AccessSettings struct {
	AllowAdminImpersonation bool `json:"allowAdminImpersonation"`
	MaxAdminSessions        int  `json:"maxAdminSessions"`
}

type BillingSettings struct {
	ProrationEnabled bool   `json:"prorationEnabled"`
	GracePeriodDays  int    `json:"gracePeriodDays"`
	DefaultCurrency  string `json:"defaultCurrency"`
}

type NotificationSettings struct {
	SLAWarningHours int    `json:"slaWarningHours"`
	EmailFrom       string `json:"emailFrom"`
	WebhookURL      string `json:"webhookUrl"`
}

type IntegrationSettings struct {
	CRMProvider       string `json:"crmProvider"`
	AnalyticsProvider string `json:"analyticsProvider"`
}

type SystemSettings struct {
	MaintenanceMode      bool `json:"maintenanceMode"`
	BackupFrequencyHours int  `json:"backupFrequencyHours"`
}

type AuditSettings struct {
	RetentionDays int  `json:"retentionDays"`
	ExportEnabled bool `json:"exportEnabled"`
}

// Settings aggregates every section with defaults applied for sections that
// were never written.
type Settings struct {
	Security      SecuritySettings     `json:"security"`
	Access        AccessSettings       `json:"access"`
	Billing       BillingSettings      `json:"billing"`
	Notifications NotificationSettings `json:"notifications"`
	Integrations  IntegrationSettings  `json:"integrations"`
	System        SystemSettings       `json:"system"`
	Audit         AuditSettings        `json:"audit"`
}

// sectionDefault returns a fresh typed value for a section. Unmarshaling a
// stored document into it both validates the shape and fills missing fields
// with the defaults.
func sectionDefault(section string) (any, bool) {
	switch section {
	case SectionSecurity:
		return &SecuritySettings{PasswordMinLength: 8, TokenTTLMinutes: 60}, true
	case SectionAccess:
		return &AccessSettings{MaxAdminSessions: 3}, true
	case SectionBilling:
		return &BillingSettings{ProrationEnabled: true, GracePeriodDays: 7, DefaultCurrency: "EUR"}, true
	case SectionNotifications:
		return &NotificationSettings{SLAWarningHours: 24, EmailFrom: "billing@ria.app"}, true
	case SectionIntegrations:
		return &IntegrationSettings{CRMProvider: "none", AnalyticsProvider: "none"}, true
	case SectionSystem:
		return &SystemSettings{BackupFrequencyHours: 24}, true
	case SectionAudit:
		return &AuditSettings{RetentionDays: 90, ExportEnabled: true}, true
	default:
		return nil, false
	}
}

func (s *Settings) assign(section string, value any) {
	switch section {
	case SectionSecurity:
		s.Security = *value.(*SecuritySettings)
	case SectionAccess:
		s.Access = *value.(*AccessSettings)
	case SectionBilling:
		s.Billing = *value.(*BillingSettings)
	case SectionNotifications:
		s.Notifications = *value.(*NotificationSettings)
	case SectionIntegrations:
		s.Integrations = *value.(*IntegrationSettings)
	case SectionSystem:
		s.System = *value.(*SystemSettings)
	case SectionAudit:
		s.Audit = *value.(*AuditSettings)
	}
}
