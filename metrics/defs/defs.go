package defs

// MetricID identifies one entry of the fixed metric catalog.
type MetricID uint8

const (
	LoginsTotal MetricID = iota
	FailedLoginAttemptsTotal
	RegistrationsTotal
	ResponseErrorsTotal
	RequestDuration
	UserEventsTotal
	AdminEventsTotal
	ActiveSessions
	metricIDCount
)

// Count is the number of catalog entries.
const Count = int(metricIDCount)

// Kind is the Prometheus metric type of a definition.
type Kind uint8

const (
	KindCounter Kind = iota + 1
	KindGauge
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Label names shared across definitions.
const (
	LabelRealm     = "realm"
	LabelProvider  = "provider"
	LabelError     = "error"
	LabelClientID  = "client_id"
	LabelCode      = "code"
	LabelMethod    = "method"
	LabelRoute     = "route"
	LabelEventName = "event_name"
	LabelResource  = "resource"
)

// Definition declares one metric. Labels order is fixed: every recording call
// supplies exactly len(Labels) values in this order.
type Definition struct {
	ID      MetricID
	Name    string
	Help    string
	Labels  []string
	Kind    Kind
	Buckets []float64
}

// RequestDurationBuckets are the upper bounds, in milliseconds, of the request
// duration histogram.
var RequestDurationBuckets = []float64{2, 10, 100, 1000}

// Catalog is the complete, ordered list of metric definitions.
var Catalog = []Definition{
	{
		ID:     LoginsTotal,
		Name:   "keycloak_logins_total",
		Help:   "Total successful logins",
		Labels: []string{LabelRealm, LabelProvider},
		Kind:   KindCounter,
	},
	{
		ID:     FailedLoginAttemptsTotal,
		Name:   "keycloak_failed_login_attempts_total",
		Help:   "Total failed login attempts",
		Labels: []string{LabelRealm, LabelProvider, LabelError, LabelClientID},
		Kind:   KindCounter,
	},
	{
		ID:     RegistrationsTotal,
		Name:   "keycloak_registrations_total",
		Help:   "Total registered users",
		Labels: []string{LabelRealm, LabelProvider},
		Kind:   KindCounter,
	},
	{
		ID:     ResponseErrorsTotal,
		Name:   "keycloak_response_errors_total",
		Help:   "Total number of error responses",
		Labels: []string{LabelCode, LabelMethod, LabelRoute},
		Kind:   KindCounter,
	},
	{
		ID:      RequestDuration,
		Name:    "keycloak_request_duration",
		Help:    "Request duration",
		Labels:  []string{LabelMethod, LabelRoute},
		Kind:    KindHistogram,
		Buckets: RequestDurationBuckets,
	},
	{
		ID:     UserEventsTotal,
		Name:   "keycloak_user_events_total",
		Help:   "Keycloak user events",
		Labels: []string{LabelRealm, LabelEventName},
		Kind:   KindCounter,
	},
	{
		ID:     AdminEventsTotal,
		Name:   "keycloak_admin_events_total",
		Help:   "Keycloak admin events",
		Labels: []string{LabelRealm, LabelEventName, LabelResource},
		Kind:   KindCounter,
	},
	{
		ID:     ActiveSessions,
		Name:   "keycloak_active_sessions_count",
		Help:   "Active user sessions count",
		Labels: []string{LabelRealm, LabelClientID},
		Kind:   KindGauge,
	},
}

// Lookup returns the definition for id.
func Lookup(id MetricID) (Definition, bool) {
	if int(id) >= len(Catalog) {
		return Definition{}, false
	}
	return Catalog[id], true
}

// ByName returns the definition registered under name.
func ByName(name string) (Definition, bool) {
	for _, def := range Catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
