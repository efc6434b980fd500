package iammetrics

import (
	"strconv"

	"github.com/MrEthical07/iammetrics/metrics/defs"
)

// resolveProvider returns the identity_provider detail when present and
// DefaultProvider otherwise.
func resolveProvider(ev DomainEvent) string {
	if provider, ok := ev.Detail(DetailIdentityProvider); ok {
		return provider
	}
	return DefaultProvider
}

// RecordLogin counts a successful login for the event's realm and provider.
func (r *Registry) RecordLogin(ev DomainEvent) {
	r.counters[defs.LoginsTotal].
		WithLabelValues(ev.RealmID, resolveProvider(ev)).
		Inc()
}

// RecordRegistration counts a user registration for the event's realm and provider.
func (r *Registry) RecordRegistration(ev DomainEvent) {
	r.counters[defs.RegistrationsTotal].
		WithLabelValues(ev.RealmID, resolveProvider(ev)).
		Inc()
}

// RecordLoginError counts a failed login keyed by realm, provider, error and
// client. Error and ClientID are expected to be set by the caller; they are
// recorded as given.
func (r *Registry) RecordLoginError(ev DomainEvent) {
	r.counters[defs.FailedLoginAttemptsTotal].
		WithLabelValues(ev.RealmID, resolveProvider(ev), ev.Error, ev.ClientID).
		Inc()
}

// RecordGenericEvent counts a user event by realm and event type name.
func (r *Registry) RecordGenericEvent(ev DomainEvent) {
	r.counters[defs.UserEventsTotal].
		WithLabelValues(ev.RealmID, ev.Type.String()).
		Inc()
}

// RecordGenericAdminEvent counts an admin event by realm, operation and resource type.
func (r *Registry) RecordGenericAdminEvent(ev AdminDomainEvent) {
	r.counters[defs.AdminEventsTotal].
		WithLabelValues(ev.RealmID, ev.OperationType.String(), ev.ResourceType.String()).
		Inc()
}

// RecordRequestDuration observes a request duration in milliseconds.
func (r *Registry) RecordRequestDuration(amountMS float64, method, route string) {
	r.histograms[defs.RequestDuration].
		WithLabelValues(method, route).
		Observe(amountMS)
}

// RecordResponseError counts an error response by status code, method and route.
func (r *Registry) RecordResponseError(code int, method, route string) {
	r.counters[defs.ResponseErrorsTotal].
		WithLabelValues(strconv.Itoa(code), method, route).
		Inc()
}

// RecordLogin records ev on the Default registry.
func RecordLogin(ev DomainEvent) { Default().RecordLogin(ev) }

// RecordRegistration records ev on the Default registry.
func RecordRegistration(ev DomainEvent) { Default().RecordRegistration(ev) }

// RecordLoginError records ev on the Default registry.
func RecordLoginError(ev DomainEvent) { Default().RecordLoginError(ev) }

// RecordGenericEvent records ev on the Default registry.
func RecordGenericEvent(ev DomainEvent) { Default().RecordGenericEvent(ev) }

// RecordGenericAdminEvent records ev on the Default registry.
func RecordGenericAdminEvent(ev AdminDomainEvent) { Default().RecordGenericAdminEvent(ev) }

// RecordRequestDuration records a request duration on the Default registry.
func RecordRequestDuration(amountMS float64, method, route string) {
	Default().RecordRequestDuration(amountMS, method, route)
}

// RecordResponseError records an error response on the Default registry.
func RecordResponseError(code int, method, route string) {
	Default().RecordResponseError(code, method, route)
}
