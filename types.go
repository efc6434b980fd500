package iammetrics

import "time"

// EventType names a user event emitted by the IAM server.
type EventType string

const (
	EventLogin                  EventType = "LOGIN"
	EventLoginError             EventType = "LOGIN_ERROR"
	EventRegister               EventType = "REGISTER"
	EventRegisterError          EventType = "REGISTER_ERROR"
	EventLogout                 EventType = "LOGOUT"
	EventLogoutError            EventType = "LOGOUT_ERROR"
	EventCodeToToken            EventType = "CODE_TO_TOKEN"
	EventCodeToTokenError       EventType = "CODE_TO_TOKEN_ERROR"
	EventRefreshToken           EventType = "REFRESH_TOKEN"
	EventRefreshTokenError      EventType = "REFRESH_TOKEN_ERROR"
	EventClientLogin            EventType = "CLIENT_LOGIN"
	EventClientLoginError       EventType = "CLIENT_LOGIN_ERROR"
	EventUpdateEmail            EventType = "UPDATE_EMAIL"
	EventUpdatePassword         EventType = "UPDATE_PASSWORD"
	EventUpdateProfile          EventType = "UPDATE_PROFILE"
	EventVerifyEmail            EventType = "VERIFY_EMAIL"
	EventResetPassword          EventType = "RESET_PASSWORD"
	EventRevokeGrant            EventType = "REVOKE_GRANT"
	EventIdentityProviderLogin  EventType = "IDENTITY_PROVIDER_LOGIN"
	EventIdentityProviderLink   EventType = "IDENTITY_PROVIDER_LINK_ACCOUNT"
	EventRemoveTOTP             EventType = "REMOVE_TOTP"
	EventUpdateTOTP             EventType = "UPDATE_TOTP"
	EventSendVerifyEmail        EventType = "SEND_VERIFY_EMAIL"
	EventSendResetPassword      EventType = "SEND_RESET_PASSWORD"
	EventTokenExchange          EventType = "TOKEN_EXCHANGE"
	EventIntrospectToken        EventType = "INTROSPECT_TOKEN"
	EventPermissionTokenRequest EventType = "PERMISSION_TOKEN"
)

func (t EventType) String() string { return string(t) }

// OperationType names an administrative operation.
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationAction OperationType = "ACTION"
)

func (o OperationType) String() string { return string(o) }

// ResourceType names the kind of resource an administrative operation touched.
type ResourceType string

const (
	ResourceRealm              ResourceType = "REALM"
	ResourceRealmRole          ResourceType = "REALM_ROLE"
	ResourceUser               ResourceType = "USER"
	ResourceGroup              ResourceType = "GROUP"
	ResourceClient             ResourceType = "CLIENT"
	ResourceClientRole         ResourceType = "CLIENT_ROLE"
	ResourceClientScope        ResourceType = "CLIENT_SCOPE"
	ResourceIdentityProvider   ResourceType = "IDENTITY_PROVIDER"
	ResourceAuthorizationScope ResourceType = "AUTHORIZATION_SCOPE"
	ResourceAuthFlow           ResourceType = "AUTH_FLOW"
	ResourceUserSession        ResourceType = "USER_SESSION"
)

func (r ResourceType) String() string { return string(r) }

// DetailIdentityProvider is the event detail key carrying the brokered
// identity provider alias.
const DetailIdentityProvider = "identity_provider"

// DefaultProvider is the provider label used when an event names no identity
// provider.
const DefaultProvider = "keycloak"

// DomainEvent is a user event delivered by the host. It is never mutated by
// this package. A nil Details map means the event carried no details.
type DomainEvent struct {
	Type      EventType         `json:"type"`
	RealmID   string            `json:"realmId"`
	ClientID  string            `json:"clientId,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	IPAddress string            `json:"ipAddress,omitempty"`
	Error     string            `json:"error,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Time      time.Time         `json:"time,omitempty"`
}

// Detail returns the named detail and whether it was present.
func (e DomainEvent) Detail(key string) (string, bool) {
	v, ok := e.Details[key]
	return v, ok
}

// AdminDomainEvent is an administrative event delivered by the host.
type AdminDomainEvent struct {
	OperationType OperationType `json:"operationType"`
	ResourceType  ResourceType  `json:"resourceType"`
	RealmID       string        `json:"realmId"`
	ResourcePath  string        `json:"resourcePath,omitempty"`
	Time          time.Time     `json:"time,omitempty"`
}
