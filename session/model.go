package session

// ClientRecord is a client registered in the directory.
type ClientRecord struct {
	RealmID    string
	ClientID   string
	InternalID string
}

// SessionRecord identifies a live session tracked by the directory.
//
// InternalClientID is resolved from ClientID on start when empty.
type SessionRecord struct {
	RealmID          string
	ClientID         string
	InternalClientID string
	SessionID        string
}
