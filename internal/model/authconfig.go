package model

const (
	// AuthConfigName is the primary key of the singleton AuthConfig row.
	// It doubles as the session cookie name.
	AuthConfigName = "connection_points_auth"

	DefaultExpiryDays = 30
)

// AuthConfig holds the session signing secret. Exactly one row exists
// once the store has been bootstrapped, and Key never changes after it
// is created: every issued session cookie is signed with it.
type AuthConfig struct {
	Name       string `json:"name"       dynamodbav:"name"`
	ExpiryDays int    `json:"expiryDays" dynamodbav:"expiry_days"`
	Key        string `json:"-"          dynamodbav:"key"`
}
