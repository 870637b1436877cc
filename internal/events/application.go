package events

// Application is a tenant configuration event, keyed by application id on
// the configuration topic. A record with a missing payload (or a missing
// per-protocol block for the consuming worker) is a delete marker.
type Application struct {
	ID string `json:"id"`

	// VersionToken is opaque change-detection material set by the
	// producer, typically its update timestamp. An incoming configuration
	// supersedes a stored one only when the tokens differ.
	VersionToken string `json:"updated_at"`

	Apple  *AppleConfig  `json:"apple,omitempty"`
	Google *GoogleConfig `json:"google,omitempty"`
	Web    *WebConfig    `json:"web,omitempty"`
}

// AppleEndpoint selects the APNs environment.
type AppleEndpoint string

const (
	AppleEndpointProduction AppleEndpoint = "production"
	AppleEndpointSandbox    AppleEndpoint = "sandbox"
)

// AppleConfig holds the APNs connection material for one tenant. Exactly
// one of Certificate or Token is set.
type AppleConfig struct {
	Endpoint  AppleEndpoint `json:"endpoint"`
	APNsTopic string        `json:"apns_topic"`

	Certificate *AppleCertificateAuth `json:"certificate,omitempty"`
	Token       *AppleTokenAuth       `json:"token,omitempty"`
}

// AppleCertificateAuth is certificate-based APNs authentication.
type AppleCertificateAuth struct {
	// PKCS12 is the raw certificate bundle. JSON encodes it as base64.
	PKCS12   []byte `json:"pkcs12"`
	Password string `json:"password"`
}

// AppleTokenAuth is token-based (p8 signing key) APNs authentication.
type AppleTokenAuth struct {
	PKCS8  []byte `json:"pkcs8"`
	KeyID  string `json:"key_id"`
	TeamID string `json:"team_id"`
}

// GoogleConfig holds the FCM server key for one tenant.
type GoogleConfig struct {
	APIKey string `json:"api_key"`
}

// WebConfig holds the Web Push material for one tenant. All fields are
// optional: a tenant with none still sends VAPID-less pushes.
type WebConfig struct {
	// FCMAPIKey is the legacy GCM/FCM server key attached to pushes
	// against the Google endpoint.
	FCMAPIKey string `json:"fcm_api_key,omitempty"`

	VAPIDPublicKey  string `json:"vapid_public_key,omitempty"`
	VAPIDPrivateKey string `json:"vapid_private_key,omitempty"`
	// Subscriber is the contact URI claimed in the VAPID token.
	Subscriber string `json:"subscriber,omitempty"`
}
