package domain

type CredentialKind string

const (
	// CredentialNone means no credential source has been chosen yet.
	CredentialNone CredentialKind = ""
	// CredentialDelegated is an OAuth access/secret pair obtained through
	// the external authorization flow.
	CredentialDelegated CredentialKind = "delegated"
	// CredentialManual is a personal access token the user typed in.
	CredentialManual CredentialKind = "manual"
)

// Credential identifies the user against the Discogs API. Exactly one variant
// is populated; the constructors guarantee the other variant's fields are
// zeroed so switching sources leaves no trace of the previous one.
type Credential struct {
	Kind        CredentialKind
	AccessToken string
	TokenSecret string
	Token       string
}

func NewDelegatedCredential(accessToken, tokenSecret string) Credential {
	return Credential{
		Kind:        CredentialDelegated,
		AccessToken: accessToken,
		TokenSecret: tokenSecret,
	}
}

func NewManualCredential(token string) Credential {
	return Credential{
		Kind:  CredentialManual,
		Token: token,
	}
}

// IsZero reports whether no credential is set.
func (c Credential) IsZero() bool {
	return c.Kind == CredentialNone
}
