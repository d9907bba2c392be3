package source

// Authenticator provides credentials for OCI registries.
type Authenticator interface {
	// Authenticate returns credentials for the given registry. Empty
	// credentials fall back to the Docker keychain.
	Authenticate(registry string) (username, password string, err error)
}

// BasicAuth returns the same credentials for every registry.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Authenticate(string) (string, string, error) {
	return a.Username, a.Password, nil
}
