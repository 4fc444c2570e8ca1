package auth

import (
	"os"
	"time"

	"simcollect/pkg/config"
)

// EnvironmentStore reads a single read-only account from SIMCOLLECT_EMAIL
// and SIMCOLLECT_PASSWORD.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func envEmail() string    { return os.Getenv(config.EnvPrefix + "EMAIL") }
func envPassword() string { return os.Getenv(config.EnvPrefix + "PASSWORD") }

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. An empty email matches it; any
// other email must equal SIMCOLLECT_EMAIL.
func (e *EnvironmentStore) Retrieve(email string) (*Account, error) {
	envAddr, password := envEmail(), envPassword()
	if envAddr == "" || password == "" {
		return nil, ErrCredentialsNotFound
	}
	if email != "" && email != envAddr {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Email:        envAddr,
		Password:     password,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(email string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(email string) bool {
	_, err := e.Retrieve(email)
	return err == nil
}
