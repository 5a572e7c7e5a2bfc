package auth

import (
	"os"
	"os/user"

	"github.com/zalando/go-keyring"
)

// keyringService is the fixed service name Claude Code stores its
// credentials under in the platform secret store.
const keyringService = "Claude Code-credentials"

// keyringAccount returns the account name for the keyring lookup: the
// current OS user, matching how the entry was written.
func keyringAccount() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if cu, err := user.Current(); err == nil {
		return cu.Username
	}
	return ""
}

// readKeyring fetches the raw credential envelope from the secret store.
// Returns keyring.ErrNotFound when no entry exists; other errors usually
// mean the secret store itself is unavailable.
func readKeyring() (string, error) {
	return keyring.Get(keyringService, keyringAccount())
}
