package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

func splitSecretRef(ref string) (scheme, target string, err error) {
	scheme, target, ok := strings.Cut(ref, ":")
	if !ok || target == "" {
		return "", "", fmt.Errorf("secret reference %q must look like env:NAME or file:/path", ref)
	}
	switch scheme {
	case "env", "file":
		return scheme, target, nil
	}
	return "", "", fmt.Errorf("secret reference %q has unknown scheme %q", ref, scheme)
}

// ResolvePassword returns the admin password. PasswordRef takes precedence
// over the plaintext Password.
func (w WebConfig) ResolvePassword() (string, error) {
	if w.PasswordRef == "" {
		return w.Password, nil
	}
	scheme, target, err := splitSecretRef(w.PasswordRef)
	if err != nil {
		return "", err
	}
	switch scheme {
	case "env":
		v, ok := os.LookupEnv(target)
		if !ok {
			return "", fmt.Errorf("environment variable %s referenced by Web.PasswordRef is not set", target)
		}
		return v, nil
	default:
		data, err := os.ReadFile(target)
		if err != nil {
			return "", errors.Wrap(err, "can't read Web.PasswordRef")
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}
