package k8s

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Keys read from the credentials secret
const (
	KeyTenantID     = "tenant_id"
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
)

// Credentials are app-only SharePoint credentials
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// ParseSecretRef splits "namespace/name". A bare name uses the default namespace.
func ParseSecretRef(ref string) (namespace, name string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", errors.New("empty secret reference")
	}

	parts := strings.Split(ref, "/")
	switch len(parts) {
	case 1:
		return metav1.NamespaceDefault, parts[0], nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return "", "", errors.Errorf("invalid secret reference %q", ref)
		}
		return parts[0], parts[1], nil
	default:
		return "", "", errors.Errorf("invalid secret reference %q: expected namespace/name", ref)
	}
}

// LoadCredentials reads tenant_id, client_id and client_secret from a secret
func (c *Client) LoadCredentials(ctx context.Context, ref string) (Credentials, error) {
	namespace, name, err := ParseSecretRef(ref)
	if err != nil {
		return Credentials{}, err
	}

	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return Credentials{}, errors.Errorf("failed to read secret %s/%s: %w", namespace, name, err)
	}

	value := func(key string) string {
		if v, ok := secret.Data[key]; ok {
			return strings.TrimSpace(string(v))
		}
		return strings.TrimSpace(secret.StringData[key])
	}

	creds := Credentials{
		TenantID:     value(KeyTenantID),
		ClientID:     value(KeyClientID),
		ClientSecret: value(KeyClientSecret),
	}

	var missing []string
	if creds.TenantID == "" {
		missing = append(missing, KeyTenantID)
	}
	if creds.ClientID == "" {
		missing = append(missing, KeyClientID)
	}
	if creds.ClientSecret == "" {
		missing = append(missing, KeyClientSecret)
	}
	if len(missing) > 0 {
		return Credentials{}, errors.Errorf("secret %s/%s is missing keys: %s", namespace, name, strings.Join(missing, ", "))
	}

	c.logger.Debug().Str("secret", namespace+"/"+name).Msg("loaded SharePoint credentials")
	return creds, nil
}
