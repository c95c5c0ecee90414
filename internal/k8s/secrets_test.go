package k8s

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	testingcore "k8s.io/client-go/testing"
)

func secret(ns, name string, data map[string]string) *corev1.Secret {
	s := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Data:       map[string][]byte{},
	}
	for k, v := range data {
		s.Data[k] = []byte(v)
	}
	return s
}

func TestLoadCredentials(t *testing.T) {
	full := map[string]string{
		KeyTenantID:     "tenant",
		KeyClientID:     "client",
		KeyClientSecret: " secret\n",
	}

	cases := []struct {
		name    string
		ref     string
		objects []runtime.Object
		want    Credentials
		wantErr string
	}{
		{
			name:    "namespaced_ref",
			ref:     "ops/sp-app",
			objects: []runtime.Object{secret("ops", "sp-app", full)},
			want:    Credentials{TenantID: "tenant", ClientID: "client", ClientSecret: "secret"},
		},
		{
			name:    "bare_name_uses_default_namespace",
			ref:     "sp-app",
			objects: []runtime.Object{secret("default", "sp-app", full)},
			want:    Credentials{TenantID: "tenant", ClientID: "client", ClientSecret: "secret"},
		},
		{
			name:    "missing_keys",
			ref:     "ops/sp-app",
			objects: []runtime.Object{secret("ops", "sp-app", map[string]string{KeyTenantID: "tenant"})},
			wantErr: "missing keys: client_id, client_secret",
		},
		{
			name:    "secret_not_found",
			ref:     "ops/absent",
			wantErr: "failed to read secret ops/absent",
		},
		{
			name:    "invalid_ref",
			ref:     "a/b/c",
			wantErr: "expected namespace/name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := NewClientFromInterface(fake.NewSimpleClientset(tc.objects...), zerolog.Nop())

			got, err := client.LoadCredentials(context.Background(), tc.ref)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestLoadCredentialsAPIError(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("get", "secrets", func(action testingcore.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("forbidden")
	})

	client := NewClientFromInterface(clientset, zerolog.Nop())
	if _, err := client.LoadCredentials(context.Background(), "ops/sp-app"); err == nil || !strings.Contains(err.Error(), "forbidden") {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestParseSecretRef(t *testing.T) {
	cases := []struct {
		ref     string
		ns      string
		name    string
		wantErr bool
	}{
		{ref: "ops/app", ns: "ops", name: "app"},
		{ref: " app ", ns: "default", name: "app"},
		{ref: "", wantErr: true},
		{ref: "/app", wantErr: true},
		{ref: "ops/", wantErr: true},
	}

	for _, tc := range cases {
		ns, name, err := ParseSecretRef(tc.ref)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseSecretRef(%q) expected error", tc.ref)
			}
			continue
		}
		if err != nil || ns != tc.ns || name != tc.name {
			t.Fatalf("ParseSecretRef(%q) = %q, %q, %v", tc.ref, ns, name, err)
		}
	}
}
