// Package k8s loads SharePoint app credentials from a Kubernetes secret.
package k8s

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Client wraps the Kubernetes clientset
type Client struct {
	clientset kubernetes.Interface
	logger    zerolog.Logger
}

// NewClient creates a new Kubernetes client.
// An empty kubeconfig tries in-cluster config, then ~/.kube/config.
func NewClient(kubeconfig string, logger zerolog.Logger) (*Client, error) {
	var config *rest.Config
	var err error

	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, errors.Errorf("failed to get home directory: %w", err)
			}
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}

	if config == nil {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, errors.Errorf("failed to load kubeconfig from %s: %w", kubeconfig, err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, errors.Errorf("failed to create Kubernetes client: %w", err)
	}

	logger = logger.With().Str("component", "k8s").Logger()
	logger.Debug().Str("host", config.Host).Msg("connected to Kubernetes cluster")

	return NewClientFromInterface(clientset, logger), nil
}

// NewClientFromInterface wraps an existing clientset
func NewClientFromInterface(clientset kubernetes.Interface, logger zerolog.Logger) *Client {
	return &Client{clientset: clientset, logger: logger}
}

// Clientset returns the underlying Kubernetes clientset
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}
