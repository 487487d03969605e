package factory

import (
	"context"
	"fmt"
	"os"

	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/config"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/discovery/file"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/discovery/kubernetes"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
)

// SourceFactory creates site sources based on configuration
type SourceFactory struct {
	cfg *config.Config

	// newClient is replaced in tests
	newClient func(*rest.Config) (k8s.Interface, error)
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config) *SourceFactory {
	return &SourceFactory{
		cfg: cfg,
		newClient: func(c *rest.Config) (k8s.Interface, error) {
			return k8s.NewForConfig(c)
		},
	}
}

// Create creates a site source based on configuration
func (f *SourceFactory) Create(ctx context.Context) (core.SiteSource, error) {
	switch f.cfg.DiscoveryMode {
	case config.DiscoveryFile:
		logger.Info("Creating file site source", "path", f.cfg.SitesFile)
		return file.NewSource(f.cfg.SitesFile), nil
	case config.DiscoveryKubernetes:
		return f.createConfigMapSource()
	default:
		return nil, fmt.Errorf("unknown discovery mode: %s", f.cfg.DiscoveryMode)
	}
}

func (f *SourceFactory) createConfigMapSource() (core.SiteSource, error) {
	logger.Info("Creating ConfigMap site source",
		"namespace", f.cfg.Namespace,
		"configmap", f.cfg.SitesConfigMap,
		"key", f.cfg.SitesConfigMapKey,
		"kubeconfig", f.cfg.KubeConfigPath,
		"context", f.cfg.KubeContext)

	restConfig, err := f.restConfig()
	if err != nil {
		return nil, err
	}

	client, err := f.newClient(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return kubernetes.NewConfigMapSource(client, f.cfg.Namespace, f.cfg.SitesConfigMap, f.cfg.SitesConfigMapKey), nil
}

func (f *SourceFactory) restConfig() (*rest.Config, error) {
	kubeconfig := f.cfg.KubeConfigPath

	// Outside a cluster fall back to the user's kubeconfig
	if kubeconfig == "" && os.Getenv("KUBERNETES_SERVICE_HOST") == "" {
		if home := os.Getenv("HOME"); home != "" {
			kubeconfig = home + "/.kube/config"
		}
	}

	overrides := &clientcmd.ConfigOverrides{}
	if f.cfg.KubeContext != "" {
		overrides.CurrentContext = f.cfg.KubeContext
		logger.Info("Using specific Kubernetes context", "context", f.cfg.KubeContext)
	}

	if kubeconfig != "" {
		c, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
			overrides,
		).ClientConfig()
		if err == nil {
			return c, nil
		}
		logger.Warn("Failed to load kubeconfig, will try in-cluster config", "path", kubeconfig, "error", err)
	}

	logger.Info("Attempting in-cluster Kubernetes configuration")
	c, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kubernetes config (tried kubeconfig and in-cluster): %w", err)
	}
	return c, nil
}
