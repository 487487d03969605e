package kubernetes

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/config"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
)

// ConfigMapSource reads the site document from one key of a ConfigMap.
type ConfigMapSource struct {
	client    kubernetes.Interface
	namespace string
	name      string
	key       string
}

func NewConfigMapSource(client kubernetes.Interface, namespace, name, key string) *ConfigMapSource {
	return &ConfigMapSource{
		client:    client,
		namespace: namespace,
		name:      name,
		key:       key,
	}
}

func (s *ConfigMapSource) Load(ctx context.Context) (*core.Sites, error) {
	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get configmap %s/%s: %w", s.namespace, s.name, err)
	}

	// Data wins over BinaryData when both carry the key
	var data []byte
	if v, ok := cm.Data[s.key]; ok {
		data = []byte(v)
	} else if v, ok := cm.BinaryData[s.key]; ok {
		data = v
	} else {
		return nil, fmt.Errorf("configmap %s/%s has no key %q", s.namespace, s.name, s.key)
	}

	sites, err := config.ParseSites(data)
	if err != nil {
		return nil, fmt.Errorf("configmap %s/%s key %q: %w", s.namespace, s.name, s.key, err)
	}

	logger.Info("Loaded site document from configmap",
		"namespace", s.namespace,
		"name", s.name,
		"key", s.key,
		"virtual_hosts", len(sites.Hosts))
	return sites, nil
}
