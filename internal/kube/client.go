package kube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/moolen/kubediagnose/internal/logging"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Options controls how the cluster connection is established
type Options struct {
	Kubeconfig     string
	Context        string
	QPS            float32
	Burst          int
	RequestTimeout time.Duration
}

// Fetcher reads the cluster objects the diagnostics need. Every call is a
// fresh read; nothing is cached between calls.
type Fetcher interface {
	GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error)
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
	ListPodsBySelector(ctx context.Context, namespace, selector string) ([]corev1.Pod, error)
	GetService(ctx context.Context, namespace, name string) (*corev1.Service, error)
	ListServices(ctx context.Context, namespace string) ([]corev1.Service, error)
	GetEndpoints(ctx context.Context, namespace, name string) (*corev1.Endpoints, error)
	ListNamespaces(ctx context.Context) ([]string, error)
}

// BuildRestConfig resolves credentials. An explicit kubeconfig or context
// wins; otherwise the in-cluster config is tried before the default
// kubeconfig loading rules ($KUBECONFIG, then $HOME/.kube/config).
func BuildRestConfig(opts Options) (*rest.Config, error) {
	var (
		config *rest.Config
		err    error
	)

	if opts.Kubeconfig == "" && opts.Context == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			config, err = loadKubeconfig(opts)
		}
	} else {
		config, err = loadKubeconfig(opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build client config: %w", err)
	}

	if opts.QPS > 0 {
		config.QPS = opts.QPS
	}
	if opts.Burst > 0 {
		config.Burst = opts.Burst
	}
	if opts.RequestTimeout > 0 {
		config.Timeout = opts.RequestTimeout
	}
	config.UserAgent = "kubediagnose"
	return config, nil
}

func loadKubeconfig(opts Options) (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if opts.Kubeconfig != "" {
		rules.ExplicitPath = opts.Kubeconfig
	} else if len(rules.Precedence) == 0 {
		if home, err := os.UserHomeDir(); err == nil {
			rules.Precedence = []string{filepath.Join(home, ".kube", "config")}
		}
	}

	overrides := &clientcmd.ConfigOverrides{CurrentContext: opts.Context}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
}

// NewClientset builds a typed clientset from the given options
func NewClientset(opts Options) (kubernetes.Interface, error) {
	config, err := BuildRestConfig(opts)
	if err != nil {
		return nil, err
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return clientset, nil
}

// Client implements Fetcher over client-go
type Client struct {
	clientset kubernetes.Interface
	logger    *logging.Logger
}

// NewClient wraps an existing clientset
func NewClient(clientset kubernetes.Interface) *Client {
	return &Client{
		clientset: clientset,
		logger:    logging.GetLogger("kube"),
	}
}

// Clientset returns the underlying clientset
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}

// GetPod reads a single pod
func (c *Client) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	c.logger.Debug("Fetching pod %s/%s", namespace, name)
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, newFetchError(ResourcePod, namespace, name, err)
	}
	return pod, nil
}

// ListPods lists every pod of a namespace
func (c *Client) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	return c.listPods(ctx, namespace, "")
}

// ListPodsBySelector lists the pods of a namespace matching a label selector
func (c *Client) ListPodsBySelector(ctx context.Context, namespace, selector string) ([]corev1.Pod, error) {
	return c.listPods(ctx, namespace, selector)
}

func (c *Client) listPods(ctx context.Context, namespace, selector string) ([]corev1.Pod, error) {
	c.logger.Debug("Listing pods in namespace %s (selector=%q)", namespace, selector)
	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, newFetchError(ResourcePod, namespace, "", err)
	}
	return list.Items, nil
}

// GetService reads a single service
func (c *Client) GetService(ctx context.Context, namespace, name string) (*corev1.Service, error) {
	c.logger.Debug("Fetching service %s/%s", namespace, name)
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, newFetchError(ResourceService, namespace, name, err)
	}
	return svc, nil
}

// ListServices lists every service of a namespace
func (c *Client) ListServices(ctx context.Context, namespace string) ([]corev1.Service, error) {
	c.logger.Debug("Listing services in namespace %s", namespace)
	list, err := c.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, newFetchError(ResourceService, namespace, "", err)
	}
	return list.Items, nil
}

// GetEndpoints reads the endpoints of a service. A missing endpoints object
// is not an error and yields nil.
func (c *Client) GetEndpoints(ctx context.Context, namespace, name string) (*corev1.Endpoints, error) {
	c.logger.Debug("Fetching endpoints %s/%s", namespace, name)
	//nolint:staticcheck // the diagnostics read the core/v1 Endpoints object
	ep, err := c.clientset.CoreV1().Endpoints(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if Classify(err) == KindNotFound {
			return nil, nil
		}
		return nil, newFetchError(ResourceEndpoints, namespace, name, err)
	}
	return ep, nil
}

// ListNamespaces returns the namespace names sorted alphabetically
func (c *Client) ListNamespaces(ctx context.Context) ([]string, error) {
	c.logger.Debug("Listing namespaces")
	list, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, newFetchError(ResourceNamespace, "", "", err)
	}

	names := make([]string, 0, len(list.Items))
	for i := range list.Items {
		names = append(names, list.Items[i].Name)
	}
	sort.Strings(names)
	return names, nil
}

// Ping checks that the API server answers. Used for readiness.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.clientset.Discovery().ServerVersion(); err != nil {
		return newFetchError(ResourceCluster, "", "", err)
	}
	return nil
}
