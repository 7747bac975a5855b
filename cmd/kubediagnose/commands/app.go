package commands

import (
	"github.com/moolen/kubediagnose/internal/config"
	"github.com/moolen/kubediagnose/internal/diagnosis"
	"github.com/moolen/kubediagnose/internal/kube"
	"github.com/moolen/kubediagnose/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// app holds what every command needs: the resolved configuration and a
// cluster connection
type app struct {
	cfg      *config.Config
	client   *kube.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// newApp loads the configuration, applies explicitly set flags on top,
// initializes logging and connects to the cluster
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyRootFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := setupLog(cmd, cfg.Log.Levels); err != nil {
		return nil, err
	}

	clientset, err := kube.NewClientset(kube.Options{
		Kubeconfig:     cfg.Kubernetes.Kubeconfig,
		Context:        cfg.Kubernetes.Context,
		QPS:            cfg.Kubernetes.QPS,
		Burst:          cfg.Kubernetes.Burst,
		RequestTimeout: cfg.Kubernetes.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		cfg:      cfg,
		client:   kube.NewClient(clientset),
		registry: registry,
		metrics:  metrics.NewMetrics(registry),
	}, nil
}

// applyRootFlags copies persistent flags the user set explicitly into cfg
func applyRootFlags(cmd *cobra.Command, cfg *config.Config) {
	if flagChanged(cmd, "kubeconfig") {
		cfg.Kubernetes.Kubeconfig = kubeconfigPath
	}
	if flagChanged(cmd, "context") {
		cfg.Kubernetes.Context = kubeContext
	}
	if flagChanged(cmd, "bulk-concurrency") {
		cfg.Analysis.BulkConcurrency = bulkConcurrency
	}
}

// diagnosisService builds the diagnosis service over a namespace-cached fetcher
func (a *app) diagnosisService(opts ...diagnosis.Option) *diagnosis.Service {
	fetcher := kube.NewNamespaceCache(a.client, a.cfg.Cache.NamespaceTTL)
	opts = append([]diagnosis.Option{
		diagnosis.WithMetrics(a.metrics),
		diagnosis.WithBulkConcurrency(a.cfg.Analysis.BulkConcurrency),
	}, opts...)
	return diagnosis.NewService(fetcher, opts...)
}
