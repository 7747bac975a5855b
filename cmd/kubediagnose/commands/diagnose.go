package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/moolen/kubediagnose/internal/api"
	"github.com/moolen/kubediagnose/internal/models"
	"github.com/spf13/cobra"
)

// ExitCodeCritical is returned by diagnose commands with --fail-on-critical
// when the overall status is Critical
const ExitCodeCritical = 2

var (
	diagnoseNamespace string
	outputFormat      string
	failOnCritical    bool
	diagnoseTimeout   time.Duration
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run a one-shot diagnosis against the cluster",
	Long: `Diagnose a pod, a service, or every pod or service of a namespace and
print the result. Bulk results are ordered by severity, critical first.`,
}

var diagnosePodCmd = &cobra.Command{
	Use:   "pod NAME",
	Short: "Diagnose a single pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd, api.Target{Resource: "pod", Namespace: diagnoseNamespace, Name: args[0]},
			func(ctx context.Context, d diagnoser) (interface{}, models.Status, error) {
				r, err := d.DebugPod(ctx, diagnoseNamespace, args[0])
				if err != nil {
					return nil, "", err
				}
				return r, r.Status, nil
			})
	},
}

var diagnosePodsCmd = &cobra.Command{
	Use:   "pods",
	Short: "Diagnose every pod in a namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDiagnose(cmd, api.Target{Resource: "pod", Namespace: diagnoseNamespace},
			func(ctx context.Context, d diagnoser) (interface{}, models.Status, error) {
				r, err := d.DebugPods(ctx, diagnoseNamespace)
				if err != nil {
					return nil, "", err
				}
				return r, r.Summary.OverallHealth, nil
			})
	},
}

var diagnoseServiceCmd = &cobra.Command{
	Use:     "service NAME",
	Aliases: []string{"svc"},
	Short:   "Diagnose a single service",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd, api.Target{Resource: "service", Namespace: diagnoseNamespace, Name: args[0]},
			func(ctx context.Context, d diagnoser) (interface{}, models.Status, error) {
				r, err := d.DebugService(ctx, diagnoseNamespace, args[0])
				if err != nil {
					return nil, "", err
				}
				return r, r.Status, nil
			})
	},
}

var diagnoseServicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Diagnose every service in a namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDiagnose(cmd, api.Target{Resource: "service", Namespace: diagnoseNamespace},
			func(ctx context.Context, d diagnoser) (interface{}, models.Status, error) {
				r, err := d.DebugServices(ctx, diagnoseNamespace)
				if err != nil {
					return nil, "", err
				}
				return r, r.Summary.OverallHealth, nil
			})
	},
}

func init() {
	diagnoseCmd.PersistentFlags().StringVarP(&diagnoseNamespace, "namespace", "n", "default", "Namespace of the resource")
	diagnoseCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", OutputText, "Output format: text, json or yaml")
	diagnoseCmd.PersistentFlags().BoolVar(&failOnCritical, "fail-on-critical", false,
		"Exit with code 2 when the overall status is Critical")
	diagnoseCmd.PersistentFlags().DurationVar(&diagnoseTimeout, "timeout", 60*time.Second, "Timeout for the diagnosis")

	diagnoseCmd.AddCommand(diagnosePodCmd)
	diagnoseCmd.AddCommand(diagnosePodsCmd)
	diagnoseCmd.AddCommand(diagnoseServiceCmd)
	diagnoseCmd.AddCommand(diagnoseServicesCmd)
}

// diagnoser is the subset of diagnosis.Service the CLI calls
type diagnoser interface {
	DebugPod(ctx context.Context, namespace, name string) (*models.PodDiagnosticResult, error)
	DebugPods(ctx context.Context, namespace string) (*models.BulkPodDiagnosticResult, error)
	DebugService(ctx context.Context, namespace, name string) (*models.ServiceDiagnosticResult, error)
	DebugServices(ctx context.Context, namespace string) (*models.BulkServiceDiagnosticResult, error)
	ListNamespaces(ctx context.Context) (*models.NamespaceList, error)
}

type diagnoseFunc func(ctx context.Context, d diagnoser) (interface{}, models.Status, error)

func runDiagnose(cmd *cobra.Command, target api.Target, fn diagnoseFunc) error {
	p, err := newPrinter(os.Stdout, outputFormat)
	if err != nil {
		return err
	}
	if err := validateTarget(target); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), diagnoseTimeout)
	defer cancel()
	return diagnose(ctx, a.diagnosisService(), p, target, fn)
}

// diagnose runs fn and prints its result. Errors are mapped to the same
// messages the REST API returns.
func diagnose(ctx context.Context, d diagnoser, p *printer, target api.Target, fn diagnoseFunc) error {
	result, status, err := fn(ctx, d)
	if err != nil {
		return errors.New(api.FromDiagnosisError(err, target).Message)
	}
	if err := p.print(result); err != nil {
		return err
	}
	if failOnCritical && status == models.StatusCritical {
		return &ExitError{Code: ExitCodeCritical}
	}
	return nil
}

func validateTarget(target api.Target) error {
	v := api.NewValidator()
	if err := v.ValidateNamespace(target.Namespace); err != nil {
		return err
	}
	if target.Name == "" {
		return nil
	}
	return v.ValidateName(target.Resource, target.Name)
}
