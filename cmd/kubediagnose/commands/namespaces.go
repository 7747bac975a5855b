package commands

import (
	"context"
	"errors"
	"os"

	"github.com/moolen/kubediagnose/internal/api"
	"github.com/spf13/cobra"
)

var namespacesOutput string

var namespacesCmd = &cobra.Command{
	Use:     "namespaces",
	Aliases: []string{"ns"},
	Short:   "List the namespaces in the cluster",
	Args:    cobra.NoArgs,
	RunE:    runNamespaces,
}

func init() {
	namespacesCmd.Flags().StringVarP(&namespacesOutput, "output", "o", OutputText, "Output format: text, json or yaml")
}

func runNamespaces(cmd *cobra.Command, _ []string) error {
	p, err := newPrinter(os.Stdout, namespacesOutput)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return listNamespaces(cmd.Context(), a.diagnosisService(), p)
}

func listNamespaces(ctx context.Context, d diagnoser, p *printer) error {
	list, err := d.ListNamespaces(ctx)
	if err != nil {
		return errors.New(api.FromNamespaceListError(err).Message)
	}
	return p.print(list)
}
