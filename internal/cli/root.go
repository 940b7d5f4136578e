// Package cli implements the accountd command tree.
package cli

import (
	"io"
	"os"

	"github.com/MrEthical07/goAccount/internal/config"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewRootCommandWithIO(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCommand(in, out, errOut)
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		stdin:  in,
		stdout: out,
		stderr: errOut,
	}

	cmd := &cobra.Command{
		Use:           "accountd",
		Short:         "Account authentication service",
		Long:          "accountd serves login, session, CSRF, second and third factor and password recovery endpoints, and provisions accounts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the YAML config file (default ./goaccount.yaml or /etc/goaccount/goaccount.yaml)")

	cmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newCreateAccountCmd(a),
		newSetActiveCmd(a),
		newHashPasswordCmd(a),
		newPurgeTokensCmd(a),
	)
	return cmd
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.Load(a.configPath)
}
