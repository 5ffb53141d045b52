package cli

import (
	"github.com/spf13/cobra"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/config"
)

// globalOpts — значения persistent-флагов корневой команды.
type globalOpts struct {
	envFile    string
	jsonOutput bool
}

func (g *globalOpts) loadConfig() (*config.Config, error) {
	return config.Load(g.envFile)
}

func (g *globalOpts) output(cmd *cobra.Command) *Output {
	return NewOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), g.jsonOutput)
}

// NewRootCmd создаёт корневую команду fraudnode.
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "fraudnode",
		Short:         "Distributed fraud scoring over an external HTTP queue",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env", "", "path to load env from")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(
		newNodeCmd(opts),
		newLocalCmd(opts),
		newModelCmd(opts),
		newConfigCmd(opts),
	)

	return root
}
