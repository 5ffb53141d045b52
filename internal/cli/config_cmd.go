package cli

import (
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect resolved configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print configuration after env, .env file and defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			// LogValue уже скрывает пароль брокера.
			attrs := cfg.LogValue().Group()
			rows := make([][]string, 0, len(attrs))
			data := make(map[string]string, len(attrs))
			for _, a := range attrs {
				v := a.Value.String()
				rows = append(rows, []string{a.Key, v})
				data[a.Key] = v
			}

			return opts.output(cmd).Print([]string{"KEY", "VALUE"}, rows, data)
		},
	})

	return cmd
}
