package protonfetcher

import (
	"fmt"
	"time"

	"github.com/WombatFromHell/protonge-fetcher-sub001/internal/version"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/config"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fetcher"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/links"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/logging"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	// Initialize custom template formatting functions
	initTemplateFormatting()

	var verbosity int

	rootCmd := &cobra.Command{
		Use:     "protonfetcher",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// If we get here, no subcommand was provided
			_ = cmd.Help()
			return fmt.Errorf(MsgErrNoCommand)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringP("extract-dir", "x", "", MsgFlagExtract)
	rootCmd.PersistentFlags().StringP("output", "o", "", MsgFlagOutput)
	rootCmd.PersistentFlags().StringP("fork", "f", "", MsgFlagFork)

	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newReleasesCmd())
	rootCmd.AddCommand(newLinksCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newRelinkCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// cmdContext carries the resolved configuration for one invocation.
type cmdContext struct {
	cfg          *config.Config
	paths        paths.Paths
	fork         fork.Fork
	forkExplicit bool
}

// buildContext merges config file, environment and command line flags.
func buildContext(cmd *cobra.Command) (*cmdContext, error) {
	// Configuration lives in the XDG config dir regardless of where
	// releases are extracted to.
	defaults, err := paths.New("", "")
	if err != nil {
		return nil, fmt.Errorf(MsgErrInitPaths, err)
	}

	flags := cmd.Root().PersistentFlags()
	overrides := map[string]interface{}{}
	if v, _ := flags.GetString("extract-dir"); v != "" {
		overrides["extract_dir"] = v
	}
	if v, _ := flags.GetString("output"); v != "" {
		overrides["output_dir"] = v
	}
	forkExplicit := flags.Changed("fork")
	if v, _ := flags.GetString("fork"); v != "" {
		overrides["fork"] = v
	}

	cfg, err := config.Load(defaults.ConfigDir(), overrides)
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadConfig, err)
	}

	fk, err := fork.Parse(cfg.Fork)
	if err != nil {
		return nil, err
	}

	p, err := paths.New(cfg.ExtractDir, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf(MsgErrInitPaths, err)
	}

	return &cmdContext{cfg: cfg, paths: p, fork: fk, forkExplicit: forkExplicit}, nil
}

func (c *cmdContext) newFetcher() *fetcher.Fetcher {
	return fetcher.New(
		time.Duration(c.cfg.TimeoutSeconds)*time.Second,
		c.paths.CacheDir(),
		c.cfg.ShowProgress,
	)
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: MsgFetchShort,
		Long:  MsgFetchLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := buildContext(cmd)
			if err != nil {
				return err
			}
			tag, _ := cmd.Flags().GetString("release")

			dir, err := ctx.newFetcher().FetchAndExtract(fetcher.Request{
				Fork:       ctx.fork,
				Tag:        tag,
				OutputDir:  ctx.paths.OutputDir(),
				ExtractDir: ctx.paths.ExtractDir(),
			})
			if err != nil {
				return err
			}
			cmd.Printf(MsgFetched, dir)
			return nil
		},
	}
	cmd.Flags().StringP("release", "r", "", MsgFlagTag)
	return cmd
}

func newReleasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "releases",
		Aliases: []string{"list"},
		Short:   MsgReleasesShort,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := buildContext(cmd)
			if err != nil {
				return err
			}
			tags, err := ctx.newFetcher().RecentReleases(ctx.fork)
			if err != nil {
				return err
			}
			cmd.Println(MsgReleasesHeader)
			for _, tag := range tags {
				cmd.Printf(MsgReleaseItem, tag)
			}
			return nil
		},
	}
}

func newLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "links",
		Aliases: []string{"ls"},
		Short:   MsgLinksShort,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := buildContext(cmd)
			if err != nil {
				return err
			}

			// without an explicit fork, list every fork's links
			forks := fork.All()
			if ctx.forkExplicit {
				forks = []fork.Fork{ctx.fork}
			}

			f := ctx.newFetcher()
			for _, fk := range forks {
				cmd.Printf(MsgLinksHeader, fk)
				for _, name := range fk.LinkNames() {
					target := f.ListLinks(ctx.paths.ExtractDir(), fk)[name]
					if target == "" {
						cmd.Printf(MsgLinkMissing, name)
						continue
					}
					cmd.Printf(MsgLinkItem, name, target)
				}
			}
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove TAG",
		Aliases: []string{"rm"},
		Short:   MsgRemoveShort,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := buildContext(cmd)
			if err != nil {
				return err
			}
			outcomes, err := ctx.newFetcher().RemoveRelease(ctx.paths.ExtractDir(), args[0], ctx.fork)
			if err != nil {
				return err
			}
			printFailures(cmd, outcomes)
			cmd.Printf(MsgRemoved, args[0])
			return nil
		},
	}
}

func newRelinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relink",
		Short: MsgRelinkShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := buildContext(cmd)
			if err != nil {
				return err
			}
			outcomes, err := ctx.newFetcher().Relink(ctx.paths.ExtractDir(), ctx.fork)
			if err != nil {
				return err
			}
			printFailures(cmd, outcomes)
			cmd.Printf(MsgRelinked, ctx.fork)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: MsgConfigShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := buildContext(cmd)
			if err != nil {
				return err
			}
			out, err := toml.Marshal(map[string]any{
				"extract_dir":     ctx.paths.ExtractDir(),
				"output_dir":      ctx.paths.OutputDir(),
				"fork":            string(ctx.fork),
				"timeout_seconds": ctx.cfg.TimeoutSeconds,
				"releases_limit":  ctx.cfg.ReleasesLimit,
				"show_progress":   ctx.cfg.ShowProgress,
			})
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("protonfetcher version %s\n", version.Version)
			cmd.Printf("  commit: %s\n", version.Commit)
			cmd.Printf("  built:  %s\n", version.Date)
		},
	}
}

func printFailures(cmd *cobra.Command, outcomes links.Outcomes) {
	for _, out := range outcomes.Failed() {
		cmd.PrintErrf(MsgSlotFailed, out.LinkName, out.Err)
	}
}
