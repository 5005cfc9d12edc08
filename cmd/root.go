// Package cmd implements the bootstrap tool's command-line front end: a
// single command taking one positional container path, per spec.md §6's
// invocation surface. Reference: the teacher's cmd/root.go, trimmed to the
// bootstrap core's scope (no discover/list/extract/config subcommands).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/apfsboot/apfs-checkpoint/internal/bootstrap"
	"github.com/apfsboot/apfs-checkpoint/internal/diag"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "apfs-checkpoint <container>",
	Short: "Resolve an APFS container's latest checkpoint and object map",
	Long: `apfs-checkpoint opens a raw APFS container image (or a disk/DMG
image containing one), selects its most recent well-formed checkpoint,
loads the ephemeral objects and object map that checkpoint names, and
reports the result.

It implements only the bootstrap stage of a full APFS tool: no volume
listing, extraction, or recovery. See the project's SPEC_FULL.md for the
exact scope.`,
	Args: cobra.ExactArgs(1),
	RunE: runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also report Fusion and keybag presence in the summary")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress warning, error and abort lines; progress and result lines are still printed")
}

// Execute runs the root command and maps its outcome onto spec.md §6's
// exit-code contract.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var bootErr *bootstrap.Error
	if ok := asBootstrapError(err, &bootErr); ok {
		return bootErr.Kind.ExitCode()
	}
	return 1
}

func asBootstrapError(err error, target **bootstrap.Error) bool {
	for err != nil {
		if be, ok := err.(*bootstrap.Error); ok {
			*target = be
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func runBootstrap(c *cobra.Command, args []string) error {
	logger := diag.New(os.Stdout, os.Stderr)
	if quiet {
		logger = diag.New(os.Stdout, discard{})
	}

	v := viper.New()
	v.SetConfigName("apfs-config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	cfg, err := bootstrap.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	orch := bootstrap.New(cfg, logger)
	report, err := orch.Run(args[0])
	if err != nil {
		logger.Abortf("%v", err)
		return err
	}
	if report == nil {
		// Run reports graceful unimplemented terminations as Kind
		// Unimplemented errors (handled above), so this branch is only a
		// guard against a nil Report without an error.
		return nil
	}

	printReport(logger, report, verbose)
	return nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
