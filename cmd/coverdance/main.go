// Command coverdance drives a cover-dance career from the terminal: one
// command per player action, with the game saved to a slot after each one.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, badStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "coverdance",
		Short:         "Run a K-pop cover-dance career",
		Long:          "coverdance plays a cover-dance career one action at a time: accept projects, fund training, dress the team, keep friends.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configDir, "config", "./configs", "directory with tuning.yaml and the catalogs")
	pf.StringVar(&opts.saveDir, "save-dir", "./data/save", "save directory (journal, index and archives live here too)")
	pf.StringVar(&opts.slot, "slot", "career", "save slot name")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newNewCmd(opts),
		newStatusCmd(opts),
		newOffersCmd(opts),
		newAcceptCmd(opts),
		newAbandonCmd(opts),
		newPlanCmd(opts),
		newFundCmd(opts),
		newCostumeCmd(opts),
		newAdvanceCmd(opts),
		newRestCmd(opts),
		newRefreshCmd(opts),
		newTrainCmd(opts),
		newBuyCmd(opts),
		newNPCsCmd(opts),
		newChatCmd(opts),
		newGiftCmd(opts),
		newGreetCmd(opts),
		newCollabCmd(opts),
		newTeamCmd(opts),
		newRatingsCmd(opts),
		newJournalCmd(opts),
		newIndexCmd(opts),
		newArchiveCmd(opts),
	)
	return root
}

// play opens the slot, runs fn and saves. A refused command is saved too:
// refusals can still change state, like an offer withdrawn by its leader.
func play(cmd *cobra.Command, opts *rootOptions, fn func(g *game) error) error {
	return withGame(cmd, opts, true, fn)
}

// inspect opens the slot read-only.
func inspect(cmd *cobra.Command, opts *rootOptions, fn func(g *game) error) error {
	return withGame(cmd, opts, false, fn)
}

func withGame(cmd *cobra.Command, opts *rootOptions, persist bool, fn func(g *game) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	g, err := openGame(ctx, opts, opts.logger(cmd.ErrOrStderr()), nil)
	if err != nil {
		return err
	}
	defer g.close()
	err = fn(g)
	if !persist {
		return err
	}
	if serr := g.save(); serr != nil {
		return errors.Join(err, serr)
	}
	return err
}
