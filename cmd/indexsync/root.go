package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/indexsync/internal/config"
)

type rootOptions struct {
	env        string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "indexsync",
		Short:         "Keep a RediSearch-compatible index in sync with a record source",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "environment name, selects config/<env>.yaml")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "explicit config file path")

	cmd.AddCommand(
		newEnsureCmd(opts),
		newResyncCmd(opts),
		newUpsertCmd(opts),
		newRemoveCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// withApp builds the app, waits for the store and runs fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts.env, opts.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.waitForStore(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}
