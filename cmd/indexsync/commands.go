package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/usecase/syncer"
	"github.com/kailas-cloud/indexsync/internal/version"
)

func newEnsureCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the remote index if it does not exist",
		Long: `Creates the remote index from the field declarations of every type.
With --force an existing index is dropped and recreated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.schema.Ensure(ctx, force); err != nil {
					return err
				}
				cmd.Printf("Index %s is %s.\n", a.repo.Name(), a.schema.State())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "drop and recreate the index")
	return cmd
}

func newResyncCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resync [type...]",
		Short: "Wipe and repopulate documents by type",
		Long: `Deletes every remote document of each given type and re-indexes it from the source.
Without arguments every known type is resynchronised.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				progress := func(items []batch.Indexed) {
					a.logger.Debug("batch indexed", zap.Int("count", len(items)))
				}

				if len(args) == 0 {
					sums, err := a.sync.ResyncAll(ctx, a.source, progress)
					for _, s := range sums {
						printSummary(cmd, s)
					}
					return err
				}

				var errs []error
				for _, typ := range args {
					sum, err := resyncOne(ctx, a, typ, progress)
					printSummary(cmd, sum)
					if err != nil {
						errs = append(errs, fmt.Errorf("resync %q: %w", typ, err))
					}
				}
				return errors.Join(errs...)
			})
		},
	}
	return cmd
}

func resyncOne(ctx context.Context, a *app, typ string, progress func([]batch.Indexed)) (syncer.Summary, error) {
	stream, err := a.source.Records(ctx, typ)
	if err != nil {
		return syncer.Summary{Type: typ}, err
	}
	if c, ok := stream.(io.Closer); ok {
		defer c.Close()
	}
	return a.sync.ResyncType(ctx, typ, stream, progress)
}

func printSummary(cmd *cobra.Command, s syncer.Summary) {
	cmd.Printf("%s: deleted %d, indexed %d, failed %d in %d batch(es)\n",
		s.Type, s.Deleted, s.Indexed, s.Failed, s.Batches)
}

func newUpsertCmd(opts *rootOptions) *cobra.Command {
	var (
		typ    string
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "upsert <id>",
		Short: "Index one record",
		Long: `Indexes one record. The record is read from the source unless --type is given,
in which case it is built from --field name=value pairs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				rec, err := recordFromArgs(ctx, a, args[0], typ, fields)
				if err != nil {
					return err
				}
				return a.sync.Upsert(ctx, rec, func(id string) {
					cmd.Printf("Indexed %s.\n", id)
				})
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "logical type of an inline record")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "inline field as name=value (repeatable)")
	return cmd
}

func recordFromArgs(ctx context.Context, a *app, id, typ string, fields []string) (document.Record, error) {
	if typ == "" {
		if len(fields) > 0 {
			return document.Record{}, errors.New("--field requires --type")
		}
		return a.source.Record(ctx, id)
	}
	values, err := parseFields(fields)
	if err != nil {
		return document.Record{}, err
	}
	return document.NewRecord(id, typ, values)
}

func parseFields(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q, want name=value", p)
		}
		out[name] = value
	}
	return out, nil
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete one document from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.sync.Remove(ctx, args[0], func(id string) {
					cmd.Printf("Removed %s.\n", id)
				})
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("indexsync version %s\n", version.String())
		},
	}
}
