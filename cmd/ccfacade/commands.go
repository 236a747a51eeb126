package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/ccfacade"
	"github.com/unkn0wn-root/ccfacade/upstream"
)

// withApp builds the app for one command run and always tears it down.
func withApp(cmd *cobra.Command, f *rootFlags, run func(context.Context, *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, f)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(sctx)
	}()
	if a.cfg.InProcessStore() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: store.backend=%s keeps records in this process only; they are gone when the command exits\n", a.cfg.Store.Backend)
	}
	return run(ctx, a)
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func storeCmd(f *rootFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Upsert a cached case read from a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var c ccfacade.CachedCase
			if err := json.Unmarshal(raw, &c); err != nil {
				return fmt.Errorf("parse case: %w", err)
			}
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				if err := a.cases.Store(ctx, c); err != nil {
					return err
				}
				key, _ := c.Key()
				g, err := a.docs.Generation(ctx, a.cases.Collection(), key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored uprn=%s collection=%s generation=%d\n", key, a.cases.Collection(), g)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "case JSON file, - for stdin")
	return cmd
}

func readCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "read <uprn>",
		Short: "Print the cached case stored for a UPRN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uprn, err := ccfacade.ParseUPRN(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				c, ok, err := a.cases.Read(ctx, uprn)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no cached case for uprn %s", uprn)
				}
				g, err := a.docs.Generation(ctx, a.cases.Collection(), uprn.String())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "generation=%d\n", g)
				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}
}

func resolveCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <uprn>",
		Short: "Resolve a case via the Case Service, the cache and the Address Index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uprn, err := ccfacade.ParseUPRN(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				svc, err := a.lookup(ctx)
				if err != nil {
					return err
				}
				c, src, err := svc.ResolveByUPRN(ctx, uprn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "source=%s\n", src)
				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}
}

func publishCmd(f *rootFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "publish <destination> <type>",
		Short: "Publish a JSON payload as an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var payload map[string]any
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("parse payload: %w", err)
			}
			if len(payload) == 0 {
				return errors.New("payload is empty")
			}
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				pub, err := a.publisher(ctx)
				if err != nil {
					return err
				}
				defer pub.Close(ctx)
				env, err := pub.Publish(ctx, args[0], args[1], payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published type=%s transactionId=%s\n", env.Header.Type, env.Header.TransactionID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "payload JSON file, - for stdin")
	return cmd
}

func caseCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "case <id>",
		Short: "Fetch a case from the Case Service by case id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				dto, err := a.caseService().GetCaseByID(ctx, args[0])
				if errors.Is(err, upstream.ErrNotFound) {
					return fmt.Errorf("no case with id %s", args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.ToCachedCase())
			})
		},
	}
}

func addressesCmd(f *rootFlags) *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "addresses <postcode>",
		Short: "List Address Index entries for a postcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if offset < 0 || limit <= 0 {
				return fmt.Errorf("invalid page offset=%d limit=%d", offset, limit)
			}
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				page, err := a.addressIndex().AddressesByPostcode(ctx, args[0], offset, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "total=%d offset=%d limit=%d\n", page.Total, page.Offset, page.Limit)
				return printJSON(cmd.OutOrStdout(), page.Addresses)
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "index of the first address")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum addresses to return")
	return cmd
}
