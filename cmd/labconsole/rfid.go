package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

func newRFIDCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "rfid",
		Short: "RFID credentials and access log",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return validateOutputFormat(output)
		},
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "generate",
			Short: "Print a random 8-character card UID",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				uid := service.NewRFIDService(nil, a.logger).GenerateUID()
				return printValue(cmd.OutOrStdout(), output, map[string]string{"uid": uid}, uid)
			},
		},
		newRFIDRegisterCmd(a, &output),
		newRFIDTapCmd(a, &output),
		newRFIDPruneCmd(a, &output),
		&cobra.Command{
			Use:   "users",
			Short: "List registered cards",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRFID(cmd.Context(), a, func(s *service.RFIDService) error {
					creds, err := s.ListCredentials(cmd.Context())
					if err != nil {
						return err
					}
					slices.SortFunc(creds, func(x, y types.RFIDCredential) int { return cmp.Compare(x.UID, y.UID) })
					if output == "json" {
						return printJSON(cmd.OutOrStdout(), creds)
					}
					return printCredentials(cmd.OutOrStdout(), creds)
				})
			},
		},
		&cobra.Command{
			Use:   "logs",
			Short: "List the access log, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRFID(cmd.Context(), a, func(s *service.RFIDService) error {
					logs, err := s.ListAccessLogs(cmd.Context())
					if err != nil {
						return err
					}
					slices.SortFunc(logs, func(x, y types.AccessLogEntry) int { return cmp.Compare(y.Timestamp, x.Timestamp) })
					if output == "json" {
						return printJSON(cmd.OutOrStdout(), logs)
					}
					return printAccessLog(cmd.OutOrStdout(), logs)
				})
			},
		},
	)
	return cmd
}

func newRFIDRegisterCmd(a *app, output *string) *cobra.Command {
	var id types.RFIDIdentity
	var status string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Write a credential under a freshly generated UID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id.Status = types.Status(status)
			return withRFID(cmd.Context(), a, func(s *service.RFIDService) error {
				uid, err := s.RegisterCredential(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printValue(cmd.OutOrStdout(), *output, map[string]string{"uid": uid}, uid)
			})
		},
	}
	cmd.Flags().StringVar(&id.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&id.IDNumber, "id-number", "", "External ID number")
	cmd.Flags().StringVar(&id.Role, "role", types.DefaultRole, "Role")
	cmd.Flags().StringVar(&status, "status", string(types.StatusActive), "Active or Inactive")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("id-number")
	return cmd
}

func newRFIDTapCmd(a *app, output *string) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "tap UID",
		Short: "Record a card presentation",
		Long:  "Record a card presentation directly in the store, or with --server send it to a running console the way a reader does.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			show := func(e types.AccessLogEntry) error {
				if *output == "json" {
					return printJSON(cmd.OutOrStdout(), e)
				}
				return printAccessLog(cmd.OutOrStdout(), []types.AccessLogEntry{e})
			}

			if server != "" {
				e, err := httpapi.NewReaderClient(server).Tap(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return show(e)
			}
			return withRFID(cmd.Context(), a, func(s *service.RFIDService) error {
				e, err := s.RecordTap(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return show(e)
			})
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Console base URL, e.g. http://localhost:8080")
	return cmd
}

func newRFIDPruneCmd(a *app, output *string) *cobra.Command {
	var keepDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete access log entries older than --keep-days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keepDays <= 0 {
				return fmt.Errorf("--keep-days must be positive, got %d", keepDays)
			}
			b, err := openBackends(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := b.close(); err != nil {
					a.logger.Warn("closing backends", zap.Error(err))
				}
			}()

			p := service.NewAccessLogPruner(b.credentials, service.PrunerConfig{RetentionDays: keepDays}, a.logger.Named("pruner"))
			n, err := p.PruneOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), *output,
				map[string]any{"deleted": n, "cutoff": p.Cutoff().Unix()}, strconv.FormatInt(n, 10))
		},
	}
	cmd.Flags().IntVar(&keepDays, "keep-days", 30, "Days of access log to keep")
	return cmd
}

// withRFID opens the configured backends for the duration of fn.
func withRFID(ctx context.Context, a *app, fn func(*service.RFIDService) error) error {
	b, err := openBackends(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			a.logger.Warn("closing backends", zap.Error(err))
		}
	}()
	return fn(service.NewRFIDService(b.credentials, a.logger, service.WithLocation(a.cfg.Location())))
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printValue(w io.Writer, output string, asJSON any, plain string) error {
	if output == "json" {
		return printJSON(w, asJSON)
	}
	_, err := fmt.Fprintln(w, plain)
	return err
}

func printCredentials(w io.Writer, creds []types.RFIDCredential) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tNAME\tID NUMBER\tROLE\tREGISTERED\tSTATUS")
	for _, c := range creds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.UID, c.FullName, c.IDNumber, c.Role, c.RegisteredAt, c.Status)
	}
	return tw.Flush()
}

func printAccessLog(w io.Writer, logs []types.AccessLogEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tUID\tNAME\tID NUMBER\tROLE")
	for _, e := range logs {
		name := e.FullName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.WaktuReadable, e.UID, name, e.IDNumber, e.Role)
	}
	return tw.Flush()
}
