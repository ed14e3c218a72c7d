// cmd/formaly-fill/main.go
//
// Formaly terminal respondent.
//
//	formaly-fill fill <form-id>            answer a form field by field
//	formaly-fill field-types [--type t]    list field types and presets
//
// The server defaults to $FORMALY_URL, then http://localhost:8080.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/formaly/internal/client"
	"github.com/yanizio/formaly/internal/fill"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
)

var (
	serverURL string
	timeout   time.Duration
	verbose   bool

	log *zap.SugaredLogger
	api *client.Client
)

var rootCmd = &cobra.Command{
	Use:           "formaly-fill",
	Short:         "Answer Formaly forms from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		log = logger.Console(verbose)
		var err error
		api, err = client.New(serverURL, timeout)
		return err
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var fillCmd = &cobra.Command{
	Use:   "fill <form-id>",
	Short: "Answer a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := logger.WithContext(cmd.Context(), log)
		receipts, err := fill.Run(ctx, form.NewFlow(api, args[0]), fill.Survey{}, cmd.OutOrStdout())
		for _, r := range receipts {
			log.Debugw("response accepted", "form_id", args[0], "response_id", r.ID)
		}
		return err
	},
}

var fieldTypesCmd = &cobra.Command{
	Use:   "field-types",
	Short: "List field types and presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, _ := cmd.Flags().GetString("type")
		cat, err := api.FieldTypes(cmd.Context(), t)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIPO\tRÓTULO\tHTML")
		for _, d := range cat.Types {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.Type, d.Label, d.HTMLType)
		}
		for _, g := range cat.Presets {
			fmt.Fprintf(w, "\n[%s]\t\t\n", g.Category)
			for _, p := range g.Presets {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Label, p.HTMLType)
			}
		}
		return w.Flush()
	},
}

func defaultServer() string {
	if u := os.Getenv("FORMALY_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "Formaly base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	fieldTypesCmd.Flags().String("type", "", "only presets of this field type")

	rootCmd.AddCommand(fillCmd, fieldTypesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}
