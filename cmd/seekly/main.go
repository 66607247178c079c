package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	seekly "github.com/seekly/seekly-go"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "seekly",
		Short: "seekly is a client for the seekly content & vector search backend",
	}
	root.AddCommand(queryCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func queryCmd() *cobra.Command {
	var (
		configPath string
		collection string
		selects    []string
		about      string
		certainty  float64
		match      string
		filterJSON string
		limit      int
		offset     int
		format     string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "build and execute a query, printing the normalized result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := seekly.LoadConfig(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			client, err := seekly.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			b := client.Collection(collection)
			if len(selects) > 0 {
				b = b.Select(selects...)
			}
			if about != "" {
				if cmd.Flags().Changed("certainty") {
					b = b.About(about, certainty)
				} else {
					b = b.About(about)
				}
			}
			if match != "" {
				b = b.Match(match)
			}
			if filterJSON != "" {
				shorthand := map[string]any{}
				if err := json.Unmarshal([]byte(filterJSON), &shorthand); err != nil {
					return fmt.Errorf("invalid filter json: %w", err)
				}
				b = b.WhereMap(shorthand)
			}
			if cmd.Flags().Changed("limit") {
				b = b.Limit(limit)
			}
			if cmd.Flags().Changed("offset") {
				b = b.Offset(offset)
			}
			result, err := b.Execute(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd, result, format)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "seekly.yaml", "path to the yaml config file")
	cmd.Flags().StringVar(&collection, "collection", "", "target collection")
	cmd.Flags().StringSliceVar(&selects, "select", nil, "field paths to return (dot notation)")
	cmd.Flags().StringVar(&about, "about", "", "semantic concept search")
	cmd.Flags().Float64Var(&certainty, "certainty", 0, "minimum certainty for --about")
	cmd.Flags().StringVar(&match, "match", "", "keyword search")
	cmd.Flags().StringVar(&filterJSON, "filter", "", "filter shorthand as json")
	cmd.Flags().IntVar(&limit, "limit", 0, "result limit")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset")
	cmd.Flags().StringVar(&format, "format", "", "go template rendered per record instead of json output")
	cmd.MarkFlagRequired("collection")
	return cmd
}

func printResult(cmd *cobra.Command, result *seekly.Result, format string) error {
	if format == "" {
		bits, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(bits))
		return nil
	}
	tmpl, err := template.New("format").Funcs(sprig.TxtFuncMap()).Parse(format)
	if err != nil {
		return fmt.Errorf("invalid format template: %w", err)
	}
	for _, record := range result.Payload {
		if err := tmpl.Execute(cmd.OutOrStdout(), record.Record.Value()); err != nil {
			return err
		}
		cmd.Println()
	}
	return nil
}
