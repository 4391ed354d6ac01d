package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meghaexpress/hub-dashboard/internal/errors"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe an error code",
		Long: `Describe an error code, or list all codes when none is given.

Examples:
  dashboard explain
  dashboard explain E105`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, code := range errors.GetAllCodes() {
					tmpl, _ := errors.GetTemplate(code)
					fmt.Fprintf(out, "%s  %-8s %s\n", code, tmpl.Category, tmpl.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			if _, ok := errors.GetTemplate(code); !ok {
				return errors.New("E400").WithKey(args[0]).WithDetail("Unknown error code. Run `dashboard explain` for the list.")
			}
			fmt.Fprintln(out, errors.New(code).Format())
			return nil
		},
	}
}
