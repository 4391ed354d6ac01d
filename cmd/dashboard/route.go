package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meghaexpress/hub-dashboard/internal/errors"
	"github.com/meghaexpress/hub-dashboard/internal/web"
	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
	"github.com/meghaexpress/hub-dashboard/pkg/routepath"
)

func routeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route <path>...",
		Short: "Show how the route guard classifies paths",
		Long: `Show how the route filter classifies each path for a visitor
without a session token and for one with a token.

Examples:
  dashboard route /dashboard /about /signup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("E400").WithDetail("Give at least one path, e.g. dashboard route /dashboard.")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			policy := policyFromConfig(cfg.Auth).Extend(routegate.AddPublicPaths(web.PublicAPIPaths...))
			return printRoutes(cmd, policy, routegate.NewMatcher(), args)
		},
	}
	return cmd
}

func printRoutes(cmd *cobra.Command, policy *routegate.Policy, matcher *routegate.Matcher, paths []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tPUBLIC\tWITHOUT TOKEN\tWITH TOKEN")
	for _, raw := range paths {
		path, err := routepath.NavPath(raw)
		if err != nil {
			return errors.New("E400").WithKey(raw).Wrap(err)
		}
		if !matcher.Match(path) {
			fmt.Fprintf(tw, "%s\t-\tnot filtered\tnot filtered\n", path)
			continue
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n",
			path,
			policy.IsPublic(path),
			describe(policy.Classify(path, false)),
			describe(policy.Classify(path, true)))
	}
	return tw.Flush()
}

func describe(a routegate.Action) string {
	if !a.IsRedirect() {
		return a.Kind.String()
	}
	return a.Kind.String() + " -> " + a.Location
}
