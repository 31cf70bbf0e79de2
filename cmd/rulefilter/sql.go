package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/rulefilter/rule"
)

func newSQLCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print the DuckDB query equivalent to a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.loadRule(cmd)
			if err != nil {
				return err
			}
			now, err := c.clock()
			if err != nil {
				return err
			}

			enc := rule.NewDuckDBEncoder(&rule.EncoderOptions{
				DateColumns: c.v.GetStringSlice("date-column"),
				Now:         now,
			})

			table := c.v.GetString("table")
			if table == "" {
				where, err := enc.Encode(n)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), where)
				return nil
			}

			query, err := enc.Query(table, n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), query)
			return nil
		},
	}

	addRuleFlags(cmd)
	cmd.Flags().String("table", "", "Table name; prints only the WHERE body if empty")
	cmd.Flags().StringSlice("date-column", nil, "Columns holding dates")
	return cmd
}
