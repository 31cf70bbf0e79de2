// Command rulefilter applies JSON filter rules to CSV, Arrow IPC and DuckDB
// data.
//
//	rulefilter apply --rule '{"key_to_compare": "Country", "comparison_operator": "equal_to", "value_to_compare": "France"}' --data sales.csv
//	rulefilter check --rule-file rule.json
//	rulefilter sql --rule-file rule.json --table sales --date-column InvoiceDate
//
// Every flag can also be set through a RULEFILTER_ environment variable
// (RULEFILTER_LOG_LEVEL, RULEFILTER_IMPLICIT_AND, ...) or a config file
// given with --config.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
