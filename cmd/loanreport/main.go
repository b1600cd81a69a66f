// Command loanreport runs the loan dashboard pipeline against a spreadsheet
// and prints KPIs, lists filter options or exports the filtered view.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
