package main

import (
	"fmt"

	"github.com/kimata/merhist"
)

// Run executes the export command against the already collected records.
func (c *ExportCmd) Run(deps *Dependencies) error {
	for _, t := range merhist.RecordTypes() {
		n, err := deps.Store.Count(deps.Ctx, t)
		if err != nil {
			return err
		}
		fmt.Fprintf(deps.Stdout, "%s: %d records\n", t, n)
	}

	if err := deps.Crawler.Export(deps.Ctx, !c.NoThumb); err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "report written to %s\n", c.Output)
	return nil
}
