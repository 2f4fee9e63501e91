package main

import (
	"fmt"

	"github.com/kimata/merhist"
)

// Run executes the crawl command: login, walk both listings, fetch what is
// new, and render the report.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	results, err := deps.Crawler.Crawl(deps.Ctx)
	if err != nil {
		return err
	}

	for _, t := range merhist.RecordTypes() {
		res := results[t]
		if res == nil {
			continue
		}
		fmt.Fprintf(deps.Stdout, "%s: %d fetched, %d failed\n", t, res.Fetched, res.Failed)
	}
	fmt.Fprintf(deps.Stdout, "report written to %s\n", c.Output)
	return nil
}
