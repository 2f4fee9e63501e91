package main

import (
	"encoding/json"
	"fmt"

	"github.com/kimata/merhist"
)

// Run executes the fetch-one command: log in, fetch the referenced order,
// and print the extracted item as JSON. Nothing is persisted.
func (c *FetchOneCmd) Run(deps *Dependencies) error {
	id, shop, err := merhist.ParseOrderURL(c.URL)
	if err != nil {
		return err
	}

	ref := merhist.OrderRef{
		ID:         id,
		RecordType: merhist.RecordType(c.Type),
		Shop:       shop,
		OrderURL:   c.URL,
	}

	if err := deps.Session.Login(deps.Ctx); err != nil {
		return err
	}

	item, err := deps.Fetcher.Fetch(deps.Ctx, ref)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(deps.Stdout, string(out))
	return nil
}
