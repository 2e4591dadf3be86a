package cli

import (
	"fmt"

	"hsrelay/internal/hubspot"
)

type hashJSON struct {
	Domain string `json:"domain"`
	Hash   int32  `json:"hash"`
}

// Execute implements the go-flags Commander interface for HashCommand.
func (c *HashCommand) Execute(args []string) error {
	rows := make([]hashJSON, 0, len(c.Args.Domains))
	for _, domain := range c.Args.Domains {
		rows = append(rows, hashJSON{Domain: domain, Hash: hubspot.HashDomain(domain)})
	}

	if c.globals.JSON {
		return writeJSON(c.out, rows)
	}
	for _, row := range rows {
		fmt.Fprintf(c.out, "%s\t%d\n", row.Domain, row.Hash)
	}
	return nil
}
