package cli

import (
	"io"

	"hsrelay/internal/deliveries"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	JSON    bool `long:"json" description:"Output in JSON format"`
	Verbose bool `long:"verbose" description:"Enable verbose output"`
	Version bool `long:"version" description:"Show version and exit"`
}

// HashCommand prints the domain hash used as the first field of the
// tracking cookies.
type HashCommand struct {
	Args struct {
		Domains []string `positional-arg-name:"domain" required:"1"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	out     io.Writer
}

// ChatScriptCommand prints the conversations widget loader.
type ChatScriptCommand struct {
	Account string `long:"account" description:"HubSpot account id (defaults to HSRELAY_ACCOUNT_ID)"`
	Region  string `long:"region" description:"Region prefix such as eu1 (defaults to HSRELAY_REGION_PREFIX)"`

	globals *GlobalFlags
	out     io.Writer
}

// VisitorCommand decodes a Cookie header into the visitor's tracking state.
type VisitorCommand struct {
	Cookie string `long:"cookie" description:"Raw Cookie header value (required)" required:"yes"`

	globals *GlobalFlags
	out     io.Writer
}

// DeliveriesCommand lists recent outbound deliveries.
type DeliveriesCommand struct {
	Limit   int    `long:"limit" description:"Maximum rows" default:"20"`
	Kind    string `long:"kind" description:"Only this request kind (tracking, collected-form, legacy-form, integration-form)"`
	Summary bool   `long:"summary" description:"Print per-kind counts instead of rows"`
	Since   string `long:"since" description:"Summary window (e.g., 24h, 7d)" default:"24h"`

	globals *GlobalFlags
	out     io.Writer
	store   *deliveries.Store // injectable for testing; nil means open the configured DB
}

// PruneCommand removes journaled deliveries past their retention.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 14d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	out     io.Writer
	store   *deliveries.Store
	days    int
}
