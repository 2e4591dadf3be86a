package cli

import (
	"fmt"

	"hsrelay/internal/config"
	"hsrelay/internal/hubspot"
)

// Execute implements the go-flags Commander interface for ChatScriptCommand.
func (c *ChatScriptCommand) Execute(args []string) error {
	settings := hubspot.Settings{AccountID: c.Account, RegionPrefix: c.Region}
	if settings.AccountID == "" || settings.RegionPrefix == "" {
		cfg := config.GetConfig()
		if settings.AccountID == "" {
			settings.AccountID = cfg.AccountID
		}
		if settings.RegionPrefix == "" {
			settings.RegionPrefix = cfg.RegionPrefix
		}
	}
	if settings.AccountID == "" {
		return fmt.Errorf("account id is required: pass --account or set HSRELAY_ACCOUNT_ID")
	}

	script := hubspot.ChatScript(settings)
	if c.globals.JSON {
		return writeJSON(c.out, map[string]string{"script": script})
	}
	fmt.Fprintln(c.out, script)
	return nil
}
