package cli

import (
	"fmt"
	"net/http"
	"time"

	"hsrelay/internal/hubspot"
	"hsrelay/internal/visitors"
)

type cookieJar map[string]string

func (j cookieJar) Get(name string) (string, bool) {
	v, ok := j[name]
	return v, ok && v != ""
}

// Execute implements the go-flags Commander interface for VisitorCommand.
func (c *VisitorCommand) Execute(args []string) error {
	cookies, err := http.ParseCookie(c.Cookie)
	if err != nil {
		return fmt.Errorf("parse cookie header: %w", err)
	}

	jar := make(cookieJar, len(cookies))
	for _, ck := range cookies {
		jar[ck.Name] = ck.Value
	}

	info := hubspot.DescribeVisitor(jar)
	if c.globals.JSON {
		return writeJSON(c.out, info)
	}

	if !info.Known {
		fmt.Fprintln(c.out, "No visitor cookie present.")
		return nil
	}

	fmt.Fprintf(c.out, "Visitor:        %s (%s)\n", info.VisitorID, visitors.VisitorAlias(info.VisitorID))
	fmt.Fprintf(c.out, "Session active: %t\n", info.SessionActive)
	fmt.Fprintf(c.out, "Sessions:       %d\n", info.SessionCount)
	fmt.Fprintf(c.out, "Page views:     %d\n", info.PageViews)
	printTime(c, "First visit:    ", info.FirstVisit)
	printTime(c, "Previous:       ", info.PreviousSession)
	printTime(c, "Current:        ", info.CurrentSession)
	return nil
}

func printTime(c *VisitorCommand, label string, t *time.Time) {
	if t == nil {
		return
	}
	fmt.Fprintf(c.out, "%s%s\n", label, t.Format(time.RFC3339))
}
