package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/watereef7/loss-control-backend/pkg/sdk"
)

const usage = `lossctl is an operator console for the loss-control backend.

Usage:
  lossctl [-addr URL] <command> [arguments]

Commands:
  health        Check the backend is up
  accounts      List connected CRM accounts
  events        Show the backend's recent journal
  users         List account users (-s SUBDOMAIN)
  reasons       List configured loss reasons (-s SUBDOMAIN)
  set-reason    Record why a deal was lost (-s SUBDOMAIN -lead ID -reason ID)
  dashboard     Build the loss-control report (-s SUBDOMAIN [-from DATE] [-to DATE]
                [-days N] [-manager ID] [-pipeline ID])

The backend address comes from -addr or LOSSCTL_ADDR, default
http://localhost:5000.
`

func main() {
	addr := flag.String("addr", envOr("LOSSCTL_ADDR", "http://localhost:5000"), "backend base URL")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := sdk.NewClient(*addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var err error
	switch args[0] {
	case "health":
		err = runHealth(ctx, client)
	case "accounts":
		err = runAccounts(ctx, client)
	case "events":
		err = runEvents(ctx, client)
	case "users":
		err = runUsers(ctx, client, args[1:])
	case "reasons":
		err = runReasons(ctx, client, args[1:])
	case "set-reason":
		err = runSetReason(ctx, client, args[1:])
	case "dashboard":
		err = runDashboard(ctx, client, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "lossctl: unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("[LOSSCTL]: %v", err)
	}
}

func runHealth(ctx context.Context, client *sdk.Client) error {
	if err := client.Health(ctx); err != nil {
		return err
	}
	fmt.Println("backend is up")
	return nil
}

func runAccounts(ctx context.Context, client *sdk.Client) error {
	accounts, err := client.ConnectedAccounts(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SUBDOMAIN\tCONNECTED\tTOKEN EXPIRES")
	for _, a := range accounts {
		expires := "-"
		if a.ExpiresAt > 0 {
			expires = time.Unix(a.ExpiresAt, 0).Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%t\t%s\n", a.Subdomain, a.HasAccessToken, expires)
	}
	return w.Flush()
}

func runEvents(ctx context.Context, client *sdk.Client) error {
	lines, err := client.LastEvents(ctx)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func runUsers(ctx context.Context, client *sdk.Client, args []string) error {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	subdomain := fs.String("s", "", "account subdomain")
	fs.Parse(args)

	if *subdomain == "" {
		return fmt.Errorf("users: -s SUBDOMAIN is required")
	}

	users, err := client.Users(ctx, *subdomain)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\n", u.ID, u.Name)
	}
	return w.Flush()
}

func runReasons(ctx context.Context, client *sdk.Client, args []string) error {
	fs := flag.NewFlagSet("reasons", flag.ExitOnError)
	subdomain := fs.String("s", "", "account subdomain")
	fs.Parse(args)

	if *subdomain == "" {
		return fmt.Errorf("reasons: -s SUBDOMAIN is required")
	}

	reasons, err := client.LossReasons(ctx, *subdomain)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREASON")
	for _, r := range reasons {
		fmt.Fprintf(w, "%d\t%s\n", r.ID, r.Name)
	}
	return w.Flush()
}

func runSetReason(ctx context.Context, client *sdk.Client, args []string) error {
	fs := flag.NewFlagSet("set-reason", flag.ExitOnError)
	subdomain := fs.String("s", "", "account subdomain")
	lead := fs.Int64("lead", 0, "deal id")
	reason := fs.Int64("reason", 0, "loss reason id")
	fs.Parse(args)

	if *subdomain == "" || *lead == 0 || *reason == 0 {
		return fmt.Errorf("set-reason: -s, -lead and -reason are required")
	}

	if err := client.SetLeadLossReason(ctx, *subdomain, *lead, *reason); err != nil {
		return err
	}
	fmt.Printf("loss reason %d set on deal %d\n", *reason, *lead)
	return nil
}

func runDashboard(ctx context.Context, client *sdk.Client, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	subdomain := fs.String("s", "", "account subdomain")
	from := fs.String("from", "", "window start, yyyy-mm-dd")
	to := fs.String("to", "", "window end, yyyy-mm-dd")
	days := fs.Int("days", 0, "inactivity threshold in days")
	manager := fs.Int64("manager", 0, "filter to one manager id")
	pipeline := fs.Int64("pipeline", 0, "filter to one pipeline id")
	fs.Parse(args)

	if *subdomain == "" {
		return fmt.Errorf("dashboard: -s SUBDOMAIN is required")
	}

	resp, err := client.Dashboard(ctx, sdk.DashboardQuery{
		Subdomain:  *subdomain,
		DateFrom:   *from,
		DateTo:     *to,
		StaleDays:  *days,
		ManagerID:  *manager,
		PipelineID: *pipeline,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Report for %s (stale after %d days)\n", resp.Subdomain, resp.StaleDays)
	for _, warning := range resp.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	fmt.Println()

	t := resp.Totals
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WON\tWON SUM\tLOST\tLOST SUM\tSTALE\tSTALE SUM\tAT RISK")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
		t.WonCount, t.WonSum, t.LostCount, t.LostSum, t.StaleCount, t.StaleSum, t.TotalRiskSum)
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()

	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MANAGER\tLOST\tLOST SUM\tWON\tWON SUM\tSTALE\tSTALE SUM\tTOP REASON")
	for _, m := range resp.Managers {
		topReason := "-"
		if len(m.LostByReason) > 0 {
			topReason = m.LostByReason[0].Reason
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			m.ManagerName, m.LostCount, m.LostSum, m.WonCount, m.WonSum,
			m.StaleCount, m.StaleSum, topReason)
	}
	return w.Flush()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
