// Command verity is the offline read surface over the persisted stores:
// chain verification, event queries, contract lookup, reputation replay,
// violation history, and ledger stats.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/davidahmann/verity/internal/contract"
	"github.com/davidahmann/verity/internal/ledger"
	"github.com/davidahmann/verity/internal/reputation"
	"github.com/davidahmann/verity/pkg/types"
)

func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "verify":
		return handleVerify(args[2:], stdout, stderr)
	case "query":
		return handleQuery(args[2:], stdout, stderr)
	case "contracts":
		return handleContracts(args[2:], stdout, stderr)
	case "reputation":
		return handleReputation(args[2:], stdout, stderr)
	case "violations":
		return handleViolations(args[2:], stdout, stderr)
	case "stats":
		return handleStats(args[2:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: verity <verify|query|contracts|reputation|violations|stats> [flags]")
}

func openLedger(path string, stderr io.Writer) (*ledger.Ledger, int) {
	if path == "" {
		fmt.Fprintln(stderr, "-ledger is required")
		return nil, 2
	}
	l, err := ledger.New(ledger.Options{SnapshotPath: path})
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return nil, 1
	}
	return l, 0
}

func handleVerify(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("ledger", envOrDefault("VERITY_LEDGER", ""), "ledger snapshot path")
	jsonOut := fs.Bool("json", false, "print raw JSON result")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	l, code := openLedger(*path, stderr)
	if code != 0 {
		return code
	}

	result := l.Verify()
	if *jsonOut {
		return printJSON(stdout, stderr, result)
	}

	if result.Valid {
		fmt.Fprintf(stdout, "chain valid: %d events\n", result.EventsValidated)
		return 0
	}
	fmt.Fprintf(stdout, "chain INVALID at index %d: %s (%d events validated)\n",
		*result.ErrorIndex, result.ErrorMessage, result.EventsValidated)
	for _, idx := range ledger.FindTampering(l.Events()) {
		fmt.Fprintf(stdout, "tampered index: %d\n", idx)
	}
	return 1
}

func handleQuery(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("ledger", envOrDefault("VERITY_LEDGER", ""), "ledger snapshot path")
	agent := fs.String("agent", "", "filter by agent id")
	actionType := fs.String("type", "", "filter by action type")
	limit := fs.Int("limit", 20, "max results")
	offset := fs.Int("offset", 0, "results to skip")
	jsonOut := fs.Bool("json", false, "print raw JSON result")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	l, code := openLedger(*path, stderr)
	if code != 0 {
		return code
	}

	events := l.Find(ledger.Query{
		AgentID:    *agent,
		ActionType: types.ActionType(*actionType),
		Limit:      *limit,
		Offset:     *offset,
	})
	if *jsonOut {
		return printJSON(stdout, stderr, events)
	}
	for _, ev := range events {
		fmt.Fprintf(stdout, "%d\t%s\t%s\t%s\t%s\n",
			ev.Sequence, ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			ev.Agent.ID, ev.Action.Type, ev.Action.Description)
	}
	return 0
}

func handleContracts(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("contracts", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("contracts", envOrDefault("VERITY_CONTRACTS", ""), "contract registry path")
	agent := fs.String("agent", "", "agent id (required)")
	with := fs.String("with", "", "second party agent id")
	all := fs.Bool("all", false, "include inactive contracts")
	jsonOut := fs.Bool("json", false, "print raw JSON result")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" || *agent == "" {
		fmt.Fprintln(stderr, "-contracts and -agent are required")
		return 2
	}

	reg, err := contract.NewRegistry(contract.RegistryOptions{Path: *path})
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	found := reg.FindContracts(*agent, *with, !*all)
	if *jsonOut {
		return printJSON(stdout, stderr, found)
	}
	for _, c := range found {
		state := "unsigned"
		if c.IsFullySigned() {
			state = "signed"
		}
		fmt.Fprintf(stdout, "%s\t%s\tparties=%d\t%s\n", c.ContractID, state, len(c.Parties), c.Created.Format("2006-01-02"))
	}
	return 0
}

// handleReputation replays the persisted verification statuses through a
// fresh reputation system. Contract and endorsement deltas live only in the
// embedding process, so this is the compliance-derived score.
func handleReputation(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("reputation", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("ledger", envOrDefault("VERITY_LEDGER", ""), "ledger snapshot path")
	agent := fs.String("agent", "", "agent id (required)")
	jsonOut := fs.Bool("json", false, "print raw JSON result")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *agent == "" {
		fmt.Fprintln(stderr, "-agent is required")
		return 2
	}

	l, code := openLedger(*path, stderr)
	if code != 0 {
		return code
	}

	rep := reputation.New(reputation.Options{})
	for _, ev := range l.Events() {
		switch ev.VerificationStatus {
		case types.StatusVerified:
			rep.RecordCompliance(ev.Agent.ID, true, "replayed event "+ev.EventID)
		case types.StatusViolation, types.StatusEscalated:
			rep.RecordCompliance(ev.Agent.ID, false, "replayed event "+ev.EventID)
		}
	}

	score := rep.GetScore(*agent)
	if *jsonOut {
		return printJSON(stdout, stderr, score)
	}
	fmt.Fprintf(stdout, "%s\t%.1f\t%s\n", *agent, score.Current, reputation.TrustLevel(score.Current))
	return 0
}

func handleViolations(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("violations", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("ledger", envOrDefault("VERITY_LEDGER", ""), "ledger snapshot path")
	agent := fs.String("agent", "", "filter by agent id")
	limit := fs.Int("limit", 20, "max results")
	jsonOut := fs.Bool("json", false, "print raw JSON result")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	l, code := openLedger(*path, stderr)
	if code != 0 {
		return code
	}

	violations := []types.Event{}
	for _, ev := range l.Find(ledger.Query{AgentID: *agent}) {
		switch ev.VerificationStatus {
		case types.StatusViolation, types.StatusEscalated:
			violations = append(violations, ev)
		}
		if *limit > 0 && len(violations) >= *limit {
			break
		}
	}
	if *jsonOut {
		return printJSON(stdout, stderr, violations)
	}
	for _, ev := range violations {
		fmt.Fprintf(stdout, "%d\t%s\t%s\t%s\t%s\n",
			ev.Sequence, ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			ev.Agent.ID, ev.VerificationStatus, ev.Action.Description)
	}
	return 0
}

func handleStats(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("ledger", envOrDefault("VERITY_LEDGER", ""), "ledger snapshot path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	l, code := openLedger(*path, stderr)
	if code != 0 {
		return code
	}
	return printJSON(stdout, stderr, l.Stats())
}

func printJSON(stdout io.Writer, stderr io.Writer, v any) int {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	fmt.Fprintln(stdout, string(raw))
	return 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
