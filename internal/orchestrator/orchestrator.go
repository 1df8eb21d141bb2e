// Package orchestrator composes the ledger, compliance monitor, contract
// verifier, reputation system, and anchoring collaborator into a single
// pass/fail verdict per recorded action.
package orchestrator

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/davidahmann/verity/internal/anchor"
	"github.com/davidahmann/verity/internal/axiom"
	"github.com/davidahmann/verity/internal/contract"
	"github.com/davidahmann/verity/internal/crypto"
	"github.com/davidahmann/verity/internal/ledger"
	"github.com/davidahmann/verity/internal/reputation"
	"github.com/davidahmann/verity/pkg/types"
)

// Level selects verification depth. Each level strictly includes the
// previous one's checks.
type Level int

const (
	// Basic runs axiom checks only.
	Basic Level = iota
	// Standard adds the contract capability/prohibition check.
	Standard
	// Full adds the reputation read.
	Full
	// Anchored additionally batches event hashes to the anchoring
	// collaborator.
	Anchored
)

func (l Level) String() string {
	switch l {
	case Basic:
		return "basic"
	case Standard:
		return "standard"
	case Full:
		return "full"
	case Anchored:
		return "anchored"
	default:
		return "unknown"
	}
}

// ParseLevel maps a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "basic":
		return Basic, nil
	case "standard":
		return Standard, nil
	case "full":
		return Full, nil
	case "anchored":
		return Anchored, nil
	default:
		return Basic, fmt.Errorf("unknown verification level: %q", s)
	}
}

// DefaultAnchorBatch is the pending-hash count that triggers an anchor
// submission at the Anchored level.
const DefaultAnchorBatch = 10

// Result is the unified verdict for one recorded action.
type Result struct {
	Event          types.Event              `json:"event"`
	Level          Level                    `json:"-"`
	OverallPass    bool                     `json:"overall_pass"`
	AxiomStatus    types.VerificationStatus `json:"axiom_status"`
	AxiomResults   []axiom.Result           `json:"axiom_results"`
	ContractResult *contract.Result         `json:"contract_result,omitempty"`
	Reputation     *reputation.Score        `json:"reputation,omitempty"`
	AnchorTxID     string                   `json:"anchor_tx_id,omitempty"`
}

// FailedAxioms returns the axiom results that did not pass.
func (r Result) FailedAxioms() []axiom.Result {
	var failed []axiom.Result
	for _, res := range r.AxiomResults {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// ViolationHandler is invoked synchronously when a recorded action fails
// verification. Panics are caught and logged.
type ViolationHandler func(ev types.Event, res Result)

type Options struct {
	Level Level
	// AnchorBatch is the pending-hash threshold for anchor submission.
	AnchorBatch int
	Logger      *slog.Logger
}

// Orchestrator holds shared references to every subsystem but only ever
// goes through their public mutation methods. It expects one caller per
// logical action; it takes no cross-component lock.
type Orchestrator struct {
	ledger     *ledger.Ledger
	monitor    *axiom.Monitor
	contracts  *contract.Verifier
	reputation *reputation.System
	anchorer   anchor.Anchor

	level       Level
	anchorBatch int
	logger      *slog.Logger

	mu       sync.Mutex
	pending  []string
	handlers []ViolationHandler
}

func New(l *ledger.Ledger, m *axiom.Monitor, c *contract.Verifier, r *reputation.System, a anchor.Anchor, opts Options) *Orchestrator {
	if opts.AnchorBatch <= 0 {
		opts.AnchorBatch = DefaultAnchorBatch
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		ledger:      l,
		monitor:     m,
		contracts:   c,
		reputation:  r,
		anchorer:    a,
		level:       opts.Level,
		anchorBatch: opts.AnchorBatch,
		logger:      opts.Logger,
	}
}

// OnViolation registers a handler invoked for every failed verification.
func (o *Orchestrator) OnViolation(fn ViolationHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers = append(o.handlers, fn)
}

// Record appends the action to the ledger and runs the checks for the
// configured level. The append always happens first: every submission is
// recorded even when later checks fail. Every outcome produces exactly one
// reputation event for the acting agent.
func (o *Orchestrator) Record(agent types.Agent, action types.Action, actx types.AxiomContext) (Result, error) {
	ev, err := o.ledger.Append(agent, action, actx)
	if err != nil {
		return Result{}, err
	}

	res := Result{Event: ev, Level: o.level}
	res.AxiomResults, res.AxiomStatus = o.monitor.Check(ev)

	axiomPass := res.AxiomStatus == types.StatusVerified
	contractPass := true
	if o.level >= Standard && o.contracts != nil {
		cres := o.contracts.VerifyAction(agent.ID, action.CapabilityName())
		res.ContractResult = &cres
		contractPass = cres.Status != contract.StatusViolation
	}
	res.OverallPass = axiomPass && contractPass

	score := o.reputation.RecordCompliance(agent.ID, res.OverallPass, complianceReason(res))
	if o.level >= Full {
		res.Reputation = &score
	}

	status := res.AxiomStatus
	if !contractPass && status == types.StatusVerified {
		status = types.StatusViolation
	}
	o.ledger.SetVerificationStatus(ev.EventID, status)

	if !res.OverallPass {
		o.notifyViolation(ev, res)
	}

	if o.level >= Anchored && o.anchorer != nil {
		res.AnchorTxID = o.bufferForAnchor(ev)
	}
	return res, nil
}

// VerifyChain runs a full chain verification, caching the result in the
// ledger's statistics.
func (o *Orchestrator) VerifyChain() ledger.ChainValidationResult {
	return o.ledger.Verify()
}

func complianceReason(res Result) string {
	if res.OverallPass {
		return "verified at level " + res.Level.String()
	}
	if failed := res.FailedAxioms(); len(failed) > 0 {
		return "axiom violation: " + failed[0].Axiom
	}
	return "contract violation"
}

func (o *Orchestrator) notifyViolation(ev types.Event, res Result) {
	o.mu.Lock()
	handlers := make([]ViolationHandler, len(o.handlers))
	copy(handlers, o.handlers)
	o.mu.Unlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Warn("violation handler panicked", "event_id", ev.EventID, "panic", r)
				}
			}()
			fn(ev, res)
		}()
	}
}

// bufferForAnchor queues the event hash and, once the batch threshold is
// reached, submits the batch's Merkle root to the anchoring collaborator.
// Returns the transaction id when a submission happened.
func (o *Orchestrator) bufferForAnchor(ev types.Event) string {
	o.mu.Lock()
	o.pending = append(o.pending, ev.Hash)
	if len(o.pending) < o.anchorBatch {
		o.mu.Unlock()
		return ""
	}
	batch := o.pending
	o.pending = nil
	o.mu.Unlock()

	root := crypto.MerkleRoot(batch)
	txID, err := o.anchorer.SubmitAnchor(root, map[string]string{
		"batch_size":    strconv.Itoa(len(batch)),
		"last_sequence": strconv.FormatUint(ev.Sequence, 10),
	})
	if err != nil {
		o.logger.Warn("anchor submission failed", "error", err)
		o.mu.Lock()
		o.pending = append(batch, o.pending...)
		o.mu.Unlock()
		return ""
	}
	o.logger.Info("anchor submitted", "tx_id", txID, "root", root, "batch_size", len(batch))
	return txID
}

// PendingAnchorCount reports how many event hashes await the next anchor
// submission.
func (o *Orchestrator) PendingAnchorCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
