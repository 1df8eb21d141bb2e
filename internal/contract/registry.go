package contract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const contractVersion = "1.0"

// Registry owns all contract state, including signatures. A single mutex
// guards mutation; reads return copies.
type Registry struct {
	mu        sync.Mutex
	contracts map[string]Contract

	path   string
	logger *slog.Logger
	nowFn  func() time.Time
}

type RegistryOptions struct {
	// Path, when set, is loaded eagerly at construction and rewritten in
	// full on every mutating call.
	Path   string
	Logger *slog.Logger
}

func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Registry{
		contracts: make(map[string]Contract),
		path:      opts.Path,
		logger:    opts.Logger,
		nowFn:     time.Now,
	}
	if r.path != "" {
		if err := r.load(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// CreateContract registers a new, unsigned contract between the parties.
func (r *Registry) CreateContract(parties []Party, capabilities map[string][]string, obligations map[string][]Obligation, prohibitions map[string][]string, expires *time.Time) (Contract, error) {
	if len(parties) < 2 {
		return Contract{}, fmt.Errorf("contract requires at least two parties, got %d", len(parties))
	}
	seen := map[string]struct{}{}
	for _, p := range parties {
		if p.AgentID == "" || p.Role == "" {
			return Contract{}, fmt.Errorf("party requires agent_id and role")
		}
		if _, dup := seen[p.AgentID]; dup {
			return Contract{}, fmt.Errorf("duplicate party %s", p.AgentID)
		}
		seen[p.AgentID] = struct{}{}
	}

	c := Contract{
		ContractID:   uuid.NewString(),
		Version:      contractVersion,
		Created:      r.nowFn().UTC(),
		Expires:      expires,
		Parties:      parties,
		Capabilities: capabilities,
		Obligations:  obligations,
		Prohibitions: prohibitions,
		Signatures:   make(map[string]string),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[c.ContractID] = c
	if err := r.persistLocked(); err != nil {
		delete(r.contracts, c.ContractID)
		return Contract{}, err
	}
	return c, nil
}

// Sign records an agent's signature. Returns false with a logged warning if
// the contract is unknown or the agent is not a party.
func (r *Registry) Sign(contractID, agentID, signature string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contracts[contractID]
	if !ok {
		r.logger.Warn("sign on unknown contract", "contract_id", contractID)
		return false
	}
	if !c.IsParty(agentID) {
		r.logger.Warn("signer is not a party", "contract_id", contractID, "agent_id", agentID)
		return false
	}

	sigs := make(map[string]string, len(c.Signatures)+1)
	for k, v := range c.Signatures {
		sigs[k] = v
	}
	sigs[agentID] = signature
	c.Signatures = sigs
	r.contracts[contractID] = c

	if err := r.persistLocked(); err != nil {
		r.logger.Warn("contract persist failed", "contract_id", contractID, "error", err)
	}
	return true
}

// Get returns a copy of the contract.
func (r *Registry) Get(contractID string) (Contract, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[contractID]
	return c, ok
}

// FindContracts returns contracts where agentA is a party, and agentB too
// when given. activeOnly filters through the IsActive invariant. Results
// are ordered by creation time for stable output.
func (r *Registry) FindContracts(agentA, agentB string, activeOnly bool) []Contract {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFn()
	out := []Contract{}
	for _, c := range r.contracts {
		if !c.IsParty(agentA) {
			continue
		}
		if agentB != "" && !c.IsParty(agentB) {
			continue
		}
		if activeOnly && !c.IsActive(now) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ContractID < out[j].ContractID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Remove destroys a contract explicitly.
func (r *Registry) Remove(contractID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contracts[contractID]; !ok {
		r.logger.Warn("remove on unknown contract", "contract_id", contractID)
		return false
	}
	delete(r.contracts, contractID)
	if err := r.persistLocked(); err != nil {
		r.logger.Warn("contract persist failed", "contract_id", contractID, "error", err)
	}
	return true
}

// RemoveExpired sweeps out contracts past their expiry and returns how many
// were removed.
func (r *Registry) RemoveExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFn()
	removed := 0
	for id, c := range r.contracts {
		if c.Expires != nil && !now.Before(*c.Expires) {
			delete(r.contracts, id)
			removed++
		}
	}
	if removed > 0 {
		if err := r.persistLocked(); err != nil {
			r.logger.Warn("contract persist failed", "error", err)
		}
	}
	return removed
}

type registryFile struct {
	Contracts map[string]Contract `json:"contracts"`
}

func (r *Registry) load() error {
	// #nosec G304 -- path is operator-configured.
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var file registryFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("corrupt contract registry: %w", err)
	}
	if file.Contracts != nil {
		r.contracts = file.Contracts
	}
	return nil
}

func (r *Registry) persistLocked() error {
	if r.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(registryFile{Contracts: r.contracts}, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
