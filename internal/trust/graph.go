// Package trust computes direct and transitive trust between agents from
// explicit delegation edges. The graph is adjacency maps keyed by agent id.
package trust

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// MaxDepth bounds transitive search; no path longer than this many hops
	// contributes to effective trust.
	MaxDepth = 5
	// hopDecay dampens each additional hop beyond the direct edge.
	hopDecay = 0.9
)

// Delegation is a directed, scoped, optionally-expiring trust edge.
type Delegation struct {
	Delegator string     `json:"delegator"`
	Delegate  string     `json:"delegate"`
	Level     float64    `json:"trust_level"`
	Scope     []string   `json:"scope,omitempty"`
	Expires   *time.Time `json:"expires,omitempty"`
}

// IsValid reports whether the edge still carries trust.
func (d Delegation) IsValid(now time.Time) bool {
	if d.Level <= 0 {
		return false
	}
	return d.Expires == nil || now.Before(*d.Expires)
}

// covers reports whether the edge's scope allows the action. An empty scope
// covers every action.
func (d Delegation) covers(action string) bool {
	if action == "" || len(d.Scope) == 0 {
		return true
	}
	for _, a := range d.Scope {
		if a == action {
			return true
		}
	}
	return false
}

// Network is the neighborhood view used for visualization.
type Network struct {
	Nodes []string     `json:"nodes"`
	Edges []Delegation `json:"edges"`
}

// Graph owns the adjacency maps behind a single mutex.
type Graph struct {
	mu    sync.Mutex
	edges map[string]map[string]Delegation

	logger *slog.Logger
	nowFn  func() time.Time
}

func NewGraph(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		edges:  make(map[string]map[string]Delegation),
		logger: logger,
		nowFn:  time.Now,
	}
}

// DelegateTrust upserts a directed edge with the level clamped to [0,1].
// A zero duration means the edge never expires.
func (g *Graph) DelegateTrust(delegator, delegate string, level float64, scope []string, duration time.Duration) Delegation {
	level = math.Min(1, math.Max(0, level))

	d := Delegation{
		Delegator: delegator,
		Delegate:  delegate,
		Level:     level,
		Scope:     scope,
	}
	if duration > 0 {
		expires := g.nowFn().Add(duration)
		d.Expires = &expires
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.edges[delegator] == nil {
		g.edges[delegator] = make(map[string]Delegation)
	}
	g.edges[delegator][delegate] = d
	return d
}

// RevokeTrust removes the edge outright.
func (g *Graph) RevokeTrust(delegator, delegate string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edges[delegator][delegate]; !ok {
		g.logger.Warn("revoke on unknown delegation", "delegator", delegator, "delegate", delegate)
		return false
	}
	delete(g.edges[delegator], delegate)
	return true
}

// GetDelegation returns the direct edge, if any.
func (g *Graph) GetDelegation(delegator, delegate string) (Delegation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.edges[delegator][delegate]
	return d, ok
}

// EffectiveTrust returns the maximum accumulated trust over all paths of at
// most MaxDepth hops, each hop contributing edge_level * hopDecay^depth
// (depth counted from zero, so a direct edge is undamped). Identity trust
// is 1 by definition.
func (g *Graph) EffectiveTrust(source, target, action string) float64 {
	best, _ := g.search(source, target, action)
	return best
}

// FindTrustPath returns the agent sequence of the highest-trust path from
// source to target, or nil when target is unreachable within MaxDepth.
func (g *Graph) FindTrustPath(source, target string) []string {
	_, path := g.search(source, target, "")
	return path
}

type searchState struct {
	node  string
	depth int
	acc   float64
	path  []string
}

func (g *Graph) search(source, target, action string) (float64, []string) {
	if source == target {
		return 1.0, []string{source}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	bestTrust := 0.0
	var bestPath []string
	bestSeen := map[string]float64{source: 1.0}

	queue := []searchState{{node: source, depth: 0, acc: 1.0, path: []string{source}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= MaxDepth {
			continue
		}
		for next, edge := range g.edges[cur.node] {
			if !edge.IsValid(now) || !edge.covers(action) {
				continue
			}
			acc := cur.acc * edge.Level * math.Pow(hopDecay, float64(cur.depth))
			if acc <= bestSeen[next] {
				continue
			}
			bestSeen[next] = acc

			path := make([]string, len(cur.path)+1)
			copy(path, cur.path)
			path[len(cur.path)] = next

			if next == target && acc > bestTrust {
				bestTrust = acc
				bestPath = path
				continue
			}
			queue = append(queue, searchState{node: next, depth: cur.depth + 1, acc: acc, path: path})
		}
	}
	return bestTrust, bestPath
}

// TrustNetwork returns the nodes and directed edges reachable within depth
// hops of agent, following edges in either direction.
func (g *Graph) TrustNetwork(agent string, depth int) Network {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := map[string]bool{agent: true}
	frontier := []string{agent}
	edgeSet := map[[2]string]Delegation{}

	for hop := 0; hop < depth; hop++ {
		next := []string{}
		for _, node := range frontier {
			for delegate, edge := range g.edges[node] {
				edgeSet[[2]string{node, delegate}] = edge
				if !seen[delegate] {
					seen[delegate] = true
					next = append(next, delegate)
				}
			}
			for delegator, out := range g.edges {
				edge, ok := out[node]
				if !ok {
					continue
				}
				edgeSet[[2]string{delegator, node}] = edge
				if !seen[delegator] {
					seen[delegator] = true
					next = append(next, delegator)
				}
			}
		}
		frontier = next
	}

	net := Network{}
	for node := range seen {
		net.Nodes = append(net.Nodes, node)
	}
	for _, edge := range edgeSet {
		net.Edges = append(net.Edges, edge)
	}
	return net
}
