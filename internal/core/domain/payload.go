package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	defaultNodeName = "Unknown"
	minSeverity     = 1
	maxSeverity     = 5
)

// RawPayload is a decoded backend response for one level.
type RawPayload interface {
	// Level returns the level the payload belongs to.
	Level() Level
	// Graph converts the payload's parallel arrays into nodes and edges.
	Graph() ([]Node, []Edge)
}

// NewPayload returns an empty payload for level, ready to be decoded into.
func NewPayload(level Level) (RawPayload, error) {
	switch level {
	case LevelClaims:
		return &ClaimsPayload{}, nil
	case LevelStatements:
		return &StatementsPayload{}, nil
	case LevelProvenance:
		return &ProvenancePayload{}, nil
	default:
		return nil, zerr.With(zerr.Wrap(ErrUnknownLevel, "no payload for level"), "level", int(level))
	}
}

// BuildSnapshot validates a payload and turns it into a Snapshot.
func BuildSnapshot(p RawPayload, opts ...SnapshotOption) (*Snapshot, error) {
	nodes, edges := p.Graph()
	s, err := NewSnapshot(nodes, edges, opts...)
	if err != nil {
		return nil, zerr.With(err, "level", p.Level().String())
	}
	return s, nil
}

// Claim is the payload of a level 1 node.
type Claim struct {
	Title      string  `json:"title" yaml:"title"`
	Severity   float64 `json:"severity" yaml:"severity"`
	Truthiness float64 `json:"truthiness" yaml:"truthiness"`
}

// Statement is the payload of a level 2 node.
type Statement struct {
	Text      string    `json:"text" yaml:"text"`
	Timestamp Timestamp `json:"timestamp" yaml:"timestamp"`
}

// Source is the payload of a level 3 node.
type Source struct {
	Name     string  `json:"name" yaml:"name"`
	Severity float64 `json:"severity" yaml:"severity"`
	URL      string  `json:"url" yaml:"url"`
}

// ClaimsPayload is the level 1 response. Field aliases are merged, the
// first non-empty one wins.
type ClaimsPayload struct {
	Nodes      []int64   `json:"nodes" yaml:"nodes"`
	Names      []string  `json:"names" yaml:"names"`
	NodeNames  []string  `json:"node_names" yaml:"node_names"`
	NodeName   []string  `json:"nodename" yaml:"nodename"`
	Severities []float64 `json:"severities" yaml:"severities"`
	Severity   []float64 `json:"severity" yaml:"severity"`
	Truthiness []float64 `json:"truthiness" yaml:"truthiness"`
	Edges      [][]int64 `json:"edges" yaml:"edges"`
	Edge       [][]int64 `json:"edge" yaml:"edge"`
}

// Level implements RawPayload.
func (p *ClaimsPayload) Level() Level { return LevelClaims }

// Graph implements RawPayload.
func (p *ClaimsPayload) Graph() ([]Node, []Edge) {
	names := firstNonEmpty(p.Names, p.NodeNames, p.NodeName)
	severities := firstNonEmpty(p.Severities, p.Severity)

	nodes := make([]Node, len(p.Nodes))
	for i, id := range p.Nodes {
		nodes[i] = Node{
			ID: nodeID(id),
			Payload: Claim{
				Title:      nameAt(names, i),
				Severity:   severityAt(severities, i),
				Truthiness: at(p.Truthiness, i),
			},
		}
	}
	return nodes, edgePairs(firstNonEmpty(p.Edges, p.Edge))
}

// StatementsPayload is the level 2 response.
type StatementsPayload struct {
	Nodes      []int64     `json:"nodes" yaml:"nodes"`
	Text       []string    `json:"text" yaml:"text"`
	Dates      []Timestamp `json:"dates" yaml:"dates"`
	Timestamps []Timestamp `json:"timestamps" yaml:"timestamps"`
	Edges      [][]int64   `json:"edges" yaml:"edges"`
	Edge       [][]int64   `json:"edge" yaml:"edge"`
}

// Level implements RawPayload.
func (p *StatementsPayload) Level() Level { return LevelStatements }

// Graph implements RawPayload.
func (p *StatementsPayload) Graph() ([]Node, []Edge) {
	dates := firstNonEmpty(p.Dates, p.Timestamps)

	nodes := make([]Node, len(p.Nodes))
	for i, id := range p.Nodes {
		nodes[i] = Node{
			ID: nodeID(id),
			Payload: Statement{
				Text:      nameAt(p.Text, i),
				Timestamp: at(dates, i),
			},
		}
	}
	return nodes, edgePairs(firstNonEmpty(p.Edges, p.Edge))
}

// ProvenancePayload is the level 3 response.
type ProvenancePayload struct {
	Nodes      []int64   `json:"nodes" yaml:"nodes"`
	NodeName   []string  `json:"nodename" yaml:"nodename"`
	Names      []string  `json:"names" yaml:"names"`
	Severities []float64 `json:"severities" yaml:"severities"`
	URLs       []string  `json:"urls" yaml:"urls"`
	Edge       [][]int64 `json:"edge" yaml:"edge"`
	Edges      [][]int64 `json:"edges" yaml:"edges"`
}

// Level implements RawPayload.
func (p *ProvenancePayload) Level() Level { return LevelProvenance }

// Graph implements RawPayload.
func (p *ProvenancePayload) Graph() ([]Node, []Edge) {
	names := firstNonEmpty(p.NodeName, p.Names)

	nodes := make([]Node, len(p.Nodes))
	for i, id := range p.Nodes {
		nodes[i] = Node{
			ID: nodeID(id),
			Payload: Source{
				Name:     nameAt(names, i),
				Severity: severityAt(p.Severities, i),
				URL:      at(p.URLs, i),
			},
		}
	}
	return nodes, edgePairs(firstNonEmpty(p.Edge, p.Edges))
}

// Timestamp is a position in the video. The backend sends either a
// preformatted "MM:SS" string or a number of seconds.
type Timestamp struct {
	Seconds float64
	Raw     string
	Set     bool
}

// String renders the timestamp as m:ss, or the raw text when it was sent as a string.
func (t Timestamp) String() string {
	if t.Raw != "" {
		return t.Raw
	}
	if !t.Set {
		return ""
	}
	total := int(t.Seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// ParseTimestamp accepts "SS", "MM:SS", "H:MM:SS" or a decimal number of seconds.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Timestamp{Seconds: secs, Set: true}
	}
	var total float64
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return Timestamp{Raw: s, Set: true}
		}
		total = total*60 + n
	}
	return Timestamp{Seconds: total, Raw: s, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*t = Timestamp{Seconds: val, Set: true}
	case string:
		*t = ParseTimestamp(val)
	default:
		*t = Timestamp{}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(node.Value)
	if node.Tag != "!!str" {
		t.Raw = ""
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Timestamp) MarshalYAML() (any, error) {
	return t.String(), nil
}

func nodeID(id int64) NodeID {
	return NodeID(strconv.FormatInt(id, 10))
}

func edgePairs(pairs [][]int64) []Edge {
	edges := make([]Edge, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) != 2 {
			continue
		}
		edges = append(edges, Edge{Source: nodeID(pair[0]), Target: nodeID(pair[1])})
	}
	return edges
}

func firstNonEmpty[T any](candidates ...[]T) []T {
	for _, c := range candidates {
		if len(c) > 0 {
			return c
		}
	}
	return nil
}

func at[T any](values []T, i int) T {
	var zero T
	if i < len(values) {
		return values[i]
	}
	return zero
}

func nameAt(names []string, i int) string {
	if name := at(names, i); name != "" {
		return name
	}
	return defaultNodeName
}

func severityAt(severities []float64, i int) float64 {
	s := at(severities, i)
	switch {
	case s < minSeverity:
		return minSeverity
	case s > maxSeverity:
		return maxSeverity
	default:
		return s
	}
}
