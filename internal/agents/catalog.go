// Package agents holds the catalog of AI personas available for chat.
package agents

import (
	"sort"
	"strings"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
)

// DefaultLabel is the persona new conversations talk to.
const DefaultLabel = "Mr.GYB AI"

var builtin = []domain.Agent{
	{
		AgentID:  "mr-gyb-ai",
		Name:     "Mr.GYB AI",
		Username: "@mr_gyb_ai",
		Bio:      "Your all-in-one business growth assistant. Expert in digital marketing, content creation, and business strategy.",
		Industry: "ai",
		Website:  "https://ai.mrgyb.com",
	},
	{
		AgentID:  "ceo-ai",
		Name:     "CEO AI",
		Username: "@ceo_ai",
		Bio:      "Strategic planning and business development expert. Specializing in leadership, decision-making, and corporate governance.",
		Industry: "leadership",
		Website:  "https://ai.mrgyb.com/ceo",
	},
	{
		AgentID:  "coo-ai",
		Name:     "COO AI",
		Username: "@coo_ai",
		Bio:      "Operations management and process optimization specialist. Expert in supply chain and resource allocation.",
		Industry: "operations",
		Website:  "https://ai.mrgyb.com/coo",
	},
	{
		AgentID:  "cto-ai",
		Name:     "CTO AI",
		Username: "@cto_ai",
		Bio:      "Technology strategy and innovation expert. Specializing in system architecture and digital transformation.",
		Industry: "technology",
		Website:  "https://ai.mrgyb.com/cto",
	},
	{
		AgentID:  "cmo-ai",
		Name:     "CMO AI",
		Username: "@cmo_ai",
		Bio:      "Marketing strategy and brand development expert. Specializing in digital marketing and customer experience.",
		Industry: "marketing",
		Website:  "https://ai.mrgyb.com/cmo",
	},
}

// Catalog is a read-only registry of personas, addressable by id or label.
type Catalog struct {
	byID    map[string]domain.Agent
	byLabel map[string]domain.Agent
}

// NewCatalog builds a catalog from the given personas. With no arguments the
// built-in GYB personas are used.
func NewCatalog(list ...domain.Agent) *Catalog {
	if len(list) == 0 {
		list = builtin
	}
	c := &Catalog{
		byID:    make(map[string]domain.Agent, len(list)),
		byLabel: make(map[string]domain.Agent, len(list)),
	}
	for _, a := range list {
		c.byID[a.AgentID] = a
		c.byLabel[strings.ToLower(a.Name)] = a
	}
	return c
}

// Get returns the persona with the given id.
func (c *Catalog) Get(agentID string) (domain.Agent, bool) {
	a, ok := c.byID[agentID]
	return a, ok
}

// Lookup resolves a display label (case-insensitive) or an id to a persona.
func (c *Catalog) Lookup(label string) (domain.Agent, bool) {
	if a, ok := c.byLabel[strings.ToLower(strings.TrimSpace(label))]; ok {
		return a, true
	}
	return c.Get(label)
}

// List returns all personas ordered by id.
func (c *Catalog) List() []domain.Agent {
	out := make([]domain.Agent, 0, len(c.byID))
	for _, a := range c.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}
