package appointments

// Provider is a bookable member of the care team with a fixed set of offered
// time-slot labels.
type Provider struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Specialty      string   `json:"specialty"`
	AvailableSlots []string `json:"availableSlots"`
}

// Catalog maps provider ids to their offered slots. It is fixed configuration
// data; a production deployment would load it from the scheduling system.
type Catalog struct {
	providers []Provider
	byID      map[string]int
}

// NewCatalog builds a catalog from the given providers, preserving order.
func NewCatalog(providers ...Provider) *Catalog {
	c := &Catalog{
		providers: providers,
		byID:      make(map[string]int, len(providers)),
	}
	for i, p := range providers {
		c.byID[p.ID] = i
	}
	return c
}

// DefaultCatalog returns the built-in care team roster.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Provider{
			ID:        "doc_smith_figma",
			Name:      "Dr. Smith (Primary Care)",
			Specialty: "Primary Care",
			AvailableSlots: []string{
				"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM",
				"11:00 AM", "02:00 PM", "02:30 PM", "03:00 PM",
			},
		},
		Provider{
			ID:             "doc1",
			Name:           "Dr. Evelyn Reed (Cardiology)",
			Specialty:      "Cardiology",
			AvailableSlots: []string{"09:00 AM", "10:00 AM", "02:00 PM"},
		},
		Provider{
			ID:             "doc2",
			Name:           "Dr. Marcus Chen (Nutritionist)",
			Specialty:      "Nutritionist",
			AvailableSlots: []string{"08:30 AM", "09:30 AM", "03:00 PM"},
		},
	)
}

// SlotsFor returns the ordered slot labels for the provider. Unknown ids get
// an empty slice, never an error.
func (c *Catalog) SlotsFor(doctorID string) []string {
	i, ok := c.byID[doctorID]
	if !ok {
		return []string{}
	}
	slots := make([]string, len(c.providers[i].AvailableSlots))
	copy(slots, c.providers[i].AvailableSlots)
	return slots
}

// Provider looks up a provider by id.
func (c *Catalog) Provider(doctorID string) (Provider, bool) {
	i, ok := c.byID[doctorID]
	if !ok {
		return Provider{}, false
	}
	return c.providers[i], true
}

// Providers returns the roster in catalog order.
func (c *Catalog) Providers() []Provider {
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}
