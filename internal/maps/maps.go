package maps

import "slices"

// Map is a single entry of the bundled map pool.
type Map struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

var pool = []Map{
	{ID: "abyss", Name: "Abyss", Image: "/images/maps/abyss.webp"},
	{ID: "ascent", Name: "Ascent", Image: "/images/maps/ascent.webp"},
	{ID: "bind", Name: "Bind", Image: "/images/maps/bind.webp"},
	{ID: "haven", Name: "Haven", Image: "/images/maps/haven.webp"},
	{ID: "icebox", Name: "Icebox", Image: "/images/maps/icebox.webp"},
	{ID: "lotus", Name: "Lotus", Image: "/images/maps/lotus.webp"},
	{ID: "sunset", Name: "Sunset", Image: "/images/maps/sunset.webp"},
}

// Catalog returns a copy of the map pool in display order.
func Catalog() []Map {
	return slices.Clone(pool)
}

// Lookup finds a catalog map by id.
func Lookup(id string) (Map, bool) {
	i := slices.IndexFunc(pool, func(m Map) bool { return m.ID == id })
	if i < 0 {
		return Map{}, false
	}
	return pool[i], true
}

// IDs returns the catalog ids in display order.
func IDs() []string {
	ids := make([]string, len(pool))
	for i, m := range pool {
		ids[i] = m.ID
	}
	return ids
}
