package models

// Hole is one scoring unit of a course.
type Hole struct {
	Number int `json:"number" yaml:"number"`
	Par    int `json:"par" yaml:"par"`
}

// Course represents a playable course with a fixed sequence of holes
type Course struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name"`
	Holes       []Hole `json:"holes" yaml:"holes"`
}

// TotalPar returns the sum of par over all holes
func (c Course) TotalPar() int {
	total := 0
	for _, h := range c.Holes {
		total += h.Par
	}
	return total
}
