// Package course provides the read-only course metadata used to size scorecards.
package course

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrCourseNotFound is returned when a course name is not in the catalog.
var ErrCourseNotFound = errors.New("course not found")

type catalogFile struct {
	Courses []models.Course `yaml:"courses"`
}

// Catalog is an immutable, in-memory set of courses keyed by name.
type Catalog struct {
	courses map[string]models.Course
	order   []string
}

// NewCatalog validates the courses and builds a catalog preserving their order
func NewCatalog(courses ...models.Course) (*Catalog, error) {
	c := &Catalog{courses: make(map[string]models.Course, len(courses))}
	for _, course := range courses {
		if err := validateCourse(course); err != nil {
			return nil, err
		}
		if _, dup := c.courses[course.Name]; dup {
			return nil, fmt.Errorf("duplicate course %q", course.Name)
		}
		c.courses[course.Name] = course
		c.order = append(c.order, course.Name)
	}
	return c, nil
}

// LoadFile reads a YAML course catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read course catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse course catalog: %w", err)
	}
	return NewCatalog(f.Courses...)
}

// GetHoles returns the ordered holes of a course.
func (c *Catalog) GetHoles(ctx context.Context, name string) ([]models.Hole, error) {
	course, err := c.GetCourse(ctx, name)
	if err != nil {
		return nil, err
	}
	return course.Holes, nil
}

// GetCourse returns a copy of the named course
func (c *Catalog) GetCourse(_ context.Context, name string) (models.Course, error) {
	course, ok := c.courses[name]
	if !ok {
		return models.Course{}, fmt.Errorf("%w: %s", ErrCourseNotFound, name)
	}
	holes := make([]models.Hole, len(course.Holes))
	copy(holes, course.Holes)
	course.Holes = holes
	return course, nil
}

// List returns every course in catalog order
func (c *Catalog) List(ctx context.Context) []models.Course {
	out := make([]models.Course, 0, len(c.order))
	for _, name := range c.order {
		course, _ := c.GetCourse(ctx, name)
		out = append(out, course)
	}
	return out
}

func validateCourse(course models.Course) error {
	if course.Name == "" {
		return fmt.Errorf("course name is required")
	}
	if len(course.Holes) == 0 {
		return fmt.Errorf("course %q has no holes", course.Name)
	}
	for i, h := range course.Holes {
		if h.Par <= 0 {
			return fmt.Errorf("course %q hole %d: par must be positive", course.Name, i+1)
		}
	}
	return nil
}
