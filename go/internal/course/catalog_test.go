package course

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
courses:
  - name: highlandgreens
    display_name: HighLand Greens
    holes:
      - {number: 1, par: 3}
      - {number: 2, par: 4}
      - {number: 3, par: 3}
  - name: hawkslandingfront9
    holes:
      - {number: 1, par: 4}
`

func TestParseCatalog(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	holes, err := cat.GetHoles(context.Background(), "highlandgreens")
	require.NoError(t, err)
	assert.Len(t, holes, 3)
	assert.Equal(t, 4, holes[1].Par)

	courses := cat.List(context.Background())
	require.Len(t, courses, 2)
	assert.Equal(t, "highlandgreens", courses[0].Name)
	assert.Equal(t, "HighLand Greens", courses[0].DisplayName)
	assert.Equal(t, 10, courses[0].TotalPar())
}

func TestGetHolesUnknownCourse(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	_, err = cat.GetHoles(context.Background(), "augusta")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestGetCourseReturnsCopy(t *testing.T) {
	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	c, err := cat.GetCourse(context.Background(), "highlandgreens")
	require.NoError(t, err)
	c.Holes[0].Par = 99

	again, _ := cat.GetCourse(context.Background(), "highlandgreens")
	assert.Equal(t, 3, again.Holes[0].Par)
}

func TestParseRejectsInvalidCourses(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "courses:\n  - holes: [{number: 1, par: 3}]\n"},
		{"no holes", "courses:\n  - name: empty\n"},
		{"zero par", "courses:\n  - name: flat\n    holes: [{number: 1, par: 0}]\n"},
		{"duplicate", "courses:\n  - name: a\n    holes: [{number: 1, par: 3}]\n  - name: a\n    holes: [{number: 1, par: 3}]\n"},
		{"not yaml", "courses: [::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, cat.List(context.Background()), 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read course catalog")
}

func TestShippedCatalog(t *testing.T) {
	cat, err := LoadFile(filepath.Join("..", "..", "..", "courses.yaml"))
	require.NoError(t, err)

	holes, err := cat.GetHoles(context.Background(), "highlandgreens")
	require.NoError(t, err)
	assert.Len(t, holes, 18)

	for _, name := range []string{"hawkslandingfront9", "hawkslandingback9"} {
		holes, err := cat.GetHoles(context.Background(), name)
		require.NoError(t, err)
		assert.Len(t, holes, 9, name)
	}
}
