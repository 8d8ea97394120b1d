package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios against its
// golden trace. Regenerate with:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(p)
			require.NoError(t, err)
			require.Equal(t, name, s.Name, "scenario name must match its file")

			res, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, res.Pass, "errors: %v", res.Errors)
		})
	}
}

func TestMarshalSnapshot_Stable(t *testing.T) {
	snap := TraceSnapshot{
		Scenario: "s",
		Trace:    []TraceEvent{{AtMS: 5, Type: EventReset}},
		Final:    Final{Mode: "idle", Slot: 1, Slots: map[string]int{"2": 1, "10": 4}},
	}

	a, err := MarshalSnapshot(snap)
	require.NoError(t, err)
	b, err := MarshalSnapshot(snap)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasSuffix(string(a), "}\n"))
	assert.Less(t, strings.Index(string(a), `"10"`), strings.Index(string(a), `"2"`), "map keys sorted")
	assert.NotContains(t, string(a), "count", "unset count omitted")
}
