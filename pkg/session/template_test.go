package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/pkg/statestore"
)

func writeTemplateFile(t *testing.T, path, version, destination string) {
	t.Helper()
	doc := `{
		"version": "` + version + `",
		"state": {
			"travel_info": {
				"destination": "` + destination + `"
			}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
}

func TestTemplate_Builtin(t *testing.T) {
	tpl := NewTemplate()

	assert.Equal(t, "builtin", tpl.Version())

	st := tpl.State()
	assert.Empty(t, st.Tasks)
	assert.NotNil(t, st.TravelInfo.Itinerary)
}

func TestTemplate_StateReturnsCopies(t *testing.T) {
	tpl := NewTemplate()

	first := tpl.State()
	first.TravelInfo.Itinerary["day_1"] = "tampered"

	second := tpl.State()
	assert.NotContains(t, second.TravelInfo.Itinerary, "day_1")
}

func TestTemplate_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.json")
	writeTemplateFile(t, path, "2026-08", "Lisbon")

	tpl, err := NewTemplateFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "2026-08", tpl.Version())
	assert.Equal(t, "Lisbon", tpl.State().TravelInfo.Destination)
}

func TestTemplate_FromFileMissing(t *testing.T) {
	_, err := NewTemplateFromFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestTemplate_FromFileInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := NewTemplateFromFile(path)
	assert.Error(t, err)
}

func TestTemplate_WatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.json")
	writeTemplateFile(t, path, "v1", "Lisbon")

	tpl, err := NewTemplateFromFile(path)
	require.NoError(t, err)
	tpl.debounce = 10 * time.Millisecond

	require.NoError(t, tpl.Watch())
	defer tpl.Close()

	writeTemplateFile(t, path, "v2", "Tokyo")

	assert.Eventually(t, func() bool {
		return tpl.Version() == "v2"
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Tokyo", tpl.State().TravelInfo.Destination)
}

func TestTemplate_WatchKeepsLastGoodOnBadEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.json")
	writeTemplateFile(t, path, "v1", "Lisbon")

	tpl, err := NewTemplateFromFile(path)
	require.NoError(t, err)
	tpl.debounce = 10 * time.Millisecond

	require.NoError(t, tpl.Watch())
	defer tpl.Close()

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	// Give the watcher time to see the edit and reject it.
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, "v1", tpl.Version())
	assert.Equal(t, "Lisbon", tpl.State().TravelInfo.Destination)
}

func TestTemplate_WatchRequiresFile(t *testing.T) {
	tpl := NewTemplate()
	assert.Error(t, tpl.Watch())
}

func TestTemplate_ManagerUsesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.json")
	writeTemplateFile(t, path, "v1", "Reykjavik")

	tpl, err := NewTemplateFromFile(path)
	require.NoError(t, err)

	m, err := New(statestore.NewMemory(), WithTemplate(tpl))
	require.NoError(t, err)
	defer m.Close()

	st, err := m.Load(context.Background(), "trip-1")
	require.NoError(t, err)
	assert.Equal(t, "Reykjavik", st.TravelInfo.Destination)
}
