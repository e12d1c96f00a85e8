package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/custody-schedule/internal/custody"
)

var testWindows = []custody.Window{
	{
		Start:    time.Date(2025, 10, 6, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 10, 13, 8, 0, 0, 0, time.UTC),
		Guardian: "alice",
		Rule:     custody.RuleWeekly,
	},
	{
		Start:    time.Date(2025, 10, 13, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC),
		Guardian: "bob",
		Rule:     custody.RuleWeekly,
	},
	{
		Start:    time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 10, 27, 8, 0, 0, 0, time.UTC),
		Guardian: "alice",
		Rule:     custody.RuleVacationSplit,
	},
}

func names(g custody.GuardianID) string {
	return map[custody.GuardianID]string{"alice": "Alice", "bob": "Bob"}[g]
}

func newTestExporter() *Exporter {
	e := NewExporter("Léa", names)
	e.now = func() time.Time { return time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func decode(t *testing.T, data []byte) []ical.Event {
	t.Helper()
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)
	return cal.Events()
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter().Encode(&buf, testWindows, ""))

	events := decode(t, buf.Bytes())
	require.Len(t, events, 3)

	summary, err := events[1].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Léa with Bob", summary)

	start, err := events[1].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(testWindows[1].Start), "DTSTART = %v", start)

	end, err := events[1].DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.True(t, end.Equal(testWindows[1].End), "DTEND = %v", end)

	category, err := events[2].Props.Text(ical.PropCategories)
	require.NoError(t, err)
	assert.Equal(t, string(custody.RuleVacationSplit), category)
}

func TestEncode_GuardianFilter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter().Encode(&buf, testWindows, "alice"))

	events := decode(t, buf.Bytes())
	require.Len(t, events, 2)
	for _, ev := range events {
		summary, err := ev.Props.Text(ical.PropSummary)
		require.NoError(t, err)
		assert.Equal(t, "Léa with Alice", summary)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, newTestExporter().Encode(&a, testWindows, ""))
	require.NoError(t, newTestExporter().Encode(&b, testWindows, ""))
	assert.Equal(t, a.String(), b.String())
}

func TestEventUID(t *testing.T) {
	w := testWindows[0]

	assert.Equal(t, EventUID(w), EventUID(w))
	assert.True(t, strings.HasSuffix(EventUID(w), "@custody-schedule"))

	moved := w
	moved.End = moved.End.Add(time.Hour)
	assert.NotEqual(t, EventUID(w), EventUID(moved))

	other := w
	other.Guardian = "bob"
	assert.NotEqual(t, EventUID(w), EventUID(other))

	paris, err := time.LoadLocation("Europe/Paris")
	if err == nil {
		local := w
		local.Start, local.End = w.Start.In(paris), w.End.In(paris)
		assert.Equal(t, EventUID(w), EventUID(local), "UID must not depend on the location")
	}
}

func TestSummary_NoChild(t *testing.T) {
	e := NewExporter("", nil)
	assert.Equal(t, "alice", e.summary(testWindows[0]))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds", "custody.ics")
	e := newTestExporter()

	require.NoError(t, e.WriteFile(path, testWindows, ""))
	require.NoError(t, e.WriteFile(path, testWindows[:1], ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, decode(t, data), 1)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}
