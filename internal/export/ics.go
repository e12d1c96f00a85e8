package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/username/custody-schedule/internal/custody"
)

const productID = "-//custody-schedule//Custody Windows//EN"

// uidNamespace scopes the name-based event UIDs
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/username/custody-schedule"))

// Exporter renders custody windows as an iCalendar feed
type Exporter struct {
	child string
	names func(custody.GuardianID) string
	now   func() time.Time
}

// NewExporter creates an exporter. names maps guardian ids to display names
// and may be nil.
func NewExporter(child string, names func(custody.GuardianID) string) *Exporter {
	if names == nil {
		names = func(g custody.GuardianID) string { return string(g) }
	}
	return &Exporter{child: child, names: names, now: time.Now}
}

// Calendar builds a VCALENDAR with one VEVENT per window. A non-empty
// guardian keeps only that guardian's windows.
func (e *Exporter) Calendar(windows []custody.Window, guardian custody.GuardianID) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")

	if guardian != "" {
		windows = custody.ForGuardian(windows, guardian)
	}

	stamp := e.now().UTC()
	for _, w := range windows {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, EventUID(w))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		event.Props.SetDateTime(ical.PropDateTimeStart, w.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, w.End.UTC())
		event.Props.SetText(ical.PropSummary, e.summary(w))
		event.Props.SetText(ical.PropDescription, fmt.Sprintf("Rule: %s", w.Rule))
		event.Props.SetText(ical.PropCategories, string(w.Rule))
		event.Props.SetText(ical.PropTransparency, "TRANSPARENT")
		cal.Children = append(cal.Children, event.Component)
	}

	return cal
}

// Encode writes the feed to w
func (e *Exporter) Encode(w io.Writer, windows []custody.Window, guardian custody.GuardianID) error {
	if err := ical.NewEncoder(w).Encode(e.Calendar(windows, guardian)); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// WriteFile replaces path with the feed. The file is written next to its
// destination and renamed, so readers never see a partial feed.
func (e *Exporter) WriteFile(path string, windows []custody.Window, guardian custody.GuardianID) error {
	var buf bytes.Buffer
	if err := e.Encode(&buf, windows, guardian); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".custody-*.ics")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// EventUID derives a stable UID from the window's guardian and bounds
func EventUID(w custody.Window) string {
	key := strings.Join([]string{
		string(w.Guardian),
		w.Start.UTC().Format(time.RFC3339),
		w.End.UTC().Format(time.RFC3339),
	}, "|")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@custody-schedule"
}

func (e *Exporter) summary(w custody.Window) string {
	name := e.names(w.Guardian)
	if e.child == "" {
		return name
	}
	return fmt.Sprintf("%s with %s", e.child, name)
}
