package diag

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"git.home.luguber.info/inful/docwright/internal/doctree"
)

func newTestSink() (*Sink, *bytes.Buffer, *bytes.Buffer) {
	status := &bytes.Buffer{}
	warning := &bytes.Buffer{}
	return New(status, warning), status, warning
}

func TestStreamSelection(t *testing.T) {
	sink, status, warning := newTestSink()
	sink.WithVerbosity(3)

	sink.Debug("message1")
	sink.Info("message2")
	_ = sink.Warning("message3")
	_ = sink.Critical("message4")
	_ = sink.Error("message5")

	assert.Contains(t, status.String(), "message1")
	assert.Contains(t, status.String(), "message2")
	assert.NotContains(t, status.String(), "message3")
	assert.NotContains(t, status.String(), "message4")
	assert.NotContains(t, status.String(), "message5")

	assert.NotContains(t, warning.String(), "message1")
	assert.NotContains(t, warning.String(), "message2")
	assert.Contains(t, warning.String(), "message3")
	assert.Contains(t, warning.String(), "message4")
	assert.Contains(t, warning.String(), "message5")
}

func TestVerbosityFilter(t *testing.T) {
	cases := []struct {
		verbosity int
		visible   []string
		hidden    []string
	}{
		{0, []string{"info"}, []string{"verbose", "debug", "debug2"}},
		{1, []string{"info", "verbose"}, []string{"debug", "debug2"}},
		{2, []string{"info", "verbose", "debug"}, []string{"debug2"}},
		{3, []string{"info", "verbose", "debug", "debug2"}, nil},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("verbosity=%d", tc.verbosity), func(t *testing.T) {
			sink, status, _ := newTestSink()
			sink.WithVerbosity(tc.verbosity)

			sink.Info("info")
			sink.Verbose("verbose")
			sink.Debug("debug")
			sink.Debug2("debug2")

			for _, msg := range tc.visible {
				assert.Contains(t, status.String(), msg)
			}
			for _, msg := range tc.hidden {
				assert.NotContains(t, status.String(), msg)
			}
		})
	}
}

func TestNoNewlineChaining(t *testing.T) {
	sink, status, _ := newTestSink()

	sink.Info("message1", NoNewline())
	sink.Info("message2")
	sink.Info("message3")

	assert.Contains(t, status.String(), "message1message2\nmessage3")
}

func TestWarningCounter(t *testing.T) {
	sink, _, warning := newTestSink()

	assert.Equal(t, 0, sink.WarningCount())

	_ = sink.Warning("message1", Tagged("test", "logging"))
	_ = sink.Warning("message2", Tagged("test", "crash"))
	_ = sink.Warning("message3", Tagged("actual", "logging"))
	assert.Contains(t, warning.String(), "message1")
	assert.Contains(t, warning.String(), "message2")
	assert.Contains(t, warning.String(), "message3")
	assert.Equal(t, 3, sink.WarningCount())

	warning.Reset()
	sink.WithSuppressRules([]string{"test"})
	_ = sink.Warning("message1", Tagged("test", "logging"))
	_ = sink.Warning("message2", Tagged("test", "crash"))
	_ = sink.Warning("message3", Tagged("actual", "logging"))
	assert.NotContains(t, warning.String(), "message1")
	assert.NotContains(t, warning.String(), "message2")
	assert.Contains(t, warning.String(), "message3")
	assert.Equal(t, 4, sink.WarningCount())

	warning.Reset()
	sink.WithSuppressRules([]string{"test.logging"})
	_ = sink.Warning("message1", Tagged("test", "logging"))
	_ = sink.Warning("message2", Tagged("test", "crash"))
	_ = sink.Warning("message3", Tagged("actual", "logging"))
	assert.NotContains(t, warning.String(), "message1")
	assert.Contains(t, warning.String(), "message2")
	assert.Contains(t, warning.String(), "message3")
	assert.Equal(t, 6, sink.WarningCount())

	sink.Reset()
	assert.Equal(t, 0, sink.WarningCount())
}

func TestWarningIsError(t *testing.T) {
	sink, _, warning := newTestSink()

	// Disabled: emitted normally.
	require.NoError(t, sink.Warning("message"))
	assert.Contains(t, warning.String(), "WARNING: message")

	// Enabled: the identical call raises instead of printing, and the
	// failure text equals the formatted line.
	warning.Reset()
	sink.WithWarningIsError(true)
	err := sink.Warning("message", AtOption("index"))
	require.Error(t, err)
	var esc *EscalatedWarning
	require.ErrorAs(t, err, &esc)
	assert.Equal(t, "index.md: WARNING: message", esc.Text)
	assert.Empty(t, warning.String())
}

// AtOption is shorthand for WithLocation(InDocument(doc)) used in tests.
func AtOption(doc string) EmitOption {
	return WithLocation(InDocument(doc))
}

func TestWarningLocationFormatting(t *testing.T) {
	sink, _, warning := newTestSink()
	sink.WithColor(true)

	// The default warning tint wraps the whole line, location included.
	_ = sink.Warning("message1", WithLocation(InDocument("index")))
	assert.Contains(t, warning.String(), "\x1b[31mindex.md: WARNING: message1")

	_ = sink.Warning("message2", WithLocation(AtLine("index", 10)))
	assert.Contains(t, warning.String(), "index.md:10: WARNING: message2")

	_ = sink.Warning("message3")
	assert.Contains(t, warning.String(), "\x1b[31mWARNING: message3")
}

func TestNodeLocationFormatting(t *testing.T) {
	sink, _, warning := newTestSink()
	sink.WithColor(true)

	node := &doctree.Node{Source: "index.md", Line: 10}
	_ = sink.Warning("message1", WithLocation(FromNode(node)))
	assert.Contains(t, warning.String(), "index.md:10: WARNING: message1")

	node = &doctree.Node{Source: "index.md"}
	_ = sink.Warning("message2", WithLocation(FromNode(node)))
	assert.Contains(t, warning.String(), "index.md:: WARNING: message2")

	node = &doctree.Node{Line: 10}
	_ = sink.Warning("message3", WithLocation(FromNode(node)))
	assert.Contains(t, warning.String(), "<unknown>:10: WARNING: message3")

	node = &doctree.Node{}
	_ = sink.Warning("message4", WithLocation(FromNode(node)))
	assert.Contains(t, warning.String(), "\x1b[31mWARNING: message4")
}

func TestCustomSourceSuffix(t *testing.T) {
	sink, _, warning := newTestSink()
	sink.WithSourceSuffix(".txt")

	_ = sink.Warning("message", WithLocation(AtLine("index", 10)))
	assert.Contains(t, warning.String(), "index.txt:10: WARNING: message")
}

func TestPendingWarnings(t *testing.T) {
	sink, _, warning := newTestSink()

	_ = sink.Warning("message1")
	err := sink.PendingWarnings(func() error {
		_ = sink.Warning("message2")
		_ = sink.Warning("message3")
		assert.Contains(t, warning.String(), "WARNING: message1")
		assert.NotContains(t, warning.String(), "WARNING: message2")
		assert.NotContains(t, warning.String(), "WARNING: message3")
		// Buffered records are not counted yet.
		assert.Equal(t, 1, sink.WarningCount())
		return nil
	})
	require.NoError(t, err)

	// Flushed in original emission order, counted exactly once.
	assert.Contains(t, warning.String(), "WARNING: message2\nWARNING: message3")
	assert.Equal(t, 3, sink.WarningCount())
}

func TestPendingWarningsDoesNotNest(t *testing.T) {
	sink, _, _ := newTestSink()

	err := sink.PendingWarnings(func() error {
		return sink.PendingWarnings(func() error {
			t.Fatal("nested scope must not run")
			return nil
		})
	})
	assert.ErrorIs(t, err, ErrPendingActive)
}

func TestPendingWarningsFlushEscalates(t *testing.T) {
	sink, _, warning := newTestSink()
	sink.WithWarningIsError(true)

	err := sink.PendingWarnings(func() error {
		// Buffering wins over escalation inside the scope.
		require.NoError(t, sink.Warning("deferred"))
		return nil
	})
	var esc *EscalatedWarning
	require.ErrorAs(t, err, &esc)
	assert.Equal(t, "WARNING: deferred", esc.Text)
	assert.Empty(t, warning.String())
}

func TestColoredOutput(t *testing.T) {
	sink, status, warning := newTestSink()
	sink.WithVerbosity(3).WithColor(true)

	sink.Debug2("message1")
	sink.Debug("message2")
	sink.Verbose("message3")
	sink.Info("message4")
	_ = sink.Warning("message5")
	_ = sink.Critical("message6")
	_ = sink.Error("message7")

	assert.Contains(t, status.String(), Colorize("lightgray", "message1"))
	assert.Contains(t, status.String(), Colorize("darkgray", "message2"))
	assert.Contains(t, status.String(), "message3\n") // not colored
	assert.Contains(t, status.String(), "message4\n") // not colored
	assert.Contains(t, warning.String(), Colorize("darkred", "WARNING: message5"))
	assert.Contains(t, warning.String(), "CRITICAL: message6\n") // not colored
	assert.Contains(t, warning.String(), "ERROR: message7\n")    // not colored

	// Explicit per-record override.
	sink.Debug("message8", WithColor("white"))
	sink.Info("message9", WithColor("red"))
	assert.Contains(t, status.String(), Colorize("white", "message8"))
	assert.Contains(t, status.String(), Colorize("red", "message9"))
}

func TestColorDisabledByDefault(t *testing.T) {
	sink, _, warning := newTestSink()

	_ = sink.Warning("plain")
	assert.Equal(t, "WARNING: plain\n", warning.String())
}

func TestRecorderReplayPreservesOrder(t *testing.T) {
	sink, status, warning := newTestSink()

	rec := NewRecorder()
	rec.Info("message1")
	_ = rec.Warning("message2", WithLocation(InDocument("index")))

	require.NoError(t, sink.Replay(rec.Records()))
	assert.Contains(t, status.String(), "message1")
	assert.Contains(t, warning.String(), "index.md: WARNING: message2")
}

func TestReplayStopsOnEscalation(t *testing.T) {
	sink, _, warning := newTestSink()
	sink.WithWarningIsError(true)

	rec := NewRecorder()
	_ = rec.Warning("first")
	_ = rec.Warning("second")

	err := sink.Replay(rec.Records())
	var esc *EscalatedWarning
	require.ErrorAs(t, err, &esc)
	assert.Equal(t, "WARNING: first", esc.Text)
	assert.Empty(t, warning.String())
}

func TestUnencodableCharacterSubstitution(t *testing.T) {
	sink, status, _ := newTestSink()
	sink.WithEncoding(charmap.Windows1252)

	sink.Info("unicode ⁭...")
	assert.Equal(t, "unicode ?...\n", status.String())
}

func TestSuppressedRecordsNeverEscalate(t *testing.T) {
	sink, _, warning := newTestSink()
	sink.WithWarningIsError(true).WithSuppressRules([]string{"noise"})

	require.NoError(t, sink.Warning("dropped", Tagged("noise", "any")))
	assert.Empty(t, warning.String())
	assert.Equal(t, 0, sink.WarningCount())
}

func TestFormatLevelTags(t *testing.T) {
	sink, _, warning := newTestSink()

	_ = sink.Error("bad", WithLocation(AtLine("api", 3)))
	_ = sink.Critical("worse")

	lines := strings.Split(strings.TrimRight(warning.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "api.md:3: ERROR: bad", lines[0])
	assert.Equal(t, "CRITICAL: worse", lines[1])
}
