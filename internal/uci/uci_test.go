package uci

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/internal/chess"
	"github.com/kestrelchess/kestrel/internal/config"
	"github.com/kestrelchess/kestrel/internal/logging"
	"github.com/kestrelchess/kestrel/internal/network"
	"github.com/kestrelchess/kestrel/internal/search"
	"github.com/kestrelchess/kestrel/internal/storage"
)

func runSession(t *testing.T, store *storage.Storage, commands ...string) []string {
	t.Helper()
	network.RegisterDefaults()
	search.RegisterDefaults()

	in := strings.NewReader(strings.Join(commands, "\n") + "\n")
	var out strings.Builder
	e := New(config.DefaultFile(), store, logging.New(slog.LevelError, false), in, &out)
	e.Run()

	var lines []string
	for _, line := range strings.Split(out.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func linesWithPrefix(lines []string, prefix string) []string {
	var found []string
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			found = append(found, line)
		}
	}
	return found
}

func bestMoveOf(t *testing.T, lines []string) chess.Move {
	t.Helper()
	best := linesWithPrefix(lines, "bestmove ")
	require.Len(t, best, 1)
	m, err := chess.ParseMove(strings.Fields(best[0])[1])
	require.NoError(t, err)
	return m
}

func TestHandshake(t *testing.T) {
	lines := runSession(t, nil, "uci", "isready", "quit")

	assert.Contains(t, lines, "id name Kestrel")
	assert.Contains(t, lines, "uciok")
	assert.Contains(t, lines, "readyok")
	for _, opt := range []string{"Backend", "WeightsFile", "BackendOptions",
		"PolicySoftmaxTemp", "HistoryFill", "SearchMode"} {
		assert.NotEmpty(t, linesWithPrefix(lines, "option name "+opt+" "), "option %s not advertised", opt)
	}
}

func TestGoProducesLegalBestMove(t *testing.T) {
	lines := runSession(t, nil,
		"position startpos moves e2e4 e7e5",
		"go",
		"quit")

	infos := linesWithPrefix(lines, "info depth 1 seldepth 1 nodes 1 score cp ")
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0], " wdl ")

	g, err := chess.NewGameState("", []string{"e2e4", "e7e5"})
	require.NoError(t, err)
	cur := g.CurrentPosition()
	assert.Contains(t, cur.LegalMoves(), bestMoveOf(t, lines))
}

func TestGoInfiniteThenStop(t *testing.T) {
	lines := runSession(t, nil,
		"position startpos",
		"go infinite",
		"stop",
		"stop",
		"quit")
	bestMoveOf(t, lines) // exactly one bestmove
}

func TestValueHeadMode(t *testing.T) {
	lines := runSession(t, nil,
		"setoption name SearchMode value valuehead",
		"position startpos",
		"go",
		"quit")

	infos := linesWithPrefix(lines, "info ")
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0], "nodes 20")
	g, err := chess.NewGameState("", nil)
	require.NoError(t, err)
	cur := g.CurrentPosition()
	assert.Contains(t, cur.LegalMoves(), bestMoveOf(t, lines))
}

func TestValueHeadReportsMate(t *testing.T) {
	lines := runSession(t, nil,
		"setoption name SearchMode value valuehead",
		"position fen 6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
		"go",
		"quit")

	infos := linesWithPrefix(lines, "info ")
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0], "score mate 1")
	assert.NotContains(t, infos[0], "cp")
	assert.NotContains(t, infos[0], "wdl")

	a1a8, _ := chess.ParseMove("a1a8")
	assert.Equal(t, a1a8, bestMoveOf(t, lines))
}

func TestSetOptionRebuildsBackend(t *testing.T) {
	// Changing BackendOptions after the backend exists needs a restart; the
	// engine must rebuild transparently and keep answering.
	lines := runSession(t, nil,
		"isready",
		"setoption name BackendOptions value seed=7",
		"position startpos",
		"go",
		"quit")

	g, err := chess.NewGameState("", nil)
	require.NoError(t, err)
	cur := g.CurrentPosition()
	assert.Contains(t, cur.LegalMoves(), bestMoveOf(t, lines))
}

func TestInvalidOptionValuesRejected(t *testing.T) {
	// Bad values leave the engine working with its previous settings.
	lines := runSession(t, nil,
		"setoption name PolicySoftmaxTemp value zero",
		"setoption name HistoryFill value sometimes",
		"setoption name Backend value tensorflow",
		"position startpos",
		"go",
		"quit")
	bestMoveOf(t, lines)
}

func TestSearchStatsRecorded(t *testing.T) {
	store, err := storage.NewStorageAt(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	runSession(t, store,
		"position startpos",
		"go",
		"setoption name SearchMode value valuehead",
		"go",
		"quit")

	stats, err := store.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Searches)
	assert.Equal(t, int64(1), stats.ByStrategy["policyhead"].Searches)
	assert.Equal(t, int64(1), stats.ByStrategy["valuehead"].Searches)
	assert.Equal(t, int64(21), stats.Nodes)

	prefs, err := store.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, "valuehead", prefs.SearchMode)
}

func TestUcinewgameResets(t *testing.T) {
	lines := runSession(t, nil,
		"position startpos moves e2e4",
		"ucinewgame",
		"go",
		"quit")
	// After the reset the engine searches from the start position again.
	g, err := chess.NewGameState("", nil)
	require.NoError(t, err)
	cur := g.CurrentPosition()
	assert.Contains(t, cur.LegalMoves(), bestMoveOf(t, lines))
}
