// Package uci speaks the Universal Chess Interface on a reader/writer
// pair, wiring setoption changes through the backend's live
// reconfiguration path and rebuilding the backend when a change needs a
// restart.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/kestrelchess/kestrel/internal/backend"
	"github.com/kestrelchess/kestrel/internal/chess"
	"github.com/kestrelchess/kestrel/internal/config"
	"github.com/kestrelchess/kestrel/internal/encoder"
	"github.com/kestrelchess/kestrel/internal/network"
	"github.com/kestrelchess/kestrel/internal/search"
	"github.com/kestrelchess/kestrel/internal/storage"
)

// Engine is the UCI protocol handler. It owns the backend, the active
// search strategy and the current game state.
type Engine struct {
	in    io.Reader
	out   io.Writer
	log   *slog.Logger
	store *storage.Storage // optional

	// Current configuration; the backend is rebuilt lazily after changes
	// that need a restart.
	backendName string
	weightsPath string
	backendOpts string
	softmaxTemp float64
	historyFill string
	searchMode  string

	backend   backend.Backend
	search    search.Search
	responder *responder
	game      *chess.GameState
}

// New creates a UCI handler from the process configuration. The store may
// be nil; search statistics are then not recorded.
func New(cfg config.File, store *storage.Storage, log *slog.Logger, in io.Reader, out io.Writer) *Engine {
	e := &Engine{
		in:          in,
		out:         out,
		log:         log,
		store:       store,
		backendName: cfg.Backend,
		weightsPath: cfg.Weights,
		backendOpts: cfg.BackendOptions,
		softmaxTemp: cfg.PolicySoftmaxTemp,
		historyFill: cfg.HistoryFill,
		searchMode:  cfg.Search,
	}
	e.responder = &responder{out: out, onBestMove: e.recordSearch}
	return e
}

// Run processes commands until "quit" or EOF.
func (e *Engine) Run() {
	scanner := bufio.NewScanner(e.in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			e.handleUCI()
		case "isready":
			if err := e.ensureSearch(); err != nil {
				e.log.Error("backend initialization failed", "err", err)
			}
			fmt.Fprintln(e.out, "readyok")
		case "ucinewgame":
			e.handleNewGame()
		case "position":
			e.handlePosition(args)
		case "go":
			e.handleGo(args)
		case "stop":
			e.handleStop()
		case "quit":
			e.handleStop()
			return
		case "setoption":
			e.handleSetOption(args)
		// Debug command
		case "d":
			if e.game != nil {
				cur := e.game.CurrentPosition()
				fmt.Fprintln(e.out, cur.FEN())
			} else {
				fmt.Fprintln(e.out, chess.StartFEN)
			}
		}
	}
}

// handleUCI responds to the "uci" command.
func (e *Engine) handleUCI() {
	fmt.Fprintln(e.out, "id name Kestrel")
	fmt.Fprintln(e.out, "id author The Kestrel Authors")
	fmt.Fprintln(e.out)
	fmt.Fprintf(e.out, "option name Backend type combo default %s%s\n",
		e.backendName, comboVars(network.Names()))
	fmt.Fprintf(e.out, "option name WeightsFile type string default %s\n", orEmpty(e.weightsPath))
	fmt.Fprintf(e.out, "option name BackendOptions type string default %s\n", orEmpty(e.backendOpts))
	fmt.Fprintf(e.out, "option name PolicySoftmaxTemp type string default %v\n", e.softmaxTemp)
	fmt.Fprintf(e.out, "option name HistoryFill type combo default %s var no var fen_only var always\n",
		e.historyFill)
	fmt.Fprintf(e.out, "option name SearchMode type combo default %s%s\n",
		e.searchMode, comboVars(search.Names()))
	fmt.Fprintln(e.out, "uciok")
}

func comboVars(names []string) string {
	var b strings.Builder
	for _, name := range names {
		b.WriteString(" var ")
		b.WriteString(name)
	}
	return b.String()
}

func orEmpty(s string) string {
	if s == "" {
		return "<empty>"
	}
	return s
}

// handleNewGame resets the game state for a new game.
func (e *Engine) handleNewGame() {
	e.game = nil
	if e.search != nil {
		e.search.NewGame()
	}
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (e *Engine) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var fen string
	moveStart := len(args)

	switch args[0] {
	case "startpos":
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	case "fen":
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				moveStart = i + 2
				break
			}
		}
		fen = strings.Join(args[1:fenEnd], " ")
	default:
		return
	}

	var moves []string
	if moveStart < len(args) {
		moves = args[moveStart:]
	}

	g, err := chess.NewGameState(fen, moves)
	if err != nil {
		e.log.Error("invalid position", "err", err)
		return
	}
	e.game = g
	if e.search != nil {
		e.search.SetPosition(g)
	}
}

// handleGo starts a search.
func (e *Engine) handleGo(args []string) {
	if err := e.ensureSearch(); err != nil {
		e.log.Error("cannot start search", "err", err)
		return
	}
	if e.game == nil {
		g, err := chess.NewGameState("", nil)
		if err != nil {
			e.log.Error("cannot set up start position", "err", err)
			return
		}
		e.game = g
		e.search.SetPosition(g)
	}

	var params search.GoParams
	for _, arg := range args {
		switch arg {
		case "infinite":
			params.Infinite = true
		case "ponder":
			params.Ponder = true
		}
	}

	if err := e.search.StartSearch(params); err != nil {
		e.log.Error("search failed", "err", err)
		return
	}
	if !params.Infinite && !params.Ponder {
		e.search.WaitSearch()
	}
}

// handleStop stops the current search.
func (e *Engine) handleStop() {
	if e.search == nil {
		return
	}
	e.search.StopSearch()
	e.search.WaitSearch()
}

// handleSetOption processes "setoption name <name> value <value>".
func (e *Engine) handleSetOption(args []string) {
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "backend":
		if _, err := network.Lookup(value); err != nil {
			e.log.Error("unknown backend", "name", value)
			return
		}
		if value != e.backendName {
			e.backendName = value
			e.dropBackend()
		}
	case "weightsfile":
		if value == "<empty>" {
			value = ""
		}
		e.weightsPath = value
		e.applyOrRestart()
	case "backendoptions":
		if value == "<empty>" {
			value = ""
		}
		e.backendOpts = value
		e.applyOrRestart()
	case "policysoftmaxtemp":
		temp, err := strconv.ParseFloat(value, 64)
		if err != nil || temp <= 0 {
			e.log.Error("invalid PolicySoftmaxTemp", "value", value)
			return
		}
		e.softmaxTemp = temp
		e.applyOrRestart()
	case "historyfill":
		if _, err := encoder.ParseHistoryFill(value); err != nil {
			e.log.Error("invalid HistoryFill", "value", value)
			return
		}
		e.historyFill = value
		e.applyOrRestart()
	case "searchmode":
		if _, err := search.Lookup(value); err != nil {
			e.log.Error("unknown search mode", "name", value)
			return
		}
		e.searchMode = value
		e.search = nil
	default:
		e.log.Warn("ignoring unknown option", "name", name)
		return
	}
	e.savePreferences()
}

// currentOptions renders the engine settings as a backend options dict.
func (e *Engine) currentOptions() *config.Options {
	o := config.NewOptions(e.backendName)
	o.Set(backend.OptWeightsPath, e.weightsPath)
	o.Set(backend.OptBackendOptions, e.backendOpts)
	o.Set(backend.OptPolicySoftmaxTemp, strconv.FormatFloat(e.softmaxTemp, 'g', -1, 64))
	o.Set(backend.OptHistoryFill, e.historyFill)
	return o
}

// applyOrRestart pushes the current settings into the live backend. A
// NeedRestart answer schedules a full rebuild on the next search.
func (e *Engine) applyOrRestart() {
	if e.backend == nil {
		return
	}
	res, err := e.backend.UpdateConfiguration(e.currentOptions())
	if err != nil {
		e.log.Error("configuration update failed", "err", err)
		return
	}
	if res == backend.NeedRestart {
		e.log.Info("backend restart scheduled", "backend", e.backendName)
		e.dropBackend()
	}
}

func (e *Engine) dropBackend() {
	if e.search != nil {
		e.search.AbortSearch()
	}
	e.backend = nil
	e.search = nil
}

// ensureSearch builds the backend and search strategy if either is
// missing.
func (e *Engine) ensureSearch() error {
	if e.backend == nil {
		b, err := backend.NewFactory(e.backendName).Create(e.currentOptions())
		if err != nil {
			return err
		}
		e.backend = b
		e.search = nil
		e.log.Info("backend ready",
			"backend", e.backendName, "weights", e.weightsPath)
	}
	if e.search == nil {
		factory, err := search.Lookup(e.searchMode)
		if err != nil {
			return err
		}
		e.search = factory(e.backend, e.responder)
		if e.game != nil {
			e.search.SetPosition(e.game)
		}
	}
	return nil
}

func (e *Engine) savePreferences() {
	if e.store == nil {
		return
	}
	err := e.store.SavePreferences(&storage.Preferences{
		Backend:           e.backendName,
		WeightsFile:       e.weightsPath,
		BackendOptions:    e.backendOpts,
		PolicySoftmaxTemp: e.softmaxTemp,
		HistoryFill:       e.historyFill,
		SearchMode:        e.searchMode,
	})
	if err != nil {
		e.log.Warn("saving preferences failed", "err", err)
	}
}

// recordSearch is called once per announced best move.
func (e *Engine) recordSearch(nodes int64) {
	if e.store == nil {
		return
	}
	if err := e.store.RecordSearch(e.searchMode, nodes); err != nil {
		e.log.Warn("recording search failed", "err", err)
	}
}

// responder renders search output in the UCI wire format.
type responder struct {
	out        io.Writer
	onBestMove func(nodes int64)

	mu        sync.Mutex
	lastNodes int
}

func (r *responder) OutputThinkingInfo(info *search.ThinkingInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastNodes = info.Nodes

	var b strings.Builder
	fmt.Fprintf(&b, "info depth %d seldepth %d nodes %d",
		info.Depth, info.SelDepth, info.Nodes)
	if info.Mate != nil {
		fmt.Fprintf(&b, " score mate %d", *info.Mate)
	} else if info.Score != nil {
		fmt.Fprintf(&b, " score cp %d", *info.Score)
		if info.WDL != nil {
			fmt.Fprintf(&b, " wdl %d %d %d", info.WDL.W, info.WDL.D, info.WDL.L)
		}
	}
	fmt.Fprintln(r.out, b.String())
}

func (r *responder) OutputBestMove(info *search.BestMoveInfo) {
	r.mu.Lock()
	nodes := r.lastNodes
	line := "bestmove " + info.Best.String()
	if !info.Ponder.IsZero() {
		line += " ponder " + info.Ponder.String()
	}
	fmt.Fprintln(r.out, line)
	r.mu.Unlock()

	if r.onBestMove != nil {
		r.onBestMove(int64(nodes))
	}
}
