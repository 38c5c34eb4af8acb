package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/transcriptprune/transcriptprune/internal/approval"
	"github.com/transcriptprune/transcriptprune/internal/backup"
	"github.com/transcriptprune/transcriptprune/internal/boundary"
	"github.com/transcriptprune/transcriptprune/internal/cli"
	"github.com/transcriptprune/transcriptprune/internal/config"
	"github.com/transcriptprune/transcriptprune/internal/dashboard"
	"github.com/transcriptprune/transcriptprune/internal/history"
	"github.com/transcriptprune/transcriptprune/internal/hook"
	"github.com/transcriptprune/transcriptprune/internal/locator"
	"github.com/transcriptprune/transcriptprune/internal/prune"
	"github.com/transcriptprune/transcriptprune/internal/transcript"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "prune":
		runPrune(os.Args[2:])
	case "hook":
		runHook(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
	case "restore":
		runRestore(os.Args[2:])
	case "dashboard":
		runDashboard(os.Args[2:])
	case "version":
		fmt.Fprintf(os.Stderr, "transcriptprune %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sessionIDFromPath derives a session id from a resolved transcript path
// (its filename minus the .jsonl extension), for the common case where the
// caller didn't pass --session explicitly.
func sessionIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}

func openStore(cwd string, logger *slog.Logger) (*history.SQLiteStore, error) {
	dbPath, err := locator.HistoryDBPath(cwd)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	return history.NewSQLiteStore(dbPath, logger)
}

func runPrune(args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	keepN := fs.Int("keep", 3, "keep the last N assistant turns (ignored with --boundary)")
	useBoundary := fs.Bool("boundary", false, "prompt for a detected boundary instead of keeping N turns")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing anything")
	sessionID := fs.String("session", "", "session id (default: most recently modified transcript)")
	cwd := fs.String("cwd", ".", "project working directory")
	policyPath := fs.String("policy", "", "path to a retention policy YAML file")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(args)

	logger := newLogger(*logLevel)

	cfg := config.Default()
	if *policyPath != "" {
		var err error
		cfg, err = config.Load(*policyPath)
		if err != nil {
			logger.Error("load policy", "error", err)
			os.Exit(1)
		}
	}
	// An explicit --keep wins; otherwise the policy's default applies.
	keepSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "keep" {
			keepSet = true
		}
	})
	if !keepSet {
		*keepN = cfg.DefaultKeepAssistants
	}

	sessionPath, err := locator.Resolve(*cwd, *sessionID)
	if err != nil {
		logger.Error("resolve transcript", "error", err)
		os.Exit(1)
	}
	sid := *sessionID
	if sid == "" {
		sid = sessionIDFromPath(sessionPath)
	}

	lines, err := transcript.ReadLines(sessionPath)
	if err != nil {
		logger.Error("read transcript", "error", err)
		os.Exit(1)
	}
	bytesBefore := lineBytes(lines)

	var (
		out    [][]byte
		report prune.Report
		desc   string
	)

	if *useBoundary {
		boundaries, _ := boundary.AnalyzeWithOptions(lines, cfg.BoundaryOptions())
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			logger.Error("--boundary requires an interactive terminal; pass --keep instead")
			os.Exit(1)
		}
		lineNum, chosen, err := cli.PromptBoundaryChoice(os.Stdin, os.Stdout, boundaries)
		if err != nil {
			logger.Error("boundary prompt", "error", err)
			os.Exit(1)
		}
		if !chosen {
			fmt.Fprintln(os.Stdout, "cancelled")
			return
		}
		out, report = prune.KeepFromBoundary(lines, lineNum)
		for _, b := range boundaries {
			if b.LineNumber == lineNum {
				desc = b.Description
			}
		}
	} else {
		out, report = prune.KeepByAssistantCount(lines, *keepN)
	}

	bytesAfter := lineBytes(out)
	fmt.Fprintf(os.Stdout, "%s: %d lines -> %d lines, %s -> %s (%d kept, %d dropped)\n",
		sid, len(lines), len(out), humanize.Bytes(uint64(bytesBefore)), humanize.Bytes(uint64(bytesAfter)),
		report.Kept, report.Dropped)

	if *dryRun {
		fmt.Fprintln(os.Stdout, "dry run, nothing written")
		return
	}

	projectDir, err := locator.ProjectDir(*cwd)
	if err != nil {
		logger.Error("resolve project directory", "error", err)
		os.Exit(1)
	}
	if _, err := backup.Snapshot(projectDir, sid, sessionPath); err != nil {
		logger.Error("snapshot before prune", "error", err)
		os.Exit(1)
	}
	if err := transcript.WriteLines(sessionPath, out); err != nil {
		logger.Error("write pruned transcript", "error", err)
		os.Exit(1)
	}

	store, err := openStore(*cwd, logger)
	if err != nil {
		logger.Error("open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	store.RecordInvocation(ctx, &history.Invocation{
		SessionID:           sid,
		Mode:                pruneMode(*useBoundary),
		Timestamp:           time.Now(),
		LinesBefore:         len(lines),
		LinesAfter:          len(out),
		BytesBefore:         bytesBefore,
		BytesAfter:          bytesAfter,
		Kept:                report.Kept,
		Dropped:             report.Dropped,
		BoundaryDescription: desc,
	})
	if *useBoundary {
		store.MarkConsumed(ctx, sid, time.Now())
	}
}

func pruneMode(useBoundary bool) history.Mode {
	if useBoundary {
		return history.ModeBoundary
	}
	return history.ModeKeepN
}

func lineBytes(lines [][]byte) int64 {
	var n int64
	for _, l := range lines {
		n += int64(len(l)) + 1 // + newline
	}
	return n
}

func runHook(args []string) {
	if len(args) == 0 || args[0] != "mark" {
		fmt.Fprintln(os.Stderr, "usage: transcriptprune hook mark [--intent <text>]")
		os.Exit(2)
	}

	fs := flag.NewFlagSet("hook mark", flag.ExitOnError)
	intent := fs.String("intent", "", "free-form description of the work that just finished")
	sessionID := fs.String("session", "", "session id (default: most recently modified transcript)")
	cwd := fs.String("cwd", ".", "project working directory")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(args[1:])

	logger := newLogger(*logLevel)

	sessionPath, err := locator.Resolve(*cwd, *sessionID)
	if err != nil {
		logger.Error("resolve transcript", "error", err)
		os.Exit(1)
	}
	sid := *sessionID
	if sid == "" {
		sid = sessionIDFromPath(sessionPath)
	}

	store, err := openStore(*cwd, logger)
	if err != nil {
		logger.Error("open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := hook.Mark(context.Background(), store, sid, sessionPath, *intent); err != nil {
		logger.Error("mark boundary", "error", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, "boundary marked")
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	sessionID := fs.String("session", "", "restrict to a single session id (default: every session)")
	cwd := fs.String("cwd", ".", "project working directory")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(args)

	logger := newLogger(*logLevel)

	store, err := openStore(*cwd, logger)
	if err != nil {
		logger.Error("open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	invocations, err := store.RecentInvocations(ctx, *sessionID, 50)
	if err != nil {
		logger.Error("query history", "error", err)
		os.Exit(1)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		logger.Error("query stats", "error", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "%d total prunes, %s reclaimed, %.1f%% average retention\n\n",
		stats.TotalPrunes, humanize.Bytes(uint64(stats.TotalBytesReclaimed)), stats.AverageRetentionPercent)

	for _, inv := range invocations {
		fmt.Fprintf(os.Stdout, "%s  %-10s  %-8s  %d -> %d lines  %s -> %s",
			inv.Timestamp.Format(time.RFC3339), inv.SessionID, inv.Mode,
			inv.LinesBefore, inv.LinesAfter,
			humanize.Bytes(uint64(inv.BytesBefore)), humanize.Bytes(uint64(inv.BytesAfter)))
		if inv.BoundaryDescription != "" {
			fmt.Fprintf(os.Stdout, "  (%s)", inv.BoundaryDescription)
		}
		fmt.Fprintln(os.Stdout)
	}
}

func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	sessionID := fs.String("session", "", "session id (default: most recently modified transcript)")
	cwd := fs.String("cwd", ".", "project working directory")
	approvalTimeout := fs.Duration("approval-timeout", 60*time.Second, "timeout for the restore confirmation")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(args)

	logger := newLogger(*logLevel)

	sessionPath, err := locator.Resolve(*cwd, *sessionID)
	if err != nil {
		logger.Error("resolve transcript", "error", err)
		os.Exit(1)
	}
	sid := *sessionID
	if sid == "" {
		sid = sessionIDFromPath(sessionPath)
	}

	projectDir, err := locator.ProjectDir(*cwd)
	if err != nil {
		logger.Error("resolve project directory", "error", err)
		os.Exit(1)
	}

	backups, err := backup.List(projectDir, sid)
	if err != nil {
		logger.Error("list backups", "error", err)
		os.Exit(1)
	}
	if len(backups) == 0 {
		fmt.Fprintln(os.Stdout, "no backups available for this session")
		return
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		logger.Error("restore requires an interactive terminal to confirm")
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout, "Available backups (newest first):")
	for i, b := range backups {
		fmt.Fprintf(os.Stdout, "  %d. %s\n", i+1, b.Timestamp.Format(time.RFC3339))
	}
	fmt.Fprintf(os.Stdout, "Restore which one? [1-%d, blank to cancel]: ", len(backups))

	var choice int
	if _, err := fmt.Fscanln(os.Stdin, &choice); err != nil || choice < 1 || choice > len(backups) {
		fmt.Fprintln(os.Stdout, "cancelled")
		return
	}
	chosen := backups[choice-1]

	mgr := approval.NewRestoreManager(*approvalTimeout)
	req := &approval.RestoreRequest{
		Timestamp:  time.Now(),
		SessionID:  sid,
		BackupPath: chosen.Path,
	}
	ch := mgr.Submit(req)

	fmt.Fprintf(os.Stdout, "About to overwrite the live transcript with the backup from %s. Confirm? [y/N]: ",
		chosen.Timestamp.Format(time.RFC3339))
	var answer string
	fmt.Fscanln(os.Stdin, &answer)
	approved := strings.EqualFold(strings.TrimSpace(answer), "y")
	mgr.Resolve(req.ID, approved)

	if err := approval.Await(context.Background(), ch); err != nil {
		fmt.Fprintf(os.Stdout, "restore not performed: %v\n", err)
		return
	}

	preRestore, err := backup.Restore(projectDir, sid, sessionPath, chosen.Path)
	if err != nil {
		logger.Error("restore", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "restored %s (pre-restore snapshot: %s)\n", sessionPath, preRestore)
}

func runDashboard(args []string) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	addr := fs.String("addr", ":9100", "dashboard listen address")
	cwd := fs.String("cwd", ".", "project working directory")
	noBrowser := fs.Bool("no-browser", false, "don't auto-open the dashboard in a browser")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(args)

	logger := newLogger(*logLevel)

	store, err := openStore(*cwd, logger)
	if err != nil {
		logger.Error("open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	srv, err := dashboard.NewServer(*addr, store, logger)
	if err != nil {
		logger.Error("build dashboard server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*noBrowser {
		go func() {
			time.Sleep(300 * time.Millisecond)
			if err := cli.OpenBrowser(fmt.Sprintf("http://localhost%s", *addr)); err != nil {
				logger.Debug("could not open browser", "error", err)
			}
		}()
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("dashboard exited", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "transcriptprune — prune Claude Code session transcripts to their logical tail")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  transcriptprune prune [--keep N] [--boundary] [--dry-run] [--session <id>] [--cwd <dir>]")
	fmt.Fprintln(os.Stderr, "  transcriptprune hook mark [--intent <text>]")
	fmt.Fprintln(os.Stderr, "  transcriptprune history [--session <id>]")
	fmt.Fprintln(os.Stderr, "  transcriptprune restore [--session <id>]")
	fmt.Fprintln(os.Stderr, "  transcriptprune dashboard [--addr :9100]")
	fmt.Fprintln(os.Stderr, "  transcriptprune version")
	fmt.Fprintln(os.Stderr, "  transcriptprune help")
}
