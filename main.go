// mkbbr.go
// Bad-block relocation (BBR) table creator for images or block devices.
// Writes two redundant copies of an empty, checksummed BBR table, each
// replicated over a run of sectors.
//
// Usage:
//
//	mkbbr [flags] <device> <table1_lsn> <table2_lsn> <nr_sects_bbr_table>
//
// Build:
//
//	go build -o mkbbr .
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mkbbr/bbr"
	"mkbbr/config"
	"mkbbr/crc"
	"mkbbr/metrics"
	"mkbbr/retrodfrg"
)

const exitInterrupted = 130

// job is what the positional arguments ask for.
type job struct {
	device   string
	table1   uint64
	table2   uint64
	replicas uint64
}

type options struct {
	configPath     string
	keep           bool
	sync           string
	ui             bool
	metricsFile    string
	logLevel       string
	maxSeekSectors uint64
	dryRun         bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the command line and returns the process status. Every
// failure is reported once on out.
func run(args []string, out io.Writer) int {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	log := newLogger(out, level)
	defer func() { _ = log.Sync() }()

	root, _ := newRootCmd(out, log, level)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}

	log.Error(err.Error())
	if showUsage(err) {
		fmt.Fprint(out, root.UsageString())
	}
	if errors.Is(err, retrodfrg.ErrInterrupted) {
		return exitInterrupted
	}
	return bbr.ExitCode(err)
}

// showUsage reports whether err is about the command line itself.
func showUsage(err error) bool {
	var ue *bbr.UsageError
	return errors.As(err, &ue)
}

func newRootCmd(out io.Writer, log *zap.Logger, level zap.AtomicLevel) (*cobra.Command, *options) {
	opts := &options{}
	root := &cobra.Command{
		Use:   "mkbbr [flags] <device> <table1_lsn> <table2_lsn> <nr_sects_bbr_table>",
		Short: "Create bad-block relocation tables on an image or block device",
		Long: "Write two redundant copies of an empty, checksummed BBR table.\n" +
			"Each copy starts at the given logical sector and is replicated over nr_sects_bbr_table sectors.",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 4 {
				return &bbr.UsageError{Msg: fmt.Sprintf("expected 4 arguments, got %d", len(args))}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd.Flags(), opts)
			if err != nil {
				return &bbr.UsageError{Msg: "invalid configuration", Err: err}
			}
			level.SetLevel(zapcore.Level(s.LogLevel))

			j, err := parseJob(args)
			if err != nil {
				return err
			}
			return provision(log, s, j, out, opts.dryRun)
		},
	}
	root.SetOut(out)
	root.SetErr(out)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &bbr.UsageError{Msg: "invalid flag", Err: err}
	})

	root.Flags().StringVar(&opts.configPath, "config", "", "YAML settings file")
	root.Flags().BoolVar(&opts.keep, "keep", false, "do not truncate an existing image file")
	root.Flags().StringVar(&opts.sync, "sync", "table", "sync policy: table|replica|none")
	root.Flags().BoolVar(&opts.ui, "ui", false, "fullscreen progress display")
	root.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus text-format metrics to this file")
	root.Flags().StringVar(&opts.logLevel, "log-level", "info", "debug|info|warn|error")
	root.Flags().Uint64Var(&opts.maxSeekSectors, "max-seek-sectors", 0, "largest relative seek in sectors (0 = platform maximum)")
	root.Flags().BoolVar(&opts.dryRun, "dry-run", false, "build the table and print the layout without writing")
	return root, opts
}

// resolveSettings layers defaults, the config file and explicitly set flags.
func resolveSettings(fs *pflag.FlagSet, opts *options) (*config.Settings, error) {
	s, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if fs.Changed("keep") {
		s.Truncate = !opts.keep
	}
	if fs.Changed("sync") {
		p, err := bbr.ParseSyncPolicy(opts.sync)
		if err != nil {
			return nil, err
		}
		s.Sync = config.SyncMode(p)
	}
	if fs.Changed("ui") {
		s.UI = opts.ui
	}
	if fs.Changed("metrics-file") {
		s.MetricsFile = opts.metricsFile
	}
	if fs.Changed("log-level") {
		lvl, err := config.ParseLogLevel(opts.logLevel)
		if err != nil {
			return nil, err
		}
		s.LogLevel = lvl
	}
	if fs.Changed("max-seek-sectors") {
		s.MaxSeekSectors = opts.maxSeekSectors
	}
	return s, s.Validate()
}

func parseJob(args []string) (job, error) {
	j := job{device: args[0]}
	names := []string{"table1_lsn", "table2_lsn", "nr_sects_bbr_table"}
	dst := []*uint64{&j.table1, &j.table2, &j.replicas}
	for i, a := range args[1:] {
		v, err := strconv.ParseUint(strings.TrimSpace(a), 10, 64)
		if err != nil {
			return job{}, &bbr.UsageError{Msg: fmt.Sprintf("invalid %s %q", names[i], a), Err: err}
		}
		*dst[i] = v
	}
	return j, nil
}

func provision(log *zap.Logger, s *config.Settings, j job, out io.Writer, dryRun bool) (err error) {
	start := time.Now()
	rec := metrics.New()
	defer func() {
		if s.MetricsFile == "" {
			return
		}
		rec.Finish(start, err)
		if werr := rec.WriteFile(s.MetricsFile); werr != nil {
			log.Warn("cannot write metrics file", zap.String("path", s.MetricsFile), zap.Error(werr))
		}
	}()

	tbl := bbr.Build(crc.IEEETable)
	if rangesOverlap(j.table1, j.table2, j.replicas) {
		log.Warn("table copies overlap; the second copy overwrites part of the first",
			zap.Uint64("table1_lsn", j.table1),
			zap.Uint64("table2_lsn", j.table2),
			zap.Uint64("replicas", j.replicas))
	}
	if dryRun {
		printLayout(out, j, &tbl)
		return nil
	}

	f, err := openTarget(j.device, s.Truncate)
	if err != nil {
		return &bbr.OpenError{Path: j.device, Err: err}
	}
	defer f.Close()

	// Validate device size (best-effort). Regular files simply grow.
	isBlock, size, perr := probeTarget(f)
	switch {
	case perr != nil:
		log.Warn("cannot determine device size; proceeding without size check", zap.Error(perr))
	case isBlock:
		if err := checkFits(j, uint64(size)/bbr.SectorSize); err != nil {
			return err
		}
	}

	var (
		ui *retrodfrg.UI
		tr *retrodfrg.Tracker
	)
	if s.UI {
		ui, err = retrodfrg.NewUI()
		if err != nil {
			log.Warn("progress display unavailable", zap.Error(err))
			ui = nil
		} else {
			defer ui.Close()
			tr = retrodfrg.NewTracker(2, j.replicas)
			setupUI(ui, tr, j, &tbl)

			stopSignals := watchSignals(ui.RequestStop)
			defer stopSignals()
		}
	}

	for i, lsn := range []uint64{j.table1, j.table2} {
		table := i + 1
		hooks := []func(index, sector uint64) error{
			func(_, _ uint64) error {
				rec.Replica(table, bbr.SectorSize)
				return nil
			},
		}
		if ui != nil {
			hooks = append(hooks, retrodfrg.ReplicaHook(ui, tr, i, uiEvery(j.replicas)))
		}
		w := bbr.NewWriter(
			bbr.WithDevice(j.device),
			bbr.WithSync(bbr.SyncPolicy(s.Sync)),
			bbr.WithMaxSeekSectors(s.MaxSeekSectors),
			bbr.WithLogger(log.With(zap.Int("table", table))),
			bbr.WithSeekHook(func(int64) { rec.Seek() }),
			bbr.WithReplicaHook(chainHooks(hooks...)),
		)
		log.Debug("writing table", zap.Int("table", table), zap.Uint64("lsn", lsn), zap.Uint64("replicas", j.replicas))
		if err := w.WriteReplicas(f, &tbl, lsn, j.replicas); err != nil {
			return err
		}
		if ui != nil {
			ui.SetPhaseDone(fmt.Sprintf("Table %d", table))
			ui.Draw()
		}
	}

	if ui != nil {
		_ = retrodfrg.WaitWithStop(ui, 2*time.Second)
		ui.Close()
	}
	printLayout(out, j, &tbl)
	log.Info("bbr tables written",
		zap.String("device", j.device),
		zap.Uint64("replicas", j.replicas),
		zap.Uint64("bytes", 2*j.replicas*bbr.SectorSize))
	return nil
}

// watchSignals calls onSignal on the first SIGINT or SIGTERM. The returned
// func stops watching and waits for the watcher goroutine to exit.
func watchSignals(onSignal func()) (stop func()) {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	exited := make(chan struct{})
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer close(exited)
		select {
		case <-sigChan:
			onSignal()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(done)
		<-exited
	}
}

func openTarget(path string, truncate bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(path, flags, 0o644)
}

// checkFits rejects table copies that run past the end of a device of the
// given size in sectors.
func checkFits(j job, sectors uint64) error {
	for i, lsn := range []uint64{j.table1, j.table2} {
		if lsn > sectors || j.replicas > sectors-lsn {
			return &bbr.CapacityError{Device: j.device, Table: i + 1, Start: lsn, Count: j.replicas, Sectors: sectors}
		}
	}
	return nil
}

// rangesOverlap reports whether [a, a+n) and [b, b+n) intersect.
func rangesOverlap(a, b, n uint64) bool {
	if n == 0 {
		return false
	}
	if a > b {
		a, b = b, a
	}
	return b-a < n
}

func chainHooks(hooks ...func(index, sector uint64) error) func(index, sector uint64) error {
	return func(index, sector uint64) error {
		for _, h := range hooks {
			if err := h(index, sector); err != nil {
				return err
			}
		}
		return nil
	}
}

// uiEvery keeps redraws to roughly a few hundred per table copy.
func uiEvery(replicas uint64) uint64 {
	if replicas <= 256 {
		return 1
	}
	return replicas / 256
}

func setupUI(ui *retrodfrg.UI, tr *retrodfrg.Tracker, j job, tbl *bbr.Table) {
	ui.SetTitle(fmt.Sprintf("BBR TABLES – %s", j.device))
	ui.SetInfo([]string{
		fmt.Sprintf("Table #1: %s   Table #2: %s", formatRange(j.table1, j.replicas), formatRange(j.table2, j.replicas)),
		fmt.Sprintf("Signature: %#08x  Checksum: %#08x  Entries/sector: %d", tbl.Signature, tbl.Checksum, bbr.EntriesPerSector),
	})
	ui.SetLegend("Legend:  █ replica written   ░ not yet written | Q to quit")
	ui.SetPhases("Table 1", "Table 2")
	ui.SetTracker(tr)
	ui.Draw()
}

func formatRange(start, n uint64) string {
	switch n {
	case 0:
		return "(none)"
	case 1:
		return fmt.Sprintf("[%06d]", start)
	}
	return fmt.Sprintf("[%06d … %06d]", start, start+n-1)
}

func printLayout(out io.Writer, j job, tbl *bbr.Table) {
	lineWidth := 79
	barHeavy := strings.Repeat("═", lineWidth)
	barLight := strings.Repeat("─", lineWidth)

	lines := []string{
		barHeavy,
		" BBR TABLE",
		barLight,
		fmt.Sprintf(" Signature: %#08x    Checksum: %#08x", tbl.Signature, tbl.Checksum),
		fmt.Sprintf(" Sequence: %-4d  In use: %-4d  Entries/sector: %-3d  Sector size: %d",
			tbl.SequenceNumber, tbl.InUseCount, bbr.EntriesPerSector, bbr.SectorSize),
		barLight,
		" LAYOUT (absolute sector ranges)",
		barLight,
		fmt.Sprintf(" Table #1: %s    Table #2: %s", formatRange(j.table1, j.replicas), formatRange(j.table2, j.replicas)),
		fmt.Sprintf(" Replicas per table: %d  Bytes per table: %d", j.replicas, j.replicas*bbr.SectorSize),
		barHeavy,
	}
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
}
