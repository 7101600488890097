package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/fliplane/internal/config"
	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/filters"
	"github.com/banshee-data/fliplane/internal/flow"
	"github.com/banshee-data/fliplane/internal/flow/bridge"
	"github.com/banshee-data/fliplane/internal/flow/sink"
	"github.com/banshee-data/fliplane/internal/overlay"
	"github.com/banshee-data/fliplane/internal/resultstore"
	"github.com/banshee-data/fliplane/internal/security"
	"github.com/banshee-data/fliplane/internal/timeutil"
)

// Summary describes one finished graph run.
type Summary struct {
	Name    string
	GraphID uuid.UUID
	Frames  int
	Failed  int
	Series  []overlay.Series
	Stats   []flow.FilterStats
}

// recorder is implemented by the buffering sinks whose records are persisted.
type recorder interface {
	Results() []sink.Record[datatype.Doublearray]
}

type latcher interface {
	IsNIO() bool
}

type runner struct {
	reg        *flow.Registry
	store      *resultstore.Store
	opts       []flow.Option
	overlayDir string
	clock      timeutil.Clock
}

// newRegistry returns a registry holding every filter and bridge kind.
func newRegistry() (*flow.Registry, error) {
	reg := flow.NewRegistry()
	if err := filters.Register(reg); err != nil {
		return nil, err
	}
	if err := bridge.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// graphOptions maps engine settings onto graph build options.
func graphOptions(e *config.EngineConfig) ([]flow.Option, error) {
	v, err := flow.ParseVerbosity(e.GetDefaultVerbosity())
	if err != nil {
		return nil, err
	}
	return []flow.Option{
		flow.WithMaxInFlight(e.GetMaxInFlightFrames()),
		flow.WithTiming(e.GetTimingEnabled()),
		flow.WithDefaultVerbosity(v),
	}, nil
}

func loadDescriptions(paths []string, combine bool) ([]flow.Description, error) {
	descs := make([]flow.Description, 0, len(paths))
	for _, p := range paths {
		d, err := flow.LoadDescription(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		if d.Name == "" {
			d.Name = filepath.Base(p)
		}
		descs = append(descs, d)
	}
	if !combine || len(descs) < 2 {
		return descs, nil
	}
	d, err := bridge.Combine(descs...)
	if err != nil {
		return nil, fmt.Errorf("combine graphs: %w", err)
	}
	return []flow.Description{d}, nil
}

// run builds every graph, pushes the samples through each of them
// concurrently and writes the optional report. Each graph is driven by one
// goroutine, so frames within a graph stay strictly ordered.
func run(ctx context.Context, cfg Config, engine *config.EngineConfig) ([]Summary, error) {
	opts, err := graphOptions(engine)
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	descs, err := loadDescriptions(cfg.Graphs, cfg.Combine)
	if err != nil {
		return nil, err
	}
	samples, err := readSamplesFile(cfg.Samples)
	if err != nil {
		return nil, err
	}
	if cfg.OverlayDir != "" {
		if err := os.MkdirAll(cfg.OverlayDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	store, err := resultstore.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	r := &runner{reg: reg, store: store, opts: opts, overlayDir: cfg.OverlayDir, clock: timeutil.RealClock{}}
	summaries := make([]Summary, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range descs {
		i, d := i, d
		g.Go(func() error {
			s, err := r.runGraph(gctx, d, samples)
			if err != nil {
				return fmt.Errorf("graph %q: %w", d.Name, err)
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cfg.Report != "" {
		if err := writeReport(cfg.Report, summaries); err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

// graphRun is the per-graph state of one run. persisted holds, per
// recording sink, the frame counters already written to the store.
type graphRun struct {
	desc      flow.Description
	graph     *flow.Graph
	canvas    *overlay.Canvas
	keys      map[uuid.UUID]string
	persisted map[uuid.UUID]map[int]bool
	series    map[string]*overlay.Series
	names     []string
}

func (r *runner) runGraph(ctx context.Context, desc flow.Description, all []sample) (Summary, error) {
	g, err := flow.BuildDescription(r.reg, desc, r.opts...)
	if err != nil {
		return Summary{}, err
	}
	defer g.Dispose()

	run := &graphRun{
		desc:      desc,
		graph:     g,
		keys:      sinkKeys(g),
		persisted: make(map[uuid.UUID]map[int]bool),
		series:    make(map[string]*overlay.Series),
	}
	if r.overlayDir != "" {
		run.canvas = overlay.NewCanvas()
	}

	frames, err := groupFrames(selectSamples(all, desc, g))
	if err != nil {
		return Summary{}, err
	}
	if err := g.Arm(flow.ArmSequenceStart); err != nil {
		return Summary{}, err
	}
	for _, fr := range frames {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if err := r.frame(run, fr); err != nil {
			return Summary{}, err
		}
	}
	if err := g.Arm(flow.ArmSequenceEnd); err != nil {
		return Summary{}, err
	}

	total, failed := g.Frames()
	sum := Summary{Name: desc.Name, GraphID: g.ID(), Frames: total, Failed: failed, Stats: g.Stats()}
	for _, name := range run.names {
		sum.Series = append(sum.Series, *run.series[name])
	}
	return sum, nil
}

// frame pushes every input of one counter as a single frame and records its
// outcome. A failed frame is stored and the run continues; only storage
// errors abort it.
func (r *runner) frame(run *graphRun, fr frameInput) error {
	start := r.clock.Now()
	pushErr := run.graph.Push(fr.ctx, fr.inputs...)

	outcome := &resultstore.FrameOutcome{
		GraphID:   run.graph.ID(),
		Counter:   fr.ctx.Counter,
		Status:    resultstore.FrameOK,
		StartedAt: start,
		Duration:  r.clock.Since(start),
	}
	if pushErr != nil {
		outcome.Status = resultstore.FrameFailed
		outcome.Error = pushErr.Error()
	}
	if err := r.store.RecordFrame(outcome); err != nil {
		return err
	}
	if pushErr != nil {
		return nil
	}
	if err := r.collect(run); err != nil {
		return err
	}
	return r.paint(run, fr.ctx.Counter)
}

// collect stores the records of frames a buffering sink has not persisted
// yet and extends the report series. Records are matched by frame counter,
// so records dropped by a failed frame never shift later ones.
func (r *runner) collect(run *graphRun) error {
	for _, f := range run.graph.Order() {
		rec, ok := f.(recorder)
		if !ok {
			continue
		}
		id := f.FilterBase().Instance()
		name := run.keys[id]
		done := run.persisted[id]
		if done == nil {
			done = make(map[int]bool)
			run.persisted[id] = done
		}
		latched := len(done) > 0
		var added []int
		for _, record := range rec.Results() {
			counter := record.Context.Counter
			if done[counter] {
				continue
			}
			values := make([]any, 0, len(record.Values))
			for _, a := range record.Values {
				values = append(values, encodeDoublearray(a))
			}
			if err := r.store.RecordResults(run.graph.ID(), name, counter, values); err != nil {
				return err
			}
			run.addSample(name, record)
			added = append(added, counter)
		}
		if nio, ok := f.(latcher); ok && nio.IsNIO() && !latched && len(added) > 0 {
			log.Printf("graph %q: %s latched at frame %d", run.desc.Name, name, added[0])
		}
		for _, c := range added {
			done[c] = true
		}
	}
	return nil
}

// sinkKeys names every recording sink for the result store. Instance names
// are used as given; sinks sharing a name are told apart by their position
// in the graph.
func sinkKeys(g *flow.Graph) map[uuid.UUID]string {
	var recs []*flow.Base
	count := make(map[string]int)
	for _, f := range g.Order() {
		if _, ok := f.(recorder); ok {
			b := f.FilterBase()
			recs = append(recs, b)
			count[b.Name()]++
		}
	}
	keys := make(map[uuid.UUID]string, len(recs))
	for _, b := range recs {
		key := b.Name()
		if count[key] > 1 {
			key = b.NameInGraph()
		}
		keys[b.Instance()] = key
	}
	return keys
}

func (run *graphRun) addSample(name string, record sink.Record[datatype.Doublearray]) {
	s, ok := run.series[name]
	if !ok {
		s = &overlay.Series{Name: name}
		run.series[name] = s
		run.names = append(run.names, name)
	}
	if len(record.Values) == 0 || record.Values[0].Len() == 0 {
		return
	}
	s.Samples = append(s.Samples, overlay.Sample{Counter: record.Context.Counter, Value: record.Values[0].Data[0]})
}

func (r *runner) paint(run *graphRun, counter int) error {
	if run.canvas == nil {
		return nil
	}
	run.canvas.SetFrame(counter)
	run.graph.Paint(run.canvas)
	if len(run.canvas.Frame(counter)) == 0 {
		return nil
	}
	path, err := security.OutputPath(r.overlayDir, fmt.Sprintf("%s_%06d.png", run.desc.Name, counter))
	if err != nil {
		return err
	}
	return overlay.RenderPNG(run.canvas, counter, path)
}

// encodeDoublearray converts a value into the structpb-compatible form the
// result store accepts.
func encodeDoublearray(a datatype.Doublearray) any {
	data := make([]any, len(a.Data))
	rank := make([]any, len(a.Rank))
	for i, v := range a.Data {
		data[i] = v
	}
	for i, v := range a.Rank {
		rank[i] = v
	}
	return map[string]any{"data": data, "rank": rank}
}

func writeReport(path string, summaries []Summary) error {
	var series []overlay.Series
	for _, s := range summaries {
		for _, ser := range s.Series {
			ser.Name = s.Name + "/" + ser.Name
			series = append(series, ser)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := overlay.WriteReport(f, "flowrun", series); err != nil {
		return err
	}
	return f.Close()
}
