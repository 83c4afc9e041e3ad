package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/HandsomeHarry/companion-cube/internal/buffer"
	"github.com/HandsomeHarry/companion-cube/internal/config"
	"github.com/HandsomeHarry/companion-cube/internal/llm"
	"github.com/HandsomeHarry/companion-cube/internal/logging"
	"github.com/HandsomeHarry/companion-cube/internal/merge"
	"github.com/HandsomeHarry/companion-cube/internal/notify"
	"github.com/HandsomeHarry/companion-cube/internal/pattern"
	"github.com/HandsomeHarry/companion-cube/internal/source"
	"github.com/HandsomeHarry/companion-cube/internal/state"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

var log = logging.For("scheduler")

// EventFetcher is the event-source side of the scheduler.
type EventFetcher interface {
	Fetch(ctx context.Context, start, end time.Time) (source.Batch, error)
}

// TextGenerator is the language-generation collaborator.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) llm.Result
}

// DeviceSink renders a state on the companion device.
type DeviceSink interface {
	Show(state types.UserState, text string) error
}

// RecordSink is the persistence collaborator.
type RecordSink interface {
	SaveRecords(records []types.ActivityRecord) error
	SaveIntervention(iv types.Intervention, snapshot any) error
	SaveDailySummary(date time.Time, summary any) error
	RecordsSince(t time.Time) ([]types.ActivityRecord, error)
}

// Options wires the scheduler's collaborators. Generator, Device, and Store
// may be nil; the engine degrades per collaborator.
type Options struct {
	Fetcher   EventFetcher
	Generator TextGenerator
	Device    DeviceSink
	Store     RecordSink
	Notifier  notify.Notifier
}

// Scheduler runs the engine's periodic loops: event polling, state
// re-analysis, mode-driven suggestions, and the end-of-day summary. All loops
// share the recent-activity buffer; everything else here (cooldown gate,
// daily stats, poll cursor) is owned by the scheduler alone.
type Scheduler struct {
	cfg      config.Config
	recent   *buffer.Recent
	merger   *merge.Merger
	analyzer *state.Analyzer
	detector *pattern.Detector
	gate     *Gate
	stats    statsCounter

	fetcher   EventFetcher
	generator TextGenerator
	device    DeviceSink
	store     RecordSink
	notifier  notify.Notifier

	mu       sync.Mutex
	mode     types.CompanionMode
	deviceOn bool
	lastPoll time.Time

	cron     gocron.Scheduler
	cronSpec string
	modeCh   chan struct{} // signals the suggestion loop to re-arm its cadence
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// New creates a scheduler. Config must already be validated.
func New(cfg config.Config, recent *buffer.Recent, opts Options) (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:       cfg,
		recent:    recent,
		merger:    merge.New(cfg.Thresholds.IdleOverlap),
		analyzer:  state.NewAnalyzer(cfg.Thresholds),
		detector:  pattern.New(cfg.Stuck),
		gate:      NewGate(cfg.Cooldowns),
		fetcher:   opts.Fetcher,
		generator: opts.Generator,
		device:    opts.Device,
		store:     opts.Store,
		notifier:  opts.Notifier,
		mode:      cfg.CompanionMode(),
		deviceOn:  cfg.DeviceEnabled,
		cron:      cron,
		cronSpec:  "0 0 * * *",
		modeCh:    make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}
	if s.notifier == nil {
		s.notifier = notify.Silent{}
	}
	return s, nil
}

// Start launches the periodic loops and the daily summary job.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.lastPoll = time.Now().UTC().Add(-s.cfg.PollInterval)
	s.mu.Unlock()

	// Register the summary job before launching anything: a failed Start must
	// leave no loop running detached.
	if _, err := s.cron.NewJob(
		gocron.CronJob(s.cronSpec, false),
		gocron.NewTask(s.publishDailySummary),
	); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}

	s.wg.Add(3)
	go s.pollLoop()
	go s.reanalysisLoop()
	go s.suggestionLoop()
	s.cron.Start()

	log.Infof("started (poll=%v, reanalyze=%v, mode=%s)", s.cfg.PollInterval, s.cfg.ReanalyzeEvery, s.Mode())
	return nil
}

// Stop halts every loop and the cron scheduler. It blocks until all loops
// exited; nothing stays running detached.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	if err := s.cron.Shutdown(); err != nil {
		log.Warnf("cron shutdown: %v", err)
	}
	log.Infof("stopped")
}

// Mode returns the current companion mode.
func (s *Scheduler) Mode() types.CompanionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ApplyConfig adopts the externally editable settings (mode, device enable)
// from a reloaded configuration. Structural settings like intervals keep
// their startup values.
func (s *Scheduler) ApplyConfig(cfg config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode := cfg.CompanionMode(); mode != s.mode {
		log.Infof("mode changed: %s -> %s", s.mode, mode)
		s.mode = mode
		// Wake the suggestion loop so the new cadence applies now, not after
		// the old timer (up to hours for ghost) finally fires.
		select {
		case s.modeCh <- struct{}{}:
		default:
		}
	}
	s.deviceOn = cfg.DeviceEnabled
}

// --- polling ---

func (s *Scheduler) pollLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

// pollOnce fetches the latest events, merges them into records, refreshes the
// shared buffer and the externally visible state. Source failures skip the
// cycle; the poll cursor is left in place so the next cycle covers the gap.
func (s *Scheduler) pollOnce() {
	s.mu.Lock()
	start := s.lastPoll
	s.mu.Unlock()
	now := time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	batch, err := s.fetcher.Fetch(ctx, start, now)
	if err != nil {
		log.Warnf("event source unavailable, skipping cycle: %v", err)
		return
	}

	records := s.merger.Merge(batch.Window, batch.Idle, batch.Web)
	if len(records) > 0 {
		s.recent.Append(records...)
		if s.store != nil && s.cfg.CollectData {
			if err := s.store.SaveRecords(records); err != nil {
				log.Warnf("persist records: %v", err)
			}
		}
	}

	s.refreshState(now)

	stats := s.detector.WindowStats(s.recent.Snapshot(), now)
	if stats.FocusTime > 0 {
		s.stats.bumpFocus()
	}
	if stats.Distraction > 0 {
		s.stats.bumpDistraction()
	}

	s.mu.Lock()
	s.lastPoll = now
	s.mu.Unlock()

	log.Debugf("poll: %d events -> %d records, state=%s", batch.Total(), len(records), s.recent.State())
}

// refreshState re-runs the windowed classifier and forwards the transition if
// the state changed. No-op transitions stay silent.
func (s *Scheduler) refreshState(now time.Time) {
	next := s.analyzer.Current(s.recent.Snapshot(), now)
	old, changed := s.recent.SetState(next)
	if !changed {
		return
	}
	log.Infof("state: %s -> %s", old, next)
	s.pushDevice(next, pattern.FallbackText(next))
}

// --- re-analysis ---

func (s *Scheduler) reanalysisLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.ReanalyzeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.reanalyzeOnce(time.Now().UTC())
		}
	}
}

// reanalyzeOnce re-runs the windowed classifier and the stuck detector. Only
// when both agree the user needs a nudge does it intervene, bypassing the
// mode cadence but not the ghost policy or the cooldown.
func (s *Scheduler) reanalyzeOnce(now time.Time) {
	s.refreshState(now)

	if s.Mode() == types.ModeGhost {
		return
	}

	records := s.recent.Snapshot()
	current := s.recent.State()
	stuck := s.detector.Stuck(records, now)

	if current != types.StateNudge || !stuck {
		return
	}
	if !s.gate.Allow(types.TriggerNudge, current) {
		log.Debugf("nudge suppressed by cooldown")
		return
	}

	text, fallback := s.generateText(records, current, now)
	s.emit(types.TriggerNudge, current, text, fallback, records, now)
}

// --- suggestions ---

// cadenceFor returns the suggestion period for a mode.
func cadenceFor(mode types.CompanionMode) time.Duration {
	switch mode {
	case types.ModeStudyBuddy:
		return 20 * time.Minute
	case types.ModeCoach:
		return 30 * time.Minute
	case types.ModeGhost:
		return 2 * time.Hour
	case types.ModeWeekend:
		return 45 * time.Minute
	}
	return 30 * time.Minute
}

func (s *Scheduler) suggestionLoop() {
	defer s.wg.Done()
	timer := time.NewTimer(cadenceFor(s.Mode()))
	defer timer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-s.modeCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(cadenceFor(s.Mode()))
		case <-timer.C:
			s.suggestOnce(time.Now().UTC())
			timer.Reset(cadenceFor(s.Mode()))
		}
	}
}

// suggestOnce runs one suggestion tick: skipped entirely in ghost mode,
// skipped under flow protection, gated by mode policy and cooldown.
func (s *Scheduler) suggestOnce(now time.Time) {
	mode := s.Mode()
	if mode == types.ModeGhost {
		return
	}

	current := s.recent.State()
	if current == types.StateFlow {
		log.Debugf("flow protection: suggestion tick skipped")
		return
	}
	if !modeWants(mode, current) {
		return
	}
	if !s.gate.Allow(types.TriggerSuggestion, current) {
		log.Debugf("suggestion suppressed by cooldown")
		return
	}

	records := s.recent.Snapshot()
	text, fallback := s.generateText(records, current, now)
	if text == "" {
		return
	}
	s.emit(types.TriggerSuggestion, current, text, fallback, records, now)
}

// modeWants is the per-mode intervention policy: coach checks in on anything
// but flow, study buddy always, weekend only when a nudge is due.
func modeWants(mode types.CompanionMode, state types.UserState) bool {
	switch mode {
	case types.ModeCoach:
		return state == types.StateNudge || state == types.StateWorking || state == types.StateAway
	case types.ModeStudyBuddy:
		return true
	case types.ModeWeekend:
		return state == types.StateNudge
	}
	return false
}

// --- emission ---

// generateText asks the language backend for a message, falling back to the
// detector's canned suggestions when it is unavailable.
func (s *Scheduler) generateText(records []types.ActivityRecord, current types.UserState, now time.Time) (string, bool) {
	stats := s.detector.WindowStats(records, now)
	prev := s.detector.PreviousWindowStats(records, now)
	prompt := llm.BuildPrompt(current, llm.BuildContext(records, stats, prev, current))

	if s.generator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		result := s.generator.Generate(ctx, prompt, 50, 0.7)
		if result.Success {
			return result.Text, false
		}
		log.Debugf("language backend unavailable: %v", result.Err)
	}

	if suggestions := s.detector.Suggestions(records, s.Mode(), current, now); len(suggestions) > 0 {
		return suggestions[0], true
	}
	return pattern.FallbackText(current), true
}

// emit performs one intervention: notify, forward to the device, persist, and
// mark the cooldown. Collaborator failures are logged and never abort the
// emission.
func (s *Scheduler) emit(kind types.TriggerKind, current types.UserState, text string, fallback bool, records []types.ActivityRecord, now time.Time) {
	iv := types.Intervention{
		ID:        uuid.New().String(),
		Timestamp: now,
		Trigger:   kind,
		State:     current,
		Mode:      s.Mode(),
		Text:      text,
		Fallback:  fallback,
	}

	log.Infof("intervention [%s/%s]: %s", kind, current, logging.Truncate(text, 80))
	if err := s.notifier.Notify(iv); err != nil {
		log.Warnf("notify: %v", err)
	}
	s.pushDevice(current, text)

	if s.store != nil {
		snapshot := s.detector.WindowStats(records, now)
		if err := s.store.SaveIntervention(iv, snapshot); err != nil {
			log.Warnf("persist intervention: %v", err)
		}
	}

	s.gate.Mark(kind)
	s.stats.bumpIntervention()
}

// pushDevice forwards a state+text payload to the device when one is
// configured. Device trouble is never fatal.
func (s *Scheduler) pushDevice(current types.UserState, text string) {
	s.mu.Lock()
	enabled := s.deviceOn
	s.mu.Unlock()
	if !enabled || s.device == nil {
		return
	}
	if err := s.device.Show(current, text); err != nil {
		log.Warnf("device: %v", err)
	}
}

// --- daily summary ---

// publishDailySummary builds and stores the previous day's summary from
// persisted records, then resets the daily counters.
func (s *Scheduler) publishDailySummary() {
	stats := s.stats.snapshotAndReset()
	if s.store == nil {
		return
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	records, err := s.store.RecordsSince(dayStart)
	if err != nil {
		log.Warnf("daily summary: load records: %v", err)
		return
	}

	summary := BuildDailySummary(dayStart, records, stats)
	if err := s.store.SaveDailySummary(dayStart, summary); err != nil {
		log.Warnf("daily summary: save: %v", err)
		return
	}
	log.Infof("daily summary %s: %.0f active min, %d focus sessions, %d interventions",
		summary.Date, summary.ActiveMinutes, summary.FocusSessions, summary.Interventions)
}
