package testframework

import (
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/event"
)

var (
	ErrTestRunning   = errors.New("a test is already running")
	ErrNoTestRunning = errors.New("no test is running")
)

// Result is the outcome reported when a test ends.
type Result struct {
	Name   string
	Failed bool
}

// Run summarizes a batch of tests.
type Run struct {
	Tests  int
	Failed int
}

// Framework tracks the running automation test and notifies listeners when tests and runs end. It stands in
// for the host test runner.
type Framework struct {
	mu      sync.Mutex
	current string
	run     Run

	// TestEnded fires after every EndTest, while CurrentTest still names the test.
	TestEnded event.Event[Result]
	// RunEnded fires once per EndRun, after every test of the batch.
	RunEnded event.Event[Run]
}

func New() *Framework {
	return &Framework{}
}

// StartTest marks name as the running test.
func (f *Framework) StartTest(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != "" {
		return eris.Wrapf(ErrTestRunning, "cannot start %q while %q runs", name, f.current)
	}
	if name == "" {
		return eris.New("test name must not be empty")
	}
	f.current = name
	log.Debug().Str("test", name).Msg("Test started")
	return nil
}

// EndTest broadcasts TestEnded for the running test and clears it.
func (f *Framework) EndTest(failed bool) error {
	f.mu.Lock()
	name := f.current
	f.mu.Unlock()
	if name == "" {
		return eris.Wrap(ErrNoTestRunning, "cannot end test")
	}

	f.TestEnded.Broadcast(Result{Name: name, Failed: failed})

	f.mu.Lock()
	f.current = ""
	f.run.Tests++
	if failed {
		f.run.Failed++
	}
	f.mu.Unlock()
	log.Debug().Str("test", name).Bool("failed", failed).Msg("Test ended")
	return nil
}

// EndRun broadcasts RunEnded with the batch summary and starts a new batch.
func (f *Framework) EndRun() Run {
	f.mu.Lock()
	run := f.run
	f.run = Run{}
	f.mu.Unlock()

	f.RunEnded.Broadcast(run)
	log.Debug().Int("tests", run.Tests).Int("failed", run.Failed).Msg("Test run ended")
	return run
}

// CurrentTest returns the running test name, or "".
func (f *Framework) CurrentTest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}
