// File: internal/report/allure.go
package report

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/qaforge/sauceprobe/internal/pages"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrAssertion marks a scenario expectation that did not hold.
var ErrAssertion = errors.New("assertion failed")

// Status is the Allure outcome of a test or step.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusBroken Status = "broken"
)

// Classify maps an error to an outcome. Expectations about the application
// (missing elements, bad indexes, invalid data, assertions) are failures;
// anything else means the harness itself broke.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusPassed
	case errors.Is(err, ErrAssertion),
		errors.Is(err, pages.ErrElementTimeout),
		errors.Is(err, pages.ErrIndexOutOfRange),
		errors.Is(err, pages.ErrValidation):
		return StatusFailed
	}
	return StatusBroken
}

// Label is an Allure label such as feature, story or severity.
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type statusDetails struct {
	Message string `json:"message,omitempty"`
}

type attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

type step struct {
	Name          string         `json:"name"`
	Status        Status         `json:"status"`
	StatusDetails *statusDetails `json:"statusDetails,omitempty"`
	Stage         string         `json:"stage"`
	Start         int64          `json:"start"`
	Stop          int64          `json:"stop"`
	Steps         []*step        `json:"steps"`
	Attachments   []attachment   `json:"attachments"`
}

type result struct {
	UUID          string         `json:"uuid"`
	HistoryID     string         `json:"historyId"`
	Name          string         `json:"name"`
	FullName      string         `json:"fullName"`
	Status        Status         `json:"status"`
	StatusDetails *statusDetails `json:"statusDetails,omitempty"`
	Stage         string         `json:"stage"`
	Start         int64          `json:"start"`
	Stop          int64          `json:"stop"`
	Labels        []Label        `json:"labels"`
	Steps         []*step        `json:"steps"`
	Attachments   []attachment   `json:"attachments"`
}

// Writer creates Allure result files in a results directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter prepares dir for results.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

// Dir returns the results directory.
func (w *Writer) Dir() string { return w.dir }

// StartTest begins recording one test case.
func (w *Writer) StartTest(name, fullName string, labels ...Label) *TestCase {
	return &TestCase{
		w: w,
		res: &result{
			UUID:      uuid.NewString(),
			HistoryID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(fullName)).String(),
			Name:      name,
			FullName:  fullName,
			Stage:     "running",
			Start:     w.millis(),
			Labels:      append([]Label{}, labels...),
			Steps:       []*step{},
			Attachments: []attachment{},
		},
	}
}

func (w *Writer) millis() int64 { return w.now().UnixMilli() }

// TestCase records the steps and attachments of one running test. It
// satisfies pages.DiagnosticSink and observability.StepReporter.
type TestCase struct {
	w    *Writer
	mu   sync.Mutex
	res  *result
	open []*step
	done bool
}

// UUID returns the result identifier.
func (tc *TestCase) UUID() string { return tc.res.UUID }

func (tc *TestCase) StartStep(name string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	s := &step{
		Name:        name,
		Stage:       "running",
		Start:       tc.w.millis(),
		Steps:       []*step{},
		Attachments: []attachment{},
	}
	if n := len(tc.open); n > 0 {
		parent := tc.open[n-1]
		parent.Steps = append(parent.Steps, s)
	} else {
		tc.res.Steps = append(tc.res.Steps, s)
	}
	tc.open = append(tc.open, s)
}

func (tc *TestCase) StopStep(err error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.stopStep(err)
}

func (tc *TestCase) stopStep(err error) {
	n := len(tc.open)
	if n == 0 {
		return
	}
	s := tc.open[n-1]
	tc.open = tc.open[:n-1]
	s.Stage = "finished"
	s.Stop = tc.w.millis()
	s.Status = Classify(err)
	if err != nil {
		s.StatusDetails = &statusDetails{Message: err.Error()}
	}
}

// Attach stores data next to the results and links it from the innermost
// open step, or from the test itself when no step is open.
func (tc *TestCase) Attach(name, mimeType string, data []byte) error {
	source := uuid.NewString() + "-attachment" + extension(mimeType)
	if err := os.WriteFile(filepath.Join(tc.w.dir, source), data, 0o644); err != nil {
		return fmt.Errorf("writing attachment %q: %w", name, err)
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	a := attachment{Name: name, Source: source, Type: mimeType}
	if n := len(tc.open); n > 0 {
		tc.open[n-1].Attachments = append(tc.open[n-1].Attachments, a)
	} else {
		tc.res.Attachments = append(tc.res.Attachments, a)
	}
	return nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "text/plain":
		return ".txt"
	case "application/json":
		return ".json"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// Finish closes any open steps, sets the outcome from err and writes the
// result file. Finishing twice is a no-op.
func (tc *TestCase) Finish(err error) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.done {
		return nil
	}
	tc.done = true

	for len(tc.open) > 0 {
		tc.stopStep(err)
	}
	tc.res.Stage = "finished"
	tc.res.Stop = tc.w.millis()
	tc.res.Status = Classify(err)
	if err != nil {
		tc.res.StatusDetails = &statusDetails{Message: err.Error()}
	}

	data, merr := json.MarshalIndent(tc.res, "", "  ")
	if merr != nil {
		return fmt.Errorf("encoding result: %w", merr)
	}
	path := filepath.Join(tc.w.dir, tc.res.UUID+"-result.json")
	if werr := os.WriteFile(path, data, 0o644); werr != nil {
		return fmt.Errorf("writing result: %w", werr)
	}
	return nil
}
