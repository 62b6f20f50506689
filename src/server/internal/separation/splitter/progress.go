package splitter

import (
	"math"
	"regexp"
	"strconv"
	"sync"

	separationentity "github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
)

const (
	StartingMessage   = "starting"
	ProcessingMessage = "processing"
	FinalizingMessage = "finalizing"
)

// visible progress while the separator runs spans [StartingProgress, FinalizingProgress]
const visibleScale = 0.75

// ProgressParser pulls a raw percentage out of one line of separator output
type ProgressParser interface {
	Parse(line string) (percent float64, ok bool)
}

var _ ProgressParser = PercentPatternParser{}

var percentPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`)

// PercentPatternParser takes the first bare percentage found in a line, so
// progress bars such as " 42%|████      | 24.5/58.5" are understood.
type PercentPatternParser struct{}

func (PercentPatternParser) Parse(line string) (float64, bool) {
	match := percentPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}

	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	return clampPercent(percent), true
}

func clampPercent(percent float64) float64 {
	return math.Max(0, math.Min(100, percent))
}

// VisibleProgress maps the separator's own percentage onto the range shown to subscribers
func VisibleProgress(percent float64) int {
	scaled := math.Floor(clampPercent(percent) * visibleScale)
	return separationentity.StartingProgress + int(scaled)
}

// processingProgress stays below FinalizingProgress, a finished bar must not
// swallow the finalizing event
func processingProgress(percent float64) int {
	return min(VisibleProgress(percent), separationentity.FinalizingProgress-1)
}

// progressTracker only lets strictly increasing values through,
// subscribers never see progress going backwards or repeating
type progressTracker struct {
	mu         sync.Mutex
	emitted    bool
	last       int
	onProgress separationentity.ProgressFunc
}

func newProgressTracker(onProgress separationentity.ProgressFunc) *progressTracker {
	return &progressTracker{onProgress: onProgress}
}

func (p *progressTracker) advance(progress int, message string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.emitted && progress <= p.last {
		return false
	}

	p.emitted = true
	p.last = progress
	p.onProgress.Emit(separationentity.NewProgressEvent(progress, message))
	return true
}

func (p *progressTracker) lastProgress() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.last
}
