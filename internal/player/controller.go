package player

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/api"
	"github.com/englishstudent/client/internal/models"
)

// ContentFetcher retrieves material binary content from the platform
// API.
type ContentFetcher interface {
	// DownloadMaterial fetches a material's content with Accept
	// negotiation, returning the bytes and content type.
	DownloadMaterial(ctx context.Context, id int, accept string) ([]byte, string, error)
}

// ProgressMarker records completed materials.
type ProgressMarker interface {
	MarkCompleted(courseID, materialID int) error
}

// State is the playback transport state. Paused and Stopped differ
// only in whether a resume point is kept.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// SideStatus describes the loading state of one side of the active
// pair.
type SideStatus int

const (
	// SideEmpty means the side has no renderable content (no material,
	// or audio that failed with no fallback).
	SideEmpty SideStatus = iota
	SideLoading
	SideReady
	SideError
)

// SideView is a snapshot of one side for rendering.
type SideView struct {
	Material  *models.Material
	Status    SideStatus
	ErrorKind api.ErrorKind
	// Error is the human-readable message for the failure class.
	Error string
	// Path is the temporary local copy, set when content was fetched.
	Path string
	// URL is the material's direct link, used as the audio fallback.
	URL string
}

// sideKind tells the loader which side a fetch belongs to; the two
// sides fail differently.
type sideKind int

const (
	documentSide sideKind = iota
	audioSide
)

func (k sideKind) accept() string {
	if k == audioSide {
		return "audio/mpeg, audio/*"
	}
	return "application/pdf"
}

// side holds one side's material identity and loaded content.
type side struct {
	material *models.Material
	status   SideStatus
	errKind  api.ErrorKind
	errMsg   string
	ref      *ObjectRef
	url      string
}

// releaseContent frees the side's object ref, if any. The ref itself
// makes double release a no-op.
func (s *side) releaseContent() {
	if s.ref != nil {
		s.ref.Release()
		s.ref = nil
	}
	s.url = ""
}

// Controller owns the ordered pair list for the learn view, loads the
// selected pair's content, and drives the audio transport. All state
// transitions happen under one mutex; the document and audio fetches
// run concurrently and re-check the selected identity before applying
// their result, so a slow stale response can never overwrite a newer
// selection.
type Controller struct {
	fetcher  ContentFetcher
	progress ProgressMarker
	cache    *RefCache
	logger   *zap.Logger

	mu       sync.Mutex
	courseID int
	pairs    []models.MaterialPair
	index    int

	doc   side
	audio side

	state    State
	position time.Duration
	duration time.Duration
	volume   int

	loads sync.WaitGroup
}

// NewController creates a controller. The cache outlives the
// controller; Close releases only the refs this controller created.
func NewController(fetcher ContentFetcher, progress ProgressMarker, cache *RefCache, logger *zap.Logger) *Controller {
	return &Controller{
		fetcher:  fetcher,
		progress: progress,
		cache:    cache,
		logger:   logger,
		index:    -1,
		volume:   100,
	}
}

// SetPairs installs a new ordered pair list for a course and selects
// the first pair, if any.
func (c *Controller) SetPairs(courseID int, pairs []models.MaterialPair) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.courseID = courseID
	c.pairs = pairs
	c.index = -1
	c.resetSide(&c.doc)
	c.resetSide(&c.audio)
	c.state = StateStopped
	c.position = 0
	c.duration = 0

	if len(pairs) > 0 {
		c.selectLocked(0)
	}
}

// Select makes the pair at index the active one. Out-of-range indexes
// are ignored.
func (c *Controller) Select(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.pairs) {
		return
	}
	c.selectLocked(index)
}

// Next selects the following pair; no-op on the last one.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index >= 0 && c.index+1 < len(c.pairs) {
		c.selectLocked(c.index + 1)
	}
}

// Previous selects the preceding pair; no-op on the first one.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index > 0 {
		c.selectLocked(c.index - 1)
	}
}

// selectLocked switches the active pair and resets the transport.
// Content already loaded for an unchanged material identity is kept.
func (c *Controller) selectLocked(index int) {
	c.index = index
	pair := c.pairs[index]

	c.state = StateStopped
	c.position = 0
	if pair.Audio != nil {
		c.duration = time.Duration(pair.Audio.Duration) * time.Second
	} else {
		c.duration = 0
	}

	c.setSide(&c.doc, documentSide, pair.Document)
	c.setSide(&c.audio, audioSide, pair.Audio)
}

// resetSide clears a side entirely, releasing its content.
func (c *Controller) resetSide(s *side) {
	s.releaseContent()
	s.material = nil
	s.status = SideEmpty
	s.errMsg = ""
	s.errKind = api.KindGeneric
}

// setSide points a side at a material and starts its fetch. The old
// content is released exactly when the material identity changes.
func (c *Controller) setSide(s *side, kind sideKind, m *models.Material) {
	if m == nil {
		c.resetSide(s)
		return
	}
	if s.material != nil && s.material.ID == m.ID {
		// Same identity; keep the loaded content.
		s.material = m
		return
	}

	s.releaseContent()
	s.material = m
	s.status = SideLoading
	s.errMsg = ""
	s.errKind = api.KindGeneric

	c.startLoad(kind, *m)
}

// RetryDocument repeats the document fetch after a failure.
func (c *Controller) RetryDocument() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc.material == nil {
		return
	}
	c.doc.releaseContent()
	c.doc.status = SideLoading
	c.doc.errMsg = ""
	c.startLoad(documentSide, *c.doc.material)
}

// startLoad launches the async fetch for one side.
func (c *Controller) startLoad(kind sideKind, m models.Material) {
	c.loads.Add(1)
	go c.load(kind, m)
}

// load fetches a material and applies the result if it is still the
// selected one.
func (c *Controller) load(kind sideKind, m models.Material) {
	defer c.loads.Done()

	data, _, err := c.fetcher.DownloadMaterial(context.Background(), m.ID, kind.accept())
	if err != nil {
		c.applyLoadError(kind, m, err)
		return
	}

	ref, err := c.cache.Create(data, extensionFor(m))
	if err != nil {
		c.applyLoadError(kind, m, err)
		return
	}

	c.mu.Lock()
	s := c.sideFor(kind)
	if s.material == nil || s.material.ID != m.ID {
		// Stale: the user moved on while this fetch was in flight.
		c.mu.Unlock()
		ref.Release()
		return
	}
	s.ref = ref
	s.status = SideReady
	s.errMsg = ""
	c.mu.Unlock()
}

// applyLoadError records a fetch failure. The document side surfaces a
// classified error; the audio side falls back to the material's direct
// URL or goes quietly empty, since audio is secondary to the document.
func (c *Controller) applyLoadError(kind sideKind, m models.Material, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sideFor(kind)
	if s.material == nil || s.material.ID != m.ID {
		return
	}

	if kind == audioSide {
		if m.FileURL != "" {
			s.status = SideReady
			s.url = m.FileURL
			c.logger.Info("audio fetch failed, using direct URL",
				zap.Int("material_id", m.ID), zap.Error(err))
		} else {
			s.status = SideEmpty
			c.logger.Warn("audio fetch failed with no fallback",
				zap.Int("material_id", m.ID), zap.Error(err))
		}
		return
	}

	s.status = SideError
	s.errKind = api.Classify(err)
	s.errMsg = api.UserMessage(err)
	c.logger.Warn("document fetch failed",
		zap.Int("material_id", m.ID), zap.Error(err))
}

func (c *Controller) sideFor(kind sideKind) *side {
	if kind == audioSide {
		return &c.audio
	}
	return &c.doc
}

// extensionFor picks the temp file extension for a material.
func extensionFor(m models.Material) string {
	switch m.MaterialType {
	case models.MaterialTypePDF:
		return ".pdf"
	case models.MaterialTypeWAV:
		return ".wav"
	default:
		return ".mp3"
	}
}

// Play starts or resumes playback. After a finished track it restarts
// from the beginning.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index < 0 || c.state == StatePlaying {
		return
	}
	if c.duration > 0 && c.position >= c.duration {
		c.position = 0
	}
	c.state = StatePlaying
}

// Pause halts playback, keeping the resume point.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying {
		c.state = StatePaused
	}
}

// Seek moves the playback position, clamped to [0, duration]. Legal in
// any state. Seeking to the end never counts as a natural completion.
func (c *Controller) Seek(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < 0 {
		t = 0
	}
	if c.duration > 0 && t > c.duration {
		t = c.duration
	}
	c.position = t
}

// SetVolume sets the output gain, clamped to [0, 100]. Independent of
// play/pause.
func (c *Controller) SetVolume(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	c.volume = v
}

// SetDuration overrides the track duration, for when the embedding
// media element reports better metadata than the API record.
func (c *Controller) SetDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.duration = d
	}
}

// Advance moves the playback clock while playing; the embedding layer
// calls it as time passes. Reaching the duration is the natural end of
// the track: the transport stops at position = duration and the pair's
// audio material is marked completed.
func (c *Controller) Advance(d time.Duration) {
	c.mu.Lock()
	if c.state != StatePlaying || d <= 0 {
		c.mu.Unlock()
		return
	}

	c.position += d
	var finished *models.Material
	if c.duration > 0 && c.position >= c.duration {
		c.position = c.duration
		c.state = StateStopped
		finished = c.audio.material
	}
	courseID := c.courseID
	c.mu.Unlock()

	if finished != nil {
		if err := c.progress.MarkCompleted(courseID, finished.ID); err != nil {
			c.logger.Error("failed to record completion",
				zap.Int("material_id", finished.ID), zap.Error(err))
		}
	}
}

// Wait blocks until in-flight content fetches settle.
func (c *Controller) Wait() {
	c.loads.Wait()
}

// Close releases the content this controller holds. The view calls it
// on unmount; together with setSide this guarantees each ref is
// released exactly once, at the earlier of identity change or unmount.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetSide(&c.doc)
	c.resetSide(&c.audio)
	c.state = StateStopped
}

// Document returns a snapshot of the document side.
func (c *Controller) Document() SideView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.view()
}

// Audio returns a snapshot of the audio side.
func (c *Controller) Audio() SideView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audio.view()
}

func (s *side) view() SideView {
	v := SideView{
		Material:  s.material,
		Status:    s.status,
		ErrorKind: s.errKind,
		Error:     s.errMsg,
		URL:       s.url,
	}
	if s.ref != nil {
		v.Path = s.ref.Path()
	}
	return v
}

// Pairs returns the current ordered pair list.
func (c *Controller) Pairs() []models.MaterialPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.MaterialPair, len(c.pairs))
	copy(out, c.pairs)
	return out
}

// Index returns the selected pair index, -1 when none.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current returns the selected pair, or nil when none.
func (c *Controller) Current() *models.MaterialPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index < 0 || c.index >= len(c.pairs) {
		return nil
	}
	pair := c.pairs[c.index]
	return &pair
}

// State returns the transport state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the playback position.
func (c *Controller) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Duration returns the track duration, zero when unknown.
func (c *Controller) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Volume returns the output gain in [0, 100].
func (c *Controller) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}
