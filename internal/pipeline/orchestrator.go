// Package pipeline drives chapter audio generation: translate the chapter,
// split the translation into chunks, synthesize each chunk and publish the
// resulting WAV parts on the book record.
//
// Runs are serialized per chapter by an in-flight set and every
// read-modify-write of a book goes through a per-book mutex.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jackzampolin/lumina/internal/chapters"
	"github.com/jackzampolin/lumina/internal/events"
	"github.com/jackzampolin/lumina/internal/home"
	"github.com/jackzampolin/lumina/internal/id"
	"github.com/jackzampolin/lumina/internal/providers"
	"github.com/jackzampolin/lumina/internal/store"
	"github.com/jackzampolin/lumina/internal/textchunk"
	"github.com/jackzampolin/lumina/internal/types"
	"github.com/jackzampolin/lumina/internal/wav"
)

// Progress milestones of a run.
const (
	ProgressStarted   = 5
	ProgressChunkBase = 10
	ProgressChunkSpan = 85
	ProgressDone      = 100
)

// Sentinel errors for the pipeline package.
var (
	// ErrAlreadyProcessing is returned when a chapter already has a run in flight.
	ErrAlreadyProcessing = errors.New("chapter is already processing")

	// ErrChapterNotFound is returned when a book has no chapter with the given id.
	ErrChapterNotFound = errors.New("chapter not found")

	// ErrPartNotFound is returned when a chapter has no audio part with the given id.
	ErrPartNotFound = errors.New("audio part not found")

	// ErrNoText is returned when the translated chapter yields no chunks.
	ErrNoText = errors.New("chapter has no text to narrate")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("orchestrator closed")
)

// TextExtractor produces the full text of a PDF document.
type TextExtractor interface {
	ExtractFullText(ctx context.Context, document []byte) (string, error)
}

// ChapterTranslator translates one chapter out of the full book text.
type ChapterTranslator interface {
	Translate(ctx context.Context, fullText, title, language string) (string, error)
}

// Config configures an Orchestrator.
type Config struct {
	Store      store.BookStore
	Home       *home.Dir
	Extractor  TextExtractor
	Segmenter  ChapterSegmenter // Used by Import
	Translator ChapterTranslator
	TTS        providers.TTSProvider
	Events     events.Publisher
	Logger     *slog.Logger

	MaxChunkChars   int
	SampleRate      int // Assumed rate for PCM payloads that do not report one
	Channels        int
	DefaultVoice    string
	DefaultLanguage string
}

// Settings are the run parameters that can change while the orchestrator is
// live. Each run reads them once when it starts.
type Settings struct {
	MaxChunkChars   int
	SampleRate      int
	Channels        int
	DefaultVoice    string
	DefaultLanguage string
}

func (s Settings) withDefaults() Settings {
	if s.MaxChunkChars <= 0 {
		s.MaxChunkChars = textchunk.DefaultMaxChars
	}
	if s.SampleRate <= 0 {
		s.SampleRate = providers.DefaultSampleRate
	}
	if s.Channels <= 0 {
		s.Channels = 1
	}
	if s.DefaultLanguage == "" {
		s.DefaultLanguage = chapters.DefaultLanguage
	}
	return s
}

// Options select the voice and language of one run.
type Options struct {
	Voice    string
	Language string
}

// Orchestrator runs chapter generation.
type Orchestrator struct {
	cfg   Config
	books *KeyedMutex

	settingsMu sync.RWMutex
	settings   Settings

	mu       sync.Mutex
	inflight map[string]*run
	closed   bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// run is the live state of one generation.
type run struct {
	id        string
	userID    string
	bookID    string
	chapterID string
	progress  int
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline requires a book store")
	}
	if cfg.Home == nil {
		return nil, fmt.Errorf("pipeline requires a home directory")
	}
	if cfg.Extractor == nil || cfg.Translator == nil || cfg.TTS == nil {
		return nil, fmt.Errorf("pipeline requires an extractor, translator and speech provider")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Events == nil {
		cfg.Events = nopPublisher{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg: cfg,
		settings: Settings{
			MaxChunkChars:   cfg.MaxChunkChars,
			SampleRate:      cfg.SampleRate,
			Channels:        cfg.Channels,
			DefaultVoice:    cfg.DefaultVoice,
			DefaultLanguage: cfg.DefaultLanguage,
		}.withDefaults(),
		books:    NewKeyedMutex(),
		inflight: make(map[string]*run),
		baseCtx:  ctx,
		cancel:   cancel,
	}, nil
}

// Settings returns the parameters the next run will use.
func (o *Orchestrator) Settings() Settings {
	o.settingsMu.RLock()
	defer o.settingsMu.RUnlock()
	return o.settings
}

// Reconfigure replaces the run parameters. Runs already in flight keep the
// values they started with.
func (o *Orchestrator) Reconfigure(s Settings) {
	o.settingsMu.Lock()
	o.settings = s.withDefaults()
	o.settingsMu.Unlock()
}

func runKey(bookID, chapterID string) string {
	return bookID + "/" + chapterID
}

// claim reserves the chapter for a new run.
func (o *Orchestrator) claim(userID, bookID, chapterID string) (*run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrClosed
	}
	key := runKey(bookID, chapterID)
	if _, busy := o.inflight[key]; busy {
		return nil, ErrAlreadyProcessing
	}
	runID, err := id.Generate("run")
	if err != nil {
		return nil, err
	}
	r := &run{id: runID, userID: userID, bookID: bookID, chapterID: chapterID}
	o.inflight[key] = r
	return r, nil
}

func (o *Orchestrator) release(r *run) {
	o.mu.Lock()
	delete(o.inflight, runKey(r.bookID, r.chapterID))
	o.mu.Unlock()
}

// InFlight reports whether a run is active for the chapter, and its progress.
func (o *Orchestrator) InFlight(bookID, chapterID string) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.inflight[runKey(bookID, chapterID)]
	if !ok {
		return 0, false
	}
	return r.progress, true
}

// View prepares a stored book for display. Chapters with an active run show
// live progress; chapters left in processing by an interrupted run are
// normalized.
func (o *Orchestrator) View(book *types.Book) {
	for i := range book.Chapters {
		ch := &book.Chapters[i]
		if progress, ok := o.InFlight(book.ID, ch.ID); ok {
			ch.Status = types.StatusProcessing
			ch.Progress = progress
			ch.Error = ""
			continue
		}
		ch.Normalize()
	}
}

// Start validates the request, reserves the chapter and runs the generation
// in the background. It returns once the run is accepted.
func (o *Orchestrator) Start(ctx context.Context, user types.User, bookID, chapterID string, opts Options) error {
	if _, err := o.loadChapter(ctx, user, bookID, chapterID); err != nil {
		return err
	}
	r, err := o.claim(user.ID, bookID, chapterID)
	if err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release(r)
		// Failures are recorded on the chapter and logged by execute.
		_, _ = o.execute(o.baseCtx, r, opts)
	}()
	return nil
}

// Run generates audio for one chapter and returns the updated chapter.
func (o *Orchestrator) Run(ctx context.Context, user types.User, bookID, chapterID string, opts Options) (*types.Chapter, error) {
	if _, err := o.loadChapter(ctx, user, bookID, chapterID); err != nil {
		return nil, err
	}
	r, err := o.claim(user.ID, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	defer o.release(r)
	return o.execute(ctx, r, opts)
}

// Close cancels active runs and waits for them to finish.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) loadChapter(ctx context.Context, user types.User, bookID, chapterID string) (*types.Book, error) {
	book, err := o.loadBook(ctx, user, bookID)
	if err != nil {
		return nil, err
	}
	if book.Chapter(chapterID) == nil {
		return nil, ErrChapterNotFound
	}
	return book, nil
}

// loadBook fetches a book owned by user. Books owned by others are reported
// as missing.
func (o *Orchestrator) loadBook(ctx context.Context, user types.User, bookID string) (*types.Book, error) {
	book, err := o.cfg.Store.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != user.ID {
		return nil, store.ErrNotFound
	}
	return book, nil
}

// execute performs the run. The caller holds the in-flight claim.
func (o *Orchestrator) execute(ctx context.Context, r *run, opts Options) (*types.Chapter, error) {
	logger := o.cfg.Logger.With("book_id", r.bookID, "chapter_id", r.chapterID, "run_id", r.id)

	set := o.Settings()
	voice := opts.Voice
	if voice == "" {
		voice = set.DefaultVoice
	}
	language := opts.Language
	if language == "" {
		language = set.DefaultLanguage
	}

	book, err := o.transition(ctx, r, func(ch *types.Chapter) {
		ch.Status = types.StatusProcessing
		ch.Progress = ProgressStarted
		ch.Error = ""
	})
	if err != nil {
		return nil, err
	}
	o.report(r, ProgressStarted)
	logger.Info("chapter generation started", "voice", voice, "language", language)

	staging := o.cfg.Home.StagingDir(r.bookID, r.chapterID, r.id)
	parts, err := o.synthesizeChapter(ctx, r, book, staging, set, voice, language)
	if err != nil {
		_ = os.RemoveAll(staging)
		return o.fail(r, err, logger)
	}

	ch, err := o.complete(ctx, r, staging, parts)
	if err != nil {
		_ = os.RemoveAll(staging)
		return o.fail(r, err, logger)
	}
	logger.Info("chapter generation completed", "parts", len(parts))
	return ch, nil
}

// synthesizeChapter translates, chunks and synthesizes the chapter into the
// staging directory and returns the ordered parts.
func (o *Orchestrator) synthesizeChapter(ctx context.Context, r *run, book *types.Book, staging string, set Settings, voice, language string) ([]types.AudioPart, error) {
	chapter := book.Chapter(r.chapterID)
	if chapter == nil {
		return nil, ErrChapterNotFound
	}

	fullText, err := o.cfg.Extractor.ExtractFullText(ctx, book.SourceDocument)
	if err != nil {
		return nil, err
	}

	translated, err := o.cfg.Translator.Translate(ctx, fullText, chapter.Title, language)
	if err != nil {
		return nil, err
	}

	chunks := textchunk.Split(translated, set.MaxChunkChars)
	if len(chunks) == 0 {
		return nil, ErrNoText
	}

	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}

	n := len(chunks)
	parts := make([]types.AudioPart, 0, n)
	for i, chunk := range chunks {
		start, end := ChunkWindow(i, n)
		o.report(r, start)

		part, err := o.synthesizePart(ctx, r, staging, chunk, voice, set, i, n)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)

		o.report(r, end)
	}
	return parts, nil
}

func (o *Orchestrator) synthesizePart(ctx context.Context, r *run, staging, text, voice string, set Settings, i, n int) (types.AudioPart, error) {
	res, err := o.cfg.TTS.Synthesize(ctx, &providers.SpeechRequest{Text: text, Voice: voice})
	if err != nil {
		var synthErr *providers.SynthesisError
		if errors.As(err, &synthErr) || ctx.Err() != nil {
			return types.AudioPart{}, err
		}
		return types.AudioPart{}, &providers.SynthesisError{Provider: o.cfg.TTS.Name(), Err: err}
	}
	if res == nil || len(res.Audio) == 0 {
		return types.AudioPart{}, &providers.SynthesisError{Provider: o.cfg.TTS.Name(), Err: providers.ErrNoAudio}
	}

	rate, channels := res.SampleRate, res.Channels
	if rate <= 0 {
		rate = set.SampleRate
	}
	if channels <= 0 {
		channels = set.Channels
	}
	data, duration, err := wav.FromPayload(res.Audio, res.Format, rate, channels)
	if err != nil {
		return types.AudioPart{}, &providers.SynthesisError{Provider: res.Provider, Err: err}
	}

	file := home.PartFileName(i, wav.FormatWAV)
	if err := os.WriteFile(filepath.Join(staging, file), data, 0o644); err != nil {
		return types.AudioPart{}, fmt.Errorf("failed to write audio part: %w", err)
	}

	partID := PartID(r.chapterID, i)
	return types.AudioPart{
		ID:       partID,
		URL:      PartURL(r.bookID, r.chapterID, partID),
		Label:    PartLabel(i, n),
		File:     file,
		Duration: duration,
	}, nil
}

// complete publishes the staged audio and persists the finished chapter.
func (o *Orchestrator) complete(ctx context.Context, r *run, staging string, parts []types.AudioPart) (*types.Chapter, error) {
	unlock := o.books.Lock(r.bookID)
	defer unlock()

	ctx = context.WithoutCancel(ctx)
	book, err := o.cfg.Store.Get(ctx, r.bookID)
	if err != nil {
		return nil, err
	}
	ch := book.Chapter(r.chapterID)
	if ch == nil {
		return nil, ErrChapterNotFound
	}

	swap, err := o.cfg.Home.PublishChapterAudio(r.bookID, r.chapterID, staging)
	if err != nil {
		return nil, err
	}

	ch.AudioParts = parts
	ch.Status = types.StatusCompleted
	ch.Progress = ProgressDone
	ch.Error = ""
	if err := o.cfg.Store.Put(ctx, book); err != nil {
		// The record still lists the previous parts
		if rbErr := swap.Rollback(); rbErr != nil {
			o.cfg.Logger.Error("failed to restore previous audio",
				"book_id", r.bookID, "chapter_id", r.chapterID, "error", rbErr)
		}
		return nil, err
	}
	if err := swap.Commit(); err != nil {
		o.cfg.Logger.Warn("failed to remove previous audio",
			"book_id", r.bookID, "chapter_id", r.chapterID, "error", err)
	}

	o.setProgress(r, ProgressDone)
	o.publish(events.TypeChapterStatus, r, ch)
	out := *ch
	return &out, nil
}

// fail records the error on the chapter, keeping audio from the last
// successful run, and returns err.
func (o *Orchestrator) fail(r *run, cause error, logger *slog.Logger) (*types.Chapter, error) {
	ctx := context.Background()
	_, err := o.transition(ctx, r, func(ch *types.Chapter) {
		ch.Status = types.StatusError
		ch.Progress = 0
		ch.Error = cause.Error()
	})
	if err != nil {
		logger.Warn("failed to record chapter error", "error", err)
		o.setProgress(r, 0)
		o.cfg.Events.Publish(events.Event{
			Type:      events.TypeChapterStatus,
			UserID:    r.userID,
			BookID:    r.bookID,
			ChapterID: r.chapterID,
			Status:    types.StatusError,
			Error:     cause.Error(),
		})
	}
	logger.Error("chapter generation failed", "error", cause)
	return nil, cause
}

// transition applies fn to the stored chapter, persists the book and
// publishes a status event. It returns the updated book.
func (o *Orchestrator) transition(ctx context.Context, r *run, fn func(ch *types.Chapter)) (*types.Book, error) {
	unlock := o.books.Lock(r.bookID)
	defer unlock()

	book, err := o.cfg.Store.Get(ctx, r.bookID)
	if err != nil {
		return nil, err
	}
	ch := book.Chapter(r.chapterID)
	if ch == nil {
		return nil, ErrChapterNotFound
	}
	fn(ch)
	if err := o.cfg.Store.Put(ctx, book); err != nil {
		return nil, err
	}

	o.setProgress(r, ch.Progress)
	o.publish(events.TypeChapterStatus, r, ch)
	return book, nil
}

func (o *Orchestrator) setProgress(r *run, progress int) {
	o.mu.Lock()
	r.progress = progress
	o.mu.Unlock()
}

// report raises the live progress of a run and publishes it.
// Values lower than the current progress are ignored.
func (o *Orchestrator) report(r *run, progress int) {
	o.mu.Lock()
	if progress < r.progress {
		o.mu.Unlock()
		return
	}
	r.progress = progress
	o.mu.Unlock()

	o.cfg.Events.Publish(events.Event{
		Type:      events.TypeChapterProgress,
		UserID:    r.userID,
		BookID:    r.bookID,
		ChapterID: r.chapterID,
		Status:    types.StatusProcessing,
		Progress:  progress,
	})
}

func (o *Orchestrator) publish(typ events.Type, r *run, ch *types.Chapter) {
	o.cfg.Events.Publish(events.ChapterEvent(typ, r.userID, r.bookID, ch))
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

// ChunkWindow returns the progress range covered by chunk i of n.
func ChunkWindow(i, n int) (start, end int) {
	start = ProgressChunkBase + i*ProgressChunkSpan/n
	end = ProgressChunkBase + (i+1)*ProgressChunkSpan/n
	return start, end
}

// PartID returns the id of the audio part for chunk i.
func PartID(chapterID string, i int) string {
	return fmt.Sprintf("%s-part-%d", chapterID, i)
}

// PartLabel returns the display label of chunk i of n.
func PartLabel(i, n int) string {
	if n == 1 {
		return "Full Audio"
	}
	return fmt.Sprintf("Part %d", i+1)
}

// PartURL returns the route that streams an audio part.
func PartURL(bookID, chapterID, partID string) string {
	return fmt.Sprintf("/api/books/%s/chapters/%s/parts/%s/audio", bookID, chapterID, partID)
}
