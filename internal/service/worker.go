// Package service provides the playback/session worker and its queue policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// ErrWorkerRunning is returned when Run is called on a worker that is already running.
var ErrWorkerRunning = errors.New("worker already running")

// WorkerConfig tunes channel sizes and per-task limits.
type WorkerConfig struct {
	TaskBuffer    int
	ControlBuffer int
	ResultBuffer  int

	// TaskTimeout bounds the network calls of one task; 0 means no limit.
	TaskTimeout time.Duration

	// RecommendationLimit is how many tracks a recommendation query asks for.
	RecommendationLimit int

	// SearchLimit is how many hits a search asks for.
	SearchLimit int
}

// DefaultWorkerConfig returns the default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		TaskBuffer:          32,
		ControlBuffer:       32,
		ResultBuffer:        32,
		RecommendationLimit: 20,
		SearchLimit:         20,
	}
}

// Worker is the single owner of playback, queue and cache state.
//
// Three sources feed it: tasks (request/response), controls (fire-and-forget)
// and engine events. Each loop iteration polls them in that fixed order and
// handles at most one message per source, so controls are never starved by a
// burst of engine events. When all three are empty the loop blocks until one
// of them becomes ready.
//
// All state below is touched only by the goroutine running Run.
type Worker struct {
	// Dependencies (injected)
	logger    *slog.Logger
	cfg       WorkerConfig
	cache     ports.MetadataCache
	auth      ports.WebAPIAuthenticator
	connector ports.EngineConnector
	states    ports.StateBroadcaster
	queue     *QueueManager

	// Channels
	tasks    chan domain.Task
	controls chan domain.Control
	results  chan domain.TaskResult

	// Session state
	api    ports.WebAPIClient
	engine ports.PlaybackEngine
	events <-chan domain.Event
	paused bool

	// unresolved holds ids the Web API returned no usable record for this session.
	unresolved map[domain.TrackID]struct{}

	running atomic.Bool
}

// NewWorker creates a worker. Call Run on its own goroutine to start it.
func NewWorker(
	logger *slog.Logger,
	cfg WorkerConfig,
	cache ports.MetadataCache,
	auth ports.WebAPIAuthenticator,
	connector ports.EngineConnector,
	states ports.StateBroadcaster,
	queue *QueueManager,
) *Worker {
	defaults := DefaultWorkerConfig()
	if cfg.TaskBuffer <= 0 {
		cfg.TaskBuffer = defaults.TaskBuffer
	}
	if cfg.ControlBuffer <= 0 {
		cfg.ControlBuffer = defaults.ControlBuffer
	}
	if cfg.ResultBuffer <= 0 {
		cfg.ResultBuffer = defaults.ResultBuffer
	}
	if cfg.RecommendationLimit <= 0 {
		cfg.RecommendationLimit = defaults.RecommendationLimit
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaults.SearchLimit
	}
	if queue == nil {
		queue = NewQueueManager(nil)
	}

	w := &Worker{
		logger:    logger.With(slog.String("service", "worker")),
		cfg:       cfg,
		cache:     cache,
		auth:      auth,
		connector: connector,
		states:    states,
		queue:     queue,
		tasks:     make(chan domain.Task, cfg.TaskBuffer),
		controls:  make(chan domain.Control, cfg.ControlBuffer),
		results:   make(chan domain.TaskResult, cfg.ResultBuffer),
		paused:    true,
	}

	w.logger.Debug("worker initialized",
		slog.Int("task_buffer", cfg.TaskBuffer),
		slog.Int("control_buffer", cfg.ControlBuffer),
		slog.Duration("task_timeout", cfg.TaskTimeout))

	return w
}

// Tasks returns the inbound task queue.
func (w *Worker) Tasks() chan<- domain.Task {
	return w.tasks
}

// Controls returns the inbound control queue.
func (w *Worker) Controls() chan<- domain.Control {
	return w.controls
}

// Results returns the outbound result queue. It is closed when Run returns.
func (w *Worker) Results() <-chan domain.TaskResult {
	return w.results
}

// Submit queues a task, waiting for buffer space until ctx is done.
func (w *Worker) Submit(ctx context.Context, task domain.Task) error {
	select {
	case w.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send queues a control, waiting for buffer space until ctx is done.
func (w *Worker) Send(ctx context.Context, control domain.Control) error {
	select {
	case w.controls <- control:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes messages until ctx is cancelled.
// On return the cache is flushed, the session is closed and Results is closed.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWorkerRunning
	}
	defer w.shutdown()

	w.logger.Info("worker started")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if w.tick(ctx) {
			continue
		}

		// Idle: block until any source is ready, then finish the tick
		// with the sources that come after it.
		select {
		case <-ctx.Done():
			return nil
		case task := <-w.tasks:
			w.handleTask(ctx, task)
			w.pollControl()
			w.pollEvent()
		case control := <-w.controls:
			w.handleControl(control)
			w.pollEvent()
		case event, ok := <-w.events:
			w.receiveEvent(event, ok)
		}
	}
}

// tick polls task, control and event once each. It reports whether anything was handled.
func (w *Worker) tick(ctx context.Context) bool {
	handledTask := w.pollTask(ctx)
	handledControl := w.pollControl()
	handledEvent := w.pollEvent()
	return handledTask || handledControl || handledEvent
}

func (w *Worker) pollTask(ctx context.Context) bool {
	select {
	case task := <-w.tasks:
		w.handleTask(ctx, task)
		return true
	default:
		return false
	}
}

func (w *Worker) pollControl() bool {
	select {
	case control := <-w.controls:
		w.handleControl(control)
		return true
	default:
		return false
	}
}

func (w *Worker) pollEvent() bool {
	if w.events == nil {
		return false
	}
	select {
	case event, ok := <-w.events:
		w.receiveEvent(event, ok)
		return true
	default:
		return false
	}
}

func (w *Worker) shutdown() {
	if err := w.cache.Flush(); err != nil {
		w.logger.Warn("failed to flush cache on shutdown", slog.Any("error", err))
	}
	w.closeSession()
	close(w.results)
	w.logger.Info("worker stopped")
}

// closeSession drops the engine and the queue that belonged to it.
func (w *Worker) closeSession() {
	if w.engine != nil {
		if err := w.engine.Close(); err != nil {
			w.logger.Warn("failed to close playback session", slog.Any("error", err))
		}
	}
	w.engine = nil
	w.events = nil
	w.paused = true
	w.queue.Clear()
}

// Tasks

func (w *Worker) handleTask(ctx context.Context, task domain.Task) {
	taskCtx, cancel := w.taskContext(ctx)
	defer cancel()

	var result domain.TaskResult
	switch t := task.(type) {
	case domain.LoginTask:
		result = w.login(taskCtx, t)
	case domain.FetchUserPlaylistsTask:
		result = w.fetchUserPlaylists(taskCtx)
	case domain.FetchFeaturedPlaylistsTask:
		result = w.fetchFeaturedPlaylists(taskCtx)
	case domain.FetchPlaylistTracksTask:
		result = w.fetchPlaylistTracks(taskCtx, t)
	case domain.FetchRecommendationsTask:
		result = w.fetchRecommendations(taskCtx, t)
	case domain.SearchTask:
		result = w.search(taskCtx, t)
	case domain.AddTrackToPlaylistTask:
		result = w.mutatePlaylist(taskCtx, t.Track, t.Playlist, true)
	case domain.RemoveTrackFromPlaylistTask:
		result = w.mutatePlaylist(taskCtx, t.Track, t.Playlist, false)
	default:
		w.logger.Error("unknown task dropped", slog.String("type", fmt.Sprintf("%T", task)))
		return
	}

	if err := result.Failure(); err != nil {
		w.logger.Debug("task failed", slog.String("type", fmt.Sprintf("%T", task)), slog.Any("error", err))
	}

	select {
	case w.results <- result:
	case <-ctx.Done():
	}
}

func (w *Worker) taskContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.TaskTimeout > 0 {
		return context.WithTimeout(ctx, w.cfg.TaskTimeout)
	}
	return context.WithCancel(ctx)
}

func (w *Worker) login(ctx context.Context, t domain.LoginTask) domain.LoginResult {
	creds := t.Credentials
	if !creds.Valid() {
		return domain.LoginResult{Err: domain.NewValidationError("credentials", creds.Username,
			"username and password are required", domain.ErrInvalidCredentials)}
	}

	api, err := w.auth.Authenticate(ctx, creds)
	if err != nil {
		return domain.LoginResult{Err: domain.NewServiceError("Worker", "Login", "web api authentication failed", err)}
	}

	engine, err := w.connector.Connect(ctx, creds)
	if err != nil {
		return domain.LoginResult{Err: domain.NewServiceError("Worker", "Login", "playback session failed", err)}
	}

	// Only a complete login replaces the previous session.
	w.closeSession()
	w.api = api
	w.engine = engine
	w.events = engine.Events()
	w.unresolved = make(map[domain.TrackID]struct{})

	w.logger.Info("logged in", slog.String("user", creds.Username))
	return domain.LoginResult{Success: true}
}

func (w *Worker) requireAPI(op string) error {
	if w.api == nil {
		return domain.NewServiceError("Worker", op, "not logged in", domain.ErrNoAPIClient)
	}
	return nil
}

func (w *Worker) fetchUserPlaylists(ctx context.Context) domain.UserPlaylistsResult {
	if err := w.requireAPI("FetchUserPlaylists"); err != nil {
		return domain.UserPlaylistsResult{Err: err}
	}

	records, err := w.api.UserPlaylists(ctx)
	if err != nil {
		return domain.UserPlaylistsResult{Err: err}
	}
	return domain.UserPlaylistsResult{Playlists: w.playlistRefs(ctx, records)}
}

func (w *Worker) fetchFeaturedPlaylists(ctx context.Context) domain.FeaturedPlaylistsResult {
	if err := w.requireAPI("FetchFeaturedPlaylists"); err != nil {
		return domain.FeaturedPlaylistsResult{Err: err}
	}

	message, records, err := w.api.FeaturedPlaylists(ctx)
	if err != nil {
		return domain.FeaturedPlaylistsResult{Err: err}
	}
	return domain.FeaturedPlaylistsResult{Message: message, Playlists: w.playlistRefs(ctx, records)}
}

// playlistRefs converts records and caches each playlist cover under its own id.
func (w *Worker) playlistRefs(ctx context.Context, records []domain.PlaylistRecord) []domain.PlaylistRef {
	refs := make([]domain.PlaylistRef, 0, len(records))
	for _, rec := range records {
		ref := domain.NewPlaylistRef(rec)
		w.cache.CacheArtwork(ctx, string(ref.ID), ref.Images)
		refs = append(refs, ref)
	}
	return refs
}

func (w *Worker) fetchPlaylistTracks(ctx context.Context, t domain.FetchPlaylistTracksTask) domain.PlaylistTracksResult {
	if err := w.requireAPI("FetchPlaylistTracks"); err != nil {
		return domain.PlaylistTracksResult{Playlist: t.Playlist.ID, Err: err}
	}

	ids, err := parseTrackIDs(t.Playlist.TrackIDs)
	if err != nil {
		return domain.PlaylistTracksResult{Playlist: t.Playlist.ID, Err: err}
	}

	tracks, err := w.resolveTracks(ctx, ids)
	if err != nil {
		return domain.PlaylistTracksResult{Playlist: t.Playlist.ID, Err: err}
	}
	return domain.PlaylistTracksResult{Playlist: t.Playlist.ID, Tracks: tracks}
}

func (w *Worker) fetchRecommendations(ctx context.Context, t domain.FetchRecommendationsTask) domain.RecommendationsResult {
	result := domain.RecommendationsResult{Playlist: t.Playlist.ID}

	if len(t.Playlist.TrackIDs) == 0 {
		result.Err = domain.ErrEmptyPlaylist
		return result
	}
	candidates, err := parseTrackIDs(t.Playlist.TrackIDs)
	if err != nil {
		result.Err = err
		return result
	}
	if err := w.requireAPI("FetchRecommendations"); err != nil {
		result.Err = err
		return result
	}

	seeds := w.queue.SampleIDs(candidates, domain.MaxRecommendationSeeds)
	ids, err := w.api.Recommendations(ctx, seeds, w.cfg.RecommendationLimit)
	if err != nil {
		result.Err = err
		return result
	}

	result.Tracks, result.Err = w.resolveTracks(ctx, ids)
	return result
}

// parseTrackIDs validates every id before any of them reaches the network.
func parseTrackIDs(ids []domain.TrackID) ([]domain.TrackID, error) {
	out := make([]domain.TrackID, len(ids))
	for i, id := range ids {
		parsed, err := domain.ParseTrackID(string(id))
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}

// resolveTracks returns TrackInfo for ids in their original order.
// Cache misses are fetched in batches of at most domain.MaxTrackBatch and the
// cache is flushed once afterwards, even when a batch fails. Ids a batch
// could not resolve are not asked for again during the session.
func (w *Worker) resolveTracks(ctx context.Context, ids []domain.TrackID) ([]domain.TrackInfo, error) {
	seen := make(map[domain.TrackID]struct{})
	var misses []domain.TrackID
	for _, id := range ids {
		if _, ok := w.cache.Lookup(id); ok {
			continue
		}
		if _, ok := w.unresolved[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		misses = append(misses, id)
	}

	var fetchErr error
	for start := 0; start < len(misses); start += domain.MaxTrackBatch {
		end := min(start+domain.MaxTrackBatch, len(misses))

		batch := misses[start:end]
		records, err := w.api.Tracks(ctx, batch)
		if err != nil {
			fetchErr = err
			break
		}
		w.storeTracks(ctx, records)
		w.markUnresolved(batch)
	}

	if err := w.cache.Flush(); err != nil {
		w.logger.Warn("failed to flush cache", slog.Any("error", err))
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	tracks := make([]domain.TrackInfo, 0, len(ids))
	for _, id := range ids {
		if t, ok := w.cache.Lookup(id); ok {
			tracks = append(tracks, t)
		}
	}

	w.logger.Debug("tracks resolved",
		slog.Int("requested", len(ids)),
		slog.Int("fetched", len(misses)),
		slog.Int("resolved", len(tracks)))

	return tracks, nil
}

// markUnresolved remembers the ids of batch that did not make it into the cache.
func (w *Worker) markUnresolved(batch []domain.TrackID) {
	if w.unresolved == nil {
		w.unresolved = make(map[domain.TrackID]struct{})
	}
	for _, id := range batch {
		if _, ok := w.cache.Lookup(id); !ok {
			w.unresolved[id] = struct{}{}
		}
	}
}

// storeTracks converts and caches records along with their album artwork.
func (w *Worker) storeTracks(ctx context.Context, records []domain.TrackRecord) []domain.TrackInfo {
	stored := make([]domain.TrackInfo, 0, len(records))
	for _, rec := range records {
		info, err := domain.NewTrackInfo(rec)
		if err != nil {
			w.logger.Debug("skipping track record", slog.String("id", string(rec.ID)), slog.Any("error", err))
			continue
		}
		w.cache.Store(info)
		w.cache.CacheArtwork(ctx, info.CoverID(), info.Images)
		stored = append(stored, info)
	}
	return stored
}

func (w *Worker) search(ctx context.Context, t domain.SearchTask) domain.SearchResult {
	query := strings.TrimSpace(t.Query)
	result := domain.SearchResult{Query: query, Kind: t.Kind}

	if query == "" {
		result.Err = domain.NewValidationError("query", t.Query, "query must not be empty", nil)
		return result
	}
	if err := w.requireAPI("Search"); err != nil {
		result.Err = err
		return result
	}

	records, err := w.api.Search(ctx, query, t.Kind, w.cfg.SearchLimit)
	if err != nil {
		result.Err = err
		return result
	}

	result.Tracks = w.storeTracks(ctx, records.Tracks)
	if err := w.cache.Flush(); err != nil {
		w.logger.Warn("failed to flush cache", slog.Any("error", err))
	}
	result.Playlists = w.playlistRefs(ctx, records.Playlists)
	return result
}

func (w *Worker) mutatePlaylist(ctx context.Context, rawTrack, rawPlaylist string, add bool) domain.PlaylistMutationResult {
	result := domain.PlaylistMutationResult{Track: rawTrack, Playlist: rawPlaylist, Added: add}

	track, err := domain.ParseTrackID(rawTrack)
	if err != nil {
		result.Err = err
		return result
	}
	playlist, err := domain.ParsePlaylistID(rawPlaylist)
	if err != nil {
		result.Err = err
		return result
	}
	if err := w.requireAPI("MutatePlaylist"); err != nil {
		result.Err = err
		return result
	}

	if add {
		result.Err = w.api.AddTrackToPlaylist(ctx, playlist, track)
	} else {
		result.Err = w.api.RemoveTrackFromPlaylist(ctx, playlist, track)
	}
	return result
}

// Controls

func (w *Worker) handleControl(control domain.Control) {
	if w.engine == nil {
		w.logger.Debug("control ignored without session", slog.String("type", fmt.Sprintf("%T", control)))
		return
	}

	switch c := control.(type) {
	case domain.PlayControl:
		w.play()
	case domain.PauseControl:
		w.pause()
	case domain.StopControl:
		w.stop()
	case domain.TogglePlayPauseControl:
		if w.paused {
			w.play()
		} else {
			w.pause()
		}
	case domain.StartQueueControl:
		w.startQueue(c.Tracks, "")
	case domain.StartQueueAtControl:
		w.startQueue(c.Tracks, c.Anchor)
	case domain.NextTrackControl:
		w.step(w.queue.NextIndex)
	case domain.PreviousTrackControl:
		w.step(w.queue.PreviousIndex)
	default:
		w.logger.Error("unknown control dropped", slog.String("type", fmt.Sprintf("%T", control)))
	}
}

func (w *Worker) play() {
	if err := w.engine.Play(); err != nil {
		w.logger.Warn("play failed", slog.Any("error", err))
		return
	}
	w.states.Publish(domain.NewResumedUpdate())
}

func (w *Worker) pause() {
	if err := w.engine.Pause(); err != nil {
		w.logger.Warn("pause failed", slog.Any("error", err))
		return
	}
	w.states.Publish(domain.NewPausedUpdate())
}

func (w *Worker) stop() {
	if err := w.engine.Stop(); err != nil {
		w.logger.Warn("stop failed", slog.Any("error", err))
		return
	}
	w.states.Publish(domain.NewStoppedUpdate())
}

// startQueue shuffles tracks into a new queue and plays its starting track.
// The old queue stays in place unless the new first track loads.
func (w *Worker) startQueue(tracks []domain.TrackInfo, anchor domain.TrackID) {
	for _, t := range tracks {
		if _, err := domain.ParseTrackID(string(t.ID)); err != nil {
			w.logger.Warn("queue rejected", slog.Any("error", err))
			return
		}
	}

	var (
		pq  domain.PlayQueue
		err error
	)
	if anchor == "" {
		pq, err = w.queue.Start(tracks)
	} else {
		pq, err = w.queue.StartAt(tracks, anchor)
	}
	if err != nil {
		w.logger.Debug("queue not started", slog.Any("error", err))
		return
	}

	track := pq.Tracks[pq.Cursor]
	if err := w.loadAndPlay(track); err != nil {
		w.logger.Warn("failed to start queue", slog.Any("error", err))
		return
	}

	w.queue.Replace(pq)
	w.states.Publish(domain.NewNowPlayingUpdate(track))
	w.logger.Debug("queue started", slog.Int("tracks", pq.Len()), slog.Int("cursor", pq.Cursor))
}

// step moves to the index chosen by next, loading it before committing the cursor.
func (w *Worker) step(next func() (int, error)) {
	idx, err := next()
	if err != nil {
		w.logger.Debug("nothing to step to", slog.Any("error", err))
		return
	}
	track, _ := w.queue.At(idx)

	if err := w.loadAndPlay(track); err != nil {
		w.logger.Warn("failed to change track", slog.Any("error", err))
		return
	}

	_ = w.queue.MoveTo(idx)
	w.states.Publish(domain.NewNowPlayingUpdate(track))
}

func (w *Worker) loadAndPlay(track domain.TrackInfo) error {
	if err := w.engine.Load(track.ID, true, 0); err != nil {
		return err
	}
	if err := w.engine.Play(); err != nil {
		w.logger.Warn("play after load failed", slog.String("track", string(track.ID)), slog.Any("error", err))
	}
	return nil
}

// Engine events

func (w *Worker) receiveEvent(event domain.Event, ok bool) {
	if !ok {
		w.logger.Warn("playback session ended")
		w.closeSession()
		return
	}
	w.handleEvent(event)
}

func (w *Worker) handleEvent(event domain.Event) {
	switch e := event.(type) {
	case domain.EngineStartedEvent, domain.EnginePlayingEvent:
		w.paused = false
	case domain.EnginePausedEvent:
		w.paused = true
	case domain.EngineAboutToFinishEvent:
		w.preloadNext()
	case domain.EngineTrackEndedEvent:
		if current, ok := w.queue.Current(); ok && e.TrackID != "" && e.TrackID != current.ID {
			w.logger.Debug("stale track end ignored", slog.String("track", string(e.TrackID)))
			return
		}
		w.step(w.queue.NextIndex)
	default:
		w.logger.Error("unknown engine event dropped", slog.String("type", fmt.Sprintf("%T", event)))
	}
}

func (w *Worker) preloadNext() {
	idx, err := w.queue.NextIndex()
	if err != nil {
		return
	}
	track, _ := w.queue.At(idx)
	if err := w.engine.Preload(track.ID); err != nil {
		w.logger.Debug("preload failed", slog.String("track", string(track.ID)), slog.Any("error", err))
	}
}
