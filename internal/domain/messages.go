package domain

// Task is a request that may do network I/O and always yields one TaskResult.
type Task interface {
	task()
}

// LoginTask authenticates the Web API client and opens the playback session.
type LoginTask struct {
	Credentials Credentials
}

// FetchUserPlaylistsTask lists the current user's playlists.
type FetchUserPlaylistsTask struct{}

// FetchFeaturedPlaylistsTask lists the catalog's featured playlists.
type FetchFeaturedPlaylistsTask struct{}

// FetchPlaylistTracksTask resolves every track of a playlist.
type FetchPlaylistTracksTask struct {
	Playlist PlaylistRef
}

// FetchRecommendationsTask asks for tracks seeded from a playlist.
type FetchRecommendationsTask struct {
	Playlist PlaylistRef
}

// SearchTask queries the catalog.
type SearchTask struct {
	Query string
	Kind  SearchKind
}

// AddTrackToPlaylistTask appends a track to a remote playlist.
type AddTrackToPlaylistTask struct {
	Track    string
	Playlist string
}

// RemoveTrackFromPlaylistTask removes every occurrence of a track from a remote playlist.
type RemoveTrackFromPlaylistTask struct {
	Track    string
	Playlist string
}

func (LoginTask) task()                   {}
func (FetchUserPlaylistsTask) task()      {}
func (FetchFeaturedPlaylistsTask) task()  {}
func (FetchPlaylistTracksTask) task()     {}
func (FetchRecommendationsTask) task()    {}
func (SearchTask) task()                  {}
func (AddTrackToPlaylistTask) task()      {}
func (RemoveTrackFromPlaylistTask) task() {}

// TaskResult answers exactly one Task.
type TaskResult interface {
	// Failure returns the error the task ended with, or nil on success.
	Failure() error

	taskResult()
}

// LoginResult answers LoginTask.
type LoginResult struct {
	Success bool
	Err     error
}

// UserPlaylistsResult answers FetchUserPlaylistsTask.
type UserPlaylistsResult struct {
	Playlists []PlaylistRef
	Err       error
}

// FeaturedPlaylistsResult answers FetchFeaturedPlaylistsTask.
type FeaturedPlaylistsResult struct {
	Message   string
	Playlists []PlaylistRef
	Err       error
}

// PlaylistTracksResult answers FetchPlaylistTracksTask.
// Tracks keep the playlist order; ids the catalog could not resolve are omitted.
type PlaylistTracksResult struct {
	Playlist PlaylistID
	Tracks   []TrackInfo
	Err      error
}

// RecommendationsResult answers FetchRecommendationsTask.
type RecommendationsResult struct {
	Playlist PlaylistID
	Tracks   []TrackInfo
	Err      error
}

// SearchResult answers SearchTask.
type SearchResult struct {
	Query     string
	Kind      SearchKind
	Tracks    []TrackInfo
	Playlists []PlaylistRef
	Err       error
}

// PlaylistMutationResult answers AddTrackToPlaylistTask and RemoveTrackFromPlaylistTask.
type PlaylistMutationResult struct {
	Track    string
	Playlist string
	Added    bool
	Err      error
}

func (r LoginResult) Failure() error             { return r.Err }
func (r UserPlaylistsResult) Failure() error     { return r.Err }
func (r FeaturedPlaylistsResult) Failure() error { return r.Err }
func (r PlaylistTracksResult) Failure() error    { return r.Err }
func (r RecommendationsResult) Failure() error   { return r.Err }
func (r SearchResult) Failure() error            { return r.Err }
func (r PlaylistMutationResult) Failure() error  { return r.Err }

func (LoginResult) taskResult()             {}
func (UserPlaylistsResult) taskResult()     {}
func (FeaturedPlaylistsResult) taskResult() {}
func (PlaylistTracksResult) taskResult()    {}
func (RecommendationsResult) taskResult()   {}
func (SearchResult) taskResult()            {}
func (PlaylistMutationResult) taskResult()  {}

// Control is a fire-and-forget transport command.
type Control interface {
	control()
}

// PlayControl resumes playback.
type PlayControl struct{}

// PauseControl pauses playback.
type PauseControl struct{}

// StopControl stops playback.
type StopControl struct{}

// TogglePlayPauseControl pauses when playing and plays when paused.
type TogglePlayPauseControl struct{}

// StartQueueControl shuffles Tracks into a new queue and plays the first one.
type StartQueueControl struct {
	Tracks []TrackInfo
}

// StartQueueAtControl shuffles Tracks and starts at Anchor, or at index 0 when Anchor is absent.
type StartQueueAtControl struct {
	Tracks []TrackInfo
	Anchor TrackID
}

// NextTrackControl advances the queue, wrapping at the end.
type NextTrackControl struct{}

// PreviousTrackControl moves back in the queue, wrapping at the start.
type PreviousTrackControl struct{}

func (PlayControl) control()            {}
func (PauseControl) control()           {}
func (StopControl) control()            {}
func (TogglePlayPauseControl) control() {}
func (StartQueueControl) control()      {}
func (StartQueueAtControl) control()    {}
func (NextTrackControl) control()       {}
func (PreviousTrackControl) control()   {}
