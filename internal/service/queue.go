package service

import (
	"math/rand/v2"

	"github.com/tejashwikalptaru/espot/internal/domain"
)

// QueueManager owns the play queue and its shuffle policy.
//
// Navigation always wraps: next from the last track is the first track and
// previous from the first is the last. There is no end-of-queue state.
//
// Thread-safety: none. A QueueManager belongs to the worker goroutine.
type QueueManager struct {
	rng   *rand.Rand
	queue domain.PlayQueue
}

// NewQueueManager creates a queue manager. A nil rng uses a randomly seeded PCG source.
func NewQueueManager(rng *rand.Rand) *QueueManager {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &QueueManager{rng: rng}
}

// Shuffle returns a uniformly random permutation of tracks.
// The input slice is not modified.
func (q *QueueManager) Shuffle(tracks []domain.TrackInfo) []domain.TrackInfo {
	out := append([]domain.TrackInfo(nil), tracks...)
	q.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Start builds a shuffled queue positioned at its first track.
// The queue is not committed; see Replace.
func (q *QueueManager) Start(tracks []domain.TrackInfo) (domain.PlayQueue, error) {
	if len(tracks) == 0 {
		return domain.PlayQueue{}, domain.ErrEmptyPlaylist
	}
	return domain.PlayQueue{Tracks: q.Shuffle(tracks)}, nil
}

// StartAt shuffles tracks and positions the cursor on the first track with
// the anchor id. When the anchor is absent the cursor is 0.
func (q *QueueManager) StartAt(tracks []domain.TrackInfo, anchor domain.TrackID) (domain.PlayQueue, error) {
	pq, err := q.Start(tracks)
	if err != nil {
		return pq, err
	}
	for i, t := range pq.Tracks {
		if t.ID == anchor {
			pq.Cursor = i
			break
		}
	}
	return pq, nil
}

// Replace installs a whole queue at once.
func (q *QueueManager) Replace(pq domain.PlayQueue) {
	if pq.Cursor < 0 || pq.Cursor >= len(pq.Tracks) {
		pq.Cursor = 0
	}
	q.queue = pq
}

// Clear drops the queue.
func (q *QueueManager) Clear() {
	q.queue = domain.PlayQueue{}
}

// Queue returns the committed queue.
func (q *QueueManager) Queue() domain.PlayQueue {
	return q.queue
}

// Len returns the number of queued tracks.
func (q *QueueManager) Len() int {
	return q.queue.Len()
}

// Cursor returns the current index.
func (q *QueueManager) Cursor() int {
	return q.queue.Cursor
}

// Current returns the track under the cursor.
func (q *QueueManager) Current() (domain.TrackInfo, bool) {
	return q.queue.Current()
}

// NextIndex returns the index after the cursor, wrapping to 0.
func (q *QueueManager) NextIndex() (int, error) {
	n := q.queue.Len()
	if n == 0 {
		return 0, domain.ErrEmptyQueue
	}
	return (q.queue.Cursor + 1) % n, nil
}

// PreviousIndex returns the index before the cursor, wrapping to the last track.
func (q *QueueManager) PreviousIndex() (int, error) {
	n := q.queue.Len()
	if n == 0 {
		return 0, domain.ErrEmptyQueue
	}
	return (q.queue.Cursor - 1 + n) % n, nil
}

// At returns the track at index i.
func (q *QueueManager) At(i int) (domain.TrackInfo, bool) {
	if i < 0 || i >= q.queue.Len() {
		return domain.TrackInfo{}, false
	}
	return q.queue.Tracks[i], true
}

// MoveTo moves the cursor.
func (q *QueueManager) MoveTo(i int) error {
	if q.queue.Empty() {
		return domain.ErrEmptyQueue
	}
	if i < 0 || i >= q.queue.Len() {
		return domain.ErrInvalidIndex
	}
	q.queue.Cursor = i
	return nil
}

// SampleIDs picks up to n distinct ids at random, preserving nothing about their order.
func (q *QueueManager) SampleIDs(ids []domain.TrackID, n int) []domain.TrackID {
	seen := make(map[domain.TrackID]struct{}, len(ids))
	unique := make([]domain.TrackID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	q.rng.Shuffle(len(unique), func(i, j int) {
		unique[i], unique[j] = unique[j], unique[i]
	})
	if len(unique) > n {
		unique = unique[:n]
	}
	return unique
}
