// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
	"github.com/taibuivan/ratesync/internal/platform/validate"
	"github.com/taibuivan/ratesync/pkg/debounce"
	"github.com/taibuivan/ratesync/pkg/paginator"
	"github.com/taibuivan/ratesync/pkg/serial"
)

var (
	// ErrNoSelection is returned by edit operations when nothing is selected.
	ErrNoSelection = apperr.Unprocessable("No entry selected")

	// ErrLoadInProgress is returned by [List.Refresh] while a page is being fetched.
	ErrLoadInProgress = apperr.Conflict("A page load is already in progress")
)

// preferenceSaveTimeout bounds one preference write.
const preferenceSaveTimeout = 5 * time.Second

// Config tunes a [List].
type Config struct {
	PageSize       int
	SearchDebounce time.Duration
	RetryInitial   time.Duration
	RetryMax       time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:       50,
		SearchDebounce: 500 * time.Millisecond,
		RetryInitial:   time.Second,
		RetryMax:       30 * time.Second,
	}
}

// backoff doubles the initial delay per consecutive failure, capped at the maximum.
func (config Config) backoff(failures int) time.Duration {
	delay := config.RetryInitial
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= config.RetryMax {
			return config.RetryMax
		}
	}
	return min(delay, config.RetryMax)
}

// Dependencies are the collaborators of a [List].
type Dependencies struct {
	Remote      Remote
	Preferences PreferencesRepository
	CountCache  CountCache
	Logger      *slog.Logger
	Recorder    Recorder
}

// # Snapshot

// Selection is the entry targeted by edit operations with its staged fields.
type Selection struct {
	Entry Entry `json:"entry"`
	Draft Draft `json:"draft"`

	// Status is the status under edit.
	Status   Status `json:"status"`
	Finished bool   `json:"finished"`
}

// PageState describes the bulk load of one kind.
type PageState struct {
	Loading  bool `json:"loading"`
	Ended    bool `json:"ended"`
	NextPage int  `json:"next_page"`
}

// Snapshot is an immutable copy of everything the presentation layer shows.
type Snapshot struct {
	Kind      Kind    `json:"kind"`
	Status    Status  `json:"status"`
	SortKey   SortKey `json:"sort_key"`
	Ascending bool    `json:"ascending"`
	Term      string  `json:"term"`

	Entries []Entry `json:"entries"`
	Matched bool    `json:"matched"`

	Sizes  map[Status]int     `json:"sizes"`
	Counts Counts             `json:"counts,omitempty"`
	Pages  map[Kind]PageState `json:"pages"`

	Selection *Selection `json:"selection,omitempty"`
	Notice    string     `json:"notice,omitempty"`
}

// # Session

type pageLoader struct {
	pager *paginator.Paginator[int, Entry]

	fetching bool
	waiting  bool
	ended    bool
	loaded   bool
	failures int
	retry    *time.Timer
}

func (loader *pageLoader) state() PageState {
	return PageState{
		Loading:  loader.fetching || loader.waiting,
		Ended:    loader.ended,
		NextPage: loader.pager.Key(),
	}
}

/*
List is one user's list session.

It composes the [Store], the [View], the [Coordinator] and the [CountSync]. All
state below the queue is owned by a single task loop; every exported method
posts work to it, so a List is safe for concurrent callers. Network calls run
off the loop and post their results back.
*/
type List struct {
	userID       int64
	config       Config
	remote       Remote
	coordinator  *Coordinator
	countSync    *CountSync
	preferences  PreferencesRepository
	logger       *slog.Logger
	recorder     Recorder
	queue        *serial.Queue
	saves        chan Preferences
	debouncer    *debounce.Debouncer[string]
	ctx          context.Context
	cancel       context.CancelFunc
	startOnce    sync.Once
	started      atomic.Bool
	closeOnce    sync.Once
	lastActivity atomic.Int64

	// Loop-owned state
	store        *Store
	loaders      map[Kind]*pageLoader
	kind         Kind
	status       Status
	statusPinned bool
	sortKey      SortKey
	ascending    bool
	term         string
	counts       Counts
	selection    *Entry
	draft        Draft
	notice       string
	subscribers  map[int]chan Snapshot
	nextSubID    int
}

// NewList constructs an idle session for userID. Call [List.Start] to run it.
func NewList(userID int64, config Config, deps Dependencies) *List {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.Int64("user_id", userID))

	recorder := deps.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	list := &List{
		userID:      userID,
		config:      config,
		remote:      deps.Remote,
		coordinator: NewCoordinator(deps.Remote, userID, logger, recorder),
		countSync:   NewCountSync(deps.Remote, deps.CountCache, logger, recorder),
		preferences: deps.Preferences,
		logger:      logger,
		recorder:    recorder,
		queue:       serial.New(),
		saves:       make(chan Preferences, 1),
		ctx:         ctx,
		cancel:      cancel,
		store:       NewStore(),
		loaders:     make(map[Kind]*pageLoader, len(Kinds)),
		kind:        KindAnime,
		status:      StatusWatching,
		sortKey:     DefaultSortKey,
		subscribers: make(map[int]chan Snapshot),
	}

	for _, kind := range Kinds {
		list.loaders[kind] = &pageLoader{pager: list.newPager(kind)}
	}
	list.debouncer = debounce.New(config.SearchDebounce, list.applyTerm, list.searchFailed)
	list.touch()

	return list
}

func (list *List) newPager(kind Kind) *paginator.Paginator[int, Entry] {
	return paginator.New(paginator.Config[int, Entry]{
		Initial: 1,
		Fetch: func(ctx context.Context, page int) ([]Entry, error) {
			return list.remote.FetchListPage(ctx, kind, page, list.config.PageSize)
		},
		NextKey: func(page int, _ []Entry) int {
			return page + 1
		},
		OnSuccess: func(entries []Entry, _ int) {
			list.queue.Post(func() { list.pageLoaded(kind, entries) })
		},
		OnError: func(err error) {
			list.queue.Post(func() { list.pageFailed(kind, err) })
		},
	})
}

/*
Start loads the stored preferences and begins the session.

Description: It starts the task loop, runs the count sync once and begins the
bulk load of the active kind. Calling Start more than once has no effect.

Parameters:
  - ctx: context.Context (bounds the preference lookup only)

Returns:
  - error: preference lookup failures (defaults are used regardless)
*/
func (list *List) Start(ctx context.Context) error {
	var startErr error

	list.startOnce.Do(func() {
		preferences, err := loadPreferences(ctx, list.preferences, list.userID)
		if err != nil {
			list.logger.Warn("rate_preferences_load_failed", slog.Any("error", err))
			startErr = err
		}

		// Closed while the preferences were loading.
		if list.ctx.Err() != nil {
			return
		}

		list.kind = preferences.Kind
		list.sortKey = preferences.SortKey.For(preferences.Kind)
		list.ascending = preferences.Ascending

		list.logger.Info("rate_list_started", slog.String("kind", string(list.kind)))
		list.recorder.SessionOpened()

		list.started.Store(true)
		go list.queue.Run(list.ctx)
		go list.persistPreferences()

		list.queue.Post(func() {
			list.syncCounts()
			list.startLoad(list.kind)
		})
	})

	return startErr
}

// Close stops the session. In-flight mutations still complete remotely.
func (list *List) Close() {
	list.closeOnce.Do(func() {
		list.debouncer.Stop()
		list.cancel()

		if list.started.Load() {
			<-list.queue.Done()

			for _, loader := range list.loaders {
				if loader.retry != nil {
					loader.retry.Stop()
				}
			}
			for id, subscriber := range list.subscribers {
				close(subscriber)
				delete(list.subscribers, id)
			}
			list.recorder.SessionClosed()
		}

		list.logger.Info("rate_list_closed")
	})
}

// LastActivity reports when an entry point was last called.
func (list *List) LastActivity() time.Time {
	return time.Unix(0, list.lastActivity.Load())
}

func (list *List) touch() {
	list.lastActivity.Store(time.Now().UnixNano())
}

// do runs task on the loop and maps a stopped queue to a client-safe error.
func (list *List) do(ctx context.Context, task func()) error {
	list.touch()
	err := list.queue.Do(ctx, task)
	if errors.Is(err, serial.ErrStopped) {
		return apperr.ServiceUnavailable("List session is closed")
	}
	return err
}

// # Bulk Loading

// LoadNextPage requests the next page of the active kind.
// It is a no-op while a page is in flight or once the list is exhausted.
func (list *List) LoadNextPage(ctx context.Context) error {
	return list.do(ctx, func() {
		loader := list.loaders[list.kind]
		if loader.waiting {
			loader.retry.Stop()
			loader.waiting = false
		}
		list.startLoad(list.kind)
	})
}

/*
Refresh resets the active kind.

Description: The kind's partitions are cleared, its cursor and end flag reset,
the count sync runs again and page one is requested. It is refused with
[ErrLoadInProgress] while a fetch for the kind is in flight.
*/
func (list *List) Refresh(ctx context.Context) error {
	var refused bool

	err := list.do(ctx, func() {
		loader := list.loaders[list.kind]
		if loader.fetching {
			refused = true
			return
		}

		if loader.retry != nil {
			loader.retry.Stop()
		}
		loader.waiting = false
		loader.ended = false
		loader.loaded = false
		loader.failures = 0
		loader.pager.Reset()

		list.store.Clear(list.kind)
		list.statusPinned = false
		list.logger.Info("rate_list_refreshed", slog.String("kind", string(list.kind)))

		list.syncCounts()
		list.startLoad(list.kind)
	})
	if err != nil {
		return err
	}
	if refused {
		return ErrLoadInProgress
	}
	return nil
}

func (list *List) startLoad(kind Kind) {
	loader := list.loaders[kind]
	if loader.ended || loader.fetching || loader.waiting {
		return
	}

	loader.fetching = true
	loader.loaded = false

	go func() {
		if loader.pager.LoadNext(list.ctx) {
			list.queue.Post(func() { list.settle(kind) })
			return
		}
		list.queue.Post(func() { loader.fetching = false })
	}()

	list.publish()
}

func (list *List) pageLoaded(kind Kind, entries []Entry) {
	loader := list.loaders[kind]
	inserted := list.store.IngestPage(kind, entries)

	loader.failures = 0
	loader.loaded = true
	list.recorder.PageLoaded(kind, inserted)

	if kind == list.kind && !list.statusPinned && len(list.store.Bucket(kind, list.status)) == 0 {
		if status, ok := list.store.DefaultNonEmptyStatus(kind); ok {
			list.status = status
		}
	}

	list.logger.Debug("rate_page_loaded",
		slog.String("kind", string(kind)),
		slog.Int("received", len(entries)),
		slog.Int("inserted", inserted),
	)
}

func (list *List) pageFailed(kind Kind, err error) {
	loader := list.loaders[kind]

	if errors.Is(err, ErrNoMoreData) {
		loader.ended = true
		list.notice = NoticeAllLoaded
		list.logger.Info("rate_list_exhausted", slog.String("kind", string(kind)))
		return
	}

	if list.ctx.Err() != nil {
		return
	}

	loader.failures++
	list.recorder.PageFailed(kind)
	list.logger.Warn("rate_page_failed",
		slog.String("kind", string(kind)),
		slog.Int("page", loader.pager.Key()),
		slog.Int("failures", loader.failures),
		slog.Any("error", err),
	)
}

// settle runs after a fetch has fully resolved and decides what comes next:
// nothing at the end, a delayed retry after a failure, the next page otherwise.
func (list *List) settle(kind Kind) {
	loader := list.loaders[kind]
	loader.fetching = false

	switch {
	case loader.ended:
	case loader.loaded:
		list.startLoad(kind)
	case list.ctx.Err() == nil:
		delay := list.config.backoff(loader.failures)
		loader.waiting = true
		loader.retry = time.AfterFunc(delay, func() {
			list.queue.Post(func() {
				if !loader.waiting {
					return
				}
				loader.waiting = false
				list.startLoad(kind)
			})
		})
	}

	list.publish()
}

func (list *List) syncCounts() {
	ctx := list.ctx
	go func() {
		counts, ok := list.countSync.Refresh(ctx, list.userID)
		if !ok {
			return
		}
		list.queue.Post(func() {
			list.counts = counts
			if !list.statusPinned {
				if status, found := counts.FirstNonEmpty(list.kind); found {
					list.status = status
				}
			}
			list.publish()
		})
	}()
}

// # View Parameters

// SetKind switches the active content kind.
//
// The sort key is coerced to the kind and the choice is persisted. Switching
// kinds drops a pinned status: the new kind lands on its first non-empty
// bucket, right away when cached or once its first page arrives.
func (list *List) SetKind(ctx context.Context, kind Kind) error {
	validator := &validate.Validator{}
	validator.Custom(FieldKind, !kind.IsValid(), "Must be one of: anime, manga")
	if err := validator.Err(); err != nil {
		return err
	}

	return list.do(ctx, func() {
		if kind != list.kind {
			list.statusPinned = false
		}
		list.kind = kind
		list.sortKey = list.sortKey.For(kind)

		if list.store.IsEmpty(kind) {
			list.startLoad(kind)
		} else if !list.statusPinned && len(list.store.Bucket(kind, list.status)) == 0 {
			if status, ok := list.store.DefaultNonEmptyStatus(kind); ok {
				list.status = status
			}
		}

		list.savePreferences(list.currentPreferences())
		list.publish()
	})
}

// SetStatus selects the bucket to display.
func (list *List) SetStatus(ctx context.Context, status Status) error {
	validator := &validate.Validator{}
	validator.OneOf(FieldStatus, string(status), statusValues()...)
	if err := validator.Err(); err != nil {
		return err
	}

	return list.do(ctx, func() {
		list.status = status
		list.statusPinned = true
		list.publish()
	})
}

// SetSortKey validates, applies and persists a sort key in one step.
func (list *List) SetSortKey(ctx context.Context, key SortKey) error {
	validator := &validate.Validator{}
	validator.OneOf(FieldSort, string(key), sortKeyValues()...)
	if err := validator.Err(); err != nil {
		return err
	}

	return list.do(ctx, func() {
		list.sortKey = key.For(list.kind)
		list.savePreferences(list.currentPreferences())
		list.publish()
	})
}

// SetSortAscending applies and persists the sort direction.
func (list *List) SetSortAscending(ctx context.Context, ascending bool) error {
	return list.do(ctx, func() {
		list.ascending = ascending
		list.savePreferences(list.currentPreferences())
		list.publish()
	})
}

// SetSearchTerm feeds the debounced search pipeline. The filter changes once
// input has been quiet for the configured window.
func (list *List) SetSearchTerm(term string) {
	list.touch()
	list.debouncer.Push(term)
}

func (list *List) applyTerm(ctx context.Context, term string) error {
	return list.queue.Do(ctx, func() {
		list.term = term
		list.publish()
	})
}

func (list *List) searchFailed(err error) {
	list.logger.Debug("rate_search_failed", slog.Any("error", err))
	list.queue.Post(func() {
		list.term = ""
		list.publish()
	})
}

func (list *List) currentPreferences() Preferences {
	return Preferences{Kind: list.kind, SortKey: list.sortKey, Ascending: list.ascending}
}

// savePreferences hands preferences to the writer goroutine. Only the latest
// unsaved value is kept, so the loop never waits on the store.
func (list *List) savePreferences(preferences Preferences) {
	if list.preferences == nil {
		return
	}

	select {
	case <-list.saves:
	default:
	}
	list.saves <- preferences
}

// persistPreferences writes handed-over preferences until the session closes.
// A failed write is logged; the session keeps the new values.
func (list *List) persistPreferences() {
	for {
		select {
		case <-list.ctx.Done():
			return
		case preferences := <-list.saves:
			ctx, cancel := context.WithTimeout(context.WithoutCancel(list.ctx), preferenceSaveTimeout)
			err := list.preferences.SavePreferences(ctx, list.userID, preferences)
			cancel()

			if err != nil {
				list.logger.Error("rate_preferences_save_failed",
					slog.String("kind", string(preferences.Kind)),
					slog.Any("error", err),
				)
			}
		}
	}
}

// # Selection

// Select targets the cached entry id of the active kind.
func (list *List) Select(ctx context.Context, id int64) error {
	var found bool
	err := list.do(ctx, func() {
		entry, ok := list.store.Find(list.kind, id)
		if !ok {
			return
		}
		found = true
		list.setSelection(entry)
		list.publish()
	})
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("Entry")
	}
	return nil
}

// SelectContent targets a title. A title that is not in the list yet becomes
// an unsaved entry staged for the planned list.
func (list *List) SelectContent(ctx context.Context, kind Kind, content Content) error {
	validator := &validate.Validator{}
	validator.Custom(FieldKind, !kind.IsValid(), "Must be one of: anime, manga")
	validator.Custom(FieldContent, content.ID <= 0, "A content id is required")
	if err := validator.Err(); err != nil {
		return err
	}

	return list.do(ctx, func() {
		for _, status := range Statuses {
			for _, entry := range list.store.Bucket(kind, status) {
				if cached := entry.Content(); cached != nil && cached.ID == content.ID {
					list.setSelection(entry)
					list.publish()
					return
				}
			}
		}

		entry := Entry{UserID: list.userID}
		if kind == KindManga {
			entry.Manga = &content
		} else {
			entry.Anime = &content
		}
		list.selection = &entry
		list.draft = DraftOf(entry)
		list.draft.Status = StatusPlanned
		list.publish()
	})
}

// Deselect clears the selection.
func (list *List) Deselect(ctx context.Context) error {
	return list.do(ctx, func() {
		list.selection = nil
		list.draft = Draft{}
		list.publish()
	})
}

// Stage replaces the staged edit fields of the selection.
func (list *List) Stage(ctx context.Context, draft Draft) error {
	var missing bool
	err := list.do(ctx, func() {
		if list.selection == nil {
			missing = true
			return
		}
		list.draft = draft
		list.publish()
	})
	if err != nil {
		return err
	}
	if missing {
		return ErrNoSelection
	}
	return nil
}

func (list *List) setSelection(entry Entry) {
	list.selection = &entry
	list.draft = DraftOf(entry)
}

// # Mutations

// Create persists the unsaved selection with the staged fields.
func (list *List) Create(ctx context.Context) (Outcome, error) {
	return list.mutate(ctx, func(entry Entry, draft Draft) Outcome {
		return list.coordinator.Create(ctx, entry, draft)
	})
}

// Update sends the staged fields of the selection.
func (list *List) Update(ctx context.Context) (Outcome, error) {
	return list.mutate(ctx, func(entry Entry, draft Draft) Outcome {
		return list.coordinator.Update(ctx, entry, draft)
	})
}

// Transfer moves the selection to status.
func (list *List) Transfer(ctx context.Context, status Status) (Outcome, error) {
	return list.mutate(ctx, func(entry Entry, _ Draft) Outcome {
		return list.coordinator.Transfer(ctx, entry, status)
	})
}

// Increment advances the progress of the selection by one unit.
func (list *List) Increment(ctx context.Context) (Outcome, error) {
	return list.mutate(ctx, func(entry Entry, _ Draft) Outcome {
		return list.coordinator.Increment(ctx, entry)
	})
}

// Delete removes the selection from the user's list.
func (list *List) Delete(ctx context.Context) (Outcome, error) {
	return list.mutate(ctx, func(entry Entry, _ Draft) Outcome {
		return list.coordinator.Delete(ctx, entry)
	})
}

/*
mutate runs one coordinator operation against the current selection.

Description: The selection is read on the loop, the remote call runs on the
caller's goroutine, and the outcome is committed back on the loop. The commit
happens even when ctx is cancelled in the meantime, so the store always
reflects what the server confirmed.
*/
func (list *List) mutate(ctx context.Context, operation func(entry Entry, draft Draft) Outcome) (Outcome, error) {
	var (
		entry    Entry
		draft    Draft
		selected bool
	)

	err := list.do(ctx, func() {
		if list.selection == nil {
			return
		}
		selected = true
		entry = *list.selection
		draft = list.draft
	})
	if err != nil {
		return Outcome{}, err
	}
	if !selected {
		return Outcome{}, ErrNoSelection
	}

	outcome := operation(entry, draft)

	err = list.do(context.WithoutCancel(ctx), func() {
		list.commit(outcome)
	})
	return outcome, err
}

func (list *List) commit(outcome Outcome) {
	list.coordinator.Commit(list.store, outcome)

	list.setSelection(outcome.Selection())
	list.notice = outcome.Notice

	kind := outcome.Original.Kind()
	if !outcome.Failed() && kind == list.kind && len(list.store.Bucket(kind, list.status)) == 0 {
		if status, ok := list.store.DefaultNonEmptyStatus(kind); ok {
			list.status = status
		}
	}

	list.publish()
}

// # Observation

// Snapshot returns the current state.
func (list *List) Snapshot(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot
	err := list.do(ctx, func() {
		snapshot = list.snapshot()
	})
	return snapshot, err
}

// ConsumeNotice returns the pending notice and clears it.
func (list *List) ConsumeNotice(ctx context.Context) (string, error) {
	var notice string
	err := list.do(ctx, func() {
		notice = list.notice
		if notice != "" {
			list.notice = ""
			list.publish()
		}
	})
	return notice, err
}

/*
Subscribe registers a snapshot observer.

Description: The channel holds at most one snapshot; a slow reader only ever
sees the latest state. The channel is closed by the returned cancel function or
when the session closes.

Returns:
  - <-chan Snapshot: receives the current state immediately, then every change
  - func(): unsubscribes
*/
func (list *List) Subscribe(ctx context.Context) (<-chan Snapshot, func(), error) {
	channel := make(chan Snapshot, 1)
	var id int

	err := list.do(ctx, func() {
		id = list.nextSubID
		list.nextSubID++
		list.subscribers[id] = channel
		channel <- list.snapshot()
	})
	if err != nil {
		return nil, func() {}, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			list.queue.Post(func() {
				if subscriber, ok := list.subscribers[id]; ok {
					close(subscriber)
					delete(list.subscribers, id)
				}
			})
		})
	}
	return channel, cancel, nil
}

func (list *List) publish() {
	if len(list.subscribers) == 0 {
		return
	}

	snapshot := list.snapshot()
	for _, subscriber := range list.subscribers {
		// Latest wins: replace an unread snapshot.
		select {
		case <-subscriber:
		default:
		}
		subscriber <- snapshot
	}
}

func (list *List) snapshot() Snapshot {
	result := View(list.store.Bucket(list.kind, list.status), Query{
		Key:       list.sortKey,
		Ascending: list.ascending,
		Term:      list.term,
	})

	pages := make(map[Kind]PageState, len(list.loaders))
	for kind, loader := range list.loaders {
		pages[kind] = loader.state()
	}

	snapshot := Snapshot{
		Kind:      list.kind,
		Status:    list.status,
		SortKey:   list.sortKey,
		Ascending: list.ascending,
		Term:      list.term,
		Entries:   result.Entries,
		Matched:   result.Matched,
		Sizes:     list.store.Sizes(list.kind),
		Pages:     pages,
		Notice:    list.notice,
	}

	if list.counts != nil {
		snapshot.Counts = list.counts.Normalized()
	}

	if list.selection != nil {
		entry := *list.selection
		snapshot.Selection = &Selection{
			Entry:    entry,
			Draft:    list.draft,
			Status:   list.draft.Status,
			Finished: entry.Finished(),
		}
	}

	return snapshot
}
