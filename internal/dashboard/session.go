package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/logging"
)

var (
	// ErrStale is returned when a result was dropped because newer state replaced it.
	ErrStale = errors.New("result discarded: dashboard state changed while the request was running")
	// ErrNoSelection is returned by draft operations without a selected email.
	ErrNoSelection = errors.New("no email selected")
	// ErrNoDraft is returned when saving an empty draft.
	ErrNoDraft = errors.New("no draft to save")
	// ErrUnknownEmail is returned for an ID that is not in the loaded inbox.
	ErrUnknownEmail = errors.New("email is not in the inbox")
	// ErrBusy is returned when the same knowledge base action is already running.
	ErrBusy = errors.New("operation already in progress")
)

// Backend is the part of the backend API the dashboard uses.
type Backend interface {
	ListInbox(ctx context.Context, maxResults int) ([]backend.Email, error)
	GetEmail(ctx context.Context, id string) (*backend.EmailBody, error)
	GenerateDraft(ctx context.Context, emailText string) (*backend.DraftReply, error)
	SaveDraft(ctx context.Context, req backend.DraftRequest) (*backend.SavedDraft, error)
	UploadDocument(ctx context.Context, filename string, r io.Reader) (*backend.UploadResult, error)
	SyncSent(ctx context.Context, limit int) (*backend.SyncResult, error)
}

// Options configures a Session.
type Options struct {
	// DemoFallback substitutes placeholder data when the backend fails.
	DemoFallback bool

	// InboxSize is passed as max_results. Zero leaves it to the backend.
	InboxSize int

	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// State is a copy of the session state for rendering.
type State struct {
	Emails      []backend.Email
	Selected    *backend.Email
	Draft       string
	ContextUsed []string

	Loading    bool
	Generating bool
	Uploading  bool
	Syncing    bool

	// Loaded is true once the inbox was loaded (or replaced by demo data).
	Loaded bool
	// Demo is true while the inbox shows placeholder emails.
	Demo   bool
	Notice *Notice
}

// HasDraft reports whether there is a draft to edit or save.
func (s State) HasDraft() bool {
	return s.Draft != ""
}

// IsSelected reports whether id is the selected email.
func (s State) IsSelected(id string) bool {
	return s.Selected != nil && s.Selected.ID == id
}

// Session is one user's dashboard.
type Session struct {
	backend Backend
	opts    Options
	logger  *slog.Logger

	mu          sync.Mutex
	emails      []backend.Email
	selected    *backend.Email
	draft       string
	contextUsed []string
	loading     bool
	generating  bool
	uploading   bool
	syncing     bool
	loaded      bool
	demo        bool
	notice      *Notice

	inboxSeq     uint64
	selectionSeq uint64
}

// NewSession creates an empty Session.
func NewSession(b Backend, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{backend: b, opts: opts, logger: logger}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Emails:      append([]backend.Email(nil), s.emails...),
		Draft:       s.draft,
		ContextUsed: append([]string(nil), s.contextUsed...),
		Loading:     s.loading,
		Generating:  s.generating,
		Uploading:   s.uploading,
		Syncing:     s.syncing,
		Loaded:      s.loaded,
		Demo:        s.demo,
	}
	if s.selected != nil {
		sel := *s.selected
		st.Selected = &sel
	}
	if s.notice != nil {
		n := *s.notice
		st.Notice = &n
	}
	return st
}

// TakeNotice returns the pending notice and clears it.
func (s *Session) TakeNotice() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notice
	s.notice = nil
	return n
}

// setNotice must be called with mu held.
func (s *Session) setNotice(kind NoticeKind, msg string) {
	s.notice = &Notice{Kind: kind, Message: msg, At: s.opts.Now()}
}

// Refresh reloads the inbox.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.inboxSeq++
	seq := s.inboxSeq
	s.loading = true
	s.mu.Unlock()

	emails, err := s.backend.ListInbox(ctx, s.opts.InboxSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.inboxSeq {
		return ErrStale
	}
	s.loading = false

	if err != nil {
		if s.opts.DemoFallback {
			s.logger.Warn("inbox unavailable, using demo emails", logging.Err(err))
			s.emails = DemoInbox()
			s.demo = true
			s.loaded = true
			s.setNotice(NoticeInfo, MsgDemoInbox)
			return nil
		}
		s.setNotice(NoticeError, "Failed to load inbox: "+describe(err))
		return err
	}

	s.emails = emails
	s.demo = false
	s.loaded = true
	return nil
}

// findLocked must be called with mu held.
func (s *Session) findLocked(id string) (backend.Email, bool) {
	for _, e := range s.emails {
		if e.ID == id {
			return e, true
		}
	}
	return backend.Email{}, false
}

// selectLocked must be called with mu held. Changing the selection clears the
// draft and invalidates in-flight draft requests.
func (s *Session) selectLocked(email backend.Email) {
	if s.selected != nil && s.selected.ID == email.ID {
		return
	}
	s.selectionSeq++
	s.selected = &email
	s.draft = ""
	s.contextUsed = nil
	s.generating = false
}

// Select makes id the selected email.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEmail, id)
	}
	s.selectLocked(email)
	return nil
}

// GenerateDraft selects id and asks the backend for a reply. The full body is
// fetched first; the snippet is used when that fails or the body is empty.
func (s *Session) GenerateDraft(ctx context.Context, id string) (*backend.DraftReply, error) {
	s.mu.Lock()
	email, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownEmail, id)
	}
	s.selectLocked(email)
	s.selectionSeq++
	seq := s.selectionSeq
	s.draft = ""
	s.contextUsed = nil
	s.generating = true
	s.mu.Unlock()

	body := email.Snippet
	full, err := s.backend.GetEmail(ctx, email.ID)
	switch {
	case err != nil:
		s.logger.Warn("could not fetch full email body, using snippet",
			logging.EmailID(email.ID), logging.Err(err))
	case full.Body != "":
		body = full.Body
	}

	reply, err := s.backend.GenerateDraft(ctx, ComposeEmailText(email.Subject, email.Sender, body))

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.selectionSeq {
		return nil, ErrStale
	}
	s.generating = false

	if err != nil {
		if s.opts.DemoFallback {
			s.logger.Warn("draft generation failed, using demo draft",
				logging.EmailID(email.ID), logging.Err(err))
			s.draft = DemoDraft(email.Sender)
			return &backend.DraftReply{Draft: s.draft}, nil
		}
		s.setNotice(NoticeError, "Draft generation failed: "+describe(err))
		return nil, err
	}

	s.draft = reply.Draft
	s.contextUsed = reply.ContextUsed
	return reply, nil
}

// EditDraft replaces the draft text. A draft still being generated is dropped.
func (s *Session) EditDraft(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return ErrNoSelection
	}
	s.cancelGenerationLocked()
	s.draft = text
	return nil
}

// DiscardDraft clears the draft and drops a draft still being generated.
func (s *Session) DiscardDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelGenerationLocked()
	s.draft = ""
	s.contextUsed = nil
}

// cancelGenerationLocked must be called with mu held.
func (s *Session) cancelGenerationLocked() {
	if s.generating {
		s.selectionSeq++
		s.generating = false
	}
}

// SaveDraft stores the draft as a reply to the selected email in Gmail.
func (s *Session) SaveDraft(ctx context.Context) (*backend.SavedDraft, error) {
	s.mu.Lock()
	if s.draft == "" {
		s.mu.Unlock()
		return nil, ErrNoDraft
	}
	if s.selected == nil {
		s.mu.Unlock()
		return nil, ErrNoSelection
	}
	req := backend.DraftRequest{
		Recipient: ExtractRecipient(s.selected.Sender),
		Subject:   ReplySubject(s.selected.Subject),
		Body:      s.draft,
	}
	s.mu.Unlock()

	saved, err := s.backend.SaveDraft(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.setNotice(NoticeError, MsgDraftSavedLocally)
		return nil, err
	}
	s.setNotice(NoticeSuccess, MsgDraftSaved)
	return saved, nil
}

// Upload sends a policy document to the knowledge base.
func (s *Session) Upload(ctx context.Context, filename string, r io.Reader) (*backend.UploadResult, error) {
	s.mu.Lock()
	if s.uploading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.uploading = true
	s.mu.Unlock()

	result, err := s.backend.UploadDocument(ctx, filename, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploading = false
	if err != nil {
		s.setNotice(NoticeError, MsgUploadFailed)
		return nil, err
	}
	s.setNotice(NoticeSuccess, MsgUploadSucceeded)
	return result, nil
}

// Sync indexes recent sent emails into the knowledge base.
func (s *Session) Sync(ctx context.Context, limit int) (*backend.SyncResult, error) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.syncing = true
	s.mu.Unlock()

	result, err := s.backend.SyncSent(ctx, limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = false
	if err != nil {
		if s.opts.DemoFallback {
			s.logger.Warn("sync failed in demo mode", logging.Err(err))
			s.setNotice(NoticeInfo, MsgSyncDemo)
			return &backend.SyncResult{}, nil
		}
		s.setNotice(NoticeError, "Sync failed: "+describe(err))
		return nil, err
	}
	s.setNotice(NoticeSuccess, SyncedMessage(result.SyncedCount))
	return result, nil
}
