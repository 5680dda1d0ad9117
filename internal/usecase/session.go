package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"pdfchat/internal/domain"
)

// DocumentExt is the only file extension the backend accepts; anything else
// is rejected locally before a request is made.
const DocumentExt = ".pdf"

// ResetPrompt is the yes/no question put to the confirmation function before
// a reset proceeds.
const ResetPrompt = "Clear conversation history and uploaded files?"

const (
	answerErrPrefix   = "❌ Error: "
	genericAskFailure = "Request failed"
	connectionFailure = "Connection failed"
)

// BackendClient is the REST surface the session controller consumes.
type BackendClient interface {
	CreateSession(ctx context.Context) (string, error)
	ListFiles(ctx context.Context, sessionID string) ([]string, error)
	ChatHistory(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	Upload(ctx context.Context, sessionID, filename string, r io.Reader) error
	DeleteFile(ctx context.Context, sessionID, filename string) error
	Ask(ctx context.Context, sessionID, question string) (string, error)
	SaveMessage(ctx context.Context, sessionID, question, answer string) error
	Reset(ctx context.Context, sessionID string) error
}

// IdentityStore persists the session identifier across runs.
type IdentityStore interface {
	Load() (string, error)
	Save(id string) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type detailCarrier interface {
	BackendDetail() string
}

// Service owns the client-side session state: the identifier, the uploaded
// file registry, and the ordered conversation. It is safe for concurrent use;
// uploads and questions are each serialized by a single-slot gate.
type Service struct {
	backend BackendClient
	ids     IdentityStore
	confirm func(prompt string) bool
	logger  *slog.Logger

	initOnce sync.Once
	initErr  error

	askGate    gate
	uploadGate gate

	mu        sync.Mutex
	sessionID string
	files     []string
	messages  []domain.ChatMessage
}

type Option func(*Service)

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfirm installs the yes/no decision gate consulted before a reset.
// The default confirms unconditionally, which suits non-interactive callers.
func WithConfirm(f func(prompt string) bool) Option {
	return func(s *Service) {
		if f != nil {
			s.confirm = f
		}
	}
}

func NewService(backend BackendClient, ids IdentityStore, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, errors.New("usecase: backend client must not be nil")
	}
	if ids == nil {
		return nil, errors.New("usecase: identity store must not be nil")
	}
	s := &Service{
		backend:    backend,
		ids:        ids,
		confirm:    func(string) bool { return true },
		logger:     slog.Default(),
		askGate:    newGate(),
		uploadGate: newGate(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Init establishes the session identifier and reconciles local state with the
// backend. It runs at most once per Service; repeated calls return the first
// outcome without re-running the restore.
func (s *Service) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.initialize(ctx)
	})
	return s.initErr
}

func (s *Service) initialize(ctx context.Context) error {
	id, err := s.ids.Load()
	if err != nil {
		return newError(ErrorSessionInit, "identity_read_error", err)
	}
	if id == "" {
		id, err = s.backend.CreateSession(ctx)
		if err != nil {
			return newError(ErrorSessionInit, "session_create_error", err)
		}
		if err := s.ids.Save(id); err != nil {
			return newError(ErrorSessionInit, "identity_write_error", err)
		}
		s.logger.Info("created session", "session_id", id)
	}

	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()

	s.restore(ctx, id)
	return nil
}

// restore pulls the server-held file list and chat history. A failed or empty
// read leaves local state empty: "no prior session" and "restore failed" are
// indistinguishable to the user, both look like a fresh session.
func (s *Service) restore(ctx context.Context, id string) {
	files, err := s.backend.ListFiles(ctx, id)
	if err != nil {
		s.logger.Debug("restore: file list unavailable", "err", err)
	}
	messages, err := s.backend.ChatHistory(ctx, id)
	if err != nil {
		s.logger.Debug("restore: chat history unavailable", "err", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(files) > 0 {
		s.files = files
	}
	if len(messages) > 0 {
		s.messages = messages
	}
}

// SessionID returns the established identifier, or "" before a successful Init.
func (s *Service) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Files returns a snapshot of the uploaded document names in insertion order.
func (s *Service) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

// Messages returns a snapshot of the conversation in order.
func (s *Service) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Upload sends a document to the backend and appends it to the registry on
// acknowledgment. Rejections for file type or missing session happen locally
// with no request made. One upload at a time; the gate is released on every
// exit path.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) error {
	if !strings.HasSuffix(filename, DocumentExt) {
		return newError(ErrorValidation, "not_pdf", nil)
	}
	id, ok := s.session()
	if !ok {
		return newError(ErrorValidation, "no_session", nil)
	}
	if !s.uploadGate.tryAcquire() {
		return newError(ErrorValidation, "upload_in_flight", nil)
	}
	defer s.uploadGate.release()

	if err := s.backend.Upload(ctx, id, filename, r); err != nil {
		return callError("upload_error", err)
	}

	s.mu.Lock()
	s.files = append(s.files, filename)
	s.mu.Unlock()
	return nil
}

// Remove deletes the document at index (which must hold filename) from the
// backend, then from the registry. A failed delete leaves the registry
// unchanged.
func (s *Service) Remove(ctx context.Context, filename string, index int) error {
	id, ok := s.session()
	if !ok {
		return newError(ErrorValidation, "no_session", nil)
	}

	s.mu.Lock()
	valid := index >= 0 && index < len(s.files) && s.files[index] == filename
	s.mu.Unlock()
	if !valid {
		return newError(ErrorValidation, "bad_index", nil)
	}

	if err := s.backend.DeleteFile(ctx, id, filename); err != nil {
		return callError("delete_error", err)
	}

	s.mu.Lock()
	if index < len(s.files) && s.files[index] == filename {
		s.files = append(s.files[:index], s.files[index+1:]...)
	}
	s.mu.Unlock()
	return nil
}

// Ask submits a question. The message is appended with a placeholder answer
// before any network activity, then transitions in place to Resolved or
// Failed. A backend or transport failure is returned as the message's
// terminal answer text, not as an error: the question is never lost.
//
// Questions are serialized: a second Ask while one is pending is rejected
// locally.
func (s *Service) Ask(ctx context.Context, question string) (domain.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.ChatMessage{}, newError(ErrorValidation, "empty_question", nil)
	}
	id, ok := s.session()
	if !ok {
		return domain.ChatMessage{}, newError(ErrorValidation, "no_session", nil)
	}
	if len(s.Files()) == 0 {
		return domain.ChatMessage{}, newError(ErrorValidation, "no_files", nil)
	}
	if !s.askGate.tryAcquire() {
		return domain.ChatMessage{}, newError(ErrorValidation, "question_pending", nil)
	}
	defer s.askGate.release()

	s.mu.Lock()
	s.messages = append(s.messages, domain.NewPendingMessage(question))
	s.mu.Unlock()

	answer, err := s.backend.Ask(ctx, id, question)
	if err != nil {
		return s.transitionPending(func(m domain.ChatMessage) domain.ChatMessage {
			return m.Failed(askFailureText(err))
		}), nil
	}

	msg := s.transitionPending(func(m domain.ChatMessage) domain.ChatMessage {
		return m.Resolved(answer)
	})

	// Persistence is advisory; the in-memory conversation stays authoritative
	// for this run whether or not the save lands.
	if err := s.backend.SaveMessage(ctx, id, question, answer); err != nil {
		s.logger.Warn("save message failed", "err", err)
	}
	return msg, nil
}

// Reset clears server and local state for the session after the confirmation
// gate approves. A declined confirmation is a no-op, not an error.
func (s *Service) Reset(ctx context.Context) (bool, error) {
	if !s.confirm(ResetPrompt) {
		return false, nil
	}
	id, ok := s.session()
	if !ok {
		return false, newError(ErrorValidation, "no_session", nil)
	}
	if err := s.backend.Reset(ctx, id); err != nil {
		return false, callError("reset_error", err)
	}

	s.mu.Lock()
	s.files = nil
	s.messages = nil
	s.mu.Unlock()
	return true, nil
}

func (s *Service) session() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID, s.sessionID != ""
}

// transitionPending advances the single pending message. The ask gate
// guarantees at most one exists.
func (s *Service) transitionPending(f func(domain.ChatMessage) domain.ChatMessage) domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Pending() {
			s.messages[i] = f(s.messages[i])
			return s.messages[i]
		}
	}
	return domain.ChatMessage{}
}

// callError classifies a failed backend call: a status-carrying error means
// the backend answered and rejected, anything else is a transport failure.
func callError(reason string, err error) *Error {
	var sc httpStatusCoder
	if errors.As(err, &sc) {
		return newError(ErrorBackend, reason, err)
	}
	return newError(ErrorConnection, reason, err)
}

// askFailureText derives the terminal answer for a failed ask: the backend's
// detail message when one arrived, otherwise a generic failure line.
func askFailureText(err error) string {
	var sc httpStatusCoder
	if errors.As(err, &sc) {
		if d := BackendDetail(err); d != "" {
			return answerErrPrefix + d
		}
		return answerErrPrefix + genericAskFailure
	}
	return answerErrPrefix + connectionFailure
}

// BackendDetail extracts the backend-provided detail message from an error
// chain, or "" when none is present.
func BackendDetail(err error) string {
	var dc detailCarrier
	if !errors.As(err, &dc) {
		return ""
	}
	return dc.BackendDetail()
}
