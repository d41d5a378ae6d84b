package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"quizmint/internal/generator"
	"quizmint/internal/model"
	"quizmint/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUploadInFlight  = errors.New("an upload is already in progress for this session")
	ErrStaleUpload     = errors.New("a newer upload already saved its text")
)

// TextExtractor converts a PDF payload into a single text string.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractionEventPublisher emits audit events after a completed pipeline run.
type ExtractionEventPublisher interface {
	Publish(ctx context.Context, event model.ExtractionEvent) error
}

// FlashcardCache is the optional read cache for a session's card list.
type FlashcardCache interface {
	GetCards(ctx context.Context, sessionID uint) ([]model.Flashcard, bool, error)
	SetCards(ctx context.Context, sessionID uint, cards []model.Flashcard) error
	DeleteCards(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// StudyService runs the session pipeline: create and look up sessions,
// extract PDF text, derive flashcards, persist both, serve the card list.
type StudyService struct {
	sessionRepo  *repository.SessionRepository
	cardRepo     *repository.FlashcardRepository
	eventRepo    *repository.ExtractionEventRepository
	extractor    TextExtractor
	summarizer   generator.Summarizer
	publisher    ExtractionEventPublisher
	cache        FlashcardCache
	storeTimeout time.Duration

	mu       sync.Mutex
	inFlight map[uint]struct{}
}

func NewStudyService(
	sessionRepo *repository.SessionRepository,
	cardRepo *repository.FlashcardRepository,
	eventRepo *repository.ExtractionEventRepository,
	extractor TextExtractor,
	summarizer generator.Summarizer,
	publisher ExtractionEventPublisher,
	cache FlashcardCache,
	storeTimeout time.Duration,
) *StudyService {
	if storeTimeout <= 0 {
		storeTimeout = 30 * time.Second
	}
	return &StudyService{
		sessionRepo:  sessionRepo,
		cardRepo:     cardRepo,
		eventRepo:    eventRepo,
		extractor:    extractor,
		summarizer:   summarizer,
		publisher:    publisher,
		cache:        cache,
		storeTimeout: storeTimeout,
		inFlight:     make(map[uint]struct{}),
	}
}

type CreateSessionInput struct {
	Age        int
	Difficulty string
}

func (s *StudyService) CreateSession(ctx context.Context, input CreateSessionInput) (*model.Session, error) {
	if input.Age <= 0 || !model.ValidDifficulty(input.Difficulty) {
		return nil, ErrInvalidInput
	}

	session := &model.Session{
		Age:        input.Age,
		Difficulty: input.Difficulty,
	}
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.sessionRepo.Create(storeCtx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *StudyService) GetSession(ctx context.Context, sessionID uint) (*model.Session, error) {
	if sessionID == 0 {
		return nil, ErrInvalidInput
	}
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	session, err := s.sessionRepo.GetByID(storeCtx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ListFlashcards returns the session's cards in insertion order, from cache
// when the cache is clean and populated. Cache failures fall through to the
// store.
func (s *StudyService) ListFlashcards(ctx context.Context, sessionID uint) ([]model.Flashcard, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, sessionID)
		if err != nil {
			log.Printf("session %d: flashcard cache dirty check failed: %v", sessionID, err)
		} else if !dirty {
			if cached, hit, cacheErr := s.cache.GetCards(ctx, sessionID); cacheErr == nil && hit {
				return cached, nil
			} else if cacheErr != nil {
				log.Printf("session %d: flashcard cache read failed: %v", sessionID, cacheErr)
			}
		}
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	cards, err := s.cardRepo.ListBySessionID(storeCtx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			if err := s.cache.SetCards(ctx, sessionID, cards); err != nil {
				log.Printf("session %d: flashcard cache fill failed: %v", sessionID, err)
			}
		}
	}
	return cards, nil
}

// ListExtractionEvents returns the session's audit trail, oldest first.
// Events are written asynchronously by the broker worker, so the list may
// trail a just-finished upload.
func (s *StudyService) ListExtractionEvents(ctx context.Context, sessionID uint) ([]model.ExtractionEvent, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.eventRepo.ListBySessionID(storeCtx, sessionID)
}

// ExtractResult is what one successful upload produces.
type ExtractResult struct {
	Text       string            `json:"text"`
	Flashcards []model.Flashcard `json:"flashcards"`
}

// ExtractAndSave runs the whole pipeline for one uploaded PDF: extract text,
// persist it, derive flashcards, append them, refetch the accumulated list.
// Only one upload may run per session at a time, and a stale writer (one
// whose text write lost to a newer upload) is rejected rather than
// overwriting.
//
// The context is consulted before every persistence step, so cancelling an
// upload mid-flight discards it without leaving a half-announced state.
func (s *StudyService) ExtractAndSave(ctx context.Context, sessionID uint, data []byte) (*ExtractResult, error) {
	if sessionID == 0 {
		return nil, ErrInvalidInput
	}

	storeCtx, cancel := s.storeCtx(ctx)
	session, err := s.sessionRepo.GetByID(storeCtx, sessionID)
	cancel()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if !s.beginUpload(sessionID) {
		return nil, ErrUploadInFlight
	}
	defer s.endUpload(sessionID)

	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("session %d: extract failed: %w", sessionID, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seq := session.UploadSeq + 1
	storeCtx, cancel = s.storeCtx(ctx)
	applied, err := s.sessionRepo.UpdateExtractedText(storeCtx, sessionID, text, time.Now(), seq)
	cancel()
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrStaleUpload
	}

	qas, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("session %d: summarize failed: %w", sessionID, err)
	}
	cards := make([]model.Flashcard, len(qas))
	for i, qa := range qas {
		cards[i] = model.Flashcard{
			SessionID: sessionID,
			Question:  qa.Question,
			Answer:    qa.Answer,
		}
	}

	if s.cache != nil {
		if err := s.cache.MarkDirty(ctx, sessionID); err != nil {
			log.Printf("session %d: mark flashcard cache dirty failed: %v", sessionID, err)
		}
		if err := s.cache.DeleteCards(ctx, sessionID); err != nil {
			log.Printf("session %d: invalidate flashcard cache failed: %v", sessionID, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	storeCtx, cancel = s.storeCtx(ctx)
	written, err := s.cardRepo.AppendBatch(storeCtx, cards)
	cancel()
	if err != nil {
		// Not transactional: the cards written so far stay written, and the
		// caller learns exactly how far the batch got.
		log.Printf("session %d: flashcard append failed after %d of %d: %v", sessionID, written, len(cards), err)
		return nil, fmt.Errorf("session %d: appended %d of %d flashcards: %w", sessionID, written, len(cards), err)
	}

	if s.publisher != nil {
		event := model.ExtractionEvent{
			SessionID: sessionID,
			Chars:     len(text),
			Cards:     len(cards),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Printf("session %d: publish extraction event failed: %v", sessionID, err)
		}
	}

	storeCtx, cancel = s.storeCtx(ctx)
	all, err := s.cardRepo.ListBySessionID(storeCtx, sessionID)
	cancel()
	if err != nil {
		return nil, err
	}
	return &ExtractResult{Text: text, Flashcards: all}, nil
}

func (s *StudyService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *StudyService) beginUpload(sessionID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *StudyService) endUpload(sessionID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}
