package app_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"quizmint/internal/app"
	"quizmint/internal/generator"
	"quizmint/internal/model"
	"quizmint/internal/pkg/pdfextract"
	"quizmint/internal/repository"
)

var _ = Describe("StudyService", func() {
	var (
		sessionRepo *repository.SessionRepository
		cardRepo    *repository.FlashcardRepository
		eventRepo   *repository.ExtractionEventRepository
		extractor   *stubExtractor
		publisher   *capturePublisher
		cache       *memoryCache
		service     *app.StudyService
		ctx         context.Context
	)

	newService := func() *app.StudyService {
		return app.NewStudyService(
			sessionRepo, cardRepo, eventRepo, extractor,
			generator.NewNaive(), publisher, cache,
			30*time.Second,
		)
	}

	BeforeEach(func() {
		db := newTestDB()
		sessionRepo = repository.NewSessionRepository(db)
		cardRepo = repository.NewFlashcardRepository(db)
		eventRepo = repository.NewExtractionEventRepository(db)
		extractor = &stubExtractor{}
		publisher = &capturePublisher{}
		cache = newMemoryCache()
		service = newService()
		ctx = context.Background()
	})

	createSession := func() *model.Session {
		session, err := service.CreateSession(ctx, app.CreateSessionInput{
			Age:        25,
			Difficulty: model.DifficultyMedium,
		})
		Expect(err).NotTo(HaveOccurred())
		return session
	}

	Describe("CreateSession", func() {
		It("persists a valid session", func() {
			session := createSession()
			Expect(session.ID).NotTo(BeZero())
			Expect(session.Age).To(Equal(25))
			Expect(session.Difficulty).To(Equal(model.DifficultyMedium))
		})

		It("rejects a non-positive age", func() {
			_, err := service.CreateSession(ctx, app.CreateSessionInput{
				Age:        0,
				Difficulty: model.DifficultyEasy,
			})
			Expect(err).To(MatchError(app.ErrInvalidInput))
		})

		It("rejects an unknown difficulty", func() {
			_, err := service.CreateSession(ctx, app.CreateSessionInput{
				Age:        25,
				Difficulty: "brutal",
			})
			Expect(err).To(MatchError(app.ErrInvalidInput))
		})
	})

	Describe("GetSession", func() {
		It("returns a created session without extracted text", func() {
			session := createSession()

			got, err := service.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Age).To(Equal(25))
			Expect(got.ExtractedText).To(BeEmpty())
			Expect(got.ExtractedAt).To(BeNil())
		})

		It("reports missing sessions", func() {
			_, err := service.GetSession(ctx, 4242)
			Expect(err).To(MatchError(app.ErrSessionNotFound))
		})
	})

	Describe("ExtractAndSave", func() {
		It("runs the whole pipeline and returns the accumulated cards", func() {
			session := createSession()
			extractor.text = "Cats are mammals. They purr. \nDogs bark a lot.\n"

			result, err := service.ExtractAndSave(ctx, session.ID, []byte("pdf"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal(extractor.text))
			Expect(result.Flashcards).To(HaveLen(3))
			Expect(result.Flashcards[0].Question).To(Equal("topic"))
			Expect(result.Flashcards[0].Answer).To(Equal("Cats are mammals"))
			Expect(result.Flashcards[1].Answer).To(Equal(" They purr"))
			Expect(result.Flashcards[2].Answer).To(Equal(" \nDogs bark a lot"))

			got, err := service.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ExtractedText).To(Equal(extractor.text))
			Expect(got.ExtractedAt).NotTo(BeNil())

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].SessionID).To(Equal(session.ID))
			Expect(events[0].Chars).To(Equal(len(extractor.text)))
			Expect(events[0].Cards).To(Equal(3))
		})

		It("accumulates cards across repeat uploads", func() {
			session := createSession()
			extractor.text = "First pass. Second point.\n"

			first, err := service.ExtractAndSave(ctx, session.ID, []byte("pdf"))
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Flashcards).To(HaveLen(3))

			extractor.text = "Replacement text. More points.\n"
			second, err := service.ExtractAndSave(ctx, session.ID, []byte("pdf"))
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Flashcards).To(HaveLen(6))

			got, err := service.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ExtractedText).To(Equal("Replacement text. More points.\n"))
		})

		It("rejects uploads for sessions that do not exist", func() {
			_, err := service.ExtractAndSave(ctx, 4242, []byte("pdf"))
			Expect(err).To(MatchError(app.ErrSessionNotFound))
		})

		It("propagates extraction failures without persisting anything", func() {
			session := createSession()
			extractor.err = pdfextract.ErrInvalidPDF

			_, err := service.ExtractAndSave(ctx, session.ID, []byte("junk"))
			Expect(err).To(MatchError(pdfextract.ErrInvalidPDF))

			got, err := service.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ExtractedText).To(BeEmpty())

			cards, err := service.ListFlashcards(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cards).To(BeEmpty())
			Expect(publisher.Events()).To(BeEmpty())
		})

		It("allows only one upload per session at a time", func() {
			session := createSession()
			extractor.text = "slow text.\n"
			extractor.block = make(chan struct{})
			started := make(chan struct{})
			extractor.onExtract = func() { close(started) }

			done := make(chan error, 1)
			go func() {
				_, err := service.ExtractAndSave(ctx, session.ID, []byte("pdf"))
				done <- err
			}()
			Eventually(started).Should(BeClosed())

			_, err := service.ExtractAndSave(ctx, session.ID, []byte("pdf"))
			Expect(err).To(MatchError(app.ErrUploadInFlight))

			close(extractor.block)
			Eventually(done).Should(Receive(BeNil()))

			// With the first upload finished the session accepts new ones.
			extractor.block = nil
			extractor.onExtract = nil
			_, err = service.ExtractAndSave(ctx, session.ID, []byte("pdf"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("discards an upload cancelled during extraction", func() {
			session := createSession()
			cancelCtx, cancel := context.WithCancel(ctx)
			extractor.text = "never saved.\n"
			extractor.onExtract = cancel

			_, err := service.ExtractAndSave(cancelCtx, session.ID, []byte("pdf"))
			Expect(err).To(MatchError(context.Canceled))

			got, err := service.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ExtractedText).To(BeEmpty())

			cards, err := service.ListFlashcards(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cards).To(BeEmpty())
		})
	})

	Describe("ListExtractionEvents", func() {
		It("reports missing sessions", func() {
			_, err := service.ListExtractionEvents(ctx, 4242)
			Expect(err).To(MatchError(app.ErrSessionNotFound))
		})

		It("returns the persisted audit trail oldest first", func() {
			session := createSession()
			Expect(eventRepo.Create(&model.ExtractionEvent{SessionID: session.ID, Chars: 10, Cards: 3})).To(Succeed())
			Expect(eventRepo.Create(&model.ExtractionEvent{SessionID: session.ID, Chars: 20, Cards: 3})).To(Succeed())

			events, err := service.ListExtractionEvents(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].Chars).To(Equal(10))
			Expect(events[1].Chars).To(Equal(20))
		})
	})

	Describe("ListFlashcards", func() {
		It("reports missing sessions", func() {
			_, err := service.ListFlashcards(ctx, 4242)
			Expect(err).To(MatchError(app.ErrSessionNotFound))
		})

		It("serves from the cache once filled", func() {
			session := createSession()
			extractor.text = "One. Two.\n"
			_, err := service.ExtractAndSave(ctx, session.ID, []byte("pdf"))
			Expect(err).NotTo(HaveOccurred())

			// Upload marked the cache dirty; the first list goes to the store.
			Expect(cache.dirty[session.ID]).To(BeTrue())
			cards, err := service.ListFlashcards(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cards).To(HaveLen(3))

			cache.dirty[session.ID] = false
			cards, err = service.ListFlashcards(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cards).To(HaveLen(3))
			Expect(cache.cards[session.ID]).To(HaveLen(3))
		})

		It("works without a cache or publisher wired in", func() {
			cache = nil
			publisher = nil
			bare := app.NewStudyService(
				sessionRepo, cardRepo, eventRepo, extractor,
				generator.NewNaive(), nil, nil,
				0,
			)

			session, err := bare.CreateSession(ctx, app.CreateSessionInput{
				Age:        30,
				Difficulty: model.DifficultyHard,
			})
			Expect(err).NotTo(HaveOccurred())

			extractor.text = "Plain. Simple.\n"
			result, err := bare.ExtractAndSave(ctx, session.ID, []byte("pdf"))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Flashcards).To(HaveLen(3))

			cards, err := bare.ListFlashcards(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cards).To(HaveLen(3))
		})
	})
})
