package service

import (
	"sync"
	"time"

	"github.com/lumenlms/lumen/internal/apperr"
	"github.com/lumenlms/lumen/internal/dto"
	"github.com/lumenlms/lumen/internal/model"
	"github.com/lumenlms/lumen/internal/repository"
	"gorm.io/gorm"
)

// In-memory repository fakes. They hold the same invariants the Postgres
// layer enforces: the unique (quiz, student, attempt_number) triple, the
// finalize compare-and-set, and the (attempt, question) upsert key.

type fakeQuizRepo struct {
	mu      sync.Mutex
	nextID  uint
	quizzes map[uint]*model.Quiz
}

func newFakeQuizRepo() *fakeQuizRepo {
	return &fakeQuizRepo{nextID: 1, quizzes: map[uint]*model.Quiz{}}
}

func (r *fakeQuizRepo) add(quiz *model.Quiz) *model.Quiz {
	r.mu.Lock()
	defer r.mu.Unlock()
	if quiz.ID == 0 {
		quiz.ID = r.nextID
		r.nextID++
	}
	r.quizzes[quiz.ID] = quiz
	return quiz
}

func (r *fakeQuizRepo) Create(quiz *model.Quiz) error {
	r.add(quiz)
	return nil
}

func (r *fakeQuizRepo) FindByID(id uint) (*model.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *quiz
	return &copied, nil
}

func (r *fakeQuizRepo) FindByIDWithQuestions(id uint) (*model.Quiz, error) {
	return r.FindByID(id)
}

func (r *fakeQuizRepo) FindAllPublished() ([]repository.QuizWithQuestionCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.QuizWithQuestionCount
	for _, quiz := range r.quizzes {
		if quiz.IsPublished {
			out = append(out, repository.QuizWithQuestionCount{Quiz: *quiz, QuestionCount: len(quiz.Questions)})
		}
	}
	return out, nil
}

func (r *fakeQuizRepo) SetPublishState(id uint, published, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	quiz.IsPublished = published
	quiz.IsActive = active
	return nil
}

type fakeQuestionRepo struct {
	quizzes *fakeQuizRepo
}

func (r *fakeQuestionRepo) FindByID(id uint) (*model.Question, error) {
	r.quizzes.mu.Lock()
	defer r.quizzes.mu.Unlock()
	for _, quiz := range r.quizzes.quizzes {
		for i := range quiz.Questions {
			if quiz.Questions[i].ID == id {
				copied := quiz.Questions[i]
				return &copied, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeQuestionRepo) FindByQuizID(quizID uint) ([]model.Question, error) {
	quiz, err := r.quizzes.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

type responseKey struct {
	attemptID  uint
	questionID uint
}

type fakeResponseRepo struct {
	mu        sync.Mutex
	nextID    uint
	responses map[responseKey]*model.QuizResponse
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{nextID: 1, responses: map[responseKey]*model.QuizResponse{}}
}

func (r *fakeResponseRepo) Upsert(response *model.QuizResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := responseKey{response.AttemptID, response.QuestionID}
	if existing, ok := r.responses[key]; ok {
		existing.Answer = response.Answer
		existing.TimeSpentSeconds += response.TimeSpentSeconds
		response.ID = existing.ID
		return nil
	}
	response.ID = r.nextID
	r.nextID++
	copied := *response
	r.responses[key] = &copied
	return nil
}

func (r *fakeResponseRepo) FindByAttempt(attemptID uint) ([]model.QuizResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.QuizResponse
	for key, resp := range r.responses {
		if key.attemptID == attemptID {
			out = append(out, *resp)
		}
	}
	return out, nil
}

func (r *fakeResponseRepo) FindByAttemptAndQuestion(attemptID, questionID uint) (*model.QuizResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[responseKey{attemptID, questionID}]
	if !ok {
		return nil, nil
	}
	copied := *resp
	return &copied, nil
}

func (r *fakeResponseRepo) applyGraded(graded []model.QuizResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range graded {
		key := responseKey{graded[i].AttemptID, graded[i].QuestionID}
		if existing, ok := r.responses[key]; ok {
			existing.PointsEarned = graded[i].PointsEarned
			existing.IsCorrect = graded[i].IsCorrect
		}
	}
}

type fakeAttemptRepo struct {
	mu        sync.Mutex
	nextID    uint
	attempts  map[uint]*model.QuizAttempt
	quizzes   *fakeQuizRepo
	responses *fakeResponseRepo
}

func newFakeAttemptRepo(quizzes *fakeQuizRepo, responses *fakeResponseRepo) *fakeAttemptRepo {
	return &fakeAttemptRepo{
		nextID:    1,
		attempts:  map[uint]*model.QuizAttempt{},
		quizzes:   quizzes,
		responses: responses,
	}
}

func (r *fakeAttemptRepo) add(attempt *model.QuizAttempt) *model.QuizAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt.ID == 0 {
		attempt.ID = r.nextID
		r.nextID++
	}
	r.attempts[attempt.ID] = attempt
	return attempt
}

func (r *fakeAttemptRepo) CreateForStudent(quizID, studentID uint, startedAt time.Time) (*model.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 1
	for _, a := range r.attempts {
		if a.QuizID == quizID && a.StudentID == studentID && a.AttemptNumber >= next {
			next = a.AttemptNumber + 1
		}
	}
	attempt := &model.QuizAttempt{
		ID:            r.nextID,
		QuizID:        quizID,
		StudentID:     studentID,
		AttemptNumber: next,
		StartedAt:     startedAt,
	}
	r.nextID++
	r.attempts[attempt.ID] = attempt
	copied := *attempt
	return &copied, nil
}

func (r *fakeAttemptRepo) FindByID(id uint) (*model.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (r *fakeAttemptRepo) FindByIDWithResponses(id uint) (*model.QuizAttempt, error) {
	attempt, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	attempt.Responses, _ = r.responses.FindByAttempt(id)
	return attempt, nil
}

func (r *fakeAttemptRepo) FindAllByQuizAndStudent(quizID, studentID uint) ([]model.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.QuizAttempt
	for _, a := range r.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) FindAllByQuiz(quizID uint) ([]model.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.QuizAttempt
	for _, a := range r.attempts {
		if a.QuizID == quizID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) FindOpen(quizID, studentID uint) (*model.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.QuizID == quizID && a.StudentID == studentID && !a.IsCompleted {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAttemptRepo) CountCompleted(quizID, studentID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.attempts {
		if a.QuizID == quizID && a.StudentID == studentID && a.IsCompleted {
			n++
		}
	}
	return n, nil
}

func (r *fakeAttemptRepo) AccrueTime(attemptID uint, delta, limitSeconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[attemptID]
	if !ok || attempt.IsCompleted {
		return nil
	}
	attempt.TimeSpentSeconds += delta
	if limitSeconds > 0 && attempt.TimeSpentSeconds > limitSeconds {
		attempt.TimeSpentSeconds = limitSeconds
	}
	return nil
}

func (r *fakeAttemptRepo) Finalize(attempt *model.QuizAttempt, graded []model.QuizResponse) error {
	r.mu.Lock()
	stored, ok := r.attempts[attempt.ID]
	if !ok {
		r.mu.Unlock()
		return gorm.ErrRecordNotFound
	}
	if stored.IsCompleted {
		r.mu.Unlock()
		return apperr.ErrAttemptAlreadyCompleted
	}
	stored.Score = attempt.Score
	stored.MaxScore = attempt.MaxScore
	stored.Percentage = attempt.Percentage
	stored.SubmittedAt = attempt.SubmittedAt
	stored.TimeSpentSeconds = attempt.TimeSpentSeconds
	stored.AutoSubmitted = attempt.AutoSubmitted
	stored.IsCompleted = true
	r.mu.Unlock()

	r.responses.applyGraded(graded)
	return nil
}

func (r *fakeAttemptRepo) FindExpiredOpen(now time.Time, limit int) ([]model.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.QuizAttempt
	for _, a := range r.attempts {
		if a.IsCompleted {
			continue
		}
		quiz, ok := r.quizzes.quizzes[a.QuizID]
		if !ok {
			continue
		}
		if a.Expired(quiz, now) {
			out = append(out, *a)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) ApplyManualGrades(attempt *model.QuizAttempt, graded []model.QuizResponse) error {
	r.mu.Lock()
	stored, ok := r.attempts[attempt.ID]
	if !ok {
		r.mu.Unlock()
		return gorm.ErrRecordNotFound
	}
	stored.Score = attempt.Score
	stored.Percentage = attempt.Percentage
	r.mu.Unlock()

	r.responses.applyGraded(graded)
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []uint
}

func (n *fakeNotifier) AttemptCompleted(attempt *model.QuizAttempt, quiz *model.Quiz) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, attempt.ID)
}

// env wires the fakes into real services with a controllable clock.
type env struct {
	quizzes   *fakeQuizRepo
	questions *fakeQuestionRepo
	attempts  *fakeAttemptRepo
	responses *fakeResponseRepo
	notifier  *fakeNotifier

	grader   GradingEngine
	gate     AttemptGate
	svc      *attemptService
	recorder *responseRecorder
	timer    *AttemptTimer

	now time.Time
}

func newEnv(now time.Time) *env {
	quizzes := newFakeQuizRepo()
	responses := newFakeResponseRepo()
	attempts := newFakeAttemptRepo(quizzes, responses)
	notifier := &fakeNotifier{}
	grader := NewGradingEngine(attempts, notifier)
	gate := NewAttemptGate(NewAvailabilityPolicy())

	e := &env{
		quizzes:   quizzes,
		questions: &fakeQuestionRepo{quizzes: quizzes},
		attempts:  attempts,
		responses: responses,
		notifier:  notifier,
		grader:    grader,
		gate:      gate,
		now:       now,
	}
	clock := func() time.Time { return e.now }
	e.svc = &attemptService{
		quizRepo:     quizzes,
		attemptRepo:  attempts,
		responseRepo: responses,
		gate:         gate,
		grader:       grader,
		now:          clock,
	}
	e.recorder = &responseRecorder{
		quizRepo:     quizzes,
		questionRepo: e.questions,
		attemptRepo:  attempts,
		responseRepo: responses,
		now:          clock,
	}
	e.timer = &AttemptTimer{
		quizRepo:     quizzes,
		attemptRepo:  attempts,
		responseRepo: responses,
		grader:       grader,
		interval:     time.Minute,
		now:          clock,
	}
	return e
}

func recordReq(questionID uint, text string, selected []string) dto.RecordAnswerRequest {
	return dto.RecordAnswerRequest{QuestionID: questionID, Text: text, Selected: selected}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

// publishedQuiz builds a published, active quiz with two auto-gradable
// questions worth 3 points total.
func publishedQuiz(e *env) *model.Quiz {
	quiz := &model.Quiz{
		Title:       "Networking Basics",
		MaxAttempts: 3,
		AllowRetake: true,
		IsPublished: true,
		IsActive:    true,
		Questions: []model.Question{
			{
				ID:       101,
				Type:     model.QuestionMultipleChoice,
				Text:     "Which layer does TCP live at?",
				Points:   2,
				Position: 1,
				Options: []model.QuestionOption{
					{Text: "Transport", IsCorrect: true, Position: 1},
					{Text: "Network", Position: 2},
					{Text: "Application", Position: 3},
				},
			},
			{
				ID:            102,
				Type:          model.QuestionTrueFalse,
				Text:          "UDP guarantees delivery.",
				Points:        1,
				Position:      2,
				CorrectAnswer: strPtr("false"),
			},
		},
	}
	return e.quizzes.add(quiz)
}
