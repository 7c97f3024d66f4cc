package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
)

type contentRepository interface {
	FindCourse(ctx context.Context, p tenancy.Principal, id string) (*models.Course, error)
	FindLesson(ctx context.Context, p tenancy.Principal, id string) (*models.Lesson, error)
	FindQuiz(ctx context.Context, p tenancy.Principal, id string) (*models.Quiz, error)
	ListQuestions(ctx context.Context, p tenancy.Principal, quizID string) ([]models.QuizQuestion, error)
	ListQuestionsByIDs(ctx context.Context, p tenancy.Principal, ids []string) ([]models.QuizQuestion, error)
}

// LessonView is a sanitized lesson payload plus the access verdict that
// produced it.
type LessonView struct {
	Lesson store.Record          `json:"lesson"`
	Access models.AccessDecision `json:"access"`
}

// QuizView is a gated question set for one quiz.
type QuizView struct {
	QuizID    string                `json:"quiz_id"`
	Access    models.AccessDecision `json:"access"`
	Questions []models.QuizQuestion `json:"questions"`
}

// ContentService runs the read pipeline in its fixed dependency order:
// policy, membership, entitlements, decision, sanitize.
type ContentService struct {
	repo         contentRepository
	policies     *PolicyService
	memberships  *MembershipService
	entitlements *EntitlementService
	access       *AccessService
	logger       *zap.Logger
	now          func() time.Time
}

// NewContentService constructs the pipeline.
func NewContentService(repo contentRepository, policies *PolicyService, memberships *MembershipService, entitlements *EntitlementService, access *AccessService, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{
		repo:         repo,
		policies:     policies,
		memberships:  memberships,
		entitlements: entitlements,
		access:       access,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetLesson resolves and sanitizes one lesson for the caller.
// requestedChars optionally narrows the preview window below the policy
// ceiling; it can never widen it.
func (s *ContentService) GetLesson(ctx context.Context, p tenancy.Principal, lessonID string, requestedChars int) (*LessonView, error) {
	lesson, err := s.repo.FindLesson(ctx, p, lessonID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	policy := s.policies.Resolve(ctx, p, lesson.SchoolID)
	membership := s.memberships.Resolve(ctx, p, lesson.SchoolID, p.Email)
	isStaff := s.memberships.IsStaff(membership)

	var entitlements []models.Entitlement
	var course models.Course
	if !isStaff {
		if c, err := s.repo.FindCourse(ctx, p, lesson.CourseID); err == nil && c != nil {
			course = *c
		}
		entitlements = s.entitlements.ActiveForUser(ctx, p, lesson.SchoolID, p.Email, now)
	}

	decision := s.access.DecideLesson(*lesson, course, policy, isStaff, entitlements, now)

	rec, err := lessonRecord(lesson)
	if err != nil {
		return nil, err
	}
	return &LessonView{
		Lesson: SanitizeRecord(rec, decision.Level, policy, requestedChars),
		Access: decision,
	}, nil
}

// GetQuizQuestions resolves the caller's access to a quiz and returns the
// gated question set.
func (s *ContentService) GetQuizQuestions(ctx context.Context, p tenancy.Principal, quizID string) (*QuizView, error) {
	quiz, err := s.repo.FindQuiz(ctx, p, quizID)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.ListQuestions(ctx, p, quizID)
	if err != nil {
		return nil, err
	}
	return s.gateQuiz(ctx, p, *quiz, questions), nil
}

// BatchQuestions gates a mixed-quiz batch of question ids, grouped per quiz.
// Questions whose quiz cannot be resolved are dropped (fail safe).
func (s *ContentService) BatchQuestions(ctx context.Context, p tenancy.Principal, questionIDs []string) ([]QuizView, error) {
	questions, err := s.repo.ListQuestionsByIDs(ctx, p, questionIDs)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]models.QuizQuestion)
	var order []string
	for _, q := range questions {
		if _, seen := grouped[q.QuizID]; !seen {
			order = append(order, q.QuizID)
		}
		grouped[q.QuizID] = append(grouped[q.QuizID], q)
	}

	views := make([]QuizView, 0, len(order))
	for _, quizID := range order {
		quiz, err := s.repo.FindQuiz(ctx, p, quizID)
		if err != nil {
			s.logger.Warn("quiz lookup failed in batch, dropping questions", zap.String("quiz_id", quizID), zap.Error(err))
			continue
		}
		views = append(views, *s.gateQuiz(ctx, p, *quiz, grouped[quizID]))
	}
	return views, nil
}

func (s *ContentService) gateQuiz(ctx context.Context, p tenancy.Principal, quiz models.Quiz, questions []models.QuizQuestion) *QuizView {
	now := s.now()
	policy := s.policies.Resolve(ctx, p, quiz.SchoolID)
	membership := s.memberships.Resolve(ctx, p, quiz.SchoolID, p.Email)
	isStaff := s.memberships.IsStaff(membership)

	var entitlements []models.Entitlement
	var course models.Course
	if !isStaff && quiz.CourseID != "" {
		if c, err := s.repo.FindCourse(ctx, p, quiz.CourseID); err == nil && c != nil {
			course = *c
		}
		entitlements = s.entitlements.ActiveForUser(ctx, p, quiz.SchoolID, p.Email, now)
	}

	decision := s.access.DecideQuiz(quiz, course, policy, isStaff, entitlements, now)
	return &QuizView{
		QuizID:    quiz.ID,
		Access:    decision,
		Questions: s.access.GateQuestions(quiz, questions, decision.Level),
	}
}

// lessonRecord flattens the typed lesson into the field map the sanitizer
// operates on.
func lessonRecord(lesson *models.Lesson) (store.Record, error) {
	raw, err := json.Marshal(lesson)
	if err != nil {
		return nil, err
	}
	var rec store.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
