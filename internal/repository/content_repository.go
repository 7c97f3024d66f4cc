package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	appErrors "github.com/yeshivabachur/breslov-academy-sub000/pkg/errors"
)

// ContentRepository reads courses, lessons, quizzes and questions through the
// guarded store.
type ContentRepository struct {
	store *tenancy.GuardedStore
}

// NewContentRepository constructs the repository.
func NewContentRepository(gs *tenancy.GuardedStore) *ContentRepository {
	return &ContentRepository{store: gs}
}

// FindCourse returns a course visible to the caller.
func (r *ContentRepository) FindCourse(ctx context.Context, p tenancy.Principal, id string) (*models.Course, error) {
	var course models.Course
	if err := r.getInto(ctx, p, models.EntityCourse, id, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindLesson returns a lesson visible to the caller.
func (r *ContentRepository) FindLesson(ctx context.Context, p tenancy.Principal, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.getInto(ctx, p, models.EntityLesson, id, &lesson); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindQuiz returns a quiz visible to the caller.
func (r *ContentRepository) FindQuiz(ctx context.Context, p tenancy.Principal, id string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.getInto(ctx, p, models.EntityQuiz, id, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// ListQuestions returns a quiz's questions ordered by question_index.
func (r *ContentRepository) ListQuestions(ctx context.Context, p tenancy.Principal, quizID string) ([]models.QuizQuestion, error) {
	records, err := r.store.List(ctx, p, models.EntityQuizQuestion, store.Query{
		Filter: store.Record{"quiz_id": quizID},
		Sort:   "question_index",
		Limit:  store.MaxLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	return decodeAll[models.QuizQuestion](records)
}

// ListQuestionsByIDs returns questions for a batch of ids, possibly spanning
// multiple quizzes.
func (r *ContentRepository) ListQuestionsByIDs(ctx context.Context, p tenancy.Principal, ids []string) ([]models.QuizQuestion, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	records, err := r.store.List(ctx, p, models.EntityQuizQuestion, store.Query{
		Filter: store.Record{store.FieldID: store.Record{"$in": values}},
		Limit:  store.MaxLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list questions by ids: %w", err)
	}
	return decodeAll[models.QuizQuestion](records)
}

func (r *ContentRepository) getInto(ctx context.Context, p tenancy.Principal, entityType, id string, dest interface{}) error {
	rec, err := r.store.Get(ctx, p, entityType, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return appErrors.ErrNotFound
		}
		return fmt.Errorf("get %s: %w", entityType, err)
	}
	return decodeRecord(rec, dest)
}
