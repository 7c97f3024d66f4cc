package service

import (
	"sort"
	"time"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
)

// AccessService is the access decision engine. Checks run in a fixed order:
// staff bypass, course free bypass, entitlement match, drip downgrade,
// preview eligibility. Later checks assume earlier ones passed, so no other
// order is correct.
type AccessService struct {
	metrics *MetricsService
}

// NewAccessService constructs the engine. metrics may be nil.
func NewAccessService(metrics *MetricsService) *AccessService {
	return &AccessService{metrics: metrics}
}

// DecideLesson computes the access level for one lesson.
func (s *AccessService) DecideLesson(lesson models.Lesson, course models.Course, policy models.ContentProtectionPolicy, isStaff bool, entitlements []models.Entitlement, now time.Time) models.AccessDecision {
	if isStaff {
		return s.record(models.AccessDecision{Level: models.AccessFull, HasCourseAccess: true})
	}

	hasAccess := course.IsFree() || hasCourseEntitlement(entitlements, lesson.CourseID)
	if hasAccess {
		if unlockAt, locked := dripUnlock(lesson, entitlements, now); locked {
			return s.record(models.AccessDecision{Level: models.AccessDripLocked, HasCourseAccess: true, UnlockAt: &unlockAt})
		}
		return s.record(models.AccessDecision{Level: models.AccessFull, HasCourseAccess: true})
	}

	if policy.AllowPreviews && lesson.IsPreview {
		return s.record(models.AccessDecision{Level: models.AccessPreview})
	}
	return s.record(models.AccessDecision{Level: models.AccessLocked})
}

// DecideQuiz computes the access level for a quiz. A quiz is
// preview-eligible when it exposes a positive preview question limit.
func (s *AccessService) DecideQuiz(quiz models.Quiz, course models.Course, policy models.ContentProtectionPolicy, isStaff bool, entitlements []models.Entitlement, now time.Time) models.AccessDecision {
	if isStaff {
		return s.record(models.AccessDecision{Level: models.AccessFull, HasCourseAccess: true})
	}

	// Standalone quizzes have no course to buy; they gate on preview rules.
	hasAccess := quiz.CourseID != "" && (course.IsFree() || hasCourseEntitlement(entitlements, quiz.CourseID))
	if hasAccess {
		return s.record(models.AccessDecision{Level: models.AccessFull, HasCourseAccess: true})
	}

	if policy.AllowPreviews && quiz.PreviewLimitQuestions > 0 {
		return s.record(models.AccessDecision{Level: models.AccessPreview})
	}
	return s.record(models.AccessDecision{Level: models.AccessLocked})
}

// GateQuestions applies the resolved level to a quiz's question set: all for
// FULL, the first N by question_index (ascending, stable on ties) for
// PREVIEW, none otherwise.
func (s *AccessService) GateQuestions(quiz models.Quiz, questions []models.QuizQuestion, level models.AccessLevel) []models.QuizQuestion {
	switch level {
	case models.AccessFull:
		return questions
	case models.AccessPreview:
		limit := quiz.PreviewLimitQuestions
		if limit <= 0 {
			return []models.QuizQuestion{}
		}
		ordered := make([]models.QuizQuestion, len(questions))
		copy(ordered, questions)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].QuestionIndex < ordered[j].QuestionIndex
		})
		if len(ordered) > limit {
			ordered = ordered[:limit]
		}
		return ordered
	default:
		return []models.QuizQuestion{}
	}
}

func (s *AccessService) record(d models.AccessDecision) models.AccessDecision {
	if s.metrics != nil {
		s.metrics.RecordAccessDecision(string(d.Level))
	}
	return d
}

// hasCourseEntitlement reports whether any grant unlocks the course:
// ALL_COURSES, or COURSE with a matching course id.
func hasCourseEntitlement(entitlements []models.Entitlement, courseID string) bool {
	for _, e := range entitlements {
		switch e.Type {
		case models.EntitlementAllCourses:
			return true
		case models.EntitlementCourse:
			if courseID != "" && e.CourseID == courseID {
				return true
			}
		}
	}
	return false
}

// dripUnlock resolves the drip gate for a lesson the caller otherwise has
// access to. The unlock time is the later of the absolute publish date and
// the relative offset from the earliest qualifying grant.
func dripUnlock(lesson models.Lesson, entitlements []models.Entitlement, now time.Time) (time.Time, bool) {
	var unlockAt time.Time

	if lesson.DripPublishAt != nil && lesson.DripPublishAt.After(now) {
		unlockAt = *lesson.DripPublishAt
	}

	if lesson.DripDaysAfterStart != nil && *lesson.DripDaysAfterStart > 0 {
		if enrolledAt, ok := enrollmentDate(entitlements, lesson.CourseID); ok {
			relative := enrolledAt.AddDate(0, 0, *lesson.DripDaysAfterStart)
			if relative.After(now) && relative.After(unlockAt) {
				unlockAt = relative
			}
		}
	}

	if unlockAt.IsZero() {
		return time.Time{}, false
	}
	return unlockAt, true
}

// enrollmentDate is the earliest grant date among qualifying entitlements.
// The minimum matters: re-purchasing must not re-arm the drip schedule.
func enrollmentDate(entitlements []models.Entitlement, courseID string) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, e := range entitlements {
		qualifies := e.Type == models.EntitlementAllCourses ||
			(e.Type == models.EntitlementCourse && courseID != "" && e.CourseID == courseID)
		if !qualifies {
			continue
		}
		granted := e.GrantedAt()
		if !found || granted.Before(earliest) {
			earliest = granted
			found = true
		}
	}
	return earliest, found
}
