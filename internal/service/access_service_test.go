package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func paidCourse() models.Course {
	return models.Course{ID: "c1", SchoolID: "s1", AccessTier: "PAID"}
}

func courseGrant(courseID string, granted time.Time) models.Entitlement {
	return models.Entitlement{
		Type:        models.EntitlementCourse,
		CourseID:    courseID,
		Status:      models.EntitlementActive,
		CreatedDate: granted,
	}
}

func TestDecideLessonStaffBypassesEverything(t *testing.T) {
	svc := NewAccessService(nil)
	locked := models.Lesson{ID: "l1", CourseID: "c1"}

	d := svc.DecideLesson(locked, paidCourse(), models.DefaultProtectionPolicy("s1"), true, nil, testNow)
	assert.Equal(t, models.AccessFull, d.Level)
	assert.True(t, d.HasCourseAccess)
	assert.Nil(t, d.UnlockAt)
}

func TestDecideLessonFreeCourse(t *testing.T) {
	svc := NewAccessService(nil)
	course := models.Course{ID: "c1", AccessTier: "free"}

	d := svc.DecideLesson(models.Lesson{CourseID: "c1"}, course, models.DefaultProtectionPolicy("s1"), false, nil, testNow)
	assert.Equal(t, models.AccessFull, d.Level)
	assert.True(t, d.HasCourseAccess)
}

func TestDecideLessonEntitlement(t *testing.T) {
	svc := NewAccessService(nil)
	grants := []models.Entitlement{courseGrant("c1", testNow.AddDate(0, -1, 0))}

	d := svc.DecideLesson(models.Lesson{CourseID: "c1"}, paidCourse(), models.DefaultProtectionPolicy("s1"), false, grants, testNow)
	assert.Equal(t, models.AccessFull, d.Level)

	// ALL_COURSES unlocks any course.
	all := []models.Entitlement{{Type: models.EntitlementAllCourses}}
	d = svc.DecideLesson(models.Lesson{CourseID: "c1"}, paidCourse(), models.DefaultProtectionPolicy("s1"), false, all, testNow)
	assert.Equal(t, models.AccessFull, d.Level)

	// A grant for another course does not.
	other := []models.Entitlement{courseGrant("c2", testNow)}
	d = svc.DecideLesson(models.Lesson{CourseID: "c1"}, paidCourse(), models.DefaultProtectionPolicy("s1"), false, other, testNow)
	assert.Equal(t, models.AccessLocked, d.Level)
}

func TestDecideLessonPreview(t *testing.T) {
	svc := NewAccessService(nil)
	lesson := models.Lesson{CourseID: "c1", IsPreview: true}

	d := svc.DecideLesson(lesson, paidCourse(), models.DefaultProtectionPolicy("s1"), false, nil, testNow)
	assert.Equal(t, models.AccessPreview, d.Level)
	assert.False(t, d.HasCourseAccess)

	// Policy can switch previews off entirely.
	noPreviews := models.DefaultProtectionPolicy("s1")
	noPreviews.AllowPreviews = false
	d = svc.DecideLesson(lesson, paidCourse(), noPreviews, false, nil, testNow)
	assert.Equal(t, models.AccessLocked, d.Level)
}

func TestDecideLessonDripAbsoluteDate(t *testing.T) {
	svc := NewAccessService(nil)
	publish := testNow.AddDate(0, 0, 3)
	lesson := models.Lesson{CourseID: "c1", DripPublishAt: &publish}
	grants := []models.Entitlement{courseGrant("c1", testNow.AddDate(0, -1, 0))}

	d := svc.DecideLesson(lesson, paidCourse(), models.DefaultProtectionPolicy("s1"), false, grants, testNow)
	assert.Equal(t, models.AccessDripLocked, d.Level)
	assert.True(t, d.HasCourseAccess, "drip-locked callers still own the course")
	require.NotNil(t, d.UnlockAt)
	assert.Equal(t, publish, *d.UnlockAt)

	// Past publish dates do not lock.
	past := testNow.AddDate(0, 0, -1)
	lesson.DripPublishAt = &past
	d = svc.DecideLesson(lesson, paidCourse(), models.DefaultProtectionPolicy("s1"), false, grants, testNow)
	assert.Equal(t, models.AccessFull, d.Level)
}

func TestDecideLessonDripRelativeToEnrollment(t *testing.T) {
	svc := NewAccessService(nil)
	days := 10
	lesson := models.Lesson{CourseID: "c1", DripDaysAfterStart: &days}
	enrolled := testNow.AddDate(0, 0, -4)
	grants := []models.Entitlement{courseGrant("c1", enrolled)}

	d := svc.DecideLesson(lesson, paidCourse(), models.DefaultProtectionPolicy("s1"), false, grants, testNow)
	assert.Equal(t, models.AccessDripLocked, d.Level)
	require.NotNil(t, d.UnlockAt)
	assert.Equal(t, enrolled.AddDate(0, 0, days), *d.UnlockAt)
}

func TestDecideLessonDripLaterOfBothGates(t *testing.T) {
	svc := NewAccessService(nil)
	publish := testNow.AddDate(0, 0, 2)
	days := 10
	lesson := models.Lesson{CourseID: "c1", DripPublishAt: &publish, DripDaysAfterStart: &days}
	enrolled := testNow.AddDate(0, 0, -3)
	grants := []models.Entitlement{courseGrant("c1", enrolled)}

	d := svc.DecideLesson(lesson, paidCourse(), models.DefaultProtectionPolicy("s1"), false, grants, testNow)
	assert.Equal(t, models.AccessDripLocked, d.Level)
	require.NotNil(t, d.UnlockAt)
	assert.Equal(t, enrolled.AddDate(0, 0, days), *d.UnlockAt, "relative gate is later and wins")
}

func TestDecideLessonDripRepurchaseDoesNotRearm(t *testing.T) {
	svc := NewAccessService(nil)
	days := 5
	lesson := models.Lesson{CourseID: "c1", DripDaysAfterStart: &days}
	grants := []models.Entitlement{
		courseGrant("c1", testNow.AddDate(0, 0, -1)), // re-purchase yesterday
		courseGrant("c1", testNow.AddDate(0, -2, 0)), // original enrollment
	}

	// The earliest grant governs drip, so the schedule already elapsed.
	d := svc.DecideLesson(lesson, paidCourse(), models.DefaultProtectionPolicy("s1"), false, grants, testNow)
	assert.Equal(t, models.AccessFull, d.Level)
}

func TestDecideQuizStandaloneNeverFull(t *testing.T) {
	svc := NewAccessService(nil)
	quiz := models.Quiz{ID: "q1", PreviewLimitQuestions: 2}
	grants := []models.Entitlement{{Type: models.EntitlementAllCourses}}

	// No course to own: even an all-courses grant only gets preview.
	d := svc.DecideQuiz(quiz, models.Course{}, models.DefaultProtectionPolicy("s1"), false, grants, testNow)
	assert.Equal(t, models.AccessPreview, d.Level)

	quiz.PreviewLimitQuestions = 0
	d = svc.DecideQuiz(quiz, models.Course{}, models.DefaultProtectionPolicy("s1"), false, grants, testNow)
	assert.Equal(t, models.AccessLocked, d.Level)
}

func TestGateQuestionsPreviewTakesLowestIndexes(t *testing.T) {
	svc := NewAccessService(nil)
	quiz := models.Quiz{ID: "q1", PreviewLimitQuestions: 2}
	questions := []models.QuizQuestion{
		{ID: "a", QuestionIndex: 4},
		{ID: "b", QuestionIndex: 1},
		{ID: "c", QuestionIndex: 3},
		{ID: "d", QuestionIndex: 0},
		{ID: "e", QuestionIndex: 2},
	}

	gated := svc.GateQuestions(quiz, questions, models.AccessPreview)
	require.Len(t, gated, 2)
	assert.Equal(t, "d", gated[0].ID)
	assert.Equal(t, "b", gated[1].ID)

	assert.Len(t, svc.GateQuestions(quiz, questions, models.AccessFull), 5)
	assert.Empty(t, svc.GateQuestions(quiz, questions, models.AccessLocked))
}

func TestGateQuestionsPreviewStableOnTies(t *testing.T) {
	svc := NewAccessService(nil)
	quiz := models.Quiz{ID: "q1", PreviewLimitQuestions: 3}
	questions := []models.QuizQuestion{
		{ID: "a", QuestionIndex: 1},
		{ID: "b", QuestionIndex: 1},
		{ID: "c", QuestionIndex: 0},
	}

	gated := svc.GateQuestions(quiz, questions, models.AccessPreview)
	require.Len(t, gated, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{gated[0].ID, gated[1].ID, gated[2].ID})
}
