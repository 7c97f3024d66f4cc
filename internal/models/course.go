package models

import (
	"strings"
	"time"
)

// Course is a school-scoped container for lessons and quizzes. A course whose
// access tier marks it free or public bypasses entitlement checks entirely.
type Course struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"school_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AccessTier  string    `json:"access_tier"`
	PriceCents  int64     `json:"price_cents"`
	Published   bool      `json:"published"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
}

// IsFree reports whether the course is open to everyone in the school.
func (c Course) IsFree() bool {
	switch strings.ToUpper(strings.TrimSpace(c.AccessTier)) {
	case "FREE", "PUBLIC":
		return true
	}
	return false
}

// Lesson is school-scoped learning content. Drip settings delay visibility
// past enrollment by an absolute date or a relative day offset.
type Lesson struct {
	ID                 string     `json:"id"`
	SchoolID           string     `json:"school_id"`
	CourseID           string     `json:"course_id"`
	Title              string     `json:"title"`
	SortOrder          int        `json:"sort_order"`
	IsPreview          bool       `json:"is_preview"`
	Content            string     `json:"content"`
	ContentJSON        string     `json:"content_json"`
	VideoURL           string     `json:"video_url"`
	AudioURL           string     `json:"audio_url"`
	DripPublishAt      *time.Time `json:"drip_publish_at"`
	DripDaysAfterStart *int       `json:"drip_days_after_enroll"`
	CreatedDate        time.Time  `json:"created_date"`
	UpdatedDate        time.Time  `json:"updated_date"`
}

// Quiz is school-scoped and optionally belongs to a course. A positive
// PreviewLimitQuestions makes the first N questions visible without access.
type Quiz struct {
	ID                    string    `json:"id"`
	SchoolID              string    `json:"school_id"`
	CourseID              string    `json:"course_id"`
	Title                 string    `json:"title"`
	PreviewLimitQuestions int       `json:"preview_limit_questions"`
	CreatedDate           time.Time `json:"created_date"`
	UpdatedDate           time.Time `json:"updated_date"`
}

// QuizQuestion belongs to a quiz; QuestionIndex orders questions for preview
// gating.
type QuizQuestion struct {
	ID            string    `json:"id"`
	SchoolID      string    `json:"school_id"`
	QuizID        string    `json:"quiz_id"`
	QuestionIndex int       `json:"question_index"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	AnswerIndex   int       `json:"answer_index"`
	CreatedDate   time.Time `json:"created_date"`
	UpdatedDate   time.Time `json:"updated_date"`
}
