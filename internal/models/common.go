package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Entity type names as stored in the entity store. Tenancy classification for
// each lives in the tenancy package rule table.
const (
	EntitySchool           = "School"
	EntityUser             = "User"
	EntityUserPreference   = "UserPreference"
	EntityMembership       = "Membership"
	EntityProtectionPolicy = "ContentProtectionPolicy"
	EntityCourse           = "Course"
	EntityLesson           = "Lesson"
	EntityQuiz             = "Quiz"
	EntityQuizQuestion     = "QuizQuestion"
	EntityEntitlement      = "Entitlement"
	EntityOffer            = "Offer"
	EntityOfferCourse      = "OfferCourse"
	EntityCoupon           = "Coupon"
	EntityCouponRedemption = "CouponRedemption"
	EntityTransaction      = "Transaction"
	EntityAuditLog         = "AuditLog"
)
