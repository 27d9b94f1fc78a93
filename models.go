package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleStudent is assigned to every registered user
	RoleStudent UserRole = "student"
	// RoleAdmin is assigned out of band
	RoleAdmin UserRole = "admin"
)

// UserProfile holds personal details
type UserProfile struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Phone          string `json:"phone,omitempty"`
	Bio            string `json:"bio,omitempty"`
	Location       string `json:"location,omitempty"`
	University     string `json:"university,omitempty"`
	Major          string `json:"major,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty"`
	LinkedinURL    string `json:"linkedin_url,omitempty"`
	GithubURL      string `json:"github_url,omitempty"`
	PortfolioURL   string `json:"portfolio_url,omitempty"`
}

// UserSkills lists declared skills
type UserSkills struct {
	TechnicalSkills []string `json:"technical_skills"`
	SoftSkills      []string `json:"soft_skills"`
	Languages       []string `json:"languages"`
	Certifications  []string `json:"certifications"`
}

// UserGoals captures career targets
type UserGoals struct {
	TargetRoles        []string `json:"target_roles"`
	TargetCompanies    []string `json:"target_companies"`
	CareerLevel        string   `json:"career_level,omitempty"`
	PreferredLocations []string `json:"preferred_locations"`
	SalaryExpectation  string   `json:"salary_expectation,omitempty"`
}

// UserProgress holds counters maintained by the rest of the platform
type UserProgress struct {
	TotalQuizzesTaken        int      `json:"total_quizzes_taken"`
	TotalChallengesCompleted int      `json:"total_challenges_completed"`
	TotalInterviewsCompleted int      `json:"total_interviews_completed"`
	BadgesEarned             []string `json:"badges_earned"`
	TotalPoints              int      `json:"total_points"`
	Level                    int      `json:"level"`
}

// NewUserProgress returns zeroed counters at level 1
func NewUserProgress() UserProgress {
	return UserProgress{
		BadgesEarned: []string{},
		Level:        1,
	}
}

// User is the credential record
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	Email         string       `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string       `bun:"password_hash,notnull" json:"-"`
	Role          UserRole     `bun:"user_role,notnull" json:"role"`
	IsActive      bool         `bun:"is_active,notnull" json:"is_active"`
	IsVerified    bool         `bun:"is_verified,notnull" json:"is_verified"`
	Profile       UserProfile  `bun:"profile,type:json" json:"profile"`
	Skills        UserSkills   `bun:"skills,type:json" json:"skills"`
	Goals         UserGoals    `bun:"goals,type:json" json:"goals"`
	Progress      UserProgress `bun:"progress,type:json" json:"progress"`
	LastLogin     *time.Time   `bun:"last_login,nullzero" json:"last_login,omitempty"`
	CreatedAt     time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time    `bun:"updated_at,notnull" json:"updated_at"`
	DeletedAt     time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// CanAuthenticate reports whether the record may log in or back a request
func (u *User) CanAuthenticate() bool {
	return u != nil && u.IsActive && u.DeletedAt.IsZero()
}

// Clone returns a deep enough copy for in-memory stores
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Skills = UserSkills{
		TechnicalSkills: cloneStrings(u.Skills.TechnicalSkills),
		SoftSkills:      cloneStrings(u.Skills.SoftSkills),
		Languages:       cloneStrings(u.Skills.Languages),
		Certifications:  cloneStrings(u.Skills.Certifications),
	}
	c.Goals.TargetRoles = cloneStrings(u.Goals.TargetRoles)
	c.Goals.TargetCompanies = cloneStrings(u.Goals.TargetCompanies)
	c.Goals.PreferredLocations = cloneStrings(u.Goals.PreferredLocations)
	c.Progress.BadgesEarned = cloneStrings(u.Progress.BadgesEarned)
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// UserPatch is a partial update, nil fields are left untouched
type UserPatch struct {
	LastLogin  *time.Time
	IsActive   *bool
	IsVerified *bool
	Role       *UserRole
	Profile    *UserProfile
	Skills     *UserSkills
	Goals      *UserGoals
}

// IsEmpty reports a patch without changes
func (p UserPatch) IsEmpty() bool {
	return p.LastLogin == nil && p.IsActive == nil && p.IsVerified == nil &&
		p.Role == nil && p.Profile == nil && p.Skills == nil && p.Goals == nil
}

// Apply copies the set fields onto user and bumps UpdatedAt
func (p UserPatch) Apply(user *User, now time.Time) {
	if user == nil {
		return
	}
	if p.LastLogin != nil {
		t := *p.LastLogin
		user.LastLogin = &t
	}
	if p.IsActive != nil {
		user.IsActive = *p.IsActive
	}
	if p.IsVerified != nil {
		user.IsVerified = *p.IsVerified
	}
	if p.Role != nil {
		user.Role = *p.Role
	}
	if p.Profile != nil {
		user.Profile = *p.Profile
	}
	if p.Skills != nil {
		user.Skills = *p.Skills
	}
	if p.Goals != nil {
		user.Goals = *p.Goals
	}
	user.UpdatedAt = now
}

// Columns lists the columns touched by the patch, updated_at included
func (p UserPatch) Columns() []string {
	cols := make([]string, 0, 8)
	if p.LastLogin != nil {
		cols = append(cols, "last_login")
	}
	if p.IsActive != nil {
		cols = append(cols, "is_active")
	}
	if p.IsVerified != nil {
		cols = append(cols, "is_verified")
	}
	if p.Role != nil {
		cols = append(cols, "user_role")
	}
	if p.Profile != nil {
		cols = append(cols, "profile")
	}
	if p.Skills != nil {
		cols = append(cols, "skills")
	}
	if p.Goals != nil {
		cols = append(cols, "goals")
	}
	return append(cols, "updated_at")
}

// UserResponse is the public projection of a User, the digest is never part
// of it.
type UserResponse struct {
	ID         string       `json:"id"`
	Email      string       `json:"email"`
	Role       UserRole     `json:"role"`
	IsActive   bool         `json:"is_active"`
	IsVerified bool         `json:"is_verified"`
	Profile    UserProfile  `json:"profile"`
	Skills     UserSkills   `json:"skills"`
	Goals      UserGoals    `json:"goals"`
	Progress   UserProgress `json:"progress"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	LastLogin  *time.Time   `json:"last_login,omitempty"`
}

// ToResponse builds the public projection
func (u *User) ToResponse() *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		Profile:    u.Profile,
		Skills:     u.Skills,
		Goals:      u.Goals,
		Progress:   u.Progress,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
		LastLogin:  u.LastLogin,
	}
}

// NormalizeIdentity trims and lower-cases an email
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
