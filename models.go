package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleGeneralPublic is the default role assigned at registration
	RoleGeneralPublic UserRole = "GeneralPublic"
	// RoleStudent is a campus student
	RoleStudent UserRole = "Student"
	// RoleStaff is campus staff
	RoleStaff UserRole = "Staff"
	// RoleAdmin is an administrator
	RoleAdmin UserRole = "Admin"
)

// AccountStatus is the lifecycle status derived from the account flags
type AccountStatus = string

const (
	// StatusPending is the initial status, before OTP verification
	StatusPending AccountStatus = "pending"
	// StatusActive is the status after a successful OTP verification
	StatusActive AccountStatus = "active"
)

// User is the account model. Accounts start inactive and unverified;
// a successful OTP verification sets both flags and nothing ever
// clears them again.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Active         bool       `bun:"is_active" json:"is_active,omitempty"`
	Verified       bool       `bun:"is_verified" json:"is_verified,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Status derives the lifecycle status from the activation flag.
func (u *User) Status() AccountStatus {
	if u != nil && u.Active {
		return StatusActive
	}
	return StatusPending
}

// Summary is the public view of an account. The password hash is
// never part of it.
func (u *User) Summary() *AccountSummary {
	if u == nil {
		return nil
	}
	return &AccountSummary{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Email:    u.Email,
	}
}

// AccountSummary is what login and middleware expose to callers.
type AccountSummary struct {
	ID       uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     UserRole  `json:"role"`
	Email    string    `json:"email"`
}

// OTPChallenge is the one outstanding verification code per account.
// The unique user_id column makes re-issue a replacement, never a
// second live challenge.
type OTPChallenge struct {
	bun.BaseModel `bun:"table:otp_challenges,alias:otp"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	User          *User     `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Code          string    `bun:"otp_code,notnull" json:"-"`
	Used          bool      `bun:"is_used,notnull" json:"is_used,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at,omitempty"`
}

// AccessToken is the durable account → bearer token mapping, one per
// account, created lazily on first login and never rotated.
type AccessToken struct {
	bun.BaseModel `bun:"table:access_tokens,alias:tok"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	Key           string     `bun:"token_key,notnull,unique" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Group is an authorization group derived from a role name.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:grp"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull,unique" json:"name,omitempty"`
}

// GroupMembership links an account to its role group. One row per
// account: membership is a derived view of the role, recomputed by
// GroupSynchronizer rather than written alongside the account.
type GroupMembership struct {
	bun.BaseModel `bun:"table:group_memberships,alias:gm"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	GroupID       uuid.UUID `bun:"group_id,notnull,type:uuid" json:"group_id,omitempty"`
}
