package backend

import "strconv"

// User is the body of GET /auth/users/me.
// The backend has shipped three different verification flags over time;
// any of them being true counts as verified.
type User struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	IsActive      *bool  `json:"is_active,omitempty"`
	Verified      *bool  `json:"verified,omitempty"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
}

// IsVerified reports whether any of the legacy verification flags is set.
func (u User) IsVerified() bool {
	return isTrue(u.IsActive) || isTrue(u.Verified) || isTrue(u.EmailVerified)
}

func isTrue(b *bool) bool { return b != nil && *b }

// RegisterResult is the body of POST /auth/register.
type RegisterResult struct {
	VerifyTokenDevOnly string `json:"verify_token_dev_only,omitempty"`
}

// VerifyResult is the body of GET /auth/verify-email.
type VerifyResult struct {
	Email string `json:"email,omitempty"`
}

// Bike is a bike as returned by /bikes and /sheds/{id}/bikes.
type Bike struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Brand        string `json:"brand"`
	ModelYear    *int   `json:"model_year,omitempty"`
	HeroMediaID  string `json:"hero_media_id,omitempty"`
	HeroURL      string `json:"hero_url,omitempty"`
	HeroThumbURL string `json:"hero_thumb_url,omitempty"`
}

func (b Bike) EntityID() string { return b.ID }

// YearString is the model year as shown and filtered on, empty when unknown.
func (b Bike) YearString() string {
	if b.ModelYear == nil {
		return ""
	}
	return strconv.Itoa(*b.ModelYear)
}

// BikeInput is the body of POST /bikes.
type BikeInput struct {
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	ModelYear *int   `json:"model_year,omitempty"`
}

// Visibility of a shed.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// Valid reports whether v is one of the known visibility levels.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityUnlisted, VisibilityPublic:
		return true
	}
	return false
}

// Shed is a user-owned collection of bikes.
type Shed struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Visibility  Visibility `json:"visibility"`
}

func (s Shed) EntityID() string { return s.ID }

// ShedInput is the body of POST /sheds.
type ShedInput struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Visibility  Visibility `json:"visibility"`
}

// Media is an image to upload as multipart field "file".
type Media struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult is the body of POST /bikes/{id}/media/hero.
type UploadResult struct {
	Warning string `json:"warning,omitempty"`
}

// KinematicsStep is one solver step.
type KinematicsStep struct {
	StepIndex     int     `json:"step_index"`
	ShockStroke   float64 `json:"shock_stroke"`
	RearTravel    float64 `json:"rear_travel"`
	LeverageRatio float64 `json:"leverage_ratio"`
}

// Kinematics is the body of GET /bikes/{id}/kinematics.
type Kinematics struct {
	Steps           []KinematicsStep `json:"steps"`
	RearAxlePointID *string          `json:"rear_axle_point_id"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

type errorBody struct {
	Detail any `json:"detail"`
}
