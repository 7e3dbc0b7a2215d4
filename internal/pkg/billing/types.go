package billing

import (
	"encoding/json"
	"strings"
	"time"
)

// CourseType is how a course is sold by the billing service.
type CourseType string

const (
	CourseTypeFree CourseType = "free"
	CourseTypeRent CourseType = "rent"
	CourseTypeBuy  CourseType = "buy"
)

// Code returns the numeric code used by the billing service forms.
func (t CourseType) Code() int {
	switch t {
	case CourseTypeRent:
		return 1
	case CourseTypeBuy:
		return 2
	default:
		return 0
	}
}

func (t CourseType) Valid() bool {
	switch t {
	case CourseTypeFree, CourseTypeRent, CourseTypeBuy:
		return true
	}
	return false
}

// CourseTypeFromCode is the inverse of Code. Unknown codes yield false.
func CourseTypeFromCode(code int) (CourseType, bool) {
	switch code {
	case 0:
		return CourseTypeFree, true
	case 1:
		return CourseTypeRent, true
	case 2:
		return CourseTypeBuy, true
	}
	return "", false
}

// ParseCourseType accepts a type name or its numeric code.
func ParseCourseType(s string) (CourseType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "0":
		return CourseTypeFree, true
	case "1":
		return CourseTypeRent, true
	case "2":
		return CourseTypeBuy, true
	}
	t := CourseType(s)
	return t, t.Valid()
}

// Course is the billing service's view of a course.
type Course struct {
	Code  string     `json:"code"`
	Type  CourseType `json:"type"`
	Price *float64   `json:"price,omitempty"`
	Title string     `json:"title,omitempty"`
}

// PriceValue returns the price or 0 for free courses.
func (c Course) PriceValue() float64 {
	if c.Price == nil {
		return 0
	}
	return *c.Price
}

// CourseInput is the body of course create and edit requests.
type CourseInput struct {
	Code  string     `json:"code"`
	Title string     `json:"title"`
	Type  CourseType `json:"type"`
	Price float64    `json:"price"`
}

const (
	TransactionPayment = "payment"
	TransactionDeposit = "deposit"
)

type Transaction struct {
	ID         int64      `json:"id"`
	Type       string     `json:"type"`
	CourseCode string     `json:"code,omitempty"`
	Amount     float64    `json:"amount"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// UnmarshalJSON accepts both created/created_at and expires/expires_at.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         int64      `json:"id"`
		Type       string     `json:"type"`
		Code       string     `json:"code"`
		CourseCode string     `json:"course_code"`
		Amount     float64    `json:"amount"`
		CreatedAt  *time.Time `json:"created_at"`
		Created    *time.Time `json:"created"`
		ExpiresAt  *time.Time `json:"expires_at"`
		Expires    *time.Time `json:"expires"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Transaction{ID: raw.ID, Type: raw.Type, CourseCode: raw.Code, Amount: raw.Amount}
	if t.CourseCode == "" {
		t.CourseCode = raw.CourseCode
	}
	switch {
	case raw.CreatedAt != nil:
		t.CreatedAt = *raw.CreatedAt
	case raw.Created != nil:
		t.CreatedAt = *raw.Created
	}
	switch {
	case raw.ExpiresAt != nil:
		t.ExpiresAt = raw.ExpiresAt
	case raw.Expires != nil:
		t.ExpiresAt = raw.Expires
	}
	return nil
}

func (t Transaction) IsPayment() bool { return t.Type == TransactionPayment }

// TransactionFilter narrows the transactions listing. Zero values are omitted.
type TransactionFilter struct {
	Type        string
	CourseCode  string
	SkipExpired bool
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Tokens struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type CurrentUser struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Balance  float64  `json:"balance"`
}

type PaymentResult struct {
	Success    bool       `json:"success"`
	CourseType CourseType `json:"course_type"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}
