package viewmodel

import "github.com/gofiber/fiber/v2"

type Layout struct {
	Page       string
	IsLoggedIn bool
	IsAdmin    bool
	Email      string
	CSRF       string
	Msg        fiber.Map
	// Warning is shown when billing data could not be loaded.
	Warning string
}

// CourseTypeOption is one entry of the course type select.
type CourseTypeOption struct {
	Value string
	Label string
}

// CourseForm holds the raw course form values for re-rendering.
type CourseForm struct {
	Code        string
	Name        string
	Description string
	Type        string
	Price       string
}

type LessonForm struct {
	Name         string
	Content      string
	SerialNumber string
}

type RegisterForm struct {
	Email string
}

// TransactionRow is a formatted transaction for the profile page.
type TransactionRow struct {
	CreatedAt  string
	Type       string
	CourseCode string
	CourseURL  string
	Amount     string
	ExpiresAt  string
}
