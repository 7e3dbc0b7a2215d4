package controllers

import (
	"context"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/security"
)

// CatalogService is the billing surface used for prices and payments.
type CatalogService interface {
	Courses(ctx context.Context) ([]billing.Course, error)
	Course(ctx context.Context, code string) (*billing.Course, error)
	CreateCourse(ctx context.Context, token string, in billing.CourseInput) error
	EditCourse(ctx context.Context, token, code string, in billing.CourseInput) error
	Pay(ctx context.Context, token, code string) (*billing.PaymentResult, error)
	Transactions(ctx context.Context, token string, filter billing.TransactionFilter) ([]billing.Transaction, error)
}

// AccountService is the billing surface used by the profile page.
type AccountService interface {
	CurrentUser(ctx context.Context, token string) (*billing.CurrentUser, error)
	Transactions(ctx context.Context, token string, filter billing.TransactionFilter) ([]billing.Transaction, error)
}

// LoginService logs users in and registers them against billing.
type LoginService interface {
	Login(ctx context.Context, email, password string) (*security.Identity, error)
	Register(ctx context.Context, email, password string) (*security.Identity, error)
}
