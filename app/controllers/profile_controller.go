package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/StudyOn/app/repository"
	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/pricing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/security"
	"github.com/ManuelReschke/StudyOn/internal/pkg/session"
	"github.com/ManuelReschke/StudyOn/internal/pkg/usercontext"
	"github.com/ManuelReschke/StudyOn/internal/pkg/viewmodel"
)

type ProfileController struct {
	Courses  repository.CourseRepository
	Accounts AccountService
	Location *time.Location
}

func NewProfileController(courses repository.CourseRepository, accounts AccountService) *ProfileController {
	return &ProfileController{Courses: courses, Accounts: accounts, Location: time.Local}
}

func (pc *ProfileController) HandleProfile(c *fiber.Ctx) error {
	ctx := requestContext(c)
	token := usercontext.APIToken(c)

	user, err := pc.Accounts.CurrentUser(ctx, token)
	if err != nil {
		if errors.Is(err, billing.ErrAuthenticationFailed) {
			fiberlog.Warnf("[Auth] billing rejected session token: %v", err)
			if err := session.Logout(c); err != nil {
				fiberlog.Errorf("[Auth] destroy session: %v", err)
			}
			return flashRedirect(c, "error", security.MsgServiceUnavailable, "/login")
		}
		fiberlog.Errorf("[Profile] current user: %v", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, msgBillingFailed)
	}

	layout := newLayout(c, "Profile")
	txs, err := pc.Accounts.Transactions(ctx, token, billing.TransactionFilter{})
	if err != nil {
		fiberlog.Warnf("[Profile] transactions: %v", err)
		layout.Warning = "Transactions are temporarily unavailable."
	}

	roleName := "User"
	if usercontext.IsAdmin(c) {
		roleName = "Administrator"
	}
	return render(c, fiber.StatusOK, "profile/index", layout, fiber.Map{
		"User":         user,
		"RoleName":     roleName,
		"Balance":      pricing.FormatPrice(user.Balance),
		"Transactions": pc.rows(txs),
	})
}

// rows formats transactions and links those of locally known courses.
func (pc *ProfileController) rows(txs []billing.Transaction) []viewmodel.TransactionRow {
	loc := pc.Location
	if loc == nil {
		loc = time.Local
	}

	links := map[string]string{}
	if len(txs) > 0 {
		courses, err := pc.Courses.GetAll()
		if err != nil {
			fiberlog.Warnf("[Profile] load courses: %v", err)
		}
		for _, course := range courses {
			links[course.Code] = fmt.Sprintf("/courses/%d", course.ID)
		}
	}

	rows := make([]viewmodel.TransactionRow, 0, len(txs))
	for _, tx := range txs {
		row := viewmodel.TransactionRow{
			CreatedAt:  tx.CreatedAt.In(loc).Format(pricing.RentedUntilLayout),
			Type:       billing.TransactionTypeName(tx.Type),
			CourseCode: tx.CourseCode,
			CourseURL:  links[tx.CourseCode],
			Amount:     pricing.FormatPrice(tx.Amount),
		}
		if tx.ExpiresAt != nil {
			row.ExpiresAt = tx.ExpiresAt.In(loc).Format(pricing.RentedUntilLayout)
		}
		rows = append(rows, row)
	}
	return rows
}
