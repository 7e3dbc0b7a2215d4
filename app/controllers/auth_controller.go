package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/security"
	"github.com/ManuelReschke/StudyOn/internal/pkg/session"
	"github.com/ManuelReschke/StudyOn/internal/pkg/usercontext"
	"github.com/ManuelReschke/StudyOn/internal/pkg/validation"
	"github.com/ManuelReschke/StudyOn/internal/pkg/viewmodel"
)

type AuthController struct {
	Auth LoginService
}

func NewAuthController(auth LoginService) *AuthController {
	return &AuthController{Auth: auth}
}

type registerInput struct {
	Email          string `form:"email" validate:"required,email,max=255"`
	Password       string `form:"password" validate:"required,min=6,max=4096"`
	PasswordRepeat string `form:"password_repeat" validate:"required,eqfield=Password"`
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return render(c, fiber.StatusOK, "auth/login", newLayout(c, "Log in"), fiber.Map{
			"LastUsername": session.GetSessionValue(c, usercontext.KeyLastUsername),
		})
	}

	email := strings.TrimSpace(c.FormValue("email"))
	if err := session.SetSessionValue(c, usercontext.KeyLastUsername, email); err != nil {
		fiberlog.Warnf("[Auth] remember last username: %v", err)
	}

	id, err := ac.Auth.Login(requestContext(c), email, c.FormValue("password"))
	if err != nil {
		if billing.KindOf(err) != billing.KindAuthenticationFailed {
			fiberlog.Errorf("[Auth] login failed: %v", err)
		}
		return flashRedirect(c, "error", security.LoginMessage(err), "/login")
	}
	return ac.startSession(c, id)
}

func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return ac.renderRegister(c, fiber.StatusOK, viewmodel.RegisterForm{}, nil, "")
	}

	in := registerInput{
		Email:          strings.TrimSpace(c.FormValue("email")),
		Password:       c.FormValue("password"),
		PasswordRepeat: c.FormValue("password_repeat"),
	}
	form := viewmodel.RegisterForm{Email: in.Email}
	if errs := validation.Struct(in); errs != nil {
		return ac.renderRegister(c, fiber.StatusUnprocessableEntity, form, errs, "")
	}

	id, err := ac.Auth.Register(requestContext(c), in.Email, in.Password)
	if err != nil {
		errs := map[string]string{}
		for field, msg := range billing.FieldErrors(err) {
			switch field {
			case "username", "":
				field = "email"
			}
			errs[field] = msg
		}
		general := security.RegisterMessage(err)
		if general == security.MsgServiceUnavailable {
			fiberlog.Errorf("[Auth] register failed: %v", err)
		}
		return ac.renderRegister(c, fiber.StatusUnprocessableEntity, form, errs, general)
	}
	fiberlog.Infof("[Auth] registered %s", id.Email)
	return ac.startSession(c, id)
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Logout(c); err != nil {
		fiberlog.Errorf("[Auth] logout: %v", err)
	}
	return c.Redirect("/courses/", fiber.StatusSeeOther)
}

// startSession stores the identity and resumes the page that required a login.
func (ac *AuthController) startSession(c *fiber.Ctx, id *security.Identity) error {
	target := session.PopSessionValue(c, usercontext.KeyTargetPath)
	if err := session.Login(c, id); err != nil {
		fiberlog.Errorf("[Auth] store session: %v", err)
		return flashRedirect(c, "error", security.MsgServiceUnavailable, "/login")
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		target = "/courses/"
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

func (ac *AuthController) renderRegister(c *fiber.Ctx, status int, form viewmodel.RegisterForm, errs map[string]string, general string) error {
	if errs == nil {
		errs = map[string]string{}
	}
	return render(c, status, "auth/register", newLayout(c, "Register"), fiber.Map{
		"Form":   form,
		"Errors": errs,
		"Error":  general,
	})
}
