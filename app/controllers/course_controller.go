package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/StudyOn/app/models"
	"github.com/ManuelReschke/StudyOn/app/repository"
	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/pricing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/usercontext"
	"github.com/ManuelReschke/StudyOn/internal/pkg/validation"
	"github.com/ManuelReschke/StudyOn/internal/pkg/viewmodel"
)

// CourseController serves the catalog and the admin course forms.
type CourseController struct {
	Courses repository.CourseRepository
	Billing CatalogService
	Now     func() time.Time
}

func NewCourseController(courses repository.CourseRepository, catalog CatalogService) *CourseController {
	return &CourseController{Courses: courses, Billing: catalog, Now: time.Now}
}

var courseTypeOptions = []viewmodel.CourseTypeOption{
	{Value: string(billing.CourseTypeFree), Label: billing.CourseTypeName(billing.CourseTypeFree)},
	{Value: string(billing.CourseTypeRent), Label: billing.CourseTypeName(billing.CourseTypeRent)},
	{Value: string(billing.CourseTypeBuy), Label: billing.CourseTypeName(billing.CourseTypeBuy)},
}

// Catalog returns every local course reconciled with billing. The second
// value is false when billing prices could not be loaded.
func (cc *CourseController) Catalog(c *fiber.Ctx) ([]pricing.CourseView, bool, error) {
	courses, err := cc.Courses.GetAll()
	if err != nil {
		return nil, false, err
	}

	ctx := requestContext(c)
	available := true
	remote, err := cc.Billing.Courses(ctx)
	if err != nil {
		fiberlog.Warnf("[Course] billing courses unavailable: %v", err)
		available = false
	}

	in := pricing.Input{Courses: courses, Remote: remote, Now: cc.Now()}
	if token := usercontext.APIToken(c); token != "" && available {
		txs, err := cc.Billing.Transactions(ctx, token, billing.TransactionFilter{Type: billing.TransactionPayment})
		if err != nil {
			fiberlog.Warnf("[Course] transactions unavailable: %v", err)
			available = false
		} else {
			in.Transactions = txs
			in.Authenticated = true
		}
	}
	return pricing.Reconcile(in), available, nil
}

func (cc *CourseController) HandleIndex(c *fiber.Ctx) error {
	views, available, err := cc.Catalog(c)
	if err != nil {
		return err
	}
	layout := newLayout(c, "Courses")
	if !available {
		layout.Warning = msgPricesUnavailable
	}
	return render(c, fiber.StatusOK, "courses/index", layout, fiber.Map{"Courses": views})
}

func (cc *CourseController) HandleShow(c *fiber.Ctx) error {
	course, err := cc.courseFromParam(c)
	if err != nil {
		return err
	}

	ctx := requestContext(c)
	layout := newLayout(c, course.Name)

	var remote *billing.Course
	remote, err = cc.Billing.Course(ctx, course.Code)
	if err != nil {
		remote = nil
		if !errors.Is(err, billing.ErrCourseNotFound) {
			fiberlog.Warnf("[Course] billing course %s unavailable: %v", course.Code, err)
			layout.Warning = msgPricesUnavailable
		}
	}

	var txs []billing.Transaction
	token := usercontext.APIToken(c)
	if token != "" && remote != nil && remote.Type != billing.CourseTypeFree {
		txs, err = cc.Billing.Transactions(ctx, token, billing.TransactionFilter{Type: billing.TransactionPayment, CourseCode: course.Code})
		if err != nil {
			fiberlog.Warnf("[Course] transactions unavailable: %v", err)
			layout.Warning = msgPricesUnavailable
			txs = nil
		}
	}

	view := pricing.ReconcileOne(*course, remote, txs, token != "", cc.Now())
	return render(c, fiber.StatusOK, "courses/show", layout, fiber.Map{
		"Course":  view,
		"Lessons": course.Lessons,
	})
}

func (cc *CourseController) HandleNew(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return cc.renderForm(c, fiber.StatusOK, "New course", "/courses/new", "/courses/",
			viewmodel.CourseForm{Type: string(billing.CourseTypeFree)}, nil, "")
	}

	form, course, input, errs := parseCourseForm(c)
	if len(errs) == 0 {
		exists, err := cc.Courses.CodeExists(course.Code)
		if err != nil {
			return err
		}
		if exists {
			errs = map[string]string{"code": msgCodeExists}
		}
	}
	if len(errs) > 0 {
		return cc.renderForm(c, fiber.StatusUnprocessableEntity, "New course", "/courses/new", "/courses/", form, errs, "")
	}

	if err := cc.Billing.CreateCourse(requestContext(c), usercontext.APIToken(c), input); err != nil {
		errs, general := billingFormErrors(err)
		return cc.renderForm(c, fiber.StatusUnprocessableEntity, "New course", "/courses/new", "/courses/", form, errs, general)
	}

	if err := cc.Courses.Create(&course); err != nil {
		fiberlog.Errorf("[Course] %s created in billing but not stored: %v", course.Code, err)
		return err
	}
	fiberlog.Infof("[Course] created %s (id %d)", course.Code, course.ID)
	return flashRedirect(c, "success", "Course created.", fmt.Sprintf("/courses/%d", course.ID))
}

func (cc *CourseController) HandleEdit(c *fiber.Ctx) error {
	course, err := cc.courseFromParam(c)
	if err != nil {
		return err
	}
	action := fmt.Sprintf("/courses/%d/edit", course.ID)
	back := fmt.Sprintf("/courses/%d", course.ID)
	title := "Edit " + course.Name

	if c.Method() != fiber.MethodPost {
		form := viewmodel.CourseForm{
			Code:        course.Code,
			Name:        course.Name,
			Description: course.Description,
			Type:        string(billing.CourseTypeFree),
		}
		general := ""
		remote, err := cc.Billing.Course(requestContext(c), course.Code)
		switch {
		case err == nil:
			form.Type = string(remote.Type)
			if remote.Type != billing.CourseTypeFree {
				form.Price = pricing.FormatPrice(remote.PriceValue())
			}
		case errors.Is(err, billing.ErrCourseNotFound):
		default:
			fiberlog.Warnf("[Course] billing course %s unavailable: %v", course.Code, err)
			general = msgPricesUnavailable
		}
		return cc.renderForm(c, fiber.StatusOK, title, action, back, form, nil, general)
	}

	form, updated, input, errs := parseCourseForm(c)
	if len(errs) == 0 {
		taken, err := cc.Courses.CodeExistsExceptID(updated.Code, course.ID)
		if err != nil {
			return err
		}
		if taken {
			errs = map[string]string{"code": msgCodeExists}
		}
	}
	if len(errs) > 0 {
		return cc.renderForm(c, fiber.StatusUnprocessableEntity, title, action, back, form, errs, "")
	}

	ctx := requestContext(c)
	token := usercontext.APIToken(c)
	err = cc.Billing.EditCourse(ctx, token, course.Code, input)
	if errors.Is(err, billing.ErrCourseNotFound) {
		// Courses created before billing knew them get registered on first edit.
		err = cc.Billing.CreateCourse(ctx, token, input)
	}
	if err != nil {
		errs, general := billingFormErrors(err)
		return cc.renderForm(c, fiber.StatusUnprocessableEntity, title, action, back, form, errs, general)
	}

	course.Code = updated.Code
	course.Name = updated.Name
	course.Description = updated.Description
	if err := cc.Courses.Update(course); err != nil {
		return err
	}
	fiberlog.Infof("[Course] updated %s (id %d)", course.Code, course.ID)
	return flashRedirect(c, "success", "Course saved.", back)
}

func (cc *CourseController) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	removed, err := cc.Courses.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}
	fiberlog.Infof("[Course] deleted course %d with %d lessons", id, removed)
	return flashRedirect(c, "success", fmt.Sprintf("Course deleted together with %d lessons.", removed), "/courses/")
}

func (cc *CourseController) HandlePay(c *fiber.Ctx) error {
	course, err := cc.courseFromParam(c)
	if err != nil {
		return err
	}

	_, err = cc.Billing.Pay(requestContext(c), usercontext.APIToken(c), course.Code)
	status := billing.PaymentStatusFromError(err)
	if err != nil && status == billing.PaymentFail {
		fiberlog.Warnf("[Course] payment for %s failed: %v", course.Code, err)
	} else if err == nil {
		fiberlog.Infof("[Course] %s paid for %s", usercontext.GetUserContext(c).Email, course.Code)
	}
	return flashRedirect(c, status.FlashType(), status.Message(), fmt.Sprintf("/courses/%d", course.ID))
}

func (cc *CourseController) courseFromParam(c *fiber.Ctx) (*models.Course, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	course, err := cc.Courses.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.ErrNotFound
	}
	return course, err
}

func (cc *CourseController) renderForm(c *fiber.Ctx, status int, title, action, back string, form viewmodel.CourseForm, errs map[string]string, general string) error {
	if errs == nil {
		errs = map[string]string{}
	}
	return render(c, status, "courses/form", newLayout(c, title), fiber.Map{
		"Action":      action,
		"Back":        back,
		"Form":        form,
		"Errors":      errs,
		"Error":       general,
		"CourseTypes": courseTypeOptions,
	})
}

func parseCourseForm(c *fiber.Ctx) (viewmodel.CourseForm, models.Course, billing.CourseInput, map[string]string) {
	form := viewmodel.CourseForm{
		Code:        strings.TrimSpace(c.FormValue("code")),
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Type:        strings.TrimSpace(c.FormValue("type")),
		Price:       strings.TrimSpace(c.FormValue("price")),
	}
	course := models.Course{Code: form.Code, Name: form.Name, Description: form.Description}
	errs := validation.Struct(course)
	if errs == nil {
		errs = map[string]string{}
	}

	courseType, ok := billing.ParseCourseType(form.Type)
	if !ok {
		errs["type"] = "Choose a valid course type."
	}

	var price float64
	if form.Price != "" {
		p, err := strconv.ParseFloat(strings.Replace(form.Price, ",", ".", 1), 64)
		if err != nil || p < 0 {
			errs["price"] = "Enter a valid price."
		}
		price = p
	}
	if ok && courseType != billing.CourseTypeFree && price <= 0 {
		if _, set := errs["price"]; !set {
			errs["price"] = "Paid courses need a price greater than zero."
		}
	}
	if courseType == billing.CourseTypeFree {
		price = 0
	}

	input := billing.CourseInput{Code: form.Code, Title: form.Name, Type: courseType, Price: price}
	return form, course, input, errs
}

// billingFormErrors maps a failed create/edit call to field and general messages.
func billingFormErrors(err error) (map[string]string, string) {
	switch billing.KindOf(err) {
	case billing.KindCourseAlreadyExists:
		return map[string]string{"code": msgCodeExists}, ""
	case billing.KindValidationFailed:
		errs := map[string]string{}
		for field, msg := range billing.FieldErrors(err) {
			switch field {
			case "title":
				field = "name"
			case "":
				continue
			}
			errs[field] = msg
		}
		return errs, "Billing rejected the course."
	case billing.KindAuthenticationFailed:
		return nil, "Billing denied access. Log in again as an administrator."
	default:
		fiberlog.Errorf("[Course] billing write failed: %v", err)
		return nil, msgBillingFailed
	}
}
