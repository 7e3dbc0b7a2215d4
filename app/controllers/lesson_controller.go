package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/StudyOn/app/models"
	"github.com/ManuelReschke/StudyOn/app/repository"
	"github.com/ManuelReschke/StudyOn/internal/pkg/validation"
	"github.com/ManuelReschke/StudyOn/internal/pkg/viewmodel"
)

type LessonController struct {
	Courses repository.CourseRepository
	Lessons repository.LessonRepository
}

func NewLessonController(courses repository.CourseRepository, lessons repository.LessonRepository) *LessonController {
	return &LessonController{Courses: courses, Lessons: lessons}
}

func (lc *LessonController) HandleShow(c *fiber.Ctx) error {
	lesson, err := lc.lessonFromParam(c)
	if err != nil {
		return err
	}
	return render(c, fiber.StatusOK, "lessons/show", newLayout(c, lesson.Name), fiber.Map{
		"Lesson": lesson,
		"Course": lesson.Course,
	})
}

// HandleNew adds a lesson to the course given by the course query parameter.
func (lc *LessonController) HandleNew(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Query("course"), 10, 64)
	if err != nil || courseID == 0 {
		return fiber.ErrNotFound
	}
	course, err := lc.Courses.GetByID(uint(courseID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}

	action := fmt.Sprintf("/lessons/new?course=%d", course.ID)
	if c.Method() != fiber.MethodPost {
		form := viewmodel.LessonForm{SerialNumber: strconv.Itoa(len(course.Lessons) + 1)}
		return lc.renderForm(c, fiber.StatusOK, "New lesson", action, course, form, nil)
	}

	form, lesson, errs := parseLessonForm(c)
	lesson.CourseID = course.ID
	if len(errs) > 0 {
		return lc.renderForm(c, fiber.StatusUnprocessableEntity, "New lesson", action, course, form, errs)
	}
	if err := lc.Lessons.Create(&lesson); err != nil {
		return err
	}
	fiberlog.Infof("[Lesson] created lesson %d in course %s", lesson.ID, course.Code)
	return flashRedirect(c, "success", "Lesson created.", fmt.Sprintf("/courses/%d", course.ID))
}

func (lc *LessonController) HandleEdit(c *fiber.Ctx) error {
	lesson, err := lc.lessonFromParam(c)
	if err != nil {
		return err
	}
	action := fmt.Sprintf("/lessons/%d/edit", lesson.ID)
	title := "Edit " + lesson.Name

	if c.Method() != fiber.MethodPost {
		form := viewmodel.LessonForm{
			Name:         lesson.Name,
			Content:      lesson.Content,
			SerialNumber: strconv.Itoa(lesson.SerialNumber),
		}
		return lc.renderForm(c, fiber.StatusOK, title, action, lesson.Course, form, nil)
	}

	form, updated, errs := parseLessonForm(c)
	if len(errs) > 0 {
		return lc.renderForm(c, fiber.StatusUnprocessableEntity, title, action, lesson.Course, form, errs)
	}
	lesson.Name = updated.Name
	lesson.Content = updated.Content
	lesson.SerialNumber = updated.SerialNumber
	if err := lc.Lessons.Update(lesson); err != nil {
		return err
	}
	return flashRedirect(c, "success", "Lesson saved.", fmt.Sprintf("/lessons/%d", lesson.ID))
}

func (lc *LessonController) HandleDelete(c *fiber.Ctx) error {
	lesson, err := lc.lessonFromParam(c)
	if err != nil {
		return err
	}
	if err := lc.Lessons.Delete(lesson.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}
	fiberlog.Infof("[Lesson] deleted lesson %d", lesson.ID)
	return flashRedirect(c, "success", "Lesson deleted.", fmt.Sprintf("/courses/%d", lesson.CourseID))
}

func (lc *LessonController) lessonFromParam(c *fiber.Ctx) (*models.Lesson, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	lesson, err := lc.Lessons.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lesson.Course == nil {
		return nil, fiber.ErrNotFound
	}
	return lesson, nil
}

func (lc *LessonController) renderForm(c *fiber.Ctx, status int, title, action string, course *models.Course, form viewmodel.LessonForm, errs map[string]string) error {
	if errs == nil {
		errs = map[string]string{}
	}
	return render(c, status, "lessons/form", newLayout(c, title), fiber.Map{
		"Action": action,
		"Course": course,
		"Form":   form,
		"Errors": errs,
	})
}

// lessonFields holds the user editable lesson fields. CourseID comes from the route.
type lessonFields struct {
	Name         string `form:"name" validate:"required,max=255"`
	Content      string `form:"content" validate:"required"`
	SerialNumber int    `form:"serial_number" validate:"required,min=1,max=10000"`
}

func parseLessonForm(c *fiber.Ctx) (viewmodel.LessonForm, models.Lesson, map[string]string) {
	form := viewmodel.LessonForm{
		Name:         strings.TrimSpace(c.FormValue("name")),
		Content:      strings.TrimSpace(c.FormValue("content")),
		SerialNumber: strings.TrimSpace(c.FormValue("serial_number")),
	}
	fields := lessonFields{Name: form.Name, Content: form.Content}

	var errs map[string]string
	if form.SerialNumber != "" {
		n, err := strconv.Atoi(form.SerialNumber)
		if err != nil {
			errs = map[string]string{"serial_number": "This value should be a valid number."}
		}
		fields.SerialNumber = n
	}
	errs = mergeErrors(errs, validation.Struct(fields))

	lesson := models.Lesson{Name: fields.Name, Content: fields.Content, SerialNumber: fields.SerialNumber}
	return form, lesson, errs
}
