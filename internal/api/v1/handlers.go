package apiv1

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/StudyOn/internal/pkg/pricing"
)

// Catalog lists every course reconciled with billing. The bool reports
// whether billing data could be loaded.
type Catalog interface {
	Catalog(c *fiber.Ctx) ([]pricing.CourseView, bool, error)
}

// APIServer serves the public JSON API.
type APIServer struct {
	catalog Catalog
}

// NewAPIServer creates a new API server instance
func NewAPIServer(catalog Catalog) *APIServer {
	return &APIServer{catalog: catalog}
}

// RegisterHandlers mounts the v1 routes on router.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/courses", s.GetCourses)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetCourses returns the catalog as seen by the caller.
func (s *APIServer) GetCourses(c *fiber.Ctx) error {
	views, available, err := s.catalog.Catalog(c)
	if err != nil {
		fiberlog.Errorf("[API] list courses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(Error{
			Error:   "internal_error",
			Message: "courses could not be loaded",
		})
	}

	out := CourseList{BillingAvailable: available, Courses: make([]Course, 0, len(views))}
	for _, v := range views {
		out.Courses = append(out.Courses, newCourse(v))
	}
	return c.JSON(out)
}

func newCourse(v pricing.CourseView) Course {
	course := Course{
		ID:          v.ID,
		Code:        v.Code,
		Name:        v.Name,
		Description: v.Description,
		LessonCount: v.LessonCount,
		Priced:      v.Priced,
		Owned:       v.Owned,
	}
	if v.Priced {
		course.Type = string(v.Type)
		course.PriceLabel = v.PriceLabel
		price := v.Price
		course.Price = &price
	}
	if v.ExpiresAt != nil {
		exp := v.ExpiresAt.UTC().Format(time.RFC3339)
		course.ExpiresAt = &exp
	}
	return course
}
