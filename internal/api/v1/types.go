package apiv1

// Pong is the ping response.
type Pong struct {
	Ping string `json:"ping"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CourseList is the body of GET /courses.
type CourseList struct {
	BillingAvailable bool     `json:"billing_available"`
	Courses          []Course `json:"courses"`
}

// Course is one reconciled catalog entry.
type Course struct {
	ID          uint     `json:"id"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	LessonCount int      `json:"lesson_count"`
	Type        string   `json:"type,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	PriceLabel  string   `json:"price_label,omitempty"`
	Priced      bool     `json:"priced"`
	Owned       bool     `json:"owned"`
	ExpiresAt   *string  `json:"expires_at,omitempty"`
}
