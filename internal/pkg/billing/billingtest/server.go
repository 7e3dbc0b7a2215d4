// Package billingtest runs an in-process billing service for tests.
package billingtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
)

const (
	UserEmail     = "user@studyon.com"
	AdminEmail    = "admin@studyon.com"
	Password      = "password"
	RoleUser      = "ROLE_USER"
	RoleAdmin     = "ROLE_SUPER_ADMIN"
	rentPeriod    = 7 * 24 * time.Hour
	defaultTTL    = time.Hour
	signingSecret = "billingtest-secret"
)

type user struct {
	email    string
	password string
	roles    []string
	balance  float64
}

// Server is a fake billing service seeded with the demo users and courses.
type Server struct {
	*httptest.Server

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
	// Now is the server clock.
	Now func() time.Time

	mu           sync.Mutex
	users        map[string]*user
	refresh      map[string]string
	courses      map[string]*billing.Course
	transactions map[string][]billing.Transaction
	calls        map[string]int
	failures     map[string]int
	nextTxID     int64
}

// NewServer starts the fake and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		TokenTTL:     defaultTTL,
		Now:          time.Now,
		users:        map[string]*user{},
		refresh:      map[string]string{},
		courses:      map[string]*billing.Course{},
		transactions: map[string][]billing.Transaction{},
		calls:        map[string]int{},
		failures:     map[string]int{},
	}
	s.seed()

	mux := http.NewServeMux()
	s.handle(mux, "POST /auth", s.handleAuth)
	s.handle(mux, "POST /register", s.handleRegister)
	s.handle(mux, "GET /users/current", s.authorized(s.handleCurrentUser))
	s.handle(mux, "POST /token/refresh", s.handleRefresh)
	s.handle(mux, "GET /courses/{$}", s.handleCourses)
	s.handle(mux, "GET /courses/{code}", s.handleCourse)
	s.handle(mux, "POST /courses/new", s.authorized(s.handleCreateCourse))
	s.handle(mux, "POST /courses/{code}/edit", s.authorized(s.handleEditCourse))
	s.handle(mux, "POST /courses/{code}/pay", s.authorized(s.handlePay))
	s.handle(mux, "GET /transactions/{$}", s.authorized(s.handleTransactions))

	s.Server = httptest.NewServer(mux)
	if t != nil {
		t.Cleanup(s.Close)
	}
	return s
}

func (s *Server) seed() {
	s.users[UserEmail] = &user{email: UserEmail, password: Password, roles: []string{RoleUser}, balance: 100}
	s.users[AdminEmail] = &user{email: AdminEmail, password: Password, roles: []string{RoleUser, RoleAdmin}, balance: 500}

	rent, buy := 10.0, 50.0
	s.courses["php_1"] = &billing.Course{Code: "php_1", Type: billing.CourseTypeFree, Title: "PHP basics"}
	s.courses["js_1"] = &billing.Course{Code: "js_1", Type: billing.CourseTypeRent, Price: &rent, Title: "JavaScript basics"}
	s.courses["go_1"] = &billing.Course{Code: "go_1", Type: billing.CourseTypeBuy, Price: &buy, Title: "Go basics"}
}

// BillingClient returns a billing client pointed at the fake.
func (s *Server) BillingClient() *billing.Client {
	return billing.NewClient(s.URL, 5*time.Second)
}

// Calls reports how many requests hit pattern, e.g. "POST /token/refresh".
func (s *Server) Calls(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pattern]
}

// Fail makes pattern answer with status until Fail(pattern, 0) is called.
func (s *Server) Fail(pattern string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, pattern)
		return
	}
	s.failures[pattern] = status
}

// IssueToken signs an access token for email that expires after ttl.
func (s *Server) IssueToken(email string, ttl time.Duration) string {
	s.mu.Lock()
	u := s.users[email]
	s.mu.Unlock()
	roles := []string{RoleUser}
	if u != nil {
		roles = append([]string(nil), u.roles...)
	}
	return s.sign(email, roles, s.Now().Add(ttl))
}

// IssueTokens returns an access token with ttl and a fresh refresh token.
func (s *Server) IssueTokens(email string, ttl time.Duration) billing.Tokens {
	token := s.IssueToken(email, ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	return billing.Tokens{Token: token, RefreshToken: s.newRefreshLocked(email)}
}

// AddCourse registers or replaces a billing course.
func (s *Server) AddCourse(c billing.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.courses[c.Code] = &cp
}

// AddTransaction appends a transaction to email's history and returns it.
func (s *Server) AddTransaction(email string, tx billing.Transaction) billing.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTxID++
	if tx.ID == 0 {
		tx.ID = s.nextTxID
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.Now()
	}
	s.transactions[email] = append(s.transactions[email], tx)
	return tx
}

// Balance returns the current balance of email.
func (s *Server) Balance(email string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[email]; u != nil {
		return u.balance
	}
	return 0
}

func (s *Server) sign(email string, roles []string, exp time.Time) string {
	claims := jwt.MapClaims{
		"email":    email,
		"username": email,
		"roles":    roles,
		"iat":      s.Now().Unix(),
		"exp":      exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	if err != nil {
		panic(fmt.Sprintf("billingtest: sign token: %v", err))
	}
	return signed
}

func (s *Server) newRefreshLocked(email string) string {
	rt := uuid.NewString()
	s.refresh[rt] = email
	return rt
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[pattern]++
		status := s.failures[pattern]
		s.mu.Unlock()
		if status != 0 {
			writeError(w, status, http.StatusText(status), nil)
			return
		}
		h(w, r)
	})
}

func (s *Server) authorized(h func(http.ResponseWriter, *http.Request, *user)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "JWT Token not found", nil)
			return
		}
		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return []byte(signingSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.Now))
		if err != nil {
			msg := "Invalid JWT Token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Expired JWT Token"
			}
			writeError(w, http.StatusUnauthorized, msg, nil)
			return
		}
		claims, _ := token.Claims.(jwt.MapClaims)
		email, _ := claims["email"].(string)

		s.mu.Lock()
		u := s.users[email]
		s.mu.Unlock()
		if u == nil {
			writeError(w, http.StatusUnauthorized, "Invalid JWT Token", nil)
			return
		}
		h(w, r, u)
	}
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var creds billing.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}

	s.mu.Lock()
	u := s.users[creds.Username]
	s.mu.Unlock()
	if u == nil || u.password != creds.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials.", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.IssueTokens(u.email, s.TokenTTL))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds billing.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}

	fields := map[string][]string{}
	if !strings.Contains(creds.Username, "@") {
		fields["username"] = []string{"Invalid email address."}
	}
	if len(creds.Password) < 6 {
		fields["password"] = []string{"Password must be at least 6 characters long."}
	}
	if len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", fields)
		return
	}

	s.mu.Lock()
	if _, exists := s.users[creds.Username]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "A user with this email already exists.", nil)
		return
	}
	s.users[creds.Username] = &user{email: creds.Username, password: creds.Password, roles: []string{RoleUser}}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, s.IssueTokens(creds.Username, s.TokenTTL))
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	out := billing.CurrentUser{Username: u.email, Roles: append([]string(nil), u.roles...), Balance: u.balance}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}

	s.mu.Lock()
	email, ok := s.refresh[body.RefreshToken]
	if ok {
		delete(s.refresh, body.RefreshToken)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token.", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.IssueTokens(email, s.TokenTTL))
}

func (s *Server) handleCourses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]billing.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, *c)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c, ok := s.courses[r.PathValue("code")]
	var out billing.Course
	if ok {
		out = *c
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Course not found.", nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func validateCourseInput(in billing.CourseInput) map[string][]string {
	fields := map[string][]string{}
	if strings.TrimSpace(in.Code) == "" {
		fields["code"] = []string{"This value should not be blank."}
	}
	if !in.Type.Valid() {
		fields["type"] = []string{"Unknown course type."}
	}
	if in.Type != billing.CourseTypeFree && in.Price <= 0 {
		fields["price"] = []string{"Price must be positive."}
	}
	return fields
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request, u *user) {
	if !hasRole(u, RoleAdmin) {
		writeError(w, http.StatusForbidden, "Access denied.", nil)
		return
	}
	var in billing.CourseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}
	if fields := validateCourseInput(in); len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[in.Code]; exists {
		writeError(w, http.StatusConflict, "Course with this code already exists.", nil)
		return
	}
	s.courses[in.Code] = courseFromInput(in)
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (s *Server) handleEditCourse(w http.ResponseWriter, r *http.Request, u *user) {
	if !hasRole(u, RoleAdmin) {
		writeError(w, http.StatusForbidden, "Access denied.", nil)
		return
	}
	var in billing.CourseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", nil)
		return
	}
	if fields := validateCourseInput(in); len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", fields)
		return
	}

	code := r.PathValue("code")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[code]; !ok {
		writeError(w, http.StatusNotFound, "Course not found.", nil)
		return
	}
	if _, taken := s.courses[in.Code]; taken && in.Code != code {
		writeError(w, http.StatusConflict, "Course with this code already exists.", nil)
		return
	}
	delete(s.courses, code)
	s.courses[in.Code] = courseFromInput(in)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request, u *user) {
	code := r.PathValue("code")
	now := s.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[code]
	if !ok {
		writeError(w, http.StatusNotFound, "Course not found.", nil)
		return
	}
	for _, tx := range s.transactions[u.email] {
		if tx.Type != billing.TransactionPayment || tx.CourseCode != code {
			continue
		}
		if tx.ExpiresAt == nil || tx.ExpiresAt.After(now) {
			writeError(w, http.StatusConflict, "Course already paid.", nil)
			return
		}
	}
	price := c.PriceValue()
	if u.balance < price {
		writeError(w, http.StatusNotAcceptable, "Not enough money.", nil)
		return
	}

	u.balance -= price
	s.nextTxID++
	tx := billing.Transaction{ID: s.nextTxID, Type: billing.TransactionPayment, CourseCode: code, Amount: price, CreatedAt: now}
	if c.Type == billing.CourseTypeRent {
		exp := now.Add(rentPeriod)
		tx.ExpiresAt = &exp
	}
	s.transactions[u.email] = append(s.transactions[u.email], tx)

	writeJSON(w, http.StatusOK, billing.PaymentResult{Success: true, CourseType: c.Type, ExpiresAt: tx.ExpiresAt})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, u *user) {
	q := r.URL.Query()
	typ, code := q.Get("type"), q.Get("code")
	skipExpired := q.Get("skip_expired") != "" && q.Get("skip_expired") != "0"
	now := s.Now()

	s.mu.Lock()
	out := make([]billing.Transaction, 0, len(s.transactions[u.email]))
	for _, tx := range s.transactions[u.email] {
		if typ != "" && tx.Type != typ {
			continue
		}
		if code != "" && tx.CourseCode != code {
			continue
		}
		if skipExpired && tx.ExpiresAt != nil && !tx.ExpiresAt.After(now) {
			continue
		}
		out = append(out, tx)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func courseFromInput(in billing.CourseInput) *billing.Course {
	c := &billing.Course{Code: in.Code, Type: in.Type, Title: in.Title}
	if in.Type != billing.CourseTypeFree {
		price := in.Price
		c.Price = &price
	}
	return c
}

func hasRole(u *user, role string) bool {
	for _, r := range u.roles {
		if r == role {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	body := map[string]any{"code": status, "message": message}
	if len(fields) > 0 {
		body["errors"] = fields
	}
	writeJSON(w, status, body)
}
