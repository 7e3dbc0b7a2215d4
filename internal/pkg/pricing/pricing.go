// Package pricing merges local courses with the billing service's prices and
// the caller's payment history.
package pricing

import (
	"strconv"
	"time"

	"github.com/ManuelReschke/StudyOn/app/models"
	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
)

// RentedUntilLayout formats rental expiry in labels.
const RentedUntilLayout = "15:04:05 02.01.2006"

const (
	LabelFree      = "Free"
	LabelPurchased = "Purchased"
)

// CourseView is a local course decorated with billing state.
type CourseView struct {
	ID          uint
	Code        string
	Name        string
	Description string
	LessonCount int

	Type       billing.CourseType
	Price      float64
	PriceLabel string
	// Priced is false when the billing service does not know the course.
	Priced bool
	// Owned is true for a purchase or a rental that has not expired.
	Owned     bool
	ExpiresAt *time.Time
}

// Accessible reports whether the caller may open the lessons.
func (v CourseView) Accessible() bool {
	return v.Type == billing.CourseTypeFree || v.Owned
}

// Payable reports whether a pay button makes sense.
func (v CourseView) Payable() bool {
	return v.Priced && v.Type != billing.CourseTypeFree && !v.Owned
}

type Input struct {
	Courses []models.Course
	Remote  []billing.Course
	// Transactions are only consulted when Authenticated is set.
	Transactions  []billing.Transaction
	Authenticated bool
	Now           time.Time
	Location      *time.Location
}

// Reconcile returns one view per local course, in the same order.
func Reconcile(in Input) []CourseView {
	remote := make(map[string]billing.Course, len(in.Remote))
	for _, c := range in.Remote {
		remote[c.Code] = c
	}

	var paid map[string]billing.Transaction
	if in.Authenticated {
		paid = LatestPayments(in.Transactions)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}

	out := make([]CourseView, 0, len(in.Courses))
	for _, c := range in.Courses {
		v := CourseView{
			ID:          c.ID,
			Code:        c.Code,
			Name:        c.Name,
			Description: c.Description,
			LessonCount: len(c.Lessons),
		}
		if rc, ok := remote[c.Code]; ok {
			applyRemote(&v, rc)
			if tx, ok := paid[c.Code]; ok {
				applyTransaction(&v, tx, now, loc)
			}
		}
		out = append(out, v)
	}
	return out
}

// ReconcileOne is Reconcile for a single course.
func ReconcileOne(course models.Course, remote *billing.Course, transactions []billing.Transaction, authenticated bool, now time.Time) CourseView {
	in := Input{
		Courses:       []models.Course{course},
		Transactions:  transactions,
		Authenticated: authenticated,
		Now:           now,
	}
	if remote != nil {
		in.Remote = []billing.Course{*remote}
	}
	return Reconcile(in)[0]
}

// LatestPayments indexes payment transactions by course code. The most recent
// transaction for a code wins.
func LatestPayments(txs []billing.Transaction) map[string]billing.Transaction {
	out := make(map[string]billing.Transaction, len(txs))
	for _, tx := range txs {
		if !tx.IsPayment() || tx.CourseCode == "" {
			continue
		}
		cur, ok := out[tx.CourseCode]
		if !ok || newer(tx, cur) {
			out[tx.CourseCode] = tx
		}
	}
	return out
}

func newer(a, b billing.Transaction) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func applyRemote(v *CourseView, rc billing.Course) {
	v.Type = rc.Type
	v.Price = rc.PriceValue()
	v.Priced = true
	switch rc.Type {
	case billing.CourseTypeRent:
		v.PriceLabel = FormatPrice(v.Price) + "₽ per week"
	case billing.CourseTypeBuy:
		v.PriceLabel = FormatPrice(v.Price) + "₽"
	case billing.CourseTypeFree:
		v.PriceLabel = LabelFree
	default:
		v.Priced = false
	}
}

func applyTransaction(v *CourseView, tx billing.Transaction, now time.Time, loc *time.Location) {
	switch v.Type {
	case billing.CourseTypeRent:
		if tx.ExpiresAt == nil {
			return
		}
		exp := *tx.ExpiresAt
		v.ExpiresAt = &exp
		v.PriceLabel = "Rented until " + exp.In(loc).Format(RentedUntilLayout)
		v.Owned = exp.After(now)
	case billing.CourseTypeBuy:
		v.PriceLabel = LabelPurchased
		v.Owned = true
	}
}

// FormatPrice prints a price without trailing zeros.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
