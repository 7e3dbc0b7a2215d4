package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/StudyOn/app/models"
	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
)

func price(v float64) *float64 { return &v }

func at(t time.Time) *time.Time { return &t }

var (
	now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

	localCourses = []models.Course{
		{ID: 1, Code: "php_1", Name: "PHP"},
		{ID: 2, Code: "js_1", Name: "JavaScript"},
		{ID: 3, Code: "go_1", Name: "Go"},
		{ID: 4, Code: "local_only", Name: "Draft"},
	}

	remoteCourses = []billing.Course{
		{Code: "php_1", Type: billing.CourseTypeFree},
		{Code: "js_1", Type: billing.CourseTypeRent, Price: price(10)},
		{Code: "go_1", Type: billing.CourseTypeBuy, Price: price(50)},
		{Code: "remote_only", Type: billing.CourseTypeBuy, Price: price(1)},
	}
)

func byCode(views []CourseView) map[string]CourseView {
	out := make(map[string]CourseView, len(views))
	for _, v := range views {
		out[v.Code] = v
	}
	return out
}

func TestReconcileAnonymous(t *testing.T) {
	views := Reconcile(Input{Courses: localCourses, Remote: remoteCourses, Now: now, Location: time.UTC})
	require.Len(t, views, len(localCourses))
	for i, v := range views {
		assert.Equal(t, localCourses[i].Code, v.Code, "order is preserved")
	}

	got := byCode(views)
	assert.Equal(t, "Free", got["php_1"].PriceLabel)
	assert.Equal(t, billing.CourseTypeFree, got["php_1"].Type)
	assert.True(t, got["php_1"].Accessible())
	assert.False(t, got["php_1"].Payable())

	assert.Equal(t, "10₽ per week", got["js_1"].PriceLabel)
	assert.True(t, got["js_1"].Payable())
	assert.Equal(t, "50₽", got["go_1"].PriceLabel)
	assert.False(t, got["go_1"].Owned)

	draft := got["local_only"]
	assert.False(t, draft.Priced)
	assert.Empty(t, draft.PriceLabel)
	assert.Empty(t, draft.Type)
	assert.False(t, draft.Payable())
}

func TestReconcileIgnoresTransactionsWhenAnonymous(t *testing.T) {
	txs := []billing.Transaction{{ID: 1, Type: billing.TransactionPayment, CourseCode: "go_1", Amount: 50, CreatedAt: now}}
	got := byCode(Reconcile(Input{Courses: localCourses, Remote: remoteCourses, Transactions: txs, Now: now}))
	assert.Equal(t, "50₽", got["go_1"].PriceLabel)
	assert.False(t, got["go_1"].Owned)
}

func TestReconcileAuthenticated(t *testing.T) {
	expired := now.Add(-7 * 24 * time.Hour)
	active := now.Add(3 * 24 * time.Hour)

	tests := []struct {
		name      string
		txs       []billing.Transaction
		code      string
		wantLabel string
		wantOwned bool
	}{
		{
			name:      "expired rental",
			txs:       []billing.Transaction{{ID: 1, Type: billing.TransactionPayment, CourseCode: "js_1", CreatedAt: expired.Add(-7 * 24 * time.Hour), ExpiresAt: at(expired)}},
			code:      "js_1",
			wantLabel: "Rented until 12:00:00 13.05.2024",
			wantOwned: false,
		},
		{
			name:      "active rental",
			txs:       []billing.Transaction{{ID: 1, Type: billing.TransactionPayment, CourseCode: "js_1", CreatedAt: now, ExpiresAt: at(active)}},
			code:      "js_1",
			wantLabel: "Rented until 12:00:00 23.05.2024",
			wantOwned: true,
		},
		{
			name: "latest rental wins",
			txs: []billing.Transaction{
				{ID: 2, Type: billing.TransactionPayment, CourseCode: "js_1", CreatedAt: now, ExpiresAt: at(active)},
				{ID: 1, Type: billing.TransactionPayment, CourseCode: "js_1", CreatedAt: expired.Add(-7 * 24 * time.Hour), ExpiresAt: at(expired)},
			},
			code:      "js_1",
			wantLabel: "Rented until 12:00:00 23.05.2024",
			wantOwned: true,
		},
		{
			name:      "rental without expiry keeps price",
			txs:       []billing.Transaction{{ID: 1, Type: billing.TransactionPayment, CourseCode: "js_1", CreatedAt: now}},
			code:      "js_1",
			wantLabel: "10₽ per week",
			wantOwned: false,
		},
		{
			name:      "purchase",
			txs:       []billing.Transaction{{ID: 1, Type: billing.TransactionPayment, CourseCode: "go_1", Amount: 50, CreatedAt: now}},
			code:      "go_1",
			wantLabel: "Purchased",
			wantOwned: true,
		},
		{
			name:      "deposits are ignored",
			txs:       []billing.Transaction{{ID: 1, Type: billing.TransactionDeposit, CourseCode: "go_1", Amount: 50, CreatedAt: now}},
			code:      "go_1",
			wantLabel: "50₽",
			wantOwned: false,
		},
		{
			name:      "free course untouched",
			txs:       []billing.Transaction{{ID: 1, Type: billing.TransactionPayment, CourseCode: "php_1", CreatedAt: now}},
			code:      "php_1",
			wantLabel: "Free",
			wantOwned: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := Reconcile(Input{
				Courses:       localCourses,
				Remote:        remoteCourses,
				Transactions:  tt.txs,
				Authenticated: true,
				Now:           now,
				Location:      time.UTC,
			})
			v := byCode(views)[tt.code]
			assert.Equal(t, tt.wantLabel, v.PriceLabel)
			assert.Equal(t, tt.wantOwned, v.Owned)
		})
	}
}

func TestPurchaseLabelIgnoresPrice(t *testing.T) {
	remote := &billing.Course{Code: "go_1", Type: billing.CourseTypeBuy, Price: price(0.99)}
	txs := []billing.Transaction{{ID: 1, Type: billing.TransactionPayment, CourseCode: "go_1", CreatedAt: now}}

	v := ReconcileOne(localCourses[2], remote, txs, true, now)
	assert.Equal(t, "Purchased", v.PriceLabel)
	assert.True(t, v.Accessible())

	missing := ReconcileOne(localCourses[2], nil, txs, true, now)
	assert.False(t, missing.Priced)
	assert.Empty(t, missing.PriceLabel)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "10", FormatPrice(10))
	assert.Equal(t, "10.5", FormatPrice(10.5))
	assert.Equal(t, "0.99", FormatPrice(0.99))
	assert.Equal(t, "0", FormatPrice(0))
}
