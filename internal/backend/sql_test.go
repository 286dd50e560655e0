package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name         string
		query        Query
		expectedSQL  string
		expectedArgs []any
	}{
		{
			name:        "whole table",
			query:       Query{Table: "products"},
			expectedSQL: `SELECT * FROM "products"`,
		},
		{
			name: "filters order and limit",
			query: Query{
				Table:   "orders",
				Filters: []Filter{Eq("user_id", "u-1"), Eq("status", "pending")},
				OrderBy: "created_at",
				Desc:    true,
				Limit:   5,
			},
			expectedSQL:  `SELECT * FROM "orders" WHERE "user_id" = $1 AND "status" = $2 ORDER BY "created_at" DESC LIMIT 5`,
			expectedArgs: []any{"u-1", "pending"},
		},
		{
			name:         "nil filter is IS NULL",
			query:        Query{Table: "orders", Filters: []Filter{Eq("idempotency_key", nil), Eq("id", "o-1")}},
			expectedSQL:  `SELECT * FROM "orders" WHERE "idempotency_key" IS NULL AND "id" = $1`,
			expectedArgs: []any{"o-1"},
		},
		{
			name: "search alternatives",
			query: Query{
				Table: "products",
				Filters: []Filter{
					Eq("is_active", true),
					AnyOf(ILike("name", "%shi%"), ILike("description", "%shi%")),
				},
				OrderBy: "name",
			},
			expectedSQL:  `SELECT * FROM "products" WHERE "is_active" = $1 AND ("name" ILIKE $2 OR "description" ILIKE $3) ORDER BY "name"`,
			expectedArgs: []any{true, "%shi%", "%shi%"},
		},
		{
			name:         "zero operator compares for equality",
			query:        Query{Table: "products", Filters: []Filter{{Column: "slug", Value: "shisha"}}},
			expectedSQL:  `SELECT * FROM "products" WHERE "slug" = $1`,
			expectedArgs: []any{"shisha"},
		},
		{
			name:        "identifiers are quoted",
			query:       Query{Table: `pro"ducts`},
			expectedSQL: `SELECT * FROM "pro""ducts"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildSelect(tt.query)
			assert.Equal(t, tt.expectedSQL, sql)
			assert.Equal(t, tt.expectedArgs, args)
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		term     string
		expected string
	}{
		{term: "shisha", expected: `%shisha%`},
		{term: "100%", expected: `%100\%%`},
		{term: "a_b", expected: `%a\_b%`},
		{term: `c:\`, expected: `%c:\\%`},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.expected, Contains(tt.term))
		})
	}
}

func TestBuildInsert(t *testing.T) {
	sql, args := buildInsert("email_logs", Row{"subject": "Bestellung", "email_type": "order_confirmation"})

	assert.Equal(t, `INSERT INTO "email_logs" ("email_type", "subject") VALUES ($1, $2) RETURNING *`, sql)
	assert.Equal(t, []any{"order_confirmation", "Bestellung"}, args)
}

func TestBuildUpdate(t *testing.T) {
	sql, args := buildUpdate("orders", []Filter{Eq("id", "o-1")}, Row{"status": "canceled", "notes": "x"})

	assert.Equal(t, `UPDATE "orders" SET "notes" = $1, "status" = $2 WHERE "id" = $3 RETURNING *`, sql)
	assert.Equal(t, []any{"x", "canceled", "o-1"}, args)
}

func TestBuildCall(t *testing.T) {
	sql, args := buildCall(ProcedureCancelOrder, map[string]any{"p_reason": "r", "p_order_id": "o-1"})

	assert.Equal(t, `SELECT "cancel_order"("p_order_id" => $1, "p_reason" => $2)`, sql)
	assert.Equal(t, []any{"o-1", "r"}, args)
}

func TestRemoteErrorMessage(t *testing.T) {
	assert.Equal(t, "order does not exist (code=P0002)", (&RemoteError{Code: "P0002", Message: "order does not exist"}).Error())
	assert.Equal(t, "kaputt", (&RemoteError{Message: "kaputt"}).Error())
}
