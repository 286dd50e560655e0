// Package repository maps the data service's loosely typed rows onto the
// storefront's types. Every row read from the service goes through here.
package repository

import (
	"github.com/Alturino/mallofhookah/internal/backend"
)

const (
	TableCategories = "categories"
	TableEmailLogs  = "email_logs"
	TableOrderItems = "order_items"
	TableOrders     = "orders"
	TableProducts   = "products"
	TableProfiles   = "profiles"
	TableUsers      = "users"
)

type Queries struct {
	tables     backend.Tables
	procedures backend.Procedures
}

func New(tables backend.Tables, procedures backend.Procedures) *Queries {
	return &Queries{tables: tables, procedures: procedures}
}
