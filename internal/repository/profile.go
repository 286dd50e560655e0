package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/otel"
)

var profileAttributes = []string{
	"first_name",
	"last_name",
	"full_name",
	"phone",
	"street_address",
	"apartment",
	"city",
	"state",
	"postal_code",
	"country",
}

// FindProfileAttributes returns the user's stored profile as plain strings,
// omitting empty columns.
func (q *Queries) FindProfileAttributes(c context.Context, userID uuid.UUID) (map[string]string, error) {
	c, span := otel.Tracer.Start(c, "Queries FindProfileAttributes")
	defer span.End()

	row, err := q.tables.SelectOne(c, backend.Query{
		Table:   TableProfiles,
		Filters: []backend.Filter{backend.Eq("id", userID)},
	})
	if err != nil {
		otel.RecordError(err, span)
		return nil, err
	}

	attributes := map[string]string{}
	for _, key := range profileAttributes {
		if v := firstString(row, key); v != "" {
			attributes[key] = v
		}
	}
	return attributes, nil
}

type InsertProfileParams struct {
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Phone     string
}

// InsertProfile stores the profile created at sign up. Its id is the user's id.
func (q *Queries) InsertProfile(c context.Context, p InsertProfileParams) error {
	c, span := otel.Tracer.Start(c, "Queries InsertProfile")
	defer span.End()

	row := backend.Row{
		"id":         p.UserID,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"full_name":  strings.TrimSpace(p.FirstName + " " + p.LastName),
	}
	if p.Phone != "" {
		row["phone"] = p.Phone
	}
	if _, err := q.tables.Insert(c, TableProfiles, row); err != nil {
		otel.RecordError(err, span)
		return err
	}
	return nil
}
