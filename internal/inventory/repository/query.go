// Package repository persists the warehouse records with sqlx. Every
// statement runs on database.DB.Executor(ctx), so a repository call made
// inside database.DB.WithTx is part of that transaction.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/maestranza/maestranza-backend/pkg/database"
	"github.com/maestranza/maestranza-backend/pkg/errors"
)

// Page selects a window of a list
type Page struct {
	Page    int
	PerPage int
}

func (p Page) limit() int {
	if p.PerPage < 1 {
		return 20
	}
	return p.PerPage
}

func (p Page) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.limit()
}

// filter accumulates WHERE conditions with numbered placeholders
type filter struct {
	conds []string
	args  []interface{}
}

// add appends a condition; every "?" in cond becomes the next placeholder
func (f *filter) add(cond string, args ...interface{}) {
	for _, a := range args {
		f.args = append(f.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(f.args)), 1)
	}
	f.conds = append(f.conds, cond)
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause with its args
func (f *filter) page(p Page) (string, []interface{}) {
	n := len(f.args)
	args := append(append([]interface{}{}, f.args...), p.limit(), p.offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

// listPage runs a count query and a paged select sharing one filter
func listPage[T any](ctx context.Context, exec database.Executor, dest *[]T, from, columns, orderBy string, f *filter, p Page, resource string) (int64, error) {
	var total int64
	if err := exec.GetContext(ctx, &total, "SELECT COUNT(*) "+from+f.where(), f.args...); err != nil {
		return 0, database.Translate(err, resource)
	}

	limit, args := f.page(p)
	query := "SELECT " + columns + " " + from + f.where() + " ORDER BY " + orderBy + limit
	if err := exec.SelectContext(ctx, dest, query, args...); err != nil {
		return 0, database.Translate(err, resource)
	}
	return total, nil
}

// expectAffected maps an UPDATE/DELETE that touched nothing to NotFound
func expectAffected(result sql.Result, err error, resource string) error {
	if err != nil {
		return database.Translate(err, resource)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
