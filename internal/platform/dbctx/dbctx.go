package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the bound transaction, or fallback when none is open.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return fallback
}

// InTx runs fn inside a transaction opened on c.DB(fallback). The Context handed to fn
// carries the transaction; nested calls become savepoints.
func (c Context) InTx(fallback *gorm.DB, fn func(inner Context) error) error {
	return c.DB(fallback).WithContext(c.Ctx).Transaction(func(txx *gorm.DB) error {
		return fn(Context{Ctx: c.Ctx, Tx: txx})
	})
}
