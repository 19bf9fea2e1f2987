package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/yelpcamp/internal/dbx"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/campgrounds"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/reviews"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	MigrationStatus(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Campgrounds(db dbx.DBTX) campgrounds.Repository
	Reviews(db dbx.DBTX) reviews.Repository
}
