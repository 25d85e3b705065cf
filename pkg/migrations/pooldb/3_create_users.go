package pooldb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/poolparty/pool-backend/pkg/pgutil/migrations"
	"github.com/poolparty/pool-backend/pkg/poolstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating users table...")
		if err := mghelper.CreateSchema(ctx, db, &poolstore.UserDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &poolstore.UserDao{}, "wallet_address")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping users table...")
		return mghelper.DropTables(ctx, db, &poolstore.UserDao{})
	})
}
