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
		log.Println("creating pools table...")
		if err := mghelper.CreateSchema(ctx, db, &poolstore.PoolDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &poolstore.PoolDao{}, "chain_id", "status", "host_address")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping pools table...")
		return mghelper.DropTables(ctx, db, &poolstore.PoolDao{})
	})
}
