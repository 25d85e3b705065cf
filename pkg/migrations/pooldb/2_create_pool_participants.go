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
		log.Println("creating pool_participants table...")
		if err := mghelper.CreateSchema(ctx, db, &poolstore.ParticipantDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &poolstore.ParticipantDao{}, "pool_id", "wallet_address")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping pool_participants table...")
		return mghelper.DropTables(ctx, db, &poolstore.ParticipantDao{})
	})
}
