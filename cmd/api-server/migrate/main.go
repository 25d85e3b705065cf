package main

import (
	"flag"
	"log"

	"github.com/poolparty/pool-backend/pkg/config"
	"github.com/poolparty/pool-backend/pkg/migrations/pooldb"
	"github.com/poolparty/pool-backend/pkg/pgutil"
	mghelper "github.com/poolparty/pool-backend/pkg/pgutil/migrations"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for pool API database (%s)...\n", cfg.Database.Database)

	err = mghelper.RunMigrations(pooldb.NewMigrator(db), flag.Args()...)
	if err != nil {
		mghelper.Exitf(err.Error())
	}
}
