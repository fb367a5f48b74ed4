package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/internal/database"
	"github.com/customeros/mxvalidator/internal/repository"
	"github.com/customeros/mxvalidator/server"
)

func main() {
	app := &cli.App{
		Name:  "mxvalidator",
		Usage: "Bulk MX record validation service",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: migrate,
			},
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: runServer,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrate(_ *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return cli.Exit("Config initialization failed: "+err.Error(), 1)
	}

	db, err := database.NewConnection(cfg.DatabaseConfig)
	if err != nil {
		return cli.Exit("Database initialization failed: "+err.Error(), 1)
	}

	if err := repository.MigrateDB(cfg.DatabaseConfig, db); err != nil {
		return cli.Exit("Database migration failed: "+err.Error(), 1)
	}

	log.Println("Database migration completed successfully")
	return nil
}

func runServer(_ *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return cli.Exit("Config initialization failed: "+err.Error(), 1)
	}

	db, err := database.NewConnection(cfg.DatabaseConfig)
	if err != nil {
		return cli.Exit("Database initialization failed: "+err.Error(), 1)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("MX Validator starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return cli.Exit("Server setup failed: "+err.Error(), 1)
	}

	if err := srv.Run(); err != nil {
		return cli.Exit("Server startup failed: "+err.Error(), 1)
	}

	log.Println("Shutdown complete")
	return nil
}
