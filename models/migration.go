package models

import (
	"log"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Proposal{},
		&Validation{},
		&Operator{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
