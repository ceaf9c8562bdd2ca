package seeds

import (
	"log"

	"gorm.io/gorm"

	"scoda_backend/internals/seeds/roster"
)

const DefaultRosterFile = "internals/seeds/roster/data_roster.json"

// RunAllSeeds loads the demo roster. An empty path uses DefaultRosterFile.
func RunAllSeeds(db *gorm.DB, rosterFile string, maxAuthorized int) {
	if rosterFile == "" {
		rosterFile = DefaultRosterFile
	}

	//* Roster
	if _, err := roster.SeedRosterFromJSON(db, rosterFile, maxAuthorized); err != nil {
		log.Fatalf("[ERROR] roster seed failed: %v", err)
	}
}
