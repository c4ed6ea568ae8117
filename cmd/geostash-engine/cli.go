package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/geostash/engine/internal/database"
	"github.com/geostash/engine/internal/model"
	"github.com/geostash/engine/internal/monitor"
)

//////////////////////////////////////////////////////////////
// Direct (exe) functions
//////////////////////////////////////////////////////////////

func getPostgresDB() (db *gorm.DB, err error) {
	Logger.Debug("Connecting to Postgres DB")
	return database.GetPostgresDBStandalone()
}

// setupDB migrates the schema against Postgres and configures TimescaleDB
// hypertables for the time-series tables.
func setupDB() (err error) {
	db, err := getPostgresDB()
	if err != nil {
		return fmt.Errorf("error getting postgres database: %v", err)
	}

	if err = db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
		return fmt.Errorf("failed to create PostGIS Extension: %v", err)
	}

	Logger.Info("Migrating schema")
	if err = db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %v", err)
	}

	svc := monitor.NewService(monitor.Dependencies{
		DB:         db,
		LogManager: SlogManager,
	})
	err = svc.ValidateHypertables(map[string][]string{
		"engine_performances": {"session_id"},
		"scan_events":         {"session_id"},
	})
	if err != nil {
		return fmt.Errorf("failed to validate hypertables: %v", err)
	}

	return nil
}

// getSessionRecap exports sessions from Postgres as gzipped recap JSON, the
// same shape the memory backend writes at session end.
func getSessionRecap(sessionIDs []string) (err error) {
	fmt.Println("Getting JSON for session IDs: ", sessionIDs)

	db, err := getPostgresDB()
	if err != nil {
		return fmt.Errorf("error getting postgres database: %v", err)
	}

	for _, sessionID := range sessionIDs {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var dbSession model.Session
		err = db.Model(&model.Session{}).Where("id = ?", sessionIDInt).First(&dbSession).Error
		if err != nil {
			return fmt.Errorf("error getting session: %w", err)
		}

		recap := make(map[string]any)
		recap["engineVersion"] = dbSession.EngineVersion
		recap["bridgeVersion"] = dbSession.BridgeVersion
		recap["startTime"] = dbSession.StartTime
		recap["endTime"] = dbSession.EndTime
		recap["frameCount"] = dbSession.FrameCount
		recap["scanCount"] = dbSession.ScanCount

		scanEvents := []model.ScanEvent{}
		err = db.Model(&model.ScanEvent{}).
			Where("session_id = ?", sessionIDInt).
			Order("time ASC").
			Find(&scanEvents).Error
		if err != nil {
			return fmt.Errorf("error getting scan events: %w", err)
		}

		scans := []any{}
		for _, event := range scanEvents {
			coord, _ := event.UserPosition.Coordinates()
			scan := map[string]any{
				"time":        event.Time,
				"position":    []float64{coord.XY.X, coord.XY.Y},
				"nearbyCount": event.NearbyCount,
				"capsuleIds":  event.CapsuleIDs,
			}
			scans = append(scans, scan)
		}
		recap["scans"] = scans

		selectionEvents := []model.SelectionEvent{}
		err = db.Model(&model.SelectionEvent{}).
			Where("session_id = ?", sessionIDInt).
			Order("time ASC").
			Find(&selectionEvents).Error
		if err != nil {
			return fmt.Errorf("error getting selection events: %w", err)
		}

		selections := []any{}
		for _, event := range selectionEvents {
			selection := map[string]any{
				"time":      event.Time,
				"capsuleId": event.CapsuleID,
				"source":    event.Source,
				"distance":  event.Distance,
			}
			selections = append(selections, selection)
		}
		recap["selections"] = selections

		fmt.Println("Got session data in ", time.Since(txStart))

		recapJSON, err := json.Marshal(recap)
		if err != nil {
			return fmt.Errorf("error marshalling session data: %w", err)
		}

		fileName := fmt.Sprintf("session_%d_%s.json.gz", dbSession.ID, dbSession.StartTime.Format("20060102_150405"))
		fileName = strings.ReplaceAll(fileName, " ", "_")
		fileName = strings.ReplaceAll(fileName, ":", "_")
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("error creating file: %w", err)
		}
		defer f.Close()

		gzWriter := gzip.NewWriter(f)
		defer gzWriter.Close()
		_, err = gzWriter.Write(recapJSON)
		if err != nil {
			return fmt.Errorf("error writing to gzip: %w", err)
		}

		fmt.Println("Wrote session data to ", fileName)
	}

	return nil
}

// reduceSession deletes selection-clear rows (empty capsule id) from the
// given sessions and runs a full VACUUM to recover space.
func reduceSession(sessionIDs []string) (err error) {
	db, err := getPostgresDB()
	if err != nil {
		return fmt.Errorf("error getting postgres database: %v", err)
	}

	for _, sessionID := range sessionIDs {
		sessionIDInt, err := strconv.Atoi(sessionID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var dbSession model.Session
		err = db.Model(&model.Session{}).Where("id = ?", sessionIDInt).First(&dbSession).Error
		if err != nil {
			return fmt.Errorf("error getting session: %w", err)
		}

		clearsToDelete := []model.SelectionEvent{}
		err = db.Model(&model.SelectionEvent{}).Where(
			"session_id = ? AND capsule_id = ''",
			dbSession.ID,
		).Order("time ASC").Find(&clearsToDelete).Error
		if err != nil {
			return fmt.Errorf("error getting selection clears to delete: %w", err)
		}

		if len(clearsToDelete) == 0 {
			fmt.Println("No selection clears to delete for sessionId ", sessionID, ", checked in ", time.Since(txStart))
			continue
		}

		err = db.Delete(&clearsToDelete).Error
		if err != nil {
			return fmt.Errorf("error deleting selection clears: %w", err)
		}

		fmt.Println("Deleted ", len(clearsToDelete), " selection clears from sessionId ", sessionID, " in ", time.Since(txStart))
	}

	fmt.Println("")
	fmt.Println("----------------------------------------")
	fmt.Println("")
	fmt.Println("Finished reducing selection events, running VACUUM to recover space...")
	txStart := time.Now()
	tables := []string{}
	err = db.Raw(
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`,
	).Scan(&tables).Error
	if err != nil {
		return fmt.Errorf("error getting tables to vacuum: %w", err)
	}

	for _, table := range tables {
		err = db.Raw(fmt.Sprintf("VACUUM (FULL) %s", table)).Error
		if err != nil {
			return fmt.Errorf("error running VACUUM on table %s: %w", table, err)
		}
	}

	fmt.Println("Finished VACUUM in ", time.Since(txStart))
	fmt.Println("Finished reducing, press enter to exit.")

	return nil
}
