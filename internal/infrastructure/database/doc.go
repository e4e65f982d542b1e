// Package database provides SQLite connectivity for the irrigation controller.
//
// The database holds the pump/pot/plant snapshot read by the local state
// provider. It is opened with WAL mode and a busy timeout, and its schema is
// managed by additive migrations embedded into the binary:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql, and are registered with RegisterMigrations.
// All queries use parameterised statements.
package database
