// Package database provides SQLite connectivity for the sensord audit trail.
//
// This package manages:
//   - Database connection with WAL mode and busy timeout
//   - Schema migrations from an fs.FS of *.up.sql / *.down.sql files
//   - Connection lifecycle and health checks
//
// The sensor registry itself lives in memory; only the audit trail is
// written here.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each migration runs in its own transaction.
package database
