// Package database provides the SQLite connection behind the device
// registry.
//
// It opens the file with WAL mode and a busy timeout, limits the pool to
// the single SQLite writer and applies versioned migrations from any
// fs.FS (the embedded migrations package in production, fstest.MapFS in
// tests).
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
// Migrations are additive: new columns are nullable or carry a default,
// and every .up.sql ships with a .down.sql.
package database
