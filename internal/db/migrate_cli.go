package db

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
)

// MigrateCommand runs one `equipment migrate` action against the database
// at DBPath. Output goes to Out; In is read for the force confirmation.
type MigrateCommand struct {
	DBPath string
	Out    io.Writer
	In     io.Reader
	// Yes skips the force confirmation prompt.
	Yes bool
}

// Run dispatches args[0] to the matching action.
func (c *MigrateCommand) Run(args []string) error {
	if len(args) < 1 {
		c.PrintHelp()
		return fmt.Errorf("missing migrate action")
	}
	action := args[0]
	if action == "help" {
		c.PrintHelp()
		return nil
	}

	migFS, err := getMigrationsFS()
	if err != nil {
		return fmt.Errorf("failed to get migrations filesystem: %w", err)
	}
	// migrations own the schema, so open without applying them
	database, err := OpenDB(c.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	switch action {
	case "up":
		if err := database.MigrateUp(migFS); err != nil {
			return err
		}
		fmt.Fprintln(c.Out, "✓ All migrations applied")
		return c.printVersion(database, migFS)

	case "down":
		if err := database.MigrateDown(migFS); err != nil {
			return err
		}
		fmt.Fprintln(c.Out, "✓ Rolled back one migration")
		return c.printVersion(database, migFS)

	case "status":
		return c.status(database, migFS)

	case "version":
		n, err := versionArg(args)
		if err != nil {
			return err
		}
		if err := database.MigrateTo(migFS, uint(n)); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "✓ Migrated to version %d\n", n)
		return nil

	case "force":
		n, err := versionArg(args)
		if err != nil {
			return err
		}
		if !c.confirm(fmt.Sprintf("Force migration version to %d? This is for recovering from a dirty state. [y/N]: ", n)) {
			fmt.Fprintln(c.Out, "Aborted")
			return nil
		}
		if err := database.MigrateForce(migFS, n); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "✓ Migration version forced to %d\n", n)
		return nil

	default:
		c.PrintHelp()
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

func versionArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: equipment migrate %s <version_number>", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid version number: %s", args[1])
	}
	return n, nil
}

func (c *MigrateCommand) confirm(prompt string) bool {
	if c.Yes {
		return true
	}
	fmt.Fprint(c.Out, prompt)
	if c.In == nil {
		return false
	}
	line, _ := bufio.NewReader(c.In).ReadString('\n')
	line = strings.TrimSpace(line)
	return line == "y" || line == "Y"
}

func (c *MigrateCommand) printVersion(database *DB, migFS fs.FS) error {
	version, dirty, err := database.MigrateVersion(migFS)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func (c *MigrateCommand) status(database *DB, migFS fs.FS) error {
	version, dirty, err := database.MigrateVersion(migFS)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	latest, err := LatestMigrationVersion(migFS)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.Out, "=== Migration Status ===")
	fmt.Fprintf(c.Out, "Current version: %d\n", version)
	fmt.Fprintf(c.Out, "Latest available: %d\n", latest)
	fmt.Fprintf(c.Out, "Dirty: %v\n", dirty)
	switch {
	case dirty:
		fmt.Fprintln(c.Out, "\n⚠️  A migration failed mid-execution. Inspect the database, then run: equipment migrate force <version>")
	case version < latest:
		fmt.Fprintf(c.Out, "\n⚠️  %d migration(s) pending. Run: equipment migrate up\n", latest-version)
	default:
		fmt.Fprintln(c.Out, "\n✓ Database is up to date")
	}
	return nil
}

// LatestMigrationVersion returns the highest version number among the
// *.up.sql files in migFS.
func LatestMigrationVersion(migFS fs.FS) (uint, error) {
	entries, err := fs.ReadDir(migFS, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to list migrations: %w", err)
	}
	var latest uint
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			continue
		}
		if uint(n) > latest {
			latest = uint(n)
		}
	}
	return latest, nil
}

// PrintHelp writes the migrate usage text.
func (c *MigrateCommand) PrintHelp() {
	fmt.Fprint(c.Out, `Database Migration Commands

Usage: equipment migrate <command> [options]

Commands:
  up              Apply all pending migrations
  down            Roll back one migration
  status          Show current and latest migration version
  version <N>     Migrate up or down to version N
  force <N>       Force the recorded version to N (recovery only)
  help            Show this help message

Examples:
  equipment migrate up
  equipment migrate status
  equipment migrate version 1
  equipment -yes migrate force 1
`)
}
