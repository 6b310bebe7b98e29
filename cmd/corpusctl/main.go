// Command corpusctl builds and inspects the bbolt corpus database that
// phishscreend can load with SCREEN_CORPUS_DB.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/normalize"
	"github.com/haukened/phishscreen/internal/screen/repos/membership/bolt"
	"github.com/haukened/phishscreen/internal/screen/repos/membership/corpus"
)

const (
	version = "0.1.0-dev"
	appName = "corpusctl"

	defaultDBPath = "corpus.db"
)

var errUsage = errors.New("usage: corpusctl <import|stats|check|purge> [flags]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "import":
		return runImport(ctx, rest, out)
	case "stats":
		return runStats(rest, out)
	case "check":
		return runCheck(rest, out)
	case "purge":
		return runPurge(rest, out)
	case "version", "--version", "-v":
		_, err := fmt.Fprintf(out, "%s %s\n", appName, version)
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string, db *string) *flag.FlagSet {
	fs := flag.NewFlagSet(appName+" "+name, flag.ContinueOnError)
	fs.StringVarP(db, "db", "d", defaultDBPath, "path to the corpus database")
	return fs
}

// runImport replaces the database contents with the normalized entries of
// every list file named on the command line.
func runImport(ctx context.Context, args []string, out io.Writer) error {
	var (
		db       string
		ver      uint64
		logLevel string
	)
	fs := newFlagSet("import", &db)
	fs.Uint64Var(&ver, "corpus-version", 0, "version recorded with the import (default: current unix time)")
	fs.StringVar(&logLevel, "log-level", "warn", "log level for parse warnings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: import needs at least one list file", errUsage)
	}
	if err := log.Configure("dev", logLevel); err != nil {
		return err
	}
	logger := log.GetLogger()

	var entries []string
	for _, path := range fs.Args() {
		raw, err := corpus.NewFileSource(path, logger).Entries(ctx)
		if err != nil {
			return err
		}
		for _, e := range raw {
			entries = append(entries, string(normalize.URL(e)))
		}
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries found in %v", fs.Args())
	}

	now := time.Now().Unix()
	if ver == 0 {
		ver = uint64(now)
	}

	store, err := bolt.New(db)
	if err != nil {
		return fmt.Errorf("open %s: %w", db, err)
	}
	defer store.Close()

	if err := store.RebuildAll(entries, ver, now); err != nil {
		return fmt.Errorf("import into %s: %w", db, err)
	}
	st := store.Stats()
	_, err = fmt.Fprintf(out, "imported %d entries (%d unique) into %s, version %d\n", len(entries), st.Count, db, st.Version)
	return err
}

func runStats(args []string, out io.Writer) error {
	var db string
	fs := newFlagSet("stats", &db)
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := bolt.OpenReadOnly(db)
	if err != nil {
		return fmt.Errorf("open %s: %w", db, err)
	}
	defer store.Close()

	st := store.Stats()
	updated := "never"
	if st.UpdatedUnix > 0 {
		updated = time.Unix(st.UpdatedUnix, 0).UTC().Format(time.RFC3339)
	}
	_, err = fmt.Fprintf(out, "path:    %s\nentries: %d\nversion: %d\nupdated: %s\n", db, st.Count, st.Version, updated)
	return err
}

// runCheck prints whether each URL's normalized form is stored. Unlike the
// filter this lookup is exact.
func runCheck(args []string, out io.Writer) error {
	var db string
	fs := newFlagSet("check", &db)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: check needs at least one URL", errUsage)
	}
	store, err := bolt.OpenReadOnly(db)
	if err != nil {
		return fmt.Errorf("open %s: %w", db, err)
	}
	defer store.Close()

	for _, raw := range fs.Args() {
		key := normalize.URL(raw)
		found, err := store.Contains(string(key))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\t%t\n", raw, key, found); err != nil {
			return err
		}
	}
	return nil
}

func runPurge(args []string, out io.Writer) error {
	var db string
	fs := newFlagSet("purge", &db)
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := bolt.New(db)
	if err != nil {
		return fmt.Errorf("open %s: %w", db, err)
	}
	defer store.Close()

	if err := store.Purge(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "purged %s\n", db)
	return err
}
