package sqlstore

import (
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed scripts
var scripts embed.FS

// Dialect holds what differs between the supported databases.
type Dialect struct {
	// Name selects the embedded scripts.
	Name string
	// Driver is the database/sql driver name.
	Driver      string
	placeholder func(n int) string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		placeholder: func(int) string { return "?" },
	}
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
	}
}

// bind rewrites the numbered parameters ":1", ":2", ... of query into the
// dialect's placeholders.
func (d Dialect) bind(query string, args int) string {
	out := query
	for n := args; n >= 1; n-- {
		out = strings.ReplaceAll(out, ":"+strconv.Itoa(n), d.placeholder(n))
	}
	return out
}

func (d Dialect) script(name string) (fs.File, error) {
	return scripts.Open("scripts/" + d.Name + "/" + name + ".sql")
}
