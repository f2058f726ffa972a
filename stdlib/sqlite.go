package stdlib

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/chazu/dictu/vm"
)

// ---------------------------------------------------------------------------
// Sqlite
// ---------------------------------------------------------------------------

// database is the state behind a Sqlite connection object.
type database struct {
	db     *sql.DB
	path   string
	closed bool
}

func (d *database) close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

func buildSqlite(v *vm.VM) *vm.ObjModule {
	return newModule(v, "Sqlite",
		function{"connect", sqliteConnect},
	)
}

// connect(path) opens a database; ":memory:" gives a private in-memory one.
func sqliteConnect(v *vm.VM, argCount int, args []vm.Value) vm.Value {
	if argCount != 1 {
		return v.Fail("connect() takes 1 argument (%d given).", argCount)
	}
	path, ok := v.ArgString(args, 0)
	if !ok {
		return v.Fail("connect() argument must be a string.")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return v.ErrorResult("Unable to open database '%s': %s", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return v.ErrorResult("Unable to open database '%s': %s", path, err)
	}
	// one connection keeps ":memory:" databases consistent across calls
	db.SetMaxOpenConns(1)
	log.Debugf("opened sqlite database %s", path)

	state := &database{db: db, path: path}
	conn := v.NewAbstract("Sqlite", state, func() {
		if !state.closed {
			log.Debugf("closing collected sqlite database %s", path)
		}
		state.close()
	})
	v.Push(conn.Value())
	v.DefineNative(&conn.Methods, "execute", sqliteExecute)
	v.DefineNative(&conn.Methods, "close", sqliteClose)
	r := v.Success(conn.Value())
	v.Pop()
	return r
}

func receiverDatabase(v *vm.VM, args []vm.Value) *database {
	conn, _ := vm.As[*vm.ObjAbstract](v, args[0])
	return conn.State.(*database)
}

// returnsRows reports whether query produces a result set.
func returnsRows(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "PRAGMA", "WITH", "VALUES", "EXPLAIN"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return strings.Contains(q, "RETURNING")
}

// execute(sql[, params]) runs one statement. Queries return a Result
// holding a list of rows, each a list of column values; other statements
// return a Result holding nil.
func sqliteExecute(v *vm.VM, argCount int, args []vm.Value) vm.Value {
	if argCount != 1 && argCount != 2 {
		return v.Fail("execute() takes 1 or 2 arguments (%d given).", argCount)
	}
	d := receiverDatabase(v, args)
	if d.closed {
		return v.ErrorResult("Database '%s' is closed.", d.path)
	}
	query, ok := v.ArgString(args, 1)
	if !ok {
		return v.Fail("execute() argument must be a string.")
	}

	var params []any
	if argCount == 2 {
		list, ok := vm.As[*vm.ObjList](v, args[2])
		if !ok {
			return v.Fail("execute() parameters must be a list.")
		}
		for _, p := range list.Values {
			g, err := v.ToGo(p)
			if err != nil {
				return v.ErrorResult("execute(): %s", err)
			}
			params = append(params, g)
		}
	}

	if !returnsRows(query) {
		if _, err := d.db.Exec(query, params...); err != nil {
			return v.ErrorResult("%s", err)
		}
		return v.Success(vm.Nil)
	}

	rows, err := d.db.Query(query, params...)
	if err != nil {
		return v.ErrorResult("%s", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return v.ErrorResult("%s", err)
	}
	result := []any{}
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return v.ErrorResult("%s", err)
		}
		result = append(result, dest)
	}
	if err := rows.Err(); err != nil {
		return v.ErrorResult("%s", err)
	}
	return fromGo(v, "execute()", result)
}

func sqliteClose(v *vm.VM, argCount int, args []vm.Value) vm.Value {
	if argCount != 0 {
		return v.Fail("close() takes no arguments (%d given).", argCount)
	}
	d := receiverDatabase(v, args)
	if err := d.close(); err != nil {
		return v.Fail("Unable to close database '%s': %s", d.path, err)
	}
	log.Debugf("closed sqlite database %s", d.path)
	return vm.Nil
}
