package evaluator

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"moss/internal/object"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// dbConn is the native state behind a connection userdata. An open
// transaction shadows the connection until commit or rollback.
type dbConn struct {
	db *sql.DB
	tx *sql.Tx
}

func dbLibrary() *object.Table {
	return makeLibrary(map[string]object.BuiltinFunction{
		"open": dbOpen,
	})
}

var dbMeta = func() *object.Table {
	methods := makeLibrary(map[string]object.BuiltinFunction{
		"query":    dbQuery,
		"exec":     dbExec,
		"begin":    dbBegin,
		"commit":   dbCommit,
		"rollback": dbRollback,
		"close":    dbClose,
	})
	meta := object.NewTable()
	_ = meta.Set(&object.String{Value: "__index"}, methods)
	return meta
}()

func dbOpen(ctx object.Context, args ...object.Object) object.Object {
	driver, err := stringArg(ctx, "open", args, 0)
	if err != nil {
		return err
	}
	dsn, err := stringArg(ctx, "open", args, 1)
	if err != nil {
		return err
	}

	db, openErr := sql.Open(driver, dsn)
	if openErr != nil {
		return ctx.NewError("failed to open connection: %v", openErr)
	}
	if pingErr := db.Ping(); pingErr != nil {
		db.Close()
		return ctx.NewError("failed to ping database: %v", pingErr)
	}

	handle := object.NewUserData("connection", &dbConn{db: db})
	handle.Meta = dbMeta
	return handle
}

func dbConnArg(ctx object.Context, fname string, args []object.Object) (*dbConn, *object.Error) {
	if len(args) < 1 {
		return nil, ctx.NewError("bad argument #1 to '%s' (connection expected, got no value)", fname)
	}
	ud, ok := args[0].(*object.UserData)
	if !ok || ud.Kind != "connection" {
		return nil, ctx.NewError("bad argument #1 to '%s' (connection expected, got %s)", fname, args[0].Type())
	}
	conn := ud.Value.(*dbConn)
	if conn.db == nil {
		return nil, ctx.NewError("attempt to use a closed connection")
	}
	return conn, nil
}

// dbParams converts positional script arguments to driver values.
func dbParams(args []object.Object) []interface{} {
	params := make([]interface{}, len(args))
	for i, arg := range args {
		switch arg := arg.(type) {
		case *object.Nil:
			params[i] = nil
		case *object.Boolean:
			params[i] = arg.Value
		case *object.Number:
			if arg.Value == math.Trunc(arg.Value) {
				params[i] = int64(arg.Value)
			} else {
				params[i] = arg.Value
			}
		case *object.String:
			params[i] = arg.Value
		default:
			params[i] = arg.Inspect()
		}
	}
	return params
}

func dbQuery(ctx object.Context, args ...object.Object) object.Object {
	conn, err := dbConnArg(ctx, "query", args)
	if err != nil {
		return err
	}
	query, err := stringArg(ctx, "query", args, 1)
	if err != nil {
		return err
	}

	params := dbParams(args[2:])

	var rows *sql.Rows
	var queryErr error
	if conn.tx != nil {
		rows, queryErr = conn.tx.Query(query, params...)
	} else {
		rows, queryErr = conn.db.Query(query, params...)
	}
	if queryErr != nil {
		return ctx.NewError("query failed: %v", queryErr)
	}
	defer rows.Close()

	return renderRows(ctx, rows)
}

func dbExec(ctx object.Context, args ...object.Object) object.Object {
	conn, err := dbConnArg(ctx, "exec", args)
	if err != nil {
		return err
	}
	query, err := stringArg(ctx, "exec", args, 1)
	if err != nil {
		return err
	}

	params := dbParams(args[2:])

	var result sql.Result
	var execErr error
	if conn.tx != nil {
		result, execErr = conn.tx.Exec(query, params...)
	} else {
		result, execErr = conn.db.Exec(query, params...)
	}
	if execErr != nil {
		return ctx.NewError("exec failed: %v", execErr)
	}

	affected, _ := result.RowsAffected()
	lastID, _ := result.LastInsertId()

	summary := object.NewTable()
	_ = summary.Set(&object.String{Value: "rows_affected"}, &object.Number{Value: float64(affected)})
	_ = summary.Set(&object.String{Value: "last_insert_id"}, &object.Number{Value: float64(lastID)})
	return summary
}

func dbBegin(ctx object.Context, args ...object.Object) object.Object {
	conn, err := dbConnArg(ctx, "begin", args)
	if err != nil {
		return err
	}
	if conn.tx != nil {
		return ctx.NewError("a transaction is already open")
	}

	tx, beginErr := conn.db.Begin()
	if beginErr != nil {
		return ctx.NewError("failed to begin transaction: %v", beginErr)
	}
	conn.tx = tx
	return args[0]
}

func dbCommit(ctx object.Context, args ...object.Object) object.Object {
	conn, err := dbConnArg(ctx, "commit", args)
	if err != nil {
		return err
	}
	if conn.tx == nil {
		return ctx.NewError("no open transaction")
	}

	commitErr := conn.tx.Commit()
	conn.tx = nil
	if commitErr != nil {
		return ctx.NewError("failed to commit transaction: %v", commitErr)
	}
	return args[0]
}

func dbRollback(ctx object.Context, args ...object.Object) object.Object {
	conn, err := dbConnArg(ctx, "rollback", args)
	if err != nil {
		return err
	}
	if conn.tx == nil {
		return ctx.NewError("no open transaction")
	}

	rollbackErr := conn.tx.Rollback()
	conn.tx = nil
	if rollbackErr != nil {
		return ctx.NewError("failed to rollback transaction: %v", rollbackErr)
	}
	return args[0]
}

func dbClose(ctx object.Context, args ...object.Object) object.Object {
	conn, err := dbConnArg(ctx, "close", args)
	if err != nil {
		return err
	}
	if conn.tx != nil {
		conn.tx.Rollback()
		conn.tx = nil
	}
	conn.db.Close()
	conn.db = nil
	return object.TRUE
}

// renderRows turns a result set into an array of row tables keyed by column
// name.
func renderRows(ctx object.Context, rows *sql.Rows) object.Object {
	columns, _ := rows.Columns()
	result := object.NewTable()

	index := 1
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if scanErr := rows.Scan(pointers...); scanErr != nil {
			return ctx.NewError("scan failed: %v", scanErr)
		}

		row := object.NewTable()
		for i, col := range columns {
			_ = row.Set(&object.String{Value: col}, columnValue(values[i]))
		}
		_ = result.Set(&object.Number{Value: float64(index)}, row)
		index++
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return ctx.NewError("query failed: %v", rowsErr)
	}
	return result
}

func columnValue(v interface{}) object.Object {
	if v == nil {
		return object.NIL
	}
	switch x := v.(type) {
	case int64:
		return &object.Number{Value: float64(x)}
	case float64:
		return &object.Number{Value: x}
	case []byte:
		return &object.String{Value: string(x)}
	case string:
		return &object.String{Value: x}
	case bool:
		return nativeBoolToBooleanObject(x)
	case time.Time:
		return &object.String{Value: x.Format(time.RFC3339)}
	default:
		return &object.String{Value: fmt.Sprintf("%v", v)}
	}
}
