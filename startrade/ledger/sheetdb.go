package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/hyeseon-dev/startrade/startrade/logger"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

// sheetRow is one materialized spreadsheet row. The cells array is sparse at
// the tail exactly like the Row type it round-trips with.
type sheetRow struct {
	bun.BaseModel `bun:"table:sheet_rows,alias:sr"`

	ID     int64    `bun:"id,pk,autoincrement"`
	Sheet  string   `bun:"sheet,notnull"`
	RowNum int      `bun:"row_num,notnull"`
	Cells  []string `bun:"cells,array"`
}

// SheetDB implements Gateway on top of Postgres, one table holding every sheet
// as (sheet, row_num, cells) triples. Callers get only the row/cell primitives;
// transactions stay an internal detail so the engine is forced to provide its
// own serialization, same as against the real spreadsheet.
type SheetDB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func NewSheetDB(ctx context.Context, cfg DBConfig) (*SheetDB, error) {
	var conn net.Conn
	var err error

	tryDial := func() (net.Conn, error) {
		addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
		if c, e := net.DialTimeout("tcp4", addr, defaultConnTimeout); e == nil {
			return c, nil
		}
		return net.DialTimeout("tcp6", addr, defaultConnTimeout)
	}

	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = tryDial()
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	defer conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &SheetDB{pool: pool, bunDB: newBunDB(pool)}
	if err := db.initializeSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize sheet schema: %w", err)
	}
	return db, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func newBunDB(pool *pgxpool.Pool) *bun.DB {
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pool.Config().ConnConfig.User,
		pool.Config().ConnConfig.Password,
		pool.Config().ConnConfig.Host,
		pool.Config().ConnConfig.Port,
		pool.Config().ConnConfig.Database,
		sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *SheetDB) initializeSchema(ctx context.Context) error {
	_, err := db.bunDB.NewCreateTable().
		Model((*sheetRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create sheet_rows table: %w", err)
	}

	_, err = db.bunDB.NewCreateIndex().
		Model((*sheetRow)(nil)).
		Index("idx_sheet_rows_sheet_row").
		Unique().
		Column("sheet", "row_num").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create sheet_rows index: %w", err)
	}

	slog.Info("Sheet store schema initialized", slog.String("type", "ledger"))
	return nil
}

func (db *SheetDB) Close() {
	if db.bunDB != nil {
		db.bunDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

func (db *SheetDB) ReadRows(ctx context.Context, sheetRange string) ([]Row, error) {
	start := time.Now()

	var stored []sheetRow
	err := db.bunDB.NewSelect().
		Model(&stored).
		Where("sheet = ?", sheetRange).
		Order("row_num ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", sheetRange, err)
	}

	var maxRow int
	if n := len(stored); n > 0 {
		maxRow = stored[n-1].RowNum
	}

	// Dense result: gaps left by out-of-order writes come back as empty rows so
	// row indexes stay aligned with sheet row numbers.
	rows := make([]Row, maxRow)
	for i := range rows {
		rows[i] = Row{}
	}
	for _, sr := range stored {
		rows[sr.RowNum-1] = Row(sr.Cells)
	}

	logger.LogLedger("read", sheetRange, time.Since(start), nil)
	return rows, nil
}

func (db *SheetDB) WriteCell(ctx context.Context, ref CellRef, value string) error {
	tx, err := db.bunDB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to start cell write: %w", err)
	}
	defer tx.Rollback()

	row := new(sheetRow)
	err = tx.NewSelect().
		Model(row).
		Where("sheet = ? AND row_num = ?", ref.Sheet, ref.Row).
		For("UPDATE").
		Scan(ctx)

	switch {
	case err == sql.ErrNoRows:
		cells := make([]string, ref.Col)
		cells[ref.Col-1] = value
		_, err = tx.NewInsert().
			Model(&sheetRow{Sheet: ref.Sheet, RowNum: ref.Row, Cells: cells}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to write cell %s: %w", ref, err)
		}
	case err != nil:
		return fmt.Errorf("failed to read cell %s: %w", ref, err)
	default:
		cells := row.Cells
		for len(cells) < ref.Col {
			cells = append(cells, "")
		}
		cells[ref.Col-1] = value
		_, err = tx.NewUpdate().
			Model(row).
			Set("cells = ?", pgdialect.Array(cells)).
			Where("id = ?", row.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to write cell %s: %w", ref, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cell write %s: %w", ref, err)
	}
	return nil
}

func (db *SheetDB) AppendRows(ctx context.Context, sheetRange string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := db.bunDB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to start append: %w", err)
	}
	defer tx.Rollback()

	var maxRow int
	err = tx.NewSelect().
		Model((*sheetRow)(nil)).
		ColumnExpr("COALESCE(MAX(row_num), 0)").
		Where("sheet = ?", sheetRange).
		Scan(ctx, &maxRow)
	if err != nil {
		return fmt.Errorf("failed to find last row of %s: %w", sheetRange, err)
	}

	stored := make([]sheetRow, len(rows))
	for i, row := range rows {
		stored[i] = sheetRow{
			Sheet:  sheetRange,
			RowNum: maxRow + i + 1,
			Cells:  []string(row),
		}
	}

	if _, err := tx.NewInsert().Model(&stored).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append %d rows to %s: %w", len(rows), sheetRange, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit append to %s: %w", sheetRange, err)
	}

	logger.LogLedger("append", sheetRange, time.Since(start), nil)
	return nil
}
