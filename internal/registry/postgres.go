// internal/registry/postgres.go
package registry

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Pool wraps pgxpool.Pool.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to Postgres and verifies the connection.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// Migrate applies the embedded migrations in lexical order. Migrations are idempotent.
func Migrate(ctx context.Context, pool *Pool) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, file := range files {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

const pgErrUniqueViolation = "23505"

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// PostgresStore keeps the registry in the graduations table.
type PostgresStore struct {
	pool *Pool
}

func NewPostgresStore(pool *Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

func num(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseNum(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	b := d.BigInt()
	if b.Sign() < 0 || !b.IsUint64() {
		return 0, fmt.Errorf("value %s out of range", s)
	}
	return b.Uint64(), nil
}

func keyString(k solana.PublicKey) string {
	if k.IsZero() {
		return ""
	}
	return k.String()
}

func parseKey(s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(s)
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO graduations (
			pool_id, mint, symbol, exchange, exchange_pool, lp_kind,
			base_to_liquidity, tokens_to_liquidity, total_lp, creator_lp, protocol_lp, community_lp,
			positions, staking_pool, governance, graduation_fee, graduated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7::numeric, $8::numeric, $9::numeric, $10::numeric, $11::numeric, $12::numeric,
			$13, $14, $15, $16::numeric, $17
		)
	`
	positions := e.Positions
	if positions == nil {
		positions = []string{}
	}
	_, err := s.pool.Exec(ctx, query,
		e.Pool.String(),
		e.Mint.String(),
		e.Symbol,
		e.Exchange,
		e.ExchangePool.String(),
		e.LPKind,
		num(e.BaseToLiquidity),
		num(e.TokensToLiquidity),
		num(e.TotalLP),
		num(e.CreatorLP),
		num(e.ProtocolLP),
		num(e.CommunityLP),
		positions,
		keyString(e.StakingPool),
		keyString(e.Governance),
		num(e.GraduationFee),
		e.GraduatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert graduation: %w", err)
	}
	return nil
}

const selectColumns = `
	pool_id, mint, symbol, exchange, exchange_pool, lp_kind,
	base_to_liquidity::text, tokens_to_liquidity::text, total_lp::text,
	creator_lp::text, protocol_lp::text, community_lp::text,
	positions, staking_pool, governance, graduation_fee::text, graduated_at
`

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e                                   Entry
		pool, mint, exPool, staking, gov    string
		base, tokens, total, creator, proto string
		community, fee                      string
	)
	if err := row.Scan(
		&pool, &mint, &e.Symbol, &e.Exchange, &exPool, &e.LPKind,
		&base, &tokens, &total, &creator, &proto, &community,
		&e.Positions, &staking, &gov, &fee, &e.GraduatedAt,
	); err != nil {
		return Entry{}, err
	}

	keys := []struct {
		dst *solana.PublicKey
		src string
	}{{&e.Pool, pool}, {&e.Mint, mint}, {&e.ExchangePool, exPool}, {&e.StakingPool, staking}, {&e.Governance, gov}}
	for _, k := range keys {
		v, err := parseKey(k.src)
		if err != nil {
			return Entry{}, fmt.Errorf("parse address %q: %w", k.src, err)
		}
		*k.dst = v
	}

	nums := []struct {
		dst *uint64
		src string
	}{
		{&e.BaseToLiquidity, base}, {&e.TokensToLiquidity, tokens}, {&e.TotalLP, total},
		{&e.CreatorLP, creator}, {&e.ProtocolLP, proto}, {&e.CommunityLP, community},
		{&e.GraduationFee, fee},
	}
	for _, n := range nums {
		v, err := parseNum(n.src)
		if err != nil {
			return Entry{}, fmt.Errorf("parse amount: %w", err)
		}
		*n.dst = v
	}
	return e, nil
}

func (s *PostgresStore) Get(ctx context.Context, pool solana.PublicKey) (Entry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM graduations WHERE pool_id = $1`, pool.String())
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("get graduation: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM graduations ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list graduations: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan graduation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM graduations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count graduations: %w", err)
	}
	return n, nil
}

// TotalLiquidity sums the base asset moved into exchange liquidity by all graduations.
func (s *PostgresStore) TotalLiquidity(ctx context.Context) (decimal.Decimal, error) {
	var total string
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(base_to_liquidity), 0)::text FROM graduations`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum liquidity: %w", err)
	}
	return decimal.NewFromString(total)
}

// TotalLiquidity sums BaseToLiquidity over entries.
func TotalLiquidity(entries []Entry) decimal.Decimal {
	sum := new(big.Int)
	for _, e := range entries {
		sum.Add(sum, new(big.Int).SetUint64(e.BaseToLiquidity))
	}
	return decimal.NewFromBigInt(sum, 0)
}
