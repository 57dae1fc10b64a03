package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net"
	"strings"
	"time"

	"paydash/internal/domain"
	"paydash/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, amount, receiver, status, method, created_at`

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) (uuid.UUID, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO payments (id, amount, receiver, status, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, query, p.ID, p.Amount, p.Receiver, p.Status, p.Method, p.CreatedAt)
	if err != nil {
		return uuid.Nil, classify(err, "failed to insert payment")
	}
	return id, nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	err := r.db.GetContext(ctx, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, classify(err, "failed to find payment")
	}
	return &p, nil
}

// Query reads the page and the total inside one read-only repeatable-read
// transaction so both observe the same snapshot.
func (r *PaymentRepository) Query(ctx context.Context, q domain.PageQuery) ([]*domain.Payment, int, error) {
	where, args := buildWhere(q.Predicate)

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, classify(err, "failed to begin payment query")
	}
	defer tx.Rollback()

	var total int
	if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM payments`+where, args...); err != nil {
		return nil, 0, classify(err, "failed to count payments")
	}

	payments := []*domain.Payment{}
	if q.Offset < total {
		query := fmt.Sprintf(`SELECT %s FROM payments%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			paymentColumns, where, len(args)+1, len(args)+2)
		if err := tx.SelectContext(ctx, &payments, query, append(args, q.Limit, q.Offset)...); err != nil {
			return nil, 0, classify(err, "failed to list payments")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, classify(err, "failed to finish payment query")
	}
	return payments, total, nil
}

func (r *PaymentRepository) Count(ctx context.Context, p domain.Predicate) (int, error) {
	where, args := buildWhere(p)
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM payments`+where, args...); err != nil {
		return 0, classify(err, "failed to count payments")
	}
	return n, nil
}

func (r *PaymentRepository) SumAmount(ctx context.Context, p domain.Predicate) (decimal.Decimal, error) {
	where, args := buildWhere(p)
	var sum decimal.Decimal
	if err := r.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(amount), 0) FROM payments`+where, args...); err != nil {
		return decimal.Zero, classify(err, "failed to sum payments")
	}
	return sum, nil
}

func (r *PaymentRepository) SumAmountByDay(ctx context.Context, p domain.Predicate, loc *time.Location) ([]domain.DailyRevenue, error) {
	where, args := buildWhere(p)
	tz := len(args) + 1
	query := fmt.Sprintf(`
		SELECT
			TO_CHAR(created_at AT TIME ZONE $%d, 'YYYY-MM-DD') AS day,
			COALESCE(SUM(amount), 0) AS revenue
		FROM payments%s
		GROUP BY day
		ORDER BY day ASC
	`, tz, where)

	days := []domain.DailyRevenue{}
	if err := r.db.SelectContext(ctx, &days, query, append(args, loc.String())...); err != nil {
		return nil, classify(err, "failed to group payments by day")
	}
	return days, nil
}

func (r *PaymentRepository) Ping(ctx context.Context) error {
	return classify(r.db.PingContext(ctx), "database ping failed")
}

// buildWhere renders the present predicate fields as a positional WHERE clause.
func buildWhere(p domain.Predicate) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(expr string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if p.Status != nil {
		add("status = $%d", string(*p.Status))
	}
	if p.Method != nil {
		add("method = $%d", string(*p.Method))
	}
	if p.CreatedFrom != nil {
		add("created_at >= $%d", *p.CreatedFrom)
	}
	if p.CreatedTo != nil {
		add("created_at <= $%d", *p.CreatedTo)
	}
	if p.CreatedBefore != nil {
		add("created_at < $%d", *p.CreatedBefore)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// classify separates connectivity failures, which callers may retry, from
// everything else.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return errors.Unavailable(errors.Wrap(err, message))
	}
	return errors.Wrap(err, message)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
