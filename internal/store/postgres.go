package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Agents ---

func (s *PostgresStore) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var a models.Agent
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at, updated_at FROM agents WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agents (id, name, email, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		agent.ID, agent.Name, agent.Email, agent.CreatedAt, agent.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, agent_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.AgentID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, agentID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE agent_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND agent_id = $2 AND deleted_at IS NULL`, id, agentID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.AgentID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// --- Cotizaciones ---

const cotizacionCols = `id, agent_id, status, deal_id, cedula, nombre, fecha_nacimiento, genero, estado_civil, ciudad,
	 placa, marca, modelo, anio, valor, uso, created_at, updated_at`

func scanCotizacion(row pgx.Row) (*models.Cotizacion, error) {
	var c models.Cotizacion
	err := row.Scan(&c.ID, &c.AgentID, &c.Status, &c.DealID, &c.Cedula, &c.Nombre,
		&c.FechaNacimiento, &c.Genero, &c.EstadoCivil, &c.Ciudad,
		&c.Placa, &c.Marca, &c.Modelo, &c.Anio, &c.Valor, &c.Uso,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateCotizacion(ctx context.Context, c *models.Cotizacion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cotizaciones (`+cotizacionCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		c.ID, c.AgentID, c.Status, c.DealID, c.Cedula, c.Nombre,
		c.FechaNacimiento, c.Genero, c.EstadoCivil, c.Ciudad,
		c.Placa, c.Marca, c.Modelo, c.Anio, c.Valor, c.Uso,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create cotizacion: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCotizacion(ctx context.Context, id uuid.UUID) (*models.Cotizacion, error) {
	c, err := scanCotizacion(s.pool.QueryRow(ctx,
		`SELECT `+cotizacionCols+` FROM cotizaciones WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get cotizacion: %w", err)
	}
	return c, err
}

func (s *PostgresStore) GetCotizacionByDeal(ctx context.Context, dealID string) (*models.Cotizacion, error) {
	c, err := scanCotizacion(s.pool.QueryRow(ctx,
		`SELECT `+cotizacionCols+` FROM cotizaciones WHERE deal_id = $1 ORDER BY created_at DESC LIMIT 1`, dealID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get cotizacion by deal: %w", err)
	}
	return c, err
}

func (s *PostgresStore) UpdateCotizacion(ctx context.Context, id uuid.UUID, patch CotizacionPatch) (*models.Cotizacion, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	if patch.DealID != nil {
		sets = append(sets, fmt.Sprintf("deal_id = $%d", argIdx))
		args = append(args, *patch.DealID)
		argIdx++
	}
	if patch.Ciudad != nil {
		sets = append(sets, fmt.Sprintf("ciudad = $%d", argIdx))
		args = append(args, *patch.Ciudad)
		argIdx++
	}
	if patch.Valor != nil {
		sets = append(sets, fmt.Sprintf("valor = $%d", argIdx))
		args = append(args, *patch.Valor)
		argIdx++
	}
	if patch.Uso != nil {
		sets = append(sets, fmt.Sprintf("uso = $%d", argIdx))
		args = append(args, *patch.Uso)
		argIdx++
	}

	query := fmt.Sprintf(
		`UPDATE cotizaciones SET %s WHERE id = $1 RETURNING `+cotizacionCols,
		strings.Join(sets, ", "))

	c, err := scanCotizacion(s.pool.QueryRow(ctx, query, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update cotizacion: %w", err)
	}
	return c, err
}

func (s *PostgresStore) ListCotizaciones(ctx context.Context, agentID uuid.UUID, filter ListFilter) ([]*models.Cotizacion, int, error) {
	conditions := []string{"agent_id = $1"}
	args := []any{agentID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Placa != "" {
		conditions = append(conditions, fmt.Sprintf("placa = $%d", argIdx))
		args = append(args, strings.ToUpper(filter.Placa))
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM cotizaciones WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cotizaciones: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT `+cotizacionCols+` FROM cotizaciones WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cotizaciones: %w", err)
	}
	defer rows.Close()

	var cotizaciones []*models.Cotizacion
	for rows.Next() {
		c, err := scanCotizacion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan cotizacion: %w", err)
		}
		cotizaciones = append(cotizaciones, c)
	}
	return cotizaciones, total, rows.Err()
}

// --- Compared Plans ---

const planCols = `id, cotizacion_id, aseguradora, plan, prima_neta, prima_total, tasa,
	 coberturas, beneficios, deducibles, document_url, selected, version, created_at`

func scanPlan(row pgx.Row) (*models.ComparedPlan, error) {
	var p models.ComparedPlan
	err := row.Scan(&p.ID, &p.CotizacionID, &p.Aseguradora, &p.Plan,
		&p.PrimaNeta, &p.PrimaTotal, &p.Tasa,
		&p.Coberturas, &p.Beneficios, &p.Deducibles,
		&p.DocumentURL, &p.Selected, &p.Version, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AppendComparisonBatch inserts all plans under (current max version + 1) and
// marks the cotizacion completed, all inside one transaction. The header row
// is locked so two concurrent batches cannot claim the same version.
func (s *PostgresStore) AppendComparisonBatch(ctx context.Context, cotizacionID uuid.UUID, plans []*models.ComparedPlan) (int, error) {
	if len(plans) == 0 {
		return 0, ErrEmptyBatch
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin batch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM cotizaciones WHERE id = $1 FOR UPDATE`, cotizacionID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock cotizacion: %w", err)
	}

	var maxVersion int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM planes_comparados WHERE cotizacion_id = $1`,
		cotizacionID).Scan(&maxVersion)
	if err != nil {
		return 0, fmt.Errorf("read max version: %w", err)
	}
	version := maxVersion + 1

	for _, p := range plans {
		_, err = tx.Exec(ctx,
			`INSERT INTO planes_comparados (`+planCols+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			p.ID, cotizacionID, p.Aseguradora, p.Plan,
			p.PrimaNeta, p.PrimaTotal, p.Tasa,
			p.Coberturas, p.Beneficios, p.Deducibles,
			p.DocumentURL, p.Selected, version, p.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert plan: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE cotizaciones SET status = $2, updated_at = NOW() WHERE id = $1`,
		cotizacionID, models.CotizacionCompleted)
	if err != nil {
		return 0, fmt.Errorf("complete cotizacion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit batch tx: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, id uuid.UUID) (*models.ComparedPlan, error) {
	p, err := scanPlan(s.pool.QueryRow(ctx,
		`SELECT `+planCols+` FROM planes_comparados WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, err
}

// SelectPlan clears selected on every sibling sharing (cotizacion_id, version)
// and flags the target plan, applying any overrides, inside one transaction.
func (s *PostgresStore) SelectPlan(ctx context.Context, planID uuid.UUID, overrides SelectionOverrides) (*models.ComparedPlan, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin selection tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var cotizacionID uuid.UUID
	var version int
	err = tx.QueryRow(ctx,
		`SELECT cotizacion_id, version FROM planes_comparados WHERE id = $1 FOR UPDATE`,
		planID).Scan(&cotizacionID, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock plan: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE planes_comparados SET selected = FALSE
		 WHERE cotizacion_id = $1 AND version = $2 AND id <> $3 AND selected`,
		cotizacionID, version, planID)
	if err != nil {
		return nil, fmt.Errorf("clear previous selection: %w", err)
	}

	sets := []string{"selected = TRUE"}
	args := []any{planID}
	argIdx := 2
	if overrides.PrimaNeta != nil {
		sets = append(sets, fmt.Sprintf("prima_neta = $%d", argIdx))
		args = append(args, *overrides.PrimaNeta)
		argIdx++
	}
	if overrides.Tasa != nil {
		sets = append(sets, fmt.Sprintf("tasa = $%d", argIdx))
		args = append(args, *overrides.Tasa)
		argIdx++
	}

	query := fmt.Sprintf(
		`UPDATE planes_comparados SET %s WHERE id = $1 RETURNING `+planCols,
		strings.Join(sets, ", "))

	p, err := scanPlan(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("set selection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit selection tx: %w", err)
	}
	return p, nil
}

// LatestPlans returns all plans belonging to the most recent maxVersions
// distinct versions of a cotizacion, newest version first.
func (s *PostgresStore) LatestPlans(ctx context.Context, cotizacionID uuid.UUID, maxVersions int) ([]*models.ComparedPlan, error) {
	if maxVersions <= 0 {
		maxVersions = 1
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+planCols+` FROM planes_comparados
		 WHERE cotizacion_id = $1 AND version IN (
		   SELECT DISTINCT version FROM planes_comparados
		   WHERE cotizacion_id = $1 ORDER BY version DESC LIMIT $2
		 )
		 ORDER BY version DESC, created_at, aseguradora`,
		cotizacionID, maxVersions)
	if err != nil {
		return nil, fmt.Errorf("latest plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.ComparedPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
