package feature

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/flagkit/pkg/pg"
)

// PostgresStore is the production Store implementation on top of a pgx pool.
// The schema lives in the migrations directory and is applied with pg.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an established connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const featureColumns = `id, key, environment, description, is_archived, rules_version, created_at, updated_at`

func scanFeature(row pgx.Row) (Feature, error) {
	var f Feature
	err := row.Scan(&f.ID, &f.Key, &f.Environment, &f.Description, &f.Archived,
		&f.RulesVersion, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Feature{}, ErrFeatureNotFound
		}
		return Feature{}, err
	}
	return f, nil
}

func (s *PostgresStore) CreateFeature(ctx context.Context, in CreateFeatureInput) (Feature, error) {
	if err := in.Validate(); err != nil {
		return Feature{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO features (id, key, environment, description, is_archived)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+featureColumns,
		uuid.NewString(), in.Key, in.Environment, in.Description, in.Archived)

	f, err := scanFeature(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Feature{}, ErrFeatureExists
		}
		return Feature{}, err
	}
	return f, nil
}

func (s *PostgresStore) GetFeature(ctx context.Context, id string) (Feature, error) {
	return scanFeature(s.pool.QueryRow(ctx,
		`SELECT `+featureColumns+` FROM features WHERE id = $1`, id))
}

func (s *PostgresStore) GetFeatureByKey(ctx context.Context, key string, env Environment) (Feature, error) {
	return scanFeature(s.pool.QueryRow(ctx,
		`SELECT `+featureColumns+` FROM features WHERE key = $1 AND environment = $2`, key, env))
}

func (s *PostgresStore) ListFeatures(ctx context.Context) ([]Feature, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+featureColumns+` FROM features ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateFeature(ctx context.Context, id string, patch FeaturePatch) (Feature, error) {
	return scanFeature(s.pool.QueryRow(ctx, `
		UPDATE features
		SET description = COALESCE($2, description),
		    is_archived = COALESCE($3, is_archived),
		    updated_at  = now()
		WHERE id = $1
		RETURNING `+featureColumns,
		id, patch.Description, patch.Archived))
}

func (s *PostgresStore) BumpRulesVersion(ctx context.Context, featureID string) (int64, error) {
	// The increment happens inside the database, so concurrent mutations on
	// the same feature can never lose a version bump.
	var version int64
	err := s.pool.QueryRow(ctx, `
		UPDATE features
		SET rules_version = rules_version + 1, updated_at = now()
		WHERE id = $1
		RETURNING rules_version`, featureID).Scan(&version)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, ErrFeatureNotFound
		}
		return 0, err
	}
	return version, nil
}

const ruleColumns = `id, feature_id, priority, rule_type, enabled, rollout_percent,
	variants, conditions, schedule, created_at, updated_at`

func scanRule(row pgx.Row) (Rule, error) {
	var r Rule
	err := row.Scan(&r.ID, &r.FeatureID, &r.Priority, &r.Type, &r.Enabled, &r.RolloutPercent,
		&r.Variants, &r.Conditions, &r.Schedule, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Rule{}, ErrRuleNotFound
		}
		return Rule{}, err
	}
	return r, nil
}

func (s *PostgresStore) CreateRule(ctx context.Context, featureID string, in RuleInput) (Rule, error) {
	if err := in.Validate(); err != nil {
		return Rule{}, err
	}

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO rules (id, feature_id, priority, rule_type, enabled,
		                   rollout_percent, variants, conditions, schedule)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+ruleColumns,
		uuid.NewString(), featureID, in.Priority, in.Type, enabled,
		in.RolloutPercent, in.Variants, in.Conditions, in.Schedule)

	r, err := scanRule(row)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return Rule{}, ErrFeatureNotFound
		}
		return Rule{}, err
	}
	return r, nil
}

func (s *PostgresStore) GetRule(ctx context.Context, featureID, ruleID string) (Rule, error) {
	return scanRule(s.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE id = $1 AND feature_id = $2`, ruleID, featureID))
}

func (s *PostgresStore) ListRules(ctx context.Context, featureID string) ([]Rule, error) {
	return s.listRules(ctx, featureID, false)
}

func (s *PostgresStore) ListEnabledRules(ctx context.Context, featureID string) ([]Rule, error) {
	return s.listRules(ctx, featureID, true)
}

func (s *PostgresStore) listRules(ctx context.Context, featureID string, enabledOnly bool) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE feature_id = $1`
	if enabledOnly {
		query += ` AND enabled`
	}
	query += ` ORDER BY priority DESC, updated_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, featureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateRule(ctx context.Context, featureID, ruleID string, patch RulePatch) (Rule, error) {
	if err := patch.Validate(); err != nil {
		return Rule{}, err
	}

	return scanRule(s.pool.QueryRow(ctx, `
		UPDATE rules
		SET priority        = COALESCE($3, priority),
		    rule_type       = COALESCE($4, rule_type),
		    enabled         = COALESCE($5, enabled),
		    rollout_percent = COALESCE($6, rollout_percent),
		    variants        = COALESCE($7, variants),
		    conditions      = COALESCE($8, conditions),
		    schedule        = COALESCE($9, schedule),
		    updated_at      = now()
		WHERE id = $1 AND feature_id = $2
		RETURNING `+ruleColumns,
		ruleID, featureID, patch.Priority, patch.Type, patch.Enabled,
		patch.RolloutPercent, patch.Variants, patch.Conditions, patch.Schedule))
}

func (s *PostgresStore) DeleteRule(ctx context.Context, featureID, ruleID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM rules WHERE id = $1 AND feature_id = $2`, ruleID, featureID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *PostgresStore) CreateEvaluation(ctx context.Context, rec Evaluation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO evaluations (feature_key, environment, subject_key, subject,
		                         result_enabled, variant_key, matched_rule_id, reason, decision_hash)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)`,
		rec.FeatureKey, rec.Environment, rec.SubjectKey, rec.Subject,
		rec.ResultEnabled, rec.VariantKey, rec.MatchedRuleID, rec.Reason, int64(rec.DecisionHash))
	return err
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
