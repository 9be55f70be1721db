package challenges

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const ruleColumns = `id, position, title, description, gate, frequency, duration_days,
	contribution, target, split, active, created_at, updated_at`

// PostgresRuleStore implements RuleStore backed by PostgreSQL
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a new PostgreSQL-backed RuleStore
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

// Add inserts a new rule into the database
func (s *PostgresRuleStore) Add(rule *ChallengeRule) error {
	contribution, target, err := marshalAmounts(rule)
	if err != nil {
		return err
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	result, err := s.db.Exec(`
		INSERT INTO challenge_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`, rule.ID, rule.Position, rule.Title, rule.Description, rule.Gate, string(rule.Frequency),
		rule.DurationDays, contribution, target, rule.Split, rule.Active, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
	}

	return nil
}

// Get retrieves a rule by ID
func (s *PostgresRuleStore) Get(id string) (*ChallengeRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleColumns+` FROM challenge_rules WHERE id = $1`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// List returns all rules in evaluation order
func (s *PostgresRuleStore) List() ([]*ChallengeRule, error) {
	return s.query(`SELECT ` + ruleColumns + ` FROM challenge_rules ORDER BY position ASC, id ASC`)
}

// ListActive returns the active rules in evaluation order
func (s *PostgresRuleStore) ListActive() ([]*ChallengeRule, error) {
	return s.query(`SELECT ` + ruleColumns + ` FROM challenge_rules WHERE active = true ORDER BY position ASC, id ASC`)
}

func (s *PostgresRuleStore) query(q string) ([]*ChallengeRule, error) {
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*ChallengeRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// Update modifies an existing rule; CreatedAt is preserved by the database
func (s *PostgresRuleStore) Update(rule *ChallengeRule) error {
	contribution, target, err := marshalAmounts(rule)
	if err != nil {
		return err
	}

	rule.UpdatedAt = time.Now()

	err = s.db.QueryRow(`
		UPDATE challenge_rules
		SET position = $1, title = $2, description = $3, gate = $4, frequency = $5,
			duration_days = $6, contribution = $7, target = $8, split = $9, active = $10,
			updated_at = $11
		WHERE id = $12
		RETURNING created_at
	`, rule.Position, rule.Title, rule.Description, rule.Gate, string(rule.Frequency),
		rule.DurationDays, contribution, target, rule.Split, rule.Active, rule.UpdatedAt,
		rule.ID).Scan(&rule.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, rule.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return nil
}

// Delete removes a rule from the database
func (s *PostgresRuleStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM challenge_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*ChallengeRule, error) {
	var (
		r                    ChallengeRule
		frequency            string
		contribution, target []byte
	)
	if err := row.Scan(&r.ID, &r.Position, &r.Title, &r.Description, &r.Gate, &frequency,
		&r.DurationDays, &contribution, &target, &r.Split, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Frequency = Frequency(frequency)

	var err error
	if r.Contribution, err = unmarshalAmount(contribution); err != nil {
		return nil, fmt.Errorf("rule %s contribution: %w", r.ID, err)
	}
	if r.Target, err = unmarshalAmount(target); err != nil {
		return nil, fmt.Errorf("rule %s target: %w", r.ID, err)
	}
	return &r, nil
}

// marshalAmounts encodes the amount formulas for the JSONB columns; nil
// formulas become NULL
func marshalAmounts(rule *ChallengeRule) (contribution, target sql.NullString, err error) {
	if contribution, err = marshalAmount(rule.Contribution); err != nil {
		return contribution, target, fmt.Errorf("failed to encode contribution: %w", err)
	}
	if target, err = marshalAmount(rule.Target); err != nil {
		return contribution, target, fmt.Errorf("failed to encode target: %w", err)
	}
	return contribution, target, nil
}

// marshalAmount returns text rather than bytes: lib/pq sends []byte as bytea,
// which jsonb does not accept
func marshalAmount(a *Amount) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalAmount(raw []byte) (*Amount, error) {
	if raw == nil {
		return nil, nil
	}
	var a Amount
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
