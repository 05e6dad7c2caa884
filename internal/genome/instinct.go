package genome

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// AddInstinct stores a trigger-to-response shortcut. Condition, when
// non-empty, is a javascript boolean expression; {query} inside it is
// replaced with the incoming query before evaluation.
func (s *Store) AddInstinct(ctx context.Context, trigger, response, condition string) (*types.Instinct, error) {
	trigger = strings.ToLower(strings.TrimSpace(trigger))
	if trigger == "" {
		return nil, fmt.Errorf("instinct trigger is empty")
	}
	if response == "" {
		return nil, fmt.Errorf("instinct response is empty")
	}

	now := time.Now().UTC()
	inst := &types.Instinct{
		ID:          s.newID(),
		Trigger:     trigger,
		Response:    response,
		Condition:   condition,
		SuccessRate: initialSuccessRate,
		Enabled:     true,
		CreatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO instincts (id, trigger, response, condition, trigger_count, success_rate, enabled, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, 1, ?)
		 ON CONFLICT(trigger) DO UPDATE SET response = excluded.response,
		        condition = excluded.condition, enabled = 1`,
		inst.ID, trigger, response, condition, initialSuccessRate, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert instinct: %w", err)
	}
	return inst, nil
}

// MatchInstinct finds an enabled instinct for the query: exact trigger
// match first, then bidirectional substring. A match bumps the trigger
// counter before returning.
func (s *Store) MatchInstinct(ctx context.Context, query string) (*types.Instinct, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, core.ErrNoInstinct
	}

	inst, err := s.scanInstinctRow(s.db.QueryRowContext(ctx,
		`SELECT id, trigger, response, condition, trigger_count, success_rate, enabled, created_at
		 FROM instincts WHERE enabled = 1 AND trigger = ?`, q))
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	if inst == nil {
		rows, qerr := s.db.QueryContext(ctx,
			`SELECT id, trigger, response, condition, trigger_count, success_rate, enabled, created_at
			 FROM instincts WHERE enabled = 1 ORDER BY trigger_count DESC, trigger`)
		if qerr != nil {
			return nil, qerr
		}

		// Close before the updates below; an open cursor pins the
		// store's single connection.
		for rows.Next() {
			candidate, serr := s.scanInstinctRow(rows)
			if serr != nil {
				rows.Close()
				return nil, serr
			}
			if strings.Contains(q, candidate.Trigger) || strings.Contains(candidate.Trigger, q) {
				inst = candidate
				break
			}
		}
		if rerr := rows.Err(); rerr != nil {
			rows.Close()
			return nil, rerr
		}
		rows.Close()
	}

	if inst == nil {
		return nil, core.ErrNoInstinct
	}

	if inst.Condition != "" {
		ok, evalErr := evalCondition(inst.Condition, q)
		if evalErr != nil {
			// A broken condition would fail on every query; disable the
			// instinct instead of evaluating it forever.
			s.log.Warnw("Disabling instinct with broken condition",
				"trigger", inst.Trigger,
				"error", evalErr.Error(),
			)
			s.db.ExecContext(ctx, `UPDATE instincts SET enabled = 0 WHERE id = ?`, inst.ID)
			return nil, core.ErrNoInstinct
		}
		if !ok {
			return nil, core.ErrNoInstinct
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE instincts SET trigger_count = trigger_count + 1 WHERE id = ?`, inst.ID); err != nil {
		return nil, err
	}
	inst.TriggerCount++

	return inst, nil
}

func (s *Store) scanInstinctRow(row scanner) (*types.Instinct, error) {
	var inst types.Instinct
	var condition sql.NullString
	var enabled int
	var createdAt string

	err := row.Scan(&inst.ID, &inst.Trigger, &inst.Response, &condition,
		&inst.TriggerCount, &inst.SuccessRate, &enabled, &createdAt)
	if err != nil {
		return nil, err
	}

	inst.Condition = condition.String
	inst.Enabled = enabled == 1
	inst.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &inst, nil
}

// ListInstincts returns every instinct ordered by trigger.
func (s *Store) ListInstincts(ctx context.Context) ([]*types.Instinct, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger, response, condition, trigger_count, success_rate, enabled, created_at
		 FROM instincts ORDER BY trigger`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instincts []*types.Instinct
	for rows.Next() {
		inst, err := s.scanInstinctRow(rows)
		if err != nil {
			return nil, err
		}
		instincts = append(instincts, inst)
	}
	return instincts, rows.Err()
}

// evalCondition runs the javascript condition with {query} substituted
// as a string literal and `query` bound as a variable. Arbitrary
// expressions can panic inside the vm, so that is caught here too.
func evalCondition(condition, query string) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("condition panicked: %v", r)
		}
	}()

	expr := strings.ReplaceAll(condition, "{query}", strconv.Quote(query))

	vm := goja.New()
	if err := vm.Set("query", query); err != nil {
		return false, err
	}
	val, err := vm.RunString(expr)
	if err != nil {
		return false, err
	}
	return val.ToBoolean(), nil
}
