package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
	"github.com/rl1809/bizdesk/internal/port"
)

var ErrOptimisticLock = errors.New("optimistic lock conflict")

var _ port.DatabaseRepository = (*MySQLAdapter)(nil)

//go:embed schema.sql
var schema string

const tierSetting = "user_tier"

// MySQLAdapter journals store actions. The DSN must set parseTime=true.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Apply persists a batch of actions in one transaction. Either every action
// of the batch is written or none is.
func (m *MySQLAdapter) Apply(ctx context.Context, batch []store.Action) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, a := range batch {
		if err := applyAction(ctx, tx, a); err != nil {
			return fmt.Errorf("%s: %w", a.Type(), err)
		}
	}

	return tx.Commit()
}

func applyAction(ctx context.Context, tx *sql.Tx, action store.Action) error {
	switch a := action.(type) {
	case store.AddInventoryItem:
		it := a.Item
		_, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO inventory_items
				(id, name, quantity, cost_price, selling_price, category, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Name, it.Quantity, it.CostPrice, it.SellingPrice, it.Category,
			it.CreatedAt, it.UpdatedAt,
		)
		return err

	case store.UpdateInventoryItem:
		it := a.Item
		_, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET name = ?, quantity = ?, cost_price = ?, selling_price = ?, category = ?,
				updated_at = ?, version = version + 1
			WHERE id = ?`,
			it.Name, it.Quantity, it.CostPrice, it.SellingPrice, it.Category, it.UpdatedAt, it.ID,
		)
		return err

	case store.DeleteInventoryItem:
		_, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, a.ID)
		return err

	case store.AddSale:
		s := a.Sale
		_, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO sales
				(id, item_id, item_name, quantity_sold, unit_price, total_amount, profit, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.ItemID, s.ItemName, s.QuantitySold, s.UnitPrice, s.TotalAmount, s.Profit, s.CreatedAt,
		)
		return err

	case store.UpdateInventoryAfterSale:
		result, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET quantity = quantity - ?, version = version + 1
			WHERE id = ? AND quantity >= ?`,
			a.QuantitySold, a.ItemID, a.QuantitySold,
		)
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrOptimisticLock
		}
		return nil

	case store.AddContact:
		c := a.Contact
		_, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO contacts (id, name, phone, type, email, address, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Phone, c.Type, c.Email, c.Address, c.CreatedAt,
		)
		return err

	case store.UpdateContact:
		c := a.Contact
		_, err := tx.ExecContext(ctx, `
			UPDATE contacts SET name = ?, phone = ?, type = ?, email = ?, address = ?
			WHERE id = ?`,
			c.Name, c.Phone, c.Type, c.Email, c.Address, c.ID,
		)
		return err

	case store.DeleteContact:
		_, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, a.ID)
		return err

	case store.AddReminder:
		r := a.Reminder
		_, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO reminders
				(id, title, description, recipient_name, recipient_phone, due_date, is_completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Title, r.Description, r.RecipientName, r.RecipientPhone, r.DueDate, r.IsCompleted, r.CreatedAt,
		)
		return err

	case store.UpdateReminder:
		r := a.Reminder
		_, err := tx.ExecContext(ctx, `
			UPDATE reminders
			SET title = ?, description = ?, recipient_name = ?, recipient_phone = ?, due_date = ?, is_completed = ?
			WHERE id = ?`,
			r.Title, r.Description, r.RecipientName, r.RecipientPhone, r.DueDate, r.IsCompleted, r.ID,
		)
		return err

	case store.DeleteReminder:
		_, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, a.ID)
		return err

	case store.UpgradeToPro:
		return setTier(ctx, tx, domain.TierPro)

	case store.DowngradeToFree:
		return setTier(ctx, tx, domain.TierFree)
	}

	return fmt.Errorf("unsupported action %T", action)
}

func setTier(ctx context.Context, tx *sql.Tx, tier domain.Tier) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO app_settings (name, value) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`,
		tierSetting, string(tier),
	)
	return err
}

// LoadState reads every table in insertion order. ok is false when the
// journal is empty.
func (m *MySQLAdapter) LoadState(ctx context.Context) (store.State, bool, error) {
	st := store.NewState()
	found := false

	err := m.query(ctx, `
		SELECT id, name, quantity, cost_price, selling_price, category, created_at, updated_at
		FROM inventory_items ORDER BY seq`,
		func(rows *sql.Rows) error {
			var it domain.InventoryItem
			if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.CostPrice, &it.SellingPrice,
				&it.Category, &it.CreatedAt, &it.UpdatedAt); err != nil {
				return err
			}
			st.Inventory = append(st.Inventory, it)
			return nil
		})
	if err != nil {
		return store.State{}, false, fmt.Errorf("load inventory: %w", err)
	}

	err = m.query(ctx, `
		SELECT id, item_id, item_name, quantity_sold, unit_price, total_amount, profit, created_at
		FROM sales ORDER BY seq`,
		func(rows *sql.Rows) error {
			var s domain.Sale
			if err := rows.Scan(&s.ID, &s.ItemID, &s.ItemName, &s.QuantitySold, &s.UnitPrice,
				&s.TotalAmount, &s.Profit, &s.CreatedAt); err != nil {
				return err
			}
			st.Sales = append(st.Sales, s)
			return nil
		})
	if err != nil {
		return store.State{}, false, fmt.Errorf("load sales: %w", err)
	}

	err = m.query(ctx, `
		SELECT id, name, phone, type, email, address, created_at
		FROM contacts ORDER BY seq`,
		func(rows *sql.Rows) error {
			var c domain.Contact
			if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Type, &c.Email, &c.Address, &c.CreatedAt); err != nil {
				return err
			}
			st.Contacts = append(st.Contacts, c)
			return nil
		})
	if err != nil {
		return store.State{}, false, fmt.Errorf("load contacts: %w", err)
	}

	err = m.query(ctx, `
		SELECT id, title, description, recipient_name, recipient_phone, due_date, is_completed, created_at
		FROM reminders ORDER BY seq`,
		func(rows *sql.Rows) error {
			var r domain.Reminder
			if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.RecipientName, &r.RecipientPhone,
				&r.DueDate, &r.IsCompleted, &r.CreatedAt); err != nil {
				return err
			}
			st.Reminders = append(st.Reminders, r)
			return nil
		})
	if err != nil {
		return store.State{}, false, fmt.Errorf("load reminders: %w", err)
	}

	var tier string
	err = m.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE name = ?`, tierSetting).Scan(&tier)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return store.State{}, false, fmt.Errorf("load tier: %w", err)
	default:
		st.UserTier = domain.Tier(tier)
		found = true
	}

	found = found || len(st.Inventory) > 0 || len(st.Sales) > 0 || len(st.Contacts) > 0 || len(st.Reminders) > 0
	return st, found, nil
}

func (m *MySQLAdapter) query(ctx context.Context, q string, scan func(*sql.Rows) error) error {
	rows, err := m.db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
