package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tg-quotes-bot/internal/domain"
	"tg-quotes-bot/internal/infra/metrics"
)

// Get возвращает шаблон уведомления для (dateKey, slot).
func (p *Postgres) Get(ctx context.Context, dateKey string, slot domain.Slot) (domain.Template, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var (
		tmpl       domain.Template
		text       sql.NullString
		imageRef   sql.NullString
		buttonText sql.NullString
		buttonURL  sql.NullString
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT date_key, slot, text, image_ref, button_text, button_url
FROM notification_templates
WHERE date_key=$1 AND slot=$2
`, dateKey, string(slot)).Scan(&tmpl.DateKey, &tmpl.Slot, &text, &imageRef, &buttonText, &buttonURL)
	metrics.ObserveNetworkRequest("postgres", "notification_templates_get", "notification_templates", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Template{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Template{}, err
	}
	if text.Valid {
		tmpl.Text = text.String
	}
	if imageRef.Valid {
		tmpl.ImageRef = imageRef.String
	}
	if buttonText.Valid && buttonText.String != "" {
		tmpl.Button = &domain.TemplateButton{Text: buttonText.String}
		if buttonURL.Valid {
			tmpl.Button.URL = buttonURL.String
		}
	}
	return tmpl, nil
}

// ListActive возвращает живой каталог категорий.
func (p *Postgres) ListActive(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, name, keywords, is_active FROM categories
WHERE is_active ORDER BY id
`)
	metrics.ObserveNetworkRequest("postgres", "categories_list_active", "categories", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Keywords, &c.IsActive); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
