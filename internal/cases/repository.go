package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resolveai/api/internal/db"
	"github.com/resolveai/api/internal/policy"
)

// Repository descreve o acesso a dados exigido pelo serviço de ocorrências.
type Repository interface {
	CreateCase(ctx context.Context, params CreateParams) (*Case, error)
	GetCase(ctx context.Context, id uuid.UUID) (*Case, error)
	GetCaseMeta(ctx context.Context, id uuid.UUID) (CaseMeta, error)
	ListCases(ctx context.Context, filter Filter) ([]Case, error)
	UpdateCase(ctx context.Context, params UpdateParams) (*Case, error)
	DeleteCase(ctx context.Context, id uuid.UUID) error
}

// CreateParams são os campos persistidos na abertura.
type CreateParams struct {
	Protocol    string
	Title       string
	Category    policy.Category
	Status      Status
	Description string
	Address     string
	Latitude    *float64
	Longitude   *float64
	OwnerID     uuid.UUID
	PhotoURL    *string
}

// UpdateParams são os efeitos de um PATCH: campos alterados, o evento
// de auditoria e a eventual foto UPDATE, aplicados na mesma transação.
type UpdateParams struct {
	ID          uuid.UUID
	Status      *Status
	Description *string
	EventStatus Status
	Message     *string
	PhotoURL    *string
	AuthorID    *uuid.UUID
	EmployeeID  *uuid.UUID
}

// CaseMeta carrega o mínimo para decisão de permissão antes do acesso pleno.
type CaseMeta struct {
	ID       uuid.UUID
	Category policy.Category
	Status   Status
	OwnerID  *uuid.UUID
}

// PGRepository implementa Repository sobre Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const caseColumns = "c.id, c.protocol, c.title, c.category, c.status, c.description, c.address, c.latitude, c.longitude, c.user_id, c.created_at, c.updated_at"

// CreateCase insere a ocorrência e, se houver, a foto REPORT inicial.
func (r *PGRepository) CreateCase(ctx context.Context, params CreateParams) (*Case, error) {
	var created *Case

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
            INSERT INTO cases (protocol, title, category, status, description, address, latitude, longitude, user_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING id, protocol, title, category, status, description, address, latitude, longitude, user_id, created_at, updated_at
        `,
			params.Protocol,
			params.Title,
			string(params.Category),
			string(params.Status),
			params.Description,
			params.Address,
			params.Latitude,
			params.Longitude,
			params.OwnerID,
		)

		c, err := scanCase(row)
		if err != nil {
			return err
		}

		if params.PhotoURL != nil {
			photo, err := insertPhoto(ctx, tx, c.ID, *params.PhotoURL, PhotoKindReport)
			if err != nil {
				return err
			}
			c.Photos = append(c.Photos, *photo)
		}

		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created.Photos == nil {
		created.Photos = []CasePhoto{}
	}
	return created, nil
}

// GetCase carrega ocorrência completa: dono, fotos (mais recentes primeiro)
// e eventos em ordem cronológica com seus autores.
func (r *PGRepository) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+caseColumns+`, u.id, u.name, u.email
        FROM cases c
        LEFT JOIN users u ON u.id = c.user_id
        WHERE c.id = $1
    `, id)

	c, err := scanCaseWithOwner(row)
	if err != nil {
		return nil, err
	}

	photos, err := r.listPhotos(ctx, []uuid.UUID{c.ID}, "", 0)
	if err != nil {
		return nil, err
	}
	c.Photos = photos[c.ID]
	if c.Photos == nil {
		c.Photos = []CasePhoto{}
	}

	events, err := r.listEvents(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Events = events

	return c, nil
}

// GetCaseMeta carrega só o necessário para decidir permissão.
func (r *PGRepository) GetCaseMeta(ctx context.Context, id uuid.UUID) (CaseMeta, error) {
	var meta CaseMeta
	var category, status string
	err := r.pool.QueryRow(ctx, `
        SELECT id, category, status, user_id FROM cases WHERE id = $1
    `, id).Scan(&meta.ID, &category, &status, &meta.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CaseMeta{}, ErrNotFound
		}
		return CaseMeta{}, err
	}
	meta.Category = policy.Category(category)
	meta.Status = Status(status)
	return meta, nil
}

// ListCases devolve as ocorrências mais recentes dentro do filtro, cada uma
// com sua foto REPORT canônica e uma prévia dos últimos eventos.
func (r *PGRepository) ListCases(ctx context.Context, filter Filter) ([]Case, error) {
	base := `
        SELECT ` + caseColumns + `, u.id, u.name, u.email
        FROM cases c
        LEFT JOIN users u ON u.id = c.user_id`

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if len(filter.Categories) > 0 {
		categories := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			categories[i] = string(c)
		}
		clauses = append(clauses, fmt.Sprintf("c.category = ANY($%d)", idx))
		args = append(args, categories)
		idx++
	}

	if filter.OwnerID != nil {
		clauses = append(clauses, fmt.Sprintf("c.user_id = $%d", idx))
		args = append(args, *filter.OwnerID)
		idx++
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY c.created_at DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Case
	var ids []uuid.UUID
	for rows.Next() {
		c, err := scanCaseWithOwner(rows)
		if err != nil {
			return nil, err
		}
		c.Photos = []CasePhoto{}
		items = append(items, *c)
		ids = append(ids, c.ID)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if len(items) == 0 {
		return []Case{}, nil
	}

	photos, err := r.listPhotos(ctx, ids, PhotoKindReport, 1)
	if err != nil {
		return nil, err
	}
	previews, err := r.listEventPreviews(ctx, ids, 3)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if p := photos[items[i].ID]; p != nil {
			items[i].Photos = p
		}
		items[i].Events = previews[items[i].ID]
	}

	return items, nil
}

// UpdateCase aplica o PATCH de forma atômica: campos da ocorrência, evento
// de auditoria (sempre) e foto UPDATE (quando informada).
func (r *PGRepository) UpdateCase(ctx context.Context, params UpdateParams) (*Case, error) {
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		setParts := []string{"updated_at = now()"}
		args := []any{}
		idx := 1

		if params.Status != nil {
			setParts = append(setParts, fmt.Sprintf("status = $%d", idx))
			args = append(args, string(*params.Status))
			idx++
		}
		if params.Description != nil {
			setParts = append(setParts, fmt.Sprintf("description = $%d", idx))
			args = append(args, *params.Description)
			idx++
		}

		args = append(args, params.ID)
		cmd, err := tx.Exec(ctx, fmt.Sprintf("UPDATE cases SET %s WHERE id = $%d", strings.Join(setParts, ", "), idx), args...)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO case_events (case_id, status, message, photo_url, author_id, employee_id)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, params.ID, string(params.EventStatus), params.Message, params.PhotoURL, params.AuthorID, params.EmployeeID)
		if err != nil {
			return err
		}

		if params.PhotoURL != nil {
			if _, err := insertPhoto(ctx, tx, params.ID, *params.PhotoURL, PhotoKindUpdate); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetCase(ctx, params.ID)
}

// DeleteCase remove a ocorrência e cascateia eventos e fotos na mesma
// transação: nunca sobra linha órfã de auditoria.
func (r *PGRepository) DeleteCase(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM case_events WHERE case_id = $1", id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM case_photos WHERE case_id = $1", id); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, "DELETE FROM cases WHERE id = $1", id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// listPhotos devolve fotos por ocorrência, mais recentes primeiro. Com
// kind e perCase informados, restringe ao tipo e limita por ocorrência
// (perCase=1 + REPORT busca a foto canônica de exibição).
func (r *PGRepository) listPhotos(ctx context.Context, caseIDs []uuid.UUID, kind string, perCase int) (map[uuid.UUID][]CasePhoto, error) {
	query := `
        SELECT id, case_id, url, kind, created_at FROM (
            SELECT id, case_id, url, kind, created_at,
                   ROW_NUMBER() OVER (PARTITION BY case_id ORDER BY created_at DESC, id DESC) AS rn
            FROM case_photos
            WHERE case_id = ANY($1)`
	args := []any{caseIDs}
	if kind != "" {
		query += " AND kind = $2"
		args = append(args, kind)
	}
	query += `
        ) p`
	if perCase > 0 {
		query += fmt.Sprintf(" WHERE rn <= %d", perCase)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]CasePhoto)
	for rows.Next() {
		var p CasePhoto
		if err := rows.Scan(&p.ID, &p.CaseID, &p.URL, &p.Kind, &p.CreatedAt); err != nil {
			return nil, err
		}
		result[p.CaseID] = append(result[p.CaseID], p)
	}
	return result, rows.Err()
}

const eventColumns = `e.id, e.case_id, e.status, e.message, e.photo_url, e.author_id, e.employee_id, e.created_at,
               a.id, a.name, a.email,
               emp.id, emp.employee_code, emp.name, emp.role`

func (r *PGRepository) listEvents(ctx context.Context, caseID uuid.UUID) ([]CaseEvent, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+eventColumns+`
        FROM case_events e
        LEFT JOIN users a ON a.id = e.author_id
        LEFT JOIN employees emp ON emp.id = e.employee_id
        WHERE e.case_id = $1
        ORDER BY e.created_at ASC, e.id ASC
    `, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []CaseEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func (r *PGRepository) listEventPreviews(ctx context.Context, caseIDs []uuid.UUID, perCase int) (map[uuid.UUID][]CaseEvent, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
        SELECT `+eventColumns+`
        FROM (
            SELECT *, ROW_NUMBER() OVER (PARTITION BY case_id ORDER BY created_at DESC, id DESC) AS rn
            FROM case_events
            WHERE case_id = ANY($1)
        ) e
        LEFT JOIN users a ON a.id = e.author_id
        LEFT JOIN employees emp ON emp.id = e.employee_id
        WHERE e.rn <= %d
        ORDER BY e.created_at ASC, e.id ASC
    `, perCase), caseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]CaseEvent)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result[ev.CaseID] = append(result[ev.CaseID], *ev)
	}
	return result, rows.Err()
}

func insertPhoto(ctx context.Context, tx pgx.Tx, caseID uuid.UUID, url, kind string) (*CasePhoto, error) {
	row := tx.QueryRow(ctx, `
        INSERT INTO case_photos (case_id, url, kind)
        VALUES ($1, $2, $3)
        RETURNING id, case_id, url, kind, created_at
    `, caseID, url, kind)

	var p CasePhoto
	if err := row.Scan(&p.ID, &p.CaseID, &p.URL, &p.Kind, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	var category, status string
	err := row.Scan(&c.ID, &c.Protocol, &c.Title, &category, &status, &c.Description, &c.Address,
		&c.Latitude, &c.Longitude, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Category = policy.Category(category)
	c.Status = Status(status)
	return &c, nil
}

func scanCaseWithOwner(row pgx.Row) (*Case, error) {
	var c Case
	var category, status string
	var ownerID *uuid.UUID
	var ownerName, ownerEmail *string
	err := row.Scan(&c.ID, &c.Protocol, &c.Title, &category, &status, &c.Description, &c.Address,
		&c.Latitude, &c.Longitude, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
		&ownerID, &ownerName, &ownerEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Category = policy.Category(category)
	c.Status = Status(status)
	if ownerID != nil {
		c.Owner = &CaseOwner{ID: *ownerID}
		if ownerName != nil {
			c.Owner.Name = *ownerName
		}
		if ownerEmail != nil {
			c.Owner.Email = *ownerEmail
		}
	}
	return &c, nil
}

func scanEvent(row pgx.Row) (*CaseEvent, error) {
	var ev CaseEvent
	var status string
	var authorID *uuid.UUID
	var authorName, authorEmail *string
	var empID *uuid.UUID
	var empCode *int
	var empName, empRole *string

	err := row.Scan(&ev.ID, &ev.CaseID, &status, &ev.Message, &ev.PhotoURL, &ev.AuthorID, &ev.EmployeeID, &ev.CreatedAt,
		&authorID, &authorName, &authorEmail,
		&empID, &empCode, &empName, &empRole)
	if err != nil {
		return nil, err
	}
	ev.Status = Status(status)
	if authorID != nil {
		ev.Author = &EventAuthor{ID: *authorID}
		if authorName != nil {
			ev.Author.Name = *authorName
		}
		if authorEmail != nil {
			ev.Author.Email = *authorEmail
		}
	}
	if empID != nil {
		ev.Employee = &EventEmployee{ID: *empID}
		if empCode != nil {
			ev.Employee.EmployeeCode = *empCode
		}
		if empName != nil {
			ev.Employee.Name = *empName
		}
		if empRole != nil {
			ev.Employee.Role = *empRole
		}
	}
	return &ev, nil
}
